package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/internal/constants"
	"github.com/ludo-technologies/tcagate/internal/testutil"
)

func TestNewConfigurationLoader(t *testing.T) {
	loader, err := NewConfigurationLoader("")
	testutil.AssertNoError(t, err)

	wd, err := os.Getwd()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, wd, loader.Workspace())
}

func TestConfigurationLoader_LoadConfig_NonExistent(t *testing.T) {
	loader, err := NewConfigurationLoader(t.TempDir())
	testutil.AssertNoError(t, err)

	_, err = loader.LoadConfig("/nonexistent/tcagate.yaml", "")
	if !domain.HasCode(err, domain.ErrCodeConfigError) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestConfigurationLoader_LoadConfig_Discovery(t *testing.T) {
	workspace := t.TempDir()
	testutil.WriteFile(t, workspace, constants.ConfigFileName, "scan:\n  quick_scan: false\nredline:\n  incr_fatal: 0\n")
	testutil.AssertNoError(t, os.MkdirAll(filepath.Join(workspace, "src", "pkg"), 0o755))

	loader, err := NewConfigurationLoader(workspace)
	testutil.AssertNoError(t, err)

	cfg, err := loader.LoadConfig("", "src/pkg")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, filepath.Join(workspace, constants.ConfigFileName), cfg.Path)
	testutil.AssertFalse(t, cfg.Scan.QuickScan, "quick_scan should come from the discovered file")
	testutil.AssertEqual(t, domain.IntNumber(0), cfg.Redline.Thresholds[domain.MetricIncrFatal])
}

func TestConfigurationLoader_ScanRequest(t *testing.T) {
	workspace := t.TempDir()
	loader, err := NewConfigurationLoader(workspace)
	testutil.AssertNoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Scan.QuickScan = false
	cfg.Scan.SourceDir = "repo"
	cfg.Scan.IgnoreFile = ".tcaignore"
	cfg.Scan.TimeoutHours = 0.5
	cfg.Server.IP = "10.0.0.1"
	cfg.Server.Token = "tok"

	req, err := loader.ScanRequest(cfg)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.ScanModeLocal, req.Mode)
	testutil.AssertEqual(t, filepath.Join(workspace, "repo"), req.SourceDir)
	testutil.AssertEqual(t, workspace, req.Workspace)
	testutil.AssertEqual(t, "http://10.0.0.1/server/main/", req.ServerURL)
	testutil.AssertEqual(t, "http://10.0.0.1/server/files/", req.FileServerURL)
	testutil.AssertEqual(t, "tok", req.Token)
	testutil.AssertEqual(t, filepath.Join(workspace, ".tcaignore"), req.IgnoreFile)
	testutil.AssertEqual(t, filepath.Join(workspace, constants.DefaultReportFileName), req.ReportPath)
	testutil.AssertEqual(t, 30*60.0, req.Timeout.Seconds())
}

func TestConfigurationLoader_ScanRequestDefaults(t *testing.T) {
	workspace := t.TempDir()
	loader, err := NewConfigurationLoader(workspace)
	testutil.AssertNoError(t, err)

	req, err := loader.ScanRequest(config.DefaultConfig())
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.ScanModeQuick, req.Mode)
	testutil.AssertEqual(t, workspace, req.SourceDir)
	testutil.AssertEqual(t, constants.DefaultLabel, req.Label)
	testutil.AssertEqual(t, constants.DefaultScanTimeout, req.Timeout)
	testutil.AssertEqual(t, "", req.IgnoreFile)
	testutil.AssertEqual(t, "", req.ServerURL)
}

func TestConfigurationLoader_CheckRequest(t *testing.T) {
	workspace := t.TempDir()
	loader, err := NewConfigurationLoader(workspace)
	testutil.AssertNoError(t, err)
	cfg := config.DefaultConfig()

	req := loader.CheckRequest(cfg, "")
	testutil.AssertEqual(t, filepath.Join(workspace, constants.RawResultFileName), req.ResultPath)
	testutil.AssertEqual(t, filepath.Join(workspace, constants.DefaultReportFileName), req.ReportPath)

	req = loader.CheckRequest(cfg, "/tmp/result.json")
	testutil.AssertEqual(t, "/tmp/result.json", req.ResultPath)
}
