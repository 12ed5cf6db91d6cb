package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

func TestScanCmd_FlagsExist(t *testing.T) {
	cmd := scanCmd()

	expectedFlags := []string{"config", "source-dir", "report", "format", "label", "quick", "local", "no-progress"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}

	shortFlags := map[string]string{
		"c": "config",
		"s": "source-dir",
		"r": "report",
		"f": "format",
		"l": "label",
	}
	for short, long := range shortFlags {
		if cmd.Flags().ShorthandLookup(short) == nil {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}
}

func TestApplyScanFlags(t *testing.T) {
	cmd := scanCmd()
	opts := &scanOptions{}
	if err := cmd.ParseFlags([]string{"--local", "--label", "a;b", "--format", "json"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := config.DefaultConfig()
	opts.local = true
	opts.label = "a;b"
	opts.format = "json"
	applyScanFlags(cmd, cfg, opts)

	if cfg.Scan.QuickScan {
		t.Error("--local should disable quick scan")
	}
	if cfg.Scan.Label != "a;b" {
		t.Errorf("Expected label override, got %q", cfg.Scan.Label)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Expected format override, got %q", cfg.Output.Format)
	}
	if cfg.Output.ReportFile != constants.DefaultReportFileName {
		t.Errorf("Unchanged flags should keep config values, got %q", cfg.Output.ReportFile)
	}
}

func runCheckIn(t *testing.T, dir, configYAML, result string, args ...string) (string, error) {
	t.Helper()
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatalf("Failed to get working directory: %v", wdErr)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if configYAML != "" {
		if err := os.WriteFile(filepath.Join(dir, constants.ConfigFileName), []byte(configYAML), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
	}
	if result != "" {
		if err := os.WriteFile(filepath.Join(dir, constants.RawResultFileName), []byte(result), 0644); err != nil {
			t.Fatalf("Failed to write result: %v", err)
		}
	}

	var out bytes.Buffer
	cmd := checkCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const duplicateResult = `{
	"status": "success",
	"scan_report": {"duplicatescan": {"duplicate_rate": 12.5}}
}`

func TestCheckCommand_Passed(t *testing.T) {
	dir := t.TempDir()
	output, err := runCheckIn(t, dir, "redline:\n  duplicate_rate: 20\n", duplicateResult)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(output, "Result: Passed") {
		t.Errorf("Expected passing summary, got:\n%s", output)
	}

	data, err := os.ReadFile(filepath.Join(dir, constants.DefaultReportFileName))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if report["status"] != "success" {
		t.Errorf("Expected success report, got %v", report["status"])
	}
}

func TestCheckCommand_FailedGate(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		wantCode int
	}{
		{"blocking", "redline:\n  duplicate_rate: 10\n", domain.StatusCodeFailure},
		{"non-blocking", "redline:\n  duplicate_rate: 10\noutput:\n  block: false\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCheckIn(t, t.TempDir(), tt.config, duplicateResult, "--format", "json")
			code := 0
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.Code
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("Expected exit code %d, got %d", tt.wantCode, code)
			}
		})
	}
}

func TestCheckCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		result string
	}{
		{"missing result", "", ""},
		{"unknown redline metric", "redline:\n  bogus: 1\n", duplicateResult},
		{"invalid format", "output:\n  format: html\n", duplicateResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCheckIn(t, t.TempDir(), tt.config, tt.result)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("Expected ExitError, got %v", err)
			}
			if exitErr.Code != domain.StatusCodeError {
				t.Errorf("Expected exit code %d, got %d", domain.StatusCodeError, exitErr.Code)
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), constants.ToolName+" version ") {
		t.Errorf("Unexpected version output %q", out.String())
	}
}
