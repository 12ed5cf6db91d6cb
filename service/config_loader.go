package service

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

// ConfigurationLoaderImpl loads the configuration and converts it into
// requests. Relative paths are resolved against the workspace.
type ConfigurationLoaderImpl struct {
	workspace string
}

// NewConfigurationLoader creates a loader for the given workspace. An empty
// workspace uses the working directory.
func NewConfigurationLoader(workspace string) (*ConfigurationLoaderImpl, error) {
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, domain.NewConfigError("cannot determine working directory", err)
		}
		workspace = wd
	}
	return &ConfigurationLoaderImpl{workspace: workspace}, nil
}

// Workspace returns the directory relative paths are resolved against
func (c *ConfigurationLoaderImpl) Workspace() string {
	return c.workspace
}

// LoadConfig loads the configuration. Without an explicit path a config file
// is searched from target upward, then from the workspace.
func (c *ConfigurationLoaderImpl) LoadConfig(path, target string) (*config.Config, error) {
	if target == "" {
		target = c.workspace
	}
	cfg, err := config.LoadConfigWithTarget(path, resolveAgainst(c.workspace, target))
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Debugf("using config file %s", cfg.Path)
	}
	return cfg, nil
}

// ScanRequest converts the configuration into a scan request
func (c *ConfigurationLoaderImpl) ScanRequest(cfg *config.Config) (domain.ScanRequest, error) {
	sourceDir := cfg.Scan.SourceDir
	if sourceDir == "" {
		sourceDir = c.workspace
	}
	sourceDir, err := filepath.Abs(resolveAgainst(c.workspace, sourceDir))
	if err != nil {
		return domain.ScanRequest{}, domain.NewInvalidInputError("invalid source directory", err)
	}

	return domain.ScanRequest{
		Mode:            cfg.ScanMode(),
		SourceDir:       sourceDir,
		Workspace:       c.workspace,
		Label:           cfg.Scan.Label,
		Timeout:         cfg.ScanTimeout(),
		FromFile:        cfg.Scan.FromFile,
		WhitePaths:      cfg.Scan.WhitePaths,
		IgnorePaths:     cfg.Scan.IgnorePaths,
		IgnoreFile:      c.resolve(cfg.Scan.IgnoreFile),
		QuickScanOutput: os.Getenv(constants.EnvQuickScanOutput),
		Token:           cfg.Server.Token,
		ServerURL:       cfg.Server.MainServerURL(),
		FileServerURL:   cfg.Server.FileServerURL(),
		OrgSID:          cfg.Server.OrgSID,
		TeamName:        cfg.Server.TeamName,
		Languages:       cfg.Scan.Language,
		TotalScan:       cfg.Scan.TotalScan,
		SchemeID:        cfg.Scan.SchemeID,
		CompareBranch:   cfg.Scan.CompareBranch,
		ReportPath:      c.resolve(cfg.Output.ReportFile),
	}, nil
}

// CheckRequest converts the configuration into a check request for resultPath
func (c *ConfigurationLoaderImpl) CheckRequest(cfg *config.Config, resultPath string) domain.CheckRequest {
	if resultPath == "" {
		resultPath = constants.RawResultFileName
	}
	return domain.CheckRequest{
		ResultPath: c.resolve(resultPath),
		ReportPath: c.resolve(cfg.Output.ReportFile),
	}
}

func (c *ConfigurationLoaderImpl) resolve(path string) string {
	if path == "" {
		return ""
	}
	return resolveAgainst(c.workspace, path)
}
