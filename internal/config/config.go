package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

// Archive backends
const (
	ArchiveBackendNone  = ""
	ArchiveBackendLocal = "local"
	ArchiveBackendS3    = "s3"
	ArchiveBackendGCS   = "gcs"
)

// Config represents the main configuration structure
type Config struct {
	// Scan holds scan input configuration
	Scan ScanConfig `json:"scan" mapstructure:"scan" yaml:"scan"`

	// Server holds the analysis server connection used by local scans
	Server ServerConfig `json:"server" mapstructure:"server" yaml:"server"`

	// Client holds external client installation settings
	Client ClientConfig `json:"client" mapstructure:"client" yaml:"client"`

	// Redline holds the quality gate thresholds. It is filled separately
	// because thresholds keep their int/float distinction.
	Redline RedlineConfig `json:"redline" mapstructure:"-" yaml:"redline"`

	// Output holds report and exit code configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Archive holds report archiving configuration
	Archive ArchiveConfig `json:"archive" mapstructure:"archive" yaml:"archive"`

	// Path is the config file that was loaded, empty when none was found
	Path string `json:"-" mapstructure:"-" yaml:"-"`
}

// ScanConfig holds the inputs selecting what and how to scan
type ScanConfig struct {
	// SourceDir is the repository root; empty means the working directory
	SourceDir string `json:"source_dir" mapstructure:"source_dir" yaml:"source_dir"`

	// QuickScan selects the standalone quick scan instead of a server-backed local scan
	QuickScan bool `json:"quick_scan" mapstructure:"quick_scan" yaml:"quick_scan"`

	// Label is the rule set label used by quick scans
	Label string `json:"label" mapstructure:"label" yaml:"label"`

	// FromFile lists the files to scan, one relative path per line
	FromFile string `json:"from_file" mapstructure:"from_file" yaml:"from_file"`

	// WhitePaths and IgnorePaths are regular expressions matched against relative paths
	WhitePaths  []string `json:"white_paths" mapstructure:"white_paths" yaml:"white_paths"`
	IgnorePaths []string `json:"ignore_paths" mapstructure:"ignore_paths" yaml:"ignore_paths"`

	// IgnoreFile is a .gitignore-style file of paths to leave out
	IgnoreFile string `json:"ignore_file" mapstructure:"ignore_file" yaml:"ignore_file"`

	Language      string `json:"language" mapstructure:"language" yaml:"language"`
	TotalScan     bool   `json:"total_scan" mapstructure:"total_scan" yaml:"total_scan"`
	SchemeID      string `json:"scheme_id" mapstructure:"scheme_id" yaml:"scheme_id"`
	CompareBranch string `json:"compare_branch" mapstructure:"compare_branch" yaml:"compare_branch"`

	// TimeoutHours bounds the client run; 0 uses the default
	TimeoutHours float64 `json:"timeout" mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig holds the analysis server connection
type ServerConfig struct {
	Token    string `json:"-" mapstructure:"token" yaml:"-"`
	IP       string `json:"ip" mapstructure:"ip" yaml:"ip"`
	OrgSID   string `json:"org_sid" mapstructure:"org_sid" yaml:"org_sid"`
	TeamName string `json:"team_name" mapstructure:"team_name" yaml:"team_name"`
}

// ClientConfig controls where the external client comes from
type ClientConfig struct {
	DownloadURL string `json:"download_url" mapstructure:"download_url" yaml:"download_url"`

	// InstallDir overrides the install directory discovery
	InstallDir string `json:"install_dir" mapstructure:"install_dir" yaml:"install_dir"`
}

// RedlineConfig holds configured thresholds and optional display names
type RedlineConfig struct {
	Thresholds domain.Thresholds           `json:"thresholds" yaml:"thresholds"`
	Names      map[domain.MetricKey]string `json:"names,omitempty" yaml:"names,omitempty"`
}

// OutputConfig holds configuration for the report and the summary
type OutputConfig struct {
	// ReportFile is where the final report is written
	ReportFile string `json:"report_file" mapstructure:"report_file" yaml:"report_file"`

	// Block makes a failed gate fail the process
	Block bool `json:"block" mapstructure:"block" yaml:"block"`

	// Format specifies the summary format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// ArchiveConfig holds configuration for the report archive
type ArchiveConfig struct {
	// Backend is one of "", local, s3, gcs; empty disables archiving
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// Dir is the target directory of the local backend
	Dir string `json:"dir" mapstructure:"dir" yaml:"dir"`

	Bucket       string `json:"bucket" mapstructure:"bucket" yaml:"bucket"`
	Prefix       string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`
	Region       string `json:"region" mapstructure:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey    string `json:"-" mapstructure:"access_key" yaml:"-"`
	SecretKey    string `json:"-" mapstructure:"secret_key" yaml:"-"`
	UsePathStyle bool   `json:"use_path_style" mapstructure:"use_path_style" yaml:"use_path_style"`
}

// inputBindings maps config keys to the pipeline input variables
var inputBindings = map[string]string{
	"scan.source_dir":     "SOURCE_DIR",
	"scan.quick_scan":     "QUICK_SCAN",
	"scan.label":          "LABEL",
	"scan.from_file":      "FROM_FILE",
	"scan.white_paths":    "WHITE_PATHS",
	"scan.ignore_paths":   "IGNORE_PATHS",
	"scan.ignore_file":    "IGNORE_FILE",
	"scan.language":       "LANGUAGE",
	"scan.total_scan":     "TOTAL_SCAN",
	"scan.scheme_id":      "SCHEME_ID",
	"scan.compare_branch": "COMPARE_BRANCH",
	"scan.timeout":        "TIMEOUT",
	"server.token":        "TOKEN",
	"server.ip":           "SERVER_IP",
	"server.org_sid":      "ORG_SID",
	"server.team_name":    "TEAM_NAME",
	"output.block":        "BLOCK",
}

// InputEnvName returns the environment variable bound to a pipeline input
func InputEnvName(input string) string {
	return constants.InputEnvPrefix + "_" + strings.ToUpper(input)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			QuickScan:   true,
			Label:       constants.DefaultLabel,
			WhitePaths:  []string{},
			IgnorePaths: []string{},
		},
		Client: ClientConfig{
			DownloadURL: constants.DefaultDownloadURL,
		},
		Redline: RedlineConfig{
			Thresholds: domain.Thresholds{},
		},
		Output: OutputConfig{
			ReportFile: constants.DefaultReportFileName,
			Block:      true,
			Format:     string(domain.OutputFormatText),
		},
	}
}

// LoadConfig loads configuration from file, environment and defaults
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration, discovering a config file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfig(configPath)
}

func loadConfig(configPath string) (*Config, error) {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	setDefaults(v, DefaultConfig())
	if err := bindEnv(v); err != nil {
		return nil, domain.NewConfigError("failed to bind environment", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config, viper.DecodeHook(stringListHook())); err != nil {
		return nil, domain.NewConfigError("failed to unmarshal config", err)
	}
	config.Path = configPath

	redline, err := loadRedline(v)
	if err != nil {
		return nil, err
	}
	config.Redline = redline

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scan.source_dir", d.Scan.SourceDir)
	v.SetDefault("scan.quick_scan", d.Scan.QuickScan)
	v.SetDefault("scan.label", d.Scan.Label)
	v.SetDefault("scan.from_file", d.Scan.FromFile)
	v.SetDefault("scan.white_paths", d.Scan.WhitePaths)
	v.SetDefault("scan.ignore_paths", d.Scan.IgnorePaths)
	v.SetDefault("scan.ignore_file", d.Scan.IgnoreFile)
	v.SetDefault("scan.language", d.Scan.Language)
	v.SetDefault("scan.total_scan", d.Scan.TotalScan)
	v.SetDefault("scan.scheme_id", d.Scan.SchemeID)
	v.SetDefault("scan.compare_branch", d.Scan.CompareBranch)
	v.SetDefault("scan.timeout", d.Scan.TimeoutHours)

	v.SetDefault("server.token", d.Server.Token)
	v.SetDefault("server.ip", d.Server.IP)
	v.SetDefault("server.org_sid", d.Server.OrgSID)
	v.SetDefault("server.team_name", d.Server.TeamName)

	v.SetDefault("client.download_url", d.Client.DownloadURL)
	v.SetDefault("client.install_dir", d.Client.InstallDir)

	v.SetDefault("output.report_file", d.Output.ReportFile)
	v.SetDefault("output.block", d.Output.Block)
	v.SetDefault("output.format", d.Output.Format)

	// Every archive key needs a default so TCAGATE_ARCHIVE_* variables are seen
	v.SetDefault("archive.backend", d.Archive.Backend)
	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.bucket", d.Archive.Bucket)
	v.SetDefault("archive.prefix", d.Archive.Prefix)
	v.SetDefault("archive.region", d.Archive.Region)
	v.SetDefault("archive.endpoint", d.Archive.Endpoint)
	v.SetDefault("archive.access_key", d.Archive.AccessKey)
	v.SetDefault("archive.secret_key", d.Archive.SecretKey)
	v.SetDefault("archive.use_path_style", d.Archive.UsePathStyle)
}

// bindEnv binds pipeline inputs (INPUT_*) and, for everything else,
// TCAGATE_<SECTION>_<KEY> variables
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(constants.ToolName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, input := range inputBindings {
		if err := v.BindEnv(key, InputEnvName(input)); err != nil {
			return err
		}
	}
	for _, key := range domain.MetricKeys() {
		if err := v.BindEnv("redline."+string(key), InputEnvName(string(key))); err != nil {
			return err
		}
	}
	return nil
}

// stringListHook lets list settings be written as one string separated by
// commas or semicolons, the way pipeline inputs pass them.
func stringListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return SplitList(data.(string)), nil
	}
}

// SplitList splits a comma or semicolon separated list. Items are trimmed,
// empty items dropped and duplicates removed keeping the first occurrence.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func loadRedline(v *viper.Viper) (RedlineConfig, error) {
	rc := RedlineConfig{Thresholds: domain.Thresholds{}}

	if sub := v.GetStringMap("redline"); len(sub) > 0 {
		unknown := make([]string, 0)
		for key := range sub {
			if key == "names" {
				continue
			}
			if _, ok := domain.LookupMetric(domain.MetricKey(key)); !ok {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return rc, domain.NewConfigError(
				fmt.Sprintf("unknown redline metric(s): %s", strings.Join(unknown, ", ")), nil)
		}
	}

	for _, key := range domain.MetricKeys() {
		name := "redline." + string(key)
		if !v.IsSet(name) {
			continue
		}
		n, configured, err := ParseThreshold(key, v.Get(name))
		if err != nil {
			return rc, err
		}
		if configured {
			rc.Thresholds[key] = n
		}
	}

	if names := v.GetStringMapString("redline.names"); len(names) > 0 {
		rc.Names = make(map[domain.MetricKey]string, len(names))
		for key, name := range names {
			rc.Names[domain.MetricKey(key)] = name
		}
	}
	return rc, nil
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configCandidates are the config file names searched for, in order
var configCandidates = []string{
	constants.ConfigFileName,
	"tcagate.yml",
	".tcagate.yaml",
	".tcagate.yml",
	"tcagate.json",
	".tcagate.json",
}

// findDefaultConfig looks for default configuration files in common locations.
// targetPath is the scanned source directory.
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, configCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", configCandidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), configCandidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, configCandidates); config != "" {
			return config
		}
		if config := searchConfigInDirectory(home, configCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.ConfigEnvVar); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if _, err := domain.ParseOutputFormat(c.Output.Format); err != nil {
		return domain.NewConfigError(
			fmt.Sprintf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format), err)
	}

	if c.Output.ReportFile == "" {
		return domain.NewConfigError("output.report_file cannot be empty", nil)
	}

	if c.Scan.TimeoutHours < 0 {
		return domain.NewConfigError(fmt.Sprintf("scan.timeout must be >= 0, got %g", c.Scan.TimeoutHours), nil)
	}

	if c.Scan.QuickScan && strings.TrimSpace(c.Scan.Label) == "" {
		return domain.NewConfigError("scan.label cannot be empty for quick scans", nil)
	}

	if err := c.validateArchiveConfig(); err != nil {
		return err
	}

	for key, n := range c.Redline.Thresholds {
		def, ok := domain.LookupMetric(key)
		if !ok {
			return domain.NewConfigError(fmt.Sprintf("unknown redline metric %q", key), nil)
		}
		if n.Kind != def.Kind {
			return domain.NewConfigError(
				fmt.Sprintf("redline %s expects a %s value, got %s", key, def.Kind, n.Kind), nil)
		}
	}
	return nil
}

// validateArchiveConfig validates the archive configuration
func (c *Config) validateArchiveConfig() error {
	switch c.Archive.Backend {
	case ArchiveBackendNone:
		return nil
	case ArchiveBackendLocal:
		if c.Archive.Dir == "" {
			return domain.NewConfigError("archive.dir is required for the local backend", nil)
		}
	case ArchiveBackendS3, ArchiveBackendGCS:
		if c.Archive.Bucket == "" {
			return domain.NewConfigError(
				fmt.Sprintf("archive.bucket is required for the %s backend", c.Archive.Backend), nil)
		}
	default:
		return domain.NewConfigError(
			fmt.Sprintf("invalid archive.backend '%s', must be one of: local, s3, gcs", c.Archive.Backend), nil)
	}
	return nil
}

// ScanMode returns the scan mode selected by the configuration
func (c *Config) ScanMode() domain.ScanMode {
	if c.Scan.QuickScan {
		return domain.ScanModeQuick
	}
	return domain.ScanModeLocal
}

// ScanTimeout returns the client timeout
func (c *Config) ScanTimeout() time.Duration {
	if c.Scan.TimeoutHours <= 0 {
		return constants.DefaultScanTimeout
	}
	return time.Duration(c.Scan.TimeoutHours * float64(time.Hour))
}

// OutputFormat returns the parsed summary format
func (c *Config) OutputFormat() domain.OutputFormat {
	f, err := domain.ParseOutputFormat(c.Output.Format)
	if err != nil {
		return domain.OutputFormatText
	}
	return f
}

// MainServerURL returns the server API root, or "" without a server
func (s ServerConfig) MainServerURL() string {
	if s.IP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s/server/main/", s.IP)
}

// FileServerURL returns the file server root, or "" without a server
func (s ServerConfig) FileServerURL() string {
	if s.IP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s/server/files/", s.IP)
}
