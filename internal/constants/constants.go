package constants

import "time"

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "tcagate"

	// ConfigFileName is the default config file name
	ConfigFileName = "tcagate.yaml"

	// ConfigEnvVar points at an explicit config file
	ConfigEnvVar = "TCAGATE_CONFIG"

	// InputEnvPrefix is the prefix of pipeline input variables
	InputEnvPrefix = "INPUT"
)

// External client constants
const (
	ClientDirName      = "tca-client"
	ClientExecutable   = "codepuppy"
	ScanTaskExecutable = "scantask"

	// DefaultDownloadURL is the pinned client release
	DefaultDownloadURL = "https://github.com/Tencent/CodeAnalysis/releases/download/20220616.1/tca-client-v20220616.2-x86_64-linux.zip"

	// ActionInstallRoot is used as the install root when it exists
	ActionInstallRoot = "/tca_action"
)

// Client file and environment names
const (
	RawResultFileName       = "scan_status.json"
	QuickScanReportFileName = "tca_quick_scan_report.json"
	QuickScanInputFileName  = "tca_quick_scan_input.json"
	DefaultReportFileName   = "codedog_report.json"

	EnvQuickScanInput  = "TCA_QUICK_SCAN_INPUT"
	EnvQuickScanOutput = "TCA_QUICK_SCAN_OUTPUT"
	EnvFileServerToken = "FILE_SERVER_TOKEN"
	EnvFileServerURL   = "FILE_SERVER_URL"
)

// Scan defaults
const (
	DefaultScanTimeout = 2 * time.Hour
	DefaultLabel       = "open_source_check"
)
