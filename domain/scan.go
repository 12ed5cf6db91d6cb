package domain

import (
	"context"
	"io"
	"time"
)

// Command describes one invocation of the external client
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration

	// Secrets are masked when the command line is logged
	Secrets []string
}

// ProcessRunner launches external processes and waits for them
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ClientInstallation is a ready-to-run copy of the external client
type ClientInstallation struct {
	WorkDir    string
	Executable string
}

// ClientProvisioner makes the external client available locally
type ClientProvisioner interface {
	Provision(ctx context.Context) (*ClientInstallation, error)
}

// PathFilter decides which repository-relative paths are in scope
type PathFilter interface {
	ShouldFilter(relPath string) bool
	IncludeFiles(relPaths []string, rootDir string) []string
}

// ResultStore reads client output and persists the final report
type ResultStore interface {
	ReadRawResult(path string) (*RawScanResult, error)
	ReadQuickScanReport(path string) (*QuickScanReport, error)
	WriteReport(path string, report *StatusReport) error
}

// ReportArchive keeps a copy of final reports outside the workspace
type ReportArchive interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// GateService evaluates scan results against the configured thresholds
type GateService interface {
	Evaluate(raw *RawScanResult) (*GateVerdict, error)
	EvaluateQuickScan(report *QuickScanReport) *GateVerdict
}

// ReportFormatter renders a report summary for humans or machines
type ReportFormatter interface {
	Write(report *StatusReport, format OutputFormat, writer io.Writer) error
}

// ProgressManager creates progress indicators for long-running tasks
type ProgressManager interface {
	StartTask(description string, total int) TaskProgress

	// StartTransfer tracks a byte transfer; size is -1 when unknown
	StartTransfer(description string, size int64) TaskProgress

	IsInteractive() bool
	Close()
}

// TaskProgress tracks the progress of a single task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

// ExecutableTask is one unit of work run by a ParallelExecutor
type ExecutableTask interface {
	Name() string
	Execute(ctx context.Context) (interface{}, error)
	IsEnabled() bool
}

// FuncTask adapts a function to ExecutableTask
type FuncTask struct {
	TaskName string
	Enabled  bool
	Fn       func(ctx context.Context) (interface{}, error)
}

// NewFuncTask creates an enabled task
func NewFuncTask(name string, fn func(ctx context.Context) (interface{}, error)) *FuncTask {
	return &FuncTask{TaskName: name, Enabled: true, Fn: fn}
}

// Name returns the task name
func (t *FuncTask) Name() string { return t.TaskName }

// Execute runs the function
func (t *FuncTask) Execute(ctx context.Context) (interface{}, error) { return t.Fn(ctx) }

// IsEnabled reports whether the task should run
func (t *FuncTask) IsEnabled() bool { return t.Enabled && t.Fn != nil }

// ParallelExecutor runs independent tasks concurrently
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
}

// ScanSelection is the set of files a quick scan is restricted to
type ScanSelection struct {
	// WholeTree means no input file is generated and the client scans everything
	WholeTree bool

	// Paths are '/'-separated paths relative to the source directory
	Paths []string
}

// Empty reports whether filtering left nothing to scan
func (s *ScanSelection) Empty() bool {
	return !s.WholeTree && len(s.Paths) == 0
}

// ScanInputPreparer selects the files of a quick scan and writes the
// client's input file
type ScanInputPreparer interface {
	Select(req ScanRequest) (*ScanSelection, error)
	WriteInput(dir, label string, paths []string) (string, error)
}

// ScanMode selects the client command used for a scan
type ScanMode string

const (
	ScanModeQuick ScanMode = "quick"
	ScanModeLocal ScanMode = "local"
)

// ScanRequest is the fully resolved input for one pipeline scan
type ScanRequest struct {
	Mode      ScanMode
	SourceDir string
	Workspace string
	Label     string
	Timeout   time.Duration

	// Quick scan file selection
	FromFile    string
	WhitePaths  []string
	IgnorePaths []string
	IgnoreFile  string

	// QuickScanOutput overrides where the client writes its quick scan report
	QuickScanOutput string

	// Local scan options
	Token         string
	ServerURL     string
	FileServerURL string
	OrgSID        string
	TeamName      string
	Languages     string
	TotalScan     bool
	SchemeID      string
	CompareBranch string

	ReportPath string
}

// CheckRequest evaluates an existing raw result without running a scan
type CheckRequest struct {
	ResultPath string
	ReportPath string
}

// ScanOutcome is what a scan produced, ready to be reported
type ScanOutcome struct {
	RunID  string
	Report *StatusReport

	// ArchiveKey is empty when the report was not archived
	ArchiveKey string
}
