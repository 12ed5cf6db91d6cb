package app

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

const (
	taskProvision = "provision client"
	taskSelect    = "select files"

	launchFailedText = "Launch failed"
)

// ScanUseCase runs the external client and turns its output into a gated report
type ScanUseCase struct {
	provisioner domain.ClientProvisioner
	preparer    domain.ScanInputPreparer
	runner      domain.ProcessRunner
	store       domain.ResultStore
	gate        domain.GateService
	executor    domain.ParallelExecutor
	publisher   *ReportPublisher
}

// Execute performs the complete scan workflow. The report is written for
// every outcome the client itself could produce; the returned error is
// reserved for failures that prevented a verdict.
func (uc *ScanUseCase) Execute(ctx context.Context, req domain.ScanRequest) (*domain.ScanOutcome, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid scan request", err)
	}
	log.Infof("scan source dir: %s", req.SourceDir)

	inst, selection, err := uc.prepare(ctx, req)
	if err != nil {
		return uc.fail(ctx, req, "Preparation failed", err)
	}

	var report *domain.StatusReport
	switch req.Mode {
	case domain.ScanModeQuick:
		report, err = uc.runQuickScan(ctx, req, inst, selection)
	default:
		report, err = uc.runLocalScan(ctx, req, inst)
	}
	if err != nil {
		return uc.fail(ctx, req, launchFailedText, err)
	}

	return uc.publisher.Publish(ctx, req.ReportPath, report)
}

// prepare provisions the client and, for quick scans, selects the files to
// scan. Both steps are independent and run concurrently.
func (uc *ScanUseCase) prepare(ctx context.Context, req domain.ScanRequest) (*domain.ClientInstallation, *domain.ScanSelection, error) {
	var inst *domain.ClientInstallation
	var selection *domain.ScanSelection

	tasks := []domain.ExecutableTask{
		&domain.FuncTask{TaskName: taskProvision, Enabled: true, Fn: func(ctx context.Context) (interface{}, error) {
			var err error
			inst, err = uc.provisioner.Provision(ctx)
			return inst, err
		}},
		&domain.FuncTask{TaskName: taskSelect, Enabled: req.Mode == domain.ScanModeQuick, Fn: func(ctx context.Context) (interface{}, error) {
			var err error
			selection, err = uc.preparer.Select(req)
			return selection, err
		}},
	}
	if err := uc.executor.Execute(ctx, tasks); err != nil {
		return nil, nil, err
	}
	return inst, selection, nil
}

func (uc *ScanUseCase) runQuickScan(ctx context.Context, req domain.ScanRequest, inst *domain.ClientInstallation, selection *domain.ScanSelection) (*domain.StatusReport, error) {
	if selection != nil && selection.Empty() {
		verdict, err := uc.gate.Evaluate(&domain.RawScanResult{
			Status:      domain.StatusCancel,
			Description: "no files left to scan after filtering",
		})
		if err != nil {
			return nil, err
		}
		return domain.NewStatusReport(verdict, nil), nil
	}

	var env []string
	if selection != nil && !selection.WholeTree {
		input, err := uc.preparer.WriteInput(inst.WorkDir, req.Label, selection.Paths)
		if err != nil {
			return nil, err
		}
		env = append(env, constants.EnvQuickScanInput+"="+input)
	}

	initCmd := domain.Command{
		Name:    inst.Executable,
		Args:    []string{"quickinit", "-l", req.Label},
		Dir:     inst.WorkDir,
		Timeout: req.Timeout,
	}
	if err := uc.runner.Run(ctx, initCmd); err != nil {
		return nil, err
	}

	scanCmd := domain.Command{
		Name:    inst.Executable,
		Args:    []string{"quickscan", "-s", req.SourceDir, "-l", req.Label},
		Dir:     inst.WorkDir,
		Env:     env,
		Timeout: req.Timeout,
	}
	if err := uc.runner.Run(ctx, scanCmd); err != nil {
		return nil, err
	}

	reportPath := filepath.Join(inst.WorkDir, constants.QuickScanReportFileName)
	if req.QuickScanOutput != "" {
		abs, err := filepath.Abs(req.QuickScanOutput)
		if err != nil {
			return nil, domain.NewInvalidInputError("invalid quick scan output path", err)
		}
		reportPath = abs
	}

	quick, err := uc.store.ReadQuickScanReport(reportPath)
	if err != nil {
		log.Warnf("quick scan report not available: %v", err)
		return resultMissingReport(reportPath, err), nil
	}
	verdict := uc.gate.EvaluateQuickScan(quick)
	return domain.NewStatusReport(verdict, quick.Fields), nil
}

func (uc *ScanUseCase) runLocalScan(ctx context.Context, req domain.ScanRequest, inst *domain.ClientInstallation) (*domain.StatusReport, error) {
	cmd := domain.Command{
		Name:    inst.Executable,
		Args:    localScanArgs(req),
		Dir:     inst.WorkDir,
		Timeout: req.Timeout,
	}
	if req.Token != "" {
		cmd.Env = append(cmd.Env, constants.EnvFileServerToken+"="+req.Token)
		cmd.Secrets = append(cmd.Secrets, req.Token)
	}
	if req.FileServerURL != "" {
		cmd.Env = append(cmd.Env, constants.EnvFileServerURL+"="+req.FileServerURL)
	}
	log.Infof("client timeout: %v", req.Timeout)

	if err := uc.runner.Run(ctx, cmd); err != nil {
		return nil, err
	}

	resultPath := filepath.Join(inst.WorkDir, constants.RawResultFileName)
	raw, err := uc.store.ReadRawResult(resultPath)
	if err != nil {
		log.Warnf("launch failed, result file not produced: %v", err)
		return resultMissingReport(resultPath, err), nil
	}

	verdict, err := uc.gate.Evaluate(raw)
	if err != nil {
		return nil, err
	}
	return domain.NewStatusReport(verdict, raw.ScanReport), nil
}

// localScanArgs builds the localscan command line; optional flags are only
// passed when set
func localScanArgs(req domain.ScanRequest) []string {
	args := []string{"localscan", "-s", req.SourceDir}
	if req.Token != "" {
		args = append(args, "-t", req.Token)
	}
	if req.ServerURL != "" {
		args = append(args, "--server", req.ServerURL)
	}
	if req.OrgSID != "" {
		args = append(args, "--org-sid", req.OrgSID)
	}
	if req.TeamName != "" {
		args = append(args, "--team-name", req.TeamName)
	}
	if req.Languages != "" {
		args = append(args, "--language", req.Languages)
	}
	if req.TotalScan {
		args = append(args, "--total")
	}
	if req.SchemeID != "" {
		args = append(args, "--ref-scheme-id", req.SchemeID)
	}
	if req.CompareBranch != "" {
		args = append(args, "--compare-branch", req.CompareBranch)
	}
	return args
}

// resultMissingReport is the error report used when the client produced no
// result file
func resultMissingReport(path string, cause error) *domain.StatusReport {
	report := errorReport(launchFailedText, cause)
	if domain.HasCode(cause, domain.ErrCodeFileNotFound) {
		report.Description = fmt.Sprintf("launch failed, result file not produced: %s", path)
	}
	return report
}

// fail writes an error report and returns err. A report write failure is
// logged because err is the more useful diagnosis.
func (uc *ScanUseCase) fail(ctx context.Context, req domain.ScanRequest, text string, err error) (*domain.ScanOutcome, error) {
	outcome, werr := uc.publisher.Publish(ctx, req.ReportPath, errorReport(text, err))
	if werr != nil {
		log.Errorf("failed to write error report: %v", werr)
	}
	return outcome, err
}

// validateRequest validates the scan request
func (uc *ScanUseCase) validateRequest(req domain.ScanRequest) error {
	if req.SourceDir == "" {
		return fmt.Errorf("no source directory specified")
	}
	if req.ReportPath == "" {
		return fmt.Errorf("no report path specified")
	}
	switch req.Mode {
	case domain.ScanModeQuick:
		if req.Label == "" {
			return fmt.Errorf("quick scans need a label")
		}
	case domain.ScanModeLocal:
	default:
		return fmt.Errorf("unknown scan mode %q", req.Mode)
	}
	return nil
}

// ScanUseCaseBuilder provides a builder pattern for creating ScanUseCase
type ScanUseCaseBuilder struct {
	uc      ScanUseCase
	archive domain.ReportArchive
	prefix  string
}

// NewScanUseCaseBuilder creates a new builder
func NewScanUseCaseBuilder() *ScanUseCaseBuilder {
	return &ScanUseCaseBuilder{}
}

// WithProvisioner sets the client provisioner
func (b *ScanUseCaseBuilder) WithProvisioner(p domain.ClientProvisioner) *ScanUseCaseBuilder {
	b.uc.provisioner = p
	return b
}

// WithInputPreparer sets the quick scan input preparer
func (b *ScanUseCaseBuilder) WithInputPreparer(p domain.ScanInputPreparer) *ScanUseCaseBuilder {
	b.uc.preparer = p
	return b
}

// WithProcessRunner sets the process runner
func (b *ScanUseCaseBuilder) WithProcessRunner(r domain.ProcessRunner) *ScanUseCaseBuilder {
	b.uc.runner = r
	return b
}

// WithResultStore sets the result store
func (b *ScanUseCaseBuilder) WithResultStore(s domain.ResultStore) *ScanUseCaseBuilder {
	b.uc.store = s
	return b
}

// WithGateService sets the gate service
func (b *ScanUseCaseBuilder) WithGateService(g domain.GateService) *ScanUseCaseBuilder {
	b.uc.gate = g
	return b
}

// WithExecutor sets the executor running the preparation steps
func (b *ScanUseCaseBuilder) WithExecutor(e domain.ParallelExecutor) *ScanUseCaseBuilder {
	b.uc.executor = e
	return b
}

// WithArchive sets the optional report archive
func (b *ScanUseCaseBuilder) WithArchive(a domain.ReportArchive, prefix string) *ScanUseCaseBuilder {
	b.archive = a
	b.prefix = prefix
	return b
}

// Build creates the ScanUseCase with the configured dependencies
func (b *ScanUseCaseBuilder) Build() (*ScanUseCase, error) {
	uc := b.uc
	switch {
	case uc.provisioner == nil:
		return nil, fmt.Errorf("client provisioner is required")
	case uc.preparer == nil:
		return nil, fmt.Errorf("scan input preparer is required")
	case uc.runner == nil:
		return nil, fmt.Errorf("process runner is required")
	case uc.store == nil:
		return nil, fmt.Errorf("result store is required")
	case uc.gate == nil:
		return nil, fmt.Errorf("gate service is required")
	case uc.executor == nil:
		return nil, fmt.Errorf("executor is required")
	}

	uc.publisher = NewReportPublisher(uc.store, b.archive, b.prefix)
	return &uc, nil
}
