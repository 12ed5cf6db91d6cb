package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tcagate/app"
	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/service"
)

type scanOptions struct {
	configPath string
	sourceDir  string
	reportPath string
	format     string
	label      string
	quick      bool
	local      bool
	noProgress bool
}

func scanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the code analysis client and apply the quality gate",
		Long: `Run the TCA client against the source tree and evaluate the result.

Settings come from tcagate.yaml, INPUT_* environment variables and the
flags below, in increasing order of precedence.

Exit codes (when output.block is enabled):
  0 - Quality gate passed or scan skipped
  1 - Quality gate failed
  2 - Execution error

Examples:
  # Quick scan of the current directory
  tcagate scan --quick

  # Server-backed scan using settings from the environment
  INPUT_TOKEN=... INPUT_SERVER_IP=10.0.0.1 tcagate scan --local

  # Machine readable summary
  tcagate scan --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&opts.sourceDir, "source-dir", "s", "", "Repository root to scan (default: working directory)")
	cmd.Flags().StringVarP(&opts.reportPath, "report", "r", "", "Path of the status report")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Summary format: text, json, yaml")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Rule set label for quick scans")
	cmd.Flags().BoolVar(&opts.quick, "quick", false, "Run a standalone quick scan")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Run a server-backed local scan")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bars")
	cmd.MarkFlagsMutuallyExclusive("quick", "local")

	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	loader, err := service.NewConfigurationLoader("")
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	cfg, err := loader.LoadConfig(opts.configPath, opts.sourceDir)
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}
	applyScanFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	gate := service.NewGateService(cfg.Redline.Thresholds, cfg.Redline.Names)
	if err := gate.Validate(); err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := cfg.OutputFormat()
	pm := service.NewProgressManager(!opts.noProgress && format == domain.OutputFormatText)
	defer pm.Close()

	provisioner, err := service.NewClientProvisioner(cfg.Client.InstallDir, cfg.Client.DownloadURL, pm)
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}
	archive, err := service.NewReportArchive(ctx, cfg.Archive)
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	builder := app.NewScanUseCaseBuilder().
		WithProvisioner(provisioner).
		WithInputPreparer(service.NewScanInputPreparer()).
		WithProcessRunner(service.NewProcessRunner()).
		WithResultStore(service.NewResultStore()).
		WithGateService(gate).
		WithExecutor(service.NewParallelExecutorWithProgress(pm))
	if archive != nil {
		builder = builder.WithArchive(archive, cfg.Archive.Prefix)
	}
	uc, err := builder.Build()
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	req, err := loader.ScanRequest(cfg)
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	outcome, err := uc.Execute(ctx, req)
	return finish(cmd, cfg, outcome, err)
}

func applyScanFlags(cmd *cobra.Command, cfg *config.Config, opts *scanOptions) {
	flags := cmd.Flags()
	if flags.Changed("source-dir") {
		cfg.Scan.SourceDir = opts.sourceDir
	}
	if flags.Changed("report") {
		cfg.Output.ReportFile = opts.reportPath
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("label") {
		cfg.Scan.Label = opts.label
	}
	if flags.Changed("quick") {
		cfg.Scan.QuickScan = opts.quick
	}
	if flags.Changed("local") {
		cfg.Scan.QuickScan = !opts.local
	}
}

// finish prints the summary and maps the outcome to the exit code
func finish(cmd *cobra.Command, cfg *config.Config, outcome *domain.ScanOutcome, runErr error) error {
	if outcome != nil && outcome.Report != nil {
		formatter := service.NewOutputFormatter()
		if err := formatter.Write(outcome.Report, cfg.OutputFormat(), cmd.OutOrStdout()); err != nil {
			log.Errorf("failed to print summary: %v", err)
		}
	}

	if runErr != nil {
		if !cfg.Output.Block {
			log.Errorf("%v", runErr)
			log.Warnf("pipeline is not blocked, ignoring the error")
			return nil
		}
		return &ExitError{Code: domain.StatusCodeError, Message: runErr.Error()}
	}

	if code := outcome.Report.ExitCode(cfg.Output.Block); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
