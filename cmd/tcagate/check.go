package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tcagate/app"
	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/service"
)

var (
	checkConfigPath string
	checkReportPath string
	checkFormat     string
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [result-file]",
		Short: "Apply the quality gate to an existing scan result",
		Long: `Evaluate a scan_status.json written by an earlier client run without
launching the client again.

Exit codes follow the scan command.

Examples:
  # Re-check the result in the current directory
  tcagate check

  # Check a result with stricter redlines
  tcagate check -c strict.yaml ../lib/tca-client/scan_status.json`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runCheck,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&checkConfigPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&checkReportPath, "report", "r", "", "Path of the status report")
	cmd.Flags().StringVarP(&checkFormat, "format", "f", "", "Summary format: text, json, yaml")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	loader, err := service.NewConfigurationLoader("")
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	var resultPath string
	if len(args) > 0 {
		resultPath = args[0]
	}

	cfg, err := loader.LoadConfig(checkConfigPath, "")
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}
	if cmd.Flags().Changed("report") {
		cfg.Output.ReportFile = checkReportPath
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = checkFormat
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	gate := service.NewGateService(cfg.Redline.Thresholds, cfg.Redline.Names)
	if err := gate.Validate(); err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	ctx := context.Background()
	archive, err := service.NewReportArchive(ctx, cfg.Archive)
	if err != nil {
		return &ExitError{Code: domain.StatusCodeError, Message: err.Error()}
	}

	uc := app.NewCheckUseCase(service.NewResultStore(), gate, archive, cfg.Archive.Prefix)
	outcome, err := uc.Execute(ctx, loader.CheckRequest(cfg, resultPath))
	return finish(cmd, cfg, outcome, err)
}
