package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
)

// CheckUseCase evaluates a result file produced by an earlier client run
type CheckUseCase struct {
	store     domain.ResultStore
	gate      domain.GateService
	publisher *ReportPublisher
}

// NewCheckUseCase creates a new check use case
func NewCheckUseCase(store domain.ResultStore, gate domain.GateService, archive domain.ReportArchive, prefix string) *CheckUseCase {
	return &CheckUseCase{
		store:     store,
		gate:      gate,
		publisher: NewReportPublisher(store, archive, prefix),
	}
}

// Execute reads the raw result, applies the quality gate and writes the report
func (uc *CheckUseCase) Execute(ctx context.Context, req domain.CheckRequest) (*domain.ScanOutcome, error) {
	if req.ResultPath == "" {
		return nil, domain.NewInvalidInputError("no result file specified", nil)
	}
	if req.ReportPath == "" {
		return nil, domain.NewInvalidInputError("no report path specified", nil)
	}

	raw, err := uc.store.ReadRawResult(req.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan result: %w", err)
	}

	verdict, err := uc.gate.Evaluate(raw)
	if err != nil {
		return nil, err
	}
	log.Infof("%s: %s", req.ResultPath, verdict.Text)

	return uc.publisher.Publish(ctx, req.ReportPath, domain.NewStatusReport(verdict, raw.ScanReport))
}
