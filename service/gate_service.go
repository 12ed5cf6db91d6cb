package service

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/redline"
)

// GateServiceImpl applies the configured redlines to scan results
type GateServiceImpl struct {
	thresholds domain.Thresholds
	evaluator  *redline.Evaluator
}

// NewGateService creates a gate service. names overrides metric display names.
func NewGateService(thresholds domain.Thresholds, names map[domain.MetricKey]string) *GateServiceImpl {
	if thresholds == nil {
		thresholds = domain.Thresholds{}
	}
	return &GateServiceImpl{
		thresholds: thresholds,
		evaluator:  redline.NewEvaluatorWithNames(names),
	}
}

// Validate checks the thresholds without evaluating anything
func (s *GateServiceImpl) Validate() error {
	return s.evaluator.Validate(s.thresholds)
}

// Evaluate derives the verdict for a local scan result
func (s *GateServiceImpl) Evaluate(raw *domain.RawScanResult) (*domain.GateVerdict, error) {
	verdict, err := redline.BuildVerdict(raw, s.thresholds, s.evaluator)
	if err != nil {
		return nil, err
	}
	if verdict.RedlineMessage != "" {
		log.Infof("redline check:\n%s", verdict.RedlineMessage)
	}
	return verdict, nil
}

// EvaluateQuickScan derives the verdict for a quick scan report. A non-zero
// error code is an execution error; otherwise the scan passes only without
// pending issues.
func (s *GateServiceImpl) EvaluateQuickScan(report *domain.QuickScanReport) *domain.GateVerdict {
	if report == nil {
		return &domain.GateVerdict{
			Status:      domain.StatusError,
			Text:        domain.StatusError.Text(),
			Description: "no quick scan report available",
		}
	}

	if report.ErrorCode != 0 {
		desc := fmt.Sprintf("quick scan failed with error code %d", report.ErrorCode)
		if msg, ok := report.Fields["error_msg"].(string); ok && msg != "" {
			desc += ": " + msg
		}
		return &domain.GateVerdict{
			Status:      domain.StatusError,
			Text:        domain.StatusError.Text(),
			Description: desc,
		}
	}

	if report.IssueCount != nil && *report.IssueCount > 0 {
		return &domain.GateVerdict{
			Status:      domain.StatusFailure,
			Text:        domain.StatusFailure.Text(),
			Description: fmt.Sprintf("%s, pending issues: %d", domain.StatusFailure.Text(), *report.IssueCount),
		}
	}

	return &domain.GateVerdict{
		Status:      domain.StatusSuccess,
		Text:        domain.StatusSuccess.Text(),
		Description: domain.StatusSuccess.Text(),
	}
}

var _ domain.GateService = (*GateServiceImpl)(nil)
