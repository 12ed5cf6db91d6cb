package redline

import (
	"fmt"

	"github.com/ludo-technologies/tcagate/domain"
)

// BuildVerdict derives the gate verdict for a raw result. Thresholds are
// validated before anything else, so a misconfigured gate is reported as an
// error regardless of the scan status.
func BuildVerdict(raw *domain.RawScanResult, thresholds domain.Thresholds, ev *Evaluator) (*domain.GateVerdict, error) {
	if ev == nil {
		ev = NewEvaluator()
	}
	if err := ev.Validate(thresholds); err != nil {
		return nil, err
	}

	if raw == nil {
		return &domain.GateVerdict{
			Status:      domain.StatusError,
			Text:        domain.StatusError.Text(),
			Description: "no scan result available",
		}, nil
	}

	verdict := &domain.GateVerdict{
		Status:      raw.Status,
		Text:        raw.Text,
		URL:         raw.URL,
		Description: raw.Description,
	}

	switch raw.Status {
	case domain.StatusCancel:
		verdict.Status = domain.StatusSuccess
		verdict.Text = domain.ScanSkippedText
		return verdict, nil

	case domain.StatusError:
		if verdict.Text == "" {
			verdict.Text = domain.StatusError.Text()
		}
		return verdict, nil

	case domain.StatusSuccess, domain.StatusFailure:
		// evaluated below

	default:
		verdict.Status = domain.StatusError
		verdict.Text = domain.StatusError.Text()
		verdict.Description = fmt.Sprintf("unknown scan status %q", raw.Status)
		return verdict, nil
	}

	verdict.Metrics = Normalize(raw)
	evaluation, err := ev.Evaluate(verdict.Metrics, thresholds, raw.URLs)
	if err != nil {
		return nil, err
	}
	verdict.Results = evaluation.Results
	verdict.RedlineMessage = evaluation.Message

	if evaluation.Failed() && verdict.Status != domain.StatusFailure {
		verdict.Status = domain.StatusFailure
		verdict.Text = domain.StatusFailure.Text()
		verdict.Description = fmt.Sprintf("%d quality gate(s) failed", verdict.FailedCount())
	}
	if verdict.Text == "" {
		verdict.Text = verdict.Status.Text()
	}
	return verdict, nil
}
