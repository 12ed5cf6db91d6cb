package redline

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/tcagate/domain"
)

// EmptyDataNote marks a failed check whose metric was never computed
const EmptyDataNote = "data is empty, check if this item is enabled"

// Evaluator compares quality metrics against configured thresholds
type Evaluator struct {
	names map[domain.MetricKey]string
}

// NewEvaluator creates an evaluator using the default metric names
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithNames(nil)
}

// NewEvaluatorWithNames creates an evaluator with custom display names.
// Metrics missing from names fall back to their default names.
func NewEvaluatorWithNames(names map[domain.MetricKey]string) *Evaluator {
	merged := domain.DefaultDisplayNames()
	for k, v := range names {
		if v != "" {
			merged[k] = v
		}
	}
	return &Evaluator{names: merged}
}

// Evaluation holds per-metric results and the rendered redline message
type Evaluation struct {
	Results []domain.MetricResult
	Message string
}

// Failed reports whether any check failed
func (e *Evaluation) Failed() bool {
	for _, r := range e.Results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// Validate rejects thresholds for unknown metrics or with a number kind
// that differs from the metric's kind.
func (e *Evaluator) Validate(thresholds domain.Thresholds) error {
	for key, expected := range thresholds {
		def, ok := domain.LookupMetric(key)
		if !ok {
			return domain.NewConfigError(fmt.Sprintf("unknown redline metric %q", key), nil)
		}
		if expected.Kind != def.Kind {
			return domain.NewConfigError(
				fmt.Sprintf("redline %s expects a %s value, got %s", key, def.Kind, expected.Kind), nil)
		}
	}
	return nil
}

// Evaluate checks every configured threshold in canonical metric order.
// urls maps report sections to links referenced by failing checks.
func (e *Evaluator) Evaluate(metrics *domain.QualityMetrics, thresholds domain.Thresholds, urls map[string]string) (*Evaluation, error) {
	if err := e.Validate(thresholds); err != nil {
		return nil, err
	}

	var passLines, failLines []string
	results := make([]domain.MetricResult, 0, len(thresholds))
	for _, def := range domain.MetricDefinitions() {
		expected, configured := thresholds[def.Key]
		if !configured {
			continue
		}

		result := e.check(def, expected, metrics, urls)
		results = append(results, result)
		if result.Passed {
			passLines = append(passLines, result.Message)
		} else {
			failLines = append(failLines, result.Message)
		}
	}

	return &Evaluation{
		Results: results,
		Message: strings.Join(append(passLines, failLines...), "\n"),
	}, nil
}

func (e *Evaluator) check(def domain.MetricDefinition, expected domain.Number, metrics *domain.QualityMetrics, urls map[string]string) domain.MetricResult {
	result := domain.MetricResult{
		Key:      def.Key,
		Name:     e.names[def.Key],
		Expected: expected,
	}
	label := fmt.Sprintf("%s(%s)", result.Name, def.Key)

	actual, ok := metrics.Get(def.Key)
	if !ok {
		result.Message = fmt.Sprintf("[FAIL] %s: expected <= %s, %s", label, expected, EmptyDataNote)
		return result
	}

	result.Actual = &actual
	result.Passed = withinLimit(actual, expected)
	if result.Passed {
		result.Message = fmt.Sprintf("[PASS] %s: %s <= %s", label, actual, expected)
		return result
	}

	result.Message = fmt.Sprintf("[FAIL] %s: %s > %s", label, actual, expected)
	if url := urls[def.Section]; url != "" {
		result.Message += fmt.Sprintf(", details: %s", url)
	}
	return result
}

// withinLimit compares inclusively; integer metrics never go through floats
func withinLimit(actual, expected domain.Number) bool {
	if actual.Kind == domain.KindInt && expected.Kind == domain.KindInt {
		return actual.Int <= expected.Int
	}
	return actual.Float64() <= expected.Float64()
}
