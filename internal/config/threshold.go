package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ludo-technologies/tcagate/domain"
)

// ParseThreshold converts a configured threshold into a typed number. The
// second return value is false when the threshold is not configured (nil or
// blank). Integer values are widened for float metrics; fractional or
// non-numeric values for integer metrics are rejected.
func ParseThreshold(key domain.MetricKey, raw interface{}) (domain.Number, bool, error) {
	def, ok := domain.LookupMetric(key)
	if !ok {
		return domain.Number{}, false, domain.NewConfigError(fmt.Sprintf("unknown redline metric %q", key), nil)
	}

	var f float64
	switch v := raw.(type) {
	case nil:
		return domain.Number{}, false, nil
	case string:
		return parseThresholdString(def, v)
	case json.Number:
		return parseThresholdString(def, v.String())
	case int:
		return widen(def, int64(v)), true, nil
	case int32:
		return widen(def, int64(v)), true, nil
	case int64:
		return widen(def, v), true, nil
	case uint:
		return widen(def, int64(v)), true, nil
	case uint64:
		if v > math.MaxInt64 {
			return domain.Number{}, false, thresholdError(def, raw)
		}
		return widen(def, int64(v)), true, nil
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return domain.Number{}, false, thresholdError(def, raw)
	}
	return fromFloat(def, f, raw)
}

func parseThresholdString(def domain.MetricDefinition, s string) (domain.Number, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Number{}, false, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return widen(def, i), true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Number{}, false, thresholdError(def, s)
	}
	return fromFloat(def, f, s)
}

func fromFloat(def domain.MetricDefinition, f float64, raw interface{}) (domain.Number, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.Number{}, false, thresholdError(def, raw)
	}
	if def.Kind == domain.KindFloat {
		return domain.FloatNumber(f), true, nil
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return domain.Number{}, false, thresholdError(def, raw)
	}
	return domain.IntNumber(int64(f)), true, nil
}

func widen(def domain.MetricDefinition, i int64) domain.Number {
	if def.Kind == domain.KindFloat {
		return domain.FloatNumber(float64(i))
	}
	return domain.IntNumber(i)
}

func thresholdError(def domain.MetricDefinition, raw interface{}) error {
	return domain.NewConfigError(
		fmt.Sprintf("redline %s expects a %s value, got %v", def.Key, def.Kind, raw), nil)
}
