// Package redline turns raw client results into quality metrics and checks
// them against configured ceilings. Everything here is pure: no I/O, no
// global state.
package redline

import (
	"strconv"

	"github.com/ludo-technologies/tcagate/domain"
)

// Severity levels from most to least severe
var severityLevels = []string{"fatal", "error", "warning", "info"}

var (
	incrKeys = []domain.MetricKey{
		domain.MetricIncrFatal, domain.MetricIncrError, domain.MetricIncrWarning, domain.MetricIncrInfo,
	}
	totalKeys = []domain.MetricKey{
		domain.MetricTotalFatal, domain.MetricTotalError, domain.MetricTotalWarning, domain.MetricTotalInfo,
	}
	complexitySummaryKeys = []domain.MetricKey{
		domain.MetricOverCCSum,
		domain.MetricCCFuncAverage,
		domain.MetricOverCCFuncCount,
		domain.MetricDiffOverCCFuncCount,
		domain.MetricOverCCFuncAverage,
	}
)

// Normalize flattens a raw scan result into QualityMetrics. It returns nil
// when the client reported an execution error, since nothing in such a
// result can be trusted.
func Normalize(raw *domain.RawScanResult) *domain.QualityMetrics {
	if raw == nil || raw.Status == domain.StatusError {
		return nil
	}

	metrics := domain.NewQualityMetrics()
	var report interface{}
	if raw.ScanReport != nil {
		report = raw.ScanReport
	}

	incr := make([]*domain.Number, len(severityLevels))
	total := make([]*domain.Number, len(severityLevels))
	for i, level := range severityLevels {
		incr[i] = LookupNumber(report, domain.KindInt,
			domain.SectionLintScan, "current_scan", "active_severity_detail", level)
		total[i] = LookupNumber(report, domain.KindInt,
			domain.SectionLintScan, "total", "severity_detail", level, "active")
	}
	setAll(metrics, incrKeys, cumulative(incr))
	setAll(metrics, totalKeys, cumulative(total))

	normalizeComplexity(metrics, report)

	if dup, ok := Lookup(report, domain.SectionDuplicateScan); ok && truthyObject(dup) {
		setIfPresent(metrics, domain.MetricDuplicateRate,
			LookupNumber(dup, domain.KindFloat, "duplicate_rate"))
	}

	return metrics
}

func normalizeComplexity(metrics *domain.QualityMetrics, report interface{}) {
	cc, ok := LookupAs[map[string]interface{}](report, domain.SectionComplexityScan)
	if !ok || len(cc) == 0 {
		return
	}

	summary := selectSummary(cc)
	for _, key := range complexitySummaryKeys {
		def, _ := domain.LookupMetric(key)
		n := LookupNumber(summary, def.Kind, string(key))
		if n != nil && def.Kind == domain.KindFloat {
			rounded := domain.FloatNumber(round3(n.Float))
			n = &rounded
		}
		setIfPresent(metrics, key, n)
	}

	if _, present := cc[string(domain.MetricWorseCCFileNum)]; present {
		setIfPresent(metrics, domain.MetricWorseCCFileNum,
			LookupNumber(cc, domain.KindInt, string(domain.MetricWorseCCFileNum)))
	} else {
		metrics.Set(domain.MetricWorseCCFileNum, domain.IntNumber(0))
	}
}

// selectSummary prefers a non-empty custom summary over the default one
func selectSummary(cc map[string]interface{}) interface{} {
	if custom := cc["custom_summary"]; truthyObject(custom) {
		return custom
	}
	return cc["default_summary"]
}

// cumulative returns running sums over buckets. Once a bucket is absent,
// that sum and every wider one are absent too.
func cumulative(buckets []*domain.Number) []*domain.Number {
	out := make([]*domain.Number, len(buckets))
	var sum int64
	for i, b := range buckets {
		if b == nil {
			break
		}
		sum += b.Int
		n := domain.IntNumber(sum)
		out[i] = &n
	}
	return out
}

func setAll(metrics *domain.QualityMetrics, keys []domain.MetricKey, values []*domain.Number) {
	for i, key := range keys {
		setIfPresent(metrics, key, values[i])
	}
}

func setIfPresent(metrics *domain.QualityMetrics, key domain.MetricKey, n *domain.Number) {
	if n != nil {
		metrics.Set(key, *n)
	}
}

// round3 rounds on the exact decimal value of f, half to even
func round3(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 3, 64), 64)
	if err != nil {
		return f
	}
	return r
}
