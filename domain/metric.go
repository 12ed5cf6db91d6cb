package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MetricKey identifies a quality metric
type MetricKey string

const (
	MetricIncrFatal           MetricKey = "incr_fatal"
	MetricIncrError           MetricKey = "incr_error"
	MetricIncrWarning         MetricKey = "incr_warning"
	MetricIncrInfo            MetricKey = "incr_info"
	MetricTotalFatal          MetricKey = "total_fatal"
	MetricTotalError          MetricKey = "total_error"
	MetricTotalWarning        MetricKey = "total_warning"
	MetricTotalInfo           MetricKey = "total_info"
	MetricWorseCCFileNum      MetricKey = "worse_cc_file_num"
	MetricOverCCSum           MetricKey = "over_cc_sum"
	MetricCCFuncAverage       MetricKey = "cc_func_average"
	MetricOverCCFuncCount     MetricKey = "over_cc_func_count"
	MetricDiffOverCCFuncCount MetricKey = "diff_over_cc_func_count"
	MetricOverCCFuncAverage   MetricKey = "over_cc_func_average"
	MetricDuplicateRate       MetricKey = "duplicate_rate"
)

// Report section names used by the external client
const (
	SectionLintScan       = "lintscan"
	SectionComplexityScan = "cyclomaticcomplexityscan"
	SectionDuplicateScan  = "duplicatescan"
)

// NumberKind is the numeric type of a metric
type NumberKind string

const (
	KindInt   NumberKind = "int"
	KindFloat NumberKind = "float"
)

// MetricDefinition describes one metric of the fixed metric set
type MetricDefinition struct {
	Key     MetricKey
	Kind    NumberKind
	Name    string
	Section string
}

// metricDefinitions is ordered; evaluation and rendering follow this order
var metricDefinitions = []MetricDefinition{
	{MetricIncrFatal, KindInt, "New fatal issues", SectionLintScan},
	{MetricIncrError, KindInt, "New error-and-above issues", SectionLintScan},
	{MetricIncrWarning, KindInt, "New warning-and-above issues", SectionLintScan},
	{MetricIncrInfo, KindInt, "New info-and-above issues", SectionLintScan},
	{MetricTotalFatal, KindInt, "Existing fatal issues", SectionLintScan},
	{MetricTotalError, KindInt, "Existing error-and-above issues", SectionLintScan},
	{MetricTotalWarning, KindInt, "Existing warning-and-above issues", SectionLintScan},
	{MetricTotalInfo, KindInt, "Existing info-and-above issues", SectionLintScan},
	{MetricWorseCCFileNum, KindInt, "Files with worsened complexity", SectionComplexityScan},
	{MetricOverCCSum, KindInt, "Over-threshold complexity sum", SectionComplexityScan},
	{MetricCCFuncAverage, KindFloat, "Average function complexity", SectionComplexityScan},
	{MetricOverCCFuncCount, KindInt, "Over-threshold functions", SectionComplexityScan},
	{MetricDiffOverCCFuncCount, KindInt, "Changed over-threshold functions", SectionComplexityScan},
	{MetricOverCCFuncAverage, KindFloat, "Average over-threshold complexity", SectionComplexityScan},
	{MetricDuplicateRate, KindFloat, "Duplication rate", SectionDuplicateScan},
}

// MetricDefinitions returns the metric set in canonical order
func MetricDefinitions() []MetricDefinition {
	out := make([]MetricDefinition, len(metricDefinitions))
	copy(out, metricDefinitions)
	return out
}

// MetricKeys returns the metric keys in canonical order
func MetricKeys() []MetricKey {
	keys := make([]MetricKey, len(metricDefinitions))
	for i, d := range metricDefinitions {
		keys[i] = d.Key
	}
	return keys
}

// LookupMetric returns the definition for key
func LookupMetric(key MetricKey) (MetricDefinition, bool) {
	for _, d := range metricDefinitions {
		if d.Key == key {
			return d, true
		}
	}
	return MetricDefinition{}, false
}

// DefaultDisplayNames returns the human-readable metric names
func DefaultDisplayNames() map[MetricKey]string {
	names := make(map[MetricKey]string, len(metricDefinitions))
	for _, d := range metricDefinitions {
		names[d.Key] = d.Name
	}
	return names
}

// Number is an integer or floating-point metric value
type Number struct {
	Kind  NumberKind
	Int   int64
	Float float64
}

// IntNumber creates an integer Number
func IntNumber(v int64) Number {
	return Number{Kind: KindInt, Int: v}
}

// FloatNumber creates a floating-point Number
func FloatNumber(v float64) Number {
	return Number{Kind: KindFloat, Float: v}
}

// Float64 returns the value as float64 regardless of kind
func (n Number) Float64() float64 {
	if n.Kind == KindInt {
		return float64(n.Int)
	}
	return n.Float
}

// String formats the number without trailing zeros
func (n Number) String() string {
	if n.Kind == KindInt {
		return strconv.FormatInt(n.Int, 10)
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// MarshalJSON encodes the number as a bare JSON number
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

// MarshalYAML encodes the number as a scalar
func (n Number) MarshalYAML() (interface{}, error) {
	if n.Kind == KindInt {
		return n.Int, nil
	}
	return n.Float, nil
}

// QualityMetrics maps metric keys to values; a missing key means the
// metric was not computed.
type QualityMetrics struct {
	values map[MetricKey]Number
}

// NewQualityMetrics creates an empty metrics record
func NewQualityMetrics() *QualityMetrics {
	return &QualityMetrics{values: make(map[MetricKey]Number)}
}

// Set stores a value for key
func (m *QualityMetrics) Set(key MetricKey, value Number) {
	m.values[key] = value
}

// Get returns the value for key and whether it is present
func (m *QualityMetrics) Get(key MetricKey) (Number, bool) {
	if m == nil {
		return Number{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of present metrics
func (m *QualityMetrics) Len() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

// MarshalJSON writes every metric of the fixed set in canonical order as
// {"<key>": {"value": <number|null>}}.
func (m *QualityMetrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range metricDefinitions {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:{\"value\":", string(d.Key))
		if v, ok := m.Get(d.Key); ok {
			buf.WriteString(v.String())
		} else {
			buf.WriteString("null")
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the format written by MarshalJSON
func (m *QualityMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]struct {
		Value *json.Number `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.values = make(map[MetricKey]Number)
	for key, entry := range raw {
		def, ok := LookupMetric(MetricKey(key))
		if !ok || entry.Value == nil {
			continue
		}
		if def.Kind == KindInt {
			v, err := entry.Value.Int64()
			if err != nil {
				return fmt.Errorf("metric %s: %w", key, err)
			}
			m.values[def.Key] = IntNumber(v)
			continue
		}
		v, err := entry.Value.Float64()
		if err != nil {
			return fmt.Errorf("metric %s: %w", key, err)
		}
		m.values[def.Key] = FloatNumber(v)
	}
	return nil
}

// MarshalYAML writes the same shape as MarshalJSON, keeping the canonical order
func (m *QualityMetrics) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range metricDefinitions {
		value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		if v, ok := m.Get(d.Key); ok {
			value = &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(d.Key)},
			&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "value"},
				value,
			}},
		)
	}
	return out, nil
}
