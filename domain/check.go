package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScanStatus is the terminal status of a scan
type ScanStatus string

const (
	StatusSuccess ScanStatus = "success"
	StatusFailure ScanStatus = "failure"
	StatusError   ScanStatus = "error"
	StatusCancel  ScanStatus = "cancel"
)

// Status codes written to the report and used as process exit codes
const (
	StatusCodeSuccess = 0
	StatusCodeFailure = 1
	StatusCodeError   = 2
)

// Code returns the report status code; anything unrecognised maps to the error code
func (s ScanStatus) Code() int {
	switch s {
	case StatusSuccess, StatusCancel:
		return StatusCodeSuccess
	case StatusFailure:
		return StatusCodeFailure
	default:
		return StatusCodeError
	}
}

// Text returns the short human-readable label for the status
func (s ScanStatus) Text() string {
	switch s {
	case StatusSuccess:
		return "Passed"
	case StatusFailure:
		return "Failed"
	case StatusCancel:
		return ScanSkippedText
	default:
		return "Execution error"
	}
}

// IsValid reports whether s is one of the known statuses
func (s ScanStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusError, StatusCancel:
		return true
	}
	return false
}

// ScanSkippedText is the fixed text used when a scan is cancelled or skipped
const ScanSkippedText = "Scan skipped"

// RawScanResult is the result document written by the external client
type RawScanResult struct {
	Status      ScanStatus             `json:"status"`
	Text        string                 `json:"text"`
	URL         string                 `json:"url"`
	Description string                 `json:"description"`
	ScanReport  map[string]interface{} `json:"scan_report"`
	URLs        map[string]string      `json:"urls"`
}

// QuickScanReport is the result document written by the client in quick scan mode.
// Fields other than the error code and issue count are passed through untouched.
type QuickScanReport struct {
	ErrorCode  int
	IssueCount *int64
	Fields     map[string]interface{}
}

// Thresholds maps a metric to its configured ceiling; a metric without
// an entry is not evaluated.
type Thresholds map[MetricKey]Number

// MetricResult is the outcome of one threshold check
type MetricResult struct {
	Key      MetricKey `json:"key" yaml:"key"`
	Name     string    `json:"name" yaml:"name"`
	Actual   *Number   `json:"actual_value" yaml:"actual_value"`
	Expected Number    `json:"expected_max" yaml:"expected_max"`
	Passed   bool      `json:"passed" yaml:"passed"`
	Message  string    `json:"message" yaml:"message"`
}

// GateVerdict is the evaluated outcome of a scan
type GateVerdict struct {
	Status         ScanStatus      `json:"status" yaml:"status"`
	Text           string          `json:"text" yaml:"text"`
	URL            string          `json:"url" yaml:"url"`
	Description    string          `json:"description" yaml:"description"`
	Results        []MetricResult  `json:"results" yaml:"results"`
	RedlineMessage string          `json:"redline_msg" yaml:"redline_msg"`
	Metrics        *QualityMetrics `json:"metrics" yaml:"metrics"`
}

// FailedCount returns the number of failed metric checks
func (v *GateVerdict) FailedCount() int {
	n := 0
	for _, r := range v.Results {
		if !r.Passed {
			n++
		}
	}
	return n
}

// StatusReport is the final document persisted for later pipeline steps
type StatusReport struct {
	Status      ScanStatus      `json:"status" yaml:"status"`
	StatusCode  int             `json:"status_code" yaml:"status_code"`
	Text        string          `json:"text" yaml:"text"`
	URL         string          `json:"url" yaml:"url"`
	Description string          `json:"description" yaml:"description"`
	RedlineMsg  string          `json:"redline_msg" yaml:"redline_msg"`
	ScanReport  interface{}     `json:"scan_report" yaml:"scan_report"`
	Metrics     *QualityMetrics `json:"metrics" yaml:"metrics"`
}

// NewStatusReport merges a verdict with the raw scan report
func NewStatusReport(v *GateVerdict, scanReport interface{}) *StatusReport {
	if m, ok := scanReport.(map[string]interface{}); scanReport == nil || (ok && m == nil) {
		scanReport = map[string]interface{}{}
	}
	return &StatusReport{
		Status:      v.Status,
		StatusCode:  v.Status.Code(),
		Text:        v.Text,
		URL:         v.URL,
		Description: v.Description,
		RedlineMsg:  v.RedlineMessage,
		ScanReport:  scanReport,
		Metrics:     v.Metrics,
	}
}

// ExitCode returns the process exit code for the report. When block is
// false the pipeline is never blocked, even on execution errors.
func (r *StatusReport) ExitCode(block bool) int {
	if !block {
		return 0
	}
	return r.StatusCode
}

// Marshal encodes the report as indented JSON without HTML escaping
func (r *StatusReport) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return nil, fmt.Errorf("encode status report: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalYAML writes the report with JSON numbers from the raw scan report
// as YAML numbers
func (r *StatusReport) MarshalYAML() (interface{}, error) {
	type plain StatusReport
	out := plain(*r)
	out.ScanReport = plainNumbers(r.ScanReport)
	return out, nil
}

func plainNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = plainNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plainNumbers(e)
		}
		return out
	}
	return v
}
