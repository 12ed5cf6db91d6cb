// Package testutil provides helper functions for testing tcagate components
package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
)

// DecodeRawResult decodes a raw client result the same way the result store does
func DecodeRawResult(t *testing.T, doc string) *domain.RawScanResult {
	t.Helper()
	decoder := json.NewDecoder(bytes.NewReader([]byte(doc)))
	decoder.UseNumber()

	var raw domain.RawScanResult
	if err := decoder.Decode(&raw); err != nil {
		t.Fatalf("Failed to decode raw result: %v", err)
	}
	return &raw
}

// WriteFile writes content to dir/name, creating parent directories
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// MustGetMetric returns the metric value or fails the test
func MustGetMetric(t *testing.T, m *domain.QualityMetrics, key domain.MetricKey) domain.Number {
	t.Helper()
	v, ok := m.Get(key)
	if !ok {
		t.Fatalf("Expected metric %s to be present", key)
	}
	return v
}

// AssertMetricAbsent fails the test if the metric is present
func AssertMetricAbsent(t *testing.T, m *domain.QualityMetrics, key domain.MetricKey) {
	t.Helper()
	if v, ok := m.Get(key); ok {
		t.Errorf("Expected metric %s to be absent, got %s", key, v)
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected and actual are not deeply equal
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}
