package redline

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/testutil"
)

func TestBuildVerdict_IncrementalLintPasses(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "success", "text": "ok", "scan_report": {"lintscan": {
		"current_scan": {"active_severity_detail": {"fatal": 0, "error": 2, "warning": 5, "info": 10}}}}}`)

	v, err := BuildVerdict(raw, domain.Thresholds{
		domain.MetricIncrError:   domain.IntNumber(2),
		domain.MetricIncrWarning: domain.IntNumber(7),
	}, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusSuccess, v.Status)
	testutil.AssertEqual(t, "ok", v.Text)
	testutil.AssertEqual(t, 0, v.FailedCount())
	testutil.AssertEqual(t,
		"[PASS] New error-and-above issues(incr_error): 2 <= 2\n"+
			"[PASS] New warning-and-above issues(incr_warning): 7 <= 7",
		v.RedlineMessage)
}

func TestBuildVerdict_ExceededThresholdForcesFailure(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "success", "text": "ok", "url": "http://tca.example/1",
		"urls": {"lintscan": "http://tca.example/lint"},
		"scan_report": {"lintscan": {"current_scan": {"active_severity_detail": {"fatal": 5}}}}}`)

	v, err := BuildVerdict(raw, domain.Thresholds{domain.MetricIncrFatal: domain.IntNumber(0)}, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusFailure, v.Status)
	testutil.AssertEqual(t, "Failed", v.Text)
	testutil.AssertEqual(t, "http://tca.example/1", v.URL)
	testutil.AssertEqual(t, "1 quality gate(s) failed", v.Description)
	testutil.AssertEqual(t,
		"[FAIL] New fatal issues(incr_fatal): 5 > 0, details: http://tca.example/lint",
		v.RedlineMessage)
}

func TestBuildVerdict_AbsentMetricFails(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "success", "scan_report": {}}`)

	v, err := BuildVerdict(raw, domain.Thresholds{domain.MetricDuplicateRate: domain.FloatNumber(5.0)}, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusFailure, v.Status)
	testutil.AssertTrue(t, strings.Contains(v.RedlineMessage, EmptyDataNote), "message should note empty data")
	testutil.AssertFalse(t, strings.Contains(v.RedlineMessage, "details:"), "absent metric should carry no link")
}

func TestBuildVerdict_CancelIsSkipped(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "cancel", "text": "nothing to scan", "scan_report": {}}`)

	v, err := BuildVerdict(raw, domain.Thresholds{domain.MetricIncrFatal: domain.IntNumber(0)}, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusSuccess, v.Status)
	testutil.AssertEqual(t, domain.ScanSkippedText, v.Text)
	testutil.AssertEqual(t, "", v.RedlineMessage)
	testutil.AssertEqual(t, 0, len(v.Results))
	if v.Metrics != nil {
		t.Error("Cancelled scan should carry no metrics")
	}
}

func TestBuildVerdict_ErrorStatusIsNotEvaluated(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantText string
	}{
		{"with text", `{"status": "error", "text": "client crashed", "description": "exit 3"}`, "client crashed"},
		{"without text", `{"status": "error"}`, "Execution error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := BuildVerdict(testutil.DecodeRawResult(t, tt.doc),
				domain.Thresholds{domain.MetricIncrFatal: domain.IntNumber(0)}, nil)
			testutil.AssertNoError(t, err)

			testutil.AssertEqual(t, domain.StatusError, v.Status)
			testutil.AssertEqual(t, tt.wantText, v.Text)
			testutil.AssertEqual(t, "", v.RedlineMessage)
			if v.Metrics != nil {
				t.Error("Error status should carry no metrics")
			}
		})
	}
}

func TestBuildVerdict_FailureStatusIsKept(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "failure", "text": "server rule failed", "description": "d"}`)

	v, err := BuildVerdict(raw, domain.Thresholds{}, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusFailure, v.Status)
	testutil.AssertEqual(t, "server rule failed", v.Text)
	testutil.AssertEqual(t, "d", v.Description)
}

func TestBuildVerdict_UnknownStatus(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "exploded"}`)

	v, err := BuildVerdict(raw, nil, nil)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, domain.StatusError, v.Status)
	testutil.AssertTrue(t, strings.Contains(v.Description, `"exploded"`), "description should name the status")
}

func TestBuildVerdict_NilResult(t *testing.T) {
	v, err := BuildVerdict(nil, nil, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, domain.StatusError, v.Status)
}

func TestBuildVerdict_InvalidThresholds(t *testing.T) {
	raw := testutil.DecodeRawResult(t, `{"status": "cancel"}`)

	_, err := BuildVerdict(raw, domain.Thresholds{domain.MetricIncrFatal: domain.FloatNumber(0.5)}, nil)
	testutil.AssertError(t, err)
	testutil.AssertTrue(t, domain.HasCode(err, domain.ErrCodeConfigError), "expected config error")
}

func TestBuildVerdict_Idempotent(t *testing.T) {
	thresholds := domain.Thresholds{
		domain.MetricIncrFatal:     domain.IntNumber(0),
		domain.MetricTotalWarning:  domain.IntNumber(10),
		domain.MetricCCFuncAverage: domain.FloatNumber(3),
		domain.MetricDuplicateRate: domain.FloatNumber(5),
	}

	first, err := BuildVerdict(testutil.DecodeRawResult(t, fullResult), thresholds, nil)
	testutil.AssertNoError(t, err)
	second, err := BuildVerdict(testutil.DecodeRawResult(t, fullResult), thresholds, nil)
	testutil.AssertNoError(t, err)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluating the same input twice gave different verdicts:\n%+v\n%+v", first, second)
	}
	testutil.AssertEqual(t, domain.StatusFailure, first.Status)
	testutil.AssertEqual(t, 2, first.FailedCount())
}
