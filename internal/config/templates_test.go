package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
)

func TestGetFullConfigTemplate_LoadsBack(t *testing.T) {
	for strictness, want := range GetStrictnessPresets() {
		t.Run(string(strictness), func(t *testing.T) {
			content := GetFullConfigTemplate(ScanProfileQuick, strictness)
			config, err := LoadConfig(writeConfig(t, t.TempDir(), "tcagate.yaml", content))
			if err != nil {
				t.Fatalf("Template does not load: %v\n%s", err, content)
			}

			if !reflect.DeepEqual(config.Redline.Thresholds, want) {
				t.Errorf("Thresholds = %v, want %v", config.Redline.Thresholds, want)
			}
			if config.ScanMode() != domain.ScanModeQuick {
				t.Errorf("Expected quick scan, got %s", config.ScanMode())
			}
			if !config.Output.Block {
				t.Error("Template should block by default")
			}
		})
	}
}

func TestGetFullConfigTemplate_LocalProfile(t *testing.T) {
	content := GetFullConfigTemplate(ScanProfileLocal, StrictnessStandard)
	config, err := LoadConfig(writeConfig(t, t.TempDir(), "tcagate.yaml", content))
	if err != nil {
		t.Fatalf("Template does not load: %v", err)
	}
	if config.ScanMode() != domain.ScanModeLocal {
		t.Errorf("Expected local scan, got %s", config.ScanMode())
	}
	if strings.Contains(content, "Used only when quick_scan is false") {
		t.Error("Local profile should not mark the server section as unused")
	}
}

func TestConfigTemplateHasComments(t *testing.T) {
	content := GetFullConfigTemplate(ScanProfileQuick, StrictnessStrict)

	expected := []string{
		"# tcagate configuration (strict preset)",
		"# QUALITY GATE",
		"# Average function complexity",
		"cc_func_average: 3.0",
		"incr_fatal: 0",
		"INPUT_QUICK_SCAN",
	}
	for _, s := range expected {
		if !strings.Contains(content, s) {
			t.Errorf("Template missing %q:\n%s", s, content)
		}
	}
}

func TestGetMinimalConfigTemplate(t *testing.T) {
	content := GetMinimalConfigTemplate()
	config, err := LoadConfig(writeConfig(t, t.TempDir(), "tcagate.yaml", content))
	if err != nil {
		t.Fatalf("Minimal template does not load: %v", err)
	}
	if got := config.Redline.Thresholds[domain.MetricIncrFatal]; got != domain.IntNumber(0) {
		t.Errorf("Expected incr_fatal 0, got %v", got)
	}
	if len(content) >= len(GetFullConfigTemplate(ScanProfileQuick, StrictnessStandard)) {
		t.Error("Minimal template should be shorter than the full one")
	}
}

func TestStrictnessPresets_AreValid(t *testing.T) {
	presets := GetStrictnessPresets()
	for _, s := range []Strictness{StrictnessRelaxed, StrictnessStandard, StrictnessStrict} {
		thresholds, ok := presets[s]
		if !ok {
			t.Fatalf("Missing preset %s", s)
		}
		c := DefaultConfig()
		c.Redline.Thresholds = thresholds
		if err := c.Validate(); err != nil {
			t.Errorf("Preset %s is invalid: %v", s, err)
		}
	}

	// Stricter presets never allow more incremental errors
	relaxed := presets[StrictnessRelaxed][domain.MetricIncrError].Int
	strict := presets[StrictnessStrict][domain.MetricIncrError].Int
	if strict > relaxed {
		t.Errorf("Strict incr_error (%d) should not exceed relaxed (%d)", strict, relaxed)
	}
}
