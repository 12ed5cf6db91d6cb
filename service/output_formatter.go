package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/version"
)

const bannerWidth = 100

// OutputFormatterImpl implements the ReportFormatter interface
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as indented JSON without HTML escaping
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Write writes the report summary in the specified format
func (f *OutputFormatterImpl) Write(report *domain.StatusReport, format domain.OutputFormat, writer io.Writer) error {
	if report == nil {
		return domain.NewOutputError("no report to write", nil)
	}
	var err error
	switch format {
	case domain.OutputFormatText, "":
		err = f.writeText(report, writer)
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, report)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, report)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write %s summary", format), err)
	}
	return nil
}

// writeText writes the report as a banner followed by the redline lines
func (f *OutputFormatterImpl) writeText(report *domain.StatusReport, writer io.Writer) error {
	banner := strings.Repeat("*", bannerWidth)

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\n", banner)
	fmt.Fprintf(&sb, "Result: %s (status code %d)\n", report.Status.Text(), report.StatusCode)
	fmt.Fprintf(&sb, "%s\n", banner)

	if report.Text != "" && report.Text != report.Status.Text() {
		fmt.Fprintf(&sb, "Text: %s\n", report.Text)
	}
	if report.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", report.Description)
	}
	if report.URL != "" {
		fmt.Fprintf(&sb, "Details: %s\n", report.URL)
	}

	if report.RedlineMsg != "" {
		fmt.Fprintf(&sb, "\nQuality gate:\n")
		for _, line := range strings.Split(report.RedlineMsg, "\n") {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	if report.Metrics.Len() > 0 {
		fmt.Fprintf(&sb, "\nMetrics:\n")
		for _, def := range domain.MetricDefinitions() {
			if v, ok := report.Metrics.Get(def.Key); ok {
				fmt.Fprintf(&sb, "  %-26s %s\n", def.Key, v)
			}
		}
	}

	fmt.Fprintf(&sb, "\n%s %s\n", "tcagate", version.GetVersion())
	_, err := io.WriteString(writer, sb.String())
	return err
}

var _ domain.ReportFormatter = (*OutputFormatterImpl)(nil)
