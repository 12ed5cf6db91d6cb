package config

import (
	"bytes"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

// ScanProfile selects which kind of scan the generated config sets up
type ScanProfile string

const (
	ScanProfileQuick ScanProfile = "quick"
	ScanProfileLocal ScanProfile = "local"
)

// Strictness represents the quality gate strictness level
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// GetStrictnessPresets returns the thresholds for each strictness level
func GetStrictnessPresets() map[Strictness]domain.Thresholds {
	return map[Strictness]domain.Thresholds{
		StrictnessRelaxed: {
			domain.MetricIncrFatal:     domain.IntNumber(0),
			domain.MetricIncrError:     domain.IntNumber(10),
			domain.MetricCCFuncAverage: domain.FloatNumber(10),
			domain.MetricDuplicateRate: domain.FloatNumber(15),
		},
		StrictnessStandard: {
			domain.MetricIncrFatal:           domain.IntNumber(0),
			domain.MetricIncrError:           domain.IntNumber(0),
			domain.MetricIncrWarning:         domain.IntNumber(20),
			domain.MetricDiffOverCCFuncCount: domain.IntNumber(0),
			domain.MetricCCFuncAverage:       domain.FloatNumber(5),
			domain.MetricDuplicateRate:       domain.FloatNumber(8),
		},
		StrictnessStrict: {
			domain.MetricIncrFatal:           domain.IntNumber(0),
			domain.MetricIncrError:           domain.IntNumber(0),
			domain.MetricIncrWarning:         domain.IntNumber(0),
			domain.MetricTotalFatal:          domain.IntNumber(0),
			domain.MetricWorseCCFileNum:      domain.IntNumber(0),
			domain.MetricDiffOverCCFuncCount: domain.IntNumber(0),
			domain.MetricCCFuncAverage:       domain.FloatNumber(3),
			domain.MetricDuplicateRate:       domain.FloatNumber(3),
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(profile ScanProfile, strictness Strictness) string {
	thresholds := GetStrictnessPresets()[strictness]

	scan := mapping(
		entry("quick_scan", boolNode(profile != ScanProfileLocal),
			"Quick scan runs standalone; set to false for a server-backed local scan"),
		entry("label", strNode(constants.DefaultLabel), "Rule set label used by quick scans"),
		entry("from_file", strNode(""), "File listing the paths to scan, one per line"),
		entry("white_paths", seqNode(), "Regular expressions; only matching paths are scanned"),
		entry("ignore_paths", seqNode(), "Regular expressions; matching paths are skipped"),
		entry("ignore_file", strNode(""), ".gitignore-style file of paths to skip"),
		entry("timeout", numberNode(domain.IntNumber(2)), "Client timeout in hours"),
	)

	server := mapping(
		entry("ip", strNode(""), "Server address; the token is read from INPUT_TOKEN"),
		entry("org_sid", strNode(""), ""),
		entry("team_name", strNode(""), ""),
	)
	serverTitle := "ANALYSIS SERVER"
	if profile != ScanProfileLocal {
		serverTitle += "\nUsed only when quick_scan is false"
	}

	redline := mapping()
	for _, def := range domain.MetricDefinitions() {
		if n, ok := thresholds[def.Key]; ok {
			redline.Content = append(redline.Content, entry(string(def.Key), numberNode(n), def.Name)...)
		}
	}

	output := mapping(
		entry("report_file", strNode(constants.DefaultReportFileName), "Final report read by later pipeline steps"),
		entry("block", boolNode(true), "Fail the pipeline when the gate fails"),
		entry("format", strNode(string(domain.OutputFormatText)), "Summary format: text, json, yaml"),
	)

	archive := mapping(
		entry("backend", strNode(""), "Report archive: local, s3, gcs (empty disables)"),
		entry("dir", strNode(""), "Target directory of the local backend"),
		entry("bucket", strNode(""), ""),
		entry("prefix", strNode("tcagate"), ""),
	)

	root := mapping(
		section("scan", scan, "SCAN INPUTS\nEvery key can also be set with INPUT_<KEY>, e.g. INPUT_QUICK_SCAN"),
		section("server", server, serverTitle),
		section("redline", redline, "QUALITY GATE\nMaximum allowed value per metric; metrics left out are not checked"),
		section("output", output, "OUTPUT"),
		section("archive", archive, "REPORT ARCHIVE"),
	)
	return render(root, "tcagate configuration ("+string(strictness)+" preset)")
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	root := mapping(
		entry("scan", mapping(entry("quick_scan", boolNode(true), "")), ""),
		entry("redline", mapping(entry(string(domain.MetricIncrFatal), numberNode(domain.IntNumber(0)), "")), ""),
	)
	return render(root, "tcagate configuration (minimal)")
}

func render(root *yaml.Node, header string) string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: header, Content: []*yaml.Node{root}}
	if err := enc.Encode(doc); err != nil {
		panic(err)
	}
	_ = enc.Close()
	return buf.String()
}

func mapping(entries ...[]*yaml.Node) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		n.Content = append(n.Content, e...)
	}
	return n
}

func entry(key string, value *yaml.Node, comment string) []*yaml.Node {
	k := &yaml.Node{Kind: yaml.ScalarNode, Value: key, HeadComment: comment}
	return []*yaml.Node{k, value}
}

func section(key string, value *yaml.Node, title string) []*yaml.Node {
	lines := strings.Split(title, "\n")
	lines[0] = strings.Repeat("=", 60) + "\n" + lines[0]
	return entry(key, value, strings.Join(lines, "\n"))
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func seqNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
}

// numberNode keeps a decimal point on floats so they read back as floats
func numberNode(n domain.Number) *yaml.Node {
	if n.Kind == domain.KindInt {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: n.String()}
	}
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}
