package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Plan is an ordered collection of step definitions. Order matches the
// declaration order in the plan document and drives result reporting.
type Plan struct {
	Steps []Step
}

// Step describes an individual unit of work: one probe, an ordered filter
// chain, an optional expectation, and dependency wiring.
type Step struct {
	Name        string
	Description string `yaml:"description,omitempty"`

	Shell   *ShellProbe  `yaml:"-"`
	HTTP    *HTTPProbe   `yaml:"-"`
	System  *SystemProbe `yaml:"-"`
	Value   *string      `yaml:"-"`
	StepRef *string      `yaml:"-"`

	Filters []Filter     `yaml:"filters,omitempty"`
	Expect  *Expectation `yaml:"-"`

	Require    []string `yaml:"require,omitempty"`
	RequiredBy []string `yaml:"required_by,omitempty"`

	RetryCount   int `yaml:"retry_count,omitempty" validate:"min=0"`
	RetryDelayMS int `yaml:"retry_delay_ms,omitempty" validate:"min=0"`
	DelayMS      int `yaml:"delay_ms,omitempty" validate:"min=0"`
}

// ShellProbe spawns a shell interpreter with the command as a single argument.
type ShellProbe struct {
	Command   string `yaml:"command" validate:"required,min=1"`
	GetOutput bool   `yaml:"get_output"`
}

// HTTPProbe performs a single HTTP request.
type HTTPProbe struct {
	URL         string                    `yaml:"url" validate:"required,url"`
	Method      string                    `yaml:"method,omitempty"`
	Headers     map[string]string         `yaml:"headers,omitempty"`
	Status      int                       `yaml:"status,omitempty" validate:"min=100,max=599"`
	User        string                    `yaml:"user,omitempty"`
	Pass        string                    `yaml:"pass,omitempty"`
	Form        map[string]string         `yaml:"form,omitempty"`
	Multipart   map[string]MultipartField `yaml:"multipart,omitempty"`
	Body        string                    `yaml:"body,omitempty"`
	SaveCookies bool                      `yaml:"save_cookies,omitempty"`
	VerifySSL   bool                      `yaml:"verify_ssl"`
	GetOutput   bool                      `yaml:"get_output"`

	bodySet bool
}

// BodySet reports whether the request carries a raw body. A body key in the
// plan counts even when its value is the empty string.
func (h *HTTPProbe) BodySet() bool {
	return h.bodySet || h.Body != ""
}

// MultipartField is either an inline string value or a file reference of the
// form {file: path}.
type MultipartField struct {
	Value    string
	FilePath string
}

// UnmarshalYAML accepts a scalar value or a {file: path} mapping.
func (m *MultipartField) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&m.Value)
	case yaml.MappingNode:
		var ref struct {
			File string `yaml:"file"`
		}
		if err := value.Decode(&ref); err != nil {
			return err
		}
		if ref.File == "" {
			return fmt.Errorf("multipart entry mapping must contain a file key")
		}
		m.FilePath = ref.File
		return nil
	default:
		return fmt.Errorf("multipart entry must be a string or a file mapping")
	}
}

// SystemProbe samples one host metric.
type SystemProbe struct {
	Selector string `validate:"required,system_selector"`
}

// Supported system metric selectors.
const (
	SystemLoadAvg1m    = "load_avg_1m"
	SystemLoadAvg5m    = "load_avg_5m"
	SystemLoadAvg15m   = "load_avg_15m"
	SystemMemAvailable = "mem_available"
	SystemMemFree      = "mem_free"
	SystemMemTotal     = "mem_total"
	SystemDiskFree     = "disk_free"
	SystemDiskTotal    = "disk_total"
)

// FilterType discriminates filter variants.
type FilterType string

const (
	// FilterRegex searches for the first match of a pattern, optionally
	// extracting a named capture group.
	FilterRegex FilterType = "regex"
	// FilterJMESPath parses the output as JSON and evaluates an expression.
	FilterJMESPath FilterType = "jmespath"
	// FilterNoOutput suppresses the step's reported output.
	FilterNoOutput FilterType = "nooutput"
)

// Filter is one element of a step's filter chain.
type Filter struct {
	Type    FilterType
	Pattern string
	Group   string
	Expr    string
}

// UnmarshalYAML accepts the plain forms used in plan documents:
//
//	- nooutput
//	- regex: PATTERN
//	- regex: { matches: PATTERN, group: NAME }
//	- jmespath: EXPR
//	- do_output: false
func (f *Filter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch value.Value {
		case "nooutput", "no_output":
			f.Type = FilterNoOutput
			return nil
		default:
			return fmt.Errorf("unknown filter %q", value.Value)
		}
	}

	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("filter must be a string or a mapping")
	}

	var raw struct {
		Regex    *yaml.Node `yaml:"regex"`
		JMESPath *string    `yaml:"jmespath"`
		DoOutput *bool      `yaml:"do_output"`
		NoOutput *bool      `yaml:"nooutput"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch {
	case raw.Regex != nil:
		pattern, group, err := decodeRegexSpec(raw.Regex)
		if err != nil {
			return err
		}
		f.Type = FilterRegex
		f.Pattern = pattern
		f.Group = group
	case raw.JMESPath != nil:
		f.Type = FilterJMESPath
		f.Expr = *raw.JMESPath
	case raw.DoOutput != nil && !*raw.DoOutput:
		f.Type = FilterNoOutput
	case raw.NoOutput != nil && *raw.NoOutput:
		f.Type = FilterNoOutput
	default:
		return fmt.Errorf("filter mapping must contain regex, jmespath, or do_output: false")
	}

	return nil
}

func decodeRegexSpec(node *yaml.Node) (pattern, group string, err error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, "", nil
	case yaml.MappingNode:
		var capture struct {
			Matches string `yaml:"matches"`
			Group   string `yaml:"group"`
		}
		if err := node.Decode(&capture); err != nil {
			return "", "", err
		}
		if capture.Matches == "" {
			return "", "", fmt.Errorf("regex filter mapping requires a matches key")
		}
		return capture.Matches, capture.Group, nil
	default:
		return "", "", fmt.Errorf("regex filter must be a pattern or a matches/group mapping")
	}
}

// ExpectType discriminates expectation variants.
type ExpectType string

const (
	// ExpectMatches passes when a pattern matches anywhere in the output.
	ExpectMatches ExpectType = "matches"
	// ExpectGreaterThan passes when the output parses to a number greater
	// than the bound.
	ExpectGreaterThan ExpectType = "greater_than"
	// ExpectLessThan passes when the output parses to a number less than
	// the bound.
	ExpectLessThan ExpectType = "less_than"
)

// Expectation is the assertion evaluated against a step's filtered output.
type Expectation struct {
	Type    ExpectType
	Pattern string
	Value   float64
}

// rawStep mirrors the YAML surface of a step body, including every shorthand
// key, before desugaring.
type rawStep struct {
	Description string     `yaml:"description"`
	Shell       *yaml.Node `yaml:"shell"`
	HTTP        *yaml.Node `yaml:"http"`
	System      *string    `yaml:"system"`
	Value       *string    `yaml:"value"`
	StepRef     *string    `yaml:"step"`

	Filters  []Filter   `yaml:"filters"`
	Regex    *yaml.Node `yaml:"regex"`
	JMESPath *string    `yaml:"jmespath"`
	DoOutput *bool      `yaml:"do_output"`

	Matches     *string  `yaml:"matches"`
	GreaterThan *float64 `yaml:"greater_than"`
	LessThan    *float64 `yaml:"less_than"`

	Require    stringList `yaml:"require"`
	RequiredBy stringList `yaml:"required_by"`

	RetryCount   int `yaml:"retry_count"`
	RetryDelayMS int `yaml:"retry_delay_ms"`
	DelayMS      int `yaml:"delay_ms"`
}

// UnmarshalYAML decodes a step body, normalising shorthand forms:
// scalar probes, shorthand filter keys, and scalar require lists.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.Description = raw.Description
	s.Require = raw.Require
	s.RequiredBy = raw.RequiredBy
	s.RetryCount = raw.RetryCount
	s.RetryDelayMS = raw.RetryDelayMS
	s.DelayMS = raw.DelayMS

	if raw.Shell != nil {
		probe, err := decodeShellProbe(raw.Shell)
		if err != nil {
			return err
		}
		s.Shell = probe
	}
	if raw.HTTP != nil {
		probe, err := decodeHTTPProbe(raw.HTTP)
		if err != nil {
			return err
		}
		s.HTTP = probe
	}
	if raw.System != nil {
		s.System = &SystemProbe{Selector: *raw.System}
	}
	s.Value = raw.Value
	s.StepRef = raw.StepRef

	s.Filters = append([]Filter(nil), raw.Filters...)
	if raw.JMESPath != nil {
		s.Filters = append(s.Filters, Filter{Type: FilterJMESPath, Expr: *raw.JMESPath})
	}
	if raw.Regex != nil {
		pattern, group, err := decodeRegexSpec(raw.Regex)
		if err != nil {
			return err
		}
		s.Filters = append(s.Filters, Filter{Type: FilterRegex, Pattern: pattern, Group: group})
	}
	if raw.DoOutput != nil && !*raw.DoOutput {
		s.Filters = append(s.Filters, Filter{Type: FilterNoOutput})
	}

	expectations := 0
	if raw.Matches != nil {
		s.Expect = &Expectation{Type: ExpectMatches, Pattern: *raw.Matches}
		expectations++
	}
	if raw.GreaterThan != nil {
		s.Expect = &Expectation{Type: ExpectGreaterThan, Value: *raw.GreaterThan}
		expectations++
	}
	if raw.LessThan != nil {
		s.Expect = &Expectation{Type: ExpectLessThan, Value: *raw.LessThan}
		expectations++
	}
	if expectations > 1 {
		return fmt.Errorf("step declares more than one expectation")
	}

	return nil
}

func decodeShellProbe(node *yaml.Node) (*ShellProbe, error) {
	probe := &ShellProbe{GetOutput: true}
	switch node.Kind {
	case yaml.ScalarNode:
		probe.Command = node.Value
		return probe, nil
	case yaml.MappingNode:
		if err := node.Decode(probe); err != nil {
			return nil, err
		}
		if !hasYAMLKey(node, "get_output") {
			probe.GetOutput = true
		}
		return probe, nil
	default:
		return nil, fmt.Errorf("shell probe must be a command string or a mapping")
	}
}

func decodeHTTPProbe(node *yaml.Node) (*HTTPProbe, error) {
	probe := &HTTPProbe{Status: 200, VerifySSL: true, GetOutput: true}
	switch node.Kind {
	case yaml.ScalarNode:
		probe.URL = node.Value
		return probe, nil
	case yaml.MappingNode:
		if err := node.Decode(probe); err != nil {
			return nil, err
		}
		if !hasYAMLKey(node, "status") {
			probe.Status = 200
		}
		if !hasYAMLKey(node, "verify_ssl") {
			probe.VerifySSL = true
		}
		if !hasYAMLKey(node, "get_output") {
			probe.GetOutput = true
		}
		probe.bodySet = hasYAMLKey(node, "body")
		return probe, nil
	default:
		return nil, fmt.Errorf("http probe must be a URL string or a mapping")
	}
}

// probeCount reports how many probe variants the step declares.
func (s *Step) probeCount() int {
	count := 0
	if s.Shell != nil {
		count++
	}
	if s.HTTP != nil {
		count++
	}
	if s.System != nil {
		count++
	}
	if s.Value != nil {
		count++
	}
	if s.StepRef != nil {
		count++
	}
	return count
}

// stringList accepts either a scalar or a sequence of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = stringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = stringList(items)
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
}

func hasYAMLKey(node *yaml.Node, key string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
