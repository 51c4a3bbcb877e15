package filter

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jmespath/go-jmespath"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

// Result is the outcome of running a filter chain. Text always carries the
// transformed output so later filters and the expectation can see it;
// Suppress records that the no-output filter fired and the reported output
// must be withheld.
type Result struct {
	Text     string
	Suppress bool
}

// Apply folds the filter chain over the probe output, left to right. The
// first filter error aborts the chain.
func Apply(filters []config.Filter, output string) (Result, error) {
	result := Result{Text: output}

	for _, f := range filters {
		switch f.Type {
		case config.FilterRegex:
			text, err := applyRegex(f, result.Text)
			if err != nil {
				return Result{}, err
			}
			result.Text = text
		case config.FilterJMESPath:
			text, err := applyJMESPath(f, result.Text)
			if err != nil {
				return Result{}, err
			}
			result.Text = text
		case config.FilterNoOutput:
			result.Suppress = true
		default:
			return Result{}, fmt.Errorf("unknown filter type %q", f.Type)
		}
	}

	return result, nil
}

func applyRegex(f config.Filter, text string) (string, error) {
	re, err := regexp.Compile(f.Pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex `%s`: %w", f.Pattern, err)
	}

	match := re.FindStringSubmatch(text)
	if match == nil {
		return "", fmt.Errorf("could not find match")
	}

	if f.Group == "" {
		return match[0], nil
	}

	idx := re.SubexpIndex(f.Group)
	if idx < 0 {
		return "", fmt.Errorf("no capture group named `%s`", f.Group)
	}
	return match[idx], nil
}

func applyJMESPath(f config.Filter, text string) (string, error) {
	compiled, err := jmespath.Compile(f.Expr)
	if err != nil {
		return "", fmt.Errorf("invalid jmespath `%s`: %w", f.Expr, err)
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", fmt.Errorf("output is not valid JSON: %w", err)
	}

	value, err := compiled.Search(doc)
	if err != nil {
		return "", fmt.Errorf("jmespath `%s`: %w", f.Expr, err)
	}

	return stringify(value)
}

// stringify renders a JMESPath result the way it reads in a report: bare
// strings stay bare, everything else is JSON-encoded.
func stringify(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
