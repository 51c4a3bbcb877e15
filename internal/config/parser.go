package config

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	lorikeeterrors "github.com/alexisbeaulieu97/lorikeet/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParsePlan decodes expanded plan text into an ordered list of step
// definitions. The top level of a plan is a mapping from step name to step
// body; declaration order is preserved for result reporting.
func ParsePlan(data []byte) (*Plan, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, lorikeeterrors.NewParseError("", extractLine(err), err)
	}

	plan := &Plan{}
	if root.Kind == 0 || len(root.Content) == 0 {
		return plan, nil
	}

	mapping := root.Content[0]
	if mapping.Kind == yaml.ScalarNode && mapping.Value == "" {
		return plan, nil
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, lorikeeterrors.NewParseError("", mapping.Line,
			fmt.Errorf("plan must be a mapping of step names to step definitions"))
	}

	seen := make(map[string]struct{}, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valueNode := mapping.Content[i+1]

		name := keyNode.Value
		if name == "" {
			return nil, lorikeeterrors.NewValidationError("", "step name must not be empty", nil)
		}
		if _, dup := seen[name]; dup {
			return nil, lorikeeterrors.NewValidationError(name, "duplicate step name", nil)
		}
		seen[name] = struct{}{}

		var step Step
		if err := valueNode.Decode(&step); err != nil {
			return nil, lorikeeterrors.NewParseError("", valueNode.Line, err)
		}
		step.Name = name

		if err := validateStep(&step); err != nil {
			return nil, err
		}

		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}

// ParseContext decodes a context document into the value handed to the
// template expander. Empty input yields a nil context.
func ParseContext(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var ctx any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, lorikeeterrors.NewParseError("", extractLine(err), err)
	}
	return ctx, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
