package probe

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

// Probe produces the raw output for one step. A returned error means the
// probe itself failed, which is distinct from an expectation failure.
type Probe interface {
	Run(ctx context.Context, rt *Runtime) (string, error)
}

// ForStep maps a step definition onto its probe driver. The parser guarantees
// exactly one probe variant is set.
func ForStep(step *config.Step) (Probe, error) {
	switch {
	case step.Shell != nil:
		return &shellProbe{cfg: step.Shell}, nil
	case step.HTTP != nil:
		return &httpProbe{cfg: step.HTTP}, nil
	case step.System != nil:
		return &systemProbe{selector: step.System.Selector}, nil
	case step.Value != nil:
		return &valueProbe{value: *step.Value}, nil
	case step.StepRef != nil:
		return &stepRefProbe{target: *step.StepRef}, nil
	default:
		return nil, fmt.Errorf("step %s declares no probe", step.Name)
	}
}
