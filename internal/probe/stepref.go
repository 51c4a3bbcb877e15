package probe

import (
	"context"
	"fmt"
)

type stepRefProbe struct {
	target string
}

// Run returns the referent's recorded output verbatim. Dependency ordering
// guarantees the referent already passed when this runs.
func (p *stepRefProbe) Run(ctx context.Context, rt *Runtime) (string, error) {
	output, ok := rt.results.OutputOf(p.target)
	if !ok {
		return "", fmt.Errorf("no output recorded for step %q", p.target)
	}
	return output, nil
}
