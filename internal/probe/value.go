package probe

import (
	"context"
)

type valueProbe struct {
	value string
}

// Run returns the literal value unchanged.
func (p *valueProbe) Run(ctx context.Context, rt *Runtime) (string, error) {
	return p.value, nil
}
