package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
	lorikeeterrors "github.com/alexisbeaulieu97/lorikeet/pkg/errors"
)

// BuildDAG constructs the execution graph from parsed steps: it unifies
// require/required_by, adds implicit edges for step-reference probes,
// verifies every referenced name resolves, and rejects cycles.
func BuildDAG(plan *config.Plan) (*Graph, error) {
	steps := plan.Steps

	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if _, dup := seen[step.Name]; dup {
			return nil, lorikeeterrors.NewValidationError(step.Name, "duplicate step name", nil)
		}
		seen[step.Name] = struct{}{}
	}

	graph := newGraph(steps)
	requires := make([]map[int]struct{}, len(steps))
	for i := range requires {
		requires[i] = make(map[int]struct{})
	}

	addRequire := func(step string, dependsOn string) error {
		from, ok := graph.byName[dependsOn]
		if !ok {
			return lorikeeterrors.NewValidationError(step,
				fmt.Sprintf("references unknown step %q", dependsOn), nil)
		}
		to := graph.byName[step]
		requires[to][from] = struct{}{}
		return nil
	}

	for _, step := range steps {
		for _, dep := range step.Require {
			if err := addRequire(step.Name, dep); err != nil {
				return nil, err
			}
		}

		for _, dependent := range step.RequiredBy {
			if _, ok := graph.byName[dependent]; !ok {
				return nil, lorikeeterrors.NewValidationError(step.Name,
					fmt.Sprintf("required_by references unknown step %q", dependent), nil)
			}
			if err := addRequire(dependent, step.Name); err != nil {
				return nil, err
			}
		}

		// A step-reference probe needs the referent's output, so it depends
		// on it.
		if step.StepRef != nil {
			if err := addRequire(step.Name, *step.StepRef); err != nil {
				return nil, err
			}
		}
	}

	if cycle := detectCycle(graph, requires); len(cycle) > 0 {
		return nil, lorikeeterrors.NewValidationError("",
			fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	graph.wire(requires)
	return graph, nil
}

// detectCycle runs a depth-first traversal with visiting/visited coloring and
// returns the names participating in the first cycle found, or nil.
func detectCycle(graph *Graph, requires []map[int]struct{}) []string {
	const (
		white = iota // unvisited
		grey         // on the current DFS stack
		black        // fully explored
	)

	color := make([]int, len(graph.Nodes))
	var stack []int
	var cycle []string

	var dfs func(idx int) bool
	dfs = func(idx int) bool {
		color[idx] = grey
		stack = append(stack, idx)

		deps := make([]int, 0, len(requires[idx]))
		for dep := range requires[idx] {
			deps = append(deps, dep)
		}
		sort.Ints(deps)

		for _, dep := range deps {
			switch color[dep] {
			case grey:
				start := 0
				for i, v := range stack {
					if v == dep {
						start = i
						break
					}
				}
				for _, v := range stack[start:] {
					cycle = append(cycle, graph.Nodes[v].Step.Name)
				}
				cycle = append(cycle, graph.Nodes[dep].Step.Name)
				return true
			case white:
				if dfs(dep) {
					return true
				}
			}
		}

		color[idx] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for idx := range graph.Nodes {
		if color[idx] == white && dfs(idx) {
			return cycle
		}
	}

	return nil
}
