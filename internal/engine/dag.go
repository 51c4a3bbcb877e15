package engine

import (
	"sort"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
	"github.com/alexisbeaulieu97/lorikeet/internal/model"
)

// Node is one step in the execution DAG. Nodes live in the graph's arena and
// reference each other by index, never by pointer cycles. A node's State and
// Result are written only by its owning goroutine, and the terminal State and
// Result exactly once before done is closed; dependents read them only after
// done, so no locking is needed.
type Node struct {
	Index int
	Step  *config.Step

	// Parents must all reach a terminal state before this node may start.
	Parents []int
	// Children are signalled when this node reaches a terminal state.
	Children []int

	State  model.Status
	Result model.StepResult

	done chan struct{}
}

// Done exposes the completion signal dependents wait on.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// finish records the terminal state and fires the completion signal. Called
// exactly once per node.
func (n *Node) finish(state model.Status, result model.StepResult) {
	n.State = state
	n.Result = result
	close(n.done)
}

// Graph is the arena of step nodes in plan declaration order.
type Graph struct {
	Nodes  []*Node
	byName map[string]int
}

// Lookup resolves a node by step name.
func (g *Graph) Lookup(name string) (*Node, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.Nodes[idx], true
}

// OutputOf returns the recorded output of a completed step. It implements
// probe.ResultLookup for step-reference probes; dependency edges guarantee
// the referent finished before the caller runs.
func (g *Graph) OutputOf(name string) (string, bool) {
	node, ok := g.Lookup(name)
	if !ok {
		return "", false
	}

	select {
	case <-node.done:
	default:
		return "", false
	}

	if node.Result.Output == nil {
		return "", true
	}
	return *node.Result.Output, true
}

func newGraph(steps []config.Step) *Graph {
	graph := &Graph{
		Nodes:  make([]*Node, 0, len(steps)),
		byName: make(map[string]int, len(steps)),
	}

	for i := range steps {
		node := &Node{
			Index: i,
			Step:  &steps[i],
			State: model.StatusPending,
			done:  make(chan struct{}),
		}
		graph.Nodes = append(graph.Nodes, node)
		graph.byName[steps[i].Name] = i
	}

	return graph
}

// wire turns per-node require sets into sorted Parents and Children slices.
func (g *Graph) wire(requires []map[int]struct{}) {
	for idx, deps := range requires {
		node := g.Nodes[idx]
		for parent := range deps {
			node.Parents = append(node.Parents, parent)
			g.Nodes[parent].Children = append(g.Nodes[parent].Children, idx)
		}
	}

	for _, node := range g.Nodes {
		sort.Ints(node.Parents)
		sort.Ints(node.Children)
	}
}
