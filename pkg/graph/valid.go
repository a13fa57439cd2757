package graph

import (
	"fmt"
	"slices"
)

// CheckValid is a read-only consistency check over the owned sets. It is
// expected to always pass on graphs built solely through Connect; a failure
// is a structural fault, and the error names the offending identity.
func (g *Graph) CheckValid() error {
	for _, t := range g.tensors {
		if t.Producer() == nil && len(t.Consumers()) == 0 {
			return fmt.Errorf("tensor %d is orphaned: no producer and no consumers", t.ID())
		}
		for _, consumer := range t.Consumers() {
			if !slices.Contains(g.ops, consumer) {
				return fmt.Errorf("tensor %d consumer %s not owned by graph", t.ID(), consumer)
			}
		}
		if producer := t.Producer(); producer != nil && !slices.Contains(g.ops, producer) {
			return fmt.Errorf("tensor %d producer %s not owned by graph", t.ID(), producer)
		}
	}

	for _, op := range g.ops {
		for _, input := range op.Inputs() {
			if !slices.Contains(g.tensors, input) {
				return fmt.Errorf("%s input tensor %d not owned by graph", op, input.ID())
			}
		}
		for _, output := range op.Outputs() {
			if !slices.Contains(g.tensors, output) {
				return fmt.Errorf("%s output tensor %d not owned by graph", op, output.ID())
			}
		}
		for _, pred := range op.Predecessors() {
			if !slices.Contains(g.ops, pred) {
				return fmt.Errorf("%s predecessor %s not owned by graph", op, pred)
			}
		}
		for _, succ := range op.Successors() {
			if !slices.Contains(g.ops, succ) {
				return fmt.Errorf("%s successor %s not owned by graph", op, succ)
			}
		}
	}

	seen := make(map[int64]bool, len(g.tensors))
	for _, t := range g.tensors {
		if seen[t.ID()] {
			return fmt.Errorf("duplicate tensor id %d", t.ID())
		}
		seen[t.ID()] = true
	}

	return nil
}
