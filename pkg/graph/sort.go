package graph

import "fmt"

// TopoSort orders the operator list so that every operator follows all
// operators producing its inputs. The result is cached until the next
// structural mutation.
//
// The algorithm is layer-by-layer relaxation: each pass over the not-yet
// placed operators places those whose input producers are all placed (or
// absent), preserving list order within a pass. A pass that places nothing
// while operators remain means the graph has a cycle; the operator list is
// left untouched in that case.
func (g *Graph) TopoSort() error {
	if g.sorted {
		return nil
	}

	order := make([]Operator, 0, len(g.ops))
	placed := make(map[Operator]bool, len(g.ops))

	for len(order) < len(g.ops) {
		progress := false
		for _, op := range g.ops {
			if placed[op] {
				continue
			}
			ready := true
			for _, input := range op.Inputs() {
				if producer := input.Producer(); producer != nil && !placed[producer] {
					ready = false
					break
				}
			}
			if ready {
				placed[op] = true
				order = append(order, op)
				progress = true
			}
		}
		if !progress {
			var remaining []int64
			for _, op := range g.ops {
				if !placed[op] {
					remaining = append(remaining, op.ID())
				}
			}
			return fmt.Errorf("graph contains a cycle: operators %v cannot be ordered", remaining)
		}
	}

	g.ops = order
	g.sorted = true
	return nil
}

// Sorted reports whether the cached topological order is current.
func (g *Graph) Sorted() bool { return g.sorted }
