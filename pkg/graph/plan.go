package graph

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// PlanMemory assigns every owned tensor a logical arena offset, commits the
// single real buffer and binds each tensor's data view into it. The three
// phases run strictly in order: no real memory is touched until every offset
// is planned, so exactly one backend allocation happens regardless of model
// size.
//
// The base flow never frees an offset, so tensors that are logically dead
// before others allocate only recycle space when a caller frees their spans
// explicitly during planning.
func (g *Graph) PlanMemory(ctx context.Context) error {
	log := klog.FromContext(ctx)

	if err := g.TopoSort(); err != nil {
		return fmt.Errorf("planning memory: %w", err)
	}
	if err := g.CheckValid(); err != nil {
		return fmt.Errorf("planning memory: %w", err)
	}
	if len(g.tensors) == 0 {
		return nil
	}

	offsets := make([]int64, len(g.tensors))
	for i, t := range g.tensors {
		offsets[i] = g.arena.Alloc(t.Bytes())
	}

	buf, err := g.arena.Buffer(ctx)
	if err != nil {
		return fmt.Errorf("planning memory: %w", err)
	}

	for i, t := range g.tensors {
		t.offset = offsets[i]
		t.data = buf[offsets[i] : offsets[i]+t.Bytes()]
	}

	log.Info("planned memory", "tensors", len(g.tensors), "used", g.arena.Used(), "peak", g.arena.Peak())
	return nil
}
