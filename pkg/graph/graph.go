// Package graph represents a neural-network computation as a directed graph
// of operators and tensors. The graph owns every tensor and operator added to
// it, maintains bidirectional connectivity between them, and layers
// topological sorting, shape/type inference, validity checking, a rewrite
// optimizer and arena-backed memory planning on top.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tensorplan/tensorplan/pkg/arena"
	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

type Graph struct {
	arena *arena.Arena

	tensors []*Tensor
	ops     []Operator

	// sorted caches a successful topological sort; any structural mutation
	// resets it.
	sorted bool

	nextTensorID int64
	nextOpID     int64
}

// New creates an empty graph whose memory plan will commit against backend.
func New(backend arena.Backend) *Graph {
	return &Graph{
		arena:        arena.New(backend),
		nextTensorID: 1,
		nextOpID:     1,
	}
}

// Arena exposes the graph's allocator for diagnostics.
func (g *Graph) Arena() *arena.Arena { return g.arena }

// NewTensor creates a tensor owned by this graph with a fresh identity.
func (g *Graph) NewTensor(shape shapes.Shape, dtype dtypes.DataType) *Tensor {
	t := &Tensor{
		id:    g.nextTensorID,
		shape: shape.Clone(),
		dtype: dtype,
	}
	g.nextTensorID++
	g.sorted = false
	g.tensors = append(g.tensors, t)
	return t
}

// RestoreTensor creates a tensor with a caller-supplied identity, used when
// rebuilding a graph from a serialized form. The identity must be unused.
func (g *Graph) RestoreTensor(id int64, shape shapes.Shape, dtype dtypes.DataType) (*Tensor, error) {
	if id <= 0 {
		return nil, fmt.Errorf("tensor id %d must be positive", id)
	}
	if g.TensorByID(id) != nil {
		return nil, fmt.Errorf("tensor id %d already in use", id)
	}
	t := &Tensor{id: id, shape: shape.Clone(), dtype: dtype}
	if id >= g.nextTensorID {
		g.nextTensorID = id + 1
	}
	g.sorted = false
	g.tensors = append(g.tensors, t)
	return t, nil
}

// Tensors returns the owned tensors in insertion order.
func (g *Graph) Tensors() []*Tensor { return g.tensors }

// Operators returns the owned operators, in topological order after a
// successful sort.
func (g *Graph) Operators() []Operator { return g.ops }

// TensorByID finds an owned tensor by its stable identity.
func (g *Graph) TensorByID(id int64) *Tensor {
	for _, t := range g.tensors {
		if t.id == id {
			return t
		}
	}
	return nil
}

// Connect adds an operator to the graph and derives its edges: each input
// tensor records the operator as a consumer (and links producer and operator
// as predecessor/successor), each output tensor records it as producer (and
// links it to any consumers already present). Connect is idempotent: edge
// sets are sets, so connecting the same operator twice changes nothing.
func (g *Graph) Connect(op Operator) {
	g.sorted = false
	if op.ID() == 0 {
		op.setID(g.nextOpID)
		g.nextOpID++
	}
	if !slices.Contains(g.ops, op) {
		g.ops = append(g.ops, op)
	}

	for _, input := range op.Inputs() {
		if input == nil {
			continue
		}
		input.addConsumer(op)
		if pred := input.Producer(); pred != nil {
			pred.addSuccessor(op)
			op.addPredecessor(pred)
		}
	}

	for _, output := range op.Outputs() {
		if output == nil {
			continue
		}
		output.setProducer(op)
		for _, succ := range output.Consumers() {
			succ.addPredecessor(op)
			op.addSuccessor(succ)
		}
	}
}

// RemoveOperator removes the operator from the owned set. Callers are
// responsible for detaching its edges first.
func (g *Graph) RemoveOperator(op Operator) {
	g.sorted = false
	if i := slices.Index(g.ops, op); i >= 0 {
		g.ops = slices.Delete(g.ops, i, i+1)
	}
}

// RemoveTensor removes the tensor from the owned set.
func (g *Graph) RemoveTensor(t *Tensor) {
	g.sorted = false
	if i := slices.Index(g.tensors, t); i >= 0 {
		g.tensors = slices.Delete(g.tensors, i, i+1)
	}
}

func (g *Graph) String() string {
	var sb strings.Builder
	sb.WriteString("Graph tensors:\n")
	for _, t := range g.tensors {
		fmt.Fprintf(&sb, "  %s\n", t)
	}
	sb.WriteString("Graph operators:\n")
	for _, op := range g.ops {
		preds := make([]int64, 0, len(op.Predecessors()))
		for _, p := range op.Predecessors() {
			preds = append(preds, p.ID())
		}
		succs := make([]int64, 0, len(op.Successors()))
		for _, s := range op.Successors() {
			succs = append(succs, s.ID())
		}
		fmt.Fprintf(&sb, "  %s pred=%v succ=%v\n", op, preds, succs)
	}
	return sb.String()
}
