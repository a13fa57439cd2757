package ops

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// Transpose reorders axes: output axis i takes input axis perm[i].
type Transpose struct {
	graph.OpBase
	perm []int
}

var _ graph.TransposeOp = (*Transpose)(nil)

func NewTranspose(in, out *graph.Tensor, perm []int) (*Transpose, error) {
	seen := make([]bool, len(perm))
	for _, axis := range perm {
		if axis < 0 || axis >= len(perm) || seen[axis] {
			return nil, fmt.Errorf("%v is not a permutation", perm)
		}
		seen[axis] = true
	}
	return &Transpose{
		OpBase: graph.NewOpBase(graph.KindTranspose, []*graph.Tensor{in}, []*graph.Tensor{out}),
		perm:   append([]int(nil), perm...),
	}, nil
}

func (t *Transpose) Permutation() []int { return t.perm }

func (t *Transpose) InferShapes() ([]shapes.Shape, error) {
	in := t.Inputs()[0].Shape()
	if in.Rank() != len(t.perm) {
		return nil, fmt.Errorf("permutation %v on input of rank %d", t.perm, in.Rank())
	}
	out := make(shapes.Shape, in.Rank())
	for i, axis := range t.perm {
		out[i] = in[axis]
	}
	return []shapes.Shape{out}, nil
}

func (t *Transpose) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{t.Inputs()[0].DataType()}
}

func (t *Transpose) String() string {
	return fmt.Sprintf("Transpose[%d](perm=%v,in=%d,out=%d)",
		t.ID(), t.perm, t.Inputs()[0].ID(), t.Outputs()[0].ID())
}
