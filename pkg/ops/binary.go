package ops

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// Binary is a two-input elementwise operator with multidirectional
// broadcasting.
type Binary struct {
	graph.OpBase
}

var _ graph.Operator = (*Binary)(nil)

func NewAdd(a, b, out *graph.Tensor) *Binary { return newBinary(graph.KindAdd, a, b, out) }
func NewSub(a, b, out *graph.Tensor) *Binary { return newBinary(graph.KindSub, a, b, out) }
func NewMul(a, b, out *graph.Tensor) *Binary { return newBinary(graph.KindMul, a, b, out) }
func NewDiv(a, b, out *graph.Tensor) *Binary { return newBinary(graph.KindDiv, a, b, out) }

func newBinary(kind graph.OpKind, a, b, out *graph.Tensor) *Binary {
	return &Binary{OpBase: graph.NewOpBase(kind, []*graph.Tensor{a, b}, []*graph.Tensor{out})}
}

func (b *Binary) InferShapes() ([]shapes.Shape, error) {
	out, err := shapes.Broadcast(b.Inputs()[0].Shape(), b.Inputs()[1].Shape())
	if err != nil {
		return nil, err
	}
	return []shapes.Shape{out}, nil
}

func (b *Binary) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{b.Inputs()[0].DataType()}
}

func (b *Binary) String() string {
	return fmt.Sprintf("%s[%d](in=%d,%d,out=%d)",
		b.Kind(), b.ID(), b.Inputs()[0].ID(), b.Inputs()[1].ID(), b.Outputs()[0].ID())
}
