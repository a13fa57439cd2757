package ops

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// Unary is a single-input, single-output, shape-preserving operator.
type Unary struct {
	graph.OpBase
}

var _ graph.Operator = (*Unary)(nil)

func NewRelu(in, out *graph.Tensor) *Unary    { return newUnary(graph.KindRelu, in, out) }
func NewSigmoid(in, out *graph.Tensor) *Unary { return newUnary(graph.KindSigmoid, in, out) }
func NewTanh(in, out *graph.Tensor) *Unary    { return newUnary(graph.KindTanh, in, out) }

func newUnary(kind graph.OpKind, in, out *graph.Tensor) *Unary {
	return &Unary{OpBase: graph.NewOpBase(kind, []*graph.Tensor{in}, []*graph.Tensor{out})}
}

func (u *Unary) InferShapes() ([]shapes.Shape, error) {
	return []shapes.Shape{u.Inputs()[0].Shape().Clone()}, nil
}

func (u *Unary) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{u.Inputs()[0].DataType()}
}

func (u *Unary) String() string {
	return fmt.Sprintf("%s[%d](%s,in=%d,out=%d)",
		u.Kind(), u.ID(), u.Inputs()[0].Shape(), u.Inputs()[0].ID(), u.Outputs()[0].ID())
}

// Clip limits every element to the [Min, Max] range; a nil bound leaves that
// side open.
type Clip struct {
	graph.OpBase
	min *float32
	max *float32
}

var _ graph.Operator = (*Clip)(nil)

func NewClip(in, out *graph.Tensor, min, max *float32) *Clip {
	return &Clip{
		OpBase: graph.NewOpBase(graph.KindClip, []*graph.Tensor{in}, []*graph.Tensor{out}),
		min:    min,
		max:    max,
	}
}

func (c *Clip) Min() *float32 { return c.min }
func (c *Clip) Max() *float32 { return c.max }

func (c *Clip) InferShapes() ([]shapes.Shape, error) {
	return []shapes.Shape{c.Inputs()[0].Shape().Clone()}, nil
}

func (c *Clip) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{c.Inputs()[0].DataType()}
}

// Cast changes the element type without touching the shape.
type Cast struct {
	graph.OpBase
	castKind dtypes.CastKind
}

var _ graph.Operator = (*Cast)(nil)

func NewCast(in, out *graph.Tensor, castKind dtypes.CastKind) *Cast {
	return &Cast{
		OpBase:   graph.NewOpBase(graph.KindCast, []*graph.Tensor{in}, []*graph.Tensor{out}),
		castKind: castKind,
	}
}

func (c *Cast) CastKind() dtypes.CastKind { return c.castKind }

func (c *Cast) InferShapes() ([]shapes.Shape, error) {
	return []shapes.Shape{c.Inputs()[0].Shape().Clone()}, nil
}

func (c *Cast) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{c.castKind.Target()}
}

func (c *Cast) String() string {
	return fmt.Sprintf("Cast[%d](to=%s,in=%d,out=%d)",
		c.ID(), c.castKind.Target(), c.Inputs()[0].ID(), c.Outputs()[0].ID())
}
