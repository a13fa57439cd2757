package ops

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// Concat joins its inputs along one axis. All inputs must share rank and
// every non-axis dimension.
type Concat struct {
	graph.OpBase
	axis int
}

var _ graph.Operator = (*Concat)(nil)

// NewConcat builds a concat along axis, which may be negative in the usual
// from-the-end convention and is normalized against the first input's rank.
func NewConcat(inputs []*graph.Tensor, out *graph.Tensor, axis int) (*Concat, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("concat needs at least one input")
	}
	normalized, err := shapes.NormalizeAxis(axis, inputs[0].Shape().Rank())
	if err != nil {
		return nil, err
	}
	return &Concat{
		OpBase: graph.NewOpBase(graph.KindConcat, inputs, []*graph.Tensor{out}),
		axis:   normalized,
	}, nil
}

func (c *Concat) Axis() int { return c.axis }

func (c *Concat) InferShapes() ([]shapes.Shape, error) {
	inputs := c.Inputs()
	out := inputs[0].Shape().Clone()
	rank := out.Rank()

	for _, input := range inputs {
		if input.Shape().Rank() != rank {
			return nil, fmt.Errorf("rank mismatch: %s vs %s", inputs[0].Shape(), input.Shape())
		}
	}
	for _, input := range inputs[1:] {
		for axis, dim := range input.Shape() {
			if axis != c.axis && dim != out[axis] {
				return nil, fmt.Errorf("dimension %d mismatch: %s vs %s", axis, inputs[0].Shape(), input.Shape())
			}
		}
	}

	out[c.axis] = 0
	for _, input := range inputs {
		out[c.axis] += input.Shape()[c.axis]
	}
	return []shapes.Shape{out}, nil
}

func (c *Concat) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{c.Inputs()[0].DataType()}
}

func (c *Concat) String() string {
	ids := make([]int64, len(c.Inputs()))
	for i, input := range c.Inputs() {
		ids[i] = input.ID()
	}
	return fmt.Sprintf("Concat[%d](axis=%d,in=%v,out=%d)", c.ID(), c.axis, ids, c.Outputs()[0].ID())
}
