// Package ops is the operator catalogue: value types implementing the
// graph.Operator shape/type-inference contract for each supported kind.
package ops

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// MatMul multiplies the last two axes of its operands, with per-operand
// transpose flags in the Gemm style: a set flag swaps that operand's last two
// axes before the multiply.
type MatMul struct {
	graph.OpBase
	transA bool
	transB bool
}

var _ graph.MatMulOp = (*MatMul)(nil)

func NewMatMul(a, b, out *graph.Tensor, transA, transB bool) *MatMul {
	return &MatMul{
		OpBase: graph.NewOpBase(graph.KindMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{out}),
		transA: transA,
		transB: transB,
	}
}

func (m *MatMul) TransA() bool     { return m.transA }
func (m *MatMul) TransB() bool     { return m.transB }
func (m *MatMul) SetTransA(v bool) { m.transA = v }
func (m *MatMul) SetTransB(v bool) { m.transB = v }

func (m *MatMul) InferShapes() ([]shapes.Shape, error) {
	shapeA := m.Inputs()[0].Shape().Clone()
	shapeB := m.Inputs()[1].Shape().Clone()

	if m.transA {
		if shapeA.Rank() < 2 {
			return nil, fmt.Errorf("transA on operand of rank %d", shapeA.Rank())
		}
		last := shapeA.Rank() - 1
		shapeA[last-1], shapeA[last] = shapeA[last], shapeA[last-1]
	}
	if m.transB {
		if shapeB.Rank() < 2 {
			return nil, fmt.Errorf("transB on operand of rank %d", shapeB.Rank())
		}
		last := shapeB.Rank() - 1
		shapeB[last-1], shapeB[last] = shapeB[last], shapeB[last-1]
	}

	if shapeA.Rank() < 2 || shapeB.Rank() < 2 {
		return nil, fmt.Errorf("matmul operands must have rank >= 2, got %s and %s", shapeA, shapeB)
	}
	if shapeA[shapeA.Rank()-1] != shapeB[shapeB.Rank()-2] {
		return nil, fmt.Errorf("inner dimensions disagree: %s x %s", shapeA, shapeB)
	}

	out := shapeA[:shapeA.Rank()-2].Clone()
	out = append(out, shapeA[shapeA.Rank()-2], shapeB[shapeB.Rank()-1])
	return []shapes.Shape{out}, nil
}

func (m *MatMul) InferTypes() []dtypes.DataType {
	return []dtypes.DataType{m.Inputs()[0].DataType()}
}

func (m *MatMul) String() string {
	a, b := "A", "B"
	if m.transA {
		a = "A^T"
	}
	if m.transB {
		b = "B^T"
	}
	return fmt.Sprintf("MatMul[%d](%s,%s,in=%d,%d,out=%d)",
		m.ID(), a, b, m.Inputs()[0].ID(), m.Inputs()[1].ID(), m.Outputs()[0].ID())
}
