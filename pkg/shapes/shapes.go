// Package shapes provides the dimension-vector value type shared by tensors
// and operator shape inference.
package shapes

import (
	"fmt"
	"slices"
	"strings"
)

// Shape is an ordered list of non-negative dimension sizes. A nil or empty
// shape is a scalar.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// ElemCount returns the number of elements, 1 for a scalar.
func (s Shape) ElemCount() int64 {
	n := int64(1)
	for _, d := range s {
		n *= int64(d)
	}
	return n
}

func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

func (s Shape) String() string {
	if len(s) == 0 {
		return "[]"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

// Broadcast applies ONNX multidirectional broadcasting to a pair of shapes.
// Dimensions are compared right-aligned; each pair must be equal or contain
// a 1, and the output takes the larger of the two.
func Broadcast(a, b Shape) (Shape, error) {
	rank := max(len(a), len(b))
	out := make(Shape, rank)
	for i := 0; i < rank; i++ {
		da, db := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			da = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			db = b[idx]
		}
		if da != db && da != 1 && db != 1 {
			return nil, fmt.Errorf("cannot broadcast %v with %v: dimension %d vs %d", a, b, da, db)
		}
		out[rank-1-i] = max(da, db)
	}
	return out, nil
}

// NormalizeAxis maps a possibly-negative axis to the range [0, rank).
func NormalizeAxis(axis, rank int) (int, error) {
	if rank < 1 {
		return 0, fmt.Errorf("axis %d on rank %d", axis, rank)
	}
	if axis < -rank || axis > rank-1 {
		return 0, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	if axis < 0 {
		return rank + axis, nil
	}
	return axis, nil
}
