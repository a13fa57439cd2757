package graph

import (
	"fmt"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// OpKind tags an operator with its kind. The graph engine treats operators
// as opaque except for the rewrite optimizer, which pattern-matches on
// KindTranspose and KindMatMul.
type OpKind int

const (
	KindInvalid OpKind = iota
	KindMatMul
	KindTranspose
	KindConcat
	KindRelu
	KindSigmoid
	KindTanh
	KindClip
	KindCast
	KindAdd
	KindSub
	KindMul
	KindDiv
)

func (k OpKind) String() string {
	switch k {
	case KindMatMul:
		return "MatMul"
	case KindTranspose:
		return "Transpose"
	case KindConcat:
		return "Concat"
	case KindRelu:
		return "Relu"
	case KindSigmoid:
		return "Sigmoid"
	case KindTanh:
		return "Tanh"
	case KindClip:
		return "Clip"
	case KindCast:
		return "Cast"
	case KindAdd:
		return "Add"
	case KindSub:
		return "Sub"
	case KindMul:
		return "Mul"
	case KindDiv:
		return "Div"
	default:
		return fmt.Sprintf("Invalid(%d)", int(k))
	}
}

// ParseKind maps a kind name back to its OpKind.
func ParseKind(s string) (OpKind, error) {
	for k := KindMatMul; k <= KindDiv; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown operator kind %q", s)
}

// Operator is the contract an operator kind implements to participate in a
// Graph. Concrete kinds embed OpBase, which supplies identity, tensor lists
// and the connectivity bookkeeping; the kind itself supplies the shape and
// type inference.
type Operator interface {
	ID() int64
	Kind() OpKind
	Inputs() []*Tensor
	Outputs() []*Tensor
	Predecessors() []Operator
	Successors() []Operator

	// InferShapes derives the output shapes from the current input shapes.
	// Failure means the model graph is structurally invalid for this kind.
	InferShapes() ([]shapes.Shape, error)

	// InferTypes derives the output data types from the current input types.
	InferTypes() []dtypes.DataType

	fmt.Stringer

	// connectivity mutators, satisfied by the embedded OpBase
	setID(id int64)
	addPredecessor(op Operator)
	removePredecessor(op Operator)
	addSuccessor(op Operator)
	removeSuccessor(op Operator)
	replaceInput(old, new *Tensor)
}

// TransposeOp is the capability the optimizer needs from an axis-permuting
// operator. A KindTranspose operator that does not satisfy it is treated as
// "pattern does not match", never as a fault.
type TransposeOp interface {
	Operator
	Permutation() []int
}

// MatMulOp is the capability the optimizer needs from a matrix multiply.
type MatMulOp interface {
	Operator
	TransA() bool
	TransB() bool
	SetTransA(v bool)
	SetTransB(v bool)
}

// OpBase carries the state common to every operator kind. Embed it by value;
// its pointer-receiver methods satisfy the connectivity part of Operator.
type OpBase struct {
	id      int64
	kind    OpKind
	inputs  []*Tensor
	outputs []*Tensor
	preds   []Operator
	succs   []Operator
}

// NewOpBase builds the embedded base for a concrete operator kind.
func NewOpBase(kind OpKind, inputs, outputs []*Tensor) OpBase {
	return OpBase{kind: kind, inputs: inputs, outputs: outputs}
}

func (b *OpBase) ID() int64                { return b.id }
func (b *OpBase) Kind() OpKind             { return b.kind }
func (b *OpBase) Inputs() []*Tensor        { return b.inputs }
func (b *OpBase) Outputs() []*Tensor       { return b.outputs }
func (b *OpBase) Predecessors() []Operator { return b.preds }
func (b *OpBase) Successors() []Operator   { return b.succs }

func (b *OpBase) String() string {
	return fmt.Sprintf("%s[%d]", b.kind, b.id)
}

func (b *OpBase) setID(id int64) { b.id = id }

func (b *OpBase) addPredecessor(op Operator) {
	for _, p := range b.preds {
		if p == op {
			return
		}
	}
	b.preds = append(b.preds, op)
}

func (b *OpBase) removePredecessor(op Operator) {
	for i, p := range b.preds {
		if p == op {
			b.preds = append(b.preds[:i], b.preds[i+1:]...)
			return
		}
	}
}

func (b *OpBase) addSuccessor(op Operator) {
	for _, s := range b.succs {
		if s == op {
			return
		}
	}
	b.succs = append(b.succs, op)
}

func (b *OpBase) removeSuccessor(op Operator) {
	for i, s := range b.succs {
		if s == op {
			b.succs = append(b.succs[:i], b.succs[i+1:]...)
			return
		}
	}
}

func (b *OpBase) replaceInput(old, new *Tensor) {
	for i, in := range b.inputs {
		if in == old {
			b.inputs[i] = new
		}
	}
}

// IsInversePermutation reports whether q undoes p: q[p[i]] == i for all i.
func IsInversePermutation(p, q []int) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] < 0 || p[i] >= len(q) || q[p[i]] != i {
			return false
		}
	}
	return true
}

// InversePermutation returns the permutation that undoes p.
func InversePermutation(p []int) []int {
	inv := make([]int, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv
}

// SwapsLastTwo reports whether p is the identity on all axes except the last
// two, which it swaps.
func SwapsLastTwo(p []int, rank int) bool {
	if len(p) != rank || rank < 2 {
		return false
	}
	for i := 0; i < rank-2; i++ {
		if p[i] != i {
			return false
		}
	}
	return p[rank-2] == rank-1 && p[rank-1] == rank-2
}
