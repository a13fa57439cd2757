package graph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

// Tensor is a typed, shaped buffer descriptor owned by a Graph. Its identity
// is stable for the tensor's whole life; the shape may be rewritten in place
// by shape inference. A tensor has at most one producing operator (nil means
// graph input) and any number of consuming operators.
type Tensor struct {
	id    int64
	shape shapes.Shape
	dtype dtypes.DataType

	producer  Operator
	consumers []Operator

	// set by PlanMemory
	offset int64
	data   []byte
}

// ID returns the tensor's stable identity within its graph.
func (t *Tensor) ID() int64 { return t.id }

func (t *Tensor) Shape() shapes.Shape { return t.shape }

// SetShape rewrites the shape in place. Identity is unaffected.
func (t *Tensor) SetShape(shape shapes.Shape) { t.shape = shape.Clone() }

func (t *Tensor) DataType() dtypes.DataType { return t.dtype }

func (t *Tensor) SetDataType(dtype dtypes.DataType) { t.dtype = dtype }

// Producer returns the operator that writes this tensor, or nil for a graph
// input.
func (t *Tensor) Producer() Operator { return t.producer }

// Consumers returns the operators that read this tensor.
func (t *Tensor) Consumers() []Operator { return t.consumers }

// Bytes returns the planning size: element count times element width.
func (t *Tensor) Bytes() int64 {
	return t.shape.ElemCount() * t.dtype.Size()
}

// Offset returns the logical arena offset assigned by PlanMemory.
func (t *Tensor) Offset() int64 { return t.offset }

// Data returns the buffer view bound by PlanMemory, nil before planning.
func (t *Tensor) Data() []byte { return t.data }

func (t *Tensor) String() string {
	producer := int64(-1)
	if t.producer != nil {
		producer = t.producer.ID()
	}
	consumers := make([]int64, len(t.consumers))
	for i, c := range t.consumers {
		consumers[i] = c.ID()
	}
	return fmt.Sprintf("Tensor %d %s %s producer=%d consumers=%v", t.id, t.shape, t.dtype, producer, consumers)
}

func (t *Tensor) setProducer(op Operator) { t.producer = op }

func (t *Tensor) addConsumer(op Operator) {
	for _, c := range t.consumers {
		if c == op {
			return
		}
	}
	t.consumers = append(t.consumers, op)
}

func (t *Tensor) removeConsumer(op Operator) {
	for i, c := range t.consumers {
		if c == op {
			t.consumers = append(t.consumers[:i], t.consumers[i+1:]...)
			return
		}
	}
}

// Float32s decodes the bound buffer as float32 elements.
func (t *Tensor) Float32s() ([]float32, error) {
	if err := t.checkBound(dtypes.Float32); err != nil {
		return nil, err
	}
	out := make([]float32, t.shape.ElemCount())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.data[i*4:]))
	}
	return out, nil
}

// SetFloat32s encodes values into the bound buffer.
func (t *Tensor) SetFloat32s(values []float32) error {
	if err := t.checkBound(dtypes.Float32); err != nil {
		return err
	}
	if int64(len(values)) != t.shape.ElemCount() {
		return fmt.Errorf("tensor %d: %d values for %d elements", t.id, len(values), t.shape.ElemCount())
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(t.data[i*4:], math.Float32bits(v))
	}
	return nil
}

// Float16s decodes a half-precision buffer into float32 values.
func (t *Tensor) Float16s() ([]float32, error) {
	if err := t.checkBound(dtypes.Float16); err != nil {
		return nil, err
	}
	out := make([]float32, t.shape.ElemCount())
	for i := range out {
		out[i] = dtypes.DecodeF16(binary.LittleEndian.Uint16(t.data[i*2:]))
	}
	return out, nil
}

// SetFloat16s encodes float32 values into a half-precision buffer.
func (t *Tensor) SetFloat16s(values []float32) error {
	if err := t.checkBound(dtypes.Float16); err != nil {
		return err
	}
	if int64(len(values)) != t.shape.ElemCount() {
		return fmt.Errorf("tensor %d: %d values for %d elements", t.id, len(values), t.shape.ElemCount())
	}
	for i, v := range values {
		binary.LittleEndian.PutUint16(t.data[i*2:], dtypes.EncodeF16(v))
	}
	return nil
}

func (t *Tensor) checkBound(want dtypes.DataType) error {
	if t.data == nil {
		return fmt.Errorf("tensor %d has no bound buffer (memory not planned)", t.id)
	}
	if t.dtype != want {
		return fmt.Errorf("tensor %d is %s, not %s", t.id, t.dtype, want)
	}
	return nil
}
