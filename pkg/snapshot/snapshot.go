// Package snapshot serializes graphs to a small versioned document and
// rebuilds them through the graph connectivity API. Documents are JSON;
// YAML is accepted on the way in.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/tensorplan/tensorplan/pkg/arena"
	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/ops"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

const APIVersion = "tensorplan/v1"

type Document struct {
	APIVersion string         `json:"apiVersion"`
	Tensors    []TensorSpec   `json:"tensors"`
	Operators  []OperatorSpec `json:"operators"`
}

type TensorSpec struct {
	ID    int64  `json:"id"`
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
}

type OperatorSpec struct {
	Kind    string  `json:"kind"`
	Inputs  []int64 `json:"inputs"`
	Outputs []int64 `json:"outputs"`

	// kind-specific attributes
	Perm   []int    `json:"perm,omitempty"`
	TransA bool     `json:"transA,omitempty"`
	TransB bool     `json:"transB,omitempty"`
	Axis   *int     `json:"axis,omitempty"`
	Cast   *int     `json:"cast,omitempty"`
	Min    *float32 `json:"min,omitempty"`
	Max    *float32 `json:"max,omitempty"`
}

// Marshal encodes the graph as canonical JSON.
func Marshal(g *graph.Graph) ([]byte, error) {
	doc := Document{APIVersion: APIVersion}

	for _, t := range g.Tensors() {
		doc.Tensors = append(doc.Tensors, TensorSpec{
			ID:    t.ID(),
			Shape: []int(t.Shape()),
			DType: t.DataType().String(),
		})
	}

	for _, op := range g.Operators() {
		spec := OperatorSpec{Kind: op.Kind().String()}
		for _, in := range op.Inputs() {
			spec.Inputs = append(spec.Inputs, in.ID())
		}
		for _, out := range op.Outputs() {
			spec.Outputs = append(spec.Outputs, out.ID())
		}
		switch op := op.(type) {
		case *ops.Transpose:
			spec.Perm = op.Permutation()
		case *ops.MatMul:
			spec.TransA = op.TransA()
			spec.TransB = op.TransB()
		case *ops.Concat:
			axis := op.Axis()
			spec.Axis = &axis
		case *ops.Cast:
			kind := int(op.CastKind())
			spec.Cast = &kind
		case *ops.Clip:
			spec.Min = op.Min()
			spec.Max = op.Max()
		}
		doc.Operators = append(doc.Operators, spec)
	}

	return json.Marshal(doc)
}

// MarshalYAML encodes the graph as YAML.
func MarshalYAML(g *graph.Graph) ([]byte, error) {
	data, err := Marshal(g)
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(data)
}

// Unmarshal rebuilds a graph from a JSON or YAML document. Tensor identities
// are preserved, and every operator is attached through Connect, so the
// result passes CheckValid.
func Unmarshal(data []byte, backend arena.Backend) (*graph.Graph, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if doc.APIVersion != APIVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", doc.APIVersion)
	}

	g := graph.New(backend)
	for _, spec := range doc.Tensors {
		dtype, err := dtypes.Parse(spec.DType)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", spec.ID, err)
		}
		if _, err := g.RestoreTensor(spec.ID, shapes.Shape(spec.Shape), dtype); err != nil {
			return nil, err
		}
	}

	for i, spec := range doc.Operators {
		op, err := buildOperator(g, spec)
		if err != nil {
			return nil, fmt.Errorf("operator %d (%s): %w", i, spec.Kind, err)
		}
		g.Connect(op)
	}

	return g, nil
}

func buildOperator(g *graph.Graph, spec OperatorSpec) (graph.Operator, error) {
	kind, err := graph.ParseKind(spec.Kind)
	if err != nil {
		return nil, err
	}

	inputs, err := resolveTensors(g, spec.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := resolveTensors(g, spec.Outputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	out := outputs[0]

	switch kind {
	case graph.KindMatMul:
		if len(inputs) != 2 {
			return nil, fmt.Errorf("expected 2 inputs, got %d", len(inputs))
		}
		return ops.NewMatMul(inputs[0], inputs[1], out, spec.TransA, spec.TransB), nil
	case graph.KindTranspose:
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}
		return ops.NewTranspose(inputs[0], out, spec.Perm)
	case graph.KindConcat:
		if spec.Axis == nil {
			return nil, fmt.Errorf("concat needs an axis")
		}
		return ops.NewConcat(inputs, out, *spec.Axis)
	case graph.KindRelu, graph.KindSigmoid, graph.KindTanh:
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}
		switch kind {
		case graph.KindRelu:
			return ops.NewRelu(inputs[0], out), nil
		case graph.KindSigmoid:
			return ops.NewSigmoid(inputs[0], out), nil
		default:
			return ops.NewTanh(inputs[0], out), nil
		}
	case graph.KindClip:
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}
		return ops.NewClip(inputs[0], out, spec.Min, spec.Max), nil
	case graph.KindCast:
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}
		if spec.Cast == nil {
			return nil, fmt.Errorf("cast needs a cast kind")
		}
		return ops.NewCast(inputs[0], out, dtypes.CastKind(*spec.Cast)), nil
	case graph.KindAdd, graph.KindSub, graph.KindMul, graph.KindDiv:
		if len(inputs) != 2 {
			return nil, fmt.Errorf("expected 2 inputs, got %d", len(inputs))
		}
		switch kind {
		case graph.KindAdd:
			return ops.NewAdd(inputs[0], inputs[1], out), nil
		case graph.KindSub:
			return ops.NewSub(inputs[0], inputs[1], out), nil
		case graph.KindMul:
			return ops.NewMul(inputs[0], inputs[1], out), nil
		default:
			return ops.NewDiv(inputs[0], inputs[1], out), nil
		}
	default:
		return nil, fmt.Errorf("kind %s not supported in snapshots", kind)
	}
}

func resolveTensors(g *graph.Graph, ids []int64) ([]*graph.Tensor, error) {
	tensors := make([]*graph.Tensor, len(ids))
	for i, id := range ids {
		t := g.TensorByID(id)
		if t == nil {
			return nil, fmt.Errorf("references unknown tensor %d", id)
		}
		tensors[i] = t
	}
	return tensors, nil
}

// Digest returns the content address of an encoded snapshot: the hex sha256
// of its bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
