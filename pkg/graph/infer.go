package graph

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// InferShapes walks the operators in topological order, asks each for its
// output shapes and rewrites mismatched tensor shapes in place. Tensors are
// located by stable identity, not list position, since rewrites may have
// replaced or reordered them. An operator that cannot infer its shapes makes
// the whole walk fail.
func (g *Graph) InferShapes(ctx context.Context) error {
	log := klog.FromContext(ctx)
	if err := g.TopoSort(); err != nil {
		return err
	}

	for _, op := range g.ops {
		inferred, err := op.InferShapes()
		if err != nil {
			return fmt.Errorf("inferring shapes for %s: %w", op, err)
		}
		outputs := op.Outputs()
		if len(inferred) != len(outputs) {
			return fmt.Errorf("%s inferred %d output shapes for %d outputs", op, len(inferred), len(outputs))
		}
		for i, newShape := range inferred {
			oldShape := outputs[i].Shape()
			if newShape.Equal(oldShape) {
				continue
			}
			tensor := g.TensorByID(outputs[i].ID())
			if tensor == nil {
				return fmt.Errorf("%s output tensor %d not owned by graph", op, outputs[i].ID())
			}
			tensor.SetShape(newShape)
			log.V(4).Info("rewrote tensor shape", "tensor", tensor.ID(), "from", oldShape, "to", newShape)
		}
	}
	return nil
}

// InferTypes mirrors InferShapes for element types, updating output tensors
// whose recorded data type disagrees with the operator's contract.
func (g *Graph) InferTypes(ctx context.Context) error {
	log := klog.FromContext(ctx)
	if err := g.TopoSort(); err != nil {
		return err
	}

	for _, op := range g.ops {
		inferred := op.InferTypes()
		outputs := op.Outputs()
		if len(inferred) != len(outputs) {
			return fmt.Errorf("%s inferred %d output types for %d outputs", op, len(inferred), len(outputs))
		}
		for i, newType := range inferred {
			if newType == outputs[i].DataType() {
				continue
			}
			tensor := g.TensorByID(outputs[i].ID())
			if tensor == nil {
				return fmt.Errorf("%s output tensor %d not owned by graph", op, outputs[i].ID())
			}
			log.V(4).Info("rewrote tensor type", "tensor", tensor.ID(), "from", tensor.DataType(), "to", newType)
			tensor.SetDataType(newType)
		}
	}
	return nil
}
