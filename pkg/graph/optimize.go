package graph

import (
	"context"
	"slices"

	"k8s.io/klog/v2"
)

// maxOptimizeIterations caps the fixed-point loop so a buggy rewrite cycle
// cannot spin forever. Hitting the cap is a missed optimization, not an error.
const maxOptimizeIterations = 10

// Optimize alternates the two local rewrites until a full pass fires neither,
// or the iteration cap is reached. Every rewrite keeps producer/consumer and
// predecessor/successor links symmetric on all touched nodes and is atomic
// per pattern instance.
func (g *Graph) Optimize(ctx context.Context) {
	log := klog.FromContext(ctx)

	changed := true
	iterations := 0
	for changed && iterations < maxOptimizeIterations {
		changed = false
		iterations++
		if g.removeInverseTransposePairs() {
			changed = true
		}
		if g.fuseTransposeIntoMatMul() {
			changed = true
		}
	}
	if changed {
		log.V(2).Info("optimizer stopped at iteration cap", "iterations", iterations)
	} else {
		log.V(2).Info("optimizer reached fixed point", "iterations", iterations)
	}
}

// removeInverseTransposePairs splices out transpose(transpose(x, p), q) when
// q is the exact inverse of p and the intermediate tensor has no other
// consumer, reconnecting x directly to everything that read the pair's
// output.
func (g *Graph) removeInverseTransposePairs() bool {
	changed := false

	i := 0
	for i < len(g.ops) {
		op1 := g.ops[i]
		if op1.Kind() != KindTranspose {
			i++
			continue
		}
		first, ok := op1.(TransposeOp)
		if !ok {
			i++
			continue
		}

		middle := op1.Outputs()[0]
		consumers := middle.Consumers()
		if len(consumers) != 1 {
			i++
			continue
		}

		op2 := consumers[0]
		if op2.Kind() != KindTranspose {
			i++
			continue
		}
		second, ok := op2.(TransposeOp)
		if !ok {
			i++
			continue
		}

		if !IsInversePermutation(first.Permutation(), second.Permutation()) {
			i++
			continue
		}

		input := op1.Inputs()[0]
		output := op2.Outputs()[0]
		source := input.Producer()

		// Everything that read the pair's output now reads its input.
		for _, succ := range slices.Clone(output.Consumers()) {
			succ.replaceInput(output, input)
			input.addConsumer(succ)
			succ.removePredecessor(op2)
			if source != nil {
				source.addSuccessor(succ)
				succ.addPredecessor(source)
			}
		}

		if source != nil {
			source.removeSuccessor(op1)
		}
		op1.removeSuccessor(op2)
		op2.removePredecessor(op1)
		input.removeConsumer(op1)

		g.RemoveOperator(op1)
		g.RemoveOperator(op2)
		g.RemoveTensor(middle)
		g.RemoveTensor(output)

		changed = true
		// the removal restarts the scan at the same list position
	}

	return changed
}

// fuseTransposeIntoMatMul folds a last-two-axes transpose feeding a matmul
// operand into the matmul's corresponding transpose flag, applied
// independently to both operands.
func (g *Graph) fuseTransposeIntoMatMul() bool {
	changed := false

	// Matmuls are never removed by this pass, so a snapshot visits each
	// exactly once even as transposes are deleted.
	for _, op := range slices.Clone(g.ops) {
		if op.Kind() != KindMatMul {
			continue
		}
		matmul, ok := op.(MatMulOp)
		if !ok {
			continue
		}

		// re-read the input slot per side: fusing side 0 rewires the list
		for side := 0; side < 2; side++ {
			inputs := op.Inputs()
			if len(inputs) < 2 {
				break
			}
			input := inputs[side]

			transposeOp := input.Producer()
			if transposeOp == nil || transposeOp.Kind() != KindTranspose || len(input.Consumers()) != 1 {
				continue
			}
			transpose, ok := transposeOp.(TransposeOp)
			if !ok {
				continue
			}
			if !SwapsLastTwo(transpose.Permutation(), input.Shape().Rank()) {
				continue
			}

			original := transposeOp.Inputs()[0]
			originalSource := original.Producer()

			if side == 0 {
				matmul.SetTransA(!matmul.TransA())
			} else {
				matmul.SetTransB(!matmul.TransB())
			}
			op.replaceInput(input, original)

			original.removeConsumer(transposeOp)
			original.addConsumer(op)

			op.removePredecessor(transposeOp)
			if originalSource != nil {
				originalSource.removeSuccessor(transposeOp)
				originalSource.addSuccessor(op)
				op.addPredecessor(originalSource)
			}

			g.RemoveOperator(transposeOp)
			g.RemoveTensor(input)
			changed = true
		}
	}

	return changed
}
