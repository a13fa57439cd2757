package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplan/tensorplan/pkg/arena"
	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/ops"
	"github.com/tensorplan/tensorplan/pkg/shapes"
)

func newTensor(g *graph.Graph, shape shapes.Shape) *graph.Tensor {
	return g.NewTensor(shape, dtypes.Float32)
}

func TestMatMulInferShapes(t *testing.T) {
	grid := []struct {
		name    string
		a, b    shapes.Shape
		transA  bool
		transB  bool
		want    shapes.Shape
		wantErr string
	}{
		{name: "plain", a: shapes.Shape{4, 8}, b: shapes.Shape{8, 16}, want: shapes.Shape{4, 16}},
		{name: "batched", a: shapes.Shape{3, 4, 8}, b: shapes.Shape{3, 8, 16}, want: shapes.Shape{3, 4, 16}},
		{name: "transA", a: shapes.Shape{8, 4}, b: shapes.Shape{8, 16}, transA: true, want: shapes.Shape{4, 16}},
		{name: "transB", a: shapes.Shape{4, 8}, b: shapes.Shape{16, 8}, transB: true, want: shapes.Shape{4, 16}},
		{name: "bothTrans", a: shapes.Shape{8, 4}, b: shapes.Shape{16, 8}, transA: true, transB: true, want: shapes.Shape{4, 16}},
		{name: "innerMismatch", a: shapes.Shape{4, 8}, b: shapes.Shape{7, 16}, wantErr: "inner dimensions"},
		{name: "rankTooLow", a: shapes.Shape{8}, b: shapes.Shape{8, 16}, wantErr: "rank"},
	}

	for _, tc := range grid {
		t.Run(tc.name, func(t *testing.T) {
			g := graph.New(arena.HostBackend{})
			a := newTensor(g, tc.a)
			b := newTensor(g, tc.b)
			out := newTensor(g, nil)

			op := ops.NewMatMul(a, b, out, tc.transA, tc.transB)
			inferred, err := op.InferShapes()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []shapes.Shape{tc.want}, inferred)
		})
	}
}

func TestMatMulInferShapesDoesNotMutateInputs(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	a := newTensor(g, shapes.Shape{8, 4})
	b := newTensor(g, shapes.Shape{8, 16})
	out := newTensor(g, nil)

	op := ops.NewMatMul(a, b, out, true, false)
	_, err := op.InferShapes()
	require.NoError(t, err)

	assert.Equal(t, shapes.Shape{8, 4}, a.Shape(), "the transpose flag is virtual")
}

func TestTransposeValidation(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := newTensor(g, shapes.Shape{2, 3})
	out := newTensor(g, nil)

	for _, perm := range [][]int{{0, 0}, {0, 2}, {-1, 0}} {
		_, err := ops.NewTranspose(in, out, perm)
		assert.Error(t, err, "perm %v", perm)
	}
}

func TestTransposeInferShapes(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := newTensor(g, shapes.Shape{2, 3, 4})
	out := newTensor(g, nil)

	op, err := ops.NewTranspose(in, out, []int{2, 0, 1})
	require.NoError(t, err)

	inferred, err := op.InferShapes()
	require.NoError(t, err)
	assert.Equal(t, []shapes.Shape{{4, 2, 3}}, inferred)
}

func TestTransposeRankMismatch(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := newTensor(g, shapes.Shape{2, 3, 4})
	out := newTensor(g, nil)

	op, err := ops.NewTranspose(in, out, []int{1, 0})
	require.NoError(t, err)

	_, err = op.InferShapes()
	assert.Error(t, err)
}

func TestConcatInferShapes(t *testing.T) {
	grid := []struct {
		name    string
		inputs  []shapes.Shape
		axis    int
		want    shapes.Shape
		wantErr string
	}{
		{name: "axis0", inputs: []shapes.Shape{{2, 3}, {4, 3}}, axis: 0, want: shapes.Shape{6, 3}},
		{name: "axis1", inputs: []shapes.Shape{{2, 3}, {2, 5}}, axis: 1, want: shapes.Shape{2, 8}},
		{name: "negativeAxis", inputs: []shapes.Shape{{2, 3}, {2, 5}}, axis: -1, want: shapes.Shape{2, 8}},
		{name: "three", inputs: []shapes.Shape{{1, 4}, {2, 4}, {3, 4}}, axis: 0, want: shapes.Shape{6, 4}},
		{name: "rankMismatch", inputs: []shapes.Shape{{2, 3}, {2, 3, 1}}, axis: 0, wantErr: "rank mismatch"},
		{name: "dimMismatch", inputs: []shapes.Shape{{2, 3}, {2, 4}}, axis: 0, wantErr: "mismatch"},
	}

	for _, tc := range grid {
		t.Run(tc.name, func(t *testing.T) {
			g := graph.New(arena.HostBackend{})
			inputs := make([]*graph.Tensor, len(tc.inputs))
			for i, s := range tc.inputs {
				inputs[i] = newTensor(g, s)
			}
			out := newTensor(g, nil)

			op, err := ops.NewConcat(inputs, out, tc.axis)
			require.NoError(t, err)
			inferred, err := op.InferShapes()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []shapes.Shape{tc.want}, inferred)
		})
	}
}

func TestConcatRejectsBadAxis(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := newTensor(g, shapes.Shape{2, 3})
	out := newTensor(g, nil)

	_, err := ops.NewConcat([]*graph.Tensor{in}, out, 2)
	assert.Error(t, err)

	_, err = ops.NewConcat([]*graph.Tensor{in}, out, -3)
	assert.Error(t, err)

	_, err = ops.NewConcat(nil, out, 0)
	assert.Error(t, err)
}

func TestBinaryBroadcast(t *testing.T) {
	grid := []struct {
		name    string
		a, b    shapes.Shape
		want    shapes.Shape
		wantErr bool
	}{
		{name: "same", a: shapes.Shape{2, 3}, b: shapes.Shape{2, 3}, want: shapes.Shape{2, 3}},
		{name: "scalar", a: shapes.Shape{2, 3}, b: shapes.Shape{}, want: shapes.Shape{2, 3}},
		{name: "row", a: shapes.Shape{4, 3}, b: shapes.Shape{3}, want: shapes.Shape{4, 3}},
		{name: "ones", a: shapes.Shape{4, 1}, b: shapes.Shape{1, 5}, want: shapes.Shape{4, 5}},
		{name: "incompatible", a: shapes.Shape{2, 3}, b: shapes.Shape{2, 4}, wantErr: true},
	}

	for _, tc := range grid {
		t.Run(tc.name, func(t *testing.T) {
			g := graph.New(arena.HostBackend{})
			a := newTensor(g, tc.a)
			b := newTensor(g, tc.b)
			out := newTensor(g, nil)

			op := ops.NewAdd(a, b, out)
			inferred, err := op.InferShapes()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []shapes.Shape{tc.want}, inferred)
		})
	}
}

func TestUnaryPreservesShapeAndType(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := g.NewTensor(shapes.Shape{2, 3, 4}, dtypes.Float16)
	out := newTensor(g, nil)

	for _, op := range []graph.Operator{
		ops.NewRelu(in, out),
		ops.NewSigmoid(in, out),
		ops.NewTanh(in, out),
	} {
		inferred, err := op.InferShapes()
		require.NoError(t, err, "%s", op)
		assert.Equal(t, []shapes.Shape{{2, 3, 4}}, inferred, "%s", op)
		assert.Equal(t, []dtypes.DataType{dtypes.Float16}, op.InferTypes(), "%s", op)
	}
}

func TestClip(t *testing.T) {
	g := graph.New(arena.HostBackend{})
	in := newTensor(g, shapes.Shape{8})
	out := newTensor(g, nil)

	min := float32(0)
	op := ops.NewClip(in, out, &min, nil)

	assert.Equal(t, &min, op.Min())
	assert.Nil(t, op.Max())

	inferred, err := op.InferShapes()
	require.NoError(t, err)
	assert.Equal(t, []shapes.Shape{{8}}, inferred)
}

func TestCastInferTypes(t *testing.T) {
	grid := []struct {
		kind dtypes.CastKind
		want dtypes.DataType
	}{
		{kind: dtypes.CastFloatToFloat16, want: dtypes.Float16},
		{kind: dtypes.CastFloatToBFloat16, want: dtypes.BFloat16},
		{kind: dtypes.CastFloatToInt32, want: dtypes.Int32},
		{kind: dtypes.CastFloat16ToFloat, want: dtypes.Float32},
		{kind: dtypes.CastInt64ToUInt32, want: dtypes.UInt32},
		{kind: dtypes.CastUInt8ToInt64, want: dtypes.Int64},
	}

	for _, tc := range grid {
		g := graph.New(arena.HostBackend{})
		in := newTensor(g, shapes.Shape{4})
		out := newTensor(g, nil)

		op := ops.NewCast(in, out, tc.kind)
		assert.Equal(t, []dtypes.DataType{tc.want}, op.InferTypes(), "cast kind %d", tc.kind)

		inferred, err := op.InferShapes()
		require.NoError(t, err)
		assert.Equal(t, []shapes.Shape{{4}}, inferred)
	}
}
