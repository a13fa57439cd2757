package graph_test

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

func TestConnectDerivesEdges(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	x := g.NewTensor(shapes.Shape{2, 3}, dtypes.Float32)
	y := g.NewTensor(shapes.Shape{3, 2}, dtypes.Float32)
	z := g.NewTensor(shapes.Shape{3, 2}, dtypes.Float32)

	transpose, err := ops.NewTranspose(x, y, []int{1, 0})
	require.NoError(t, err)
	relu := ops.NewRelu(y, z)

	g.Connect(transpose)
	g.Connect(relu)

	assert.Nil(t, x.Producer())
	assert.Equal(t, []graph.Operator{transpose}, x.Consumers())
	assert.Equal(t, graph.Operator(transpose), y.Producer())
	assert.Equal(t, []graph.Operator{relu}, y.Consumers())
	assert.Equal(t, graph.Operator(relu), z.Producer())
	assert.Empty(t, z.Consumers())

	assert.Empty(t, transpose.Predecessors())
	assert.Equal(t, []graph.Operator{relu}, transpose.Successors())
	assert.Equal(t, []graph.Operator{transpose}, relu.Predecessors())
	assert.Empty(t, relu.Successors())
}

func TestConnectBeforeProducer(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	x := g.NewTensor(shapes.Shape{2, 3}, dtypes.Float32)
	y := g.NewTensor(shapes.Shape{3, 2}, dtypes.Float32)
	z := g.NewTensor(shapes.Shape{3, 2}, dtypes.Float32)

	transpose, err := ops.NewTranspose(x, y, []int{1, 0})
	require.NoError(t, err)
	relu := ops.NewRelu(y, z)

	// The consumer attaches first: connecting the producer later must still
	// link the two operators in both directions.
	g.Connect(relu)
	g.Connect(transpose)

	assert.Equal(t, []graph.Operator{relu}, transpose.Successors())
	assert.Equal(t, []graph.Operator{transpose}, relu.Predecessors())
}

func TestConnectIdempotent(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	x := g.NewTensor(shapes.Shape{4}, dtypes.Float32)
	y := g.NewTensor(shapes.Shape{4}, dtypes.Float32)
	relu := ops.NewRelu(x, y)

	g.Connect(relu)
	id := relu.ID()
	g.Connect(relu)

	assert.Equal(t, id, relu.ID())
	assert.Len(t, g.Operators(), 1)
	assert.Len(t, x.Consumers(), 1)
	assert.Empty(t, relu.Predecessors())
	assert.Empty(t, relu.Successors())
}

func TestTensorIdentity(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	a := g.NewTensor(shapes.Shape{2}, dtypes.Float32)
	b := g.NewTensor(shapes.Shape{3}, dtypes.Int64)

	assert.Equal(t, int64(1), a.ID())
	assert.Equal(t, int64(2), b.ID())
	assert.Equal(t, a, g.TensorByID(1))
	assert.Equal(t, b, g.TensorByID(2))
	assert.Nil(t, g.TensorByID(99))

	// Rewriting the shape leaves the identity alone.
	a.SetShape(shapes.Shape{7, 7})
	assert.Equal(t, a, g.TensorByID(1))
	assert.Equal(t, shapes.Shape{7, 7}, a.Shape())
}

func TestRestoreTensor(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	restored, err := g.RestoreTensor(10, shapes.Shape{2, 2}, dtypes.Float32)
	require.NoError(t, err)
	assert.Equal(t, int64(10), restored.ID())

	_, err = g.RestoreTensor(10, shapes.Shape{1}, dtypes.Float32)
	assert.Error(t, err, "duplicate id must be rejected")

	_, err = g.RestoreTensor(0, shapes.Shape{1}, dtypes.Float32)
	assert.Error(t, err, "non-positive id must be rejected")

	// Fresh identities continue past the restored one.
	fresh := g.NewTensor(shapes.Shape{1}, dtypes.Float32)
	assert.Equal(t, int64(11), fresh.ID())
}

func TestRemoveOperatorAndTensor(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	x := g.NewTensor(shapes.Shape{4}, dtypes.Float32)
	y := g.NewTensor(shapes.Shape{4}, dtypes.Float32)
	relu := ops.NewRelu(x, y)
	g.Connect(relu)

	require.NoError(t, g.TopoSort())
	assert.True(t, g.Sorted())

	g.RemoveOperator(relu)
	assert.Empty(t, g.Operators())
	assert.False(t, g.Sorted(), "structural mutation must invalidate the sort")

	g.RemoveTensor(x)
	g.RemoveTensor(y)
	assert.Empty(t, g.Tensors())
}

func TestTensorBytes(t *testing.T) {
	g := graph.New(arena.HostBackend{})

	grid := []struct {
		shape shapes.Shape
		dtype dtypes.DataType
		want  int64
	}{
		{shape: shapes.Shape{2, 3}, dtype: dtypes.Float32, want: 24},
		{shape: shapes.Shape{5}, dtype: dtypes.Float16, want: 10},
		{shape: shapes.Shape{}, dtype: dtypes.Float64, want: 8},
		{shape: shapes.Shape{4, 0, 2}, dtype: dtypes.Int8, want: 0},
	}
	for _, tc := range grid {
		tensor := g.NewTensor(tc.shape, tc.dtype)
		assert.Equal(t, tc.want, tensor.Bytes(), "shape %s dtype %s", tc.shape, tc.dtype)
	}
}
