package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tensorplan/tensorplan/pkg/arena"
	"github.com/tensorplan/tensorplan/pkg/blobs"
	"github.com/tensorplan/tensorplan/pkg/dtypes"
	"github.com/tensorplan/tensorplan/pkg/graph"
	"github.com/tensorplan/tensorplan/pkg/ops"
	"github.com/tensorplan/tensorplan/pkg/shapes"
	"github.com/tensorplan/tensorplan/pkg/snapshot"
)

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var snapshotPath string
	var bucket string
	optimize := true

	klog.InitFlags(nil)
	flag.StringVar(&snapshotPath, "f", snapshotPath, "graph snapshot file (JSON or YAML); a demo graph is built when empty")
	flag.StringVar(&bucket, "bucket", bucket, "optional gs:// bucket to upload the optimized snapshot to")
	flag.BoolVar(&optimize, "optimize", optimize, "run the rewrite optimizer")
	flag.Parse()

	log := klog.FromContext(ctx)

	var g *graph.Graph
	if snapshotPath != "" {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			return fmt.Errorf("reading snapshot %q: %w", snapshotPath, err)
		}
		g, err = snapshot.Unmarshal(data, arena.HostBackend{})
		if err != nil {
			return fmt.Errorf("decoding snapshot %q: %w", snapshotPath, err)
		}
		log.Info("loaded graph", "path", snapshotPath, "tensors", len(g.Tensors()), "operators", len(g.Operators()))
	} else {
		var err error
		g, err = demoGraph()
		if err != nil {
			return fmt.Errorf("building demo graph: %w", err)
		}
		log.Info("built demo graph", "tensors", len(g.Tensors()), "operators", len(g.Operators()))
	}

	if err := g.TopoSort(); err != nil {
		return err
	}
	if optimize {
		before := len(g.Operators())
		g.Optimize(ctx)
		log.Info("optimized graph", "operatorsBefore", before, "operatorsAfter", len(g.Operators()))
	}
	if err := g.InferShapes(ctx); err != nil {
		return err
	}
	if err := g.InferTypes(ctx); err != nil {
		return err
	}
	if err := g.CheckValid(); err != nil {
		return err
	}
	if err := g.PlanMemory(ctx); err != nil {
		return err
	}

	for _, t := range g.Tensors() {
		log.Info("planned tensor", "tensor", t.ID(), "shape", t.Shape().String(), "dtype", t.DataType().String(), "bytes", t.Bytes(), "offset", t.Offset())
	}
	log.Info("arena stats", "used", g.Arena().Used(), "peak", g.Arena().Peak())

	if bucket != "" {
		if err := upload(ctx, g, bucket); err != nil {
			return err
		}
	}

	return nil
}

func upload(ctx context.Context, g *graph.Graph, bucket string) error {
	if !strings.HasPrefix(bucket, "gs://") {
		return fmt.Errorf("bucket must be a GCS bucket URL (gs://<bucketName>)")
	}
	bucket = strings.TrimPrefix(bucket, "gs://")

	data, err := snapshot.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	digest := snapshot.Digest(data)

	path := filepath.Join(os.TempDir(), digest)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	defer os.Remove(path)

	store := &blobs.GCSStore{Bucket: bucket}
	return store.Upload(ctx, path, blobs.SnapshotInfo{Digest: digest})
}

// demoGraph builds relu(matmul(transpose(transpose(x)), transpose(w))): the
// inverse pair collapses and the weight transpose folds into the matmul's
// transB flag.
func demoGraph() (*graph.Graph, error) {
	g := graph.New(arena.HostBackend{})

	x := g.NewTensor(shapes.Shape{32, 64}, dtypes.Float32)
	xT := g.NewTensor(shapes.Shape{64, 32}, dtypes.Float32)
	xTT := g.NewTensor(shapes.Shape{32, 64}, dtypes.Float32)
	w := g.NewTensor(shapes.Shape{128, 64}, dtypes.Float32)
	wT := g.NewTensor(shapes.Shape{64, 128}, dtypes.Float32)
	mm := g.NewTensor(shapes.Shape{32, 128}, dtypes.Float32)
	out := g.NewTensor(shapes.Shape{32, 128}, dtypes.Float32)

	t1, err := ops.NewTranspose(x, xT, []int{1, 0})
	if err != nil {
		return nil, err
	}
	t2, err := ops.NewTranspose(xT, xTT, []int{1, 0})
	if err != nil {
		return nil, err
	}
	t3, err := ops.NewTranspose(w, wT, []int{1, 0})
	if err != nil {
		return nil, err
	}

	g.Connect(t1)
	g.Connect(t2)
	g.Connect(t3)
	g.Connect(ops.NewMatMul(xTT, wT, mm, false, false))
	g.Connect(ops.NewRelu(mm, out))

	return g, nil
}
