package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tensorplan/tensorplan/pkg/blobs"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := klog.FromContext(ctx)

	listen := ":8080"
	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		// We expect CACHE_DIR to be set when running on kubernetes, but default sensibly for local dev
		cacheDir = "~/.cache/snapshot-store/snapshots"
	}
	klog.InitFlags(nil)
	flag.StringVar(&listen, "listen", listen, "listen address")
	flag.StringVar(&cacheDir, "cache-dir", cacheDir, "cache directory")
	flag.Parse()

	if strings.HasPrefix(cacheDir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		cacheDir = filepath.Join(homeDir, strings.TrimPrefix(cacheDir, "~/"))
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory %q: %w", cacheDir, err)
	}

	cacheBucket := os.Getenv("CACHE_BUCKET")
	if cacheBucket == "" {
		return fmt.Errorf("must specify CACHE_BUCKET env var")
	}

	var store blobs.Snapshotstore

	if strings.HasPrefix(cacheBucket, "gs://") {
		cacheBucket = strings.TrimPrefix(cacheBucket, "gs://")
		log.Info("using GCS cache", "bucket", cacheBucket)

		store = &blobs.GCSStore{
			Bucket: cacheBucket,
		}
	} else {
		return fmt.Errorf("CACHE_BUCKET must be a GCS bucket URL (gs://<bucketName>)")
	}

	cache := &snapshotCache{
		BaseDir: cacheDir,
		store:   store,
	}

	s := &httpServer{
		cache: cache,
	}

	klog.Infof("serving on %q", listen)
	if err := http.ListenAndServe(listen, s); err != nil {
		return fmt.Errorf("serving on %q: %w", listen, err)
	}

	return nil
}

type httpServer struct {
	cache *snapshotCache
}

func (s *httpServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokens := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(tokens) == 1 {
		if r.Method == "GET" {
			digest := tokens[0]
			s.serveGETSnapshot(w, r, digest)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.Error(w, "not found", http.StatusNotFound)
}

func (s *httpServer) serveGETSnapshot(w http.ResponseWriter, r *http.Request, digest string) {
	ctx := r.Context()

	log := klog.FromContext(ctx)

	if !validDigest(digest) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f, err := s.cache.GetSnapshot(ctx, digest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		log.Error(err, "error getting snapshot")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	p := f.Name()

	klog.Infof("serving snapshot %q", p)
	http.ServeFile(w, r, p)
}

// validDigest accepts a hex sha256: 64 lowercase hex characters.
func validDigest(digest string) bool {
	if len(digest) != 64 {
		return false
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

type snapshotCache struct {
	BaseDir string
	store   blobs.Snapshotstore
}

func (c *snapshotCache) GetSnapshot(ctx context.Context, digest string) (*os.File, error) {
	localPath := filepath.Join(c.BaseDir, digest)
	f, err := os.Open(localPath)
	if err == nil {
		return f, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("opening snapshot %q: %w", digest, err)
	}

	if err := c.store.Download(ctx, blobs.SnapshotInfo{Digest: digest}, localPath); err != nil {
		return nil, fmt.Errorf("fetching snapshot %q: %w", digest, err)
	}
	return os.Open(localPath)
}
