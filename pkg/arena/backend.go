package arena

import "context"

// Backend is the real memory collaborator behind an Arena. Allocate is called
// exactly once per arena lifetime, when the plan is committed.
type Backend interface {
	Allocate(ctx context.Context, size int64) ([]byte, error)
	Release(ctx context.Context, buf []byte) error
}

// HostBackend allocates from the Go heap and leaves release to the garbage
// collector.
type HostBackend struct{}

var _ Backend = HostBackend{}

func (HostBackend) Allocate(ctx context.Context, size int64) ([]byte, error) {
	return make([]byte, size), nil
}

func (HostBackend) Release(ctx context.Context, buf []byte) error {
	return nil
}
