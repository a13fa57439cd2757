// Package blobs stores encoded graph snapshots under their content digest.
package blobs

import "context"

type SnapshotReader interface {
	// Download fetches the snapshot identified by info into destPath. If no
	// such object exists, Download returns an error for which
	// errors.Is(err, os.ErrNotExist) is true.
	Download(ctx context.Context, info SnapshotInfo, destPath string) error
}

type Snapshotstore interface {
	SnapshotReader
	// Upload stores the file at sourcePath under its digest. Uploading a
	// digest that already exists does nothing and returns no error.
	Upload(ctx context.Context, sourcePath string, info SnapshotInfo) error
}

// SnapshotInfo identifies a snapshot by the hex sha256 of its encoded bytes.
type SnapshotInfo struct {
	Digest string
}
