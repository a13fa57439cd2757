package blobs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"k8s.io/klog/v2"
)

// StoreClient reads snapshots from a snapshot-store service over HTTP.
type StoreClient struct {
	// BaseURL is the base URL of the snapshot store, typically
	// http://snapshot-store
	BaseURL *url.URL
}

var _ SnapshotReader = (*StoreClient)(nil)

func (c *StoreClient) Download(ctx context.Context, info SnapshotInfo, destPath string) error {
	u := c.BaseURL.JoinPath(info.Digest)
	if err := c.downloadToFile(ctx, u.String(), destPath); err != nil {
		return fmt.Errorf("downloading snapshot %s: %w", info.Digest, err)
	}
	return nil
}

func (c *StoreClient) downloadToFile(ctx context.Context, url string, destPath string) error {
	log := klog.FromContext(ctx)

	log.Info("downloading snapshot", "url", url)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	startedAt := time.Now()

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("snapshot not found: %w", os.ErrNotExist)
		}
		return fmt.Errorf("unexpected status downloading snapshot: %v", resp.Status)
	}

	n, err := writeToFile(ctx, resp.Body, destPath)
	if err != nil {
		return err
	}

	log.Info("downloaded snapshot", "url", url, "bytes", n, "duration", time.Since(startedAt))
	return nil
}
