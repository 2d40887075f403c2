// This file refreshes the local XML cache of each subscribed feed. A
// refresh failure is always scoped to one feed; the caller decides what
// to do with the error and carries on with the rest.

package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"podbay/internal/models"
	"podbay/internal/store"
)

// Refresher fetches feed documents and maintains the cached XML files.
type Refresher struct {
	st       *store.Store
	client   *http.Client
	showsDir string
}

// NewRefresher creates a Refresher writing cache files under showsDir.
// The timeout bounds every fetch; expiry is an ordinary per-feed failure.
func NewRefresher(st *store.Store, showsDir string, timeout time.Duration) *Refresher {
	return &Refresher{
		st:       st,
		client:   &http.Client{Timeout: timeout},
		showsDir: showsDir,
	}
}

// Refresh fetches the feed's document and rewrites its cache file. The
// write goes through a temp file and rename so a concurrent reader can
// never observe a truncated document. On the first successful write the
// chosen path is persisted back to the feed record.
func (r *Refresher) Refresh(ctx context.Context, f *models.Feed) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("invalid feed url %q: %w", f.URL, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch feed %q: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch feed %q: unexpected status %s", f.URL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read feed %q: %w", f.URL, err)
	}

	path := r.cachePath(f)
	if err := writeFileAtomic(path, body); err != nil {
		return fmt.Errorf("failed to write feed cache for %q: %w", f.URL, err)
	}

	if f.XMLFilePath == nil {
		if err := r.st.UpdateFeedXMLPath(f.ID, path); err != nil {
			return fmt.Errorf("failed to record cache path for feed %d: %w", f.ID, err)
		}
		f.XMLFilePath = &path
	}
	return nil
}

// cachePath returns the feed's recorded cache path, or the deterministic
// default {feed_id}.xml for a feed that has never been refreshed.
func (r *Refresher) cachePath(f *models.Feed) string {
	if f.XMLFilePath != nil && *f.XMLFilePath != "" {
		return *f.XMLFilePath
	}
	return filepath.Join(r.showsDir, fmt.Sprintf("%d.xml", f.ID))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
