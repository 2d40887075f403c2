// This file contains the download executor: fetching episode enclosures
// and feed artwork onto disk, deleting downloaded audio, and reconciling
// the stored downloaded flags against what is actually on the filesystem.

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"podbay/internal/models"
	"podbay/internal/store"
	"podbay/internal/websocket"
)

// Manager performs episode and artwork downloads and keeps the downloaded
// flags honest.
type Manager struct {
	st            *store.Store
	client        *http.Client
	episodesDir   string
	thumbnailsDir string
	hub           *websocket.Hub // nil disables progress broadcasts

	// One lock per episode id, so a download and a delete of the same
	// episode can never interleave. Downloads of distinct episodes and a
	// concurrent sync pass touch disjoint rows and need no coordination.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewManager creates a download Manager writing under episodesDir and
// thumbnailsDir.
func NewManager(st *store.Store, episodesDir, thumbnailsDir string, timeout time.Duration, hub *websocket.Hub) *Manager {
	return &Manager{
		st:            st,
		client:        &http.Client{Timeout: timeout},
		episodesDir:   episodesDir,
		thumbnailsDir: thumbnailsDir,
		hub:           hub,
		locks:         make(map[int64]*sync.Mutex),
	}
}

// lockEpisode acquires the per-episode mutex and returns the unlock func.
func (m *Manager) lockEpisode(id int64) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// DownloadEpisode fetches the episode's enclosure and writes it under the
// episodes directory with its derived filename, then marks it downloaded.
func (m *Manager) DownloadEpisode(ctx context.Context, id int64) error {
	ep, err := m.st.GetEpisodeByID(id)
	if err != nil {
		return err
	}
	if ep.FileName == "" || ep.URL == "" {
		return fmt.Errorf("episode %d has no enclosure to download", id)
	}

	unlock := m.lockEpisode(id)
	defer unlock()

	m.sendProgress(id, fmt.Sprintf("Downloading %s...", ep.Title), "in_progress", 0, false)

	if err := m.fetchToFile(ctx, ep.URL, filepath.Join(m.episodesDir, ep.FileName)); err != nil {
		m.sendProgress(id, fmt.Sprintf("Download failed: %v", err), "failed", 0, true)
		return fmt.Errorf("failed to download episode %d: %w", id, err)
	}

	if err := m.st.SetEpisodeDownloaded(id, true); err != nil {
		return err
	}
	m.sendProgress(id, "Download finished successfully.", "completed", 100, true)
	return nil
}

// DeleteEpisode removes the episode's file from the episodes directory and
// clears its downloaded flag. A file already missing at deletion time is
// logged, not fatal; the flag still gets cleared.
func (m *Manager) DeleteEpisode(id int64) error {
	ep, err := m.st.GetEpisodeByID(id)
	if err != nil {
		return err
	}

	unlock := m.lockEpisode(id)
	defer unlock()

	if ep.FileName != "" {
		err := os.Remove(filepath.Join(m.episodesDir, ep.FileName))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete episode %d file: %w", id, err)
		}
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Episode %d file %s already missing at delete time", id, ep.FileName)
		}
	}
	return m.st.SetEpisodeDownloaded(id, false)
}

// FetchThumbnail downloads a feed's artwork into the thumbnails directory,
// keyed by feed id with an extension sniffed from the URL path. If the
// file already exists the fetch is skipped entirely. JPEG artwork is
// resized down before writing; other formats are stored as-is.
func (m *Manager) FetchThumbnail(ctx context.Context, feedID int64, imageURL string) (string, error) {
	ext := thumbnailExt(imageURL)
	thumbPath := filepath.Join(m.thumbnailsDir, fmt.Sprintf("%d.%s", feedID, ext))

	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	data, err := m.fetch(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch thumbnail for feed %d: %w", feedID, err)
	}

	if ext == "jpg" || ext == "jpeg" {
		if resized, err := GenerateThumbnail(data); err == nil {
			data = resized
		}
	}

	if err := os.MkdirAll(m.thumbnailsDir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(thumbPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail for feed %d: %w", feedID, err)
	}
	return thumbPath, nil
}

// RemoveFeedFiles deletes the on-disk artifacts belonging to a feed: any
// downloaded episode audio and the cached thumbnail. Missing files are
// fine; this runs while the feed itself is being unfollowed.
func (m *Manager) RemoveFeedFiles(f *models.Feed, episodes []*models.Episode) {
	for _, ep := range episodes {
		if ep.FileName == "" {
			continue
		}
		err := os.Remove(filepath.Join(m.episodesDir, ep.FileName))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to remove episode file %s: %v", ep.FileName, err)
		}
	}
	if f.ImageFilePath != nil && *f.ImageFilePath != "" {
		err := os.Remove(*f.ImageFilePath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to remove thumbnail for feed %d: %v", f.ID, err)
		}
	}
}

// ReconcileDownloads corrects downloaded-flag drift in both directions:
// a file present with the flag false is marked downloaded, a missing file
// with the flag true is marked not downloaded. Consistent rows issue no
// write. Runs before episodes are surfaced so displayed state is never
// stale.
func (m *Manager) ReconcileDownloads() error {
	episodes, err := m.st.GetAllEpisodes()
	if err != nil {
		return err
	}

	corrected := 0
	for _, ep := range episodes {
		if ep.FileName == "" {
			continue
		}
		_, statErr := os.Stat(filepath.Join(m.episodesDir, ep.FileName))
		exists := statErr == nil
		if exists == ep.Downloaded {
			continue
		}
		if err := m.st.SetEpisodeDownloaded(ep.ID, exists); err != nil {
			return err
		}
		corrected++
	}
	if corrected > 0 {
		log.Printf("Download reconciliation corrected %d episode flag(s)", corrected)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// fetchToFile streams a URL to disk through a temp file and rename, so an
// interrupted download never leaves a half-written episode behind.
func (m *Manager) fetchToFile(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// thumbnailExt sniffs an image extension from the URL path's trailing
// characters, defaulting to jpg when undeterminable.
func thumbnailExt(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "jpg"
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp":
		return ext
	}
	return "jpg"
}

func (m *Manager) sendProgress(itemID int64, message, status string, progress float64, done bool) {
	if m.hub == nil {
		return
	}
	m.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    "downloader",
		Message:  message,
		Progress: progress,
		ItemID:   itemID,
		Status:   status,
		Done:     done,
	})
}
