// This file contains the full sync pass: refresh every subscribed feed's
// cached XML, reconcile downloaded flags against the filesystem, re-parse
// the cached documents, merge episodes into the database, and hand back
// the fresh episode list. Everything short of a storage failure degrades
// to a per-feed warning.

package podsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"podbay/internal/download"
	"podbay/internal/feed"
	"podbay/internal/models"
	"podbay/internal/store"
	"podbay/internal/websocket"
)

// Syncer is the single entry point for a sync pass.
type Syncer struct {
	st        *store.Store
	refresher *feed.Refresher
	dl        *download.Manager
	hub       *websocket.Hub // nil disables progress broadcasts

	// One sync pass at a time; a scheduled pass and a user-triggered one
	// simply queue behind each other.
	mu sync.Mutex
}

// Result is what a sync pass hands to the presentation layer.
type Result struct {
	Episodes []*models.Episode `json:"episodes"`
	Warnings []string          `json:"warnings"`
}

// New creates a Syncer.
func New(st *store.Store, refresher *feed.Refresher, dl *download.Manager, hub *websocket.Hub) *Syncer {
	return &Syncer{st: st, refresher: refresher, dl: dl, hub: hub}
}

// Sync runs one full pass across all subscribed feeds. A failing feed
// contributes zero episodes for the round and a warning; only storage
// unavailability fails the whole call.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &Result{}

	feeds, err := s.st.GetAllFeeds()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribed feeds: %w", err)
	}

	// 1. Refresh every feed's cached document, isolating per-feed failure.
	s.sendProgress("Refreshing feeds...", 0, false)
	for i, f := range feeds {
		if err := s.refresher.Refresh(ctx, f); err != nil {
			log.Printf("Sync: %v", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("refresh feed %d: %v", f.ID, err))
			continue
		}
		s.sendProgress(fmt.Sprintf("Refreshed feed %d/%d", i+1, len(feeds)), float64(i+1)/float64(len(feeds))*30, false)
	}

	// 2. Correct downloaded-flag drift from filesystem changes made since
	// the last run, before anything is re-parsed or surfaced.
	s.sendProgress("Reconciling downloads...", 35, false)
	if err := s.dl.ReconcileDownloads(); err != nil {
		return nil, fmt.Errorf("failed to reconcile downloads: %w", err)
	}

	// 3+4. Parse each cached document and merge its episodes.
	s.sendProgress("Parsing feeds...", 50, false)
	var newEpisodeIDs []int64
	for _, f := range feeds {
		inserted, warnings, err := s.syncFeed(ctx, f)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return nil, err
		}
		newEpisodeIDs = append(newEpisodeIDs, inserted...)
	}

	// Auto-download newly discovered episodes when the preference is on.
	settings, err := s.st.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.AutoDownload && len(newEpisodeIDs) > 0 {
		s.sendProgress(fmt.Sprintf("Auto-downloading %d new episode(s)...", len(newEpisodeIDs)), 80, false)
		for _, id := range newEpisodeIDs {
			if err := s.dl.DownloadEpisode(ctx, id); err != nil {
				log.Printf("Sync: auto-download of episode %d failed: %v", id, err)
				result.Warnings = append(result.Warnings, fmt.Sprintf("auto-download episode %d: %v", id, err))
			}
		}
	}

	// 5. Return the full, freshly reloaded episode list.
	episodes, err := s.st.GetAllEpisodes()
	if err != nil {
		return nil, fmt.Errorf("failed to reload episodes: %w", err)
	}
	result.Episodes = episodes

	s.sendProgress("Sync complete.", 100, true)
	return result, nil
}

// syncFeed parses one feed's cached document and merges its episodes.
// Parse-level problems become warnings; only storage errors are returned.
func (s *Syncer) syncFeed(ctx context.Context, f *models.Feed) ([]int64, []string, error) {
	var warnings []string

	if f.XMLFilePath == nil || *f.XMLFilePath == "" {
		// Never successfully refreshed: no episodes available this round.
		warnings = append(warnings, fmt.Sprintf("feed %d (%s) has no cached document yet", f.ID, f.URL))
		return nil, warnings, nil
	}

	data, err := os.ReadFile(*f.XMLFilePath)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("read cached document for feed %d: %v", f.ID, err))
		return nil, warnings, nil
	}

	doc, err := feed.Parse(data)
	if err != nil {
		var parseErr *feed.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("Sync: feed %d: %v", f.ID, err)
			warnings = append(warnings, fmt.Sprintf("parse feed %d: %v", f.ID, err))
			return nil, warnings, nil
		}
		return nil, warnings, err
	}
	warnings = append(warnings, doc.Warnings...)

	if doc.Title != "" && (f.Title == nil || *f.Title != doc.Title) {
		if err := s.st.UpdateFeedTitle(f.ID, doc.Title); err != nil {
			return nil, warnings, fmt.Errorf("failed to update title for feed %d: %w", f.ID, err)
		}
	}

	if doc.ImageURL != "" && f.ImageFilePath == nil {
		thumbPath, err := s.dl.FetchThumbnail(ctx, f.ID, doc.ImageURL)
		if err != nil {
			log.Printf("Sync: %v", err)
			warnings = append(warnings, fmt.Sprintf("fetch thumbnail for feed %d: %v", f.ID, err))
		} else if err := s.st.UpdateFeedImagePath(f.ID, thumbPath); err != nil {
			return nil, warnings, fmt.Errorf("failed to record thumbnail for feed %d: %w", f.ID, err)
		}
	}

	episodes := make([]*models.Episode, 0, len(doc.Items))
	for _, item := range doc.Items {
		episodes = append(episodes, &models.Episode{
			GUID:        item.GUID,
			Title:       item.Title,
			Date:        item.Date,
			PublishedAt: item.PublishedAt,
			FileName:    item.FileName,
			URL:         item.EnclosureURL,
		})
	}

	inserted, err := s.st.UpsertEpisodes(f.ID, episodes)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to reconcile episodes for feed %d: %w", f.ID, err)
	}

	if err := s.st.UpdateFeedLastSynced(f.ID); err != nil {
		return nil, warnings, err
	}
	return inserted, warnings, nil
}

func (s *Syncer) sendProgress(message string, progress float64, done bool) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    "podcast-sync",
		Message:  message,
		Progress: progress,
		Done:     done,
	})
}
