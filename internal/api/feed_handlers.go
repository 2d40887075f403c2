package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"podbay/internal/store"
)

// handleListFeeds returns every subscribed feed.
func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.store.GetAllFeeds()
	if err != nil {
		log.Printf("Failed to list feeds: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list feeds")
		return
	}
	RespondWithJSON(w, http.StatusOK, feeds)
}

// handleFollowFeed subscribes to a new feed URL. The feed's title, artwork,
// and episodes arrive on the next sync pass.
func (s *Server) handleFollowFeed(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.URL == "" {
		RespondWithError(w, http.StatusBadRequest, "Feed URL is required")
		return
	}
	if u, err := url.Parse(payload.URL); err != nil || u.Scheme == "" || u.Host == "" {
		RespondWithError(w, http.StatusBadRequest, "Feed URL must be absolute")
		return
	}

	f, err := s.store.CreateFeed(payload.URL)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateFeed) {
			RespondWithError(w, http.StatusConflict, "Already following this feed")
			return
		}
		log.Printf("Failed to follow feed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to follow feed")
		return
	}
	RespondWithJSON(w, http.StatusCreated, f)
}

// handleUnfollowFeed removes a feed, its episodes, and every file cached
// for it on disk.
func (s *Server) handleUnfollowFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid feed ID")
		return
	}

	f, err := s.store.GetFeedByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Feed not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to load feed")
		return
	}

	episodes, err := s.store.GetEpisodesByFeedID(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load feed episodes")
		return
	}

	if err := s.store.DeleteFeed(id); err != nil {
		log.Printf("Failed to unfollow feed %d: %v", id, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to unfollow feed")
		return
	}

	// The row is gone; the files are cleanup, not correctness.
	s.dl.RemoveFeedFiles(f, episodes)
	if f.XMLFilePath != nil && *f.XMLFilePath != "" {
		if err := os.Remove(*f.XMLFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to remove cached document for feed %d: %v", id, err)
		}
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Feed unfollowed"})
}

// handleListFeedEpisodes returns the episodes of one feed, newest first.
func (s *Server) handleListFeedEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid feed ID")
		return
	}

	if _, err := s.store.GetFeedByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Feed not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to load feed")
		return
	}

	episodes, err := s.store.GetEpisodesByFeedID(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}
	RespondWithJSON(w, http.StatusOK, episodes)
}
