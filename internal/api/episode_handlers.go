package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"podbay/internal/store"
)

// handleListEpisodes returns every known episode across all feeds.
func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.store.GetAllEpisodes()
	if err != nil {
		log.Printf("Failed to list episodes: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}
	RespondWithJSON(w, http.StatusOK, episodes)
}

// handleDownloadEpisode starts an enclosure download in the background.
// Progress is reported over the websocket hub.
func (s *Server) handleDownloadEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.episodeID(w, r)
	if !ok {
		return
	}

	go func() {
		if err := s.dl.DownloadEpisode(context.Background(), id); err != nil {
			log.Printf("Download of episode %d failed: %v", id, err)
		}
	}()

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Download started"})
}

// handleDeleteEpisodeFile removes a downloaded episode's audio file and
// clears its downloaded flag.
func (s *Server) handleDeleteEpisodeFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.episodeID(w, r)
	if !ok {
		return
	}

	if err := s.dl.DeleteEpisode(id); err != nil {
		log.Printf("Failed to delete episode %d file: %v", id, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete episode file")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Episode file deleted"})
}

// handleUpdateProgress records playback state for an episode.
func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.episodeID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Played        bool `json:"played"`
		PlayedSeconds int  `json:"played_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.PlayedSeconds < 0 {
		RespondWithError(w, http.StatusBadRequest, "played_seconds must not be negative")
		return
	}

	if err := s.store.UpdateEpisodeProgress(id, payload.Played, payload.PlayedSeconds); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Episode not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to update progress")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Progress updated"})
}

// episodeID parses the episodeID URL parameter and verifies the episode
// exists, writing the error response itself when it doesn't.
func (s *Server) episodeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "episodeID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid episode ID")
		return 0, false
	}
	if _, err := s.store.GetEpisodeByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Episode not found")
			return 0, false
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to load episode")
		return 0, false
	}
	return id, true
}
