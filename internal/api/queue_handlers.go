package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// handleGetQueue returns the play queue as full episode records, in queue
// order. IDs whose episodes have since been deleted are silently dropped.
func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.store.GetQueueEpisodes()
	if err != nil {
		log.Printf("Failed to load play queue: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load play queue")
		return
	}
	RespondWithJSON(w, http.StatusOK, episodes)
}

// handleSaveQueue replaces the play queue with the given episode id list.
// Every update persists immediately; there is no deferred flush to lose.
func (s *Server) handleSaveQueue(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EpisodeIDs []int64 `json:"episode_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := s.store.SaveQueue(payload.EpisodeIDs); err != nil {
		log.Printf("Failed to save play queue: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save play queue")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Queue saved"})
}
