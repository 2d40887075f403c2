package api

import (
	"log"
	"net/http"
)

// handleSync runs a full sync pass synchronously and returns the fresh
// episode list plus any per-feed warnings gathered along the way.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.Sync(r.Context())
	if err != nil {
		log.Printf("Sync failed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Sync failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// handleGetJobsStatus reports the state of the registered background jobs.
func (s *Server) handleGetJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}
