package api

import (
	"encoding/json"
	"log"
	"net/http"

	"podbay/internal/models"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings()
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	switch settings.Theme {
	case "dark", "light":
	default:
		RespondWithError(w, http.StatusBadRequest, "Theme must be 'dark' or 'light'")
		return
	}

	if err := s.store.SaveSettings(&settings); err != nil {
		log.Printf("Failed to save settings: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, settings)
}
