// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"podbay/internal/core"
	"podbay/internal/download"
	"podbay/internal/feed"
	"podbay/internal/podsync"
	"podbay/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app    *core.App
	store  *store.Store
	dl     *download.Manager
	syncer *podsync.Syncer
}

// NewServer creates a new Server instance and wires up the sync and
// download components from the application config.
func NewServer(app *core.App) *Server {
	st := store.New(app.DB())
	cfg := app.Config()
	timeout := time.Duration(cfg.FetchTimeout) * time.Second

	dl := download.NewManager(st, cfg.Storage.EpisodesDir, cfg.Storage.ThumbnailsDir, timeout, app.WsHub())
	refresher := feed.NewRefresher(st, cfg.Storage.ShowsDir, timeout)

	return &Server{
		app:    app,
		store:  st,
		dl:     dl,
		syncer: podsync.New(st, refresher, dl, app.WsHub()),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store { return s.store }

// Syncer returns the sync orchestrator, shared with the scheduled job.
func (s *Server) Syncer() *podsync.Syncer { return s.syncer }

// Downloader returns the download manager.
func (s *Server) Downloader() *download.Manager { return s.dl }

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	// A sync pass fetches every subscribed feed; give it room.
	r.Use(middleware.Timeout(120 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleGetVersion)

		// Sync
		r.Post("/sync", s.handleSync)
		r.Get("/jobs/status", s.handleGetJobsStatus)

		// Feeds
		r.Get("/feeds", s.handleListFeeds)
		r.Post("/feeds", s.handleFollowFeed)
		r.Delete("/feeds/{feedID}", s.handleUnfollowFeed)
		r.Get("/feeds/{feedID}/episodes", s.handleListFeedEpisodes)

		// Episodes
		r.Get("/episodes", s.handleListEpisodes)
		r.Post("/episodes/{episodeID}/download", s.handleDownloadEpisode)
		r.Delete("/episodes/{episodeID}/download", s.handleDeleteEpisodeFile)
		r.Post("/episodes/{episodeID}/progress", s.handleUpdateProgress)

		// Play queue
		r.Get("/queue", s.handleGetQueue)
		r.Put("/queue", s.handleSaveQueue)

		// Settings
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	// WebSocket route for progress updates
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.app.DB().Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}
