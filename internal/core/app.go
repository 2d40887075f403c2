package core

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"podbay/internal/config"
	"podbay/internal/db"
	"podbay/internal/jobs"
	"podbay/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	cfg        *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running
// migrations, and creating the storage directories.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// The shows/episodes/thumbnails directories must exist before any
	// refresh or download runs.
	for _, dir := range []string{cfg.Storage.ShowsDir, cfg.Storage.EpisodesDir, cfg.Storage.ThumbnailsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	log.Println("Core application setup complete.")
	return &App{
		cfg:        cfg,
		db:         database,
		wsHub:      hub,
		jobManager: jobs.NewManager(),
		version:    version,
	}, nil
}

// NewWithComponents assembles an App from pre-built parts. Used by tests.
func NewWithComponents(cfg *config.Config, database *sql.DB, hub *websocket.Hub, version string) *App {
	return &App{
		cfg:        cfg,
		db:         database,
		wsHub:      hub,
		jobManager: jobs.NewManager(),
		version:    version,
	}
}

func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }
func (a *App) Version() string              { return a.version }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
