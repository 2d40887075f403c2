// Shared test setup utilities for app and API server tests.

package testutil

import (
	"database/sql"
	"testing"

	"podbay/internal/api"
	"podbay/internal/config"
	"podbay/internal/core"
	"podbay/internal/websocket"
)

// SetupTestApp builds a core.App over an in-memory database, with all
// storage directories pointed at per-test temp dirs.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	cfg := &config.Config{
		FetchTimeout: 5,
	}
	cfg.Storage.ShowsDir = t.TempDir()
	cfg.Storage.EpisodesDir = t.TempDir()
	cfg.Storage.ThumbnailsDir = t.TempDir()

	hub := websocket.NewHub()
	go hub.Run()

	return core.NewWithComponents(cfg, db, hub, "test")
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing. Tests using it must live in an external test
// package (package foo_test) to avoid an import cycle.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app.DB()
}
