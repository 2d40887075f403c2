package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup. (*testing.T).Chdir requires Go
// 1.24, which is newer than the local toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yml here

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed without a config file: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.SyncInterval != 60 {
		t.Errorf("Expected default sync interval 60, got %d", cfg.SyncInterval)
	}
	if cfg.FetchTimeout != 30 {
		t.Errorf("Expected default fetch timeout 30, got %d", cfg.FetchTimeout)
	}
	if cfg.Database.Path != "./podbay.db" {
		t.Errorf("Unexpected default database path: %q", cfg.Database.Path)
	}
	if cfg.Storage.ShowsDir != "./shows" || cfg.Storage.EpisodesDir != "./episodes" || cfg.Storage.ThumbnailsDir != "./thumbnails" {
		t.Errorf("Unexpected default storage dirs: %+v", cfg.Storage)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
port: 9090
sync_interval: 15
database:
  path: /data/podbay.db
storage:
  episodes_dir: /data/episodes
`
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.SyncInterval != 15 {
		t.Errorf("Expected sync interval 15, got %d", cfg.SyncInterval)
	}
	if cfg.Database.Path != "/data/podbay.db" {
		t.Errorf("Unexpected database path: %q", cfg.Database.Path)
	}
	if cfg.Storage.EpisodesDir != "/data/episodes" {
		t.Errorf("Unexpected episodes dir: %q", cfg.Storage.EpisodesDir)
	}
	// Unset keys keep their defaults.
	if cfg.FetchTimeout != 30 {
		t.Errorf("Expected default fetch timeout 30, got %d", cfg.FetchTimeout)
	}
}

func TestEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PODBAY_PORT", "7070")
	t.Setenv("PODBAY_DATABASE_PATH", "/env/podbay.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected env override port 7070, got %d", cfg.Port)
	}
	if cfg.Database.Path != "/env/podbay.db" {
		t.Errorf("Expected env override database path, got %q", cfg.Database.Path)
	}
}
