package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podbay/internal/api"
	"podbay/internal/core"
	"podbay/internal/jobs"
	"podbay/internal/library"
)

var version = "dev"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Setup the API server. It owns the store, downloader, and syncer; the
	// scheduled job runs through the same syncer instance so a manual sync
	// and a scheduled one serialize on its lock.
	server := api.NewServer(app)

	app.JobManager().Register(jobs.SyncJobName, func(ctx jobs.JobContext) {
		if _, err := server.Syncer().Sync(context.Background()); err != nil {
			log.Printf("Scheduled sync failed: %v", err)
		}
	})

	// Run one sync pass at startup so the library is fresh, then hand the
	// schedule to gocron.
	go func() {
		if err := app.JobManager().RunJob(jobs.SyncJobName, app); err != nil {
			log.Printf("Startup sync could not start: %v", err)
		}
	}()
	jobs.StartJobs(app)

	// Watch the episodes directory for files added or removed by hand.
	watcher := library.NewWatcherService(app.Config().Storage.EpisodesDir, server.Downloader())
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: could not start file watcher: %v", err)
	} else {
		defer watcher.Stop()
	}

	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
