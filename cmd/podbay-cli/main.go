// A small maintenance CLI for the podcast library. It talks to the same
// database and storage directories as the server, so it should not run
// while the server is up.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"podbay/internal/core"
	"podbay/internal/download"
	"podbay/internal/feed"
	"podbay/internal/podsync"
	"podbay/internal/store"
)

var version = "dev"

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer app.Close()

	st := store.New(app.DB())

	switch os.Args[1] {
	case "sync":
		runSync(app, st)
	case "follow":
		if len(os.Args) < 3 {
			log.Fatal("Usage: podbay-cli follow <feed-url>")
		}
		runFollow(st, os.Args[2])
	case "list":
		runList(st)
	case "episodes":
		runEpisodes(st)
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: podbay-cli <sync|follow|list|episodes|version>")
}

func runSync(app *core.App, st *store.Store) {
	cfg := app.Config()
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	dl := download.NewManager(st, cfg.Storage.EpisodesDir, cfg.Storage.ThumbnailsDir, timeout, nil)
	refresher := feed.NewRefresher(st, cfg.Storage.ShowsDir, timeout)
	syncer := podsync.New(st, refresher, dl, nil)

	result, err := syncer.Sync(context.Background())
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w)
	}
	fmt.Printf("Synced. %d episode(s) in library.\n", len(result.Episodes))
}

func runFollow(st *store.Store, url string) {
	f, err := st.CreateFeed(url)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateFeed) {
			log.Fatalf("Already following %s", url)
		}
		log.Fatalf("Could not follow feed: %v", err)
	}
	fmt.Printf("Following feed %d: %s\n", f.ID, f.URL)
	fmt.Println("Run 'podbay-cli sync' to fetch its episodes.")
}

func runList(st *store.Store) {
	feeds, err := st.GetAllFeeds()
	if err != nil {
		log.Fatalf("Could not list feeds: %v", err)
	}
	if len(feeds) == 0 {
		fmt.Println("Not following any feeds.")
		return
	}
	for _, f := range feeds {
		title := "(not synced yet)"
		if f.Title != nil && *f.Title != "" {
			title = *f.Title
		}
		fmt.Printf("%4d  %-40s  %s\n", f.ID, title, f.URL)
	}
}

func runEpisodes(st *store.Store) {
	episodes, err := st.GetAllEpisodes()
	if err != nil {
		log.Fatalf("Could not list episodes: %v", err)
	}
	if len(episodes) == 0 {
		fmt.Println("No episodes. Run 'podbay-cli sync' first.")
		return
	}
	for _, ep := range episodes {
		marker := " "
		if ep.Downloaded {
			marker = "D"
		}
		played := ""
		if ep.Played {
			played = "played"
		}
		fmt.Printf("%5d %s %-50s %s\n", ep.ID, marker, ep.Title, played)
	}
}
