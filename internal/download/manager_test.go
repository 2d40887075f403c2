package download_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"podbay/internal/download"
	"podbay/internal/models"
	"podbay/internal/store"
	"podbay/internal/testutil"
)

func setupManager(t *testing.T) (*download.Manager, *store.Store, string, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	episodesDir := t.TempDir()
	thumbnailsDir := t.TempDir()
	m := download.NewManager(st, episodesDir, thumbnailsDir, 5*time.Second, nil)
	return m, st, episodesDir, thumbnailsDir
}

func seedEpisode(t *testing.T, st *store.Store, guid, fileName, url string) int64 {
	t.Helper()
	f, err := st.CreateFeed("http://example.com/" + guid + ".xml")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := st.UpsertEpisodes(f.ID, []*models.Episode{
		{GUID: guid, Title: guid, FileName: fileName, URL: url},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 inserted episode, got %d", len(ids))
	}
	return ids[0]
}

func TestDownloadEpisode(t *testing.T) {
	m, st, episodesDir, _ := setupManager(t)

	audio := []byte("fake mp3 bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(audio)
	}))
	defer server.Close()

	id := seedEpisode(t, st, "dl1", "dl1.mp3", server.URL+"/dl1.mp3")

	if err := m.DownloadEpisode(context.Background(), id); err != nil {
		t.Fatalf("DownloadEpisode failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(episodesDir, "dl1.mp3"))
	if err != nil {
		t.Fatalf("Expected downloaded file: %v", err)
	}
	if string(data) != string(audio) {
		t.Error("Downloaded file content mismatch")
	}

	ep, err := st.GetEpisodeByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if !ep.Downloaded {
		t.Error("Expected downloaded flag to be set")
	}
}

func TestDownloadEpisodeServerError(t *testing.T) {
	m, st, episodesDir, _ := setupManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	id := seedEpisode(t, st, "dl2", "dl2.mp3", server.URL+"/dl2.mp3")

	if err := m.DownloadEpisode(context.Background(), id); err == nil {
		t.Fatal("Expected an error for a failed download")
	}

	// No file on disk and the flag stays off.
	if _, err := os.Stat(filepath.Join(episodesDir, "dl2.mp3")); !os.IsNotExist(err) {
		t.Error("Expected no file after a failed download")
	}
	ep, err := st.GetEpisodeByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Downloaded {
		t.Error("Downloaded flag must stay off after a failure")
	}
}

func TestDeleteEpisode(t *testing.T) {
	m, st, episodesDir, _ := setupManager(t)
	id := seedEpisode(t, st, "del1", "del1.mp3", "http://example.com/del1.mp3")

	testutil.WriteTestFile(t, episodesDir, "del1.mp3", []byte("audio"))
	if err := st.SetEpisodeDownloaded(id, true); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteEpisode(id); err != nil {
		t.Fatalf("DeleteEpisode failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(episodesDir, "del1.mp3")); !os.IsNotExist(err) {
		t.Error("Expected the file to be removed")
	}
	ep, err := st.GetEpisodeByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Downloaded {
		t.Error("Expected downloaded flag to be cleared")
	}

	t.Run("file already missing", func(t *testing.T) {
		if err := st.SetEpisodeDownloaded(id, true); err != nil {
			t.Fatal(err)
		}
		// The file is gone from the first delete; this must still succeed
		// and clear the flag.
		if err := m.DeleteEpisode(id); err != nil {
			t.Fatalf("DeleteEpisode with missing file failed: %v", err)
		}
		ep, err := st.GetEpisodeByID(id)
		if err != nil {
			t.Fatal(err)
		}
		if ep.Downloaded {
			t.Error("Expected downloaded flag cleared even with the file missing")
		}
	})
}

func TestReconcileDownloads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	episodesDir := t.TempDir()
	m := download.NewManager(st, episodesDir, t.TempDir(), 5*time.Second, nil)

	f, err := st.CreateFeed("http://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := st.UpsertEpisodes(f.ID, []*models.Episode{
		{GUID: "r1", Title: "Flag set, file missing", FileName: "r1.mp3", URL: "u"},
		{GUID: "r2", Title: "Flag unset, file present", FileName: "r2.mp3", URL: "u"},
		{GUID: "r3", Title: "Consistent", FileName: "r3.mp3", URL: "u"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.SetEpisodeDownloaded(ids[0], true); err != nil {
		t.Fatal(err)
	}
	testutil.WriteTestFile(t, episodesDir, "r2.mp3", []byte("audio"))

	// Audit every downloaded-flag write from here on, so a redundant
	// update to an already consistent row is caught, not just wrong
	// final state.
	if _, err := db.Exec(`CREATE TABLE flag_writes (episode_id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`
        CREATE TRIGGER log_flag_writes AFTER UPDATE OF downloaded ON episodes
        BEGIN
            INSERT INTO flag_writes (episode_id) VALUES (NEW.id);
        END
    `); err != nil {
		t.Fatal(err)
	}

	if err := m.ReconcileDownloads(); err != nil {
		t.Fatalf("ReconcileDownloads failed: %v", err)
	}

	checks := []struct {
		id   int64
		want bool
	}{
		{ids[0], false}, // file vanished, flag corrected off
		{ids[1], true},  // file appeared, flag corrected on
		{ids[2], false}, // consistent, untouched
	}
	for _, c := range checks {
		ep, err := st.GetEpisodeByID(c.id)
		if err != nil {
			t.Fatal(err)
		}
		if ep.Downloaded != c.want {
			t.Errorf("Episode %q: expected downloaded=%v, got %v", ep.GUID, c.want, ep.Downloaded)
		}
	}

	var writes int
	if err := db.QueryRow("SELECT COUNT(*) FROM flag_writes").Scan(&writes); err != nil {
		t.Fatal(err)
	}
	if writes != 2 {
		t.Errorf("Expected exactly 2 flag writes for the 2 drifted rows, got %d", writes)
	}
	var consistentWrites int
	if err := db.QueryRow("SELECT COUNT(*) FROM flag_writes WHERE episode_id = ?", ids[2]).Scan(&consistentWrites); err != nil {
		t.Fatal(err)
	}
	if consistentWrites != 0 {
		t.Errorf("Consistent row must not be written, saw %d write(s)", consistentWrites)
	}
}

func TestFetchThumbnail(t *testing.T) {
	m, st, _, thumbnailsDir := setupManager(t)

	f, err := st.CreateFeed("http://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}

	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte("png bytes"))
	}))
	defer server.Close()

	path, err := m.FetchThumbnail(context.Background(), f.ID, server.URL+"/art.png")
	if err != nil {
		t.Fatalf("FetchThumbnail failed: %v", err)
	}
	want := filepath.Join(thumbnailsDir, fmt.Sprintf("%d.png", f.ID))
	if path != want {
		t.Errorf("Expected thumbnail path %q, got %q", want, path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("Expected thumbnail on disk: %v", err)
	}

	// Already cached artwork is never re-fetched.
	if _, err := m.FetchThumbnail(context.Background(), f.ID, server.URL+"/art.png"); err != nil {
		t.Fatal(err)
	}
	if fetches != 1 {
		t.Errorf("Expected exactly 1 fetch, got %d", fetches)
	}

	t.Run("unknown extension defaults to jpg", func(t *testing.T) {
		other, err := st.CreateFeed("http://example.com/other.xml")
		if err != nil {
			t.Fatal(err)
		}
		path, err := m.FetchThumbnail(context.Background(), other.ID, server.URL+"/art")
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Ext(path) != ".jpg" {
			t.Errorf("Expected .jpg default, got %q", path)
		}
	})
}

func TestRemoveFeedFiles(t *testing.T) {
	m, st, episodesDir, thumbnailsDir := setupManager(t)

	f, err := st.CreateFeed("http://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, err = st.UpsertEpisodes(f.ID, []*models.Episode{
		{GUID: "rm1", Title: "One", FileName: "rm1.mp3", URL: "u"},
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.WriteTestFile(t, episodesDir, "rm1.mp3", []byte("audio"))
	thumbPath := testutil.WriteTestFile(t, thumbnailsDir, fmt.Sprintf("%d.jpg", f.ID), []byte("img"))
	if err := st.UpdateFeedImagePath(f.ID, thumbPath); err != nil {
		t.Fatal(err)
	}

	feedRow, err := st.GetFeedByID(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	episodes, err := st.GetEpisodesByFeedID(f.ID)
	if err != nil {
		t.Fatal(err)
	}

	m.RemoveFeedFiles(feedRow, episodes)

	if _, err := os.Stat(filepath.Join(episodesDir, "rm1.mp3")); !os.IsNotExist(err) {
		t.Error("Expected episode file removed")
	}
	if _, err := os.Stat(thumbPath); !os.IsNotExist(err) {
		t.Error("Expected thumbnail removed")
	}
}
