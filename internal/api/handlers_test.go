package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"podbay/internal/models"
	"podbay/internal/store"
	"podbay/internal/testutil"
)

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestFeedHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	st := store.New(db)

	t.Run("follow a feed", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/feeds", map[string]string{"url": "http://example.com/feed.xml"})
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		var f models.Feed
		if err := json.Unmarshal(rr.Body.Bytes(), &f); err != nil {
			t.Fatal(err)
		}
		if f.ID == 0 || f.URL != "http://example.com/feed.xml" {
			t.Errorf("Unexpected feed in response: %+v", f)
		}
	})

	t.Run("follow duplicate", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/feeds", map[string]string{"url": "http://example.com/feed.xml"})
		if rr.Code != http.StatusConflict {
			t.Fatalf("Expected 409, got %d", rr.Code)
		}
	})

	t.Run("follow invalid url", func(t *testing.T) {
		for _, url := range []string{"", "not-a-url", "/relative/path"} {
			rr := doRequest(t, router, "POST", "/api/feeds", map[string]string{"url": url})
			if rr.Code != http.StatusBadRequest {
				t.Errorf("URL %q: expected 400, got %d", url, rr.Code)
			}
		}
	})

	t.Run("list feeds", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/feeds", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		var feeds []models.Feed
		if err := json.Unmarshal(rr.Body.Bytes(), &feeds); err != nil {
			t.Fatal(err)
		}
		if len(feeds) != 1 {
			t.Errorf("Expected 1 feed, got %d", len(feeds))
		}
	})

	t.Run("unfollow", func(t *testing.T) {
		feeds, err := st.GetAllFeeds()
		if err != nil {
			t.Fatal(err)
		}
		rr := doRequest(t, router, "DELETE", fmt.Sprintf("/api/feeds/%d", feeds[0].ID), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, router, "DELETE", fmt.Sprintf("/api/feeds/%d", feeds[0].ID), nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Expected 404 for a second unfollow, got %d", rr.Code)
		}
	})

	t.Run("feed episodes of unknown feed", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/feeds/9999/episodes", nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rr.Code)
		}
	})
}

func TestEpisodeHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	st := store.New(db)

	f, err := st.CreateFeed("http://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := st.UpsertEpisodes(f.ID, []*models.Episode{
		{GUID: "h1", Title: "One", FileName: "h1.mp3", URL: "http://example.com/h1.mp3"},
		{GUID: "h2", Title: "Two", FileName: "h2.mp3", URL: "http://example.com/h2.mp3"},
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("list all", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/episodes", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		var episodes []models.Episode
		if err := json.Unmarshal(rr.Body.Bytes(), &episodes); err != nil {
			t.Fatal(err)
		}
		if len(episodes) != 2 {
			t.Errorf("Expected 2 episodes, got %d", len(episodes))
		}
	})

	t.Run("list by feed", func(t *testing.T) {
		rr := doRequest(t, router, "GET", fmt.Sprintf("/api/feeds/%d/episodes", f.ID), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
	})

	t.Run("update progress", func(t *testing.T) {
		rr := doRequest(t, router, "POST", fmt.Sprintf("/api/episodes/%d/progress", ids[0]),
			map[string]interface{}{"played": true, "played_seconds": 90})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		ep, err := st.GetEpisodeByID(ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if !ep.Played || ep.PlayedSeconds != 90 {
			t.Errorf("Progress not recorded: %+v", ep)
		}
	})

	t.Run("negative progress rejected", func(t *testing.T) {
		rr := doRequest(t, router, "POST", fmt.Sprintf("/api/episodes/%d/progress", ids[0]),
			map[string]interface{}{"played": false, "played_seconds": -5})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rr.Code)
		}
	})

	t.Run("progress of unknown episode", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/episodes/9999/progress",
			map[string]interface{}{"played": true, "played_seconds": 1})
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rr.Code)
		}
	})

	t.Run("download of unknown episode", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/episodes/9999/download", nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rr.Code)
		}
	})

	t.Run("delete file of unknown episode", func(t *testing.T) {
		rr := doRequest(t, router, "DELETE", "/api/episodes/9999/download", nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rr.Code)
		}
	})
}

func TestQueueHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	st := store.New(db)

	f, err := st.CreateFeed("http://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := st.UpsertEpisodes(f.ID, []*models.Episode{
		{GUID: "q1", Title: "One", FileName: "q1.mp3", URL: "u"},
		{GUID: "q2", Title: "Two", FileName: "q2.mp3", URL: "u"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rr := doRequest(t, router, "PUT", "/api/queue", map[string]interface{}{"episode_ids": []int64{ids[1], ids[0]}})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, router, "GET", "/api/queue", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var episodes []models.Episode
	if err := json.Unmarshal(rr.Body.Bytes(), &episodes); err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 2 || episodes[0].GUID != "q2" || episodes[1].GUID != "q1" {
		t.Errorf("Queue order not preserved: %+v", episodes)
	}
}

func TestSettingsHandlers(t *testing.T) {
	server, _ := testutil.SetupTestServer(t)
	router := server.Router()

	t.Run("defaults", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/settings", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		var s models.Settings
		if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
			t.Fatal(err)
		}
		if s.Theme != "dark" || s.AutoDownload {
			t.Errorf("Unexpected defaults: %+v", s)
		}
	})

	t.Run("update", func(t *testing.T) {
		rr := doRequest(t, router, "PUT", "/api/settings", models.Settings{Theme: "light", AutoDownload: true})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, router, "GET", "/api/settings", nil)
		var s models.Settings
		if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
			t.Fatal(err)
		}
		if s.Theme != "light" || !s.AutoDownload {
			t.Errorf("Settings not persisted: %+v", s)
		}
	})

	t.Run("invalid theme rejected", func(t *testing.T) {
		rr := doRequest(t, router, "PUT", "/api/settings", models.Settings{Theme: "hotdog"})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rr.Code)
		}
	})
}

func TestHealthAndVersion(t *testing.T) {
	server, _ := testutil.SetupTestServer(t)
	router := server.Router()

	rr := doRequest(t, router, "GET", "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected healthy, got %d", rr.Code)
	}

	rr = doRequest(t, router, "GET", "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var v map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v["version"] != "test" {
		t.Errorf("Expected version 'test', got %q", v["version"])
	}
}
