// This file defines the core data structures (models) for our application.
// These structs represent the subscribed feeds and their episodes.

package models

import "time"

// Feed represents a single subscribed podcast feed.
type Feed struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	XMLFilePath   *string    `json:"xml_file_path,omitempty"`   // Nullable, set on first successful refresh
	Title         *string    `json:"title,omitempty"`           // Nullable, set once parsed from the document
	ImageFilePath *string    `json:"image_file_path,omitempty"` // Nullable, set once the artwork is fetched
	AddedAt       time.Time  `json:"added_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// Episode represents one entry parsed from a feed's item list.
type Episode struct {
	ID            int64      `json:"id"`
	FeedID        int64      `json:"feed_id"`
	GUID          string     `json:"guid"`
	Title         string     `json:"title"`
	Date          string     `json:"date"` // The feed-native date string, kept verbatim
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Played        bool       `json:"played"`
	PlayedSeconds int        `json:"played_seconds"`
	FileName      string     `json:"file_name"`
	URL           string     `json:"url"` // Enclosure URL
	Downloaded    bool       `json:"downloaded"`
}

// Settings holds the process-wide user preferences.
type Settings struct {
	Theme        string `json:"theme"`
	AutoDownload bool   `json:"auto_download"`
}

// ProgressUpdate is broadcast over the websocket hub while background
// work (sync, downloads) is running.
type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	ItemID   int64   `json:"item_id,omitempty"`
	Status   string  `json:"status,omitempty"` // e.g. "in_progress", "completed", "failed"
	Done     bool    `json:"done"`
}
