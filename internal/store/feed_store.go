package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"podbay/internal/models"
)

// CreateFeed subscribes to a new feed by URL. The URL is the natural key;
// subscribing twice to the same URL returns ErrDuplicateFeed.
func (s *Store) CreateFeed(url string) (*models.Feed, error) {
	var feed models.Feed
	query := `
        INSERT INTO feeds (url, added_at) VALUES (?, ?)
        RETURNING id, url, added_at;
    `
	err := s.db.QueryRow(query, url, time.Now()).Scan(&feed.ID, &feed.URL, &feed.AddedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateFeed
		}
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}
	return &feed, nil
}

// GetAllFeeds retrieves every subscribed feed ordered by title, untitled
// feeds last.
func (s *Store) GetAllFeeds() ([]*models.Feed, error) {
	query := `
        SELECT id, url, xml_file_path, feed_title, image_file_path, added_at, last_synced_at
        FROM feeds ORDER BY feed_title IS NULL, feed_title ASC, id ASC
    `
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// GetFeedByID retrieves a single feed by its primary key.
func (s *Store) GetFeedByID(id int64) (*models.Feed, error) {
	query := `
        SELECT id, url, xml_file_path, feed_title, image_file_path, added_at, last_synced_at
        FROM feeds WHERE id = ?
    `
	feed, err := scanFeed(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return feed, err
}

// UpdateFeedXMLPath records where the feed's cached document lives. Set
// once, on the first successful refresh.
func (s *Store) UpdateFeedXMLPath(id int64, path string) error {
	_, err := s.db.Exec("UPDATE feeds SET xml_file_path = ? WHERE id = ?", path, id)
	return err
}

// UpdateFeedTitle sets the display title parsed from the feed document.
func (s *Store) UpdateFeedTitle(id int64, title string) error {
	_, err := s.db.Exec("UPDATE feeds SET feed_title = ? WHERE id = ?", title, id)
	return err
}

// UpdateFeedImagePath records where the feed's artwork was saved.
func (s *Store) UpdateFeedImagePath(id int64, path string) error {
	_, err := s.db.Exec("UPDATE feeds SET image_file_path = ? WHERE id = ?", path, id)
	return err
}

// UpdateFeedLastSynced sets the last_synced_at timestamp to the current time.
func (s *Store) UpdateFeedLastSynced(id int64) error {
	_, err := s.db.Exec("UPDATE feeds SET last_synced_at = ? WHERE id = ?", time.Now(), id)
	return err
}

// DeleteFeed removes a feed. Its episodes are removed by the foreign key
// cascade. Returns ErrNotFound for an unknown id.
func (s *Store) DeleteFeed(id int64) error {
	res, err := s.db.Exec("DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner lets scanFeed work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var xmlPath, title, imagePath sql.NullString
	var lastSynced sql.NullTime
	err := row.Scan(&feed.ID, &feed.URL, &xmlPath, &title, &imagePath, &feed.AddedAt, &lastSynced)
	if err != nil {
		return nil, err
	}
	if xmlPath.Valid {
		feed.XMLFilePath = &xmlPath.String
	}
	if title.Valid {
		feed.Title = &title.String
	}
	if imagePath.Valid {
		feed.ImageFilePath = &imagePath.String
	}
	if lastSynced.Valid {
		feed.LastSyncedAt = &lastSynced.Time
	}
	return &feed, nil
}
