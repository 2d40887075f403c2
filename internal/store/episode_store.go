package store

import (
	"database/sql"
	"fmt"
	"log"

	"podbay/internal/models"
)

// UpsertEpisodes merges parsed episode records into the episodes table,
// keyed on (guid, feed_id). Re-parsing an item already in the database is
// a no-op, so re-sync never resets played or downloaded state. Returns the
// ids of the rows that were actually inserted.
func (s *Store) UpsertEpisodes(feedID int64, episodes []*models.Episode) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO episodes (guid, title, date, published_at, file_name, url, feed_id)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(guid, feed_id) DO NOTHING
        RETURNING id;
    `)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var inserted []int64
	for _, ep := range episodes {
		if ep.GUID == "" {
			// The parser already skips guid-less items; never let one
			// reach the unique index as an empty key.
			log.Printf("Skipping episode with empty guid for feed %d", feedID)
			continue
		}
		var id int64
		err := stmt.QueryRow(ep.GUID, ep.Title, ep.Date, ep.PublishedAt, ep.FileName, ep.URL, feedID).Scan(&id)
		if err == sql.ErrNoRows {
			// Conflict: the (guid, feed_id) pair already exists.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to upsert episode %q: %w", ep.GUID, err)
		}
		inserted = append(inserted, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// GetAllEpisodes retrieves every episode, newest first. Episodes whose
// publish date could not be parsed sort last, by insertion order.
func (s *Store) GetAllEpisodes() ([]*models.Episode, error) {
	return s.queryEpisodes(`
        SELECT id, guid, title, date, published_at, played, played_seconds, file_name, url, feed_id, downloaded
        FROM episodes
        ORDER BY published_at IS NULL, published_at DESC, id DESC
    `)
}

// GetEpisodesByFeedID retrieves the episodes of a single feed, newest first.
func (s *Store) GetEpisodesByFeedID(feedID int64) ([]*models.Episode, error) {
	return s.queryEpisodes(`
        SELECT id, guid, title, date, published_at, played, played_seconds, file_name, url, feed_id, downloaded
        FROM episodes WHERE feed_id = ?
        ORDER BY published_at IS NULL, published_at DESC, id DESC
    `, feedID)
}

// GetEpisodeByID retrieves a single episode by its primary key.
func (s *Store) GetEpisodeByID(id int64) (*models.Episode, error) {
	row := s.db.QueryRow(`
        SELECT id, guid, title, date, published_at, played, played_seconds, file_name, url, feed_id, downloaded
        FROM episodes WHERE id = ?
    `, id)
	ep, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return ep, err
}

// SetEpisodeDownloaded flips the downloaded flag. The flag must reflect
// actual filesystem presence; callers update it only after the file was
// written or removed, or from the liveness reconciliation pass.
func (s *Store) SetEpisodeDownloaded(id int64, downloaded bool) error {
	res, err := s.db.Exec("UPDATE episodes SET downloaded = ? WHERE id = ?", downloaded, id)
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

// UpdateEpisodeProgress records playback progress for an episode.
func (s *Store) UpdateEpisodeProgress(id int64, played bool, playedSeconds int) error {
	res, err := s.db.Exec("UPDATE episodes SET played = ?, played_seconds = ? WHERE id = ?", played, playedSeconds, id)
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

func (s *Store) queryEpisodes(query string, args ...interface{}) ([]*models.Episode, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func scanEpisode(row rowScanner) (*models.Episode, error) {
	var ep models.Episode
	var publishedAt sql.NullTime
	err := row.Scan(&ep.ID, &ep.GUID, &ep.Title, &ep.Date, &publishedAt, &ep.Played,
		&ep.PlayedSeconds, &ep.FileName, &ep.URL, &ep.FeedID, &ep.Downloaded)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		ep.PublishedAt = &publishedAt.Time
	}
	return &ep, nil
}
