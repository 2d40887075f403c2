package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"podbay/internal/models"
)

// SaveQueue persists the play queue, replacing whatever was stored before.
// The queue is one row holding a JSON array of episode ids in play order.
func (s *Store) SaveQueue(episodeIDs []int64) error {
	if episodeIDs == nil {
		episodeIDs = []int64{}
	}
	serialized, err := json.Marshal(episodeIDs)
	if err != nil {
		return fmt.Errorf("failed to serialize queue: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM queue"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO queue (id, episodes) VALUES (1, ?)", string(serialized)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetQueueIDs returns the persisted play queue as an ordered list of
// episode ids. An empty queue is not an error.
func (s *Store) GetQueueIDs() ([]int64, error) {
	var serialized string
	err := s.db.QueryRow("SELECT episodes FROM queue WHERE id = 1").Scan(&serialized)
	if err == sql.ErrNoRows {
		return []int64{}, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal([]byte(serialized), &ids); err != nil {
		return nil, fmt.Errorf("failed to deserialize queue: %w", err)
	}
	return ids, nil
}

// GetQueueEpisodes resolves the persisted queue against live episode state.
// An id whose episode has since been deleted is pruned, not fatal.
func (s *Store) GetQueueEpisodes() ([]*models.Episode, error) {
	ids, err := s.GetQueueIDs()
	if err != nil {
		return nil, err
	}

	episodes := make([]*models.Episode, 0, len(ids))
	for _, id := range ids {
		ep, err := s.GetEpisodeByID(id)
		if errors.Is(err, ErrNotFound) {
			log.Printf("Dropping queued episode %d: no longer exists", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}
