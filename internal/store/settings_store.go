package store

import (
	"strconv"

	"podbay/internal/models"
)

const (
	settingTheme        = "theme"
	settingAutoDownload = "auto_download"
)

// GetSettings loads the user preferences, applying defaults for any key
// that has never been written.
func (s *Store) GetSettings() (*models.Settings, error) {
	settings := &models.Settings{Theme: "dark", AutoDownload: false}

	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case settingTheme:
			settings.Theme = value
		case settingAutoDownload:
			settings.AutoDownload = value == "true"
		}
	}
	return settings, rows.Err()
}

// SaveSettings writes the user preferences back, last-write-wins.
func (s *Store) SaveSettings(settings *models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value;
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(settingTheme, settings.Theme); err != nil {
		return err
	}
	if _, err := stmt.Exec(settingAutoDownload, strconv.FormatBool(settings.AutoDownload)); err != nil {
		return err
	}
	return tx.Commit()
}
