// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a feed or episode id does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateFeed is returned when a feed with the same URL is already
// subscribed. The URL is the natural key of a feed.
var ErrDuplicateFeed = errors.New("feed already subscribed")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
