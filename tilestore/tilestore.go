// Package tilestore writes rendered tiles into an MBTiles-style SQLite
// database.
//
// Tiles are keyed by zoom level, column and row. Rows are stored top
// down, in the same order the tiler produces them, rather than flipped
// as in TMS.
package tilestore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get when no tile exists at the requested
// position.
var ErrNotFound = errors.New("tile not found")

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS metadata (name TEXT NOT NULL UNIQUE, value TEXT)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER NOT NULL, tile_column INTEGER NOT NULL, tile_row INTEGER NOT NULL, tile_data BLOB NOT NULL, UNIQUE (zoom_level, tile_column, tile_row))"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db: db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetMetadata sets a metadata entry, replacing any existing value.
func (s *Store) SetMetadata(name, value string) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
		return fmt.Errorf("set metadata %q: %w", name, err)
	}
	return nil
}

// Metadata returns the value stored for name, or an empty string if
// there isn't one.
func (s *Store) Metadata(name string) (string, error) {
	var value sql.NullString
	switch err := s.db.QueryRow("SELECT value FROM metadata WHERE name = ?", name).Scan(&value); err {
	case sql.ErrNoRows:
		return "", nil
	case nil:
		return value.String, nil
	default:
		return "", err
	}
}

// Put stores an encoded tile, replacing any tile already at the same
// position.
func (s *Store) Put(zoom, col, row int, data []byte) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)", zoom, col, row, data); err != nil {
		return fmt.Errorf("put tile %v/%v/%v: %w", zoom, col, row, err)
	}
	return nil
}

// Get returns the encoded tile at the given position.
func (s *Store) Get(zoom, col, row int) ([]byte, error) {
	var data []byte
	switch err := s.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", zoom, col, row).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, ErrNotFound
	case nil:
		return data, nil
	default:
		return nil, err
	}
}

// Count returns the number of tiles stored.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
