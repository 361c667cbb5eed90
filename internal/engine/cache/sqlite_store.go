package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS entries (
	key         TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	stored_at   INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL
)`

// SQLiteStore keeps all entries in a single SQLite database file.
// It suits operators who prefer one artifact over a directory of files.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("cache database path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// Sequential usage; one connection avoids "database is locked" surprises.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(key string) Lookup {
	var (
		data       []byte
		storedAt   int64
		ttlSeconds int64
	)
	err := s.db.QueryRow(
		"SELECT data, stored_at, ttl_seconds FROM entries WHERE key = ?", key,
	).Scan(&data, &storedAt, &ttlSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return Miss(MissNotFound, nil)
	}
	if err != nil {
		return Miss(MissUnavailable, fmt.Errorf("failed to query cache entry: %w", err))
	}
	if !json.Valid(data) {
		return Miss(MissCorrupt, errors.New("stored payload is not valid JSON"))
	}

	return Hit(&CacheEntry{
		Key:        key,
		Data:       json.RawMessage(data),
		StoredAt:   time.Unix(0, storedAt),
		TTLSeconds: ttlSeconds,
	})
}

// Save implements Store.
func (s *SQLiteStore) Save(entry *CacheEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO entries (key, data, stored_at, ttl_seconds) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data,
		   stored_at = excluded.stored_at, ttl_seconds = excluded.ttl_seconds`,
		entry.Key, []byte(entry.Data), entry.StoredAt.UnixNano(), entry.TTLSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Scan implements Store.
func (s *SQLiteStore) Scan() ([]EntryInfo, error) {
	rows, err := s.db.Query(
		"SELECT key, data, stored_at, ttl_seconds, length(key) + length(data) FROM entries ORDER BY key",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var infos []EntryInfo
	for rows.Next() {
		var (
			key        string
			data       []byte
			storedAt   int64
			ttlSeconds int64
			size       int64
		)
		if scanErr := rows.Scan(&key, &data, &storedAt, &ttlSeconds, &size); scanErr != nil {
			return nil, fmt.Errorf("failed to read cache entry row: %w", scanErr)
		}
		info := EntryInfo{Ref: key, Size: size}
		if json.Valid(data) {
			info.Key = key
			info.StoredAt = time.Unix(0, storedAt)
			info.TTL = time.Duration(ttlSeconds) * time.Second
		} else {
			info.Corrupt = true
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ref string) error {
	if _, err := s.db.Exec("DELETE FROM entries WHERE key = ?", ref); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Location implements Store.
func (s *SQLiteStore) Location() string {
	if abs, err := filepath.Abs(s.path); err == nil {
		return abs
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
