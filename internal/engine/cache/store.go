package cache

import (
	"errors"
	"time"
)

// Common cache errors.
var (
	ErrCacheDisabled = errors.New("cache is disabled")
	ErrInvalidAge    = errors.New("age must be zero or positive")
)

// EntryInfo describes a stored entry without its payload. It is what
// maintenance operations and statistics work from.
type EntryInfo struct {
	// Ref is the store-specific handle used to remove the entry
	// (a file name for FileStore, the key for the other stores).
	Ref string

	// Key is the request signature, empty when the entry is corrupt.
	Key string

	// StoredAt is the write time, zero when the entry is corrupt.
	StoredAt time.Time

	// TTL is the validity window the entry was written with, zero when the
	// entry is corrupt.
	TTL time.Duration

	// Size is the number of bytes the entry occupies in storage.
	Size int64

	// Corrupt is true when the entry could not be decoded.
	Corrupt bool
}

// Store is the storage abstraction behind Cache. Implementations persist
// entries by key and never interpret payloads. Payload bytes are preserved up
// to insignificant whitespace: FileStore and MemoryStore keep them compacted.
type Store interface {
	// Load reads the entry for key. A missing key is a Miss, never an error.
	Load(key string) Lookup

	// Save writes the entry, replacing any prior entry with the same key.
	// The write is complete when Save returns.
	Save(entry *CacheEntry) error

	// Scan lists every stored entry, including corrupt ones.
	Scan() ([]EntryInfo, error)

	// Remove deletes the entry identified by ref. Removing a missing ref is not an error.
	Remove(ref string) error

	// Location describes where the store keeps its data.
	Location() string
}
