package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// CacheEntry represents a single cached API payload with its write time and TTL.
//
//nolint:revive // CacheEntry is the canonical name for this exported type.
type CacheEntry struct {
	// Key is the request signature, e.g. "NE=123|month|2025-11".
	Key string `json:"key"`

	// Data is the raw decoded API response.
	Data json.RawMessage `json:"data"`

	// StoredAt is the timestamp when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTLSeconds is the validity window in seconds.
	TTLSeconds int64 `json:"ttl_seconds"`
}

// NewCacheEntry creates an entry stored at the given time with the given TTL.
func NewCacheEntry(key string, data json.RawMessage, storedAt time.Time, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Key:        key,
		Data:       data,
		StoredAt:   storedAt,
		TTLSeconds: int64(ttl / time.Second),
	}
}

// TTL returns the validity window as a duration.
func (e *CacheEntry) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// ExpiresAt returns the instant from which the entry is no longer valid.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL())
}

// IsExpiredAt reports whether the entry is stale at now.
// An entry is valid iff now - StoredAt < TTL.
func (e *CacheEntry) IsExpiredAt(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL()
}

// AgeAt returns how long ago the entry was written, relative to now.
func (e *CacheEntry) AgeAt(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// MarshalJSON implements json.Marshaler for CacheEntry.
// Times are RFC3339 and an informational expires_at is added so files stay
// readable when inspected by hand.
func (e *CacheEntry) MarshalJSON() ([]byte, error) {
	type Alias CacheEntry
	return json.Marshal(&struct {
		*Alias

		StoredAt  string `json:"stored_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		Alias:     (*Alias)(e),
		StoredAt:  e.StoredAt.Format(time.RFC3339Nano),
		ExpiresAt: e.ExpiresAt().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON implements json.Unmarshaler for CacheEntry.
func (e *CacheEntry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil CacheEntry")
	}
	type Alias CacheEntry
	aux := &struct {
		*Alias

		StoredAt string `json:"stored_at"`
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.StoredAt == "" {
		return errors.New("cache entry has no stored_at timestamp")
	}

	storedAt, err := time.Parse(time.RFC3339Nano, aux.StoredAt)
	if err != nil {
		return err
	}
	e.StoredAt = storedAt

	return nil
}
