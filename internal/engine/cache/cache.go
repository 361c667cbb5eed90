package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Storage backends selectable through Settings.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// sqliteFileName is the database file name used inside the cache directory.
const sqliteFileName = "cache.db"

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Options configure a Cache.
type Options struct {
	// Enabled turns the cache on. A disabled cache never reads or writes storage.
	Enabled bool

	// TTL is the validity window for new entries. Zero means DefaultTTL.
	TTL time.Duration

	// Logger receives hit/miss debug events and storage warnings. Nil discards logs.
	Logger *zerolog.Logger

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time
}

// Settings select and configure a storage backend for Open.
type Settings struct {
	Enabled   bool
	Backend   string
	Directory string
	TTL       time.Duration
}

// Stats summarizes the stored entries. Computing it has no side effects.
type Stats struct {
	Enabled    bool
	Location   string
	TTL        time.Duration
	Entries    int
	Expired    int
	Corrupt    int
	TotalBytes int64
	OldestAge  time.Duration
	NewestAge  time.Duration
}

// Cache is a TTL response cache in front of the FusionSolar API.
// Storage problems never surface from Get or Set; they are logged and the
// caller proceeds as on a miss.
type Cache struct {
	store   Store
	enabled bool
	ttl     time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a cache over store. When opts.Enabled is false the store is
// never touched and may be nil.
func New(store Store, opts Options) *Cache {
	c := &Cache{
		store:   store,
		enabled: opts.Enabled && store != nil,
		ttl:     opts.TTL,
		logger:  zerolog.Nop(),
		now:     opts.Clock,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("component", "cache").Logger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Disabled returns a cache that always misses and never stores.
func Disabled() *Cache {
	return New(nil, Options{})
}

// Open builds the store selected by settings and wraps it in a Cache.
// A disabled configuration creates no storage at all.
func Open(settings Settings, logger *zerolog.Logger) (*Cache, error) {
	opts := Options{Enabled: settings.Enabled, TTL: settings.TTL, Logger: logger}
	if !settings.Enabled {
		return New(nil, opts), nil
	}

	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendFile:
		store, err = NewFileStore(settings.Directory)
	case BackendSQLite:
		store, err = NewSQLiteStore(filepath.Join(settings.Directory, sqliteFileName))
	case BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, settings.Backend)
	}
	if err != nil {
		return nil, err
	}

	c := New(store, opts)
	c.logger.Debug().
		Str("location", store.Location()).
		Str("ttl", FormatDuration(c.ttl)).
		Msg("cache enabled")
	return c, nil
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// TTL returns the validity window applied to new entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Location describes where entries are stored, or "" when disabled.
func (c *Cache) Location() string {
	if !c.enabled {
		return ""
	}
	return c.store.Location()
}

// Lookup reads key and applies expiry. It never fails: storage problems are
// reported as a miss with a reason.
func (c *Cache) Lookup(key string) Lookup {
	if !c.enabled {
		return Miss(MissDisabled, nil)
	}

	result := c.store.Load(key)
	if !result.Found() {
		switch result.Reason {
		case MissNotFound:
			c.logger.Debug().Str("key", key).Msg("cache miss")
		default:
			c.logger.Warn().
				Err(result.Err).
				Str("key", key).
				Str("reason", string(result.Reason)).
				Msg("cache entry unreadable, treating as miss")
		}
		return result
	}

	now := c.now()
	if result.Entry.IsExpiredAt(now) {
		c.logger.Debug().
			Str("key", key).
			Str("age", FormatDuration(result.Entry.AgeAt(now))).
			Msg("cache entry expired")
		return Miss(MissExpired, nil)
	}

	c.logger.Debug().Str("key", key).Msg("cache hit")
	return result
}

// Get returns the payload stored under key if present and not expired.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	result := c.Lookup(key)
	if !result.Found() {
		return nil, false
	}
	return result.Entry.Data, true
}

// Set stores payload under key with the current time, replacing any prior
// entry. Failures are logged and otherwise ignored.
func (c *Cache) Set(key string, payload json.RawMessage) {
	if !c.enabled {
		return
	}
	if key == "" {
		c.logger.Warn().Msg("refusing to cache payload under an empty key")
		return
	}
	if !json.Valid(payload) {
		c.logger.Warn().Str("key", key).Msg("refusing to cache invalid JSON payload")
		return
	}

	entry := NewCacheEntry(key, payload, c.now(), c.ttl)
	if err := c.store.Save(entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
		return
	}
	c.logger.Debug().Str("key", key).Msg("cache entry stored")
}

// ClearAll deletes every stored entry, corrupt ones included, and returns
// how many were removed.
func (c *Cache) ClearAll() (int, error) {
	return c.sweep(func(EntryInfo) bool { return true })
}

// maxSweepHours is the largest age ClearOlderThan can express as a Duration.
const maxSweepHours = int64(math.MaxInt64 / time.Hour)

// ClearOlderThan deletes entries written more than hours ago and returns how
// many were removed. Corrupt entries have no timestamp and are left alone.
func (c *Cache) ClearOlderThan(hours int) (int, error) {
	if hours < 0 {
		return 0, fmt.Errorf("%w: got %d hours", ErrInvalidAge, hours)
	}
	if int64(hours) > maxSweepHours {
		// Nothing can be older than the representable range.
		return c.sweep(func(EntryInfo) bool { return false })
	}
	cutoff := c.now().Add(-time.Duration(hours) * time.Hour)
	return c.sweep(func(info EntryInfo) bool {
		return !info.Corrupt && info.StoredAt.Before(cutoff)
	})
}

func (c *Cache) sweep(match func(EntryInfo) bool) (int, error) {
	if !c.enabled {
		return 0, ErrCacheDisabled
	}

	infos, err := c.store.Scan()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, info := range infos {
		if !match(info) {
			continue
		}
		if removeErr := c.store.Remove(info.Ref); removeErr != nil {
			c.logger.Warn().Err(removeErr).Str("ref", info.Ref).Msg("failed to remove cache entry")
			continue
		}
		removed++
	}

	c.logger.Info().Int("removed", removed).Msg("cache cleared")
	return removed, nil
}

// Stats reports entry count, ages and total size.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Enabled: c.enabled, TTL: c.ttl}
	if !c.enabled {
		return stats, nil
	}
	stats.Location = c.store.Location()

	infos, err := c.store.Scan()
	if err != nil {
		return stats, err
	}

	now := c.now()
	var oldest, newest time.Time
	for _, info := range infos {
		stats.Entries++
		stats.TotalBytes += info.Size
		if info.Corrupt {
			stats.Corrupt++
			continue
		}
		if now.Sub(info.StoredAt) >= info.TTL {
			stats.Expired++
		}
		if oldest.IsZero() || info.StoredAt.Before(oldest) {
			oldest = info.StoredAt
		}
		if newest.IsZero() || info.StoredAt.After(newest) {
			newest = info.StoredAt
		}
	}
	if !oldest.IsZero() {
		stats.OldestAge = now.Sub(oldest)
		stats.NewestAge = now.Sub(newest)
	}
	return stats, nil
}

// Close releases resources held by the underlying store, if any.
func (c *Cache) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
