package cache

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.December, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(t *testing.T, store Store, clock *fakeClock) *Cache {
	t.Helper()
	return New(store, Options{Enabled: true, TTL: DefaultTTL, Clock: clock.Now})
}

// storeFactories lets each behavioral test run against every backend.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(_ *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
			require.NoError(t, err)
			return store
		},
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func TestCacheEntry(t *testing.T) {
	storedAt := time.Date(2025, time.November, 30, 12, 0, 0, 0, time.UTC)
	entry := NewCacheEntry("NE=1|month|2025-11", json.RawMessage(`{"foo":"bar"}`), storedAt, 24*time.Hour)

	assert.Equal(t, int64(86400), entry.TTLSeconds)
	assert.Equal(t, storedAt.Add(24*time.Hour), entry.ExpiresAt())
	assert.False(t, entry.IsExpiredAt(storedAt.Add(23*time.Hour)))
	assert.True(t, entry.IsExpiredAt(storedAt.Add(24*time.Hour)))
	assert.Equal(t, 2*time.Hour, entry.AgeAt(storedAt.Add(2*time.Hour)))

	t.Run("JSON", func(t *testing.T) {
		encoded, err := json.Marshal(entry)
		require.NoError(t, err)
		assert.Contains(t, string(encoded), `"expires_at":"2025-12-01T12:00:00Z"`)

		var decoded CacheEntry
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, entry.Key, decoded.Key)
		assert.Equal(t, entry.TTLSeconds, decoded.TTLSeconds)
		assert.True(t, entry.StoredAt.Equal(decoded.StoredAt))
		assert.JSONEq(t, `{"foo":"bar"}`, string(decoded.Data))
	})

	t.Run("MissingTimestamp", func(t *testing.T) {
		var decoded CacheEntry
		err := json.Unmarshal([]byte(`{"key":"k","data":{}}`), &decoded)
		assert.Error(t, err)
	})
}

func TestCacheRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			c := newTestCache(t, factory(t), newFakeClock())

			c.Set("NE=123|month|2025-11", json.RawMessage(`{"energy_kwh": 1286.98}`))

			got, ok := c.Get("NE=123|month|2025-11")
			require.True(t, ok)
			assert.JSONEq(t, `{"energy_kwh": 1286.98}`, string(got))

			_, ok = c.Get("NE=123|month|2025-10")
			assert.False(t, ok)
		})
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := newTestCache(t, NewMemoryStore(), newFakeClock())

	c.Set("k", json.RawMessage(`{"v":1}`))
	c.Set("k", json.RawMessage(`{"v":2}`))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestCacheExpiry(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := newTestCache(t, factory(t), clock)
			c.Set("k", json.RawMessage(`1`))

			clock.Advance(DefaultTTL - time.Second)
			_, ok := c.Get("k")
			assert.True(t, ok, "entry should still be valid just before TTL")

			clock.Advance(2 * time.Second)
			result := c.Lookup("k")
			assert.False(t, result.Found(), "entry should be expired just after TTL")
			assert.Equal(t, MissExpired, result.Reason)
		})
	}
}

func TestCacheExpiredEntryNotDeletedOnRead(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestCache(t, store, clock)
	c.Set("k", json.RawMessage(`1`))

	clock.Advance(DefaultTTL + time.Hour)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len(), "expired entries are only removed by maintenance")

	c.Set("k", json.RawMessage(`2`))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `2`, string(got))
}

func TestCacheScenarioRewoundTimestamp(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestCache(t, store, clock)

	key := "NE=123|month|2025-11"
	c.Set(key, json.RawMessage(`{"energy_kwh": 1286.98}`))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.JSONEq(t, `{"energy_kwh": 1286.98}`, string(got))

	// Force the stored time back 25 hours.
	lookup := store.Load(key)
	require.True(t, lookup.Found())
	lookup.Entry.StoredAt = lookup.Entry.StoredAt.Add(-25 * time.Hour)
	require.NoError(t, store.Save(lookup.Entry))

	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(Settings{Enabled: false, Backend: BackendFile, Directory: dir}, nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c.Set("k", json.RawMessage(`{"a":1}`))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, MissDisabled, c.Lookup("k").Reason)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "disabled cache must not create storage")

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.False(t, stats.Enabled)

	_, err = c.ClearAll()
	assert.ErrorIs(t, err, ErrCacheDisabled)
}

func TestCacheClearAllIdempotent(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			c := newTestCache(t, factory(t), newFakeClock())
			c.Set("a", json.RawMessage(`1`))
			c.Set("b", json.RawMessage(`2`))
			c.Set("c", json.RawMessage(`3`))

			removed, err := c.ClearAll()
			require.NoError(t, err)
			assert.Equal(t, 3, removed)

			removed, err = c.ClearAll()
			require.NoError(t, err)
			assert.Equal(t, 0, removed)

			stats, err := c.Stats()
			require.NoError(t, err)
			assert.Equal(t, 0, stats.Entries)
		})
	}
}

func TestCacheClearOlderThan(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := newTestCache(t, factory(t), clock)

			c.Set("aged-50h", json.RawMessage(`1`))
			clock.Advance(20 * time.Hour)
			c.Set("aged-30h", json.RawMessage(`2`))
			clock.Advance(20 * time.Hour)
			c.Set("aged-10h", json.RawMessage(`3`))
			clock.Advance(10 * time.Hour)

			removed, err := c.ClearOlderThan(48)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			stats, err := c.Stats()
			require.NoError(t, err)
			assert.Equal(t, 2, stats.Entries)
			assert.Equal(t, 30*time.Hour, stats.OldestAge)
			assert.Equal(t, 10*time.Hour, stats.NewestAge)
		})
	}
}

func TestCacheClearOlderThanRejectsNegative(t *testing.T) {
	c := newTestCache(t, NewMemoryStore(), newFakeClock())
	_, err := c.ClearOlderThan(-1)
	assert.ErrorIs(t, err, ErrInvalidAge)
}

func TestCacheClearOlderThanBeyondDurationRange(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			c := newTestCache(t, factory(t), newFakeClock())
			c.Set("fresh", json.RawMessage(`1`))

			for _, hours := range []int{3_000_000, 5_000_000, math.MaxInt} {
				removed, err := c.ClearOlderThan(hours)
				require.NoError(t, err)
				assert.Equal(t, 0, removed, "hours=%d", hours)
			}

			_, ok := c.Get("fresh")
			assert.True(t, ok)
		})
	}
}

func TestCacheStatsExpiryUsesEntryTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	short := New(store, Options{Enabled: true, TTL: time.Hour, Clock: clock.Now})
	long := New(store, Options{Enabled: true, TTL: 48 * time.Hour, Clock: clock.Now})

	short.Set("written-with-1h", json.RawMessage(`1`))
	long.Set("written-with-48h", json.RawMessage(`2`))
	clock.Advance(2 * time.Hour)

	for _, c := range []*Cache{short, long} {
		stats, err := c.Stats()
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Entries)
		assert.Equal(t, 1, stats.Expired, "cache ttl %s", c.TTL())
	}

	_, ok := short.Get("written-with-48h")
	assert.True(t, ok)
	_, ok = long.Get("written-with-1h")
	assert.False(t, ok)
}

func TestCacheStats(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestCache(t, store, clock)

	c.Set("old", json.RawMessage(`{"a":1}`))
	clock.Advance(30 * time.Hour)
	c.Set("new", json.RawMessage(`{"b":2}`))
	clock.Advance(time.Hour)
	store.PutRaw("broken", []byte("{not json"))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, "memory", stats.Location)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 1, stats.Corrupt)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 31*time.Hour, stats.OldestAge)
	assert.Equal(t, time.Hour, stats.NewestAge)
	assert.Greater(t, stats.TotalBytes, int64(0))
	assert.Equal(t, 3, store.Len(), "stats must not modify storage")
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		c := newTestCache(t, store, newFakeClock())
		store.PutRaw("k", []byte("{not json"))

		result := c.Lookup("k")
		assert.False(t, result.Found())
		assert.Equal(t, MissCorrupt, result.Reason)
		assert.Error(t, result.Err)
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)
		c := newTestCache(t, store, newFakeClock())

		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("k")), []byte("garbage"), 0o600))

		_, ok := c.Get("k")
		assert.False(t, ok)

		// The next successful Set repairs the entry.
		c.Set("k", json.RawMessage(`{"ok":true}`))
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.JSONEq(t, `{"ok":true}`, string(got))
	})
}

func TestSQLiteStoreInvalidPayloadIsCorrupt(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	clock := newFakeClock()
	c := newTestCache(t, store, clock)

	c.Set("good", json.RawMessage(`{"ok":true}`))
	_, err = store.db.Exec(
		"INSERT INTO entries (key, data, stored_at, ttl_seconds) VALUES (?, ?, ?, ?)",
		"bad", []byte("{not json"), time.Now().UnixNano(), int64(3600),
	)
	require.NoError(t, err)

	assert.Equal(t, MissCorrupt, c.Lookup("bad").Reason)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 1, stats.Corrupt)

	clock.Advance(time.Hour)
	removed, err := c.ClearOlderThan(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "the age sweep skips corrupt rows")

	removed, err = c.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCacheUnavailableStorageDegrades(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(t, store, newFakeClock())
	store.SetFailure(errors.New("permission denied"))

	assert.NotPanics(t, func() { c.Set("k", json.RawMessage(`1`)) })
	result := c.Lookup("k")
	assert.False(t, result.Found())
	assert.Equal(t, MissUnavailable, result.Reason)

	store.SetFailure(nil)
	_, ok := c.Get("k")
	assert.False(t, ok, "failed write must not have stored anything")
}

func TestCacheRejectsInvalidPayload(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(t, store, newFakeClock())

	c.Set("k", json.RawMessage(`{broken`))
	c.Set("", json.RawMessage(`1`))
	assert.Equal(t, 0, store.Len())
}

func TestOpen(t *testing.T) {
	t.Run("file backend", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "fusionsolar")
		c, err := Open(Settings{Enabled: true, Directory: dir, TTL: time.Hour}, nil)
		require.NoError(t, err)
		assert.True(t, c.Enabled())
		assert.Equal(t, time.Hour, c.TTL())

		c.Set("k", json.RawMessage(`1`))
		_, statErr := os.Stat(filepath.Join(dir, FileName("k")))
		require.NoError(t, statErr)
		require.NoError(t, c.Close())
	})

	t.Run("sqlite backend", func(t *testing.T) {
		dir := t.TempDir()
		c, err := Open(Settings{Enabled: true, Backend: BackendSQLite, Directory: dir}, nil)
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, DefaultTTL, c.TTL())
		assert.Contains(t, c.Location(), sqliteFileName)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(Settings{Enabled: true, Backend: "redis", Directory: t.TempDir()}, nil)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Open(Settings{Enabled: true, Backend: BackendFile}, nil)
		assert.Error(t, err)
	})
}
