package cache

import (
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore keeps entries in a map. It is used by tests and by callers that
// want request de-duplication within a single process without touching disk.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	failure error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Load implements Store.
func (s *MemoryStore) Load(key string) Lookup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failure != nil {
		return Miss(MissUnavailable, s.failure)
	}

	raw, ok := s.entries[key]
	if !ok {
		return Miss(MissNotFound, nil)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return Miss(MissCorrupt, err)
	}
	return Hit(entry)
}

// Save implements Store. Entries are kept in their encoded form so that
// payloads are isolated from later mutation by the caller.
func (s *MemoryStore) Save(entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return s.failure
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.entries[entry.Key] = raw
	return nil
}

// Scan implements Store. Results are ordered by key.
func (s *MemoryStore) Scan() ([]EntryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failure != nil {
		return nil, s.failure
	}

	infos := make([]EntryInfo, 0, len(s.entries))
	for key, raw := range s.entries {
		info := EntryInfo{Ref: key, Size: int64(len(raw))}
		entry, err := decodeEntry(raw)
		if err != nil {
			info.Corrupt = true
		} else {
			info.Key = entry.Key
			info.StoredAt = entry.StoredAt
			info.TTL = entry.TTL()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Ref < infos[j].Ref })
	return infos, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return s.failure
	}
	delete(s.entries, ref)
	return nil
}

// Location implements Store.
func (s *MemoryStore) Location() string {
	return "memory"
}

// PutRaw stores raw bytes under key, bypassing encoding. Tests use it to
// plant corrupt entries.
func (s *MemoryStore) PutRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = raw
}

// SetFailure makes every subsequent operation fail with err, simulating
// unavailable storage. Pass nil to restore normal behavior.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
