package cache

// MissReason explains why a lookup did not produce a usable entry.
type MissReason string

// Miss reasons reported by stores and by the cache itself.
const (
	// MissNotFound means no entry exists for the key.
	MissNotFound MissReason = "not_found"

	// MissCorrupt means an entry exists but could not be decoded.
	MissCorrupt MissReason = "corrupt"

	// MissUnavailable means the storage could not be read (permissions, I/O).
	MissUnavailable MissReason = "unavailable"

	// MissExpired means the entry exists but its TTL has elapsed.
	MissExpired MissReason = "expired"

	// MissDisabled means caching is turned off.
	MissDisabled MissReason = "disabled"
)

// Lookup is the result of reading a key from a Store: either a hit carrying
// the entry, or a miss carrying the reason and, for storage failures, the
// underlying error.
type Lookup struct {
	Entry  *CacheEntry
	Reason MissReason
	Err    error
}

// Hit returns a successful lookup.
func Hit(entry *CacheEntry) Lookup {
	return Lookup{Entry: entry}
}

// Miss returns a failed lookup with the given reason.
func Miss(reason MissReason, err error) Lookup {
	return Lookup{Reason: reason, Err: err}
}

// Found reports whether the lookup produced an entry.
func (l Lookup) Found() bool {
	return l.Entry != nil
}
