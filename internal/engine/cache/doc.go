// Package cache provides persistent caching with TTL expiration for FusionSolar API responses.
//
// The cache sits between the data extractor and the vendor API client so that
// repeated report runs during development do not hit the vendor rate limits. Key features:
//   - Pluggable storage: one JSON file per key (default), a single SQLite file, or memory (tests)
//   - Configurable TTL (default 24 hours) passed in at construction time
//   - Deterministic keys derived from endpoint, station and a canonical period
//   - Storage failures degrade to cache misses; the upstream API stays the source of truth
//   - Explicit maintenance: clear everything or sweep entries older than N hours
//
// Expired entries are reported as misses but are only removed by a maintenance
// sweep or overwritten by the next successful fetch for the same key.
package cache
