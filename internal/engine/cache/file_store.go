package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// cacheFileExtension is the file extension used for cache entries.
const cacheFileExtension = ".json"

// File permissions for the cache directory and entry files.
const (
	cacheDirPerm  = 0o750
	cacheFilePerm = 0o600
)

// FileStore stores one indented JSON file per key in a directory.
// File names are the SHA-256 of the key; the key itself is kept inside the
// file so entries remain human-inspectable.
type FileStore struct {
	// directory is the cache directory path.
	directory string

	// mu protects concurrent access to file operations within one process.
	mu sync.RWMutex
}

// NewFileStore creates a file-based store rooted at directory.
// The directory is created on the first write, not here, so that a cache
// that is never written leaves no trace on disk.
func NewFileStore(directory string) (*FileStore, error) {
	if strings.TrimSpace(directory) == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	return &FileStore{directory: directory}, nil
}

// Load implements Store.
func (s *FileStore) Load(key string) Lookup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyToFilePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Miss(MissNotFound, nil)
		}
		return Miss(MissUnavailable, fmt.Errorf("failed to read cache file: %w", err))
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return Miss(MissCorrupt, err)
	}
	if entry.Key != key {
		return Miss(MissCorrupt, fmt.Errorf("cache file holds key %q, want %q", entry.Key, key))
	}
	return Hit(entry)
}

// Save implements Store. The entry is written to a temporary file, synced and
// renamed over the target so readers never observe a partial file.
func (s *FileStore) Save(entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if mkErr := os.MkdirAll(s.directory, cacheDirPerm); mkErr != nil {
		return fmt.Errorf("failed to create cache directory: %w", mkErr)
	}

	tmp, err := os.CreateTemp(s.directory, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tempPath := tmp.Name()

	writeErr := writeAndSync(tmp, entryData)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}

	if chmodErr := os.Chmod(tempPath, cacheFilePerm); chmodErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to set cache file permissions: %w", chmodErr)
	}

	if renameErr := os.Rename(tempPath, s.keyToFilePath(entry.Key)); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// Scan implements Store. A missing directory yields no entries.
func (s *FileStore) Scan() ([]EntryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	infos := make([]EntryInfo, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}

		info := EntryInfo{Ref: dirEntry.Name()}
		if fileInfo, infoErr := dirEntry.Info(); infoErr == nil {
			info.Size = fileInfo.Size()
		}

		data, readErr := os.ReadFile(filepath.Join(s.directory, dirEntry.Name()))
		if readErr != nil {
			info.Corrupt = true
			infos = append(infos, info)
			continue
		}

		entry, decodeErr := decodeEntry(data)
		if decodeErr != nil {
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

// Remove implements Store. Refs are file names inside the cache directory.
func (s *FileStore) Remove(ref string) error {
	if ref == "" || filepath.Base(ref) != ref || filepath.Ext(ref) != cacheFileExtension {
		return fmt.Errorf("invalid cache file reference %q", ref)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.directory, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Location implements Store.
func (s *FileStore) Location() string {
	if abs, err := filepath.Abs(s.directory); err == nil {
		return abs
	}
	return s.directory
}

// FileName returns the file name used for key.
func FileName(key string) string {
	return HashKey(key) + cacheFileExtension
}

// keyToFilePath converts a cache key to a file path.
func (s *FileStore) keyToFilePath(key string) string {
	return filepath.Join(s.directory, FileName(key))
}

func decodeEntry(data []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if entry.Key == "" {
		return nil, errors.New("cache entry has no key")
	}
	return &entry, nil
}
