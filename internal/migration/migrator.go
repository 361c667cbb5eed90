// Package migration finds response caches written by earlier releases,
// which kept MD5-named entries under ./.cache/fusionsolar. Their keys and
// entry format cannot be read by the current cache, so they can only be
// reported and removed.
package migration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LegacyCacheDir is the cache location used by earlier releases, relative
// to the working directory.
const LegacyCacheDir = ".cache/fusionsolar"

const legacyEntryExt = ".json"

// LegacyCache describes a legacy cache directory.
type LegacyCache struct {
	Path       string
	Entries    int
	TotalBytes int64
}

// DetectLegacy checks whether workDir holds a legacy cache directory.
func DetectLegacy(workDir string) (LegacyCache, bool) {
	path := filepath.Join(workDir, filepath.FromSlash(LegacyCacheDir))
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return LegacyCache{}, false
	}

	legacy := LegacyCache{Path: path}
	entries, err := os.ReadDir(path)
	if err != nil {
		return legacy, true
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != legacyEntryExt {
			continue
		}
		legacy.Entries++
		if fi, infoErr := e.Info(); infoErr == nil {
			legacy.TotalBytes += fi.Size()
		}
	}
	return legacy, true
}

// Remove deletes the legacy entries and the directory, when it is left
// empty. Files that are not cache entries are kept. It returns how many
// entries were removed.
func (l LegacyCache) Remove() (int, error) {
	entries, err := os.ReadDir(l.Path)
	if err != nil {
		return 0, fmt.Errorf("reading legacy cache %s: %w", l.Path, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != legacyEntryExt {
			continue
		}
		if rmErr := os.Remove(filepath.Join(l.Path, e.Name())); rmErr != nil {
			return removed, fmt.Errorf("removing legacy cache entry: %w", rmErr)
		}
		removed++
	}

	// Fails harmlessly when other files remain.
	_ = os.Remove(l.Path)
	return removed, nil
}

// RunCleanup asks whether to remove the legacy cache in workDir and removes
// it on a yes. It does nothing when there is no legacy cache.
func RunCleanup(out io.Writer, in io.Reader, workDir string) error {
	legacy, exists := DetectLegacy(workDir)
	if !exists {
		return nil
	}

	fmt.Fprintf(out, "Detected a legacy response cache at %s (%d entries).\n", legacy.Path, legacy.Entries)
	fmt.Fprint(out, "Its entries cannot be reused. Remove it? [y/N] ")

	var response string
	if _, scanErr := fmt.Fscanln(in, &response); scanErr != nil {
		// If we can't read input, treat as "no"
		response = ""
	}
	response = strings.ToLower(strings.TrimSpace(response))

	if response != "y" && response != "yes" && response != "s" && response != "sim" {
		fmt.Fprintln(out, "Legacy cache kept.")
		return nil
	}

	removed, err := legacy.Remove()
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(out, "Removed %d legacy cache entries.\n", removed)
	return nil
}
