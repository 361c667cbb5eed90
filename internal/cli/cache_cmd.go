package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/engine/cache"
	"github.com/rshade/solarfocus/internal/logging"
	"github.com/rshade/solarfocus/internal/migration"
	"github.com/rshade/solarfocus/internal/tui"
)

// ErrConfirmationRequired is returned by `cache clear` when it cannot ask
// for confirmation and --yes was not given.
var ErrConfirmationRequired = errors.New("refusing to clear the cache without confirmation, use --yes")

const defaultClearOldHours = 24

// newCacheCmd creates the cache command group.
func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
		Long: `The response cache stores FusionSolar API responses on disk so repeated
reports for the same period do not hit the API again. Entries expire after the
configured TTL (24 hours by default).`,
	}
	cmd.AddCommand(newCacheStatsCmd(a), newCacheClearCmd(a), newCacheClearOldCmd(a))
	return cmd
}

func newCacheStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry count, size and age of the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openCache(cmd)
			if err != nil {
				return err
			}
			defer closeCache(cmd, c)

			stats, err := c.Stats()
			if err != nil {
				return fmt.Errorf("reading cache stats: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tui.RenderCacheStats(stats, outputWidth(out)))

			if legacy, ok := a.legacyCache(); ok {
				fmt.Fprintf(out, "Legacy cache at %s (%d entries, %s) is no longer used; "+
					"remove it with `solarfocus cache clear --legacy`\n",
					legacy.Path, legacy.Entries, tui.FormatBytes(legacy.TotalBytes))
			}
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	var yes, legacy bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Example: `  # Clear after confirming interactively
  solarfocus cache clear

  # Clear without asking
  solarfocus cache clear --yes

  # Remove the cache left in ./.cache/fusionsolar by earlier releases
  solarfocus cache clear --legacy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if legacy {
				return a.clearLegacy(cmd)
			}

			c, err := a.openCache(cmd)
			if err != nil {
				return err
			}
			defer closeCache(cmd, c)

			if !c.Enabled() {
				return disabledError("clear")
			}

			if !yes {
				if !a.stdinIsTTY() {
					return ErrConfirmationRequired
				}
				answer := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(),
					fmt.Sprintf("Remove every entry from %s?", c.Location()))
				if !answer.Accepted {
					cmd.Println("Aborted.")
					return nil
				}
			}

			removed, err := c.ClearAll()
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			cmd.Printf("Removed %d cache entries\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "remove the legacy cache in ./.cache/fusionsolar instead")
	return cmd
}

func newCacheClearOldCmd(a *app) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "clear-old",
		Short: "Remove cache entries older than the given age",
		Example: `  # Remove entries written more than a day ago
  solarfocus cache clear-old

  # Keep the last two days
  solarfocus cache clear-old --hours 48`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hours < 0 {
				return fmt.Errorf("--hours must be >= 0, got %d", hours)
			}

			c, err := a.openCache(cmd)
			if err != nil {
				return err
			}
			defer closeCache(cmd, c)

			if !c.Enabled() {
				return disabledError("clear-old")
			}

			removed, err := c.ClearOlderThan(hours)
			if err != nil {
				return fmt.Errorf("clearing old cache entries: %w", err)
			}
			cmd.Printf("Removed %d cache entries older than %dh\n", removed, hours)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", defaultClearOldHours, "remove entries older than this many hours")
	return cmd
}

func (a *app) legacyCache() (migration.LegacyCache, bool) {
	wd, err := a.workDir()
	if err != nil {
		return migration.LegacyCache{}, false
	}
	return migration.DetectLegacy(wd)
}

func (a *app) clearLegacy(cmd *cobra.Command) error {
	legacy, ok := a.legacyCache()
	if !ok {
		cmd.Println("No legacy cache found.")
		return nil
	}
	removed, err := legacy.Remove()
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d legacy cache entries from %s\n", removed, legacy.Path)
	return nil
}

// openCache opens the cache configured for this invocation.
func (a *app) openCache(cmd *cobra.Command) (*cache.Cache, error) {
	c, err := cache.Open(a.cfg.CacheSettings(), logging.FromContext(cmd.Context()))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

func closeCache(cmd *cobra.Command, c *cache.Cache) {
	if err := c.Close(); err != nil {
		logging.FromContext(cmd.Context()).Warn().Err(err).Msg("closing cache")
	}
}

func disabledError(op string) error {
	return fmt.Errorf("cannot %s: %w (set cache.enabled: true or SOLARFOCUS_CACHE_ENABLED=true)",
		op, cache.ErrCacheDisabled)
}

// outputWidth returns the terminal width of w, or the default width when w
// is not a terminal.
func outputWidth(w io.Writer) int {
	f, _ := w.(*os.File)
	return tui.TerminalWidth(f)
}
