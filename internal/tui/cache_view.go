package tui

import (
	"strings"

	"github.com/rshade/solarfocus/internal/engine/cache"
	"github.com/rshade/solarfocus/internal/metrics"
)

// RenderCacheStats renders the `cache stats` summary.
func RenderCacheStats(stats cache.Stats, width int) string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render("RESPONSE CACHE"))
	content.WriteString("\n")

	if !stats.Enabled {
		content.WriteString(labelRow("Status:", "disabled"))
		content.WriteString("\n")
		content.WriteString(SubtleStyle.Render("Every request goes to the FusionSolar API."))
		return box(content.String(), width)
	}

	content.WriteString(labelRow("Status:", "enabled"))
	content.WriteString("\n")
	content.WriteString(labelRow("Location:", stats.Location))
	content.WriteString("\n")
	content.WriteString(labelRow("TTL:", cache.FormatDuration(stats.TTL)))
	content.WriteString("\n")
	content.WriteString(labelRow("Entries:", metrics.FormatNumber(int64(stats.Entries))))
	content.WriteString("\n")
	content.WriteString(labelRow("Size:", FormatBytes(stats.TotalBytes)))

	if stats.Entries > 0 {
		content.WriteString("\n")
		content.WriteString(labelRow("Oldest entry:", cache.FormatDuration(stats.OldestAge)+" ago"))
		content.WriteString("\n")
		content.WriteString(labelRow("Newest entry:", cache.FormatDuration(stats.NewestAge)+" ago"))
	}
	if stats.Expired > 0 {
		content.WriteString("\n")
		content.WriteString(labelRow("Expired:", metrics.FormatNumber(int64(stats.Expired))))
		content.WriteString(SubtleStyle.Render("  (run `solarfocus cache clear-old` to remove)"))
	}
	if stats.Corrupt > 0 {
		content.WriteString("\n")
		content.WriteString(LabelStyle.Width(labelWidth).Render("Unreadable:"))
		content.WriteString(WarningStyle.Render(metrics.FormatNumber(int64(stats.Corrupt))))
	}

	return box(content.String(), width)
}

// FormatBytes formats a size in binary units, e.g. "1.5 KiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return metrics.FormatNumber(n) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return metrics.FormatFloat(float64(n)/float64(div), 1) + " " + string("KMGTPE"[exp]) + "iB"
}
