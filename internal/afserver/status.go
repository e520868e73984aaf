package afserver

import (
	"strings"

	"foldbatch/internal/driver"
)

// ClassifyStatusText maps the raw text of a status icon, tooltip or row
// onto the canonical status enum. Matching is case-insensitive and
// substring-based; icon ligature names and human-readable labels both
// classify. The bool is false when nothing recognizable was found.
func ClassifyStatusText(raw string) (driver.Status, bool) {
	text := strings.ToLower(raw)
	switch {
	case strings.Contains(text, "check_circle"),
		strings.Contains(text, "done"),
		strings.Contains(text, "complete"),
		strings.Contains(text, "succeeded"),
		strings.Contains(text, "success"):
		return driver.StatusCompleted, true
	case strings.Contains(text, "error"),
		strings.Contains(text, "cancel"),
		strings.Contains(text, "failed"):
		return driver.StatusFailed, true
	case strings.Contains(text, "running"),
		strings.Contains(text, "progress"),
		strings.Contains(text, "processing"),
		strings.Contains(text, "hourglass"):
		return driver.StatusRunning, true
	case strings.Contains(text, "queued"),
		strings.Contains(text, "pending"),
		strings.Contains(text, "schedule"),
		strings.Contains(text, "waiting"):
		return driver.StatusQueued, true
	default:
		return driver.StatusUnknown, false
	}
}
