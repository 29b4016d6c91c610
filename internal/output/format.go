package output

import (
	"fmt"
	"time"
)

// Duration formats a duration for human-readable output.
// Handles microseconds, milliseconds, seconds, and minutes.
func Duration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.0fµs", float64(d.Microseconds()))
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	return fmt.Sprintf("%.1fm", d.Minutes())
}

// Bytes converts bytes to human-readable format (KiB, MiB, GiB, etc.)
func Bytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit || limit < 4 {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// Elapsed converts a start and stop pair of epoch milliseconds into a duration.
func Elapsed(start, stop int64) time.Duration {
	if stop <= start {
		return 0
	}
	return time.Duration(stop-start) * time.Millisecond
}
