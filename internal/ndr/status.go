package ndr

import (
	"fmt"
	"strings"
)

// StatusKind is the closed classification of the free-text status string the
// backend reports. The raw string keeps travelling alongside it; the kind only
// drives display tier and action derivation.
type StatusKind int

const (
	StatusOther StatusKind = iota
	StatusCompleted
	StatusCompletedWithErrors
	StatusFailed
	StatusPaused
	StatusProcessing
)

// Tag is the display tier for a status badge.
type Tag string

const (
	TagSuccess Tag = "success"
	TagWarning Tag = "warning"
	TagError   Tag = "error"
	TagInfo    Tag = "info"
	TagNeutral Tag = "neutral"
)

// ClassifyStatus maps a raw status string to its kind. The completed family is
// matched by substring, not equality: "Completed with errors in 2 records"
// still classifies as completed. Everything else is exact after lowercasing.
func ClassifyStatus(status string) StatusKind {
	lower := strings.ToLower(status)

	if strings.Contains(lower, "completed") {
		if strings.Contains(lower, "error") {
			return StatusCompletedWithErrors
		}
		return StatusCompleted
	}

	switch lower {
	case "failed":
		return StatusFailed
	case "processing":
		return StatusProcessing
	case "paused":
		return StatusPaused
	default:
		return StatusOther
	}
}

// StatusTag returns the display tier for a raw status string.
func StatusTag(status string) Tag {
	switch ClassifyStatus(status) {
	case StatusCompleted:
		return TagSuccess
	case StatusCompletedWithErrors, StatusPaused:
		return TagWarning
	case StatusFailed:
		return TagError
	case StatusProcessing:
		return TagInfo
	default:
		return TagNeutral
	}
}

// ProgressPercent renders processed/total as a two-decimal percentage string.
// A zero or negative total yields "0.00" rather than a division error, and a
// processed count past the total is clamped to "100.00".
func ProgressPercent(processed, total int64) string {
	if total <= 0 {
		return "0.00"
	}
	pct := float64(processed) / float64(total) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return fmt.Sprintf("%.2f", pct)
}
