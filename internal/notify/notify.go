// Package notify defines the outbound messaging contract and renders the
// user-facing message texts. Rendering lives here so that the bot transport
// and the delivery pipeline agree on one voice.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagewatch/internal/storage"
)

// Messenger delivers text and files to a chat. The bot transport implements
// it; everything else depends only on this interface.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendFile(ctx context.Context, chatID int64, path, caption string) error
}

// PageChanged announces a content change, sent on every hash change whether
// or not new files were found.
func PageChanged(url string) string {
	return fmt.Sprintf("🔔 Page updated: %s", url)
}

// TrackStarted confirms a new tracking entry.
func TrackStarted(t *storage.TrackedURL) string {
	night := "OFF"
	if t.NightMode {
		night = "ON"
	}
	return fmt.Sprintf("✅ Tracking started for %s\n• Interval: %d minutes\n• Night mode: %s",
		t.URL, int(t.Interval.Minutes()), night)
}

// TrackStopped confirms removal of a tracking entry.
func TrackStopped(url string) string {
	return fmt.Sprintf("✅ Stopped tracking %s", url)
}

// TrackedList renders the owner's tracked URLs.
func TrackedList(tracked []*storage.TrackedURL) string {
	if len(tracked) == 0 {
		return "No tracked URLs."
	}

	var b strings.Builder
	b.WriteString("📋 Tracked URLs:\n")
	for _, t := range tracked {
		night := ""
		if t.NightMode {
			night = ", night mode"
		}
		fmt.Fprintf(&b, "• %s (every %d minutes%s, last checked %s)\n",
			t.URL, int(t.Interval.Minutes()), night, CheckedAt(t.LastCheckedAt))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Manifest renders the batch summary for a set of files found on url. The
// delivery pipeline enforces its size cap; this function only renders.
func Manifest(url string, files []storage.FileRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📄 New files on %s:\n", url)
	for _, f := range files {
		fmt.Fprintf(&b, "• [%s] %s\n  %s\n", f.Kind, f.Name, f.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FileList renders the stored file set of a tracked URL.
func FileList(url string, files []storage.FileRef) string {
	if len(files) == 0 {
		return fmt.Sprintf("No files recorded for %s yet.", url)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 Files recorded for %s:\n", url)
	for _, f := range files {
		fmt.Fprintf(&b, "• [%s] %s\n  %s\n", f.Kind, f.Name, f.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DeliveryFailed reports files that could not be delivered. They are not
// recorded, so the next cycle offers them again.
func DeliveryFailed(url string, failed []storage.FileRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ %d of the new files on %s failed to deliver:\n", len(failed), url)
	for _, f := range failed {
		fmt.Fprintf(&b, "• %s\n", f.Name)
	}
	b.WriteString("They will be offered again on the next check.")
	return b.String()
}

// Caption renders the per-file caption attached to a delivered file.
func Caption(f storage.FileRef) string {
	return fmt.Sprintf("%s\n[%s] %s", f.Name, f.Kind, f.URL)
}

// CheckedAt renders a human timestamp for list output.
func CheckedAt(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
