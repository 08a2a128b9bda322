package digest

import (
	"regexp"
	"strings"
	"time"

	"github.com/maestro-run/maestro/internal/platform/stringutil"
)

// Entry is one piece of extracted activity text (spec.md §4.8 Text
// extraction). Kind distinguishes prompts the user sent from text the
// assistant produced, and tool-use markers used for stuck detection.
type Entry struct {
	Kind      string // "text" | "prompt" | "tool_use"
	Text      string
	Timestamp time.Time
}

const defaultMaxLength = 150

var noiseTagPattern = regexp.MustCompile(`(?s)<(system-reminder|local-command[^>]*|teammate-message[^>]*)>.*?</(system-reminder|local-command|teammate-message)>`)

func stripNoiseTags(s string) string {
	return strings.TrimSpace(noiseTagPattern.ReplaceAllString(s, ""))
}

func looksLikeNoise(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "<system-reminder") ||
		strings.HasPrefix(t, "<local-command") ||
		strings.HasPrefix(t, "<teammate-message")
}

var sentenceEnd = regexp.MustCompile(`[.!?](\s|$)`)

// truncateEntry cuts text at the first sentence boundary or maxLength
// characters, whichever comes first; 0 means unlimited (spec.md §4.8).
func truncateEntry(text string, maxLength int) string {
	text = strings.TrimSpace(text)
	if maxLength <= 0 {
		return text
	}

	if loc := sentenceEnd.FindStringIndex(text); loc != nil && loc[0] < maxLength {
		return text[:loc[0]+1]
	}
	if len(text) <= maxLength {
		return text
	}
	return stringutil.TruncateString(text, maxLength) + "…"
}

// dedupeConsecutive drops an entry identical in source-kind and text to its
// immediate predecessor when their timestamps fall within 1s (spec.md §4.8).
func dedupeConsecutive(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Kind == e.Kind && prev.Text == e.Text && absDuration(e.Timestamp.Sub(prev.Timestamp)) <= time.Second {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
