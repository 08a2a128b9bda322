// Package digest implements the Log Digest Service of spec.md §4.8: a
// stateless reader that tails an agent's external JSONL session log and
// produces a short text-only activity summary, with stuck detection.
package digest

import (
	"strconv"
	"time"

	"github.com/maestro-run/maestro/internal/domain"
)

// State mirrors a session's activity for display alongside its digest
// (spec.md §4.8 State mapping).
type State string

const (
	StateNeedsInput State = "needs_input"
	StateActive     State = "active"
	StateIdle       State = "idle"
)

// SessionState maps a Session's status onto the coarse digest State.
func SessionState(sess *domain.Session) State {
	if sess.NeedsInput.Active {
		return StateNeedsInput
	}
	switch sess.Status {
	case domain.SessionWorking, domain.SessionSpawning:
		return StateActive
	default:
		return StateIdle
	}
}

const stuckToolCallThreshold = 5
const stuckStaleness = 30 * time.Second

// Digest is the produced activity summary for one session.
type Digest struct {
	SessionID string   `json:"sessionId"`
	Source    Source   `json:"source,omitempty"`
	State     State    `json:"state"`
	Entries   []string `json:"entries"`
	Stuck     bool     `json:"stuck"`
	StuckNote string   `json:"stuckNote,omitempty"`
}

// buildDigest runs format detection, extraction, dedup, and stuck detection
// over lines already tail-read from a log file. Extraction itself never
// truncates; truncation happens once here, keyed on the caller's maxLength
// (spec.md §4.8): maxLength<=0 returns each entry's full text untouched,
// any maxLength>0 (including values above defaultMaxLength) is the real
// per-entry limit passed to truncateEntry.
func buildDigest(sessionID string, source Source, lines []map[string]interface{}, state State, maxLength int) Digest {
	var entries []Entry
	var toolCallsSinceText int

	switch {
	case source == SourceCodex || (source == "" && looksLikeCodex(lines)):
		entries, toolCallsSinceText = extractCodex(lines)
		if source == "" {
			source = SourceCodex
		}
	default:
		entries, toolCallsSinceText = extractClaude(lines)
		if source == "" {
			source = SourceClaude
		}
	}

	entries = dedupeConsecutive(entries)

	stuck, note := detectStuck(entries, toolCallsSinceText)

	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		text := e.Text
		if maxLength > 0 {
			text = truncateEntry(text, maxLength)
		}
		texts = append(texts, text)
	}

	return Digest{SessionID: sessionID, Source: source, State: state, Entries: texts, Stuck: stuck, StuckNote: note}
}

// detectStuck implements spec.md §4.8 Stuck detection: trigger iff more than
// stuckToolCallThreshold tool-use messages have occurred since the most
// recent text entry, and either no text was found in the tail at all, or
// the last text entry is older than stuckStaleness.
func detectStuck(entries []Entry, toolCallsSinceText int) (bool, string) {
	if toolCallsSinceText <= stuckToolCallThreshold {
		return false, ""
	}

	var lastText *Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == "text" {
			lastText = &entries[i]
			break
		}
	}

	if lastText == nil || time.Since(lastText.Timestamp) > stuckStaleness {
		return true, stuckMessage(toolCallsSinceText)
	}
	return false, ""
}

func stuckMessage(count int) string {
	return "possibly stuck: " + strconv.Itoa(count) + " tool calls since last text"
}
