package digest

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestExtractClaudeKeepsTextDropsThinkingAndToolUse(t *testing.T) {
	lines := []map[string]interface{}{
		{
			"type": "assistant",
			"message": map[string]interface{}{
				"content": []interface{}{
					map[string]interface{}{"type": "thinking", "thinking": "let me consider"},
					map[string]interface{}{"type": "text", "text": "Here is the answer."},
					map[string]interface{}{"type": "tool_use", "name": "Bash"},
				},
			},
		},
	}
	entries, _ := extractClaude(lines)
	require.Len(t, entries, 1)
	require.Equal(t, "Here is the answer.", entries[0].Text)
}

func TestExtractClaudeDropsNoiseTaggedUserPrompt(t *testing.T) {
	lines := []map[string]interface{}{
		{
			"type":    "user",
			"message": map[string]interface{}{"content": "<system-reminder>internal note</system-reminder>"},
		},
		{
			"type":    "user",
			"message": map[string]interface{}{"content": "please fix the bug"},
		},
	}
	entries, _ := extractClaude(lines)
	require.Len(t, entries, 1)
	require.Equal(t, "[PROMPT] please fix the bug", entries[0].Text)
}

func TestExtractCodexKeepsTextBlocksAndEventMessages(t *testing.T) {
	lines := []map[string]interface{}{
		{
			"type": "message",
			"content": []interface{}{
				map[string]interface{}{"type": "output_text", "text": "building the feature"},
			},
		},
		{
			"type":    "function_call",
			"name":    "shell",
		},
		{
			"type":    "event_msg",
			"payload": map[string]interface{}{"type": "agent_reasoning", "message": "thinking hard"},
		},
		{
			"type":    "event_msg",
			"payload": map[string]interface{}{"type": "status", "message": "done with step 1"},
		},
	}
	entries, toolCalls := extractCodex(lines)
	require.Len(t, entries, 2)
	require.Equal(t, "building the feature", entries[0].Text)
	require.Equal(t, "done with step 1", entries[1].Text)
	require.Equal(t, 0, toolCalls, "a text entry after the function_call resets the counter")
}

func TestDedupeConsecutiveDropsNearIdenticalEntries(t *testing.T) {
	base := time.Unix(1000, 0)
	entries := []Entry{
		{Kind: "text", Text: "working on it", Timestamp: base},
		{Kind: "text", Text: "working on it", Timestamp: base.Add(500 * time.Millisecond)},
		{Kind: "text", Text: "working on it", Timestamp: base.Add(5 * time.Second)},
	}
	out := dedupeConsecutive(entries)
	require.Len(t, out, 2)
}

func TestTruncateEntryCutsAtFirstSentenceOrMaxLength(t *testing.T) {
	require.Equal(t, "First sentence.", truncateEntry("First sentence. Second sentence.", 150))

	long := strings.Repeat("a", 200)
	got := truncateEntry(long, 50)
	require.True(t, strings.HasSuffix(got, "…"))
	require.Equal(t, 50, strings.Count(got, "a"))
}

func TestDetectStuckRequiresToolCallsSinceTextAboveThreshold(t *testing.T) {
	stuck, _ := detectStuck(nil, 3)
	require.False(t, stuck)

	stuck, note := detectStuck(nil, 6)
	require.True(t, stuck)
	require.Contains(t, note, "6")
}

func TestDetectStuckNotTriggeredByRecentText(t *testing.T) {
	entries := []Entry{{Kind: "text", Text: "still here", Timestamp: time.Now()}}
	stuck, _ := detectStuck(entries, 10)
	require.False(t, stuck, "recent text entry should suppress the stuck signal")
}

func TestDetectStuckTriggeredByStaleText(t *testing.T) {
	entries := []Entry{{Kind: "text", Text: "old update", Timestamp: time.Now().Add(-time.Minute)}}
	stuck, _ := detectStuck(entries, 10)
	require.True(t, stuck)
}

func TestSplitDiscardingPartialLine(t *testing.T) {
	raw := []byte("partial-tail\n{\"a\":1}\n{\"b\":2}")
	lines := splitDiscardingPartial(raw, false)
	require.Len(t, lines, 2, "the first line must be discarded when the window did not start at byte 0")
	require.Equal(t, `{"a":1}`, string(lines[0]))
}

func TestSplitKeepsAllLinesWhenStartedAtByteZero(t *testing.T) {
	raw := []byte("{\"a\":1}\n{\"b\":2}")
	lines := splitDiscardingPartial(raw, true)
	require.Len(t, lines, 2)
}

func TestBuildDigestMaxLengthZeroReturnsFullText(t *testing.T) {
	long := strings.Repeat("a", 400)
	lines := []map[string]interface{}{
		{
			"type": "assistant",
			"message": map[string]interface{}{
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": long},
				},
			},
		},
	}

	d := buildDigest("sess_1", SourceClaude, lines, StateActive, 0)
	require.Len(t, d.Entries, 1)
	require.Equal(t, long, d.Entries[0], "maxLength=0 must return the full text (spec.md §4.8)")
}

func TestBuildDigestMaxLengthAbove150IsNotCappedAt150(t *testing.T) {
	long := strings.Repeat("a", 400)
	lines := []map[string]interface{}{
		{
			"type": "assistant",
			"message": map[string]interface{}{
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": long},
				},
			},
		},
	}

	d := buildDigest("sess_1", SourceClaude, lines, StateActive, 300)
	require.Len(t, d.Entries, 1)
	require.True(t, strings.HasSuffix(d.Entries[0], "…"))
	require.Equal(t, 301, utf8.RuneCountInString(d.Entries[0]), "300 chars plus the ellipsis, not silently capped at defaultMaxLength")
}
