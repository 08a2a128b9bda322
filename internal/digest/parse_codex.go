package digest

// looksLikeCodex detects the Codex dialect by the presence of any line whose
// type is one of the Codex record kinds (spec.md §4.8).
func looksLikeCodex(lines []map[string]interface{}) bool {
	for _, line := range lines {
		switch typeOf(line) {
		case "response_item", "session_meta", "event_msg", "function_call", "function_call_output", "reasoning", "message":
			return true
		}
	}
	return false
}

var codexNoiseEventTypes = map[string]bool{
	"agent_reasoning": true,
	"token_count":     true,
	"task_started":    true,
	"turn_context":    true,
	"user_message":    true,
}

var codexTextBlockTypes = map[string]bool{
	"output_text":  true,
	"input_text":   true,
	"text":         true,
	"summary_text": true,
}

// extractCodex implements spec.md §4.8's Codex-format text extraction:
// message lines contribute their text-typed content blocks; event_msg lines
// contribute their payload's message string unless its type is in the noise
// set.
func extractCodex(lines []map[string]interface{}) ([]Entry, int) {
	var entries []Entry
	toolCallsSinceText := 0

	for _, line := range lines {
		typ := typeOf(line)
		ts := parseTimestamp(line)

		switch typ {
		case "message":
			sawText := false
			for _, b := range contentBlocks(line) {
				bt, _ := b["type"].(string)
				if !codexTextBlockTypes[bt] {
					continue
				}
				text, _ := b["text"].(string)
				text = stripNoiseTags(text)
				if text == "" {
					continue
				}
				entries = append(entries, Entry{Kind: "text", Text: text, Timestamp: ts})
				sawText = true
			}
			if sawText {
				toolCallsSinceText = 0
			}
		case "event_msg":
			payload, _ := line["payload"].(map[string]interface{})
			evType := typeOf(payload)
			if codexNoiseEventTypes[evType] {
				continue
			}
			msg, _ := payload["message"].(string)
			msg = stripNoiseTags(msg)
			if msg == "" {
				continue
			}
			entries = append(entries, Entry{Kind: "text", Text: msg, Timestamp: ts})
			toolCallsSinceText = 0
		case "function_call", "function_call_output":
			toolCallsSinceText++
		}
	}

	return entries, toolCallsSinceText
}

func typeOf(m map[string]interface{}) string {
	if m == nil {
		return ""
	}
	t, _ := m["type"].(string)
	return t
}
