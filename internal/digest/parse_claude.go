package digest

import (
	"encoding/json"
	"time"
)

// extractClaude implements spec.md §4.8's Claude-format text extraction,
// grounded on pkg/claudecode's CLIMessage/ContentBlock wire shape: assistant
// messages keep only {type:text} content blocks (dropping thinking,
// tool_use, tool_result, images); user messages that are not session-meta
// keep plain string content, dropping noise-tagged prompts and prefixing
// the rest with "[PROMPT]".
func extractClaude(lines []map[string]interface{}) ([]Entry, int) {
	var entries []Entry
	toolUseSinceText := 0

	for _, line := range lines {
		typ, _ := line["type"].(string)
		ts := parseTimestamp(line)

		switch typ {
		case "assistant":
			msg, _ := line["message"].(map[string]interface{})
			blocks := contentBlocks(msg)
			sawText := false
			for _, b := range blocks {
				bt, _ := b["type"].(string)
				switch bt {
				case "text":
					text, _ := b["text"].(string)
					text = stripNoiseTags(text)
					if text == "" {
						continue
					}
					entries = append(entries, Entry{Kind: "text", Text: text, Timestamp: ts})
					sawText = true
				case "tool_use":
					toolUseSinceText++
				}
			}
			if sawText {
				toolUseSinceText = 0
			}
		case "user":
			if isMetaMessage(line) {
				continue
			}
			msg, _ := line["message"].(map[string]interface{})
			content := stringContent(msg)
			if content == "" || looksLikeNoise(content) {
				continue
			}
			content = stripNoiseTags(content)
			if content == "" {
				continue
			}
			entries = append(entries, Entry{Kind: "prompt", Text: "[PROMPT] " + content, Timestamp: ts})
		}
	}

	return entries, toolUseSinceText
}

func contentBlocks(message map[string]interface{}) []map[string]interface{} {
	if message == nil {
		return nil
	}
	raw, ok := message["content"]
	if !ok {
		return nil
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, v := range arr {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringContent(message map[string]interface{}) string {
	if message == nil {
		return ""
	}
	if s, ok := message["content"].(string); ok {
		return s
	}
	return ""
}

func isMetaMessage(line map[string]interface{}) bool {
	if v, ok := line["isMeta"].(bool); ok && v {
		return true
	}
	if v, ok := line["is_meta"].(bool); ok && v {
		return true
	}
	return false
}

func parseTimestamp(line map[string]interface{}) time.Time {
	raw, ok := line["timestamp"]
	if !ok {
		return time.Time{}
	}
	switch v := raw.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case json.Number:
		// Not produced by encoding/json's default decode into
		// map[string]interface{}, but kept defensive.
	}
	return time.Time{}
}
