package digest

import (
	"encoding/json"
	"os"
)

const (
	initialTailWindow = 100 * 1024
	maxTailWindow     = 1024 * 1024
)

// tailLines reads the last window bytes of path (doubling up to
// maxTailWindow if no usable lines result) and JSON-parses each newline-
// delimited entry tolerantly, dropping malformed lines (spec.md §4.8 Tail
// read).
func tailLines(path string) ([]map[string]interface{}, error) {
	window := initialTailWindow
	for {
		raw, startedAtZero, err := readTail(path, window)
		if err != nil {
			return nil, err
		}

		lines := splitDiscardingPartial(raw, startedAtZero)
		parsed := parseLinesTolerant(lines)
		if len(parsed) > 0 || window >= maxTailWindow {
			return parsed, nil
		}
		window *= 2
	}
}

func readTail(path string, window int) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}

	size := info.Size()
	var offset int64
	startedAtZero := true
	if size > int64(window) {
		offset = size - int64(window)
		startedAtZero = false
	}

	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && len(buf) == 0 {
		return nil, false, err
	}
	return buf, startedAtZero, nil
}

func splitDiscardingPartial(raw []byte, startedAtZero bool) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range raw {
		if b == '\n' {
			lines = append(lines, raw[start:i])
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	if !startedAtZero && len(lines) > 0 {
		lines = lines[1:]
	}
	return lines
}

func parseLinesTolerant(lines [][]byte) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(lines))
	for _, line := range lines {
		trimmed := trimSpaceBytes(line)
		if len(trimmed) == 0 {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal(trimmed, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func trimSpaceBytes(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpaceByte(b[start]) {
		start++
	}
	for end > start && isSpaceByte(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
