package introspection

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
)

// logTailChunkBytes bounds how much of the log file TailLog reads from the
// end, mirroring the original service's bounded tail of its own log file.
const logTailChunkBytes = 1 << 20 // 1 MiB

// LogEntry is one parsed line from the service's own structured log,
// surfaced via GET /logs.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// TailLog reads up to the last logTailChunkBytes of path and returns up to
// count parsed entries, newest first. A missing or unreadable file yields an
// empty slice rather than an error: log tailing is a best-effort
// introspection aid, not load-bearing.
func TailLog(path string, count int64) []LogEntry {
	lines, err := tailLines(path)
	if err != nil {
		return nil
	}

	entries := make([]LogEntry, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, parseLogLine(strconv.Itoa(i), line))
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if count > 0 && int64(len(entries)) > count {
		entries = entries[:count]
	}
	return entries
}

// tailLines returns the lines contained in the last logTailChunkBytes of
// the file, dropping a leading partial line when the file is larger than
// the chunk window.
func tailLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	var offset int64
	truncated := false
	if size > logTailChunkBytes {
		offset = size - logTailChunkBytes
		truncated = true
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	if truncated && len(lines) > 0 {
		lines = lines[1:]
	}
	return lines, nil
}

// parseLogLine extracts level/timestamp/message from one log line. The
// default JSON handler emits one JSON object per line; a line that doesn't
// parse as JSON (text-format logging) falls back to the raw line as the
// message with level left blank.
func parseLogLine(id, line string) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err == nil {
		entry := LogEntry{ID: id}
		if v, ok := raw["level"].(string); ok {
			entry.Level = v
		}
		if v, ok := raw["time"].(string); ok {
			entry.Timestamp = v
		}
		if v, ok := raw["msg"].(string); ok {
			entry.Message = v
		}
		return entry
	}
	return LogEntry{ID: id, Message: strings.TrimRight(line, "\r")}
}
