package introspection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTailLog_NewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.log")
	lines := []string{
		`{"time":"2026-07-30T10:00:00Z","level":"INFO","msg":"starting server"}`,
		`{"time":"2026-07-30T10:00:01Z","level":"ERROR","msg":"database connect failed"}`,
	}
	if err := os.WriteFile(path, []byte(lines[0]+"\n"+lines[1]+"\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	entries := TailLog(path, 10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "database connect failed" || entries[0].Level != "ERROR" {
		t.Fatalf("expected newest entry first, got %+v", entries[0])
	}
	if entries[1].Message != "starting server" {
		t.Fatalf("expected oldest entry last, got %+v", entries[1])
	}
}

func TestTailLog_RespectsCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.log")
	content := ""
	for i := 0; i < 5; i++ {
		content += `{"time":"2026-07-30T10:00:00Z","level":"INFO","msg":"tick"}` + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	entries := TailLog(path, 3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestTailLog_MissingFileReturnsEmpty(t *testing.T) {
	entries := TailLog(filepath.Join(t.TempDir(), "missing.log"), 10)
	if len(entries) != 0 {
		t.Fatalf("expected no entries for missing file, got %d", len(entries))
	}
}

func TestTailLog_NonJSONLineFallsBackToRawMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.log")
	if err := os.WriteFile(path, []byte("plain text log line\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	entries := TailLog(path, 10)
	if len(entries) != 1 || entries[0].Message != "plain text log line" {
		t.Fatalf("expected raw line as message, got %+v", entries)
	}
}
