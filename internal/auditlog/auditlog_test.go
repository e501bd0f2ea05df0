package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment: %v", err)
	}
	return logger.Sugar()
}

func TestStreamAppendAndReadReverse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.jsonl")

	s, err := NewStream(path, newTestLogger(t))
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Append(SearchLogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Query:     "query" + string(rune('a'+i)),
		})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines, err := ReadReverse(path, 10)
	if err != nil {
		t.Fatalf("ReadReverse: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Most recent first.
	if !strings.Contains(string(lines[0]), "queryc") {
		t.Fatalf("expected most recent entry first, got %s", lines[0])
	}
}

func TestReadReverseToleratesTrailingPartialLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.jsonl")
	content := `{"timestamp":"2026-07-01T00:00:00Z","query":"a"}
{"timestamp":"2026-07-01T01:00:00Z","query":"b"}
{"timestamp":"2026-07-01T02:00:00Z","query":"tru`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lines, err := ReadReverse(path, 10)
	if err != nil {
		t.Fatalf("ReadReverse: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected the truncated trailing line to be skipped, got %d lines", len(lines))
	}
}

func TestReadReverseRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.jsonl")
	content := `{"timestamp":"2026-07-01T00:00:00Z","query":"a"}
{"timestamp":"2026-07-01T01:00:00Z","query":"b"}
{"timestamp":"2026-07-01T02:00:00Z","query":"c"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	lines, err := ReadReverse(path, 2)
	if err != nil {
		t.Fatalf("ReadReverse: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(lines))
	}
}

func TestDeleteSinceKeepsOnlyOlderEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.jsonl")
	content := `{"timestamp":"2026-07-01T00:00:00Z","query":"old"}
{"timestamp":"2026-07-02T00:00:00Z","query":"new"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cutoff := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
	if err := DeleteSince(path, cutoff); err != nil {
		t.Fatalf("DeleteSince: %v", err)
	}

	lines, err := ReadReverse(path, 10)
	if err != nil {
		t.Fatalf("ReadReverse: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(lines))
	}
	if !strings.Contains(string(lines[0]), "old") {
		t.Fatalf("expected the older entry to survive, got %s", lines[0])
	}
}

func TestPurgeAllEmptiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.jsonl")
	if err := os.WriteFile(path, []byte(`{"timestamp":"2026-07-01T00:00:00Z","query":"a"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := PurgeAll(path); err != nil {
		t.Fatalf("PurgeAll: %v", err)
	}
	lines, err := ReadReverse(path, 10)
	if err != nil {
		t.Fatalf("ReadReverse: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty file after purge, got %d lines", len(lines))
	}
}
