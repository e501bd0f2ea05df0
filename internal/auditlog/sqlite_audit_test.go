package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAuditTrailRecordIsAsyncAndStatsReflectsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	trail, err := OpenAuditTrail(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("OpenAuditTrail: %v", err)
	}

	trail.Record(SearchLogEntry{
		Timestamp:     time.Now(),
		Query:         "welder",
		TopCode:       "7212.0100",
		TopConfidence: 0.9,
		LatencyMS:     12,
	})

	// Close drains the queue, so Stats after Close deterministically sees
	// the entry without a test-only sleep/poll.
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	trail2, err := OpenAuditTrail(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("reopen OpenAuditTrail: %v", err)
	}
	defer trail2.Close()

	stats, err := trail2.Stats(context.Background(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSearches != 1 {
		t.Fatalf("TotalSearches = %d, want 1", stats.TotalSearches)
	}
}

func TestAuditTrailRecordNeverBlocksCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	trail, err := OpenAuditTrail(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("OpenAuditTrail: %v", err)
	}
	defer trail.Close()

	// Record must never block the caller, even if the queue were full.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			trail.Record(SearchLogEntry{Query: "x", Timestamp: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Record blocked the caller")
	}
}
