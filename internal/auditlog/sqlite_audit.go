package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// recordTimeout bounds each background INSERT so a stalled write can never
// pin the queue open indefinitely.
const recordTimeout = 5 * time.Second

// AuditTrail persists a queryable analytics trail of searches, supplementing
// the JSONL search stream. Grounded in the donor-language system's own
// sqlite-backed audit store, repurposed here from the donor Go module's
// SQLite-backed vector store onto this narrower schema. Like Stream, writes
// are handed to a dedicated goroutine so the single SQLite connection
// (SetMaxOpenConns(1)) never serializes request goroutines against each
// other or adds visible latency to a search.
type AuditTrail struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	queue  chan SearchLogEntry
	done   chan struct{}
}

// OpenAuditTrail opens (creating if needed) a SQLite database at path,
// ensures its schema exists, and starts the background writer goroutine.
func OpenAuditTrail(path string, logger *zap.SugaredLogger) (*AuditTrail, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS search_audit (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	query TEXT NOT NULL,
	results_count INTEGER NOT NULL,
	top_result_code TEXT,
	top_result_confidence REAL,
	low_confidence INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: create schema: %w", err)
	}

	a := &AuditTrail{
		db:     db,
		logger: logger,
		queue:  make(chan SearchLogEntry, 256),
		done:   make(chan struct{}),
	}
	go a.run()
	return a, nil
}

func (a *AuditTrail) run() {
	defer close(a.done)
	for entry := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := a.record(ctx, entry); err != nil {
			a.logger.Warnw("audit trail write failed", "error", err)
		}
		cancel()
	}
}

// Close stops accepting new entries, drains the queue, and releases the
// underlying database handle.
func (a *AuditTrail) Close() error {
	close(a.queue)
	<-a.done
	return a.db.Close()
}

// Record hands entry to the background writer goroutine. Like the JSONL
// streams, this never blocks the caller: a full queue drops the entry and
// logs a warning rather than adding latency to the request. The caller's
// context is not threaded through, since the write is intentionally off the
// request's lifecycle and must still complete after the request returns.
func (a *AuditTrail) Record(entry SearchLogEntry) {
	select {
	case a.queue <- entry:
	default:
		a.logger.Warnw("audit trail queue full, dropping entry")
	}
}

// record performs the synchronous SQLite insert; only the background
// goroutine in run calls this.
func (a *AuditTrail) record(ctx context.Context, entry SearchLogEntry) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO search_audit (id, timestamp, query, results_count, top_result_code, top_result_confidence, low_confidence, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), entry.Timestamp.Format(time.RFC3339Nano), entry.Query, len(entry.TopKCodes),
		entry.TopCode, entry.TopConfidence, boolToInt(entry.LowConfidence), entry.LatencyMS,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Stats is the aggregate analytics payload behind GET /admin/stats.
type Stats struct {
	TotalSearches      int            `json:"total_searches"`
	SearchesLast24h    int            `json:"searches_last_24h"`
	LowConfidenceRate  float64        `json:"low_confidence_rate"`
	AverageLatencyMS   float64        `json:"average_latency_ms"`
	TopQueries         map[string]int `json:"top_queries"`
	TopResultCodes     map[string]int `json:"top_result_codes"`
}

// Stats aggregates the audit trail. TotalSearches, LowConfidenceRate and
// AverageLatencyMS cover every recorded row, SearchesLast24h covers the last
// 24 hours, and TopQueries and TopResultCodes cover only the trailing window
// (callers pass 7 days, the donor-language analytics default).
func (a *AuditTrail) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	var out Stats
	out.TopQueries = make(map[string]int)
	out.TopResultCodes = make(map[string]int)

	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_audit`).Scan(&out.TotalSearches); err != nil {
		return out, err
	}

	cutoff := time.Now().Add(-24 * time.Hour).Format(time.RFC3339Nano)
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_audit WHERE timestamp >= ?`, cutoff,
	).Scan(&out.SearchesLast24h); err != nil {
		return out, err
	}

	var lowConfCount int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_audit WHERE low_confidence = 1`).Scan(&lowConfCount); err != nil {
		return out, err
	}
	if out.TotalSearches > 0 {
		out.LowConfidenceRate = float64(lowConfCount) / float64(out.TotalSearches)
	}

	var avgLatency sql.NullFloat64
	if err := a.db.QueryRowContext(ctx, `SELECT AVG(latency_ms) FROM search_audit`).Scan(&avgLatency); err != nil {
		return out, err
	}
	out.AverageLatencyMS = avgLatency.Float64

	windowCutoff := time.Now().Add(-window).Format(time.RFC3339Nano)

	rows, err := a.db.QueryContext(ctx,
		`SELECT query, COUNT(*) c FROM search_audit WHERE timestamp >= ? GROUP BY query ORDER BY c DESC LIMIT 10`, windowCutoff)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var q string
		var c int
		if err := rows.Scan(&q, &c); err != nil {
			rows.Close()
			return out, err
		}
		out.TopQueries[q] = c
	}
	rows.Close()

	rows, err = a.db.QueryContext(ctx,
		`SELECT top_result_code, COUNT(*) c FROM search_audit WHERE timestamp >= ? AND top_result_code IS NOT NULL AND top_result_code != '' GROUP BY top_result_code ORDER BY c DESC LIMIT 10`, windowCutoff)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var c int
		if err := rows.Scan(&code, &c); err != nil {
			return out, err
		}
		out.TopResultCodes[code] = c
	}
	return out, rows.Err()
}
