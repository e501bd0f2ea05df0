// Package auditlog implements the append-only search/feedback JSONL streams
// and the supplementary SQLite analytics audit trail.
package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"
)

// SearchLogEntry is one row of the "search" stream.
type SearchLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Query         string    `json:"query"`
	K             int       `json:"k"`
	Language      string    `json:"language"`
	LowConfidence bool      `json:"low_confidence"`
	TopCode       string    `json:"top_code,omitempty"`
	TopScore      float64   `json:"top_score"`
	TopConfidence float64   `json:"top_confidence"`
	TopKCodes     []string  `json:"top_k_codes,omitempty"`
	ModelID       string    `json:"model_id"`
	Version       string    `json:"version"`
	LatencyMS     int64     `json:"latency_ms"`
}

// FeedbackLogEntry is one row of the "feedback" stream.
type FeedbackLogEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Query          string    `json:"query"`
	SelectedCode   string    `json:"selected_code,omitempty"`
	ResultsHelpful bool      `json:"results_helpful"`
	Comments       string    `json:"comments,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
}

// Stream is a single append-only JSONL file with a dedicated writer
// goroutine, so request-path appends never block on file I/O. Writes are
// best-effort: a full buffer or a write error is logged and dropped, never
// returned to the caller as a request failure.
type Stream struct {
	path    string
	logger  *zap.SugaredLogger
	entries chan []byte
	done    chan struct{}
}

// NewStream opens (creating if needed) the JSONL file at path and starts its
// writer goroutine.
func NewStream(path string, logger *zap.SugaredLogger) (*Stream, error) {
	s := &Stream{
		path:    path,
		logger:  logger,
		entries: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	go s.run(f)
	return s, nil
}

func (s *Stream) run(f *os.File) {
	defer close(s.done)
	defer f.Close()
	w := bufio.NewWriter(f)
	for line := range s.entries {
		if _, err := w.Write(line); err != nil {
			s.logger.Warnw("audit log write failed", "path", s.path, "error", err)
			continue
		}
		if err := w.WriteByte('\n'); err != nil {
			s.logger.Warnw("audit log newline write failed", "path", s.path, "error", err)
			continue
		}
		if err := w.Flush(); err != nil {
			s.logger.Warnw("audit log flush failed", "path", s.path, "error", err)
		}
	}
}

// Append marshals entry and hands it to the writer goroutine. If the buffer
// is full the entry is dropped and a warning is logged; the caller's request
// is never blocked or failed by this.
func (s *Stream) Append(entry any) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warnw("audit log marshal failed", "path", s.path, "error", err)
		return
	}
	select {
	case s.entries <- data:
	default:
		s.logger.Warnw("audit log buffer full, dropping entry", "path", s.path)
	}
}

// Close stops accepting new entries and waits for the writer goroutine to
// drain and close the file.
func (s *Stream) Close() error {
	close(s.entries)
	<-s.done
	return nil
}
