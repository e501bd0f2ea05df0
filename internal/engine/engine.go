// Package engine wires the catalog, snapshot, pipeline, reindex, and
// audit-log components into one service object used by cmd/occsearch and
// internal/httpapi (which adds the admission layer around it).
package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/occsearch/engine/internal/auditlog"
	"github.com/occsearch/engine/internal/catalog"
	"github.com/occsearch/engine/internal/config"
	"github.com/occsearch/engine/internal/embedding"
	"github.com/occsearch/engine/internal/pipeline"
	"github.com/occsearch/engine/internal/reindex"
	"github.com/occsearch/engine/internal/snapshot"
)

// Version is the service's semantic version, reported in /health.
const Version = "1.0.0"

// Engine is the full running service: the current snapshot, the query
// pipeline over it, the reindex coordinator, and the audit/feedback logs.
type Engine struct {
	Config    config.Config
	Logger    *zap.SugaredLogger
	Snapshots *snapshot.Manager
	Pipeline  *pipeline.Pipeline
	Reindexer *reindex.Coordinator
	Embedder  embedding.Provider

	SearchLog   *auditlog.Stream
	FeedbackLog *auditlog.Stream
	AuditTrail  *auditlog.AuditTrail

	synonymMu sync.Mutex
}

// New constructs an Engine from configuration: loads the initial catalog,
// builds the first snapshot, and opens the log streams and audit trail.
func New(cfg config.Config, logger *zap.SugaredLogger) (*Engine, error) {
	embedder := embedding.NewDeterministicProvider(128, cfg.EmbedModel)
	snapshots := snapshot.NewManager()

	coord := reindex.NewCoordinator(cfg.CatalogPath, embedder, snapshots, cfg.ReindexTimeout())

	searchLog, err := auditlog.NewStream(filepath.Join(cfg.DataDir, "search.jsonl"), logger)
	if err != nil {
		return nil, err
	}
	feedbackLog, err := auditlog.NewStream(filepath.Join(cfg.DataDir, "feedback.jsonl"), logger)
	if err != nil {
		return nil, err
	}
	trail, err := auditlog.OpenAuditTrail(filepath.Join(cfg.DataDir, "audit.db"), logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Config:      cfg,
		Logger:      logger,
		Snapshots:   snapshots,
		Reindexer:   coord,
		Embedder:    embedder,
		SearchLog:   searchLog,
		FeedbackLog: feedbackLog,
		AuditTrail:  trail,
	}
	e.Pipeline = &pipeline.Pipeline{
		Snapshots:   snapshots,
		Embedder:    embedder,
		SynonymBank: pipeline.DefaultSynonymBank(),
		Translator:  pipeline.NoOpTranslator{},
		Thresholds: pipeline.Thresholds{
			LowConfTopSim:  cfg.LowConfTopSim,
			LowConfSoftmax: cfg.LowConfSoftmax,
		},
		EnableTranslation: cfg.EnableTranslation,
	}

	if _, err := coord.Trigger(context.Background()); err != nil {
		logger.Warnw("initial reindex failed, starting with no snapshot", "error", err)
	}

	return e, nil
}

// Close releases the engine's log streams and database handles.
func (e *Engine) Close() error {
	e.SearchLog.Close()
	e.FeedbackLog.Close()
	return e.AuditTrail.Close()
}

// SearchOutcome is the result of one Search call plus the rescue annotations
// callers may choose to surface.
type SearchOutcome struct {
	pipeline.Response
	Suggestions  []string
	Alternatives []string
}

// Search runs the query pipeline, logs the request (best-effort, off the
// critical path), and attaches suggestion/alternative annotations when the
// result is low-confidence.
func (e *Engine) Search(ctx context.Context, req pipeline.Request) (SearchOutcome, error) {
	start := time.Now()
	resp, err := e.Pipeline.Search(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return SearchOutcome{}, err
	}

	outcome := SearchOutcome{Response: resp}
	if resp.LowConfidence {
		if snap := e.Snapshots.Current(); snap != nil {
			if variants := e.Pipeline.SynonymBank.Expand(req.Query); len(variants) > 0 {
				outcome.Suggestions = capStrings(variants, 5)
			} else {
				outcome.Suggestions = pipeline.FuzzyTitleSuggestions(snap, req.Query, 0.4, 5)
			}
			outcome.Alternatives = pipeline.FuzzyTitleSuggestions(snap, req.Query, 0.6, 5)
		}
	}

	e.logSearch(req, resp, latency)
	return outcome, nil
}

func capStrings(in []string, max int) []string {
	if len(in) > max {
		return in[:max]
	}
	return in
}

func (e *Engine) logSearch(req pipeline.Request, resp pipeline.Response, latency time.Duration) {
	entry := auditlog.SearchLogEntry{
		Timestamp:     time.Now(),
		Query:         req.Query,
		K:             req.K,
		Language:      resp.Language,
		LowConfidence: resp.LowConfidence,
		ModelID:       e.Embedder.ModelID(),
		Version:       Version,
		LatencyMS:     latency.Milliseconds(),
	}
	for _, r := range resp.Results {
		entry.TopKCodes = append(entry.TopKCodes, r.Code)
	}
	if len(resp.Results) > 0 {
		entry.TopCode = resp.Results[0].Code
		entry.TopScore = resp.Results[0].Score
		entry.TopConfidence = resp.Results[0].Confidence
	}

	e.SearchLog.Append(entry)
	if e.AuditTrail != nil {
		e.AuditTrail.Record(entry)
	}
}

// Feedback appends a feedback entry to the feedback log.
func (e *Engine) Feedback(entry auditlog.FeedbackLogEntry) {
	entry.Timestamp = time.Now()
	if e.Config.DisableUALogging {
		entry.UserAgent = ""
	}
	e.FeedbackLog.Append(entry)
}

// Occupation looks up a record by code from the current snapshot.
func (e *Engine) Occupation(code string) (catalog.Record, bool) {
	snap := e.Snapshots.Current()
	if snap == nil {
		return catalog.Record{}, false
	}
	return snap.Catalog.ByCode(code)
}

// HealthStatus is the payload behind GET /health.
type HealthStatus struct {
	Status        string `json:"status"`
	Model         string `json:"model"`
	VectorsLoaded int    `json:"vectors_loaded"`
	Version       string `json:"version"`
	BuildTime     string `json:"build_time"`
	GitSHA        string `json:"git_sha"`
}

// Health reports the service's current health signal.
func (e *Engine) Health() HealthStatus {
	status := "healthy"
	vectors := 0
	if snap := e.Snapshots.Current(); snap != nil {
		vectors = snap.VectorIndex.Size()
	}
	if e.Reindexer.Reindexing() {
		status = "reindexing"
	}
	return HealthStatus{
		Status:        status,
		Model:         e.Embedder.ModelID(),
		VectorsLoaded: vectors,
		Version:       Version,
		BuildTime:     e.Config.BuildTime,
		GitSHA:        e.Config.GitSHA,
	}
}
