package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/occsearch/engine/internal/auditlog"
	"github.com/occsearch/engine/internal/catalog"
	"github.com/occsearch/engine/internal/reindex"
)

// SynonymUpdate is one admin-requested add/remove batch for a single code.
type SynonymUpdate struct {
	Code   string
	Add    []string
	Remove []string
}

// SynonymUpdateResult reports what happened to each requested code.
type SynonymUpdateResult struct {
	Changes         map[string][]string `json:"changes"`
	InvalidCodes    []string            `json:"invalid_codes"`
	UpdatedCount    int                 `json:"updated_count"`
	RequiresReindex bool                `json:"requires_reindex"`
}

// UpdateSynonyms rewrites the catalog file on disk, applying add/remove set
// semantics per code. Invalid (unknown) codes are reported, not fatal. The
// reindex coordinator is not triggered automatically; callers observe
// RequiresReindex and invoke Reindex separately, matching the admin
// operation's two-step contract (edit, then trigger).
func (e *Engine) UpdateSynonyms(updates []SynonymUpdate) (SynonymUpdateResult, error) {
	e.synonymMu.Lock()
	defer e.synonymMu.Unlock()

	data, err := os.ReadFile(e.Config.CatalogPath)
	if err != nil {
		return SynonymUpdateResult{}, fmt.Errorf("engine: read catalog: %w", err)
	}
	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return SynonymUpdateResult{}, fmt.Errorf("engine: parse catalog: %w", err)
	}

	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.Code] = i
	}

	result := SynonymUpdateResult{Changes: make(map[string][]string)}
	for _, u := range updates {
		i, ok := index[u.Code]
		if !ok {
			result.InvalidCodes = append(result.InvalidCodes, u.Code)
			continue
		}

		current := make(map[string]struct{}, len(records[i].Synonyms))
		for _, s := range records[i].Synonyms {
			current[s] = struct{}{}
		}
		changed := false
		for _, s := range u.Add {
			if _, exists := current[s]; !exists {
				current[s] = struct{}{}
				changed = true
			}
		}
		for _, s := range u.Remove {
			if _, exists := current[s]; exists {
				delete(current, s)
				changed = true
			}
		}
		if !changed {
			continue
		}

		next := make([]string, 0, len(current))
		for s := range current {
			next = append(next, s)
		}
		sort.Strings(next)
		records[i].Synonyms = next

		result.Changes[u.Code] = next
		result.UpdatedCount++
	}

	if result.UpdatedCount > 0 {
		result.RequiresReindex = true
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return result, fmt.Errorf("engine: marshal catalog: %w", err)
		}
		if err := os.WriteFile(e.Config.CatalogPath, out, 0o644); err != nil {
			return result, fmt.Errorf("engine: write catalog: %w", err)
		}
	}

	return result, nil
}

// Reindex triggers a rebuild via the reindex coordinator.
func (e *Engine) Reindex(ctx context.Context) (reindex.Result, error) {
	return e.Reindexer.Trigger(ctx)
}

// ReadLogs returns up to limit entries from the named stream ("search" or
// "feedback"), most recent first.
func (e *Engine) ReadLogs(stream string, limit int) ([]json.RawMessage, error) {
	path, err := e.logPath(stream)
	if err != nil {
		return nil, err
	}
	return auditlog.ReadReverse(path, limit)
}

// DeleteLogsSince deletes entries at or after since from both streams.
func (e *Engine) DeleteLogsSince(since time.Time) error {
	if err := auditlog.DeleteSince(e.searchLogPath(), since); err != nil {
		return err
	}
	return auditlog.DeleteSince(e.feedbackLogPath(), since)
}

// PurgeLogs empties both streams.
func (e *Engine) PurgeLogs() error {
	if err := auditlog.PurgeAll(e.searchLogPath()); err != nil {
		return err
	}
	return auditlog.PurgeAll(e.feedbackLogPath())
}

// Stats returns the SQLite-backed analytics aggregation (§6A supplement).
func (e *Engine) Stats(ctx context.Context) (auditlog.Stats, error) {
	return e.AuditTrail.Stats(ctx, 7*24*time.Hour)
}

func (e *Engine) logPath(stream string) (string, error) {
	switch stream {
	case "search":
		return e.searchLogPath(), nil
	case "feedback":
		return e.feedbackLogPath(), nil
	default:
		return "", fmt.Errorf("engine: unknown log stream %q", stream)
	}
}

func (e *Engine) searchLogPath() string   { return dataPath(e.Config.DataDir, "search.jsonl") }
func (e *Engine) feedbackLogPath() string { return dataPath(e.Config.DataDir, "feedback.jsonl") }

func dataPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
