package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/occsearch/engine/internal/auditlog"
	"github.com/occsearch/engine/internal/engine"
	"github.com/occsearch/engine/internal/pipeline"
	"github.com/occsearch/engine/internal/reindex"
)

type handlers struct {
	engine *engine.Engine
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Health())
}

const (
	defaultSearchK = 5
	maxQueryRunes  = 500
	minSearchK     = 1
	maxSearchK     = 20
)

type searchRequest struct {
	Query          string  `json:"query"`
	K              *int    `json:"k"`
	Language       string  `json:"language"`
	DivisionCode   *string `json:"division_code"`
	MinorGroupCode *string `json:"minor_group_code"`
}

type searchResponse struct {
	Results       []pipeline.Result `json:"results"`
	LowConfidence bool              `json:"low_confidence"`
	Language      string            `json:"language"`
	Translated    bool              `json:"translated"`
	Suggestions   []string          `json:"suggestions,omitempty"`
	Alternatives  []string          `json:"alternatives,omitempty"`
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, "query exceeds maximum length of 500 characters")
		return
	}

	k := defaultSearchK
	if req.K != nil {
		k = *req.K
	}
	if k < minSearchK || k > maxSearchK {
		writeError(w, http.StatusBadRequest, "k must be between 1 and 20")
		return
	}

	outcome, err := h.engine.Search(r.Context(), pipeline.Request{
		Query:    req.Query,
		K:        k,
		Language: req.Language,
		Filter: pipeline.HierarchyFilter{
			DivisionCode:   req.DivisionCode,
			MinorGroupCode: req.MinorGroupCode,
		},
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSnapshot) {
			writeError(w, http.StatusServiceUnavailable, "catalog not yet indexed")
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:       outcome.Results,
		LowConfidence: outcome.LowConfidence,
		Language:      outcome.Language,
		Translated:    outcome.Translated,
		Suggestions:   outcome.Suggestions,
		Alternatives:  outcome.Alternatives,
	})
}

func (h *handlers) occupation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rec, ok := h.engine.Occupation(code)
	if !ok {
		writeError(w, http.StatusNotFound, "occupation code not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type feedbackRequest struct {
	Query          string `json:"query"`
	SelectedCode   string `json:"selected_code"`
	ResultsHelpful bool   `json:"results_helpful"`
	Comments       string `json:"comments"`
}

func (h *handlers) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	h.engine.Feedback(auditlog.FeedbackLogEntry{
		Query:          req.Query,
		SelectedCode:   req.SelectedCode,
		ResultsHelpful: req.ResultsHelpful,
		Comments:       req.Comments,
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type updateSynonymsRequest struct {
	Updates []struct {
		Code   string   `json:"code"`
		Add    []string `json:"add"`
		Remove []string `json:"remove"`
	} `json:"updates"`
}

func (h *handlers) updateSynonyms(w http.ResponseWriter, r *http.Request) {
	var req updateSynonymsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "updates is required")
		return
	}

	updates := make([]engine.SynonymUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, engine.SynonymUpdate{Code: u.Code, Add: u.Add, Remove: u.Remove})
	}

	result, err := h.engine.UpdateSynonyms(updates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "synonym update failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reindexResponse struct {
	DurationMS int64 `json:"duration_ms"`
	Vectors    int   `json:"vectors"`
}

func (h *handlers) reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.engine.Reindex(ctx)
	if err != nil {
		switch {
		case errors.Is(err, reindex.ErrConflict):
			writeError(w, http.StatusConflict, "reindex already in progress")
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "reindex timed out")
		default:
			writeError(w, http.StatusInternalServerError, "reindex failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{
		DurationMS: result.Duration.Milliseconds(),
		Vectors:    result.Vectors,
	})
}

func (h *handlers) readLogs(w http.ResponseWriter, r *http.Request) {
	stream := r.URL.Query().Get("type")
	if stream == "" {
		stream = "search"
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.engine.ReadLogs(stream, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *handlers) deleteLogs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("purge") == "true" {
		if err := h.engine.PurgeLogs(); err != nil {
			writeError(w, http.StatusInternalServerError, "purge failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
		return
	}

	since := r.URL.Query().Get("since")
	if since == "" {
		writeError(w, http.StatusBadRequest, "since or purge=true is required")
		return
	}
	t, err := time.Parse(time.RFC3339, since)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be RFC3339")
		return
	}
	if err := h.engine.DeleteLogsSince(t); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
