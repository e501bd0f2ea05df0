package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/occsearch/engine/internal/config"
	"github.com/occsearch/engine/internal/engine"
)

func intPtr(v int) *int { return &v }

const testCatalog = `[
	{"code": "7212.0100", "title": "Welder", "description": "Joins metal parts.", "synonyms": ["welding operator"]},
	{"code": "2330.0100", "title": "Secondary School Teacher", "description": "Teaches students.", "synonyms": ["instructor"]}
]`

func newTestRouter(t *testing.T) *chiTestRouter {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.Config{
		EmbedModel:        "test-model",
		LowConfSoftmax:    0.55,
		LowConfTopSim:     0.48,
		RateLimitSearch:   60,
		RateLimitAdmin:    20,
		ReindexTimeoutSec: 30,
		CatalogPath:       catalogPath,
		DataDir:           dir,
	}

	e, err := engine.New(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	router := NewRouter(Deps{
		Engine:          e,
		CORSOrigins:     []string{"*"},
		RateLimitSearch: 60,
		RateLimitAdmin:  20,
	})
	return &chiTestRouter{router: router}
}

type chiTestRouter struct {
	router http.Handler
}

func (c *chiTestRouter) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, r)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got engine.HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.VectorsLoaded != 2 {
		t.Fatalf("VectorsLoaded = %d, want 2", got.VectorsLoaded)
	}
}

func TestSearchEndpointReturnsResults(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder", K: intPtr(3)})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Results) == 0 {
		t.Fatalf("expected results, got none")
	}
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpointRejectsOverlongQuery(t *testing.T) {
	rt := newTestRouter(t)
	query := make([]rune, 501)
	for i := range query {
		query[i] = 'a'
	}
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: string(query)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpointAcceptsMaxLengthQuery(t *testing.T) {
	rt := newTestRouter(t)
	query := make([]rune, 500)
	for i := range query {
		query[i] = 'a'
	}
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: string(query)})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestSearchEndpointRejectsKZero(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder", K: intPtr(0)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpointRejectsKAboveTwenty(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder", K: intPtr(21)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpointDefaultsKWhenOmitted(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestOccupationEndpoint(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodGet, "/occupation/7212.0100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestOccupationEndpointNotFound(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodGet, "/occupation/9999.9999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	rt := newTestRouter(t)
	w := rt.do(t, http.MethodPost, "/feedback", feedbackRequest{
		Query:          "welder",
		SelectedCode:   "7212.0100",
		ResultsHelpful: true,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAdminUpdateSynonymsAndReindex(t *testing.T) {
	rt := newTestRouter(t)

	body := updateSynonymsRequest{}
	body.Updates = []struct {
		Code   string   `json:"code"`
		Add    []string `json:"add"`
		Remove []string `json:"remove"`
	}{{Code: "7212.0100", Add: []string{"fabricator"}}}

	w := rt.do(t, http.MethodPost, "/admin/update-synonyms", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if result["requires_reindex"] != true {
		t.Fatalf("requires_reindex = %v, want true", result["requires_reindex"])
	}

	w = rt.do(t, http.MethodPost, "/admin/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reindex status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAdminStatsEndpoint(t *testing.T) {
	rt := newTestRouter(t)
	rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder"})
	w := rt.do(t, http.MethodGet, "/admin/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAdminLogsEndpoint(t *testing.T) {
	rt := newTestRouter(t)
	rt.do(t, http.MethodPost, "/search", searchRequest{Query: "welder"})
	w := rt.do(t, http.MethodGet, "/admin/logs?type=search&limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
