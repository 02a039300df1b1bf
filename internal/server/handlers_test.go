package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/config"
	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/indexer"
	"github.com/mwidera/cityguide/internal/llm"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/pipeline"
	"github.com/mwidera/cityguide/internal/prompt"
	"github.com/mwidera/cityguide/internal/retriever"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

type fakeGenerator struct {
	answer    string
	err       error
	available bool
}

func (g *fakeGenerator) Generate(ctx context.Context, p string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) Available(ctx context.Context) bool { return g.available }
func (g *fakeGenerator) Model() string                      { return "fake-model" }

func newTestServer(t *testing.T, gen llm.Generator) (*Server, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "pois.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "pois.vec")
	cfg.Storage.POIDataPath = filepath.Join(dir, "pois.json")

	embedder := embedding.NewMockEmbedder(384)
	vidx, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	pois := []*models.POI{
		{ID: "rest-1", Name: "Trattoria Bella", Category: models.CategoryRestaurant,
			DocumentText: "Trattoria Bella. Italian restaurant serving pasta and pizza."},
		{ID: "jg", Name: "Jasna Góra", Category: models.CategoryReligiousSite,
			DocumentText: "Jasna Góra. Famous monastery and pilgrimage site."},
	}
	ix := indexer.New(store, embedder, vidx)
	if _, err := ix.IndexPOIs(ctx, pois); err != nil {
		t.Fatal(err)
	}
	if err := storage.SavePOIFile(cfg.Storage.POIDataPath, pois); err != nil {
		t.Fatal(err)
	}

	r := retriever.New(embedder, vidx, store, cfg.Retrieval.TopK, cfg.Retrieval.MaxTopK)
	p := pipeline.New(r, prompt.NewBuilder(cfg.Data.City, cfg.Retrieval.SnippetMaxChars), gen)

	srv := NewServer(p, ix, store, vidx, gen, cfg, zap.NewNop())
	return srv, dir
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleAsk(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{answer: "Try Trattoria Bella.", available: true})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ask",
		models.AskRequest{Question: "Where can I eat pasta?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var answer models.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if answer.Text != "Try Trattoria Bella." {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.Error {
		t.Error("healthy ask should not be degraded")
	}
	if len(answer.Sources) == 0 {
		t.Error("answer missing sources")
	}
}

func TestHandleAsk_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{answer: "x", available: true})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ask", models.AskRequest{Question: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec2.Code)
	}
}

func TestHandleAsk_DegradedAnswerIs200(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: llm.ErrTimeout})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ask",
		models.AskRequest{Question: "Where can I eat pasta?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded answer status = %d, want 200", rec.Code)
	}

	var answer models.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if !answer.Error || answer.Stage != pipeline.StageGeneration {
		t.Errorf("expected degraded generation answer, got %+v", answer)
	}
	if answer.Text != pipeline.TimeoutAnswer {
		t.Errorf("text = %q", answer.Text)
	}
}

func TestHandleCategories(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{available: true})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Categories) != 2 {
		t.Errorf("categories = %v", resp.Categories)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{available: true})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["pois"] != float64(2) {
		t.Errorf("pois = %v, want 2", resp["pois"])
	}
	if resp["vector_index_size"] != float64(2) {
		t.Errorf("vector_index_size = %v, want 2", resp["vector_index_size"])
	}
	if resp["llm_available"] != true {
		t.Errorf("llm_available = %v", resp["llm_available"])
	}
	if resp["llm_model"] != "fake-model" {
		t.Errorf("llm_model = %v", resp["llm_model"])
	}
}

func TestHandleReindex(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{available: true})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/index", reindexRequest{Force: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["indexed"] != float64(2) {
		t.Errorf("indexed = %v, want 2", resp["indexed"])
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{available: true})
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
