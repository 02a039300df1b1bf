package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/llm"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/prompt"
	"github.com/mwidera/cityguide/internal/retriever"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

// stubGenerator returns a canned answer or error and records the last prompt.
type stubGenerator struct {
	answer     string
	err        error
	lastPrompt string
}

func (g *stubGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.lastPrompt = p
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *stubGenerator) Available(ctx context.Context) bool { return g.err == nil }
func (g *stubGenerator) Model() string                      { return "stub" }

func newTestPipeline(t *testing.T, gen llm.Generator, pois []*models.POI) *Pipeline {
	t.Helper()
	ctx := context.Background()

	embedder := embedding.NewMockEmbedder(384)
	idx, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "pois.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	for _, poi := range pois {
		if err := store.UpsertPOI(ctx, poi); err != nil {
			t.Fatal(err)
		}
		emb, err := embedder.Embed(ctx, poi.DocumentText)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Upsert(ctx, []string{poi.ID}, [][]float32{emb}); err != nil {
			t.Fatal(err)
		}
	}

	r := retriever.New(embedder, idx, store, 3, 10)
	b := prompt.NewBuilder("Częstochowa", 500)
	return New(r, b, gen)
}

func testPOIs() []*models.POI {
	return []*models.POI{
		{
			ID: "rest-1", Name: "Trattoria Bella", Category: models.CategoryRestaurant,
			DocumentText: "Trattoria Bella. Italian restaurant. Serves pasta, pizza and wine.",
		},
		{
			ID: "cafe-1", Name: "Kawiarnia Centralna", Category: models.CategoryCafe,
			DocumentText: "Kawiarnia Centralna. Cozy cafe with coffee and cakes.",
		},
	}
}

func TestPipeline_AskSuccess(t *testing.T) {
	gen := &stubGenerator{answer: "Try Trattoria Bella for pasta."}
	p := newTestPipeline(t, gen, testPOIs())

	answer, err := p.Ask(context.Background(), &models.AskRequest{Question: "Where can I eat pasta?"})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Error {
		t.Error("successful ask should not be degraded")
	}
	if answer.Text != "Try Trattoria Bella for pasta." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("answer should carry retrieved sources")
	}
	if !strings.Contains(gen.lastPrompt, "Question: Where can I eat pasta?") {
		t.Error("prompt should contain the question")
	}
	if answer.Timings.TotalMS < 0 {
		t.Error("total timing must be recorded")
	}
}

func TestPipeline_InvalidRequest(t *testing.T) {
	p := newTestPipeline(t, &stubGenerator{answer: "ok"}, testPOIs())
	if _, err := p.Ask(context.Background(), &models.AskRequest{Question: "  "}); err == nil {
		t.Error("expected validation error")
	}
}

func TestPipeline_GenerationTimeoutGivesDegradedAnswer(t *testing.T) {
	gen := &stubGenerator{err: llm.ErrTimeout}
	p := newTestPipeline(t, gen, testPOIs())

	answer, err := p.Ask(context.Background(), &models.AskRequest{Question: "Where can I eat pasta?"})
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageGeneration {
		t.Errorf("expected generation PipelineError, got %v", err)
	}
	if !errors.Is(err, llm.ErrTimeout) {
		t.Error("pipeline error should unwrap to llm.ErrTimeout")
	}
	if answer == nil {
		t.Fatal("degraded answer must still be returned")
	}
	if !answer.Error || answer.Stage != StageGeneration {
		t.Errorf("answer not marked degraded: %+v", answer)
	}
	if answer.Text != TimeoutAnswer {
		t.Errorf("timeout answer = %q, want fixed timeout text", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("degraded answer should keep retrieved sources")
	}
}

func TestPipeline_GenerationUnavailableFallsBackToSources(t *testing.T) {
	gen := &stubGenerator{err: llm.ErrUnavailable}
	p := newTestPipeline(t, gen, testPOIs())

	answer, err := p.Ask(context.Background(), &models.AskRequest{Question: "Where can I eat pasta?"})
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if !answer.Error {
		t.Error("answer should be marked degraded")
	}
	if !strings.Contains(answer.Text, "Trattoria Bella") {
		t.Errorf("extractive fallback should mention retrieved places:\n%s", answer.Text)
	}
}

func TestPipeline_NoDocumentsStillAnswers(t *testing.T) {
	gen := &stubGenerator{answer: "I have no information about that."}
	p := newTestPipeline(t, gen, nil)

	answer, err := p.Ask(context.Background(), &models.AskRequest{Question: "Any pyramids nearby?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Sources) != 0 {
		t.Error("sources should be empty for an empty corpus")
	}
	if !strings.Contains(gen.lastPrompt, prompt.NoContextInstruction) {
		t.Error("prompt should carry the no-context instruction")
	}
}

// failingEmbedder always errors, to exercise the embedding failure branch.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) Dimensions() int { return 384 }
func (failingEmbedder) Close() error    { return nil }

func TestPipeline_EmbeddingFailureDegrades(t *testing.T) {
	idx, err := vector.NewMemoryIndex(384)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "pois.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	r := retriever.New(failingEmbedder{}, idx, store, 3, 10)
	b := prompt.NewBuilder("Częstochowa", 500)
	p := New(r, b, &stubGenerator{answer: "never reached"})

	answer, err := p.Ask(context.Background(), &models.AskRequest{Question: "Where can I eat pasta?"})
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageEmbedding {
		t.Errorf("expected embedding PipelineError, got %v", err)
	}
	if answer == nil || !answer.Error || answer.Stage != StageEmbedding {
		t.Errorf("answer not marked degraded at embedding: %+v", answer)
	}
	if answer.Text != NoInformationAnswer {
		t.Errorf("degraded text = %q", answer.Text)
	}
}
