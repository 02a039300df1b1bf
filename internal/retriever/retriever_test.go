package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

func setupRetriever(t *testing.T, pois []*models.POI) *Retriever {
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
	return New(embedder, idx, store, 3, 10)
}

func guidePOIs() []*models.POI {
	return []*models.POI{
		{
			ID: "rest-1", Name: "Trattoria Bella", Category: models.CategoryRestaurant,
			Cuisine:      "italian",
			DocumentText: "Trattoria Bella. Italian restaurant. Serves pasta, pizza and wine. Good food.",
		},
		{
			ID: "park-1", Name: "Park Staszica", Category: models.CategoryPark,
			DocumentText: "Park Staszica. City park with walking paths and a pond.",
		},
		{
			ID: "museum-1", Name: "Match Museum", Category: models.CategoryMuseum,
			DocumentText: "Match Museum. Historic match factory with original machinery.",
		},
	}
}

func TestRetriever_PastaQueryFindsItalianRestaurant(t *testing.T) {
	r := setupRetriever(t, guidePOIs())

	result, err := r.Retrieve(context.Background(), "Where can I eat good pasta?", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Docs) == 0 {
		t.Fatal("no documents retrieved")
	}
	top := result.Docs[0]
	if top.POI.ID != "rest-1" {
		t.Errorf("top doc = %s, want rest-1", top.POI.ID)
	}
	if top.Score <= 0.3 {
		t.Errorf("top score = %f, want > 0.3", top.Score)
	}
}

func TestRetriever_ScoresNonIncreasing(t *testing.T) {
	r := setupRetriever(t, guidePOIs())

	result, err := r.Retrieve(context.Background(), "historic museum machinery", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(result.Docs); i++ {
		if result.Docs[i].Score > result.Docs[i-1].Score {
			t.Errorf("scores not non-increasing at %d", i)
		}
	}
}

func TestRetriever_TopKClamping(t *testing.T) {
	r := setupRetriever(t, guidePOIs())
	ctx := context.Background()

	// Zero topK falls back to the default of 3.
	result, err := r.Retrieve(ctx, "anything interesting", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Docs) != 3 {
		t.Errorf("default topK: got %d docs, want 3", len(result.Docs))
	}

	// Requests beyond maxTopK are capped, and beyond the corpus clamp to its size.
	result, err = r.Retrieve(ctx, "anything interesting", 50, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Docs) != 3 {
		t.Errorf("oversized topK: got %d docs, want 3", len(result.Docs))
	}
}

func TestRetriever_CategoryFilter(t *testing.T) {
	r := setupRetriever(t, guidePOIs())

	result, err := r.Retrieve(context.Background(), "good food pasta restaurant", 3, models.CategoryPark)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range result.Docs {
		if d.POI.Category != models.CategoryPark {
			t.Errorf("filter leaked category %s", d.POI.Category)
		}
	}
	if len(result.Docs) != 1 {
		t.Errorf("got %d docs, want 1 park", len(result.Docs))
	}
}

func TestRetriever_EmptyIndexReturnsEmptyResult(t *testing.T) {
	r := setupRetriever(t, nil)

	result, err := r.Retrieve(context.Background(), "anything at all", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("result must not be nil")
	}
	if len(result.Docs) != 0 {
		t.Errorf("got %d docs, want 0", len(result.Docs))
	}
}

func TestRetriever_EmptyQuestionFails(t *testing.T) {
	r := setupRetriever(t, guidePOIs())
	if _, err := r.Retrieve(context.Background(), "   ", 3, ""); err == nil {
		t.Error("expected error for empty question")
	}
}
