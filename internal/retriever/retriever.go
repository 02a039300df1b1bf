// Package retriever turns questions into ranked POI documents.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

// categoryOverfetch is how many times topK candidates are pulled from the
// index when a category filter applies, since filtering happens after search.
const categoryOverfetch = 10

// Retriever embeds queries and searches the vector index, resolving hits
// to full POI records from storage.
type Retriever struct {
	embedder    embedding.Embedder
	index       vector.Index
	store       storage.Storage
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger for the retriever.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// New creates a Retriever. topK values outside [1, maxTopK] are clamped per query.
func New(embedder embedding.Embedder, index vector.Index, store storage.Storage,
	defaultTopK, maxTopK int, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:    embedder,
		index:       index,
		store:       store,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EmbedQuery returns the normalized embedding of the question text.
func (r *Retriever) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	emb, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return emb, nil
}

// Search finds the topK most similar POIs for an already-embedded query.
// An empty category means no filter. The result is never nil; an empty Docs
// slice means nothing matched.
func (r *Retriever) Search(ctx context.Context, queryVec []float32, topK int, category string) (*models.RetrievalResult, error) {
	k := r.clampTopK(topK)
	candidates := k
	if category != "" {
		candidates = k * categoryOverfetch
	}

	hits, err := r.index.Search(ctx, queryVec, candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	result := &models.RetrievalResult{Docs: make([]models.RetrievedDoc, 0, k)}
	for _, hit := range hits {
		if len(result.Docs) >= k {
			break
		}
		poi, err := r.store.GetPOI(ctx, hit.ID)
		if err != nil {
			// The index can briefly lead storage during re-indexing; skip orphans.
			r.logger.Warn("indexed poi missing from storage", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		if category != "" && poi.Category != category {
			continue
		}
		result.Docs = append(result.Docs, models.RetrievedDoc{POI: poi, Score: hit.Score})
	}
	return result, nil
}

// Retrieve embeds the question and searches in one call.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, category string) (*models.RetrievalResult, error) {
	queryVec, err := r.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.Search(ctx, queryVec, topK, category)
}

// clampTopK maps non-positive values to the default and caps at maxTopK.
func (r *Retriever) clampTopK(topK int) int {
	if topK <= 0 {
		return r.defaultTopK
	}
	if topK > r.maxTopK {
		return r.maxTopK
	}
	return topK
}
