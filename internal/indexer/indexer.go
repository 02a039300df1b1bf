// Package indexer loads POI datasets into storage and the vector index.
package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/reviews"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

// embedBatchSize bounds how many documents are embedded per round trip.
const embedBatchSize = 32

// Indexer writes POIs to storage and their document embeddings to the vector index.
type Indexer struct {
	store    storage.Storage
	embedder embedding.Embedder
	index    vector.Index
	logger   *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for indexing progress.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an indexer with the given dependencies.
func New(store storage.Storage, embedder embedding.Embedder, index vector.Index, opts ...Option) *Indexer {
	idx := &Indexer{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexPOIs stores and embeds the given POIs. POIs without an ID get one
// assigned; POIs failing validation are skipped with a warning. Indexing the
// same ID again replaces the previous record and vector. Returns the number
// of POIs indexed.
func (idx *Indexer) IndexPOIs(ctx context.Context, pois []*models.POI) (int, error) {
	valid := make([]*models.POI, 0, len(pois))
	for _, poi := range pois {
		if poi.ID == "" {
			poi.ID = uuid.New().String()
		}
		if poi.DocumentText == "" {
			poi.DocumentText = reviews.CreateDocumentText(poi)
		}
		if err := poi.Validate(); err != nil {
			idx.logger.Warn("skipping invalid poi", zap.Error(err))
			continue
		}
		valid = append(valid, poi)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	if err := idx.store.BatchUpsertPOIs(ctx, valid); err != nil {
		return 0, fmt.Errorf("failed to store pois: %w", err)
	}

	indexed := 0
	for start := 0; start < len(valid); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, poi := range batch {
			texts[i] = poi.DocumentText
			ids[i] = poi.ID
		}
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		if err := idx.index.Upsert(ctx, ids, embeddings); err != nil {
			return indexed, fmt.Errorf("failed to index vectors: %w", err)
		}
		indexed += len(batch)
		idx.logger.Debug("indexed batch",
			zap.Int("from", start),
			zap.Int("count", len(batch)))
	}

	idx.logger.Info("indexing complete",
		zap.Int("indexed", indexed),
		zap.Int("skipped", len(pois)-indexed))
	return indexed, nil
}

// IndexFile loads a POI JSON dataset from path and indexes it. With force set,
// existing storage rows and vectors are dropped first so removed POIs do not
// linger.
func (idx *Indexer) IndexFile(ctx context.Context, path string, force bool) (int, error) {
	pois, err := storage.LoadPOIFile(path)
	if err != nil {
		return 0, err
	}
	if force {
		if err := idx.index.Clear(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear vector index: %w", err)
		}
		if err := idx.store.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear storage: %w", err)
		}
		idx.logger.Info("cleared existing index for rebuild")
	}
	return idx.IndexPOIs(ctx, pois)
}
