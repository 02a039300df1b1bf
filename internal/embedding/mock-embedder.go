package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/mwidera/cityguide/pkg/utils"
)

// mockStopwords are filler words ignored by the mock so that similarity
// reflects content words, not phrasing.
var mockStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "i": true, "is": true, "are": true,
	"was": true, "were": true, "in": true, "on": true, "at": true, "to": true,
	"of": true, "for": true, "with": true, "and": true, "or": true,
	"where": true, "can": true, "what": true, "which": true, "how": true,
	"do": true, "does": true, "me": true, "my": true, "you": true,
	"your": true, "it": true, "this": true, "that": true,
}

// MockEmbedder is a deterministic embedder for tests. It hashes content words
// into a fixed-dimension bag-of-words vector, so texts sharing vocabulary get
// similar embeddings and the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a normalized bag-of-words embedding of text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	emb := make([]float32, e.dimensions)
	for _, token := range mockTokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		emb[int(h.Sum32())%e.dimensions] += 1.0
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// mockTokenize lowercases, splits on non-letter/digit runes, and drops stopwords.
func mockTokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !mockStopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
