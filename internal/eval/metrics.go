// Package eval provides the evaluation harness and answer quality metrics.
package eval

import (
	"context"
	"strings"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/pkg/utils"
)

// KeywordOverlap returns the fraction of expected keywords that appear in the
// answer, matched case-insensitively as substrings. No keywords scores 0.
func KeywordOverlap(answer string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(answer)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// SemanticSimilarity embeds both texts with the same embedder used by the
// pipeline and returns their cosine similarity.
func SemanticSimilarity(ctx context.Context, embedder embedding.Embedder, answer, expected string) (float64, error) {
	a, err := embedder.Embed(ctx, answer)
	if err != nil {
		return 0, err
	}
	b, err := embedder.Embed(ctx, expected)
	if err != nil {
		return 0, err
	}
	return utils.CosineSimilarity(a, b), nil
}

// RetrievalRelevance returns the fraction of retrieved documents that match
// the expectation: either their ID is in expectedIDs or their category equals
// expectedCategory. With no documents or no expectations it scores 0.
func RetrievalRelevance(docs []models.RetrievedDoc, expectedCategory string, expectedIDs []string) float64 {
	if len(docs) == 0 || (expectedCategory == "" && len(expectedIDs) == 0) {
		return 0
	}
	idSet := make(map[string]bool, len(expectedIDs))
	for _, id := range expectedIDs {
		idSet[id] = true
	}
	relevant := 0
	for _, doc := range docs {
		if doc.POI == nil {
			continue
		}
		if idSet[doc.POI.ID] || (expectedCategory != "" && doc.POI.Category == expectedCategory) {
			relevant++
		}
	}
	return float64(relevant) / float64(len(docs))
}
