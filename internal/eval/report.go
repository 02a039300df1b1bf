package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Stats holds the mean, minimum, and maximum of one metric across all records.
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Report aggregates evaluation results.
type Report struct {
	RunID              string    `json:"run_id"`
	GeneratedAt        time.Time `json:"generated_at"`
	Total              int       `json:"total"`
	Succeeded          int       `json:"succeeded"`
	Failed             int       `json:"failed"`
	KeywordOverlap     Stats     `json:"keyword_overlap"`
	SemanticSimilarity Stats     `json:"semantic_similarity"`
	RetrievalRelevance Stats     `json:"retrieval_relevance"`
	LatencyMS          Stats     `json:"latency_ms"`
	Results            []Result  `json:"results"`
}

func buildReport(results []Result) *Report {
	report := &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now(),
		Total:       len(results),
		Results:     results,
	}

	var overlap, similarity, relevance, latency []float64
	for _, r := range results {
		if r.Failed {
			report.Failed++
		} else {
			report.Succeeded++
		}
		// A failed record carries zero quality scores but its real latency;
		// both count toward the aggregates so failures drag the means down
		// instead of vanishing from the report.
		overlap = append(overlap, r.KeywordOverlap)
		similarity = append(similarity, r.SemanticSimilarity)
		relevance = append(relevance, r.RetrievalRelevance)
		latency = append(latency, float64(r.LatencyMS))
	}

	report.KeywordOverlap = computeStats(overlap)
	report.SemanticSimilarity = computeStats(similarity)
	report.RetrievalRelevance = computeStats(relevance)
	report.LatencyMS = computeStats(latency)
	return report
}

func computeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	return s
}

// WriteJSON writes the report to path as indented JSON, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Print writes a human-readable summary to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Evaluation: %d records, %d succeeded, %d failed\n", r.Total, r.Succeeded, r.Failed)
	if r.Total == 0 {
		return
	}
	fmt.Fprintf(w, "  keyword overlap:      mean %.3f  min %.3f  max %.3f\n",
		r.KeywordOverlap.Mean, r.KeywordOverlap.Min, r.KeywordOverlap.Max)
	fmt.Fprintf(w, "  semantic similarity:  mean %.3f  min %.3f  max %.3f\n",
		r.SemanticSimilarity.Mean, r.SemanticSimilarity.Min, r.SemanticSimilarity.Max)
	fmt.Fprintf(w, "  retrieval relevance:  mean %.3f  min %.3f  max %.3f\n",
		r.RetrievalRelevance.Mean, r.RetrievalRelevance.Min, r.RetrievalRelevance.Max)
	fmt.Fprintf(w, "  latency ms:           mean %.0f  min %.0f  max %.0f\n",
		r.LatencyMS.Mean, r.LatencyMS.Min, r.LatencyMS.Max)
}
