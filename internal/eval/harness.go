package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/pipeline"
)

// Record is one evaluation case: a question plus ground truth expectations.
type Record struct {
	Question         string   `json:"question"`
	ExpectedAnswer   string   `json:"expected_answer,omitempty"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`
	ExpectedCategory string   `json:"expected_category,omitempty"`
	ExpectedIDs      []string `json:"expected_ids,omitempty"`
	TopK             int      `json:"top_k,omitempty"`
}

// Result is the scored outcome of one record.
type Result struct {
	Question           string  `json:"question"`
	Answer             string  `json:"answer,omitempty"`
	KeywordOverlap     float64 `json:"keyword_overlap"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	RetrievalRelevance float64 `json:"retrieval_relevance"`
	LatencyMS          int64   `json:"latency_ms"`
	Failed             bool    `json:"failed,omitempty"`
	Error              string  `json:"error,omitempty"`
}

// LoadRecords reads evaluation records from a JSON file holding an array.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval records: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse eval records %s: %w", path, err)
	}
	return records, nil
}

// Harness runs evaluation records through the pipeline with bounded concurrency.
// One record failing never aborts the batch; it is recorded and the rest proceed.
type Harness struct {
	pipeline *pipeline.Pipeline
	embedder embedding.Embedder
	workers  int
	logger   *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for the harness.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// NewHarness creates an evaluation harness running up to workers records concurrently.
func NewHarness(p *pipeline.Pipeline, embedder embedding.Embedder, workers int, opts ...Option) *Harness {
	if workers <= 0 {
		workers = 1
	}
	h := &Harness{
		pipeline: p,
		embedder: embedder,
		workers:  workers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run evaluates all records and returns an aggregated report. Results keep
// the order of the input records.
func (h *Harness) Run(ctx context.Context, records []Record) *Report {
	results := make([]Result, len(records))
	sem := make(chan struct{}, h.workers)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(slot int, rec Record) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[slot] = h.evaluate(ctx, rec)
		}(i, rec)
	}
	wg.Wait()

	return buildReport(results)
}

func (h *Harness) evaluate(ctx context.Context, rec Record) Result {
	result := Result{Question: rec.Question}

	start := time.Now()
	// The expected category is a scoring expectation, not a retrieval filter.
	answer, err := h.pipeline.Ask(ctx, &models.AskRequest{
		Question: rec.Question,
		TopK:     rec.TopK,
	})
	if answer != nil {
		// The pipeline times its own stages on both success and degrade paths.
		result.LatencyMS = answer.Timings.TotalMS
	} else {
		// Rejected before the pipeline ran (invalid request).
		result.LatencyMS = time.Since(start).Milliseconds()
	}

	if err != nil {
		result.Failed = true
		result.Error = err.Error()
		if answer != nil {
			result.Answer = answer.Text
		}
		h.logger.Warn("evaluation record failed",
			zap.String("question", rec.Question),
			zap.Error(err))
		return result
	}

	result.Answer = answer.Text
	result.KeywordOverlap = KeywordOverlap(answer.Text, rec.ExpectedKeywords)
	result.RetrievalRelevance = RetrievalRelevance(answer.Sources, rec.ExpectedCategory, rec.ExpectedIDs)

	if rec.ExpectedAnswer != "" {
		sim, err := SemanticSimilarity(ctx, h.embedder, answer.Text, rec.ExpectedAnswer)
		if err != nil {
			h.logger.Warn("semantic similarity failed",
				zap.String("question", rec.Question),
				zap.Error(err))
		} else {
			result.SemanticSimilarity = sim
		}
	}
	return result
}
