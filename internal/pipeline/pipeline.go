// Package pipeline orchestrates the ask flow: embed, retrieve, prompt, generate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/llm"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/prompt"
	"github.com/mwidera/cityguide/internal/retriever"
	"github.com/mwidera/cityguide/pkg/utils"
)

// Stage names reported in degraded answers and errors.
const (
	StageEmbedding  = "embedding"
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
)

// Degraded answer texts. They are fixed strings so clients and the evaluation
// harness can recognize them.
const (
	NoInformationAnswer = "I couldn't find relevant information to answer your question."
	TimeoutAnswer       = "The answer took too long to generate. Please try asking again."
)

// fallbackSnippetChars bounds per-source snippets in extractive fallback answers.
const fallbackSnippetChars = 200

// PipelineError reports which stage of the ask flow failed.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline wires the retriever, prompt builder, and generator into the ask flow.
type Pipeline struct {
	retriever *retriever.Retriever
	builder   *prompt.Builder
	generator llm.Generator
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline.
func New(r *retriever.Retriever, b *prompt.Builder, g llm.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever: r,
		builder:   b,
		generator: g,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask runs the full pipeline for one question. On a stage failure it returns
// both a degraded but complete Answer (Error set, Stage naming the failed
// stage) and a *PipelineError, so callers can serve the degraded answer while
// still counting the failure.
func (p *Pipeline) Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ask request: %w", err)
	}
	start := time.Now()
	answer := &models.Answer{Sources: []models.RetrievedDoc{}}

	embedStart := time.Now()
	queryVec, err := p.retriever.EmbedQuery(ctx, req.Question)
	answer.Timings.EmbedMS = time.Since(embedStart).Milliseconds()
	if err != nil {
		return p.degrade(answer, start, StageEmbedding, err)
	}

	retrievalStart := time.Now()
	result, err := p.retriever.Search(ctx, queryVec, req.TopK, req.Category)
	answer.Timings.RetrievalMS = time.Since(retrievalStart).Milliseconds()
	if err != nil {
		return p.degrade(answer, start, StageRetrieval, err)
	}
	answer.Sources = result.Docs

	renderedPrompt := p.builder.Build(req.Question, result.Docs)

	generationStart := time.Now()
	text, err := p.generator.Generate(ctx, renderedPrompt)
	answer.Timings.GenerationMS = time.Since(generationStart).Milliseconds()
	if err != nil {
		return p.degrade(answer, start, StageGeneration, err)
	}

	answer.Text = text
	answer.Timings.TotalMS = time.Since(start).Milliseconds()
	p.logger.Info("question answered",
		zap.Int("sources", len(answer.Sources)),
		zap.Int64("total_ms", answer.Timings.TotalMS))
	return answer, nil
}

// degrade fills the answer with stage-appropriate degraded text and returns
// it alongside a PipelineError.
func (p *Pipeline) degrade(answer *models.Answer, start time.Time, stage string, err error) (*models.Answer, error) {
	answer.Error = true
	answer.Stage = stage
	answer.Timings.TotalMS = time.Since(start).Milliseconds()

	switch {
	case stage == StageGeneration && errors.Is(err, llm.ErrTimeout):
		answer.Text = TimeoutAnswer
	case stage == StageGeneration && len(answer.Sources) > 0:
		answer.Text = extractiveFallback(answer.Sources)
	default:
		answer.Text = NoInformationAnswer
	}

	p.logger.Warn("pipeline stage failed",
		zap.String("stage", stage),
		zap.Error(err))
	return answer, &PipelineError{Stage: stage, Err: err}
}

// extractiveFallback builds an answer directly from retrieved documents when
// the language model is unreachable.
func extractiveFallback(docs []models.RetrievedDoc) string {
	var sb strings.Builder
	sb.WriteString("I couldn't generate a full answer, but here is what I found:\n")
	for i, doc := range docs {
		text := doc.POI.DocumentText
		if text == "" {
			text = doc.POI.Name
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, utils.Truncate(text, fallbackSnippetChars))
	}
	return strings.TrimRight(sb.String(), "\n")
}
