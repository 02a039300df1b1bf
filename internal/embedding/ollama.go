package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/pkg/utils"
)

// ErrUnavailable is returned when the Ollama embedding endpoint cannot be reached.
var ErrUnavailable = errors.New("embedding: service unavailable")

const retryBackoff = 500 * time.Millisecond

// OllamaEmbedder produces embeddings by calling a local Ollama server.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger

	// mu guards dimensions, which may be learned from the first response
	// when the configured value is zero.
	mu         sync.Mutex
	dimensions int
}

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithLogger sets the logger for the embedder.
func WithLogger(logger *zap.Logger) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for Ollama requests.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.client = client
	}
}

// NewOllamaEmbedder creates an embedder backed by the Ollama /api/embeddings endpoint.
// dimensions may be zero; it is then learned from the first response.
func NewOllamaEmbedder(baseURL, model string, dimensions int, opts ...OllamaOption) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the L2-normalized embedding of text.
// A failed request is retried once after a short backoff.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	resp, err := e.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding request failed with status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), ErrUnavailable)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}
	if err := e.checkDimensions(len(parsed.Embedding)); err != nil {
		return nil, err
	}

	utils.NormalizeL2(parsed.Embedding)
	return parsed.Embedding, nil
}

// checkDimensions validates the response vector length, learning the dimension
// from the first response when none was configured.
func (e *OllamaEmbedder) checkDimensions(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions == 0 {
		e.dimensions = n
		return nil
	}
	if n != e.dimensions {
		return fmt.Errorf("embedding dimension %d does not match configured %d", n, e.dimensions)
	}
	return nil
}

func (e *OllamaEmbedder) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	resp, err := e.do(ctx, body)
	if err == nil && resp.StatusCode < 500 {
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}
	e.logger.Debug("embedding request failed, retrying", zap.Error(err))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("embedding request cancelled: %w", ctx.Err())
	case <-time.After(retryBackoff):
	}

	resp, err = e.do(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %v: %w", err, ErrUnavailable)
	}
	return resp, nil
}

func (e *OllamaEmbedder) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.client.Do(req)
}

// EmbedBatch embeds each text in order. The first failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension, or 0 if not yet known.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op for OllamaEmbedder.
func (e *OllamaEmbedder) Close() error {
	return nil
}
