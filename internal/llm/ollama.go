package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OllamaGenerator implements Generator against the Ollama /api/generate endpoint.
type OllamaGenerator struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// Option configures an OllamaGenerator.
type Option func(*OllamaGenerator)

// WithLogger sets the logger for the generator.
func WithLogger(logger *zap.Logger) Option {
	return func(g *OllamaGenerator) {
		g.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for Ollama requests.
func WithHTTPClient(client *http.Client) Option {
	return func(g *OllamaGenerator) {
		g.client = client
	}
}

// WithTimeout sets the per-request generation deadline.
func WithTimeout(d time.Duration) Option {
	return func(g *OllamaGenerator) {
		g.timeout = d
	}
}

// NewOllamaGenerator creates a generator for the given Ollama server and model.
func NewOllamaGenerator(baseURL, model string, temperature float64, maxTokens int, opts ...Option) *OllamaGenerator {
	g := &OllamaGenerator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     120 * time.Second,
		client:      &http.Client{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt and returns the model's full response text.
// Deadline overruns map to ErrTimeout, connection failures to ErrUnavailable.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: g.temperature,
			NumPredict:  g.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("generation exceeded %s: %w", g.timeout, ErrTimeout)
		}
		return "", fmt.Errorf("generate request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate request failed with status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), ErrUnavailable)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("generation exceeded %s: %w", g.timeout, ErrTimeout)
		}
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	g.logger.Debug("generation complete",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_chars", len(parsed.Response)))

	return strings.TrimSpace(parsed.Response), nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Available reports whether the Ollama server answers on /api/tags.
func (g *OllamaGenerator) Available(ctx context.Context) bool {
	_, err := g.listTags(ctx)
	return err == nil
}

// ListModels returns the model names installed on the server.
func (g *OllamaGenerator) ListModels(ctx context.Context) ([]string, error) {
	tags, err := g.listTags(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (g *OllamaGenerator) listTags(ctx context.Context) (*tagsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tags request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tags request failed with status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}
	return &parsed, nil
}

// Model returns the configured model name.
func (g *OllamaGenerator) Model() string {
	return g.model
}
