// Package llm provides answer generation via a local Ollama server.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors for generation failures. Callers classify failures with
// errors.Is to decide between degraded answers and hard errors.
var (
	// ErrTimeout is returned when generation exceeded its deadline.
	ErrTimeout = errors.New("llm: generation timed out")
	// ErrUnavailable is returned when the LLM server cannot be reached.
	ErrUnavailable = errors.New("llm: service unavailable")
)

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available(ctx context.Context) bool
	Model() string
}
