package models

import (
	"fmt"
	"strings"
)

// AskRequest is a question to the pipeline with optional overrides.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Category string `json:"category,omitempty"`
}

// Validate ensures the request carries a non-empty question.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}
