// Package prompt renders LLM prompts from a question and retrieved POI documents.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/pkg/utils"
)

// NoContextInstruction is inserted verbatim when retrieval returned nothing,
// so the model admits the gap instead of inventing places.
const NoContextInstruction = "No relevant information was found in the knowledge base. " +
	"Tell the user you could not find an answer and suggest rephrasing the question."

// Builder renders prompts. It is stateless and safe for concurrent use.
type Builder struct {
	city            string
	snippetMaxChars int
}

// NewBuilder creates a prompt builder for the given city.
// Document snippets are truncated to snippetMaxChars runes.
func NewBuilder(city string, snippetMaxChars int) *Builder {
	return &Builder{city: city, snippetMaxChars: snippetMaxChars}
}

// Build renders the full generation prompt. Retrieved documents appear as
// numbered sources in retrieval order; with no documents the prompt carries
// NoContextInstruction instead of a context block.
func (b *Builder) Build(question string, docs []models.RetrievedDoc) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a helpful tourist guide for %s. Answer the question based on the context below.\n\n", b.city)

	if len(docs) == 0 {
		sb.WriteString(NoContextInstruction)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("Context:\n")
		for i, doc := range docs {
			fmt.Fprintf(&sb, "[Source %d]: %s\n", i+1, utils.Truncate(docText(doc.POI), b.snippetMaxChars))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString("Instructions:\n")
	sb.WriteString("- Answer based only on the provided context\n")
	sb.WriteString("- If the context doesn't contain relevant information, say so\n")
	sb.WriteString("- Be concise and helpful\n")
	sb.WriteString("- Mention specific place names when relevant\n\n")
	sb.WriteString("Answer:")

	return sb.String()
}

// docText returns the text representing a POI in the context block.
func docText(poi *models.POI) string {
	if poi == nil {
		return ""
	}
	if poi.DocumentText != "" {
		return poi.DocumentText
	}
	parts := []string{poi.Name}
	if poi.Category != "" {
		parts = append(parts, poi.Category)
	}
	if poi.Description != "" {
		parts = append(parts, poi.Description)
	}
	return strings.Join(parts, ". ")
}
