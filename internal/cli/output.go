// Package cli provides CLI output formatting for the city guide.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/pkg/utils"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes an answer to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	default:
		writeAnswerText(w, answer)
		return nil
	}
}

func writeAnswerText(w io.Writer, answer *models.Answer) {
	if answer.Error {
		fmt.Fprintf(w, "[degraded: %s stage failed]\n", answer.Stage)
	}
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\n--- Sources ---")
		for i, src := range answer.Sources {
			writeOneSource(w, i+1, src)
		}
	}
	fmt.Fprintf(w, "\nTimings: embed %dms, retrieval %dms, generation %dms, total %dms\n",
		answer.Timings.EmbedMS, answer.Timings.RetrievalMS,
		answer.Timings.GenerationMS, answer.Timings.TotalMS)
}

func writeOneSource(w io.Writer, rank int, src models.RetrievedDoc) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rank, src.Score)
	if src.POI == nil {
		return
	}
	fmt.Fprintf(w, "ID: %s\n", src.POI.ID)
	if src.POI.Name != "" {
		fmt.Fprintf(w, "Name: %s (%s)\n", src.POI.Name, src.POI.Category)
	}
	if src.POI.DocumentText != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(src.POI.DocumentText, 200))
	}
	fmt.Fprintln(w)
}
