package models

// RetrievedDoc pairs a POI document with its similarity score for one query.
type RetrievedDoc struct {
	POI   *POI    `json:"poi"`
	Score float64 `json:"score"`
}

// RetrievalResult is the ranked outcome of one retrieval, ordered by
// non-increasing similarity. An empty Docs slice is a valid result
// (nothing indexed or nothing similar) and is distinct from a nil result.
type RetrievalResult struct {
	Docs []RetrievedDoc `json:"docs"`
}

// Timings is the per-stage wall-clock breakdown of one pipeline run.
type Timings struct {
	EmbedMS      int64 `json:"embed_ms"`
	RetrievalMS  int64 `json:"retrieval_ms"`
	GenerationMS int64 `json:"generation_ms"`
	TotalMS      int64 `json:"total_ms"`
}

// Answer is the pipeline output for one question. Sources always holds
// exactly what the retriever returned for the query, so provenance can
// never be fabricated downstream. When Error is true, Text carries a
// user-safe degraded message and Stage names the stage that failed.
type Answer struct {
	Text    string         `json:"answer"`
	Sources []RetrievedDoc `json:"sources"`
	Timings Timings        `json:"timings"`
	Error   bool           `json:"error,omitempty"`
	Stage   string         `json:"error_stage,omitempty"`
}
