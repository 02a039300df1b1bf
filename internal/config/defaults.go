package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/pois.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/indices/pois.vec"
	}
	if cfg.Storage.POIDataPath == "" {
		cfg.Storage.POIDataPath = "./data/pois_with_reviews.json"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemma:7b"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 10
	}
	if cfg.Retrieval.SnippetMaxChars == 0 {
		cfg.Retrieval.SnippetMaxChars = 500
	}
	if cfg.Eval.Workers == 0 {
		cfg.Eval.Workers = 4
	}
	if cfg.Eval.ReportPath == "" {
		cfg.Eval.ReportPath = "./data/evaluation_report.json"
	}
	if cfg.Data.City == "" {
		cfg.Data.City = "Częstochowa"
	}
	if cfg.Data.OverpassURL == "" {
		cfg.Data.OverpassURL = "https://overpass-api.de/api/interpreter"
	}
	if cfg.Data.BBox == (BBox{}) {
		cfg.Data.BBox = BBox{South: 50.75, West: 19.05, North: 50.87, East: 19.22}
	}
	if cfg.Data.ReviewSeed == 0 {
		cfg.Data.ReviewSeed = 42
	}
	if cfg.Watch.DebounceSeconds == 0 {
		cfg.Watch.DebounceSeconds = 2
	}
}
