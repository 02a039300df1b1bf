// Package main is the cityguide CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/cli"
	"github.com/mwidera/cityguide/internal/config"
	"github.com/mwidera/cityguide/internal/embedding"
	"github.com/mwidera/cityguide/internal/eval"
	"github.com/mwidera/cityguide/internal/indexer"
	"github.com/mwidera/cityguide/internal/llm"
	"github.com/mwidera/cityguide/internal/models"
	"github.com/mwidera/cityguide/internal/osm"
	"github.com/mwidera/cityguide/internal/pipeline"
	"github.com/mwidera/cityguide/internal/prompt"
	"github.com/mwidera/cityguide/internal/retriever"
	"github.com/mwidera/cityguide/internal/reviews"
	"github.com/mwidera/cityguide/internal/server"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
	"github.com/mwidera/cityguide/internal/watcher"
	"github.com/mwidera/cityguide/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/cityguide/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "cityguide server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				applyEnvOverrides(cfg)
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, path, nil
}

// applyEnvOverrides lets OLLAMA_HOST point both the embedder and the generator
// at a non-default Ollama instance without editing the config file.
func applyEnvOverrides(cfg *config.Config) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
			host = "http://" + host
		}
		cfg.Embedding.BaseURL = host
		cfg.LLM.BaseURL = host
	}
}

func main() {
	// A .env in the working directory can carry OLLAMA_HOST for development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "index":
		runIndex()
	case "fetch":
		runFetch()
	case "enrich":
		runEnrich()
	case "evaluate":
		runEvaluate()
	case "models":
		runModels()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("cityguide version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (retrieval scores, watch events, etc.)")
	mock := fs.Bool("mock", false, "use the mock embedder instead of Ollama")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		idx := components.Indexer
		vidx := components.VectorIndex
		watchSvc := watcher.New(
			cfg.Storage.POIDataPath,
			func(path string) {
				n, err := idx.IndexFile(context.Background(), path, false)
				if err != nil {
					logger.Warn("watch re-index failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("dataset re-indexed", zap.Int("pois", n))
				if err := vidx.Save(cfg.Storage.VectorIndexPath); err != nil {
					logger.Warn("vector index save failed", zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceSeconds)*time.Second),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Indexer,
		components.Storage,
		components.VectorIndex,
		components.Generator,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: cityguide ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces. Multi-word questions work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  cityguide ask where can I eat good pierogi
  cityguide ask "where can I eat good pierogi"     # same as above
  cityguide ask --category museum what should I visit
  cityguide ask --top-k 5 --output json best coffee in town
`)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the question
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the pipeline in-process)")
	topK := fs.Int("top-k", 0, "number of documents to retrieve (0 = config default)")
	category := fs.String("category", "", "restrict retrieval to one POI category")
	mock := fs.Bool("mock", false, "use the mock embedder instead of Ollama (in-process mode only)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		printAskUsage(fs)
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &models.AskRequest{
		Question: question,
		TopK:     *topK,
		Category: *category,
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids an SQLite lock conflict).
		answer, err := askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// In-process pipeline (when the server is not running).
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	answer, err := components.Pipeline.Ask(context.Background(), req)
	if answer == nil && err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*models.Answer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var answer models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &answer, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "clear the index and storage before indexing")
	mock := fs.Bool("mock", false, "use the mock embedder instead of Ollama")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	path := cfg.Storage.POIDataPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	ctx := context.Background()
	n, err := components.Indexer.IndexFile(ctx, path, *force)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		fmt.Printf("Saving vector index failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d POI(s) from %s\n", n, path)
}

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "output file (default: the configured POI data path)")
	enrich := fs.Bool("enrich", true, "synthesize reviews for fetched POIs")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	outPath := *output
	if outPath == "" {
		outPath = cfg.Storage.POIDataPath
	}

	client := osm.NewClient(cfg.Data.OverpassURL, osm.WithLogger(logger))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("Fetching POIs for %s from OpenStreetMap...\n", cfg.Data.City)
	pois, err := client.FetchPOIs(ctx, cfg.Data.BBox)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		os.Exit(1)
	}
	if *enrich {
		reviews.NewSynthesizer(cfg.Data.ReviewSeed).Enrich(pois)
	}
	if err := storage.SavePOIFile(outPath, pois); err != nil {
		fmt.Printf("Saving POI file failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Fetched %d POI(s) to %s\n", len(pois), outPath)
}

func runEnrich() {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "input POI file (default: the configured POI data path)")
	output := fs.String("output", "", "output file (default: overwrite the input)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	inPath := *input
	if inPath == "" {
		inPath = cfg.Storage.POIDataPath
	}
	outPath := *output
	if outPath == "" {
		outPath = inPath
	}

	pois, err := storage.LoadPOIFile(inPath)
	if err != nil {
		fmt.Printf("Loading POI file failed: %v\n", err)
		os.Exit(1)
	}
	reviews.NewSynthesizer(cfg.Data.ReviewSeed).Enrich(pois)
	if err := storage.SavePOIFile(outPath, pois); err != nil {
		fmt.Printf("Saving POI file failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Enriched %d POI(s) to %s\n", len(pois), outPath)
}

func runEvaluate() {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	workers := fs.Int("workers", 0, "concurrent evaluation workers (0 = config default)")
	reportPath := fs.String("report", "", "write the JSON report here (default from config; empty config value = stdout only)")
	mock := fs.Bool("mock", false, "use the mock embedder instead of Ollama")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: cityguide evaluate [flags] <records.json>")
		os.Exit(1)
	}
	recordsPath := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	records, err := eval.LoadRecords(recordsPath)
	if err != nil {
		fmt.Printf("Loading records failed: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	n := *workers
	if n <= 0 {
		n = cfg.Eval.Workers
	}
	harness := eval.NewHarness(components.Pipeline, components.Embedder, n, eval.WithLogger(logger))
	report := harness.Run(context.Background(), records)
	report.Print(os.Stdout)

	out := *reportPath
	if out == "" {
		out = cfg.Eval.ReportPath
	}
	if out != "" {
		if err := report.WriteJSON(out); err != nil {
			fmt.Printf("Writing report failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", out)
	}
}

func runModels() {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	generator := llm.NewOllamaGenerator(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	names, err := generator.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing models failed: %v\n", err)
		os.Exit(1)
	}
	for _, name := range names {
		marker := " "
		if name == cfg.LLM.Model || name == cfg.Embedding.Model {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	POIs            int64          `json:"pois"`
	VectorIndexSize int            `json:"vector_index_size"`
	LLMAvailable    bool           `json:"llm_available"`
	LLMModel        string         `json:"llm_model"`
	DiskUsageBytes  *int64         `json:"disk_usage_bytes,omitempty"`
	Config          map[string]any `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = inspect local storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	mock := fs.Bool("mock", false, "use the mock embedder instead of Ollama (direct mode only)")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, *mock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		poiCount, err := components.Storage.CountPOIs(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count POIs failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			POIs:            poiCount,
			VectorIndexSize: components.VectorIndex.Size(),
			LLMAvailable:    components.Generator.Available(ctx),
			LLMModel:        components.Generator.Model(),
			Config: map[string]any{
				"embedding_model":   cfg.Embedding.Model,
				"top_k":             cfg.Retrieval.TopK,
				"snippet_max_chars": cfg.Retrieval.SnippetMaxChars,
				"database_path":     cfg.Storage.DatabasePath,
				"vector_index_path": cfg.Storage.VectorIndexPath,
			},
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("pois:               %d   # count of indexed POIs\n", status.POIs)
		fmt.Printf("vector_index_size:  %d   # count of vectors in the semantic index\n", status.VectorIndexSize)
		fmt.Printf("llm_available:      %t\n", status.LLMAvailable)
		fmt.Printf("llm_model:          %s\n", status.LLMModel)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # storage + index on disk\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_model", "top_k", "snippet_max_chars", "database_path", "vector_index_path"} {
				if val, ok := status.Config[key]; ok {
					fmt.Printf("%-19s %v\n", key+":", val)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedder    embedding.Embedder
	VectorIndex vector.Index
	Retriever   *retriever.Retriever
	Pipeline    *pipeline.Pipeline
	Indexer     *indexer.Indexer
	Generator   llm.Generator
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, mock bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	if mock {
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		logger.Info("using mock embedder", zap.Int("dimensions", cfg.Embedding.Dimensions))
	} else {
		httpClient := &http.Client{Timeout: time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second}
		ollama := embedding.NewOllamaEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			embedding.WithLogger(logger),
			embedding.WithHTTPClient(httpClient),
		)
		embedder = embedding.NewCachedEmbedder(ollama, cfg.Embedding.CacheSize)
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if _, statErr := os.Stat(cfg.Storage.VectorIndexPath); statErr == nil {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped (run a full re-index)",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("size", vectorIndex.Size()))

	generator := llm.NewOllamaGenerator(
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		llm.WithLogger(logger),
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
	)

	ret := retriever.New(embedder, vectorIndex, store,
		cfg.Retrieval.TopK, cfg.Retrieval.MaxTopK, retriever.WithLogger(logger))
	builder := prompt.NewBuilder(cfg.Data.City, cfg.Retrieval.SnippetMaxChars)
	p := pipeline.New(ret, builder, generator, pipeline.WithLogger(logger))
	idx := indexer.New(store, embedder, vectorIndex, indexer.WithLogger(logger))

	return &Components{
		Storage:     store,
		Embedder:    embedder,
		VectorIndex: vectorIndex,
		Retriever:   ret,
		Pipeline:    p,
		Indexer:     idx,
		Generator:   generator,
	}, nil
}

func printUsage() {
	fmt.Println(`cityguide - Local RAG city guide for tourists

Usage:
  cityguide server [flags]             Start the HTTP server
  cityguide ask [flags] <question>     Ask the guide a question
  cityguide index [flags] [file]       Index the POI dataset
  cityguide fetch [flags]              Fetch POIs from OpenStreetMap
  cityguide enrich [flags]             Synthesize reviews for a POI file
  cityguide evaluate [flags] <file>    Run the evaluation harness
  cityguide models [flags]             List models on the Ollama server
  cityguide status [flags]             Show storage/index/LLM status
  cityguide version                    Show version
  cityguide help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/cityguide/config.yaml)
  --debug            Enable debug logging (retrieval scores, watch events, etc.)
  --mock             Use the mock embedder instead of Ollama

Ask Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline in-process.
  --top-k int        Number of documents to retrieve (0 = config default)
  --category string  Restrict retrieval to one POI category
  --output string    Output format: text or json (default: text)

Index Flags:
  --config string    Config file path
  --force            Clear the index and storage before indexing

Fetch Flags:
  --config string    Config file path
  --output string    Output file (default: the configured POI data path)
  --enrich           Synthesize reviews for fetched POIs (default: true)

Evaluate Flags:
  --config string    Config file path
  --workers int      Concurrent evaluation workers (0 = config default)
  --report string    Write the JSON report here
  --mock             Use the mock embedder instead of Ollama

Examples:
  cityguide fetch
  cityguide index --force
  cityguide server
  cityguide ask "where can I eat good pierogi?"
  cityguide ask --category museum what should I visit
  cityguide evaluate --mock data/eval_records.json
  cityguide status --output json`)
}
