package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sayrikey1/Code-and-Clause/internal/api"
	"github.com/Sayrikey1/Code-and-Clause/internal/auth"
	"github.com/Sayrikey1/Code-and-Clause/internal/config"
	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/embed"
	"github.com/Sayrikey1/Code-and-Clause/internal/ingest"
	"github.com/Sayrikey1/Code-and-Clause/internal/llm"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
	"github.com/Sayrikey1/Code-and-Clause/internal/pipeline"
	"github.com/Sayrikey1/Code-and-Clause/internal/rag"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)
	defer logger.Sync()

	logger.Info("Starting Code&Clause policy chatbot...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using process environment")
	}

	cfg := config.Load()
	if cfg.LogLevel == "debug" && !*debug {
		logger.Init(true)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Error("OPENROUTER_API_KEY environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Error("Failed to initialize embedder: %v", err)
		os.Exit(1)
	}
	logger.Info("Embedder ready (%s, dim %d)", cfg.EmbedProvider, embedder.Dimension())

	store, err := buildStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		logger.Error("Failed to initialize vector store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	generator := llm.NewOpenRouterService(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.CallTimeout)

	retriever := pipeline.NewRetriever(embedder, store, cfg.CallTimeout)
	composer := pipeline.NewComposer("", cfg.PromptBudget)
	pipe := pipeline.New(retriever, composer, generator, cfg.TopK, cfg.GeneratorRetries)

	ingestor := ingest.NewIngestor(ingest.NewChunker(0), embedder, store)
	policy := auth.NewPolicy(cfg.AdminCallerIDs, cfg.AllowedCallerIDs)

	server := api.NewServer(cfg.HTTPAddr, pipe, ingestor, store, policy)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received %s, shutting down...", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	logger.Info("Server has been shut down")
}

func buildEmbedder(cfg *config.Config) (core.Embedder, error) {
	switch cfg.EmbedProvider {
	case config.EmbedProviderOpenAI:
		return embed.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case config.EmbedProviderHashing:
		return embed.NewHashingEmbedder(cfg.EmbeddingDim), nil
	default:
		return embed.NewTEIEmbedder(cfg.EmbedServiceURL, cfg.EmbeddingDim, cfg.CallTimeout), nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config, dim int) (core.VectorStore, error) {
	if cfg.VectorStore == config.VectorStoreMemory {
		logger.Warn("Using in-memory vector store; the index is lost on restart")
		return rag.NewMemoryStore(dim), nil
	}
	return rag.NewMilvusStore(ctx, cfg.MilvusAddr, cfg.Collection, dim)
}
