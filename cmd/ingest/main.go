package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Sayrikey1/Code-and-Clause/internal/config"
	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/embed"
	"github.com/Sayrikey1/Code-and-Clause/internal/ingest"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
	"github.com/Sayrikey1/Code-and-Clause/internal/rag"
)

// Batch-loads extracted policy documents into the vector index. Accepts a
// directory of .txt/.md files (source id = relative path) or a JSONL file
// of {"source_id": ..., "text": ...} lines, e.g. from the scraping
// pipeline.
func main() {
	dir := flag.String("dir", "", "Directory of .txt/.md files to ingest")
	jsonl := flag.String("jsonl", "", "JSONL file of {source_id, text} documents")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using process environment")
	}

	if *dir == "" && *jsonl == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -dir <path> | -jsonl <file>")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	batch, err := loadBatch(*dir, *jsonl)
	if err != nil {
		logger.Error("Failed to read input: %v", err)
		os.Exit(1)
	}
	if len(batch) == 0 {
		logger.Warn("Nothing to ingest")
		return
	}
	logger.Info("Loaded %d source documents", len(batch))

	ctx := context.Background()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Error("Failed to initialize embedder: %v", err)
		os.Exit(1)
	}

	store, err := buildStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		logger.Error("Failed to initialize vector store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ingestor := ingest.NewIngestor(ingest.NewChunker(0), embedder, store)
	chunks, err := ingestor.Ingest(ctx, batch)
	if err != nil {
		logger.Error("Ingestion failed after %d chunks: %v", chunks, err)
		os.Exit(1)
	}

	logger.Info("Done: %d sources, %d chunks", len(batch), chunks)
}

func loadBatch(dir, jsonl string) ([]core.SourceText, error) {
	if jsonl != "" {
		return loadJSONL(jsonl)
	}
	return loadDir(dir)
}

func loadDir(dir string) ([]core.SourceText, error) {
	var batch []core.SourceText
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		batch = append(batch, core.SourceText{
			SourceID: filepath.ToSlash(rel),
			Text:     string(data),
		})
		return nil
	})
	return batch, err
}

func loadJSONL(path string) ([]core.SourceText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var batch []core.SourceText
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var src core.SourceText
		if err := json.Unmarshal([]byte(text), &src); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, src)
	}
	return batch, scanner.Err()
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
		logger.Warn("Using in-memory vector store; the index is lost on exit")
		return rag.NewMemoryStore(dim), nil
	}
	return rag.NewMilvusStore(ctx, cfg.MilvusAddr, cfg.Collection, dim)
}
