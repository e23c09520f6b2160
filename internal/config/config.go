package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Embedder providers recognized by EMBED_PROVIDER.
const (
	EmbedProviderOpenAI  = "openai"
	EmbedProviderTEI     = "tei"
	EmbedProviderHashing = "hashing"
)

// Vector store backends recognized by VECTOR_STORE.
const (
	VectorStoreMilvus = "milvus"
	VectorStoreMemory = "memory"
)

// Config is the full process configuration, sourced from environment
// variables at startup. Nothing here is read again after Load.
type Config struct {
	HTTPAddr string

	VectorStore  string
	MilvusAddr   string
	Collection   string
	EmbeddingDim int

	EmbedProvider   string
	OpenAIAPIKey    string
	OpenAIModel     string
	EmbedServiceURL string

	OpenRouterAPIKey string
	OpenRouterModel  string

	TopK            int
	PromptBudget    int
	CallTimeout     time.Duration
	GeneratorRetries int

	AdminCallerIDs   string
	AllowedCallerIDs string

	LogLevel string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8000"),

		VectorStore:  getEnvWithDefault("VECTOR_STORE", VectorStoreMilvus),
		MilvusAddr:   getEnvWithDefault("MILVUS_ADDR", "localhost:19530"),
		Collection:   getEnvWithDefault("COLLECTION_NAME", "policy_chunks"),
		EmbeddingDim: getEnvInt("EMBED_DIM", 768),

		EmbedProvider:   getEnvWithDefault("EMBED_PROVIDER", EmbedProviderTEI),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnvWithDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedServiceURL: getEnvWithDefault("EMBED_SERVICE_URL", "http://localhost:8080"),

		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnvWithDefault("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),

		TopK:             getEnvInt("TOP_K", 4),
		PromptBudget:     getEnvInt("PROMPT_BUDGET", 12000),
		CallTimeout:      getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		GeneratorRetries: getEnvInt("GENERATOR_RETRIES", 1),

		AdminCallerIDs:   os.Getenv("ADMIN_CALLER_IDS"),
		AllowedCallerIDs: os.Getenv("ALLOWED_CALLER_IDS"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.PromptBudget < 1 {
		return fmt.Errorf("PROMPT_BUDGET must be positive, got %d", c.PromptBudget)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive, got %s", c.CallTimeout)
	}
	if c.GeneratorRetries < 0 {
		return fmt.Errorf("GENERATOR_RETRIES must not be negative, got %d", c.GeneratorRetries)
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbeddingDim)
	}
	switch c.VectorStore {
	case VectorStoreMilvus, VectorStoreMemory:
	default:
		return fmt.Errorf("unknown VECTOR_STORE %q", c.VectorStore)
	}
	switch c.EmbedProvider {
	case EmbedProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBED_PROVIDER=openai")
		}
	case EmbedProviderTEI:
		if c.EmbedServiceURL == "" {
			return fmt.Errorf("EMBED_SERVICE_URL is required when EMBED_PROVIDER=tei")
		}
	case EmbedProviderHashing:
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER %q", c.EmbedProvider)
	}
	return nil
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
