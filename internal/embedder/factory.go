package embedder

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// Default embedding models per backend. Both defaults produce 384-dimension
// vectors so they can share collections: all-minilm natively, and
// text-embedding-3-small via the dimensions request parameter.
const (
	defaultOllamaModel = "all-minilm"
	defaultOpenAIModel = "text-embedding-3-small"

	// DefaultDimensions is the embedding vector size for this deployment.
	// It must match the vector size every collection was created with;
	// changing it requires re-ingesting all knowledge bases.
	DefaultDimensions = 384
)

// Dimensions returns the embedding vector size, honouring the
// EMBEDDING_DIMENSIONS override. Callers creating collections must use this
// rather than hardcoding a value.
func Dimensions() int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	return DefaultDimensions
}

// NewFromEnv constructs a normalized rag.Embedder from environment variables.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — ollama (default) or openai
//  2. EMBEDDING_MODEL — overrides the default model for the backend
//  3. EMBEDDING_API_KEY — falls back to OPENAI_API_KEY for openai
//  4. EMBEDDING_ENDPOINT — overrides the backend's default endpoint
//  5. EMBEDDING_DIMENSIONS — overrides the 384-dimension default
func NewFromEnv() (rag.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")
	dims := Dimensions()

	switch backend {
	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel)
		return Normalized(NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: model,
		}), dims), nil

	case "openai":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		baseURL := getEnv("EMBEDDING_ENDPOINT")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return Normalized(NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
		}), dims), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: ollama, openai", backend)
	}
}

// shared holds the process-wide embedder. The embedding backend is shared,
// read-mostly state: it is initialised on first use and reused for every
// query and ingestion in the process.
var shared struct {
	once sync.Once
	emb  rag.Embedder
	err  error
}

// Shared returns the process-wide embedder, constructing it from the
// environment on first call. Concurrent first calls are safe; exactly one
// construction occurs.
func Shared() (rag.Embedder, error) {
	shared.once.Do(func() {
		shared.emb, shared.err = NewFromEnv()
	})
	return shared.emb, shared.err
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
