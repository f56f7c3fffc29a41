package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/maheshLEO4/public-chat-go/internal/embedder"
	"github.com/maheshLEO4/public-chat-go/internal/kb"
	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// openQdrant connects to the Qdrant instance named by the QDRANT_* env vars.
// The caller owns the returned store and must Close it.
func openQdrant() (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)

	store, err := rag.NewQdrantStore(&rag.QdrantConfig{
		Host:   host,
		Port:   port,
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

// buildKB wires the embedder and Qdrant store into a knowledge base manager.
// Used by the ingest and kb commands. The caller must Close the store.
func buildKB(log *slog.Logger) (*kb.Manager, *rag.QdrantStore, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.Shared()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := openQdrant()
	if err != nil {
		return nil, nil, err
	}

	manager, err := kb.NewManager(emb, store, embedder.Dimensions(), log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create knowledge base manager: %w", err)
	}
	return manager, store, nil
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

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
