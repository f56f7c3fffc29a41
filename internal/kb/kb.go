// Package kb implements the knowledge-base mutation API: tenant-scoped
// ingestion and removal of document chunks. It is a thin orchestration over
// the embedder and the vector store gateway; the per-tenant collection is
// always resolved through the tenant namer so chunks can never land in
// another bot's knowledge base.
package kb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
	"github.com/maheshLEO4/public-chat-go/internal/tenant"
)

// Chunk is one unit of knowledge to ingest: a piece of text plus the source
// it came from.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Source is the originating file name or URL.
	Source string

	// Page is the zero-indexed page number for paginated sources, nil
	// otherwise.
	Page *int
}

// Manager exposes the mutation operations for tenant knowledge bases.
// It is safe for concurrent use; concurrent writers to the same collection
// rely on the vector store's own point-level atomicity.
type Manager struct {
	// embedder converts chunk text into vectors.
	embedder rag.Embedder

	// store is the vector store gateway.
	store rag.VectorStore

	// vectorSize is the embedding dimension used when creating collections.
	vectorSize uint64

	// log is the structured logger for mutation events.
	log *slog.Logger
}

// NewManager constructs a Manager. vectorSize must match the embedder's
// output dimension.
func NewManager(embedder rag.Embedder, store rag.VectorStore, vectorSize int, log *slog.Logger) (*Manager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("kb: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("kb: store must not be nil")
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("kb: vector size must be positive, got %d", vectorSize)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		embedder:   embedder,
		store:      store,
		vectorSize: uint64(vectorSize),
		log:        log,
	}, nil
}

// AddDocuments embeds the chunks and upserts them into the bot's collection,
// creating the collection on first ingestion. Adding zero chunks is a no-op.
func (m *Manager) AddDocuments(ctx context.Context, ownerID, botID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	collection := tenant.CollectionName(ownerID, botID)
	if err := m.store.EnsureCollection(ctx, collection, m.vectorSize); err != nil {
		return fmt.Errorf("kb: ensure collection: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("kb: embed %d chunks: %w", len(chunks), err)
	}

	docs := make([]rag.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = rag.Document{
			ID:      uuid.NewString(),
			Content: c.Text,
			Source:  c.Source,
			Page:    c.Page,
		}
	}

	if err := m.store.Upsert(ctx, collection, docs, embeddings); err != nil {
		return fmt.Errorf("kb: upsert: %w", err)
	}

	m.log.Info("kb: documents added",
		slog.String("collection", collection),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

// RemoveBySource deletes every chunk whose source field equals sourceID.
// Removing nothing is not an error.
func (m *Manager) RemoveBySource(ctx context.Context, ownerID, botID, sourceID string) error {
	collection := tenant.CollectionName(ownerID, botID)
	if err := m.store.DeleteByFilter(ctx, collection, rag.Filter{Source: sourceID}); err != nil {
		return fmt.Errorf("kb: remove by source: %w", err)
	}
	m.log.Info("kb: removed by source",
		slog.String("collection", collection),
		slog.String("source", sourceID),
	)
	return nil
}

// RemoveByFilename deletes every chunk ingested from the named file.
// File-based chunks store their filename in the source field, so this is the
// filename form of RemoveBySource.
func (m *Manager) RemoveByFilename(ctx context.Context, ownerID, botID, filename string) error {
	return m.RemoveBySource(ctx, ownerID, botID, filename)
}

// Clear drops the bot's entire collection. The next query against this bot
// reports its knowledge base as not ready until documents are added again.
// Clearing an absent collection is not an error.
func (m *Manager) Clear(ctx context.Context, ownerID, botID string) error {
	collection := tenant.CollectionName(ownerID, botID)
	if err := m.store.Drop(ctx, collection); err != nil {
		return fmt.Errorf("kb: clear: %w", err)
	}
	m.log.Info("kb: knowledge base cleared", slog.String("collection", collection))
	return nil
}

// Exists reports whether the bot has a knowledge base collection at all.
// A collection that exists but holds zero points still reports true.
func (m *Manager) Exists(ctx context.Context, ownerID, botID string) (bool, error) {
	collection := tenant.CollectionName(ownerID, botID)
	exists, err := m.store.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("kb: existence check: %w", err)
	}
	return exists, nil
}

// Stats returns the point count and status of the bot's collection, or
// (nil, nil) when no collection exists yet.
func (m *Manager) Stats(ctx context.Context, ownerID, botID string) (*rag.Stats, error) {
	collection := tenant.CollectionName(ownerID, botID)
	stats, err := m.store.Stats(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("kb: stats: %w", err)
	}
	return stats, nil
}
