// Package rag defines the interfaces for retrieval-augmented generation
// components: the per-tenant vector store gateway, document retrieval, and
// embedding. Concrete implementations (Qdrant, fakes in tests) satisfy these
// interfaces so the query pipeline never depends on a specific backend.
package rag

import (
	"context"
)

// Document represents a unit of stored or retrieved knowledge. One Document
// is one chunk of an ingested source, carried as a vector-store point with
// a payload holding the text and source metadata.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin of the chunk: a file name or an HTTP(S) URL.
	Source string

	// Page is the zero-indexed page number within the source, for paginated
	// sources such as PDFs. Nil when the source is not paginated.
	Page *int

	// Score is the similarity score assigned during retrieval (0.0-1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Stats describes the state of one collection.
type Stats struct {
	// PointCount is the number of points stored in the collection.
	PointCount uint64

	// Status is the backend's status label for the collection (e.g. "Green").
	Status string
}

// Filter selects points by exact match on payload fields. Zero-value fields
// are not part of the predicate; set fields are ANDed together.
type Filter struct {
	// Source matches the payload "source" field exactly.
	Source string
}

// VectorStore is the per-collection gateway to the remote vector database.
// Absence of a collection is a normal outcome on every read operation, never
// an error: a tenant that has not ingested documents yet is a valid state.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// EnsureCollection creates the named collection with the given vector
	// size and cosine distance if it does not already exist. Idempotent.
	EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error

	// CollectionExists reports whether the named collection exists.
	// Absence returns (false, nil), not an error.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert stores a batch of documents with their pre-computed embeddings.
	// embeddings[i] is the vector for docs[i]. Points are not deduplicated.
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error

	// Search returns the top-k most similar documents for the query
	// embedding, ranked by descending score. Returns fewer than k when the
	// collection holds fewer points, and an empty slice (not an error) when
	// the collection is empty or absent.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error)

	// DeleteByFilter removes every point matching the filter. Removing
	// nothing is not an error.
	DeleteByFilter(ctx context.Context, collection string, f Filter) error

	// Drop removes the collection and all its points. Idempotent: dropping
	// an absent collection is not an error.
	Drop(ctx context.Context, collection string) error

	// Stats returns the point count and status of the collection.
	// An absent collection returns (nil, nil).
	Stats(ctx context.Context, collection string) (*Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings of a fixed dimension.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the most relevant documents for a free-text query from
// one collection. Implementations must be safe to call from multiple
// goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the query.
	Retrieve(ctx context.Context, collection, query string, topK int) ([]Document, error)
}
