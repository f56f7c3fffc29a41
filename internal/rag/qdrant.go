package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload field names used for every stored point.
const (
	payloadContent = "content"
	payloadSource  = "source"
	payloadPage    = "page"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. One store
// serves all tenant collections; operations name their collection per call.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client
}

// NewQdrantStore connects to Qdrant and returns a ready-to-use VectorStore.
// Collections are created lazily on first ingestion, not here.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Client exposes the underlying gRPC client for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// EnsureCollection creates the collection with cosine distance if it does
// not already exist. Safe to call repeatedly.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", collection, err)
	}

	return nil
}

// CollectionExists reports whether the collection exists. Absence is a
// normal false, never an error.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Upsert stores a batch of documents with their pre-computed embeddings.
// embeddings must be parallel to docs.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("qdrant: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]any{
			payloadContent: doc.Content,
			payloadSource:  doc.Source,
		}
		if doc.Page != nil {
			payload[payloadPage] = *doc.Page
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %q failed: %w", collection, err)
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results
// ranked by descending score. An empty or absent collection yields an empty
// slice, not an error.
func (s *QdrantStore) Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error) {
	if topK <= 0 {
		return nil, nil
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("qdrant: search in %q failed: %w", collection, err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:    r.Id.GetUuid(),
			Score: r.Score,
		}
		if p := r.Payload; p != nil {
			if v, ok := p[payloadContent]; ok {
				doc.Content = v.GetStringValue()
			}
			if v, ok := p[payloadSource]; ok {
				doc.Source = v.GetStringValue()
			}
			if v, ok := p[payloadPage]; ok {
				page := int(v.GetIntegerValue())
				doc.Page = &page
			}
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// DeleteByFilter removes every point whose payload matches the filter.
// Matching nothing, or an absent collection, is not an error.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, collection string, f Filter) error {
	var conditions []*qdrant.Condition
	if f.Source != "" {
		conditions = append(conditions, qdrant.NewMatch(payloadSource, f.Source))
	}
	if len(conditions) == 0 {
		return fmt.Errorf("qdrant: delete filter is empty")
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: conditions,
		}),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("qdrant: delete from %q failed: %w", collection, err)
	}

	return nil
}

// Drop removes the collection and all its points. Dropping an absent
// collection is not an error.
func (s *QdrantStore) Drop(ctx context.Context, collection string) error {
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("qdrant: drop %q failed: %w", collection, err)
	}
	return nil
}

// Stats returns the point count and status of the collection, or (nil, nil)
// when the collection does not exist.
func (s *QdrantStore) Stats(ctx context.Context, collection string) (*Stats, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("qdrant: stats for %q failed: %w", collection, err)
	}

	stats := &Stats{Status: info.GetStatus().String()}
	if pc := info.PointsCount; pc != nil {
		stats.PointCount = *pc
	}
	return stats, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// isNotFound reports whether err is the gRPC NotFound status Qdrant returns
// for operations against a collection that does not exist.
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
