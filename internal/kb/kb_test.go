package kb

import (
	"context"
	"testing"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// memStore is an in-memory rag.VectorStore for mutation-API tests.
type memStore struct {
	collections map[string][]rag.Document
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string][]rag.Document)}
}

func (s *memStore) EnsureCollection(_ context.Context, collection string, _ uint64) error {
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = nil
	}
	return nil
}

func (s *memStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	_, ok := s.collections[collection]
	return ok, nil
}

func (s *memStore) Upsert(_ context.Context, collection string, docs []rag.Document, _ [][]float32) error {
	s.collections[collection] = append(s.collections[collection], docs...)
	return nil
}

func (s *memStore) Search(_ context.Context, collection string, _ []float32, topK int) ([]rag.Document, error) {
	docs := s.collections[collection]
	if topK < len(docs) {
		docs = docs[:topK]
	}
	return docs, nil
}

func (s *memStore) DeleteByFilter(_ context.Context, collection string, f rag.Filter) error {
	docs := s.collections[collection]
	kept := docs[:0]
	for _, d := range docs {
		if f.Source != "" && d.Source == f.Source {
			continue
		}
		kept = append(kept, d)
	}
	s.collections[collection] = kept
	return nil
}

func (s *memStore) Drop(_ context.Context, collection string) error {
	delete(s.collections, collection)
	return nil
}

func (s *memStore) Stats(_ context.Context, collection string) (*rag.Stats, error) {
	docs, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	return &rag.Stats{PointCount: uint64(len(docs)), Status: "Green"}, nil
}

func (s *memStore) Close() error { return nil }

// fixedEmbedder returns a constant 384-dim vector per text.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 384)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func newTestManager(t *testing.T) (*Manager, *memStore) {
	t.Helper()
	store := newMemStore()
	m, err := NewManager(fixedEmbedder{}, store, 384, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, store
}

func Test_AddDocuments_CreatesCollectionAndStoresChunks(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	ctx := context.Background()

	page := 2
	err := m.AddDocuments(ctx, "u1", "b1", []Chunk{
		{Text: "Refunds are processed within 5 business days.", Source: "policy.pdf", Page: &page},
	})
	if err != nil {
		t.Fatalf("add documents: %v", err)
	}

	docs := store.collections["chatbot_u1_b1"]
	if len(docs) != 1 {
		t.Fatalf("want 1 stored doc, got %d", len(docs))
	}
	if docs[0].Source != "policy.pdf" {
		t.Errorf("want source policy.pdf, got %q", docs[0].Source)
	}
	if docs[0].Page == nil || *docs[0].Page != 2 {
		t.Errorf("want page 2, got %v", docs[0].Page)
	}
	if docs[0].ID == "" {
		t.Error("stored doc has no ID")
	}
}

func Test_AddDocuments_EmptyIsNoop(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)

	if err := m.AddDocuments(context.Background(), "u1", "b1", nil); err != nil {
		t.Fatalf("add zero documents: %v", err)
	}
	if _, ok := store.collections["chatbot_u1_b1"]; ok {
		t.Error("empty add must not create the collection")
	}
}

func Test_RemoveBySource_DeletesOnlyMatching(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	ctx := context.Background()

	err := m.AddDocuments(ctx, "u1", "b1", []Chunk{
		{Text: "a", Source: "guide.pdf"},
		{Text: "b", Source: "policy.pdf"},
		{Text: "c", Source: "guide.pdf"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := m.RemoveBySource(ctx, "u1", "b1", "guide.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	docs := store.collections["chatbot_u1_b1"]
	if len(docs) != 1 || docs[0].Source != "policy.pdf" {
		t.Errorf("want only policy.pdf left, got %v", docs)
	}
}

func Test_RemoveBySource_NothingToDoIsNotAnError(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	if err := m.RemoveBySource(context.Background(), "u1", "b1", "absent.pdf"); err != nil {
		t.Errorf("removing from an absent collection must not error: %v", err)
	}
}

func Test_Clear_ThenExistsIsFalse(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.AddDocuments(ctx, "u1", "b1", []Chunk{{Text: "x", Source: "s.pdf"}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Clear(ctx, "u1", "b1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	exists, err := m.Exists(ctx, "u1", "b1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("collection must not exist after clear")
	}

	// Clearing again is idempotent.
	if err := m.Clear(ctx, "u1", "b1"); err != nil {
		t.Errorf("second clear must not error: %v", err)
	}
}

func Test_Stats_AbsentCollectionReturnsNil(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	stats, err := m.Stats(context.Background(), "u1", "never")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != nil {
		t.Errorf("want nil stats for absent collection, got %+v", stats)
	}
}

func Test_Stats_CountsPoints(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	err := m.AddDocuments(ctx, "u1", "b1", []Chunk{
		{Text: "a", Source: "s.pdf"},
		{Text: "b", Source: "s.pdf"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	stats, err := m.Stats(ctx, "u1", "b1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats == nil || stats.PointCount != 2 {
		t.Errorf("want 2 points, got %+v", stats)
	}
}
