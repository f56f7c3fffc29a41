package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maheshLEO4/public-chat-go/internal/kb"
	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

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

func (s *memStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]rag.Document, error) {
	return nil, nil
}
func (s *memStore) DeleteByFilter(_ context.Context, _ string, _ rag.Filter) error { return nil }
func (s *memStore) Drop(_ context.Context, collection string) error {
	delete(s.collections, collection)
	return nil
}
func (s *memStore) Stats(_ context.Context, _ string) (*rag.Stats, error) { return nil, nil }
func (s *memStore) Close() error                                          { return nil }

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 384)
	}
	return out, nil
}

func newTestPipeline(t *testing.T, cfg *Config) (*Pipeline, *memStore) {
	t.Helper()
	store := newMemStore()
	manager, err := kb.NewManager(fixedEmbedder{}, store, 384, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	p, err := NewPipeline(manager, cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, store
}

func Test_Chunk_OverlapAndBounds(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &Config{ChunkSize: 10, ChunkOverlap: 2})

	// Step size is size-overlap=8: windows [0:10], [8:18], [16:25].
	chunks := p.chunk(strings.Repeat("a", 25))
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if len(c) != 10 {
			t.Errorf("chunk %d length = %d, want 10", i, len(c))
		}
	}
	if last := chunks[len(chunks)-1]; len(last) != 9 {
		t.Errorf("last chunk length = %d, want 9", len(last))
	}
}

func Test_Chunk_EmptyInput(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, nil)
	if got := p.chunk("   \n  "); got != nil {
		t.Errorf("want nil chunks for blank input, got %v", got)
	}
}

func Test_Chunk_ShortInputSingleChunk(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, nil)
	chunks := p.chunk("short document")
	if len(chunks) != 1 || chunks[0] != "short document" {
		t.Errorf("chunks = %v", chunks)
	}
}

func Test_Ingest_FetchesAndStores(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Our refund policy allows returns within 30 days of purchase."))
	}))
	t.Cleanup(srv.Close)

	p, store := newTestPipeline(t, nil)
	var progress []string
	err := p.Ingest(context.Background(), "u1", "b1", []Source{{Location: srv.URL}}, func(msg string) {
		progress = append(progress, msg)
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	docs := store.collections["chatbot_u1_b1"]
	if len(docs) != 1 {
		t.Fatalf("want 1 stored chunk, got %d", len(docs))
	}
	if docs[0].Source != srv.URL {
		t.Errorf("stored source = %q, want %q", docs[0].Source, srv.URL)
	}
	if len(progress) == 0 {
		t.Error("expected progress callbacks")
	}
}

func Test_Ingest_HTTPErrorStopsRun(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	p, store := newTestPipeline(t, nil)
	err := p.Ingest(context.Background(), "u1", "b1", []Source{{Location: srv.URL}}, nil)
	if err == nil {
		t.Fatal("want error for 404 source")
	}
	if len(store.collections["chatbot_u1_b1"]) != 0 {
		t.Error("failed fetch must not store chunks")
	}
}

func Test_Ingest_LocalFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("Support hours are 9am to 5pm, Monday through Friday."), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	p, store := newTestPipeline(t, nil)
	if err := p.Ingest(context.Background(), "u1", "b1", []Source{{Location: path}}, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	docs := store.collections["chatbot_u1_b1"]
	if len(docs) != 1 || docs[0].Source != path {
		t.Errorf("stored docs = %v", docs)
	}
	if docs[0].Page != nil {
		t.Errorf("unpaginated source must store no page, got %d", *docs[0].Page)
	}
}

func Test_Ingest_PaginatedFileCarriesPageNumbers(t *testing.T) {
	t.Parallel()
	// Form feeds delimit pages, as in pdftotext output.
	content := "Warranty terms.\fReturn process.\fContact details."
	path := filepath.Join(t.TempDir(), "manual.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	p, store := newTestPipeline(t, nil)
	if err := p.Ingest(context.Background(), "u1", "b1", []Source{{Location: path}}, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	docs := store.collections["chatbot_u1_b1"]
	if len(docs) != 3 {
		t.Fatalf("want 3 stored chunks, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.Page == nil {
			t.Fatalf("chunk %d stored without a page number", i)
		}
		if *doc.Page != i {
			t.Errorf("chunk %d page = %d, want %d", i, *doc.Page, i)
		}
	}
}
