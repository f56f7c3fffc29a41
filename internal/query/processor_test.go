package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// fakeStore is an in-memory rag.VectorStore with call counters.
type fakeStore struct {
	collections       map[string][]rag.Document
	existsErr         error
	searchErr         error
	searches          int
	existsHadDeadline bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]rag.Document)}
}

func (s *fakeStore) EnsureCollection(_ context.Context, collection string, _ uint64) error {
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = nil
	}
	return nil
}

func (s *fakeStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, s.existsHadDeadline = ctx.Deadline()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.collections[collection]
	return ok, nil
}

func (s *fakeStore) Upsert(_ context.Context, collection string, docs []rag.Document, _ [][]float32) error {
	s.collections[collection] = append(s.collections[collection], docs...)
	return nil
}

func (s *fakeStore) Search(_ context.Context, collection string, _ []float32, topK int) ([]rag.Document, error) {
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	docs := append([]rag.Document(nil), s.collections[collection]...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if topK < len(docs) {
		docs = docs[:topK]
	}
	return docs, nil
}

func (s *fakeStore) DeleteByFilter(_ context.Context, _ string, _ rag.Filter) error { return nil }
func (s *fakeStore) Drop(_ context.Context, collection string) error {
	delete(s.collections, collection)
	return nil
}
func (s *fakeStore) Stats(_ context.Context, _ string) (*rag.Stats, error) { return nil, nil }
func (s *fakeStore) Close() error                                          { return nil }

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 384)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

// fakeChatModel records the last Generate input and returns a canned answer.
type fakeChatModel struct {
	answer   string
	err      error
	calls    int
	lastMsgs []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	m.lastMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.answer, nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported")
}

func (m *fakeChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func newTestProcessor(t *testing.T, store *fakeStore, chat *fakeChatModel) *Processor {
	t.Helper()
	p, err := NewProcessor(&Config{
		Store:     store,
		Embedder:  &fakeEmbedder{},
		ChatModel: chat,
	}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	return p
}

func Test_Answer_EndToEnd(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	page := 2
	store.collections["chatbot_u1_b1"] = []rag.Document{
		{Content: "Refunds are processed within 5 business days.", Source: "policy.pdf", Page: &page, Score: 0.92},
	}
	chat := &fakeChatModel{answer: "Refunds take up to 5 business days."}
	p := newTestProcessor(t, store, chat)

	res, err := p.Answer(context.Background(), &Request{
		OwnerID:     "u1",
		BotID:       "b1",
		Query:       "How long do refunds take?",
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.Answer == "" {
		t.Error("want non-empty answer")
	}
	if len(res.Sources) != 1 {
		t.Fatalf("want 1 citation, got %d", len(res.Sources))
	}
	c := res.Sources[0]
	if c.Document != "policy.pdf" || c.Page != "3" || c.Type != SourcePDF {
		t.Errorf("citation = %+v, want policy.pdf page 3 pdf", c)
	}
}

func Test_Answer_MissingCollectionShortCircuits(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	chat := &fakeChatModel{answer: "should never be used"}
	p, err := NewProcessor(&Config{Store: store, Embedder: embedder, ChatModel: chat}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	_, err = p.Answer(context.Background(), &Request{OwnerID: "u1", BotID: "never", Query: "hi"})
	var qe *Error
	if !errors.As(err, &qe) || qe.Kind != KindKnowledgeBaseNotReady {
		t.Fatalf("want KnowledgeBaseNotReady, got %v", err)
	}
	if qe.UserMessage() != "Knowledge base not ready. Please add documents first." {
		t.Errorf("user message = %q", qe.UserMessage())
	}
	if embedder.calls != 0 || store.searches != 0 || chat.calls != 0 {
		t.Errorf("missing collection must not embed/search/generate (embed=%d search=%d generate=%d)",
			embedder.calls, store.searches, chat.calls)
	}
}

func Test_Answer_StoreUnreachableIsBackendUnavailable(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.existsErr = errors.New("connection refused")
	p := newTestProcessor(t, store, &fakeChatModel{})

	_, err := p.Answer(context.Background(), &Request{OwnerID: "u1", BotID: "b1", Query: "hi"})
	var qe *Error
	if !errors.As(err, &qe) || qe.Kind != KindBackendUnavailable {
		t.Fatalf("want BackendUnavailable, got %v", err)
	}
}

func Test_Answer_DeadlineCoversExistenceCheck(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.collections["chatbot_u1_b1"] = []rag.Document{{Content: "x", Source: "s.pdf"}}
	p := newTestProcessor(t, store, &fakeChatModel{answer: "ok"})

	// A caller with an unbounded context (the CLI) must still reach the
	// store with a deadline attached.
	if _, err := p.Answer(context.Background(), &Request{OwnerID: "u1", BotID: "b1", Query: "hi"}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !store.existsHadDeadline {
		t.Error("existence check ran without a deadline on the context")
	}
}

func Test_Answer_CompletionTimeoutNeverLeaksRawError(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.collections["chatbot_u1_b1"] = []rag.Document{{Content: "x", Source: "s.pdf"}}
	chat := &fakeChatModel{err: errors.New("Post \"https://api.groq.com\": request timeout after 30s")}
	p := newTestProcessor(t, store, chat)

	_, err := p.Answer(context.Background(), &Request{OwnerID: "u1", BotID: "b1", Query: "hi"})
	var qe *Error
	if !errors.As(err, &qe) || qe.Kind != KindTimeout {
		t.Fatalf("want Timeout, got %v", err)
	}
	msg := qe.UserMessage()
	if msg != "Request timed out. Please try a shorter question." {
		t.Errorf("user message = %q", msg)
	}
	if strings.Contains(msg, "api.groq.com") {
		t.Error("user message leaks raw error detail")
	}
}

func Test_Answer_PromptCarriesGroundingAndQuestion(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.collections["chatbot_u1_b1"] = []rag.Document{
		{Content: "Opening hours are 9 to 5.", Source: "faq.pdf", Score: 0.8},
	}
	chat := &fakeChatModel{answer: "9 to 5."}
	p := newTestProcessor(t, store, chat)

	_, err := p.Answer(context.Background(), &Request{
		OwnerID:      "u1",
		BotID:        "b1",
		Query:        "When are you open?",
		SystemPrompt: "",
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(chat.lastMsgs) != 2 {
		t.Fatalf("want system+user messages, got %d", len(chat.lastMsgs))
	}
	system := chat.lastMsgs[0].Content
	if !strings.Contains(system, "don't try to make up an answer") {
		t.Error("grounding instructions missing from system message with empty tenant prompt")
	}
	user := chat.lastMsgs[1].Content
	if !strings.Contains(user, "Opening hours are 9 to 5.") {
		t.Error("retrieved passage missing from user message")
	}
	if !strings.Contains(user, "Question: When are you open?") {
		t.Error("verbatim question missing from user message")
	}
}

func Test_Answer_TenantSystemPromptPrecedesGrounding(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.collections["chatbot_u1_b1"] = []rag.Document{{Content: "x", Source: "s.pdf"}}
	chat := &fakeChatModel{answer: "ok"}
	p := newTestProcessor(t, store, chat)

	_, err := p.Answer(context.Background(), &Request{
		OwnerID:      "u1",
		BotID:        "b1",
		Query:        "hi",
		SystemPrompt: "You are a helpful support bot for Acme.",
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	system := chat.lastMsgs[0].Content
	tenantIdx := strings.Index(system, "Acme")
	groundIdx := strings.Index(system, "given context")
	if tenantIdx < 0 || groundIdx < 0 || tenantIdx > groundIdx {
		t.Errorf("system block ordering wrong:\n%s", system)
	}
}

func Test_HandleCache_ReusedUntilKeyChanges(t *testing.T) {
	t.Parallel()
	cache := newHandleCache()
	builds := 0
	build := func(key handleKey) *handle {
		builds++
		return buildHandle(key, DefaultMaxTokens)
	}

	key := handleKey{ownerID: "u1", botID: "b1", systemPrompt: "p", temperature: 0.7}
	h1 := cache.get(key, build)
	h2 := cache.get(key, build)
	if h1 != h2 || builds != 1 {
		t.Errorf("same key must reuse the handle (builds=%d)", builds)
	}

	key.temperature = 0.2
	h3 := cache.get(key, build)
	if h3 == h1 || builds != 2 {
		t.Errorf("changed temperature must rebuild the handle (builds=%d)", builds)
	}
	if h3.collection != "chatbot_u1_b1" {
		t.Errorf("handle collection = %q", h3.collection)
	}
}
