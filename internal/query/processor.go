// Package query implements the retrieval-augmented answer pipeline: namespace
// resolution, similarity search, prompt assembly, a single completion request,
// and citation formatting. All failures are classified into fixed user-safe
// messages; raw backend errors are logged, never rendered.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/maheshLEO4/public-chat-go/internal/budget"
	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// groundingInstructions is appended to every tenant system prompt. It is the
// mechanism that keeps answers inside the retrieved context, so it is always
// present even when the tenant's own prompt is empty.
const groundingInstructions = `Use the pieces of information provided in the context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Don't provide anything out of the given context.

Start the answer directly. No small talk please.`

const (
	// DefaultTopK is the number of passages retrieved per chat query.
	DefaultTopK = 5
	// DefaultMaxTokens bounds the model's output per answer.
	DefaultMaxTokens = 1024
	// DefaultTimeout bounds one full answer attempt, embedding and search
	// included.
	DefaultTimeout = 30 * time.Second
)

// Request carries one chat turn through the pipeline. SystemPrompt and
// Temperature come from the bot's configuration, not the end user.
type Request struct {
	OwnerID      string
	BotID        string
	Query        string
	SystemPrompt string
	Temperature  float32
}

// Result is a successful pipeline outcome.
type Result struct {
	Answer  string
	Sources []Citation
}

// Config holds the dependencies and tunables for a Processor.
type Config struct {
	// Store is the vector index gateway. Required.
	Store rag.VectorStore
	// Embedder converts the query into the search vector. Required.
	Embedder rag.Embedder
	// ChatModel is the LLM backend constructed by the provider factory. Required.
	ChatModel model.ToolCallingChatModel

	// TopK is the number of passages per query. Defaults to DefaultTopK.
	TopK int
	// MaxTokens bounds model output. Defaults to DefaultMaxTokens.
	MaxTokens int
	// Timeout bounds one answer attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxContextTokens is the estimated input budget; low-ranked passages are
	// dropped to fit. Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Processor answers questions against a bot's knowledge base.
type Processor struct {
	store            rag.VectorStore
	embedder         rag.Embedder
	chatModel        model.ToolCallingChatModel
	topK             int
	maxTokens        int
	timeout          time.Duration
	maxContextTokens int
	handles          *handleCache
	log              *slog.Logger
}

// NewProcessor validates cfg and constructs a Processor.
func NewProcessor(cfg *Config, log *slog.Logger) (*Processor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("query: Store must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("query: Embedder must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("query: ChatModel must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Processor{
		store:            cfg.Store,
		embedder:         cfg.Embedder,
		chatModel:        cfg.ChatModel,
		topK:             topK,
		maxTokens:        maxTokens,
		timeout:          timeout,
		maxContextTokens: maxCtx,
		handles:          newHandleCache(),
		log:              log,
	}, nil
}

// Answer runs the full pipeline for one chat turn. On failure the returned
// error is always a *Error whose UserMessage is safe to render; the wrapped
// cause is for operator logs only.
func (p *Processor) Answer(ctx context.Context, req *Request) (*Result, error) {
	h := p.handles.get(handleKey{
		ownerID:      req.OwnerID,
		botID:        req.BotID,
		systemPrompt: req.SystemPrompt,
		temperature:  req.Temperature,
	}, func(key handleKey) *handle {
		return buildHandle(key, p.maxTokens)
	})

	// The deadline covers the whole turn, existence probe included, so even
	// callers with an unbounded context cannot hang on the store.
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// The existence check runs before any search. A search against a missing
	// collection looks identical to an empty one at the store level and would
	// silently produce an answer with no context.
	exists, err := p.store.CollectionExists(ctx, h.collection)
	if err != nil {
		return nil, newError(KindBackendUnavailable, err)
	}
	if !exists {
		return nil, newError(KindKnowledgeBaseNotReady, nil)
	}

	vectors, err := p.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, Classify(fmt.Errorf("embed query: %w", err))
	}
	docs, err := p.store.Search(ctx, h.collection, vectors[0], p.topK)
	if err != nil {
		return nil, newError(KindBackendUnavailable, err)
	}

	fixedTokens := budget.Estimate(h.systemBlock) + budget.Estimate(req.Query)
	kept := budget.TrimPassages(docs, fixedTokens, p.maxContextTokens)
	if dropped := len(docs) - len(kept); dropped > 0 {
		p.log.Warn("dropped passages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(kept)),
		)
	}

	messages := []*schema.Message{
		schema.SystemMessage(h.systemBlock),
		schema.UserMessage(buildUserBlock(kept, req.Query)),
	}

	resp, err := p.chatModel.Generate(ctx, messages, h.genOpts...)
	if err != nil {
		return nil, Classify(err)
	}

	p.log.Info("answered query",
		slog.String("bot_id", req.BotID),
		slog.Int("passages", len(kept)),
		slog.Int("answer_chars", len(resp.Content)),
	)

	return &Result{
		Answer:  resp.Content,
		Sources: formatCitations(kept),
	}, nil
}

// buildSystemBlock concatenates the tenant's system prompt with the fixed
// grounding instructions.
func buildSystemBlock(systemPrompt string) string {
	if systemPrompt == "" {
		return groundingInstructions
	}
	return systemPrompt + "\n\n" + groundingInstructions
}

// buildUserBlock assembles the labeled context passages and the verbatim
// question into the user message.
func buildUserBlock(docs []rag.Document, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	if len(docs) == 0 {
		sb.WriteString("(no relevant passages found)\n")
	}
	for i, doc := range docs {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, truncate(doc.Content, excerptLimit))
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
