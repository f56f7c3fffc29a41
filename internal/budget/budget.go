// Package budget provides token budget estimation and passage trimming for the
// query pipeline. Because the pipeline supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3.1 8B)
	// while leaving room for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimatePassages returns the estimated total token count for retrieved
// passages, including a small per-passage overhead for labels and separators.
func EstimatePassages(docs []rag.Document) int {
	total := 0
	for _, d := range docs {
		total += 4
		total += Estimate(d.Content)
		total += Estimate(d.Source)
	}
	return total
}

// TrimPassages drops the lowest-ranked passages until fixedTokens plus the
// passage estimate fits within maxTokens. docs must be ordered best-first,
// which is how the retriever returns them; trimming removes from the tail so
// the most relevant passages survive.
//
// Returns the trimmed slice. If even a single passage exceeds the budget, the
// empty slice is returned; callers decide whether to answer without context.
func TrimPassages(docs []rag.Document, fixedTokens, maxTokens int) []rag.Document {
	for len(docs) > 0 {
		if fixedTokens+EstimatePassages(docs) <= maxTokens {
			break
		}
		docs = docs[:len(docs)-1]
	}
	return docs
}
