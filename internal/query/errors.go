package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure into one of a small set of user-facing
// categories. Raw backend error text is logged for operators but never shown
// to end users; each kind maps to a fixed message.
type Kind string

const (
	// KindKnowledgeBaseNotReady means the bot's collection does not exist yet.
	// Recoverable by the tenant ingesting documents.
	KindKnowledgeBaseNotReady Kind = "knowledge_base_not_ready"
	// KindBackendUnavailable means the vector store or configuration store
	// could not be reached. Recoverable by retry.
	KindBackendUnavailable Kind = "backend_unavailable"
	// KindTimeout means the completion or search call exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindRateLimited means the LLM host rejected the request with a rate limit.
	KindRateLimited Kind = "rate_limited"
	// KindAuthConfig means the LLM host rejected the request's credentials.
	KindAuthConfig Kind = "auth_config"
	// KindProcessing is the generic catch-all for completion failures.
	KindProcessing Kind = "processing_error"
)

// userMessages maps each kind to its fixed user-safe message.
var userMessages = map[Kind]string{
	KindKnowledgeBaseNotReady: "Knowledge base not ready. Please add documents first.",
	KindBackendUnavailable:    "I'm having trouble accessing my knowledge base right now. Please try again in a moment.",
	KindTimeout:               "Request timed out. Please try a shorter question.",
	KindRateLimited:           "Rate limit exceeded. Please wait a moment and try again.",
	KindAuthConfig:            "API configuration issue. Please check your settings.",
	KindProcessing:            "Sorry, I encountered an issue processing your question. Please try again.",
}

// Error is a classified pipeline failure. The cause carries the full backend
// detail for logging; UserMessage returns the fixed string safe to render.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("query: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("query: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// UserMessage returns the fixed user-safe message for this error's kind.
func (e *Error) UserMessage() string {
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[KindProcessing]
}

// newError wraps cause with an explicit kind.
func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Classify inspects a completion or search failure and assigns a kind by
// looking for timeout, rate-limit, and credential indicators in the error
// text. Anything unrecognized is a generic processing error.
func Classify(err error) *Error {
	var qe *Error
	if errors.As(err, &qe) {
		return qe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return newError(KindTimeout, err)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return newError(KindRateLimited, err)
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401"):
		return newError(KindAuthConfig, err)
	default:
		return newError(KindProcessing, err)
	}
}

// UserMessageFor resolves any error to a user-safe string. Classified errors
// keep their kind; everything else is classified first.
func UserMessageFor(err error) string {
	return Classify(err).UserMessage()
}
