package query

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// excerptLimit bounds passage excerpts in citations and in the assembled
// prompt. Content over the limit is cut and marked.
const excerptLimit = 200

// pageUnknown is the display sentinel for passages with no page metadata
// (web pages, plain text uploads).
const pageUnknown = "N/A"

// SourceType distinguishes web-sourced passages from document-sourced ones.
type SourceType string

const (
	// SourceWeb marks a passage ingested from a URL.
	SourceWeb SourceType = "web"
	// SourcePDF marks a passage ingested from an uploaded document.
	SourcePDF SourceType = "pdf"
)

// Citation describes one retrieved passage for display alongside an answer.
type Citation struct {
	// Document is the display name: the full URL for web sources, the final
	// path segment for documents.
	Document string `json:"document"`
	// Page is the 1-indexed page number, or "N/A" when absent.
	Page string `json:"page"`
	// Excerpt is the passage content, truncated to excerptLimit characters.
	Excerpt string `json:"excerpt"`
	// Type is "web" or "pdf".
	Type SourceType `json:"type"`
}

// formatCitations converts retrieved passages into display citations,
// preserving retrieval order.
func formatCitations(docs []rag.Document) []Citation {
	citations := make([]Citation, 0, len(docs))
	for _, doc := range docs {
		citations = append(citations, Citation{
			Document: displayName(doc.Source),
			Page:     displayPage(doc.Page),
			Excerpt:  truncate(doc.Content, excerptLimit),
			Type:     sourceType(doc.Source),
		})
	}
	return citations
}

// sourceType classifies a source field by scheme.
func sourceType(source string) SourceType {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return SourceWeb
	}
	return SourcePDF
}

// displayName returns the citation name for a source: URLs are shown whole,
// file paths are reduced to their final segment.
func displayName(source string) string {
	if source == "" {
		return "Unknown"
	}
	if sourceType(source) == SourceWeb {
		return source
	}
	return filepath.Base(source)
}

// displayPage converts a stored 0-indexed page to its 1-indexed display form.
func displayPage(page *int) string {
	if page == nil {
		return pageUnknown
	}
	return fmt.Sprintf("%d", *page+1)
}

// truncate cuts s to at most limit characters, appending a marker when
// anything was removed. The limit counts runes, not bytes, so multi-byte
// content keeps its full character allowance and is never cut mid-rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
