// Package ingestion implements the document ingestion pipeline for a bot's
// knowledge base. It reads web pages or local files, chunks the content, and
// hands the chunks to the knowledge-base manager for embedding and storage.
// The pipeline is invoked by the `publicchat ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/maheshLEO4/public-chat-go/internal/kb"
)

// Source describes one document to be ingested: either an http(s) URL or a
// local file path.
type Source struct {
	// Location is the URL or file path of the document.
	Location string
}

// isURL reports whether the source is fetched over HTTP.
func (s Source) isURL() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 100 if zero or out of range.
	ChunkOverlap int

	// HTTPTimeout is the timeout for each page fetch. Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the fetch → chunk → store flow for a bot's documents.
type Pipeline struct {
	manager    *kb.Manager
	cfg        *Config
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(manager *kb.Manager, cfg *Config) (*Pipeline, error) {
	if manager == nil {
		return nil, fmt.Errorf("ingestion: manager must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 100
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "public-chat-go/1.0 (knowledge base ingestion)"
	}

	return &Pipeline{
		manager: manager,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest reads, chunks, and stores all provided sources into the bot's
// knowledge base. Sources are processed sequentially; the first error stops
// the run. Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, ownerID, botID string, sources []Source, progress func(msg string)) error {
	if progress == nil {
		progress = func(string) {}
	}

	for _, src := range sources {
		progress(fmt.Sprintf("reading %s", src.Location))

		content, err := p.read(ctx, src)
		if err != nil {
			return fmt.Errorf("ingestion: read failed for %s: %w", src.Location, err)
		}

		pages := splitPages(content)
		paginated := len(pages) > 1

		var chunks []kb.Chunk
		for pageIdx, pageText := range pages {
			for _, piece := range p.chunk(pageText) {
				c := kb.Chunk{
					Text:   piece,
					Source: src.Location,
				}
				if paginated {
					page := pageIdx
					c.Page = &page
				}
				chunks = append(chunks, c)
			}
		}
		progress(fmt.Sprintf("chunked %s into %d chunks", src.Location, len(chunks)))

		if err := p.manager.AddDocuments(ctx, ownerID, botID, chunks); err != nil {
			return fmt.Errorf("ingestion: store failed for %s: %w", src.Location, err)
		}

		progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), src.Location))
	}

	return nil
}

// read retrieves the raw text content of a source.
func (p *Pipeline) read(ctx context.Context, src Source) (string, error) {
	if src.isURL() {
		return p.fetch(ctx, src.Location)
	}
	data, err := os.ReadFile(src.Location)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), nil
}

// splitPages separates paginated text on form feed characters, the page
// delimiter text extractors such as pdftotext emit. Unpaginated text comes
// back as a single page and its chunks carry no page metadata.
func splitPages(text string) []string {
	if !strings.Contains(text, "\f") {
		return []string{text}
	}
	return strings.Split(text, "\f")
}

// chunk splits text into overlapping chunks of cfg.ChunkSize characters.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}
