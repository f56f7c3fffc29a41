package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maheshLEO4/public-chat-go/internal/ingestion"
	"github.com/maheshLEO4/public-chat-go/internal/logging"
)

// NewIngestCmd constructs the `publicchat ingest` command, which loads
// documents into one bot's knowledge base.
func NewIngestCmd() *cobra.Command {
	var ownerID string
	var botID string
	var sources []string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into a bot's knowledge base",
		Long: `Fetch or read each source, split it into overlapping chunks, embed the
chunks, and store them in the bot's vector collection. The collection is
created on first ingestion.

Sources may be HTTP(S) URLs or local file paths. The first failing source
stops the run; earlier sources stay ingested.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  publicchat ingest --owner u7 --bot b42 --source https://example.com/faq
  publicchat ingest --owner u7 --bot b42 --source ./handbook.txt --source ./pricing.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if ownerID == "" || botID == "" {
				return fmt.Errorf("ingest: --owner and --bot are required")
			}
			if len(sources) == 0 {
				return fmt.Errorf("ingest: at least one --source is required")
			}

			manager, vectorStore, err := buildKB(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer vectorStore.Close()

			pipeline, err := ingestion.NewPipeline(manager, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			ingestSources := make([]ingestion.Source, 0, len(sources))
			for _, s := range sources {
				ingestSources = append(ingestSources, ingestion.Source{Location: s})
			}

			log.Info("starting ingestion", "owner_id", ownerID, "bot_id", botID, "sources", len(ingestSources))

			if err := pipeline.Ingest(ctx, ownerID, botID, ingestSources, func(msg string) {
				log.Info(msg)
			}); err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", "sources", len(ingestSources))
			return nil
		},
	}

	cmd.Flags().StringVarP(&ownerID, "owner", "o", "", "Owner ID of the bot (required)")
	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Bot ID to ingest into (required)")
	cmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "URL or file path to ingest (repeatable)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk size in characters (default: 1000)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Chunk overlap in characters (default: 100)")

	return cmd
}
