package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maheshLEO4/public-chat-go/internal/embedder"
	"github.com/maheshLEO4/public-chat-go/internal/logging"
	"github.com/maheshLEO4/public-chat-go/internal/rag"
	"github.com/maheshLEO4/public-chat-go/internal/tenant"
)

// defaultSearchTopK is the result count for the standalone search utility.
// Deliberately lower than the chat pipeline's top-k: search output is read
// directly by a human, not packed into a prompt.
const defaultSearchTopK = 4

// NewSearchCmd constructs the `publicchat search` command, a similarity
// search utility that skips the LLM entirely.
func NewSearchCmd() *cobra.Command {
	var ownerID string
	var botID string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Similarity-search a bot's knowledge base without the LLM",
		Long: `Embed the query and print the most similar stored passages with their
scores. Useful for checking what the chat pipeline would retrieve, and for
debugging ingestion quality.

An empty or missing knowledge base prints no results; it is not an error.

Examples:
  publicchat search --owner u7 --bot b42 "refund policy"
  publicchat search --owner u7 --bot b42 -k 8 "opening hours"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if ownerID == "" || botID == "" {
				return fmt.Errorf("search: --owner and --bot are required")
			}

			emb, err := embedder.Shared()
			if err != nil {
				return fmt.Errorf("search: failed to initialise embedder: %w", err)
			}

			vectorStore, err := openQdrant()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer vectorStore.Close()

			retriever, err := rag.NewRetriever(emb, vectorStore, getEnvInt("SEARCH_TOP_K", defaultSearchTopK))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			collection := tenant.CollectionName(ownerID, botID)
			docs, err := retriever.Retrieve(ctx, collection, args[0], topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(docs) == 0 {
				fmt.Println("No matching passages found.")
				return nil
			}

			log.Debug("search complete", "collection", collection, "results", len(docs))
			for i, doc := range docs {
				page := "N/A"
				if doc.Page != nil {
					page = fmt.Sprintf("%d", *doc.Page+1)
				}
				fmt.Printf("[%d] score=%.4f source=%s page=%s\n%s\n\n", i+1, doc.Score, doc.Source, page, doc.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ownerID, "owner", "o", "", "Owner ID of the bot (required)")
	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Bot ID to search (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default: SEARCH_TOP_K or 4)")

	return cmd
}
