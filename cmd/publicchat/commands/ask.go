package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maheshLEO4/public-chat-go/internal/embedder"
	"github.com/maheshLEO4/public-chat-go/internal/logging"
	"github.com/maheshLEO4/public-chat-go/internal/provider"
	"github.com/maheshLEO4/public-chat-go/internal/query"
	"github.com/maheshLEO4/public-chat-go/internal/registry"
	"github.com/maheshLEO4/public-chat-go/internal/tracing"
)

// NewAskCmd constructs the `publicchat ask` command, which answers a single
// question against one bot's knowledge base and prints the result.
func NewAskCmd() *cobra.Command {
	var ownerID string
	var botID string
	var systemPrompt string
	var temperature float32

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a bot a single question from the command line",
		Long: `Run one question through the full retrieval pipeline and print the answer
with its source citations.

With only --bot, the bot's owner, system prompt, and temperature are resolved
from the registry (requires MONGODB_URI). With --owner the registry is
skipped and --system-prompt / --temperature apply directly, which is useful
against a bot that only exists in the vector store.

Examples:
  publicchat ask --bot b42 "what is the refund policy?"
  publicchat ask --owner u7 --bot b42 --system-prompt "You are terse." "opening hours?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if botID == "" {
				return fmt.Errorf("ask: --bot is required")
			}

			// Trace the one-shot completion too when Langfuse is configured.
			flush := tracing.Install()
			defer flush()

			req := &query.Request{
				OwnerID:      ownerID,
				BotID:        botID,
				Query:        args[0],
				SystemPrompt: systemPrompt,
				Temperature:  temperature,
			}

			if ownerID == "" {
				client, err := registry.Connect(ctx, os.Getenv("MONGODB_URI"))
				if err != nil {
					return fmt.Errorf("ask: --owner not given and registry unavailable: %w", err)
				}
				defer func() { _ = client.Disconnect(ctx) }()

				bot, err := registry.New(client).GetBotConfig(ctx, botID)
				if err != nil {
					return fmt.Errorf("ask: registry lookup failed: %w", err)
				}
				if bot == nil {
					return fmt.Errorf("ask: bot %q not found in registry", botID)
				}
				req.OwnerID = bot.UserID
				if systemPrompt == "" {
					req.SystemPrompt = bot.SystemPrompt
				}
				if !cmd.Flags().Changed("temperature") {
					req.Temperature = bot.EffectiveTemperature()
				}
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			emb, err := embedder.Shared()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			vectorStore, err := openQdrant()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer vectorStore.Close()

			processor, err := query.NewProcessor(&query.Config{
				Store:     vectorStore,
				Embedder:  emb,
				ChatModel: chatModel,
				TopK:      getEnvInt("RAG_TOP_K", query.DefaultTopK),
			}, log)
			if err != nil {
				return fmt.Errorf("ask: failed to create query processor: %w", err)
			}

			result, err := processor.Answer(ctx, req)
			if err != nil {
				// Print the user-safe message, keep the raw error for the exit path.
				fmt.Fprintln(os.Stderr, query.UserMessageFor(err))
				return err
			}

			fmt.Println(result.Answer)
			if len(result.Sources) > 0 {
				fmt.Println("\nSources:")
				for i, src := range result.Sources {
					fmt.Printf("  [%d] %s (%s, page %s)\n", i+1, src.Document, src.Type, src.Page)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ownerID, "owner", "o", "", "Owner ID of the bot (skips the registry lookup)")
	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Bot ID to ask (required)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt override")
	cmd.Flags().Float32VarP(&temperature, "temperature", "t", registry.DefaultTemperature, "Sampling temperature")

	return cmd
}
