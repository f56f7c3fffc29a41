package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maheshLEO4/public-chat-go/internal/logging"
)

// NewKBCmd constructs the `publicchat kb` command group for inspecting and
// mutating a bot's knowledge base.
func NewKBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect and manage a bot's knowledge base",
		Long: `Operate on one bot's vector collection: show its stats, remove a single
source, or clear it entirely.

All subcommands take --owner and --bot so the collection can be resolved
without the registry.`,
	}

	cmd.AddCommand(
		newKBStatsCmd(),
		newKBRemoveCmd(),
		newKBClearCmd(),
	)

	return cmd
}

// newKBStatsCmd constructs `publicchat kb stats`.
func newKBStatsCmd() *cobra.Command {
	var ownerID string
	var botID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show point count and status for a bot's knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if ownerID == "" || botID == "" {
				return fmt.Errorf("kb stats: --owner and --bot are required")
			}

			manager, vectorStore, err := buildKB(log)
			if err != nil {
				return fmt.Errorf("kb stats: %w", err)
			}
			defer vectorStore.Close()

			stats, err := manager.Stats(ctx, ownerID, botID)
			if err != nil {
				return fmt.Errorf("kb stats: %w", err)
			}
			if stats == nil {
				fmt.Println("Knowledge base does not exist. Run 'publicchat ingest' to create it.")
				return nil
			}

			fmt.Printf("points: %d\nstatus: %s\n", stats.PointCount, stats.Status)
			return nil
		},
	}

	addTenantFlags(cmd, &ownerID, &botID)
	return cmd
}

// newKBRemoveCmd constructs `publicchat kb remove`.
func newKBRemoveCmd() *cobra.Command {
	var ownerID string
	var botID string
	var source string
	var filename string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove one ingested source from a bot's knowledge base",
		Long: `Delete every chunk that came from one source. --source matches the stored
source field exactly (the URL or path given at ingestion); --filename matches
uploads by their base name. Removing a source that was never ingested is
not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if ownerID == "" || botID == "" {
				return fmt.Errorf("kb remove: --owner and --bot are required")
			}
			if (source == "") == (filename == "") {
				return fmt.Errorf("kb remove: exactly one of --source or --filename is required")
			}

			manager, vectorStore, err := buildKB(log)
			if err != nil {
				return fmt.Errorf("kb remove: %w", err)
			}
			defer vectorStore.Close()

			if source != "" {
				err = manager.RemoveBySource(ctx, ownerID, botID, source)
			} else {
				err = manager.RemoveByFilename(ctx, ownerID, botID, filename)
			}
			if err != nil {
				return fmt.Errorf("kb remove: %w", err)
			}

			fmt.Println("Removed.")
			return nil
		},
	}

	addTenantFlags(cmd, &ownerID, &botID)
	cmd.Flags().StringVarP(&source, "source", "s", "", "Exact source identifier to remove")
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Uploaded file name to remove")
	return cmd
}

// newKBClearCmd constructs `publicchat kb clear`.
func newKBClearCmd() *cobra.Command {
	var ownerID string
	var botID string
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a bot's entire knowledge base",
		Long: `Drop the bot's vector collection and every stored chunk. The bot keeps
working but answers "knowledge base not ready" until something is ingested
again. Clearing an absent knowledge base is not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if ownerID == "" || botID == "" {
				return fmt.Errorf("kb clear: --owner and --bot are required")
			}
			if !yes {
				return fmt.Errorf("kb clear: pass --yes to confirm deleting the entire knowledge base")
			}

			manager, vectorStore, err := buildKB(log)
			if err != nil {
				return fmt.Errorf("kb clear: %w", err)
			}
			defer vectorStore.Close()

			if err := manager.Clear(ctx, ownerID, botID); err != nil {
				return fmt.Errorf("kb clear: %w", err)
			}

			fmt.Println("Knowledge base cleared.")
			return nil
		},
	}

	addTenantFlags(cmd, &ownerID, &botID)
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// addTenantFlags registers the --owner/--bot pair shared by all kb subcommands.
func addTenantFlags(cmd *cobra.Command, ownerID, botID *string) {
	cmd.Flags().StringVarP(ownerID, "owner", "o", "", "Owner ID of the bot (required)")
	cmd.Flags().StringVarP(botID, "bot", "b", "", "Bot ID (required)")
}
