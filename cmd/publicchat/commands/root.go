// Package commands defines all Cobra CLI commands for the publicchat binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/maheshLEO4/public-chat-go/internal/audit"
	"github.com/maheshLEO4/public-chat-go/internal/config"
	"github.com/maheshLEO4/public-chat-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "publicchat",
		Short: "Public chat runtime for builder-authored chatbots",
		Long: `publicchat serves end-user conversations for chatbots created in the
builder application. Each bot answers from its own knowledge base: questions
are embedded, matched against the bot's vector collection, and answered by an
LLM grounded on the retrieved passages.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.publicchat/config.yaml).
See 'publicchat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.publicchat/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewIngestCmd(),
		NewKBCmd(),
		NewVersionCmd(),
	)

	return root
}
