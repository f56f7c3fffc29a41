package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maheshLEO4/public-chat-go/internal/embedder"
	"github.com/maheshLEO4/public-chat-go/internal/logging"
	"github.com/maheshLEO4/public-chat-go/internal/provider"
	"github.com/maheshLEO4/public-chat-go/internal/query"
	"github.com/maheshLEO4/public-chat-go/internal/registry"
	"github.com/maheshLEO4/public-chat-go/internal/server"
	"github.com/maheshLEO4/public-chat-go/internal/store"
	"github.com/maheshLEO4/public-chat-go/internal/tracing"
)

// NewServeCmd constructs the `publicchat serve` command, which starts the
// public chat HTTP server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the public chat HTTP server",
		Long: `Start the publicchat HTTP server.

The server exposes the public chat API: POST /api/chat answers end-user
questions from the bot's knowledge base, GET /api/bots/{bot_id} returns the
public page metadata, and /api/health, /api/ready, /metrics serve operations.

Required environment:
  MONGODB_URI      Bot registry connection string
  QDRANT_HOST      Qdrant server hostname (default: localhost)
  GROQ_API_KEY     Or the key for whichever MODEL_PROVIDER is selected

Examples:
  publicchat serve
  publicchat serve --port 9090
  MODEL_PROVIDER=ollama publicchat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "groq")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.Shared()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			vectorStore, err := openQdrant()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer vectorStore.Close()
			log.Info("qdrant store ready",
				slog.String("host", getEnvOrDefault("QDRANT_HOST", "localhost")),
				slog.Int("port", getEnvInt("QDRANT_PORT", 6334)),
			)

			mongoClient, err := registry.Connect(ctx, os.Getenv("MONGODB_URI"))
			if err != nil {
				return fmt.Errorf("serve: failed to connect to bot registry: %w", err)
			}
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			bots := registry.New(mongoClient)
			log.Info("bot registry connected")

			sessions, closeSessions := buildSessions(ctx, mongoClient, log)
			defer closeSessions()

			processor, err := query.NewProcessor(&query.Config{
				Store:     vectorStore,
				Embedder:  emb,
				ChatModel: chatModel,
				TopK:      getEnvInt("RAG_TOP_K", query.DefaultTopK),
			}, log)
			if err != nil {
				return fmt.Errorf("serve: failed to create query processor: %w", err)
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(vectorStore.Client()),
				server.NewMongoPinger(mongoClient),
				server.NewEmbedderPinger(emb.Embed, "embedder"),
			}

			srv, err := server.New(processor, bots, sessions, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				APIKey:    os.Getenv("PUBCHAT_API_KEY"),
				RateLimit: getEnvFloat("PUBCHAT_RATE_LIMIT", 0),
				RateBurst: getEnvInt("PUBCHAT_RATE_BURST", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("PUBCHAT_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("PUBCHAT_PORT", 8080), "TCP port to listen on")

	return cmd
}

// buildSessions selects the session store for answered turns.
// PUBCHAT_SESSIONS_DB=disabled turns logging off, a path selects the SQLite
// store for single-host deploys, and the default shares the registry's Mongo
// client. A store failure disables logging rather than blocking startup.
func buildSessions(ctx context.Context, client *mongo.Client, log *slog.Logger) (store.SessionStore, func()) {
	dbPath := os.Getenv("PUBCHAT_SESSIONS_DB")
	switch dbPath {
	case "disabled":
		log.Info("sessions: disabled via PUBCHAT_SESSIONS_DB=disabled")
		return nil, func() {}
	case "":
		log.Info("sessions: logging to mongo chat_sessions")
		return store.NewMongo(client), func() {}
	default:
		ss, err := store.OpenSQLite(dbPath)
		if err != nil {
			log.Warn("sessions: failed to open sqlite store, disabling", slog.Any("error", err))
			return nil, func() {}
		}
		log.Info("sessions: sqlite store opened", slog.String("path", dbPath))
		return ss, func() { _ = ss.Close(ctx) }
	}
}
