// Package server implements the HTTP server that exposes the public chat
// surface: one endpoint per chat turn, a public bot metadata endpoint, and
// the operational endpoints (health, readiness, metrics).
// The server is started by the `publicchat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maheshLEO4/public-chat-go/internal/logging"
	"github.com/maheshLEO4/public-chat-go/internal/query"
	"github.com/maheshLEO4/public-chat-go/internal/store"
)

// chatTimeout bounds one full chat turn at the HTTP layer. Slightly above
// the pipeline's own timeout so pipeline classification wins.
const chatTimeout = 35 * time.Second

// botNotFoundMessage is shown when the requested bot does not exist.
const botNotFoundMessage = "The chatbot you're trying to access doesn't exist or has been removed."

// botInactiveMessage is shown when a tenant has disabled their bot.
const botInactiveMessage = "This chatbot is currently inactive. The creator may be updating it or has temporarily disabled it."

// New constructs a Server from the provided pipeline, registry, and config.
func New(processor answerer, bots botResolver, sessions store.SessionStore, cfg *Config) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("server: processor must not be nil")
	}
	if bots == nil {
		return nil, fmt.Errorf("server: bot registry must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIKey == "" {
		log.Warn("API key not configured, authentication disabled")
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		registerer = cfg.Registry
		gatherer = cfg.Registry
	}

	s := &Server{
		answerer: processor,
		bots:     bots,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registerer),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat",
		authMiddleware(cfg.APIKey, rl.middleware(http.HandlerFunc(s.handleChat))))
	mux.Handle("GET /api/bots/{bot_id}", rl.middleware(http.HandlerFunc(s.handleBot)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler, for use in tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat. It resolves the bot, runs the query
// pipeline, logs the turn, and returns either the answer with citations or a
// fixed user-safe error message. Pipeline failures still return 200 with an
// error body so the chat surface can render them in the conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BotID == "" {
		http.Error(w, "bot_id is required", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	bot, err := s.bots.GetBotConfig(ctx, req.BotID)
	if err != nil {
		log.Error("bot lookup failed", slog.String("bot_id", req.BotID), slog.Any("error", err))
		s.finishChat(w, http.StatusServiceUnavailable, "error", start,
			chatResponse{Error: query.UserMessageFor(err)})
		return
	}
	if bot == nil {
		s.finishChat(w, http.StatusNotFound, "not_found", start,
			chatResponse{Error: botNotFoundMessage})
		return
	}
	if !bot.Active() {
		s.finishChat(w, http.StatusForbidden, "inactive", start,
			chatResponse{Error: botInactiveMessage})
		return
	}

	result, err := s.answerer.Answer(ctx, &query.Request{
		OwnerID:      bot.UserID,
		BotID:        bot.BotID,
		Query:        req.Message,
		SystemPrompt: bot.SystemPrompt,
		Temperature:  bot.EffectiveTemperature(),
	})
	if err != nil {
		qe := query.Classify(err)
		log.Error("chat pipeline failed",
			slog.String("bot_id", req.BotID),
			slog.String("kind", string(qe.Kind)),
			slog.Any("error", err),
		)
		// The error message is still part of the conversation.
		s.logSession(req.BotID, req.Message, qe.UserMessage())
		s.finishChat(w, http.StatusOK, string(qe.Kind), start, chatResponse{Error: qe.UserMessage()})
		return
	}

	s.logSession(req.BotID, req.Message, result.Answer)
	s.finishChat(w, http.StatusOK, "ok", start, chatResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
	})
}

// finishChat writes the JSON response and records chat metrics.
func (s *Server) finishChat(w http.ResponseWriter, status int, outcome string, start time.Time, resp chatResponse) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("chat encode error", slog.Any("error", err))
	}
}

// logSession persists the turn in the background so transcript writes never
// delay or fail the chat response.
func (s *Server) logSession(botID, userMessage, botResponse string) {
	if s.sessions == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.sessions.Log(ctx, botID, userMessage, botResponse); err != nil {
			s.log.Warn("failed to log chat session",
				slog.String("bot_id", botID),
				slog.Any("error", err),
			)
		}
	}()
}

// handleBot handles GET /api/bots/{bot_id}: the public metadata the chat
// surface needs to render a bot's landing state.
func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	botID := r.PathValue("bot_id")
	bot, err := s.bots.GetBotConfig(r.Context(), botID)
	if err != nil {
		log.Error("bot lookup failed", slog.String("bot_id", botID), slog.Any("error", err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if bot == nil {
		http.Error(w, botNotFoundMessage, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(botResponse{
		BotID:          bot.BotID,
		Name:           bot.Name,
		Description:    bot.Description,
		WelcomeMessage: bot.EffectiveWelcome(),
		Active:         bot.Active(),
	}); err != nil {
		log.Error("bot encode error", slog.Any("error", err))
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
