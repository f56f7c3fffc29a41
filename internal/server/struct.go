package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maheshLEO4/public-chat-go/internal/query"
	"github.com/maheshLEO4/public-chat-go/internal/registry"
	"github.com/maheshLEO4/public-chat-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Must
	// cover a full completion round-trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /api/chat. If empty,
	// authentication is disabled (development mode).
	APIKey string
	// Registry is the Prometheus registry metrics are registered against.
	// If nil, prometheus.DefaultRegisterer/DefaultGatherer are used.
	Registry *prometheus.Registry
}

// answerer is the interface handleChat calls to run the query pipeline.
// *query.Processor satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, req *query.Request) (*query.Result, error)
}

// botResolver is the interface used to look up bot configurations.
// *registry.Registry satisfies it; tests inject a fake.
type botResolver interface {
	GetBotConfig(ctx context.Context, botID string) (*registry.BotConfig, error)
}

// Server is the HTTP server for the public chat surface.
type Server struct {
	// answerer runs the query pipeline for POST /api/chat.
	answerer answerer
	// bots resolves bot configurations by public identifier.
	bots botResolver
	// sessions logs answered turns. May be nil (logging disabled).
	sessions store.SessionStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// BotID identifies which tenant's chatbot answers the question.
	BotID string `json:"bot_id"`
	// Message is the end user's question.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// Answer is the generated answer text. Empty when Error is set.
	Answer string `json:"answer,omitempty"`
	// Sources lists the passages the answer was grounded on.
	Sources []query.Citation `json:"sources,omitempty"`
	// Error is the fixed user-safe message when the pipeline failed.
	Error string `json:"error,omitempty"`
}

// botResponse is the JSON response for GET /api/bots/{bot_id}: the public
// subset of a bot's configuration. System prompt and temperature are never
// exposed.
type botResponse struct {
	BotID          string `json:"bot_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	WelcomeMessage string `json:"welcome_message"`
	Active         bool   `json:"active"`
}
