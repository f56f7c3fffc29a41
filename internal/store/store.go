// Package store persists chat transcripts. Each answered turn is logged with
// its bot identifier so tenants can review conversations in the builder app.
// The primary backend is the shared MongoDB; a SQLite backend covers local
// development without a MongoDB instance.
package store

import (
	"context"
	"time"
)

// sessionSource tags transcript entries written by the public chat surface,
// distinguishing them from builder-app test conversations.
const sessionSource = "public_chat"

// Session is one logged chat turn.
type Session struct {
	BotID       string    `bson:"bot_id"`
	UserMessage string    `bson:"user_message"`
	BotResponse string    `bson:"bot_response"`
	Timestamp   time.Time `bson:"timestamp"`
	Source      string    `bson:"source"`
}

// SessionStore persists chat turns. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	// Log persists a single answered turn.
	Log(ctx context.Context, botID, userMessage, botResponse string) error
	// Recent returns the most recent n turns for the bot, oldest-first.
	Recent(ctx context.Context, botID string, n int) ([]Session, error)
	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
