package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	databaseName       = "chatbot_builder"
	sessionsCollection = "chat_sessions"
)

// MongoStore writes transcripts to the shared builder database, alongside the
// bot configurations the builder app maintains.
type MongoStore struct {
	sessions *mongo.Collection
}

// NewMongo wraps an existing Mongo client. The client is shared with the
// registry; the caller owns its lifecycle.
func NewMongo(client *mongo.Client) *MongoStore {
	return &MongoStore{sessions: client.Database(databaseName).Collection(sessionsCollection)}
}

// Log persists a single answered turn.
func (s *MongoStore) Log(ctx context.Context, botID, userMessage, botResponse string) error {
	_, err := s.sessions.InsertOne(ctx, Session{
		BotID:       botID,
		UserMessage: userMessage,
		BotResponse: botResponse,
		Timestamp:   time.Now().UTC(),
		Source:      sessionSource,
	})
	if err != nil {
		return fmt.Errorf("store: log session: %w", err)
	}
	return nil
}

// Recent returns the most recent n turns for the bot, oldest-first.
func (s *MongoStore) Recent(ctx context.Context, botID string, n int) ([]Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(n))
	cur, err := s.sessions.Find(ctx, bson.M{"bot_id": botID}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: recent sessions: %w", err)
	}
	defer cur.Close(ctx)

	var sessions []Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("store: decode sessions: %w", err)
	}
	// Reverse newest-first into oldest-first for display.
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions, nil
}

// Close is a no-op; the underlying client is shared and closed by its owner.
func (s *MongoStore) Close(context.Context) error { return nil }
