// Package registry resolves bot configurations from the shared builder
// database. The builder application writes bot documents; this service only
// reads them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	databaseName       = "chatbot_builder"
	chatbotsCollection = "chatbots"

	// DefaultTemperature applies when a bot document has no temperature set.
	DefaultTemperature float32 = 0.7

	// DefaultWelcomeMessage applies when a bot document has no welcome message.
	DefaultWelcomeMessage = "Hello! I'm here to help answer your questions based on my knowledge base. What would you like to know?"
)

// BotConfig is one tenant's chatbot document.
type BotConfig struct {
	BotID          string   `bson:"bot_id" json:"bot_id"`
	UserID         string   `bson:"user_id" json:"user_id"`
	Name           string   `bson:"name" json:"name"`
	Description    string   `bson:"description,omitempty" json:"description,omitempty"`
	WelcomeMessage string   `bson:"welcome_message,omitempty" json:"welcome_message,omitempty"`
	SystemPrompt   string   `bson:"system_prompt,omitempty" json:"-"`
	Temperature    *float32 `bson:"temperature,omitempty" json:"-"`
	// IsActive is a pointer so an absent field reads as nil. Bots created
	// before the flag existed have no field and are treated as active; only
	// an explicit false disables a bot.
	IsActive *bool `bson:"is_active,omitempty" json:"-"`
}

// Active reports whether the bot accepts queries.
func (b *BotConfig) Active() bool {
	return b.IsActive == nil || *b.IsActive
}

// EffectiveTemperature returns the bot's temperature or the default.
func (b *BotConfig) EffectiveTemperature() float32 {
	if b.Temperature == nil {
		return DefaultTemperature
	}
	return *b.Temperature
}

// EffectiveWelcome returns the bot's welcome message or the default.
func (b *BotConfig) EffectiveWelcome() string {
	if b.WelcomeMessage == "" {
		return DefaultWelcomeMessage
	}
	return b.WelcomeMessage
}

// Registry looks up bot configurations.
type Registry struct {
	chatbots *mongo.Collection
}

// New wraps an existing Mongo client.
func New(client *mongo.Client) *Registry {
	return &Registry{chatbots: client.Database(databaseName).Collection(chatbotsCollection)}
}

// Connect dials Mongo and returns a connected client. The caller owns the
// client and is responsible for disconnecting it on shutdown.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("registry: MONGODB_URI is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("registry: failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("registry: MongoDB ping failed: %w", err)
	}
	return client, nil
}

// GetBotConfig fetches one bot by its public identifier. Returns (nil, nil)
// when no such bot exists.
func (r *Registry) GetBotConfig(ctx context.Context, botID string) (*BotConfig, error) {
	var cfg BotConfig
	err := r.chatbots.FindOne(ctx, bson.M{"bot_id": botID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: lookup bot %q: %w", botID, err)
	}
	return &cfg, nil
}
