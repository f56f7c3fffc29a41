package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// MongoPinger probes the configuration database with a primary ping.
type MongoPinger struct {
	client *mongo.Client
}

// NewMongoPinger constructs a MongoPinger for the given Mongo client.
func NewMongoPinger(client *mongo.Client) *MongoPinger {
	return &MongoPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *MongoPinger) Name() string { return "mongodb" }

// Ping issues a ping against the primary.
func (p *MongoPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding provider by embedding a single short
// string. Cheap for local providers; for hosted ones it costs one minimal
// request.
type EmbedderPinger struct {
	embed func(ctx context.Context, texts []string) ([][]float32, error)
	name  string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embed function
// and provider name.
func NewEmbedderPinger(embed func(ctx context.Context, texts []string) ([][]float32, error), name string) *EmbedderPinger {
	return &EmbedderPinger{embed: embed, name: name}
}

// Name returns the provider label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds one short probe string.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vectors, err := p.embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}
