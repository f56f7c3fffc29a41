package embedder

import (
	"context"
	"fmt"
	"math"

	"github.com/maheshLEO4/public-chat-go/internal/rag"
)

// NormalizedEmbedder wraps another embedder and rescales every returned
// vector to unit L2 norm, so that cosine similarity and dot product coincide
// in the vector store. It also verifies the vector dimension, since a
// dimension mismatch against the store's configured size is a configuration
// error that must fail loudly rather than degrade search quality silently.
type NormalizedEmbedder struct {
	// inner produces the raw embeddings.
	inner rag.Embedder
	// dim is the required vector dimension (0 disables the check).
	dim int
}

// Normalized wraps inner so that every returned vector has unit L2 norm and
// exactly dim dimensions.
func Normalized(inner rag.Embedder, dim int) *NormalizedEmbedder {
	return &NormalizedEmbedder{inner: inner, dim: dim}
}

// Embed delegates to the wrapped embedder, then checks dimensions and
// rescales each vector in place.
func (n *NormalizedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := n.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	for i, v := range vecs {
		if n.dim > 0 && len(v) != n.dim {
			return nil, fmt.Errorf("embedder: vector %d has %d dimensions, configuration requires %d", i, len(v), n.dim)
		}
		normalize(v)
	}
	return vecs, nil
}

// normalize rescales v to unit L2 norm in place. The zero vector is left
// untouched; there is no meaningful direction to preserve.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
