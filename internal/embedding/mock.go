package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// yields the same unit-length vector, and different texts almost always differ.
type MockEmbedder struct {
	dims int
}

// NewMockEmbedder returns a deterministic embedder of the given dimension.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{dims: dims}
}

// Embed derives a normalized vector from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	emb := make([]float32, e.dims)
	var sum float64
	for i := range emb {
		v := math.Sin(float64(seed%100003)*float64(i+1)*0.001 + float64(seed%31)*0.1)
		emb[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := float32(1.0 / math.Sqrt(sum))
		for i := range emb {
			emb[i] *= norm
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dims }

// DetectDimension returns the fixed dimension.
func (e *MockEmbedder) DetectDimension(ctx context.Context) (int, error) { return e.dims, nil }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }
