// Package embedding provides pluggable text embedding providers with a
// classified error taxonomy driving retry-vs-abort decisions upstream.
package embedding

import (
	"context"
	"fmt"
	"time"
)

// Embedder produces fixed-dimension vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the configured or previously detected dimension;
	// zero when unknown.
	Dimensions() int
	// DetectDimension probes the provider with one cheap call and returns the
	// actual vector dimension, caching it for Dimensions.
	DetectDimension(ctx context.Context) (int, error)
	Close() error
}

// Provider names accepted by NewProvider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// DefaultTimeout bounds a single embedding HTTP call.
const DefaultTimeout = 30 * time.Second

// Settings configures an embedding provider.
type Settings struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// NewProvider creates an embedder from settings. An empty provider name
// selects the local Ollama provider.
func NewProvider(s Settings) (Embedder, error) {
	switch s.Provider {
	case "", ProviderOllama:
		return NewOllamaProvider(s), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(s)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", s.Provider)
	}
}
