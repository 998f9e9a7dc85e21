package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Default Ollama endpoint and model.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "nomic-embed-text"
)

// OllamaProvider embeds text via a local Ollama-compatible HTTP endpoint.
// Ollama has no native batch API, so EmbedBatch issues sequential calls.
type OllamaProvider struct {
	client  *http.Client
	baseURL string
	model   string
	dims    int
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaProvider creates a local HTTP embedding provider.
func NewOllamaProvider(s Settings) *OllamaProvider {
	if s.BaseURL == "" {
		s.BaseURL = DefaultOllamaBaseURL
	}
	if s.Model == "" {
		s.Model = DefaultOllamaModel
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	return &OllamaProvider{
		client:  &http.Client{Timeout: s.Timeout},
		baseURL: s.BaseURL,
		model:   s.Model,
		dims:    s.Dimensions,
	}
}

// Embed generates one embedding.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			Provider:   ProviderOllama,
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
		}
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Malformed: true, Message: "decode response", Err: err}
	}
	if len(out.Embedding) == 0 {
		return nil, &ProviderError{Provider: ProviderOllama, Malformed: true, Message: "empty embedding in response"}
	}

	emb := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		emb[i] = float32(v)
	}
	if p.dims == 0 {
		p.dims = len(emb)
	}
	return emb, nil
}

// EmbedBatch embeds each text with a sequential call.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the configured or detected dimension; zero when unknown.
func (p *OllamaProvider) Dimensions() int { return p.dims }

// DetectDimension probes the model with one short call.
func (p *OllamaProvider) DetectDimension(ctx context.Context) (int, error) {
	emb, err := p.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}
	p.dims = len(emb)
	return p.dims, nil
}

// Close releases resources; the HTTP client needs none.
func (p *OllamaProvider) Close() error { return nil }
