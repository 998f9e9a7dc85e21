package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Default OpenAI-compatible endpoint and model.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIProvider embeds text via an OpenAI-compatible API with native batch
// support and bearer-token auth. BaseURL can point at any compatible server.
type OpenAIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	dims    int
}

type openaiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates an OpenAI-compatible embedding provider.
func NewOpenAIProvider(s Settings) (*OpenAIProvider, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultOpenAIBaseURL
	}
	if s.Model == "" {
		s.Model = DefaultOpenAIModel
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	return &OpenAIProvider{
		client:  &http.Client{Timeout: s.Timeout},
		baseURL: s.BaseURL,
		apiKey:  s.APIKey,
		model:   s.Model,
		dims:    s.Dimensions,
	}, nil
}

// Embed generates one embedding via a single-element batch.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Malformed: true, Message: "no embedding returned"}
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one API call, reordering by response index.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(openaiRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var out openaiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Malformed: true, Message: "decode response", Err: err}
	}
	if out.Error != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: out.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(raw))}
	}
	if len(out.Data) != len(texts) {
		return nil, &ProviderError{
			Provider:  ProviderOpenAI,
			Malformed: true,
			Message:   fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(out.Data)),
		}
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &ProviderError{Provider: ProviderOpenAI, Malformed: true, Message: "embedding index out of range"}
		}
		emb := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			emb[i] = float32(v)
		}
		embeddings[d.Index] = emb
	}
	if p.dims == 0 && len(embeddings[0]) > 0 {
		p.dims = len(embeddings[0])
	}
	return embeddings, nil
}

// Dimensions returns the configured or detected dimension; zero when unknown.
func (p *OpenAIProvider) Dimensions() int { return p.dims }

// DetectDimension probes the model with one short call.
func (p *OpenAIProvider) DetectDimension(ctx context.Context) (int, error) {
	emb, err := p.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}
	p.dims = len(emb)
	return p.dims, nil
}

// Close releases resources; the HTTP client needs none.
func (p *OpenAIProvider) Close() error { return nil }
