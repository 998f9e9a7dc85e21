package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("model = %s", req.Model)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(Settings{BaseURL: srv.URL, Model: "test-model"})
	v, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 {
		t.Errorf("dims = %d", len(v))
	}
	if p.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d after first embed", p.Dimensions())
	}
}

func TestOllamaProvider_DetectDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: make([]float64, 768)})
	}))
	defer srv.Close()

	p := NewOllamaProvider(Settings{BaseURL: srv.URL})
	dim, err := p.DetectDimension(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dim != 768 {
		t.Errorf("dim = %d", dim)
	}
}

func TestOllamaProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		unrecoverable bool
	}{
		{"model missing", 404, `{"error":"model not found"}`, true},
		{"server error", 500, "internal", true},
		{"overloaded", 429, "slow down", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOllamaProvider(Settings{BaseURL: srv.URL})
			_, err := p.Embed(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsUnrecoverable(err) != tt.unrecoverable {
				t.Errorf("IsUnrecoverable = %v, want %v", IsUnrecoverable(err), tt.unrecoverable)
			}
		})
	}
}

func TestOllamaProvider_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := NewOllamaProvider(Settings{BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), "x")
	if !IsUnrecoverable(err) {
		t.Errorf("malformed response should be unrecoverable, got %v", err)
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Settings{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAIProvider_BatchReorder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		// Return embeddings out of order; the client must reorder by index.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[2,2]},
			{"index":0,"embedding":[1,1]}
		]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(Settings{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
}

func TestOpenAIProvider_CountMismatchIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	p, _ := NewOpenAIProvider(Settings{APIKey: "k", BaseURL: srv.URL})
	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if !IsUnrecoverable(err) {
		t.Errorf("count mismatch should be unrecoverable, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Settings{}); err != nil {
		t.Errorf("empty provider should default to ollama: %v", err)
	}
	if _, err := NewProvider(Settings{Provider: ProviderOpenAI, APIKey: "k"}); err != nil {
		t.Errorf("openai provider: %v", err)
	}
	if _, err := NewProvider(Settings{Provider: "wat"}); err == nil {
		t.Error("unknown provider should error")
	}
}
