package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingHandler(t *testing.T, vec []float32, wantModel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if wantModel != "" && req.Model != wantModel {
			t.Errorf("request model = %q, expected %q", req.Model, wantModel)
		}

		resp := openaiEmbeddingResponse{
			Object: "list",
			Model:  req.Model,
		}
		resp.Data = append(resp.Data, struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			Object:    "embedding",
			Embedding: vec,
			Index:     0,
		})
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestEmbedder(baseURL string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: 4,
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(embeddingHandler(t, expectedVec, "test-model"))
	defer server.Close()

	emb := newTestEmbedder(server.URL)

	vec, err := emb.Embed(context.Background(), "disk full on db-3", "")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(vec) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(vec))
	}

	for i, v := range vec {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
}

func TestEmbedder_Embed_ModelOverride(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(t, []float32{0.5, 0.5}, "custom-model"))
	defer server.Close()

	emb := newTestEmbedder(server.URL)

	if _, err := emb.Embed(context.Background(), "hello", "custom-model"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestEmbedder_DimensionsOmittedWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// ada-002 rejects the dimensions parameter, so a zero config
		// value must keep it out of the request entirely.
		if _, ok := req["dimensions"]; ok {
			t.Error("dimensions must be omitted when not configured")
		}

		resp := openaiEmbeddingResponse{Object: "list", Model: "text-embedding-ada-002"}
		resp.Data = append(resp.Data, struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Object: "embedding", Embedding: []float32{0.1, 0.2}, Index: 0})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "text-embedding-ada-002",
		Logger:  zap.NewNop(),
	})

	if _, err := emb.Embed(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)

	_, err := emb.Embed(context.Background(), "hello", "")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !errors.Is(err, ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)

	_, err := emb.Embed(context.Background(), "hello", "")
	if !errors.Is(err, ErrProvider) {
		t.Errorf("expected ErrProvider for empty data, got %v", err)
	}
}
