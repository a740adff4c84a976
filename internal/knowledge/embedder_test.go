package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stellarlinkco/finclaw/internal/config"
)

func newHTTPEmbedderTest(t *testing.T, handler http.HandlerFunc) *httpEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &httpEmbedder{
		baseURL:    srv.URL,
		apiKey:     "test-key",
		model:      "test-embed",
		batchSize:  2,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNewEmbedderRequiresConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("NewEmbedder with embedding disabled succeeded")
	}

	cfg.Knowledge.Embedding.Enabled = true
	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("NewEmbedder without base url succeeded")
	}

	cfg.Knowledge.Embedding.BaseURL = "https://example.invalid"
	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("NewEmbedder without model succeeded")
	}

	cfg.Knowledge.Embedding.Model = "test-embed"
	if _, err := NewEmbedder(cfg); err != nil {
		t.Fatalf("NewEmbedder with full config: %v", err)
	}
}

func TestEmbed(t *testing.T) {
	e := newHTTPEmbedderTest(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var req struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-embed" {
			t.Errorf("model = %q", req.Model)
		}
		fmt.Fprint(w, `{"data": [{"index": 0, "embedding": [0.1, 0.2, 0.3]}]}`)
	})

	vec, err := e.Embed(context.Background(), "apple revenue")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("vector length = %d, want 3", len(vec))
	}
}

func TestEmbedBatchChunksRequests(t *testing.T) {
	requests := 0
	e := newHTTPEmbedderTest(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float64{float64(i), 1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	// Batch size 2 splits three inputs across two requests.
	if requests != 2 {
		t.Fatalf("upstream requests = %d, want 2", requests)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	e := newHTTPEmbedderTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("count mismatch accepted")
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	e := newHTTPEmbedderTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"index": 0, "embedding": [0.1, 0.2]}]}`)
	})
	e.expectedDim = 3
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("dimension mismatch accepted")
	}
}
