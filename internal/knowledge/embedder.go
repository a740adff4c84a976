package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stellarlinkco/finclaw/internal/config"
)

// Embedder turns text into a dense vector. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// httpEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type httpEmbedder struct {
	baseURL     string
	apiKey      string
	model       string
	expectedDim int
	batchSize   int
	httpClient  *http.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder builds the embedding client from config, or an error when the
// endpoint is not configured.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	ec := cfg.Knowledge.Embedding
	if !ec.Enabled {
		return nil, fmt.Errorf("embedder: disabled")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(ec.BaseURL), "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(strings.TrimSpace(cfg.Provider.BaseURL), "/")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("embedder: missing base url")
	}
	apiKey := strings.TrimSpace(ec.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(cfg.Provider.APIKey)
	}
	model := strings.TrimSpace(ec.Model)
	if model == "" {
		return nil, fmt.Errorf("embedder: missing model")
	}

	timeout := time.Duration(ec.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultEmbeddingTimeoutMs) * time.Millisecond
	}
	batchSize := ec.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultEmbeddingBatchSize
	}

	return &httpEmbedder{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		expectedDim: ec.Dimension,
		batchSize:   batchSize,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embed: empty text")
	}
	vectors, err := e.request(ctx, text, 1)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors[0], nil
}

func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed batch: empty input")
	}
	normalized := make([]string, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("embed batch: empty text at index %d", i)
		}
		normalized[i] = t
	}

	vectors := make([][]float32, 0, len(normalized))
	for start := 0; start < len(normalized); start += e.batchSize {
		end := start + e.batchSize
		if end > len(normalized) {
			end = len(normalized)
		}
		chunk, err := e.request(ctx, normalized[start:end], end-start)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}

func (e *httpEmbedder) request(ctx context.Context, input any, expected int) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data) != expected {
		return nil, fmt.Errorf("response count mismatch: got %d want %d", len(decoded.Data), expected)
	}

	vectors := make([][]float32, expected)
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= expected {
			return nil, fmt.Errorf("invalid embedding index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", item.Index)
		}
		if e.expectedDim > 0 && len(item.Embedding) != e.expectedDim {
			return nil, fmt.Errorf("embedding dimension at index %d: got %d want %d", item.Index, len(item.Embedding), e.expectedDim)
		}
		copied := make([]float32, len(item.Embedding))
		copy(copied, item.Embedding)
		vectors[item.Index] = copied
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding index %d", i)
		}
	}
	return vectors, nil
}
