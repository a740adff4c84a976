package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stellarlinkco/finclaw/internal/config"
)

const searchMaxResults = 3

// braveClient implements SearchClient against the Brave web search API.
type braveClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSearchClient builds the web-search client, or an error when no API key
// is configured.
func NewSearchClient(cfg *config.Config) (SearchClient, error) {
	if strings.TrimSpace(cfg.Search.BraveAPIKey) == "" {
		return nil, fmt.Errorf("search client: missing api key")
	}

	timeout := time.Duration(cfg.Search.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultSearchTimeoutMs) * time.Millisecond
	}

	return &braveClient{
		apiKey:     cfg.Search.BraveAPIKey,
		baseURL:    strings.TrimRight(cfg.Search.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *braveClient) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("search: empty query")
	}

	endpoint := c.baseURL + "/res/v1/web/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("search: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("search: decode response: %w", err)
	}
	if len(decoded.Web.Results) == 0 {
		return "", fmt.Errorf("search: no results")
	}

	parts := make([]string, 0, searchMaxResults)
	for i, r := range decoded.Web.Results {
		if i >= searchMaxResults {
			break
		}
		snippet := strings.TrimSpace(r.Description)
		if snippet == "" {
			continue
		}
		if title := strings.TrimSpace(r.Title); title != "" {
			snippet = title + ": " + snippet
		}
		parts = append(parts, snippet)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("search: no usable snippets")
	}
	return strings.Join(parts, " "), nil
}
