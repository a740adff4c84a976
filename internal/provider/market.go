package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/finclaw/internal/config"
)

// alphaClient talks to an Alpha Vantage compatible quote API.
type alphaClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cachedQuote
}

type cachedQuote struct {
	quote Quote
	at    time.Time
}

// NewMarketClient builds the market-data client, or an error when no API
// key is configured.
func NewMarketClient(cfg *config.Config) (MarketClient, error) {
	if strings.TrimSpace(cfg.Market.APIKey) == "" {
		return nil, fmt.Errorf("market client: missing api key")
	}

	timeout := time.Duration(cfg.Market.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultMarketTimeoutMs) * time.Millisecond
	}
	ttl := time.Duration(cfg.Market.QuoteTTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Duration(config.DefaultQuoteTTLSec) * time.Second
	}

	return &alphaClient{
		apiKey:     cfg.Market.APIKey,
		baseURL:    strings.TrimRight(cfg.Market.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		ttl:        ttl,
		cache:      make(map[string]cachedQuote),
	}, nil
}

func (c *alphaClient) Quote(ctx context.Context, ticker string) (Quote, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Quote{}, fmt.Errorf("quote: empty ticker")
	}

	c.mu.Lock()
	if cached, ok := c.cache[ticker]; ok && time.Since(cached.at) < c.ttl {
		c.mu.Unlock()
		return cached.quote, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {ticker},
	})
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", ticker, err)
	}

	var decoded struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Quote{}, fmt.Errorf("quote %s: decode response: %w", ticker, err)
	}
	if len(decoded.GlobalQuote) == 0 {
		return Quote{}, fmt.Errorf("quote %s: empty global quote", ticker)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(decoded.GlobalQuote["05. price"]), 64)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: parse price: %w", ticker, err)
	}
	volume, _ := strconv.ParseInt(strings.TrimSpace(decoded.GlobalQuote["06. volume"]), 10, 64)

	// GLOBAL_QUOTE carries no P/E field, so live quotes leave PERatio empty
	// and reports render it as N/A.
	q := Quote{
		Symbol: ticker,
		Price:  price,
		Change: strings.TrimSpace(decoded.GlobalQuote["10. change percent"]),
		Volume: volume,
	}

	c.mu.Lock()
	c.cache[ticker] = cachedQuote{quote: q, at: time.Now()}
	c.mu.Unlock()

	return q, nil
}

func (c *alphaClient) DailyHistory(ctx context.Context, ticker string, size int) ([]Bar, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("daily history: empty ticker")
	}
	if size <= 0 {
		size = 30
	}

	body, err := c.get(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {ticker},
		"outputsize": {"compact"},
	})
	if err != nil {
		return nil, fmt.Errorf("daily history %s: %w", ticker, err)
	}

	var decoded struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("daily history %s: decode response: %w", ticker, err)
	}
	if len(decoded.Series) == 0 {
		return nil, fmt.Errorf("daily history %s: empty series", ticker)
	}

	dates := make([]string, 0, len(decoded.Series))
	for date := range decoded.Series {
		dates = append(dates, date)
	}
	// ISO dates sort lexically; most recent first.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > size {
		dates = dates[:size]
	}

	bars := make([]Bar, 0, len(dates))
	for _, date := range dates {
		close, err := strconv.ParseFloat(strings.TrimSpace(decoded.Series[date]["4. close"]), 64)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{Date: date, Close: close})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("daily history %s: no parseable bars", ticker)
	}
	return bars, nil
}

func (c *alphaClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
