// Package provider holds the narrow upstream contracts the query engine
// depends on, plus the concrete clients. A nil client means the capability
// is not configured; every call site in the engine checks presence and
// degrades to fallback data instead of failing.
package provider

import "context"

// LLMClient completes a free-form prompt.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Quote is one market snapshot for a ticker. Change keeps the upstream's
// raw percent string (e.g. "1.25%"); consumers parse it defensively.
type Quote struct {
	Symbol  string
	Price   float64
	Change  string
	Volume  int64
	PERatio string
}

// Bar is one daily close.
type Bar struct {
	Date  string
	Close float64
}

// MarketClient looks up quotes and daily history for a ticker.
type MarketClient interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
	// DailyHistory returns up to size bars, most recent first.
	DailyHistory(ctx context.Context, ticker string, size int) ([]Bar, error)
}

// SearchClient performs a web search and returns a text snippet.
type SearchClient interface {
	Search(ctx context.Context, query string) (string, error)
}
