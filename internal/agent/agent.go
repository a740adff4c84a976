// Package agent is the query engine: it classifies incoming financial
// questions, routes them to intent handlers, fuses provider data into
// answers, and maintains per-session conversational memory.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stellarlinkco/finclaw/internal/classify"
	"github.com/stellarlinkco/finclaw/internal/knowledge"
	"github.com/stellarlinkco/finclaw/internal/provider"
	"github.com/stellarlinkco/finclaw/internal/session"
)

const invalidSessionMessage = "Invalid session. Please create a new session."

// Options carries the provider adapters. Any of them may be nil, meaning
// the capability is not configured; handlers degrade to fallback data.
type Options struct {
	LLM       provider.LLMClient
	Market    provider.MarketClient
	Search    provider.SearchClient
	Knowledge *knowledge.Store
	TopK      int
}

// Agent wires the session store, the classifier, and the intent handlers.
// Handlers are stateless; all conversational state lives in session memory.
type Agent struct {
	store  *session.Store
	llm    provider.LLMClient
	market provider.MarketClient
	search provider.SearchClient
	kb     *knowledge.Store
	topK   int
}

func New(store *session.Store, opts Options) *Agent {
	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Agent{
		store:  store,
		llm:    opts.LLM,
		market: opts.Market,
		search: opts.Search,
		kb:     opts.Knowledge,
		topK:   topK,
	}
}

// CreateSession makes a fresh session and returns its id.
func (a *Agent) CreateSession() string {
	return a.store.Create()
}

// ResumeSession reports whether the session exists, loading it if needed.
func (a *Agent) ResumeSession(id string) bool {
	return a.store.Resume(id)
}

// ListSessions returns summaries of all known sessions.
func (a *Agent) ListSessions() []session.Summary {
	return a.store.List()
}

// ProcessQuery answers one query within a session. The returned text is
// always a usable response: provider failures degrade to fallbacks, and
// input-shape problems (unknown session, missing entities) come back as
// direct user-facing messages.
func (a *Agent) ProcessQuery(ctx context.Context, query, sessionID string) string {
	mem, ok := a.store.Get(sessionID)
	if !ok {
		return invalidSessionMessage
	}

	// Context must be captured before this query is recorded, so follow-up
	// detection and prompt context reflect only prior turns.
	contextSummary := mem.ContextSummary()

	intent, category := classify.Classify(query, contextSummary != "")
	mem.RecordCategory(category)

	log.Printf("[agent] session=%s intent=%s category=%s", shortID(sessionID), intent, category)

	var response string
	switch intent {
	case classify.IntentComparison:
		response = a.handleComparison(ctx, query, mem)
	case classify.IntentResearch:
		response = a.handleResearch(ctx, query, category, contextSummary)
	case classify.IntentAnalysis:
		response = a.handleAnalysis(ctx, query, mem, contextSummary)
	case classify.IntentPriceQuery:
		response = a.handlePriceQuery(ctx, query, contextSummary)
	case classify.IntentFollowup:
		response = a.handleFollowup(ctx, query, mem, contextSummary)
	default:
		response = a.handleGeneral(ctx, query, contextSummary)
	}

	mem.AddExchange(query, response, session.ExchangeMeta{
		Intent:    string(intent),
		Category:  category,
		Timestamp: time.Now(),
	})

	// Track entities independently of the handler so research/general
	// queries still feed the discussed-companies set.
	if companies := a.extractCompanies(ctx, query); len(companies) > 0 {
		tickers := make([]string, 0, len(companies))
		for _, c := range companies {
			tickers = append(tickers, c.Ticker)
		}
		mem.RecordCompanies(tickers)
	}

	a.store.SaveBestEffort(sessionID)
	return response
}

// SessionHistory renders a formatted transcript of a session.
func (a *Agent) SessionHistory(sessionID string) string {
	mem, err := a.store.LoadForRead(sessionID)
	if err != nil {
		return "Session not found"
	}

	var sb strings.Builder
	sb.WriteString("Session History\n")
	fmt.Fprintf(&sb, "ID: %s\n", sessionID)
	fmt.Fprintf(&sb, "Started: %s\n", mem.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Total Exchanges: %d\n", len(mem.History))
	sb.WriteString(strings.Repeat("-", 60) + "\n")

	for i, ex := range mem.History {
		fmt.Fprintf(&sb, "\n%d. [%s]\n", i+1, ex.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "Q: %s\n", ex.Query)
		fmt.Fprintf(&sb, "A: %s...\n", truncate(ex.Response, 300))
		fmt.Fprintf(&sb, "Type: %s, Category: %s\n", ex.Meta.Intent, ex.Meta.Category)
	}
	return sb.String()
}

// Watchlist returns the union of companies discussed across all sessions.
func (a *Agent) Watchlist() []string {
	seen := make(map[string]struct{})
	var tickers []string
	for _, summary := range a.store.List() {
		for _, t := range summary.Companies {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// WarmQuotes pre-fetches quotes for all watchlist tickers so the market
// client's cache stays fresh. Used by the scheduled refresh job.
func (a *Agent) WarmQuotes(ctx context.Context) int {
	if a.market == nil {
		return 0
	}
	warmed := 0
	for _, ticker := range a.Watchlist() {
		if _, err := a.market.Quote(ctx, ticker); err != nil {
			log.Printf("[agent] warm quote %s warning: %v", ticker, err)
			continue
		}
		warmed++
	}
	return warmed
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
