package agent

import (
	"context"
	"log"
	"sync"

	"github.com/stellarlinkco/finclaw/internal/provider"
	"github.com/stellarlinkco/finclaw/internal/session"
)

const clarifyComparison = "I need at least two companies to compare. " +
	"Please mention the companies you'd like me to compare, for example: \"Compare Apple and Microsoft\"."

// handleComparison runs the multi-entity comparison pipeline: extract
// entities (borrowing from the session's discussed companies when the
// query names fewer than two), gather market, web, and knowledge data
// per entity in parallel, fuse, and render. Every per-entity fetch
// degrades independently, so one dead provider never sinks the report.
func (a *Agent) handleComparison(ctx context.Context, query string, mem *session.Memory) string {
	companies := a.extractCompanies(ctx, query)
	if len(companies) < 2 {
		companies = fillFromContext(companies, mem)
	}
	if len(companies) < 2 {
		return clarifyComparison
	}

	entities := a.gatherEntities(ctx, query, companies)
	return buildComparisonReport(query, entities)
}

// fillFromContext tops up the entity list from the most recently
// discussed companies, skipping tickers already present.
func fillFromContext(companies []Company, mem *session.Memory) []Company {
	have := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		have[c.Ticker] = struct{}{}
	}
	for _, ticker := range mem.RecentCompanies(2) {
		if len(companies) >= 2 {
			break
		}
		if _, ok := have[ticker]; ok {
			continue
		}
		have[ticker] = struct{}{}
		companies = append(companies, Company{Name: companyName(ticker), Ticker: ticker})
	}
	return companies
}

// gatherEntities fans out one goroutine per entity. Each goroutine owns
// its slot in the result slice, so no locking is needed.
func (a *Agent) gatherEntities(ctx context.Context, query string, companies []Company) []entityData {
	entities := make([]entityData, len(companies))
	var wg sync.WaitGroup
	for i, c := range companies {
		wg.Add(1)
		go func(i int, c Company) {
			defer wg.Done()
			entities[i] = a.gatherEntity(ctx, query, c)
		}(i, c)
	}
	wg.Wait()
	return entities
}

func (a *Agent) gatherEntity(ctx context.Context, query string, c Company) entityData {
	quote, simulated := a.fetchQuote(ctx, c.Ticker)
	web := a.fetchWebSummary(ctx, c.Name)
	insights := a.fetchInsights(ctx, query, c.Ticker)
	return fuseEntity(c, quote, simulated, web, insights)
}

// fetchQuote returns a live quote when possible, otherwise static mock
// data. The second return reports whether the quote is simulated.
func (a *Agent) fetchQuote(ctx context.Context, ticker string) (provider.Quote, bool) {
	if a.market == nil {
		return mockQuote(ticker), true
	}
	q, err := a.market.Quote(ctx, ticker)
	if err != nil {
		log.Printf("[agent] quote %s warning: %v", ticker, err)
		return mockQuote(ticker), true
	}
	return q, false
}

func (a *Agent) fetchWebSummary(ctx context.Context, name string) string {
	if a.search == nil {
		return "Web search unavailable"
	}
	summary, err := a.search.Search(ctx, name+" financial performance revenue profit 2024")
	if err != nil || summary == "" {
		if err != nil {
			log.Printf("[agent] web search %q warning: %v", name, err)
		}
		return "Web search unavailable"
	}
	return summary
}

func (a *Agent) fetchInsights(ctx context.Context, query, ticker string) []string {
	if a.kb == nil {
		return nil
	}
	snippets, err := a.kb.Query(ctx, query, ticker, a.topK)
	if err != nil {
		log.Printf("[agent] knowledge query %s warning: %v", ticker, err)
		return nil
	}
	insights := make([]string, 0, len(snippets))
	for _, s := range snippets {
		insights = append(insights, s.Text)
	}
	return insights
}
