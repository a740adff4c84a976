package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Company is one extracted entity: a display name plus a market ticker.
type Company struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

const extractPrompt = `Extract company names and their stock tickers from this query.
The query may be in any language or mix languages.
For Indian companies listed on the NSE, append the .NS suffix to the ticker.
Respond with ONLY a JSON array, no other text, for example:
[{"name": "Apple", "ticker": "AAPL"}, {"name": "Reliance Industries", "ticker": "RELIANCE.NS"}]
If no companies are mentioned, respond with [].

Query: %s`

var (
	jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)
	tickerRe    = regexp.MustCompile(`\b[A-Z]{2,5}(\.NS)?\b`)
)

// Common company-name aliases, so extraction still works without the LLM.
var companyAliases = []struct {
	alias  string
	name   string
	ticker string
}{
	{"apple", "Apple", "AAPL"},
	{"microsoft", "Microsoft", "MSFT"},
	{"google", "Google", "GOOGL"},
	{"alphabet", "Alphabet", "GOOGL"},
	{"amazon", "Amazon", "AMZN"},
	{"tesla", "Tesla", "TSLA"},
	{"meta", "Meta", "META"},
	{"nvidia", "Nvidia", "NVDA"},
	{"samsung", "Samsung", "SSNLF"},
	{"reliance", "Reliance Industries", "RELIANCE.NS"},
	{"tcs", "Tata Consultancy Services", "TCS.NS"},
	{"infosys", "Infosys", "INFY.NS"},
	{"hdfc", "HDFC Bank", "HDFCBANK.NS"},
}

// extractCompanies pulls company entities out of a query. The LLM path
// handles arbitrary languages and phrasings; when it is unavailable or
// returns nothing usable, a keyword-and-ticker-pattern fallback keeps
// extraction working. Results are deduplicated by ticker in first-seen
// order. Best effort: an empty result is a valid outcome.
func (a *Agent) extractCompanies(ctx context.Context, query string) []Company {
	if a.llm != nil {
		if companies := a.extractViaLLM(ctx, query); len(companies) > 0 {
			return companies
		}
	}
	return extractFallback(query)
}

func (a *Agent) extractViaLLM(ctx context.Context, query string) []Company {
	resp, err := a.llm.Complete(ctx, fmt.Sprintf(extractPrompt, query))
	if err != nil {
		log.Printf("[agent] entity extraction warning: %v", err)
		return nil
	}
	raw := jsonArrayRe.FindString(resp)
	if raw == "" {
		return nil
	}
	var parsed []Company
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("[agent] entity extraction parse warning: %v", err)
		return nil
	}
	var companies []Company
	for _, c := range parsed {
		c.Name = strings.TrimSpace(c.Name)
		c.Ticker = strings.TrimSpace(c.Ticker)
		if c.Name == "" || c.Ticker == "" {
			continue
		}
		companies = append(companies, c)
	}
	return dedupeCompanies(companies)
}

func extractFallback(query string) []Company {
	lower := strings.ToLower(query)
	var companies []Company
	for _, a := range companyAliases {
		if strings.Contains(lower, a.alias) {
			companies = append(companies, Company{Name: a.name, Ticker: a.ticker})
		}
	}
	for _, match := range tickerRe.FindAllString(query, -1) {
		companies = append(companies, Company{Name: companyName(match), Ticker: match})
	}
	return dedupeCompanies(companies)
}

func dedupeCompanies(companies []Company) []Company {
	seen := make(map[string]struct{}, len(companies))
	out := companies[:0]
	for _, c := range companies {
		if _, ok := seen[c.Ticker]; ok {
			continue
		}
		seen[c.Ticker] = struct{}{}
		out = append(out, c)
	}
	return out
}
