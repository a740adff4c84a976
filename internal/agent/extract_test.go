package agent

import (
	"context"
	"testing"
)

func tickersOf(companies []Company) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Ticker
	}
	return out
}

func sameTickers(got []Company, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Ticker != want[i] {
			return false
		}
	}
	return true
}

func TestExtractFallback(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"Compare Apple and Microsoft", []string{"AAPL", "MSFT"}},
		{"Reliance vs Infosys", []string{"RELIANCE.NS", "INFY.NS"}},
		{"How is NVDA doing", []string{"NVDA"}},
		{"TSLA and tesla stock", []string{"TSLA"}},
		{"no companies here", nil},
		{"tell me about alphabet", []string{"GOOGL"}},
	}
	for _, c := range cases {
		got := extractFallback(c.query)
		if !sameTickers(got, c.want) {
			t.Errorf("extractFallback(%q) = %v, want %v", c.query, tickersOf(got), c.want)
		}
	}
}

func TestExtractFallbackNSETickerPattern(t *testing.T) {
	got := extractFallback("price of INFY.NS today")
	if !sameTickers(got, []string{"INFY.NS"}) {
		t.Fatalf("got %v, want [INFY.NS]", tickersOf(got))
	}
}

func TestExtractViaLLM(t *testing.T) {
	llm := stubLLM{fn: func(prompt string) (string, error) {
		return `Here are the companies: [{"name": "Apple", "ticker": "AAPL"}, {"name": "Apple Inc", "ticker": "AAPL"}, {"name": "", "ticker": "X"}]`, nil
	}}
	a := New(nil, Options{LLM: llm})

	got := a.extractCompanies(context.Background(), "compare apple with itself")
	if !sameTickers(got, []string{"AAPL"}) {
		t.Fatalf("got %v, want deduplicated [AAPL]", tickersOf(got))
	}
	if got[0].Name != "Apple" {
		t.Errorf("first-seen name = %q, want Apple", got[0].Name)
	}
}

func TestExtractLLMGarbageFallsBack(t *testing.T) {
	llm := stubLLM{fn: func(prompt string) (string, error) {
		return "I could not find any structured data in that.", nil
	}}
	a := New(nil, Options{LLM: llm})

	got := a.extractCompanies(context.Background(), "what is tesla trading at")
	if !sameTickers(got, []string{"TSLA"}) {
		t.Fatalf("got %v, want fallback [TSLA]", tickersOf(got))
	}
}

func TestExtractLLMMalformedJSONFallsBack(t *testing.T) {
	llm := stubLLM{fn: func(prompt string) (string, error) {
		return `[{"name": "Apple", "ticker": }]`, nil
	}}
	a := New(nil, Options{LLM: llm})

	got := a.extractCompanies(context.Background(), "apple price")
	if !sameTickers(got, []string{"AAPL"}) {
		t.Fatalf("got %v, want fallback [AAPL]", tickersOf(got))
	}
}
