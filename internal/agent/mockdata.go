package agent

import "github.com/stellarlinkco/finclaw/internal/provider"

// Static fallback data, used whenever the market provider is unavailable
// or a live fetch fails. Keeps every handler total.

var mockQuotes = map[string]provider.Quote{
	"AAPL":  {Symbol: "AAPL", Price: 175.50, Change: "+2.35%", Volume: 45_000_000, PERatio: "28.5"},
	"MSFT":  {Symbol: "MSFT", Price: 380.25, Change: "+1.85%", Volume: 22_000_000, PERatio: "32.1"},
	"GOOGL": {Symbol: "GOOGL", Price: 142.75, Change: "-0.45%", Volume: 18_000_000, PERatio: "24.8"},
}

var mockPrices = map[string]float64{
	"AAPL":        175.50,
	"TSLA":        250.75,
	"MSFT":        380.25,
	"GOOGL":       142.75,
	"AMZN":        155.20,
	"META":        485.60,
	"NVDA":        880.30,
	"RELIANCE.NS": 2950.50,
	"TCS.NS":      4125.80,
	"INFY.NS":     1890.45,
	"HDFCBANK.NS": 1675.30,
}

// Approximate shares outstanding for market-cap estimation.
var sharesOutstanding = map[string]float64{
	"AAPL":  15.5e9,
	"MSFT":  7.4e9,
	"GOOGL": 12.8e9,
	"AMZN":  10.5e9,
}

const defaultSharesOutstanding = 1e9

var tickerNames = map[string]string{
	"AAPL":        "Apple",
	"MSFT":        "Microsoft",
	"GOOGL":       "Google",
	"AMZN":        "Amazon",
	"TSLA":        "Tesla",
	"META":        "Meta",
	"NVDA":        "Nvidia",
	"SSNLF":       "Samsung",
	"RELIANCE.NS": "Reliance Industries",
	"TCS.NS":      "Tata Consultancy Services",
	"INFY.NS":     "Infosys",
	"HDFCBANK.NS": "HDFC Bank",
}

func mockQuote(ticker string) provider.Quote {
	if q, ok := mockQuotes[ticker]; ok {
		return q
	}
	return provider.Quote{Symbol: ticker, Price: 100.0, Change: "0.0%", Volume: 1_000_000, PERatio: "20.0"}
}

func companyName(ticker string) string {
	if name, ok := tickerNames[ticker]; ok {
		return name
	}
	return ticker
}

// estimateMarketCap approximates market cap as price times a static share
// count, falling back to a generic one-billion-share assumption.
func estimateMarketCap(ticker string, price float64) float64 {
	shares, ok := sharesOutstanding[ticker]
	if !ok {
		shares = defaultSharesOutstanding
	}
	return price * shares
}
