package agent

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stellarlinkco/finclaw/internal/provider"
)

// entityData is the fused view of one company across all data sources.
type entityData struct {
	Company    Company
	Quote      provider.Quote
	Simulated  bool
	MarketCap  float64
	High52     float64
	Low52      float64
	ChangePct  float64
	WebSummary string
	Insights   []string
}

const webSummaryLimit = 200

// fuseEntity merges the raw per-source results into one record. The
// 52-week band is approximated as plus/minus twenty percent of the
// current price; good enough for a comparative table.
func fuseEntity(c Company, quote provider.Quote, simulated bool, web string, insights []string) entityData {
	return entityData{
		Company:    c,
		Quote:      quote,
		Simulated:  simulated,
		MarketCap:  estimateMarketCap(c.Ticker, quote.Price),
		High52:     quote.Price * 1.2,
		Low52:      quote.Price * 0.8,
		ChangePct:  parseChangePercent(quote.Change),
		WebSummary: truncate(web, webSummaryLimit),
		Insights:   insights,
	}
}

// parseChangePercent reads the upstream's raw change string ("+1.25%",
// "-0.4%", "1.25"). Unparseable input yields zero.
func parseChangePercent(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// buildComparisonReport renders the fused entities as a markdown report:
// a fixed-column metric table, a per-company narrative, comparative
// insights, and a data-source note. Missing fields render as "N/A" so
// the table shape is stable regardless of provider health.
func buildComparisonReport(query string, entities []entityData) string {
	var sb strings.Builder

	sb.WriteString("# Financial Comparison Analysis\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04"))

	sb.WriteString("## Key Metrics\n\n")
	sb.WriteString("```\n")
	fmt.Fprintf(&sb, "%-26s %-12s %12s %10s %12s %8s %14s %12s %12s\n",
		"Company", "Ticker", "Price", "Change", "Market Cap", "P/E", "Volume", "52W High", "52W Low")
	sb.WriteString(strings.Repeat("-", 124) + "\n")
	for _, e := range entities {
		fmt.Fprintf(&sb, "%-26s %-12s %12s %10s %12s %8s %14s %12s %12s\n",
			truncate(e.Company.Name, 26),
			e.Company.Ticker,
			formatPrice(e.Company.Ticker, e.Quote.Price),
			formatChange(e.Quote.Change),
			formatMarketCap(e.MarketCap),
			orNA(e.Quote.PERatio),
			formatVolume(e.Quote.Volume),
			formatPrice(e.Company.Ticker, e.High52),
			formatPrice(e.Company.Ticker, e.Low52))
	}
	sb.WriteString("```\n\n")

	sb.WriteString("## Detailed Analysis\n")
	for _, e := range entities {
		fmt.Fprintf(&sb, "\n### %s (%s)\n", e.Company.Name, e.Company.Ticker)
		if e.WebSummary != "" {
			fmt.Fprintf(&sb, "Latest News: %s\n", e.WebSummary)
		}
		direction := "Up"
		if e.ChangePct < 0 {
			direction = "Down"
		}
		fmt.Fprintf(&sb, "Recent Performance: %s %.2f%% today\n", direction, abs(e.ChangePct))
		for _, insight := range e.Insights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}

	if insight := comparativeInsight(entities); insight != "" {
		sb.WriteString("\n## Comparative Insights\n")
		sb.WriteString(insight + "\n")
	}

	sb.WriteString("\n## Data Sources\n")
	for _, e := range entities {
		source := "live market data"
		if e.Simulated {
			source = "simulated data"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", e.Company.Ticker, source)
	}

	return sb.String()
}

// comparativeInsight compares exactly two entities by market cap.
func comparativeInsight(entities []entityData) string {
	if len(entities) != 2 {
		return ""
	}
	a, b := entities[0], entities[1]
	if a.MarketCap <= 0 || b.MarketCap <= 0 {
		return ""
	}
	larger, smaller := a, b
	if b.MarketCap > a.MarketCap {
		larger, smaller = b, a
	}
	ratio := larger.MarketCap / smaller.MarketCap
	return fmt.Sprintf("%s is the larger company by market cap, approximately %.1fx the size of %s.",
		larger.Company.Name, ratio, smaller.Company.Name)
}

func formatPrice(ticker string, price float64) string {
	if price <= 0 {
		return "N/A"
	}
	return currencySymbol(ticker) + strconv.FormatFloat(price, 'f', 2, 64)
}

func currencySymbol(ticker string) string {
	if strings.HasSuffix(ticker, ".NS") {
		return "₹"
	}
	return "$"
}

func formatChange(change string) string {
	if strings.TrimSpace(change) == "" {
		return "N/A"
	}
	return strings.TrimSpace(change)
}

func formatMarketCap(mc float64) string {
	switch {
	case mc <= 0:
		return "N/A"
	case mc >= 1e12:
		return fmt.Sprintf("$%.2fT", mc/1e12)
	case mc >= 1e9:
		return fmt.Sprintf("$%.2fB", mc/1e9)
	case mc >= 1e6:
		return fmt.Sprintf("$%.2fM", mc/1e6)
	default:
		return fmt.Sprintf("$%.0f", mc)
	}
}

func formatVolume(v int64) string {
	if v <= 0 {
		return "N/A"
	}
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(v)/1e9)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(v)/1e6)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1e3)
	default:
		return strconv.FormatInt(v, 10)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
