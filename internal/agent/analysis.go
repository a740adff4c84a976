package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stellarlinkco/finclaw/internal/session"
)

const trendWindowDays = 30

// handleAnalysis produces a per-entity market snapshot with a 30-day
// trend. Entities with no reachable market data get an explicit
// unavailable line rather than being dropped. With no entities at all
// the query falls through to the general handler.
func (a *Agent) handleAnalysis(ctx context.Context, query string, mem *session.Memory, contextSummary string) string {
	companies := a.extractCompanies(ctx, query)
	if len(companies) == 0 {
		return a.handleGeneral(ctx, query, contextSummary)
	}

	var sb strings.Builder
	sb.WriteString("## Market Analysis\n")
	for _, c := range companies {
		fmt.Fprintf(&sb, "\n### %s (%s)\n", c.Name, c.Ticker)
		if a.market == nil {
			sb.WriteString("- Data temporarily unavailable\n")
			continue
		}
		quote, err := a.market.Quote(ctx, c.Ticker)
		if err != nil {
			log.Printf("[agent] analysis quote %s warning: %v", c.Ticker, err)
			sb.WriteString("- Data temporarily unavailable\n")
			continue
		}
		fmt.Fprintf(&sb, "- Current Price: %s\n", formatPrice(c.Ticker, quote.Price))
		fmt.Fprintf(&sb, "- Change: %s\n", formatChange(quote.Change))
		fmt.Fprintf(&sb, "- Volume: %s\n", formatVolume(quote.Volume))

		if trend, ok := a.computeTrend(ctx, c.Ticker); ok {
			fmt.Fprintf(&sb, "- %d-Day Trend: %s\n", trendWindowDays, trend)
			mem.RecordAnalysis(c.Ticker, trend)
		}
	}
	return sb.String()
}

// computeTrend reports the percent move over the trend window as
// "Up X.X%" or "Down X.X%", from the oldest to the newest close.
func (a *Agent) computeTrend(ctx context.Context, ticker string) (string, bool) {
	bars, err := a.market.DailyHistory(ctx, ticker, trendWindowDays)
	if err != nil {
		log.Printf("[agent] analysis history %s warning: %v", ticker, err)
		return "", false
	}
	if len(bars) < 2 {
		return "", false
	}
	newest := bars[0].Close
	oldest := bars[len(bars)-1].Close
	if oldest == 0 {
		return "", false
	}
	pct := (newest - oldest) / oldest * 100
	direction := "Up"
	if pct < 0 {
		direction = "Down"
	}
	return fmt.Sprintf("%s %.1f%%", direction, abs(pct)), true
}
