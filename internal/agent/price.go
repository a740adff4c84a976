package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const clarifyPrice = "Please specify which company's stock price you'd like to know."

// handlePriceQuery resolves each extracted entity to a price line, with a
// three-tier fallback: live quote, then the static price table, then a
// clearly labeled simulated placeholder. The response always identifies
// simulated data as such.
func (a *Agent) handlePriceQuery(ctx context.Context, query, contextSummary string) string {
	companies := a.extractCompanies(ctx, query)
	if len(companies) == 0 {
		return clarifyPrice
	}

	var sb strings.Builder
	sb.WriteString("## Stock Prices\n\n")
	for _, c := range companies {
		sb.WriteString(a.priceLine(ctx, c))
	}
	fmt.Fprintf(&sb, "\n*Last updated: %s*\n", time.Now().Format("2006-01-02 15:04"))
	return sb.String()
}

func (a *Agent) priceLine(ctx context.Context, c Company) string {
	symbol := currencySymbol(c.Ticker)

	if a.market != nil {
		quote, err := a.market.Quote(ctx, c.Ticker)
		if err == nil {
			return fmt.Sprintf("**%s (%s)**: %s%.2f (%s) | Volume: %s\n",
				c.Name, c.Ticker, symbol, quote.Price, formatChange(quote.Change), formatVolume(quote.Volume))
		}
		log.Printf("[agent] price quote %s warning: %v", c.Ticker, err)
	}

	if price, ok := mockPrices[c.Ticker]; ok {
		return fmt.Sprintf("**%s (%s)**: %s%.2f (+1.25%%) | Volume: 25.00M *(simulated)*\n",
			c.Name, c.Ticker, symbol, price)
	}
	return fmt.Sprintf("**%s (%s)**: $100.00 (simulated)\n", c.Name, c.Ticker)
}
