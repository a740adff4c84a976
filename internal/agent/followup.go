package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stellarlinkco/finclaw/internal/session"
)

const followupPrompt = `The user is continuing an earlier conversation.

Previous question: %s
Previous answer (excerpt): %s
Companies discussed: %s
Topics explored: %s

Answer the follow-up question below in the context of that conversation.
Be direct and refer back to the earlier discussion where relevant.

Follow-up question: %s`

const (
	followupResponseExcerpt = 500
	followupQueryExcerpt    = 50
)

// handleFollowup answers in the context of the previous exchange. With no
// history to follow up on, the query is handled as a general question.
func (a *Agent) handleFollowup(ctx context.Context, query string, mem *session.Memory, contextSummary string) string {
	last, ok := mem.LastExchange()
	if !ok {
		return a.handleGeneral(ctx, query, contextSummary)
	}

	if a.llm != nil {
		prompt := fmt.Sprintf(followupPrompt,
			last.Query,
			truncate(last.Response, followupResponseExcerpt),
			strings.Join(mem.Context.CompaniesDiscussed, ", "),
			strings.Join(mem.Context.CategoriesExplored, ", "),
			query)
		resp, err := a.llm.Complete(ctx, prompt)
		if err == nil && resp != "" {
			return resp
		}
		if err != nil {
			log.Printf("[agent] followup completion warning: %v", err)
		}
	}

	return fmt.Sprintf("Based on our discussion about %s...\n\n%s",
		truncate(last.Query, followupQueryExcerpt),
		a.handleGeneral(ctx, query, contextSummary))
}
