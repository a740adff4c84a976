package agent

import (
	"context"
	"fmt"
	"log"
)

const generalPrompt = `You are a knowledgeable financial assistant. Answer the question below
clearly and concisely. Use the conversation context when it is relevant.

%sQuestion: %s`

const generalFallback = `I can help you with:
- Comparing companies (e.g. "Compare Apple and Microsoft")
- Stock prices (e.g. "What is the price of TSLA?")
- Market analysis and trends (e.g. "Analyze NVDA")
- Financial research questions (e.g. "How do interest rates affect bank stocks?")

Please ask a specific financial question.`

// handleGeneral is the default handler and the shared degraded path for
// followup and analysis queries that lack what they need. Without an LLM
// it returns a static capability summary.
func (a *Agent) handleGeneral(ctx context.Context, query, contextSummary string) string {
	if a.llm == nil {
		return generalFallback
	}
	prefix := ""
	if contextSummary != "" {
		prefix = "Conversation so far:\n" + contextSummary + "\n"
	}
	resp, err := a.llm.Complete(ctx, fmt.Sprintf(generalPrompt, prefix, query))
	if err != nil || resp == "" {
		if err != nil {
			log.Printf("[agent] general completion warning: %v", err)
		}
		return generalFallback
	}
	return resp
}
