package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/stellarlinkco/finclaw/internal/classify"
)

const researchPrompt = `You are a financial research analyst. Provide a structured research
analysis for the question below. Cover the key factors, relevant data points, and a reasoned
conclusion. Be concise and concrete.

Topic area: %s

%sQuestion: %s`

// handleResearch answers open-ended research questions via the LLM, with
// a deterministic research-framework outline as the degraded path.
func (a *Agent) handleResearch(ctx context.Context, query, category, contextSummary string) string {
	if a.llm != nil {
		prefix := ""
		if contextSummary != "" {
			prefix = "Conversation so far:\n" + contextSummary + "\n"
		}
		prompt := fmt.Sprintf(researchPrompt, classify.Describe(category), prefix, query)
		resp, err := a.llm.Complete(ctx, prompt)
		if err == nil && resp != "" {
			return "## Financial Research Analysis\n\n" + resp
		}
		if err != nil {
			log.Printf("[agent] research completion warning: %v", err)
		}
	}
	return researchFramework(query, category)
}

// researchFramework is the static degraded answer: a structured outline of
// how the question would be researched. Deterministic for a given query.
func researchFramework(query, category string) string {
	return fmt.Sprintf(`## Research Framework

Question: %s
Topic Area: %s

**Approach:**
1. Define the variables and the relationship under study
2. Identify the relevant market, sector, or company scope

**Data Requirements:**
- Historical price and volume series
- Fundamental indicators (revenue, margins, leverage)
- Macro context (rates, inflation, sector cycles)

**Analysis Methods:**
- Trend and correlation analysis over the relevant window
- Peer and benchmark comparison
- Scenario analysis for the key drivers

**Expected Outcomes:**
A directional answer with supporting evidence, plus the main risks
and caveats that could change the conclusion.

*Connect a language model provider for a full narrative analysis.*`, query, classify.Describe(category))
}
