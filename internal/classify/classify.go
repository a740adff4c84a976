// Package classify maps raw query text to a query intent and a financial
// topic category using keyword heuristics. Classification is pure: no
// provider calls, no side effects, always returns a value.
package classify

import "strings"

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentComparison Intent = "comparison"
	IntentResearch   Intent = "research"
	IntentAnalysis   Intent = "analysis"
	IntentPriceQuery Intent = "price_query"
	IntentFollowup   Intent = "followup"
	IntentGeneral    Intent = "general"
)

// CategoryGeneral is the default topic when no keyword set matches.
const CategoryGeneral = "general"

// Category is a financial topic with its classification keyword set. The
// keyword lists are heuristic, carried over from the system this engine
// replaced; they are not tuned against real data.
type Category struct {
	Name        string
	Keywords    []string
	Description string
}

// Categories is the closed topic set, scanned in order; first match wins.
var Categories = []Category{
	{
		Name:        "corporate_finance",
		Keywords:    []string{"capital structure", "dividend", "merger", "acquisition", "cash holdings"},
		Description: "Corporate finance and strategy",
	},
	{
		Name:        "markets",
		Keywords:    []string{"stock", "market", "volatility", "trading", "equity", "cryptocurrency"},
		Description: "Financial markets and investments",
	},
	{
		Name:        "analysis",
		Keywords:    []string{"compare", "performance", "analysis", "portfolio", "risk", "forecast"},
		Description: "Stock and portfolio analysis",
	},
	{
		Name:        "banking",
		Keywords:    []string{"bank", "fintech", "lending", "digital currency", "cbdc"},
		Description: "Banking and fintech",
	},
	{
		Name:        "esg",
		Keywords:    []string{"esg", "sustainable", "green", "environmental", "social", "governance"},
		Description: "Environmental, Social, and Governance",
	},
}

var (
	// followupCues are ambiguous without prior context; "and" and "it" are
	// matched as whole words so that e.g. "Anand Group" or "Citigroup" do
	// not trigger a follow-up.
	followupPhrases = []string{"what about", "how about", "also", "them"}
	followupWords   = []string{"and", "it"}

	// "comparison" is listed separately: "compare" is not a substring of it.
	comparisonCues = []string{"compare", "comparison", "versus", "vs"}
	researchCues   = []string{"research", "study", "impact", "affect", "relationship"}
	analysisCues   = []string{"analyze", "analysis", "forecast", "predict"}
	// priceCues include transliterated Hindi and Devanagari forms.
	priceCues = []string{"price", "stock", "share", "value", "cost", "kitna", "kya hai", "कीमत"}
)

// Classify determines the intent and topic category of a query.
// hasPriorContext gates the follow-up intent: continuation cues are only
// meaningful when earlier turns exist.
func Classify(query string, hasPriorContext bool) (Intent, string) {
	return classifyIntent(query, hasPriorContext), classifyCategory(query)
}

func classifyIntent(query string, hasPriorContext bool) Intent {
	q := strings.ToLower(query)

	if hasPriorContext && hasFollowupCue(q) {
		return IntentFollowup
	}
	if containsAny(q, comparisonCues) {
		return IntentComparison
	}
	if containsAny(q, researchCues) {
		return IntentResearch
	}
	if containsAny(q, analysisCues) {
		return IntentAnalysis
	}
	if containsAny(q, priceCues) {
		return IntentPriceQuery
	}
	return IntentGeneral
}

func classifyCategory(query string) string {
	q := strings.ToLower(query)
	for _, cat := range Categories {
		if containsAny(q, cat.Keywords) {
			return cat.Name
		}
	}
	return CategoryGeneral
}

// Describe returns the human-readable description of a category name.
func Describe(category string) string {
	for _, cat := range Categories {
		if cat.Name == category {
			return cat.Description
		}
	}
	return "General Finance"
}

func hasFollowupCue(q string) bool {
	if containsAny(q, followupPhrases) {
		return true
	}
	for _, w := range strings.FieldsFunc(q, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
	}) {
		for _, cue := range followupWords {
			if w == cue {
				return true
			}
		}
	}
	return false
}

func containsAny(q string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}
