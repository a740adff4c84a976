package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultMaxHistory bounds the conversation log per session.
	DefaultMaxHistory = 50
	// MaxResponseLen caps the stored response text per exchange.
	MaxResponseLen = 2000

	summaryExchanges      = 5
	summaryResponsePrefix = 200
)

// ExchangeMeta records how a query was classified when it was processed.
type ExchangeMeta struct {
	Intent    string    `json:"intent"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Exchange is one query/response pair. Immutable once appended.
type Exchange struct {
	Timestamp time.Time    `json:"timestamp"`
	Query     string       `json:"query"`
	Response  string       `json:"response"`
	Meta      ExchangeMeta `json:"metadata"`
}

// AnalysisEvent is one entry of the append-only analysis log.
type AnalysisEvent struct {
	Ticker    string    `json:"ticker"`
	Trend     string    `json:"trend"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is the accumulated conversational state for one session. The
// company and category sets only grow over the session's lifetime.
type Context struct {
	CompaniesDiscussed []string          `json:"companiesDiscussed"`
	CategoriesExplored []string          `json:"categoriesExplored"`
	AnalysisPerformed  []AnalysisEvent   `json:"analysisPerformed"`
	UserPreferences    map[string]string `json:"userPreferences"`
}

// Memory holds the bounded conversation log plus accumulated context for
// one session.
type Memory struct {
	SessionID    string     `json:"sessionId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessed time.Time  `json:"lastAccessed"`
	History      []Exchange `json:"conversationHistory"`
	Context      Context    `json:"context"`

	maxHistory int
}

func NewMemory(sessionID string, maxHistory int) *Memory {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	now := time.Now()
	return &Memory{
		SessionID:    sessionID,
		CreatedAt:    now,
		LastAccessed: now,
		History:      make([]Exchange, 0),
		Context: Context{
			CompaniesDiscussed: make([]string, 0),
			CategoriesExplored: make([]string, 0),
			AnalysisPerformed:  make([]AnalysisEvent, 0),
			UserPreferences:    make(map[string]string),
		},
		maxHistory: maxHistory,
	}
}

// SetMaxHistory restores the history bound after deserialization.
func (m *Memory) SetMaxHistory(n int) {
	if n > 0 {
		m.maxHistory = n
	}
}

// AddExchange appends a query/response pair, evicting the oldest exchange
// once the history bound is exceeded. The response is truncated to
// MaxResponseLen to bound the memory footprint.
func (m *Memory) AddExchange(query, response string, meta ExchangeMeta) {
	if m.maxHistory <= 0 {
		m.maxHistory = DefaultMaxHistory
	}
	m.History = append(m.History, Exchange{
		Timestamp: time.Now(),
		Query:     query,
		Response:  truncate(response, MaxResponseLen),
		Meta:      meta,
	})
	if len(m.History) > m.maxHistory {
		m.History = m.History[len(m.History)-m.maxHistory:]
	}
	m.LastAccessed = time.Now()
}

// RecordCompanies merges tickers into the discussed-companies set,
// preserving first-seen order.
func (m *Memory) RecordCompanies(tickers []string) {
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" || containsString(m.Context.CompaniesDiscussed, t) {
			continue
		}
		m.Context.CompaniesDiscussed = append(m.Context.CompaniesDiscussed, t)
	}
}

// RecordCategory merges a topic category into the explored set.
func (m *Memory) RecordCategory(category string) {
	category = strings.TrimSpace(category)
	if category == "" || containsString(m.Context.CategoriesExplored, category) {
		return
	}
	m.Context.CategoriesExplored = append(m.Context.CategoriesExplored, category)
}

// RecordAnalysis appends to the analysis log.
func (m *Memory) RecordAnalysis(ticker, trend string) {
	m.Context.AnalysisPerformed = append(m.Context.AnalysisPerformed, AnalysisEvent{
		Ticker:    ticker,
		Trend:     trend,
		Timestamp: time.Now(),
	})
}

// LastExchange returns the most recent exchange, or false when the history
// is empty.
func (m *Memory) LastExchange() (Exchange, bool) {
	if len(m.History) == 0 {
		return Exchange{}, false
	}
	return m.History[len(m.History)-1], true
}

// RecentCompanies returns up to n of the most recently discussed tickers,
// oldest first.
func (m *Memory) RecentCompanies(n int) []string {
	companies := m.Context.CompaniesDiscussed
	if n <= 0 || len(companies) == 0 {
		return nil
	}
	if len(companies) > n {
		companies = companies[len(companies)-n:]
	}
	out := make([]string, len(companies))
	copy(out, companies)
	return out
}

// ContextSummary renders a bounded text block of the conversation so far,
// for prompt construction. Returns "" when the session has no history, so
// callers can use the empty summary as the no-prior-context signal.
// Deterministic for identical session state.
func (m *Memory) ContextSummary() string {
	if len(m.History) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session started: %s\n", m.CreatedAt.Format("2006-01-02 15:04"))

	recent := m.History
	if len(recent) > summaryExchanges {
		recent = recent[len(recent)-summaryExchanges:]
	}
	sb.WriteString("\nRecent conversation:\n")
	for _, ex := range recent {
		fmt.Fprintf(&sb, "User: %s\n", ex.Query)
		fmt.Fprintf(&sb, "Agent: %s...\n\n", truncate(ex.Response, summaryResponsePrefix))
	}

	if len(m.Context.CompaniesDiscussed) > 0 {
		fmt.Fprintf(&sb, "Companies discussed: %s\n", strings.Join(m.Context.CompaniesDiscussed, ", "))
	}
	if len(m.Context.CategoriesExplored) > 0 {
		fmt.Fprintf(&sb, "Topics explored: %s\n", strings.Join(m.Context.CategoriesExplored, ", "))
	}

	return sb.String()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n bytes without splitting a rune, so the
// stored text stays valid UTF-8 through JSON persistence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
