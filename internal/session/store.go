package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Summary is a compact view of one session, for listings.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
	Exchanges    int       `json:"exchanges"`
	Companies    []string  `json:"companies"`
	Categories   []string  `json:"categories"`
}

// Store owns all resident session memories and fronts the persistence
// collaborator. A session memory handed out by Get is exclusively owned by
// the in-flight query for that session; callers must not retain it.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Memory
	persist    Persistence
	maxHistory int
}

func NewStore(persist Persistence, maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string]*Memory),
		persist:    persist,
		maxHistory: maxHistory,
	}
}

// Create makes a fresh empty session, persists it, and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	m := NewMemory(id, s.maxHistory)

	s.mu.Lock()
	s.sessions[id] = m
	s.mu.Unlock()

	s.SaveBestEffort(id)
	return id
}

// Resume reports whether the session is resident or loadable from storage,
// loading it into memory as a side effect. A false return is the normal
// "create a new one" signal, not an error.
func (s *Store) Resume(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return true
	}
	if s.persist == nil {
		return false
	}

	m, err := s.persist.Load(id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[session] load %s warning: %v", id, err)
		}
		return false
	}
	m.SetMaxHistory(s.maxHistory)
	s.sessions[id] = m
	return true
}

// Get returns the resident session memory for id.
func (s *Store) Get(id string) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[id]
	return m, ok
}

// List merges resident sessions with persisted-but-not-loaded ones. Each
// session id appears exactly once.
func (s *Store) List() []Summary {
	s.mu.Lock()
	summaries := make([]Summary, 0, len(s.sessions))
	seen := make(map[string]struct{}, len(s.sessions))
	for id, m := range s.sessions {
		summaries = append(summaries, summarize(m))
		seen[id] = struct{}{}
	}
	s.mu.Unlock()

	if s.persist != nil {
		ids, err := s.persist.ListIDs()
		if err != nil {
			log.Printf("[session] list persisted sessions warning: %v", err)
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			m, err := s.persist.Load(id)
			if err != nil {
				log.Printf("[session] load %s for listing warning: %v", id, err)
				continue
			}
			summaries = append(summaries, summarize(m))
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastAccessed.After(summaries[j].LastAccessed)
	})
	return summaries
}

// SaveBestEffort persists the session; storage errors are logged and
// swallowed.
func (s *Store) SaveBestEffort(id string) {
	if s.persist == nil {
		return
	}
	s.mu.Lock()
	m, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.persist.Save(id, m); err != nil {
		log.Printf("[session] save %s warning: %v", id, err)
	}
}

// LoadForRead returns the session whether resident or persisted, without
// making it resident. Used by history rendering.
func (s *Store) LoadForRead(id string) (*Memory, error) {
	if m, ok := s.Get(id); ok {
		return m, nil
	}
	if s.persist == nil {
		return nil, ErrNotFound
	}
	m, err := s.persist.Load(id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return m, nil
}

func summarize(m *Memory) Summary {
	companies := make([]string, len(m.Context.CompaniesDiscussed))
	copy(companies, m.Context.CompaniesDiscussed)
	categories := make([]string, len(m.Context.CategoriesExplored))
	copy(categories, m.Context.CategoriesExplored)
	return Summary{
		SessionID:    m.SessionID,
		CreatedAt:    m.CreatedAt,
		LastAccessed: m.LastAccessed,
		Exchanges:    len(m.History),
		Companies:    companies,
		Categories:   categories,
	}
}
