// Package knowledge is the semantic knowledge store: financial research
// documents keyed by ticker, searchable by embedding similarity. Backed by
// sqlite; vectors are stored as binary blobs next to the document text.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Snippet is one retrieved document fragment.
type Snippet struct {
	Ticker string
	Text   string
	Score  float64
}

// Store is the sqlite-backed document store. Query is best-effort: with no
// embedder configured it returns empty results, never an error the engine
// has to special-case.
type Store struct {
	db       *sql.DB
	mu       sync.Mutex
	embedder Embedder
}

func NewStore(dbPath string, embedder Embedder) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, embedder: embedder}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			embedding_dim INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_ticker ON documents(ticker)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add embeds and stores one document. Requires a configured embedder.
func (s *Store) Add(ctx context.Context, ticker, content string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	content = strings.TrimSpace(content)
	if ticker == "" || content == "" {
		return fmt.Errorf("add document: empty ticker or content")
	}
	if s.embedder == nil {
		return fmt.Errorf("add document: no embedder configured")
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	blob, err := encodeVector(vector)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO documents (ticker, content, embedding, embedding_dim)
		VALUES (?, ?, ?, ?)
	`, ticker, content, blob, len(vector))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// AddBatch embeds and stores documents in one embedder round trip per chunk.
func (s *Store) AddBatch(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if s.embedder == nil {
		return 0, fmt.Errorf("add batch: no embedder configured")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("add batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("add batch: begin: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for i, d := range docs {
		blob, err := encodeVector(vectors[i])
		if err != nil {
			return 0, fmt.Errorf("add batch: %w", err)
		}
		ticker := strings.ToUpper(strings.TrimSpace(d.Ticker))
		if _, err := tx.Exec(`
			INSERT INTO documents (ticker, content, embedding, embedding_dim)
			VALUES (?, ?, ?, ?)
		`, ticker, strings.TrimSpace(d.Text), blob, len(vectors[i])); err != nil {
			return 0, fmt.Errorf("add batch: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add batch: commit: %w", err)
	}
	return inserted, nil
}

// Query embeds the query text and returns the topK most similar documents
// for the ticker. With no embedder configured, or no stored vectors, it
// returns an empty slice.
func (s *Store) Query(ctx context.Context, query, ticker string, topK int) ([]Snippet, error) {
	if s.embedder == nil {
		return nil, nil
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || topK <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content, embedding FROM documents
		WHERE ticker = ? AND embedding IS NOT NULL
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			continue
		}
		score, err := cosineSimilarity(queryVec, vector)
		if err != nil {
			continue
		}
		snippets = append(snippets, Snippet{Ticker: ticker, Text: content, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	sort.Slice(snippets, func(i, j int) bool { return snippets[i].Score > snippets[j].Score })
	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets, nil
}

// Count reports the number of stored documents.
func (s *Store) Count() (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM documents`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
