package session

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewStore(fs, 0), dir
}

func TestStoreCreateAndGet(t *testing.T) {
	store, dir := newTestStore(t)

	id := store.Create()
	if id == "" {
		t.Fatal("Create returned empty id")
	}
	if _, ok := store.Get(id); !ok {
		t.Fatal("created session not resident")
	}
	// Create persists immediately.
	if _, err := os.Stat(filepath.Join(dir, id+".json")); err != nil {
		t.Fatalf("session file not written: %v", err)
	}
}

func TestStoreResumeFromDisk(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	first := NewStore(fs, 0)
	id := first.Create()
	m, _ := first.Get(id)
	m.AddExchange("What is ESG?", "ESG stands for...", ExchangeMeta{Intent: "general", Category: "esg"})
	m.RecordCompanies([]string{"AAPL"})
	m.RecordCategory("esg")
	first.SaveBestEffort(id)

	// A fresh store over the same directory sees the persisted session.
	second := NewStore(fs, 0)
	if second.Resume("no-such-session") {
		t.Fatal("Resume reported true for unknown id")
	}
	if !second.Resume(id) {
		t.Fatal("Resume failed for persisted session")
	}
	got, ok := second.Get(id)
	if !ok {
		t.Fatal("resumed session not resident")
	}
	if len(got.History) != 1 || got.History[0].Query != "What is ESG?" {
		t.Fatalf("resumed history = %+v", got.History)
	}
	if len(got.Context.CompaniesDiscussed) != 1 || got.Context.CompaniesDiscussed[0] != "AAPL" {
		t.Fatalf("resumed companies = %v", got.Context.CompaniesDiscussed)
	}
	if got.History[0].Meta.Category != "esg" {
		t.Fatalf("resumed exchange meta = %+v", got.History[0].Meta)
	}
}

func TestStoreListMergesResidentAndPersisted(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	seed := NewStore(fs, 0)
	persistedID := seed.Create()

	store := NewStore(fs, 0)
	residentID := store.Create()

	summaries := store.List()
	if len(summaries) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(summaries))
	}
	seen := map[string]bool{}
	for _, s := range summaries {
		seen[s.SessionID] = true
	}
	if !seen[persistedID] || !seen[residentID] {
		t.Fatalf("List missing a session: %+v", summaries)
	}
	// Listing must not make persisted sessions resident.
	if _, ok := store.Get(persistedID); ok {
		t.Fatal("List made a persisted session resident")
	}
}

func TestStoreLoadForRead(t *testing.T) {
	store, _ := newTestStore(t)
	id := store.Create()

	if _, err := store.LoadForRead(id); err != nil {
		t.Fatalf("LoadForRead resident: %v", err)
	}
	if _, err := store.LoadForRead("missing"); err == nil {
		t.Fatal("LoadForRead for unknown id succeeded")
	}
}

func TestFileStoreRejectsEmptyDir(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatal("NewFileStore accepted blank dir")
	}
}

func TestFileStoreLoadUnknown(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := fs.Load("missing"); err != ErrNotFound {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
}
