package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stellarlinkco/finclaw/internal/config"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "not set"},
		{"short", "set"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}

	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestProviderDisplay(t *testing.T) {
	if got := providerDisplay(""); got != "anthropic (default)" {
		t.Errorf("providerDisplay(\"\") = %q", got)
	}
	if got := providerDisplay("openai"); got != "openai" {
		t.Errorf("providerDisplay(openai) = %q", got)
	}
}

func TestConfiguredDisplay(t *testing.T) {
	if got := configuredDisplay(""); got != "not configured" {
		t.Errorf("configuredDisplay(\"\") = %q", got)
	}
	if got := configuredDisplay("key"); got != "configured" {
		t.Errorf("configuredDisplay(key) = %q", got)
	}
}

func TestBuildAgent_Offline(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Dir = t.TempDir()
	cfg.Knowledge.DBPath = t.TempDir() + "/knowledge.db"

	var stderr strings.Builder
	ag, kb, err := buildAgent(cfg, &stderr)
	if err != nil {
		t.Fatalf("buildAgent: %v", err)
	}
	if kb != nil {
		defer kb.Close()
	}
	if ag == nil {
		t.Fatal("expected agent")
	}

	// All providers are unconfigured, so each should have logged a note.
	notes := stderr.String()
	for _, want := range []string{"llm provider disabled", "market provider disabled", "search provider disabled"} {
		if !strings.Contains(notes, want) {
			t.Errorf("stderr missing %q, got %q", want, notes)
		}
	}

	id := ag.CreateSession()
	if id == "" {
		t.Fatal("expected session id")
	}
}

func TestBuildAgent_SessionRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Dir = t.TempDir()
	cfg.Knowledge.DBPath = t.TempDir() + "/knowledge.db"

	ag, kb, err := buildAgent(cfg, io.Discard)
	if err != nil {
		t.Fatalf("buildAgent: %v", err)
	}
	if kb != nil {
		defer kb.Close()
	}

	id := ag.CreateSession()

	// A second agent over the same session dir should resume the session.
	ag2, kb2, err := buildAgent(cfg, io.Discard)
	if err != nil {
		t.Fatalf("buildAgent second: %v", err)
	}
	if kb2 != nil {
		defer kb2.Close()
	}
	if !ag2.ResumeSession(id) {
		t.Errorf("expected to resume session %s from disk", id)
	}
	if ag2.ResumeSession("does-not-exist") {
		t.Error("resume of unknown session should report false")
	}
}
