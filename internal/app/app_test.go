package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/apresai/duet/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:   config.ServerConfig{Port: 8000},
		Store:    config.StoreConfig{Backend: "file", Path: filepath.Join(dir, "sessions.json")},
		Dialogue: config.DialogueConfig{Backend: "claude", Temperature: 0.7, MaxTokens: 512},
		TTS:      config.TTSConfig{Fallback: "none", FallbackLanguage: "en"},
		Artifacts: config.ArtifactsConfig{
			Enabled: true,
			Sink:    "local",
			Dir:     filepath.Join(dir, "voices"),
		},
		Keys: config.KeysConfig{Anthropic: "test-key", ElevenLabs: "test-key"},
	}
}

func TestNew_WiresComponents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(t), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Service == nil || a.Store == nil || a.Speech == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if got := a.Dialogue.Backend(); got != "claude" {
		t.Errorf("dialogue backend = %q, want claude", got)
	}

	sessions, err := a.Service.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("fresh store has %d sessions", len(sessions))
	}
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "redis"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestDialogueKey(t *testing.T) {
	cfg := &config.Config{Keys: config.KeysConfig{Gemini: "g", Anthropic: "a", OpenAI: "o"}}
	for backend, want := range map[string]string{"gemini": "g", "claude": "a", "openai": "o", "nova": ""} {
		cfg.Dialogue.Backend = backend
		if got := dialogueKey(cfg); got != want {
			t.Errorf("dialogueKey(%s) = %q, want %q", backend, got, want)
		}
	}
}

func TestBootstrap_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keys.Anthropic = ""
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, _, err := Bootstrap(context.Background(), cfg, "test", logger); err == nil {
		t.Fatal("expected validation error for missing API key")
	}
}

func TestBootstrap_Builds(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, shutdown, err := Bootstrap(context.Background(), testConfig(t), "test", logger)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer shutdown()
	defer a.Close()
}
