package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvGemini, EnvAnthropic, EnvOpenAI, EnvElevenLabs} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.AllowedOrigin != "http://localhost:3000" {
		t.Errorf("allowed origin = %q", cfg.Server.AllowedOrigin)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("store backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Dialogue.Backend != "gemini" || cfg.Dialogue.Timeout != 30*time.Second {
		t.Errorf("dialogue = %+v", cfg.Dialogue)
	}
	if cfg.TTS.Fallback != "google" || cfg.TTS.FallbackLanguage != "en" {
		t.Errorf("tts = %+v", cfg.TTS)
	}
	if cfg.Artifacts.Enabled || cfg.Artifacts.Dir != "generated_voices" {
		t.Errorf("artifacts = %+v", cfg.Artifacts)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "duet.yaml")
	yaml := `
server:
  port: 9000
dialogue:
  backend: claude
  timeout: 45s
keys:
  anthropic: ${TEST_DUET_ANTHROPIC}
tts:
  fallback: polly
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_DUET_ANTHROPIC", "sk-test")
	t.Setenv("DUET_SERVER_PORT", "9100")
	t.Setenv(EnvElevenLabs, "el-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Dialogue.Backend != "claude" {
		t.Errorf("backend = %q, want claude", cfg.Dialogue.Backend)
	}
	if cfg.Dialogue.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", cfg.Dialogue.Timeout)
	}
	if cfg.Keys.Anthropic != "sk-test" {
		t.Errorf("anthropic key = %q, want resolved env ref", cfg.Keys.Anthropic)
	}
	if cfg.Keys.ElevenLabs != "el-key" {
		t.Errorf("elevenlabs key = %q, want standard env fallback", cfg.Keys.ElevenLabs)
	}
	if cfg.TTS.Fallback != "polly" || !cfg.NeedsAWS() {
		t.Errorf("polly fallback should require AWS, got %+v", cfg.TTS)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duet.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("TEST_DUET_REF", "value")
	tests := []struct {
		in, want string
	}{
		{"${TEST_DUET_REF}", "value"},
		{"${TEST_DUET_MISSING_REF}", ""},
		{"literal", "literal"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := resolveEnvRef(tt.in); got != tt.want {
			t.Errorf("resolveEnvRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8000},
		Store:    StoreConfig{Backend: "sqlite", Path: "data/duet.db"},
		Dialogue: DialogueConfig{Backend: "gemini"},
		TTS:      TTSConfig{Fallback: "google"},
		Keys:     KeysConfig{Gemini: "g"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantErr: "store.backend"},
		{name: "dynamo without table", mutate: func(c *Config) { c.Store = StoreConfig{Backend: "dynamodb"} }, wantErr: "store.table"},
		{name: "missing gemini key", mutate: func(c *Config) { c.Keys.Gemini = "" }, wantErr: EnvGemini},
		{name: "nova needs no key", mutate: func(c *Config) { c.Dialogue.Backend = "nova"; c.Keys.Gemini = "" }},
		{name: "unknown fallback", mutate: func(c *Config) { c.TTS.Fallback = "espeak" }, wantErr: "tts.fallback"},
		{name: "s3 without bucket", mutate: func(c *Config) {
			c.Artifacts = ArtifactsConfig{Enabled: true, Sink: "s3"}
		}, wantErr: "artifacts.bucket"},
		{name: "disabled artifacts ignored", mutate: func(c *Config) {
			c.Artifacts = ArtifactsConfig{Enabled: false, Sink: "s3"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

type fakeSecrets struct {
	values    map[string]string
	requested []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.requested = append(f.requested, *in.SecretId)
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestLoadSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Secrets.Prefix = "/duet/"
	cfg.Keys.ElevenLabs = ""
	client := &fakeSecrets{values: map[string]string{
		"/duet/" + EnvElevenLabs: "from-secrets",
		"/duet/" + EnvGemini:     "should-not-be-used",
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg.LoadSecrets(context.Background(), client, logger)

	if cfg.Keys.ElevenLabs != "from-secrets" {
		t.Errorf("elevenlabs = %q, want from-secrets", cfg.Keys.ElevenLabs)
	}
	if cfg.Keys.Gemini != "g" {
		t.Errorf("gemini key was overwritten: %q", cfg.Keys.Gemini)
	}
	for _, id := range client.requested {
		if id == "/duet/"+EnvGemini {
			t.Error("requested secret for a key that was already set")
		}
	}
}

func TestLoadSecrets_NoPrefix(t *testing.T) {
	cfg := validConfig()
	client := &fakeSecrets{}
	cfg.LoadSecrets(context.Background(), client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if len(client.requested) != 0 {
		t.Fatalf("expected no lookups, got %v", client.requested)
	}
}
