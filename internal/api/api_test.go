package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/apresai/duet/internal/dialogue"
	"github.com/apresai/duet/internal/discuss"
	"github.com/apresai/duet/internal/session"
	"github.com/apresai/duet/internal/tts"
)

const testOrigin = "http://localhost:3000"

// recordingCompleter returns a fixed two-line reply and keeps every prompt.
type recordingCompleter struct {
	mu      sync.Mutex
	prompts []string
}

func (c *recordingCompleter) Name() string { return "fake" }

func (c *recordingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return "Mike: Goroutines are cheap.\nMiley: And channels connect them.", nil
}

type fakeVoice struct {
	err error
}

func (f *fakeVoice) Name() string { return "fake-voice" }

func (f *fakeVoice) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.AudioResult, error) {
	if f.err != nil {
		return tts.AudioResult{}, f.err
	}
	return tts.AudioResult{Data: []byte("mp3:" + voice.ID + ":" + text), Format: tts.FormatMP3}, nil
}

func (f *fakeVoice) Close() error { return nil }

type testEnv struct {
	server    *httptest.Server
	store     session.Store
	completer *recordingCompleter
}

func newTestEnv(t *testing.T, voice *fakeVoice) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := session.OpenFile(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	completer := &recordingCompleter{}
	gen := dialogue.NewService(completer, dialogue.WithLogger(logger))
	speech := tts.NewAdapter(voice, nil, tts.WithLogger(logger))
	svc := discuss.NewService(store, gen, speech, discuss.Config{}, logger)

	h := NewHandler(svc, context.Background(), logger)
	srv := httptest.NewServer(NewRouter(h, testOrigin))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, store: store, completer: completer}
}

func (e *testEnv) post(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.server.URL+"/agents/discuss", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestDiscuss_NewSession(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})

	resp, body := env.post(t, `{"session_id":"","user_input":"hi","topic":"go routines"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	out := decode[DiscussResponse](t, body)

	if out.SessionID == "" {
		t.Fatal("session_id is empty")
	}
	if out.AgentAMessage != "Goroutines are cheap." || out.AgentBMessage != "And channels connect them." {
		t.Errorf("messages = %q / %q", out.AgentAMessage, out.AgentBMessage)
	}
	for name, voice := range map[string]string{"agentA": out.AgentAVoice, "agentB": out.AgentBVoice} {
		raw, err := base64.StdEncoding.DecodeString(voice)
		if err != nil || len(raw) == 0 {
			t.Errorf("%s voice is not non-empty base64: %v", name, err)
		}
	}
	raw, _ := base64.StdEncoding.DecodeString(out.AgentAVoice)
	if !bytes.HasPrefix(raw, []byte("mp3:"+tts.DefaultMikeVoice)) {
		t.Errorf("mike audio rendered with wrong voice: %q", raw)
	}

	sess, err := env.store.Get(context.Background(), out.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Step != 1 {
		t.Errorf("stored step = %d, want 1", sess.Step)
	}
	if sess.Topic != "go routines" {
		t.Errorf("stored topic = %q", sess.Topic)
	}
	if len(sess.History) != 3 {
		t.Errorf("history length = %d, want 3 (user, Mike, Miley)", len(sess.History))
	}
}

func TestDiscuss_ArticleHistoryAndCodeBlock(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})

	_, body := env.post(t, `{"user_input":"start","article_content":{"title":"Channels","description":[{"type":"paragraph","content":"Channels pass values."}]}}`)
	first := decode[DiscussResponse](t, body)

	req := fmt.Sprintf(`{"session_id":%q,"user_input":"show me code","article_content":{"title":"Channels","description":[],"code":"ch := make(chan int)","language":"go"}}`, first.SessionID)
	resp, body := env.post(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	second := decode[DiscussResponse](t, body)
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %s -> %s", first.SessionID, second.SessionID)
	}

	sess, err := env.store.Get(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.ArticleContentHistory) != 2 {
		t.Errorf("content history length = %d, want 2", len(sess.ArticleContentHistory))
	}
	if sess.Step != 2 {
		t.Errorf("step = %d, want 2", sess.Step)
	}

	env.completer.mu.Lock()
	prompts := append([]string(nil), env.completer.prompts...)
	env.completer.mu.Unlock()
	if len(prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(prompts))
	}
	if strings.Contains(prompts[0], "CODE (go):") {
		t.Error("first prompt should not contain a code block")
	}
	if !strings.Contains(prompts[1], "CODE (go):") {
		t.Error("second prompt should contain a code block")
	}
}

func TestDiscuss_Errors(t *testing.T) {
	tests := []struct {
		name       string
		voice      *fakeVoice
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "invalid json",
			voice:      &fakeVoice{},
			body:       `{"user_input":`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid request body",
		},
		{
			name:       "negative step",
			voice:      &fakeVoice{},
			body:       `{"user_input":"hi","step":-1}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "step must not be negative",
		},
		{
			name:       "synthesis failure",
			voice:      &fakeVoice{err: errors.New("quota exceeded")},
			body:       `{"user_input":"hi"}`,
			wantStatus: http.StatusInternalServerError,
			wantDetail: "TTS error: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.voice)
			resp, body := env.post(t, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
			out := decode[ErrorResponse](t, body)
			if !strings.HasPrefix(out.Detail, tt.wantDetail) && !strings.Contains(out.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want %q", out.Detail, tt.wantDetail)
			}
		})
	}
}

func TestDiscuss_SynthesisFailureStillPersists(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{err: errors.New("down")})
	resp, _ := env.post(t, `{"user_input":"hi"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	sums, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 1 || sums[0].Step != 1 {
		t.Fatalf("expected one persisted session at step 1, got %+v", sums)
	}
}

func TestSessionRoutes(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})
	_, body := env.post(t, `{"user_input":"hi","user_name":"Ada"}`)
	id := decode[DiscussResponse](t, body).SessionID

	resp, err := http.Get(env.server.URL + "/agents/sessions")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	sums := decode[[]session.Summary](t, data)
	if len(sums) != 1 || sums[0].ID != id || sums[0].UserName != "Ada" {
		t.Fatalf("summaries = %+v", sums)
	}

	resp, err = http.Get(env.server.URL + "/agents/sessions/" + id)
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if got := decode[session.Session](t, data); got.ID != id || got.Step != 1 {
		t.Errorf("session = %+v", got)
	}

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/agents/sessions/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(env.server.URL + "/agents/sessions/" + id)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})

	tests := []struct {
		origin     string
		wantHeader string
	}{
		{testOrigin, testOrigin},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/agents/discuss", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("preflight from %s: status %d", tt.origin, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
			t.Errorf("origin %s: allow-origin = %q, want %q", tt.origin, got, tt.wantHeader)
		}
		if tt.wantHeader != "" && resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
			t.Errorf("credentials not allowed for %s", tt.origin)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})
	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		prefix string
	}{
		{"conflict", &discuss.TurnError{Stage: "session", Message: "failed to save session", Err: session.ErrConflict}, http.StatusConflict, "session was modified"},
		{"not found", session.ErrNotFound, http.StatusNotFound, "session not found"},
		{"storage", &discuss.TurnError{Stage: "session", Message: "failed to load session", Err: &session.StorageError{Op: "get", Err: errors.New("disk full")}}, http.StatusInternalServerError, "storage error: "},
		{"generator", &discuss.TurnError{Stage: "generate", Message: "failed", Err: &dialogue.GeneratorError{Backend: "gemini", Err: errors.New("boom")}}, http.StatusInternalServerError, "generator gemini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := errorStatus(tt.err)
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if !strings.HasPrefix(detail, tt.prefix) {
				t.Errorf("detail = %q, want prefix %q", detail, tt.prefix)
			}
		})
	}
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv(t, &fakeVoice{})
	resp, err := http.Get(env.server.URL + "/swagger/doc.json")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("doc.json status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "/agents/discuss") {
		t.Error("doc.json does not describe /agents/discuss")
	}
}
