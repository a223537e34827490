package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakePrimary struct {
	data  []byte
	err   error
	voice string
	delay time.Duration
}

func (f *fakePrimary) Name() string { return "fake-primary" }

func (f *fakePrimary) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	f.voice = voice.ID
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return AudioResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return AudioResult{}, f.err
	}
	return AudioResult{Data: f.data, Format: FormatMP3}, nil
}

func (f *fakePrimary) Close() error { return nil }

type fakeFallback struct {
	data     []byte
	err      error
	calls    int
	language string
}

func (f *fakeFallback) Name() string { return "fake-fallback" }

func (f *fakeFallback) SynthesizeLanguage(ctx context.Context, text, language string) (AudioResult, error) {
	f.calls++
	f.language = language
	if f.err != nil {
		return AudioResult{}, f.err
	}
	return AudioResult{Data: f.data, Format: FormatMP3}, nil
}

func (f *fakeFallback) Close() error { return nil }

type memorySink struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (s *memorySink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = data
	return "mem://" + name, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapter_Primary(t *testing.T) {
	primary := &fakePrimary{data: []byte("primary-audio")}
	fallback := &fakeFallback{data: []byte("fallback-audio")}
	sink := &memorySink{}
	a := NewAdapter(primary, fallback, WithSink(sink), WithLogger(quietLogger()))

	got, err := a.Synthesize(context.Background(), "hello", "voice-1", "s-0-Mike")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if want := base64.StdEncoding.EncodeToString([]byte("primary-audio")); got != want {
		t.Errorf("Synthesize() = %q, want %q", got, want)
	}
	if primary.voice != "voice-1" {
		t.Errorf("primary got voice %q", primary.voice)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on primary success", fallback.calls)
	}
	if string(sink.saved["s-0-Mike"]) != "primary-audio" {
		t.Errorf("artifact not persisted: %v", sink.saved)
	}
}

func TestAdapter_Fallback(t *testing.T) {
	primary := &fakePrimary{err: &RetryableError{StatusCode: 429, Body: "slow down"}}
	fallback := &fakeFallback{data: []byte("fallback-audio")}
	sink := &memorySink{}
	a := NewAdapter(primary, fallback, WithSink(sink), WithLogger(quietLogger()))

	got, err := a.Synthesize(context.Background(), "hello", "voice-1", "s-0-Mike")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if want := base64.StdEncoding.EncodeToString([]byte("fallback-audio")); got != want {
		t.Errorf("Synthesize() = %q, want %q", got, want)
	}
	if fallback.language != "en" {
		t.Errorf("fallback language = %q, want en", fallback.language)
	}
	if len(sink.saved) != 0 {
		t.Errorf("fallback audio should not be persisted: %v", sink.saved)
	}
}

func TestAdapter_FallbackLanguage(t *testing.T) {
	fallback := &fakeFallback{data: []byte("x")}
	a := NewAdapter(&fakePrimary{err: errors.New("down")}, fallback,
		WithFallbackLanguage("fr"), WithLogger(quietLogger()))

	if _, err := a.Synthesize(context.Background(), "bonjour", "v", ""); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if fallback.language != "fr" {
		t.Errorf("fallback language = %q, want fr", fallback.language)
	}
}

func TestAdapter_BothFail(t *testing.T) {
	primaryCause := errors.New("primary down")
	fallbackCause := errors.New("fallback down")
	a := NewAdapter(&fakePrimary{err: primaryCause}, &fakeFallback{err: fallbackCause}, WithLogger(quietLogger()))

	_, err := a.Synthesize(context.Background(), "hello", "v", "")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
	}
	if !errors.Is(err, primaryCause) || !errors.Is(err, fallbackCause) {
		t.Errorf("SynthesisError should wrap both causes: %v", err)
	}
	var primaryErr *PrimaryError
	if !errors.As(synthErr.Primary, &primaryErr) {
		t.Errorf("Primary = %v, want *PrimaryError", synthErr.Primary)
	}
}

func TestAdapter_NoFallback(t *testing.T) {
	a := NewAdapter(&fakePrimary{err: errors.New("down")}, nil, WithLogger(quietLogger()))
	_, err := a.Synthesize(context.Background(), "hello", "v", "")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
	}
}

func TestAdapter_StageTimeout(t *testing.T) {
	primary := &fakePrimary{data: []byte("late"), delay: time.Second}
	fallback := &fakeFallback{data: []byte("on-time")}
	a := NewAdapter(primary, fallback, WithStageTimeout(10*time.Millisecond), WithLogger(quietLogger()))

	got, err := a.Synthesize(context.Background(), "hello", "v", "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if want := base64.StdEncoding.EncodeToString([]byte("on-time")); got != want {
		t.Errorf("Synthesize() = %q, want fallback audio", got)
	}
}

func TestAdapter_SinkFailureIsIgnored(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	a := NewAdapter(&fakePrimary{data: []byte("a")}, nil, WithSink(sink), WithLogger(quietLogger()))

	if _, err := a.Synthesize(context.Background(), "hello", "v", "name"); err != nil {
		t.Fatalf("Synthesize() error = %v, want nil despite sink failure", err)
	}
}
