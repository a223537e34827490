package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Sink stores raw audio under a name. Implementations live in the artifact
// package.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// PrimaryError is the failure of the voice-specific provider.
type PrimaryError struct {
	Provider string
	Err      error
}

func (e *PrimaryError) Error() string {
	return fmt.Sprintf("primary TTS %s: %v", e.Provider, e.Err)
}

func (e *PrimaryError) Unwrap() error { return e.Err }

// SynthesisError reports that both the primary and the fallback failed.
type SynthesisError struct {
	Primary  error
	Fallback error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *SynthesisError) Unwrap() []error { return []error{e.Primary, e.Fallback} }

// Adapter turns text into base64 MP3 with a primary provider and a
// language-only fallback.
type Adapter struct {
	primary  Provider
	fallback Fallback
	language string
	timeout  time.Duration
	sink     Sink
	logger   *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithFallbackLanguage sets the language passed to the fallback. Default "en".
func WithFallbackLanguage(lang string) AdapterOption {
	return func(a *Adapter) { a.language = lang }
}

// WithStageTimeout bounds each stage separately. Zero disables the bound.
func WithStageTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = d }
}

// WithSink persists primary audio when a persist name is given.
func WithSink(s Sink) AdapterOption {
	return func(a *Adapter) { a.sink = s }
}

func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

func NewAdapter(primary Provider, fallback Fallback, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		primary:  primary,
		fallback: fallback,
		language: "en",
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Synthesize renders text with voiceID and returns the MP3 as standard
// base64. When the primary provider fails the fallback renders the text in
// the configured language instead; the voice is not preserved. persistName,
// when non-empty and a sink is configured, names the raw primary audio
// artifact. Persisting is best-effort and never fails the call.
func (a *Adapter) Synthesize(ctx context.Context, text, voiceID, persistName string) (string, error) {
	ctx, span := otel.Tracer("duet/tts").Start(ctx, "tts.synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.primary", a.primary.Name()),
		attribute.String("tts.voice", voiceID),
		attribute.Int("tts.chars", len(text)),
	)

	audio, err := a.runPrimary(ctx, text, voiceID)
	if err == nil {
		a.persist(ctx, persistName, audio.Data)
		return base64.StdEncoding.EncodeToString(audio.Data), nil
	}

	primaryErr := &PrimaryError{Provider: a.primary.Name(), Err: err}
	span.RecordError(primaryErr)
	a.logger.WarnContext(ctx, "primary TTS failed, using fallback",
		"primary", a.primary.Name(),
		"fallback", a.fallbackName(),
		"voice", voiceID,
		"error", err,
	)

	if a.fallback == nil {
		span.SetStatus(codes.Error, "no fallback")
		return "", &SynthesisError{Primary: primaryErr, Fallback: fmt.Errorf("no fallback configured")}
	}

	audio, err = a.runFallback(ctx, text)
	if err != nil {
		span.SetStatus(codes.Error, "fallback failed")
		return "", &SynthesisError{Primary: primaryErr, Fallback: err}
	}
	span.SetAttributes(attribute.Bool("tts.fallback_used", true))
	return base64.StdEncoding.EncodeToString(audio.Data), nil
}

func (a *Adapter) runPrimary(ctx context.Context, text, voiceID string) (AudioResult, error) {
	ctx, cancel := a.stageContext(ctx)
	defer cancel()
	return a.primary.Synthesize(ctx, text, Voice{ID: voiceID})
}

func (a *Adapter) runFallback(ctx context.Context, text string) (AudioResult, error) {
	ctx, cancel := a.stageContext(ctx)
	defer cancel()
	return a.fallback.SynthesizeLanguage(ctx, text, a.language)
}

func (a *Adapter) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Adapter) persist(ctx context.Context, name string, data []byte) {
	if a.sink == nil || name == "" {
		return
	}
	loc, err := a.sink.Save(ctx, name, data)
	if err != nil {
		a.logger.WarnContext(ctx, "audio artifact not saved", "name", name, "error", err)
		return
	}
	a.logger.DebugContext(ctx, "audio artifact saved", "name", name, "location", loc)
}

func (a *Adapter) fallbackName() string {
	if a.fallback == nil {
		return ""
	}
	return a.fallback.Name()
}

// Close releases both providers.
func (a *Adapter) Close() error {
	var firstErr error
	if err := a.primary.Close(); err != nil {
		firstErr = err
	}
	if a.fallback != nil {
		if err := a.fallback.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
