// Package discuss runs one dialogue turn: it loads the session, asks the
// generator for the next two lines, persists the result and renders audio
// for both personas.
package discuss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/dialogue"
	"github.com/apresai/duet/internal/session"
	"github.com/apresai/duet/internal/tts"
)

const (
	DefaultUserName = "User"
	DefaultTopic    = "general"
)

// Request is one turn as submitted by a client.
type Request struct {
	UserName       string
	UserInput      string
	Topic          string
	Step           *int // nil means "use the stored step"
	MikeVoiceID    string
	MileyVoiceID   string
	SessionID      string
	ArticleContent *article.Content
}

// Response carries both utterances and their base64 MP3 audio.
type Response struct {
	MikeMessage  string
	MileyMessage string
	MikeVoice    string
	MileyVoice   string
	SessionID    string
	Step         int // step the turn was generated at
}

// Generator produces the next pair of utterances.
type Generator interface {
	Generate(ctx context.Context, in dialogue.PromptInput) (dialogue.Reply, error)
}

// Synthesizer renders one utterance as base64 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, persistName string) (string, error)
}

// Config holds the per-service defaults.
type Config struct {
	MikeVoice     string
	MileyVoice    string
	SaveArtifacts bool // name audio artifacts {session}-{step}-{persona}
}

type Service struct {
	store  session.Store
	gen    Generator
	synth  Synthesizer
	cfg    Config
	locks  *keyedMutex
	logger *slog.Logger
	tracer trace.Tracer
}

func NewService(store session.Store, gen Generator, synth Synthesizer, cfg Config, logger *slog.Logger) *Service {
	if cfg.MikeVoice == "" {
		cfg.MikeVoice = tts.DefaultMikeVoice
	}
	if cfg.MileyVoice == "" {
		cfg.MileyVoice = tts.DefaultMileyVoice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		gen:    gen,
		synth:  synth,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		logger: logger,
		tracer: otel.Tracer("duet/discuss"),
	}
}

// Discuss runs a single turn. The session is saved before audio is
// rendered, so a synthesis failure still advances the dialogue; the caller
// gets ErrSynthesis and no audio at all.
func (s *Service) Discuss(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.Step != nil && *req.Step < 0 {
		return nil, ErrInvalidStep
	}

	ctx, span := s.tracer.Start(ctx, "discuss.turn")
	defer span.End()

	if req.SessionID != "" {
		unlock := s.locks.Lock(req.SessionID)
		defer unlock()
	}

	sess, err := s.resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load session")
		return nil, &TurnError{Stage: "session", Message: "failed to load session", Err: err}
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	span.AddEvent("session.loaded", trace.WithAttributes(attribute.Bool("session.new", sess.Version == 0)))

	if req.UserName != "" && req.UserName != DefaultUserName {
		sess.UserName = req.UserName
	}
	if req.Topic != "" && req.Topic != DefaultTopic {
		sess.Topic = req.Topic
	}
	if req.UserInput != "" {
		sess.History = append(sess.History, dialogue.Turn{Speaker: sess.UserName, Text: req.UserInput})
	}
	if req.ArticleContent != nil {
		sess.ArticleContentHistory = append(sess.ArticleContentHistory, *req.ArticleContent.Clone())
	}

	step := sess.Step
	if req.Step != nil {
		step = *req.Step
	}
	span.SetAttributes(attribute.Int("dialogue.step", step))

	reply, err := s.gen.Generate(ctx, dialogue.PromptInput{
		History:  sess.History,
		Topic:    sess.Topic,
		UserName: sess.UserName,
		Step:     step,
		Article:  sess.CurrentArticle(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return nil, &TurnError{Stage: "generate", Message: "failed to generate dialogue", Err: err}
	}
	span.AddEvent("dialogue.generated")

	sess.History = append(sess.History,
		dialogue.Turn{Speaker: dialogue.Mike.Name, Text: reply.Mike},
		dialogue.Turn{Speaker: dialogue.Miley.Name, Text: reply.Miley},
	)
	sess.Step = step + 1

	if err := s.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save session")
		return nil, &TurnError{Stage: "session", Message: "failed to save session", Err: err}
	}
	span.AddEvent("session.saved", trace.WithAttributes(attribute.Int64("session.version", sess.Version)))

	mikeVoice, mileyVoice, err := s.synthesizeBoth(ctx, sess.ID, step, reply, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesize")
		return nil, &TurnError{Stage: "tts", Message: "failed to synthesize audio", Err: fmt.Errorf("%w: %w", ErrSynthesis, err)}
	}
	span.AddEvent("audio.synthesized")

	s.logger.InfoContext(ctx, "turn complete",
		"session_id", sess.ID,
		"step", step,
		"phase", dialogue.PhaseFor(step).String(),
		"turns", len(sess.History),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{
		MikeMessage:  reply.Mike,
		MileyMessage: reply.Miley,
		MikeVoice:    mikeVoice,
		MileyVoice:   mileyVoice,
		SessionID:    sess.ID,
		Step:         step,
	}, nil
}

// resolve loads the requested session, or starts a new one when the id is
// empty or unknown.
func (s *Service) resolve(ctx context.Context, req Request) (*session.Session, error) {
	if req.SessionID != "" {
		sess, err := s.store.Get(ctx, req.SessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
		s.logger.InfoContext(ctx, "unknown session, starting a new one", "requested_id", req.SessionID)
	}

	userName := req.UserName
	if userName == "" {
		userName = DefaultUserName
	}
	topic := req.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return session.New(topic, userName), nil
}

// synthesizeBoth renders both utterances concurrently. If either fails the
// other is cancelled and no audio is returned.
func (s *Service) synthesizeBoth(ctx context.Context, sessionID string, step int, reply dialogue.Reply, req Request) (string, string, error) {
	mikeVoiceID := firstNonEmpty(req.MikeVoiceID, s.cfg.MikeVoice)
	mileyVoiceID := firstNonEmpty(req.MileyVoiceID, s.cfg.MileyVoice)

	var mikeAudio, mileyAudio string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mikeAudio, err = s.speak(gctx, reply.Mike, mikeVoiceID, s.artifactName(sessionID, step, dialogue.Mike))
		if err != nil {
			return fmt.Errorf("%s: %w", dialogue.Mike.Name, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		mileyAudio, err = s.speak(gctx, reply.Miley, mileyVoiceID, s.artifactName(sessionID, step, dialogue.Miley))
		if err != nil {
			return fmt.Errorf("%s: %w", dialogue.Miley.Name, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return mikeAudio, mileyAudio, nil
}

// speak renders one line. A line the generator left empty has no audio.
func (s *Service) speak(ctx context.Context, text, voiceID, persistName string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return s.synth.Synthesize(ctx, text, voiceID, persistName)
}

func (s *Service) artifactName(sessionID string, step int, p dialogue.Persona) string {
	if !s.cfg.SaveArtifacts {
		return ""
	}
	return fmt.Sprintf("%s-%d-%s", sessionID, step, p.Name)
}

// Session returns the stored state of id.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	return s.store.Get(ctx, id)
}

// Sessions lists stored sessions, most recently updated first.
func (s *Service) Sessions(ctx context.Context) ([]session.Summary, error) {
	return s.store.List(ctx)
}

// Reset deletes a session so the next request with its id starts over.
func (s *Service) Reset(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
