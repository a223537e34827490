package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Generator is a text-completion backend.
type Generator interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrIncompleteReply is returned in strict mode when a persona line is
// missing from the model output.
var ErrIncompleteReply = errors.New("incomplete reply")

// GeneratorError wraps a backend failure, including timeouts.
type GeneratorError struct {
	Backend string
	Err     error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator %s: %v", e.Backend, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// Options selects and configures a backend.
type Options struct {
	Backend     string // gemini, claude, openai or nova
	Model       string // backend-specific model alias or ID; empty picks the default
	APIKey      string
	Temperature float64
	MaxTokens   int
	AWS         *aws.Config // required by nova
}

// New creates the backend named by opts.Backend.
func New(ctx context.Context, opts Options) (Generator, error) {
	switch opts.Backend {
	case "", "gemini":
		return NewGeminiGenerator(ctx, opts)
	case "claude":
		return NewClaudeGenerator(opts), nil
	case "openai":
		return NewOpenAIGenerator(opts), nil
	case "nova":
		if opts.AWS == nil {
			return nil, fmt.Errorf("nova generator requires an AWS config")
		}
		return NewNovaGenerator(*opts.AWS, opts), nil
	default:
		return nil, fmt.Errorf("unknown dialogue backend %q: choose gemini, claude, openai, or nova", opts.Backend)
	}
}

// Service turns a prompt input into a two-persona reply using one backend.
type Service struct {
	gen     Generator
	timeout time.Duration
	strict  bool
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithStrict makes a missing persona line an error instead of an empty
// utterance.
func WithStrict(strict bool) ServiceOption {
	return func(s *Service) { s.strict = strict }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func NewService(gen Generator, opts ...ServiceOption) *Service {
	s := &Service{gen: gen, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Backend returns the name of the underlying generator.
func (s *Service) Backend() string { return s.gen.Name() }

// Generate builds the prompt for in, calls the backend exactly once and
// parses the reply.
func (s *Service) Generate(ctx context.Context, in PromptInput) (Reply, error) {
	ctx, span := otel.Tracer("duet/dialogue").Start(ctx, "dialogue.generate")
	defer span.End()

	phase := PhaseFor(in.Step)
	span.SetAttributes(
		attribute.String("dialogue.backend", s.gen.Name()),
		attribute.String("dialogue.phase", phase.String()),
		attribute.Int("dialogue.history", len(in.History)),
	)

	prompt := BuildPrompt(in)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.gen.Complete(callCtx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return Reply{}, &GeneratorError{Backend: s.gen.Name(), Err: err}
	}

	reply := ParseReply(raw)
	s.logger.InfoContext(ctx, "dialogue generated",
		"backend", s.gen.Name(),
		"phase", phase.String(),
		"prompt_chars", len(prompt),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if missing := reply.Missing(); len(missing) > 0 {
		if s.strict {
			span.SetStatus(codes.Error, "incomplete reply")
			return Reply{}, fmt.Errorf("%w: missing %v", ErrIncompleteReply, missing)
		}
		s.logger.WarnContext(ctx, "reply missing persona lines", "missing", missing, "raw_chars", len(raw))
	}
	return reply, nil
}
