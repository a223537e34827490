// Package app assembles the duet service graph from configuration. Both the
// HTTP server and the MCP server build their dependencies here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/apresai/duet/internal/artifact"
	"github.com/apresai/duet/internal/config"
	"github.com/apresai/duet/internal/dialogue"
	"github.com/apresai/duet/internal/discuss"
	"github.com/apresai/duet/internal/observability"
	"github.com/apresai/duet/internal/session"
	"github.com/apresai/duet/internal/tts"
)

// App owns the long-lived components of a running duet process.
type App struct {
	Service  *discuss.Service
	Store    session.Store
	Dialogue *dialogue.Service
	Speech   *tts.Adapter
}

// New builds the store, generator, speech adapter and discussion service
// described by cfg. Provider keys must already be resolved (see
// config.Config.LoadSecrets).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var awsCfg *aws.Config
	if cfg.NeedsAWS() {
		loaded, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		awsCfg = &loaded
	}

	store, err := openStore(ctx, cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	gen, err := dialogue.New(ctx, dialogue.Options{
		Backend:     cfg.Dialogue.Backend,
		Model:       cfg.Dialogue.Model,
		APIKey:      dialogueKey(cfg),
		Temperature: cfg.Dialogue.Temperature,
		MaxTokens:   cfg.Dialogue.MaxTokens,
		AWS:         awsCfg,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create dialogue backend: %w", err)
	}
	dlg := dialogue.NewService(gen,
		dialogue.WithTimeout(cfg.Dialogue.Timeout),
		dialogue.WithStrict(cfg.Dialogue.Strict),
		dialogue.WithLogger(logger),
	)

	speech, err := newSpeech(ctx, cfg, awsCfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	svc := discuss.NewService(store, dlg, speech, discuss.Config{
		MikeVoice:     cfg.TTS.MikeVoice,
		MileyVoice:    cfg.TTS.MileyVoice,
		SaveArtifacts: cfg.Artifacts.Enabled,
	}, logger)

	logger.Info("duet ready",
		"store", cfg.Store.Backend,
		"dialogue", dlg.Backend(),
		"tts_fallback", cfg.TTS.Fallback,
		"artifacts", cfg.Artifacts.Enabled,
	)

	return &App{Service: svc, Store: store, Dialogue: dlg, Speech: speech}, nil
}

// Bootstrap validates cfg, resolves secrets, starts tracing when enabled
// and builds the application. The returned func flushes the tracer.
func Bootstrap(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*App, func(), error) {
	shutdownTracing := func() {}

	if cfg.Secrets.Prefix != "" {
		awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		cfg.LoadSecrets(ctx, config.NewSecretsClient(awsCfg), logger)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Version:     version,
			Environment: cfg.Tracing.Environment,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			shutdownTracing = func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := tp.Shutdown(flushCtx); err != nil {
					logger.Warn("Tracer shutdown failed", "error", err)
				}
			}
		}
	}

	a, err := New(ctx, cfg, logger)
	if err != nil {
		shutdownTracing()
		return nil, nil, err
	}
	return a, shutdownTracing, nil
}

// Close releases the speech providers and the session store.
func (a *App) Close() error {
	return errors.Join(a.Speech.Close(), a.Store.Close())
}

func openStore(ctx context.Context, cfg *config.Config, awsCfg *aws.Config) (session.Store, error) {
	opts := session.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		Table:   cfg.Store.Table,
	}
	if cfg.Store.Backend == "dynamodb" {
		opts.Dynamo = dynamodb.NewFromConfig(*awsCfg)
	}
	return session.Open(ctx, opts)
}

func dialogueKey(cfg *config.Config) string {
	switch cfg.Dialogue.Backend {
	case "claude":
		return cfg.Keys.Anthropic
	case "openai":
		return cfg.Keys.OpenAI
	case "nova":
		return ""
	default:
		return cfg.Keys.Gemini
	}
}

func newSpeech(ctx context.Context, cfg *config.Config, awsCfg *aws.Config, logger *slog.Logger) (*tts.Adapter, error) {
	var elOpts []tts.ElevenLabsOption
	if cfg.TTS.ElevenLabsURL != "" {
		elOpts = append(elOpts, tts.WithBaseURL(cfg.TTS.ElevenLabsURL))
	}
	primary := tts.NewElevenLabsProvider(cfg.Keys.ElevenLabs, elOpts...)

	var fallback tts.Fallback
	switch cfg.TTS.Fallback {
	case "google":
		g, err := tts.NewGoogleFallback(ctx)
		if err != nil {
			// Without Google credentials the service still runs on the
			// primary alone.
			logger.Warn("google fallback unavailable", "error", err)
		} else {
			fallback = g
		}
	case "polly":
		fallback = tts.NewPollyFallback(*awsCfg)
	}

	opts := []tts.AdapterOption{
		tts.WithFallbackLanguage(cfg.TTS.FallbackLanguage),
		tts.WithStageTimeout(cfg.TTS.Timeout),
		tts.WithLogger(logger),
	}
	if cfg.Artifacts.Enabled {
		sink, err := newSink(cfg, awsCfg)
		if err != nil {
			return nil, fmt.Errorf("create artifact sink: %w", err)
		}
		opts = append(opts, tts.WithSink(sink))
	}
	return tts.NewAdapter(primary, fallback, opts...), nil
}

func newSink(cfg *config.Config, awsCfg *aws.Config) (tts.Sink, error) {
	switch cfg.Artifacts.Sink {
	case "s3":
		return artifact.NewS3(s3.NewFromConfig(*awsCfg), cfg.Artifacts.Bucket, cfg.Artifacts.Prefix), nil
	default:
		return artifact.NewLocal(cfg.Artifacts.Dir)
	}
}
