// Package config handles loading and validating the duet configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the duet server and CLI.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Keys      KeysConfig      `mapstructure:"keys"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the session backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, dynamodb, file
	Path    string `mapstructure:"path"`    // sqlite database or JSON document
	Table   string `mapstructure:"table"`   // DynamoDB table
}

// DialogueConfig selects and configures the text generator.
type DialogueConfig struct {
	Backend     string        `mapstructure:"backend"` // gemini, claude, openai, nova
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Strict      bool          `mapstructure:"strict"` // missing persona line is an error
}

// TTSConfig configures the primary voice provider and its fallback.
type TTSConfig struct {
	Fallback         string        `mapstructure:"fallback"`          // google, polly, none
	FallbackLanguage string        `mapstructure:"fallback_language"` // language code for the fallback
	Timeout          time.Duration `mapstructure:"timeout"`           // per stage
	MikeVoice        string        `mapstructure:"mike_voice"`
	MileyVoice       string        `mapstructure:"miley_voice"`
	ElevenLabsURL    string        `mapstructure:"elevenlabs_url"`
}

// ArtifactsConfig controls persisting raw MP3s.
type ArtifactsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sink    string `mapstructure:"sink"` // local, s3
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// SecretsConfig enables loading API keys from AWS Secrets Manager. Secret
// IDs are the prefix followed by the standard env var name.
type SecretsConfig struct {
	Prefix string `mapstructure:"prefix"` // e.g. "/duet/"
}

// KeysConfig holds provider API keys.
type KeysConfig struct {
	Gemini     string `mapstructure:"gemini"`
	Anthropic  string `mapstructure:"anthropic"`
	OpenAI     string `mapstructure:"openai"`
	ElevenLabs string `mapstructure:"elevenlabs"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type MCPConfig struct {
	Port int `mapstructure:"port"`
}

// Standard env var names for provider keys, also used as Secrets Manager
// secret names.
const (
	EnvGemini     = "GEMINI_API_KEY"
	EnvAnthropic  = "ANTHROPIC_API_KEY"
	EnvOpenAI     = "OPENAI_API_KEY"
	EnvElevenLabs = "ELEVENLABS_API_KEY"
)

// Load reads the configuration from .env, file, environment variables, and
// defaults. If configFile is non-empty it is used directly; otherwise the
// standard search order applies: ./duet.yaml, ./configs/duet.yaml,
// /etc/duet/duet.yaml.
func Load(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("duet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/duet")
	}

	// Environment variables: DUET_SERVER_PORT, DUET_DIALOGUE_BACKEND, etc.
	v.SetEnvPrefix("DUET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.resolveKeys()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origin", "http://localhost:3000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", "data/duet.db")
	v.SetDefault("store.table", "duet-sessions")
	v.SetDefault("dialogue.backend", "gemini")
	v.SetDefault("dialogue.model", "")
	v.SetDefault("dialogue.temperature", 0.7)
	v.SetDefault("dialogue.max_tokens", 1024)
	v.SetDefault("dialogue.timeout", 30*time.Second)
	v.SetDefault("dialogue.strict", false)
	v.SetDefault("tts.fallback", "google")
	v.SetDefault("tts.fallback_language", "en")
	v.SetDefault("tts.timeout", 30*time.Second)
	v.SetDefault("tts.mike_voice", "CwhRBWXzGAHq8TQ4Fs17")
	v.SetDefault("tts.miley_voice", "9BWtsMINqrJLrRacOk9x")
	v.SetDefault("tts.elevenlabs_url", "")
	v.SetDefault("artifacts.enabled", false)
	v.SetDefault("artifacts.sink", "local")
	v.SetDefault("artifacts.dir", "generated_voices")
	v.SetDefault("artifacts.bucket", "")
	v.SetDefault("artifacts.prefix", "voices/")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("secrets.prefix", "")
	v.SetDefault("keys.gemini", "")
	v.SetDefault("keys.anthropic", "")
	v.SetDefault("keys.openai", "")
	v.SetDefault("keys.elevenlabs", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "duet")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("mcp.port", 8001)
}

// resolveKeys expands "${VAR}" references and falls back to the standard
// provider env vars for keys left empty.
func (c *Config) resolveKeys() {
	c.Keys.Gemini = keyOr(c.Keys.Gemini, EnvGemini)
	c.Keys.Anthropic = keyOr(c.Keys.Anthropic, EnvAnthropic)
	c.Keys.OpenAI = keyOr(c.Keys.OpenAI, EnvOpenAI)
	c.Keys.ElevenLabs = keyOr(c.Keys.ElevenLabs, EnvElevenLabs)
}

func keyOr(val, envKey string) string {
	if val = resolveEnvRef(val); val != "" {
		return val
	}
	return os.Getenv(envKey)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		return os.Getenv(envKey)
	}
	return val
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}

	switch c.Store.Backend {
	case "sqlite", "file":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the "+c.Store.Backend+" store")
		}
	case "dynamodb":
		if c.Store.Table == "" {
			problems = append(problems, "store.table is required for the dynamodb store")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q must be sqlite, dynamodb, or file", c.Store.Backend))
	}

	switch c.Dialogue.Backend {
	case "gemini":
		if c.Keys.Gemini == "" {
			problems = append(problems, EnvGemini+" is required for the gemini backend")
		}
	case "claude":
		if c.Keys.Anthropic == "" {
			problems = append(problems, EnvAnthropic+" is required for the claude backend")
		}
	case "openai":
		if c.Keys.OpenAI == "" {
			problems = append(problems, EnvOpenAI+" is required for the openai backend")
		}
	case "nova":
	default:
		problems = append(problems, fmt.Sprintf("dialogue.backend %q must be gemini, claude, openai, or nova", c.Dialogue.Backend))
	}

	switch c.TTS.Fallback {
	case "google", "polly", "none":
	default:
		problems = append(problems, fmt.Sprintf("tts.fallback %q must be google, polly, or none", c.TTS.Fallback))
	}

	if c.Artifacts.Enabled {
		switch c.Artifacts.Sink {
		case "local":
			if c.Artifacts.Dir == "" {
				problems = append(problems, "artifacts.dir is required for the local sink")
			}
		case "s3":
			if c.Artifacts.Bucket == "" {
				problems = append(problems, "artifacts.bucket is required for the s3 sink")
			}
		default:
			problems = append(problems, fmt.Sprintf("artifacts.sink %q must be local or s3", c.Artifacts.Sink))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// NeedsAWS reports whether any selected component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.Store.Backend == "dynamodb" ||
		c.Dialogue.Backend == "nova" ||
		c.TTS.Fallback == "polly" ||
		(c.Artifacts.Enabled && c.Artifacts.Sink == "s3") ||
		c.Secrets.Prefix != ""
}
