package config

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client from awsCfg.
func NewSecretsClient(awsCfg aws.Config) SecretsAPI {
	return secretsmanager.NewFromConfig(awsCfg)
}

// LoadSecrets fills empty provider keys from Secrets Manager. Secret IDs are
// the configured prefix followed by the standard env var name. Keys already
// set from file or environment are left alone and missing secrets are only
// logged.
func (c *Config) LoadSecrets(ctx context.Context, client SecretsAPI, logger *slog.Logger) {
	if c.Secrets.Prefix == "" {
		return
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{EnvGemini, &c.Keys.Gemini},
		{EnvAnthropic, &c.Keys.Anthropic},
		{EnvOpenAI, &c.Keys.OpenAI},
		{EnvElevenLabs, &c.Keys.ElevenLabs},
	}

	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		secretID := c.Secrets.Prefix + t.name
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			*t.dst = *result.SecretString
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}
}
