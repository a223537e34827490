package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

type pollyVoice struct {
	lang  types.LanguageCode
	voice types.VoiceId
}

// pollyDefaults is the one generative voice used per language. Bare codes
// map to their most common region.
var pollyDefaults = map[string]pollyVoice{
	"en":    {types.LanguageCodeEnUs, types.VoiceIdRuth},
	"en-us": {types.LanguageCodeEnUs, types.VoiceIdRuth},
	"en-gb": {types.LanguageCodeEnGb, types.VoiceIdAmy},
	"en-au": {types.LanguageCodeEnAu, types.VoiceIdOlivia},
	"en-in": {types.LanguageCodeEnIn, types.VoiceIdKajal},
	"es":    {types.LanguageCodeEsEs, types.VoiceIdLucia},
	"fr":    {types.LanguageCodeFrFr, types.VoiceIdLea},
	"de":    {types.LanguageCodeDeDe, types.VoiceIdVicki},
}

// PollyFallback implements Fallback using AWS Polly (Generative engine).
type PollyFallback struct {
	client *polly.Client
}

func NewPollyFallback(cfg aws.Config) *PollyFallback {
	return &PollyFallback{client: polly.NewFromConfig(cfg)}
}

func (p *PollyFallback) Name() string { return "polly" }

func (p *PollyFallback) SynthesizeLanguage(ctx context.Context, text, language string) (AudioResult, error) {
	v, ok := pollyDefaults[strings.ToLower(language)]
	if !ok {
		return AudioResult{}, fmt.Errorf("Polly: no default voice for language %q", language)
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineGenerative,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      v.voice,
		LanguageCode: v.lang,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly read audio: %w", err)
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *PollyFallback) Close() error { return nil }

func pollyAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Ruth", Name: "Ruth", Gender: "female", Description: "en-US, Generative", DefaultFor: "Mike, Miley"},
		{ID: "Amy", Name: "Amy", Gender: "female", Description: "en-GB, Generative"},
		{ID: "Olivia", Name: "Olivia", Gender: "female", Description: "en-AU, Generative"},
		{ID: "Kajal", Name: "Kajal", Gender: "female", Description: "en-IN, Generative"},
		{ID: "Lucia", Name: "Lucia", Gender: "female", Description: "es-ES, Generative"},
		{ID: "Lea", Name: "Lea", Gender: "female", Description: "fr-FR, Generative"},
		{ID: "Vicki", Name: "Vicki", Gender: "female", Description: "de-DE, Generative"},
	}
}
