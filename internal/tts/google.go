package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

// googleRegions fills in a region for bare language codes; Cloud TTS wants
// a BCP-47 tag such as en-US.
var googleRegions = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ja": "ja-JP",
	"hi": "hi-IN",
}

// GoogleFallback implements Fallback using Google Cloud TTS. It selects
// voices by language only and lets the service pick the speaker.
type GoogleFallback struct {
	client *texttospeech.Client
}

func NewGoogleFallback(ctx context.Context) (*GoogleFallback, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	return &GoogleFallback{client: client}, nil
}

func (p *GoogleFallback) Name() string { return "google" }

func (p *GoogleFallback) SynthesizeLanguage(ctx context.Context, text, language string) (AudioResult, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: googleLanguageCode(language),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Google TTS synthesize: %w", err)
	}
	return AudioResult{Data: resp.AudioContent, Format: FormatMP3}, nil
}

func (p *GoogleFallback) Close() error { return p.client.Close() }

func googleLanguageCode(language string) string {
	if language == "" {
		return "en-US"
	}
	if code, ok := googleRegions[strings.ToLower(language)]; ok {
		return code
	}
	return language
}

func googleAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "en-US", Name: "English (US)", Description: "Service-selected voice for en-US", DefaultFor: "Mike, Miley"},
		{ID: "en-GB", Name: "English (UK)", Description: "Service-selected voice for en-GB"},
		{ID: "es-ES", Name: "Spanish", Description: "Service-selected voice for es-ES"},
		{ID: "fr-FR", Name: "French", Description: "Service-selected voice for fr-FR"},
		{ID: "de-DE", Name: "German", Description: "Service-selected voice for de-DE"},
	}
}
