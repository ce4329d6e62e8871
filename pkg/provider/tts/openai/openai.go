// Package openai provides a speech synthesis provider backed by the OpenAI
// text-to-speech API.
//
// The provider requests raw PCM output, which the API emits at a fixed
// 24 kHz, 16-bit, mono. The sample rate is reported alongside the audio so
// downstream resampling stays the caller's decision.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/tts"
)

// pcmSampleRate is the fixed output rate of the OpenAI speech API for the
// "pcm" response format.
const pcmSampleRate = 24000

const defaultVoice = "alloy"

// Provider implements tts.Provider using the OpenAI speech API.
type Provider struct {
	client oai.Client
	model  string
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout on the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI speech Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Synthesize implements tts.Provider. The voice's ID selects one of the
// OpenAI preset voices; an empty ID falls back to "alloy".
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Result, error) {
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voiceOrDefault(voice)),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("openai: speech request: %w", err))
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read speech body: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("openai: speech response carried no audio")
	}

	return &tts.Result{PCM: pcm, SampleRate: pcmSampleRate}, nil
}

// voiceOrDefault resolves the preset voice name, falling back to "alloy"
// when the profile does not name one.
func voiceOrDefault(voice tts.VoiceProfile) string {
	if voice.ID == "" {
		return defaultVoice
	}
	return voice.ID
}

// classify annotates SDK failures with their HTTP status so the retry
// executor can distinguish rate limits and server errors from terminal
// request failures.
func classify(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		return resilience.WithStatus(err, apierr.StatusCode)
	}
	return err
}
