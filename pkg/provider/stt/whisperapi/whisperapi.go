// Package whisperapi provides a speech recognition provider backed by an
// OpenAI-compatible audio transcription endpoint (POST
// /v1/audio/transcriptions, the Whisper API shape).
//
// The provider always requests response_format=verbose_json: unlike the
// plain response, the verbose payload carries the detected spoken language as
// a human-readable name ("english", "hindi", ...), which is what the
// pipeline's language normalizer consumes.
package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/stt"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API base URL (e.g. to target a local
// OpenAI-compatible transcription server). The "/audio/transcriptions" path
// is appended to it.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the transcription model identifier. Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider against the Whisper transcription API.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a new Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisperapi: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// verboseResponse is the subset of the verbose_json payload we consume.
type verboseResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe implements stt.Provider. It uploads the audio as
// multipart/form-data and decodes the verbose JSON transcription.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	filename := req.Filename
	if filename == "" {
		filename = "audio.wav"
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: create form file: %w", err)
	}
	if _, err := io.Copy(fw, req.Audio); err != nil {
		return nil, fmt.Errorf("whisperapi: copy audio: %w", err)
	}

	if err := mw.WriteField("model", p.model); err != nil {
		return nil, fmt.Errorf("whisperapi: write model field: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("whisperapi: write response_format field: %w", err)
	}
	if req.LanguageHint != "" {
		if err := mw.WriteField("language", req.LanguageHint); err != nil {
			return nil, fmt.Errorf("whisperapi: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisperapi: close multipart writer: %w", err)
	}

	endpoint := p.baseURL + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.WithStatus(
			fmt.Errorf("whisperapi: server returned HTTP %d: %s", resp.StatusCode, truncateBody(data)),
			resp.StatusCode,
		)
	}

	var result verboseResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisperapi: parse JSON response: %w", err)
	}

	return &stt.Result{
		Text:     result.Text,
		Language: result.Language,
	}, nil
}

// truncateBody shortens an error payload for inclusion in error messages.
func truncateBody(data []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
