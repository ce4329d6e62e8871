// Package stt defines the Provider interface for speech recognition backends.
//
// A recognition provider wraps a batch transcription service and converts one
// utterance of recorded audio into text. Providers report the spoken language
// as a free-text, human-readable name (e.g. "Hindi", "english") rather than a
// code; normalizing that inconsistency into a short language code is the
// pipeline's job, not the provider's.
//
// Implementations must be safe for concurrent use; multiple calls may be
// transcribed at once.
package stt

import (
	"context"
	"io"
)

// Request describes one utterance submitted for transcription.
type Request struct {
	// Audio is the utterance, read once, in a container format the service
	// accepts (the pipeline submits WAV).
	Audio io.Reader

	// Filename is the name the audio is uploaded under. Some services sniff
	// the container format from its extension.
	Filename string

	// LanguageHint is an optional short language code biasing recognition.
	// Empty means auto-detect.
	LanguageHint string
}

// Result is the transcription of one utterance.
type Result struct {
	// Text is the transcribed speech content, verbatim from the service.
	Text string

	// Language is the detected spoken language exactly as the service
	// reported it: a free-text name, not a code. May be empty when the
	// service does not report a language.
	Language string
}

// Provider is the abstraction over any batch speech recognition backend.
type Provider interface {
	// Transcribe submits one utterance and waits for the transcription.
	// Returns an error if the request fails or ctx is cancelled first.
	// Transient service failures should be wrapped with resilience.WithStatus
	// so the retry executor can classify them.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
