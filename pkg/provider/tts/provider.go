// Package tts defines the Provider interface for speech synthesis backends.
//
// A synthesis provider converts one complete reply text into a single audio
// buffer suitable for playback over a telephone call. Unlike streaming
// speech interfaces, the contract here is batch: the caller hands over the
// full text and receives the full utterance, which keeps the retry semantics
// simple (a failed attempt can be repeated wholesale).
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile identifies a synthesis voice.
type VoiceProfile struct {
	// ID is the provider-assigned voice identifier.
	ID string

	// Name is a human-readable label for the voice.
	Name string

	// Provider names the backend the voice belongs to (e.g. "elevenlabs").
	Provider string

	// Metadata carries provider-specific attributes such as gender or accent.
	Metadata map[string]string
}

// Result is one synthesised utterance.
type Result struct {
	// PCM is raw 16-bit little-endian mono audio.
	PCM []byte

	// SampleRate is the sample rate of PCM in Hz. Backends differ here
	// (ElevenLabs can emit 16 kHz directly, OpenAI always emits 24 kHz), so
	// the rate travels with the audio instead of being assumed.
	SampleRate int
}

// Provider is the abstraction over any batch speech synthesis backend.
type Provider interface {
	// Synthesize converts text into one spoken utterance using the given
	// voice. Returns an error if the request fails or ctx is cancelled
	// first. Transient service failures should be wrapped with
	// resilience.WithStatus so the retry executor can classify them.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Result, error)
}
