// Package pipeline orchestrates one conversational turn of the assistant:
// speech recognition, translation into the pivot language, grounded reply
// generation, translation back, and speech synthesis.
//
// The five stages of a turn run strictly sequentially, each feeding the
// next, and every outbound call goes through the resilience executor with
// its own timeout and retry budget. Independent turns need no coordination:
// the pipeline holds only read-only state after construction and a backoff
// delay blocks nothing but its own turn.
package pipeline

import (
	"fmt"
	"time"

	"github.com/cmelnyk/pharmaline/internal/knowledge"
	"github.com/cmelnyk/pharmaline/internal/lang"
	"github.com/cmelnyk/pharmaline/internal/observe"
	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/llm"
	"github.com/cmelnyk/pharmaline/pkg/provider/stt"
	"github.com/cmelnyk/pharmaline/pkg/provider/tts"
)

// Stage labels used in errors, logs, and metric attributes.
const (
	StageRecognition = "recognition"
	StageTranslation = "translation"
	StageReasoning   = "reasoning"
	StageSynthesis   = "synthesis"
)

// StageError wraps a failure with the pipeline stage it came from, so the
// call-session layer can pick user-facing fallback behaviour per stage.
type StageError struct {
	// Stage is one of the Stage* labels.
	Stage string

	// Err is the underlying failure, unchanged in kind.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *StageError) Unwrap() error { return e.Err }

// RecognitionResult is the outcome of the recognition stage.
type RecognitionResult struct {
	// Text is the trimmed transcription. Empty for near-silent input.
	Text string

	// Language is the normalized short code of the detected spoken language.
	Language string
}

// TurnResult is the outcome of one full conversational turn.
type TurnResult struct {
	// Query is the recognized caller utterance, in the caller's language.
	Query string

	// Language is the caller's detected language code.
	Language string

	// PivotQuery is the query after translation into the pivot language.
	// This is the form that should enter the conversation history.
	PivotQuery string

	// Reply is the assistant's answer, translated back into the caller's
	// language.
	Reply string

	// PivotReply is the reply before back-translation, in the pivot
	// language. The history counterpart of PivotQuery.
	PivotReply string

	// Audio is the synthesised reply. May be nil when the reply was empty.
	Audio []byte

	// SampleRate is the sample rate of Audio in Hz. Zero when Audio is nil.
	SampleRate int
}

// Default retry budgets per stage. Translation gets a tighter deadline than
// the other stages; its prompts are short and its latency predictable.
var (
	DefaultRecognitionPolicy = resilience.RetryPolicy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, Timeout: 30 * time.Second}
	DefaultTranslationPolicy = resilience.RetryPolicy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, Timeout: 20 * time.Second}
	DefaultReasoningPolicy   = resilience.RetryPolicy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, Timeout: 30 * time.Second}
	DefaultSynthesisPolicy   = resilience.RetryPolicy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, Timeout: 30 * time.Second}
)

// Config assembles the collaborators and knobs of a Pipeline. Everything the
// pipeline needs is injected here once at startup; there are no package-level
// service clients or ambient defaults.
type Config struct {
	// Recognizer transcribes caller audio. Required.
	Recognizer stt.Provider

	// LLM serves both the translation and the reasoning stages. Required.
	LLM llm.Provider

	// Synthesizer turns reply text into audio. Required.
	Synthesizer tts.Provider

	// Document is the loaded product monograph. Required.
	Document *knowledge.Document

	// Voice is the synthesis voice for every reply.
	Voice tts.VoiceProfile

	// PivotLanguage is the code all queries are translated into before
	// reasoning. Defaults to lang.DefaultCode.
	PivotLanguage string

	// Metrics receives stage timings and failure counts. Optional.
	Metrics *observe.Metrics

	// Per-stage retry budgets. Zero values take the package defaults.
	RecognitionPolicy resilience.RetryPolicy
	TranslationPolicy resilience.RetryPolicy
	ReasoningPolicy   resilience.RetryPolicy
	SynthesisPolicy   resilience.RetryPolicy
}

// Pipeline runs conversational turns. Immutable after New and safe for
// concurrent use across calls.
type Pipeline struct {
	recognizer  stt.Provider
	llm         llm.Provider
	synthesizer tts.Provider
	document    *knowledge.Document
	voice       tts.VoiceProfile
	pivot       string
	metrics     *observe.Metrics

	recognitionPolicy resilience.RetryPolicy
	translationPolicy resilience.RetryPolicy
	reasoningPolicy   resilience.RetryPolicy
	synthesisPolicy   resilience.RetryPolicy
}

// New validates cfg and constructs a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("pipeline: Recognizer must not be nil")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("pipeline: LLM must not be nil")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("pipeline: Synthesizer must not be nil")
	}
	if cfg.Document == nil {
		return nil, fmt.Errorf("pipeline: Document must not be nil")
	}

	pivot := cfg.PivotLanguage
	if pivot == "" {
		pivot = lang.DefaultCode
	}

	p := &Pipeline{
		recognizer:        cfg.Recognizer,
		llm:               cfg.LLM,
		synthesizer:       cfg.Synthesizer,
		document:          cfg.Document,
		voice:             cfg.Voice,
		pivot:             pivot,
		metrics:           cfg.Metrics,
		recognitionPolicy: policyOrDefault(cfg.RecognitionPolicy, DefaultRecognitionPolicy),
		translationPolicy: policyOrDefault(cfg.TranslationPolicy, DefaultTranslationPolicy),
		reasoningPolicy:   policyOrDefault(cfg.ReasoningPolicy, DefaultReasoningPolicy),
		synthesisPolicy:   policyOrDefault(cfg.SynthesisPolicy, DefaultSynthesisPolicy),
	}
	return p, nil
}

// policyOrDefault substitutes def for an entirely unset policy. A policy
// with any field set is taken as deliberate.
func policyOrDefault(p, def resilience.RetryPolicy) resilience.RetryPolicy {
	if p.MaxRetries == 0 && p.BaseDelay == 0 && p.Timeout == 0 && p.OnRetry == nil {
		return def
	}
	return p
}

// PivotLanguage returns the configured pivot code.
func (p *Pipeline) PivotLanguage() string {
	return p.pivot
}
