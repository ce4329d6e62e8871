package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cmelnyk/pharmaline/internal/lang"
	"github.com/cmelnyk/pharmaline/internal/observe"
	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/audio"
	"github.com/cmelnyk/pharmaline/pkg/provider/llm"
	"github.com/cmelnyk/pharmaline/pkg/provider/stt"
	"github.com/cmelnyk/pharmaline/pkg/provider/tts"
)

const (
	// minAudioBytes is the smallest input worth transcribing: 100 ms of
	// 16 kHz 16-bit mono PCM. Anything shorter is treated as silence.
	minAudioBytes = 3200

	// synthesisCeiling is the hard input-length cap of the synthesis stage,
	// in characters. Longer text is truncated with a trailing ellipsis.
	synthesisCeiling = 4096

	// historyLimit bounds how many trailing conversation entries reach the
	// reasoning prompt. Older entries are dropped silently.
	historyLimit = 20

	// reasoningTemperature keeps replies literal and grounded rather than
	// creative.
	reasoningTemperature = 0.3

	// reasoningMaxTokens caps reply length; replies are spoken, not read.
	reasoningMaxTokens = 512

	// translationTemperature keeps translations stable across retries.
	translationTemperature = 0.2
)

// clarificationReply is returned by Reason for a blank query, in the pivot
// language, without any provider call.
const clarificationReply = "I'm sorry, I didn't catch that. Could you please repeat your question?"

// run executes op for one stage under the stage's retry policy, recording
// duration, retries, and surfaced failures. Failures come back wrapped in a
// *StageError carrying the stage label.
func run[T any](ctx context.Context, p *Pipeline, stage string, policy resilience.RetryPolicy, op func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	var zero T

	if p.metrics != nil {
		inner := policy.OnRetry
		policy.OnRetry = func(ctx context.Context, label string, attempt int) {
			p.metrics.RecordRetry(ctx, stage)
			if inner != nil {
				inner(ctx, label, attempt)
			}
		}
	}

	start := time.Now()
	out, err := resilience.Execute(ctx, stage, policy, op)

	if p.metrics != nil {
		p.metrics.RecordStageDuration(ctx, stage, time.Since(start).Seconds(), attrs...)
		if err != nil {
			kind := "terminal"
			if resilience.Transient(err) {
				kind = "transient"
			}
			p.metrics.RecordProviderError(ctx, stage, kind)
		}
	}

	if err != nil {
		return zero, &StageError{Stage: stage, Err: err}
	}
	return out, nil
}

// Recognize transcribes one utterance of raw PCM audio and normalizes the
// detected language to a short code.
//
// Buffers below the silence threshold short-circuit to an empty-text,
// default-language result without touching the provider. Otherwise the PCM
// is wrapped in a WAV container and written to a uniquely named scratch file
// so concurrent turns never collide; the file is removed on every exit path.
func (p *Pipeline) Recognize(ctx context.Context, pcm []byte) (*RecognitionResult, error) {
	if len(pcm) < minAudioBytes {
		observe.Logger(ctx).Debug("recognition short-circuit, input below silence threshold",
			"bytes", len(pcm),
		)
		return &RecognitionResult{Text: "", Language: lang.DefaultCode}, nil
	}

	wav := audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels)
	scratch := filepath.Join(os.TempDir(), "pharmaline-"+uuid.NewString()+".wav")
	if err := os.WriteFile(scratch, wav, 0o600); err != nil {
		return nil, &StageError{Stage: StageRecognition, Err: fmt.Errorf("write scratch audio: %w", err)}
	}
	defer os.Remove(scratch)

	res, err := run(ctx, p, StageRecognition, p.recognitionPolicy, func(ctx context.Context) (*stt.Result, error) {
		f, err := os.Open(scratch)
		if err != nil {
			return nil, fmt.Errorf("open scratch audio: %w", err)
		}
		defer f.Close()
		return p.recognizer.Transcribe(ctx, stt.Request{
			Audio:    f,
			Filename: filepath.Base(scratch),
		})
	})
	if err != nil {
		return nil, err
	}

	return &RecognitionResult{
		Text:     strings.TrimSpace(res.Text),
		Language: lang.Normalize(res.Language),
	}, nil
}

// Translate converts text between two language codes via the LLM.
//
// Blank text returns empty and equal codes return the input unchanged, both
// without a provider call.
func (p *Pipeline) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if from == to {
		return text, nil
	}

	direction := "from_pivot"
	if to == p.pivot {
		direction = "to_pivot"
	}

	system := fmt.Sprintf(
		"You are a professional translator. Translate the user's text from %s to %s. "+
			"Keep proper nouns, drug names, clinical trial names, dosages and units exactly as written, in their original script. "+
			"Translate naturally rather than word for word and keep the professional tone. "+
			"Output only the translated text with no commentary.",
		lang.DisplayName(from), lang.DisplayName(to),
	)

	out, err := run(ctx, p, StageTranslation, p.translationPolicy, func(ctx context.Context) (string, error) {
		resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: system,
			Messages:     []llm.Message{{Role: "user", Content: text}},
			Temperature:  translationTemperature,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}, observe.Attr("direction", direction))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Reason produces a grounded reply to the query, in the pivot language,
// using the monograph system instruction and at most the last 20 history
// entries for context.
//
// A blank query returns a fixed clarification prompt without a provider
// call.
func (p *Pipeline) Reason(ctx context.Context, query string, history []llm.Message) (string, error) {
	if strings.TrimSpace(query) == "" {
		return clarificationReply, nil
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	out, err := run(ctx, p, StageReasoning, p.reasoningPolicy, func(ctx context.Context) (string, error) {
		resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: p.document.SystemInstruction(),
			Messages:     messages,
			Temperature:  reasoningTemperature,
			MaxTokens:    reasoningMaxTokens,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Synthesize converts reply text into one spoken utterance using the
// configured voice.
//
// Blank text returns an empty result without a provider call. Text over the
// hard ceiling is truncated to exactly the ceiling with a trailing ellipsis
// before submission; a deterministic boundary policy, not an error.
func (p *Pipeline) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return &tts.Result{}, nil
	}

	if runes := []rune(text); len(runes) > synthesisCeiling {
		text = string(runes[:synthesisCeiling-3]) + "..."
	}

	return run(ctx, p, StageSynthesis, p.synthesisPolicy, func(ctx context.Context) (*tts.Result, error) {
		return p.synthesizer.Synthesize(ctx, text, p.voice)
	})
}

// Respond runs one full conversational turn: recognize the caller's audio,
// translate the query into the pivot language, reason over the monograph,
// translate the reply back, and synthesize it.
//
// The five stages run strictly sequentially. A failure at any stage aborts
// the turn and surfaces as a *StageError naming the stage.
func (p *Pipeline) Respond(ctx context.Context, pcm []byte, history []llm.Message) (*TurnResult, error) {
	ctx, span := observe.StartSpan(ctx, "turn")
	defer span.End()

	if p.metrics != nil {
		p.metrics.ActiveTurns.Add(ctx, 1)
		defer p.metrics.ActiveTurns.Add(ctx, -1)
		start := time.Now()
		defer func() {
			p.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
		}()
	}

	rec, err := p.Recognize(ctx, pcm)
	if err != nil {
		return nil, err
	}

	pivotQuery, err := p.Translate(ctx, rec.Text, rec.Language, p.pivot)
	if err != nil {
		return nil, err
	}

	reply, err := p.Reason(ctx, pivotQuery, history)
	if err != nil {
		return nil, err
	}

	localized, err := p.Translate(ctx, reply, p.pivot, rec.Language)
	if err != nil {
		return nil, err
	}

	speech, err := p.Synthesize(ctx, localized)
	if err != nil {
		return nil, err
	}

	observe.Logger(ctx).Info("turn completed",
		"language", rec.Language,
		"query_chars", len(rec.Text),
		"reply_chars", len(localized),
		"audio_bytes", len(speech.PCM),
	)

	return &TurnResult{
		Query:      rec.Text,
		Language:   rec.Language,
		PivotQuery: pivotQuery,
		Reply:      localized,
		PivotReply: reply,
		Audio:      speech.PCM,
		SampleRate: speech.SampleRate,
	}, nil
}
