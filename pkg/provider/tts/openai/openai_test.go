package openai

import (
	"errors"
	"testing"

	oai "github.com/openai/openai-go"

	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/tts"
)

// TestNew_RequiresCredentials checks the constructor's argument validation.
func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New("", "tts-1"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("sk-test", "tts-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestVoiceOrDefault checks the fallback to the "alloy" preset.
func TestVoiceOrDefault(t *testing.T) {
	if got := voiceOrDefault(tts.VoiceProfile{}); got != "alloy" {
		t.Errorf("empty profile resolved to %q, want \"alloy\"", got)
	}
	if got := voiceOrDefault(tts.VoiceProfile{ID: "nova"}); got != "nova" {
		t.Errorf("profile resolved to %q, want \"nova\"", got)
	}
}

// TestClassify checks retry classification of SDK errors.
func TestClassify(t *testing.T) {
	base := errors.New("boom")
	if got := classify(base); got != base {
		t.Errorf("classify(%v) = %v, want unchanged", base, got)
	}

	apierr := &oai.Error{StatusCode: 429}
	classified := classify(apierr)
	var se *resilience.StatusError
	if !errors.As(classified, &se) {
		t.Fatalf("classified = %v, want *resilience.StatusError", classified)
	}
	if se.Status != 429 {
		t.Errorf("status = %d, want 429", se.Status)
	}
	if !resilience.Transient(classified) {
		t.Error("a 429 must classify as transient")
	}
}
