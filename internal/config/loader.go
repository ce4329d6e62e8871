package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"openai", "elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Providers: all three stages need one.
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.TTS.Name != "" && cfg.Providers.TTS.Voice == "" {
		slog.Warn("providers.tts.voice is empty; the provider's default voice will be used")
	}

	// Fallback
	if cfg.Fallback != nil {
		if cfg.Fallback.LLM.Name == "" {
			errs = append(errs, errors.New("fallback.llm.name is required when a fallback block is present"))
		} else {
			validateProviderName("llm", cfg.Fallback.LLM.Name)
		}
		if cfg.Fallback.Breaker.TripAfter < 0 {
			errs = append(errs, fmt.Errorf("fallback.breaker.trip_after %d must not be negative", cfg.Fallback.Breaker.TripAfter))
		}
		if cfg.Fallback.Breaker.CooldownMS < 0 {
			errs = append(errs, fmt.Errorf("fallback.breaker.cooldown_ms %d must not be negative", cfg.Fallback.Breaker.CooldownMS))
		}
		if cfg.Fallback.Breaker.ProbeQuota < 0 {
			errs = append(errs, fmt.Errorf("fallback.breaker.probe_quota %d must not be negative", cfg.Fallback.Breaker.ProbeQuota))
		}
	}

	// Pipeline
	if pl := cfg.Pipeline.PivotLanguage; pl != "" && len(pl) > 3 {
		errs = append(errs, fmt.Errorf("pipeline.pivot_language %q must be a short language code", pl))
	}
	for _, st := range []struct {
		name   string
		policy StagePolicyConfig
	}{
		{"recognition", cfg.Pipeline.Recognition},
		{"translation", cfg.Pipeline.Translation},
		{"reasoning", cfg.Pipeline.Reasoning},
		{"synthesis", cfg.Pipeline.Synthesis},
	} {
		if st.policy.MaxRetries != nil && *st.policy.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s.max_retries %d must not be negative", st.name, *st.policy.MaxRetries))
		}
		if st.policy.BaseDelayMS < 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s.base_delay_ms %d must not be negative", st.name, st.policy.BaseDelayMS))
		}
		if st.policy.TimeoutMS < 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s.timeout_ms %d must not be negative", st.name, st.policy.TimeoutMS))
		}
	}

	// Knowledge
	if cfg.Knowledge.DocumentPath == "" {
		errs = append(errs, errors.New("knowledge.document_path is required"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
