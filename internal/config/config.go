// Package config provides the configuration schema, loader, and provider
// registry for the Pharmaline assistant.
package config

import (
	"time"

	"github.com/cmelnyk/pharmaline/internal/resilience"
)

// LogLevel controls log verbosity for the Pharmaline server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Pharmaline.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Fallback  *FallbackConfig `yaml:"fallback"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
}

// ServerConfig holds network and logging settings for the server.
type ServerConfig struct {
	// ListenAddr is the TCP address the operational HTTP endpoints
	// (/metrics, /healthz, /readyz) listen on (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "openai",
	// "whisper", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g. "gpt-4o-mini",
	// "whisper-1", "eleven_flash_v2_5").
	Model string `yaml:"model"`

	// Voice is the provider-specific voice identifier for synthesis
	// providers. Ignored elsewhere.
	Voice string `yaml:"voice"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// FallbackConfig declares an optional secondary LLM that takes over reply
// generation when the primary trips its circuit breaker.
type FallbackConfig struct {
	// LLM is the secondary completion provider.
	LLM ProviderEntry `yaml:"llm"`

	// Breaker tunes the circuit breaker guarding the primary.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes a resilience.Breaker. Zero values take the breaker's
// own defaults.
type BreakerConfig struct {
	// TripAfter is the number of consecutive failures that opens the breaker.
	TripAfter int `yaml:"trip_after"`

	// CooldownMS is how long the breaker stays open before probing, in
	// milliseconds.
	CooldownMS int `yaml:"cooldown_ms"`

	// ProbeQuota is the number of successful probes that close a half-open
	// breaker.
	ProbeQuota int `yaml:"probe_quota"`
}

// PipelineConfig tunes the conversational turn orchestration.
type PipelineConfig struct {
	// PivotLanguage is the short code queries are translated into before
	// reasoning. Defaults to "en".
	PivotLanguage string `yaml:"pivot_language"`

	// Per-stage retry budget overrides. Unset stages keep the pipeline's
	// built-in defaults.
	Recognition StagePolicyConfig `yaml:"recognition"`
	Translation StagePolicyConfig `yaml:"translation"`
	Reasoning   StagePolicyConfig `yaml:"reasoning"`
	Synthesis   StagePolicyConfig `yaml:"synthesis"`
}

// StagePolicyConfig overrides one stage's retry budget. All fields optional.
type StagePolicyConfig struct {
	// MaxRetries is the number of re-attempts after the first failure.
	// Nil keeps the stage default; an explicit 0 disables retries.
	MaxRetries *int `yaml:"max_retries"`

	// BaseDelayMS is the delay before the first retry, in milliseconds.
	BaseDelayMS int `yaml:"base_delay_ms"`

	// TimeoutMS is the per-attempt deadline, in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"`
}

// IsZero reports whether the stage override is entirely unset.
func (s StagePolicyConfig) IsZero() bool {
	return s.MaxRetries == nil && s.BaseDelayMS == 0 && s.TimeoutMS == 0
}

// Policy merges the override onto def and returns the effective retry policy.
func (s StagePolicyConfig) Policy(def resilience.RetryPolicy) resilience.RetryPolicy {
	out := def
	if s.MaxRetries != nil {
		out.MaxRetries = *s.MaxRetries
	}
	if s.BaseDelayMS > 0 {
		out.BaseDelay = time.Duration(s.BaseDelayMS) * time.Millisecond
	}
	if s.TimeoutMS > 0 {
		out.Timeout = time.Duration(s.TimeoutMS) * time.Millisecond
	}
	return out
}

// KnowledgeConfig locates the product monograph.
type KnowledgeConfig struct {
	// DocumentPath is the path to the monograph text file. Required; the
	// process refuses to start without a readable document.
	DocumentPath string `yaml:"document_path"`
}
