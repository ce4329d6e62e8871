package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

providers:
  stt:
    name: whisper
    api_key: sk-stt
    model: whisper-1
  llm:
    name: openai
    api_key: sk-llm
    model: gpt-4o-mini
  tts:
    name: elevenlabs
    api_key: el-tts
    model: eleven_flash_v2_5
    voice: voice-abc

fallback:
  llm:
    name: ollama
    base_url: http://localhost:11434
    model: llama3
  breaker:
    trip_after: 5
    cooldown_ms: 30000
    probe_quota: 3

pipeline:
  pivot_language: en
  recognition:
    timeout_ms: 30000
  reasoning:
    max_retries: 3
    base_delay_ms: 250

knowledge:
  document_path: /etc/pharmaline/monograph.txt
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want \":8080\"", cfg.Server.ListenAddr)
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.Model != "whisper-1" {
		t.Errorf("stt entry = %+v", cfg.Providers.STT)
	}
	if cfg.Providers.TTS.Voice != "voice-abc" {
		t.Errorf("tts voice = %q, want \"voice-abc\"", cfg.Providers.TTS.Voice)
	}
	if cfg.Fallback == nil || cfg.Fallback.LLM.Name != "ollama" {
		t.Fatalf("fallback = %+v", cfg.Fallback)
	}
	if cfg.Fallback.Breaker.CooldownMS != 30000 {
		t.Errorf("breaker cooldown = %d, want 30000", cfg.Fallback.Breaker.CooldownMS)
	}
	if cfg.Pipeline.PivotLanguage != "en" {
		t.Errorf("pivot = %q, want \"en\"", cfg.Pipeline.PivotLanguage)
	}
	if cfg.Pipeline.Recognition.TimeoutMS != 30000 {
		t.Errorf("recognition timeout = %d, want 30000", cfg.Pipeline.Recognition.TimeoutMS)
	}
	if cfg.Pipeline.Reasoning.MaxRetries == nil || *cfg.Pipeline.Reasoning.MaxRetries != 3 {
		t.Errorf("reasoning max_retries = %v, want 3", cfg.Pipeline.Reasoning.MaxRetries)
	}
	if cfg.Pipeline.Translation.IsZero() != true {
		t.Error("translation override should be unset")
	}
	if cfg.Knowledge.DocumentPath != "/etc/pharmaline/monograph.txt" {
		t.Errorf("document_path = %q", cfg.Knowledge.DocumentPath)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := strings.Replace(sampleYAML, "pivot_language: en", "pivot_langauge: en", 1)
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("expected error for a misspelled field")
	}
}

func TestLoadFromReader_InvalidYAML(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("server: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFromReader_ValidationFailure(t *testing.T) {
	yaml := `
providers:
  llm:
    name: openai
knowledge:
  document_path: ""
`
	_, err := LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"providers.stt.name", "providers.tts.name", "knowledge.document_path"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %s", msg, want)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm model = %q", cfg.Providers.LLM.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
