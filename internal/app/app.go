// Package app wires all Pharmaline subsystems into a running application.
//
// The App struct owns the full lifecycle: New loads the product monograph,
// assembles the conversational pipeline around the configured providers, and
// builds the operational HTTP server; Run serves until the context is
// cancelled; Shutdown tears everything down.
//
// For testing, inject substitutes via functional options (WithDocument,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/cmelnyk/pharmaline/internal/config"
	"github.com/cmelnyk/pharmaline/internal/health"
	"github.com/cmelnyk/pharmaline/internal/knowledge"
	"github.com/cmelnyk/pharmaline/internal/observe"
	"github.com/cmelnyk/pharmaline/internal/pipeline"
	"github.com/cmelnyk/pharmaline/internal/resilience"
	"github.com/cmelnyk/pharmaline/pkg/provider/llm"
	"github.com/cmelnyk/pharmaline/pkg/provider/stt"
	"github.com/cmelnyk/pharmaline/pkg/provider/tts"
)

// shutdownGrace is how long the HTTP server gets to drain in-flight requests
// once Run's context is cancelled.
const shutdownGrace = 10 * time.Second

// Providers holds one interface value per provider slot. All three are
// required; FallbackLLM is optional. Populated by main.go via the config
// registry.
type Providers struct {
	STT stt.Provider
	LLM llm.Provider
	TTS tts.Provider

	// FallbackLLM, when non-nil, answers reasoning and translation calls
	// while the primary LLM's circuit breaker is open.
	FallbackLLM llm.Provider
}

// App owns all subsystem lifetimes and orchestrates the Pharmaline
// conversational pipeline plus its operational HTTP endpoints.
type App struct {
	cfg       *config.Config
	providers *Providers

	document *knowledge.Document
	metrics  *observe.Metrics
	pipeline *pipeline.Pipeline
	sessions *SessionManager
	server   *http.Server

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDocument injects a pre-loaded monograph instead of reading it from the
// configured path.
func WithDocument(doc *knowledge.Document) Option {
	return func(a *App) { a.document = doc }
}

// WithMetrics injects a metrics bundle instead of building one from the
// global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: monograph loading, metrics
// construction, fallback assembly, and pipeline construction.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, fmt.Errorf("app: providers must not be nil")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initDocument(); err != nil {
		return nil, fmt.Errorf("app: init document: %w", err)
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return nil, fmt.Errorf("app: init pipeline: %w", err)
	}

	a.sessions = NewSessionManager(a.pipeline)
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// initDocument loads the product monograph unless one was injected.
func (a *App) initDocument() error {
	if a.document != nil {
		return nil
	}
	doc, err := knowledge.Load(a.cfg.Knowledge.DocumentPath)
	if err != nil {
		return err
	}
	a.document = doc
	slog.Info("product document loaded",
		"path", a.cfg.Knowledge.DocumentPath,
		"bytes", len(doc.Content()),
	)
	return nil
}

// initMetrics builds the metrics bundle from the global meter provider
// unless one was injected.
func (a *App) initMetrics() error {
	if a.metrics != nil {
		return nil
	}
	m, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// initPipeline assembles the reply LLM (with optional failover) and the
// conversational pipeline.
func (a *App) initPipeline() error {
	replyLLM, err := a.buildReplyLLM()
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Config{
		Recognizer:  a.providers.STT,
		LLM:         replyLLM,
		Synthesizer: a.providers.TTS,
		Document:    a.document,
		Voice: tts.VoiceProfile{
			ID:       a.cfg.Providers.TTS.Voice,
			Provider: a.cfg.Providers.TTS.Name,
		},
		PivotLanguage:     a.cfg.Pipeline.PivotLanguage,
		Metrics:           a.metrics,
		RecognitionPolicy: a.cfg.Pipeline.Recognition.Policy(pipeline.DefaultRecognitionPolicy),
		TranslationPolicy: a.cfg.Pipeline.Translation.Policy(pipeline.DefaultTranslationPolicy),
		ReasoningPolicy:   a.cfg.Pipeline.Reasoning.Policy(pipeline.DefaultReasoningPolicy),
		SynthesisPolicy:   a.cfg.Pipeline.Synthesis.Policy(pipeline.DefaultSynthesisPolicy),
	})
	if err != nil {
		return err
	}
	a.pipeline = pl
	return nil
}

// buildReplyLLM returns the completion provider the pipeline talks to. With
// a fallback configured, the primary and secondary sit behind one failover
// group so the pipeline never sees more than a single provider.
func (a *App) buildReplyLLM() (llm.Provider, error) {
	if a.providers.LLM == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	if a.providers.FallbackLLM == nil {
		return a.providers.LLM, nil
	}
	if a.cfg.Fallback == nil {
		return nil, fmt.Errorf("fallback llm injected without fallback config")
	}

	failover := resilience.NewLLMFailover(
		a.cfg.Providers.LLM.Name,
		a.providers.LLM,
		breakerConfig(a.cfg.Fallback.Breaker),
	)
	failover.Add(a.cfg.Fallback.LLM.Name, a.providers.FallbackLLM)
	slog.Info("llm failover enabled",
		"primary", a.cfg.Providers.LLM.Name,
		"fallback", a.cfg.Fallback.LLM.Name,
	)
	return failover, nil
}

// breakerConfig converts the YAML breaker block into resilience knobs. Zero
// values stay zero so the breaker substitutes its own defaults.
func breakerConfig(cfg config.BreakerConfig) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		TripAfter:  cfg.TripAfter,
		Cooldown:   time.Duration(cfg.CooldownMS) * time.Millisecond,
		ProbeQuota: cfg.ProbeQuota,
	}
}

// buildHandler assembles the operational HTTP mux: health probes and the
// Prometheus scrape endpoint, all behind the tracing middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()

	checks := health.New(
		health.DocumentLoaded(a.document),
		health.ProvidersConfigured(map[string]bool{
			"stt": a.providers.STT != nil,
			"llm": a.providers.LLM != nil,
			"tts": a.providers.TTS != nil,
		}),
	)
	checks.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

// Pipeline returns the assembled conversational pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Sessions returns the call session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Run serves the operational HTTP endpoints and blocks until ctx is
// cancelled, then drains the server. A listener error surfaces immediately.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Shutdown ends all active call sessions and drains the HTTP server. Safe to
// call more than once; only the first call does any work.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "active_calls", a.sessions.Active())

		a.sessions.EndAll()

		if err := a.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("app: http shutdown: %w", err)
			return
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
