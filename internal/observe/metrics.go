// Package observe provides observability primitives for Pharmaline:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware tying them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is set up by [InitProvider] so that everything remains
// scrapable via the standard /metrics endpoint. There is no package-level
// default instance: a [Metrics] is constructed once in main and injected
// into the pipeline, so tests can use [NewMetrics] with their own
// [metric.MeterProvider] without cross-test pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Pharmaline metrics.
const meterName = "github.com/cmelnyk/pharmaline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use, the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognitionDuration tracks speech recognition latency.
	RecognitionDuration metric.Float64Histogram

	// TranslationDuration tracks translation latency. Recorded with a
	// "direction" attribute ("to_pivot" or "from_pivot").
	TranslationDuration metric.Float64Histogram

	// ReasoningDuration tracks reply generation latency.
	ReasoningDuration metric.Float64Histogram

	// SynthesisDuration tracks speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end latency of one conversational turn.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// RetryAttempts counts executor retries. Use with attribute:
	//   attribute.String("stage", ...)
	RetryAttempts metric.Int64Counter

	// ProviderErrors counts stage failures surfaced after retry exhaustion.
	// Use with attributes:
	//   attribute.String("stage", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveTurns tracks the number of conversational turns in flight.
	ActiveTurns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// external-call latencies in a voice pipeline.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("pharmaline.recognition.duration",
		metric.WithDescription("Latency of speech recognition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("pharmaline.translation.duration",
		metric.WithDescription("Latency of translation by direction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReasoningDuration, err = m.Float64Histogram("pharmaline.reasoning.duration",
		metric.WithDescription("Latency of reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("pharmaline.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("pharmaline.turn.duration",
		metric.WithDescription("End-to-end latency of one conversational turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.RetryAttempts, err = m.Int64Counter("pharmaline.retry.attempts",
		metric.WithDescription("Total executor retry attempts by stage."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("pharmaline.provider.errors",
		metric.WithDescription("Total stage failures by stage and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("pharmaline.active_turns",
		metric.WithDescription("Number of conversational turns in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("pharmaline.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStageDuration records elapsed seconds against the histogram for the
// named stage. Unknown stage names are dropped silently.
func (m *Metrics) RecordStageDuration(ctx context.Context, stage string, seconds float64, attrs ...attribute.KeyValue) {
	var h metric.Float64Histogram
	switch stage {
	case "recognition":
		h = m.RecognitionDuration
	case "translation":
		h = m.TranslationDuration
	case "reasoning":
		h = m.ReasoningDuration
	case "synthesis":
		h = m.SynthesisDuration
	default:
		return
	}
	h.Record(ctx, seconds, metric.WithAttributes(attrs...))
}

// RecordRetry records one executor retry for the named stage.
func (m *Metrics) RecordRetry(ctx context.Context, stage string) {
	m.RetryAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordProviderError records one surfaced stage failure. kind is the error
// classification ("transient" or "terminal").
func (m *Metrics) RecordProviderError(ctx context.Context, stage, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("kind", kind),
		),
	)
}
