// Package telemetry wraps sentry-go tracing and error capture for the chat
// service. Every helper is a no-op until Init has configured a client.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serverName   = "ragchatd"
	flushTimeout = 5 * time.Second
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN         string
	Environment string
	Release     string
	// TracesSampleRate of zero picks SampleRateFor(Environment).
	TracesSampleRate float64
	// IgnoredTransactions are never traced. Defaults to the health probe.
	IgnoredTransactions []string
	Debug               bool
	Logger              *slog.Logger
}

// SampleRateFor traces every request in development and a tenth elsewhere.
func SampleRateFor(environment string) float64 {
	if environment == "" || environment == "development" {
		return 1.0
	}
	return 0.1
}

// Init configures the global Sentry client and returns a flush function for
// shutdown. An empty DSN leaves Sentry disabled. A client that fails to
// initialize is logged and treated the same way.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telemetry")

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = SampleRateFor(cfg.Environment)
	}
	if cfg.IgnoredTransactions == nil {
		cfg.IgnoredTransactions = []string{"GET /health"}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       serverName,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sentry.TracesSampler(sampler(cfg)),
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("sentry init failed, continuing without tracing", "err", err)
		return noop, nil
	}

	logger.Info("sentry initialized", "environment", cfg.Environment, "sample_rate", cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops ignored transactions and makes child spans inherit the
// parent's decision.
func sampler(cfg Config) func(sentry.SamplingContext) float64 {
	ignored := make(map[string]struct{}, len(cfg.IgnoredTransactions))
	for _, name := range cfg.IgnoredTransactions {
		ignored[name] = struct{}{}
	}

	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return cfg.TracesSampleRate
		}
		if _, skip := ignored[ctx.Span.Name]; skip {
			return 0
		}
		if ctx.Span.ParentSpanID != (sentry.SpanID{}) {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return cfg.TracesSampleRate
	}
}

// SpanAttributes are tagged onto service spans when set.
type SpanAttributes struct {
	ResourceID string
	Route      string
	Operation  string
}

// Span is a nil-safe handle on a sentry span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// SetRoute tags the span with the chat route that served the turn.
func (s *Span) SetRoute(route string) {
	if s != nil && s.inner != nil && route != "" {
		s.inner.SetTag("chat_route", route)
	}
}

func tag(span *sentry.Span, attrs SpanAttributes) {
	if attrs.ResourceID != "" {
		span.SetTag("resource_id", attrs.ResourceID)
	}
	if attrs.Route != "" {
		span.SetTag("chat_route", attrs.Route)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
}

// StartSpan opens a child of the span in ctx, or a new transaction named
// name when ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	tag(span, attrs)
	return span.Context(), &Span{inner: span}
}

// StartTransaction opens a root span for background work such as repair sweeps.
func StartTransaction(ctx context.Context, name, op string) (context.Context, *Span) {
	span := sentry.StartTransaction(ctx, name, sentry.WithOpName(op), sentry.WithTransactionSource(sentry.SourceTask))
	return span.Context(), &Span{inner: span}
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func CaptureError(ctx context.Context, err error) {
	hubFor(ctx).CaptureException(err)
}

func CaptureMessage(ctx context.Context, message string) {
	hubFor(ctx).CaptureMessage(message)
}

// AddBreadcrumb records an info breadcrumb on the request's scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
