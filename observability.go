package upsert

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/arllen133/upsert"

// DefaultSlowQueryThreshold is the duration above which a statement is logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Metrics holds the instruments recorded for every executed statement.
type Metrics struct {
	QueryCount    metric.Int64Counter
	QueryDuration metric.Float64Histogram
	QueryErrors   metric.Int64Counter
}

// ObservabilityConfig holds logging, tracing, and metrics configuration of a Session.
// Tracer and Metrics are never nil: without WithTracer or WithMeter they are no-op.
type ObservabilityConfig struct {
	Logger             *slog.Logger
	Tracer             trace.Tracer
	Metrics            *Metrics
	SlowQueryThreshold time.Duration
	LogQueries         bool // Log every statement with its SQL (debug mode)
}

func defaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		Tracer:             tracenoop.NewTracerProvider().Tracer(instrumentationName),
		Metrics:            newMetrics(metricnoop.NewMeterProvider().Meter(instrumentationName)),
		SlowQueryThreshold: DefaultSlowQueryThreshold,
	}
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.obs.Logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for the session. A nil tracer is ignored.
func WithTracer(tracer trace.Tracer) SessionOption {
	return func(s *Session) {
		if tracer != nil {
			s.obs.Tracer = tracer
		}
	}
}

// WithDefaultTracer uses the global OpenTelemetry tracer provider.
func WithDefaultTracer() SessionOption {
	return WithTracer(otel.Tracer(instrumentationName))
}

// WithMeter records statement metrics with meter. A nil meter is ignored.
func WithMeter(meter metric.Meter) SessionOption {
	return func(s *Session) {
		if meter != nil {
			s.obs.Metrics = newMetrics(meter)
		}
	}
}

// WithDefaultMeter uses the global OpenTelemetry meter provider.
func WithDefaultMeter() SessionOption {
	return WithMeter(otel.Meter(instrumentationName))
}

// WithSlowQueryThreshold sets the slow query threshold for logging
func WithSlowQueryThreshold(d time.Duration) SessionOption {
	return func(s *Session) {
		s.obs.SlowQueryThreshold = d
	}
}

// WithQueryLogging enables logging of every statement, including its SQL text
func WithQueryLogging(enabled bool) SessionOption {
	return func(s *Session) {
		s.obs.LogQueries = enabled
	}
}

// newMetrics creates the statement instruments. Creation errors are reported to the
// global OpenTelemetry error handler by the SDK and leave a no-op instrument behind.
func newMetrics(meter metric.Meter) *Metrics {
	count, _ := meter.Int64Counter("upsert.query.count",
		metric.WithDescription("Total number of SQL statements executed"),
		metric.WithUnit("{statement}"),
	)
	duration, _ := meter.Float64Histogram("upsert.query.duration",
		metric.WithDescription("Statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	errs, _ := meter.Int64Counter("upsert.query.errors",
		metric.WithDescription("Total number of failed statements"),
		metric.WithUnit("{error}"),
	)
	return &Metrics{QueryCount: count, QueryDuration: duration, QueryErrors: errs}
}

// observe runs exec inside a client span and reports its duration and outcome
// to the metrics and the logger.
func (s *Session) observe(ctx context.Context, operation, query string, exec func(context.Context) error) error {
	system := attribute.String("db.system", s.dialect.Name())
	spanAttrs := []attribute.KeyValue{system, attribute.String("db.operation", operation)}
	if s.obs.LogQueries {
		spanAttrs = append(spanAttrs, attribute.String("db.statement", query))
	}

	ctx, span := s.obs.Tracer.Start(ctx, "upsert."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttrs...),
	)
	defer span.End()

	start := time.Now()
	err := exec(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	metricAttrs := metric.WithAttributes(system, attribute.String("db.operation", operation))
	s.obs.Metrics.QueryCount.Add(ctx, 1, metricAttrs)
	s.obs.Metrics.QueryDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metricAttrs)
	if err != nil {
		s.obs.Metrics.QueryErrors.Add(ctx, 1, metricAttrs)
	}

	s.logStatement(ctx, operation, query, elapsed, err)
	return err
}

// logStatement logs failures at error level and slow statements at warn level.
// Other statements are logged at debug level when query logging is enabled.
func (s *Session) logStatement(ctx context.Context, operation, query string, elapsed time.Duration, err error) {
	logger := s.obs.Logger
	if logger == nil {
		return
	}

	level, msg := slog.LevelDebug, "statement executed"
	switch {
	case err != nil:
		level, msg = slog.LevelError, "statement failed"
	case elapsed > s.obs.SlowQueryThreshold:
		level, msg = slog.LevelWarn, "slow statement"
	case !s.obs.LogQueries:
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("dialect", s.dialect.Name()),
		slog.Duration("duration", elapsed),
	}
	if s.obs.LogQueries {
		attrs = append(attrs, slog.String("sql", query))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}
