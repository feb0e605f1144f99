// Package telemetry records propagation outcomes as OpenTelemetry metrics
// and log records. Recording is best-effort and never blocks or fails the
// consume loop.
package telemetry

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder observes the outcome of handling a single change event.
type Recorder interface {
	// EventProcessed records one fully handled change event.
	EventProcessed(ctx context.Context, entityType string)
	// EventFailed records one change event whose handler returned an error.
	EventFailed(ctx context.Context, entityType string, err error)
	// EventRejected records one unparseable event sent to the dead-letter
	// topic.
	EventRejected(ctx context.Context, reason string)
}

// NewRecorder builds a Recorder over the given providers. Either provider may
// be nil, in which case that signal is skipped.
func NewRecorder(mp *sdkmetric.MeterProvider, lp *sdklog.LoggerProvider) Recorder {
	r := &otelRecorder{}
	if lp != nil {
		r.logger = lp.Logger("classtrack.propagation")
	}
	if mp != nil {
		meter := mp.Meter("classtrack.propagation")
		var err error
		r.processed, err = meter.Int64Counter("events_processed_total",
			metric.WithDescription("Change events handled to completion"))
		if err != nil {
			log.Printf("telemetry: counter init: %v", err)
		}
		r.failed, err = meter.Int64Counter("propagation_failures_total",
			metric.WithDescription("Change events whose handler returned an error"))
		if err != nil {
			log.Printf("telemetry: counter init: %v", err)
		}
		r.rejected, err = meter.Int64Counter("events_rejected_total",
			metric.WithDescription("Unparseable change events dead-lettered"))
		if err != nil {
			log.Printf("telemetry: counter init: %v", err)
		}
	}
	return r
}

type otelRecorder struct {
	logger    otellog.Logger
	processed metric.Int64Counter
	failed    metric.Int64Counter
	rejected  metric.Int64Counter
}

func (r *otelRecorder) EventProcessed(ctx context.Context, entityType string) {
	if r.processed != nil {
		r.processed.Add(ctx, 1, metric.WithAttributes(entityAttr(entityType)...))
	}
}

func (r *otelRecorder) EventFailed(ctx context.Context, entityType string, err error) {
	if r.failed != nil {
		r.failed.Add(ctx, 1, metric.WithAttributes(entityAttr(entityType)...))
	}
	r.emit(ctx, "propagation failed", func(rec *otellog.Record) {
		rec.AddAttributes(otellog.String("entity_type", entityType))
		if err != nil {
			rec.AddAttributes(otellog.String("error", err.Error()))
		}
	})
}

func (r *otelRecorder) EventRejected(ctx context.Context, reason string) {
	if r.rejected != nil {
		r.rejected.Add(ctx, 1)
	}
	r.emit(ctx, "event rejected", func(rec *otellog.Record) {
		rec.AddAttributes(otellog.String("reason", reason))
	})
}

func entityAttr(entityType string) []attribute.KeyValue {
	if entityType == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("entity_type", entityType)}
}

func (r *otelRecorder) emit(ctx context.Context, body string, decorate func(*otellog.Record)) {
	if r.logger == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetTimestamp(time.Now().UTC())
	rec.SetSeverity(otellog.SeverityWarn)
	rec.SetBody(otellog.StringValue(body))
	decorate(&rec)
	r.logger.Emit(ctx, rec)
}
