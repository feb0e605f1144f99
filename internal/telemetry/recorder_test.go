package telemetry

import (
	"context"
	"errors"
	"testing"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecorderNilProvidersIsSafe(t *testing.T) {
	r := NewRecorder(nil, nil)
	ctx := context.Background()
	r.EventProcessed(ctx, "license")
	r.EventFailed(ctx, "student", errors.New("boom"))
	r.EventRejected(ctx, "missing entityType")
}

func TestRecorderCountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	lp := sdklog.NewLoggerProvider()
	defer func() { _ = lp.Shutdown(context.Background()) }()

	r := NewRecorder(mp, lp)
	ctx := context.Background()
	r.EventProcessed(ctx, "license")
	r.EventProcessed(ctx, "license")
	r.EventFailed(ctx, "student", errors.New("boom"))
	r.EventRejected(ctx, "unparseable")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			counts[m.Name] = total
		}
	}
	if counts["events_processed_total"] != 2 {
		t.Errorf("events_processed_total = %d, want 2", counts["events_processed_total"])
	}
	if counts["propagation_failures_total"] != 1 {
		t.Errorf("propagation_failures_total = %d, want 1", counts["propagation_failures_total"])
	}
	if counts["events_rejected_total"] != 1 {
		t.Errorf("events_rejected_total = %d, want 1", counts["events_rejected_total"])
	}
}
