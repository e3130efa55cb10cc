package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/core"
	gateotel "github.com/gate-labs/qualgate/otel"
)

// newTestMeter returns a meter backed by a manual reader for collecting
// metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is not an int64 sum", m.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsHandler_ToolFinishedRecordsExecutionAndDuration(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := gateotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(qualgate.NewEvent(qualgate.EventToolFinished, "run-1").
		WithTool("eslint", core.DimensionLint).
		WithElapsed(250 * time.Millisecond).
		WithPayload("status", string(core.StatusSuccess)))

	rm := collectMetrics(t, reader)

	executions := findMetric(rm, "qualgate.tool.executions")
	if executions == nil {
		t.Fatal("expected qualgate.tool.executions metric")
	}
	if got := counterValue(t, executions); got != 1 {
		t.Errorf("expected 1 execution, got %d", got)
	}

	if findMetric(rm, "qualgate.tool.failures") != nil {
		t.Error("did not expect failures metric for a successful tool")
	}

	duration := findMetric(rm, "qualgate.tool.duration")
	if duration == nil {
		t.Fatal("expected qualgate.tool.duration metric")
	}
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected float64 histogram for tool duration")
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected 1 histogram data point, got %d", len(hist.DataPoints))
	}
	if got := hist.DataPoints[0].Sum; got != 0.25 {
		t.Errorf("expected duration sum 0.25s, got %v", got)
	}
}

func TestMetricsHandler_FailedToolIncrementsFailures(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := gateotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(qualgate.NewEvent(qualgate.EventToolFinished, "run-1").
		WithTool("pytest", core.DimensionTest).
		WithElapsed(time.Second).
		WithPayload("status", string(core.StatusFailure)))

	rm := collectMetrics(t, reader)

	failures := findMetric(rm, "qualgate.tool.failures")
	if failures == nil {
		t.Fatal("expected qualgate.tool.failures metric")
	}
	if got := counterValue(t, failures); got != 1 {
		t.Errorf("expected 1 failure, got %d", got)
	}
}

func TestMetricsHandler_SkippedToolIncrementsSkips(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := gateotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(qualgate.NewEvent(qualgate.EventToolSkipped, "run-1").
		WithTool("gosec", core.DimensionSecurity).
		WithPayload("reason", core.CodeEnvironment))

	rm := collectMetrics(t, reader)

	skips := findMetric(rm, "qualgate.tool.skips")
	if skips == nil {
		t.Fatal("expected qualgate.tool.skips metric")
	}
	if got := counterValue(t, skips); got != 1 {
		t.Errorf("expected 1 skip, got %d", got)
	}
	if findMetric(rm, "qualgate.tool.executions") != nil {
		t.Error("did not expect executions metric for a skipped tool")
	}
}

func TestMetricsHandler_RunFinishedRecordsRunDuration(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := gateotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(qualgate.NewEvent(qualgate.EventRunFinished, "run-1").
		WithElapsed(3 * time.Second).
		WithPayload("classification", string(core.ClassificationPassWarnings)))

	rm := collectMetrics(t, reader)

	duration := findMetric(rm, "qualgate.run.duration")
	if duration == nil {
		t.Fatal("expected qualgate.run.duration metric")
	}
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected float64 histogram for run duration")
	}
	if got := hist.DataPoints[0].Sum; got != 3 {
		t.Errorf("expected run duration 3s, got %v", got)
	}
}
