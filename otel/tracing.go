// Package otel translates engine events into OpenTelemetry spans and
// metrics so runs can be observed in standard tracing backends.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/core"
)

// TracingHandler translates engine events into OpenTelemetry spans.
// It maintains maps of active run and tool spans, creating and ending
// them based on event kind.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	runSpans  map[string]trace.Span      // runID -> span
	runCtxs   map[string]context.Context // runID -> context (for child spans)
	toolSpans map[string]trace.Span      // runID:dimension/tool -> span
}

// NewTracingHandler creates a TracingHandler that uses the given tracer
// to build spans from engine events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		runSpans:  make(map[string]trace.Span),
		runCtxs:   make(map[string]context.Context),
		toolSpans: make(map[string]trace.Span),
	}
}

// Handle processes one engine event, creating or ending spans accordingly.
// It satisfies the qualgate.EventHandler signature.
func (h *TracingHandler) Handle(e qualgate.Event) {
	switch e.Kind {
	case qualgate.EventRunStarted:
		h.handleRunStarted(e)
	case qualgate.EventPhaseChanged:
		h.handlePhaseChanged(e)
	case qualgate.EventToolStarted:
		h.handleToolStarted(e)
	case qualgate.EventToolFinished:
		h.handleToolFinished(e)
	case qualgate.EventToolSkipped:
		h.handleToolSkipped(e)
	case qualgate.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleRunStarted creates a root span for the run.
func (h *TracingHandler) handleRunStarted(e qualgate.Event) {
	ctx, span := h.tracer.Start(context.Background(), "run:"+e.RunID,
		trace.WithAttributes(
			attribute.String("qualgate.run_id", e.RunID),
		),
		trace.WithTimestamp(e.Time),
	)

	if mode, ok := payloadString(e.Payload, "mode"); ok {
		span.SetAttributes(attribute.String("qualgate.mode", mode))
	}
	if scope, ok := payloadString(e.Payload, "scope"); ok {
		span.SetAttributes(attribute.String("qualgate.scope", scope))
	}

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

// handlePhaseChanged records the phase transition on the run span.
func (h *TracingHandler) handlePhaseChanged(e qualgate.Event) {
	h.mu.RLock()
	span, ok := h.runSpans[e.RunID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	phase, _ := payloadString(e.Payload, "phase")
	span.AddEvent("phase:"+phase, trace.WithTimestamp(e.Time))
}

// handleToolStarted creates a child span under the run span.
func (h *TracingHandler) handleToolStarted(e qualgate.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()

	if !ok {
		// No parent run span; start from background context.
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "tool:"+e.Tool,
		trace.WithAttributes(
			attribute.String("qualgate.run_id", e.RunID),
			attribute.String("qualgate.tool", e.Tool),
			attribute.String("qualgate.dimension", string(e.Dimension)),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.toolSpans[toolKey(e)] = span
	h.mu.Unlock()
}

// handleToolFinished ends the tool span, marking it failed when the
// result status is FAILURE.
func (h *TracingHandler) handleToolFinished(e qualgate.Event) {
	key := toolKey(e)

	h.mu.Lock()
	span, ok := h.toolSpans[key]
	delete(h.toolSpans, key)
	h.mu.Unlock()

	if !ok {
		return
	}

	status, _ := payloadString(e.Payload, "status")
	span.SetAttributes(attribute.String("qualgate.status", status))

	if status == string(core.StatusFailure) {
		span.SetStatus(codes.Error, status)
		if msg, ok := payloadString(e.Payload, "error"); ok && msg != "" {
			span.RecordError(spanError(msg))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

// handleToolSkipped records the skip on the run span. Skipped tools
// never get their own span since they never execute.
func (h *TracingHandler) handleToolSkipped(e qualgate.Event) {
	h.mu.RLock()
	span, ok := h.runSpans[e.RunID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("qualgate.tool", e.Tool),
		attribute.String("qualgate.dimension", string(e.Dimension)),
	}
	if reason, ok := payloadString(e.Payload, "reason"); ok {
		attrs = append(attrs, attribute.String("qualgate.reason", reason))
	}
	span.AddEvent("tool.skipped", trace.WithAttributes(attrs...), trace.WithTimestamp(e.Time))
}

// handleRunFinished ends the run span with the final classification.
func (h *TracingHandler) handleRunFinished(e qualgate.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	delete(h.runSpans, e.RunID)
	delete(h.runCtxs, e.RunID)
	// Drop any tool spans left open by an aborted run.
	for key, orphan := range h.toolSpans {
		if len(key) > len(e.RunID) && key[:len(e.RunID)] == e.RunID {
			orphan.SetStatus(codes.Error, "run aborted")
			orphan.End(trace.WithTimestamp(e.Time))
			delete(h.toolSpans, key)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	classification, _ := payloadString(e.Payload, "classification")
	span.SetAttributes(attribute.String("qualgate.classification", classification))

	if classification == string(core.ClassificationFail) {
		span.SetStatus(codes.Error, classification)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if msg, ok := payloadString(e.Payload, "error"); ok && msg != "" {
		span.RecordError(spanError(msg))
	}
	span.End(trace.WithTimestamp(e.Time))
}

// ActiveRunSpanContext returns the span context for an in-flight run,
// or an invalid context when the run is unknown or already finished.
func (h *TracingHandler) ActiveRunSpanContext(runID string) trace.SpanContext {
	h.mu.RLock()
	defer h.mu.RUnlock()

	span, ok := h.runSpans[runID]
	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveSpanContext returns the span context for an in-flight tool
// execution, or an invalid context when none is active.
func (h *TracingHandler) ActiveSpanContext(runID, tool string, dimension core.Dimension) trace.SpanContext {
	h.mu.RLock()
	defer h.mu.RUnlock()

	span, ok := h.toolSpans[runID+":"+string(dimension)+"/"+tool]
	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

func toolKey(e qualgate.Event) string {
	return e.RunID + ":" + string(e.Dimension) + "/" + e.Tool
}

func payloadString(payload map[string]any, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// spanError is a lightweight error used to attach payload messages to
// spans without allocating a wrapped error chain.
type spanError string

func (e spanError) Error() string { return string(e) }
