// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/nabd/pkg/errors"
)

// PipelineMetrics counts turns, tool runs and degraded replies.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	turns        metric.Int64Counter
	turnDuration metric.Int64Histogram
	toolRuns     metric.Int64Counter
	toolErrors   metric.Int64Counter
	toolLatency  metric.Int64Histogram
	fallbacks    metric.Int64Counter
	ragHits      metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on the global meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("nabd/orchestrator")

	turns, err := meter.Int64Counter("nabd.turns.total",
		metric.WithDescription("Assistant turns by reply source"))
	if err != nil {
		return nil, err
	}
	turnDuration, err := meter.Int64Histogram("nabd.turn.duration_ms",
		metric.WithDescription("Turn duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	toolRuns, err := meter.Int64Counter("nabd.tool.runs.total",
		metric.WithDescription("Tool runs by tool and origin"))
	if err != nil {
		return nil, err
	}
	toolErrors, err := meter.Int64Counter("nabd.tool.errors.total",
		metric.WithDescription("Failed tool runs by tool and error code"))
	if err != nil {
		return nil, err
	}
	toolLatency, err := meter.Int64Histogram("nabd.tool.latency_ms",
		metric.WithDescription("Tool latency in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("nabd.llm.fallbacks.total",
		metric.WithDescription("Replies produced without the model, by reason"))
	if err != nil {
		return nil, err
	}
	ragHits, err := meter.Int64Counter("nabd.rag.hits.total",
		metric.WithDescription("Retrieved contexts above the similarity threshold"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		turns:        turns,
		turnDuration: turnDuration,
		toolRuns:     toolRuns,
		toolErrors:   toolErrors,
		toolLatency:  toolLatency,
		fallbacks:    fallbacks,
		ragHits:      ragHits,
	}, nil
}

// RecordTurn records a finished turn.
func (m *PipelineMetrics) RecordTurn(ctx context.Context, source string, durationMs int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrReplySource, source))
	m.turns.Add(ctx, 1, attrs)
	m.turnDuration.Record(ctx, durationMs, attrs)
}

// RecordToolRun records one tool invocation and, when err is set, its error code.
func (m *PipelineMetrics) RecordToolRun(ctx context.Context, tool, origin string, latencyMs int64, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, tool),
		attribute.String(AttrToolOrigin, origin),
	}
	m.toolRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolLatency.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
	if err != nil {
		code := errors.AsNabdError(err).Code
		m.toolErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrToolName, tool),
			attribute.String(AttrErrorCode, string(code)),
		))
	}
}

// RecordFallback records a reply produced without the model.
func (m *PipelineMetrics) RecordFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRAGHits records how many contexts a retrieval returned.
func (m *PipelineMetrics) RecordRAGHits(ctx context.Context, hits int) {
	if m == nil || hits == 0 {
		return
	}
	m.ragHits.Add(ctx, int64(hits))
}
