// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/telemetry"
)

// Tool run origins.
const (
	OriginPlanner = "planner"
	OriginModel   = "model"
	OriginMCP     = "mcp"
)

// Runner executes a named tool with raw input.
type Runner interface {
	Run(ctx context.Context, name string, input map[string]any) (skills.Output, error)
}

// ToolRunTrace records one executed tool step. Exactly one of Output and
// Error is set.
type ToolRunTrace struct {
	StepID    string         `json:"stepId"`
	Tool      string         `json:"toolName"`
	Input     map[string]any `json:"input"`
	Output    string         `json:"outputText,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	LatencyMs int64          `json:"latencyMs"`
}

// Failed reports whether the run ended in an error.
func (t ToolRunTrace) Failed() bool { return t.Error != "" }

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMetrics records every run on the given instruments.
func WithMetrics(m *telemetry.PipelineMetrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithExecutorLogger overrides the default logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor runs tool steps one after another. A failing step is recorded
// and the next one still runs.
type Executor struct {
	runner  Runner
	metrics *telemetry.PipelineMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewExecutor creates an executor on top of runner.
func NewExecutor(runner Runner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		runner: runner,
		logger: slog.Default(),
		tracer: otel.Tracer("nabd/planner"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every tool step of plan in order and returns one trace per step.
func (e *Executor) Execute(ctx context.Context, plan *ExecutionPlan) []ToolRunTrace {
	steps := plan.ToolSteps()
	runs := make([]ToolRunTrace, 0, len(steps))
	for _, step := range steps {
		runs = append(runs, e.Run(ctx, step.ID, step.Tool, step.Input, OriginPlanner))
	}
	return runs
}

// Run executes a single tool and converts any failure, panics included,
// into the returned trace.
func (e *Executor) Run(ctx context.Context, stepID, tool string, input map[string]any, origin string) ToolRunTrace {
	if input == nil {
		input = map[string]any{}
	}
	ctx, span := e.tracer.Start(ctx, "Tool.Run")
	defer span.End()

	start := e.now()
	out, err := e.safeRun(ctx, tool, input)
	latency := e.now().Sub(start).Milliseconds()

	run := ToolRunTrace{
		StepID:    stepID,
		Tool:      tool,
		Input:     input,
		LatencyMs: latency,
	}
	if err != nil {
		run.Error = errors.UserMessage(err)
		if run.Error == "" {
			run.Error = "خطأ غير معروف"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, run.Error)
		e.logger.WarnContext(ctx, "tool.run.error",
			telemetry.ToolAttr(tool),
			slog.String("step_id", stepID),
			slog.String("origin", origin),
			slog.String("error", err.Error()),
		)
	} else {
		run.Output = out.Text
		run.Metadata = out.Metadata
		e.logger.DebugContext(ctx, "tool.run.done",
			telemetry.ToolAttr(tool),
			slog.String("step_id", stepID),
			slog.Int64("latency_ms", latency),
		)
	}
	span.SetAttributes(telemetry.ToolRunAttributes(tool, stepID, origin, latency, err == nil)...)
	e.metrics.RecordToolRun(ctx, tool, origin, latency, err)
	return run
}

func (e *Executor) safeRun(ctx context.Context, tool string, input map[string]any) (out skills.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeToolFailure, fmt.Sprintf("تعذر تنفيذ الأداة %s", tool), fmt.Errorf("panic: %v", r))
		}
	}()
	return e.runner.Run(ctx, tool, input)
}
