// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/nabd/pkg/intent"
	"github.com/jllopis/nabd/pkg/telemetry"
)

var (
	// "ابحث عن X وطقس Y": a bare "و" glued to an action keyword starts a new segment.
	arabicAnd  = regexp.MustCompile(`(?i)\s+و(ابحث|search|طقس|الطقس|درجة الحرارة|الوقت|التاريخ)`)
	englishAnd = regexp.MustCompile(`(?i)\s+and\s+(search|weather|time|date|news)\b`)
	spaces     = regexp.MustCompile(`\s+`)
	separators = regexp.MustCompile(`(?i)\s+(?:ثم|وبعد ذلك|بعدها|then|after that)\s+|[،,\n]+`)
)

// Normalize rewrites conjunctions that precede an action keyword into a
// sequencing connector and collapses whitespace.
func Normalize(input string) string {
	out := arabicAnd.ReplaceAllString(input, " ثم $1")
	out = englishAnd.ReplaceAllString(out, " then $1")
	out = spaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Segment splits an utterance into trimmed, non-empty request parts. When
// nothing survives, the whole trimmed input is the only segment.
func Segment(input string) []string {
	parts := separators.Split(Normalize(input), -1)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		return []string{strings.TrimSpace(input)}
	}
	return segments
}

// Matcher resolves a segment to at most one tool.
type Matcher interface {
	Match(segment string) (intent.Match, bool)
}

// Planner builds execution plans from free text.
type Planner struct {
	matcher Matcher
	tracer  trace.Tracer
}

// New creates a planner backed by the given matcher.
func New(matcher Matcher) *Planner {
	return &Planner{
		matcher: matcher,
		tracer:  otel.Tracer("nabd/planner"),
	}
}

// Build never fails: segments without a matching skill contribute no step,
// and a plan without tool steps answers directly through the model.
func (p *Planner) Build(ctx context.Context, content string) *ExecutionPlan {
	_, span := p.tracer.Start(ctx, "Planner.Build")
	defer span.End()

	segments := Segment(content)
	var steps []PlanStep
	for _, segment := range segments {
		match, ok := p.matcher.Match(segment)
		if !ok {
			continue
		}
		steps = append(steps, PlanStep{
			ID:        fmt.Sprintf("step-%d", len(steps)+1),
			Kind:      StepTool,
			Objective: match.Objective,
			Tool:      match.Tool,
			Input:     match.Input,
		})
	}

	var plan *ExecutionPlan
	if len(steps) == 0 {
		plan = directPlan()
	} else {
		plan = &ExecutionPlan{
			IsMultiStep: len(steps) > 1,
			Steps: append(steps, PlanStep{
				ID:        fmt.Sprintf("step-%d", len(steps)+1),
				Kind:      StepSynthesis,
				Objective: synthesisObjective,
			}),
		}
	}

	span.SetAttributes(telemetry.PlanAttributes(len(segments), len(plan.Steps), plan.IsMultiStep)...)
	slog.Default().DebugContext(ctx, "planner.plan.built",
		slog.Int("segments", len(segments)),
		slog.Int("tool_steps", len(steps)),
		slog.Bool("multi_step", plan.IsMultiStep),
	)
	return plan
}
