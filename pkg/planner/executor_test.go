package planner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/skills"
)

type runnerFunc func(ctx context.Context, name string, input map[string]any) (skills.Output, error)

func (f runnerFunc) Run(ctx context.Context, name string, input map[string]any) (skills.Output, error) {
	return f(ctx, name, input)
}

// stepClock advances 25ms on every call.
func stepClock() func() time.Time {
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(25 * time.Millisecond)
		return now
	}
}

func newTestExecutor(r Runner) *Executor {
	e := NewExecutor(r, WithExecutorLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	e.now = stepClock()
	return e
}

func TestExecutorContinuesAfterFailure(t *testing.T) {
	var order []string
	runner := runnerFunc(func(_ context.Context, name string, input map[string]any) (skills.Output, error) {
		order = append(order, name)
		switch name {
		case "weather":
			return skills.Output{}, errors.New(errors.CodeUpstream, "request failed: 503", nil)
		case "boom":
			panic("handler exploded")
		}
		return skills.Output{Text: "result for " + name, Metadata: map[string]any{"n": len(input)}}, nil
	})

	plan := &ExecutionPlan{
		IsMultiStep: true,
		Steps: []PlanStep{
			{ID: "step-1", Kind: StepTool, Tool: "weather", Input: map[string]any{"location": "الرياض"}},
			{ID: "step-2", Kind: StepTool, Tool: "boom"},
			{ID: "step-3", Kind: StepTool, Tool: "web_search", Input: map[string]any{"query": "go"}},
			{ID: "step-4", Kind: StepSynthesis, Objective: synthesisObjective},
		},
	}

	runs := newTestExecutor(runner).Execute(context.Background(), plan)

	if diff := cmp.Diff([]string{"weather", "boom", "web_search"}, order); diff != "" {
		t.Fatalf("execution order mismatch (-want +got):\n%s", diff)
	}
	want := []ToolRunTrace{
		{StepID: "step-1", Tool: "weather", Input: map[string]any{"location": "الرياض"}, Error: "request failed: 503", LatencyMs: 25},
		{StepID: "step-2", Tool: "boom", Input: map[string]any{}, Error: "تعذر تنفيذ الأداة boom: panic: handler exploded", LatencyMs: 25},
		{StepID: "step-3", Tool: "web_search", Input: map[string]any{"query": "go"}, Output: "result for web_search", Metadata: map[string]any{"n": 1}, LatencyMs: 25},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	if !runs[0].Failed() || runs[2].Failed() {
		t.Fatalf("unexpected Failed() results")
	}
}

func TestExecutorDirectPlanRunsNothing(t *testing.T) {
	runner := runnerFunc(func(context.Context, string, map[string]any) (skills.Output, error) {
		t.Fatalf("runner must not be called")
		return skills.Output{}, nil
	})
	if runs := newTestExecutor(runner).Execute(context.Background(), directPlan()); len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}

func TestExecutorRunKeepsStepID(t *testing.T) {
	runner := runnerFunc(func(context.Context, string, map[string]any) (skills.Output, error) {
		return skills.Output{Text: "ok"}, nil
	})
	run := newTestExecutor(runner).Run(context.Background(), "model-1-2", "date_time", nil, OriginModel)
	if run.StepID != "model-1-2" || run.Output != "ok" || run.Input == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
}
