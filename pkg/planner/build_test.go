// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/nabd/pkg/intent"
	"github.com/jllopis/nabd/pkg/skills"
)

var shippedHandlers = []string{
	"date_time", "weather", "web_search", "exchange_rate", "world_time",
	"ip_geolocation", "news_headlines", "rest_countries", "hijri_calendar",
}

func shippedPlanner(t *testing.T) *Planner {
	t.Helper()
	stub := func(_ context.Context, _ map[string]any) (skills.Output, error) {
		return skills.Output{Text: "ok"}, nil
	}
	handlers := make(map[string]skills.Handler, len(shippedHandlers))
	for _, name := range shippedHandlers {
		handlers[name] = stub
	}
	reg := skills.NewRegistry(filepath.Join("..", "..", "skills"),
		skills.WithHandlers(handlers),
		skills.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if got := len(reg.ListExecutable()); got != len(shippedHandlers) {
		t.Fatalf("expected %d executable shipped skills, got %d", len(shippedHandlers), got)
	}
	return New(intent.NewMatcher(reg, intent.Defaults{}))
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "arabic then", input: "ابحث عن الذكاء الاصطناعي ثم طقس الرياض", want: []string{"ابحث عن الذكاء الاصطناعي", "طقس الرياض"}},
		{name: "glued and before keyword", input: "ابحث عن القهوة وطقس جدة", want: []string{"ابحث عن القهوة", "طقس جدة"}},
		{name: "english and before keyword", input: "search for go and weather in Paris", want: []string{"search for go", "weather in Paris"}},
		{name: "after that", input: "news about space after that time in Tokyo", want: []string{"news about space", "time in Tokyo"}},
		{name: "commas and newlines", input: "أ، ب,ج\nد", want: []string{"أ", "ب", "ج", "د"}},
		{name: "plain and kept", input: "القهوة والشاي", want: []string{"القهوة والشاي"}},
		{name: "only separators", input: " ،، ", want: []string{"،،"}},
		{name: "empty", input: "", want: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Segment(tt.input)); diff != "" {
				t.Fatalf("Segment(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestBuildSearchThenWeather(t *testing.T) {
	p := shippedPlanner(t)
	want := &ExecutionPlan{
		IsMultiStep: true,
		Steps: []PlanStep{
			{
				ID:        "step-1",
				Kind:      StepTool,
				Objective: "تنفيذ بحث ويب لجزء الطلب: ابحث عن الذكاء الاصطناعي",
				Tool:      "web_search",
				Input:     map[string]any{"query": "الذكاء الاصطناعي"},
			},
			{
				ID:        "step-2",
				Kind:      StepTool,
				Objective: "الحصول على حالة الطقس لجزء الطلب: طقس الرياض",
				Tool:      "weather",
				Input:     map[string]any{"location": "الرياض"},
			},
			{ID: "step-3", Kind: StepSynthesis, Objective: synthesisObjective},
		},
	}

	got := p.Build(context.Background(), "ابحث عن الذكاء الاصطناعي ثم طقس الرياض")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("built plan should validate: %v", err)
	}
}

func TestBuildWithoutIntent(t *testing.T) {
	p := shippedPlanner(t)
	inputs := []string{
		"مرحبا، كيف حالك؟",
		"اكتب قصيدة قصيرة عن البحر",
		"hello there",
		"",
	}
	want := &ExecutionPlan{
		Steps: []PlanStep{{ID: "step-1", Kind: StepSynthesis, Objective: directObjective}},
	}
	for _, input := range inputs {
		got := p.Build(context.Background(), input)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Build(%q) mismatch (-want +got):\n%s", input, diff)
		}
	}
}

func TestBuildSingleTool(t *testing.T) {
	p := shippedPlanner(t)
	got := p.Build(context.Background(), "حول 100 USD إلى SAR")
	if got.IsMultiStep {
		t.Fatalf("one tool step must not be multi-step")
	}
	if len(got.Steps) != 2 {
		t.Fatalf("expected tool + synthesis, got %d steps", len(got.Steps))
	}
	step := got.Steps[0]
	if step.Tool != "exchange_rate" {
		t.Fatalf("expected exchange_rate, got %q", step.Tool)
	}
	wantInput := map[string]any{"from": "USD", "to": "SAR", "amount": 100.0}
	if diff := cmp.Diff(wantInput, step.Input); diff != "" {
		t.Fatalf("input mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDropsUnmatchedSegments(t *testing.T) {
	p := shippedPlanner(t)
	got := p.Build(context.Background(), "اكتب قصيدة ثم طقس دبي")
	tools := got.ToolSteps()
	if len(tools) != 1 || tools[0].Tool != "weather" || tools[0].ID != "step-1" {
		t.Fatalf("unexpected tool steps: %+v", tools)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := shippedPlanner(t)
	input := "أخبار الفضاء ثم كم الساعة في طوكيو، ما التاريخ الهجري"
	first := p.Build(context.Background(), input)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, p.Build(context.Background(), input)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestDescribe(t *testing.T) {
	plan := &ExecutionPlan{
		Steps: []PlanStep{
			{ID: "step-1", Kind: StepTool, Objective: "طقس", Tool: "weather"},
			{ID: "step-2", Kind: StepSynthesis, Objective: "دمج"},
		},
	}
	want := "- (step-1) طقس [weather]\n- (step-2) دمج"
	if got := plan.Describe(); got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		plan *ExecutionPlan
	}{
		{name: "nil", plan: nil},
		{name: "empty", plan: &ExecutionPlan{}},
		{name: "missing synthesis", plan: &ExecutionPlan{Steps: []PlanStep{{ID: "step-1", Kind: StepTool, Tool: "weather"}}}},
		{name: "tool without name", plan: &ExecutionPlan{Steps: []PlanStep{{ID: "step-1", Kind: StepTool}, {ID: "step-2", Kind: StepSynthesis}}}},
		{name: "duplicate ids", plan: &ExecutionPlan{Steps: []PlanStep{{ID: "step-1", Kind: StepTool, Tool: "a"}, {ID: "step-1", Kind: StepSynthesis}}}},
		{name: "synthesis not last", plan: &ExecutionPlan{Steps: []PlanStep{{ID: "s1", Kind: StepSynthesis}, {ID: "s2", Kind: StepSynthesis}}}},
		{name: "wrong multi-step flag", plan: &ExecutionPlan{IsMultiStep: true, Steps: []PlanStep{{ID: "s1", Kind: StepTool, Tool: "a"}, {ID: "s2", Kind: StepSynthesis}}}},
		{name: "unknown kind", plan: &ExecutionPlan{Steps: []PlanStep{{ID: "s1", Kind: "loop"}, {ID: "s2", Kind: StepSynthesis}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.plan.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
