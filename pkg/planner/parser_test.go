package planner

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func samplePlan() *ExecutionPlan {
	return &ExecutionPlan{
		IsMultiStep: true,
		Steps: []PlanStep{
			{ID: "step-1", Kind: StepTool, Objective: "بحث", Tool: "web_search", Input: map[string]any{"query": "go"}},
			{ID: "step-2", Kind: StepTool, Objective: "طقس", Tool: "weather", Input: map[string]any{"location": "جدة"}},
			{ID: "step-3", Kind: StepSynthesis, Objective: synthesisObjective},
		},
	}
}

func TestParseJSON(t *testing.T) {
	payload := []byte(`{
  "isMultiStep": false,
  "steps": [
    {"id": "step-1", "kind": "tool", "objective": "طقس", "toolName": "weather", "toolInput": {"location": "الرياض"}},
    {"id": "step-2", "kind": "synthesis", "objective": "دمج"}
  ]
}`)
	plan, err := ParseJSON(payload)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if plan.Steps[0].Input["location"] != "الرياض" {
		t.Fatalf("unexpected input: %v", plan.Steps[0].Input)
	}
}

func TestParseYAMLRejectsInvalidPlan(t *testing.T) {
	payload := []byte(`
isMultiStep: false
steps:
  - id: step-1
    kind: tool
    objective: missing tool name
`)
	if _, err := ParseYAML(payload); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ParseJSON(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	plan := samplePlan()

	data, err := MarshalJSON(plan, false)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	fromJSON, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if diff := cmp.Diff(plan, fromJSON); diff != "" {
		t.Fatalf("json round trip mismatch (-want +got):\n%s", diff)
	}

	data, err = Marshal(plan, "yaml")
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	if !strings.Contains(string(data), "toolName: web_search") {
		t.Fatalf("yaml output missing tool name:\n%s", data)
	}
	fromYAML, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if diff := cmp.Diff(plan, fromYAML); diff != "" {
		t.Fatalf("yaml round trip mismatch (-want +got):\n%s", diff)
	}

	if _, err := Marshal(plan, "toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
