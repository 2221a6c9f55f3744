// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package planner turns one user utterance into an ExecutionPlan and runs
// its tool steps in order.
package planner

import (
	"fmt"
	"strings"
)

// StepKind distinguishes tool invocations from the final synthesis.
type StepKind string

const (
	StepTool      StepKind = "tool"
	StepSynthesis StepKind = "synthesis"
)

const (
	directObjective    = "الإجابة المباشرة على طلب المستخدم عبر النموذج اللغوي."
	synthesisObjective = "دمج نتائج الأدوات مع السياق وإنتاج إجابة نهائية واضحة."
)

// PlanStep is one unit of work in a plan.
type PlanStep struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      StepKind       `json:"kind" yaml:"kind"`
	Objective string         `json:"objective" yaml:"objective"`
	Tool      string         `json:"toolName,omitempty" yaml:"toolName,omitempty"`
	Input     map[string]any `json:"toolInput,omitempty" yaml:"toolInput,omitempty"`
}

// ExecutionPlan is built fresh for every turn and never modified afterwards.
type ExecutionPlan struct {
	IsMultiStep bool       `json:"isMultiStep" yaml:"isMultiStep"`
	Steps       []PlanStep `json:"steps" yaml:"steps"`
}

// ToolSteps returns the tool steps in plan order.
func (p *ExecutionPlan) ToolSteps() []PlanStep {
	if p == nil {
		return nil
	}
	var out []PlanStep
	for _, step := range p.Steps {
		if step.Kind == StepTool && step.Tool != "" {
			out = append(out, step)
		}
	}
	return out
}

// Validate checks the shape the builder guarantees: unique ids, tool steps
// naming a tool, and exactly one synthesis step at the end.
func (p *ExecutionPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	seen := make(map[string]bool, len(p.Steps))
	tools := 0
	for i, step := range p.Steps {
		if step.ID == "" {
			return fmt.Errorf("step %d has no id", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("duplicate step id %q", step.ID)
		}
		seen[step.ID] = true
		switch step.Kind {
		case StepTool:
			if step.Tool == "" {
				return fmt.Errorf("tool step %q has no tool", step.ID)
			}
			tools++
		case StepSynthesis:
			if i != len(p.Steps)-1 {
				return fmt.Errorf("synthesis step %q must be last", step.ID)
			}
		default:
			return fmt.Errorf("step %q has unknown kind %q", step.ID, step.Kind)
		}
	}
	if p.Steps[len(p.Steps)-1].Kind != StepSynthesis {
		return fmt.Errorf("plan must end with a synthesis step")
	}
	if p.IsMultiStep != (tools > 1) {
		return fmt.Errorf("isMultiStep does not match %d tool steps", tools)
	}
	return nil
}

// Describe renders the plan as the bullet list used in prompts and fallback replies.
func (p *ExecutionPlan) Describe() string {
	if p == nil {
		return ""
	}
	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		line := fmt.Sprintf("- (%s) %s", step.ID, step.Objective)
		if step.Tool != "" {
			line += " [" + step.Tool + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func directPlan() *ExecutionPlan {
	return &ExecutionPlan{
		Steps: []PlanStep{{ID: "step-1", Kind: StepSynthesis, Objective: directObjective}},
	}
}
