// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools exposes executable skills as tools: to the planner's step
// executor, to the system prompt and to the model's tool-calling loop.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/llm"
	"github.com/jllopis/nabd/pkg/planner"
	"github.com/jllopis/nabd/pkg/skills"
)

// Registry is the part of skills.Registry the runner needs.
type Registry interface {
	Run(ctx context.Context, id string, raw map[string]any) (skills.Output, error)
	ListExecutable() []*skills.LoadedSkill
}

// Definition describes a tool for previews and debug output.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema skills.InputSchema `json:"inputSchema"`
}

// Runner delegates tool execution to the skill registry.
type Runner struct {
	registry Registry
}

// NewRunner creates a runner over registry.
func NewRunner(registry Registry) *Runner {
	return &Runner{registry: registry}
}

// Run executes the named tool. It satisfies planner.Runner.
func (r *Runner) Run(ctx context.Context, name string, input map[string]any) (skills.Output, error) {
	return r.registry.Run(ctx, name, input)
}

// Definitions lists every executable tool.
func (r *Runner) Definitions() []Definition {
	list := r.registry.ListExecutable()
	defs := make([]Definition, 0, len(list))
	for _, s := range list {
		defs = append(defs, Definition{Name: s.ID, Description: s.Description, InputSchema: s.InputSchema})
	}
	return defs
}

// ModelTools returns the function tools offered to the model.
func (r *Runner) ModelTools() []llm.Tool {
	return skills.ToolDefinitions(r.registry.ListExecutable())
}

// PromptText renders the tool list for the system prompt.
func (r *Runner) PromptText() string {
	return skills.DescribeTools(r.registry.ListExecutable())
}

// Recorder bridges model tool calls to the step executor and keeps the
// resulting traces for one turn. It is not reused across turns.
type Recorder struct {
	executor *planner.Executor

	mu   sync.Mutex
	runs []planner.ToolRunTrace
}

// NewRecorder creates a recorder that runs tools through executor.
func NewRecorder(executor *planner.Executor) *Recorder {
	return &Recorder{executor: executor}
}

// Callback returns the llm.ToolCallback for this turn. Runs get step ids
// "model-<round>-<n>".
func (r *Recorder) Callback() llm.ToolCallback {
	return func(ctx context.Context, round, index int, name string, args map[string]any) (string, error) {
		stepID := fmt.Sprintf("model-%d-%d", round, index)
		run := r.executor.Run(ctx, stepID, name, args, planner.OriginModel)

		r.mu.Lock()
		r.runs = append(r.runs, run)
		r.mu.Unlock()

		if run.Failed() {
			return "", errors.New(errors.CodeToolFailure, run.Error, nil).WithContext("tool", name)
		}
		return run.Output, nil
	}
}

// Runs returns the recorded model-invoked runs in call order.
func (r *Recorder) Runs() []planner.ToolRunTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]planner.ToolRunTrace(nil), r.runs...)
}
