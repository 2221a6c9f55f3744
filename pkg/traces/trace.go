// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package traces records what happened while producing each assistant reply
// and keeps bounded histories of those records for debugging.
package traces

import (
	"time"

	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/planner"
)

// Source tells where the substance of a reply came from.
type Source string

const (
	SourceTool    Source = "tool"
	SourceLLM     Source = "llm"
	SourceRAG     Source = "rag"
	SourcePlanner Source = "planner"
)

// InferSource classifies a turn: planner when more than one tool ran or the
// plan was multi-step, tool for exactly one run, rag when context was
// retrieved, llm otherwise.
func InferSource(runs []planner.ToolRunTrace, plan *planner.ExecutionPlan, contexts []memory.RetrievedContext) Source {
	switch {
	case len(runs) > 1 || (plan != nil && plan.IsMultiStep):
		return SourcePlanner
	case len(runs) == 1:
		return SourceTool
	case len(contexts) > 0:
		return SourceRAG
	}
	return SourceLLM
}

// OrchestrationTrace is the record of one assistant turn. It is not
// modified after it is built.
type OrchestrationTrace struct {
	RunID                   string                    `json:"runId"`
	TraceID                 string                    `json:"traceId,omitempty"`
	ConversationID          string                    `json:"conversationId,omitempty"`
	StartedAt               time.Time                 `json:"startedAt"`
	FinishedAt              time.Time                 `json:"finishedAt"`
	DurationMs              int64                     `json:"durationMs"`
	UserContent             string                    `json:"userContent"`
	SystemPromptProvided    bool                      `json:"systemPromptProvided"`
	ModelConfigured         bool                      `json:"modelConfigured"`
	Source                  Source                    `json:"source"`
	Plan                    *planner.ExecutionPlan    `json:"plan"`
	ToolRuns                []planner.ToolRunTrace    `json:"toolRuns"`
	RAGContexts             []memory.RetrievedContext `json:"ragContexts"`
	HistorySummarized       bool                      `json:"historySummarized"`
	HistoryMessagesUsed     int                       `json:"historyMessagesUsed"`
	ActiveInstructionSkills []string                  `json:"activeInstructionSkills"`
	ModelToolRounds         int                       `json:"modelToolRounds,omitempty"`
	ProviderError           string                    `json:"providerError,omitempty"`
}
