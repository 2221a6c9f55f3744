// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides structured logging and OpenTelemetry
// integration for the assistant pipeline.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for Nabd spans and metrics.
const (
	// Turn attributes
	AttrConversationID   = "nabd.conversation.id"
	AttrRunID            = "nabd.run.id"
	AttrReplySource      = "nabd.reply.source"
	AttrModelConfigured  = "nabd.model.configured"
	AttrHistoryMessages  = "nabd.history.messages"
	AttrHistorySummarize = "nabd.history.summarized"

	// Plan attributes
	AttrPlanSteps     = "nabd.plan.steps"
	AttrPlanMultiStep = "nabd.plan.multi_step"
	AttrPlanSegments  = "nabd.plan.segments"

	// Tool attributes
	AttrToolName       = "nabd.tool.name"
	AttrToolStepID     = "nabd.tool.step_id"
	AttrToolDurationMs = "nabd.tool.duration_ms"
	AttrToolSuccess    = "nabd.tool.success"
	AttrToolOrigin     = "nabd.tool.origin" // "planner", "model"

	// Skill catalog attributes
	AttrSkillsCount      = "nabd.skills.count"
	AttrSkillsExecutable = "nabd.skills.executable"
	AttrSkillsActivated  = "nabd.skills.activated"

	// RAG attributes
	AttrRAGTopK    = "nabd.rag.top_k"
	AttrRAGHits    = "nabd.rag.hits"
	AttrRAGBackend = "nabd.rag.backend"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMToolRounds   = "gen_ai.tool_rounds"
	AttrLLMToolCalls    = "gen_ai.tool_calls"

	// Error attributes
	AttrErrorCode = "error.code"
)

// TurnAttributes returns the attributes recorded on an orchestration span.
func TurnAttributes(conversationID, runID string, modelConfigured bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Bool(AttrModelConfigured, modelConfigured),
	}
	if conversationID != "" {
		attrs = append(attrs, attribute.String(AttrConversationID, conversationID))
	}
	return attrs
}

// PlanAttributes describes a built execution plan.
func PlanAttributes(segments, steps int, multiStep bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPlanSegments, segments),
		attribute.Int(AttrPlanSteps, steps),
		attribute.Bool(AttrPlanMultiStep, multiStep),
	}
}

// ToolRunAttributes describes one tool invocation.
func ToolRunAttributes(name, stepID, origin string, durationMs int64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.String(AttrToolStepID, stepID),
		attribute.String(AttrToolOrigin, origin),
		attribute.Int64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// RAGAttributes describes a retrieval.
func RAGAttributes(backend string, topK, hits int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRAGBackend, backend),
		attribute.Int(AttrRAGTopK, topK),
		attribute.Int(AttrRAGHits, hits),
	}
}

// LLMAttributes describes a model call.
func LLMAttributes(provider, model string, toolRounds, toolCalls int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMToolRounds, toolRounds),
		attribute.Int(AttrLLMToolCalls, toolCalls),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// Truncate shortens s to maxLen bytes on a rune boundary, appending "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !runeStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}
