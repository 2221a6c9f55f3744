// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator turns one user message into an assistant reply: it
// plans, runs tools, retrieves knowledge, assembles the prompt, calls the
// model or composes a local fallback, and records a trace of the turn.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/llm"
	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/planner"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/telemetry"
	"github.com/jllopis/nabd/pkg/tools"
	"github.com/jllopis/nabd/pkg/traces"
)

// MaxInstructionSkills bounds the instruction-only skills added to a prompt.
const MaxInstructionSkills = 2

// Retriever finds knowledge context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []memory.RetrievedContext
}

// SkillCatalog is the read side of the skill registry.
type SkillCatalog interface {
	List() []*skills.LoadedSkill
	MatchInstructionSkills(query string, limit int) []*skills.LoadedSkill
}

// Components are the collaborators every turn uses.
type Components struct {
	Planner   *planner.Planner
	Executor  *planner.Executor
	Tools     *tools.Runner
	Skills    SkillCatalog
	Retriever Retriever
}

// Request is one user turn.
type Request struct {
	ConversationID string
	Content        string
	// SystemPrompt is extra caller instruction text, e.g. a prompt profile.
	SystemPrompt string
	// History holds the prior turns, oldest first.
	History []memory.Turn
}

// Result is the reply to a turn.
type Result struct {
	Content string                    `json:"content"`
	Source  traces.Source             `json:"source"`
	Trace   traces.OrchestrationTrace `json:"trace"`
}

// Preview shows what a turn would do without running tools or the model.
type Preview struct {
	Segments        []string                  `json:"segments"`
	Plan            *planner.ExecutionPlan    `json:"plan"`
	RAGContexts     []memory.RetrievedContext `json:"ragContexts"`
	ToolDefinitions []tools.Definition        `json:"toolDefinitions"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel enables model replies through client. Without it every turn is
// answered by the local fallback.
func WithModel(client *llm.Client) Option {
	return func(o *Orchestrator) { o.model = client }
}

// WithTraceStore records every turn's trace in store.
func WithTraceStore(store *traces.Store) Option {
	return func(o *Orchestrator) { o.traces = store }
}

// WithMetrics records turn and fallback counters.
func WithMetrics(m *telemetry.PipelineMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTopK sets how many knowledge contexts are retrieved per turn.
func WithTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs assistant turns. It is safe for concurrent use when its
// components are.
type Orchestrator struct {
	Components
	model   *llm.Client
	traces  *traces.Store
	metrics *telemetry.PipelineMetrics
	topK    int
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates an orchestrator.
func New(c Components, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Components: c,
		topK:       memory.DefaultTopK,
		logger:     slog.Default(),
		tracer:     otel.Tracer("nabd/orchestrator"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ModelConfigured reports whether replies come from the model.
func (o *Orchestrator) ModelConfigured() bool { return o.model != nil }

// Reply answers one turn. Tool, retrieval and model failures degrade into
// the reply text; only an empty message is rejected.
func (o *Orchestrator) Reply(ctx context.Context, req Request) (Result, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return Result{}, errors.New(errors.CodeInvalidInput, "محتوى الرسالة مطلوب", nil).WithContext("field", "content")
	}

	started := o.now()
	runID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Reply",
		trace.WithAttributes(telemetry.TurnAttributes(req.ConversationID, runID, o.ModelConfigured())...))
	defer span.End()

	o.logger.InfoContext(ctx, "orchestrator.turn.start",
		telemetry.ConversationAttr(req.ConversationID),
		slog.String("run_id", runID),
		slog.Bool("model_configured", o.ModelConfigured()),
	)

	plan := o.Planner.Build(ctx, content)
	runs := o.Executor.Execute(ctx, plan)
	contexts := o.retrieve(ctx, content)
	window := memory.SummarizeHistory(req.History)
	instructionSkills := o.instructionSkills(content)

	system := buildSystemPrompt(promptInput{
		catalog:      skills.AvailableSkillsXML(o.Skills.List()),
		callerPrompt: strings.TrimSpace(req.SystemPrompt),
		summary:      window.Summary,
		tools:        o.Tools.PromptText(),
		instructions: instructionSkills,
		plan:         plan,
		runs:         runs,
		contexts:     contexts,
	})
	messages, historyUsed := composeMessages(system, window.Turns, content)

	var (
		reply         string
		providerError string
		rounds        int
	)
	if o.model == nil {
		reply = fallbackReply(content, plan, runs, contexts, "")
		o.metrics.RecordFallback(ctx, "unconfigured")
	} else {
		recorder := tools.NewRecorder(o.Executor)
		out, err := o.model.Generate(ctx, messages, o.Tools.ModelTools(), recorder.Callback())
		runs = append(runs, recorder.Runs()...)
		rounds = out.Rounds
		if err != nil {
			providerError = errors.UserMessage(err)
			span.RecordError(err)
			o.logger.WarnContext(ctx, "orchestrator.model.failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			reply = fallbackReply(content, plan, runs, contexts, providerError)
			o.metrics.RecordFallback(ctx, "provider_error")
		} else {
			reply = out.Content + citations(contexts)
		}
	}

	source := traces.InferSource(runs, plan, contexts)
	finished := o.now()
	tr := traces.OrchestrationTrace{
		RunID:                   runID,
		ConversationID:          req.ConversationID,
		StartedAt:               started,
		FinishedAt:              finished,
		DurationMs:              finished.Sub(started).Milliseconds(),
		UserContent:             content,
		SystemPromptProvided:    strings.TrimSpace(req.SystemPrompt) != "",
		ModelConfigured:         o.ModelConfigured(),
		Source:                  source,
		Plan:                    plan,
		ToolRuns:                runs,
		RAGContexts:             contexts,
		HistorySummarized:       window.Summarized,
		HistoryMessagesUsed:     historyUsed,
		ActiveInstructionSkills: skillIDs(instructionSkills),
		ModelToolRounds:         rounds,
		ProviderError:           providerError,
	}
	if sc := span.SpanContext(); sc.HasTraceID() {
		tr.TraceID = sc.TraceID().String()
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrReplySource, string(source)),
		attribute.Int(telemetry.AttrHistoryMessages, historyUsed),
		attribute.Bool(telemetry.AttrHistorySummarize, window.Summarized),
		attribute.Int(telemetry.AttrSkillsActivated, len(instructionSkills)),
	)
	if o.traces != nil {
		o.traces.Record(ctx, tr)
	}
	o.metrics.RecordTurn(ctx, string(source), tr.DurationMs)
	o.logger.InfoContext(ctx, "orchestrator.turn.finish",
		slog.String("run_id", runID),
		slog.String("source", string(source)),
		slog.Int("tool_runs", len(runs)),
		slog.Int("rag_contexts", len(contexts)),
		slog.Int64("duration_ms", tr.DurationMs),
	)

	return Result{Content: reply, Source: source, Trace: tr}, nil
}

// Preview builds the plan and retrieves context for content without
// executing anything.
func (o *Orchestrator) Preview(ctx context.Context, content string) Preview {
	content = strings.TrimSpace(content)
	return Preview{
		Segments:        planner.Segment(content),
		Plan:            o.Planner.Build(ctx, content),
		RAGContexts:     o.retrieve(ctx, content),
		ToolDefinitions: o.Tools.Definitions(),
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, content string) []memory.RetrievedContext {
	if o.Retriever == nil {
		return nil
	}
	return o.Retriever.Retrieve(ctx, content, o.topK)
}

// instructionSkills returns the best matching instruction-only skills.
func (o *Orchestrator) instructionSkills(content string) []*skills.LoadedSkill {
	matched := o.Skills.MatchInstructionSkills(content, len(o.Skills.List()))
	out := make([]*skills.LoadedSkill, 0, MaxInstructionSkills)
	for _, s := range matched {
		if s.Executable {
			continue
		}
		out = append(out, s)
		if len(out) == MaxInstructionSkills {
			break
		}
	}
	return out
}

// composeMessages builds the system message, the history with normalized
// roles and the user message. Turns with other roles are dropped.
func composeMessages(system string, history []memory.Turn, content string) ([]llm.Message, int) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	used := 0
	for _, turn := range history {
		role, ok := llm.NormalizeRole(turn.Role)
		if !ok {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
		used++
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})
	return messages, used
}

func skillIDs(list []*skills.LoadedSkill) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}
