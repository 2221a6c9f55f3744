// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/telemetry"
)

const (
	// MaxToolRoundsLimit caps how many tool round-trips a single reply may take.
	MaxToolRoundsLimit = 3
	// MaxCallsPerRound caps how many tool calls are honoured per model response.
	MaxCallsPerRound = 4
	// EmptyReply is returned when the model produced no usable text.
	EmptyReply = "عذراً، لم أتمكن من إنشاء رد."
)

// ToolCallback executes one model-requested tool. round and index are
// 1-based. A returned error is reported back to the model as text.
type ToolCallback func(ctx context.Context, round, index int, name string, args map[string]any) (string, error)

// Reply is the outcome of a Generate call.
type Reply struct {
	Content             string
	Rounds              int
	ToolCalls           int
	RetriedWithoutTools bool
	Usage               Usage
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxToolRounds sets the tool round budget, clamped to [0, MaxToolRoundsLimit].
func WithMaxToolRounds(n int) ClientOption {
	return func(c *Client) { c.maxToolRounds = clampRounds(n) }
}

// WithProviderName labels spans with the backend name.
func WithProviderName(name string) ClientOption {
	return func(c *Client) { c.providerName = name }
}

// WithClientLogger overrides the default logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client runs the bounded tool-calling loop over a Provider.
type Client struct {
	provider      Provider
	model         string
	providerName  string
	maxToolRounds int
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewClient creates a client for model on provider with two tool rounds.
func NewClient(provider Provider, model string, opts ...ClientOption) *Client {
	c := &Client{
		provider:      provider,
		model:         model,
		maxToolRounds: 2,
		logger:        slog.Default(),
		tracer:        otel.Tracer("nabd/llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

func clampRounds(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxToolRoundsLimit {
		return MaxToolRoundsLimit
	}
	return n
}

// Generate sends messages to the model. When tools and a callback are
// given, requests carry tool_choice=auto and tool calls are executed through
// the callback, summarized back to the model, and the model is asked again,
// for at most maxToolRounds rounds. If a request carrying tools fails, it is
// repeated once without tools. The last non-empty content wins; EmptyReply
// is used when there is none.
func (c *Client) Generate(ctx context.Context, messages []Message, tools []Tool, callback ToolCallback) (Reply, error) {
	ctx, span := c.tracer.Start(ctx, "LLM.Generate")
	defer span.End()

	transcript := append([]Message(nil), messages...)
	useTools := len(tools) > 0 && callback != nil
	var reply Reply

	for round := 0; ; round++ {
		req := ChatRequest{Model: c.model, Messages: transcript}
		offerTools := useTools && round < c.maxToolRounds
		if offerTools {
			req.Tools = tools
			req.ToolChoice = ToolChoiceAuto
		}

		resp, err := c.provider.Chat(ctx, req)
		if err != nil && offerTools && !reply.RetriedWithoutTools && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "llm.tools.rejected",
				slog.String("model", c.model),
				slog.String("error", err.Error()),
			)
			reply.RetriedWithoutTools = true
			useTools = false
			req.Tools, req.ToolChoice = nil, ""
			resp, err = c.provider.Chat(ctx, req)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return reply, errors.New(errors.CodeLLMError, "model request failed", err).
				WithAttribute("model", c.model)
		}

		reply.Usage.Add(resp.Usage)
		if text := strings.TrimSpace(resp.Content); text != "" {
			reply.Content = text
		}
		if !offerTools || !useTools || len(resp.ToolCalls) == 0 {
			break
		}

		calls := resp.ToolCalls
		if len(calls) > MaxCallsPerRound {
			calls = calls[:MaxCallsPerRound]
		}
		reply.Rounds++
		reply.ToolCalls += len(calls)
		transcript = append(transcript, c.runToolCalls(ctx, reply.Rounds, resp.Content, calls, callback)...)
	}

	if reply.Content == "" {
		reply.Content = EmptyReply
	}
	span.SetAttributes(telemetry.LLMAttributes(c.providerName, c.model, reply.Rounds, reply.ToolCalls)...)
	c.logger.DebugContext(ctx, "llm.generate.done",
		slog.String("model", c.model),
		slog.Int("rounds", reply.Rounds),
		slog.Int("tool_calls", reply.ToolCalls),
		slog.Bool("retried_without_tools", reply.RetriedWithoutTools),
	)
	return reply, nil
}

// runToolCalls executes calls and returns the synthetic assistant message and
// the system message summarizing their results.
func (c *Client) runToolCalls(ctx context.Context, round int, content string, calls []ToolCall, callback ToolCallback) []Message {
	names := make([]string, 0, len(calls))
	lines := make([]string, 0, len(calls))
	for i, call := range calls {
		name := call.Function.Name
		names = append(names, name)

		args, err := decodeArguments(call.Function.Arguments)
		var output string
		if err == nil {
			output, err = callback(ctx, round, i+1, name, args)
		}
		if err != nil {
			lines = append(lines, fmt.Sprintf("- %s: فشل التنفيذ (%s)", name, errors.UserMessage(err)))
			continue
		}
		if strings.TrimSpace(output) == "" {
			output = "بدون مخرجات"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", name, output))
	}

	assistant := strings.TrimSpace(content)
	if assistant == "" {
		assistant = "سأستخدم الأدوات التالية: " + strings.Join(names, "، ")
	}
	return []Message{
		{Role: RoleAssistant, Content: assistant},
		{Role: RoleSystem, Content: "نتائج الأدوات التي طلبها النموذج:\n" + strings.Join(lines, "\n") +
			"\nاستخدم هذه النتائج للإجابة على المستخدم مباشرة."},
	}
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "وسائط الأداة ليست JSON صالحاً", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
