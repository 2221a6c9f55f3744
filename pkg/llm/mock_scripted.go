package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedStep is one scripted provider answer: either a response or an error.
type ScriptedStep struct {
	Response ChatResponse
	Err      error
}

// ScriptedMockProvider returns a pre-defined sequence of responses.
// Useful for testing the tool-calling loop round by round.
type ScriptedMockProvider struct {
	mu    sync.Mutex
	Steps []ScriptedStep
	// Requests holds every request received, in order.
	Requests []ChatRequest
}

// NewScriptedMockProvider creates a provider answering with the given texts.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	s := &ScriptedMockProvider{}
	for _, r := range responses {
		s.AddResponse(r)
	}
	return s
}

// Chat pops the next scripted step.
func (s *ScriptedMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if len(s.Steps) == 0 {
		return nil, errors.New("scripted mock: no more responses available")
	}

	step := s.Steps[0]
	s.Steps = s.Steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	resp := step.Response
	return &resp, nil
}

// AddResponse appends a text response to the queue.
func (s *ScriptedMockProvider) AddResponse(content string) {
	s.AddStep(ScriptedStep{Response: ChatResponse{
		Content: content,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}})
}

// AddToolCalls appends a response that requests the given tool calls.
func (s *ScriptedMockProvider) AddToolCalls(content string, calls ...ToolCall) {
	s.AddStep(ScriptedStep{Response: ChatResponse{Content: content, ToolCalls: calls}})
}

// AddError appends a failing step.
func (s *ScriptedMockProvider) AddError(err error) {
	s.AddStep(ScriptedStep{Err: err})
}

// AddStep appends a raw step.
func (s *ScriptedMockProvider) AddStep(step ScriptedStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Steps = append(s.Steps, step)
}

// CallCount reports how many requests were received.
func (s *ScriptedMockProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
