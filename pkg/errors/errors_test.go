// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	ne := New(CodeUpstream, "weather lookup failed", cause)

	if ne.Code != CodeUpstream {
		t.Errorf("expected CodeUpstream, got %v", ne.Code)
	}
	if ne.Message != "weather lookup failed" {
		t.Errorf("unexpected message %q", ne.Message)
	}
	if !errors.Is(ne, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContext(t *testing.T) {
	ne := New(CodeInvalidInput, "bad field", nil).
		WithContext("field", "amount").
		WithAttribute("skill", "exchange_rate")

	if ne.Context["field"] != "amount" {
		t.Errorf("expected context field to be 'amount'")
	}
	if ne.Attributes["skill"] != "exchange_rate" {
		t.Errorf("expected attribute skill")
	}
	if ne.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}
	ne.WithRecoverable(true)
	if ne.RecoverableString() != "true" {
		t.Errorf("expected recoverable after WithRecoverable")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ne       *NabdError
		expected string
	}{
		{
			name:     "with cause",
			ne:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ne:       New(CodeNotFound, "skill not found", nil),
			expected: "[NOT_FOUND] skill not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ne.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsNabdError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "nil error", err: nil},
		{name: "already NabdError", err: New(CodeToolFailure, "failed", nil), expected: CodeToolFailure},
		{name: "wrapped NabdError", err: fmt.Errorf("outer: %w", New(CodeUpstream, "bad", nil)), expected: CodeUpstream},
		{name: "deadline", err: context.DeadlineExceeded, expected: CodeTimeout},
		{name: "generic error", err: errors.New("generic error"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := AsNabdError(tt.err)
			if tt.expected == "" {
				if ne != nil {
					t.Errorf("expected nil for nil error")
				}
				return
			}
			if ne == nil {
				t.Fatalf("expected non-nil NabdError")
			}
			if ne.Code != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, ne.Code)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("run: %w", New(CodeNotExecutable, "instruction only", nil))
	if !Is(err, CodeNotExecutable) {
		t.Fatalf("expected code match through wrapping")
	}
	if Is(err, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if Is(errors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("boom"), want: "boom"},
		{name: "validation hides cause", err: New(CodeInvalidInput, "الحقل \"location\" مطلوب", errors.New("x")), want: "الحقل \"location\" مطلوب"},
		{name: "upstream keeps cause", err: New(CodeUpstream, "request failed", errors.New("status 503")), want: "request failed: status 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	ne := New(CodeToolFailure, "tool failed", errors.New("network error")).
		WithContext("tool", "weather").
		WithRecoverable(true)

	data, err := json.Marshal(ne)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}
	if result["code"] != "TOOL_FAILURE" {
		t.Errorf("expected code 'TOOL_FAILURE', got %v", result["code"])
	}
	if result["error"] != "network error" {
		t.Errorf("expected cause, got %v", result["error"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeNotFound, 404},
		{CodeUnauthorized, 401},
		{CodeInvalidInput, 400},
		{CodeNotExecutable, 400},
		{CodeTimeout, 504},
		{CodeUpstream, 502},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "test", nil).StatusCode; got != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, got)
			}
		})
	}
}
