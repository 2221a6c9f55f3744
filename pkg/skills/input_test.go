// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jllopis/nabd/pkg/errors"
)

var exchangeSchema = InputSchema{
	Type: "object",
	Properties: map[string]PropertySchema{
		"from":   {Type: PropertyString, Description: "source currency"},
		"to":     {Type: PropertyString, Description: "target currency"},
		"amount": {Type: PropertyNumber, Description: "amount"},
		"exact":  {Type: PropertyBoolean, Description: "exact"},
	},
	Required: []string{"from", "to"},
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		schema  InputSchema
		raw     map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name:   "coerces numeric strings and trims",
			schema: exchangeSchema,
			raw:    map[string]any{"from": " usd ", "to": "SAR", "amount": "12.5"},
			want:   map[string]any{"from": "usd", "to": "SAR", "amount": 12.5},
		},
		{
			name:   "booleans kept as booleans",
			schema: exchangeSchema,
			raw:    map[string]any{"from": "USD", "to": "EUR", "exact": true},
			want:   map[string]any{"from": "USD", "to": "EUR", "exact": true},
		},
		{
			name:    "undeclared key rejected",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": "USD", "to": "EUR", "rate": 1},
			wantErr: "مدخلات غير مدعومة: rate",
		},
		{
			name:    "missing required",
			schema:  exchangeSchema,
			raw:     map[string]any{"to": "EUR"},
			wantErr: `الحقل "from" مطلوب`,
		},
		{
			name:    "blank required",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": "   ", "to": "EUR"},
			wantErr: `الحقل "from" لا يمكن أن يكون فارغًا`,
		},
		{
			name:    "non numeric",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": "USD", "to": "EUR", "amount": "lots"},
			wantErr: `الحقل "amount" يجب أن يكون رقمًا`,
		},
		{
			name:    "non finite",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": "USD", "to": "EUR", "amount": "Inf"},
			wantErr: `الحقل "amount" يجب أن يكون رقمًا`,
		},
		{
			name:    "boolean must be boolean",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": "USD", "to": "EUR", "exact": "true"},
			wantErr: `الحقل "exact" يجب أن يكون قيمة منطقية`,
		},
		{
			name:    "string must be string",
			schema:  exchangeSchema,
			raw:     map[string]any{"from": 3, "to": "EUR"},
			wantErr: `الحقل "from" يجب أن يكون نصًا`,
		},
		{
			name: "additional properties pass through",
			schema: InputSchema{
				Type:                 "object",
				Properties:           map[string]PropertySchema{"q": {Type: PropertyString, Description: "query"}},
				AdditionalProperties: true,
			},
			raw:  map[string]any{"q": "go", "extra": []any{1.0}},
			want: map[string]any{"q": "go", "extra": []any{1.0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.schema, tt.raw)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error %q", tt.wantErr)
				}
				if !errors.Is(err, errors.CodeInvalidInput) {
					t.Fatalf("expected INVALID_INPUT, got %v", err)
				}
				if msg := errors.UserMessage(err); msg != tt.wantErr {
					t.Fatalf("message = %q, want %q", msg, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("input mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
