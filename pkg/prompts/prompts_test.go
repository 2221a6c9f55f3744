// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package prompts

import (
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/nabd/pkg/errors"
)

func TestList(t *testing.T) {
	var ids []string
	for _, s := range List() {
		ids = append(ids, s.ID)
		p, _ := Get(s.ID)
		if s.PromptLength != utf8.RuneCountInString(p.Prompt) || s.PromptLength == 0 {
			t.Errorf("%s: prompt length %d", s.ID, s.PromptLength)
		}
	}
	want := []string{"default_balanced", "concise_direct", "research_rag", "frontend_architect", "content_writer", "translation_pro"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAndValid(t *testing.T) {
	p, ok := Get("translation_pro")
	if !ok || p.Prompt != "أنت مترجم محترف.\nقدّم ترجمة دقيقة وطبيعية تحفظ المعنى والنبرة.\nلا تضف شروحات إلا إذا طلب المستخدم ذلك." {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if Valid("pirate") || !Valid("concise_direct") {
		t.Fatalf("Valid gave wrong answers")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		id      string
		want    string
		invalid bool
	}{
		{name: "explicit prompt wins", prompt: "كن مختصراً", id: "research_rag", want: "كن مختصراً"},
		{name: "profile", id: "concise_direct", want: profiles[1].Prompt},
		{name: "nothing", want: ""},
		{name: "unknown profile", id: "pirate", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.prompt, tt.id)
			if tt.invalid {
				if !errors.Is(err, errors.CodeInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Resolve = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}
