// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jllopis/nabd/pkg/errors"
)

func TestParseSkillMarkdown(t *testing.T) {
	md, err := ParseSkillMarkdown("---\r\nname: \"tone\"\r\ndescription: Formal tone\r\nmetadata:\r\n  version: 2.1.0\r\n---\r\n\r\nWrite formally.\r\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if md.Name != "tone" || md.Description != "Formal tone" {
		t.Fatalf("unexpected frontmatter %+v", md)
	}
	if md.Metadata["version"] != "2.1.0" {
		t.Fatalf("expected nested metadata, got %+v", md.Metadata)
	}
	if md.Body != "Write formally." {
		t.Fatalf("unexpected body %q", md.Body)
	}
}

func TestParseSkillMarkdownColonInValue(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		description string
	}{
		{
			name:        "use when",
			content:     "---\nname: trip-planner\ndescription: Use when: planning a trip\nmetadata:\n  category: travel\n---\nbody\n",
			description: "Use when: planning a trip",
		},
		{
			name:        "hash and colon",
			content:     "---\n# comment line\nname: 'trip-planner'\ndescription: Tips for C# code: idioms\nmetadata:\n  category: \"travel\"\n  version: 1.2.0\n---\nbody\n",
			description: "Tips for C# code: idioms",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseSkillMarkdown(tt.content)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if md.Name != "trip-planner" || md.Description != tt.description {
				t.Fatalf("unexpected frontmatter %+v", md)
			}
			if md.Metadata["category"] != "travel" {
				t.Fatalf("expected nested metadata, got %+v", md.Metadata)
			}
			if md.Body != "body" {
				t.Fatalf("unexpected body %q", md.Body)
			}
		})
	}
}

func TestParseSkillMarkdownErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no frontmatter", content: "# Title\nbody"},
		{name: "unterminated", content: "---\nname: x\nbody"},
		{name: "bad yaml", content: "---\nname: [x\n---\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSkillMarkdown(tt.content); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestInstructionSkillDefaults(t *testing.T) {
	path := filepath.Join("skills", "team-rules", InstructionsFile)
	s := instructionSkill(path, &SkillMarkdown{Body: "rules"})
	if s.ID != "team-rules" || s.Name != "team-rules" {
		t.Fatalf("expected directory name as id, got %q", s.ID)
	}
	if s.Description != "Instruction-only Agent Skill" {
		t.Fatalf("unexpected description %q", s.Description)
	}
	hints := s.Hints()
	if hints.Priority != 5 || hints.Extractor != ExtractNone {
		t.Fatalf("unexpected hints %+v", hints)
	}
	if hints.Objective != "تفعيل تعليمات skill team-rules عند ارتباط الطلب بها." {
		t.Fatalf("unexpected objective %q", hints.Objective)
	}

	in, err := s.ParseInput(map[string]any{"anything": 1})
	if err != nil || len(in) != 0 {
		t.Fatalf("instruction skills accept anything and yield nothing, got %v %v", in, err)
	}
	if _, err := s.Execute(context.Background(), in); !errors.Is(err, errors.CodeNotExecutable) {
		t.Fatalf("expected not executable, got %v", err)
	}
}

func TestInstructionSkillKeywordCap(t *testing.T) {
	md := &SkillMarkdown{
		Name:        "long",
		Description: "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen",
	}
	s := instructionSkill("SKILL.md", md)
	if got := len(s.Hints().Keywords); got != 18 {
		t.Fatalf("expected 18 keywords, got %d", got)
	}
	if s.Hints().Keywords[0] != "long" {
		t.Fatalf("id tokens come first, got %q", s.Hints().Keywords[0])
	}
}
