// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills discovers, validates and runs assistant skills.
//
// A skill lives in its own directory under the skills root. Directories with a
// skill.json manifest are executable and bound to a compiled-in handler; a
// SKILL.md next to the manifest contributes instructions. Directories with only
// a SKILL.md produce instruction-only skills that the model can cite but never
// execute.
package skills

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jllopis/nabd/pkg/errors"
)

// Format tags how a skill was declared on disk.
type Format string

const (
	FormatManifest     Format = "nabd-json"
	FormatInstructions Format = "agent-skills"
)

// Output is what a handler returns: display text plus tracing metadata.
type Output struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Handler implements one concrete capability.
type Handler func(ctx context.Context, input map[string]any) (Output, error)

// LoadedSkill is a validated manifest bound to its handler. Values are never
// mutated after the registry builds them.
type LoadedSkill struct {
	Manifest
	Format       Format `json:"format"`
	Executable   bool   `json:"isExecutable"`
	Path         string `json:"skillFilePath"`
	Instructions string `json:"instructions,omitempty"`

	patterns []*regexp.Regexp
	handler  Handler
}

// ParseInput validates raw input against the skill's input schema.
// Instruction-only skills accept anything and yield an empty map.
func (s *LoadedSkill) ParseInput(raw map[string]any) (map[string]any, error) {
	if !s.Executable {
		return map[string]any{}, nil
	}
	return ParseInput(s.InputSchema, raw)
}

// Execute runs the bound handler with an already parsed input.
func (s *LoadedSkill) Execute(ctx context.Context, input map[string]any) (Output, error) {
	if !s.Executable || s.handler == nil {
		return Output{}, errors.New(errors.CodeNotExecutable,
			fmt.Sprintf("المهارة \"%s\" إرشادية فقط ولا تملك handler تنفيذي.", s.ID), nil).
			WithContext("skill", s.ID)
	}
	return s.handler(ctx, input)
}

// Hints returns the planner hints, never nil.
func (s *LoadedSkill) Hints() PlannerHints {
	if s.Planner == nil {
		return PlannerHints{}
	}
	return *s.Planner
}

// PatternMatches counts the planner patterns that match text.
func (s *LoadedSkill) PatternMatches(text string) int {
	n := 0
	for _, re := range s.patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

// compilePatterns builds case-insensitive matchers; invalid expressions are
// returned separately so the caller can report them.
func compilePatterns(patterns []string) ([]*regexp.Regexp, []string) {
	var (
		out     []*regexp.Regexp
		invalid []string
	)
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			invalid = append(invalid, p)
			continue
		}
		out = append(out, re)
	}
	return out, invalid
}

// NewExecutable binds a manifest to a handler without directory discovery.
// Invalid planner patterns are dropped.
func NewExecutable(m Manifest, path string, h Handler) *LoadedSkill {
	s := &LoadedSkill{
		Manifest:   m,
		Format:     FormatManifest,
		Executable: true,
		Path:       path,
		handler:    h,
	}
	s.patterns, _ = compilePatterns(s.Hints().Patterns)
	return s
}
