// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	instructionHandler     = "instruction_only"
	maxInstructionKeywords = 18
	instructionPriority    = 5
)

// SkillMarkdown is a parsed SKILL.md document.
type SkillMarkdown struct {
	Name        string
	Description string
	Metadata    map[string]string
	Body        string
}

type frontmatter struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Metadata    map[string]string `yaml:"metadata"`
}

// LoadSkillMarkdown parses a SKILL.md file.
func LoadSkillMarkdown(path string) (*SkillMarkdown, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSkillMarkdown(string(data))
}

// ParseSkillMarkdown splits the front matter from the body and decodes it.
func ParseSkillMarkdown(content string) (*SkillMarkdown, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		// Headers are plain key: value lines, so unquoted values such as
		// "Use when: planning a trip" are still accepted.
		parsed = parseFrontmatterLines(fm)
	}
	return &SkillMarkdown{
		Name:        strings.TrimSpace(parsed.Name),
		Description: strings.TrimSpace(parsed.Description),
		Metadata:    parsed.Metadata,
		Body:        body,
	}, nil
}

// parseFrontmatterLines reads one "key: value" pair per line, splitting on the
// first colon. A key with an empty value opens a map filled by the indented
// lines that follow it; only metadata is kept from such maps.
func parseFrontmatterLines(fm string) frontmatter {
	var parsed frontmatter
	nested := ""
	for _, line := range strings.Split(fm, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(value)

		if indented := strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t"); indented && nested != "" {
			if nested == "metadata" {
				if parsed.Metadata == nil {
					parsed.Metadata = map[string]string{}
				}
				parsed.Metadata[key] = value
			}
			continue
		}

		nested = ""
		switch {
		case value == "":
			nested = key
		case key == "name":
			parsed.Name = value
		case key == "description":
			parsed.Description = value
		}
	}
	return parsed
}

func unquote(value string) string {
	v := strings.TrimSpace(value)
	if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
		return v[1 : len(v)-1]
	}
	return v
}

// splitFrontmatter requires the document to open with "---" on its own line
// and finds the first closing "---" line after it.
func splitFrontmatter(content string) (string, string, error) {
	raw := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(raw, "---\n") {
		return "", "", errors.New("missing frontmatter")
	}
	rest := raw[len("---\n"):]
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		return "", strings.TrimSpace(strings.TrimPrefix(rest, "---")), nil
	}
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("\n---")], "", nil
		}
		return "", "", errors.New("unterminated frontmatter")
	}
	return rest[:idx], strings.TrimSpace(rest[idx+len("\n---\n"):]), nil
}

// instructionSkill builds the non-executable skill for a SKILL.md-only directory.
func instructionSkill(path string, md *SkillMarkdown) *LoadedSkill {
	id := md.Name
	if id == "" {
		id = filepath.Base(filepath.Dir(path))
	}
	description := md.Description
	if description == "" {
		description = "Instruction-only Agent Skill"
	}
	category := strings.TrimSpace(md.Metadata["category"])
	if category == "" {
		category = "instruction"
	}
	version := strings.TrimSpace(md.Metadata["version"])
	if version == "" {
		version = "1.0.0"
	}

	keywords := dedupe(append(tokenize(id), tokenize(description)...))
	if len(keywords) > maxInstructionKeywords {
		keywords = keywords[:maxInstructionKeywords]
	}

	return &LoadedSkill{
		Manifest: Manifest{
			ID:          id,
			Name:        id,
			Description: description,
			Category:    category,
			Version:     version,
			Handler:     instructionHandler,
			InputSchema: InputSchema{
				Type:                 "object",
				Properties:           map[string]PropertySchema{},
				Required:             []string{},
				AdditionalProperties: true,
			},
			Planner: &PlannerHints{
				Keywords:  keywords,
				Extractor: ExtractNone,
				Objective: fmt.Sprintf("تفعيل تعليمات skill %s عند ارتباط الطلب بها.", id),
				Priority:  instructionPriority,
			},
			SamplePrompts: []string{},
		},
		Format:       FormatInstructions,
		Executable:   false,
		Path:         path,
		Instructions: md.Body,
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
