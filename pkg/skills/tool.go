// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"encoding/json"
	"strings"

	"github.com/jllopis/nabd/pkg/llm"
)

// ToolDefinition returns the function tool the model sees for this skill.
func (s *LoadedSkill) ToolDefinition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        s.ID,
			Description: s.Description,
			Parameters:  s.InputSchema.AsMap(),
		},
	}
}

// ToolDefinitions converts the executable skills into model tools.
func ToolDefinitions(skills []*LoadedSkill) []llm.Tool {
	tools := make([]llm.Tool, 0, len(skills))
	for _, s := range skills {
		if s.Executable {
			tools = append(tools, s.ToolDefinition())
		}
	}
	return tools
}

// DescribeTools renders tool definitions for the system prompt, one
// "- name: description" line followed by the JSON schema.
func DescribeTools(skills []*LoadedSkill) string {
	lines := make([]string, 0, len(skills))
	for _, s := range skills {
		if !s.Executable {
			continue
		}
		schema, err := json.Marshal(s.InputSchema.AsMap())
		if err != nil {
			schema = []byte("{}")
		}
		lines = append(lines, "- "+s.ID+": "+s.Description+"\n  schema: "+string(schema))
	}
	return strings.Join(lines, "\n")
}
