// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// PropertyType is the closed set of input property types.
type PropertyType string

const (
	PropertyString  PropertyType = "string"
	PropertyNumber  PropertyType = "number"
	PropertyBoolean PropertyType = "boolean"
)

// Extractor names the planner heuristic that builds a tool input from text.
type Extractor string

const (
	ExtractNone      Extractor = "none"
	ExtractLocation  Extractor = "location"
	ExtractQuery     Extractor = "query"
	ExtractCurrency  Extractor = "currency"
	ExtractTimezone  Extractor = "timezone"
	ExtractCountry   Extractor = "country"
	ExtractNewsTopic Extractor = "news_topic"
	ExtractIP        Extractor = "ip"
)

// PropertySchema describes one input property.
type PropertySchema struct {
	Type        PropertyType `json:"type"`
	Description string       `json:"description"`
}

// InputSchema is the JSON-like object schema of a skill input.
type InputSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]PropertySchema `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// PlannerHints steer intent matching for a skill.
type PlannerHints struct {
	Keywords  []string  `json:"keywords"`
	Patterns  []string  `json:"patterns,omitempty"`
	Extractor Extractor `json:"extractor,omitempty"`
	Objective string    `json:"objective,omitempty"`
	Priority  int       `json:"priority,omitempty"`
}

// Manifest is the on-disk description of a skill (skill.json).
type Manifest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Version       string        `json:"version"`
	Handler       string        `json:"handler"`
	InputSchema   InputSchema   `json:"inputSchema"`
	Planner       *PlannerHints `json:"planner,omitempty"`
	SamplePrompts []string      `json:"samplePrompts,omitempty"`
}

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

var (
	idPattern         = regexp.MustCompile(`^[a-z0-9_-]+$`)
	manifestSchema    *jsonschema.Schema
	manifestSchemaErr error
	manifestOnce      sync.Once
)

func compiledManifestSchema() (*jsonschema.Schema, error) {
	manifestOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
		if err != nil {
			manifestSchemaErr = fmt.Errorf("unmarshal manifest schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			manifestSchemaErr = fmt.Errorf("add manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = c.Compile("manifest.schema.json")
	})
	return manifestSchema, manifestSchemaErr
}

// LoadManifest reads and validates a skill.json file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest validates raw JSON against the manifest schema and returns
// the normalized manifest. String fields are trimmed before length checks.
func ParseManifest(data []byte) (*Manifest, error) {
	schema, err := compiledManifestSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) normalize() error {
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	m.Category = strings.TrimSpace(m.Category)
	m.Version = strings.TrimSpace(m.Version)
	m.Handler = strings.TrimSpace(m.Handler)

	if !idPattern.MatchString(m.ID) || utf8.RuneCountInString(m.ID) < 2 {
		return fmt.Errorf("id %q must match %s", m.ID, idPattern.String())
	}
	lengths := []struct {
		field string
		value string
		min   int
	}{
		{"name", m.Name, 2},
		{"description", m.Description, 6},
		{"category", m.Category, 2},
		{"version", m.Version, 1},
		{"handler", m.Handler, 2},
	}
	for _, l := range lengths {
		if utf8.RuneCountInString(l.value) < l.min {
			return fmt.Errorf("%s must have at least %d characters", l.field, l.min)
		}
	}

	if m.InputSchema.Properties == nil {
		m.InputSchema.Properties = map[string]PropertySchema{}
	}
	required := make([]string, 0, len(m.InputSchema.Required))
	for _, name := range m.InputSchema.Required {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("required entries must not be blank")
		}
		required = append(required, name)
	}
	m.InputSchema.Required = required
	for name, prop := range m.InputSchema.Properties {
		prop.Description = strings.TrimSpace(prop.Description)
		if prop.Description == "" {
			return fmt.Errorf("property %q needs a description", name)
		}
		m.InputSchema.Properties[name] = prop
	}

	if m.Planner != nil {
		m.Planner.Keywords = trimAll(m.Planner.Keywords)
		m.Planner.Patterns = trimAll(m.Planner.Patterns)
		m.Planner.Objective = strings.TrimSpace(m.Planner.Objective)
		if m.Planner.Keywords == nil {
			m.Planner.Keywords = []string{}
		}
	}
	for i, prompt := range m.SamplePrompts {
		m.SamplePrompts[i] = strings.TrimSpace(prompt)
	}
	return nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsRequired reports whether name is listed as required.
func (s InputSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// AsMap renders the schema as a generic JSON object, as model tool
// definitions and MCP raw schemas expect.
func (s InputSchema) AsMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = map[string]any{"type": string(p.Type), "description": p.Description}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": s.AdditionalProperties,
	}
}
