package planner

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseJSON loads a plan from JSON and validates it.
func ParseJSON(data []byte) (*ExecutionPlan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	var plan ExecutionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse json plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ParseYAML loads a plan from YAML and validates it.
func ParseYAML(data []byte) (*ExecutionPlan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty YAML payload")
	}
	var plan ExecutionPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse yaml plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// MarshalJSON serializes a plan to JSON. Use pretty for indented output.
func MarshalJSON(plan *ExecutionPlan, pretty bool) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if pretty {
		return json.MarshalIndent(plan, "", "  ")
	}
	return json.Marshal(plan)
}

// MarshalYAML serializes a plan to YAML.
func MarshalYAML(plan *ExecutionPlan) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return yaml.Marshal(plan)
}

// Marshal renders a plan in the named format: "json" (indented) or "yaml".
func Marshal(plan *ExecutionPlan, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return MarshalJSON(plan, true)
	case "yaml", "yml":
		return MarshalYAML(plan)
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
}
