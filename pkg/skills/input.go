// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jllopis/nabd/pkg/errors"
)

// ParseInput validates raw against schema and returns a typed copy.
//
// Unknown keys are rejected unless additional properties are allowed, in which
// case they pass through verbatim. Strings are trimmed; a blank string is an
// error only for required fields and is otherwise dropped. Numbers accept
// numeric strings. Booleans must already be booleans.
func ParseInput(schema InputSchema, raw map[string]any) (map[string]any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	out := make(map[string]any, len(raw))

	if !schema.AdditionalProperties {
		var unknown []string
		for key := range raw {
			if _, ok := schema.Properties[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, invalidInput("", fmt.Sprintf("مدخلات غير مدعومة: %s", strings.Join(unknown, ", ")))
		}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, key := range names {
		prop := schema.Properties[key]
		required := schema.IsRequired(key)
		value, present := raw[key]
		if !present || value == nil {
			if required {
				return nil, invalidInput(key, fmt.Sprintf("الحقل \"%s\" مطلوب", key))
			}
			continue
		}

		switch prop.Type {
		case PropertyString:
			s, ok := value.(string)
			if !ok {
				return nil, invalidInput(key, fmt.Sprintf("الحقل \"%s\" يجب أن يكون نصًا", key))
			}
			s = strings.TrimSpace(s)
			if s == "" {
				if required {
					return nil, invalidInput(key, fmt.Sprintf("الحقل \"%s\" لا يمكن أن يكون فارغًا", key))
				}
				continue
			}
			out[key] = s
		case PropertyNumber:
			n, ok := toNumber(value)
			if !ok {
				return nil, invalidInput(key, fmt.Sprintf("الحقل \"%s\" يجب أن يكون رقمًا", key))
			}
			out[key] = n
		case PropertyBoolean:
			b, ok := value.(bool)
			if !ok {
				return nil, invalidInput(key, fmt.Sprintf("الحقل \"%s\" يجب أن يكون قيمة منطقية", key))
			}
			out[key] = b
		}
	}

	if schema.AdditionalProperties {
		for key, value := range raw {
			if _, declared := schema.Properties[key]; !declared {
				out[key] = value
			}
		}
	}
	return out, nil
}

func toNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func invalidInput(field, msg string) error {
	err := errors.New(errors.CodeInvalidInput, msg, nil)
	if field != "" {
		err.WithContext("field", field)
	}
	return err
}
