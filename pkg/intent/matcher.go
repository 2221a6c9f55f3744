// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package intent scores request segments against skill planner hints and
// extracts tool input from free text.
package intent

import (
	"sort"
	"strings"

	"github.com/jllopis/nabd/pkg/skills"
)

const fallbackObjective = "تشغيل مهارة {name} لمعالجة جزء الطلب: {segment}"

// Defaults are used when an extractor finds nothing in the segment.
type Defaults struct {
	Location     string
	Timezone     string
	Country      string
	NewsTopic    string
	NewsLanguage string
	Currency     CurrencyRequest
}

// DefaultDefaults returns the built-in fallback inputs.
func DefaultDefaults() Defaults {
	return Defaults{
		Location:     "الرياض",
		Timezone:     "Asia/Riyadh",
		Country:      "المملكة العربية السعودية",
		NewsTopic:    "الذكاء الاصطناعي",
		NewsLanguage: "ar",
		Currency:     CurrencyRequest{From: "USD", To: "SAR", Amount: 1},
	}
}

// Source lists the skills eligible for planning.
type Source interface {
	ListExecutable() []*skills.LoadedSkill
}

// Match is the best skill for a segment plus the input built for it.
type Match struct {
	Tool      string         `json:"toolName"`
	Input     map[string]any `json:"toolInput"`
	Objective string         `json:"objective"`
	Score     float64        `json:"score"`
}

// Matcher picks one skill per segment.
type Matcher struct {
	source   Source
	defaults Defaults
}

// NewMatcher creates a matcher. Empty default fields take the built-in values.
func NewMatcher(source Source, defaults Defaults) *Matcher {
	builtin := DefaultDefaults()
	if defaults.Location == "" {
		defaults.Location = builtin.Location
	}
	if defaults.Timezone == "" {
		defaults.Timezone = builtin.Timezone
	}
	if defaults.Country == "" {
		defaults.Country = builtin.Country
	}
	if defaults.NewsTopic == "" {
		defaults.NewsTopic = builtin.NewsTopic
	}
	if defaults.NewsLanguage == "" {
		defaults.NewsLanguage = builtin.NewsLanguage
	}
	if defaults.Currency.From == "" || defaults.Currency.To == "" || defaults.Currency.Amount <= 0 {
		defaults.Currency = builtin.Currency
	}
	return &Matcher{source: source, defaults: defaults}
}

// Match returns the highest scoring skill for segment. Ties keep the source
// order.
func (m *Matcher) Match(segment string) (Match, bool) {
	candidates := m.Candidates(segment)
	if len(candidates) == 0 {
		return Match{}, false
	}
	return candidates[0], true
}

// Candidates returns every positively scored skill, best first.
func (m *Matcher) Candidates(segment string) []Match {
	var out []Match
	for _, s := range m.source.ListExecutable() {
		score := Score(s, segment)
		if score <= 0 {
			continue
		}
		hints := s.Hints()
		out = append(out, Match{
			Tool:      s.ID,
			Input:     m.Extract(hints.Extractor, segment),
			Objective: objective(hints.Objective, s.Name, segment),
			Score:     score + float64(hints.Priority)/100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Score counts keywords contained in the normalized segment plus twice the
// matching patterns. Priority is not included.
func Score(s *skills.LoadedSkill, segment string) float64 {
	hints := s.Hints()
	if len(hints.Keywords) == 0 && len(hints.Patterns) == 0 {
		return 0
	}
	normalized := normalize(segment)
	score := 0
	for _, kw := range hints.Keywords {
		if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
			score++
		}
	}
	score += 2 * s.PatternMatches(segment)
	return float64(score)
}

// Extract builds a tool input with the named extractor.
func (m *Matcher) Extract(kind skills.Extractor, segment string) map[string]any {
	d := m.defaults
	switch kind {
	case skills.ExtractLocation:
		loc, ok := Location(segment)
		if !ok {
			loc = d.Location
		}
		return map[string]any{"location": loc}
	case skills.ExtractQuery:
		return map[string]any{"query": SearchQuery(segment)}
	case skills.ExtractCurrency:
		c := Currency(segment, d.Currency)
		return map[string]any{"from": c.From, "to": c.To, "amount": c.Amount}
	case skills.ExtractTimezone:
		tz, ok := Timezone(segment)
		if !ok {
			tz = d.Timezone
		}
		return map[string]any{"timezone": tz}
	case skills.ExtractCountry:
		country, ok := Country(segment)
		if !ok {
			country = d.Country
		}
		return map[string]any{"country": country}
	case skills.ExtractNewsTopic:
		topic := NewsTopic(segment)
		if topic == "" {
			topic = d.NewsTopic
		}
		return map[string]any{"topic": topic, "language": d.NewsLanguage}
	case skills.ExtractIP:
		if ip, ok := IP(segment); ok {
			return map[string]any{"ip": ip}
		}
		return map[string]any{}
	default:
		return map[string]any{}
	}
}

func objective(template, name, segment string) string {
	if template == "" {
		template = fallbackObjective
	}
	return strings.NewReplacer("{name}", name, "{segment}", segment).Replace(template)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
