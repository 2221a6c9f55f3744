// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// AvailableSkillsXML renders the catalog block placed in the system prompt.
func AvailableSkillsXML(skills []*LoadedSkill) string {
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range skills {
		b.WriteString("<skill>\n")
		b.WriteString("<name>" + xmlEscaper.Replace(s.ID) + "</name>\n")
		b.WriteString("<description>" + xmlEscaper.Replace(s.Description) + "</description>\n")
		b.WriteString("<location>" + xmlEscaper.Replace(s.Path) + "</location>\n")
		b.WriteString("</skill>\n")
	}
	b.WriteString("</available_skills>")
	return b.String()
}

// tokenize lower-cases text, keeps ASCII alphanumerics, '_', '-' and the
// Arabic block, and drops one-character tokens.
func tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r >= 0x0600 && r <= 0x06FF:
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))

	fields := strings.Fields(mapped)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

type scoredSkill struct {
	skill *LoadedSkill
	score int
}

// matchInstructions ranks skills carrying instructions by how many query
// tokens appear in their id, name, description and instructions.
func matchInstructions(skills []*LoadedSkill, query string, limit int) []*LoadedSkill {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	var scored []scoredSkill
	for _, s := range skills {
		if s.Instructions == "" {
			continue
		}
		haystack := make(map[string]struct{})
		for _, tok := range tokenize(s.ID + " " + s.Name + " " + s.Description + " " + s.Instructions) {
			haystack[tok] = struct{}{}
		}
		score := 0
		for _, tok := range queryTokens {
			if _, ok := haystack[tok]; ok {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredSkill{skill: s, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]*LoadedSkill, 0, len(scored))
	for _, item := range scored {
		out = append(out, item.skill)
	}
	return out
}
