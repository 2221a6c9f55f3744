// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import "strings"

// History summarization limits.
const (
	HistoryThreshold   = 10
	MaxSummarizedTurns = 12
	BulletChars        = 180
	SummaryChars       = 1400
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryWindow is the history sent to the model: the verbatim recent turns
// plus, when older turns were compressed, a summary of them.
type HistoryWindow struct {
	Turns      []Turn
	Summary    string
	Summarized bool
}

// SummarizeHistory keeps the last HistoryThreshold turns verbatim and folds
// up to MaxSummarizedTurns of the turns before them into a bullet summary.
// Shorter histories are returned unchanged.
func SummarizeHistory(history []Turn) HistoryWindow {
	if len(history) <= HistoryThreshold {
		return HistoryWindow{Turns: history}
	}

	cut := len(history) - HistoryThreshold
	older := history[max(0, cut-MaxSummarizedTurns):cut]

	lines := make([]string, 0, len(older))
	for _, turn := range older {
		content := strings.Join(strings.Fields(turn.Content), " ")
		if content == "" {
			continue
		}
		lines = append(lines, "- "+roleLabel(turn.Role)+": "+clip(content, BulletChars))
	}

	window := HistoryWindow{Turns: history[cut:]}
	if len(lines) > 0 {
		window.Summary = clip(strings.Join(lines, "\n"), SummaryChars)
		window.Summarized = true
	}
	return window
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "المستخدم"
	case "assistant":
		return "المساعد"
	case "system":
		return "النظام"
	}
	return role
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
