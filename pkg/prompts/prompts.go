// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package prompts holds the fixed system prompt profiles a conversation can
// select instead of sending its own system prompt.
package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jllopis/nabd/pkg/errors"
)

// Profile is a named system prompt.
type Profile struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// Summary describes a profile without its prompt text.
type Summary struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Description  string `json:"description"`
	PromptLength int    `json:"promptLength"`
}

var profiles = []Profile{
	{
		ID:          "default_balanced",
		Label:       "محادثة ذكية",
		Description: "توازن بين الوضوح، الدقة، والتنفيذ العملي.",
		Prompt: lines(
			"أنت مساعد عربي متوازن يركز على الدقة والوضوح.",
			"ابدأ بتحليل موجز للطلب ثم قدّم إجابة عملية مباشرة.",
			"إذا كانت البيانات ناقصة، اذكر ذلك بوضوح مع أفضل بديل ممكن.",
			"استخدم Markdown نظيفًا وقوائم قصيرة عند الحاجة.",
		),
	},
	{
		ID:          "concise_direct",
		Label:       "مختصر مباشر",
		Description: "إجابات قصيرة جدًا مع أقل شرح ممكن.",
		Prompt: lines(
			"أعطِ المستخدم أقصر إجابة مفيدة ممكنة.",
			"تجنب السرد المطول والتفاصيل غير المطلوبة.",
			"عند الحاجة، اعرض خطوات سريعة مرقمة فقط.",
		),
	},
	{
		ID:          "research_rag",
		Label:       "بحث تحليلي",
		Description: "تحليل مبني على مصادر وسياق RAG.",
		Prompt: lines(
			"قدّم إجابة تحليلية تعتمد على السياق المسترجع والمصادر المتاحة.",
			"ميّز بوضوح بين الحقائق والاستنتاجات.",
			"اختم بخلاصة تنفيذية قصيرة أو توصية عملية.",
		),
	},
	{
		ID:          "frontend_architect",
		Label:       "مهندس واجهات",
		Description: "حلول Frontend احترافية قابلة للصيانة.",
		Prompt: lines(
			"تصرف كمهندس واجهات أمامية أول.",
			"قدّم حلولًا تراعي الأداء، قابلية الصيانة، وإمكانية الوصول.",
			"عند طرح كود، فضّل البنية المعيارية وتجنب التعقيد غير الضروري.",
			"في التصميم، ركّز على هرمية بصرية واضحة وتجربة استخدام منضبطة.",
		),
	},
	{
		ID:          "content_writer",
		Label:       "إبداع المحتوى",
		Description: "صياغة نصوص عربية جذابة ومهنية.",
		Prompt: lines(
			"أنت كاتب محتوى عربي محترف.",
			"حافظ على المعنى مع تحسين الإيقاع والوضوح والجاذبية.",
			"اجعل النبرة مناسبة للجمهور المستهدف، وتجنب الحشو.",
		),
	},
	{
		ID:          "translation_pro",
		Label:       "الترجمة",
		Description: "ترجمة دقيقة مع الحفاظ على السياق.",
		Prompt: lines(
			"أنت مترجم محترف.",
			"قدّم ترجمة دقيقة وطبيعية تحفظ المعنى والنبرة.",
			"لا تضف شروحات إلا إذا طلب المستخدم ذلك.",
		),
	},
}

func lines(parts ...string) string { return strings.Join(parts, "\n") }

// List returns every profile in display order.
func List() []Summary {
	out := make([]Summary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, Summary{
			ID:           p.ID,
			Label:        p.Label,
			Description:  p.Description,
			PromptLength: utf8.RuneCountInString(p.Prompt),
		})
	}
	return out
}

// Get returns the profile with id.
func Get(id string) (Profile, bool) {
	for _, p := range profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Valid reports whether id names a profile.
func Valid(id string) bool {
	_, ok := Get(id)
	return ok
}

// Resolve picks the system prompt for a turn. An explicit prompt wins over a
// profile id; an unknown profile id is an INVALID_INPUT error.
func Resolve(systemPrompt, profileID string) (string, error) {
	if strings.TrimSpace(systemPrompt) != "" {
		return systemPrompt, nil
	}
	if profileID == "" {
		return "", nil
	}
	p, ok := Get(profileID)
	if !ok {
		return "", errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("ملف التعليمات \"%s\" غير معروف", profileID), nil).
			WithContext("field", "systemPromptId")
	}
	return p.Prompt, nil
}
