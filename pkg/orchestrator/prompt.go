package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/planner"
	"github.com/jllopis/nabd/pkg/skills"
)

const (
	personaPrompt = "أنت مساعد عربي دقيق. استخدم نتائج الأدوات والسياق المعرفي عند توفرهما قبل إعطاء الإجابة."
	gapDirective  = "إذا كانت نتائج الأدوات تحتوي نقصاً أو خطأ، اذكر ذلك بوضوح وقدّم أفضل بديل عملي."

	// instructionChars bounds each skill's instruction text in the prompt.
	instructionChars = 2000
)

type promptInput struct {
	catalog      string
	callerPrompt string
	summary      string
	tools        string
	instructions []*skills.LoadedSkill
	plan         *planner.ExecutionPlan
	runs         []planner.ToolRunTrace
	contexts     []memory.RetrievedContext
}

// buildSystemPrompt joins the prompt sections in a fixed order, skipping
// the empty ones.
func buildSystemPrompt(in promptInput) string {
	sections := []string{personaPrompt}
	if in.catalog != "" {
		sections = append(sections, "المهارات المتاحة:\n"+in.catalog)
	}
	if in.callerPrompt != "" {
		sections = append(sections, in.callerPrompt)
	}
	if in.summary != "" {
		sections = append(sections, "ملخص المحادثة السابقة:\n"+in.summary)
	}
	sections = append(sections, gapDirective)
	if in.tools != "" {
		sections = append(sections, "الأدوات المتاحة:\n"+in.tools)
	}
	for _, s := range in.instructions {
		sections = append(sections, fmt.Sprintf("تعليمات المهارة %s:\n%s", s.ID, clipRunes(strings.TrimSpace(s.Instructions), instructionChars)))
	}
	if in.plan != nil && len(in.plan.Steps) > 1 {
		sections = append(sections, "خطة التنفيذ الحالية:\n"+in.plan.Describe())
	}
	if len(in.runs) > 0 {
		sections = append(sections, "نتائج الأدوات:\n"+formatToolRuns(in.runs))
	}
	if len(in.contexts) > 0 {
		sections = append(sections, "سياق معرفي مسترجع (RAG):\n"+memory.FormatContexts(in.contexts))
	}
	return strings.Join(sections, "\n\n")
}

func formatToolRuns(runs []planner.ToolRunTrace) string {
	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		if run.Failed() {
			lines = append(lines, fmt.Sprintf("- %s: فشل التنفيذ (%s) (latency=%dms)", run.Tool, run.Error, run.LatencyMs))
			continue
		}
		input, _ := json.Marshal(run.Input)
		output := run.Output
		if output == "" {
			output = "بدون مخرجات"
		}
		lines = append(lines, fmt.Sprintf("- %s\n  input: %s\n  output: %s\n  latencyMs: %d", run.Tool, input, output, run.LatencyMs))
	}
	return strings.Join(lines, "\n")
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
