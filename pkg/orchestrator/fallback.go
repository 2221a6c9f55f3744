package orchestrator

import (
	"fmt"
	"strings"

	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/planner"
)

// UnconfiguredReply is the fallback when nothing else can be said.
const UnconfiguredReply = "لا أستطيع توليد إجابة كاملة حالياً لأن إعدادات النموذج غير مكتملة (NVIDIA_API_KEY)."

// fallbackReply composes a reply from tool results, retrieved context and
// the plan without calling the model. It never returns an empty string.
func fallbackReply(content string, plan *planner.ExecutionPlan, runs []planner.ToolRunTrace, contexts []memory.RetrievedContext, providerError string) string {
	var parts []string

	var ok, failed []string
	for _, run := range runs {
		if run.Failed() {
			failed = append(failed, fmt.Sprintf("- تعذر تنفيذ %s: %s", run.Tool, run.Error))
		} else if run.Output != "" {
			ok = append(ok, fmt.Sprintf("- [%s] %s", run.Tool, run.Output))
		}
	}
	if len(ok) > 0 {
		parts = append(parts, fmt.Sprintf("نتائج التنفيذ للطلب \"%s\":\n%s", content, strings.Join(ok, "\n")))
	}
	if len(failed) > 0 {
		parts = append(parts, "ملاحظات:\n"+strings.Join(failed, "\n"))
	}

	if len(contexts) > 0 {
		lines := make([]string, 0, len(contexts))
		for _, c := range contexts {
			lines = append(lines, fmt.Sprintf("- %s: %s", c.Title, c.Content))
		}
		parts = append(parts, "سياق معرفي مرتبط:\n"+strings.Join(lines, "\n"))
	}

	if plan != nil && len(plan.ToolSteps()) > 0 {
		parts = append(parts, "الخطة المنفذة:\n"+plan.Describe())
	}

	if providerError != "" {
		parts = append(parts, fmt.Sprintf("تنبيه: تعذر الحصول على رد من النموذج اللغوي (%s)، لذلك تم إعداد هذه الإجابة محلياً.", providerError))
	}

	if len(parts) == 0 {
		return UnconfiguredReply
	}
	return strings.Join(parts, "\n\n") + citations(contexts)
}

// citations renders the references block appended to replies that used
// retrieved context.
func citations(contexts []memory.RetrievedContext) string {
	if len(contexts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(contexts))
	for i, c := range contexts {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, c.Title, c.Source))
	}
	return "\n\nالمراجع:\n" + strings.Join(lines, "\n")
}
