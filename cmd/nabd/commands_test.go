// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jllopis/nabd/pkg/orchestrator"
	"github.com/jllopis/nabd/pkg/planner"
)

// runCLI executes the root command against the shipped skills with all
// state kept under a temporary directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NVIDIA_API_KEY", "")
	t.Setenv("NABD_LLM_API_KEY", "")

	dir := t.TempDir()
	base := []string{
		"--set", "skills.dir=" + filepath.Join("..", "..", "skills"),
		"--set", "rag.store_path=" + filepath.Join(dir, "rag.json"),
		"--set", "conversations.path=" + filepath.Join(dir, "conversations"),
		"--set", "llm.api_key=",
		"--set", "log.level=error",
	}

	var out, errOut bytes.Buffer
	root := newRootCmd(&globalFlags{})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("got %q, want %q", out, version)
	}
}

func TestChatWithoutModel(t *testing.T) {
	out, err := runCLI(t, "--set", "rag.min_score=2", "chat", "مرحبا")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.TrimSpace(out) != orchestrator.UnconfiguredReply {
		t.Fatalf("unexpected reply: %q", out)
	}
}

func TestChatTraceOutput(t *testing.T) {
	out, err := runCLI(t, "--set", "rag.min_score=2", "chat", "--trace", "مرحبا")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	_, raw, ok := strings.Cut(out, "\n\n")
	if !ok {
		t.Fatalf("trace not printed: %q", out)
	}
	var tr struct {
		ConversationID  string `json:"conversationId"`
		ModelConfigured bool   `json:"modelConfigured"`
		Source          string `json:"source"`
	}
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatalf("decode trace: %v\n%s", err, raw)
	}
	if tr.ConversationID != "cli" || tr.ModelConfigured || tr.Source != "llm" {
		t.Fatalf("unexpected trace: %+v", tr)
	}
}

func TestChatUnknownProfile(t *testing.T) {
	if _, err := runCLI(t, "chat", "--profile", "pirate", "مرحبا"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}

func TestPlanJSON(t *testing.T) {
	out, err := runCLI(t, "plan", "طقس الرياض")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var plan planner.ExecutionPlan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	steps := plan.ToolSteps()
	if len(steps) != 1 || steps[0].Tool != "weather" {
		t.Fatalf("unexpected tool steps: %+v", steps)
	}
}

func TestPlanYAML(t *testing.T) {
	out, err := runCLI(t, "plan", "-o", "yaml", "طقس الرياض")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{"isMultiStep: false", "toolName: weather", "steps:\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "{") {
		t.Fatalf("yaml output should use block style:\n%s", out)
	}
}

func TestPlanRejectsUnknownOutput(t *testing.T) {
	if _, err := runCLI(t, "plan", "-o", "xml", "طقس الرياض"); err == nil {
		t.Fatalf("expected error for unknown output format")
	}
}

func TestSkillsList(t *testing.T) {
	out, err := runCLI(t, "skills", "list")
	if err != nil {
		t.Fatalf("skills list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "ID") || len(lines) != 11 {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if !strings.Contains(out, "arabic-writing") || !strings.Contains(out, "weather") {
		t.Fatalf("shipped skills missing:\n%s", out)
	}
}

func TestSkillsValidate(t *testing.T) {
	out, err := runCLI(t, "skills", "validate", filepath.Join("..", "..", "skills"))
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "10 checked, 0 invalid") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestSkillsValidateReportsBrokenManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken", "skill.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := validateSkills(&out, dir); err == nil {
		t.Fatalf("expected validation failure")
	}
	if !strings.Contains(out.String(), "FAIL") || !strings.Contains(out.String(), "1 checked, 1 invalid") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
}

func TestSkillsPrompt(t *testing.T) {
	out, err := runCLI(t, "skills", "prompt")
	if err != nil {
		t.Fatalf("skills prompt: %v", err)
	}
	if !strings.HasPrefix(out, "<available_skills>") || !strings.Contains(out, "<name>weather</name>") {
		t.Fatalf("unexpected prompt:\n%s", out)
	}
}

func TestRAGListAndSeed(t *testing.T) {
	out, err := runCLI(t, "rag", "list")
	if err != nil {
		t.Fatalf("rag list: %v", err)
	}
	for _, id := range []string{"nabd-capabilities", "nabd-tooling", "nabd-guidelines"} {
		if !strings.Contains(out, id) {
			t.Fatalf("listing missing %s:\n%s", id, out)
		}
	}

	out, err = runCLI(t, "rag", "seed")
	if err != nil {
		t.Fatalf("rag seed: %v", err)
	}
	if strings.TrimSpace(out) != "seeded 3 documents, 3 indexed" {
		t.Fatalf("unexpected seed output: %q", out)
	}
}

func TestInvalidConfigOverride(t *testing.T) {
	if _, err := runCLI(t, "--set", "rag.backend=redis", "skills", "list"); err == nil {
		t.Fatalf("expected config validation error")
	}
}
