// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jllopis/nabd/pkg/errors"
)

const weatherManifest = `{
  "id": "weather",
  "name": "Weather",
  "description": "Current weather for a city",
  "category": "data",
  "version": "1.0.0",
  "handler": "weather",
  "inputSchema": {
    "type": "object",
    "properties": {"location": {"type": "string", "description": "City name"}},
    "required": ["location"],
    "additionalProperties": false
  },
  "planner": {"keywords": ["طقس", "weather"], "patterns": ["درجة\\s+الحرارة", "(unclosed"], "extractor": "location", "priority": 10}
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoHandler(_ context.Context, input map[string]any) (Output, error) {
	loc, _ := input["location"].(string)
	return Output{Text: "weather in " + loc, Metadata: map[string]any{"location": loc}}, nil
}

func newTestRegistry(t *testing.T, root string, opts ...Option) *Registry {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithHandlers(map[string]Handler{"weather": echoHandler}),
	}
	return NewRegistry(root, append(base, opts...)...)
}

func TestRegistryDiscoversManifestsAndInstructions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "weather", ManifestFile), weatherManifest)
	writeFile(t, filepath.Join(root, "weather", InstructionsFile), "---\nname: weather\n---\nPrefer metric units.")
	writeFile(t, filepath.Join(root, "brand-voice", InstructionsFile),
		"---\nname: brand-voice\ndescription: Keep answers in the brand voice\nmetadata:\n  category: style\n---\nUse a warm, formal tone.")
	writeFile(t, filepath.Join(root, "stray.txt"), "ignored")

	r := newTestRegistry(t, root)
	got := r.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(got))
	}
	if got[0].ID != "brand-voice" || got[1].ID != "weather" {
		t.Fatalf("expected skills sorted by id, got %s, %s", got[0].ID, got[1].ID)
	}

	weather := got[1]
	if !weather.Executable || weather.Format != FormatManifest {
		t.Fatalf("weather should be an executable manifest skill: %+v", weather)
	}
	if weather.Path != filepath.Join(root, "weather", InstructionsFile) {
		t.Fatalf("expected SKILL.md path when present, got %s", weather.Path)
	}
	if weather.Instructions != "Prefer metric units." {
		t.Fatalf("unexpected instructions %q", weather.Instructions)
	}
	if n := weather.PatternMatches("كم درجة   الحرارة"); n != 1 {
		t.Fatalf("expected invalid pattern to be skipped and one match, got %d", n)
	}

	voice := got[0]
	if voice.Executable || voice.Format != FormatInstructions {
		t.Fatalf("brand-voice should be instruction-only: %+v", voice)
	}
	if voice.Category != "style" || voice.Version != "1.0.0" || voice.Handler != "instruction_only" {
		t.Fatalf("unexpected instruction defaults: %+v", voice.Manifest)
	}
	wantKeywords := []string{"brand-voice", "keep", "answers", "in", "the", "brand", "voice"}
	if diff := cmp.Diff(wantKeywords, voice.Hints().Keywords); diff != "" {
		t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
	}

	if exec := r.ListExecutable(); len(exec) != 1 || exec[0].ID != "weather" {
		t.Fatalf("unexpected executable list %+v", exec)
	}
}

func TestRegistrySkipsInvalidEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a-weather", ManifestFile), weatherManifest)
	writeFile(t, filepath.Join(root, "b-weather-copy", ManifestFile), weatherManifest)
	writeFile(t, filepath.Join(root, "broken", ManifestFile), `{"id": "Broken ID"}`)
	writeFile(t, filepath.Join(root, "unbound", ManifestFile),
		strings.Replace(strings.Replace(weatherManifest, `"handler": "weather"`, `"handler": "teleport"`, 1), `"id": "weather"`, `"id": "unbound"`, 1))
	writeFile(t, filepath.Join(root, "no-frontmatter", InstructionsFile), "just text")

	r := newTestRegistry(t, root)
	got := r.List()
	if len(got) != 1 {
		t.Fatalf("expected only the first weather manifest, got %d skills", len(got))
	}
	if got[0].Path != filepath.Join(root, "a-weather", ManifestFile) {
		t.Fatalf("first duplicate should win, got %s", got[0].Path)
	}
	if d := r.Diagnostics(); d.LastScanError != nil {
		t.Fatalf("per-entry problems must not surface as scan errors: %s", *d.LastScanError)
	}
}

func TestRegistryMissingRootIsEmpty(t *testing.T) {
	r := newTestRegistry(t, filepath.Join(t.TempDir(), "missing"))
	if got := r.List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
	d := r.Diagnostics()
	if d.Count != 0 || d.LastScanAt == nil || d.LastScanError != nil {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
}

func TestRegistryTTL(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(t, root, withClock(func() time.Time { return now }))

	if len(r.List()) != 0 {
		t.Fatalf("expected empty registry")
	}
	writeFile(t, filepath.Join(root, "weather", ManifestFile), weatherManifest)

	now = now.Add(time.Second)
	if len(r.List()) != 0 {
		t.Fatalf("cache should be served within the TTL")
	}
	r.Refresh(true)
	if len(r.List()) != 1 {
		t.Fatalf("forced refresh should pick up the new skill")
	}

	if err := os.RemoveAll(filepath.Join(root, "weather")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	now = now.Add(DefaultTTL + time.Millisecond)
	if len(r.List()) != 0 {
		t.Fatalf("expired cache should rescan")
	}
}

func TestRegistryRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "weather", ManifestFile), weatherManifest)
	writeFile(t, filepath.Join(root, "notes", InstructionsFile), "---\nname: notes\n---\nbody")
	r := newTestRegistry(t, root)
	ctx := context.Background()

	out, err := r.Run(ctx, "weather", map[string]any{"location": "  الرياض "})
	if err != nil {
		t.Fatalf("run weather: %v", err)
	}
	if out.Text != "weather in الرياض" {
		t.Fatalf("unexpected output %q", out.Text)
	}

	tests := []struct {
		name string
		id   string
		raw  map[string]any
		code errors.ErrorCode
	}{
		{name: "unknown", id: "teleport", code: errors.CodeNotFound},
		{name: "instruction only", id: "notes", code: errors.CodeNotExecutable},
		{name: "missing required", id: "weather", raw: map[string]any{}, code: errors.CodeInvalidInput},
		{name: "undeclared key", id: "weather", raw: map[string]any{"location": "x", "units": "c"}, code: errors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(ctx, tt.id, tt.raw)
			if !errors.Is(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestRegistryMatchInstructionSkills(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "weather", ManifestFile), weatherManifest)
	writeFile(t, filepath.Join(root, "weather", InstructionsFile), "---\nname: weather\n---\nاستخدم وحدات مترية")
	writeFile(t, filepath.Join(root, "translator", InstructionsFile),
		"---\nname: translator\ndescription: ترجمة النصوص بدقة\n---\nعند الترجمة حافظ على المعنى والنبرة.")
	writeFile(t, filepath.Join(root, "empty", InstructionsFile), "---\nname: empty\n---\n")
	r := newTestRegistry(t, root)

	got := r.MatchInstructionSkills("أريد ترجمة هذه الفقرة مع الحفاظ على المعنى", 2)
	if len(got) != 1 || got[0].ID != "translator" {
		t.Fatalf("expected translator, got %+v", got)
	}
	if got := r.MatchInstructionSkills("!!", 2); len(got) != 0 {
		t.Fatalf("expected no matches for token-free query")
	}
}
