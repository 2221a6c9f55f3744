// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package traces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/planner"
)

func runIDs(items []OrchestrationTrace) []string {
	ids := make([]string, 0, len(items))
	for _, t := range items {
		ids = append(ids, t.RunID)
	}
	return ids
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(3, 4)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		s.Record(ctx, OrchestrationTrace{RunID: fmt.Sprintf("a%d", i), ConversationID: "a"})
	}
	s.Record(ctx, OrchestrationTrace{RunID: "b1", ConversationID: "b"})

	if diff := cmp.Diff([]string{"a3", "a4", "a5"}, runIDs(s.History("a", 0))); diff != "" {
		t.Fatalf("conversation history mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a3", "a4", "a5", "b1"}, runIDs(s.History("", 50))); diff != "" {
		t.Fatalf("global history mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a4", "a5"}, runIDs(s.History("a", 2))); diff != "" {
		t.Fatalf("limited history mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreLatest(t *testing.T) {
	s := NewStore(0, 0)
	if _, ok := s.Latest(""); ok {
		t.Fatalf("empty store has no latest trace")
	}
	ctx := context.Background()
	s.Record(ctx, OrchestrationTrace{RunID: "1", ConversationID: "a"})
	s.Record(ctx, OrchestrationTrace{RunID: "2", ConversationID: "b"})

	if got, ok := s.Latest("a"); !ok || got.RunID != "1" {
		t.Fatalf("latest(a) = %+v, %v", got, ok)
	}
	if got, ok := s.Latest(""); !ok || got.RunID != "2" {
		t.Fatalf("global latest = %+v, %v", got, ok)
	}
	if _, ok := s.Latest("missing"); ok {
		t.Fatalf("unknown conversation has no latest trace")
	}
	if got := s.History("missing", 5); len(got) != 0 {
		t.Fatalf("unknown conversation history should be empty")
	}
}

func TestStoreDefaultHistoryLimit(t *testing.T) {
	s := NewStore(DefaultPerConversation, DefaultGlobal)
	for i := 0; i < 40; i++ {
		s.Record(context.Background(), OrchestrationTrace{RunID: fmt.Sprint(i), ConversationID: "c"})
	}
	got := s.History("c", 0)
	if len(got) != DefaultHistoryLimit || got[len(got)-1].RunID != "39" {
		t.Fatalf("unexpected default history: %v", runIDs(got))
	}
}

type recordingSink struct {
	written []string
	err     error
}

func (r *recordingSink) Write(_ context.Context, trace OrchestrationTrace) error {
	r.written = append(r.written, trace.RunID)
	return r.err
}

func TestStoreForwardsToSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	s := NewStore(5, 5, WithSink(sink), WithStoreLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Record(context.Background(), OrchestrationTrace{RunID: "r1"})
	s.Warm([]OrchestrationTrace{{RunID: "old"}})

	if diff := cmp.Diff([]string{"r1"}, sink.written); diff != "" {
		t.Fatalf("sink writes mismatch (-want +got):\n%s", diff)
	}
	if got := runIDs(s.History("", 0)); len(got) != 2 {
		t.Fatalf("sink errors must not drop traces: %v", got)
	}
}

func TestInferSource(t *testing.T) {
	run := planner.ToolRunTrace{Tool: "weather"}
	single := &planner.ExecutionPlan{Steps: []planner.PlanStep{{ID: "step-1", Kind: planner.StepSynthesis}}}
	multi := &planner.ExecutionPlan{IsMultiStep: true}
	ctxs := []memory.RetrievedContext{{Title: "t"}}

	tests := []struct {
		name string
		runs []planner.ToolRunTrace
		plan *planner.ExecutionPlan
		ctxs []memory.RetrievedContext
		want Source
	}{
		{"two runs", []planner.ToolRunTrace{run, run}, single, ctxs, SourcePlanner},
		{"multi-step plan", nil, multi, nil, SourcePlanner},
		{"one run", []planner.ToolRunTrace{run}, single, ctxs, SourceTool},
		{"rag only", nil, single, ctxs, SourceRAG},
		{"nothing", nil, single, nil, SourceLLM},
		{"nil plan", nil, nil, nil, SourceLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferSource(tt.runs, tt.plan, tt.ctxs); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSQLiteSink(t *testing.T) {
	sink, err := OpenSQLiteSink(filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := OrchestrationTrace{
		RunID:          "r1",
		ConversationID: "c1",
		StartedAt:      started,
		FinishedAt:     started.Add(120 * time.Millisecond),
		DurationMs:     120,
		UserContent:    "طقس الرياض",
		Source:         SourceTool,
		ToolRuns:       []planner.ToolRunTrace{{StepID: "step-1", Tool: "weather", Input: map[string]any{"location": "الرياض"}, Output: "مشمس", LatencyMs: 80}},
	}
	for _, tr := range []OrchestrationTrace{first, {RunID: "r2", ConversationID: "c2", StartedAt: started, Source: SourceLLM}, {RunID: "r3", ConversationID: "c1", StartedAt: started, Source: SourceRAG}} {
		if err := sink.Write(ctx, tr); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := sink.Recent(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if diff := cmp.Diff([]string{"r1", "r3"}, runIDs(got)); diff != "" {
		t.Fatalf("recent mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, got[0]); diff != "" {
		t.Fatalf("trace round trip mismatch (-want +got):\n%s", diff)
	}
	if all, _ := sink.Recent(ctx, "", 2); len(all) != 2 || all[1].RunID != "r3" {
		t.Fatalf("unexpected global recent: %v", runIDs(all))
	}

	n, err := sink.Prune(ctx, started.Add(24*time.Hour))
	if err != nil || n != 3 {
		t.Fatalf("prune = %d, %v", n, err)
	}
}
