package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := InitWithConfig("nabd-test", "v0.0.1", Config{})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitStdoutWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitWithConfig("nabd-test", "v0.0.1", Config{Enabled: true, Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	_, span := otel.Tracer("nabd/test").Start(context.Background(), "Orchestrator.Reply")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Orchestrator.Reply") {
		t.Fatalf("span not exported to the configured output: %q", buf.String())
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := InitWithConfig("nabd-test", "v0", Config{Enabled: true, Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
	if _, err := InitWithConfig("nabd-test", "v0", Config{Enabled: true, Exporter: "otlp"}); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
}

func TestConfigureSlogAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, "debug", "json"))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "orchestrator.turn.finish", slog.String("source", "tool"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["trace_id"] != traceID.String() {
		t.Errorf("expected trace_id, got %v", record["trace_id"])
	}
	if record["span_id"] != spanID.String() {
		t.Errorf("expected span_id, got %v", record["span_id"])
	}
}

func TestComponentLoggerAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	ConfigureSlog(&buf, "info", "json")

	Component("planner").Info("tool.run.error",
		ConversationAttr("cli"),
		SkillAttr("weather"),
		ToolAttr("weather"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	want := map[string]string{
		KeyComponent:    "planner",
		KeyConversation: "cli",
		KeySkill:        "weather",
		KeyTool:         "weather",
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("%s = %v, want %q", key, record[key], value)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := "مرحبا بالعالم"
	got := Truncate(s, 5)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if !strings.HasPrefix(s, strings.TrimSuffix(got, "...")) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if Truncate("short", 10) != "short" {
		t.Fatalf("short strings must be unchanged")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PipelineMetrics
	m.RecordTurn(context.Background(), "llm", 10)
	m.RecordToolRun(context.Background(), "weather", "planner", 5, nil)
	m.RecordFallback(context.Background(), "unconfigured")
	m.RecordRAGHits(context.Background(), 2)
}

func TestNewPipelineMetrics(t *testing.T) {
	m, err := NewPipelineMetrics()
	if err != nil {
		t.Fatalf("NewPipelineMetrics: %v", err)
	}
	m.RecordToolRun(context.Background(), "weather", "planner", 5, context.DeadlineExceeded)
}
