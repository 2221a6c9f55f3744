// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/jllopis/nabd/pkg/config"
	"github.com/jllopis/nabd/pkg/intent"
	"github.com/jllopis/nabd/pkg/llm"
	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/memory/ollama"
	"github.com/jllopis/nabd/pkg/memory/qdrant"
	"github.com/jllopis/nabd/pkg/orchestrator"
	"github.com/jllopis/nabd/pkg/planner"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/skills/handlers"
	"github.com/jllopis/nabd/pkg/telemetry"
	"github.com/jllopis/nabd/pkg/tools"
	"github.com/jllopis/nabd/pkg/traces"
	"github.com/jllopis/nabd/providers/openai"
)

// app is the composition root shared by the commands. Components are built
// on demand so light commands do not touch storage or the network.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.PipelineMetrics

	handlers  *handlers.Set
	registry  *skills.Registry
	runner    *tools.Runner
	executor  *planner.Executor
	planner   *planner.Planner
	retriever *memory.Retriever

	closers []func() error
}

// newApp configures logging and telemetry and builds the skill side of the
// pipeline. Logs go to logOutput so stdout stays free for command output.
func newApp(cfg *config.Config, logOutput io.Writer) (*app, error) {
	logger := telemetry.ConfigureSlog(logOutput, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("nabd", version, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Output:       logOutput,
	})
	if err != nil {
		return nil, NewSetupError(err, "telemetry")
	}
	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		_ = shutdown(context.Background())
		return nil, NewSetupError(err, "telemetry")
	}

	set, err := handlers.New(handlers.Config{
		Timeout:       cfg.Handlers.Timeout,
		UserAgent:     cfg.Handlers.UserAgent,
		IPStackAPIKey: cfg.Handlers.IPStackAPIKey,
		NewsAPIKey:    cfg.Handlers.NewsAPIKey,

		BreakerThreshold: cfg.Handlers.BreakerThreshold,
		BreakerCooldown:  cfg.Handlers.BreakerCooldown,
	})
	if err != nil {
		_ = shutdown(context.Background())
		return nil, NewSetupError(err, "handlers")
	}

	registry := skills.NewRegistry(cfg.Skills.Dir,
		skills.WithTTL(cfg.Skills.TTL),
		skills.WithHandlers(set.Handlers()),
		skills.WithLogger(telemetry.Component("skills")),
	)
	runner := tools.NewRunner(registry)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		handlers: set,
		registry: registry,
		runner:   runner,
		executor: planner.NewExecutor(runner,
			planner.WithMetrics(metrics),
			planner.WithExecutorLogger(telemetry.Component("executor")),
		),
		planner: planner.New(intent.NewMatcher(registry, intent.Defaults{
			Location:  cfg.Planner.DefaultLocation,
			Timezone:  cfg.Planner.DefaultTimezone,
			Country:   cfg.Planner.DefaultCountry,
			NewsTopic: cfg.Planner.DefaultNewsTopic,
		})),
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	return a, nil
}

// Close releases every component in reverse build order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close.error", slog.String("error", err.Error()))
		}
	}
}

// knowledge builds and bootstraps the retriever for the configured embedder
// and vector backend.
func (a *app) knowledge(ctx context.Context) (*memory.Retriever, error) {
	if a.retriever != nil {
		return a.retriever, nil
	}
	rag := a.cfg.RAG

	var (
		embedder   memory.Embedder = memory.HashEmbedder{}
		vectorSize                 = memory.VectorSize
	)
	if rag.Embedder == "ollama" {
		oe := ollama.NewEmbedder(rag.OllamaURL, rag.EmbeddingModel)
		dims, err := oe.Dimensions(ctx)
		if err != nil {
			return nil, NewSetupError(err, "rag")
		}
		embedder, vectorSize = oe, dims
	}

	var store memory.VectorStore = memory.NewInMemoryVectorStore()
	if rag.Backend == "qdrant" {
		qs, err := qdrant.New(rag.QdrantAddr, rag.Collection, uint64(vectorSize))
		if err != nil {
			return nil, NewSetupError(err, "rag")
		}
		a.closers = append(a.closers, qs.Close)
		store = qs
	}

	r := memory.NewRetriever(store, embedder, memory.NewFileStore(rag.StorePath),
		memory.WithMinScore(float32(rag.MinScore)),
		memory.WithBackendName(rag.Backend),
		memory.WithRetrieverLogger(telemetry.Component("rag")),
		memory.WithRetrieverMetrics(a.metrics),
	)
	if err := r.Bootstrap(ctx); err != nil {
		return nil, NewSetupError(err, "rag")
	}
	a.retriever = r
	return r, nil
}

// traceStore builds the bounded trace store, backed by SQLite when a path is
// configured. Persisted traces are loaded back so history survives restarts.
func (a *app) traceStore(ctx context.Context) (*traces.Store, error) {
	cfg := a.cfg.Traces
	opts := []traces.StoreOption{traces.WithStoreLogger(telemetry.Component("traces"))}
	var sink *traces.SQLiteSink
	if cfg.SQLitePath != "" {
		var err error
		sink, err = traces.OpenSQLiteSink(cfg.SQLitePath)
		if err != nil {
			return nil, NewSetupError(err, "traces")
		}
		a.closers = append(a.closers, sink.Close)
		opts = append(opts, traces.WithSink(sink))
	}
	store := traces.NewStore(cfg.PerConversation, cfg.Global, opts...)
	if sink != nil {
		recent, err := sink.Recent(ctx, "", cfg.Global)
		if err != nil {
			a.logger.Warn("traces.warm.failed", slog.String("error", err.Error()))
		}
		store.Warm(recent)
	}
	return store, nil
}

func (a *app) conversations() (memory.ConversationMemory, error) {
	if a.cfg.Conversations.Backend == "file" {
		fc, err := memory.NewFileConversation(a.cfg.Conversations.Path)
		if err != nil {
			return nil, NewSetupError(err, "conversations")
		}
		return fc, nil
	}
	return memory.NewInMemoryConversation(), nil
}

// model returns the LLM client, or nil when no credential is configured.
func (a *app) model() *llm.Client {
	cfg := a.cfg.LLM
	if !cfg.Configured() {
		a.logger.Info("llm.unconfigured", slog.String("provider", cfg.Provider))
		return nil
	}
	var provider llm.Provider
	switch cfg.Provider {
	case "ollama":
		provider = llm.NewOllama(cfg.BaseURL, cfg.Timeout)
	default:
		provider = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithAPIKey(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithTimeout(cfg.Timeout),
		)
	}
	return llm.NewClient(provider, cfg.Model,
		llm.WithMaxToolRounds(cfg.MaxToolRounds),
		llm.WithProviderName(cfg.Provider),
		llm.WithClientLogger(telemetry.Component("llm")),
	)
}

// orchestrator wires the full turn pipeline.
func (a *app) newOrchestrator(ctx context.Context, store *traces.Store) (*orchestrator.Orchestrator, error) {
	retriever, err := a.knowledge(ctx)
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{
		orchestrator.WithTraceStore(store),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithTopK(a.cfg.RAG.TopK),
		orchestrator.WithLogger(telemetry.Component("orchestrator")),
	}
	if client := a.model(); client != nil {
		opts = append(opts, orchestrator.WithModel(client))
	}
	return orchestrator.New(orchestrator.Components{
		Planner:   a.planner,
		Executor:  a.executor,
		Tools:     a.runner,
		Skills:    a.registry,
		Retriever: retriever,
	}, opts...), nil
}
