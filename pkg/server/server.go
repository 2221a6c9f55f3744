// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes conversations and the debug surface over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/orchestrator"
	"github.com/jllopis/nabd/pkg/resilience"
	"github.com/jllopis/nabd/pkg/session"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/traces"
)

// Assistant answers turns.
type Assistant interface {
	Reply(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
	Preview(ctx context.Context, content string) orchestrator.Preview
	ModelConfigured() bool
}

// Knowledge manages the retrieval documents.
type Knowledge interface {
	List(ctx context.Context) []memory.Document
	Upsert(ctx context.Context, docs []memory.Document) error
}

// SkillAdmin is the skill registry as seen by the debug endpoints.
type SkillAdmin interface {
	List() []*skills.LoadedSkill
	Diagnostics() skills.Diagnostics
	Refresh(force bool)
}

// Deps are the services behind the routes.
type Deps struct {
	Assistant     Assistant
	Conversations memory.ConversationMemory
	Traces        *traces.Store
	Knowledge     Knowledge
	Skills        SkillAdmin
	// ToolsPrompt renders the tool list shown by the skills prompt endpoint.
	ToolsPrompt func() string
	// Upstreams reports the circuit state of each skill data provider.
	Upstreams func() map[string]resilience.BreakerState
}

// Config holds the listener settings.
type Config struct {
	Addr string
	// DebugToken enables the debug endpoints when non-empty.
	DebugToken    string
	SecureCookies bool
}

// Server is the HTTP front of the assistant.
type Server struct {
	deps     Deps
	cfg      Config
	sessions *session.Resolver
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a server and registers its routes.
func New(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:     deps,
		cfg:      cfg,
		sessions: session.NewResolver(cfg.SecureCookies),
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/prompt-profiles", s.handlePromptProfiles)
	s.mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleListMessages)
	s.mux.HandleFunc("POST /api/conversations/{id}/messages", s.handlePostMessage)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)

	s.mux.Handle("POST /api/debug/plan", s.debug(s.handleDebugPlan))
	s.mux.Handle("GET /api/debug/traces/latest", s.debug(s.handleDebugLatestTrace))
	s.mux.Handle("GET /api/debug/traces", s.debug(s.handleDebugTraces))
	s.mux.Handle("GET /api/debug/rag/documents", s.debug(s.handleDebugListDocuments))
	s.mux.Handle("POST /api/debug/rag/documents", s.debug(s.handleDebugUpsertDocuments))
	s.mux.Handle("GET /api/debug/skills", s.debug(s.handleDebugSkills))
	s.mux.Handle("POST /api/debug/skills/reload", s.debug(s.handleDebugReloadSkills))
	s.mux.Handle("GET /api/debug/skills/prompt", s.debug(s.handleDebugSkillsPrompt))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.withSession(s.mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if strings.TrimSpace(addr) == "" {
		addr = ":5000"
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server.listen",
		slog.String("addr", addr),
		slog.Bool("debug_enabled", s.cfg.DebugToken != ""),
		slog.Bool("model_configured", s.deps.Assistant.ModelConfigured()),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type userKey struct{}

// withSession resolves the user cookie for API requests.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !strings.HasPrefix(r.URL.Path, "/api/debug/") {
			id := s.sessions.Resolve(w, r)
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the session user of a request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
