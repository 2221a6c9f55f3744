// Package mcp exposes the executable skills as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/nabd/pkg/planner"
	"github.com/jllopis/nabd/pkg/skills"
)

// SkillSource lists the skills to publish.
type SkillSource interface {
	ListExecutable() []*skills.LoadedSkill
}

// Server wraps the mcp-go server and routes tool calls through the step
// executor, so MCP calls are traced and metered like planner steps.
type Server struct {
	mcpServer *server.MCPServer
	executor  *planner.Executor
	logger    *slog.Logger
	calls     atomic.Int64
	tools     []string
}

// NewServer creates a server publishing every executable skill of source.
// Each tool's input schema is the skill manifest's inputSchema.
func NewServer(name, version string, source SkillSource, executor *planner.Executor, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		executor:  executor,
		logger:    logger,
	}
	for _, skill := range source.ListExecutable() {
		schema, err := json.Marshal(skill.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema of %s: %w", skill.ID, err)
		}
		tool := mcp.NewToolWithRawSchema(skill.ID, skill.Description, schema)
		s.mcpServer.AddTool(tool, s.handler(skill.ID))
		s.tools = append(s.tools, skill.ID)
	}
	return s, nil
}

// Tools returns the published tool names.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) handler(tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		stepID := fmt.Sprintf("mcp-%d", s.calls.Add(1))
		run := s.executor.Run(ctx, stepID, tool, args, planner.OriginMCP)
		if run.Failed() {
			return mcp.NewToolResultError(run.Error), nil
		}
		output := run.Output
		if output == "" {
			output = "بدون مخرجات"
		}
		return mcp.NewToolResultText(output), nil
	}
}

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp.serve.stdio", slog.Int("tools", len(s.tools)))
	return server.ServeStdio(s.mcpServer)
}
