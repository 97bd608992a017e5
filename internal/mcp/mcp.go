// Package mcp implements the Model Context Protocol server for Arise.
//
// The MCP server exposes the same capabilities as the HTTP API through
// MCP resources, tools, and prompts, allowing MCP-compatible AI agents
// to record actions and inspect progression state on the user's behalf.
package mcp

import (
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/reconcile"
	"github.com/arisehq/arise/internal/service/rewards"
	"github.com/arisehq/arise/internal/storage"
)

// Server wraps the MCP server with Arise's service layer.
type Server struct {
	mcpServer    *mcpserver.MCPServer
	db           *storage.DB
	rewardSvc    *rewards.Service
	reconcileSvc *reconcile.Service
	characterSvc *character.Service
	logger       *slog.Logger
}

// New creates and configures a new MCP server with all resources,
// tools, and prompts.
func New(db *storage.DB, rewardSvc *rewards.Service, reconcileSvc *reconcile.Service, characterSvc *character.Service, logger *slog.Logger) *Server {
	s := &Server{
		db:           db,
		rewardSvc:    rewardSvc,
		reconcileSvc: reconcileSvc,
		characterSvc: characterSvc,
		logger:       logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"arise",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// errorResult builds a tool error result without failing the whole call.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		IsError: true,
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
	}
}
