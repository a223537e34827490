// Package mcpserver exposes duet turns as MCP tools over streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for duet dialogues.
type Server struct {
	port     int
	mcp      *server.MCPServer
	http     *server.StreamableHTTPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server. baseCtx bounds turns started
// by tool calls, as for the HTTP API.
func New(svc Service, baseCtx context.Context, port int, version string, logger *slog.Logger) *Server {
	handlers := NewHandlers(svc, baseCtx, logger)

	mcpServer := server.NewMCPServer(
		"duet",
		version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleDiscussArticle)
	mcpServer.AddTool(tools[1], handlers.HandleGetSession)
	mcpServer.AddTool(tools[2], handlers.HandleListSessions)

	return &Server{
		port: port,
		mcp:  mcpServer,
		// Session state lives in the duet store, not the MCP transport.
		http:     server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true)),
		handlers: handlers,
		log:      logger,
	}
}

// Start runs the HTTP MCP server. It blocks until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("Starting MCP server", "addr", addr)
	return s.http.Start(addr)
}

// Shutdown stops accepting tool calls and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
