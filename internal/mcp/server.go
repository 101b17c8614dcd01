// Package mcpserver exposes the document tree and editor over the Model
// Context Protocol so AI agents can read and edit documents.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"scribe/internal/event"
	"scribe/internal/gateway"
	"scribe/internal/session"
	"scribe/internal/tree"
)

// Server is the MCP server for the editor.
type Server struct {
	mcp     *server.MCPServer
	emitter event.Emitter
	logger  zerolog.Logger

	tree  *tree.Mutator
	store gateway.Store

	// Sessions opened by tools, keyed by sub-topic id. Edits accumulate
	// in memory until save_document persists them, matching the GUI's
	// explicit-save model.
	sessions map[string]*session.Session
}

// Deps holds the dependencies passed from the app layer.
type Deps struct {
	Emitter event.Emitter
	Logger  zerolog.Logger
	Tree    *tree.Mutator
	Store   gateway.Store
}

// New creates and configures the MCP server with all tools registered.
func New(deps Deps) *Server {
	s := &Server{
		emitter:  deps.Emitter,
		logger:   deps.Logger,
		tree:     deps.Tree,
		store:    deps.Store,
		sessions: make(map[string]*session.Session),
	}

	s.mcp = server.NewMCPServer(
		"scribe-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTreeTools()
	s.registerDocumentTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("mcp stdio server starting")
	return server.ServeStdio(s.mcp)
}

// openSession returns the cached session for a sub-topic, loading it on
// first use.
func (s *Server) openSession(ctx context.Context, subTopicID string) (*session.Session, error) {
	if sess, ok := s.sessions[subTopicID]; ok {
		return sess, nil
	}
	sess, err := session.Open(ctx, s.store, s.emitter, s.logger, subTopicID)
	if err != nil {
		return nil, err
	}
	s.sessions[subTopicID] = sess
	return sess, nil
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
