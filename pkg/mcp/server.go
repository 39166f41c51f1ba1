// Package mcp exposes tagsync as a Model Context Protocol server so LLM
// agents can inspect and synchronize version headers.
package mcp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdul-hamid-achik/tagsync/internal/version"
	"github.com/abdul-hamid-achik/tagsync/pkg/syncer"
)

// Server wraps an MCP server bound to one header.
type Server struct {
	syncer    *syncer.Synchronizer
	mcpServer *server.MCPServer
	mu        sync.Mutex // serializes header rewrites
}

// NewServer creates a Server and registers its tools.
func NewServer(s *syncer.Synchronizer) *Server {
	srv := &Server{
		syncer: s,
		mcpServer: server.NewMCPServer(
			"tagsync",
			version.GetVersion(),
			server.WithToolCapabilities(false),
		),
	}
	srv.registerTools()
	return srv
}

// ServeStdio serves requests on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("sync_version",
			mcp.WithDescription("Rewrite the header's VER_MAJOR/VER_MINOR/VER_PATCH macros from the latest git tag"),
			mcp.WithBoolean("dry_run",
				mcp.Description("Report what would change without writing the header"),
			),
		),
		s.handleSyncVersion,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("check_version",
			mcp.WithDescription("Report whether the header's version macros match the latest git tag"),
		),
		s.handleCheckVersion,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("read_header",
			mcp.WithDescription("Return the current values of the header's version macros"),
		),
		s.handleReadHeader,
	)
}

type toolResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSyncVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("dry_run", false) {
		return s.handleCheckVersion(ctx, req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.syncer.Synchronize(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(toolResponse{Success: true, Data: report})
}

func (s *Server) handleCheckVersion(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.syncer.Check(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(toolResponse{Success: true, Data: map[string]any{
		"in_sync": report.InSync(),
		"report":  report,
	}})
}

func (s *Server) handleReadHeader(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values, err := s.syncer.Inspect()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(toolResponse{Success: true, Data: map[string]any{
		"header": s.syncer.Config.Header,
		"macros": values,
	}})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(toolResponse{Success: false, Error: err.Error()}, "", "  ")
	return mcp.NewToolResultError(string(data))
}
