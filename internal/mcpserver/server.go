// Package mcpserver exposes the bridge as MCP tools, one per action family
// plus one per creation action.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roach88/bimbridge/internal/ir"
)

// Submitter runs a decoded request. *engine.Bridge implements it.
type Submitter interface {
	Submit(ctx context.Context, req *ir.Request) ir.Response
}

// Server adapts tool calls to bridge submissions.
type Server struct {
	bridge Submitter
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server that submits to b.
func New(b Submitter, opts ...Option) *Server {
	s := &Server{bridge: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds every tool to srv.
func (s *Server) Register(srv *mcp.Server) {
	for _, tool := range ir.Tools {
		spec := toolSpecs[tool]
		srv.AddTool(&mcp.Tool{
			Name:        string(tool),
			Description: spec.description,
			InputSchema: spec.schema,
		}, s.handler(tool))
	}
}

// NewMCPServer creates an MCP server with every tool registered.
func (s *Server) NewMCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "bimbridge", Version: version}, nil)
	s.Register(srv)
	return srv
}

// Handle decodes args for tool and submits the request. The returned error
// is an *ir.DecodeError when the arguments could not be decoded; the
// response is then a failed response covering the readable targets.
func (s *Server) Handle(ctx context.Context, tool ir.Tool, args []byte) (ir.Response, error) {
	req, err := ir.DecodeRequest(tool, args)
	if err != nil {
		s.logger.Info("tool arguments rejected", "tool", tool, "error", err)
		return decodeFailure(err), err
	}
	return s.bridge.Submit(ctx, req), nil
}

func (s *Server) handler(tool ir.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, decodeErr := s.Handle(ctx, tool, req.Params.Arguments)

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
			IsError: decodeErr != nil,
		}, nil
	}
}

// decodeFailure reports a decode error in the response envelope.
func decodeFailure(err error) ir.Response {
	attempted := 0
	var de *ir.DecodeError
	if errors.As(err, &de) {
		attempted = de.Attempted
	}
	return ir.Response{
		Success:  false,
		Message:  err.Error(),
		Response: ir.NewOperationResult(attempted),
	}
}
