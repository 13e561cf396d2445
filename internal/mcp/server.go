package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/svcerr"
)

// Reviewer runs one review.
type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*review.Response, error)
}

// Server exposes the review pipeline as MCP tools.
type Server struct {
	reviewer Reviewer
	version  string
}

// NewServer creates the MCP server wrapper. rv may be nil when credentials
// are missing; the tool then reports an error result.
func NewServer(rv Reviewer, version string) *Server {
	return &Server{reviewer: rv, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("crev", s.version, server.WithToolCapabilities(true))
	srv.AddTool(s.reviewRepositoryTool())
	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// review_repository
func (s *Server) reviewRepositoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_repository",
		mcp.WithDescription("Review a candidate's GitHub repository against an assignment. Returns JSON with status, found_files, comments, rating and conclusion."),
		mcp.WithString("github_repo_url", mcp.Required(), mcp.Description("Repository URL, e.g. https://github.com/owner/repo")),
		mcp.WithString("assignment_description", mcp.Required(), mcp.Description("What the candidate was asked to build")),
		mcp.WithString("candidate_level", mcp.Required(),
			mcp.Description("Expected seniority"),
			mcp.Enum("Junior", "Middle", "Senior"),
		),
	)
	return tool, s.handleReviewRepository
}

func (s *Server) handleReviewRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.reviewer == nil {
		return mcp.NewToolResultError("Missing required environment variables"), nil
	}

	var req review.Request
	for _, p := range []struct {
		name   string
		target *string
	}{
		{"github_repo_url", &req.GitHubRepoURL},
		{"assignment_description", &req.AssignmentDescription},
		{"candidate_level", &req.CandidateLevel},
	} {
		v, err := request.RequireString(p.name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing required field: %s", p.name)), nil
		}
		*p.target = v
	}

	resp, err := s.reviewer.Review(ctx, req)
	if err != nil {
		if se, ok := svcerr.As(err); ok {
			return mcp.NewToolResultError(se.Message), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
