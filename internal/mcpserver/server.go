// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only content tools over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/saffi/internal/apperr"
	"github.com/starford/saffi/internal/pageservice"
)

// ContentFormatURI identifies the content format resource.
const ContentFormatURI = "saffi://content-format"

// Server wraps the MCP server with content tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all content tools registered.
func New(svc *pageservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Saffi",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Read a rendered page, post or thread by its public path. "+
			"An empty path is the home page; a group name alone is that group's index page."),
		mcp.WithString("path", mcp.Description("Public path such as about or blog/2024-01-02-hello")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("get_tag",
		mcp.WithDescription("List the posts carrying a tag, newest first."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name (lowercase letters and dashes)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of posts to return")),
		mcp.WithNumber("offset", mcp.Description("Number of posts to skip")),
	), s.getTag)

	s.mcp.AddTool(mcp.NewTool("list_group",
		mcp.WithDescription("List a group's index page and members. Omit the group for the root group; "+
			"pass list=true to get every group name instead."),
		mcp.WithString("group", mcp.Description("Group name (lowercase letters and dashes)")),
		mcp.WithBoolean("list", mcp.Description("Return the names of all groups")),
	), s.listGroup)

	s.mcp.AddTool(mcp.NewTool("get_content_format",
		mcp.WithDescription("Returns the content layout and frontmatter format the site reads. "+
			"Call this before writing pages or posts into the content directory."),
	), s.getContentFormat)

	s.mcp.AddResource(
		mcp.NewResource(ContentFormatURI, "Content Format",
			mcp.WithResourceDescription("Directory layout, file naming and TOML frontmatter of site content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns a streamable HTTP transport for the server.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(what string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + what)
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.Trim(req.GetString("path", ""), "/")
	page, err := s.svc.GetPage(ctx, path)
	if err != nil {
		return errorResult("/"+path, err), nil
	}
	return jsonResult(page)
}

func (s *Server) getTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetTag(ctx, tag, req.GetInt("limit", 0), req.GetInt("offset", 0))
	if err != nil {
		return errorResult("tag "+tag, err), nil
	}
	return jsonResult(detail)
}

func (s *Server) listGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("list", false) {
		return jsonResult(map[string][]string{"groups": s.svc.ListGroups(ctx)})
	}
	group := req.GetString("group", "")
	detail, err := s.svc.GetGroup(ctx, group, 0, 0)
	if err != nil {
		return errorResult("group "+group, err), nil
	}
	return jsonResult(detail)
}

func (s *Server) getContentFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContentFormatURI,
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
