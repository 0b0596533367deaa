// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/docservice"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a document folder's primary content file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document folder path (e.g. Development/API-Doc)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document folder under a category. The folder gets a "+
			"primary content file named after it and an empty images/ directory. Read the "+
			"othala://folder-layout resource for the on-disk contract."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title; becomes the folder name after sanitization")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category; becomes the parent directory name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content; attachment references use images/<file>")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("consolidate_documents",
		mcp.WithDescription("Merge several document folders into one consolidated folder. "+
			"Strategies: simple_merge (verbatim sections), structured_consolidation "+
			"(grouped by shared headings), comprehensive_merge (summary, dedup, appendices). "+
			"With dry_run the merged content is returned without writing anything."),
		mcp.WithString("document_folders", mcp.Required(), mcp.Description("Comma-separated document folder paths, in merge order")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Title of the consolidated document")),
		mcp.WithString("strategy", mcp.Description("Merge strategy tag; unknown values fall back to simple_merge")),
		mcp.WithBoolean("dry_run", mcp.Description("Preview only; nothing is written")),
	), s.consolidateDocuments)

	s.mcp.AddTool(mcp.NewTool("list_document_folders",
		mcp.WithDescription("List all document folders, or those under a specific category."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listDocumentFolders)

	s.mcp.AddTool(mcp.NewTool("get_document_metadata",
		mcp.WithDescription("Get a document folder's metadata: name, category, main file, image count, timestamps."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document folder path")),
	), s.getDocumentMetadata)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Download an image (or decode a base64 data URI) into a document "+
			"folder's images/ directory and return the markdown reference to embed."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Document folder path")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.attachImage)

	// Resource: on-disk folder layout contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://folder-layout", "Document Folder Layout Contract",
			mcp.WithResourceDescription("Canonical on-disk layout every document folder follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFolderLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.svc.CreateDocument(ctx, title, category, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", doc.Path)), nil
}

func (s *Server) consolidateDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	foldersArg, err := req.RequireString("document_folders")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategy := req.GetString("strategy", "")
	dryRun := req.GetBool("dry_run", false)

	var folders []string
	for _, f := range strings.Split(foldersArg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			folders = append(folders, f)
		}
	}

	res, err := s.svc.Consolidate(ctx, folders, topic, strategy, dryRun)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocumentFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")

	folders, err := s.svc.Manager().FindDocumentFolders(category, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(folders) == 0 {
		return mcp.NewToolResultText("no document folders found"), nil
	}
	return mcp.NewToolResultText(strings.Join(folders, "\n")), nil
}

func (s *Server) getDocumentMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.svc.Metadata(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(meta, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFolderLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://folder-layout",
			MIMEType: "text/markdown",
			Text:     FolderLayoutContract,
		},
	}, nil
}
