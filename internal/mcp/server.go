package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/formscan/formscan/internal/config"
	"github.com/formscan/formscan/internal/descriptions"
	"github.com/formscan/formscan/internal/pdfsource"
	"github.com/formscan/formscan/internal/service"
)

// Server exposes the form extraction pipeline as MCP tools over stdio
type Server struct {
	config    *config.Config
	svc       *service.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	formExtractFileTool := mcp.NewTool(
		"form_extract_file",
		mcp.WithDescription(descriptions.GetToolDescription("form_extract_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the form image or PDF"),
		),
	)
	s.mcpServer.AddTool(formExtractFileTool, s.handleFormExtractFile)

	formExtractDirectoryTool := mcp.NewTool(
		"form_extract_directory",
		mcp.WithDescription(descriptions.GetToolDescription("form_extract_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory to process (uses the configured upload directory if empty)"),
		),
	)
	s.mcpServer.AddTool(formExtractDirectoryTool, s.handleFormExtractDirectory)

	formValidatePDFTool := mcp.NewTool(
		"form_validate_pdf",
		mcp.WithDescription(descriptions.GetToolDescription("form_validate_pdf")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(formValidatePDFTool, s.handleFormValidatePDF)

	formServerInfoTool := mcp.NewTool(
		"form_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("form_server_info")),
	)
	s.mcpServer.AddTool(formServerInfoTool, s.handleFormServerInfo)
}

// Handler functions
func (s *Server) handleFormExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.svc.ProcessFile(ctx, path, "")
	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed for %s: %s", result.Filename, result.Error)), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleFormExtractDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	directory := s.config.UploadDirectory // default
	if dir, ok := args["directory"].(string); ok && dir != "" {
		directory = dir
	}

	batch, err := s.svc.ProcessDirectory(ctx, directory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if batch.TotalProcessed == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No supported files found in directory: %s", directory)), nil
	}

	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleFormValidatePDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := pdfsource.Validate(path); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %v", path, err)), nil
	}

	pages, err := pdfsource.PageCount(path)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("PDF %s is valid but page count failed: %v", path, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("PDF file %s is valid and readable (%d pages)", path, pages)), nil
}

func (s *Server) handleFormServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Upload directory: %s\n", s.config.UploadDirectory)
	text += fmt.Sprintf("Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Min OCR confidence: %g\n", s.config.MinConfidence)
	text += fmt.Sprintf("Languages: %s\n", strings.Join(s.config.Languages, "+"))

	if info, err := s.svc.OCRInfo(ctx); err == nil {
		text += fmt.Sprintf("\nOCR engine: %s %s (ready)\n", info.Name, info.Version)
		if len(info.Languages) > 0 {
			text += fmt.Sprintf("Installed languages: %s\n", strings.Join(info.Languages, ", "))
		}
	} else {
		text += fmt.Sprintf("\nOCR engine: not ready (%v)\n", err)
	}

	text += "\nAvailable tools:\n"
	names := descriptions.GetAllToolNames()
	sort.Strings(names)
	for _, name := range names {
		text += fmt.Sprintf("  • %s\n", name)
	}

	text += "\nSupported formats: png, jpg, jpeg, gif, bmp, tiff, tif, pdf (digital)\n"

	return mcp.NewToolResultText(text), nil
}

// Run serves MCP over standard I/O until the client disconnects
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting %s MCP server in stdio mode", s.config.ServerName)
		log.Printf("Upload directory: %s", s.config.UploadDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
