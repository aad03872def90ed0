package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/config"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer

	// stdio transport streams
	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	}

	s.mcpServer.AddTools(s.tools()...)

	return s, nil
}

// tools lists every tool the server exposes with its handler
func (s *Server) tools() []server.ServerTool {
	pathArg := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
	)

	return []server.ServerTool{
		{
			Tool: mcp.NewTool(
				"pdf_validate_file",
				mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
				pathArg,
			),
			Handler: s.handlePDFValidateFile,
		},
		{
			Tool: mcp.NewTool(
				"pdf_scan_file",
				mcp.WithDescription(descriptions.GetToolDescription("pdf_scan_file")),
				pathArg,
				mcp.WithBoolean("obfuscation_aware",
					mcp.Description("Also match names hidden with #XX hex escapes"),
				),
				mcp.WithBoolean("include_evidence",
					mcp.Description("Attach a hex dump around each match"),
				),
			),
			Handler: s.handlePDFScanFile,
		},
		{
			Tool: mcp.NewTool(
				"pdf_assess_file",
				mcp.WithDescription(descriptions.GetToolDescription("pdf_assess_file")),
				pathArg,
			),
			Handler: s.handlePDFAssessFile,
		},
		{
			Tool: mcp.NewTool(
				"pdf_sanitize_file",
				mcp.WithDescription(descriptions.GetToolDescription("pdf_sanitize_file")),
				pathArg,
				mcp.WithString("output_path",
					mcp.Description("Destination inside the output directory (default <name>.sanitized.pdf)"),
				),
				mcp.WithNumber("quality",
					mcp.Description("Render scale relative to 72 DPI"),
					mcp.Min(0.5),
					mcp.Max(4),
				),
				mcp.WithNumber("compression",
					mcp.Description("Compression level 0-3; above 1 also writes object streams"),
					mcp.Min(0),
					mcp.Max(3),
				),
			),
			Handler: s.handlePDFSanitizeFile,
		},
		{
			Tool: mcp.NewTool(
				"pdf_server_info",
				mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
			),
			Handler: s.handlePDFServerInfo,
		},
	}
}

// Handler functions
func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (version %s, %d pages)",
			result.Path, result.Version, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFScanFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFScanFileRequest{
		Path:             path,
		ObfuscationAware: request.GetBool("obfuscation_aware", false),
		IncludeEvidence:  request.GetBool("include_evidence", false),
	}
	result, err := s.pdfService.ScanFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFScanFileResult(result)), nil
}

func (s *Server) handlePDFAssessFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.AssessFile(pdf.PDFAssessFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFAssessFileResult(result)), nil
}

func (s *Server) handlePDFSanitizeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFSanitizeFileRequest{
		Path:       path,
		OutputPath: request.GetString("output_path", ""),
	}

	args := request.GetArguments()
	if _, ok := args["quality"]; ok {
		quality, err := request.RequireFloat("quality")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.RenderQuality = &quality
	}
	if _, ok := args["compression"]; ok {
		level, err := request.RequireInt("compression")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.CompressionLevel = &level
	}

	result, err := s.pdfService.SanitizeFile(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFSanitizeFileResult(result)), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, pdf.PDFServerInfoRequest{}, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatPDFScanFileResult(result *pdf.PDFScanFileResult) string {
	if result.Clean {
		return fmt.Sprintf("No active content found in %s (%.1f KB)\n", result.Path, result.Summary.SizeKB)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active content found in %s (%.1f KB)\n", result.Path, result.Summary.SizeKB)
	fmt.Fprintf(&b, "Indicators: %d\n\n", len(result.Findings))

	for i, f := range result.Findings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.Name)
		fmt.Fprintf(&b, "   Token: %s\n", f.Token)
		fmt.Fprintf(&b, "   Offset: 0x%08x (%d bytes)\n", f.Offset, f.Length)
		if f.Evidence != "" {
			b.WriteString("\n")
			for _, line := range strings.Split(f.Evidence, "\n") {
				b.WriteString("   " + line + "\n")
			}
		}
		if i < len(result.Findings)-1 {
			b.WriteString("\n")
		}
	}

	sum := result.Summary
	b.WriteString("\nSummary:\n")
	fmt.Fprintf(&b, "  JavaScript: %t\n", sum.HasJavaScript)
	fmt.Fprintf(&b, "  Actions: %t\n", sum.HasActions)
	fmt.Fprintf(&b, "  Embedded files: %t\n", sum.HasEmbeddedFiles)
	fmt.Fprintf(&b, "  XFA forms: %t\n", sum.HasXFAForms)
	fmt.Fprintf(&b, "  Digital signatures: %t\n", sum.HasDigitalSignatures)
	fmt.Fprintf(&b, "  Embedded fonts: %t\n", sum.HasEmbeddedFonts)

	return b.String()
}

func (s *Server) formatPDFAssessFileResult(result *pdf.PDFAssessFileResult) string {
	risk := result.Report.Risk
	st := result.Report.Structure

	var b strings.Builder
	fmt.Fprintf(&b, "Risk assessment for %s\n", result.Path)
	fmt.Fprintf(&b, "Score: %d\n", risk.Score)
	fmt.Fprintf(&b, "Tier: %s\n", strings.ToUpper(string(risk.Tier)))
	fmt.Fprintf(&b, "Fingerprint: %s\n", result.Report.Fingerprint)

	if len(risk.Rationale) > 0 {
		b.WriteString("\nRationale:\n")
		for _, r := range risk.Rationale {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}

	b.WriteString("\nStructure:\n")
	fmt.Fprintf(&b, "  Version: %s\n", st.PDFVersion)
	fmt.Fprintf(&b, "  Objects: %d (streams: %d, object streams: %d)\n",
		st.TotalObjectCount, st.StreamObjectCount, st.ObjectStreamCount)
	fmt.Fprintf(&b, "  Linearized: %t\n", st.IsLinearized)
	fmt.Fprintf(&b, "  Incremental updates: %t\n", st.HasIncrementalUpdates)
	if st.ObjectCountMismatch {
		b.WriteString("  WARNING: obj/endobj counts differ\n")
	}

	obf := result.Report.Obfuscation
	fmt.Fprintf(&b, "\nName obfuscation: %s\n", obf.Level)
	for _, f := range obf.Suspicious {
		fmt.Fprintf(&b, "  %s -> %s (confidence %.2f)\n", f.OriginalToken, f.DecodedToken, f.Confidence)
	}

	return b.String()
}

func (s *Server) formatPDFSanitizeFileResult(result *pdf.PDFSanitizeFileResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sanitized %s\n", result.Path)
	fmt.Fprintf(&b, "Output: %s\n", result.OutputPath)
	fmt.Fprintf(&b, "Original size: %d bytes\n", result.OriginalSize)
	fmt.Fprintf(&b, "Sanitized size: %d bytes\n", result.SanitizedSize)
	fmt.Fprintf(&b, "Size change: %+.1f%%\n", result.SizeChangePercent)
	fmt.Fprintf(&b, "Processing time: %d ms\n", result.ElapsedMillis)
	fmt.Fprintf(&b, "Quality: %.1f, compression: %d\n", result.RenderQuality, result.CompressionLevel)

	b.WriteString("\nRemoved:\n")
	for _, f := range result.Findings {
		fmt.Fprintf(&b, "  - %s\n", f.Name)
	}
	return b.String()
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🖨️  Page Renderer Available: %t\n\n", result.RendererAvailable)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	if len(result.Indicators) > 0 {
		text += "\n🔎 Detected Indicators:\n"
		for _, name := range result.Indicators {
			text += fmt.Sprintf("  • %s\n", name)
		}
	}

	text += "\n" + result.UsageGuidance

	return text
}

// formatJSON renders v for debug logging
func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves requests on stdin/stdout until input closes or ctx
// is cancelled
func (s *Server) runStdioMode(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF sanitizer MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
		log.Printf("Output directory: %s", s.config.OutputDir())
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.Default())

	err := stdio.Listen(ctx, s.stdin, s.stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the streamable HTTP transport until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	addr := s.config.Address()

	if s.config.IsDebug() {
		log.Printf("Starting PDF sanitizer MCP server on http://%s/mcp", addr)
		log.Printf("Configuration:\n%s", formatJSON(s.config))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
