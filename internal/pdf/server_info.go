package pdf

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/descriptions"
)

const pathParameter = "path (required): Path to the PDF file, absolute or relative to the configured directory"

// ServerInfo returns server information, capabilities and the PDF files
// available in the configured directory
func (s *Service) ServerInfo(ctx context.Context, _ PDFServerInfoRequest, serverName, version string) (*PDFServerInfoResult, error) {
	indicators := make([]string, 0, len(s.registry.Indicators()))
	for _, ind := range s.registry.Indicators() {
		indicators = append(indicators, ind.Name)
	}

	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  s.guard.Root(),
		OutputDirectory:   s.outputDir,
		MaxFileSize:       s.maxFileSize,
		RendererAvailable: s.RendererAvailable(),
		AvailableTools:    availableTools(),
		Indicators:        indicators,
		DirectoryContents: s.inventory.List(ctx, s.guard.Root()),
		UsageGuidance:     s.usageGuidance(),
	}, nil
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "pdf_validate_file",
			Description: descriptions.GetToolDescription("pdf_validate_file"),
			Usage:       "Use this tool to check that a file is a structurally valid PDF before sanitizing it.",
			Parameters:  pathParameter,
		},
		{
			Name:        "pdf_scan_file",
			Description: descriptions.GetToolDescription("pdf_scan_file"),
			Usage:       "Use this tool to list active-content indicators such as JavaScript, actions and embedded files.",
			Parameters: pathParameter + ", " +
				"obfuscation_aware (optional): also match names hidden with #XX escapes, " +
				"include_evidence (optional): attach a hex dump around each match",
		},
		{
			Name:        "pdf_assess_file",
			Description: descriptions.GetToolDescription("pdf_assess_file"),
			Usage:       "Use this tool to get a weighted risk score, tier, structural statistics and a fingerprint.",
			Parameters:  pathParameter,
		},
		{
			Name:        "pdf_sanitize_file",
			Description: descriptions.GetToolDescription("pdf_sanitize_file"),
			Usage: "Use this tool to produce a copy of the document rebuilt from page images, " +
				"with every script, action, form and attachment removed.",
			Parameters: pathParameter + ", " +
				"output_path (optional): destination inside the output directory, " +
				"quality (optional): render scale, 2.0 = 144 DPI, " +
				"compression (optional): 0-3, levels above 1 also pack objects into object streams",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool to get server information, directories and available capabilities.",
			Parameters:  "No parameters required",
		},
	}
}

func (s *Service) usageGuidance() string {
	renderer := "available"
	if !s.RendererAvailable() {
		renderer = "NOT available: pdf_sanitize_file will fail until pdftoppm is installed"
	}

	return `PDF Sanitizer MCP Server Usage Guide:

1. VALIDATE:
   - Use 'pdf_validate_file' to confirm the file parses as a PDF

2. SCAN:
   - Use 'pdf_scan_file' to see which active-content indicators are present
   - Set obfuscation_aware=true for documents that may hide names with #XX escapes
   - Set include_evidence=true to get a hex dump around each match

3. ASSESS:
   - Use 'pdf_assess_file' for a score and tier (low, medium, high, critical)
   - JavaScript combined with an automatic action is the strongest signal

4. SANITIZE:
   - Use 'pdf_sanitize_file' to write '<name>` + SanitizedSuffix + `' to the output directory
   - The rebuilt file contains only page images; text is no longer selectable
   - Higher quality gives sharper pages and larger files

IMPORTANT NOTES:
- Paths must stay inside the configured directories
- The original file is never modified
- The server can handle files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB
- Page renderer: ` + renderer
}
