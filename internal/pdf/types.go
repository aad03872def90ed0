package pdf

import (
	"github.com/a3tai/mcp-pdf-sanitizer/internal/analysis"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// FindingInfo is a detection finding as reported to callers
type FindingInfo struct {
	Name     string `json:"name"`
	Token    string `json:"token,omitempty"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
	Evidence string `json:"evidence,omitempty"`
}

// Request Types

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFScanFileRequest represents a request to detect active content in a PDF file
type PDFScanFileRequest struct {
	Path             string `json:"path"`
	ObfuscationAware bool   `json:"obfuscation_aware,omitempty"`
	IncludeEvidence  bool   `json:"include_evidence,omitempty"`
}

// PDFAssessFileRequest represents a request for a risk assessment of a PDF file
type PDFAssessFileRequest struct {
	Path string `json:"path"`
}

// PDFSanitizeFileRequest represents a request to rebuild a PDF file from
// page rasters. Zero-valued options fall back to the service defaults.
type PDFSanitizeFileRequest struct {
	Path             string   `json:"path"`
	OutputPath       string   `json:"output_path,omitempty"`
	RenderQuality    *float64 `json:"render_quality,omitempty"`
	CompressionLevel *int     `json:"compression_level,omitempty"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct {
	// No parameters needed for server info
}

// Response Types

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// PDFScanFileResult represents the indicators found in a PDF file
type PDFScanFileResult struct {
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	Clean    bool              `json:"clean"`
	Findings []FindingInfo     `json:"findings"`
	Summary  detection.Summary `json:"summary"`
}

// PDFAssessFileResult represents the risk triage of a PDF file
type PDFAssessFileResult struct {
	Path    string            `json:"path"`
	Size    int64             `json:"size"`
	Report  analysis.Report   `json:"report"`
	Summary detection.Summary `json:"summary"`
}

// PDFSanitizeFileResult represents the outcome of a rebuild
type PDFSanitizeFileResult struct {
	Path              string        `json:"path"`
	OutputPath        string        `json:"output_path"`
	OriginalSize      int           `json:"original_size"`
	SanitizedSize     int           `json:"sanitized_size"`
	SizeChangePercent float64       `json:"size_change_percent"`
	ElapsedMillis     int64         `json:"elapsed_ms"`
	Findings          []FindingInfo `json:"findings"`
	RenderQuality     float64       `json:"render_quality"`
	CompressionLevel  int           `json:"compression_level"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	RendererAvailable bool       `json:"renderer_available"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	Indicators        []string   `json:"indicators"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// toFindingInfo converts detector findings, rendering hex evidence when asked
func toFindingInfo(findings []detection.Finding, withEvidence bool) []FindingInfo {
	out := make([]FindingInfo, 0, len(findings))
	for _, f := range findings {
		info := FindingInfo{
			Name:   f.Name,
			Token:  f.Token,
			Offset: f.Offset,
			Length: f.Length,
		}
		if withEvidence {
			info.Evidence = f.EvidenceText()
		}
		out = append(out, info)
	}
	return out
}
