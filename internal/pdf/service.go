package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/analysis"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/builder"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
	"golang.org/x/sync/semaphore"
)

const (
	// SanitizedSuffix is appended to the input's base name for default outputs
	SanitizedSuffix = ".sanitized.pdf"

	defaultMaxConcurrent = 2
	outputDirPerm        = 0o755
	outputFilePerm       = 0o644
)

// Service handles PDF file operations by orchestrating detection, analysis
// and rebuild components
type Service struct {
	maxFileSize   int64
	outputDir     string
	maxConcurrent int
	guard         *security.PathGuard
	validator     *Validator
	registry      *detection.Registry
	decoding      *detection.Registry
	scorer        *analysis.Scorer
	builder       processor.DocumentBuilder
	renderer      processor.PageRenderer
	defaults      processor.Options
	slots         *semaphore.Weighted
	inventory     *Inventory
	logger        *log.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithOutputDirectory sets where sanitized files are written. Defaults to
// the configured input directory.
func WithOutputDirectory(dir string) ServiceOption {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithRenderer replaces the page renderer
func WithRenderer(r processor.PageRenderer) ServiceOption {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithBuilder replaces the document builder
func WithBuilder(b processor.DocumentBuilder) ServiceOption {
	return func(s *Service) {
		s.builder = b
	}
}

// WithProcessingOptions sets the default rebuild options
func WithProcessingOptions(opts processor.Options) ServiceOption {
	return func(s *Service) {
		s.defaults = opts
	}
}

// WithMaxConcurrent bounds how many documents are rebuilt at once
func WithMaxConcurrent(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithScorer replaces the risk scorer
func WithScorer(scorer *analysis.Scorer) ServiceOption {
	return func(s *Service) {
		s.scorer = scorer
	}
}

// WithLogger sets the logger handed to the rebuild pipeline
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new PDF service rooted at configuredDirectory
func NewService(maxFileSize int64, configuredDirectory string, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		maxFileSize:   maxFileSize,
		outputDir:     configuredDirectory,
		maxConcurrent: defaultMaxConcurrent,
		validator:     NewValidator(maxFileSize),
		registry:      detection.Default(),
		decoding:      detection.New(detection.WithObfuscationAware()),
		scorer:        analysis.NewScorer(),
		defaults:      processor.DefaultOptions(),
		inventory:     NewInventory(),
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	guard, err := security.NewPathGuard(configuredDirectory, s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path guard: %w", err)
	}
	s.guard = guard

	if s.builder == nil {
		s.builder = builder.New()
	}
	if s.renderer == nil {
		s.renderer = render.NewPoppler(render.WithLogger(s.logger))
	}
	s.slots = semaphore.NewWeighted(int64(s.maxConcurrent))

	return s, nil
}

// ValidateFile performs validation on a PDF file
func (s *Service) ValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	path, err := s.guard.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	result, err := s.validator.ValidateFile(PDFValidateFileRequest{Path: path})
	if err != nil {
		return nil, err
	}
	result.Path = req.Path
	return result, nil
}

// ScanFile reports the active-content indicators present in a PDF file
func (s *Service) ScanFile(req PDFScanFileRequest) (*PDFScanFileResult, error) {
	data, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	registry := s.registry
	if req.ObfuscationAware {
		registry = s.decoding
	}
	findings := registry.DetectAll(data)

	return &PDFScanFileResult{
		Path:     req.Path,
		Size:     int64(len(data)),
		Clean:    len(findings) == 0,
		Findings: toFindingInfo(findings, req.IncludeEvidence),
		Summary:  detection.Summarize(findings, len(data)),
	}, nil
}

// AssessFile scores a PDF file and reports its structure, fingerprint and
// name obfuscation
func (s *Service) AssessFile(req PDFAssessFileRequest) (*PDFAssessFileResult, error) {
	data, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	return &PDFAssessFileResult{
		Path:    req.Path,
		Size:    int64(len(data)),
		Report:  s.scorer.Analyze(data),
		Summary: detection.Summarize(s.registry.DetectAll(data), len(data)),
	}, nil
}

// SanitizeFile rebuilds a PDF file from page rasters and writes the result
// to the output directory. The input file is never modified.
func (s *Service) SanitizeFile(ctx context.Context, req PDFSanitizeFileRequest) (*PDFSanitizeFileResult, error) {
	inPath, err := s.guard.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	outPath, err := s.outputPath(inPath, req.OutputPath)
	if err != nil {
		return nil, err
	}

	data, err := s.validator.ReadDocument(inPath)
	if err != nil {
		return nil, err
	}

	opts := s.defaults
	if req.RenderQuality != nil {
		opts.RenderQuality = *req.RenderQuality
	}
	if req.CompressionLevel != nil {
		opts.CompressionLevel = *req.CompressionLevel
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire slot: %w", err)
	}
	defer s.slots.Release(1)

	proc := processor.New(s.builder,
		processor.WithOptions(opts),
		processor.WithRegistry(s.registry),
		processor.WithLogger(s.logger),
	)
	res, err := proc.Run(ctx, data, s.renderer)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(outPath, res.Rebuilt); err != nil {
		return nil, err
	}
	s.inventory.Invalidate(s.guard.Root())

	return &PDFSanitizeFileResult{
		Path:              req.Path,
		OutputPath:        outPath,
		OriginalSize:      res.OriginalSize,
		SanitizedSize:     res.RebuiltSize,
		SizeChangePercent: res.SizeChangePercent(),
		ElapsedMillis:     res.ElapsedMillis(),
		Findings:          toFindingInfo(res.Findings, false),
		RenderQuality:     opts.RenderQuality,
		CompressionLevel:  opts.CompressionLevel,
	}, nil
}

// load resolves path inside the configured directories and reads it
func (s *Service) load(path string) ([]byte, error) {
	resolved, err := s.guard.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ReadDocument(resolved)
}

// outputPath picks the destination for a sanitized copy of inPath
func (s *Service) outputPath(inPath, requested string) (string, error) {
	target := requested
	if target == "" {
		target = filepath.Join(s.outputDir, SanitizedName(inPath))
	} else if !filepath.IsAbs(target) {
		target = filepath.Join(s.outputDir, target)
	}

	resolved, err := s.guard.Resolve(target)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	if resolved == inPath {
		return "", fmt.Errorf("output path must differ from input path: %s", resolved)
	}
	if !strings.EqualFold(filepath.Ext(resolved), ".pdf") {
		return "", fmt.Errorf("output path must have a .pdf extension: %s", resolved)
	}
	return resolved, nil
}

// SanitizedName returns the default output file name for path
func SanitizedName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + SanitizedSuffix
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sanitize-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmpName, outputFilePerm); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// OutputDirectory returns where sanitized files are written
func (s *Service) OutputDirectory() string {
	return s.outputDir
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(filePath string) bool {
	return s.validator.IsValidPDF(filePath)
}

// RendererAvailable reports whether the page renderer can run here
func (s *Service) RendererAvailable() bool {
	if a, ok := s.renderer.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	if err := s.defaults.Validate(); err != nil {
		return err
	}

	return nil
}
