// Package processor drives the sanitizing rebuild of a PDF: it detects active
// content in the original bytes and rebuilds the document from one raster
// image per page so none of that content survives.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultRenderQuality    = 2.0
	DefaultCompressionLevel = 2
	DefaultTimeout          = 30 * time.Second

	// levels above this request cross-reference object streams
	objectStreamThreshold = 1
)

// Options are pass-through settings for the rendering and authoring backends.
// RenderQuality is not range-checked here; the renderer interprets it.
type Options struct {
	RenderQuality    float64       `json:"render_quality"`
	CompressionLevel int           `json:"compression_level" validate:"min=0,max=3"`
	Timeout          time.Duration `json:"timeout" validate:"min=0"`
}

// DefaultOptions returns the standard processing options
func DefaultOptions() Options {
	return Options{
		RenderQuality:    DefaultRenderQuality,
		CompressionLevel: DefaultCompressionLevel,
		Timeout:          DefaultTimeout,
	}
}

var optionsValidator = validator.New()

// Validate checks the options against their struct tags
func (o Options) Validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid processing options: %w", err)
	}
	return nil
}

// SaveOptions returns the serialization hints derived from the options
func (o Options) SaveOptions() SaveOptions {
	return SaveOptions{
		UseObjectStreams: o.CompressionLevel > objectStreamThreshold,
		Compress:         o.CompressionLevel > 0,
	}
}

// PageRaster is one rendered page supplied by a PageRenderer
type PageRaster struct {
	PageIndex int     `json:"page_index"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Image     []byte  `json:"-"`
}

// SaveOptions are serialization hints for a Container
type SaveOptions struct {
	UseObjectStreams bool
	Compress         bool
}

// PageRenderer turns an original document into ordered page rasters
type PageRenderer interface {
	RenderPages(ctx context.Context, original []byte, quality float64) ([]PageRaster, error)
}

// DocumentBuilder creates empty output documents
type DocumentBuilder interface {
	NewDocument() (Container, error)
}

// Container is an output document under construction
type Container interface {
	AddPage(width, height float64) (Page, error)
	Save(ctx context.Context, opts SaveOptions) ([]byte, error)
}

// Page is a page of a Container
type Page interface {
	// EmbedImage draws an encoded raster over the full page bounds
	EmbedImage(image []byte) error
}

// Result is the outcome of one sanitizing run. Ownership passes to the caller.
type Result struct {
	Rebuilt      []byte              `json:"-"`
	Findings     []detection.Finding `json:"findings"`
	OriginalSize int                 `json:"original_size"`
	RebuiltSize  int                 `json:"rebuilt_size"`
	Elapsed      time.Duration       `json:"-"`
}

// ElapsedMillis returns the processing time in whole milliseconds
func (r *Result) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}

// SizeChangePercent returns the relative size difference of the rebuilt
// document, negative when it shrank.
func (r *Result) SizeChangePercent() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.RebuiltSize-r.OriginalSize) / float64(r.OriginalSize) * 100
}
