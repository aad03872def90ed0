// Package render rasterizes PDF pages with the poppler pdftoppm tool.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBinary  = "pdftoppm"
	DefaultWorkers = 4

	// pdftoppm resolution at quality 1.0
	baseDPI = 72.0
)

// Poppler renders pages by invoking pdftoppm once per page. Pages are
// rendered in parallel and returned in document order. It implements
// processor.PageRenderer.
type Poppler struct {
	binary  string
	workers int
	logger  *log.Logger
}

// Option configures a Poppler renderer
type Option func(*Poppler)

// WithBinary sets the pdftoppm executable name or path
func WithBinary(path string) Option {
	return func(p *Poppler) {
		if path != "" {
			p.binary = path
		}
	}
}

// WithWorkers bounds the number of concurrent pdftoppm processes
func WithWorkers(n int) Option {
	return func(p *Poppler) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger for per-page diagnostics
func WithLogger(l *log.Logger) Option {
	return func(p *Poppler) {
		p.logger = l
	}
}

// NewPoppler creates a renderer
func NewPoppler(opts ...Option) *Poppler {
	p := &Poppler{
		binary:  DefaultBinary,
		workers: DefaultWorkers,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether the pdftoppm binary can be found
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// DPI converts a render quality multiplier into a pdftoppm resolution
func DPI(quality float64) int {
	if quality <= 0 || math.IsNaN(quality) || math.IsInf(quality, 0) {
		quality = processor.DefaultRenderQuality
	}
	dpi := int(math.Round(baseDPI * quality))
	if dpi < 1 {
		dpi = 1
	}
	return dpi
}

// RenderPages rasterizes every page of original to PNG. Page sizes are
// reported in points from each page's MediaBox.
func (p *Poppler) RenderPages(ctx context.Context, original []byte, quality float64) ([]processor.PageRaster, error) {
	sizes, err := PageSizes(original)
	if err != nil {
		return nil, errors.Wrapf(errors.StageExtraction, err, "failed to read page layout")
	}
	if len(sizes) == 0 {
		return nil, errors.New(errors.StageExtraction, "document has no pages")
	}

	tmpDir, err := os.MkdirTemp("", "pdf-render-*")
	if err != nil {
		return nil, errors.Wrapf(errors.StageRendering, err, "failed to create work directory")
	}
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(input, original, 0o600); err != nil {
		return nil, errors.Wrapf(errors.StageRendering, err, "failed to stage document")
	}

	dpi := DPI(quality)
	rasters := make([]processor.PageRaster, len(sizes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, size := range sizes {
		pageNum := i + 1
		size := size
		g.Go(func() error {
			img, err := p.renderPage(gctx, input, tmpDir, pageNum, dpi)
			if err != nil {
				return err
			}
			rasters[pageNum-1] = processor.PageRaster{
				PageIndex: pageNum,
				Width:     size.Width,
				Height:    size.Height,
				Image:     img,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rasters, nil
}

func (p *Poppler) renderPage(ctx context.Context, input, dir string, pageNum, dpi int) ([]byte, error) {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%d", pageNum))
	page := strconv.Itoa(pageNum)

	cmd := exec.CommandContext(ctx, p.binary,
		"-png", "-singlefile",
		"-r", strconv.Itoa(dpi),
		"-f", page, "-l", page,
		input, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			p.logger.Printf("pdftoppm page %d: %s", pageNum, msg)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, errors.WrapPage(errors.StageRendering, pageNum, err, "pdftoppm failed")
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, errors.WrapPage(errors.StageRendering, pageNum, err, "rendered page missing")
	}
	return img, nil
}
