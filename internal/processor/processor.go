package processor

import (
	"context"
	"log"
	"time"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/errors"
)

// Processor sequences detection and rebuild for a single document per call.
// It holds no per-document state and is safe for concurrent use.
type Processor struct {
	builder  DocumentBuilder
	registry *detection.Registry
	options  Options
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

// WithOptions sets the processing options
func WithOptions(opts Options) Option {
	return func(p *Processor) {
		p.options = opts
	}
}

// WithRegistry sets the detection registry
func WithRegistry(r *detection.Registry) Option {
	return func(p *Processor) {
		p.registry = r
	}
}

// WithLogger sets the logger used for contract-violation warnings
func WithLogger(l *log.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// New creates a processor that rebuilds documents with builder
func New(builder DocumentBuilder, opts ...Option) *Processor {
	p := &Processor{
		builder:  builder,
		registry: detection.Default(),
		options:  DefaultOptions(),
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Options returns the configured options
func (p *Processor) Options() Options {
	return p.options
}

// Run renders original with renderer and then processes it. The renderer
// receives its own copy of the input. Options.Timeout, when set, bounds the
// whole call.
func (p *Processor) Run(ctx context.Context, original []byte, renderer PageRenderer) (*Result, error) {
	if err := p.options.Validate(); err != nil {
		return nil, errors.Wrap(errors.StageValidation, err)
	}

	if p.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.options.Timeout)
		defer cancel()
	}

	input := make([]byte, len(original))
	copy(input, original)

	pages, err := renderer.RenderPages(ctx, input, p.options.RenderQuality)
	if err != nil {
		return nil, errors.Wrapf(errors.StageExtraction, err, "failed to extract pages")
	}

	return p.Process(ctx, original, pages)
}

// Process detects indicators in original and rebuilds it from pages, which
// must already be in original page order.
func (p *Processor) Process(ctx context.Context, original []byte, pages []PageRaster) (*Result, error) {
	if err := p.options.Validate(); err != nil {
		return nil, errors.Wrap(errors.StageValidation, err)
	}

	start := p.now()

	findings := p.registry.DetectAll(original)
	if len(findings) == 0 {
		findings = []detection.Finding{{Name: detection.NameNoDynamicObject}}
	}

	container, err := p.builder.NewDocument()
	if err != nil {
		return nil, errors.Wrapf(errors.StageSerialization, err, "failed to create document")
	}

	for _, raster := range pages {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(errors.StageSerialization, err, "processing cancelled")
		}

		page, err := container.AddPage(raster.Width, raster.Height)
		if err != nil {
			return nil, errors.WrapPage(errors.StageSerialization, raster.PageIndex, err, "failed to add page")
		}

		if len(raster.Image) == 0 {
			p.logger.Printf("Warning: page %d has no image data, emitting blank page", raster.PageIndex)
			continue
		}

		if err := page.EmbedImage(raster.Image); err != nil {
			return nil, errors.WrapPage(errors.StageSerialization, raster.PageIndex, err, "failed to embed page image")
		}
	}

	rebuilt, err := container.Save(ctx, p.options.SaveOptions())
	if err != nil {
		return nil, errors.Wrapf(errors.StageSerialization, err, "failed to save document")
	}

	return &Result{
		Rebuilt:      rebuilt,
		Findings:     findings,
		OriginalSize: len(original),
		RebuiltSize:  len(rebuilt),
		Elapsed:      p.now().Sub(start),
	}, nil
}
