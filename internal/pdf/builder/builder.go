// Package builder authors image-only PDF documents with gofpdf and optionally
// compacts them with pdfcpu object streams.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phpdave11/gofpdf"
)

const defaultProducer = "mcp-pdf-sanitizer"

// Builder creates gofpdf-backed containers. It implements
// processor.DocumentBuilder.
type Builder struct {
	producer     string
	creationDate time.Time
}

// Option configures a Builder
type Option func(*Builder)

// WithProducer sets the /Producer entry of generated documents
func WithProducer(producer string) Option {
	return func(b *Builder) {
		b.producer = producer
	}
}

// WithCreationDate pins the creation date, which makes output reproducible
func WithCreationDate(t time.Time) Option {
	return func(b *Builder) {
		b.creationDate = t
	}
}

// New creates a builder
func New(opts ...Option) *Builder {
	b := &Builder{producer: defaultProducer}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewDocument starts an empty document. Units are PDF points.
func (b *Builder) NewDocument() (processor.Container, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 612, Ht: 792},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetProducer(b.producer, false)
	if !b.creationDate.IsZero() {
		pdf.SetCreationDate(b.creationDate)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to initialize document: %w", err)
	}
	return &document{pdf: pdf}, nil
}

type document struct {
	pdf   *gofpdf.Fpdf
	pages int
}

// AddPage appends a page of the given size in points
func (d *document) AddPage(width, height float64) (processor.Page, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid page size %.2fx%.2f", width, height)
	}
	d.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})
	if err := d.pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to add page: %w", err)
	}
	d.pages++
	return &page{doc: d, number: d.pages, width: width, height: height}, nil
}

// Save serializes the document. With UseObjectStreams the gofpdf output is
// rewritten by pdfcpu using object and cross-reference streams.
func (d *document) Save(ctx context.Context, opts processor.SaveOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.pdf.SetCompression(opts.Compress)

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	if !opts.UseObjectStreams {
		return buf.Bytes(), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return compact(buf.Bytes())
}

func compact(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to compact document: %w", err)
	}
	return out.Bytes(), nil
}

type page struct {
	doc    *document
	number int
	width  float64
	height float64
}

// EmbedImage draws image over the whole page. Images must be embedded before
// the next page is added.
func (p *page) EmbedImage(image []byte) error {
	if p.doc.pdf.PageNo() != p.number {
		return fmt.Errorf("page %d is no longer the current page", p.number)
	}

	data, imageType, err := normalizeImage(image)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("page-%d", p.number)
	opts := gofpdf.ImageOptions{ImageType: imageType}
	p.doc.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	p.doc.pdf.ImageOptions(name, 0, 0, p.width, p.height, false, opts, 0, "")

	if err := p.doc.pdf.Error(); err != nil {
		return fmt.Errorf("failed to embed image: %w", err)
	}
	return nil
}
