package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/builder"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
)

// activePDF is a hand-written document carrying JavaScript behind an OpenAction
const activePDF = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R /OpenAction 4 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
	"4 0 obj\n<< /S /JavaScript /JS (app.alert\\(1\\)) >>\nendobj\n" +
	"trailer\n<< /Root 1 0 R >>\n%%EOF\n"

// hiddenPDF spells /JavaScript with a #61 escape
const hiddenPDF = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Names << /J#61vaScript 2 0 R >> >>\nendobj\n" +
	"trailer\n<< /Root 1 0 R >>\n%%EOF\n"

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.Set(2, 2, color.RGBA{A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// builtPDF returns a well-formed document with the given number of pages
func builtPDF(t *testing.T, pages int) []byte {
	t.Helper()

	doc, err := builder.New().NewDocument()
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	img := pngBytes(t)
	for i := 0; i < pages; i++ {
		page, err := doc.AddPage(612, 792)
		if err != nil {
			t.Fatalf("Failed to add page: %v", err)
		}
		if err := page.EmbedImage(img); err != nil {
			t.Fatalf("Failed to embed image: %v", err)
		}
	}

	out, err := doc.Save(context.Background(), processor.SaveOptions{Compress: true})
	if err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	return out
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// stubRenderer returns one raster per page without an external binary
type stubRenderer struct {
	pages       int
	err         error
	gotQuality  float64
	unavailable bool
	image       []byte
}

func (r *stubRenderer) RenderPages(_ context.Context, _ []byte, quality float64) ([]processor.PageRaster, error) {
	r.gotQuality = quality
	if r.err != nil {
		return nil, r.err
	}
	rasters := make([]processor.PageRaster, 0, r.pages)
	for i := 1; i <= r.pages; i++ {
		rasters = append(rasters, processor.PageRaster{
			PageIndex: i,
			Width:     612,
			Height:    792,
			Image:     r.image,
		})
	}
	return rasters, nil
}

func (r *stubRenderer) Available() bool {
	return !r.unavailable
}

func newTestService(t *testing.T, dir string, opts ...ServiceOption) *Service {
	t.Helper()
	service, err := NewService(1024*1024, dir, opts...)
	if err != nil {
		t.Fatalf("NewService() unexpected error: %v", err)
	}
	return service
}
