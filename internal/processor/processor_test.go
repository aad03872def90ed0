package processor

import (
	"bytes"
	"context"
	stderrors "errors"
	"log"
	"testing"
	"time"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPDF = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 3 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
	"4 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
	"5 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 842 595] >>\nendobj\n" +
	"trailer\n<< /Root 1 0 R >>\n%%EOF\n"

type fakePage struct {
	width, height float64
	image         []byte
	embedErr      error
}

func (p *fakePage) EmbedImage(image []byte) error {
	if p.embedErr != nil {
		return p.embedErr
	}
	p.image = image
	return nil
}

type fakeContainer struct {
	pages    []*fakePage
	saved    SaveOptions
	addErr   error
	saveErr  error
	embedErr error
}

func (c *fakeContainer) AddPage(width, height float64) (Page, error) {
	if c.addErr != nil {
		return nil, c.addErr
	}
	p := &fakePage{width: width, height: height, embedErr: c.embedErr}
	c.pages = append(c.pages, p)
	return p, nil
}

func (c *fakeContainer) Save(_ context.Context, opts SaveOptions) ([]byte, error) {
	if c.saveErr != nil {
		return nil, c.saveErr
	}
	c.saved = opts
	out := []byte("%PDF-1.7\n")
	for _, p := range c.pages {
		out = append(out, p.image...)
	}
	return out, nil
}

type fakeBuilder struct {
	container *fakeContainer
	err       error
}

func (b *fakeBuilder) NewDocument() (Container, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.container == nil {
		b.container = &fakeContainer{}
	}
	return b.container, nil
}

type fakeRenderer struct {
	pages []PageRaster
	err   error
	got   []byte
}

func (r *fakeRenderer) RenderPages(_ context.Context, original []byte, _ float64) ([]PageRaster, error) {
	r.got = original
	return r.pages, r.err
}

func threePages() []PageRaster {
	return []PageRaster{
		{PageIndex: 1, Width: 612, Height: 792, Image: []byte("png-1")},
		{PageIndex: 2, Width: 612, Height: 792, Image: []byte("png-2")},
		{PageIndex: 3, Width: 842, Height: 595, Image: []byte("png-3")},
	}
}

func TestProcess_CleanDocument(t *testing.T) {
	builder := &fakeBuilder{}
	p := New(builder)

	result, err := p.Process(context.Background(), []byte(cleanPDF), threePages())
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	assert.Equal(t, detection.NameNoDynamicObject, result.Findings[0].Name)
	assert.Nil(t, result.Findings[0].Evidence)
	assert.Equal(t, len(cleanPDF), result.OriginalSize)
	assert.Greater(t, result.RebuiltSize, 0)
	assert.Equal(t, len(result.Rebuilt), result.RebuiltSize)
	assert.GreaterOrEqual(t, result.ElapsedMillis(), int64(0))

	pages := builder.container.pages
	require.Len(t, pages, 3)
	assert.Equal(t, []byte("png-1"), pages[0].image)
	assert.Equal(t, []byte("png-3"), pages[2].image)
	assert.Equal(t, 842.0, pages[2].width)
	assert.Equal(t, 595.0, pages[2].height)
}

func TestProcess_ReportsFindings(t *testing.T) {
	doc := "%PDF-1.7\n1 0 obj\n<< /OpenAction << /S /JavaScript /JS (app.alert(1)) >> >>\nendobj\n"
	p := New(&fakeBuilder{})

	result, err := p.Process(context.Background(), []byte(doc), threePages()[:1])
	require.NoError(t, err)

	require.Len(t, result.Findings, 2)
	assert.Equal(t, detection.NameJavaScript, result.Findings[0].Name)
	assert.Equal(t, detection.NameJS, result.Findings[1].Name)
	assert.NotEmpty(t, result.Findings[0].EvidenceText())
}

func TestProcess_SaveOptions(t *testing.T) {
	tests := []struct {
		level int
		want  SaveOptions
	}{
		{level: 0, want: SaveOptions{}},
		{level: 1, want: SaveOptions{Compress: true}},
		{level: 2, want: SaveOptions{Compress: true, UseObjectStreams: true}},
		{level: 3, want: SaveOptions{Compress: true, UseObjectStreams: true}},
	}

	for _, tt := range tests {
		builder := &fakeBuilder{}
		opts := DefaultOptions()
		opts.CompressionLevel = tt.level

		_, err := New(builder, WithOptions(opts)).Process(context.Background(), []byte(cleanPDF), threePages())
		require.NoError(t, err)
		assert.Equal(t, tt.want, builder.container.saved, "level %d", tt.level)
	}
}

func TestProcess_MissingImageIsLogged(t *testing.T) {
	var logs bytes.Buffer
	builder := &fakeBuilder{}
	pages := threePages()
	pages[1].Image = nil

	p := New(builder, WithLogger(log.New(&logs, "", 0)))
	result, err := p.Process(context.Background(), []byte(cleanPDF), pages)
	require.NoError(t, err)

	require.Len(t, builder.container.pages, 3)
	assert.Nil(t, builder.container.pages[1].image)
	assert.Contains(t, logs.String(), "page 2 has no image data")
	assert.Greater(t, result.RebuiltSize, 0)
}

func TestProcess_CollaboratorErrors(t *testing.T) {
	cause := stderrors.New("backend down")

	tests := []struct {
		name     string
		builder  *fakeBuilder
		wantPage int
	}{
		{name: "create", builder: &fakeBuilder{err: cause}},
		{name: "add page", builder: &fakeBuilder{container: &fakeContainer{addErr: cause}}, wantPage: 1},
		{name: "embed", builder: &fakeBuilder{container: &fakeContainer{embedErr: cause}}, wantPage: 1},
		{name: "save", builder: &fakeBuilder{container: &fakeContainer{saveErr: cause}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.builder).Process(context.Background(), []byte(cleanPDF), threePages())
			require.Error(t, err)
			assert.True(t, errors.IsStage(err, errors.StageSerialization))
			assert.ErrorIs(t, err, cause)

			var pe *errors.ProcessingError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantPage, pe.PageNumber)
		})
	}
}

func TestProcess_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.CompressionLevel = 7

	_, err := New(&fakeBuilder{}, WithOptions(opts)).Process(context.Background(), []byte(cleanPDF), nil)
	require.Error(t, err)
	assert.True(t, errors.IsStage(err, errors.StageValidation))
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	original := []byte(cleanPDF)
	snapshot := append([]byte(nil), original...)

	_, err := New(&fakeBuilder{}).Process(context.Background(), original, threePages())
	require.NoError(t, err)
	assert.Equal(t, snapshot, original)
}

func TestProcess_Elapsed(t *testing.T) {
	p := New(&fakeBuilder{})
	base := time.Unix(1000, 0)
	calls := 0
	p.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}

	result, err := p.Process(context.Background(), []byte(cleanPDF), threePages())
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.ElapsedMillis())
}

func TestRun(t *testing.T) {
	renderer := &fakeRenderer{pages: threePages()}
	original := []byte(cleanPDF)

	result, err := New(&fakeBuilder{}).Run(context.Background(), original, renderer)
	require.NoError(t, err)
	assert.Len(t, result.Findings, 1)

	require.Equal(t, original, renderer.got)
	renderer.got[0] = 'X'
	assert.Equal(t, byte('%'), original[0])
}

func TestRun_RendererError(t *testing.T) {
	t.Run("plain error becomes extraction", func(t *testing.T) {
		renderer := &fakeRenderer{err: stderrors.New("not a pdf")}
		_, err := New(&fakeBuilder{}).Run(context.Background(), []byte("junk"), renderer)
		require.Error(t, err)
		assert.True(t, errors.IsStage(err, errors.StageExtraction))
	})

	t.Run("rendering stage is kept", func(t *testing.T) {
		cause := errors.WrapPage(errors.StageRendering, 2, stderrors.New("exit 1"), "render failed")
		renderer := &fakeRenderer{err: cause}
		_, err := New(&fakeBuilder{}).Run(context.Background(), []byte(cleanPDF), renderer)
		require.Error(t, err)
		assert.True(t, errors.IsStage(err, errors.StageRendering))
	})
}

func TestResult_SizeChangePercent(t *testing.T) {
	r := &Result{OriginalSize: 200, RebuiltSize: 150}
	assert.Equal(t, -25.0, r.SizeChangePercent())
	assert.Equal(t, 0.0, (&Result{}).SizeChangePercent())
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.RenderQuality = 100
	assert.NoError(t, opts.Validate())

	opts.CompressionLevel = -1
	assert.Error(t, opts.Validate())
}
