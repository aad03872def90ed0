package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
)

// US Letter, used when a page carries no usable page box
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0

	// guards against cyclic /Parent chains
	maxParentDepth = 32
)

// PageSize is a page's displayed extent in PDF points
type PageSize struct {
	Width  float64
	Height float64
}

// PageSizes returns the displayed size of every page in document order: the
// CropBox, or the MediaBox when there is none, turned by the page /Rotate.
// Both boxes and /Rotate follow /Parent inheritance.
func PageSizes(data []byte) (sizes []PageSize, err error) {
	defer func() {
		if r := recover(); r != nil {
			sizes = nil
			err = fmt.Errorf("malformed page tree: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	sizes = make([]PageSize, 0, total)
	for i := 1; i <= total; i++ {
		sizes = append(sizes, pageSize(reader.Page(i)))
	}
	return sizes, nil
}

func pageSize(page pdf.Page) PageSize {
	size, ok := parseBox(inherited(page.V, "CropBox"))
	if !ok {
		size, ok = parseBox(inherited(page.V, "MediaBox"))
	}
	if !ok {
		size = PageSize{Width: defaultPageWidth, Height: defaultPageHeight}
	}

	if rotate := inherited(page.V, "Rotate"); rotate.Kind() == pdf.Integer {
		if quarter := ((rotate.Int64()%360)+360)%360; quarter == 90 || quarter == 270 {
			size.Width, size.Height = size.Height, size.Width
		}
	}
	return size
}

// inherited looks key up on node and then on its /Parent chain
func inherited(node pdf.Value, key string) pdf.Value {
	for depth := 0; depth < maxParentDepth && !node.IsNull(); depth++ {
		if v := node.Key(key); !v.IsNull() {
			return v
		}
		node = node.Key("Parent")
	}
	return pdf.Value{}
}

func parseBox(box pdf.Value) (PageSize, bool) {
	if box.IsNull() || box.Kind() != pdf.Array || box.Len() != 4 {
		return PageSize{}, false
	}

	var coords [4]float64
	for i := 0; i < 4; i++ {
		val := box.Index(i)
		switch val.Kind() {
		case pdf.Integer:
			coords[i] = float64(val.Int64())
		case pdf.Real:
			coords[i] = val.Float64()
		default:
			return PageSize{}, false
		}
	}

	size := PageSize{
		Width:  math.Abs(coords[2] - coords[0]),
		Height: math.Abs(coords[3] - coords[1]),
	}
	if size.Width == 0 || size.Height == 0 {
		return PageSize{}, false
	}
	return size, true
}
