package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	// formats gofpdf cannot embed directly
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	// formats gofpdf embeds as-is
	_ "image/gif"
	_ "image/jpeg"
)

// gofpdf image type per image.DecodeConfig format name
var nativeImageTypes = map[string]string{
	"png":  "PNG",
	"jpeg": "JPG",
	"gif":  "GIF",
}

// normalizeImage returns data in a format gofpdf can embed along with its
// gofpdf image type. Other raster formats, and 16-bit PNGs which gofpdf
// rejects, are transcoded to 8-bit PNG.
func normalizeImage(data []byte) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unrecognized image data: %w", err)
	}

	if imageType, ok := nativeImageTypes[format]; ok && !isDeepColor(cfg.ColorModel) {
		return data, imageType, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", fmt.Errorf("failed to transcode %s image: %w", format, err)
	}
	return buf.Bytes(), "PNG", nil
}

func isDeepColor(m color.Model) bool {
	switch m {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model:
		return true
	}
	return false
}
