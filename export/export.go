// Package export encodes packed images into common file formats.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnknownKind is returned for an unrecognized output format.
var ErrUnknownKind = errors.New("unknown output format")

// Kind is an output format.
type Kind string

const (
	PNG  Kind = "png"
	JPEG Kind = "jpeg"
	GIF  Kind = "gif"
	BMP  Kind = "bmp"
	TIFF Kind = "tiff"
	WebP Kind = "webp"
)

var extensions = map[string]Kind{
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".gif":  GIF,
	".bmp":  BMP,
	".tif":  TIFF,
	".tiff": TIFF,
	".webp": WebP,
}

// KindOf returns the Kind for a file name based on its extension.
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	kind, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, ext)
	}
	return kind, nil
}

// Ext returns the preferred file extension for k.
func (k Kind) Ext() string {
	if k == JPEG {
		return ".jpg"
	}
	return "." + string(k)
}

// Encode writes img to w.
func Encode(w io.Writer, img image.Image, kind Kind) error {
	switch kind {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		return gif.Encode(w, paletted(img), nil)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case WebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// paletted reduces img to at most 256 colors.
func paletted(img image.Image) *image.Paletted {
	if pm, ok := img.(*image.Paletted); ok {
		return pm
	}

	b := img.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, 256), img))
	draw.Draw(pm, b, img, b.Min, draw.Src)
	return pm
}

// WriteFile encodes img into a new file at path, picking the format
// from its extension.
func WriteFile(path string, img image.Image) (err error) {
	kind, err := KindOf(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	err = Encode(file, img, kind)
	if err != nil {
		return fmt.Errorf("encode %v: %w", kind, err)
	}
	return nil
}
