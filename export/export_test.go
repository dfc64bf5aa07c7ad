package export_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"deedles.dev/xraster/export"
	"deedles.dev/xraster/format"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func testImage() *format.Image {
	img := format.NewImage(format.ARGB8888, image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 100), B: 0x80, A: 0xFF})
		}
	}
	return img
}

func TestKindOf(t *testing.T) {
	kind, err := export.KindOf("out/scene.TIF")
	require.NoError(t, err)
	require.Equal(t, export.TIFF, kind)

	_, err = export.KindOf("scene.xyz")
	require.ErrorIs(t, err, export.ErrUnknownKind)

	require.Equal(t, ".jpg", export.JPEG.Ext())
	require.Equal(t, ".webp", export.WebP.Ext())
}

func TestEncodeLossless(t *testing.T) {
	src := testImage()
	for _, kind := range []export.Kind{export.PNG, export.BMP, export.TIFF} {
		t.Run(string(kind), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, export.Encode(&buf, src, kind))

			img, name, err := image.Decode(&buf)
			require.NoError(t, err)
			require.Equal(t, string(kind), name)
			require.Equal(t, src.Bounds(), img.Bounds())

			for y := 0; y < 3; y++ {
				for x := 0; x < 4; x++ {
					r1, g1, b1, a1 := src.At(x, y).RGBA()
					r2, g2, b2, a2 := img.At(x, y).RGBA()
					require.Equal(t, []uint32{r1, g1, b1, a1}, []uint32{r2, g2, b2, a2}, "(%v,%v)", x, y)
				}
			}
		})
	}
}

func TestEncodeLossy(t *testing.T) {
	src := testImage()
	for _, kind := range []export.Kind{export.JPEG, export.GIF, export.WebP} {
		t.Run(string(kind), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, export.Encode(&buf, src, kind))

			img, _, err := image.Decode(&buf)
			require.NoError(t, err)
			require.Equal(t, src.Bounds(), img.Bounds())
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, export.WriteFile(path, testImage()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	err = export.WriteFile(filepath.Join(t.TempDir(), "out.nope"), testImage())
	require.ErrorIs(t, err, export.ErrUnknownKind)
}

func TestEncodePNGAlpha(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Encode(&buf, testImage(), export.PNG))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.IsType(t, &image.RGBA{}, img)

	translucent := testImage()
	translucent.Set(1, 1, color.NRGBA{R: 0xFF, A: 0x80})
	buf.Reset()
	require.NoError(t, export.Encode(&buf, translucent, export.PNG))
	img, err = png.Decode(&buf)
	require.NoError(t, err)
	require.IsType(t, &image.NRGBA{}, img)
}
