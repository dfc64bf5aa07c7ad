package format

import (
	"image"
	"image/color"
	"image/draw"
)

// Model implements color.Model using a Format.
type Model struct {
	Format Format
}

func (m Model) Convert(c color.Color) color.Color {
	if fc, ok := c.(*Color); ok && fc.Format == m.Format {
		return fc
	}

	fc := Color{Format: m.Format}
	r, g, b, a := c.RGBA()
	m.Format.Write(fc.Slice(), r, g, b, a)
	return &fc
}

// Color implements color.Color using a Format.
type Color struct {
	Format Format

	// Data contains the raw pixel. Only the first Format.Size() bytes
	// are used.
	Data [8]byte
}

// Slice returns a slice of Data correctly sized for the color's format.
func (c *Color) Slice() []byte {
	size := c.Format.Size()
	return c.Data[:size:size]
}

func (c *Color) RGBA() (r, g, b, a uint32) {
	return c.Format.Read(c.Slice())
}

// Image is an image stored in a packed pixel format. The pixel at
// (x, y) starts at Pix[PixOffset(x, y)] and rows are stored top to
// bottom without padding.
type Image struct {
	Format Format
	Rect   image.Rectangle
	Pix    []byte
}

// NewImage allocates a zeroed Image.
func NewImage(f Format, r image.Rectangle) *Image {
	return &Image{
		Format: f,
		Rect:   r,
		Pix:    make([]byte, f.Size()*r.Dx()*r.Dy()),
	}
}

func (img *Image) Bounds() image.Rectangle { return img.Rect }

func (img *Image) ColorModel() color.Model { return Model{Format: img.Format} }

func (img *Image) At(x, y int) color.Color {
	c := Color{Format: img.Format}
	if !(image.Point{x, y}.In(img.Rect)) {
		return &c
	}

	copy(c.Slice(), img.pixel(x, y))
	return &c
}

// Stride returns the number of bytes between vertically adjacent
// pixels.
func (img *Image) Stride() int {
	return img.Format.Size() * img.Rect.Dx()
}

// PixOffset returns the index of the first byte of the pixel at
// (x, y).
func (img *Image) PixOffset(x, y int) int {
	size := img.Format.Size()
	return (y-img.Rect.Min.Y)*size*img.Rect.Dx() + (x-img.Rect.Min.X)*size
}

func (img *Image) pixel(x, y int) []byte {
	size := img.Format.Size()
	i := img.PixOffset(x, y)
	return img.Pix[i : i+size : i+size]
}

func (img *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(img.Rect)) {
		return
	}

	c1 := img.ColorModel().Convert(c).(*Color)
	copy(img.pixel(x, y), c1.Slice())
}

// Opaque reports whether every pixel in the image is fully opaque.
func (img *Image) Opaque() bool {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			_, _, _, a := img.Format.Read(img.pixel(x, y))
			if a != 0xFFFF {
				return false
			}
		}
	}
	return true
}

// RGBA converts the image into an *image.RGBA, which most encoders
// have a fast path for.
func (img *Image) RGBA() *image.RGBA {
	dst := image.NewRGBA(img.Rect)
	draw.Draw(dst, img.Rect, img, img.Rect.Min, draw.Src)
	return dst
}
