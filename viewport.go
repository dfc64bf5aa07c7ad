package xraster

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"sync/atomic"

	"deedles.dev/xraster/format"
)

// MaxViewportBytes limits the combined size of a viewport's buffers.
var MaxViewportBytes int64 = 1 << 32

var liveBytes atomic.Int64

// LiveBytes returns the number of bytes held by viewports that have
// not been released or detached.
func LiveBytes() int64 {
	return liveBytes.Load()
}

// Viewport is the packed output for a rectangular region of a raster,
// along with one scratch row per band for loading it.
//
// Pixels are written sequentially with Put, starting at the top-left
// of the region. Writing more than Rect.Dx()*Rect.Dy() pixels panics.
type Viewport struct {
	Rect   image.Rectangle
	Format format.Descriptor

	pix    []byte
	rows   [][]float64
	size   int64
	cursor int
}

// NewViewport allocates a viewport over r of a raster with the given
// number of bands.
func NewViewport(r image.Rectangle, f format.Descriptor, bands int) (*Viewport, error) {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 || bands < 1 {
		return nil, &AllocationError{Rect: r, Bands: bands, Err: errors.New("empty viewport")}
	}

	size, ok := viewportSize(w, h, bands)
	if !ok || size > MaxViewportBytes {
		return nil, &AllocationError{Rect: r, Bands: bands, Err: errors.New("viewport too large")}
	}

	rows := make([][]float64, bands)
	for i := range rows {
		rows[i] = make([]float64, w)
	}

	liveBytes.Add(size)
	return &Viewport{
		Rect:   r,
		Format: f,
		pix:    make([]byte, w*h*4),
		rows:   rows,
		size:   size,
	}, nil
}

// viewportSize returns the number of bytes needed by a viewport,
// reporting false on overflow.
func viewportSize(w, h, bands int) (int64, bool) {
	pixels := int64(w) * int64(h)
	if pixels/int64(h) != int64(w) || pixels > math.MaxInt64/4 {
		return 0, false
	}

	rows := int64(w) * int64(bands)
	if rows/int64(bands) != int64(w) || rows > math.MaxInt64/8 {
		return 0, false
	}

	size := pixels*4 + rows*8
	if size < 0 {
		return 0, false
	}
	return size, true
}

// Bands returns the number of scratch rows.
func (vp *Viewport) Bands() int { return len(vp.rows) }

// Row returns the scratch row for a band.
func (vp *Viewport) Row(band int) []float64 { return vp.rows[band] }

// Put writes px at the cursor and advances it.
func (vp *Viewport) Put(px uint32) {
	i := vp.cursor * 4
	binary.LittleEndian.PutUint32(vp.pix[i:i+4:i+4], px)
	vp.cursor++
}

// Written returns the number of pixels written so far.
func (vp *Viewport) Written() int { return vp.cursor }

// Full reports whether every pixel of the viewport has been written.
func (vp *Viewport) Full() bool {
	return vp.cursor == vp.Rect.Dx()*vp.Rect.Dy()
}

// Pix returns the packed buffer. Its contents are only complete once
// Full returns true.
func (vp *Viewport) Pix() []byte { return vp.pix }

// Pixel returns the packed pixel at (x, y) in raster coordinates.
func (vp *Viewport) Pixel(x, y int) uint32 {
	i := ((y-vp.Rect.Min.Y)*vp.Rect.Dx() + (x - vp.Rect.Min.X)) * 4
	return binary.LittleEndian.Uint32(vp.pix[i : i+4 : i+4])
}

// Detach hands the packed buffer over to the caller as an image and
// releases the viewport.
func (vp *Viewport) Detach() *format.Image {
	img := format.Image{
		Format: vp.Format,
		Rect:   vp.Rect,
		Pix:    vp.pix,
	}
	vp.Release()
	return &img
}

// Release drops the viewport's buffers. It is safe to call more than
// once.
func (vp *Viewport) Release() {
	if vp.pix == nil && vp.rows == nil {
		return
	}

	liveBytes.Add(-vp.size)
	vp.pix = nil
	vp.rows = nil
}
