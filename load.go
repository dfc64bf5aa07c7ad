// Package xraster packs the bands of raster images into 32-bit pixels
// laid out the way that a display expects them.
//
// A typical load looks like
//
//	desc, conn, err := display.Describe("")
//	...
//	src, err := raster.Open("scene.tif")
//	...
//	img, err := xraster.LoadImage(src, src.Bounds(), desc)
package xraster

import (
	"fmt"
	"image"
	"math"

	"deedles.dev/xraster/format"
	"deedles.dev/xraster/raster"
)

// RowSource is a raster that can be read one scanline at a time.
// *raster.Source implements it.
type RowSource interface {
	BandCount() int
	Bounds() image.Rectangle
	Roles() raster.Roles
	ReadRow(band int, dst []float64, x, y int) error
}

// opaque is the alpha value of rasters without an alpha band.
const opaque = 0xFF

// bandRule selects the scratch rows that feed each channel for one
// band count. A nil alpha row is packed as opaque.
type bandRule struct {
	name     string
	channels func(vp *Viewport, roles raster.Roles) (r, g, b, a []float64)
}

var bandRules = map[int]bandRule{
	1: {
		name: "mono",
		channels: func(vp *Viewport, roles raster.Roles) (r, g, b, a []float64) {
			row := vp.rows[roleOr(roles.Red, 0)]
			return row, row, row, nil
		},
	},
	3: {
		name: "rgb",
		channels: func(vp *Viewport, roles raster.Roles) (r, g, b, a []float64) {
			return vp.rows[roleOr(roles.Red, 0)],
				vp.rows[roleOr(roles.Green, 1)],
				vp.rows[roleOr(roles.Blue, 2)],
				nil
		},
	},
	4: {
		name: "rgba",
		channels: func(vp *Viewport, roles raster.Roles) (r, g, b, a []float64) {
			return vp.rows[roleOr(roles.Red, 0)],
				vp.rows[roleOr(roles.Green, 1)],
				vp.rows[roleOr(roles.Blue, 2)],
				vp.rows[roleOr(roles.Alpha, 3)]
		},
	},
}

// roleOr falls back to a band's position for a role that no band
// claimed.
func roleOr(band, pos int) int {
	if band == raster.NoBand {
		return pos
	}
	return band
}

func ruleFor(bands int) (bandRule, error) {
	rule, ok := bandRules[bands]
	if !ok {
		return bandRule{}, &UnsupportedBandCountError{Count: bands}
	}
	return rule, nil
}

// Load reads the region of src covered by vp and packs it into vp's
// buffer in row-major order. Sources with anything other than 1, 3 or
// 4 bands are rejected before anything is read or written.
func Load(src RowSource, vp *Viewport) error {
	bands := src.BandCount()
	rule, err := ruleFor(bands)
	if err != nil {
		return err
	}
	if vp.Bands() < bands {
		return fmt.Errorf("%w: %v rows for %v bands", ErrBandMismatch, vp.Bands(), bands)
	}
	if !vp.Rect.In(src.Bounds()) {
		return fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, vp.Rect, src.Bounds())
	}

	roles := src.Roles()
	for y := vp.Rect.Min.Y; y < vp.Rect.Max.Y; y++ {
		for band := 0; band < bands; band++ {
			err := src.ReadRow(band, vp.rows[band], vp.Rect.Min.X, y)
			if err != nil {
				return fmt.Errorf("load %v row %v: %w", rule.name, y, err)
			}
		}

		vp.packRow(rule.channels(vp, roles))
	}

	return nil
}

func (vp *Viewport) packRow(r, g, b, a []float64) {
	for i := range r {
		alpha := int32(opaque)
		if a != nil {
			alpha = sample(a[i])
		}
		vp.Put(vp.Format.Pack(sample(r[i]), sample(g[i]), sample(b[i]), alpha))
	}
}

// sample truncates a raw sample to an integer. Values outside of the
// range of int32 wrap. NaN, infinities and anything else outside of the
// range of int64 are 0.
func sample(v float64) int32 {
	if math.IsNaN(v) || v >= 1<<63 || v < -(1<<63) {
		return 0
	}
	return int32(int64(v))
}

// LoadImage loads the region r of src into a new image packed
// according to f. The viewport's buffers are released on failure.
func LoadImage(src RowSource, r image.Rectangle, f format.Descriptor) (*format.Image, error) {
	bands := src.BandCount()
	if _, err := ruleFor(bands); err != nil {
		return nil, err
	}

	vp, err := NewViewport(r, f, bands)
	if err != nil {
		return nil, err
	}
	defer vp.Release()

	if err := Load(src, vp); err != nil {
		return nil, err
	}
	return vp.Detach(), nil
}
