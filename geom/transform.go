package geom

// Transform is an affine mapping from pixel coordinates to
// georeferenced coordinates, in the order
//
//	origin x, pixel width, row rotation, origin y, column rotation, pixel height
//
// A georeferenced coordinate is computed as
//
//	gx = t[0] + px*t[1] + py*t[2]
//	gy = t[3] + px*t[4] + py*t[5]
//
// Pixel coordinates refer to the top-left corner of a pixel.
type Transform [6]float64

// Identity maps pixel coordinates directly onto georeferenced ones. It
// is the transform of a raster with no georeferencing.
var Identity = Transform{0, 1, 0, 0, 0, 1}

func (t Transform) Origin() Point[float64] {
	return Pt(t[0], t[3])
}

// PixelSize returns the width and height of a single pixel. The height
// is usually negative for north-up images.
func (t Transform) PixelSize() Point[float64] {
	return Pt(t[1], t[5])
}

// Apply maps a pixel coordinate into georeferenced space.
func (t Transform) Apply(p Point[float64]) Point[float64] {
	return Pt(
		t[0]+p.X*t[1]+p.Y*t[2],
		t[3]+p.X*t[4]+p.Y*t[5],
	)
}

// Invert returns the transform that maps georeferenced coordinates
// back into pixel space. It returns false if t is degenerate.
func (t Transform) Invert() (Transform, bool) {
	det := t[1]*t[5] - t[2]*t[4]
	if det == 0 {
		return Transform{}, false
	}

	a, b := t[5]/det, -t[2]/det
	d, e := -t[4]/det, t[1]/det
	return Transform{
		-t[0]*a - t[3]*b, a, b,
		-t[0]*d - t[3]*e, d, e,
	}, true
}

// Bounds returns the georeferenced bounding box of a raster of the
// given pixel size.
func (t Transform) Bounds(size Point[int]) Rect[float64] {
	w, h := float64(size.X), float64(size.Y)
	corners := [...]Point[float64]{
		t.Apply(Pt(0.0, 0.0)),
		t.Apply(Pt(w, 0)),
		t.Apply(Pt(0, h)),
		t.Apply(Pt(w, h)),
	}

	r := Rect[float64]{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		r.Min.X, r.Min.Y = min(r.Min.X, c.X), min(r.Min.Y, c.Y)
		r.Max.X, r.Max.Y = max(r.Max.X, c.X), max(r.Max.Y, c.Y)
	}
	return r
}
