package raster

import "deedles.dev/xraster/geom"

// Mem is an in-memory Dataset. It is mostly useful for generated
// rasters and for testing.
type Mem struct {
	w, h      int
	planes    [][]float64
	interps   []ColorInterp
	transform *geom.Transform
}

// NewMem allocates a zeroed dataset with one band per interpretation.
func NewMem(w, h int, interps ...ColorInterp) *Mem {
	planes := make([][]float64, len(interps))
	for i := range planes {
		planes[i] = make([]float64, w*h)
	}

	return &Mem{
		w:       w,
		h:       h,
		planes:  planes,
		interps: interps,
	}
}

// Plane returns the samples of a band in row-major order.
func (m *Mem) Plane(band int) []float64 { return m.planes[band] }

func (m *Mem) Set(band, x, y int, v float64) {
	m.planes[band][y*m.w+x] = v
}

// Fill sets every sample of a band using f.
func (m *Mem) Fill(band int, f func(x, y int) float64) {
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			m.planes[band][y*m.w+x] = f(x, y)
		}
	}
}

// SetGeoTransform georeferences the dataset.
func (m *Mem) SetGeoTransform(t geom.Transform) {
	m.transform = &t
}

func (m *Mem) Size() (w, h int) { return m.w, m.h }

func (m *Mem) Bands() []Band {
	bands := make([]Band, len(m.planes))
	for i := range bands {
		bands[i] = memBand{m: m, band: i}
	}
	return bands
}

func (m *Mem) GeoTransform() (geom.Transform, bool) {
	if m.transform == nil {
		return geom.Transform{}, false
	}
	return *m.transform, true
}

func (m *Mem) Close() error { return nil }

type memBand struct {
	m    *Mem
	band int
}

func (b memBand) ColorInterp() ColorInterp { return b.m.interps[b.band] }

func (b memBand) ReadRow(dst []float64, x, y int) error {
	i := y*b.m.w + x
	copy(dst, b.m.planes[b.band][i:i+len(dst)])
	return nil
}
