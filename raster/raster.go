// Package raster opens multi-band raster datasets and reads them one
// scanline at a time.
//
// Decoding is delegated to drivers. Two are built in: one that
// handles any format registered with the standard image package, and
// one for ENVI raw rasters. Additional drivers can be added with
// Register.
package raster

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"deedles.dev/xraster/geom"
)

var (
	// ErrUnknownFormat is returned by a driver that does not recognize
	// the data it was asked to open. Open moves on to the next driver
	// when it sees it.
	ErrUnknownFormat = errors.New("unknown raster format")

	// ErrBandIndex indicates a band index outside of a source's bands.
	ErrBandIndex = errors.New("band index out of range")

	// ErrOutOfRange indicates a read outside of the raster's bounds.
	ErrOutOfRange = errors.New("read out of range")
)

// OpenError is returned when a named raster cannot be opened.
type OpenError struct {
	Name string
	Err  error
}

func (err *OpenError) Error() string {
	return fmt.Sprintf("open raster %q: %v", err.Name, err.Err)
}

func (err *OpenError) Unwrap() error { return err.Err }

// ColorInterp is a band's declared color interpretation.
type ColorInterp int

const (
	Undefined ColorInterp = iota
	Gray
	Red
	Green
	Blue
	Alpha
)

func (c ColorInterp) String() string {
	switch c {
	case Undefined:
		return "undefined"
	case Gray:
		return "gray"
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Alpha:
		return "alpha"
	default:
		return fmt.Sprintf("ColorInterp(%d)", int(c))
	}
}

// Band is a single plane of a Dataset. Bands belong to their dataset
// and are not closed individually.
type Band interface {
	ColorInterp() ColorInterp

	// ReadRow reads len(dst) samples of row y starting at column x.
	// Bounds have already been checked by the caller.
	ReadRow(dst []float64, x, y int) error
}

// Dataset is a decoded raster as provided by a driver.
type Dataset interface {
	Size() (w, h int)
	Bands() []Band

	// GeoTransform returns the dataset's georeferencing, if it has
	// any.
	GeoTransform() (geom.Transform, bool)

	Close() error
}

// Driver opens datasets of one kind.
type Driver struct {
	Name string

	// Match reports whether the driver should be tried for name.
	Match func(name string) bool

	Open func(name string) (Dataset, error)
}

var (
	driversM sync.RWMutex
	drivers  []Driver
)

func init() {
	Register(enviDriver)
	Register(imageDriver)
}

// Register adds a driver. Drivers are tried in the order in which they
// were registered.
func Register(d Driver) {
	driversM.Lock()
	defer driversM.Unlock()

	drivers = append(drivers, d)
}

func openDataset(name string) (Dataset, error) {
	driversM.RLock()
	defer driversM.RUnlock()

	for _, d := range drivers {
		if !d.Match(name) {
			continue
		}

		ds, err := d.Open(name)
		if err != nil {
			if errors.Is(err, ErrUnknownFormat) {
				continue
			}
			return nil, fmt.Errorf("%v: %w", d.Name, err)
		}
		return ds, nil
	}

	return nil, ErrUnknownFormat
}

// Source is an open raster with its bands' color roles resolved.
type Source struct {
	name      string
	ds        Dataset
	width     int
	height    int
	bands     []Band
	transform geom.Transform
	georef    bool
	roles     Roles
}

// Open opens the named raster using the first driver that accepts it.
// Any failure is returned as an *OpenError.
func Open(name string) (*Source, error) {
	ds, err := openDataset(name)
	if err != nil {
		return nil, &OpenError{Name: name, Err: err}
	}

	src := NewSource(name, ds)
	if src.BandCount() == 0 {
		ds.Close()
		return nil, &OpenError{Name: name, Err: errors.New("no bands")}
	}
	return src, nil
}

// NewSource wraps an already open dataset.
func NewSource(name string, ds Dataset) *Source {
	w, h := ds.Size()
	bands := ds.Bands()

	transform, georef := ds.GeoTransform()
	if !georef {
		transform = geom.Identity
	}

	interps := make([]ColorInterp, 0, len(bands))
	for _, b := range bands {
		interps = append(interps, b.ColorInterp())
	}

	return &Source{
		name:      name,
		ds:        ds,
		width:     w,
		height:    h,
		bands:     bands,
		transform: transform,
		georef:    georef,
		roles:     AssignRoles(interps),
	}
}

func (src *Source) Name() string { return src.name }

func (src *Source) Width() int { return src.width }

func (src *Source) Height() int { return src.height }

func (src *Source) Bounds() image.Rectangle {
	return image.Rect(0, 0, src.width, src.height)
}

func (src *Source) BandCount() int { return len(src.bands) }

func (src *Source) Band(i int) Band { return src.bands[i] }

// GeoTransform returns the source's georeferencing. A source with none
// reports geom.Identity.
func (src *Source) GeoTransform() geom.Transform { return src.transform }

// Georeferenced reports whether the transform came from the dataset.
func (src *Source) Georeferenced() bool { return src.georef }

func (src *Source) Roles() Roles { return src.roles }

// ReadRow reads len(dst) samples from row y of a band starting at
// column x.
func (src *Source) ReadRow(band int, dst []float64, x, y int) error {
	if band < 0 || band >= len(src.bands) {
		return fmt.Errorf("band %v of %v: %w", band, len(src.bands), ErrBandIndex)
	}
	if x < 0 || y < 0 || y >= src.height || x+len(dst) > src.width {
		return fmt.Errorf("row %v, columns [%v, %v): %w", y, x, x+len(dst), ErrOutOfRange)
	}

	err := src.bands[band].ReadRow(dst, x, y)
	if err != nil {
		return fmt.Errorf("read band %v row %v: %w", band, y, err)
	}
	return nil
}

// Close closes the underlying dataset, and with it every band.
func (src *Source) Close() error {
	return src.ds.Close()
}
