package xraster

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrOutOfBounds indicates a viewport that does not lie entirely
	// within its source.
	ErrOutOfBounds = errors.New("viewport outside of raster bounds")

	// ErrBandMismatch indicates a viewport with fewer scratch rows than
	// the source has bands.
	ErrBandMismatch = errors.New("viewport band count does not match source")
)

// AllocationError is returned when the buffers for a viewport cannot be
// allocated.
type AllocationError struct {
	Rect  image.Rectangle
	Bands int
	Err   error
}

func (err *AllocationError) Error() string {
	return fmt.Sprintf("allocate viewport %v with %v bands: %v", err.Rect, err.Bands, err.Err)
}

func (err *AllocationError) Unwrap() error { return err.Err }

// UnsupportedBandCountError is returned when loading a raster whose
// band count has no packing rule.
type UnsupportedBandCountError struct {
	Count int
}

func (err *UnsupportedBandCountError) Error() string {
	return fmt.Sprintf("unsupported band count: %v", err.Count)
}
