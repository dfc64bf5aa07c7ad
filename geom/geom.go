// Package geom provides the rectangle and affine transform types used
// to place raster regions in both pixel and georeferenced space.
//
// It is patterned heavily after image.Rectangle and image.Point, but
// works with any numeric type.
package geom

import (
	"fmt"
	"image"
)

// Scalar is a constraint for the types that geom types and functions
// can handle.
type Scalar interface {
	~float32 | ~float64 | Integer
}

// Integer is a constraint for any integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type Point[T Scalar] struct {
	X, Y T
}

func Pt[T Scalar](x, y T) Point[T] {
	return Point[T]{X: x, Y: y}
}

func (p Point[T]) String() string {
	return fmt.Sprintf("(%v,%v)", p.X, p.Y)
}

func (p Point[T]) Add(q Point[T]) Point[T] {
	return Point[T]{X: p.X + q.X, Y: p.Y + q.Y}
}

// In reports whether p is inside of r. Like image.Point, the maximum
// edges of r are exclusive.
func (p Point[T]) In(r Rect[T]) bool {
	return r.Min.X <= p.X && p.X < r.Max.X && r.Min.Y <= p.Y && p.Y < r.Max.Y
}

// Rect is a rectangle with an inclusive Min and an exclusive Max.
type Rect[T Scalar] struct {
	Min, Max Point[T]
}

// Rt returns the canonical rectangle with the given corners.
func Rt[T Scalar](x0, y0, x1, y1 T) Rect[T] {
	return Rect[T]{Min: Pt(x0, y0), Max: Pt(x1, y1)}.Canon()
}

// FromImage converts an image.Rectangle into a Rect.
func FromImage(r image.Rectangle) Rect[int] {
	return Rt(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Image converts r into an image.Rectangle.
func Image[T Integer](r Rect[T]) image.Rectangle {
	return image.Rect(int(r.Min.X), int(r.Min.Y), int(r.Max.X), int(r.Max.Y))
}

func (r Rect[T]) String() string {
	return fmt.Sprintf("%v-%v", r.Min, r.Max)
}

func (r Rect[T]) Dx() T { return r.Max.X - r.Min.X }

func (r Rect[T]) Dy() T { return r.Max.Y - r.Min.Y }

func (r Rect[T]) Size() Point[T] { return Pt(r.Dx(), r.Dy()) }

func (r Rect[T]) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// Canon returns a copy of r with Min and Max swapped as necessary so
// that Min is the top-left corner.
func (r Rect[T]) Canon() Rect[T] {
	if r.Max.X < r.Min.X {
		r.Min.X, r.Max.X = r.Max.X, r.Min.X
	}
	if r.Max.Y < r.Min.Y {
		r.Min.Y, r.Max.Y = r.Max.Y, r.Min.Y
	}
	return r
}

func (r Rect[T]) Add(p Point[T]) Rect[T] {
	return Rect[T]{Min: r.Min.Add(p), Max: r.Max.Add(p)}
}

// Resize returns a rectangle with the same Min as r and the given
// size.
func (r Rect[T]) Resize(size Point[T]) Rect[T] {
	return Rect[T]{Min: r.Min, Max: r.Min.Add(size)}
}

// Intersect returns the largest rectangle contained by both r and s.
// If they do not overlap, the zero Rect is returned.
func (r Rect[T]) Intersect(s Rect[T]) Rect[T] {
	r.Min.X = max(r.Min.X, s.Min.X)
	r.Min.Y = max(r.Min.Y, s.Min.Y)
	r.Max.X = min(r.Max.X, s.Max.X)
	r.Max.Y = min(r.Max.Y, s.Max.Y)
	if r.Empty() {
		return Rect[T]{}
	}
	return r
}

// Contains reports whether s lies entirely within r.
func (r Rect[T]) Contains(s Rect[T]) bool {
	if s.Empty() {
		return true
	}
	return r.Min.X <= s.Min.X && s.Max.X <= r.Max.X &&
		r.Min.Y <= s.Min.Y && s.Max.Y <= r.Max.Y
}
