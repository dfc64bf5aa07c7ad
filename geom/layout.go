package geom

import "iter"

// Tiles returns an iterator that covers r with tiles of the given size
// in row-major order starting from the top-left. Tiles along the right
// and bottom edges are clipped to r, so they may be smaller than size.
// In other words,
//
//	geom.Tiles(geom.Rt(0, 0, 5, 3), geom.Pt(2, 2))
//
// yields
//
//	-------------
//	|  0 | 1 |2|
//	-------------
//	|  3 | 4 |5|
//	-------------
func Tiles[T Integer](r Rect[T], size Point[T]) iter.Seq[Rect[T]] {
	return func(yield func(Rect[T]) bool) {
		if size.X <= 0 || size.Y <= 0 {
			return
		}

		for y := r.Min.Y; y < r.Max.Y; y += size.Y {
			for x := r.Min.X; x < r.Max.X; x += size.X {
				t := Rect[T]{Min: Pt(x, y)}.Resize(size).Intersect(r)
				if !yield(t) {
					return
				}
			}
		}
	}
}

// TileGrid returns the number of columns and rows that Tiles produces
// for the same arguments.
func TileGrid[T Integer](r Rect[T], size Point[T]) (cols, rows int) {
	if size.X <= 0 || size.Y <= 0 || r.Empty() {
		return 0, 0
	}
	cols = int((r.Dx() + size.X - 1) / size.X)
	rows = int((r.Dy() + size.Y - 1) / size.Y)
	return cols, rows
}
