package xraster

import (
	"image"
	"iter"

	"deedles.dev/xiter"
	"deedles.dev/xraster/format"
	"deedles.dev/xraster/geom"
)

// Tile is one piece of a raster loaded by Tiles.
type Tile struct {
	Index    int
	Col, Row int
	Image    *format.Image
}

// Tiles loads src one tile at a time, left to right and then top to
// bottom. Tiles on the right and bottom edges may be smaller than
// size. Iteration stops after the first error.
func Tiles(src RowSource, f format.Descriptor, size image.Point) iter.Seq2[Tile, error] {
	return func(yield func(Tile, error) bool) {
		bounds := geom.FromImage(src.Bounds())
		cols, _ := geom.TileGrid(bounds, geom.Pt(size.X, size.Y))

		for i, r := range xiter.Enumerate(geom.Tiles(bounds, geom.Pt(size.X, size.Y))) {
			img, err := LoadImage(src, geom.Image(r), f)
			if err != nil {
				yield(Tile{Index: i, Col: i % cols, Row: i / cols}, err)
				return
			}

			if !yield(Tile{Index: i, Col: i % cols, Row: i / cols, Image: img}, nil) {
				return
			}
		}
	}
}
