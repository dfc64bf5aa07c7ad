package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"deedles.dev/xraster"
	"deedles.dev/xraster/display"
	"deedles.dev/xraster/export"
	"deedles.dev/xraster/format"
	"deedles.dev/xraster/geom"
	"deedles.dev/xraster/raster"
	"deedles.dev/xraster/tilestore"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// descriptor returns the pixel layout to pack into. The display
// connection is only needed long enough to read its visual.
func descriptor(c *cli.Context, logger *log.Logger) (format.Descriptor, error) {
	if c.Bool("standard") {
		logger.Printf("using standard layout %v", format.ARGB8888)
		return format.ARGB8888, nil
	}

	desc, conn, err := display.Describe(c.String("display"))
	if err != nil {
		return format.Descriptor{}, fmt.Errorf("%w (use --standard to skip the display)", err)
	}
	conn.Close()

	logger.Printf("display layout %v", desc)
	return desc, nil
}

func parseRegion(s string, bounds image.Rectangle) (image.Rectangle, error) {
	if s == "" {
		return bounds, nil
	}

	var x, y, w, h int
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
		return image.Rectangle{}, fmt.Errorf("parse region %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q is empty", s)
	}
	return image.Rect(x, y, x+w, y+h), nil
}

func openSource(c *cli.Context) (*raster.Source, error) {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
	return raster.Open(c.Args().First())
}

func info(c *cli.Context) error {
	src, err := openSource(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer src.Close()

	w := c.App.Writer
	fmt.Fprintf(w, "File:   %v\n", src.Name())
	fmt.Fprintf(w, "Size:   %vx%v\n", src.Width(), src.Height())
	fmt.Fprintf(w, "Bands:  %v\n", src.BandCount())
	for i := 0; i < src.BandCount(); i++ {
		fmt.Fprintf(w, "  %v: %v\n", i, src.Band(i).ColorInterp())
	}
	fmt.Fprintf(w, "Roles:  %v\n", src.Roles())

	t := src.GeoTransform()
	fmt.Fprintf(w, "Origin: %v\n", t.Origin())
	fmt.Fprintf(w, "Pixel:  %v\n", t.PixelSize())
	if src.Georeferenced() {
		b := t.Bounds(geom.Pt(src.Width(), src.Height()))
		fmt.Fprintf(w, "Extent: %v - %v\n", b.Min, b.Max)
	}

	if at := c.String("at"); at != "" {
		p, err := locate(t, at)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintf(w, "Pixel at %v: %v\n", at, p)
	}
	return nil
}

// locate maps the georeferenced coordinate in s into pixel space.
func locate(t geom.Transform, s string) (image.Point, error) {
	var gx, gy float64
	if _, err := fmt.Sscanf(s, "%g,%g", &gx, &gy); err != nil {
		return image.Point{}, fmt.Errorf("parse coordinate %q: %w", s, err)
	}

	inv, ok := t.Invert()
	if !ok {
		return image.Point{}, errors.New("transform is not invertible")
	}
	p := inv.Apply(geom.Pt(gx, gy))
	return image.Pt(int(math.Floor(p.X)), int(math.Floor(p.Y))), nil
}

func render(c *cli.Context) error {
	logger := newLogger(c)

	src, err := openSource(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer src.Close()

	r, err := parseRegion(c.String("region"), src.Bounds())
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	desc, err := descriptor(c, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	logger.Printf("loading %v from %v", r, src.Name())
	img, err := xraster.LoadImage(src, r, desc)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if err := export.WriteFile(c.String("out"), img); err != nil {
		return cli.NewExitError(err, 1)
	}
	logger.Printf("wrote %v", c.String("out"))
	return nil
}

type tileSink interface {
	put(t xraster.Tile, data []byte) error
	Close() error
}

type dirSink struct {
	dir string
	ext string
}

func (s dirSink) put(t xraster.Tile, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, fmt.Sprintf("%d_%d%v", t.Col, t.Row, s.ext)), data, 0644)
}

func (s dirSink) Close() error { return nil }

type dbSink struct {
	*tilestore.Store
}

func (s dbSink) put(t xraster.Tile, data []byte) error {
	return s.Put(0, t.Col, t.Row, data)
}

func newSink(c *cli.Context, src *raster.Source, kind export.Kind) (tileSink, error) {
	switch {
	case c.String("mbtiles") != "":
		store, err := tilestore.Open(c.String("mbtiles"))
		if err != nil {
			return nil, err
		}
		meta := [][2]string{
			{"name", filepath.Base(src.Name())},
			{"format", string(kind)},
			{"tile_size", fmt.Sprint(c.Int("size"))},
		}
		for _, m := range meta {
			if err := store.SetMetadata(m[0], m[1]); err != nil {
				store.Close()
				return nil, err
			}
		}
		return dbSink{store}, nil

	case c.String("out") != "":
		if err := os.MkdirAll(c.String("out"), 0755); err != nil {
			return nil, err
		}
		return dirSink{dir: c.String("out"), ext: kind.Ext()}, nil

	default:
		return nil, errors.New("one of --out or --mbtiles is required")
	}
}

func tile(c *cli.Context) (err error) {
	logger := newLogger(c)

	size := c.Int("size")
	if size <= 0 {
		return cli.NewExitError(fmt.Errorf("invalid tile size %v", size), 1)
	}

	kind, err := export.KindOf("tile." + c.String("format"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	src, err := openSource(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer src.Close()

	desc, err := descriptor(c, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	sink, err := newSink(c, src, kind)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() {
		if cerr := sink.Close(); err == nil && cerr != nil {
			err = cli.NewExitError(cerr, 1)
		}
	}()

	var buf bytes.Buffer
	for t, err := range xraster.Tiles(src, desc, image.Pt(size, size)) {
		if err != nil {
			return cli.NewExitError(fmt.Errorf("tile %v,%v: %w", t.Col, t.Row, err), 1)
		}

		buf.Reset()
		if err := export.Encode(&buf, t.Image, kind); err != nil {
			return cli.NewExitError(err, 1)
		}
		if err := sink.put(t, buf.Bytes()); err != nil {
			return cli.NewExitError(err, 1)
		}
		logger.Printf("tile %v (%v,%v) %v", t.Index, t.Col, t.Row, t.Image.Bounds())
	}

	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "xraster"
	app.Usage = "Load raster data into a display's native pixel format"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "display",
			EnvVars: []string{"DISPLAY"},
			Usage:   "X11 display to read the pixel layout from",
		},
		&cli.BoolFlag{
			Name:  "standard",
			Usage: "pack as a8r8g8b8 without connecting to a display",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Describe a raster",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "at",
					Usage: "also locate the georeferenced coordinate x,y in pixel space",
				},
			},
			Action: info,
		},
		{
			Name:      "render",
			Usage:     "Pack a region of a raster and write it as an image",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "out",
					Aliases:  []string{"o"},
					Usage:    "output image; the format is chosen by extension",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "region",
					Usage: "region to load as x,y,w,h (default: whole raster)",
				},
			},
			Action: render,
		},
		{
			Name:      "tile",
			Usage:     "Split a raster into packed tiles",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "size",
					Value: 256,
					Usage: "tile width and height",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: "png",
					Usage: "tile image format",
				},
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "directory to write tiles into",
				},
				&cli.StringFlag{
					Name:  "mbtiles",
					Usage: "SQLite tile database to write tiles into",
				},
			},
			Action: tile,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
