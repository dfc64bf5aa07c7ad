package raster

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"deedles.dev/xraster/geom"
)

var imageDriver = Driver{
	Name:  "image",
	Match: func(string) bool { return true },
	Open:  openImage,
}

func openImage(name string) (Dataset, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, kind, err := decodeImage(name, file)
	if err != nil {
		if err == ErrUnknownFormat {
			return nil, err
		}
		return nil, fmt.Errorf("decode %v: %w", kind, err)
	}

	transform, georef, err := findWorldFile(name)
	if err != nil {
		return nil, fmt.Errorf("world file: %w", err)
	}

	ds := NewImageDataset(img)
	ds.transform, ds.georef = transform, georef
	return ds, nil
}

// ImageDataset exposes a decoded image.Image as a Dataset. Grey images
// have a single band, images with no alpha channel have red, green and
// blue bands, and everything else also has an alpha band. Samples of
// images with 16-bit color models are 16-bit values.
type ImageDataset struct {
	img       image.Image
	model     color.Model
	bands     []Band
	transform geom.Transform
	georef    bool
}

// NewImageDataset wraps img. The result is not georeferenced.
//
// Samples of 16-bit images range up to 0xFFFF. Packed into an 8-bit
// channel they wrap, keeping only the low byte, so such images should
// be rescaled before loading if they are meant to be viewed.
func NewImageDataset(img image.Image) *ImageDataset {
	ds := ImageDataset{img: img}

	var interps []ColorInterp
	switch m := img.ColorModel(); m {
	case color.GrayModel, color.Gray16Model:
		ds.model = m
		interps = []ColorInterp{Gray}
	case color.YCbCrModel, color.CMYKModel:
		ds.model = color.NRGBAModel
		interps = []ColorInterp{Red, Green, Blue}
	case color.RGBA64Model, color.NRGBA64Model:
		ds.model = color.NRGBA64Model
		interps = []ColorInterp{Red, Green, Blue, Alpha}
	default:
		ds.model = color.NRGBAModel
		interps = []ColorInterp{Red, Green, Blue, Alpha}
	}

	ds.bands = make([]Band, len(interps))
	for i, interp := range interps {
		ds.bands[i] = imageBand{ds: &ds, interp: interp, channel: i}
	}
	return &ds
}

func (ds *ImageDataset) Size() (w, h int) {
	b := ds.img.Bounds()
	return b.Dx(), b.Dy()
}

func (ds *ImageDataset) Bands() []Band { return ds.bands }

func (ds *ImageDataset) GeoTransform() (geom.Transform, bool) {
	return ds.transform, ds.georef
}

func (ds *ImageDataset) Close() error { return nil }

// sample returns one channel of the pixel at (x, y), relative to the
// image's top-left corner.
func (ds *ImageDataset) sample(x, y, channel int) uint32 {
	origin := ds.img.Bounds().Min
	c := ds.model.Convert(ds.img.At(origin.X+x, origin.Y+y))

	var v [4]uint32
	switch c := c.(type) {
	case color.Gray:
		v[0] = uint32(c.Y)
	case color.Gray16:
		v[0] = uint32(c.Y)
	case color.NRGBA:
		v = [4]uint32{uint32(c.R), uint32(c.G), uint32(c.B), uint32(c.A)}
	case color.NRGBA64:
		v = [4]uint32{uint32(c.R), uint32(c.G), uint32(c.B), uint32(c.A)}
	}
	return v[channel]
}

type imageBand struct {
	ds      *ImageDataset
	interp  ColorInterp
	channel int
}

func (b imageBand) ColorInterp() ColorInterp { return b.interp }

func (b imageBand) ReadRow(dst []float64, x, y int) error {
	for i := range dst {
		dst[i] = float64(b.ds.sample(x+i, y, b.channel))
	}
	return nil
}
