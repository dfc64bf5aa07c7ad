package xraster_test

import (
	"errors"
	"image"
	"math"
	"testing"

	"deedles.dev/xraster"
	"deedles.dev/xraster/format"
	"deedles.dev/xraster/raster"
	"github.com/stretchr/testify/require"
)

func memSource(m *raster.Mem) *raster.Source {
	return raster.NewSource("mem", m)
}

func TestLoadMonoRoundTrip(t *testing.T) {
	for v := 0; v <= 255; v += 15 {
		m := raster.NewMem(3, 2, raster.Undefined)
		m.Fill(0, func(x, y int) float64 { return float64(v) })

		img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 3, 2), format.ARGB8888)
		require.NoError(t, err)

		want := 0xFF000000 | uint32(v)<<16 | uint32(v)<<8 | uint32(v)
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				require.Equal(t, want, pixel(img, x, y), "v=%v (%v,%v)", v, x, y)
			}
		}
	}
}

func TestLoadMonoGuessedAndDeclared(t *testing.T) {
	fill := func(x, y int) float64 { return float64(x*16 + y) }

	guessed := raster.NewMem(8, 4, raster.Undefined)
	guessed.Fill(0, fill)
	declared := raster.NewMem(8, 4, raster.Red)
	declared.Fill(0, fill)

	r := image.Rect(0, 0, 8, 4)
	img1, err := xraster.LoadImage(memSource(guessed), r, format.ARGB8888)
	require.NoError(t, err)
	img2, err := xraster.LoadImage(memSource(declared), r, format.ARGB8888)
	require.NoError(t, err)

	require.Equal(t, img1.Pix, img2.Pix)
}

func TestLoadRGB(t *testing.T) {
	m := raster.NewMem(2, 2, raster.Blue, raster.Green, raster.Red)
	m.Fill(0, func(x, y int) float64 { return 0x30 })
	m.Fill(1, func(x, y int) float64 { return 0x20 })
	m.Fill(2, func(x, y int) float64 { return float64(0x10 + x + y*2) })

	img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 2, 2), format.ARGB8888)
	require.NoError(t, err)

	require.Equal(t, uint32(0xFF102030), pixel(img, 0, 0))
	require.Equal(t, uint32(0xFF112030), pixel(img, 1, 0))
	require.Equal(t, uint32(0xFF132030), pixel(img, 1, 1))
	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, byte(0xFF), img.Pix[i+3])
	}
}

func TestLoadRGBA(t *testing.T) {
	m := raster.NewMem(4, 1, raster.Red, raster.Green, raster.Blue, raster.Alpha)
	m.Fill(3, func(x, y int) float64 { return float64(x * 0x40) })

	img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 4, 1), format.ARGB8888)
	require.NoError(t, err)

	for x := 0; x < 4; x++ {
		require.Equal(t, uint32(x*0x40)<<24, pixel(img, x, 0))
	}
}

func TestLoadOtherDescriptor(t *testing.T) {
	m := raster.NewMem(1, 1, raster.Red, raster.Green, raster.Blue)
	m.Set(0, 0, 0, 31)
	m.Set(1, 0, 0, 63)
	m.Set(2, 0, 0, 1)

	d := format.FromMasks(0xF800, 0x07E0, 0x001F)
	img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 1, 1), d)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFF00FFE1), pixel(img, 0, 0))
}

func TestLoadWraps(t *testing.T) {
	m := raster.NewMem(4, 1, raster.Gray)
	copy(m.Plane(0), []float64{256, 300, -1, math.NaN()})

	img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 4, 1), format.ARGB8888)
	require.NoError(t, err)

	require.Equal(t, uint32(0xFF000000), pixel(img, 0, 0))
	require.Equal(t, uint32(0xFF2C2C2C), pixel(img, 1, 0))
	require.Equal(t, uint32(0xFFFFFFFF), pixel(img, 2, 0))
	require.Equal(t, uint32(0xFF000000), pixel(img, 3, 0))
}

func TestLoadHugeSamples(t *testing.T) {
	m := raster.NewMem(5, 1, raster.Gray)
	copy(m.Plane(0), []float64{math.Inf(1), math.Inf(-1), 3.4e38, -3.4e38, 1 << 63})

	img, err := xraster.LoadImage(memSource(m), image.Rect(0, 0, 5, 1), format.ARGB8888)
	require.NoError(t, err)

	for x := 0; x < 5; x++ {
		require.Equal(t, uint32(0xFF000000), pixel(img, x, 0), "x=%v", x)
	}
}

func TestLoadUnsupportedBandCount(t *testing.T) {
	base := xraster.LiveBytes()

	for _, n := range []int{2, 5} {
		interps := make([]raster.ColorInterp, n)
		m := raster.NewMem(3, 3, interps...)
		for band := range interps {
			m.Fill(band, func(x, y int) float64 { return 0xFF })
		}
		src := memSource(m)

		vp, err := xraster.NewViewport(src.Bounds(), format.ARGB8888, n)
		require.NoError(t, err)

		err = xraster.Load(src, vp)
		var berr *xraster.UnsupportedBandCountError
		require.ErrorAs(t, err, &berr)
		require.Equal(t, n, berr.Count)

		require.Zero(t, vp.Written())
		require.Equal(t, make([]byte, 3*3*4), vp.Pix())
		for band := 0; band < n; band++ {
			require.Equal(t, make([]float64, 3), vp.Row(band))
		}
		vp.Release()

		img, err := xraster.LoadImage(src, src.Bounds(), format.ARGB8888)
		require.Nil(t, img)
		require.ErrorAs(t, err, &berr)
	}

	require.Equal(t, base, xraster.LiveBytes())
}

func TestLoadRamp(t *testing.T) {
	const W, H = 7, 5
	m := raster.NewMem(W, H, raster.Red, raster.Green, raster.Blue)
	m.Fill(0, func(x, y int) float64 { return float64(x) })
	m.Fill(1, func(x, y int) float64 { return float64(y) })
	m.Fill(2, func(x, y int) float64 { return float64(y*W + x) })
	src := memSource(m)

	expect := func(x, y int) uint32 {
		return 0xFF000000 | uint32(x)<<16 | uint32(y)<<8 | uint32(y*W+x)
	}

	r := image.Rect(2, 1, 6, 4)
	vp, err := xraster.NewViewport(r, format.ARGB8888, 3)
	require.NoError(t, err)
	defer vp.Release()

	require.NoError(t, xraster.Load(src, vp))
	require.Equal(t, r.Dx()*r.Dy(), vp.Written())
	require.True(t, vp.Full())

	pix := vp.Pix()
	first := uint32(pix[0]) | uint32(pix[1])<<8 | uint32(pix[2])<<16 | uint32(pix[3])<<24
	last := len(pix) - 4
	lastPx := uint32(pix[last]) | uint32(pix[last+1])<<8 | uint32(pix[last+2])<<16 | uint32(pix[last+3])<<24
	require.Equal(t, expect(2, 1), first)
	require.Equal(t, expect(5, 3), lastPx)

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			require.Equal(t, expect(x, y), vp.Pixel(x, y))
		}
	}
}

func TestLoadOutOfBounds(t *testing.T) {
	base := xraster.LiveBytes()

	m := raster.NewMem(4, 4, raster.Gray)
	_, err := xraster.LoadImage(memSource(m), image.Rect(2, 2, 6, 6), format.ARGB8888)
	require.ErrorIs(t, err, xraster.ErrOutOfBounds)

	require.Equal(t, base, xraster.LiveBytes())
}

func TestLoadBandMismatch(t *testing.T) {
	m := raster.NewMem(2, 2, raster.Red, raster.Green, raster.Blue)
	vp, err := xraster.NewViewport(image.Rect(0, 0, 2, 2), format.ARGB8888, 1)
	require.NoError(t, err)
	defer vp.Release()

	err = xraster.Load(memSource(m), vp)
	require.ErrorIs(t, err, xraster.ErrBandMismatch)
}

type failingSource struct {
	*raster.Source
	failRow int
}

var errRead = errors.New("read failed")

func (src failingSource) ReadRow(band int, dst []float64, x, y int) error {
	if y == src.failRow {
		return errRead
	}
	return src.Source.ReadRow(band, dst, x, y)
}

func TestLoadReadError(t *testing.T) {
	base := xraster.LiveBytes()

	src := failingSource{Source: memSource(raster.NewMem(3, 3, raster.Gray)), failRow: 1}
	_, err := xraster.LoadImage(src, src.Bounds(), format.ARGB8888)
	require.ErrorIs(t, err, errRead)

	require.Equal(t, base, xraster.LiveBytes())
}

func TestTiles(t *testing.T) {
	m := raster.NewMem(5, 3, raster.Gray)
	m.Fill(0, func(x, y int) float64 { return float64(y*5 + x) })

	var tiles []xraster.Tile
	for tile, err := range xraster.Tiles(memSource(m), format.ARGB8888, image.Pt(2, 2)) {
		require.NoError(t, err)
		tiles = append(tiles, tile)
	}
	require.Len(t, tiles, 6)

	last := tiles[5]
	require.Equal(t, 5, last.Index)
	require.Equal(t, 2, last.Col)
	require.Equal(t, 1, last.Row)
	require.Equal(t, image.Rect(4, 2, 5, 3), last.Image.Bounds())
	require.Equal(t, uint32(0xFF0E0E0E), pixel(last.Image, 4, 2))
}

func TestTilesError(t *testing.T) {
	m := raster.NewMem(4, 4, raster.Red, raster.Green)

	var n int
	for _, err := range xraster.Tiles(memSource(m), format.ARGB8888, image.Pt(2, 2)) {
		n++
		var berr *xraster.UnsupportedBandCountError
		require.ErrorAs(t, err, &berr)
	}
	require.Equal(t, 1, n)
}

func pixel(img *format.Image, x, y int) uint32 {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4]
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}
