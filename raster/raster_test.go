package raster_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deedles.dev/xraster/geom"
	"deedles.dev/xraster/raster"
	"github.com/stretchr/testify/require"
)

func TestMemSource(t *testing.T) {
	m := raster.NewMem(4, 3, raster.Undefined, raster.Undefined, raster.Undefined)
	m.Fill(1, func(x, y int) float64 { return float64(y*4 + x) })

	src := raster.NewSource("mem", m)
	defer src.Close()

	require.Equal(t, 4, src.Width())
	require.Equal(t, 3, src.Height())
	require.Equal(t, image.Rect(0, 0, 4, 3), src.Bounds())
	require.Equal(t, 3, src.BandCount())
	require.Equal(t, geom.Identity, src.GeoTransform())
	require.False(t, src.Georeferenced())
	require.Equal(t, raster.Roles{Red: 0, Green: 1, Blue: 2, Alpha: raster.NoBand}, src.Roles())

	row := make([]float64, 2)
	require.NoError(t, src.ReadRow(1, row, 1, 2))
	require.Equal(t, []float64{9, 10}, row)

	err := src.ReadRow(3, row, 0, 0)
	require.ErrorIs(t, err, raster.ErrBandIndex)

	err = src.ReadRow(0, row, 3, 0)
	require.ErrorIs(t, err, raster.ErrOutOfRange)

	err = src.ReadRow(0, row, 0, 3)
	require.ErrorIs(t, err, raster.ErrOutOfRange)
}

func TestMemGeoTransform(t *testing.T) {
	m := raster.NewMem(1, 1, raster.Gray)
	m.SetGeoTransform(geom.Transform{10, 2, 0, 20, 0, -2})

	src := raster.NewSource("mem", m)
	require.True(t, src.Georeferenced())
	require.Equal(t, geom.Pt(10.0, 20.0), src.GeoTransform().Origin())
}

func TestOpenMissing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "missing.png")
	_, err := raster.Open(name)

	var oerr *raster.OpenError
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, name, oerr.Name)
	require.Contains(t, err.Error(), name)
}

func TestOpenPNG(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "rgba.png")

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	writePNG(t, name, img)

	src, err := raster.Open(name)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 3, src.Width())
	require.Equal(t, 2, src.Height())
	require.Equal(t, 4, src.BandCount())
	require.Equal(t, raster.Roles{Red: 0, Green: 1, Blue: 2, Alpha: 3}, src.Roles())
	require.False(t, src.Georeferenced())

	row := make([]float64, 2)
	for band, want := range []float64{10, 20, 30, 40} {
		require.NoError(t, src.ReadRow(band, row, 1, 1))
		require.Equal(t, []float64{want, 0}, row)
	}
}

func TestOpenGrayPNGWithWorldFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "gray.png")

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 1, color.Gray{Y: 200})
	writePNG(t, name, img)

	world := "30\n0\n0\n-30\n1015\n2985\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gray.pgw"), []byte(world), 0644))

	src, err := raster.Open(name)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 1, src.BandCount())
	require.Equal(t, raster.Gray, src.Band(0).ColorInterp())
	require.Equal(t, raster.Roles{Red: 0, Green: 0, Blue: 0, Alpha: raster.NoBand}, src.Roles())
	require.True(t, src.Georeferenced())
	require.Equal(t, geom.Transform{1000, 30, 0, 3000, 0, -30}, src.GeoTransform())

	row := make([]float64, 2)
	require.NoError(t, src.ReadRow(0, row, 0, 1))
	require.Equal(t, []float64{200, 0}, row)
}

func TestReadWorldFileShort(t *testing.T) {
	name := filepath.Join(t.TempDir(), "short.wld")
	require.NoError(t, os.WriteFile(name, []byte("1\n0\n0\n"), 0644))

	_, err := raster.ReadWorldFile(name)
	require.Error(t, err)
}

func TestParseENVIHeader(t *testing.T) {
	hdr, err := raster.ParseENVIHeader(strings.NewReader(`ENVI
description = {
  Test image}
samples = 4
lines   = 2
bands   = 3
header offset = 16
data type = 12
interleave = BIL
byte order = 1
default bands = {3, 2, 1}
map info = {UTM, 1.0, 1.0, 500000.0, 4000000.0, 30.0, 30.0, 13, North, WGS-84}
`))
	require.NoError(t, err)
	require.Equal(t, 4, hdr.Samples)
	require.Equal(t, 2, hdr.Lines)
	require.Equal(t, 3, hdr.Bands)
	require.Equal(t, int64(16), hdr.HeaderOffset)
	require.Equal(t, 12, hdr.DataType)
	require.Equal(t, raster.BIL, hdr.Interleave)
	require.Equal(t, binary.ByteOrder(binary.BigEndian), hdr.ByteOrder)
	require.Equal(t, []int{3, 2, 1}, hdr.DefaultBands)
	require.True(t, hdr.Georef)
	require.Equal(t, geom.Transform{500000, 30, 0, 4000000, 0, -30}, hdr.Transform)
}

func TestParseENVIHeaderErrors(t *testing.T) {
	headers := []string{
		"not envi\nsamples = 1\n",
		"ENVI\nsamples = 1\nlines = 1\n",
		"ENVI\nsamples = 1\nlines = 1\nbands = 1\ndata type = 99\n",
		"ENVI\nsamples = x\nlines = 1\nbands = 1\ndata type = 1\n",
		"ENVI\nsamples = 1\nlines = 1\nbands = 1\ndata type = 1\ninterleave = foo\n",
	}
	for _, h := range headers {
		_, err := raster.ParseENVIHeader(strings.NewReader(h))
		require.ErrorIs(t, err, raster.ErrBadHeader, "%q", h)
	}
}

// writeENVI writes a 3x2 raster of float32 samples where each sample is
// band*100 + y*10 + x.
func writeENVI(t *testing.T, dir string, interleave raster.Interleave, extra string) string {
	t.Helper()

	const w, h, bands = 3, 2, 3
	sample := func(band, x, y int) float32 { return float32(band*100 + y*10 + x) }

	var data []float32
	switch interleave {
	case raster.BSQ:
		for b := 0; b < bands; b++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					data = append(data, sample(b, x, y))
				}
			}
		}
	case raster.BIL:
		for y := 0; y < h; y++ {
			for b := 0; b < bands; b++ {
				for x := 0; x < w; x++ {
					data = append(data, sample(b, x, y))
				}
			}
		}
	case raster.BIP:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for b := 0; b < bands; b++ {
					data = append(data, sample(b, x, y))
				}
			}
		}
	}

	raw := make([]byte, 8, 8+4*len(data))
	for _, v := range data {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}

	base := filepath.Join(dir, string(interleave))
	require.NoError(t, os.WriteFile(base+".img", raw, 0644))

	hdr := "ENVI\nsamples = 3\nlines = 2\nbands = 3\nheader offset = 8\ndata type = 4\n" +
		"interleave = " + string(interleave) + "\nbyte order = 0\n" + extra
	require.NoError(t, os.WriteFile(base+".hdr", []byte(hdr), 0644))

	return base
}

func TestOpenENVI(t *testing.T) {
	for _, interleave := range []raster.Interleave{raster.BSQ, raster.BIL, raster.BIP} {
		t.Run(string(interleave), func(t *testing.T) {
			base := writeENVI(t, t.TempDir(), interleave, "")

			for _, name := range []string{base + ".hdr", base + ".img"} {
				src, err := raster.Open(name)
				require.NoError(t, err)

				require.Equal(t, 3, src.Width())
				require.Equal(t, 2, src.Height())
				require.Equal(t, 3, src.BandCount())
				require.Equal(t, raster.Roles{Red: 0, Green: 1, Blue: 2, Alpha: raster.NoBand}, src.Roles())

				row := make([]float64, 2)
				for band := 0; band < 3; band++ {
					require.NoError(t, src.ReadRow(band, row, 1, 1))
					want := float64(band*100 + 10)
					require.Equal(t, []float64{want + 1, want + 2}, row)
				}

				require.NoError(t, src.Close())
			}
		})
	}
}

func TestOpenENVIDefaultBands(t *testing.T) {
	extra := "default bands = {3,2,1}\nmap info = {Arbitrary, 2, 2, 100, 200, 10, 5}\n"
	base := writeENVI(t, t.TempDir(), raster.BSQ, extra)

	src, err := raster.Open(base + ".hdr")
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, raster.Blue, src.Band(0).ColorInterp())
	require.Equal(t, raster.Green, src.Band(1).ColorInterp())
	require.Equal(t, raster.Red, src.Band(2).ColorInterp())
	require.Equal(t, raster.Roles{Red: 2, Green: 1, Blue: 0, Alpha: raster.NoBand}, src.Roles())

	require.True(t, src.Georeferenced())
	require.Equal(t, geom.Transform{90, 10, 0, 205, 0, -5}, src.GeoTransform())
}

func TestOpenENVIMissingData(t *testing.T) {
	name := filepath.Join(t.TempDir(), "lonely.hdr")
	require.NoError(t, os.WriteFile(name, []byte("ENVI\nsamples = 1\nlines = 1\nbands = 1\ndata type = 1\n"), 0644))

	_, err := raster.Open(name)
	var oerr *raster.OpenError
	require.ErrorAs(t, err, &oerr)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func writePNG(t *testing.T, name string, img image.Image) {
	t.Helper()

	file, err := os.Create(name)
	require.NoError(t, err)
	defer file.Close()

	require.NoError(t, png.Encode(file, img))
}

func TestOpenENVISampleTypes(t *testing.T) {
	tests := []struct {
		name     string
		dataType int
		data     any
		want     []float64
	}{
		{"uint8", 1, []uint8{0, 255}, []float64{0, 255}},
		{"int16", 2, []int16{-2, 300}, []float64{-2, 300}},
		{"int32", 3, []int32{-70000, 123456}, []float64{-70000, 123456}},
		{"float32", 4, []float32{-1.5, 2.25}, []float64{-1.5, 2.25}},
		{"float64", 5, []float64{-1e10, 0.125}, []float64{-1e10, 0.125}},
		{"uint16", 12, []uint16{65535, 7}, []float64{65535, 7}},
		{"uint32", 13, []uint32{4000000000, 1}, []float64{4000000000, 1}},
		{"int64", 14, []int64{-5, 1 << 40}, []float64{-5, 1 << 40}},
		{"uint64", 15, []uint64{1 << 40, 9}, []float64{1 << 40, 9}},
	}

	orders := []struct {
		code  int
		order binary.ByteOrder
	}{
		{0, binary.LittleEndian},
		{1, binary.BigEndian},
	}

	for _, test := range tests {
		for _, o := range orders {
			t.Run(fmt.Sprintf("%v/%v", test.name, o.order), func(t *testing.T) {
				base := filepath.Join(t.TempDir(), "samples")

				var buf bytes.Buffer
				require.NoError(t, binary.Write(&buf, o.order, test.data))
				require.NoError(t, os.WriteFile(base+".img", buf.Bytes(), 0644))

				hdr := fmt.Sprintf("ENVI\nsamples = 2\nlines = 1\nbands = 1\ndata type = %v\nbyte order = %v\n", test.dataType, o.code)
				require.NoError(t, os.WriteFile(base+".hdr", []byte(hdr), 0644))

				src, err := raster.Open(base + ".img")
				require.NoError(t, err)
				defer src.Close()

				row := make([]float64, 2)
				require.NoError(t, src.ReadRow(0, row, 0, 0))
				require.Equal(t, test.want, row)
			})
		}
	}
}

func TestOpenGray16PNG(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 0x1234})
	img.SetGray16(1, 0, color.Gray16{Y: 0xFFFF})

	name := filepath.Join(t.TempDir(), "deep.png")
	writePNG(t, name, img)

	src, err := raster.Open(name)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 1, src.BandCount())
	row := make([]float64, 2)
	require.NoError(t, src.ReadRow(0, row, 0, 0))
	require.Equal(t, []float64{0x1234, 0xFFFF}, row)
}
