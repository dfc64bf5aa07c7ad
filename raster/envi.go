package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deedles.dev/xraster/geom"
	"golang.org/x/exp/constraints"
)

// ErrBadHeader indicates a malformed ENVI header.
var ErrBadHeader = errors.New("bad ENVI header")

const enviMagic = "ENVI"

var enviDriver = Driver{
	Name: "envi",
	Match: func(name string) bool {
		if strings.EqualFold(filepath.Ext(name), ".hdr") {
			return true
		}
		_, ok := findFile(enviHeaderNames(name))
		return ok
	},
	Open: func(name string) (Dataset, error) { return OpenENVI(name) },
}

type number interface {
	constraints.Integer | constraints.Float
}

type sampleType struct {
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
}

func sampleOf[T number](size int, conv func(b []byte, order binary.ByteOrder) T) sampleType {
	return sampleType{
		size: size,
		decode: func(b []byte, order binary.ByteOrder) float64 {
			return float64(conv(b, order))
		},
	}
}

// enviSampleTypes maps ENVI's data type codes onto sample decoders.
var enviSampleTypes = map[int]sampleType{
	1:  sampleOf(1, func(b []byte, _ binary.ByteOrder) uint8 { return b[0] }),
	2:  sampleOf(2, func(b []byte, o binary.ByteOrder) int16 { return int16(o.Uint16(b)) }),
	3:  sampleOf(4, func(b []byte, o binary.ByteOrder) int32 { return int32(o.Uint32(b)) }),
	4:  sampleOf(4, func(b []byte, o binary.ByteOrder) float32 { return math.Float32frombits(o.Uint32(b)) }),
	5:  sampleOf(8, func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) }),
	12: sampleOf(2, func(b []byte, o binary.ByteOrder) uint16 { return o.Uint16(b) }),
	13: sampleOf(4, func(b []byte, o binary.ByteOrder) uint32 { return o.Uint32(b) }),
	14: sampleOf(8, func(b []byte, o binary.ByteOrder) int64 { return int64(o.Uint64(b)) }),
	15: sampleOf(8, func(b []byte, o binary.ByteOrder) uint64 { return o.Uint64(b) }),
}

// Interleave is the sample layout of an ENVI data file.
type Interleave string

const (
	BSQ Interleave = "bsq" // Band sequential.
	BIL Interleave = "bil" // Band interleaved by line.
	BIP Interleave = "bip" // Band interleaved by pixel.
)

// ENVIHeader holds the parts of an ENVI header that are needed to read
// the data file.
type ENVIHeader struct {
	Samples, Lines, Bands int
	HeaderOffset          int64
	DataType              int
	Interleave            Interleave
	ByteOrder             binary.ByteOrder

	// DefaultBands holds the 1-based bands to display as red, green
	// and blue, or a single band to display as grey.
	DefaultBands []int

	Transform geom.Transform
	Georef    bool
}

// ParseENVIHeader reads an ENVI header.
func ParseENVIHeader(r io.Reader) (hdr *ENVIHeader, err error) {
	p := headerParser{s: bufio.NewScanner(r)}
	return p.Parse()
}

type headerParser struct {
	s      *bufio.Scanner
	fields map[string]string
	err    error
}

func (p *headerParser) Parse() (hdr *ENVIHeader, err error) {
	if p.err != nil {
		return nil, p.err
	}

	defer p.catch(&err)

	p.fields = p.scan()

	h := ENVIHeader{
		Samples:    p.int("samples", -1),
		Lines:      p.int("lines", -1),
		Bands:      p.int("bands", -1),
		DataType:   p.int("data type", -1),
		Interleave: Interleave(strings.ToLower(p.string("interleave", string(BSQ)))),
		ByteOrder:  binary.LittleEndian,
	}
	h.HeaderOffset = int64(p.int("header offset", 0))
	if p.int("byte order", 0) == 1 {
		h.ByteOrder = binary.BigEndian
	}

	if h.Samples <= 0 || h.Lines <= 0 || h.Bands <= 0 {
		p.throw(fmt.Errorf("%w: bad dimensions %vx%v with %v bands", ErrBadHeader, h.Samples, h.Lines, h.Bands))
	}
	if _, ok := enviSampleTypes[h.DataType]; !ok {
		p.throw(fmt.Errorf("%w: unsupported data type %v", ErrBadHeader, h.DataType))
	}
	switch h.Interleave {
	case BSQ, BIL, BIP:
	default:
		p.throw(fmt.Errorf("%w: unknown interleave %q", ErrBadHeader, h.Interleave))
	}

	for _, v := range p.list("default bands") {
		h.DefaultBands = append(h.DefaultBands, p.atoi("default bands", v))
	}

	if info := p.list("map info"); len(info) > 0 {
		h.Transform = p.mapInfo(info)
		h.Georef = true
	}

	return &h, nil
}

// scan collects the key = value pairs of the header. Values in braces
// may span several lines.
func (p *headerParser) scan() map[string]string {
	if !p.s.Scan() || strings.TrimSpace(p.s.Text()) != enviMagic {
		p.throw(fmt.Errorf("%w: missing %q magic", ErrBadHeader, enviMagic))
	}

	fields := make(map[string]string)
	for p.s.Scan() {
		key, val, ok := strings.Cut(p.s.Text(), "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "{") {
			var buf strings.Builder
			buf.WriteString(val)
			for !strings.Contains(buf.String(), "}") && p.s.Scan() {
				buf.WriteByte(' ')
				buf.WriteString(strings.TrimSpace(p.s.Text()))
			}
			val = buf.String()
		}

		fields[strings.ToLower(strings.TrimSpace(key))] = val
	}
	p.throw(p.s.Err())

	return fields
}

func (p *headerParser) string(key, def string) string {
	v, ok := p.fields[key]
	if !ok {
		return def
	}
	return v
}

// int returns an integer field. A def of -1 marks the field as
// required.
func (p *headerParser) int(key string, def int) int {
	v, ok := p.fields[key]
	if !ok {
		if def == -1 {
			p.throw(fmt.Errorf("%w: missing %q", ErrBadHeader, key))
		}
		return def
	}
	return p.atoi(key, v)
}

func (p *headerParser) atoi(key, v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.throw(fmt.Errorf("%w: %q: %w", ErrBadHeader, key, err))
	}
	return n
}

func (p *headerParser) atof(key, v string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.throw(fmt.Errorf("%w: %q: %w", ErrBadHeader, key, err))
	}
	return n
}

// list splits a braced list field.
func (p *headerParser) list(key string) []string {
	v, ok := p.fields[key]
	if !ok {
		return nil
	}

	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "{")
	v = strings.TrimSuffix(v, "}")
	if strings.TrimSpace(v) == "" {
		return nil
	}

	list := strings.Split(v, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return list
}

// mapInfo converts a map info field into a transform. The field lists
// the projection name, a 1-based reference pixel, the coordinates of
// that pixel, and the pixel size.
func (p *headerParser) mapInfo(info []string) geom.Transform {
	if len(info) < 7 {
		p.throw(fmt.Errorf("%w: short map info", ErrBadHeader))
	}

	refX, refY := p.atof("map info", info[1]), p.atof("map info", info[2])
	east, north := p.atof("map info", info[3]), p.atof("map info", info[4])
	dx, dy := p.atof("map info", info[5]), p.atof("map info", info[6])
	return geom.Transform{
		east - (refX-1)*dx, dx, 0,
		north + (refY-1)*dy, 0, -dy,
	}
}

type headerError struct {
	err error
}

func (p *headerParser) throw(err error) {
	if err != nil {
		panic(headerError{err: err})
	}
}

func (p *headerParser) catch(err *error) {
	switch r := recover().(type) {
	case headerError:
		*err = r.err
		p.err = r.err
	case nil:
		*err = p.err
	default:
		panic(r)
	}
}

func enviHeaderNames(name string) []string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return []string{name + ".hdr", base + ".hdr", base + ".HDR"}
}

func enviDataNames(hdr string) []string {
	base := strings.TrimSuffix(hdr, filepath.Ext(hdr))
	names := []string{base}
	for _, ext := range []string{".img", ".dat", ".raw", ".bsq", ".bil", ".bip"} {
		names = append(names, base+ext, base+strings.ToUpper(ext))
	}
	return names
}

func findFile(names []string) (string, bool) {
	for _, name := range names {
		info, err := os.Stat(name)
		if err == nil && info.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// ENVIDataset is an ENVI raster. name may be either the header or the
// data file.
type ENVIDataset struct {
	Header *ENVIHeader

	file   *os.File
	sample sampleType
	bands  []Band
}

// OpenENVI opens an ENVI raster by either its header or its data file.
func OpenENVI(name string) (*ENVIDataset, error) {
	hdrPath, dataPath := name, name
	if strings.EqualFold(filepath.Ext(name), ".hdr") {
		path, ok := findFile(enviDataNames(name))
		if !ok {
			return nil, fmt.Errorf("no data file for %q: %w", name, os.ErrNotExist)
		}
		dataPath = path
	} else {
		path, ok := findFile(enviHeaderNames(name))
		if !ok {
			return nil, ErrUnknownFormat
		}
		hdrPath = path
	}

	hdr, err := readENVIHeader(hdrPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}

	ds := ENVIDataset{
		Header: hdr,
		file:   file,
		sample: enviSampleTypes[hdr.DataType],
	}

	interps := make([]ColorInterp, hdr.Bands)
	switch len(hdr.DefaultBands) {
	case 1:
		ds.setInterp(interps, hdr.DefaultBands[0], Gray)
	case 3:
		ds.setInterp(interps, hdr.DefaultBands[0], Red)
		ds.setInterp(interps, hdr.DefaultBands[1], Green)
		ds.setInterp(interps, hdr.DefaultBands[2], Blue)
	}

	ds.bands = make([]Band, hdr.Bands)
	for i := range ds.bands {
		ds.bands[i] = &enviBand{ds: &ds, band: i, interp: interps[i]}
	}

	return &ds, nil
}

func readENVIHeader(path string) (*ENVIHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open header: %w", err)
	}
	defer file.Close()

	hdr, err := ParseENVIHeader(file)
	if err != nil {
		return nil, fmt.Errorf("parse header %q: %w", path, err)
	}
	return hdr, nil
}

func (ds *ENVIDataset) setInterp(interps []ColorInterp, band int, interp ColorInterp) {
	if band >= 1 && band <= len(interps) {
		interps[band-1] = interp
	}
}

func (ds *ENVIDataset) Size() (w, h int) { return ds.Header.Samples, ds.Header.Lines }

func (ds *ENVIDataset) Bands() []Band { return ds.bands }

func (ds *ENVIDataset) GeoTransform() (geom.Transform, bool) {
	return ds.Header.Transform, ds.Header.Georef
}

func (ds *ENVIDataset) Close() error {
	return ds.file.Close()
}

// layout returns the byte offset of the sample for band at (x, y) and
// the distance between horizontally adjacent samples of the band.
func (ds *ENVIDataset) layout(band, x, y int) (offset int64, stride int) {
	h := ds.Header
	size := ds.sample.size

	var index int64
	switch h.Interleave {
	case BSQ:
		index = (int64(band)*int64(h.Lines)+int64(y))*int64(h.Samples) + int64(x)
		stride = size
	case BIL:
		index = (int64(y)*int64(h.Bands)+int64(band))*int64(h.Samples) + int64(x)
		stride = size
	case BIP:
		index = (int64(y)*int64(h.Samples)+int64(x))*int64(h.Bands) + int64(band)
		stride = size * h.Bands
	}
	return h.HeaderOffset + index*int64(size), stride
}

type enviBand struct {
	ds     *ENVIDataset
	band   int
	interp ColorInterp
	buf    []byte
}

func (b *enviBand) ColorInterp() ColorInterp { return b.interp }

func (b *enviBand) ReadRow(dst []float64, x, y int) error {
	if len(dst) == 0 {
		return nil
	}

	offset, stride := b.ds.layout(b.band, x, y)
	size := b.ds.sample.size
	n := (len(dst)-1)*stride + size
	if cap(b.buf) < n {
		b.buf = make([]byte, n)
	}
	buf := b.buf[:n]

	_, err := b.ds.file.ReadAt(buf, offset)
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}

	order := b.ds.Header.ByteOrder
	for i := range dst {
		s := buf[i*stride : i*stride+size : i*stride+size]
		dst[i] = b.ds.sample.decode(s, order)
	}
	return nil
}
