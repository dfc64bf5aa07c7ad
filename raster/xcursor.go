package raster

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"slices"
	"time"

	"deedles.dev/xraster/format"
)

const (
	cursorMagic = "Xcur"

	cursorChunkImage = 0xfffd0002

	// maxCursorSide is the largest width or height allowed by the
	// Xcursor format.
	maxCursorSide = 0x7fff
)

// CursorImage is a single image from an Xcursor file.
type CursorImage struct {
	NominalSize int
	Delay       time.Duration
	Hot         image.Point
	Image       *format.Image
}

type cursorChunk struct {
	typ     uint32
	subtype uint32
	pos     uint32
}

// DecodeCursor decodes all of the images in an Xcursor file in the
// order that they appear in its table of contents. Comments are
// skipped.
func DecodeCursor(r io.Reader) (images []CursorImage, err error) {
	d := cursorDecoder{br: bufio.NewReader(r)}
	defer d.catch(&err)

	chunks := d.header()
	slices.SortStableFunc(chunks, func(c1, c2 cursorChunk) int {
		return cmp.Compare(c1.pos, c2.pos)
	})

	for _, c := range chunks {
		if c.typ != cursorChunkImage {
			continue
		}
		d.skipTo(int64(c.pos))
		d.chunkHeader(c)
		images = append(images, d.image(c))
	}

	return images, nil
}

// decodeCursorImage returns the largest image in an Xcursor file.
func decodeCursorImage(r io.Reader) (image.Image, error) {
	images, err := DecodeCursor(r)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("no images in cursor")
	}

	best := slices.MaxFunc(images, func(i1, i2 CursorImage) int {
		return i1.NominalSize - i2.NominalSize
	})
	return best.Image, nil
}

type cursorDecoder struct {
	br *bufio.Reader
	n  int64
}

func (d *cursorDecoder) header() []cursorChunk {
	if magic := d.bytes(4); string(magic) != cursorMagic {
		d.throw(fmt.Errorf("bad magic %q", magic))
	}
	size := d.uint32()
	d.uint32() // version
	n := d.uint32()
	if size > 16 {
		d.skip(size - 16)
	}
	if n > 0x10000 {
		d.throw(fmt.Errorf("too many chunks: %v", n))
	}

	chunks := make([]cursorChunk, 0, n)
	for range n {
		chunks = append(chunks, cursorChunk{
			typ:     d.uint32(),
			subtype: d.uint32(),
			pos:     d.uint32(),
		})
	}
	return chunks
}

func (d *cursorDecoder) chunkHeader(c cursorChunk) {
	d.uint32() // header size
	if typ := d.uint32(); typ != c.typ {
		d.throw(fmt.Errorf("chunk type mismatch: expected %x, got %x", c.typ, typ))
	}
	if subtype := d.uint32(); subtype != c.subtype {
		d.throw(fmt.Errorf("chunk subtype mismatch: expected %v, got %v", c.subtype, subtype))
	}
	d.uint32() // version
}

func (d *cursorDecoder) image(c cursorChunk) CursorImage {
	w, h := d.uint32(), d.uint32()
	if w > maxCursorSide || h > maxCursorSide {
		d.throw(fmt.Errorf("image too large: %vx%v", w, h))
	}
	xhot, yhot := d.uint32(), d.uint32()
	delay := d.uint32()

	return CursorImage{
		NominalSize: int(c.subtype),
		Delay:       time.Duration(delay) * time.Millisecond,
		Hot:         image.Pt(int(xhot), int(yhot)),
		Image: &format.Image{
			Format: format.ARGB8888,
			Rect:   image.Rect(0, 0, int(w), int(h)),
			Pix:    d.pixels(int64(w) * int64(h) * 4),
		},
	}
}

func (d *cursorDecoder) bytes(n int) []byte {
	buf := make([]byte, n)
	_, err := io.ReadFull(d.br, buf)
	d.throw(err)
	d.n += int64(n)
	return buf
}

// pixels reads n bytes of pixel data. The buffer grows as data arrives
// so that a truncated file can't claim more memory than its own size.
func (d *cursorDecoder) pixels(n int64) []byte {
	var buf bytes.Buffer
	read, err := io.CopyN(&buf, d.br, n)
	d.n += read
	d.throw(err)
	return buf.Bytes()
}

func (d *cursorDecoder) uint32() uint32 {
	return binary.LittleEndian.Uint32(d.bytes(4))
}

func (d *cursorDecoder) skip(n uint32) {
	disc, err := d.br.Discard(int(n))
	d.n += int64(disc)
	d.throw(err)
}

func (d *cursorDecoder) skipTo(pos int64) {
	if pos < d.n {
		d.throw(fmt.Errorf("overlapping chunk at %v", pos))
	}
	d.skip(uint32(pos - d.n))
}

type cursorError struct {
	err error
}

func (d *cursorDecoder) throw(err error) {
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		panic(cursorError{err: err})
	}
}

func (d *cursorDecoder) catch(err *error) {
	switch r := recover().(type) {
	case nil:
	case cursorError:
		*err = r.err
	default:
		panic(r)
	}
}
