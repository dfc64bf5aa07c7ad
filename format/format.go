package format

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// Format is a pixel format for an Image and related types. The
// Descriptor type is the primary implementation.
type Format interface {
	// Size returns the number of bytes per pixel.
	Size() int

	// Read reads raw pixel data and converts it to alpha-premultiplied
	// RGBA values, similar to color.Color's RGBA method.
	Read([]byte) (r, g, b, a uint32)

	// Write writes alpha-premultiplied RGBA values into buf.
	Write(buf []byte, r, g, b, a uint32)
}

// Channel describes where one color channel lives inside of a packed
// 32-bit pixel.
type Channel struct {
	// Mask is the raw mask that the channel was derived from.
	Mask uint32

	// Offset is the number of bits that a channel value is shifted
	// left by to put it into place.
	Offset int

	// Scale is the largest value that the channel can hold. It is also
	// used as a mask to truncate values to the width of the channel.
	Scale int32
}

// AlphaChannel is the alpha channel of every Descriptor. Display
// visuals do not report an alpha mask, so it is always the top byte.
var AlphaChannel = Channel{Mask: 0xFF000000, Offset: 24, Scale: 255}

// ChannelFromMask derives a Channel from a contiguous mask. The mask is
// not validated. A zero mask produces a zero-width channel with an
// offset of 0 that contributes nothing to a packed pixel.
func ChannelFromMask(mask uint32) Channel {
	if mask == 0 {
		return Channel{}
	}

	offset := bits.TrailingZeros32(mask)
	return Channel{
		Mask:   mask,
		Offset: offset,
		Scale:  int32(mask >> offset),
	}
}

// Place truncates v to the width of the channel and shifts it into
// position. Values wider than the channel wrap instead of saturating.
func (c Channel) Place(v int32) uint32 {
	return uint32(v&c.Scale) << c.Offset
}

// Extract is the inverse of Place.
func (c Channel) Extract(px uint32) uint32 {
	return px >> c.Offset & uint32(c.Scale)
}

// Bits returns the width of the channel in bits.
func (c Channel) Bits() int {
	return bits.OnesCount32(uint32(c.Scale))
}

// Visual is anything that can report the channel masks of a display's
// pixel format.
type Visual interface {
	Masks() (r, g, b uint32)
}

// Descriptor describes a packed 32-bit pixel format using per-channel
// offsets and scales. It is a plain value and is safe to copy.
type Descriptor struct {
	Red, Green, Blue, Alpha Channel
}

// ARGB8888 is the Descriptor for the most common 32-bit visual.
var ARGB8888 = FromMasks(0xFF0000, 0xFF00, 0xFF)

// FromMasks returns a Descriptor for the given color masks.
func FromMasks(r, g, b uint32) Descriptor {
	return Descriptor{
		Red:   ChannelFromMask(r),
		Green: ChannelFromMask(g),
		Blue:  ChannelFromMask(b),
		Alpha: AlphaChannel,
	}
}

// FromVisual returns a Descriptor for the masks reported by v.
func FromVisual(v Visual) Descriptor {
	return FromMasks(v.Masks())
}

// Pack combines channel values into a single pixel.
func (d Descriptor) Pack(r, g, b, a int32) uint32 {
	return d.Red.Place(r) | d.Green.Place(g) | d.Blue.Place(b) | d.Alpha.Place(a)
}

// Unpack splits a pixel into its raw channel values.
func (d Descriptor) Unpack(px uint32) (r, g, b, a uint32) {
	return d.Red.Extract(px), d.Green.Extract(px), d.Blue.Extract(px), d.Alpha.Extract(px)
}

func (d Descriptor) Size() int { return 4 }

func (d Descriptor) Read(data []byte) (r, g, b, a uint32) {
	n := binary.LittleEndian.Uint32(data)
	a = expand(d.Alpha.Extract(n), d.Alpha.Scale)
	r = expand(d.Red.Extract(n), d.Red.Scale) * a / 0xFFFF
	g = expand(d.Green.Extract(n), d.Green.Scale) * a / 0xFFFF
	b = expand(d.Blue.Extract(n), d.Blue.Scale) * a / 0xFFFF
	return
}

func (d Descriptor) Write(buf []byte, r, g, b, a uint32) {
	if a == 0 {
		binary.LittleEndian.PutUint32(buf, 0)
		return
	}

	r = r * 0xFFFF / a
	g = g * 0xFFFF / a
	b = b * 0xFFFF / a
	n := d.Red.Place(compress(r, d.Red.Scale)) |
		d.Green.Place(compress(g, d.Green.Scale)) |
		d.Blue.Place(compress(b, d.Blue.Scale)) |
		d.Alpha.Place(compress(a, d.Alpha.Scale))
	binary.LittleEndian.PutUint32(buf, n)
}

// String returns the layout of the pixel from the most significant
// channel down, such as "a8r8g8b8".
func (d Descriptor) String() string {
	type named struct {
		name byte
		c    Channel
	}
	channels := []named{{'r', d.Red}, {'g', d.Green}, {'b', d.Blue}, {'a', d.Alpha}}
	slices.SortStableFunc(channels, func(c1, c2 named) int {
		return cmp.Compare(c2.c.Offset, c1.c.Offset)
	})

	var buf strings.Builder
	for _, c := range channels {
		if c.c.Scale == 0 {
			continue
		}
		fmt.Fprintf(&buf, "%c%d", c.name, c.c.Bits())
	}
	return buf.String()
}

// expand scales v from [0, scale] to [0, 0xFFFF].
func expand(v uint32, scale int32) uint32 {
	if scale == 0 {
		return 0
	}
	return uint32(uint64(v) * 0xFFFF / uint64(uint32(scale)))
}

// compress scales v from [0, 0xFFFF] to [0, scale].
func compress(v uint32, scale int32) int32 {
	return int32(uint64(v) * uint64(uint32(scale)) / 0xFFFF)
}
