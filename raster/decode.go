package raster

import (
	"bufio"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// imageFormat is a decoder for one image file format. A '?' in magic
// matches any byte.
type imageFormat struct {
	name   string
	magic  []string
	exts   []string
	decode func(io.Reader) (image.Image, error)
}

// TGA has no magic number, so it is only chosen by extension.
var imageFormats = []imageFormat{
	{name: "png", magic: []string{"\x89PNG\r\n\x1a\n"}, decode: png.Decode},
	{name: "jpeg", magic: []string{"\xff\xd8"}, decode: jpeg.Decode},
	{name: "gif", magic: []string{"GIF87a", "GIF89a"}, decode: gif.Decode},
	{name: "bmp", magic: []string{"BM????\x00\x00\x00\x00"}, decode: bmp.Decode},
	{name: "tiff", magic: []string{"II*\x00", "MM\x00*"}, decode: tiff.Decode},
	{name: "webp", magic: []string{"RIFF????WEBPVP8"}, decode: webp.Decode},
	{name: "xcursor", magic: []string{cursorMagic}, decode: decodeCursorImage},
	{name: "tga", exts: []string{".tga", ".tpic"}, decode: tga.Decode},
}

func matchMagic(magic string, b []byte) bool {
	if len(magic) != len(b) {
		return false
	}
	for i, c := range b {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

func sniffFormat(name string, r *bufio.Reader) (imageFormat, bool) {
	for _, f := range imageFormats {
		for _, magic := range f.magic {
			b, err := r.Peek(len(magic))
			if err == nil && matchMagic(magic, b) {
				return f, true
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range imageFormats {
		if slices.Contains(f.exts, ext) {
			return f, true
		}
	}

	return imageFormat{}, false
}

// decodeImage decodes the image in r. The name is only used to
// recognize formats that can't be identified by their contents. It
// returns ErrUnknownFormat if no decoder accepts the data.
func decodeImage(name string, r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	f, ok := sniffFormat(name, br)
	if !ok {
		return nil, "", ErrUnknownFormat
	}

	img, err := f.decode(br)
	return img, f.name, err
}
