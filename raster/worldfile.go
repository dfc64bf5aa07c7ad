package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deedles.dev/xraster/geom"
)

// worldFileNames returns the sidecar names that may hold a world file
// for the image at path, such as image.pgw, image.pngw and image.wld.
func worldFileNames(path string) []string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	ext = strings.TrimPrefix(ext, ".")

	var names []string
	if len(ext) >= 2 {
		short := ext[:1] + ext[len(ext)-1:] + "w"
		names = append(names, base+"."+strings.ToLower(short), base+"."+strings.ToUpper(short))
	}
	if ext != "" {
		names = append(names, base+"."+strings.ToLower(ext)+"w", base+"."+strings.ToUpper(ext)+"W")
	}
	return append(names, base+".wld", base+".WLD")
}

// findWorldFile loads the first world file found next to path.
func findWorldFile(path string) (geom.Transform, bool, error) {
	for _, name := range worldFileNames(path) {
		t, err := ReadWorldFile(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return geom.Transform{}, false, err
		}
		return t, true, nil
	}
	return geom.Transform{}, false, nil
}

// ReadWorldFile reads an ESRI world file. World files locate the center
// of the top-left pixel, so the result is shifted by half a pixel to
// refer to its corner instead.
func ReadWorldFile(path string) (geom.Transform, error) {
	file, err := os.Open(path)
	if err != nil {
		return geom.Transform{}, err
	}
	defer file.Close()

	var v [6]float64
	var n int
	s := bufio.NewScanner(file)
	for s.Scan() && n < len(v) {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		v[n], err = strconv.ParseFloat(line, 64)
		if err != nil {
			return geom.Transform{}, fmt.Errorf("world file %q line %v: %w", path, n+1, err)
		}
		n++
	}
	if err := s.Err(); err != nil {
		return geom.Transform{}, fmt.Errorf("scan: %w", err)
	}
	if n < len(v) {
		return geom.Transform{}, fmt.Errorf("world file %q: expected 6 values, got %v", path, n)
	}

	// Lines are x size, y rotation, x rotation, y size, x center, y center.
	a, d, b, e, c, f := v[0], v[1], v[2], v[3], v[4], v[5]
	return geom.Transform{
		c - a/2 - b/2, a, b,
		f - d/2 - e/2, d, e,
	}, nil
}
