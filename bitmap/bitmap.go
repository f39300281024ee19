/*
Package bitmap reads and writes indexed images as PNG or BMP files.

Only paletted images are supported; the pixel values are palette indices and
are preserved exactly in both directions.
*/
package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

var (
	// ErrNotPaletted is returned when a decoded image does not use a
	// palette.
	ErrNotPaletted = errors.New("bitmap: image is not paletted")
	// ErrUnknownFormat is returned for an unrecognised format name.
	ErrUnknownFormat = errors.New("bitmap: unknown format")
)

// Format is an image file format.
type Format int

// Supported image formats.
const (
	PNG Format = iota
	BMP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case BMP:
		return "bmp"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat returns the Format with the given name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Encode writes m to w in format f.
func Encode(w io.Writer, m *image.Paletted, f Format) error {
	switch f {
	case PNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, m)
	case BMP:
		return bmp.Encode(w, m)
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// Decode reads a PNG or BMP image from r. The format is detected from the
// data.
func Decode(r io.Reader) (*image.Paletted, Format, error) {
	m, name, err := image.Decode(r)
	if err != nil {
		return nil, 0, err
	}

	f, err := ParseFormat(name)
	if err != nil {
		return nil, 0, err
	}

	p, ok := m.(*image.Paletted)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s image is %T", ErrNotPaletted, name, m)
	}

	return p, f, nil
}
