/*
Package palette implements the Nitro colour table codec and the NCLR palette
container.

Each colour is a 16-bit little-endian word holding three 5-bit channels
packed as 0BBBBBGGGGGRRRRR. The top bit is unused by the hardware. Colours
are kept at their native 5-bit precision; conversion to 8 bits per channel
multiplies by 8, and conversion back shifts right by 3, so a colour always
survives a trip through an 8-bit representation unchanged.
*/
package palette

import (
	"encoding/binary"
	"errors"
	"image/color"
)

var (
	// ErrInvalidPaletteLength indicates colour data that is not a whole
	// number of 16-bit words.
	ErrInvalidPaletteLength = errors.New("palette: invalid palette length")
	// ErrUnsupportedFormat indicates a texture format other than 16 or 256
	// colours.
	ErrUnsupportedFormat = errors.New("palette: unsupported texture format")
	// ErrColorNotInPalette indicates a colour that has no exact match in
	// the palette at 5-bit precision.
	ErrColorNotInPalette = errors.New("palette: color not in palette")
)

const (
	colorBytes = 2
	channelMax = 0x1f
	highBit    = 0x8000
)

// Color is a single 15-bit BGR colour.
type Color uint16

// NewColor returns the colour with the given 5-bit channel values.
func NewColor(r, g, b uint8) Color {
	return Color(uint16(r)&channelMax | (uint16(g)&channelMax)<<5 | (uint16(b)&channelMax)<<10)
}

// FromRGB8 returns the colour nearest to the given 8-bit channel values.
func FromRGB8(r, g, b uint8) Color {
	return NewColor(r>>3, g>>3, b>>3)
}

// R returns the 5-bit red channel.
func (c Color) R() uint8 { return uint8(c & channelMax) }

// G returns the 5-bit green channel.
func (c Color) G() uint8 { return uint8(c >> 5 & channelMax) }

// B returns the 5-bit blue channel.
func (c Color) B() uint8 { return uint8(c >> 10 & channelMax) }

// RGB8 returns the channels scaled to 8 bits.
func (c Color) RGB8() (r, g, b uint8) {
	return c.R() << 3, c.G() << 3, c.B() << 3
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB8()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	a = 0xffff
	return
}

// Model converts any colour to the nearest Color.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return FromRGB8(uint8(r>>8), uint8(g>>8), uint8(b>>8))
})

// Palette is an ordered list of colours addressed by index.
type Palette []Color

// FromColorPalette converts the colour table of an indexed image.
func FromColorPalette(p color.Palette) Palette {
	out := make(Palette, len(p))
	for i, c := range p {
		out[i] = Model.Convert(c).(Color)
	}
	return out
}

// ColorPalette returns the palette with 8-bit channels, suitable for an
// image.Paletted.
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		r, g, b := c.RGB8()
		out[i] = color.RGBA{r, g, b, 0xff}
	}
	return out
}

// Bank returns the n'th group of size colours, or nil if the palette is too
// short.
func (p Palette) Bank(n, size int) Palette {
	if n < 0 || size <= 0 || (n+1)*size > len(p) {
		return nil
	}
	return append(Palette(nil), p[n*size:(n+1)*size]...)
}

// Index returns the first index holding c.
func (p Palette) Index(c Color) (int, bool) {
	for i, pc := range p {
		if pc == c {
			return i, true
		}
	}
	return 0, false
}

// Resize truncates or zero-extends the palette to n colours.
func (p Palette) Resize(n int) Palette {
	out := make(Palette, n)
	copy(out, p)
	return out
}

// Decode unpacks colour data. The result has one colour per 16-bit word.
func Decode(b []byte) (Palette, error) {
	if len(b)%colorBytes != 0 {
		return nil, ErrInvalidPaletteLength
	}
	p := make(Palette, len(b)/colorBytes)
	for i := range p {
		p[i] = Color(binary.LittleEndian.Uint16(b[i*colorBytes:]) &^ highBit)
	}
	return p, nil
}

// HasHighBit reports whether any colour word in b has the unused top bit
// set.
func HasHighBit(b []byte) bool {
	for i := 1; i < len(b); i += colorBytes {
		if b[i]&0x80 != 0 {
			return true
		}
	}
	return false
}

// Encode packs p into colour data. If capacity is positive the palette is
// first truncated or zero-extended to that many colours. If setHigh is true
// the unused top bit of every word is set.
func Encode(p Palette, capacity int, setHigh bool) []byte {
	if capacity > 0 {
		p = p.Resize(capacity)
	}
	b := make([]byte, len(p)*colorBytes)
	for i, c := range p {
		v := uint16(c) &^ highBit
		if setHigh {
			v |= highBit
		}
		binary.LittleEndian.PutUint16(b[i*colorBytes:], v)
	}
	return b
}
