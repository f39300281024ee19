/*
Package screen implements the Nitro tilemap codec, the NSCR screen container
and composition of tiles, tilemap and palette into an indexed image.

A text background entry is a 16-bit value:

	bits 0-9   tile index
	bit 10     horizontal flip
	bit 11     vertical flip
	bits 12-15 palette bank

Affine backgrounds store only the tile index in a single byte.
*/
package screen

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bodgit/nitro/ntr"
	"github.com/bodgit/nitro/palette"
)

const (
	tileMask  = 0x03ff
	flipHBit  = 1 << 10
	flipVBit  = 1 << 11
	bankShift = 12
	maxBank   = 0x0f
	maxAffine = 0xff
)

var (
	// ErrTilemapDimensionMismatch indicates an entry count that does not
	// match the declared width and height.
	ErrTilemapDimensionMismatch = errors.New("screen: tilemap dimension mismatch")
	// ErrTileIndexOutOfRange indicates an entry referencing a tile beyond
	// the end of the tile set.
	ErrTileIndexOutOfRange = errors.New("screen: tile index out of range")
	// ErrPaletteIndexOutOfRange indicates a pixel that resolves to a colour
	// beyond the end of the palette.
	ErrPaletteIndexOutOfRange = errors.New("screen: palette index out of range")
	// ErrEntryOutOfRange indicates an entry with a field too large for the
	// encoding.
	ErrEntryOutOfRange = errors.New("screen: entry out of range")
	// ErrTooManyTiles indicates an image that needs more unique tiles than
	// an entry can address.
	ErrTooManyTiles = errors.New("screen: too many tiles")
	// ErrColorNotInPalette is returned when building a tilemap from an
	// image with a colour no palette bank can supply.
	ErrColorNotInPalette = palette.ErrColorNotInPalette
)

// Entry is a single tilemap cell.
type Entry struct {
	Tile  uint16
	FlipH bool
	FlipV bool
	Bank  uint8
}

// Pack returns the 16-bit encoding of e.
func (e Entry) Pack() (uint16, error) {
	if e.Tile > tileMask || e.Bank > maxBank {
		return 0, fmt.Errorf("%w: tile %d bank %d", ErrEntryOutOfRange, e.Tile, e.Bank)
	}
	v := e.Tile | uint16(e.Bank)<<bankShift
	if e.FlipH {
		v |= flipHBit
	}
	if e.FlipV {
		v |= flipVBit
	}
	return v, nil
}

// Unpack returns the entry encoded in v.
func Unpack(v uint16) Entry {
	return Entry{
		Tile:  v & tileMask,
		FlipH: v&flipHBit != 0,
		FlipV: v&flipVBit != 0,
		Bank:  uint8(v >> bankShift),
	}
}

// Tilemap is a grid of entries in row-major order. Width and Height are in
// tiles.
type Tilemap struct {
	Width   int
	Height  int
	Entries []Entry
}

// Validate checks the entry count matches the dimensions.
func (tm Tilemap) Validate() error {
	if tm.Width < 0 || tm.Height < 0 || tm.Width*tm.Height != len(tm.Entries) {
		return fmt.Errorf("%w: %dx%d tiles, %d entries", ErrTilemapDimensionMismatch, tm.Width, tm.Height, len(tm.Entries))
	}
	return nil
}

// DecodeEntries unpacks b into entries. Affine entries are one byte each,
// otherwise two.
func DecodeEntries(b []byte, affine bool) ([]Entry, error) {
	if affine {
		entries := make([]Entry, len(b))
		for i, v := range b {
			entries[i].Tile = uint16(v)
		}
		return entries, nil
	}

	if len(b)%2 != 0 {
		return nil, fmt.Errorf("%w: odd entry data length %d", ntr.ErrMalformedContainer, len(b))
	}

	entries := make([]Entry, len(b)/2)
	for i := range entries {
		entries[i] = Unpack(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return entries, nil
}

// EncodeEntries packs entries. Affine entries can only hold a tile index up
// to 255.
func EncodeEntries(entries []Entry, affine bool) ([]byte, error) {
	if affine {
		b := make([]byte, len(entries))
		for i, e := range entries {
			if e.Tile > maxAffine || e.Bank != 0 || e.FlipH || e.FlipV {
				return nil, fmt.Errorf("%w: entry %d cannot be stored in an affine map", ErrEntryOutOfRange, i)
			}
			b[i] = uint8(e.Tile)
		}
		return b, nil
	}

	b := make([]byte, len(entries)*2)
	for i, e := range entries {
		v, err := e.Pack()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b, nil
}
