/*
Package tile implements the Nitro indexed tile codec and the NCGR character
container.

Graphics are built from 8 by 8 pixel tiles where each pixel is an index into
a palette. At 4 bits per pixel a tile is 32 bytes with two pixels packed per
byte, the left pixel in the lower nibble. At 8 bits per pixel a tile is 64
bytes with one pixel per byte.
*/
package tile

import (
	"errors"
	"fmt"
)

const (
	tileWidth  = 8
	tileHeight = tileWidth
	tilePixels = tileWidth * tileHeight
)

var (
	// ErrTruncatedTileData indicates pixel data that is not a whole number
	// of tiles.
	ErrTruncatedTileData = errors.New("tile: truncated tile data")
	// ErrPixelIndexOutOfRange indicates a pixel index that cannot be stored
	// at the tile set's depth.
	ErrPixelIndexOutOfRange = errors.New("tile: pixel index out of range")
	// ErrInvalidDepth indicates a depth other than 4 or 8 bits per pixel.
	ErrInvalidDepth = errors.New("tile: invalid depth")
	// ErrInvalidWidth indicates an image width that does not divide the
	// tiles into whole rows, or image dimensions that are not a multiple of
	// the tile size.
	ErrInvalidWidth = errors.New("tile: invalid width")
)

// Depth is the number of bits per pixel.
type Depth uint8

// Supported depths.
const (
	Depth4 Depth = 4
	Depth8 Depth = 8
)

func (d Depth) valid() bool {
	return d == Depth4 || d == Depth8
}

// Colors returns the number of palette entries a pixel can address.
func (d Depth) Colors() int {
	return 1 << d
}

// TileBytes returns the encoded size of a single tile.
func (d Depth) TileBytes() int {
	return tilePixels * int(d) / 8
}

// Tile is a single 8 by 8 tile of palette indices in row-major order.
type Tile [tilePixels]uint8

// FlipH returns the tile mirrored left to right.
func (t Tile) FlipH() Tile {
	var out Tile
	for y := 0; y < tileHeight; y++ {
		for x := 0; x < tileWidth; x++ {
			out[y*tileWidth+x] = t[y*tileWidth+tileWidth-1-x]
		}
	}
	return out
}

// FlipV returns the tile mirrored top to bottom.
func (t Tile) FlipV() Tile {
	var out Tile
	for y := 0; y < tileHeight; y++ {
		copy(out[y*tileWidth:(y+1)*tileWidth], t[(tileHeight-1-y)*tileWidth:])
	}
	return out
}

// TileSet is an ordered collection of tiles at a given depth.
type TileSet struct {
	Depth Depth
	Tiles []Tile
}

// Validate checks every pixel index fits within the depth.
func (ts TileSet) Validate() error {
	if !ts.Depth.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, ts.Depth)
	}
	if ts.Depth == Depth8 {
		return nil
	}
	for i, t := range ts.Tiles {
		for j, p := range t {
			if int(p) >= ts.Depth.Colors() {
				return fmt.Errorf("%w: tile %d pixel %d has index %d", ErrPixelIndexOutOfRange, i, j, p)
			}
		}
	}
	return nil
}

// Decode unpacks b into tiles of the given depth.
func Decode(b []byte, depth Depth) (TileSet, error) {
	if !depth.valid() {
		return TileSet{}, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}

	size := depth.TileBytes()
	if len(b)%size != 0 {
		return TileSet{}, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrTruncatedTileData, len(b), size)
	}

	ts := TileSet{
		Depth: depth,
		Tiles: make([]Tile, len(b)/size),
	}

	for i := range ts.Tiles {
		src := b[i*size : (i+1)*size]
		t := &ts.Tiles[i]
		switch depth {
		case Depth4:
			for j, v := range src {
				t[j<<1] = v & 0x0f
				t[j<<1+1] = v >> 4
			}
		case Depth8:
			copy(t[:], src)
		}
	}

	return ts, nil
}

// Encode packs ts into its binary form. Nothing is returned if any pixel is
// out of range.
func Encode(ts TileSet) ([]byte, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	size := ts.Depth.TileBytes()
	b := make([]byte, len(ts.Tiles)*size)

	for i, t := range ts.Tiles {
		dst := b[i*size : (i+1)*size]
		switch ts.Depth {
		case Depth4:
			for j := range dst {
				dst[j] = t[j<<1] | t[j<<1+1]<<4
			}
		case Depth8:
			copy(dst, t[:])
		}
	}

	return b, nil
}

// ToPixels arranges tiles into a raster that is width tiles wide. The number
// of tiles must be a multiple of width.
func ToPixels(tiles []Tile, width int) ([]uint8, error) {
	if width <= 0 || len(tiles)%width != 0 {
		return nil, fmt.Errorf("%w: %d tiles across %d columns", ErrInvalidWidth, len(tiles), width)
	}

	stride := width * tileWidth
	pixels := make([]uint8, len(tiles)*tilePixels)
	for i, t := range tiles {
		tx, ty := i%width, i/width
		for y := 0; y < tileHeight; y++ {
			offset := (ty*tileHeight+y)*stride + tx*tileWidth
			copy(pixels[offset:offset+tileWidth], t[y*tileWidth:])
		}
	}

	return pixels, nil
}

// FromPixels is the inverse of ToPixels.
func FromPixels(pixels []uint8, width int) ([]Tile, error) {
	if width <= 0 || len(pixels)%(width*tilePixels) != 0 {
		return nil, fmt.Errorf("%w: %d pixels across %d columns", ErrInvalidWidth, len(pixels), width)
	}

	stride := width * tileWidth
	tiles := make([]Tile, len(pixels)/tilePixels)
	for i := range tiles {
		tx, ty := i%width, i/width
		for y := 0; y < tileHeight; y++ {
			offset := (ty*tileHeight+y)*stride + tx*tileWidth
			copy(tiles[i][y*tileWidth:(y+1)*tileWidth], pixels[offset:])
		}
	}

	return tiles, nil
}
