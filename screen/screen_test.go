package screen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/nitro/ntr"
	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry(t *testing.T) {
	e := Unpack(0x5c01)
	assert.Equal(t, Entry{Tile: 1, FlipH: true, FlipV: true, Bank: 5}, e)

	v, err := e.Pack()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x5c01), v)

	assert.Equal(t, Entry{Tile: 0x3ff, Bank: 15}, Unpack(0xf3ff))

	_, err = Entry{Tile: 1024}.Pack()
	assert.True(t, errors.Is(err, ErrEntryOutOfRange))
	_, err = Entry{Bank: 16}.Pack()
	assert.True(t, errors.Is(err, ErrEntryOutOfRange))
}

func TestEntries(t *testing.T) {
	b := []byte{0x01, 0x5c, 0x02, 0x00}

	entries, err := DecodeEntries(b, false)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Tile: 1, FlipH: true, FlipV: true, Bank: 5}, {Tile: 2}}, entries)

	out, err := EncodeEntries(entries, false)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	entries, err = DecodeEntries(b, true)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, uint16(0x5c), entries[1].Tile)

	out, err = EncodeEntries(entries, true)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	_, err = DecodeEntries(b[:3], false)
	assert.True(t, errors.Is(err, ntr.ErrMalformedContainer))

	_, err = EncodeEntries([]Entry{{Tile: 256}}, true)
	assert.True(t, errors.Is(err, ErrEntryOutOfRange))
	_, err = EncodeEntries([]Entry{{Tile: 1, FlipH: true}}, true)
	assert.True(t, errors.Is(err, ErrEntryOutOfRange))
}

func nrcsChunk(h nrcs, data []byte) ntr.Chunk {
	if h.Size == 0 {
		h.Size = uint32(len(data))
	}
	b := new(bytes.Buffer)
	_ = binary.Write(b, binary.LittleEndian, h)
	b.Write(data)
	return ntr.Chunk{ID: ChunkScreen, Data: b.Bytes()}
}

func TestNSCRRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    nrcs
		data []byte
	}{
		{name: "text", h: nrcs{Width: 16, Height: 16}, data: []byte{0, 0, 1, 0x04, 2, 0x18, 3, 0xf0}},
		{name: "text-256", h: nrcs{Width: 16, Height: 8, ColorMode: 1}, data: []byte{0, 0, 1, 0}},
		{name: "affine", h: nrcs{Width: 8, Height: 16, ColorMode: 1, Background: 1}, data: []byte{7, 9}},
		{name: "affine-ext", h: nrcs{Width: 8, Height: 8, ColorMode: 2, Background: 2}, data: []byte{0xff, 0x03}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := ntr.New(ntr.MagicScreen, ntr.Version0100, nrcsChunk(tc.h, tc.data)).Bytes()

			n, err := ReadNSCR(b)
			require.NoError(t, err)

			tm := n.Tilemap()
			assert.Equal(t, int(tc.h.Width)/8, tm.Width)
			assert.Equal(t, int(tc.h.Height)/8, tm.Height)
			assert.Equal(t, ColorMode(tc.h.ColorMode), n.Metadata().ColorMode)

			out, err := n.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, out)

			out, err = NewNSCR(tm, n.Metadata()).MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, out)
		})
	}
}

func TestNSCRErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    nrcs
		data []byte
		err  error
	}{
		{name: "too-few", h: nrcs{Width: 16, Height: 16}, data: make([]byte, 6), err: ErrTilemapDimensionMismatch},
		{name: "too-many", h: nrcs{Width: 8, Height: 8}, data: make([]byte, 4), err: ErrTilemapDimensionMismatch},
		{name: "not-multiple", h: nrcs{Width: 12, Height: 8}, data: make([]byte, 2), err: ntr.ErrMalformedContainer},
		{name: "bad-mode", h: nrcs{Width: 8, Height: 8, ColorMode: 3}, data: make([]byte, 2), err: ntr.ErrMalformedContainer},
		{name: "bad-background", h: nrcs{Width: 8, Height: 8, Background: 3}, data: make([]byte, 2), err: ntr.ErrMalformedContainer},
		{name: "bad-size", h: nrcs{Width: 8, Height: 8, Size: 0x40}, data: make([]byte, 2), err: ntr.ErrMalformedContainer},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := ntr.New(ntr.MagicScreen, ntr.Version0100, nrcsChunk(tc.h, tc.data)).Bytes()
			_, err := ReadNSCR(b)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}

	_, err := NewNSCR(Tilemap{Width: 2, Height: 2}, DefaultMetadata()).MarshalBinary()
	assert.True(t, errors.Is(err, ErrTilemapDimensionMismatch))
}

func testPalette() palette.Palette {
	p := make(palette.Palette, 32)
	for i := range p {
		p[i] = palette.NewColor(uint8(i), uint8(31-i), uint8(i/2))
	}
	return p
}

func testTiles() tile.TileSet {
	ts := tile.TileSet{Depth: tile.Depth4, Tiles: make([]tile.Tile, 3)}
	for i := range ts.Tiles {
		for j := range ts.Tiles[i] {
			ts.Tiles[i][j] = uint8((i*5 + j) % 16)
		}
	}
	return ts
}

func TestRender(t *testing.T) {
	ts := testTiles()
	p := testPalette()

	tm := Tilemap{
		Width:  2,
		Height: 1,
		Entries: []Entry{
			{Tile: 1},
			{Tile: 1, FlipH: true, Bank: 1},
		},
	}

	m, err := Render(tm, ts, p)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 16, 8), m.Bounds())
	assert.Len(t, m.Palette, 32)
	assert.Equal(t, ts.Tiles[1][0], m.ColorIndexAt(0, 0))
	assert.Equal(t, ts.Tiles[1][7]+16, m.ColorIndexAt(8, 0))
	assert.Equal(t, ts.Tiles[1][63]+16, m.ColorIndexAt(8, 7))

	r, g, b := p[m.ColorIndexAt(8, 0)].RGB8()
	assert.Equal(t, color.RGBA{r, g, b, 0xff}, m.At(8, 0))
}

func TestRenderFlipOrder(t *testing.T) {
	var base tile.Tile
	base[1] = 1 // (1, 0)
	ts := tile.TileSet{Depth: tile.Depth4, Tiles: []tile.Tile{base}}

	m, err := Render(Tilemap{Width: 1, Height: 1, Entries: []Entry{{FlipH: true, FlipV: true}}}, ts, testPalette())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), m.ColorIndexAt(6, 7))
}

func TestRenderErrors(t *testing.T) {
	ts := testTiles()

	_, err := Render(Tilemap{Width: 1, Height: 1, Entries: []Entry{{Tile: 3}}}, ts, testPalette())
	assert.True(t, errors.Is(err, ErrTileIndexOutOfRange))

	_, err = Render(Tilemap{Width: 1, Height: 1, Entries: []Entry{{Tile: 0, Bank: 2}}}, ts, testPalette())
	assert.True(t, errors.Is(err, ErrPaletteIndexOutOfRange))

	_, err = Render(Tilemap{Width: 2, Height: 1, Entries: []Entry{{}}}, ts, testPalette())
	assert.True(t, errors.Is(err, ErrTilemapDimensionMismatch))
}

func TestDecomposeRoundTrip(t *testing.T) {
	ts := testTiles()
	p := testPalette()

	tm := Tilemap{
		Width:  3,
		Height: 2,
		Entries: []Entry{
			{Tile: 0}, {Tile: 1, Bank: 1}, {Tile: 2},
			{Tile: 2, Bank: 1}, {Tile: 0}, {Tile: 1, Bank: 1},
		},
	}

	m, err := Render(tm, ts, p)
	require.NoError(t, err)

	tm2, ts2, err := Decompose(m, p, tile.Depth4)
	require.NoError(t, err)
	assert.Equal(t, tm.Width, tm2.Width)
	assert.Equal(t, tm.Height, tm2.Height)
	assert.Len(t, ts2.Tiles, 3, "duplicate cells share a tile")

	m2, err := Render(tm2, ts2, p)
	require.NoError(t, err)
	assert.Equal(t, m.Pix, m2.Pix)
	assert.Equal(t, m.Palette, m2.Palette)
}

func TestDecomposeForeignPalette(t *testing.T) {
	p := testPalette()

	// Image palette is in a different order but every colour exists in
	// the second bank
	m := image.NewPaletted(image.Rect(0, 0, 8, 8), palette.Palette{p[20], p[17]}.ColorPalette())
	m.SetColorIndex(3, 3, 1)

	tm, ts, err := Decompose(m, p, tile.Depth4)
	require.NoError(t, err)
	require.Len(t, tm.Entries, 1)
	assert.Equal(t, uint8(1), tm.Entries[0].Bank)
	assert.Equal(t, uint8(4), ts.Tiles[0][0])
	assert.Equal(t, uint8(1), ts.Tiles[0][3*8+3])
}

func TestDecomposeErrors(t *testing.T) {
	p := testPalette()

	m := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.RGBA{1, 2, 3, 255}})
	_, _, err := Decompose(m, p, tile.Depth4)
	assert.True(t, errors.Is(err, ErrColorNotInPalette))
	assert.True(t, errors.Is(err, palette.ErrColorNotInPalette))

	m = image.NewPaletted(image.Rect(0, 0, 8, 4), p.ColorPalette())
	_, _, err = Decompose(m, p, tile.Depth4)
	assert.True(t, errors.Is(err, tile.ErrInvalidWidth))
}
