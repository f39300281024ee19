package tile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/nitro/ntr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(n int, depth Depth) []Tile {
	tiles := make([]Tile, n)
	for i := range tiles {
		for j := range tiles[i] {
			tiles[i][j] = uint8((i*7 + j) % depth.Colors())
		}
	}
	return tiles
}

func TestDecode4bpp(t *testing.T) {
	b := make([]byte, 32)
	b[0] = 0x21
	b[31] = 0xf0

	ts, err := Decode(b, Depth4)
	require.NoError(t, err)
	require.Len(t, ts.Tiles, 1)

	assert.Equal(t, uint8(1), ts.Tiles[0][0])
	assert.Equal(t, uint8(2), ts.Tiles[0][1])
	assert.Equal(t, uint8(0), ts.Tiles[0][62])
	assert.Equal(t, uint8(15), ts.Tiles[0][63])

	out, err := Encode(ts)
	require.NoError(t, err)
	assert.Equal(t, b, out)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		b     []byte
		depth Depth
		err   error
	}{
		{name: "33-bytes", b: make([]byte, 33), depth: Depth4, err: ErrTruncatedTileData},
		{name: "32-bytes-8bpp", b: make([]byte, 32), depth: Depth8, err: ErrTruncatedTileData},
		{name: "bad-depth", b: make([]byte, 64), depth: 2, err: ErrInvalidDepth},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(tc.b, tc.depth)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, depth := range []Depth{Depth4, Depth8} {
		ts := TileSet{Depth: depth, Tiles: pattern(5, depth)}

		b, err := Encode(ts)
		require.NoError(t, err)
		assert.Len(t, b, 5*depth.TileBytes())

		got, err := Decode(b, depth)
		require.NoError(t, err)
		assert.Equal(t, ts, got)
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	ts := TileSet{Depth: Depth4, Tiles: pattern(3, Depth4)}
	ts.Tiles[2][10] = 16

	b, err := Encode(ts)
	assert.True(t, errors.Is(err, ErrPixelIndexOutOfRange))
	assert.Nil(t, b)

	ts.Depth = Depth8
	_, err = Encode(ts)
	assert.NoError(t, err)
}

func TestFlip(t *testing.T) {
	var tile Tile
	tile[0] = 1  // (0, 0)
	tile[7] = 2  // (7, 0)
	tile[56] = 3 // (0, 7)

	h := tile.FlipH()
	assert.Equal(t, uint8(2), h[0])
	assert.Equal(t, uint8(1), h[7])
	assert.Equal(t, uint8(3), h[63])

	v := tile.FlipV()
	assert.Equal(t, uint8(3), v[0])
	assert.Equal(t, uint8(1), v[56])
	assert.Equal(t, uint8(2), v[63])

	assert.Equal(t, tile, tile.FlipH().FlipH())
	assert.Equal(t, tile, tile.FlipV().FlipV())
}

func TestPixels(t *testing.T) {
	tiles := make([]Tile, 4)
	for i := range tiles {
		tiles[i][9] = uint8(i + 1) // (1, 1) in each tile
	}

	pixels, err := ToPixels(tiles, 2)
	require.NoError(t, err)
	require.Len(t, pixels, 256)

	// Raster is 16 pixels wide
	assert.Equal(t, uint8(1), pixels[1*16+1])
	assert.Equal(t, uint8(2), pixels[1*16+9])
	assert.Equal(t, uint8(3), pixels[9*16+1])
	assert.Equal(t, uint8(4), pixels[9*16+9])

	got, err := FromPixels(pixels, 2)
	require.NoError(t, err)
	assert.Equal(t, tiles, got)

	_, err = ToPixels(tiles, 3)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
	_, err = FromPixels(pixels[:100], 2)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
}

func TestGrayscale(t *testing.T) {
	p := Grayscale(Depth4)
	require.Len(t, p, 16)
	assert.Equal(t, color.RGBA{0x11, 0x11, 0x11, 0xff}, p[1])
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, p[15])

	assert.Len(t, Grayscale(Depth8), 256)
}

func rahcChunk(h rahc, data []byte) ntr.Chunk {
	if h.Size == 0 {
		h.Size = uint32(len(data))
	}
	h.Offset = rahcHeader
	b := new(bytes.Buffer)
	_ = binary.Write(b, binary.LittleEndian, h)
	b.Write(data)
	return ntr.Chunk{ID: ChunkCharacter, Data: b.Bytes()}
}

func encoded(t *testing.T, n int, depth Depth) []byte {
	b, err := Encode(TileSet{Depth: depth, Tiles: pattern(n, depth)})
	require.NoError(t, err)
	return b
}

func TestNCGRRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks func(*testing.T) []ntr.Chunk
		width  int
	}{
		{
			name: "2d",
			chunks: func(t *testing.T) []ntr.Chunk {
				return []ntr.Chunk{
					rahcChunk(rahc{Height: 2, Width: 3, Format: 3}, encoded(t, 6, Depth4)),
					{ID: ChunkPosition, Data: []byte{0, 0, 0, 0, 3, 0, 2, 0}},
				}
			},
		},
		{
			name: "1d-256",
			chunks: func(t *testing.T) []ntr.Chunk {
				return []ntr.Chunk{
					rahcChunk(rahc{Height: 0xffff, Width: 0xffff, Format: 4, Mapping: uint32(Mapping1D32K), Layout: 256}, encoded(t, 4, Depth8)),
				}
			},
			width: 2,
		},
		{
			name: "bitmap",
			chunks: func(t *testing.T) []ntr.Chunk {
				return []ntr.Chunk{
					rahcChunk(rahc{Height: 2, Width: 2, Format: 3, Unknown: 7, Layout: 1}, encoded(t, 4, Depth4)),
				}
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := ntr.New(ntr.MagicTiles, ntr.Version0101, tc.chunks(t)...).Bytes()

			n, err := ReadNCGR(b)
			require.NoError(t, err)

			out, err := n.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, out)

			// Through an indexed image and back
			m, err := n.Image(nil, tc.width)
			require.NoError(t, err)

			n2, err := FromImage(m, n.Metadata())
			require.NoError(t, err)

			out, err = n2.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, out)
		})
	}
}

func TestNCGRImageLayout(t *testing.T) {
	tiles := make([]Tile, 6)
	for i := range tiles {
		tiles[i][0] = uint8(i)
	}
	md := DefaultMetadata()
	md.Width, md.Height = 3, 2

	m, err := NewNCGR(TileSet{Depth: Depth4, Tiles: tiles}, md).Image(nil, 0)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 24, 16), m.Bounds())
	assert.Equal(t, uint8(2), m.ColorIndexAt(16, 0))
	assert.Equal(t, uint8(4), m.ColorIndexAt(8, 8))

	_, err = NewNCGR(TileSet{Depth: Depth4, Tiles: tiles}, md).Image(nil, 4)
	assert.True(t, errors.Is(err, ErrInvalidWidth))
}

func TestFromImageOffset(t *testing.T) {
	m := image.NewPaletted(image.Rect(8, 8, 24, 16), Grayscale(Depth4))
	m.SetColorIndex(16, 8, 5)

	n, err := FromImage(m, DefaultMetadata())
	require.NoError(t, err)

	ts := n.TileSet()
	require.Len(t, ts.Tiles, 2)
	assert.Equal(t, uint8(5), ts.Tiles[1][0])
	assert.Equal(t, uint16(2), n.Metadata().Width)
	assert.Equal(t, uint16(1), n.Metadata().Height)

	m.SetColorIndex(8, 8, 200)
	_, err = FromImage(m, DefaultMetadata())
	assert.True(t, errors.Is(err, ErrPixelIndexOutOfRange))

	_, err = FromImage(image.NewPaletted(image.Rect(0, 0, 12, 8), nil), DefaultMetadata())
	assert.True(t, errors.Is(err, ErrInvalidWidth))
}

func TestFromImagePosition(t *testing.T) {
	m := image.NewPaletted(image.Rect(0, 0, 24, 16), Grayscale(Depth4))

	md := DefaultMetadata()
	md.Position = &Position{X: 3, Y: 2, Width: 1, Height: 1}

	n, err := FromImage(m, md)
	require.NoError(t, err)
	assert.Equal(t, &Position{X: 3, Y: 2, Width: 3, Height: 2}, n.Metadata().Position)
	assert.Equal(t, &Position{X: 3, Y: 2, Width: 1, Height: 1}, md.Position)
}

func TestNCGRErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chunk ntr.Chunk
		err   error
	}{
		{name: "truncated", chunk: rahcChunk(rahc{Format: 3, Size: 64}, make([]byte, 32)), err: ntr.ErrMalformedContainer},
		{name: "bad-format", chunk: rahcChunk(rahc{Format: 2}, make([]byte, 32)), err: ErrInvalidDepth},
		{name: "bad-mapping", chunk: rahcChunk(rahc{Format: 3, Mapping: 0x20}, make([]byte, 32)), err: ntr.ErrMalformedContainer},
		{name: "bad-layout", chunk: rahcChunk(rahc{Format: 3, Layout: 2}, make([]byte, 32)), err: ntr.ErrMalformedContainer},
		{name: "short", chunk: ntr.Chunk{ID: ChunkCharacter, Data: make([]byte, 8)}, err: ntr.ErrMalformedContainer},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadNCGR(ntr.New(ntr.MagicTiles, ntr.Version0100, tc.chunk).Bytes())
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestNCGRTruncatedTileData(t *testing.T) {
	c := rahcChunk(rahc{Format: 3}, make([]byte, 33))
	_, err := ReadNCGR(ntr.New(ntr.MagicTiles, ntr.Version0100, c).Bytes())
	assert.True(t, errors.Is(err, ErrTruncatedTileData))
}

func TestCipher(t *testing.T) {
	data := encoded(t, 2, Depth4)

	plain, key := Decipher(data)
	assert.Equal(t, []byte{0, 0}, plain[:2])
	assert.Equal(t, data, Cipher(plain, key))

	odd := append(append([]byte{}, data...), 0xaa)
	ciphered := Cipher(odd, 1234)
	assert.Equal(t, byte(0xaa), ciphered[len(ciphered)-1])

	n := NewNCGR(TileSet{Depth: Depth4, Tiles: pattern(2, Depth4)}, DefaultMetadata())
	plainN, key, err := n.Decipher()
	require.NoError(t, err)
	back, err := plainN.Cipher(key)
	require.NoError(t, err)
	assert.Equal(t, n.TileSet(), back.TileSet())
}
