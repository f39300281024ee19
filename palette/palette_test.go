package palette

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"github.com/bodgit/nitro/ntr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ttlpChunk(format uint16, size uint32, colors []uint16) ntr.Chunk {
	b := new(bytes.Buffer)
	_ = binary.Write(b, binary.LittleEndian, ttlp{
		Format: format,
		Size:   size,
		Offset: ttlpHeader,
	})
	_ = binary.Write(b, binary.LittleEndian, colors)
	return ntr.Chunk{ID: ChunkPalette, Data: b.Bytes()}
}

func reds(n int, word uint16) []uint16 {
	colors := make([]uint16, n)
	for i := range colors {
		colors[i] = word
	}
	return colors
}

func TestColorScaling(t *testing.T) {
	c := NewColor(31, 0, 0)
	r, g, b := c.RGB8()
	assert.Equal(t, [3]uint8{248, 0, 0}, [3]uint8{r, g, b})
	assert.Equal(t, c, FromRGB8(r, g, b))

	for v := uint8(0); v < 32; v++ {
		c := NewColor(v, 31-v, v/2)
		assert.Equal(t, c, FromRGB8(c.RGB8()))
	}

	assert.Equal(t, NewColor(31, 16, 0), Model.Convert(color.RGBA{255, 128, 7, 255}))

	r32, _, _, a32 := c.RGBA()
	assert.Equal(t, uint32(248*0x101), r32)
	assert.Equal(t, uint32(0xffff), a32)
}

func TestDecodeEncode(t *testing.T) {
	b := []byte{0x1f, 0x00, 0xe0, 0x03, 0x00, 0x7c, 0xff, 0xff}

	p, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Palette{NewColor(31, 0, 0), NewColor(0, 31, 0), NewColor(0, 0, 31), NewColor(31, 31, 31)}, p)
	assert.True(t, HasHighBit(b))

	assert.Equal(t, []byte{0x1f, 0x00, 0xe0, 0x03, 0x00, 0x7c, 0xff, 0x7f}, Encode(p, 0, false))
	assert.Len(t, Encode(p, 16, false), 32)
	assert.Len(t, Encode(p, 2, false), 4)

	_, err = Decode([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrInvalidPaletteLength))
}

func TestColorPalette(t *testing.T) {
	p := Palette{NewColor(1, 2, 3), NewColor(31, 31, 31)}
	cp := p.ColorPalette()
	assert.Equal(t, color.RGBA{8, 16, 24, 255}, cp[0])
	assert.Equal(t, p, FromColorPalette(cp))

	i, ok := p.Index(NewColor(31, 31, 31))
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = p.Index(NewColor(0, 0, 0))
	assert.False(t, ok)
}

func TestBank(t *testing.T) {
	p := make(Palette, 32)
	p[17] = NewColor(5, 5, 5)

	bank := p.Bank(1, 16)
	require.Len(t, bank, 16)
	assert.Equal(t, NewColor(5, 5, 5), bank[1])
	assert.Nil(t, p.Bank(2, 16))
	assert.Nil(t, p.Bank(-1, 16))
}

func TestSixteenReds(t *testing.T) {
	b := ntr.New(ntr.MagicPalette, ntr.Version0100, ttlpChunk(3, 32, reds(16, 0x001f))).Bytes()

	n, err := ReadNCLR(b)
	require.NoError(t, err)

	p := n.Palette()
	require.Len(t, p, 16)
	for _, c := range p {
		r, g, b := c.RGB8()
		assert.Equal(t, [3]uint8{248, 0, 0}, [3]uint8{r, g, b})
	}

	out, err := n.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, b, out)
}

func TestNCLRRoundTrip(t *testing.T) {
	t.Parallel()

	indexes := ntr.Chunk{ID: ChunkIndexes, Data: []byte{2, 0, 0xef, 0xbe, 8, 0, 0, 0, 0, 0, 1, 0}}

	tests := []struct {
		name    string
		version ntr.Version
		chunks  []ntr.Chunk
		check   func(*testing.T, Metadata)
	}{
		{
			name:    "plain",
			version: ntr.Version0100,
			chunks:  []ntr.Chunk{ttlpChunk(3, 32, reds(16, 0x001f))},
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, Format16, m.Format)
				assert.False(t, m.InvertSize)
				assert.Nil(t, m.Indexes)
			},
		},
		{
			name:    "inverted-size",
			version: ntr.Version0100,
			chunks:  []ntr.Chunk{ttlpChunk(4, 0x200-64, reds(32, 0x7c00))},
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, Format256, m.Format)
				assert.True(t, m.InvertSize)
			},
		},
		{
			name:    "high-bit",
			version: ntr.Version0101,
			chunks:  []ntr.Chunk{ttlpChunk(3, 8, reds(4, 0x801f))},
			check: func(t *testing.T, m Metadata) {
				assert.True(t, m.HighBit)
				assert.Equal(t, ntr.Version0101, m.Version)
			},
		},
		{
			name:    "index-table",
			version: ntr.Version0100,
			chunks:  []ntr.Chunk{ttlpChunk(3, 64, reds(32, 0x03e0)), indexes},
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, []uint16{0, 1}, m.Indexes)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := ntr.New(ntr.MagicPalette, tc.version, tc.chunks...).Bytes()

			n, err := ReadNCLR(b)
			require.NoError(t, err)
			tc.check(t, n.Metadata())

			out, err := n.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, out)
		})
	}
}

func TestNCLROddCount(t *testing.T) {
	p := Palette{NewColor(1, 1, 1), NewColor(2, 2, 2), NewColor(3, 3, 3)}

	b, err := NewNCLR(p, DefaultMetadata()).MarshalBinary()
	require.NoError(t, err)

	n, err := ReadNCLR(b)
	require.NoError(t, err)
	assert.Equal(t, p, n.Palette())
}

func TestNCLRErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks []ntr.Chunk
		err    error
	}{
		{name: "missing-chunk", err: ntr.ErrMalformedContainer},
		{name: "short-header", chunks: []ntr.Chunk{{ID: ChunkPalette, Data: []byte{3, 0, 0, 0}}}, err: ntr.ErrMalformedContainer},
		{name: "odd-size", chunks: []ntr.Chunk{ttlpChunk(3, 3, reds(2, 0))}, err: ErrInvalidPaletteLength},
		{name: "bad-size", chunks: []ntr.Chunk{ttlpChunk(3, 0x40, reds(2, 0))}, err: ntr.ErrMalformedContainer},
		{name: "bad-format", chunks: []ntr.Chunk{ttlpChunk(5, 4, reds(2, 0))}, err: ErrUnsupportedFormat},
		{name: "bad-index-table", chunks: []ntr.Chunk{
			ttlpChunk(3, 4, reds(2, 0)),
			{ID: ChunkIndexes, Data: []byte{1, 0, 0, 0, 8, 0, 0, 0, 0, 0}},
		}, err: ntr.ErrMalformedContainer},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := ntr.New(ntr.MagicPalette, ntr.Version0100, tc.chunks...).Bytes()
			_, err := ReadNCLR(b)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)

			var se *ntr.SectionError
			assert.True(t, errors.As(err, &se))
		})
	}

	_, err := ReadNCLR(ntr.New(ntr.MagicTiles, ntr.Version0100).Bytes())
	assert.True(t, errors.Is(err, ntr.ErrMalformedContainer))
}

func TestNCLRBank(t *testing.T) {
	p := make(Palette, 32)
	p[16] = NewColor(31, 31, 0)

	n := NewNCLR(p, DefaultMetadata())
	assert.Equal(t, NewColor(31, 31, 0), n.Bank(1)[0])
	assert.Nil(t, n.Bank(2))

	m := DefaultMetadata()
	m.Format = Format256
	assert.Nil(t, NewNCLR(p, m).Bank(0))
}
