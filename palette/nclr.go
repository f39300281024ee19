package palette

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bodgit/nitro/ntr"
)

// Chunk identifiers used by NCLR files.
const (
	ChunkPalette  = "TTLP"
	ChunkIndexes  = "PMCP"
	ttlpHeader    = 0x10
	pmcpHeader    = 8
	pmcpSignature = 0xbeef
	invertBase    = 0x200
)

// Format is the texture format code stored in the palette chunk.
type Format uint16

// Supported texture formats.
const (
	Format16  Format = 3
	Format256 Format = 4
)

// Colors returns the number of colours in a bank of this format.
func (f Format) Colors() int {
	switch f {
	case Format16:
		return 16
	case Format256:
		return 256
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case Format16:
		return "16 colors"
	case Format256:
		return "256 colors"
	}
	return fmt.Sprintf("format %d", uint16(f))
}

// Metadata holds the NCLR header fields that are not colour data.
type Metadata struct {
	Version  ntr.Version
	Format   Format
	Unknown  uint16
	Extended bool
	// InvertSize records that the data size field was stored as 0x200
	// minus the real size.
	InvertSize bool
	// HighBit records that the unused top bit of each colour is set.
	HighBit bool
	// Indexes holds the PMCP palette index table. A nil slice means the
	// chunk is absent.
	Indexes []uint16
}

// DefaultMetadata returns the metadata used for palettes that did not come
// from an NCLR file.
func DefaultMetadata() Metadata {
	return Metadata{
		Version: ntr.Version0100,
		Format:  Format16,
	}
}

// NCLR is a decoded palette container.
type NCLR struct {
	metadata Metadata
	palette  Palette
}

type ttlp struct {
	Format   uint16
	Unknown  uint16
	Extended uint32
	Size     uint32
	Offset   uint32
}

type pmcp struct {
	Count     uint16
	Signature uint16
	Offset    uint32
}

// NewNCLR returns an NCLR holding a copy of p.
func NewNCLR(p Palette, m Metadata) *NCLR {
	return &NCLR{
		metadata: cloneMetadata(m),
		palette:  append(Palette(nil), p...),
	}
}

// ReadNCLR decodes an NCLR file.
func ReadNCLR(b []byte) (*NCLR, error) {
	c, err := ntr.Parse(b)
	if err != nil {
		return nil, err
	}
	return FromContainer(c)
}

// FromContainer decodes the chunks of an already parsed container.
func FromContainer(c *ntr.Container) (*NCLR, error) {
	if c.Magic != ntr.MagicPalette {
		return nil, ntr.Malformed(c.Magic, "", "not a palette")
	}

	chunk, ok := c.Chunk(ChunkPalette)
	if !ok {
		return nil, ntr.Malformed(c.Magic, ChunkPalette, "missing chunk")
	}

	n := &NCLR{
		metadata: Metadata{Version: c.Version},
	}
	if err := n.decodePalette(chunk.Data); err != nil {
		return nil, ntr.Wrap(c.Magic, ChunkPalette, err)
	}

	if chunk, ok := c.Chunk(ChunkIndexes); ok {
		indexes, err := decodeIndexes(chunk.Data)
		if err != nil {
			return nil, ntr.Wrap(c.Magic, ChunkIndexes, err)
		}
		n.metadata.Indexes = indexes
	}

	return n, nil
}

func (n *NCLR) decodePalette(b []byte) error {
	var h ttlp
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return err
	}

	switch Format(h.Format) {
	case Format16, Format256:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.Format)
	}
	if h.Extended > 1 {
		return fmt.Errorf("%w: extended flag %d", ntr.ErrMalformedContainer, h.Extended)
	}
	if h.Offset != ttlpHeader {
		return fmt.Errorf("%w: colour data offset 0x%x", ntr.ErrMalformedContainer, h.Offset)
	}

	data := b[ttlpHeader:]

	// The container pads the chunk to 4 bytes, so the stored size may be
	// up to 3 bytes short of the payload
	fits := func(size uint32) bool {
		return int64(size) <= int64(len(data)) && len(data)-int(size) < 4
	}

	var invert bool
	size := h.Size
	switch {
	case fits(size):
	case fits(invertBase - size):
		size = invertBase - size
		invert = true
	default:
		return fmt.Errorf("%w: colour data size 0x%x, have 0x%x bytes", ntr.ErrMalformedContainer, h.Size, len(data))
	}

	p, err := Decode(data[:size])
	if err != nil {
		return err
	}

	n.palette = p
	n.metadata.Format = Format(h.Format)
	n.metadata.Unknown = h.Unknown
	n.metadata.Extended = h.Extended == 1
	n.metadata.InvertSize = invert
	n.metadata.HighBit = HasHighBit(data[:size])

	return nil
}

func decodeIndexes(b []byte) ([]uint16, error) {
	var h pmcp
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Signature != pmcpSignature || h.Offset != pmcpHeader {
		return nil, fmt.Errorf("%w: bad index table header", ntr.ErrMalformedContainer)
	}

	indexes := make([]uint16, h.Count)
	if err := binary.Read(r, binary.LittleEndian, indexes); err != nil {
		return nil, err
	}

	return indexes, nil
}

// Palette returns a copy of the colours.
func (n *NCLR) Palette() Palette {
	return append(Palette(nil), n.palette...)
}

// Metadata returns a copy of the header fields.
func (n *NCLR) Metadata() Metadata {
	return cloneMetadata(n.metadata)
}

// Bank returns the n'th bank of colours sized according to the texture
// format, or nil if the palette does not have that many banks.
func (n *NCLR) Bank(i int) Palette {
	return n.palette.Bank(i, n.metadata.Format.Colors())
}

// Container assembles the chunks of the NCLR.
func (n *NCLR) Container() (*ntr.Container, error) {
	switch n.metadata.Format {
	case Format16, Format256:
	default:
		return nil, ntr.Wrap(ntr.MagicPalette, ChunkPalette, fmt.Errorf("%w: %d", ErrUnsupportedFormat, n.metadata.Format))
	}

	colors := Encode(n.palette, 0, n.metadata.HighBit)

	size := uint32(len(colors))
	if n.metadata.InvertSize {
		size = invertBase - size
	}

	h := ttlp{
		Format:  uint16(n.metadata.Format),
		Unknown: n.metadata.Unknown,
		Size:    size,
		Offset:  ttlpHeader,
	}
	if n.metadata.Extended {
		h.Extended = 1
	}

	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	b.Write(colors)

	chunks := []ntr.Chunk{{ID: ChunkPalette, Data: b.Bytes()}}

	if n.metadata.Indexes != nil {
		if len(n.metadata.Indexes) > 0xffff {
			return nil, ntr.Malformed(ntr.MagicPalette, ChunkIndexes, "%d indexes", len(n.metadata.Indexes))
		}
		b := new(bytes.Buffer)
		if err := binary.Write(b, binary.LittleEndian, pmcp{
			Count:     uint16(len(n.metadata.Indexes)),
			Signature: pmcpSignature,
			Offset:    pmcpHeader,
		}); err != nil {
			return nil, err
		}
		if err := binary.Write(b, binary.LittleEndian, n.metadata.Indexes); err != nil {
			return nil, err
		}
		chunks = append(chunks, ntr.Chunk{ID: ChunkIndexes, Data: b.Bytes()})
	}

	return ntr.New(ntr.MagicPalette, n.metadata.Version, chunks...), nil
}

// MarshalBinary encodes the NCLR into binary form and returns the result.
func (n *NCLR) MarshalBinary() ([]byte, error) {
	c, err := n.Container()
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// UnmarshalBinary decodes the NCLR from binary form.
func (n *NCLR) UnmarshalBinary(b []byte) error {
	nclr, err := ReadNCLR(b)
	if err != nil {
		return err
	}
	*n = *nclr
	return nil
}

func cloneMetadata(m Metadata) Metadata {
	if m.Indexes != nil {
		m.Indexes = append([]uint16{}, m.Indexes...)
	}
	return m
}
