package tile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bodgit/nitro/ntr"
)

// Chunk identifiers used by NCGR files.
const (
	ChunkCharacter = "RAHC"
	ChunkPosition  = "SOPC"
	rahcHeader     = 0x18
	oneDimensional = 0xffff
)

// Mapping is the character mapping mode stored in the character chunk.
type Mapping uint32

// Supported mapping modes.
const (
	Mapping2D      Mapping = 0
	Mapping1D32K   Mapping = 0x000010
	Mapping1D64K   Mapping = 0x100010
	Mapping1D128K  Mapping = 0x200010
	Mapping1D256K  Mapping = 0x300010
	mappingUnknown Mapping = 0xffffffff
)

func (m Mapping) valid() bool {
	switch m {
	case Mapping2D, Mapping1D32K, Mapping1D64K, Mapping1D128K, Mapping1D256K:
		return true
	}
	return false
}

// OneDimensional reports whether tiles are laid out without a fixed width.
func (m Mapping) OneDimensional() bool {
	return m != Mapping2D
}

func (m Mapping) String() string {
	switch m {
	case Mapping2D:
		return "2D"
	case Mapping1D32K:
		return "1D/32K"
	case Mapping1D64K:
		return "1D/64K"
	case Mapping1D128K:
		return "1D/128K"
	case Mapping1D256K:
		return "1D/256K"
	}
	return fmt.Sprintf("0x%08x", uint32(m))
}

// ParseMapping returns the mapping for a name returned by String.
func ParseMapping(s string) (Mapping, error) {
	for _, m := range []Mapping{Mapping2D, Mapping1D32K, Mapping1D64K, Mapping1D128K, Mapping1D256K} {
		if m.String() == s {
			return m, nil
		}
	}
	return mappingUnknown, fmt.Errorf("tile: unknown mapping %q", s)
}

// CharacterFormat describes how pixel data is ordered.
type CharacterFormat uint32

// Supported character formats.
const (
	// Tiled data is stored one 8 by 8 tile after another.
	Tiled CharacterFormat = 0
	// Bitmap data is stored in scanline order.
	Bitmap CharacterFormat = 1
	// Tiled256 is stored as Tiled.
	Tiled256 CharacterFormat = 256
)

func (f CharacterFormat) valid() bool {
	return f == Tiled || f == Bitmap || f == Tiled256
}

// Position is the content of the optional SOPC chunk.
type Position struct {
	X, Y          uint16
	Width, Height uint16
}

// Metadata holds the NCGR header fields that are not pixel data.
type Metadata struct {
	Version ntr.Version
	Depth   Depth
	// Width and Height are in tiles. Both are 0xFFFF for 1D mappings.
	Width, Height uint16
	Unknown       uint16
	Mapping       Mapping
	Format        CharacterFormat
	// Position is nil when there is no SOPC chunk.
	Position *Position
}

// DefaultMetadata returns the metadata used for tiles that did not come from
// an NCGR file.
func DefaultMetadata() Metadata {
	return Metadata{
		Version: ntr.Version0100,
		Depth:   Depth4,
		Mapping: Mapping2D,
		Format:  Tiled,
	}
}

func (m Metadata) clone() Metadata {
	if m.Position != nil {
		p := *m.Position
		m.Position = &p
	}
	return m
}

// NCGR is a decoded character container.
type NCGR struct {
	metadata Metadata
	tiles    []Tile
}

type rahc struct {
	Height  uint16
	Width   uint16
	Format  uint16
	Unknown uint16
	Mapping uint32
	Layout  uint32
	Size    uint32
	Offset  uint32
}

func depthFromFormat(f uint16) (Depth, error) {
	switch f {
	case 3:
		return Depth4, nil
	case 4:
		return Depth8, nil
	}
	return 0, fmt.Errorf("%w: texture format %d", ErrInvalidDepth, f)
}

func formatFromDepth(d Depth) uint16 {
	if d == Depth8 {
		return 4
	}
	return 3
}

// NewNCGR returns an NCGR holding a copy of the tiles in ts. The depth of ts
// overrides any depth in m.
func NewNCGR(ts TileSet, m Metadata) *NCGR {
	m = m.clone()
	m.Depth = ts.Depth
	return &NCGR{
		metadata: m,
		tiles:    append([]Tile(nil), ts.Tiles...),
	}
}

// ReadNCGR decodes an NCGR file.
func ReadNCGR(b []byte) (*NCGR, error) {
	c, err := ntr.Parse(b)
	if err != nil {
		return nil, err
	}
	return FromContainer(c)
}

// FromContainer decodes the chunks of an already parsed container.
func FromContainer(c *ntr.Container) (*NCGR, error) {
	if c.Magic != ntr.MagicTiles {
		return nil, ntr.Malformed(c.Magic, "", "not a character file")
	}

	chunk, ok := c.Chunk(ChunkCharacter)
	if !ok {
		return nil, ntr.Malformed(c.Magic, ChunkCharacter, "missing chunk")
	}

	n := &NCGR{
		metadata: Metadata{Version: c.Version},
	}
	if err := n.decodeCharacters(chunk.Data); err != nil {
		return nil, ntr.Wrap(c.Magic, ChunkCharacter, err)
	}

	if chunk, ok := c.Chunk(ChunkPosition); ok {
		p := new(Position)
		if err := binary.Read(bytes.NewReader(chunk.Data), binary.LittleEndian, p); err != nil {
			return nil, ntr.Wrap(c.Magic, ChunkPosition, err)
		}
		n.metadata.Position = p
	}

	return n, nil
}

func (n *NCGR) decodeCharacters(b []byte) error {
	var h rahc
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return err
	}

	depth, err := depthFromFormat(h.Format)
	if err != nil {
		return err
	}
	if !Mapping(h.Mapping).valid() {
		return fmt.Errorf("%w: mapping type 0x%08x", ntr.ErrMalformedContainer, h.Mapping)
	}
	if !CharacterFormat(h.Layout).valid() {
		return fmt.Errorf("%w: character format %d", ntr.ErrMalformedContainer, h.Layout)
	}
	if h.Offset != rahcHeader {
		return fmt.Errorf("%w: character data offset 0x%x", ntr.ErrMalformedContainer, h.Offset)
	}

	data := b[rahcHeader:]
	if int64(h.Size) > int64(len(data)) || len(data)-int(h.Size) >= 4 {
		return fmt.Errorf("%w: character data size 0x%x, have 0x%x bytes", ntr.ErrMalformedContainer, h.Size, len(data))
	}

	ts, err := Decode(data[:h.Size], depth)
	if err != nil {
		return err
	}

	n.tiles = ts.Tiles
	n.metadata.Depth = depth
	n.metadata.Width = h.Width
	n.metadata.Height = h.Height
	n.metadata.Unknown = h.Unknown
	n.metadata.Mapping = Mapping(h.Mapping)
	n.metadata.Format = CharacterFormat(h.Layout)

	return nil
}

// TileSet returns a copy of the tiles.
func (n *NCGR) TileSet() TileSet {
	return TileSet{
		Depth: n.metadata.Depth,
		Tiles: append([]Tile(nil), n.tiles...),
	}
}

// Metadata returns a copy of the header fields.
func (n *NCGR) Metadata() Metadata {
	return n.metadata.clone()
}

// Container assembles the chunks of the NCGR.
func (n *NCGR) Container() (*ntr.Container, error) {
	if !n.metadata.Mapping.valid() {
		return nil, ntr.Malformed(ntr.MagicTiles, ChunkCharacter, "mapping type 0x%08x", uint32(n.metadata.Mapping))
	}
	if !n.metadata.Format.valid() {
		return nil, ntr.Malformed(ntr.MagicTiles, ChunkCharacter, "character format %d", n.metadata.Format)
	}

	data, err := Encode(n.TileSet())
	if err != nil {
		return nil, ntr.Wrap(ntr.MagicTiles, ChunkCharacter, err)
	}

	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, rahc{
		Height:  n.metadata.Height,
		Width:   n.metadata.Width,
		Format:  formatFromDepth(n.metadata.Depth),
		Unknown: n.metadata.Unknown,
		Mapping: uint32(n.metadata.Mapping),
		Layout:  uint32(n.metadata.Format),
		Size:    uint32(len(data)),
		Offset:  rahcHeader,
	}); err != nil {
		return nil, err
	}
	b.Write(data)

	chunks := []ntr.Chunk{{ID: ChunkCharacter, Data: b.Bytes()}}

	if n.metadata.Position != nil {
		b := new(bytes.Buffer)
		if err := binary.Write(b, binary.LittleEndian, n.metadata.Position); err != nil {
			return nil, err
		}
		chunks = append(chunks, ntr.Chunk{ID: ChunkPosition, Data: b.Bytes()})
	}

	return ntr.New(ntr.MagicTiles, n.metadata.Version, chunks...), nil
}

// MarshalBinary encodes the NCGR into binary form and returns the result.
func (n *NCGR) MarshalBinary() ([]byte, error) {
	c, err := n.Container()
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// UnmarshalBinary decodes the NCGR from binary form.
func (n *NCGR) UnmarshalBinary(b []byte) error {
	ncgr, err := ReadNCGR(b)
	if err != nil {
		return err
	}
	*n = *ncgr
	return nil
}

// Cipher returns a copy of the NCGR with the character data obfuscated
// using key.
func (n *NCGR) Cipher(key uint32) (*NCGR, error) {
	return n.transform(func(b []byte) []byte {
		return Cipher(b, key)
	})
}

// Decipher returns a copy of the NCGR with the character data restored,
// along with the key that Cipher needs to reverse it.
func (n *NCGR) Decipher() (*NCGR, uint32, error) {
	var key uint32
	out, err := n.transform(func(b []byte) []byte {
		var plain []byte
		plain, key = Decipher(b)
		return plain
	})
	return out, key, err
}

func (n *NCGR) transform(f func([]byte) []byte) (*NCGR, error) {
	b, err := Encode(n.TileSet())
	if err != nil {
		return nil, err
	}
	ts, err := Decode(f(b), n.metadata.Depth)
	if err != nil {
		return nil, err
	}
	return &NCGR{
		metadata: n.metadata.clone(),
		tiles:    ts.Tiles,
	}, nil
}
