package screen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	"github.com/bodgit/nitro/ntr"
	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/tile"
)

// ChunkScreen is the identifier of the screen chunk.
const (
	ChunkScreen = "NRCS"
	nrcsHeader  = 12
	tileSize    = 8
)

// ColorMode is the colour mode stored in the screen chunk.
type ColorMode uint16

// Colour modes.
const (
	Color16       ColorMode = 0
	Color256      ColorMode = 1
	Color256Ext   ColorMode = 2
	colorModeLast           = Color256Ext
)

// Depth returns the tile depth the mode implies.
func (c ColorMode) Depth() tile.Depth {
	if c == Color16 {
		return tile.Depth4
	}
	return tile.Depth8
}

// Background is the background type stored in the screen chunk.
type Background uint16

// Background types.
const (
	Text        Background = 0
	Affine      Background = 1
	AffineExt   Background = 2
	bgTypeCount            = 3
)

// Metadata holds the NSCR header fields that are not entries.
type Metadata struct {
	Version    ntr.Version
	ColorMode  ColorMode
	Background Background
}

// DefaultMetadata returns the metadata used for tilemaps that did not come
// from an NSCR file.
func DefaultMetadata() Metadata {
	return Metadata{
		Version:    ntr.Version0100,
		ColorMode:  Color16,
		Background: Text,
	}
}

// NSCR is a decoded screen container.
type NSCR struct {
	metadata Metadata
	tilemap  Tilemap
}

type nrcs struct {
	Width      uint16
	Height     uint16
	ColorMode  uint16
	Background uint16
	Size       uint32
}

// NewNSCR returns an NSCR holding a copy of tm.
func NewNSCR(tm Tilemap, m Metadata) *NSCR {
	tm.Entries = append([]Entry(nil), tm.Entries...)
	return &NSCR{
		metadata: m,
		tilemap:  tm,
	}
}

// ReadNSCR decodes an NSCR file.
func ReadNSCR(b []byte) (*NSCR, error) {
	c, err := ntr.Parse(b)
	if err != nil {
		return nil, err
	}
	return FromContainer(c)
}

// FromContainer decodes the chunks of an already parsed container.
func FromContainer(c *ntr.Container) (*NSCR, error) {
	if c.Magic != ntr.MagicScreen {
		return nil, ntr.Malformed(c.Magic, "", "not a screen file")
	}

	chunk, ok := c.Chunk(ChunkScreen)
	if !ok {
		return nil, ntr.Malformed(c.Magic, ChunkScreen, "missing chunk")
	}

	n := &NSCR{
		metadata: Metadata{Version: c.Version},
	}
	if err := n.decodeScreen(chunk.Data); err != nil {
		return nil, ntr.Wrap(c.Magic, ChunkScreen, err)
	}

	return n, nil
}

func (n *NSCR) decodeScreen(b []byte) error {
	var h nrcs
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return err
	}

	if h.Width%tileSize != 0 || h.Height%tileSize != 0 {
		return fmt.Errorf("%w: %dx%d pixels is not a whole number of tiles", ntr.ErrMalformedContainer, h.Width, h.Height)
	}
	if ColorMode(h.ColorMode) > colorModeLast {
		return fmt.Errorf("%w: colour mode %d", ntr.ErrMalformedContainer, h.ColorMode)
	}
	if h.Background >= bgTypeCount {
		return fmt.Errorf("%w: background type %d", ntr.ErrMalformedContainer, h.Background)
	}

	data := b[nrcsHeader:]
	if int64(h.Size) > int64(len(data)) || len(data)-int(h.Size) >= 4 {
		return fmt.Errorf("%w: screen data size 0x%x, have 0x%x bytes", ntr.ErrMalformedContainer, h.Size, len(data))
	}

	entries, err := DecodeEntries(data[:h.Size], Background(h.Background) == Affine)
	if err != nil {
		return err
	}

	tm := Tilemap{
		Width:   int(h.Width) / tileSize,
		Height:  int(h.Height) / tileSize,
		Entries: entries,
	}
	if err := tm.Validate(); err != nil {
		return err
	}

	n.tilemap = tm
	n.metadata.ColorMode = ColorMode(h.ColorMode)
	n.metadata.Background = Background(h.Background)

	return nil
}

// Tilemap returns a copy of the tilemap.
func (n *NSCR) Tilemap() Tilemap {
	tm := n.tilemap
	tm.Entries = append([]Entry(nil), tm.Entries...)
	return tm
}

// Metadata returns the header fields.
func (n *NSCR) Metadata() Metadata {
	return n.metadata
}

// Render composes the tilemap with ts and p. See Render.
func (n *NSCR) Render(ts tile.TileSet, p palette.Palette) (*image.Paletted, error) {
	return Render(n.tilemap, ts, p)
}

// Container assembles the chunks of the NSCR.
func (n *NSCR) Container() (*ntr.Container, error) {
	tm := n.tilemap
	if err := tm.Validate(); err != nil {
		return nil, ntr.Wrap(ntr.MagicScreen, ChunkScreen, err)
	}
	if tm.Width*tileSize > 0xffff || tm.Height*tileSize > 0xffff {
		return nil, ntr.Malformed(ntr.MagicScreen, ChunkScreen, "%dx%d tiles is too large", tm.Width, tm.Height)
	}

	data, err := EncodeEntries(tm.Entries, n.metadata.Background == Affine)
	if err != nil {
		return nil, ntr.Wrap(ntr.MagicScreen, ChunkScreen, err)
	}

	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, nrcs{
		Width:      uint16(tm.Width * tileSize),
		Height:     uint16(tm.Height * tileSize),
		ColorMode:  uint16(n.metadata.ColorMode),
		Background: uint16(n.metadata.Background),
		Size:       uint32(len(data)),
	}); err != nil {
		return nil, err
	}
	b.Write(data)

	return ntr.New(ntr.MagicScreen, n.metadata.Version, ntr.Chunk{ID: ChunkScreen, Data: b.Bytes()}), nil
}

// MarshalBinary encodes the NSCR into binary form and returns the result.
func (n *NSCR) MarshalBinary() ([]byte, error) {
	c, err := n.Container()
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// UnmarshalBinary decodes the NSCR from binary form.
func (n *NSCR) UnmarshalBinary(b []byte) error {
	nscr, err := ReadNSCR(b)
	if err != nil {
		return err
	}
	*n = *nscr
	return nil
}
