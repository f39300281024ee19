package cell

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bodgit/nitro/ntr"
)

// Chunk identifiers used by NCER files.
const (
	ChunkCells     = "KBEC"
	ChunkExtension = "TXEU"
	userMagic      = "TACU"
)

const (
	kbecHeader    = 0x18
	cellEntry     = 8
	rectSize      = 8
	objectSize    = 6
	vramHeader    = 8
	userHeader    = 16
	transferSize  = 8
	userTableBase = 8
)

// Mapping is the character mapping mode stored in the cell bank.
type Mapping uint32

// Mapping modes.
const (
	Mapping1D32K Mapping = iota
	Mapping1D64K
	Mapping1D128K
	Mapping1D256K
	Mapping2D
)

var mappingNames = [...]string{"1D/32K", "1D/64K", "1D/128K", "1D/256K", "2D"}

func (m Mapping) String() string {
	if int(m) < len(mappingNames) {
		return mappingNames[m]
	}
	return fmt.Sprintf("mapping(%d)", uint32(m))
}

// NCER is a decoded cell bank.
type NCER struct {
	Version ntr.Version
	Mapping Mapping
	// Rects records that every cell carries a bounding rectangle.
	Rects bool
	// VRAMMaxSize is the largest transfer in the VRAM transfer table. The
	// table is present when HasVRAM is true.
	HasVRAM     bool
	VRAMMaxSize uint32
	// UserAttributes records that a TACU user extended attribute table is
	// present.
	UserAttributes bool
	Cells          []Cell
	// Labels is nil when there is no LBAL chunk.
	Labels []string
	// Extension is the raw TXEU payload, nil when the chunk is absent.
	Extension []byte
}

type kbec struct {
	Count      uint16
	Attributes uint16
	CellOffset uint32
	Mapping    uint32
	VRAMOffset uint32
	Reserved   uint32
	UserOffset uint32
}

type cellHeader struct {
	Objects    uint16
	Attributes uint16
	Offset     uint32
}

// ReadNCER decodes an NCER file.
func ReadNCER(b []byte) (*NCER, error) {
	c, err := ntr.Parse(b)
	if err != nil {
		return nil, err
	}
	return FromContainer(c)
}

// FromContainer decodes the chunks of an already parsed container.
func FromContainer(c *ntr.Container) (*NCER, error) {
	if c.Magic != ntr.MagicCells {
		return nil, ntr.Malformed(c.Magic, "", "not a cell file")
	}

	chunk, ok := c.Chunk(ChunkCells)
	if !ok {
		return nil, ntr.Malformed(c.Magic, ChunkCells, "missing chunk")
	}

	n := &NCER{Version: c.Version}
	if err := n.decodeCells(chunk.Data); err != nil {
		return nil, ntr.Wrap(c.Magic, ChunkCells, err)
	}

	if chunk, ok := c.Chunk(ntr.ChunkLabels); ok {
		labels, err := ntr.DecodeLabels(chunk.Data)
		if err != nil {
			return nil, ntr.Wrap(c.Magic, ntr.ChunkLabels, err)
		}
		n.Labels = labels
	}

	if chunk, ok := c.Chunk(ChunkExtension); ok {
		n.Extension = append([]byte{}, chunk.Data...)
	}

	return n, nil
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ntr.ErrMalformedContainer}, a...)...)
}

func (n *NCER) decodeCells(b []byte) error {
	var h kbec
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return err
	}

	switch {
	case h.Attributes > 1:
		return malformed("bank attributes 0x%04x", h.Attributes)
	case h.CellOffset != kbecHeader:
		return malformed("cell data offset 0x%x", h.CellOffset)
	case h.Mapping > uint32(Mapping2D):
		return malformed("mapping type %d", h.Mapping)
	case h.Reserved != 0:
		return malformed("reserved field 0x%x", h.Reserved)
	}

	n.Mapping = Mapping(h.Mapping)
	n.Rects = h.Attributes == 1

	entry := cellEntry
	if n.Rects {
		entry += rectSize
	}

	count := int(h.Count)
	table := kbecHeader + count*entry
	if table > len(b) {
		return malformed("cell table needs %d bytes, have %d", table, len(b))
	}

	n.Cells = make([]Cell, count)
	for i := range n.Cells {
		r := bytes.NewReader(b[kbecHeader+i*entry:])

		var ch cellHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			return err
		}

		cell := &n.Cells[i]

		attributes, err := unpackAttributes(ch.Attributes)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		cell.Attributes = attributes

		if n.Rects {
			cell.Rect = new(Rect)
			if err := binary.Read(r, binary.LittleEndian, cell.Rect); err != nil {
				return err
			}
		}

		start := int64(table) + int64(ch.Offset)
		end := start + int64(ch.Objects)*objectSize
		if end > int64(len(b)) {
			return malformed("cell %d: objects overrun chunk", i)
		}

		attrs := make([]uint16, int(ch.Objects)*3)
		if err := binary.Read(bytes.NewReader(b[start:end]), binary.LittleEndian, attrs); err != nil {
			return err
		}

		cell.Objects = make([]Object, ch.Objects)
		for j := range cell.Objects {
			o, err := unpackObject(attrs[j*3], attrs[j*3+1], attrs[j*3+2])
			if err != nil {
				return fmt.Errorf("cell %d object %d: %w", i, j, err)
			}
			cell.Objects[j] = o
		}
	}

	if h.VRAMOffset != 0 {
		if err := n.decodeVRAM(b, int64(h.VRAMOffset)); err != nil {
			return err
		}
	}

	if h.UserOffset != 0 {
		if err := n.decodeUser(b, int64(h.UserOffset)); err != nil {
			return err
		}
	}

	return nil
}

func (n *NCER) decodeVRAM(b []byte, offset int64) error {
	if offset > int64(len(b)) {
		return malformed("VRAM transfer table offset 0x%x", offset)
	}
	r := bytes.NewReader(b[offset:])

	var h struct {
		MaxSize uint32
		Offset  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return err
	}
	if h.Offset != vramHeader {
		return malformed("VRAM transfer data offset 0x%x", h.Offset)
	}

	for i := range n.Cells {
		t := new(Transfer)
		if err := binary.Read(r, binary.LittleEndian, t); err != nil {
			return err
		}
		n.Cells[i].Transfer = t
	}

	n.HasVRAM = true
	n.VRAMMaxSize = h.MaxSize

	return nil
}

func (n *NCER) decodeUser(b []byte, offset int64) error {
	if offset > int64(len(b)) {
		return malformed("user extended attribute offset 0x%x", offset)
	}
	b = b[offset:]
	r := bytes.NewReader(b)

	var h struct {
		Magic   [4]byte
		Size    uint32
		Count   uint16
		Unknown uint16
		Offset  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return err
	}

	count := len(n.Cells)
	switch {
	case string(h.Magic[:]) != userMagic:
		return malformed("user extended attribute magic %q", h.Magic[:])
	case int(h.Count) != count:
		return malformed("user extended attributes for %d cells, have %d cells", h.Count, count)
	case h.Unknown != 1 || h.Offset != userTableBase:
		return malformed("user extended attribute header")
	case int64(h.Size) != int64(userHeader+count*8):
		return malformed("user extended attribute size 0x%x", h.Size)
	}

	offsets := make([]uint32, count)
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return err
	}

	// Offsets are relative to the end of the magic and size
	base := b[8:]
	for i, o := range offsets {
		if int64(o)+4 > int64(len(base)) {
			return malformed("cell %d: user extended attribute offset 0x%x", i, o)
		}
		n.Cells[i].UserAttribute = binary.LittleEndian.Uint32(base[o:])
	}

	n.UserAttributes = true

	return nil
}

// Container assembles the chunks of the NCER. Object and table offsets are
// always written in their canonical layout.
func (n *NCER) Container() (*ntr.Container, error) {
	data, err := n.encodeCells()
	if err != nil {
		return nil, ntr.Wrap(ntr.MagicCells, ChunkCells, err)
	}

	chunks := []ntr.Chunk{{ID: ChunkCells, Data: data}}
	if n.Labels != nil {
		chunks = append(chunks, ntr.Chunk{ID: ntr.ChunkLabels, Data: ntr.EncodeLabels(n.Labels)})
	}
	if n.Extension != nil {
		chunks = append(chunks, ntr.Chunk{ID: ChunkExtension, Data: n.Extension})
	}

	return ntr.New(ntr.MagicCells, n.Version, chunks...), nil
}

func (n *NCER) encodeCells() ([]byte, error) {
	if len(n.Cells) > 0xffff {
		return nil, malformed("%d cells", len(n.Cells))
	}
	if n.Mapping > Mapping2D {
		return nil, malformed("mapping type %d", n.Mapping)
	}

	le := binary.LittleEndian

	table := new(bytes.Buffer)
	objects := new(bytes.Buffer)
	for i, cell := range n.Cells {
		if len(cell.Objects) > 0xffff {
			return nil, fmt.Errorf("cell %d: %w: %d objects", i, ErrFieldOutOfRange, len(cell.Objects))
		}

		attributes, err := cell.Attributes.pack()
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}

		if err := binary.Write(table, le, cellHeader{
			Objects:    uint16(len(cell.Objects)),
			Attributes: attributes,
			Offset:     uint32(objects.Len()),
		}); err != nil {
			return nil, err
		}
		if n.Rects {
			rect := Rect{}
			if cell.Rect != nil {
				rect = *cell.Rect
			}
			if err := binary.Write(table, le, rect); err != nil {
				return nil, err
			}
		}

		for j, o := range cell.Objects {
			attr0, attr1, attr2, err := o.pack()
			if err != nil {
				return nil, fmt.Errorf("cell %d object %d: %w", i, j, err)
			}
			if err := binary.Write(objects, le, [3]uint16{attr0, attr1, attr2}); err != nil {
				return nil, err
			}
		}
	}

	cellData := append(table.Bytes(), objects.Bytes()...)
	// Pad to a multiple of 4 with zeroes
	for len(cellData)%4 != 0 {
		cellData = append(cellData, 0)
	}

	vram := new(bytes.Buffer)
	if n.HasVRAM {
		if err := binary.Write(vram, le, [2]uint32{n.VRAMMaxSize, vramHeader}); err != nil {
			return nil, err
		}
		for _, cell := range n.Cells {
			t := Transfer{}
			if cell.Transfer != nil {
				t = *cell.Transfer
			}
			if err := binary.Write(vram, le, t); err != nil {
				return nil, err
			}
		}
	}

	user := new(bytes.Buffer)
	if n.UserAttributes {
		count := len(n.Cells)
		user.WriteString(userMagic)
		header := struct {
			Size  uint32
			Count uint16
			One   uint16
			Base  uint32
		}{uint32(userHeader + count*8), uint16(count), 1, userTableBase}
		if err := binary.Write(user, le, header); err != nil {
			return nil, err
		}
		offsets := make([]uint32, count)
		values := make([]uint32, count)
		for i, cell := range n.Cells {
			offsets[i] = uint32(userTableBase + 4*(count+i))
			values[i] = cell.UserAttribute
		}
		if err := binary.Write(user, le, offsets); err != nil {
			return nil, err
		}
		if err := binary.Write(user, le, values); err != nil {
			return nil, err
		}
	}

	h := kbec{
		Count:      uint16(len(n.Cells)),
		CellOffset: kbecHeader,
		Mapping:    uint32(n.Mapping),
	}
	if n.Rects {
		h.Attributes = 1
	}
	if n.HasVRAM {
		h.VRAMOffset = uint32(kbecHeader + len(cellData))
	}
	if n.UserAttributes {
		h.UserOffset = uint32(kbecHeader + len(cellData) + vram.Len())
	}

	b := new(bytes.Buffer)
	if err := binary.Write(b, le, h); err != nil {
		return nil, err
	}
	b.Write(cellData)
	b.Write(vram.Bytes())
	b.Write(user.Bytes())

	return b.Bytes(), nil
}

// MarshalBinary encodes the NCER into binary form and returns the result.
func (n *NCER) MarshalBinary() ([]byte, error) {
	c, err := n.Container()
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// UnmarshalBinary decodes the NCER from binary form.
func (n *NCER) UnmarshalBinary(b []byte) error {
	ncer, err := ReadNCER(b)
	if err != nil {
		return err
	}
	*n = *ncer
	return nil
}
