/*
Package ntr implements the generic chunked container shared by the Nitro
graphics formats.

Every file starts with a 16 byte header: a four character magic, the byte
order mark 0xFEFF, a 16-bit version, the total file size, the header size
(always 16) and the number of chunks. Each chunk is a four character
identifier followed by a 32-bit size that includes the 8 byte chunk header
and then the payload. Chunk sizes are always a multiple of 4 so payloads are
padded with zero bytes.

Identifiers are stored on disk in reverse, so a palette file starts with
"RLCN" rather than "NCLR". This package always uses the on-disk spelling.
*/
package ntr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic values of the containers this package recognises.
const (
	MagicPalette = "RLCN"
	MagicTiles   = "RGCN"
	MagicScreen  = "RCSN"
	MagicCells   = "RECN"
)

const (
	byteOrderMark = 0xfeff
	headerSize    = 0x10
	chunkHeader   = 8
	alignment     = 4
)

// Version is the format version stored in the container header.
type Version uint16

// Known versions.
const (
	Version0100 Version = 0x0100
	Version0101 Version = 0x0101
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v>>8, v&0xff)
}

// Recognised reports whether magic is one of the supported container kinds.
func Recognised(magic string) bool {
	switch magic {
	case MagicPalette, MagicTiles, MagicScreen, MagicCells:
		return true
	}
	return false
}

// Chunk is a single named section of a Container.
type Chunk struct {
	ID   string
	Data []byte
}

// Size returns the declared size of the chunk including its header and
// any padding.
func (c Chunk) Size() int {
	return chunkHeader + padded(len(c.Data))
}

// Container is a parsed Nitro file. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Container struct {
	Magic   string
	Version Version

	chunks []Chunk
}

// New returns a Container assembled from the given chunks. The chunk
// payloads are copied.
func New(magic string, version Version, chunks ...Chunk) *Container {
	c := &Container{
		Magic:   magic,
		Version: version,
	}
	for _, chunk := range chunks {
		c.chunks = append(c.chunks, Chunk{ID: chunk.ID, Data: clone(chunk.Data)})
	}
	return c
}

// Parse decodes b into a new Container.
func Parse(b []byte) (*Container, error) {
	c := new(Container)
	if err := c.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return c, nil
}

// Chunks returns the chunks present in the container, in file order.
func (c *Container) Chunks() []Chunk {
	return append([]Chunk(nil), c.chunks...)
}

// Chunk returns the first chunk whose identifier matches id exactly.
func (c *Container) Chunk(id string) (Chunk, bool) {
	for _, chunk := range c.chunks {
		if chunk.ID == id {
			return chunk, true
		}
	}
	return Chunk{}, false
}

// Size returns the encoded size of the container in bytes.
func (c *Container) Size() int {
	size := headerSize
	for _, chunk := range c.chunks {
		size += chunk.Size()
	}
	return size
}

// MarshalBinary encodes the container into binary form and returns the
// result.
func (c *Container) MarshalBinary() ([]byte, error) {
	if len(c.Magic) != 4 {
		return nil, fmt.Errorf("%w: magic %q is not four bytes", ErrMalformedContainer, c.Magic)
	}
	if len(c.chunks) > 0xffff {
		return nil, fmt.Errorf("%w: %d chunks", ErrMalformedContainer, len(c.chunks))
	}
	for _, chunk := range c.chunks {
		if len(chunk.ID) != 4 {
			return nil, fmt.Errorf("%w: chunk id %q is not four bytes", ErrMalformedContainer, chunk.ID)
		}
	}

	b := new(bytes.Buffer)
	b.Grow(c.Size())

	b.WriteString(c.Magic)
	writeUint16(b, byteOrderMark)
	writeUint16(b, uint16(c.Version))
	writeUint32(b, uint32(c.Size()))
	writeUint16(b, headerSize)
	writeUint16(b, uint16(len(c.chunks)))

	for _, chunk := range c.chunks {
		b.WriteString(chunk.ID)
		writeUint32(b, uint32(chunk.Size()))
		b.Write(chunk.Data)
		// Pad to a multiple of 4 with zeroes
		b.Write(make([]byte, padded(len(chunk.Data))-len(chunk.Data)))
	}

	return b.Bytes(), nil
}

// Bytes is like MarshalBinary but panics on a container that cannot be
// encoded. It is intended for containers returned by Parse.
func (c *Container) Bytes() []byte {
	b, err := c.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalBinary decodes the container from binary form.
func (c *Container) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize {
		return malformed("need %d header bytes, have %d", headerSize, len(b))
	}

	magic := string(b[0:4])
	if !Recognised(magic) {
		return malformed("unrecognised magic %q", magic)
	}
	if bom := binary.LittleEndian.Uint16(b[4:]); bom != byteOrderMark {
		return malformed("byte order mark 0x%04x", bom)
	}
	version := Version(binary.LittleEndian.Uint16(b[6:]))
	if size := binary.LittleEndian.Uint32(b[8:]); int64(size) != int64(len(b)) {
		return malformed("declared size %d, have %d bytes", size, len(b))
	}
	if hs := binary.LittleEndian.Uint16(b[12:]); hs != headerSize {
		return malformed("header size 0x%04x", hs)
	}
	count := int(binary.LittleEndian.Uint16(b[14:]))

	chunks := make([]Chunk, 0, count)
	rest := b[headerSize:]
	for i := 0; i < count; i++ {
		if len(rest) < chunkHeader {
			return malformed("chunk %d: truncated header", i)
		}
		id := string(rest[0:4])
		size := binary.LittleEndian.Uint32(rest[4:])
		switch {
		case size < chunkHeader:
			return malformed("chunk %d (%s): size %d smaller than header", i, id, size)
		case int64(size) > int64(len(rest)):
			return malformed("chunk %d (%s): size %d exceeds remaining %d bytes", i, id, size, len(rest))
		case size%alignment != 0:
			return malformed("chunk %d (%s): size %d not aligned to %d", i, id, size, alignment)
		}
		chunks = append(chunks, Chunk{ID: id, Data: clone(rest[chunkHeader:size])})
		rest = rest[size:]
	}
	if len(rest) != 0 {
		return malformed("%d trailing bytes", len(rest))
	}

	c.Magic = magic
	c.Version = version
	c.chunks = chunks

	return nil
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformedContainer}, a...)...)
}

func padded(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}

func writeUint16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeUint32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}
