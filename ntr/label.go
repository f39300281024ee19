package ntr

import (
	"bytes"
	"encoding/binary"
)

// ChunkLabels is the identifier of the optional label chunk.
const ChunkLabels = "LBAL"

// DecodeLabels decodes a label chunk payload. The payload is a table of
// 32-bit offsets followed by NUL-terminated strings. The table length is not
// stored anywhere, so it is inferred: offsets must strictly increase and
// may not point past the end of the remaining payload. Empty leading labels
// can therefore be misread, which matches what the games themselves do.
func DecodeLabels(b []byte) ([]string, error) {
	var offsets []uint32
	rest := b
	for len(rest) >= 4 {
		offset := binary.LittleEndian.Uint32(rest)
		if int64(offset) > int64(len(rest)) {
			break
		}
		if len(offsets) > 0 && offset <= offsets[len(offsets)-1] {
			break
		}
		offsets = append(offsets, offset)
		rest = rest[4:]
	}

	labels := make([]string, 0, len(offsets))
	for i, offset := range offsets {
		if int(offset) >= len(rest) {
			return nil, Malformed("", ChunkLabels, "label %d offset %d out of range", i, offset)
		}
		end := bytes.IndexByte(rest[offset:], 0)
		if end < 0 {
			return nil, Malformed("", ChunkLabels, "label %d is not terminated", i)
		}
		labels = append(labels, string(rest[offset:int(offset)+end]))
	}

	return labels, nil
}

// EncodeLabels encodes labels into a label chunk payload.
func EncodeLabels(labels []string) []byte {
	b := new(bytes.Buffer)
	var offset uint32
	for _, label := range labels {
		writeUint32(b, offset)
		offset += uint32(len(label)) + 1
	}
	for _, label := range labels {
		b.WriteString(label)
		b.WriteByte(0)
	}
	return b.Bytes()
}
