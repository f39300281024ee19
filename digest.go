package nitro

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Ignore any file greater than 16 MB
const maxFileSize = 16 << (10 * 2)

// readFile reads file and returns its contents with the hex encoded BLAKE3
// digest.
func readFile(file string) ([]byte, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	h := blake3.New()
	b, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return nil, "", err
	}

	return b, hex.EncodeToString(h.Sum(nil)), nil
}

// hasMagic reports whether file starts with a recognised container magic.
func hasMagic(file string) (bool, error) {
	f, err := os.Open(file)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}

	_, ok := KindOf(string(magic[:]))
	return ok, nil
}
