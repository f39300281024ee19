package nitro

import (
	"bytes"
	"encoding"
	"fmt"

	"github.com/bodgit/nitro/cell"
	"github.com/bodgit/nitro/ntr"
	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/screen"
	"github.com/bodgit/nitro/tile"
)

// Entity is a decoded container: one of *palette.NCLR, *tile.NCGR,
// *screen.NSCR or *cell.NCER.
type Entity interface {
	encoding.BinaryMarshaler
	Container() (*ntr.Container, error)
}

var (
	_ Entity = (*palette.NCLR)(nil)
	_ Entity = (*tile.NCGR)(nil)
	_ Entity = (*screen.NSCR)(nil)
	_ Entity = (*cell.NCER)(nil)
)

// ReadContainer decodes b into the entity matching its magic. Chunks the
// entity does not understand are skipped, so encoding it again drops them.
func ReadContainer(b []byte) (Entity, error) {
	c, err := ntr.Parse(b)
	if err != nil {
		return nil, err
	}
	return fromContainer(c)
}

func fromContainer(c *ntr.Container) (Entity, error) {
	k, ok := KindOf(c.Magic)
	if !ok {
		return nil, ntr.Malformed(c.Magic, "", "unrecognised magic")
	}

	var (
		e   Entity
		err error
	)
	switch k {
	case KindPalette:
		e, err = palette.FromContainer(c)
	case KindTiles:
		e, err = tile.FromContainer(c)
	case KindScreen:
		e, err = screen.FromContainer(c)
	default:
		e, err = cell.FromContainer(c)
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}

// WriteContainer encodes e into binary form.
func WriteContainer(e Entity) ([]byte, error) {
	return e.MarshalBinary()
}

// KindOfEntity returns the kind of e.
func KindOfEntity(e Entity) Kind {
	switch e.(type) {
	case *palette.NCLR:
		return KindPalette
	case *tile.NCGR:
		return KindTiles
	case *screen.NSCR:
		return KindScreen
	case *cell.NCER:
		return KindCells
	}
	return 0
}

// Verify decodes b and encodes the result again, reporting whether the
// output is identical to b. A file carrying unknown chunks is never
// identical. An error is returned if b cannot be decoded or the entity cannot
// be encoded.
func Verify(b []byte) (bool, error) {
	e, err := ReadContainer(b)
	if err != nil {
		return false, err
	}

	out, err := WriteContainer(e)
	if err != nil {
		return false, fmt.Errorf("re-encoding %s: %w", KindOfEntity(e), err)
	}

	return bytes.Equal(b, out), nil
}
