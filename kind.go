package nitro

import (
	"fmt"

	"github.com/bodgit/nitro/ntr"
)

// Kind identifies the type of a container.
type Kind int

// Container kinds.
const (
	KindPalette Kind = iota + 1
	KindTiles
	KindScreen
	KindCells
)

var kinds = map[string]Kind{
	ntr.MagicPalette: KindPalette,
	ntr.MagicTiles:   KindTiles,
	ntr.MagicScreen:  KindScreen,
	ntr.MagicCells:   KindCells,
}

// KindOf returns the kind of container with the given on-disk magic.
func KindOf(magic string) (Kind, bool) {
	k, ok := kinds[magic]
	return k, ok
}

func (k Kind) String() string {
	switch k {
	case KindPalette:
		return "NCLR"
	case KindTiles:
		return "NCGR"
	case KindScreen:
		return "NSCR"
	case KindCells:
		return "NCER"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Extension returns the conventional file extension for the kind.
func (k Kind) Extension() string {
	switch k {
	case KindPalette, KindTiles, KindScreen, KindCells:
		return "." + k.String()
	}
	return ""
}
