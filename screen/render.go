package screen

import (
	"fmt"
	"image"

	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/tile"
)

const maxImageColors = 256

// Render composes tm, ts and p into an indexed image. Each entry's tile is
// flipped horizontally then vertically as requested and its pixels are
// offset by the entry's bank times the number of colours per bank at the
// tile set's depth. The image palette is p truncated to 256 colours.
func Render(tm Tilemap, ts tile.TileSet, p palette.Palette) (*image.Paletted, error) {
	if err := tm.Validate(); err != nil {
		return nil, err
	}

	colors := len(p)
	if colors > maxImageColors {
		colors = maxImageColors
	}
	bankSize := ts.Depth.Colors()

	cells := make([]tile.Tile, len(tm.Entries))
	for i, e := range tm.Entries {
		if int(e.Tile) >= len(ts.Tiles) {
			return nil, fmt.Errorf("%w: entry %d references tile %d of %d", ErrTileIndexOutOfRange, i, e.Tile, len(ts.Tiles))
		}

		t := ts.Tiles[e.Tile]
		if e.FlipH {
			t = t.FlipH()
		}
		if e.FlipV {
			t = t.FlipV()
		}

		base := int(e.Bank) * bankSize
		for j, v := range t {
			index := base + int(v)
			if int(v) >= bankSize || index >= colors {
				return nil, fmt.Errorf("%w: entry %d resolves to colour %d of %d", ErrPaletteIndexOutOfRange, i, index, colors)
			}
			t[j] = uint8(index)
		}
		cells[i] = t
	}

	m := image.NewPaletted(image.Rect(0, 0, tm.Width*tileSize, tm.Height*tileSize), p[:colors].ColorPalette())
	if len(cells) == 0 {
		return m, nil
	}

	pixels, err := tile.ToPixels(cells, tm.Width)
	if err != nil {
		return nil, err
	}
	copy(m.Pix, pixels)

	return m, nil
}

// Decompose splits m into 8 by 8 cells and builds a tile set of depth d and
// a tilemap that renders back to m with p. Colours are matched at 5-bit
// precision. Each cell uses the bank its pixel indices already fall in if
// that bank holds the right colours, otherwise the first bank holding every
// colour in the cell. Identical tiles are stored once. Flipped duplicates
// are not detected.
func Decompose(m *image.Paletted, p palette.Palette, d tile.Depth) (Tilemap, tile.TileSet, error) {
	b := m.Bounds()
	if b.Dx()%tileSize != 0 || b.Dy()%tileSize != 0 {
		return Tilemap{}, tile.TileSet{}, fmt.Errorf("%w: image is %dx%d", tile.ErrInvalidWidth, b.Dx(), b.Dy())
	}
	if d != tile.Depth4 && d != tile.Depth8 {
		return Tilemap{}, tile.TileSet{}, fmt.Errorf("%w: %d", tile.ErrInvalidDepth, d)
	}

	source := palette.FromColorPalette(m.Palette)
	bankSize := d.Colors()
	banks := (len(p) + bankSize - 1) / bankSize
	if banks > maxBank+1 {
		banks = maxBank + 1
	}

	tm := Tilemap{
		Width:  b.Dx() / tileSize,
		Height: b.Dy() / tileSize,
	}
	tm.Entries = make([]Entry, 0, tm.Width*tm.Height)

	ts := tile.TileSet{Depth: d}
	seen := make(map[tile.Tile]int)

	for ty := 0; ty < tm.Height; ty++ {
		for tx := 0; tx < tm.Width; tx++ {
			var indices tile.Tile
			for y := 0; y < tileSize; y++ {
				offset := m.PixOffset(b.Min.X+tx*tileSize, b.Min.Y+ty*tileSize+y)
				copy(indices[y*tileSize:(y+1)*tileSize], m.Pix[offset:])
			}

			bank, t, err := fit(indices, source, p, bankSize, banks)
			if err != nil {
				return Tilemap{}, tile.TileSet{}, fmt.Errorf("cell (%d, %d): %w", tx, ty, err)
			}

			n, ok := seen[t]
			if !ok {
				n = len(ts.Tiles)
				if n > tileMask {
					return Tilemap{}, tile.TileSet{}, fmt.Errorf("%w: need more than %d", ErrTooManyTiles, tileMask+1)
				}
				seen[t] = n
				ts.Tiles = append(ts.Tiles, t)
			}

			tm.Entries = append(tm.Entries, Entry{Tile: uint16(n), Bank: uint8(bank)})
		}
	}

	return tm, ts, nil
}

// fit finds a bank of p that can reproduce every pixel of a cell and
// returns the cell's pixels relative to that bank.
func fit(indices tile.Tile, source, p palette.Palette, bankSize, banks int) (int, tile.Tile, error) {
	for _, v := range indices {
		if int(v) >= len(source) {
			return 0, tile.Tile{}, fmt.Errorf("%w: pixel index %d outside image palette", ErrColorNotInPalette, v)
		}
	}

	try := func(bank int) (tile.Tile, bool) {
		lo := bank * bankSize
		hi := lo + bankSize
		if hi > len(p) {
			hi = len(p)
		}
		colors := p[lo:hi]

		var t tile.Tile
		for i, v := range indices {
			c := source[v]
			if local := int(v) - lo; local >= 0 && local < len(colors) && colors[local] == c {
				t[i] = uint8(local)
				continue
			}
			local, ok := colors.Index(c)
			if !ok {
				return tile.Tile{}, false
			}
			t[i] = uint8(local)
		}
		return t, true
	}

	if home := int(indices[0]) / bankSize; home < banks {
		same := true
		for _, v := range indices {
			if int(v)/bankSize != home {
				same = false
				break
			}
		}
		if same {
			if t, ok := try(home); ok {
				return home, t, nil
			}
		}
	}

	for bank := 0; bank < banks; bank++ {
		if t, ok := try(bank); ok {
			return bank, t, nil
		}
	}

	return 0, tile.Tile{}, ErrColorNotInPalette
}
