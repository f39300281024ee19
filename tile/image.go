package tile

import (
	"fmt"
	"image"
	"image/color"
)

// Grayscale returns a ramp of gray levels covering every index at depth d.
func Grayscale(d Depth) color.Palette {
	if !d.valid() {
		d = Depth8
	}
	n := d.Colors()
	step := 0xff / (n - 1)
	p := make(color.Palette, n)
	for i := range p {
		v := uint8(i * step)
		p[i] = color.RGBA{v, v, v, 0xff}
	}
	return p
}

// Image renders the characters as an indexed image width tiles wide using
// palette p. A nil palette uses the grayscale ramp for the depth. If width
// is zero the stored width is used for 2D mappings and a single column for
// 1D mappings.
func (n *NCGR) Image(p color.Palette, width int) (*image.Paletted, error) {
	if width == 0 {
		width = 1
		if !n.metadata.Mapping.OneDimensional() {
			width = int(n.metadata.Width)
		}
	}

	var pixels []uint8
	if n.metadata.Format == Bitmap {
		if width <= 0 || len(n.tiles)%width != 0 {
			return nil, fmt.Errorf("%w: %d tiles across %d columns", ErrInvalidWidth, len(n.tiles), width)
		}
		pixels = make([]uint8, 0, len(n.tiles)*tilePixels)
		for _, t := range n.tiles {
			pixels = append(pixels, t[:]...)
		}
	} else {
		var err error
		if pixels, err = ToPixels(n.tiles, width); err != nil {
			return nil, err
		}
	}

	if p == nil {
		p = Grayscale(n.metadata.Depth)
	}

	m := image.NewPaletted(image.Rect(0, 0, width*tileWidth, len(n.tiles)/width*tileHeight), p)
	copy(m.Pix, pixels)

	return m, nil
}

// FromImage builds an NCGR from the pixel indices of m. The palette of m is
// ignored. The dimensions of m must be multiples of 8. For 2D mappings the
// stored width and height come from m, and an SOPC chunk requested by md
// is filled in from m as well.
func FromImage(m *image.Paletted, md Metadata) (*NCGR, error) {
	b := m.Bounds()
	if b.Dx()%tileWidth != 0 || b.Dy()%tileHeight != 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrInvalidWidth, b.Dx(), b.Dy())
	}

	// Adjust image so that top-left corner is at (0, 0)
	pixels := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		pixels = append(pixels, m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]...)
	}

	width, height := b.Dx()/tileWidth, b.Dy()/tileHeight

	var tiles []Tile
	if md.Format == Bitmap {
		tiles = make([]Tile, len(pixels)/tilePixels)
		for i := range tiles {
			copy(tiles[i][:], pixels[i*tilePixels:])
		}
	} else if width > 0 {
		var err error
		if tiles, err = FromPixels(pixels, width); err != nil {
			return nil, err
		}
	}

	ts := TileSet{Depth: md.Depth, Tiles: tiles}
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	md = md.clone()
	if md.Mapping.OneDimensional() {
		md.Width, md.Height = oneDimensional, oneDimensional
	} else {
		md.Width, md.Height = uint16(width), uint16(height)
	}
	if md.Position != nil {
		md.Position.Width, md.Position.Height = uint16(width), uint16(height)
	}

	return NewNCGR(ts, md), nil
}
