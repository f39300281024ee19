/*
Package cell implements the Nitro NCER cell bank container.

A cell is a sprite assembled from one or more hardware objects. Each object
is described by the three 16-bit OAM attribute words:

	attr0: bits 0-7 y, 8 affine, 9 double size or disable, 10-11 mode,
	       12 mosaic, 13 256 colours, 14-15 shape
	attr1: bits 0-8 x (9-bit signed), 9-13 affine parameter index when
	       affine otherwise 12 horizontal flip and 13 vertical flip,
	       14-15 size
	attr2: bits 0-9 tile, 10-11 priority, 12-15 palette

The shape and size together select one of twelve object geometries.
*/
package cell

import (
	"errors"
	"fmt"

	"github.com/bodgit/nitro/ntr"
)

var (
	// ErrUnknownSizeClass indicates a shape and size combination that does
	// not map to an object geometry.
	ErrUnknownSizeClass = errors.New("cell: unknown size class")
	// ErrFieldOutOfRange indicates a value too large for its bit field.
	ErrFieldOutOfRange = errors.New("cell: field out of range")
)

var sizes = [3][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},
}

// Dimensions returns the width and height in pixels of an object with the
// given shape and size.
func Dimensions(shape, size uint8) (int, int, error) {
	if int(shape) >= len(sizes) || int(size) >= len(sizes[0]) {
		return 0, 0, fmt.Errorf("%w: shape %d size %d", ErrUnknownSizeClass, shape, size)
	}
	d := sizes[shape][size]
	return d[0], d[1], nil
}

// SizeClass returns the shape and size for an object geometry.
func SizeClass(width, height int) (uint8, uint8, error) {
	for shape := range sizes {
		for size, d := range sizes[shape] {
			if d[0] == width && d[1] == height {
				return uint8(shape), uint8(size), nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %dx%d", ErrUnknownSizeClass, width, height)
}

// Mode is the object rendering mode.
type Mode uint8

// Object modes.
const (
	Normal Mode = iota
	Translucent
	Window
	BitmapMode
)

var modeNames = [...]string{"normal", "translucent", "window", "bitmap"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Object is one hardware sprite within a cell.
type Object struct {
	Y        int8
	X        int16
	Affine   bool
	Disable  bool // double size for affine objects
	Mode     Mode
	Mosaic   bool
	Color256 bool
	Shape    uint8
	Size     uint8

	AffineIndex uint8
	FlipH       bool
	FlipV       bool

	Tile     uint16
	Priority uint8
	Palette  uint8
}

// Dimensions returns the width and height of the object in pixels.
func (o Object) Dimensions() (int, int, error) {
	return Dimensions(o.Shape, o.Size)
}

func unpackObject(attr0, attr1, attr2 uint16) (Object, error) {
	o := Object{
		Y:        int8(attr0 & 0xff),
		Affine:   attr0&(1<<8) != 0,
		Disable:  attr0&(1<<9) != 0,
		Mode:     Mode(attr0 >> 10 & 0x3),
		Mosaic:   attr0&(1<<12) != 0,
		Color256: attr0&(1<<13) != 0,
		Shape:    uint8(attr0 >> 14),
		Size:     uint8(attr1 >> 14),
		Tile:     attr2 & 0x3ff,
		Priority: uint8(attr2 >> 10 & 0x3),
		Palette:  uint8(attr2 >> 12),
	}

	x := int16(attr1 & 0x1ff)
	if x >= 256 {
		x -= 512
	}
	o.X = x

	if o.Affine {
		o.AffineIndex = uint8(attr1 >> 9 & 0x1f)
	} else {
		o.FlipH = attr1&(1<<12) != 0
		o.FlipV = attr1&(1<<13) != 0
	}

	if _, _, err := o.Dimensions(); err != nil {
		return Object{}, err
	}

	return o, nil
}

func (o Object) pack() (attr0, attr1, attr2 uint16, err error) {
	switch {
	case o.X < -256 || o.X > 255:
		err = fmt.Errorf("%w: x %d", ErrFieldOutOfRange, o.X)
	case o.Mode > BitmapMode:
		err = fmt.Errorf("%w: mode %d", ErrFieldOutOfRange, o.Mode)
	case o.AffineIndex > 0x1f:
		err = fmt.Errorf("%w: affine index %d", ErrFieldOutOfRange, o.AffineIndex)
	case o.Tile > 0x3ff || o.Priority > 3 || o.Palette > 0xf:
		err = fmt.Errorf("%w: tile %d priority %d palette %d", ErrFieldOutOfRange, o.Tile, o.Priority, o.Palette)
	}
	if err != nil {
		return
	}
	if _, _, err = o.Dimensions(); err != nil {
		return
	}

	attr0 = uint16(uint8(o.Y)) | uint16(o.Mode)<<10 | uint16(o.Shape)<<14
	attr0 |= flag(o.Affine, 8) | flag(o.Disable, 9) | flag(o.Mosaic, 12) | flag(o.Color256, 13)

	attr1 = uint16(o.X)&0x1ff | uint16(o.Size)<<14
	if o.Affine {
		attr1 |= uint16(o.AffineIndex) << 9
	} else {
		attr1 |= flag(o.FlipH, 12) | flag(o.FlipV, 13)
	}

	attr2 = o.Tile | uint16(o.Priority)<<10 | uint16(o.Palette)<<12

	return
}

// Attributes are the per-cell flags.
type Attributes struct {
	SphereRadius uint8
	FlipH        bool
	FlipV        bool
	HasRect      bool
}

const (
	sphereMask = 0x3f
	cellFlipH  = 1 << 8
	cellFlipV  = 1 << 9
	cellFlipHV = 1 << 10
	cellRect   = 1 << 11
)

func unpackAttributes(v uint16) (Attributes, error) {
	a := Attributes{
		SphereRadius: uint8(v & sphereMask),
		FlipH:        v&cellFlipH != 0,
		FlipV:        v&cellFlipV != 0,
		HasRect:      v&cellRect != 0,
	}
	if (v&cellFlipHV != 0) != (a.FlipH && a.FlipV) {
		return Attributes{}, fmt.Errorf("%w: cell attribute 0x%04x has inconsistent flip flags", ntr.ErrMalformedContainer, v)
	}
	return a, nil
}

func (a Attributes) pack() (uint16, error) {
	if a.SphereRadius > sphereMask {
		return 0, fmt.Errorf("%w: sphere radius %d", ErrFieldOutOfRange, a.SphereRadius)
	}
	v := uint16(a.SphereRadius) | flag(a.FlipH, 8) | flag(a.FlipV, 9) | flag(a.FlipH && a.FlipV, 10) | flag(a.HasRect, 11)
	return v, nil
}

func flag(b bool, bit uint) uint16 {
	if b {
		return 1 << bit
	}
	return 0
}

// Rect is the optional bounding rectangle of a cell.
type Rect struct {
	MaxX int16 `json:"max_x" yaml:"max_x" cbor:"max_x"`
	MaxY int16 `json:"max_y" yaml:"max_y" cbor:"max_y"`
	MinX int16 `json:"min_x" yaml:"min_x" cbor:"min_x"`
	MinY int16 `json:"min_y" yaml:"min_y" cbor:"min_y"`
}

// Transfer is a cell's entry in the VRAM transfer table.
type Transfer struct {
	Offset uint32 `json:"offset" yaml:"offset" cbor:"offset"`
	Size   uint32 `json:"size" yaml:"size" cbor:"size"`
}

// Cell is a single sprite.
type Cell struct {
	Attributes Attributes
	// Rect is nil when the bank has no bounding rectangles.
	Rect    *Rect
	Objects []Object
	// Transfer is nil when the bank has no VRAM transfer table.
	Transfer *Transfer
	// UserAttribute is the cell's value in the user extended attribute
	// table, if the bank has one.
	UserAttribute uint32
}
