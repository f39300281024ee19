package cell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat indicates an unrecognised document format name.
var ErrUnknownFormat = errors.New("cell: unknown document format")

var encMode cbor.EncMode

func init() {
	var err error

	// Core deterministic encoding sorts the integer cell keys
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cell: CBOR encoder initialization failed: " + err.Error())
	}
}

// Format is a structured document encoding.
type Format int

// Supported document formats.
const (
	JSON Format = iota
	YAML
	CBOR
)

var formatNames = [...]string{"json", "yaml", "cbor"}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat returns the Format with the given name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "cbor":
		return CBOR, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ObjectDocument describes one object of a cell.
type ObjectDocument struct {
	X           int16  `json:"x" yaml:"x" cbor:"x"`
	Y           int8   `json:"y" yaml:"y" cbor:"y"`
	Width       int    `json:"width" yaml:"width" cbor:"width"`
	Height      int    `json:"height" yaml:"height" cbor:"height"`
	Shape       uint8  `json:"shape" yaml:"shape" cbor:"shape"`
	Size        uint8  `json:"size" yaml:"size" cbor:"size"`
	Tile        uint16 `json:"tile" yaml:"tile" cbor:"tile"`
	Palette     uint8  `json:"palette" yaml:"palette" cbor:"palette"`
	Priority    uint8  `json:"priority" yaml:"priority" cbor:"priority"`
	Mode        string `json:"mode" yaml:"mode" cbor:"mode"`
	Affine      bool   `json:"affine" yaml:"affine" cbor:"affine"`
	AffineIndex *uint8 `json:"affine_index,omitempty" yaml:"affine_index,omitempty" cbor:"affine_index,omitempty"`
	Disable     bool   `json:"disable" yaml:"disable" cbor:"disable"`
	Mosaic      bool   `json:"mosaic" yaml:"mosaic" cbor:"mosaic"`
	Color256    bool   `json:"color_256" yaml:"color_256" cbor:"color_256"`
	FlipH       bool   `json:"flip_h" yaml:"flip_h" cbor:"flip_h"`
	FlipV       bool   `json:"flip_v" yaml:"flip_v" cbor:"flip_v"`
}

// CellDocument describes one cell.
type CellDocument struct {
	SphereRadius  uint8            `json:"sphere_radius" yaml:"sphere_radius" cbor:"sphere_radius"`
	FlipH         bool             `json:"flip_h" yaml:"flip_h" cbor:"flip_h"`
	FlipV         bool             `json:"flip_v" yaml:"flip_v" cbor:"flip_v"`
	Rect          *Rect            `json:"rect,omitempty" yaml:"rect,omitempty" cbor:"rect,omitempty"`
	Transfer      *Transfer        `json:"transfer,omitempty" yaml:"transfer,omitempty" cbor:"transfer,omitempty"`
	UserAttribute *uint32          `json:"user_attribute,omitempty" yaml:"user_attribute,omitempty" cbor:"user_attribute,omitempty"`
	Objects       []ObjectDocument `json:"objects" yaml:"objects" cbor:"objects"`
}

// Cells is encoded as a mapping from cell index to cell, in index order.
type Cells []CellDocument

// MarshalJSON implements json.Marshaler.
func (c Cells) MarshalJSON() ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteByte('{')
	for i, cell := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := json.Marshal(cell)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(b, "%q:", strconv.Itoa(i))
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Cells) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, cell := range c {
		value := new(yaml.Node)
		if err := value.Encode(cell); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: strconv.Itoa(i),
		}, value)
	}
	return node, nil
}

// MarshalCBOR implements cbor.Marshaler.
func (c Cells) MarshalCBOR() ([]byte, error) {
	m := make(map[uint]CellDocument, len(c))
	for i, cell := range c {
		m[uint(i)] = cell
	}
	return encMode.Marshal(m)
}

// Document is the structured description of a cell bank.
type Document struct {
	Version        string   `json:"version" yaml:"version" cbor:"version"`
	Mapping        string   `json:"mapping" yaml:"mapping" cbor:"mapping"`
	BoundingRects  bool     `json:"bounding_rects" yaml:"bounding_rects" cbor:"bounding_rects"`
	VRAMMaxSize    *uint32  `json:"vram_max_size,omitempty" yaml:"vram_max_size,omitempty" cbor:"vram_max_size,omitempty"`
	UserAttributes bool     `json:"user_attributes" yaml:"user_attributes" cbor:"user_attributes"`
	Labels         []string `json:"labels,omitempty" yaml:"labels,omitempty" cbor:"labels,omitempty"`
	Cells          Cells    `json:"cells" yaml:"cells" cbor:"cells"`
}

// Document returns the structured description of the cell bank.
func (n *NCER) Document() Document {
	d := Document{
		Version:        n.Version.String(),
		Mapping:        n.Mapping.String(),
		BoundingRects:  n.Rects,
		UserAttributes: n.UserAttributes,
		Labels:         append([]string(nil), n.Labels...),
		Cells:          make(Cells, len(n.Cells)),
	}
	if n.HasVRAM {
		size := n.VRAMMaxSize
		d.VRAMMaxSize = &size
	}

	for i, cell := range n.Cells {
		cd := CellDocument{
			SphereRadius: cell.Attributes.SphereRadius,
			FlipH:        cell.Attributes.FlipH,
			FlipV:        cell.Attributes.FlipV,
			Objects:      make([]ObjectDocument, len(cell.Objects)),
		}
		if cell.Rect != nil {
			r := *cell.Rect
			cd.Rect = &r
		}
		if cell.Transfer != nil {
			t := *cell.Transfer
			cd.Transfer = &t
		}
		if n.UserAttributes {
			v := cell.UserAttribute
			cd.UserAttribute = &v
		}

		for j, o := range cell.Objects {
			// Objects were validated when decoded
			w, h, _ := o.Dimensions()
			od := ObjectDocument{
				X:        o.X,
				Y:        o.Y,
				Width:    w,
				Height:   h,
				Shape:    o.Shape,
				Size:     o.Size,
				Tile:     o.Tile,
				Palette:  o.Palette,
				Priority: o.Priority,
				Mode:     o.Mode.String(),
				Affine:   o.Affine,
				Disable:  o.Disable,
				Mosaic:   o.Mosaic,
				Color256: o.Color256,
				FlipH:    o.FlipH,
				FlipV:    o.FlipV,
			}
			if o.Affine {
				index := o.AffineIndex
				od.AffineIndex = &index
			}
			cd.Objects[j] = od
		}

		d.Cells[i] = cd
	}

	return d
}

// Encode writes the document to w in format f.
func (d Document) Encode(w io.Writer, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case CBOR:
		return encMode.NewEncoder(w).Encode(d)
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}
