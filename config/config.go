/*
Package config loads the defaults used when building Nitro containers from
external files.

Converting a JASC palette or an image into a container needs the header
fields that the external format cannot carry, such as the palette format or
the character mapping. These come from a YAML file:

	palette:
	  colors: 16
	  extended: false
	tiles:
	  depth: 4
	  mapping: 2D
	  bitmap: false
	screen:
	  colors: "16"
	  background: text
	image:
	  format: png
	scan:
	  workers: 4

Any key may be omitted, in which case the default is used.
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/bodgit/nitro/bitmap"
	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/screen"
	"github.com/bodgit/nitro/tile"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for a value that is not allowed.
var ErrInvalidConfig = errors.New("config: invalid value")

// Palette holds the palette defaults.
type Palette struct {
	Colors   int  `yaml:"colors"`
	Extended bool `yaml:"extended"`
}

// Tiles holds the character defaults.
type Tiles struct {
	Depth   int    `yaml:"depth"`
	Mapping string `yaml:"mapping"`
	Bitmap  bool   `yaml:"bitmap"`
}

// Screen holds the screen defaults.
type Screen struct {
	Colors     string `yaml:"colors"`
	Background string `yaml:"background"`
}

// Image holds the image file defaults.
type Image struct {
	Format bitmap.Format `yaml:"format"`
}

// Scan holds the catalog scan settings.
type Scan struct {
	// Workers is the number of files processed concurrently. Zero means
	// one per CPU.
	Workers int `yaml:"workers"`
}

// Config is the complete set of defaults.
type Config struct {
	Palette Palette `yaml:"palette"`
	Tiles   Tiles   `yaml:"tiles"`
	Screen  Screen  `yaml:"screen"`
	Image   Image   `yaml:"image"`
	Scan    Scan    `yaml:"scan"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Palette: Palette{Colors: 16},
		Tiles:   Tiles{Depth: 4, Mapping: tile.Mapping2D.String()},
		Screen:  Screen{Colors: "16", Background: "text"},
		Image:   Image{Format: bitmap.PNG},
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are an
// error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Read decodes YAML from r over the defaults.
func Read(r io.Reader) (*Config, error) {
	c := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

var (
	colorModes = map[string]screen.ColorMode{
		"16":      screen.Color16,
		"256":     screen.Color256,
		"256-ext": screen.Color256Ext,
	}
	backgrounds = map[string]screen.Background{
		"text":       screen.Text,
		"affine":     screen.Affine,
		"affine-ext": screen.AffineExt,
	}
)

// Validate checks every value.
func (c *Config) Validate() error {
	if c.Palette.Colors != 16 && c.Palette.Colors != 256 {
		return fmt.Errorf("%w: palette colors %d", ErrInvalidConfig, c.Palette.Colors)
	}
	if c.Tiles.Depth != 4 && c.Tiles.Depth != 8 {
		return fmt.Errorf("%w: tile depth %d", ErrInvalidConfig, c.Tiles.Depth)
	}
	if _, err := tile.ParseMapping(c.Tiles.Mapping); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, ok := colorModes[c.Screen.Colors]; !ok {
		return fmt.Errorf("%w: screen colors %q", ErrInvalidConfig, c.Screen.Colors)
	}
	if _, ok := backgrounds[c.Screen.Background]; !ok {
		return fmt.Errorf("%w: screen background %q", ErrInvalidConfig, c.Screen.Background)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("%w: scan workers %d", ErrInvalidConfig, c.Scan.Workers)
	}
	return nil
}

// PaletteMetadata returns the NCLR header fields for new palettes.
func (c *Config) PaletteMetadata() palette.Metadata {
	m := palette.DefaultMetadata()
	if c.Palette.Colors == 256 {
		m.Format = palette.Format256
	}
	m.Extended = c.Palette.Extended
	return m
}

// TileMetadata returns the NCGR header fields for new tile sets. The
// configuration must be valid.
func (c *Config) TileMetadata() tile.Metadata {
	m := tile.DefaultMetadata()
	m.Depth = tile.Depth(c.Tiles.Depth)
	m.Mapping, _ = tile.ParseMapping(c.Tiles.Mapping)
	if c.Tiles.Bitmap {
		m.Format = tile.Bitmap
	}
	return m
}

// ScreenMetadata returns the NSCR header fields for new tilemaps. The
// configuration must be valid.
func (c *Config) ScreenMetadata() screen.Metadata {
	m := screen.DefaultMetadata()
	m.ColorMode = colorModes[c.Screen.Colors]
	m.Background = backgrounds[c.Screen.Background]
	return m
}

// Workers returns the number of scan workers to use.
func (c *Config) Workers() int {
	if c.Scan.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Scan.Workers
}
