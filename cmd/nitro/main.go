package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/nitro"
	"github.com/bodgit/nitro/bitmap"
	"github.com/bodgit/nitro/cell"
	"github.com/bodgit/nitro/config"
	"github.com/bodgit/nitro/jasc"
	"github.com/bodgit/nitro/palette"
	"github.com/bodgit/nitro/screen"
	"github.com/bodgit/nitro/tile"
	"github.com/urfave/cli/v2"
)

const defaultDB = "nitro.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if file := c.String("config"); file != "" {
		return config.Load(file)
	}
	return config.Default(), nil
}

func readPalette(file string) (*palette.NCLR, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return palette.ReadNCLR(b)
}

func readTiles(file string) (*tile.NCGR, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return tile.ReadNCGR(b)
}

func readImage(file string) (*image.Paletted, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := bitmap.Decode(f)
	return m, err
}

func writeImage(file string, m *image.Paletted, cfg *config.Config) error {
	format := cfg.Image.Format
	if f, err := bitmap.ParseFormat(filepath.Ext(file)); err == nil {
		format = f
	}

	b := new(bytes.Buffer)
	if err := bitmap.Encode(b, m, format); err != nil {
		return err
	}
	return os.WriteFile(file, b.Bytes(), 0o644)
}

func writeEntity(file string, e nitro.Entity) error {
	b, err := nitro.WriteContainer(e)
	if err != nil {
		return err
	}
	return os.WriteFile(file, b, 0o644)
}

// bank returns the colours used for 4bpp images, or the whole palette.
func bank(n *palette.NCLR, depth tile.Depth, i int) (palette.Palette, error) {
	if depth == tile.Depth8 {
		return n.Palette(), nil
	}
	p := n.Palette().Bank(i, depth.Colors())
	if p == nil {
		return nil, fmt.Errorf("palette has no bank %d", i)
	}
	return p, nil
}

func paletteExport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	n, err := readPalette(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	b := new(bytes.Buffer)
	if err := jasc.Encode(b, n.Palette()); err != nil {
		return cli.Exit(err, 1)
	}

	if err := os.WriteFile(c.Args().Get(1), b.Bytes(), 0o644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func paletteImport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Open(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	p, err := jasc.Decode(f)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeEntity(c.Args().Get(1), palette.NewNCLR(p, cfg.PaletteMetadata())); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func tilesExport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	n, err := readTiles(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var p palette.Palette
	if file := c.String("palette"); file != "" {
		nclr, err := readPalette(file)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if p, err = bank(nclr, n.TileSet().Depth, c.Int("bank")); err != nil {
			return cli.Exit(err, 1)
		}
	}

	// A nil palette renders in grayscale
	var cp color.Palette
	if p != nil {
		cp = p.ColorPalette()
	}

	m, err := n.Image(cp, c.Int("width"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeImage(c.Args().Get(1), m, cfg); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func tilesImport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := readImage(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	n, err := tile.FromImage(m, cfg.TileMetadata())
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeEntity(c.Args().Get(1), n); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func screenExport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	b, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	n, err := screen.ReadNSCR(b)
	if err != nil {
		return cli.Exit(err, 1)
	}

	ncgr, err := readTiles(c.String("tiles"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	nclr, err := readPalette(c.String("palette"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := n.Render(ncgr.TileSet(), nclr.Palette())
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeImage(c.Args().Get(1), m, cfg); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func screenImport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := readImage(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	nclr, err := readPalette(c.String("palette"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	sm := cfg.ScreenMetadata()
	tm, ts, err := screen.Decompose(m, nclr.Palette(), sm.ColorMode.Depth())
	if err != nil {
		return cli.Exit(err, 1)
	}

	md := cfg.TileMetadata()
	if md.Mapping.OneDimensional() {
		md.Width, md.Height = 0xffff, 0xffff
	} else {
		md.Width, md.Height = uint16(len(ts.Tiles)), 1
	}

	if err := writeEntity(c.String("tiles"), tile.NewNCGR(ts, md)); err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeEntity(c.Args().Get(1), screen.NewNSCR(tm, sm)); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func cellsExport(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	b, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	n, err := cell.ReadNCER(b)
	if err != nil {
		return cli.Exit(err, 1)
	}

	name := c.String("format")
	if name == "" {
		name = filepath.Ext(c.Args().Get(1))
	}
	format, err := cell.ParseFormat(name)
	if err != nil {
		return cli.Exit(err, 1)
	}

	out := new(bytes.Buffer)
	if err := n.Document().Encode(out, format); err != nil {
		return cli.Exit(err, 1)
	}

	if err := os.WriteFile(c.Args().Get(1), out.Bytes(), 0o644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	for _, file := range c.Args().Slice() {
		b, err := os.ReadFile(file)
		if err != nil {
			return cli.Exit(err, 1)
		}

		e, err := nitro.ReadContainer(b)
		if err != nil {
			return cli.Exit(fmt.Errorf("%s: %w", file, err), 1)
		}

		exact, err := nitro.Verify(b)
		if err != nil {
			return cli.Exit(fmt.Errorf("%s: %w", file, err), 1)
		}

		ctr, err := e.Container()
		if err != nil {
			return cli.Exit(fmt.Errorf("%s: %w", file, err), 1)
		}

		fmt.Fprintf(c.App.Writer, "%s: %s version %s, %d bytes, %d chunks, exact %t\n", file, nitro.KindOfEntity(e), ctr.Version, len(b), len(ctr.Chunks()), exact)
	}

	return nil
}

func scan(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	n, err := nitro.New(c.String("db"), newLogger(c), cfg.Workers())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer n.Close()

	if err := n.Scan(c.Args().First()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func inexact(c *cli.Context) error {
	n, err := nitro.New(c.String("db"), newLogger(c), 1)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer n.Close()

	assets, err := n.Catalog().Inexact()
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, a := range assets {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", a.Path, a.Kind, a.Digest)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "nitro"
	app.Usage = "Nintendo DS graphics container utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"NITRO_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"NITRO_CONFIG"},
			Usage:   "path to YAML defaults",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "palette",
			Usage: "Convert NCLR palettes",
			Subcommands: []*cli.Command{
				{
					Name:      "export",
					Usage:     "Convert an NCLR palette to a JASC palette",
					ArgsUsage: "NCLR PAL",
					Action:    paletteExport,
				},
				{
					Name:      "import",
					Usage:     "Convert a JASC palette to an NCLR palette",
					ArgsUsage: "PAL NCLR",
					Action:    paletteImport,
				},
			},
		},
		{
			Name:  "tiles",
			Usage: "Convert NCGR character data",
			Subcommands: []*cli.Command{
				{
					Name:      "export",
					Usage:     "Convert NCGR tiles to an indexed image",
					ArgsUsage: "NCGR IMAGE",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "palette",
							Usage: "NCLR palette, otherwise grayscale",
						},
						&cli.IntFlag{
							Name:  "bank",
							Usage: "palette bank for 4bpp tiles",
						},
						&cli.IntFlag{
							Name:  "width",
							Usage: "image width in tiles, 0 uses the stored width",
						},
					},
					Action: tilesExport,
				},
				{
					Name:      "import",
					Usage:     "Convert an indexed image to NCGR tiles",
					ArgsUsage: "IMAGE NCGR",
					Action:    tilesImport,
				},
			},
		},
		{
			Name:  "screen",
			Usage: "Convert NSCR screens",
			Subcommands: []*cli.Command{
				{
					Name:      "export",
					Usage:     "Render an NSCR screen to an indexed image",
					ArgsUsage: "NSCR IMAGE",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "tiles",
							Usage:    "NCGR tiles",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "palette",
							Usage:    "NCLR palette",
							Required: true,
						},
					},
					Action: screenExport,
				},
				{
					Name:      "import",
					Usage:     "Split an indexed image into NSCR and NCGR files",
					ArgsUsage: "IMAGE NSCR",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "tiles",
							Usage:    "NCGR file to write",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "palette",
							Usage:    "NCLR palette",
							Required: true,
						},
					},
					Action: screenImport,
				},
			},
		},
		{
			Name:  "cells",
			Usage: "Convert NCER cell banks",
			Subcommands: []*cli.Command{
				{
					Name:      "export",
					Usage:     "Describe an NCER cell bank as JSON, YAML or CBOR",
					ArgsUsage: "NCER FILE",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "format",
							Usage: "json, yaml or cbor, otherwise from the file extension",
						},
					},
					Action: cellsExport,
				},
			},
		},
		{
			Name:      "info",
			Usage:     "Describe containers and check they round trip",
			ArgsUsage: "FILE...",
			Action:    info,
		},
		{
			Name:      "scan",
			Usage:     "Scan filesystem and catalog containers",
			ArgsUsage: "DIRECTORY",
			Action:    scan,
		},
		{
			Name:   "inexact",
			Usage:  "List cataloged containers that do not round trip exactly",
			Action: inexact,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
