/*
Package jasc reads and writes palettes in the JASC text format used by Paint
Shop Pro and most tile editors.

The file is three header lines, "JASC-PAL", "0100" and the number of
colours, followed by one line per colour holding the decimal red, green and
blue values separated by spaces. Lines end with CRLF.
*/
package jasc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bodgit/nitro/palette"
)

const (
	magic   = "JASC-PAL"
	version = "0100"
	eol     = "\r\n"

	// maxColors is the most colours a palette container can address.
	maxColors = 0x10000
)

// ErrInvalidJASC indicates a malformed header, count or colour line.
var ErrInvalidJASC = errors.New("jasc: invalid palette")

// Encode writes p to w. Colours are scaled to 8 bits per channel.
func Encode(w io.Writer, p palette.Palette) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, magic, eol, version, eol, len(p), eol)
	for _, c := range p {
		r, g, b := c.RGB8()
		fmt.Fprintf(bw, "%d %d %d%s", r, g, b, eol)
	}

	return bw.Flush()
}

// Decode reads a palette from r. Both CRLF and LF line endings are
// accepted.
func Decode(r io.Reader) (palette.Palette, error) {
	s := bufio.NewScanner(r)

	line := 0
	next := func() (string, bool) {
		if !s.Scan() {
			return "", false
		}
		line++
		return strings.TrimRight(s.Text(), "\r"), true
	}

	for _, want := range []string{magic, version} {
		got, ok := next()
		if !ok || strings.TrimSpace(got) != want {
			return nil, invalid(line, "expected %q", want)
		}
	}

	text, ok := next()
	if !ok {
		return nil, invalid(line, "missing colour count")
	}
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count < 0 || count > maxColors {
		return nil, invalid(line, "bad colour count %q", text)
	}

	p := make(palette.Palette, 0)
	for i := 0; i < count; i++ {
		text, ok := next()
		if !ok {
			return nil, invalid(line, "expected %d colours, found %d", count, i)
		}

		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, invalid(line, "expected 3 values, found %d", len(fields))
		}

		var rgb [3]uint8
		for j, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return nil, invalid(line, "bad value %q", f)
			}
			rgb[j] = uint8(v)
		}

		p = append(p, palette.FromRGB8(rgb[0], rgb[1], rgb[2]))
	}

	for {
		text, ok := next()
		if !ok {
			break
		}
		if strings.TrimSpace(text) != "" {
			return nil, invalid(line, "unexpected trailing data")
		}
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return p, nil
}

func invalid(line int, format string, a ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidJASC, line, fmt.Sprintf(format, a...))
}
