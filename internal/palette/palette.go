// Package palette holds the fixed, ordered colour table shared with the
// server. Indices are what travel over the wire, so the order matters.
package palette

import (
	"fmt"
	"image/color"
)

// IndexError is returned when a colour index is outside the table.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("palette index %d out of range [0, %d)", e.Index, e.Size)
}

type Palette struct {
	colors []color.RGBA
	hex    []string
}

// New builds a palette from the given colours. Alpha is forced to opaque.
func New(colors []color.RGBA) *Palette {
	p := &Palette{
		colors: make([]color.RGBA, len(colors)),
		hex:    make([]string, len(colors)),
	}
	for i, c := range colors {
		c.A = 0xff
		p.colors[i] = c
		p.hex[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return p
}

var defaultColors = [][3]uint8{
	{255, 255, 255}, {204, 204, 204}, {153, 153, 153}, {102, 102, 102},
	{51, 51, 51}, {0, 0, 0}, {255, 0, 0}, {255, 51, 0}, {255, 102, 0},
	{255, 153, 0}, {255, 204, 0}, {255, 255, 0}, {204, 255, 0}, {153, 255, 0},
	{102, 255, 0}, {51, 255, 0}, {0, 255, 0}, {0, 255, 51}, {0, 255, 102},
	{0, 255, 153}, {0, 255, 204}, {0, 255, 255}, {0, 204, 255}, {0, 153, 255},
	{0, 102, 255}, {0, 51, 255}, {0, 0, 255}, {51, 0, 255}, {102, 0, 255},
	{153, 0, 255}, {204, 0, 255}, {255, 0, 255}, {255, 0, 204}, {255, 0, 153},
	{255, 0, 102}, {150, 75, 0}, {176, 126, 65}, {224, 182, 114}, {255, 224, 163},
	{255, 234, 209},
}

// Default returns the 40 colour table the canvas server ships with.
func Default() *Palette {
	colors := make([]color.RGBA, len(defaultColors))
	for i, c := range defaultColors {
		colors[i] = color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff}
	}
	return New(colors)
}

func (p *Palette) Len() int { return len(p.colors) }

// Contains reports whether i is a valid index into the palette.
func (p *Palette) Contains(i int) bool { return i >= 0 && i < len(p.colors) }

func (p *Palette) ColorAt(i int) (color.RGBA, error) {
	if !p.Contains(i) {
		return color.RGBA{}, &IndexError{Index: i, Size: len(p.colors)}
	}
	return p.colors[i], nil
}

func (p *Palette) HexAt(i int) (string, error) {
	if !p.Contains(i) {
		return "", &IndexError{Index: i, Size: len(p.colors)}
	}
	return p.hex[i], nil
}
