// Package canvas keeps the local mirror of the shared pixel grid and the
// last editor of every cell.
package canvas

import (
	"errors"
	"fmt"
	"image"

	"placeclient/internal/palette"
)

var (
	ErrInvalidSnapshotSize = errors.New("invalid snapshot size")
	ErrOutOfBounds         = errors.New("coordinates out of bounds")
	ErrInvalidColor        = errors.New("invalid color index")
	ErrInvalidRect         = errors.New("inverted rectangle")
	ErrRosterTooLong       = errors.New("roster longer than canvas")
)

// Rect is an inclusive cell rectangle.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Buffer is a width*height grid of palette indices with a parallel grid of
// editors. An empty editor string means nobody is recorded for the cell.
//
// Buffer is not safe for concurrent use; the owning session mutates it from
// a single goroutine.
type Buffer struct {
	width   int
	height  int
	palette *palette.Palette

	cells   []uint8
	editors []string
}

func New(width, height int, pal *palette.Palette) *Buffer {
	return &Buffer{
		width:   width,
		height:  height,
		palette: pal,
		cells:   make([]uint8, width*height),
		editors: make([]string, width*height),
	}
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

func (b *Buffer) Palette() *palette.Palette { return b.palette }

func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Buffer) index(x, y int) int { return x + b.width*y }

// LoadSnapshot replaces the whole grid with data, one palette index per cell
// in row-major order, and clears every editor. The grid is left untouched
// when data is rejected.
func (b *Buffer) LoadSnapshot(data []byte) error {
	if len(data) != b.width*b.height {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSnapshotSize, len(data), b.width*b.height)
	}
	for i, c := range data {
		if !b.palette.Contains(int(c)) {
			return fmt.Errorf("%w: %d at cell %d", ErrInvalidColor, c, i)
		}
	}
	copy(b.cells, data)
	clear(b.editors)
	return nil
}

func (b *Buffer) ApplyPlace(user string, x, y, color int) error {
	if !b.inBounds(x, y) {
		return fmt.Errorf("%w: (%d, %d) on %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
	}
	if !b.palette.Contains(color) {
		return fmt.Errorf("%w: %d", ErrInvalidColor, color)
	}
	i := b.index(x, y)
	b.cells[i] = uint8(color)
	b.editors[i] = user
	return nil
}

// ApplyClear resets every cell of the inclusive rectangle to index 0.
func (b *Buffer) ApplyClear(r Rect) error {
	if r.X1 > r.X2 || r.Y1 > r.Y2 {
		return fmt.Errorf("%w: (%d, %d)-(%d, %d)", ErrInvalidRect, r.X1, r.Y1, r.X2, r.Y2)
	}
	if !b.inBounds(r.X1, r.Y1) || !b.inBounds(r.X2, r.Y2) {
		return fmt.Errorf("%w: (%d, %d)-(%d, %d) on %dx%d", ErrOutOfBounds, r.X1, r.Y1, r.X2, r.Y2, b.width, b.height)
	}
	for y := r.Y1; y <= r.Y2; y++ {
		row := b.index(r.X1, y)
		n := r.X2 - r.X1 + 1
		clear(b.cells[row : row+n])
		clear(b.editors[row : row+n])
	}
	return nil
}

func (b *Buffer) ColorIndexAt(x, y int) (uint8, bool) {
	if !b.inBounds(x, y) {
		return 0, false
	}
	return b.cells[b.index(x, y)], true
}

func (b *Buffer) EditorAt(x, y int) (string, bool) {
	if !b.inBounds(x, y) {
		return "", false
	}
	user := b.editors[b.index(x, y)]
	return user, user != ""
}

// LoadRoster replaces the editor overlay wholesale. ids is aligned with the
// linear cell index; cells past the end of ids get no editor.
func (b *Buffer) LoadRoster(ids []string) error {
	if len(ids) > len(b.editors) {
		return fmt.Errorf("%w: %d ids for %d cells", ErrRosterTooLong, len(ids), len(b.editors))
	}
	n := copy(b.editors, ids)
	clear(b.editors[n:])
	return nil
}

// Indices returns a copy of the raw index grid.
func (b *Buffer) Indices() []byte {
	out := make([]byte, len(b.cells))
	copy(out, b.cells)
	return out
}

// SnapshotRGBA expands the grid to 4 bytes per pixel.
func (b *Buffer) SnapshotRGBA() []byte {
	return ExpandRGBA(b.cells, b.palette)
}

// Image wraps SnapshotRGBA as an image for encoders.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.SnapshotRGBA(),
		Stride: 4 * b.width,
		Rect:   b.Bounds(),
	}
}

// ExpandRGBA converts palette indices into opaque RGBA pixels. Indices outside
// the palette are rendered transparent.
func ExpandRGBA(cells []byte, pal *palette.Palette) []byte {
	pix := make([]byte, len(cells)*4)
	for i, c := range cells {
		rgba, err := pal.ColorAt(int(c))
		if err != nil {
			continue
		}
		o := i * 4
		pix[o] = rgba.R
		pix[o+1] = rgba.G
		pix[o+2] = rgba.B
		pix[o+3] = 0xff
	}
	return pix
}
