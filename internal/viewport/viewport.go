// Package viewport converts between screen space and canvas cell space.
//
// A canvas coordinate c appears on screen at pan + c*zoom. The anchor is
// the centre of the viewport; its canvas coordinate is where a placement
// lands and is preserved across zoom changes.
package viewport

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidZoom = errors.New("invalid zoom")

// Zooms lists the allowed zoom factors in increasing order.
var Zooms = []int{1, 2, 4, 8, 16, 32}

// OutlineZoom is the smallest zoom at which single cells can be targeted.
const OutlineZoom = 8

type Point struct {
	X, Y float64
}

type Viewport struct {
	canvasW, canvasH float64
	viewW, viewH     float64

	pan  Point
	zoom int
}

// New returns a viewport at zoom 1 with the canvas centred.
func New(canvasW, canvasH, viewW, viewH int) *Viewport {
	v := &Viewport{
		canvasW: float64(canvasW),
		canvasH: float64(canvasH),
		viewW:   float64(viewW),
		viewH:   float64(viewH),
		zoom:    1,
	}
	v.pan = Point{
		X: v.viewW/2 - v.canvasW/2,
		Y: v.viewH/2 - v.canvasH/2,
	}
	return v
}

func (v *Viewport) Zoom() int     { return v.zoom }
func (v *Viewport) Offset() Point { return v.pan }

// Anchor is the screen position of the viewport centre.
func (v *Viewport) Anchor() Point {
	return Point{X: v.viewW / 2, Y: v.viewH / 2}
}

func (v *Viewport) ScreenToCanvas(p Point) Point {
	z := float64(v.zoom)
	return Point{X: (p.X - v.pan.X) / z, Y: (p.Y - v.pan.Y) / z}
}

func (v *Viewport) CanvasToScreen(p Point) Point {
	z := float64(v.zoom)
	return Point{X: v.pan.X + p.X*z, Y: v.pan.Y + p.Y*z}
}

// PlacementCell is the continuous canvas coordinate under the anchor.
func (v *Viewport) PlacementCell() Point {
	return v.ScreenToCanvas(v.Anchor())
}

// RoundedCell rounds PlacementCell to the cell a placement targets.
func (v *Viewport) RoundedCell() (x, y int) {
	c := v.PlacementCell()
	return Round(c.X), Round(c.Y)
}

// Pan moves the canvas by a screen delta. There is no clamping.
func (v *Viewport) Pan(dx, dy float64) {
	v.pan.X += dx
	v.pan.Y += dy
}

func ValidZoom(z int) bool {
	for _, allowed := range Zooms {
		if z == allowed {
			return true
		}
	}
	return false
}

// SetZoom changes the zoom factor, moving the pan offset first so the canvas
// coordinate under the anchor stays put.
func (v *Viewport) SetZoom(z int) error {
	if !ValidZoom(z) {
		return fmt.Errorf("%w: %d", ErrInvalidZoom, z)
	}
	anchor := v.Anchor()
	c := v.PlacementCell()
	v.pan = Point{
		X: anchor.X - c.X*float64(z),
		Y: anchor.Y - c.Y*float64(z),
	}
	v.zoom = z
	return nil
}

// ZoomIn steps to the next larger zoom. It reports false at the top.
func (v *Viewport) ZoomIn() bool {
	for _, z := range Zooms {
		if z > v.zoom {
			return v.SetZoom(z) == nil
		}
	}
	return false
}

// ZoomOut steps to the next smaller zoom. It reports false at the bottom.
func (v *Viewport) ZoomOut() bool {
	for i := len(Zooms) - 1; i >= 0; i-- {
		if Zooms[i] < v.zoom {
			return v.SetZoom(Zooms[i]) == nil
		}
	}
	return false
}

// Resize changes the viewport size, keeping the anchored canvas coordinate.
func (v *Viewport) Resize(viewW, viewH int) {
	c := v.PlacementCell()
	v.viewW = float64(viewW)
	v.viewH = float64(viewH)
	anchor := v.Anchor()
	z := float64(v.zoom)
	v.pan = Point{X: anchor.X - c.X*z, Y: anchor.Y - c.Y*z}
}

func (v *Viewport) OutlineVisible() bool { return v.zoom >= OutlineZoom }

// Outline is the on-screen box drawn around the targeted cell.
type Outline struct {
	X, Y   float64
	Size   float64
	Border float64
}

// Outline reports where the placement outline goes. ok is false when the
// zoom is too low for the outline to be shown.
func (v *Viewport) Outline() (o Outline, ok bool) {
	if !v.OutlineVisible() {
		return Outline{}, false
	}
	x, y := v.RoundedCell()
	z := float64(v.zoom)
	s := v.CanvasToScreen(Point{X: float64(x), Y: float64(y)})
	return Outline{
		X:      s.X - z/8,
		Y:      s.Y - z/8,
		Size:   z,
		Border: z / 8,
	}, true
}

// Round rounds half up, so -0.5 becomes 0 rather than -1.
func Round(f float64) int {
	return int(math.Floor(f + 0.5))
}
