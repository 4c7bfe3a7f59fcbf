// Package input turns raw pointer and keyboard events into viewport moves
// and session commands. It holds no canvas state of its own.
package input

import (
	"strings"

	"placeclient/internal/viewport"
)

// Session is what the router needs from a canvas session.
type Session interface {
	Active() bool
	Place(x, y, zoom int) bool
	SelectedColor() int
	SelectColor(c int) bool
	Clear(x1, y1, x2, y2 int) bool
	Ban(user string) bool
	SetCooldown(seconds uint) bool
	EditorAt(x, y int) (string, bool)
}

// wheelStep is the accumulated wheel delta that triggers one zoom step.
const wheelStep = 50

const (
	ButtonPrimary = 1 << iota
	ButtonSecondary
	ButtonMiddle
)

type Router struct {
	view    *viewport.Viewport
	session Session
	colors  int

	pressed bool
	wheel   float64

	// Changed is called after anything that needs a redraw.
	Changed func()
}

// NewRouter routes input to view and s. colors is the palette size.
func NewRouter(view *viewport.Viewport, s Session, colors int) *Router {
	return &Router{view: view, session: s, colors: colors}
}

func (r *Router) changed() {
	if r.Changed != nil {
		r.Changed()
	}
}

// PointerDown starts a drag unless the pointer is over a control.
func (r *Router) PointerDown(overControl bool) {
	if !r.session.Active() || overControl {
		return
	}
	r.pressed = true
}

func (r *Router) PointerUp() {
	if !r.session.Active() {
		return
	}
	r.pressed = false
}

// PointerMove pans by the movement delta while the primary button is held.
func (r *Router) PointerMove(dx, dy float64, buttons int) {
	if !r.session.Active() {
		return
	}
	r.pressed = buttons&ButtonPrimary != 0
	if r.pressed {
		r.view.Pan(dx, dy)
		r.changed()
	}
}

func (r *Router) Dragging() bool { return r.pressed }

// Wheel accumulates scroll and zooms one step per wheelStep of travel.
// Negative deltas zoom in.
func (r *Router) Wheel(deltaY float64) {
	if !r.session.Active() {
		return
	}
	r.wheel += deltaY
	switch {
	case r.wheel <= -wheelStep:
		r.wheel = 0
		if r.view.ZoomIn() {
			r.changed()
		}
	case r.wheel >= wheelStep:
		r.wheel = 0
		if r.view.ZoomOut() {
			r.changed()
		}
	}
}

// Key handles a key name as reported by the browser or terminal: "Enter",
// letters, and "ArrowUp" style names.
func (r *Router) Key(key string) {
	if !r.session.Active() {
		return
	}
	z := float64(r.view.Zoom())
	switch strings.ToLower(key) {
	case "enter":
		r.Place()
	// The canvas moves, so "w" shifts it down to look further up.
	case "w":
		r.view.Pan(0, z)
		r.changed()
	case "a":
		r.view.Pan(z, 0)
		r.changed()
	case "s":
		r.view.Pan(0, -z)
		r.changed()
	case "d":
		r.view.Pan(-z, 0)
		r.changed()
	case "arrowup":
		r.stepColor(-4)
	case "arrowdown":
		r.stepColor(4)
	case "arrowleft":
		r.stepColor(-1)
	case "arrowright":
		r.stepColor(1)
	}
}

func (r *Router) stepColor(delta int) {
	c := r.session.SelectedColor() + delta
	c = max(0, min(r.colors-1, c))
	if r.session.SelectColor(c) {
		r.changed()
	}
}

// ZoomOption handles a click on one of the zoom buttons.
func (r *Router) ZoomOption(z int) {
	if !r.session.Active() {
		return
	}
	if r.view.SetZoom(z) == nil {
		r.changed()
	}
}

func (r *Router) ColorOption(c int) {
	if !r.session.Active() {
		return
	}
	if r.session.SelectColor(c) {
		r.changed()
	}
}

// Place sends a placement for the cell under the viewport anchor.
func (r *Router) Place() bool {
	x, y := r.view.RoundedCell()
	return r.session.Place(x, y, r.view.Zoom())
}

// HoveredCell is the targeted cell and who last painted it.
func (r *Router) HoveredCell() (x, y int, editor string, ok bool) {
	x, y = r.view.RoundedCell()
	editor, ok = r.session.EditorAt(x, y)
	return x, y, editor, ok
}

// ClearForm submits the moderator clear form.
func (r *Router) ClearForm(x1, y1, x2, y2 int) bool {
	return r.session.Clear(x1, y1, x2, y2)
}

func (r *Router) BanForm(user string) bool {
	return r.session.Ban(strings.TrimSpace(user))
}

func (r *Router) CooldownForm(seconds uint) bool {
	return r.session.SetCooldown(seconds)
}
