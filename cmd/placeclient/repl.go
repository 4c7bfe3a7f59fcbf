package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"placeclient/internal/input"
	"placeclient/internal/session"
	"placeclient/internal/viewport"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  w a s d               move one cell
  up down left right    change colour
  enter | place         place at the centre cell
  zoom N                set zoom (1 2 4 8 16 32)
  scroll DY             mouse wheel, negative zooms in
  drag DX DY            drag the canvas by a screen delta
  color N               pick a palette colour
  where                 show the targeted cell
  clear X1 Y1 X2 Y2     moderator: clear a region
  ban USER              moderator: ban a user
  cooldown SECONDS      moderator: set the cooldown
  quit`

// looper runs functions on the session goroutine.
type looper interface {
	Do(ctx context.Context, fn func(*session.Session)) error
}

// repl maps typed commands onto the input router the way a browser maps
// clicks and key presses.
type repl struct {
	router  *input.Router
	view    *viewport.Viewport
	session input.Session
	out     io.Writer
	dirty   bool
}

func newREPL(router *input.Router, view *viewport.Viewport, s input.Session, out io.Writer) *repl {
	return &repl{router: router, view: view, session: s, out: out}
}

func (r *repl) changed() { r.dirty = true }

// run reads commands from in until EOF, quit, or the session ends. Every
// command executes on the session goroutine.
func (r *repl) run(ctx context.Context, loop looper, in io.Reader) error {
	fmt.Fprintln(r.out, `type "help" for commands`)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var (
			msg string
			err error
		)
		doErr := loop.Do(ctx, func(*session.Session) {
			msg, err = r.exec(strings.Fields(scanner.Text()))
		})
		if doErr != nil {
			if errors.Is(doErr, session.ErrClosed) {
				return nil
			}
			return doErr
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		if msg != "" {
			fmt.Fprintln(r.out, msg)
		}
	}
	return scanner.Err()
}

// exec runs one command. It must be called on the session goroutine.
func (r *repl) exec(fields []string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	r.dirty = false
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	ints := func(n int) ([]int, error) {
		if len(args) != n {
			return nil, fmt.Errorf("%s takes %d arguments", cmd, n)
		}
		out := make([]int, n)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("invalid argument %q", a)
			}
			out[i] = v
		}
		return out, nil
	}
	sent := func(ok bool) (string, error) {
		if ok {
			return "sent", nil
		}
		return "not sent", nil
	}

	switch cmd {
	case "help", "?":
		return helpText, nil
	case "quit", "exit":
		return "", errQuit
	case "w", "a", "s", "d":
		r.router.Key(cmd)
		return r.where(), nil
	case "up", "down", "left", "right":
		r.router.Key("Arrow" + cmd)
		return r.where(), nil
	case "enter", "place":
		return sent(r.router.Place())
	case "zoom":
		v, err := ints(1)
		if err != nil {
			return "", err
		}
		if !viewport.ValidZoom(v[0]) {
			return "", fmt.Errorf("%w: %d", viewport.ErrInvalidZoom, v[0])
		}
		r.router.ZoomOption(v[0])
		return r.where(), nil
	case "scroll":
		v, err := ints(1)
		if err != nil {
			return "", err
		}
		r.router.Wheel(float64(v[0]))
		return r.where(), nil
	case "drag":
		v, err := ints(2)
		if err != nil {
			return "", err
		}
		r.router.PointerDown(false)
		r.router.PointerMove(float64(v[0]), float64(v[1]), input.ButtonPrimary)
		r.router.PointerUp()
		return r.where(), nil
	case "color", "colour":
		v, err := ints(1)
		if err != nil {
			return "", err
		}
		r.router.ColorOption(v[0])
		if !r.dirty {
			return "", fmt.Errorf("colour %d not available", v[0])
		}
		return r.where(), nil
	case "where":
		return r.where(), nil
	case "clear":
		v, err := ints(4)
		if err != nil {
			return "", err
		}
		return sent(r.router.ClearForm(v[0], v[1], v[2], v[3]))
	case "ban":
		if len(args) != 1 {
			return "", errors.New("ban takes a user name")
		}
		return sent(r.router.BanForm(args[0]))
	case "cooldown":
		if len(args) != 1 {
			return "", errors.New("cooldown takes a number of seconds")
		}
		secs, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return "", fmt.Errorf("invalid argument %q", args[0])
		}
		return sent(r.router.CooldownForm(uint(secs)))
	}
	return "", fmt.Errorf("unknown command %q", cmd)
}

func (r *repl) where() string {
	x, y, editor, ok := r.router.HoveredCell()
	s := fmt.Sprintf("cell %d,%d zoom %d colour %d", x, y, r.view.Zoom(), r.session.SelectedColor())
	if ok {
		s += " last placed by " + editor
	}
	if o, shown := r.view.Outline(); shown {
		s += fmt.Sprintf(" outline at %.0f,%.0f", o.X, o.Y)
	}
	return s
}
