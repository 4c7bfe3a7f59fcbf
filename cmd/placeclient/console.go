package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"placeclient/internal/canvas"
	"placeclient/internal/session"
)

// console prints session events as plain lines. Cell paints are too
// frequent to print and are left to the mirror.
type console struct {
	session.NopObserver
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) SnapshotLoaded(buf *canvas.Buffer) {
	fmt.Fprintf(c.out, "canvas loaded: %dx%d (%s)\n",
		buf.Width(), buf.Height(), humanize.Bytes(uint64(buf.Width()*buf.Height())))
}

func (c *console) RegionCleared(r canvas.Rect) {
	fmt.Fprintf(c.out, "region cleared: %d,%d to %d,%d\n", r.X1, r.Y1, r.X2, r.Y2)
}

func (c *console) StateChanged(from, to session.State) {
	fmt.Fprintf(c.out, "state: %s -> %s\n", from, to)
}

func (c *console) CooldownChanged(label string) {
	fmt.Fprintf(c.out, "cooldown: %s\n", label)
}

func (c *console) Notice(n session.Notice) {
	fmt.Fprintf(c.out, "!! %s\n", n.Message)
}
