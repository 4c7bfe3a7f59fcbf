package session

import (
	"time"

	"placeclient/internal/canvas"
)

// Observer is told about every change the session makes. Calls happen on
// the session loop goroutine and must not block.
type Observer interface {
	SnapshotLoaded(buf *canvas.Buffer)
	CellPainted(user string, x, y int, color uint8)
	RegionCleared(r canvas.Rect)
	RosterChanged(buf *canvas.Buffer)
	StateChanged(from, to State)
	CooldownChanged(label string)
	Notice(n Notice)
}

type NoticeKind int

const (
	NoticeBanned NoticeKind = iota
	NoticeConnectionLost
)

// Notice is a banner for the user. A zero Dismiss means it stays up.
type Notice struct {
	Kind    NoticeKind
	Message string
	Dismiss time.Duration
}

const (
	banNoticeMessage    = "You have been banned. You can continue browsing but may no longer place."
	closedNoticeMessage = "Websocket connection closed... try refreshing the website later."

	banNoticeTimeout = 5 * time.Second
)

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) SnapshotLoaded(*canvas.Buffer)       {}
func (NopObserver) CellPainted(string, int, int, uint8) {}
func (NopObserver) RegionCleared(canvas.Rect)           {}
func (NopObserver) RosterChanged(*canvas.Buffer)        {}
func (NopObserver) StateChanged(State, State)           {}
func (NopObserver) CooldownChanged(string)              {}
func (NopObserver) Notice(Notice)                       {}

// Observers fans every call out in order.
type Observers []Observer

func (o Observers) SnapshotLoaded(buf *canvas.Buffer) {
	for _, ob := range o {
		ob.SnapshotLoaded(buf)
	}
}

func (o Observers) CellPainted(user string, x, y int, color uint8) {
	for _, ob := range o {
		ob.CellPainted(user, x, y, color)
	}
}

func (o Observers) RegionCleared(r canvas.Rect) {
	for _, ob := range o {
		ob.RegionCleared(r)
	}
}

func (o Observers) RosterChanged(buf *canvas.Buffer) {
	for _, ob := range o {
		ob.RosterChanged(buf)
	}
}

func (o Observers) StateChanged(from, to State) {
	for _, ob := range o {
		ob.StateChanged(from, to)
	}
}

func (o Observers) CooldownChanged(label string) {
	for _, ob := range o {
		ob.CooldownChanged(label)
	}
}

func (o Observers) Notice(n Notice) {
	for _, ob := range o {
		ob.Notice(n)
	}
}
