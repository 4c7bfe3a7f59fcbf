package session

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"placeclient/internal/cooldown"
)

type frame struct {
	messageType int
	data        []byte
}

// Run drives the session until the connection closes or ctx is cancelled.
// Frames, timer ticks and functions posted with Do are handled one at a
// time on the calling goroutine, in the order they arrive.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.exited)
	defer s.conn.Close()

	frames := make(chan frame)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readLoop(frames, readErr, done)

	tick := time.NewTicker(cooldown.TickInterval)
	defer tick.Stop()
	keepalive := time.NewTicker(s.opts.KeepaliveInterval)
	defer keepalive.Stop()

	s.HandleOpen()
	for s.state != Closed {
		select {
		case <-ctx.Done():
			s.close(ctx.Err(), false)

		case f := <-frames:
			s.handleFrame(f)

		case err := <-readErr:
			s.HandleClose(err)

		case <-tick.C:
			s.Tick()

		case <-keepalive.C:
			s.Ping()

		case fn := <-s.inbox:
			fn(s)
		}
	}
	return s.closeErr
}

// readLoop forwards frames in arrival order. frames is unbuffered, so a read
// error is only reported after every earlier frame was taken.
func (s *Session) readLoop(frames chan<- frame, readErr chan<- error, done <-chan struct{}) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- frame{messageType: messageType, data: data}:
		case <-done:
			return
		}
	}
}

func (s *Session) handleFrame(f frame) {
	switch f.messageType {
	case websocket.BinaryMessage:
		s.HandleBinary(f.data)
	case websocket.TextMessage:
		s.HandleText(string(f.data))
	}
}

// Do runs fn on the session goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*Session)) error {
	ran := make(chan struct{})
	wrapped := func(s *Session) {
		fn(s)
		close(ran)
	}
	select {
	case s.inbox <- wrapped:
	case <-s.exited:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// Status is a point in time summary of the session.
type Status struct {
	State         string `json:"state"`
	Cooldown      string `json:"cooldown"`
	CanPlace      bool   `json:"canPlace"`
	SelectedColor int    `json:"selectedColor"`
	HasSnapshot   bool   `json:"hasSnapshot"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Deferred      int    `json:"deferred"`
}

func (s *Session) status() Status {
	return Status{
		State:         s.state.String(),
		Cooldown:      s.CooldownLabel(),
		CanPlace:      s.CanPlaceNow(),
		SelectedColor: s.selected,
		HasSnapshot:   s.buffer != nil,
		Width:         s.opts.Width,
		Height:        s.opts.Height,
		Deferred:      len(s.deferred),
	}
}

// Status reads the session summary from another goroutine.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.Do(ctx, func(s *Session) { st = s.status() })
	return st, err
}

// Pixels copies the raw palette index grid from another goroutine.
func (s *Session) Pixels(ctx context.Context) ([]byte, error) {
	var (
		out    []byte
		absent bool
	)
	err := s.Do(ctx, func(s *Session) {
		if s.buffer == nil {
			absent = true
			return
		}
		out = s.buffer.Indices()
	})
	if err != nil {
		return nil, err
	}
	if absent {
		return nil, ErrNoSnapshot
	}
	return out, nil
}
