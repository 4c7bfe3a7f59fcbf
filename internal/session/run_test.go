package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunAppliesFramesInOrderThenCloses(t *testing.T) {
	conn := newFakeConn()
	obs := &recorder{}
	s := New(conn, Options{Width: 2, Height: 2, Logger: zaptest.NewLogger(t).Sugar(), Observer: obs})

	conn.frames <- frame{messageType: websocket.BinaryMessage, data: []byte{1, 1, 1, 1}}
	conn.frames <- frame{messageType: websocket.TextMessage, data: []byte("PLACE a 0 0 2")}
	conn.frames <- frame{messageType: websocket.TextMessage, data: []byte("PLACE b 0 0 3")}
	conn.frames <- frame{messageType: websocket.TextMessage, data: []byte("CLEAR 1 1 1 1")}
	close(conn.frames)

	err := s.Run(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)

	assert.Equal(t, []string{
		"state connecting->open",
		"snapshot 2x2",
		"paint a 0 0 2",
		"paint b 0 0 3",
		"clear 1 1 1 1",
		"state open->closed",
	}, obs.events)
	assert.Equal(t, []string{"PING"}, conn.Written())

	_, err = s.Status(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunAgainstServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(rw, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(msg)

		_ = conn.WriteMessage(websocket.BinaryMessage, make([]byte, 16))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PLACE alice 1 1 6"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("AUTHENTICATION SUCCESS"))

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	s := New(conn, Options{Width: 4, Height: 4, Token: "tok", Logger: zaptest.NewLogger(t).Sugar()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	assert.Equal(t, "AUTH tok", <-received)
	assert.Equal(t, "PING", <-received)

	require.Eventually(t, func() bool {
		st, err := s.Status(ctx)
		return err == nil && st.State == "authenticated" && st.HasSnapshot && st.Deferred == 0
	}, 5*time.Second, 10*time.Millisecond)

	pixels, err := s.Pixels(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(6), pixels[1+4*1])

	var sent bool
	require.NoError(t, s.Do(ctx, func(s *Session) { sent = s.Place(1, 1, 8) }))
	assert.True(t, sent)
	assert.Equal(t, "PLACE 1 1 0", <-received)

	cancel()
	assert.ErrorIs(t, <-runErr, context.Canceled)
}

func TestPixelsBeforeSnapshot(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, Options{Width: 2, Height: 2})
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	_, err := s.Pixels(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	cancel()
	<-runErr
}
