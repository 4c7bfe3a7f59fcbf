// Package transport connects to the canvas server's WebSocket endpoint.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a [websocket.Conn] to add thread safety to WriteMessage, so a
// keepalive and a user command can never interleave on the wire.
type Conn struct {
	*websocket.Conn

	m sync.Mutex
}

func (c *Conn) WriteMessage(messageType int, data []byte) error {
	c.m.Lock()
	defer c.m.Unlock()

	return c.Conn.WriteMessage(messageType, data)
}

// Close sends a normal closure frame before dropping the connection.
func (c *Conn) Close() error {
	c.m.Lock()
	_ = c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.m.Unlock()

	return c.Conn.Close()
}

type DialOptions struct {
	// Header is sent with the handshake, e.g. an Origin the server accepts.
	Header           http.Header
	HandshakeTimeout time.Duration
	// ReadLimit caps a single frame; zero means no limit. A full USERS
	// roster is larger than the snapshot.
	ReadLimit int64
}

// Dial opens a connection to url.
func Dial(ctx context.Context, url string, opts DialOptions) (*Conn, error) {
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  1024,
	}
	ws, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("error opening websocket connection to %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("error opening websocket connection to %s: %w", url, err)
	}
	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}
	return &Conn{Conn: ws}, nil
}

// IsNormalClose reports whether err is the server closing the connection on
// purpose rather than a failure.
func IsNormalClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return websocket.IsCloseError(ce, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
