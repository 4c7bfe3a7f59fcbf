package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeclient/internal/metrics"
	"placeclient/internal/mirror"
	"placeclient/internal/palette"
	"placeclient/internal/session"
)

type fakeSource struct {
	pixels []byte
	err    error
	status session.Status
}

func (f fakeSource) Pixels(context.Context) ([]byte, error) { return f.pixels, f.err }

func (f fakeSource) Status(context.Context) (session.Status, error) { return f.status, f.err }

func newServer(src fakeSource) (*Server, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.CommandsSent.WithLabelValues("PING").Inc()
	return &Server{
		Pixels:        src,
		Status:        src,
		Palette:       palette.Default(),
		Width:         2,
		Height:        2,
		Gatherer:      reg,
		AllowedOrigin: "http://127.0.0.1:5500",
	}, reg
}

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Result()
}

func TestGetPixels(t *testing.T) {
	srv, _ := newServer(fakeSource{pixels: []byte{0, 5, 6, 39}})
	resp := get(t, srv.Handler(), "/pixels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://127.0.0.1:5500", resp.Header.Get("Access-Control-Allow-Origin"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0, 5, 6, 39}, body)
}

func TestGetPNG(t *testing.T) {
	srv, _ := newServer(fakeSource{pixels: []byte{0, 5, 6, 39}})
	resp := get(t, srv.Handler(), "/canvas.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	body, _ := io.ReadAll(resp.Body)
	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b})
	r, g, b, _ = img.At(0, 1).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})
}

func TestPixelErrors(t *testing.T) {
	cases := []struct {
		name string
		src  fakeSource
		want int
	}{
		{name: "no snapshot", src: fakeSource{err: session.ErrNoSnapshot}, want: http.StatusServiceUnavailable},
		{name: "source failure", src: fakeSource{err: errors.New("redis down")}, want: http.StatusInternalServerError},
		{name: "wrong size", src: fakeSource{pixels: []byte{1}}, want: http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv, _ := newServer(c.src)
			assert.Equal(t, c.want, get(t, srv.Handler(), "/pixels").StatusCode)
			assert.Equal(t, c.want, get(t, srv.Handler(), "/canvas.png").StatusCode)
		})
	}
}

// emptyStore is a Redis without the canvas key.
type emptyStore struct{}

func (emptyStore) Set(context.Context, string, interface{}, time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (emptyStore) SetRange(context.Context, string, int64, string) *redis.IntCmd {
	return redis.NewIntResult(0, nil)
}

func (emptyStore) Get(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func TestMirrorSourceBeforeSnapshot(t *testing.T) {
	srv, _ := newServer(fakeSource{})
	srv.Pixels = mirror.NewRedis(emptyStore{}, "pixels", 2, nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler(), "/pixels").StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler(), "/canvas.png").StatusCode)
}

func TestGetStatus(t *testing.T) {
	srv, _ := newServer(fakeSource{status: session.Status{State: "authenticated", Cooldown: "Place", CanPlace: true}})
	resp := get(t, srv.Handler(), "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st session.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "authenticated", st.State)
	assert.True(t, st.CanPlace)

	srv, _ = newServer(fakeSource{err: session.ErrClosed})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler(), "/status").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newServer(fakeSource{})
	resp := get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `placeclient_commands_sent_total{command="PING"} 1`)
}
