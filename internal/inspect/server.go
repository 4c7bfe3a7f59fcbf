// Package inspect serves a read-only local view of the mirrored canvas.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"placeclient/internal/canvas"
	"placeclient/internal/palette"
	"placeclient/internal/session"
)

// PixelSource returns the raw palette index grid, row major.
type PixelSource interface {
	Pixels(ctx context.Context) ([]byte, error)
}

type StatusSource interface {
	Status(ctx context.Context) (session.Status, error)
}

type Server struct {
	Pixels   PixelSource
	Status   StatusSource
	Palette  *palette.Palette
	Width    int
	Height   int
	Gatherer prometheus.Gatherer
	// AllowedOrigin is echoed in Access-Control-Allow-Origin when set.
	AllowedOrigin string
	Log           *zap.SugaredLogger
}

func (s *Server) Handler() http.Handler {
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/pixels", s.handleGetPixels)
	r.Get("/canvas.png", s.handleGetPNG)
	r.Get("/status", s.handleGetStatus)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AllowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) pixels(rw http.ResponseWriter, req *http.Request) ([]byte, bool) {
	data, err := s.Pixels.Pixels(req.Context())
	switch {
	case errors.Is(err, session.ErrNoSnapshot):
		http.Error(rw, "canvas not loaded yet", http.StatusServiceUnavailable)
		return nil, false
	case err != nil:
		s.Log.Errorf("error getting pixels data: %v", err)
		http.Error(rw, "could not retrieve pixels data", http.StatusInternalServerError)
		return nil, false
	case len(data) != s.Width*s.Height:
		s.Log.Errorf("pixels data has %d bytes, want %d", len(data), s.Width*s.Height)
		http.Error(rw, "could not retrieve pixels data", http.StatusInternalServerError)
		return nil, false
	}
	return data, true
}

func (s *Server) handleGetPixels(rw http.ResponseWriter, req *http.Request) {
	data, ok := s.pixels(rw, req)
	if !ok {
		return
	}
	rw.Header().Set("Content-Type", "application/octet-stream")
	rw.WriteHeader(http.StatusOK)
	rw.Write(data)
}

func (s *Server) handleGetPNG(rw http.ResponseWriter, req *http.Request) {
	data, ok := s.pixels(rw, req)
	if !ok {
		return
	}
	buf := canvas.New(s.Width, s.Height, s.Palette)
	if err := buf.LoadSnapshot(data); err != nil {
		s.Log.Errorf("error decoding pixels data: %v", err)
		http.Error(rw, "could not render canvas", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "image/png")
	if err := png.Encode(rw, buf.Image()); err != nil {
		s.Log.Errorf("error encoding png: %v", err)
	}
}

func (s *Server) handleGetStatus(rw http.ResponseWriter, req *http.Request) {
	if s.Status == nil {
		http.Error(rw, "status unavailable", http.StatusNotFound)
		return
	}
	st, err := s.Status.Status(req.Context())
	if err != nil {
		s.Log.Errorf("error getting session status: %v", err)
		http.Error(rw, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(st); err != nil {
		s.Log.Errorf("error marshaling status: %v", err)
	}
}
