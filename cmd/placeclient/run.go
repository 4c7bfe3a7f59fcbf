package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"placeclient/internal/authtoken"
	"placeclient/internal/config"
	"placeclient/internal/inspect"
	"placeclient/internal/input"
	"placeclient/internal/metrics"
	"placeclient/internal/mirror"
	"placeclient/internal/palette"
	"placeclient/internal/session"
	"placeclient/internal/transport"
	"placeclient/internal/viewport"
)

func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	// stdout belongs to the prompt
	zc.OutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// dialOptions leaves frames unbounded. The USERS roster carries one name
// per cell, so it can be many times the size of the snapshot.
func dialOptions(cfg config.Config) transport.DialOptions {
	header := http.Header{}
	if cfg.Origin != "" {
		header.Set("Origin", cfg.Origin)
	}
	return transport.DialOptions{Header: header}
}

func run(ctx context.Context, cfg config.Config, token string, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if token == "" && cfg.TokenURL != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		token, err = authtoken.Fetch(ctx, client, cfg.TokenURL)
		if err != nil {
			log.Warnf("error fetching auth token, continuing view only: %v", err)
		}
	}
	if token == "" {
		log.Info("no auth token, canvas is view only")
	}

	conn, err := transport.Dial(ctx, cfg.WSURL, dialOptions(cfg))
	if err != nil {
		return err
	}
	log.Infof("connected to %s", cfg.WSURL)

	reg := prometheus.NewRegistry()
	pal := palette.Default()
	observers := session.Observers{newConsole(out)}

	var pixels inspect.PixelSource
	if cfg.RedisAddress != "" {
		client := mirror.NewClient(cfg.RedisAddress, cfg.RedisPassword)
		defer client.Close()
		m := mirror.NewRedis(client, cfg.RedisKey, cfg.CanvasWidth, log.Named("mirror"))
		go m.Run(ctx)
		observers = append(observers, m)
		pixels = m
		log.Infof("mirroring canvas to redis %s key %q", cfg.RedisAddress, cfg.RedisKey)
	}

	sess := session.New(conn, session.Options{
		Width:    cfg.CanvasWidth,
		Height:   cfg.CanvasHeight,
		Palette:  pal,
		Token:    token,
		Logger:   log.Named("session"),
		Metrics:  metrics.New(reg),
		Observer: observers,
	})
	if pixels == nil {
		pixels = sess
	}

	if cfg.InspectAddr != "" {
		srv := &http.Server{
			Addr: cfg.InspectAddr,
			Handler: (&inspect.Server{
				Pixels:        pixels,
				Status:        sess,
				Palette:       pal,
				Width:         cfg.CanvasWidth,
				Height:        cfg.CanvasHeight,
				Gatherer:      reg,
				AllowedOrigin: cfg.Origin,
				Log:           log.Named("inspect"),
			}).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infof("inspect server listening on %s", cfg.InspectAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("error running inspect server: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	view := viewport.New(cfg.CanvasWidth, cfg.CanvasHeight, cfg.ViewWidth, cfg.ViewHeight)
	router := input.NewRouter(view, sess, pal.Len())
	prompt := newREPL(router, view, sess, out)
	router.Changed = prompt.changed

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		if err := prompt.run(ctx, sess, in); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("error reading input: %v", err)
		}
	}()

	err = sess.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled), transport.IsNormalClose(err):
		return nil
	default:
		return err
	}
}
