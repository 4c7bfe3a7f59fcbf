// Package mirror copies the live canvas into Redis under a single string key,
// one byte per cell, so other local tools can read it without a WebSocket.
package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"placeclient/internal/canvas"
	"placeclient/internal/session"
)

// Store is the part of *redis.Client the mirror uses.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetRange(ctx context.Context, key string, offset int64, value string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type op struct {
	offset int64
	data   []byte
	// full replaces the whole key instead of writing at offset.
	full bool
}

// Redis is a session.Observer that queues writes and applies them from its
// own goroutine, so the session loop never waits on Redis.
type Redis struct {
	session.NopObserver

	store   Store
	key     string
	width   int
	timeout time.Duration
	log     *zap.SugaredLogger

	ops  chan op
	done chan struct{}
}

func NewRedis(store Store, key string, width int, log *zap.SugaredLogger) *Redis {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Redis{
		store:   store,
		key:     key,
		width:   width,
		timeout: 2 * time.Second,
		log:     log,
		ops:     make(chan op, 1024),
		done:    make(chan struct{}),
	}
}

// NewClient connects to REDIS_ADDRESS with REDIS_PASSWORD on database 0.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func (m *Redis) enqueue(o op) {
	select {
	case m.ops <- o:
	default:
		m.log.Warnf("redis mirror queue full, dropping write at offset %d", o.offset)
	}
}

func (m *Redis) SnapshotLoaded(buf *canvas.Buffer) {
	m.enqueue(op{full: true, data: buf.Indices()})
}

func (m *Redis) CellPainted(_ string, x, y int, color uint8) {
	m.enqueue(op{offset: int64(x + m.width*y), data: []byte{color}})
}

func (m *Redis) RegionCleared(r canvas.Rect) {
	row := make([]byte, r.X2-r.X1+1)
	for y := r.Y1; y <= r.Y2; y++ {
		m.enqueue(op{offset: int64(r.X1 + m.width*y), data: row})
	}
}

// Run applies queued writes until ctx is done.
func (m *Redis) Run(ctx context.Context) {
	select {
	case <-m.done:
		panic("mirror has already been run")
	default:
	}
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-m.ops:
			m.apply(ctx, o)
		}
	}
}

func (m *Redis) apply(ctx context.Context, o op) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var err error
	if o.full {
		err = m.store.Set(ctx, m.key, o.data, 0).Err()
	} else {
		err = m.store.SetRange(ctx, m.key, o.offset, string(o.data)).Err()
	}
	if err != nil {
		m.log.Errorf("error updating Redis: %v", err)
	}
}

// Pixels reads the mirrored grid back. A missing key means no snapshot has
// been mirrored yet and is reported as session.ErrNoSnapshot.
func (m *Redis) Pixels(ctx context.Context) ([]byte, error) {
	data, err := m.store.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNoSnapshot
	}
	return data, err
}
