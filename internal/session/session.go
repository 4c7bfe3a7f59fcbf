// Package session runs one connection to the canvas server: it owns the
// protocol state machine, the local canvas mirror and the cooldown, and
// decides which outgoing commands may be sent.
//
// All methods except Run, Do and the accessors built on Do must be called
// from the goroutine running Run (or, when testing, from a single
// goroutine with no Run at all).
package session

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"placeclient/internal/canvas"
	"placeclient/internal/cooldown"
	"placeclient/internal/metrics"
	"placeclient/internal/palette"
	"placeclient/internal/protocol"
	"placeclient/internal/viewport"
)

// BannedLabel replaces the cooldown label once the user is banned.
const BannedLabel = "Banned"

const (
	defaultKeepalive   = 5 * time.Minute
	defaultSendLimit   = rate.Limit(5)
	defaultSendBurst   = 5
	defaultMaxDeferred = 1 << 16
)

// Conn is the transport a session runs over. *websocket.Conn satisfies it,
// as does transport.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Options struct {
	Width, Height int
	// Palette defaults to palette.Default().
	Palette *palette.Palette
	// Token is sent as AUTH right after the connection opens. Without one
	// the session stays anonymous and view only.
	Token string

	Logger   *zap.SugaredLogger
	Metrics  *metrics.Metrics
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time

	// SendLimit and SendBurst throttle user commands. PING and AUTH are not
	// throttled.
	SendLimit rate.Limit
	SendBurst int

	KeepaliveInterval time.Duration
	// MaxDeferred bounds the frames held back while authenticating.
	MaxDeferred int
}

type Session struct {
	conn    Conn
	opts    Options
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	obs     Observer
	now     func() time.Time
	limiter *rate.Limiter

	state    State
	buffer   *canvas.Buffer
	roster   []string
	deferred []protocol.Message
	cooldown cooldown.Timer
	label    string
	selected int
	closeErr error

	inbox  chan func(*Session)
	exited chan struct{}
}

func New(conn Conn, opts Options) *Session {
	if opts.Palette == nil {
		opts.Palette = palette.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SendLimit == 0 {
		opts.SendLimit = defaultSendLimit
	}
	if opts.SendBurst == 0 {
		opts.SendBurst = defaultSendBurst
	}
	if opts.KeepaliveInterval == 0 {
		opts.KeepaliveInterval = defaultKeepalive
	}
	if opts.MaxDeferred == 0 {
		opts.MaxDeferred = defaultMaxDeferred
	}
	return &Session{
		conn:    conn,
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		obs:     opts.Observer,
		now:     opts.Now,
		limiter: rate.NewLimiter(opts.SendLimit, opts.SendBurst),
		state:   Connecting,
		label:   cooldown.ReadyLabel,
		inbox:   make(chan func(*Session)),
		exited:  make(chan struct{}),
	}
}

func (s *Session) State() State { return s.state }

// Active reports whether the connection is up.
func (s *Session) Active() bool { return s.state != Connecting && s.state != Closed }

func (s *Session) Palette() *palette.Palette { return s.opts.Palette }

// Buffer is the canvas mirror, or nil before the snapshot and after close.
func (s *Session) Buffer() *canvas.Buffer { return s.buffer }

func (s *Session) SelectedColor() int { return s.selected }

// SelectColor changes the colour used by Place. It refuses indices outside
// the palette and refuses everything once banned.
func (s *Session) SelectColor(c int) bool {
	if s.state == Banned || !s.opts.Palette.Contains(c) {
		return false
	}
	s.selected = c
	return true
}

// EditorAt looks up the recorded editor of a cell.
func (s *Session) EditorAt(x, y int) (string, bool) {
	if s.buffer == nil {
		return "", false
	}
	return s.buffer.EditorAt(x, y)
}

// CanPlaceNow is true when the cooldown has run out and the session is
// authenticated. A banned session is never authenticated.
func (s *Session) CanPlaceNow() bool {
	return s.state == Authenticated && s.cooldown.Ready(s.now())
}

func (s *Session) CooldownLabel() string {
	if s.state == Banned {
		return BannedLabel
	}
	return s.cooldown.Label(s.now())
}

// Deferred is the number of frames waiting for authentication.
func (s *Session) Deferred() int { return len(s.deferred) }

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.metrics.SessionState.Set(float64(to))
	s.log.Debugf("session %s -> %s", from, to)
	s.obs.StateChanged(from, to)
}

// authPending is true while an AUTH has been or will be sent without an
// answer yet.
func (s *Session) authPending() bool {
	switch s.state {
	case Authenticating:
		return true
	case Connecting:
		return s.opts.Token != ""
	}
	return false
}

func (s *Session) placementsReady() bool {
	return s.buffer != nil && !s.authPending()
}

// HandleOpen moves a connecting session to Open, authenticates when a token
// is configured and sends the first keepalive.
func (s *Session) HandleOpen() {
	if s.state != Connecting {
		return
	}
	s.setState(Open)
	if s.opts.Token != "" {
		s.setState(Authenticating)
		if !s.write(protocol.AuthCommand{Token: s.opts.Token}) {
			return
		}
	}
	s.Ping()
	s.drain()
}

// HandleClose ends the session after a transport failure.
func (s *Session) HandleClose(err error) {
	s.close(&TransportError{Op: "read", Err: err}, true)
}

func (s *Session) close(err error, notify bool) {
	if s.state == Closed {
		return
	}
	s.closeErr = err
	s.buffer = nil
	s.roster = nil
	clear(s.deferred)
	s.deferred = nil
	s.cooldown.Disarm()
	s.setState(Closed)
	if notify {
		s.log.Errorf("connection to canvas server closed: %v", err)
		s.obs.Notice(Notice{Kind: NoticeConnectionLost, Message: closedNoticeMessage})
	}
}

// Err is the error that closed the session, if any.
func (s *Session) Err() error { return s.closeErr }

// HandleBinary loads the canvas snapshot.
func (s *Session) HandleBinary(data []byte) {
	if s.state == Closed {
		return
	}
	s.metrics.FramesReceived.WithLabelValues("snapshot").Inc()

	buf := canvas.New(s.opts.Width, s.opts.Height, s.opts.Palette)
	if err := buf.LoadSnapshot(data); err != nil {
		s.log.Errorf("error loading snapshot: %v", err)
		s.metrics.FramesDropped.WithLabelValues(dropReason(err)).Inc()
		return
	}
	if s.buffer != nil {
		s.log.Warnf("replacing canvas with a second snapshot")
	}
	s.buffer = buf
	s.metrics.SnapshotBytes.Set(float64(len(data)))
	s.log.Infof("loaded %dx%d snapshot (%s)", buf.Width(), buf.Height(), humanize.Bytes(uint64(len(data))))

	if s.roster != nil {
		if err := buf.LoadRoster(s.roster); err != nil {
			s.log.Warnf("ignoring roster: %v", err)
		}
	}
	s.obs.SnapshotLoaded(buf)
	s.drain()
}

// HandleText parses and applies one text frame. Frames that fail to parse
// or carry impossible values are logged and dropped.
func (s *Session) HandleText(line string) {
	if s.state == Closed {
		return
	}
	m := protocol.Parse(line)
	s.metrics.FramesReceived.WithLabelValues(protocol.Kind(m)).Inc()

	switch m := m.(type) {
	case protocol.Unrecognized:
		s.log.Warnf("ignoring frame %q: %v", m.Line, m.Err)
		s.dropped(m.Err)

	case protocol.PlaceEvent:
		if s.placementsReady() {
			s.applyPlace(m)
			return
		}
		s.deferFrame(m)

	case protocol.ClearEvent:
		if s.buffer == nil {
			s.log.Warnf("ignoring clear before snapshot: %+v", m)
			s.metrics.FramesDropped.WithLabelValues("no_snapshot").Inc()
			return
		}
		r := canvas.Rect{X1: m.X1, Y1: m.Y1, X2: m.X2, Y2: m.Y2}
		if err := s.buffer.ApplyClear(r); err != nil {
			s.log.Warnf("ignoring clear %+v: %v", m, err)
			s.dropped(err)
			return
		}
		s.obs.RegionCleared(r)

	case protocol.UsersEvent:
		s.roster = m.IDs
		if s.buffer == nil {
			return
		}
		if err := s.buffer.LoadRoster(m.IDs); err != nil {
			s.log.Warnf("ignoring roster: %v", err)
			s.dropped(err)
			return
		}
		s.obs.RosterChanged(s.buffer)

	case protocol.CooldownEvent:
		switch {
		case s.state == Authenticated:
			s.arm(m)
		case s.authPending():
			s.deferFrame(m)
		default:
			s.log.Debugf("ignoring cooldown while %s", s.state)
			s.metrics.FramesDropped.WithLabelValues("state").Inc()
		}

	case protocol.AuthSuccessEvent:
		if s.state != Authenticating {
			s.log.Warnf("ignoring authentication success while %s", s.state)
			s.metrics.FramesDropped.WithLabelValues("state").Inc()
			return
		}
		s.selected = 0
		s.setState(Authenticated)
		s.drain()

	case protocol.BannedEvent:
		if s.state != Authenticating && s.state != Authenticated {
			s.log.Warnf("ignoring ban while %s", s.state)
			s.metrics.FramesDropped.WithLabelValues("state").Inc()
			return
		}
		s.cooldown.Disarm()
		s.setState(Banned)
		s.updateLabel()
		s.obs.Notice(Notice{Kind: NoticeBanned, Message: banNoticeMessage, Dismiss: banNoticeTimeout})
		s.drain()
	}
}

func (s *Session) dropped(err error) {
	s.metrics.FramesDropped.WithLabelValues(dropReason(err)).Inc()
}

func (s *Session) deferFrame(m protocol.Message) {
	if len(s.deferred) >= s.opts.MaxDeferred {
		s.log.Warnf("deferred queue full, dropping %s frame", protocol.Kind(m))
		s.metrics.FramesDropped.WithLabelValues("queue_full").Inc()
		return
	}
	s.deferred = append(s.deferred, m)
	s.metrics.FramesDeferred.WithLabelValues(protocol.Kind(m)).Inc()
}

// drain applies every deferred frame whose gate is now open, in arrival
// order, and keeps the rest queued in order.
func (s *Session) drain() {
	if len(s.deferred) == 0 {
		return
	}
	kept := s.deferred[:0]
	for _, m := range s.deferred {
		switch m := m.(type) {
		case protocol.PlaceEvent:
			if s.placementsReady() {
				s.applyPlace(m)
				continue
			}
		case protocol.CooldownEvent:
			if s.state == Authenticated {
				s.arm(m)
				continue
			}
			if !s.authPending() {
				s.metrics.FramesDropped.WithLabelValues("state").Inc()
				continue
			}
		}
		kept = append(kept, m)
	}
	clear(s.deferred[len(kept):])
	s.deferred = kept
}

func (s *Session) applyPlace(m protocol.PlaceEvent) {
	if err := s.buffer.ApplyPlace(m.User, m.X, m.Y, m.Color); err != nil {
		s.log.Warnf("ignoring placement %+v: %v", m, err)
		s.dropped(err)
		return
	}
	s.obs.CellPainted(m.User, m.X, m.Y, uint8(m.Color))
}

func (s *Session) arm(m protocol.CooldownEvent) {
	s.cooldown.Arm(time.UnixMilli(m.UntilMillis), s.now())
	s.updateLabel()
}

func (s *Session) updateLabel() {
	label := s.CooldownLabel()
	if label == s.label {
		return
	}
	s.label = label
	s.obs.CooldownChanged(label)
}

// Tick advances the cooldown countdown. Run calls it every
// cooldown.TickInterval.
func (s *Session) Tick() {
	if s.state == Closed {
		return
	}
	s.cooldown.Tick(s.now())
	s.updateLabel()
}

// write sends cmd. A failed write closes the session.
func (s *Session) write(cmd protocol.Command) bool {
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(cmd.Encode())); err != nil {
		s.close(&TransportError{Op: "write", Err: err}, true)
		return false
	}
	s.metrics.CommandsSent.WithLabelValues(cmd.Name()).Inc()
	return true
}

func (s *Session) suppress(cmd protocol.Command, gate string) bool {
	s.log.Debugf("not sending: %v", GateViolation{Command: cmd.Name(), Gate: gate})
	s.metrics.CommandsSuppressed.WithLabelValues(cmd.Name(), gate).Inc()
	return false
}

// sendUser sends a user issued command once the common gates pass. Gates
// specific to a command are checked by its caller first.
func (s *Session) sendUser(cmd protocol.Command) bool {
	if s.state != Authenticated {
		return s.suppress(cmd, GateState)
	}
	if err := protocol.Validate(cmd); err != nil {
		s.log.Debugf("invalid command: %v", err)
		return s.suppress(cmd, GateInvalid)
	}
	if !s.limiter.AllowN(s.now(), 1) {
		return s.suppress(cmd, GateRate)
	}
	return s.write(cmd)
}

// Place asks the server to paint (x, y) with the selected colour. zoom is the
// current viewport zoom; placing needs cell sized targets.
func (s *Session) Place(x, y, zoom int) bool {
	cmd := protocol.PlaceCommand{X: x, Y: y, Color: s.selected}
	if s.state != Authenticated {
		return s.suppress(cmd, GateState)
	}
	if zoom < viewport.OutlineZoom {
		return s.suppress(cmd, GateZoom)
	}
	if !s.cooldown.Ready(s.now()) {
		return s.suppress(cmd, GateCooldown)
	}
	return s.sendUser(cmd)
}

// Clear asks the server to reset an inclusive rectangle. Only the shape of
// the rectangle is checked here; the server decides whether it fits the
// canvas and whether the user may clear at all.
func (s *Session) Clear(x1, y1, x2, y2 int) bool {
	return s.sendUser(protocol.ClearCommand{X1: x1, Y1: y1, X2: x2, Y2: y2})
}

func (s *Session) Ban(user string) bool {
	return s.sendUser(protocol.BanCommand{User: user})
}

func (s *Session) SetCooldown(seconds uint) bool {
	return s.sendUser(protocol.SetCooldownCommand{Seconds: seconds})
}

// Ping sends a keepalive. No reply is expected.
func (s *Session) Ping() bool {
	if !s.Active() {
		return false
	}
	return s.write(protocol.PingCommand{})
}
