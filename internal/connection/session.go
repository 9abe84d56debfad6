package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rickgao/kucoin-feed/internal/event"
	"github.com/rickgao/kucoin-feed/internal/metrics"
	"github.com/rickgao/kucoin-feed/internal/mux"
	"github.com/rickgao/kucoin-feed/internal/topic"
)

// wsConn is the subset of *websocket.Conn a Session uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTicker replaces the heartbeat's time.Ticker.
func WithTicker(fn TickerFunc) SessionOption {
	return func(s *Session) { s.ticker = fn }
}

// WithHeartbeatReports delivers heartbeat failures to ch without blocking.
func WithHeartbeatReports(ch chan<- HeartbeatFailure) SessionOption {
	return func(s *Session) { s.failures = ch }
}

// WithSessionLogger sets the logger; the session id is added to every line.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionMetrics records frame and control-frame counters in m.
func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// lane carries the frames of one subscribed topic. It implements mux.Stream.
type lane struct {
	topic      topic.Topic
	frames     chan event.RawFrame
	errs       chan error
	detached   chan struct{}
	detachOnce sync.Once
}

func newLane(t topic.Topic) *lane {
	return &lane{
		topic:    t,
		frames:   make(chan event.RawFrame),
		errs:     make(chan error, 1),
		detached: make(chan struct{}),
	}
}

func (l *lane) Frames() <-chan event.RawFrame { return l.frames }
func (l *lane) Errors() <-chan error          { return l.errs }

func (l *lane) detach() {
	l.detachOnce.Do(func() { close(l.detached) })
}

// Session is one websocket connection carrying any number of topics.
//
// Each subscribed topic gets its own lane. The read loop routes every data
// frame to the first lane whose topic matches it; frames without a topic
// (welcome, ack, pong, error, protocol pings) and frames nobody claims go
// to the first lane, the control lane. All writes share one mutex and one
// rate limiter.
type Session struct {
	id      string
	cfg     SessionConfig
	conn    wsConn
	logger  *slog.Logger
	metrics *metrics.Metrics

	ticker   TickerFunc
	failures chan<- HeartbeatFailure
	now      func() time.Time

	writeMu sync.Mutex
	limiter *rate.Limiter

	mu      sync.Mutex
	lanes   []*lane // subscription order; detached lanes removed
	started bool
	ended   bool // no further frames will be routed

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a websocket to url. The session does not read until Start.
func Dial(ctx context.Context, url string, cfg SessionConfig, opts ...SessionOption) (*Session, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return newSession(conn, cfg, opts...), nil
}

func newSession(conn wsConn, cfg SessionConfig, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		conn:    conn,
		logger:  slog.Default(),
		ticker:  realTicker,
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Limit(cfg.ControlRate), max(cfg.ControlBurst, 1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)

	ctx, cancel := context.WithCancel(context.Background())
	s.group, s.ctx = errgroup.WithContext(ctx)
	s.cancel = cancel

	conn.SetPingHandler(func(data string) error {
		s.route(event.RawFrame{Kind: event.FramePing, Data: []byte(data), ReceivedAt: time.Now()})
		return s.writeControl(websocket.PongMessage, []byte(data))
	})
	conn.SetPongHandler(func(data string) error {
		s.route(event.RawFrame{Kind: event.FramePong, Data: []byte(data), ReceivedAt: time.Now()})
		return nil
	})

	return s
}

// ID returns the session's log correlation id.
func (s *Session) ID() string { return s.id }

// Topics returns the attached topics in subscription order.
func (s *Session) Topics() []topic.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]topic.Topic, len(s.lanes))
	for i, l := range s.lanes {
		out[i] = l.topic
	}
	return out
}

// Subscribe opens a lane for t and sends its subscribe frame.
func (s *Session) Subscribe(ctx context.Context, t topic.Topic) (mux.Stream, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrAlreadyClosed
	}
	for _, l := range s.lanes {
		if l.topic == t {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, t)
		}
	}
	l := newLane(t)
	s.lanes = append(s.lanes, l)
	s.mu.Unlock()

	if err := s.send(ctx, NewSubscribe(t, s.now())); err != nil {
		s.Detach(t)
		return nil, err
	}

	s.logger.Debug("subscribed", "topic", t.Path(), "private", t.Private())
	return l, nil
}

// Unsubscribe sends an unsubscribe frame for t and detaches its lane. The
// lane is detached even when the send fails.
func (s *Session) Unsubscribe(ctx context.Context, t topic.Topic) error {
	if !s.has(t) {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, t)
	}

	err := s.send(ctx, NewUnsubscribe(t, s.now()))
	s.Detach(t)
	if err != nil {
		return err
	}

	s.logger.Debug("unsubscribed", "topic", t.Path())
	return nil
}

// Detach stops routing frames to t's lane without telling the server. It
// returns the number of lanes still attached.
func (s *Session) Detach(t topic.Topic) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.lanes {
		if l.topic == t {
			s.lanes = append(s.lanes[:i:i], s.lanes[i+1:]...)
			l.detach()
			break
		}
	}
	return len(s.lanes)
}

func (s *Session) has(t topic.Topic) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lanes {
		if l.topic == t {
			return true
		}
	}
	return false
}

// Start launches the read loop and the heartbeat. Calling it again is a
// no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.ended {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.group.Go(func() error { return s.readLoop(s.ctx) })
	s.group.Go(func() error { return s.heartbeat(s.ctx) })

	s.logger.Info("session started", "topics", len(s.Topics()), "ping_interval", s.cfg.PingInterval)
}

// Close stops both tasks, closes the connection and waits for the tasks to
// exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()

		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		if started {
			_ = s.group.Wait()
		} else {
			s.endLanes()
		}
		s.logger.Info("session closed")
	})
	return s.closeErr
}

// send writes one control frame, paced by the limiter.
func (s *Session) send(ctx context.Context, f ControlFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", f.Type, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return &TransportError{Op: f.Type, Err: err}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &TransportError{Op: f.Type, Err: err}
	}

	s.metrics.ControlFrameSent(f.Type)
	return nil
}

// writeControl replies to protocol frames from inside the read loop.
func (s *Session) writeControl(messageType int, data []byte) error {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.conn.WriteControl(messageType, data, time.Now().Add(s.cfg.WriteTimeout))
	var ne net.Error
	if errors.Is(err, websocket.ErrCloseSent) || errors.As(err, &ne) {
		return nil
	}
	return err
}

// readLoop reads frames until the connection fails, the peer closes, or the
// session is closed. On exit every attached lane is ended.
func (s *Session) readLoop(ctx context.Context) error {
	defer s.endLanes()
	// A dead read side means there is nothing left to keep alive.
	defer s.cancel()

	for {
		messageType, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				s.logger.Info("peer closed session", "code", ce.Code, "text", ce.Text)
				s.metrics.FrameReceived(event.FrameClose.String())
				s.route(event.RawFrame{
					Kind:       event.FrameClose,
					Data:       []byte(fmt.Sprintf("%d %s", ce.Code, ce.Text)),
					ReceivedAt: receivedAt,
				})
				return nil
			}

			s.logger.Warn("read failed", "error", err)
			s.reportError(&TransportError{Op: "read", Err: err})
			return nil
		}

		kind := event.FrameText
		if messageType == websocket.BinaryMessage {
			kind = event.FrameBinary
		}
		s.metrics.FrameReceived(kind.String())
		s.route(event.RawFrame{Kind: kind, Data: data, ReceivedAt: receivedAt})
	}
}

// route hands f to the lane that owns it. It never sends while holding s.mu.
func (s *Session) route(f event.RawFrame) {
	l := s.target(f)
	if l == nil {
		s.logger.Debug("dropping frame with no lanes", "kind", f.Kind.String())
		return
	}

	select {
	case l.frames <- f:
	case <-l.detached:
	case <-s.ctx.Done():
	}
}

// target picks exactly one lane per frame: the first lane, in subscription
// order, whose topic matches. Distinct topics can share a wire path, e.g.
// level3 public and stop orders on the same symbol; the frame still goes to
// one lane only. Frames without a topic or without an owner go to the
// control lane.
func (s *Session) target(f event.RawFrame) *lane {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || len(s.lanes) == 0 {
		return nil
	}
	control := s.lanes[0]
	if f.Kind != event.FrameText {
		return control
	}

	env, err := event.PeekEnvelope(f.Data)
	if err != nil || env.Topic == "" {
		return control
	}

	for _, l := range s.lanes {
		if l.topic.Matches(env.Topic, env.Subject) {
			return l
		}
	}
	return control
}

// reportError puts err on the control lane's error channel.
func (s *Session) reportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || len(s.lanes) == 0 {
		return
	}
	select {
	case s.lanes[0].errs <- err:
	default:
	}
}

// endLanes closes the frame channel of every attached lane. Only the read
// loop, or Close before Start, calls it, so no send can race the close.
func (s *Session) endLanes() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	for _, l := range s.lanes {
		close(l.frames)
	}
}
