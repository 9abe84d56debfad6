package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/kucoin-feed/internal/event"
	"github.com/rickgao/kucoin-feed/internal/metrics"
)

var (
	// ErrNoStreams is returned by Next when no stream is registered. It is a
	// caller error: nothing could ever arrive.
	ErrNoStreams = errors.New("no streams registered")

	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("multiplexer closed")
)

// Token identifies one stream registered with a Multiplexer. Tokens are
// allocated from a monotonic counter and never reused.
type Token uint64

func (t Token) String() string { return fmt.Sprintf("token-%d", uint64(t)) }

// Stream is one ordered source of raw frames. Frames is closed when the
// stream ends; an error delivered on Errors before that surfaces from Next
// as a *TransportError.
type Stream interface {
	Frames() <-chan event.RawFrame
	Errors() <-chan error
}

// TransportError reports a receive failure on one stream.
type TransportError struct {
	Token Token
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Token, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FinishFunc is called, without multiplexer locks held, when a stream ends
// or its peer sends a close frame.
type FinishFunc func(tok Token)

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithClassifier replaces event.Default.
func WithClassifier(c event.Classifier) Option {
	return func(m *Multiplexer) { m.classifier = c }
}

// WithFinishHook replaces the default end-of-stream handling (Remove).
func WithFinishHook(fn FinishFunc) Option {
	return func(m *Multiplexer) { m.onFinish = fn }
}

// WithMetrics records stream and event counts.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Multiplexer) { m.metrics = mt }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Multiplexer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBufferSize sets the initial capacity of the shared buffer.
func WithBufferSize(n int) Option {
	return func(m *Multiplexer) { m.bufferSize = n }
}

// item is one unit in the shared buffer.
type item struct {
	token Token
	frame event.RawFrame
	err   error
	end   bool // stream finished; no more items for token
	wake  bool // no payload; makes a blocked Next re-check state
}

type slot struct {
	stream Stream
	stop   chan struct{}
}

// Multiplexer merges any number of streams into one pull sequence of
// classified events. Streams can be inserted and removed while a consumer
// is blocked in Next. Items from one stream keep their order.
type Multiplexer struct {
	classifier event.Classifier
	onFinish   FinishFunc
	metrics    *metrics.Metrics
	logger     *slog.Logger
	bufferSize int

	buf *GrowableBuffer[item]

	mu      sync.Mutex
	next    Token
	slots   map[Token]*slot
	closed  bool
	resizes int // buffer resizes already published

	wg sync.WaitGroup
}

// New creates an empty Multiplexer.
func New(opts ...Option) *Multiplexer {
	m := &Multiplexer{
		classifier: event.Default,
		logger:     slog.Default(),
		bufferSize: 1024,
		slots:      make(map[Token]*slot),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.onFinish == nil {
		m.onFinish = func(tok Token) { m.Remove(tok) }
	}
	m.buf = NewGrowableBuffer[item](m.bufferSize)
	return m
}

// Insert registers a stream and starts pumping it. The returned token is
// unique for the lifetime of the Multiplexer. After Close the stream is not
// pumped.
func (m *Multiplexer) Insert(s Stream) Token {
	m.mu.Lock()
	m.next++
	tok := m.next
	if m.closed {
		m.mu.Unlock()
		return tok
	}
	sl := &slot{stream: s, stop: make(chan struct{})}
	m.slots[tok] = sl
	n := len(m.slots)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.pump(tok, sl)

	m.metrics.SetActiveStreams(n)
	m.logger.Debug("stream inserted", "token", tok, "streams", n)
	return tok
}

// Remove unregisters a stream. Items it already buffered are discarded.
// Removing an unknown or already removed token is a no-op.
func (m *Multiplexer) Remove(tok Token) (Stream, bool) {
	m.mu.Lock()
	sl, ok := m.slots[tok]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	delete(m.slots, tok)
	close(sl.stop)
	n := len(m.slots)
	m.mu.Unlock()

	m.buf.Send(item{wake: true})

	m.metrics.SetActiveStreams(n)
	m.logger.Debug("stream removed", "token", tok, "streams", n)
	return sl.stream, true
}

// Len returns the number of registered streams.
func (m *Multiplexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// Next blocks until the next event from any registered stream.
//
// It returns ErrNoStreams when nothing is registered, *TransportError for a
// receive failure, and the classifier's error for frames that cannot be
// classified. A close frame finishes its stream and returns an error
// wrapping event.ErrPeerClosed. Streams that simply end are dropped without
// an error.
func (m *Multiplexer) Next(ctx context.Context) (event.Event, error) {
	for {
		m.mu.Lock()
		closed, n := m.closed, len(m.slots)
		m.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		if n == 0 {
			return nil, ErrNoStreams
		}

		it, err := m.buf.ReceiveContext(ctx)
		if err != nil {
			if errors.Is(err, ErrBufferClosed) {
				return nil, ErrClosed
			}
			return nil, err
		}
		m.observeBuffer()

		if it.wake {
			continue
		}
		if !m.live(it.token) {
			m.metrics.ItemDiscarded()
			continue
		}
		if it.end {
			m.logger.Debug("stream ended", "token", it.token)
			m.onFinish(it.token)
			continue
		}
		if it.err != nil {
			m.metrics.Failure("transport")
			return nil, &TransportError{Token: it.token, Err: it.err}
		}

		ev, err := m.classifier.Classify(it.frame)
		if err != nil {
			m.metrics.Failure(failureClass(err))
			if errors.Is(err, event.ErrPeerClosed) {
				m.onFinish(it.token)
			}
			return nil, err
		}
		m.metrics.EventClassified(ev.Kind().String())
		return ev, nil
	}
}

// Close stops every pump and unblocks Next. Buffered items are dropped.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for tok, sl := range m.slots {
		close(sl.stop)
		delete(m.slots, tok)
	}
	m.mu.Unlock()

	m.buf.Close()
	m.wg.Wait()

	dropped := len(m.buf.DrainTo(0))
	st := m.buf.Stats()
	m.metrics.SetActiveStreams(0)
	m.metrics.SetBufferedItems(0)
	m.logger.Debug("multiplexer closed",
		"dropped", dropped,
		"buffered_total", st.TotalReceived,
		"delivered_total", st.TotalSent,
		"resizes", st.ResizeCount,
	)
}

// observeBuffer publishes buffer depth, capacity and growth.
func (m *Multiplexer) observeBuffer() {
	st := m.buf.Stats()
	m.metrics.SetBufferedItems(st.Count)
	m.metrics.SetBufferCapacity(st.Capacity)

	m.mu.Lock()
	grown := st.ResizeCount - m.resizes
	if grown > 0 {
		m.resizes = st.ResizeCount
	}
	m.mu.Unlock()

	if grown > 0 {
		m.metrics.BufferGrown(grown)
		m.logger.Info("multiplexer buffer grew", "capacity", st.Capacity, "buffered", st.Count)
	}
}

func (m *Multiplexer) live(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[tok]
	return ok
}

// pump copies one stream into the shared buffer until the stream ends or is
// removed.
func (m *Multiplexer) pump(tok Token, sl *slot) {
	defer m.wg.Done()

	frames := sl.stream.Frames()
	errs := sl.stream.Errors()

	for {
		select {
		case <-sl.stop:
			return

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.buf.Send(item{token: tok, err: err})

		case f, ok := <-frames:
			if !ok {
				// An error sent just before close must not be lost.
				select {
				case err, ok := <-errs:
					if ok && err != nil {
						m.buf.Send(item{token: tok, err: err})
					}
				default:
				}
				m.buf.Send(item{token: tok, end: true})
				return
			}
			m.buf.Send(item{token: tok, frame: f})
		}
	}
}

func failureClass(err error) string {
	var (
		cerr *event.ClassificationError
		derr *event.DecodeError
	)
	switch {
	case errors.As(err, &cerr):
		return "unclassified"
	case errors.As(err, &derr):
		return "decode"
	case errors.Is(err, event.ErrPeerClosed):
		return "closed"
	default:
		return "other"
	}
}
