package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/kucoin-feed/internal/api"
	"github.com/rickgao/kucoin-feed/internal/event"
	"github.com/rickgao/kucoin-feed/internal/metrics"
	"github.com/rickgao/kucoin-feed/internal/mux"
	"github.com/rickgao/kucoin-feed/internal/subscription"
	"github.com/rickgao/kucoin-feed/internal/topic"
)

// SupervisorStats provides statistics about the supervisor.
type SupervisorStats struct {
	Sessions int
	Topics   int
	Streams  int
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithMetrics records session and multiplexer metrics.
func WithMetrics(m *metrics.Metrics) SupervisorOption {
	return func(sv *Supervisor) { sv.metrics = m }
}

// WithSessionOptions applies opts to every session the supervisor dials.
func WithSessionOptions(opts ...SessionOption) SupervisorOption {
	return func(sv *Supervisor) { sv.sessionOpts = append(sv.sessionOpts, opts...) }
}

// WithClassifier replaces the default frame classifier.
func WithClassifier(c event.Classifier) SupervisorOption {
	return func(sv *Supervisor) { sv.classifier = c }
}

// Supervisor owns the sessions, the multiplexer that merges their topic
// streams, and the topic/token registry. Registry and multiplexer are only
// changed together, under subMu.
type Supervisor struct {
	cfg         SupervisorConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
	classifier  event.Classifier
	sessionOpts []SessionOption

	mux      *mux.Multiplexer
	registry *subscription.Registry
	failures chan HeartbeatFailure

	subMu    sync.Mutex
	owner    map[mux.Token]*Session
	sessions map[*Session]struct{}
	closed   bool
}

// NewSupervisor creates a Supervisor with no sessions.
func NewSupervisor(cfg SupervisorConfig, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	sv := &Supervisor{
		cfg:        cfg,
		logger:     logger,
		classifier: event.Default,
		registry:   subscription.NewRegistry(),
		failures:   make(chan HeartbeatFailure, 16),
		owner:      make(map[mux.Token]*Session),
		sessions:   make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(sv)
	}

	sv.mux = mux.New(
		mux.WithClassifier(sv.classifier),
		mux.WithFinishHook(sv.finish),
		mux.WithMetrics(sv.metrics),
		mux.WithLogger(logger),
		mux.WithBufferSize(cfg.BufferSize),
	)
	return sv
}

// Connect opens one session to url, subscribes every topic on it in order
// and returns one token per topic, in the same order.
func (sv *Supervisor) Connect(ctx context.Context, url string, topics []topic.Topic) ([]mux.Token, error) {
	return sv.connect(ctx, url, sv.cfg.Session, topics)
}

// ConnectInstance connects to the first server of a bootstrap result, using
// the server's ping interval for the heartbeat.
func (sv *Supervisor) ConnectInstance(ctx context.Context, servers *api.InstanceServers, topics []topic.Topic) ([]mux.Token, error) {
	if servers == nil || len(servers.InstanceServers) == 0 {
		return nil, ErrNoInstanceServer
	}
	server := servers.InstanceServers[0]

	cfg := sv.cfg.Session
	if d := server.PingIntervalDuration(); d > 0 {
		cfg.PingInterval = d
	}
	return sv.connect(ctx, api.ConnectURL(server, servers.Token, time.Now()), cfg, topics)
}

func (sv *Supervisor) connect(ctx context.Context, url string, cfg SessionConfig, topics []topic.Topic) ([]mux.Token, error) {
	if err := sv.validate(topics); err != nil {
		return nil, err
	}

	opts := append([]SessionOption{
		WithSessionLogger(sv.logger),
		WithSessionMetrics(sv.metrics),
		WithHeartbeatReports(sv.failures),
	}, sv.sessionOpts...)

	sess, err := Dial(ctx, url, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return sv.attach(ctx, sess, topics)
}

// attach subscribes topics on a dialed session, registers their lanes and
// starts the session.
func (sv *Supervisor) attach(ctx context.Context, sess *Session, topics []topic.Topic) ([]mux.Token, error) {
	streams := make([]mux.Stream, 0, len(topics))
	for _, t := range topics {
		stream, err := sess.Subscribe(ctx, t)
		if err != nil {
			sess.Close()
			return nil, fmt.Errorf("subscribe %s: %w", t, err)
		}
		streams = append(streams, stream)
	}

	sv.subMu.Lock()
	if sv.closed {
		sv.subMu.Unlock()
		sess.Close()
		return nil, ErrAlreadyClosed
	}
	for _, t := range topics {
		if _, ok := sv.registry.LookupByTopic(t); ok {
			sv.subMu.Unlock()
			sess.Close()
			return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, t)
		}
	}

	tokens := make([]mux.Token, len(topics))
	for i, t := range topics {
		tok := sv.mux.Insert(streams[i])
		if err := sv.registry.Subscribe(t, tok); err != nil {
			// Unreachable after the lookup above; undo what this call did.
			for _, done := range tokens[:i] {
				sv.registry.UnsubscribeToken(done)
				sv.mux.Remove(done)
			}
			sv.mux.Remove(tok)
			sv.subMu.Unlock()
			sess.Close()
			return nil, err
		}
		sv.owner[tok] = sess
		tokens[i] = tok
	}
	sv.sessions[sess] = struct{}{}
	sv.subMu.Unlock()

	sess.Start()

	sv.logger.Info("session connected",
		"session", sess.ID(),
		"topics", len(topics),
		"ping_interval", sess.cfg.PingInterval,
	)
	return tokens, nil
}

func (sv *Supervisor) validate(topics []topic.Topic) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}
	if sv.cfg.MaxTopics > 0 && len(topics) > sv.cfg.MaxTopics {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTopics, len(topics), sv.cfg.MaxTopics)
	}

	seen := make(map[topic.Topic]struct{}, len(topics))
	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTopic, t)
		}
		seen[t] = struct{}{}
		if _, ok := sv.registry.LookupByTopic(t); ok {
			return fmt.Errorf("%w: %s", ErrAlreadySubscribed, t)
		}
	}
	return nil
}

// Unsubscribe stops one topic. The session is closed when its last topic
// goes.
func (sv *Supervisor) Unsubscribe(ctx context.Context, t topic.Topic) error {
	sv.subMu.Lock()
	tok, ok := sv.registry.Unsubscribe(t)
	if !ok {
		sv.subMu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotSubscribed, t)
	}
	sv.mux.Remove(tok)
	sess := sv.owner[tok]
	delete(sv.owner, tok)
	sv.subMu.Unlock()

	if sess == nil {
		return nil
	}

	err := sess.Unsubscribe(ctx, t)
	if len(sess.Topics()) == 0 {
		sv.closeSession(sess)
	}
	return err
}

// finish is the multiplexer's end-of-stream hook: the stream's pair leaves
// the registry and the multiplexer together.
func (sv *Supervisor) finish(tok mux.Token) {
	sv.subMu.Lock()
	t, ok := sv.registry.UnsubscribeToken(tok)
	sv.mux.Remove(tok)
	sess := sv.owner[tok]
	delete(sv.owner, tok)
	sv.subMu.Unlock()

	if !ok || sess == nil {
		return
	}

	sv.logger.Info("stream finished", "session", sess.ID(), "topic", t.String(), "token", tok)
	if sess.Detach(t) == 0 {
		sv.closeSession(sess)
	}
}

func (sv *Supervisor) closeSession(sess *Session) {
	sv.subMu.Lock()
	delete(sv.sessions, sess)
	sv.subMu.Unlock()

	if err := sess.Close(); err != nil {
		sv.logger.Debug("session close", "session", sess.ID(), "error", err)
	}
}

// Next returns the next event from any subscribed topic.
func (sv *Supervisor) Next(ctx context.Context) (event.Event, error) {
	return sv.mux.Next(ctx)
}

// Lookup returns the token of a subscribed topic.
func (sv *Supervisor) Lookup(t topic.Topic) (mux.Token, bool) {
	return sv.registry.LookupByTopic(t)
}

// TopicOf returns the topic a token was issued for.
func (sv *Supervisor) TopicOf(tok mux.Token) (topic.Topic, bool) {
	return sv.registry.LookupByToken(tok)
}

// Topics returns every subscribed topic in subscription order.
func (sv *Supervisor) Topics() []topic.Topic {
	return sv.registry.Topics()
}

// HeartbeatFailures reports sessions whose heartbeat stopped.
func (sv *Supervisor) HeartbeatFailures() <-chan HeartbeatFailure {
	return sv.failures
}

// Stats returns current statistics.
func (sv *Supervisor) Stats() SupervisorStats {
	sv.subMu.Lock()
	defer sv.subMu.Unlock()

	return SupervisorStats{
		Sessions: len(sv.sessions),
		Topics:   sv.registry.Len(),
		Streams:  sv.mux.Len(),
	}
}

// Close closes every session and the multiplexer. Next returns
// mux.ErrClosed afterwards.
func (sv *Supervisor) Close() error {
	sv.subMu.Lock()
	if sv.closed {
		sv.subMu.Unlock()
		return nil
	}
	sv.closed = true
	sessions := make([]*Session, 0, len(sv.sessions))
	for s := range sv.sessions {
		sessions = append(sessions, s)
	}
	sv.sessions = make(map[*Session]struct{})
	sv.subMu.Unlock()

	sv.logger.Info("closing supervisor", "sessions", len(sessions))

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			sv.logger.Debug("session close", "session", s.ID(), "error", err)
		}
	}
	sv.mux.Close()
	return nil
}
