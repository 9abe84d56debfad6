package connection

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rickgao/kucoin-feed/internal/topic"
)

// Errors
var (
	ErrNoTopics          = errors.New("no topics")
	ErrTooManyTopics     = errors.New("too many topics for one connection")
	ErrDuplicateTopic    = errors.New("duplicate topic")
	ErrAlreadySubscribed = errors.New("topic already subscribed")
	ErrNotSubscribed     = errors.New("topic not subscribed")
	ErrNoInstanceServer  = errors.New("no instance server")
	ErrAlreadyClosed     = errors.New("already closed")
)

// Control frame types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// ControlFrame is an outbound subscribe, unsubscribe or ping message. Ping
// frames carry only id and type.
type ControlFrame struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Topic          string `json:"topic,omitempty"`
	PrivateChannel *bool  `json:"privateChannel,omitempty"`
	Response       *bool  `json:"response,omitempty"`
}

// frameID renders the Unix millisecond timestamp used as a frame id.
func frameID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

func NewSubscribe(t topic.Topic, now time.Time) ControlFrame {
	return topicFrame(TypeSubscribe, t, now)
}

func NewUnsubscribe(t topic.Topic, now time.Time) ControlFrame {
	return topicFrame(TypeUnsubscribe, t, now)
}

func NewPing(now time.Time) ControlFrame {
	return ControlFrame{ID: frameID(now), Type: TypePing}
}

func topicFrame(typ string, t topic.Topic, now time.Time) ControlFrame {
	private := t.Private()
	response := true
	return ControlFrame{
		ID:             frameID(now),
		Type:           typ,
		Topic:          t.Path(),
		PrivateChannel: &private,
		Response:       &response,
	}
}

// TransportError reports a failed dial, write or read on a session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HeartbeatFailure is reported when a session's heartbeat could not send a
// ping. The heartbeat for that session has stopped; reading continues.
type HeartbeatFailure struct {
	SessionID string
	At        time.Time
	Err       error
}

func (f HeartbeatFailure) Error() string {
	return fmt.Sprintf("heartbeat on session %s: %v", f.SessionID, f.Err)
}

func (f HeartbeatFailure) Unwrap() error { return f.Err }

// TickerFunc starts a periodic tick. It returns the tick channel and a stop
// function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// SessionConfig configures one transport session.
type SessionConfig struct {
	PingInterval     time.Duration // Heartbeat period
	WriteTimeout     time.Duration // Write deadline for every frame
	HandshakeTimeout time.Duration // Websocket dial handshake
	ControlRate      float64       // Sustained outbound frames per second
	ControlBurst     int           // Outbound burst
}

// DefaultSessionConfig returns sensible defaults. The exchange allows 100
// client messages per 10 seconds.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ControlRate:      10,
		ControlBurst:     100,
	}
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	Session    SessionConfig
	MaxTopics  int // Topics per connection
	BufferSize int // Initial multiplexer buffer capacity
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Session:    DefaultSessionConfig(),
		MaxTopics:  100,
		BufferSize: 1024,
	}
}
