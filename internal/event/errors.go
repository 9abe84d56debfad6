package event

import (
	"errors"
	"fmt"
)

// ErrPeerClosed marks a stream whose peer sent a close frame.
var ErrPeerClosed = errors.New("session closed by peer")

// ClassificationError reports a text frame that matched no rule. It is
// recoverable: the consumer decides whether to skip or abort.
type ClassificationError struct {
	Raw    string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unclassified message (%s): %s", e.Reason, truncate(e.Raw, 256))
}

// DecodeError reports a payload that failed to parse into the variant its
// envelope selected.
type DecodeError struct {
	Kind Kind
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClosedError is returned for a close frame. It wraps ErrPeerClosed.
type ClosedError struct {
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason == "" {
		return ErrPeerClosed.Error()
	}
	return ErrPeerClosed.Error() + ": " + e.Reason
}

func (e *ClosedError) Unwrap() error { return ErrPeerClosed }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
