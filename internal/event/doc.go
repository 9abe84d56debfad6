// Package event classifies inbound push-feed frames into typed events.
//
// Classification is two-pass: a minimal envelope {id, type, topic, subject}
// is decoded first, the (channel prefix, subject) pair selects a variant from
// a lookup table, and only then is the full payload decoded into that
// variant. Channels that reuse field values across families (the literal
// "open" is both a full-match subject and a trade-order data.type) never
// collide because the channel prefix is always part of the key.
//
// Failures are typed:
//   - *ClassificationError: no rule matched (recoverable)
//   - *DecodeError: the selected variant failed to decode
//   - *ClosedError: close frame, wraps ErrPeerClosed
package event
