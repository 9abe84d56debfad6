// Package connection implements the push-feed transport and its supervisor.
//
// A Session is one websocket connection:
//   - one subscribe frame per topic, one lane (stream) per topic
//   - a read loop that routes frames to lanes by topic and subject
//   - a heartbeat that sends an application ping every ping interval
//   - a single write mutex and token-bucket limiter for all writes
//
// The Supervisor merges every session's lanes through a mux.Multiplexer and
// keeps the topic/token registry in step with it. There is no automatic
// reconnection: a stream that ends is dropped and its topic forgotten.
package connection
