// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - inbound frames by kind and outbound control frames by type
//   - classified events and failures by class
//   - heartbeat send failures
//   - multiplexer stream count and buffer depth
package metrics
