package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL          = "https://api.kucoin.com"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultPingInterval     = 18 * time.Second
	DefaultPingTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultMaxTopics        = 100
	DefaultBufferSize       = 1024
	DefaultControlRate      = 10.0
	DefaultControlBurst     = 100
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
)

func (c *FeedConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Connections defaults
	if c.Connections.PingInterval == 0 {
		c.Connections.PingInterval = DefaultPingInterval
	}
	if c.Connections.PingTimeout == 0 {
		c.Connections.PingTimeout = DefaultPingTimeout
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.HandshakeTimeout == 0 {
		c.Connections.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connections.MaxTopics == 0 {
		c.Connections.MaxTopics = DefaultMaxTopics
	}
	if c.Connections.BufferSize == 0 {
		c.Connections.BufferSize = DefaultBufferSize
	}
	if c.Connections.ControlRate == 0 {
		c.Connections.ControlRate = DefaultControlRate
	}
	if c.Connections.ControlBurst == 0 {
		c.Connections.ControlBurst = DefaultControlBurst
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
