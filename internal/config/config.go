package config

import (
	"time"

	"github.com/rickgao/kucoin-feed/internal/connection"
	"github.com/rickgao/kucoin-feed/internal/topic"
)

// FeedConfig is the root configuration for a feed instance.
type FeedConfig struct {
	Instance    InstanceConfig    `yaml:"instance"`
	API         APIConfig         `yaml:"api"`
	Connections ConnectionsConfig `yaml:"connections"`
	Topics      []string          `yaml:"topics"` // channel[:SYM1,SYM2]
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Subscriptions is Topics parsed; set by LoadAndValidate.
	Subscriptions []topic.Topic `yaml:"-"`
}

// InstanceConfig identifies this feed.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds REST settings for the bootstrap call.
type APIConfig struct {
	RestURL       string        `yaml:"rest_url"`
	APIKey        string        `yaml:"api_key"`
	APISecret     string        `yaml:"api_secret"`
	APIPassphrase string        `yaml:"api_passphrase"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

// HasCredentials reports whether all three private-channel credentials are set.
func (a APIConfig) HasCredentials() bool {
	return a.APIKey != "" && a.APISecret != "" && a.APIPassphrase != ""
}

// ConnectionsConfig holds websocket session settings. PingInterval and
// PingTimeout are fallbacks; the bootstrap response overrides them.
type ConnectionsConfig struct {
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	MaxTopics        int           `yaml:"max_topics"`
	BufferSize       int           `yaml:"buffer_size"`
	ControlRate      float64       `yaml:"control_rate"`
	ControlBurst     int           `yaml:"control_burst"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// ParsedTopics parses the topics section.
func (c *FeedConfig) ParsedTopics() ([]topic.Topic, error) {
	return topic.ParseAll(c.Topics)
}

// Supervisor converts the connections section to a supervisor config.
func (c *ConnectionsConfig) Supervisor() connection.SupervisorConfig {
	return connection.SupervisorConfig{
		Session: connection.SessionConfig{
			PingInterval:     c.PingInterval,
			WriteTimeout:     c.WriteTimeout,
			HandshakeTimeout: c.HandshakeTimeout,
			ControlRate:      c.ControlRate,
			ControlBurst:     c.ControlBurst,
		},
		MaxTopics:  c.MaxTopics,
		BufferSize: c.BufferSize,
	}
}
