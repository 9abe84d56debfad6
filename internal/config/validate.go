package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/kucoin-feed/internal/topic"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.API.validate("api"); err != nil {
		return err
	}

	if c.Connections.PingInterval <= 0 {
		return errors.New("connections.ping_interval must be > 0")
	}
	if c.Connections.PingTimeout <= 0 {
		return errors.New("connections.ping_timeout must be > 0")
	}
	if c.Connections.WriteTimeout <= 0 {
		return errors.New("connections.write_timeout must be > 0")
	}
	if c.Connections.MaxTopics < 1 {
		return errors.New("connections.max_topics must be >= 1")
	}
	if c.Connections.BufferSize < 1 {
		return errors.New("connections.buffer_size must be >= 1")
	}
	if c.Connections.ControlRate <= 0 {
		return errors.New("connections.control_rate must be > 0")
	}
	if c.Connections.ControlBurst < 1 {
		return errors.New("connections.control_burst must be >= 1")
	}

	topics, err := c.validateTopics()
	if err != nil {
		return err
	}
	for _, t := range topics {
		if t.Private() && !c.API.HasCredentials() {
			return fmt.Errorf("topics: %s is private and needs api.api_key, api.api_secret and api.api_passphrase", t)
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

func (a *APIConfig) validate(prefix string) error {
	u, err := url.Parse(a.RestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s.rest_url is not a valid url: %q", prefix, a.RestURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be > 0", prefix)
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	return nil
}

func (c *FeedConfig) validateTopics() ([]topic.Topic, error) {
	if len(c.Topics) == 0 {
		return nil, errors.New("topics must list at least one topic")
	}
	if len(c.Topics) > c.Connections.MaxTopics {
		return nil, fmt.Errorf("topics: %d topics exceed connections.max_topics (%d)", len(c.Topics), c.Connections.MaxTopics)
	}

	topics, err := c.ParsedTopics()
	if err != nil {
		return nil, err
	}
	seen := make(map[topic.Topic]struct{}, len(topics))
	for _, t := range topics {
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("topics: duplicate topic %s", t)
		}
		seen[t] = struct{}{}
	}
	return topics, nil
}
