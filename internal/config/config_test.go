package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/kucoin-feed/internal/topic"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-feed
api:
  rest_url: https://openapi-sandbox.kucoin.com
connections:
  ping_interval: 20s
  max_topics: 50
topics:
  - ticker:BTC-USDT,ETH-USDT
  - all_ticker
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-feed" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-feed")
	}
	if cfg.API.RestURL != "https://openapi-sandbox.kucoin.com" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://openapi-sandbox.kucoin.com")
	}
	if cfg.Connections.PingInterval != 20*time.Second {
		t.Errorf("Connections.PingInterval = %v, want %v", cfg.Connections.PingInterval, 20*time.Second)
	}
	if len(cfg.Topics) != 2 {
		t.Fatalf("len(Topics) = %d, want 2", len(cfg.Topics))
	}

	topics, err := cfg.ParsedTopics()
	if err != nil {
		t.Fatalf("ParsedTopics failed: %v", err)
	}
	if topics[0] != topic.Ticker("BTC-USDT", "ETH-USDT") {
		t.Errorf("topics[0] = %s, want ticker:BTC-USDT,ETH-USDT", topics[0])
	}
	if topics[1] != topic.AllTicker() {
		t.Errorf("topics[1] = %s, want all_ticker", topics[1])
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_KC_KEY", "key123")
	t.Setenv("TEST_KC_SECRET", "secret123")
	t.Setenv("TEST_KC_PASSPHRASE", "pass123")

	yaml := `
instance:
  id: test-feed
api:
  api_key: ${TEST_KC_KEY}
  api_secret: ${TEST_KC_SECRET}
  api_passphrase: ${TEST_KC_PASSPHRASE}
topics:
  - balances
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.APISecret != "secret123" {
		t.Errorf("API.APISecret = %q, want %q", cfg.API.APISecret, "secret123")
	}
	if !cfg.API.HasCredentials() {
		t.Error("expected HasCredentials to be true")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-feed
topics:
  - match:BTC-USDT
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Connections.PingInterval != DefaultPingInterval {
		t.Errorf("Connections.PingInterval = %v, want default %v", cfg.Connections.PingInterval, DefaultPingInterval)
	}
	if cfg.Connections.MaxTopics != DefaultMaxTopics {
		t.Errorf("Connections.MaxTopics = %d, want default %d", cfg.Connections.MaxTopics, DefaultMaxTopics)
	}
	if cfg.Connections.ControlBurst != DefaultControlBurst {
		t.Errorf("Connections.ControlBurst = %d, want default %d", cfg.Connections.ControlBurst, DefaultControlBurst)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestLoadAndValidateWrapsError(t *testing.T) {
	path := writeTempFile(t, "topics:\n  - all_ticker\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "validate config: instance.id is required" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: test-feed\nconection:\n  max_topics: 10\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for misspelled section")
	}
	if !strings.Contains(err.Error(), "conection") {
		t.Errorf("error = %q, want it to name the unknown key", err.Error())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeTempFile(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Instance.ID != "" || len(cfg.Topics) != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadAndValidateWithEnvFile(t *testing.T) {
	keys := []string{"TEST_DOTENV_KEY", "TEST_DOTENV_SECRET", "TEST_DOTENV_PASSPHRASE"}
	for _, k := range keys {
		k := k
		t.Cleanup(func() { os.Unsetenv(k) })
	}
	// Set in the process before loading; the file must not override it.
	t.Setenv("TEST_DOTENV_PASSPHRASE", "from-process")

	envPath := filepath.Join(t.TempDir(), ".env")
	env := "TEST_DOTENV_KEY=key-from-file\nTEST_DOTENV_SECRET=secret-from-file\nTEST_DOTENV_PASSPHRASE=pass-from-file\n"
	if err := os.WriteFile(envPath, []byte(env), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	yaml := `
instance:
  id: test-feed
api:
  api_key: ${TEST_DOTENV_KEY}
  api_secret: ${TEST_DOTENV_SECRET}
  api_passphrase: ${TEST_DOTENV_PASSPHRASE}
topics:
  - balances
  - match:BTC-USDT,ETH-USDT
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path, envPath)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.API.APIKey != "key-from-file" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "key-from-file")
	}
	if cfg.API.APIPassphrase != "from-process" {
		t.Errorf("API.APIPassphrase = %q, want %q", cfg.API.APIPassphrase, "from-process")
	}

	if len(cfg.Subscriptions) != 2 {
		t.Fatalf("len(Subscriptions) = %d, want 2", len(cfg.Subscriptions))
	}
	if cfg.Subscriptions[0] != topic.Balances() {
		t.Errorf("Subscriptions[0] = %s, want balances", cfg.Subscriptions[0])
	}
	if cfg.Subscriptions[1] != topic.Match("BTC-USDT", "ETH-USDT") {
		t.Errorf("Subscriptions[1] = %s, want match:BTC-USDT,ETH-USDT", cfg.Subscriptions[1])
	}
}

func TestLoadEnvFilesSkipsMissing(t *testing.T) {
	if err := LoadEnvFiles("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvFiles error = %v, want nil", err)
	}
}

func validConfig() FeedConfig {
	cfg := FeedConfig{
		Instance: InstanceConfig{ID: "test"},
		Topics:   []string{"ticker:BTC-USDT", "all_ticker"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeedConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *FeedConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad rest url",
			mutate:  func(c *FeedConfig) { c.API.RestURL = "api.kucoin.com" },
			wantErr: `api.rest_url is not a valid url: "api.kucoin.com"`,
		},
		{
			name:    "negative retries",
			mutate:  func(c *FeedConfig) { c.API.MaxRetries = -1 },
			wantErr: "api.max_retries must be >= 0",
		},
		{
			name:    "zero control rate",
			mutate:  func(c *FeedConfig) { c.Connections.ControlRate = 0 },
			wantErr: "connections.control_rate must be > 0",
		},
		{
			name:    "no topics",
			mutate:  func(c *FeedConfig) { c.Topics = nil },
			wantErr: "topics must list at least one topic",
		},
		{
			name: "too many topics",
			mutate: func(c *FeedConfig) {
				c.Connections.MaxTopics = 1
			},
			wantErr: "topics: 2 topics exceed connections.max_topics (1)",
		},
		{
			name:    "duplicate topic",
			mutate:  func(c *FeedConfig) { c.Topics = []string{"all_ticker", " all_ticker"} },
			wantErr: "topics: duplicate topic all_ticker",
		},
		{
			name:    "private without credentials",
			mutate:  func(c *FeedConfig) { c.Topics = []string{"trade_orders"} },
			wantErr: "topics: trade_orders is private and needs api.api_key, api.api_secret and api.api_passphrase",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *FeedConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name: "private with credentials",
			mutate: func(c *FeedConfig) {
				c.Topics = []string{"trade_orders", "balances"}
				c.API.APIKey, c.API.APISecret, c.API.APIPassphrase = "k", "s", "p"
			},
			wantErr: "",
		},
		{
			name:    "valid config",
			mutate:  func(*FeedConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestValidateUnknownChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Topics = []string{"ticker:BTC-USDT", "candles:BTC-USDT"}

	err := cfg.Validate()
	if !errors.Is(err, topic.ErrUnknownChannel) {
		t.Fatalf("Validate() error = %v, want ErrUnknownChannel", err)
	}
	if !strings.HasPrefix(err.Error(), "topics[1]:") {
		t.Errorf("error %q should name the offending entry", err.Error())
	}
}

func TestSupervisorConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Connections.ControlRate = 5
	sc := cfg.Connections.Supervisor()

	if sc.Session.PingInterval != DefaultPingInterval {
		t.Errorf("Session.PingInterval = %v, want %v", sc.Session.PingInterval, DefaultPingInterval)
	}
	if sc.Session.ControlRate != 5 {
		t.Errorf("Session.ControlRate = %v, want 5", sc.Session.ControlRate)
	}
	if sc.MaxTopics != DefaultMaxTopics || sc.BufferSize != DefaultBufferSize {
		t.Errorf("MaxTopics/BufferSize = %d/%d", sc.MaxTopics, sc.BufferSize)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
