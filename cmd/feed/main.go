package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/kucoin-feed/internal/api"
	"github.com/rickgao/kucoin-feed/internal/auth"
	"github.com/rickgao/kucoin-feed/internal/config"
	"github.com/rickgao/kucoin-feed/internal/connection"
	"github.com/rickgao/kucoin-feed/internal/event"
	"github.com/rickgao/kucoin-feed/internal/metrics"
	feedmux "github.com/rickgao/kucoin-feed/internal/mux"
	"github.com/rickgao/kucoin-feed/internal/topic"
	"github.com/rickgao/kucoin-feed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feed.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file with API credentials")
	debug := flag.Bool("debug", false, "log every event")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feed", append(version.Info(), "config", *configPath)...)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath, *envPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	topics := cfg.Subscriptions

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.RestURL,
		"topics", len(topics),
	)

	if err := run(cfg, topics, logger); err != nil {
		logger.Error("feed stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("feed stopped")
}

func run(cfg *config.FeedConfig, topics []topic.Topic, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Bootstrap
	var creds *auth.Credentials
	if cfg.API.HasCredentials() {
		creds, err = auth.NewCredentials(cfg.API.APIKey, cfg.API.APISecret, cfg.API.APIPassphrase)
		if err != nil {
			return err
		}
	}
	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	private := false
	for _, t := range topics {
		private = private || t.Private()
	}

	logger.Info("requesting connect token", "private", private)
	servers, err := apiClient.Bullet(ctx, private)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if len(servers.InstanceServers) == 0 {
		return connection.ErrNoInstanceServer
	}

	server := servers.InstanceServers[0]
	pingInterval := cfg.Connections.PingInterval
	if d := server.PingIntervalDuration(); d > 0 {
		pingInterval = d
	}
	pingTimeout := cfg.Connections.PingTimeout
	if d := server.PingTimeoutDuration(); d > 0 {
		pingTimeout = d
	}

	sv := connection.NewSupervisor(cfg.Connections.Supervisor(), logger, connection.WithMetrics(m))
	defer sv.Close()

	tokens, err := sv.ConnectInstance(ctx, servers, topics)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for i, tok := range tokens {
		logger.Info("subscribed", "topic", topics[i].String(), "path", topics[i].Path(), "token", tok)
	}

	var lastFrame atomic.Int64
	lastFrame.Store(time.Now().UnixNano())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createRouter(cfg, sv, reg, &lastFrame),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		healthServer.Shutdown(shutdownCtx)
	}()

	logger.Info("feed running",
		"instance_id", cfg.Instance.ID,
		"server", server.Endpoint,
		"ping_interval", pingInterval,
		"ping_timeout", pingTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consume(gctx, sv, &lastFrame, logger) })
	g.Go(func() error { return watchdog(gctx, &lastFrame, pingInterval+pingTimeout, logger) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case f := <-sv.HeartbeatFailures():
				logger.Error("heartbeat stopped", "session", f.SessionID, "at", f.At, "error", f.Err)
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume pulls events until the supervisor has nothing left to deliver.
func consume(ctx context.Context, sv *connection.Supervisor, lastFrame *atomic.Int64, logger *slog.Logger) error {
	for {
		ev, err := sv.Next(ctx)
		if err == nil {
			lastFrame.Store(time.Now().UnixNano())
			logEvent(ev, logger)
			continue
		}

		var (
			cerr *event.ClassificationError
			derr *event.DecodeError
			terr *feedmux.TransportError
		)
		switch {
		case errors.As(err, &cerr):
			lastFrame.Store(time.Now().UnixNano())
			logger.Warn("skipping unclassified message", "reason", cerr.Reason)
		case errors.As(err, &derr):
			lastFrame.Store(time.Now().UnixNano())
			logger.Warn("skipping undecodable message", "kind", derr.Kind.String(), "error", derr.Err)
		case errors.Is(err, event.ErrPeerClosed):
			logger.Warn("server closed the session", "error", err)
		case errors.As(err, &terr):
			topicName := ""
			if t, ok := sv.TopicOf(terr.Token); ok {
				topicName = t.String()
			}
			logger.Error("stream failed", "token", terr.Token, "topic", topicName, "error", terr.Err)
		case errors.Is(err, feedmux.ErrNoStreams):
			return errors.New("all streams ended")
		case errors.Is(err, feedmux.ErrClosed), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

func logEvent(ev event.Event, logger *slog.Logger) {
	switch e := ev.(type) {
	case event.ErrorMessage:
		logger.Warn("server error", "id", e.ID, "code", e.Code, "data", e.Data)
	case event.Control:
		logger.Debug("control", "kind", e.Kind().String(), "id", e.ID)
	default:
		logger.Debug("event", "kind", ev.Kind().String(), "type", fmt.Sprintf("%T", ev))
	}
}

// watchdog ends the run when no frame arrived within staleAfter. There is no
// reconnect; the process supervisor restarts the feed.
func watchdog(ctx context.Context, lastFrame *atomic.Int64, staleAfter time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(staleAfter / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			age := now.Sub(time.Unix(0, lastFrame.Load()))
			if age > staleAfter {
				logger.Error("feed is stale", "last_frame_age", age, "limit", staleAfter)
				return fmt.Errorf("no frame for %s", age.Round(time.Millisecond))
			}
		}
	}
}

// createRouter creates the HTTP handler for health checks and metrics.
func createRouter(cfg *config.FeedConfig, sv *connection.Supervisor, reg *prometheus.Registry, lastFrame *atomic.Int64) http.Handler {
	r := mux.NewRouter()

	r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := sv.Stats()
		age := time.Since(time.Unix(0, lastFrame.Load()))

		health := struct {
			Status       string   `json:"status"`
			Instance     string   `json:"instance"`
			Version      string   `json:"version"`
			Sessions     int      `json:"sessions"`
			Streams      int      `json:"streams"`
			Topics       []string `json:"topics"`
			LastFrameAge string   `json:"last_frame_age"`
		}{
			Status:       "healthy",
			Instance:     cfg.Instance.ID,
			Version:      version.String(),
			Sessions:     stats.Sessions,
			Streams:      stats.Streams,
			LastFrameAge: age.Round(time.Millisecond).String(),
		}
		for _, t := range sv.Topics() {
			health.Topics = append(health.Topics, t.String())
		}
		if stats.Sessions == 0 {
			health.Status = "unhealthy"
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}).Methods(http.MethodGet)

	return r
}
