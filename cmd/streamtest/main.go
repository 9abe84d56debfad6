// streamtest connects to the push feed and prints classified events to the console.
// Usage: go run ./cmd/streamtest ticker:BTC-USDT all_ticker match:ETH-USDT
//
// Private topics read credentials from the environment (or a .env file):
//
//	KUCOIN_API_KEY        - API key
//	KUCOIN_API_SECRET     - API secret
//	KUCOIN_API_PASSPHRASE - API passphrase as entered when the key was created
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/kucoin-feed/internal/api"
	"github.com/rickgao/kucoin-feed/internal/auth"
	"github.com/rickgao/kucoin-feed/internal/connection"
	"github.com/rickgao/kucoin-feed/internal/event"
	"github.com/rickgao/kucoin-feed/internal/mux"
	"github.com/rickgao/kucoin-feed/internal/topic"
)

func main() {
	restURL := flag.String("rest-url", api.DefaultBaseURL, "REST base url for the bootstrap call")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	_ = godotenv.Load()

	specs := flag.Args()
	if len(specs) == 0 {
		specs = []string{"all_ticker"}
	}
	topics, err := topic.ParseAll(specs)
	if err != nil {
		logger.Error("invalid topics", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	private := false
	for _, t := range topics {
		private = private || t.Private()
	}

	var creds *auth.Credentials
	if private {
		creds, err = auth.NewCredentials(
			os.Getenv("KUCOIN_API_KEY"),
			os.Getenv("KUCOIN_API_SECRET"),
			os.Getenv("KUCOIN_API_PASSPHRASE"),
		)
		if err != nil {
			logger.Error("private topics need credentials", "error", err)
			logger.Info("Set environment variables: KUCOIN_API_KEY, KUCOIN_API_SECRET and KUCOIN_API_PASSPHRASE")
			os.Exit(1)
		}
	}

	apiClient := api.NewClient(*restURL, creds, api.WithLogger(logger))
	servers, err := apiClient.Bullet(ctx, private)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	sv := connection.NewSupervisor(connection.DefaultSupervisorConfig(), logger)
	defer sv.Close()

	if _, err := sv.ConnectInstance(ctx, servers, topics); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := sv.Stats()
				logger.Info("stats",
					"sessions", stats.Sessions,
					"topics", stats.Topics,
					"streams", stats.Streams,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "topics", specs)

	for {
		ev, err := sv.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mux.ErrClosed) || errors.Is(err, mux.ErrNoStreams) {
				break
			}
			logger.Warn("receive error", "error", err)
			continue
		}
		printEvent(ev, *verbose)
	}

	logger.Info("shutdown complete")
}

func printEvent(ev event.Event, verbose bool) {
	label := "[" + ev.Kind().String() + "]"
	if verbose {
		data, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Printf("%s %s\n", label, data)
		return
	}

	switch e := ev.(type) {
	case event.Message[event.SymbolTicker]:
		fmt.Printf("%s topic=%s subject=%s price=%s bid=%s ask=%s\n",
			label, e.Topic, e.Subject, e.Data.Price, e.Data.BestBid, e.Data.BestAsk)
	case event.Message[event.Match]:
		fmt.Printf("%s symbol=%s side=%s price=%s size=%s trade=%s\n",
			label, e.Data.Symbol, e.Data.Side, e.Data.Price, e.Data.Size, e.Data.TradeID)
	case event.Message[event.Level2]:
		fmt.Printf("%s symbol=%s seq=%d-%d asks=%d bids=%d\n",
			label, e.Data.Symbol, e.Data.SequenceStart, e.Data.SequenceEnd, len(e.Data.Changes.Asks), len(e.Data.Changes.Bids))
	case event.Message[event.Level2Depth]:
		fmt.Printf("%s topic=%s asks=%d bids=%d ts=%d\n",
			label, e.Topic, len(e.Data.Asks), len(e.Data.Bids), e.Data.Timestamp)
	case event.Control:
		fmt.Printf("%s type=%s id=%s\n", label, e.Type, e.ID)
	case event.ErrorMessage:
		fmt.Printf("%s code=%s data=%s\n", label, e.Code, e.Data)
	default:
		fmt.Printf("%s %T\n", label, ev)
	}
}
