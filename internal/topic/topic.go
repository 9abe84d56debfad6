package topic

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSymbols is the exchange limit on symbols carried by a single topic.
const MaxSymbols = 100

// Channel identifies a subscription channel family.
type Channel int

const (
	ChannelTicker Channel = iota + 1
	ChannelAllTicker
	ChannelSnapshot
	ChannelOrderBook
	ChannelOrderBookDepth5
	ChannelOrderBookDepth50
	ChannelMatch
	ChannelFullMatch
	ChannelLevel3Public
	ChannelLevel3Private
	ChannelIndexPrice
	ChannelMarkPrice
	ChannelOrderBookChange
	ChannelStopOrder
	ChannelBalances
	ChannelDebtRatio
	ChannelPositionChange
	ChannelMarginTradeOrder
	ChannelTradeOrders
)

// arity describes how many symbols a channel takes.
type arity int

const (
	arityNone arity = iota
	arityOne
	arityMany
)

type channelSpec struct {
	name    string // config name, e.g. "ticker"
	prefix  string // path before the ':' separator
	arity   arity
	private bool
	subject string // frames on a shared path are told apart by subject
}

var channels = map[Channel]channelSpec{
	ChannelTicker:           {name: "ticker", prefix: "/market/ticker", arity: arityMany},
	ChannelAllTicker:        {name: "all_ticker", prefix: "/market/ticker:all", arity: arityNone},
	ChannelSnapshot:         {name: "snapshot", prefix: "/market/snapshot", arity: arityOne},
	ChannelOrderBook:        {name: "order_book", prefix: "/market/level2", arity: arityMany},
	ChannelOrderBookDepth5:  {name: "order_book_depth5", prefix: "/spotMarket/level2Depth5", arity: arityMany},
	ChannelOrderBookDepth50: {name: "order_book_depth50", prefix: "/spotMarket/level2Depth50", arity: arityMany},
	ChannelMatch:            {name: "match", prefix: "/market/match", arity: arityMany},
	ChannelFullMatch:        {name: "full_match", prefix: "/spotMarket/level3", arity: arityMany},
	ChannelLevel3Public:     {name: "level3_public", prefix: "/market/level3", arity: arityMany},
	ChannelLevel3Private:    {name: "level3_private", prefix: "/market/level3", arity: arityMany, private: true},
	ChannelIndexPrice:       {name: "index_price", prefix: "/indicator/index", arity: arityMany},
	ChannelMarkPrice:        {name: "mark_price", prefix: "/indicator/markPrice", arity: arityMany},
	ChannelOrderBookChange:  {name: "order_book_change", prefix: "/margin/fundingBook", arity: arityMany},
	ChannelStopOrder:        {name: "stop_order", prefix: "/market/level3", arity: arityMany, private: true},
	ChannelBalances:         {name: "balances", prefix: "/account/balance", arity: arityNone, private: true},
	ChannelDebtRatio:        {name: "debt_ratio", prefix: "/margin/position", arity: arityNone, private: true, subject: "debt.ratio"},
	ChannelPositionChange:   {name: "position_change", prefix: "/margin/position", arity: arityNone, private: true, subject: "position.status"},
	ChannelMarginTradeOrder: {name: "margin_trade_order", prefix: "/margin/loan", arity: arityOne, private: true},
	ChannelTradeOrders:      {name: "trade_orders", prefix: "/spotMarket/tradeOrders", arity: arityNone, private: true},
}

// Channels returns every known channel in declaration order.
func Channels() []Channel {
	out := make([]Channel, 0, len(channels))
	for c := ChannelTicker; c <= ChannelTradeOrders; c++ {
		out = append(out, c)
	}
	return out
}

// String returns the config name of the channel.
func (c Channel) String() string {
	if spec, ok := channels[c]; ok {
		return spec.name
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Errors
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrBadSymbols     = errors.New("invalid symbol list")
)

// Topic is a subscription target: a channel plus its ordered symbol list.
// Topic is comparable; two topics are equal when channel and symbols match.
type Topic struct {
	Channel Channel
	symbols string // comma-joined
}

// New builds a topic for the channel with the given symbols.
func New(ch Channel, symbols ...string) Topic {
	return Topic{Channel: ch, symbols: strings.Join(symbols, ",")}
}

func Ticker(symbols ...string) Topic           { return New(ChannelTicker, symbols...) }
func AllTicker() Topic                         { return New(ChannelAllTicker) }
func Snapshot(symbol string) Topic             { return New(ChannelSnapshot, symbol) }
func OrderBook(symbols ...string) Topic        { return New(ChannelOrderBook, symbols...) }
func OrderBookDepth5(symbols ...string) Topic  { return New(ChannelOrderBookDepth5, symbols...) }
func OrderBookDepth50(symbols ...string) Topic { return New(ChannelOrderBookDepth50, symbols...) }
func Match(symbols ...string) Topic            { return New(ChannelMatch, symbols...) }
func FullMatch(symbols ...string) Topic        { return New(ChannelFullMatch, symbols...) }
func Level3Public(symbols ...string) Topic     { return New(ChannelLevel3Public, symbols...) }
func Level3Private(symbols ...string) Topic    { return New(ChannelLevel3Private, symbols...) }
func IndexPrice(symbols ...string) Topic       { return New(ChannelIndexPrice, symbols...) }
func MarkPrice(symbols ...string) Topic        { return New(ChannelMarkPrice, symbols...) }
func OrderBookChange(symbols ...string) Topic  { return New(ChannelOrderBookChange, symbols...) }
func StopOrder(symbols ...string) Topic        { return New(ChannelStopOrder, symbols...) }
func Balances() Topic                          { return New(ChannelBalances) }
func DebtRatio() Topic                         { return New(ChannelDebtRatio) }
func PositionChange() Topic                    { return New(ChannelPositionChange) }
func MarginTradeOrder(symbol string) Topic     { return New(ChannelMarginTradeOrder, symbol) }
func TradeOrders() Topic                       { return New(ChannelTradeOrders) }

// Symbols returns the topic's symbols in subscription order.
func (t Topic) Symbols() []string {
	if t.symbols == "" {
		return nil
	}
	return strings.Split(t.symbols, ",")
}

// Path returns the channel path sent in the subscribe frame.
func (t Topic) Path() string {
	spec := channels[t.Channel]
	if spec.arity == arityNone {
		return spec.prefix
	}
	return spec.prefix + ":" + t.symbols
}

// Private reports whether the channel requires a private (signed) session.
func (t Topic) Private() bool {
	return channels[t.Channel].private
}

// Validate checks the channel is known and the symbol count fits its arity.
func (t Topic) Validate() error {
	spec, ok := channels[t.Channel]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, int(t.Channel))
	}

	syms := t.Symbols()
	for _, s := range syms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: empty symbol in %s", ErrBadSymbols, spec.name)
		}
	}

	switch spec.arity {
	case arityNone:
		if len(syms) != 0 {
			return fmt.Errorf("%w: %s takes no symbols", ErrBadSymbols, spec.name)
		}
	case arityOne:
		if len(syms) != 1 {
			return fmt.Errorf("%w: %s takes exactly one symbol, got %d", ErrBadSymbols, spec.name, len(syms))
		}
	case arityMany:
		if len(syms) == 0 {
			return fmt.Errorf("%w: %s needs at least one symbol", ErrBadSymbols, spec.name)
		}
		if len(syms) > MaxSymbols {
			return fmt.Errorf("%w: %s carries %d symbols, max %d", ErrBadSymbols, spec.name, len(syms), MaxSymbols)
		}
	}
	return nil
}

// Matches reports whether an inbound frame with the given topic and subject
// belongs to this subscription.
func (t Topic) Matches(frameTopic, subject string) bool {
	spec, ok := channels[t.Channel]
	if !ok {
		return false
	}
	if spec.subject != "" && subject != spec.subject {
		return false
	}
	if spec.arity == arityNone {
		return frameTopic == spec.prefix
	}

	prefix, sym, found := strings.Cut(frameTopic, ":")
	if !found || prefix != spec.prefix {
		return false
	}
	if sym == t.symbols {
		return true
	}
	for _, s := range t.Symbols() {
		if s == sym {
			return true
		}
	}
	return false
}

// String returns the config form of the topic, e.g. "ticker:BTC-USDT,ETH-USDT".
func (t Topic) String() string {
	if t.symbols == "" {
		return t.Channel.String()
	}
	return t.Channel.String() + ":" + t.symbols
}

// Parse reads the config form produced by String.
func Parse(s string) (Topic, error) {
	name, syms, _ := strings.Cut(strings.TrimSpace(s), ":")

	var ch Channel
	for c, spec := range channels {
		if spec.name == name {
			ch = c
			break
		}
	}
	if ch == 0 {
		return Topic{}, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}

	var symbols []string
	if syms != "" {
		for _, sym := range strings.Split(syms, ",") {
			symbols = append(symbols, strings.TrimSpace(sym))
		}
	}

	t := New(ch, symbols...)
	if err := t.Validate(); err != nil {
		return Topic{}, err
	}
	return t, nil
}

// ParseAll parses a list of config topics, stopping at the first error.
func ParseAll(specs []string) ([]Topic, error) {
	out := make([]Topic, 0, len(specs))
	for i, s := range specs {
		t, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("topics[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
