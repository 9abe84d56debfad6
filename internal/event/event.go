package event

import "time"

// FrameKind is the transport-level type of an inbound frame.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// RawFrame is one inbound transport frame before classification.
type RawFrame struct {
	Kind       FrameKind
	Data       []byte
	ReceivedAt time.Time // Local timestamp when the read returned
}

// Kind names a TypedEvent variant.
type Kind int

const (
	KindUnknown Kind = iota

	// Control variants
	KindWelcome
	KindPing
	KindPong
	KindProtocolPing
	KindProtocolPong
	KindBinary
	KindError

	// Market data
	KindTicker
	KindAllTicker
	KindSnapshot
	KindOrderBook
	KindOrderBookDepth
	KindMatch
	KindLevel3Received
	KindLevel3Open
	KindLevel3Done
	KindLevel3Match
	KindLevel3Change
	KindFullMatchReceived
	KindFullMatchOpen
	KindFullMatchDone
	KindFullMatchMatch
	KindFullMatchChange
	KindIndexPrice
	KindMarkPrice
	KindOrderBookChange

	// Private channels
	KindStopOrder
	KindBalances
	KindDebtRatio
	KindPositionChange
	KindMarginTradeOpen
	KindMarginTradeUpdate
	KindMarginTradeDone
	KindTradeOpen
	KindTradeMatch
	KindTradeFilled
	KindTradeCanceled
	KindTradeUpdate
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindWelcome:           "welcome",
	KindPing:              "ping",
	KindPong:              "pong",
	KindProtocolPing:      "protocol_ping",
	KindProtocolPong:      "protocol_pong",
	KindBinary:            "binary",
	KindError:             "error",
	KindTicker:            "ticker",
	KindAllTicker:         "all_ticker",
	KindSnapshot:          "snapshot",
	KindOrderBook:         "order_book",
	KindOrderBookDepth:    "order_book_depth",
	KindMatch:             "match",
	KindLevel3Received:    "level3_received",
	KindLevel3Open:        "level3_open",
	KindLevel3Done:        "level3_done",
	KindLevel3Match:       "level3_match",
	KindLevel3Change:      "level3_change",
	KindFullMatchReceived: "full_match_received",
	KindFullMatchOpen:     "full_match_open",
	KindFullMatchDone:     "full_match_done",
	KindFullMatchMatch:    "full_match_match",
	KindFullMatchChange:   "full_match_change",
	KindIndexPrice:        "index_price",
	KindMarkPrice:         "mark_price",
	KindOrderBookChange:   "order_book_change",
	KindStopOrder:         "stop_order",
	KindBalances:          "balances",
	KindDebtRatio:         "debt_ratio",
	KindPositionChange:    "position_change",
	KindMarginTradeOpen:   "margin_trade_open",
	KindMarginTradeUpdate: "margin_trade_update",
	KindMarginTradeDone:   "margin_trade_done",
	KindTradeOpen:         "trade_open",
	KindTradeMatch:        "trade_match",
	KindTradeFilled:       "trade_filled",
	KindTradeCanceled:     "trade_canceled",
	KindTradeUpdate:       "trade_update",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one classified inbound message. The concrete type is one of
// Message[T], Control, ProtocolFrame, Binary or ErrorMessage.
type Event interface {
	Kind() Kind
}

// Message is a data push: the common envelope plus a typed payload.
type Message[T any] struct {
	kind    Kind
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Subject string `json:"subject"`
	Data    T      `json:"data"`
}

func (m Message[T]) Kind() Kind { return m.kind }

// Control is an application-level welcome, ack, ping or pong.
type Control struct {
	kind Kind
	ID   string
	Type string
}

func (c Control) Kind() Kind { return c.kind }

// ProtocolFrame is a transport-level ping or pong.
type ProtocolFrame struct {
	kind Kind
	Data []byte
}

func (p ProtocolFrame) Kind() Kind { return p.kind }

// Binary carries an undecoded binary frame.
type Binary struct {
	Data []byte
}

func (Binary) Kind() Kind { return KindBinary }

// ErrorMessage is an error pushed by the server, e.g. a rejected subscribe.
type ErrorMessage struct {
	ID   string
	Code string
	Data string
	Raw  string
}

func (ErrorMessage) Kind() Kind { return KindError }
