package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classifier maps a raw frame to exactly one typed event.
type Classifier interface {
	Classify(raw RawFrame) (Event, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(raw RawFrame) (Event, error)

func (f ClassifierFunc) Classify(raw RawFrame) (Event, error) { return f(raw) }

// Default is the structured envelope-then-dispatch classifier.
var Default Classifier = ClassifierFunc(Classify)

// Envelope holds the routing fields shared by every text frame.
type Envelope struct {
	ID      string
	Type    string
	Topic   string
	Subject string
}

// envelopeWire is used for the first decoding pass.
type envelopeWire struct {
	ID      json.RawMessage `json:"id"`
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Subject string          `json:"subject"`
}

// PeekEnvelope decodes only the routing fields of a text frame.
func PeekEnvelope(data []byte) (Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:      rawString(wire.ID),
		Type:    wire.Type,
		Topic:   wire.Topic,
		Subject: wire.Subject,
	}, nil
}

// Classify maps a raw frame to a typed event.
//
// Dispatch order for text frames:
//  1. envelope type: welcome/ack, ping, pong, error
//  2. exact topic /market/ticker:all
//  3. (channel prefix, subject)
//  4. (channel prefix, any subject)
//  5. (channel prefix, data.type)
//
// A frame that reaches the end returns *ClassificationError.
func Classify(raw RawFrame) (Event, error) {
	switch raw.Kind {
	case FrameBinary:
		return Binary{Data: raw.Data}, nil
	case FramePing:
		return ProtocolFrame{kind: KindProtocolPing, Data: raw.Data}, nil
	case FramePong:
		return ProtocolFrame{kind: KindProtocolPong, Data: raw.Data}, nil
	case FrameClose:
		return nil, &ClosedError{Reason: string(raw.Data)}
	case FrameText:
		return classifyText(raw.Data)
	default:
		return nil, &ClassificationError{Raw: string(raw.Data), Reason: "unsupported frame kind " + raw.Kind.String()}
	}
}

func classifyText(data []byte) (Event, error) {
	env, err := PeekEnvelope(data)
	if err != nil {
		return nil, &ClassificationError{Raw: string(data), Reason: "not a json object"}
	}

	switch env.Type {
	case "welcome", "ack":
		return Control{kind: KindWelcome, ID: env.ID, Type: env.Type}, nil
	case "ping":
		return Control{kind: KindPing, ID: env.ID, Type: env.Type}, nil
	case "pong":
		return Control{kind: KindPong, ID: env.ID, Type: env.Type}, nil
	case "error":
		return errorMessage(env, data), nil
	}

	if env.Topic == "" {
		return nil, &ClassificationError{Raw: string(data), Reason: fmt.Sprintf("no topic for type %q", env.Type)}
	}

	dec, ok := lookup(env, data)
	if !ok {
		return nil, &ClassificationError{
			Raw:    string(data),
			Reason: fmt.Sprintf("no rule for topic %q subject %q", env.Topic, env.Subject),
		}
	}
	return dec(data)
}

const (
	allTickerTopic = "/market/ticker:all"
	anySubject     = "*"
)

type route struct {
	prefix string
	key    string
}

type decoder func(data []byte) (Event, error)

func decodeAs[T any](kind Kind) decoder {
	return func(data []byte) (Event, error) {
		var m Message[T]
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Kind: kind, Raw: string(data), Err: err}
		}
		m.kind = kind
		return m, nil
	}
}

var allTicker = decodeAs[SymbolTicker](KindAllTicker)

// bySubject is keyed on (channel prefix, subject). anySubject matches every
// subject on that prefix.
var bySubject = map[route]decoder{
	{"/market/ticker", "trade.ticker"}:        decodeAs[SymbolTicker](KindTicker),
	{"/market/snapshot", "trade.snapshot"}:    decodeAs[Snapshot](KindSnapshot),
	{"/market/level2", "trade.l2update"}:      decodeAs[Level2](KindOrderBook),
	{"/spotMarket/level2Depth5", "level2"}:    decodeAs[Level2Depth](KindOrderBookDepth),
	{"/spotMarket/level2Depth50", "level2"}:   decodeAs[Level2Depth](KindOrderBookDepth),
	{"/market/match", anySubject}:             decodeAs[Match](KindMatch),
	{"/market/level3", "trade.l3received"}:    decodeAs[Level3Received](KindLevel3Received),
	{"/market/level3", "trade.l3open"}:        decodeAs[Level3Open](KindLevel3Open),
	{"/market/level3", "trade.l3done"}:        decodeAs[Level3Done](KindLevel3Done),
	{"/market/level3", "trade.l3match"}:       decodeAs[Match](KindLevel3Match),
	{"/market/level3", "trade.l3change"}:      decodeAs[Level3Change](KindLevel3Change),
	{"/spotMarket/level3", "received"}:        decodeAs[FullMatchReceived](KindFullMatchReceived),
	{"/spotMarket/level3", "open"}:            decodeAs[FullMatchOpen](KindFullMatchOpen),
	{"/spotMarket/level3", "done"}:            decodeAs[FullMatchDone](KindFullMatchDone),
	{"/spotMarket/level3", "match"}:           decodeAs[FullMatchMatch](KindFullMatchMatch),
	{"/spotMarket/level3", "update"}:          decodeAs[FullMatchChange](KindFullMatchChange),
	{"/indicator/index", anySubject}:          decodeAs[Indicator](KindIndexPrice),
	{"/indicator/markPrice", anySubject}:      decodeAs[Indicator](KindMarkPrice),
	{"/margin/fundingBook", anySubject}:       decodeAs[BookChange](KindOrderBookChange),
	{"/account/balance", anySubject}:          decodeAs[Balance](KindBalances),
	{"/margin/position", "debt.ratio"}:        decodeAs[DebtRatio](KindDebtRatio),
	{"/margin/position", "position.status"}:   decodeAs[PositionChange](KindPositionChange),
	{"/margin/loan", "order.open"}:            decodeAs[MarginTradeOpen](KindMarginTradeOpen),
	{"/margin/loan", "order.update"}:          decodeAs[MarginTradeUpdate](KindMarginTradeUpdate),
	{"/margin/loan", "order.done"}:            decodeAs[MarginTradeDone](KindMarginTradeDone),
}

// byDataType is keyed on (channel prefix, data.type) for channels whose
// subject does not name the event.
var byDataType = map[route]decoder{
	{"/market/level3", "stop"}:               decodeAs[StopOrder](KindStopOrder),
	{"/market/level3", "activate"}:           decodeAs[StopOrder](KindStopOrder),
	{"/spotMarket/tradeOrders", "open"}:      decodeAs[TradeOrder](KindTradeOpen),
	{"/spotMarket/tradeOrders", "match"}:     decodeAs[TradeMatch](KindTradeMatch),
	{"/spotMarket/tradeOrders", "filled"}:    decodeAs[TradeOrder](KindTradeFilled),
	{"/spotMarket/tradeOrders", "canceled"}:  decodeAs[TradeOrder](KindTradeCanceled),
	{"/spotMarket/tradeOrders", "update"}:    decodeAs[TradeUpdate](KindTradeUpdate),
}

// dataTypeWire reads data.type for the last dispatch pass.
type dataTypeWire struct {
	Data struct {
		Type string `json:"type"`
	} `json:"data"`
}

func lookup(env Envelope, data []byte) (decoder, bool) {
	if env.Topic == allTickerTopic {
		return allTicker, true
	}

	prefix, _, _ := strings.Cut(env.Topic, ":")
	if dec, ok := bySubject[route{prefix, env.Subject}]; ok {
		return dec, true
	}
	if dec, ok := bySubject[route{prefix, anySubject}]; ok {
		return dec, true
	}

	var wire dataTypeWire
	if err := json.Unmarshal(data, &wire); err != nil || wire.Data.Type == "" {
		return nil, false
	}
	dec, ok := byDataType[route{prefix, wire.Data.Type}]
	return dec, ok
}

// errorWire holds the fields of a server error push. Code and data arrive
// as either strings or numbers.
type errorWire struct {
	Code json.RawMessage `json:"code"`
	Data json.RawMessage `json:"data"`
}

func errorMessage(env Envelope, data []byte) ErrorMessage {
	msg := ErrorMessage{ID: env.ID, Raw: string(data)}
	var wire errorWire
	if err := json.Unmarshal(data, &wire); err == nil {
		msg.Code = rawString(wire.Code)
		msg.Data = rawString(wire.Data)
	}
	return msg
}

// rawString renders a JSON scalar as text: strings are unquoted, numbers kept
// verbatim, null and absent become empty.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
