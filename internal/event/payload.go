package event

import "github.com/shopspring/decimal"

// Payload types for data pushes. Wire names are camelCase.

// SymbolTicker is the payload of /market/ticker pushes.
type SymbolTicker struct {
	Sequence    string          `json:"sequence"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	BestAsk     decimal.Decimal `json:"bestAsk"`
	BestAskSize decimal.Decimal `json:"bestAskSize"`
	BestBid     decimal.Decimal `json:"bestBid"`
	BestBidSize decimal.Decimal `json:"bestBidSize"`
}

// Snapshot is the payload of /market/snapshot pushes.
type Snapshot struct {
	Sequence int64        `json:"sequence"`
	Data     SnapshotData `json:"data"`
}

type SnapshotData struct {
	Trading         bool                `json:"trading"`
	Symbol          string              `json:"symbol"`
	Buy             decimal.Decimal     `json:"buy"`
	Sell            decimal.Decimal     `json:"sell"`
	Sort            int                 `json:"sort"`
	VolValue        decimal.Decimal     `json:"volValue"`
	BaseCurrency    string              `json:"baseCurrency"`
	Market          string              `json:"market"`
	QuoteCurrency   string              `json:"quoteCurrency"`
	SymbolCode      string              `json:"symbolCode"`
	Datetime        int64               `json:"datetime"`
	High            decimal.NullDecimal `json:"high"`
	Vol             decimal.Decimal     `json:"vol"`
	Low             decimal.NullDecimal `json:"low"`
	ChangePrice     decimal.NullDecimal `json:"changePrice"`
	ChangeRate      decimal.Decimal     `json:"changeRate"`
	LastTradedPrice decimal.Decimal     `json:"lastTradedPrice"`
	Board           int                 `json:"board"`
	Mark            int                 `json:"mark"`
}

// Level2 is an incremental order book update.
type Level2 struct {
	SequenceStart int64         `json:"sequenceStart"`
	SequenceEnd   int64         `json:"sequenceEnd"`
	Symbol        string        `json:"symbol"`
	Changes       Level2Changes `json:"changes"`
}

// Level2Changes rows are [price, size, sequence].
type Level2Changes struct {
	Asks [][]decimal.Decimal `json:"asks"`
	Bids [][]decimal.Decimal `json:"bids"`
}

// Level2Depth is a top-N book snapshot; rows are [price, size].
type Level2Depth struct {
	Asks      [][]decimal.Decimal `json:"asks"`
	Bids      [][]decimal.Decimal `json:"bids"`
	Timestamp int64               `json:"timestamp"`
}

// Match is an execution; used by both /market/match and level-3 match pushes.
type Match struct {
	Sequence     string          `json:"sequence"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Size         decimal.Decimal `json:"size"`
	Price        decimal.Decimal `json:"price"`
	TakerOrderID string          `json:"takerOrderId"`
	MakerOrderID string          `json:"makerOrderId"`
	TradeID      string          `json:"tradeId"`
	Time         string          `json:"time"`
	Type         string          `json:"type"`
}

type Level3Received struct {
	Sequence  string              `json:"sequence"`
	Symbol    string              `json:"symbol"`
	Side      string              `json:"side"`
	OrderID   string              `json:"orderId"`
	Price     decimal.NullDecimal `json:"price"`
	Time      string              `json:"time"`
	ClientOid string              `json:"clientOid"`
	Type      string              `json:"type"`
	OrderType string              `json:"orderType"`
}

type Level3Open struct {
	Sequence string          `json:"sequence"`
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Size     decimal.Decimal `json:"size"`
	OrderID  string          `json:"orderId"`
	Price    decimal.Decimal `json:"price"`
	Time     string          `json:"time"`
	Type     string          `json:"type"`
}

type Level3Done struct {
	Sequence string              `json:"sequence"`
	Symbol   string              `json:"symbol"`
	Reason   string              `json:"reason"`
	Side     string              `json:"side"`
	OrderID  string              `json:"orderId"`
	Time     string              `json:"time"`
	Type     string              `json:"type"`
	Size     decimal.NullDecimal `json:"size"`
}

type Level3Change struct {
	Sequence string          `json:"sequence"`
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	OrderID  string          `json:"orderId"`
	Price    decimal.Decimal `json:"price"`
	NewSize  decimal.Decimal `json:"newSize"`
	OldSize  decimal.Decimal `json:"oldSize"`
	Time     string          `json:"time"`
	Type     string          `json:"type"`
}

type FullMatchReceived struct {
	Sequence  int64  `json:"sequence"`
	Symbol    string `json:"symbol"`
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
	Ts        int64  `json:"ts"`
}

type FullMatchOpen struct {
	Sequence  int64           `json:"sequence"`
	Symbol    string          `json:"symbol"`
	OrderID   string          `json:"orderId"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	OrderTime int64           `json:"orderTime"`
	Ts        int64           `json:"ts"`
}

type FullMatchDone struct {
	Sequence int64  `json:"sequence"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
	Reason   string `json:"reason"`
	Ts       int64  `json:"ts"`
}

type FullMatchMatch struct {
	Sequence     int64           `json:"sequence"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	RemainSize   decimal.Decimal `json:"remainSize"`
	TakerOrderID string          `json:"takerOrderId"`
	MakerOrderID string          `json:"makerOrderId"`
	TradeID      string          `json:"tradeId"`
	Ts           int64           `json:"ts"`
}

type FullMatchChange struct {
	Sequence int64           `json:"sequence"`
	Symbol   string          `json:"symbol"`
	Size     decimal.Decimal `json:"size"`
	OrderID  string          `json:"orderId"`
	Ts       int64           `json:"ts"`
}

// Indicator is the payload of index and mark price pushes.
type Indicator struct {
	Symbol      string          `json:"symbol"`
	Granularity int             `json:"granularity"`
	Timestamp   int64           `json:"timestamp"`
	Value       decimal.Decimal `json:"value"`
}

// BookChange is a margin funding book change.
type BookChange struct {
	Sequence      int64           `json:"sequence"`
	Currency      string          `json:"currency"`
	DailyIntRate  decimal.Decimal `json:"dailyIntRate"`
	AnnualIntRate decimal.Decimal `json:"annualIntRate"`
	Term          int             `json:"term"`
	Size          decimal.Decimal `json:"size"`
	Side          string          `json:"side"`
	Ts            int64           `json:"ts"`
}

type StopOrder struct {
	Sequence  string          `json:"sequence"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	OrderID   string          `json:"orderId"`
	StopEntry decimal.Decimal `json:"stopEntry"`
	Funds     decimal.Decimal `json:"funds"`
	Time      string          `json:"time"`
	Type      string          `json:"type"`
	Reason    string          `json:"reason"`
}

// Balance is an account balance change.
type Balance struct {
	Total           decimal.Decimal `json:"total"`
	Available       decimal.Decimal `json:"available"`
	AvailableChange decimal.Decimal `json:"availableChange"`
	Currency        string          `json:"currency"`
	Hold            decimal.Decimal `json:"hold"`
	HoldChange      decimal.Decimal `json:"holdChange"`
	RelationEvent   string          `json:"relationEvent"`
	RelationEventID string          `json:"relationEventId"`
	Time            string          `json:"time"`
	AccountID       string          `json:"accountId"`
}

type DebtRatio struct {
	DebtRatio decimal.Decimal            `json:"debtRatio"`
	TotalDebt decimal.Decimal            `json:"totalDebt"`
	DebtList  map[string]decimal.Decimal `json:"debtList"`
	Timestamp int64                      `json:"timestamp"`
}

type PositionChange struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type MarginTradeOpen struct {
	Currency     string          `json:"currency"`
	OrderID      string          `json:"orderId"`
	DailyIntRate decimal.Decimal `json:"dailyIntRate"`
	Term         int             `json:"term"`
	Size         decimal.Decimal `json:"size"`
	Side         string          `json:"side"`
	Ts           int64           `json:"ts"`
}

type MarginTradeUpdate struct {
	Currency     string          `json:"currency"`
	OrderID      string          `json:"orderId"`
	DailyIntRate decimal.Decimal `json:"dailyIntRate"`
	Term         int             `json:"term"`
	Size         decimal.Decimal `json:"size"`
	LentSize     decimal.Decimal `json:"lentSize"`
	Side         string          `json:"side"`
	Ts           int64           `json:"ts"`
}

type MarginTradeDone struct {
	Currency string `json:"currency"`
	OrderID  string `json:"orderId"`
	Reason   string `json:"reason"`
	Side     string `json:"side"`
	Ts       int64  `json:"ts"`
}

// TradeOrder is the shared shape of /spotMarket/tradeOrders pushes. Open,
// filled and canceled pushes carry exactly these fields.
type TradeOrder struct {
	Symbol     string          `json:"symbol"`
	OrderType  string          `json:"orderType"`
	Side       string          `json:"side"`
	Type       string          `json:"type"`
	OrderID    string          `json:"orderId"`
	OrderTime  int64           `json:"orderTime"`
	Size       decimal.Decimal `json:"size"`
	FilledSize decimal.Decimal `json:"filledSize"`
	Price      decimal.Decimal `json:"price"`
	ClientOid  string          `json:"clientOid"`
	RemainSize decimal.Decimal `json:"remainSize"`
	Status     string          `json:"status"`
	Ts         int64           `json:"ts"`
}

type TradeMatch struct {
	TradeOrder
	Liquidity  string          `json:"liquidity"`
	MatchPrice decimal.Decimal `json:"matchPrice"`
	MatchSize  decimal.Decimal `json:"matchSize"`
	TradeID    string          `json:"tradeId"`
}

type TradeUpdate struct {
	TradeOrder
	OldSize decimal.Decimal `json:"oldSize"`
}
