package event

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) RawFrame {
	return RawFrame{Kind: FrameText, Data: []byte(s)}
}

func TestClassify_EveryVariant(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Kind
	}{
		{"welcome", `{"id":"hQvf8jkno","type":"welcome"}`, KindWelcome},
		{"ack", `{"id":"1545910840805","type":"ack"}`, KindWelcome},
		{"ping", `{"id":"1545910590801","type":"ping"}`, KindPing},
		{"pong", `{"id":"1545910590801","type":"pong"}`, KindPong},
		{"error", `{"id":"1","type":"error","code":404,"data":"topic /foo is not found"}`, KindError},
		{
			"ticker",
			`{"type":"message","topic":"/market/ticker:BTC-USDT","subject":"trade.ticker","data":{"sequence":"1545896668986","price":"0.08","size":"0.011","bestAsk":"0.08","bestAskSize":"0.18","bestBid":"0.049","bestBidSize":"0.036"}}`,
			KindTicker,
		},
		{
			"all ticker",
			`{"type":"message","topic":"/market/ticker:all","subject":"BTC-USDT","data":{"sequence":"1545896668986","price":"0.08","size":"0.011","bestAsk":"0.08","bestAskSize":"0.18","bestBid":"0.049","bestBidSize":"0.036"}}`,
			KindAllTicker,
		},
		{
			"snapshot",
			`{"type":"message","topic":"/market/snapshot:KCS-BTC","subject":"trade.snapshot","data":{"sequence":1545896669291,"data":{"trading":true,"symbol":"KCS-BTC","buy":"0.00011","sell":"0.00011","sort":100,"volValue":"3.13851792584","baseCurrency":"KCS","market":"BTC","quoteCurrency":"BTC","symbolCode":"KCS-BTC","datetime":1548388122031,"high":"0.00013","vol":"27514.34842","low":"0.0001","changePrice":"-0.00001","changeRate":"-0.0769","lastTradedPrice":"0.00012","board":0,"mark":0}}}`,
			KindSnapshot,
		},
		{
			"level2",
			`{"type":"message","topic":"/market/level2:BTC-USDT","subject":"trade.l2update","data":{"sequenceStart":1545896669105,"sequenceEnd":1545896669106,"symbol":"BTC-USDT","changes":{"asks":[["6","1","1545896669105"]],"bids":[["4","1","1545896669106"]]}}}`,
			KindOrderBook,
		},
		{
			"depth5",
			`{"type":"message","topic":"/spotMarket/level2Depth5:BTC-USDT","subject":"level2","data":{"asks":[["9989","8"]],"bids":[["9983","3"]],"timestamp":1586948108193}}`,
			KindOrderBookDepth,
		},
		{
			"depth50",
			`{"type":"message","topic":"/spotMarket/level2Depth50:BTC-USDT","subject":"level2","data":{"asks":[["9993","3"]],"bids":[["9988","56"]],"timestamp":1586948108193}}`,
			KindOrderBookDepth,
		},
		{
			"match",
			`{"type":"message","topic":"/market/match:BTC-USDT","subject":"trade.l3match","data":{"sequence":"1545896669145","type":"match","symbol":"BTC-USDT","side":"buy","price":"0.08200000000000000000","size":"0.01022222000000000000","tradeId":"5c24c5da03aa673885cd67aa","takerOrderId":"5c24c5d903aa6772d55b371e","makerOrderId":"5c2187d003aa677bd09d5c93","time":"1545913818099033203"}}`,
			KindMatch,
		},
		{
			"level3 received",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"trade.l3received","data":{"sequence":"1545896669147","symbol":"BTC-USDT","side":"sell","orderId":"5c24c72503aa6772d55b378d","price":"4.00000000000000000000","time":"1545914149935808589","clientOid":"","type":"received","orderType":"limit"}}`,
			KindLevel3Received,
		},
		{
			"level3 open",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"trade.l3open","data":{"sequence":"1545896669148","symbol":"BTC-USDT","side":"sell","size":"1","orderId":"5c24c72503aa6772d55b378d","price":"6","time":"1545914149935808632","type":"open"}}`,
			KindLevel3Open,
		},
		{
			"level3 done",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"trade.l3done","data":{"sequence":"1545896669150","reason":"canceled","symbol":"BTC-USDT","side":"sell","orderId":"5c24c72503aa6772d55b378d","time":"1545914150005303093","type":"done","size":"1"}}`,
			KindLevel3Done,
		},
		{
			"level3 match",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"trade.l3match","data":{"sequence":"1545896669145","type":"match","symbol":"BTC-USDT","side":"buy","price":"0.082","size":"0.01","tradeId":"5c24c5da03aa673885cd67aa","takerOrderId":"5c24c5d903aa6772d55b371e","makerOrderId":"5c2187d003aa677bd09d5c93","time":"1545913818099033203"}}`,
			KindLevel3Match,
		},
		{
			"level3 change",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"trade.l3change","data":{"sequence":"1545896669656","symbol":"BTC-USDT","side":"buy","orderId":"5c24caff03aa671aef3ca170","price":"1","newSize":"0.15722222000000000000","oldSize":"0.18622222000000000000","time":"1545915145402532254","type":"change"}}`,
			KindLevel3Change,
		},
		{
			"full match received",
			`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"received","data":{"sequence":1545896669147,"symbol":"BTC-USDT","orderId":"5c24c72503aa6772d55b378d","clientOid":"sf144a","ts":1545914149935808589}}`,
			KindFullMatchReceived,
		},
		{
			"full match open",
			`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"open","data":{"sequence":1545896669148,"symbol":"BTC-USDT","orderId":"5c24c72503aa6772d55b378d","side":"sell","price":"6","size":"1","orderTime":1545914149935808589,"ts":1545914149935808589}}`,
			KindFullMatchOpen,
		},
		{
			"full match done",
			`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"done","data":{"sequence":1545896669150,"symbol":"BTC-USDT","orderId":"5c24c72503aa6772d55b378d","reason":"canceled","ts":1545914150005303093}}`,
			KindFullMatchDone,
		},
		{
			"full match match",
			`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"match","data":{"sequence":1545896669145,"symbol":"BTC-USDT","side":"buy","price":"0.082","remainSize":"0.01","takerOrderId":"5c24c5d903aa6772d55b371e","makerOrderId":"5c2187d003aa677bd09d5c93","tradeId":"5c24c5da03aa673885cd67aa","ts":1545913818099033203}}`,
			KindFullMatchMatch,
		},
		{
			"full match change",
			`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"update","data":{"sequence":1545896669656,"symbol":"BTC-USDT","size":"0.157","orderId":"5c24caff03aa671aef3ca170","ts":1545915145402532254}}`,
			KindFullMatchChange,
		},
		{
			"index price",
			`{"type":"message","topic":"/indicator/index:USDT-BTC","subject":"tick","data":{"symbol":"USDT-BTC","granularity":5000,"timestamp":1551770400000,"value":"0.0001092"}}`,
			KindIndexPrice,
		},
		{
			"mark price",
			`{"type":"message","topic":"/indicator/markPrice:USDT-BTC","subject":"tick","data":{"symbol":"USDT-BTC","granularity":5000,"timestamp":1551770400000,"value":"0.0001093"}}`,
			KindMarkPrice,
		},
		{
			"funding book",
			`{"type":"message","topic":"/margin/fundingBook:BTC","subject":"funding.update","data":{"sequence":1000000,"currency":"BTC","dailyIntRate":"0.00007","annualIntRate":"0.12","term":7,"size":"1017.5","side":"lend","ts":1553846081210004941}}`,
			KindOrderBookChange,
		},
		{
			"stop order",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"stop","data":{"sequence":"1545896669147","symbol":"BTC-USDT","side":"sell","orderId":"5c24c72503aa6772d55b378d","stopEntry":"0.5","funds":"2","time":"1545914149935808589","type":"stop","reason":""}}`,
			KindStopOrder,
		},
		{
			"stop order activate",
			`{"type":"message","topic":"/market/level3:BTC-USDT","subject":"activate","data":{"sequence":"1545896669148","symbol":"BTC-USDT","side":"sell","orderId":"5c24c72503aa6772d55b378d","stopEntry":"0.5","funds":"2","time":"1545914149935808589","type":"activate","reason":""}}`,
			KindStopOrder,
		},
		{
			"balance",
			`{"type":"message","topic":"/account/balance","subject":"account.balance","data":{"total":"88","available":"88","availableChange":"88","currency":"KCS","hold":"0","holdChange":"0","relationEvent":"main.deposit","relationEventId":"5c21e80303aa677bd09d7dff","time":"1545743136994","accountId":"5bd6e9286d99522a52e458de"}}`,
			KindBalances,
		},
		{
			"debt ratio",
			`{"type":"message","topic":"/margin/position","subject":"debt.ratio","data":{"debtRatio":"0.7505","totalDebt":"21.7505","debtList":{"BTC":"1.21","USDT":"2121.2121","EOS":"0"},"timestamp":15538460812100}}`,
			KindDebtRatio,
		},
		{
			"position status",
			`{"type":"message","topic":"/margin/position","subject":"position.status","data":{"type":"FROZEN_FL","timestamp":15538460812100}}`,
			KindPositionChange,
		},
		{
			"margin trade open",
			`{"type":"message","topic":"/margin/loan:BTC","subject":"order.open","data":{"currency":"BTC","orderId":"ac928c66ca53498f9c13a127a60e8b95","dailyIntRate":"0.0001","term":7,"size":"1","side":"lend","ts":1553846081210004941}}`,
			KindMarginTradeOpen,
		},
		{
			"margin trade update",
			`{"type":"message","topic":"/margin/loan:BTC","subject":"order.update","data":{"currency":"BTC","orderId":"ac928c66ca53498f9c13a127a60e8b95","dailyIntRate":"0.0001","term":7,"size":"1","lentSize":"0.5","side":"lend","ts":1553846081210004941}}`,
			KindMarginTradeUpdate,
		},
		{
			"margin trade done",
			`{"type":"message","topic":"/margin/loan:BTC","subject":"order.done","data":{"currency":"BTC","orderId":"ac928c66ca53498f9c13a127a60e8b95","reason":"filled","side":"lend","ts":1553846081210004941}}`,
			KindMarginTradeDone,
		},
		{
			"trade open",
			`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"buy","orderId":"5efab07953bdea00089965d2","type":"open","orderTime":1593487481683297666,"size":"0.1","filledSize":"0","price":"0.937","clientOid":"1593487481000906","remainSize":"0.1","status":"open","ts":1593487481683297666}}`,
			KindTradeOpen,
		},
		{
			"trade match",
			`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"sell","orderId":"5efab07953bdea00089965fa","liquidity":"taker","type":"match","orderTime":1593487482038606180,"size":"0.1","filledSize":"0.1","price":"0.938","matchPrice":"0.96738","matchSize":"0.1","tradeId":"5efab07a4ee4c7000a82d6d9","clientOid":"1593487481000313","remainSize":"0","status":"match","ts":1593487482038606180}}`,
			KindTradeMatch,
		},
		{
			"trade filled",
			`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"sell","orderId":"5efab07953bdea00089965fa","type":"filled","orderTime":1593487482038606180,"size":"0.1","filledSize":"0.1","price":"0.938","clientOid":"1593487481000313","remainSize":"0","status":"done","ts":1593487482038606180}}`,
			KindTradeFilled,
		},
		{
			"trade canceled",
			`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"buy","orderId":"5efab07953bdea00089965d2","type":"canceled","orderTime":1593487481683297666,"size":"0.1","filledSize":"0","price":"0.937","clientOid":"1593487481000906","remainSize":"0","status":"done","ts":1593487523980063981}}`,
			KindTradeCanceled,
		},
		{
			"trade update",
			`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"buy","orderId":"5efab13f53bdea00089971df","type":"update","oldSize":"0.1","orderTime":1593487679693183319,"size":"0.06","filledSize":"0","price":"0.937","clientOid":"1593487679000249","remainSize":"0.06","status":"open","ts":1593487682916117521}}`,
			KindTradeUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify(text(tt.frame))
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Kind())
		})
	}
}

func TestClassify_PayloadFields(t *testing.T) {
	ev, err := Classify(text(`{"type":"message","topic":"/market/ticker:BTC-USDT","subject":"trade.ticker","data":{"sequence":"7","price":"0.08","size":"0.011","bestAsk":"0.081","bestAskSize":"0.18","bestBid":"0.079","bestBidSize":"0.036"}}`))
	require.NoError(t, err)

	msg, ok := ev.(Message[SymbolTicker])
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "/market/ticker:BTC-USDT", msg.Topic)
	assert.Equal(t, "trade.ticker", msg.Subject)
	assert.Equal(t, "7", msg.Data.Sequence)
	assert.True(t, decimal.RequireFromString("0.08").Equal(msg.Data.Price))
	assert.True(t, decimal.RequireFromString("0.079").Equal(msg.Data.BestBid))
}

func TestClassify_OpenDisambiguatedByChannel(t *testing.T) {
	full, err := Classify(text(`{"type":"message","topic":"/spotMarket/level3:BTC-USDT","subject":"open","data":{"sequence":1,"symbol":"BTC-USDT","orderId":"a","side":"sell","price":"6","size":"1","orderTime":1,"ts":1}}`))
	require.NoError(t, err)
	assert.Equal(t, KindFullMatchOpen, full.Kind())

	trade, err := Classify(text(`{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"symbol":"KCS-USDT","orderType":"limit","side":"buy","orderId":"b","type":"open","orderTime":1,"size":"0.1","filledSize":"0","price":"0.9","clientOid":"c","remainSize":"0.1","status":"open","ts":1}}`))
	require.NoError(t, err)
	assert.Equal(t, KindTradeOpen, trade.Kind())
}

func TestClassify_TickerAndAllTicker(t *testing.T) {
	frames := []string{
		`{"type":"message","topic":"/market/ticker:all","subject":"ETH-USDT","data":{"sequence":"1","price":"2","size":"2","bestAsk":"2","bestAskSize":"2","bestBid":"2","bestBidSize":"2"}}`,
		`{"type":"message","topic":"/market/ticker:BTC-USDT","subject":"trade.ticker","data":{"sequence":"2","price":"1","size":"1","bestAsk":"1","bestAskSize":"1","bestBid":"1","bestBidSize":"1"}}`,
	}

	var kinds []Kind
	for _, f := range frames {
		ev, err := Classify(text(f))
		require.NoError(t, err)
		kinds = append(kinds, ev.Kind())
	}
	assert.Equal(t, []Kind{KindAllTicker, KindTicker}, kinds)
}

func TestClassify_Unclassified(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"garbage", `not json at all`},
		{"empty object", `{}`},
		{"unknown type without topic", `{"type":"notice"}`},
		{"unknown channel", `{"type":"message","topic":"/futures/ticker:XBT","subject":"ticker","data":{}}`},
		{"unknown subject", `{"type":"message","topic":"/market/level2:BTC-USDT","subject":"trade.l9","data":{}}`},
		{"unknown trade order type", `{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":{"type":"exploded"}}`},
		{"data not an object", `{"type":"message","topic":"/spotMarket/tradeOrders","subject":"orderChange","data":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify(text(tt.frame))
			assert.Nil(t, ev)

			var cerr *ClassificationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.frame, cerr.Raw)
		})
	}
}

func TestClassify_DecodeError(t *testing.T) {
	raw := `{"type":"message","topic":"/market/ticker:BTC-USDT","subject":"trade.ticker","data":{"price":"not-a-number"}}`
	ev, err := Classify(text(raw))
	assert.Nil(t, ev)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindTicker, derr.Kind)
	assert.Equal(t, raw, derr.Raw)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestClassify_TransportFrames(t *testing.T) {
	ev, err := Classify(RawFrame{Kind: FrameBinary, Data: []byte{0x01, 0x02}})
	require.NoError(t, err)
	assert.Equal(t, KindBinary, ev.Kind())
	assert.Equal(t, []byte{0x01, 0x02}, ev.(Binary).Data)

	ev, err = Classify(RawFrame{Kind: FramePing, Data: []byte("p")})
	require.NoError(t, err)
	assert.Equal(t, KindProtocolPing, ev.Kind())

	ev, err = Classify(RawFrame{Kind: FramePong})
	require.NoError(t, err)
	assert.Equal(t, KindProtocolPong, ev.Kind())
}

func TestClassify_CloseFrame(t *testing.T) {
	ev, err := Classify(RawFrame{Kind: FrameClose, Data: []byte("going away")})
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, ErrPeerClosed)

	var cerr *ClosedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "going away", cerr.Reason)
}

func TestClassify_ControlFields(t *testing.T) {
	ev, err := Classify(text(`{"id":1545910590801,"type":"pong"}`))
	require.NoError(t, err)
	c, ok := ev.(Control)
	require.True(t, ok)
	assert.Equal(t, "1545910590801", c.ID)
	assert.Equal(t, "pong", c.Type)

	ev, err = Classify(text(`{"id":"9","type":"error","code":401,"data":"token is expired"}`))
	require.NoError(t, err)
	e, ok := ev.(ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, "9", e.ID)
	assert.Equal(t, "401", e.Code)
	assert.Equal(t, "token is expired", e.Data)
}

func TestPeekEnvelope(t *testing.T) {
	env, err := PeekEnvelope([]byte(`{"id":"x","type":"message","topic":"/market/match:BTC-USDT","subject":"trade.l3match","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Envelope{ID: "x", Type: "message", Topic: "/market/match:BTC-USDT", Subject: "trade.l3match"}, env)

	_, err = PeekEnvelope([]byte(`[`))
	assert.Error(t, err)
}

func TestClassificationError_Truncates(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	err := &ClassificationError{Raw: string(long), Reason: "test"}
	assert.Less(t, len(err.Error()), 400)
}
