// Package topic defines the subscription targets of the push feed.
//
// A Topic is a channel family plus an ordered symbol list. It maps to the
// path carried in subscribe frames:
//
//	Ticker("BTC-USDT","ETH-USDT") -> /market/ticker:BTC-USDT,ETH-USDT
//	AllTicker()                   -> /market/ticker:all
//	Balances()                    -> /account/balance (private)
//
// Some channels share a path (Level3Public, Level3Private and StopOrder all use
// /market/level3; DebtRatio and PositionChange both use /margin/position). The
// latter pair is told apart by frame subject in Matches.
package topic
