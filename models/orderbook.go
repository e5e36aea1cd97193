package models

// OrderBookEntry is a single price level.
type OrderBookEntry struct {
	Quantity float64 `json:"quantity"`
	Rate     float64 `json:"rate"`
}

// OrderBook holds the outstanding limit orders of a market. Buy levels are
// sorted high to low by rate, sell levels low to high. Order books are built
// fresh per request and never cached.
type OrderBook struct {
	Buy  []OrderBookEntry `json:"buy"`
	Sell []OrderBookEntry `json:"sell"`
}

// HighestBid returns the best buy rate, or zero when the buy side is empty.
func (ob *OrderBook) HighestBid() float64 {
	if len(ob.Buy) == 0 {
		return 0
	}
	return ob.Buy[0].Rate
}

// LowestAsk returns the best sell rate, or zero when the sell side is empty.
func (ob *OrderBook) LowestAsk() float64 {
	if len(ob.Sell) == 0 {
		return 0
	}
	return ob.Sell[0].Rate
}
