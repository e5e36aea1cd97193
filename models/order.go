package models

import "time"

// Order sides and types use the lowercase canonical vocabulary shared by every
// backend after normalization.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// Order is a normalized snapshot of one exchange order. It is built once per
// backend response and never mutated; a fresh fetch produces a fresh Order.
// Price already includes the exchange fee, rounded against the trader.
type Order struct {
	OrderID           string                 `json:"order_id"`
	BuyOrSell         string                 `json:"buy_or_sell"`
	OrderType         string                 `json:"order_type"`
	Exchange          string                 `json:"exchange"`
	Market            string                 `json:"market"`
	BaseCoin          string                 `json:"base_coin"`
	MarketCoin        string                 `json:"market_coin"`
	Quantity          float64                `json:"quantity"`
	QuantityRemaining float64                `json:"quantity_remaining"`
	Rate              float64                `json:"rate"`
	Price             float64                `json:"price"`
	IsOpen            bool                   `json:"is_open"`
	IsFilled          bool                   `json:"is_filled"`
	IsPartiallyFilled bool                   `json:"is_partially_filled"`
	Time              time.Time              `json:"time"`
	Meta              map[string]interface{} `json:"meta,omitempty"`
}
