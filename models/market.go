package models

// Market is one tradable pair on one exchange. The market identifier is the
// base coin and market coin joined with a hyphen, e.g. "USDT-BTC". Identity is
// (Exchange, Market); a Market is never mutated after construction.
type Market struct {
	Exchange         string  `json:"exchange"`
	BaseCoin         string  `json:"base_coin"`
	MarketCoin       string  `json:"market_coin"`
	Market           string  `json:"market"`
	MinimumTradeSize float64 `json:"minimum_trade_size"`
}
