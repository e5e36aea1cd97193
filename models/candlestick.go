package models

import "time"

// Candlestick intervals accepted by every backend. Each backend maps these to
// its native interval tokens.
const (
	IntervalMinute = "minute"
	IntervalHour   = "hour"
	IntervalDay    = "day"
)

// Intervals lists the supported candlestick intervals in ascending order.
var Intervals = []string{IntervalMinute, IntervalHour, IntervalDay}

// ValidInterval reports whether interval is one of the supported tokens.
func ValidInterval(interval string) bool {
	for _, v := range Intervals {
		if v == interval {
			return true
		}
	}
	return false
}

// Candlestick is one OHLCV bar, ordered oldest to newest as delivered by the
// backend.
type Candlestick struct {
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`
}

// Price is the current best levels of a market, derived from the order book.
type Price struct {
	Time       time.Time `json:"time"`
	HighestBid float64   `json:"highest_bid"`
	LowestAsk  float64   `json:"lowest_ask"`
}
