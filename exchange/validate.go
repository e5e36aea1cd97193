package exchange

import (
	"fmt"

	"tradeflow/models"
)

// DefaultOrderbookDepth is the minimum number of levels each order book side
// must carry to be considered a usable snapshot.
const DefaultOrderbookDepth = 10

// ValidateOrderbook checks the structural invariants of an order book before
// it may be returned to a caller: both sides present with at least
// minimumLength levels, buy rates non-increasing, sell rates non-decreasing.
// A violation means the whole response is unusable.
func ValidateOrderbook(ob *models.OrderBook, minimumLength int) error {
	if minimumLength <= 0 {
		minimumLength = DefaultOrderbookDepth
	}
	if ob == nil {
		return &ValidationError{Collection: "orderbook", Message: "order book can't be nil"}
	}
	if len(ob.Buy) < minimumLength || len(ob.Sell) < minimumLength {
		return &ValidationError{
			Collection: "orderbook",
			Message: fmt.Sprintf("each side needs at least %d orders, got %d buy and %d sell",
				minimumLength, len(ob.Buy), len(ob.Sell)),
		}
	}
	for i := 1; i < len(ob.Buy); i++ {
		if ob.Buy[i].Rate > ob.Buy[i-1].Rate {
			return &ValidationError{
				Collection: "orderbook",
				Message:    fmt.Sprintf("buy orders should go from high to low, level %d rises", i),
			}
		}
	}
	for i := 1; i < len(ob.Sell); i++ {
		if ob.Sell[i].Rate < ob.Sell[i-1].Rate {
			return &ValidationError{
				Collection: "orderbook",
				Message:    fmt.Sprintf("sell orders should go from low to high, level %d drops", i),
			}
		}
	}
	return nil
}

// ValidateRawRecords checks that a decoded backend collection is present and
// that every record carries the required keys. Used on raw payloads before
// normalization; the collection name keeps the error actionable.
func ValidateRawRecords(collection []map[string]interface{}, required []string, name string) error {
	if collection == nil {
		return &ValidationError{Collection: name, Message: "collection can't be nil"}
	}
	for i, item := range collection {
		if item == nil {
			return &ValidationError{
				Collection: name,
				Message:    fmt.Sprintf("record %d is not an object", i),
			}
		}
		var missing []string
		for _, key := range required {
			if _, ok := item[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return &ValidationError{
				Collection:  name,
				Message:     fmt.Sprintf("record %d doesn't have all the required keys", i),
				MissingKeys: missing,
			}
		}
	}
	return nil
}

// MarketKeys are the keys every raw market record must carry.
var MarketKeys = []string{"exchange", "base_coin", "market_coin", "market", "minimum_trade_size"}

// WalletKeys are the keys every raw wallet record must carry.
var WalletKeys = []string{"name", "balance", "pending", "available"}

// ValidateMarkets checks a raw market collection.
func ValidateMarkets(collection []map[string]interface{}) error {
	return ValidateRawRecords(collection, MarketKeys, "markets")
}

// ValidateWallet checks a raw wallet collection.
func ValidateWallet(collection []map[string]interface{}) error {
	return ValidateRawRecords(collection, WalletKeys, "wallet")
}
