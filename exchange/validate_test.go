package exchange

import (
	"errors"
	"testing"

	"tradeflow/models"
)

func monotonicBook(depth int) *models.OrderBook {
	book := &models.OrderBook{}
	for i := 0; i < depth; i++ {
		book.Buy = append(book.Buy, models.OrderBookEntry{Quantity: 1, Rate: float64(100 - i)})
		book.Sell = append(book.Sell, models.OrderBookEntry{Quantity: 1, Rate: float64(101 + i)})
	}
	return book
}

func TestValidateOrderbook(t *testing.T) {
	if err := ValidateOrderbook(monotonicBook(10), 10); err != nil {
		t.Fatalf("valid book rejected: %v", err)
	}

	// Equal adjacent rates are allowed on both sides.
	book := monotonicBook(10)
	book.Buy[3].Rate = book.Buy[2].Rate
	book.Sell[3].Rate = book.Sell[2].Rate
	if err := ValidateOrderbook(book, 10); err != nil {
		t.Fatalf("book with equal adjacent rates rejected: %v", err)
	}
}

func TestValidateOrderbookRejections(t *testing.T) {
	risingBuy := monotonicBook(10)
	risingBuy.Buy[5].Rate = risingBuy.Buy[4].Rate + 1

	droppingSell := monotonicBook(10)
	droppingSell.Sell[5].Rate = droppingSell.Sell[4].Rate - 1

	shallow := monotonicBook(4)

	oneSided := monotonicBook(10)
	oneSided.Sell = nil

	tests := []struct {
		name string
		book *models.OrderBook
	}{
		{"nil book", nil},
		{"rising buy side", risingBuy},
		{"dropping sell side", droppingSell},
		{"too shallow", shallow},
		{"missing sell side", oneSided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrderbook(tt.book, 10)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestValidateOrderbookDefaultDepth(t *testing.T) {
	if err := ValidateOrderbook(monotonicBook(9), 0); err == nil {
		t.Error("expected the default minimum of 10 to apply")
	}
	if err := ValidateOrderbook(monotonicBook(10), 0); err != nil {
		t.Errorf("10 levels should satisfy the default minimum: %v", err)
	}
}

func TestValidateRawRecords(t *testing.T) {
	good := []map[string]interface{}{
		{"exchange": "testex", "base_coin": "USDT", "market_coin": "BTC", "market": "USDT-BTC", "minimum_trade_size": 0.001},
	}
	if err := ValidateMarkets(good); err != nil {
		t.Fatalf("valid markets rejected: %v", err)
	}

	if err := ValidateMarkets(nil); err == nil {
		t.Error("expected an error for a nil collection")
	}

	missing := []map[string]interface{}{
		{"exchange": "testex", "market": "USDT-BTC"},
	}
	err := ValidateMarkets(missing)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Collection != "markets" {
		t.Errorf("Collection = %q, want %q", validationErr.Collection, "markets")
	}
	if len(validationErr.MissingKeys) != 3 {
		t.Errorf("MissingKeys = %v, want the 3 absent keys", validationErr.MissingKeys)
	}
}

func TestValidateWallet(t *testing.T) {
	good := []map[string]interface{}{
		{"name": "BTC", "balance": 1.5, "pending": 0.5, "available": 1.0},
	}
	if err := ValidateWallet(good); err != nil {
		t.Fatalf("valid wallet rejected: %v", err)
	}
	if err := ValidateWallet([]map[string]interface{}{{}}); err == nil {
		t.Error("expected an error for an empty record")
	}
}
