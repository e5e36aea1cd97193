package binance

import (
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2/common"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/models"
)

func testBinanceClient() *Client {
	return NewClient(config.Default(), exchange.Credentials{})
}

func TestSymbolFor(t *testing.T) {
	symbol, err := symbolFor("USDT-BTC")
	if err != nil {
		t.Fatalf("symbolFor: %v", err)
	}
	if symbol != "BTCUSDT" {
		t.Errorf("symbolFor(USDT-BTC) = %q, want BTCUSDT", symbol)
	}

	if _, err := symbolFor("BTCUSDT"); err == nil {
		t.Error("expected an error for a market without a separator")
	}
}

func TestIntervalParam(t *testing.T) {
	tests := []struct {
		interval string
		want     string
	}{
		{models.IntervalMinute, "1m"},
		{models.IntervalHour, "1h"},
		{models.IntervalDay, "1d"},
	}
	for _, tt := range tests {
		got, err := intervalParam(tt.interval)
		if err != nil {
			t.Fatalf("intervalParam(%s): %v", tt.interval, err)
		}
		if got != tt.want {
			t.Errorf("intervalParam(%s) = %q, want %q", tt.interval, got, tt.want)
		}
	}

	_, err := intervalParam("fortnight")
	var argErr *exchange.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestMarketURL(t *testing.T) {
	c := testBinanceClient()
	want := "https://www.binance.com/tradeDetail.html?symbol=USDT_BTC"
	if got := c.MarketURL("USDT-BTC"); got != want {
		t.Errorf("MarketURL = %q, want %q", got, want)
	}
}

func TestParseOrder(t *testing.T) {
	c := testBinanceClient()

	order, err := c.parseOrder("USDT-BTC", rawOrder{
		OrderID:     12345,
		Side:        "SELL",
		Type:        "LIMIT",
		Price:       "50000.0",
		OrigQty:     "2.0",
		ExecutedQty: "0.5",
		Status:      "PARTIALLY_FILLED",
		Time:        1700000000000,
	})
	if err != nil {
		t.Fatalf("parseOrder: %v", err)
	}

	if order.OrderID != "12345" {
		t.Errorf("OrderID = %q, want 12345", order.OrderID)
	}
	if order.BuyOrSell != models.SideSell || order.OrderType != models.OrderTypeLimit {
		t.Errorf("side/type = %s/%s", order.BuyOrSell, order.OrderType)
	}
	if order.BaseCoin != "USDT" || order.MarketCoin != "BTC" {
		t.Errorf("coins = %s/%s, want USDT/BTC", order.BaseCoin, order.MarketCoin)
	}
	if order.QuantityRemaining != 1.5 {
		t.Errorf("QuantityRemaining = %v, want 1.5", order.QuantityRemaining)
	}
	if !order.IsOpen || !order.IsPartiallyFilled || order.IsFilled {
		t.Errorf("flags = open:%v partial:%v filled:%v", order.IsOpen, order.IsPartiallyFilled, order.IsFilled)
	}
	// A sell's total is quantity*rate minus the fee.
	notional := 2.0 * 50000.0
	if order.Price >= notional {
		t.Errorf("Price = %v, should be below the notional %v", order.Price, notional)
	}
	if order.Time.IsZero() {
		t.Error("Time should be set from the order timestamp")
	}
}

func TestParseOrderStopTypesNormalizeToLimit(t *testing.T) {
	c := testBinanceClient()
	for _, orderType := range []string{"STOP_LOSS_LIMIT", "TAKE_PROFIT_LIMIT"} {
		order, err := c.parseOrder("USDT-BTC", rawOrder{
			OrderID:     1,
			Side:        "BUY",
			Type:        orderType,
			Price:       "100",
			OrigQty:     "1",
			ExecutedQty: "0",
			Status:      "NEW",
		})
		if err != nil {
			t.Fatalf("parseOrder(%s): %v", orderType, err)
		}
		if order.OrderType != models.OrderTypeLimit {
			t.Errorf("OrderType for %s = %q, want limit", orderType, order.OrderType)
		}
	}
}

func TestParseOrderBadNumbers(t *testing.T) {
	c := testBinanceClient()
	_, err := c.parseOrder("USDT-BTC", rawOrder{
		OrderID: 1,
		Side:    "BUY",
		Type:    "LIMIT",
		Price:   "not-a-number",
		OrigQty: "1",
	})
	var normErr *exchange.NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

func TestOpenStatus(t *testing.T) {
	open := []string{"NEW", "PARTIALLY_FILLED"}
	for _, status := range open {
		if !openStatus(status) {
			t.Errorf("openStatus(%s) = false, want true", status)
		}
	}
	closed := []string{"FILLED", "CANCELED", "REJECTED", "EXPIRED"}
	for _, status := range closed {
		if openStatus(status) {
			t.Errorf("openStatus(%s) = true, want false", status)
		}
	}
}

func TestWrapErr(t *testing.T) {
	if wrapErr(nil) != nil {
		t.Error("wrapErr(nil) should be nil")
	}

	err := wrapErr(&common.APIError{Code: -1121, Message: "Invalid symbol."})
	var exchangeErr *exchange.ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected ExchangeError, got %v", err)
	}
	if exchangeErr.Exchange != Name {
		t.Errorf("Exchange = %q, want %q", exchangeErr.Exchange, Name)
	}

	plain := errors.New("connection reset")
	if wrapped := wrapErr(plain); !errors.Is(wrapped, plain) {
		t.Error("transport errors should stay unwrappable")
	}
}
