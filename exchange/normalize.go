package exchange

import (
	"fmt"
	"strings"

	"tradeflow/models"
)

// ParseBuyOrSell maps a backend-native side token to the canonical vocabulary
// by case-insensitive substring match. An unrecognized token is a
// NormalizationError, never a silent default.
func ParseBuyOrSell(exchangeName, token string) (string, error) {
	upper := strings.ToUpper(token)
	switch {
	case strings.Contains(upper, "SELL"):
		return models.SideSell, nil
	case strings.Contains(upper, "BUY"):
		return models.SideBuy, nil
	}
	return "", &NormalizationError{
		Exchange: exchangeName,
		Message:  fmt.Sprintf("can't determine buy or sell from side token %q", token),
		Payload:  token,
	}
}

// ParseOrderType maps a backend-native order type token to limit/market by
// case-insensitive substring match.
func ParseOrderType(exchangeName, token string) (string, error) {
	upper := strings.ToUpper(token)
	switch {
	case strings.Contains(upper, "LIMIT"):
		return models.OrderTypeLimit, nil
	case strings.Contains(upper, "MARKET"):
		return models.OrderTypeMarket, nil
	}
	return "", &NormalizationError{
		Exchange: exchangeName,
		Message:  fmt.Sprintf("unknown order type token %q", token),
		Payload:  token,
	}
}

// SplitMarket splits a market identifier like "USDT-BTC" into its base coin
// and market coin.
func SplitMarket(market string) (baseCoin, marketCoin string, err error) {
	parts := strings.SplitN(market, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &ArgumentError{
			Message: fmt.Sprintf("invalid market %q: expected BASE-MARKET, e.g. USDT-BTC", market),
		}
	}
	return parts[0], parts[1], nil
}

// FinalizeOrder derives the fill flags of a normalized order and enforces
// 0 <= remaining <= quantity. Orders are immutable once finalized.
func FinalizeOrder(exchangeName string, order models.Order) (models.Order, error) {
	if order.QuantityRemaining < 0 || order.QuantityRemaining > order.Quantity {
		return models.Order{}, &NormalizationError{
			Exchange: exchangeName,
			Message: fmt.Sprintf("remaining quantity %.8f out of range for order %s with quantity %.8f",
				order.QuantityRemaining, order.OrderID, order.Quantity),
			Payload: order.Meta,
		}
	}
	order.IsFilled = order.QuantityRemaining == 0
	order.IsPartiallyFilled = order.QuantityRemaining > 0 && order.QuantityRemaining < order.Quantity
	return order, nil
}
