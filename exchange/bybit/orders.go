package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

func openStatus(status string) bool {
	switch status {
	case "New", "PartiallyFilled", "Untriggered":
		return true
	}
	return false
}

// parseOrder normalizes one v5 order record into the canonical shape.
func (c *Client) parseOrder(market string, item map[string]interface{}) (*models.Order, error) {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return nil, err
	}
	raw := exchange.Raw(item)

	sideToken, err := strField(raw, "side")
	if err != nil {
		return nil, err
	}
	side, err := exchange.ParseBuyOrSell(Name, sideToken)
	if err != nil {
		return nil, err
	}
	typeToken, err := strField(raw, "orderType")
	if err != nil {
		return nil, err
	}
	orderType, err := exchange.ParseOrderType(Name, typeToken)
	if err != nil {
		return nil, err
	}
	id, err := strField(raw, "orderId")
	if err != nil {
		return nil, err
	}
	quantity, err := floatField(raw, "qty")
	if err != nil {
		return nil, err
	}
	rate, err := floatField(raw, "price")
	if err != nil {
		return nil, err
	}
	remaining := quantity
	if leaves, ok := raw.Float("leavesQty"); ok {
		remaining = leaves
	}
	status, _ := raw.Str("orderStatus")

	price, err := c.PriceWithFee(side, quantity*rate, baseCoin, exchange.DefaultPricePrecision)
	if err != nil {
		return nil, err
	}

	orderTime := time.Time{}
	if created, ok := raw.Float("createdTime"); ok {
		orderTime = time.UnixMilli(int64(created)).UTC()
	}

	order := models.Order{
		OrderID:           id,
		BuyOrSell:         side,
		OrderType:         orderType,
		Exchange:          Name,
		Market:            market,
		BaseCoin:          baseCoin,
		MarketCoin:        marketCoin,
		Quantity:          quantity,
		QuantityRemaining: remaining,
		Rate:              rate,
		Price:             price,
		IsOpen:            openStatus(status),
		Time:              orderTime,
		Meta:              map[string]interface{}{"data": item},
	}
	finalized, err := exchange.FinalizeOrder(Name, order)
	if err != nil {
		return nil, err
	}
	return &finalized, nil
}

// Order fetches one order by id, checking the realtime set before the
// history.
func (c *Client) Order(ctx context.Context, market, orderID string) (*models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	for _, query := range []func() ([]map[string]interface{}, error){
		func() ([]map[string]interface{}, error) {
			return c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
				"category": category,
				"symbol":   symbol,
				"orderId":  orderID,
			}).GetOpenOrders(ctx))
		},
		func() ([]map[string]interface{}, error) {
			return c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
				"category": category,
				"symbol":   symbol,
				"orderId":  orderID,
			}).GetOrderHistory(ctx))
		},
	} {
		items, err := query()
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return c.parseOrder(market, items[0])
		}
	}

	return nil, &exchange.ExchangeError{
		Exchange: Name,
		Message:  fmt.Sprintf("order %s not found on market %s", orderID, market),
	}
}

// OrderHistory returns closed orders for the market. Orders still in an open
// state are excluded.
func (c *Client) OrderHistory(ctx context.Context, market string) ([]models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	items, err := c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}).GetOrderHistory(ctx))
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(items))
	for _, item := range items {
		if status, ok := exchange.Raw(item).Str("orderStatus"); ok && openStatus(status) {
			continue
		}
		parsed, err := c.parseOrder(market, item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *parsed)
	}
	return orders, nil
}

// OpenOrders returns the currently open orders for the market.
func (c *Client) OpenOrders(ctx context.Context, market string) ([]models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	items, err := c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}).GetOpenOrders(ctx))
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(items))
	for _, item := range items {
		parsed, err := c.parseOrder(market, item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *parsed)
	}
	return orders, nil
}

// CancelOrder cancels an order by id.
func (c *Client) CancelOrder(ctx context.Context, market, orderID string) error {
	symbol, err := symbolFor(market)
	if err != nil {
		return err
	}
	_, err = checkResponse(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}).CancelOrder(ctx))
	return err
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// placeOrder validates the order against the market minimum, submits it and
// fetches the resulting order. A positive target places a spot stop order
// with the trigger price.
func (c *Client) placeOrder(ctx context.Context, side, market string, quantity, rate, target float64) (*models.Order, error) {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return nil, err
	}
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateMinimumTradeSize(ctx, market, quantity, rate); err != nil {
		return nil, err
	}

	sideParam := "Buy"
	if side == models.SideSell {
		sideParam = "Sell"
	}
	params := map[string]interface{}{
		"category":    category,
		"symbol":      symbol,
		"side":        sideParam,
		"orderType":   "Limit",
		"qty":         formatAmount(quantity),
		"price":       formatAmount(rate),
		"timeInForce": "GTC",
		"orderLinkId": uuid.NewString(),
	}
	if target > 0 {
		params["orderFilter"] = "StopOrder"
		params["triggerPrice"] = formatAmount(target)
	}

	c.log.WithFields(logger.Fields{
		"side":     side,
		"market":   market,
		"quantity": quantity,
		"rate":     rate,
		"target":   target,
	}).Debug("Placing order")

	resp, err := checkResponse(c.sdk.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx))
	if err != nil {
		return nil, err
	}

	var placement struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeResult(resp.Result, &placement); err != nil {
		return nil, err
	}
	if placement.OrderID == "" {
		return nil, &exchange.NormalizationError{Exchange: Name, Message: "placement result has no orderId", Payload: resp.Result}
	}

	// The placement response carries ids only; build the record from what
	// was submitted. Freshly placed orders are open by convention.
	price, err := c.PriceWithFee(side, quantity*rate, baseCoin, exchange.DefaultPricePrecision)
	if err != nil {
		return nil, err
	}
	order := models.Order{
		OrderID:           placement.OrderID,
		BuyOrSell:         side,
		OrderType:         models.OrderTypeLimit,
		Exchange:          Name,
		Market:            market,
		BaseCoin:          baseCoin,
		MarketCoin:        marketCoin,
		Quantity:          quantity,
		QuantityRemaining: quantity,
		Rate:              rate,
		Price:             price,
		IsOpen:            true,
		Time:              time.Now().UTC(),
		Meta:              map[string]interface{}{"data": resp.Result},
	}
	finalized, err := exchange.FinalizeOrder(Name, order)
	if err != nil {
		return nil, err
	}
	return &finalized, nil
}

// Ask places a sell limit order.
func (c *Client) Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideSell, market, quantity, rate, 0)
}

// AskWhenLessThan places a stop sell triggered below targetRate.
func (c *Client) AskWhenLessThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	if targetRate <= 0 {
		return nil, &exchange.ArgumentError{Message: "target rate must be positive"}
	}
	return c.placeOrder(ctx, models.SideSell, market, quantity, rate, targetRate)
}

// Bid places a buy limit order.
func (c *Client) Bid(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideBuy, market, quantity, rate, 0)
}

// BidWhenGreaterThan places a stop buy triggered above targetRate.
func (c *Client) BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	if targetRate <= 0 {
		return nil, &exchange.ArgumentError{Message: "target rate must be positive"}
	}
	return c.placeOrder(ctx, models.SideBuy, market, quantity, rate, targetRate)
}
