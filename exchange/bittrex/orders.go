package bittrex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// Bittrex v2 trade parameters. Condition types carry bittrex's own stop
// semantics; they are not translated to any cross-exchange model.
const (
	conditionNone        = "NONE"
	conditionLessThan    = "LESS_THAN"
	conditionGreaterThan = "GREATER_THAN"

	timeInEffectGoodTilCancelled = "GOOD_TIL_CANCELLED"
)

// parseOrder normalizes one Bittrex order payload. Bittrex spreads the same
// information over different field names per endpoint (Type/OrderType,
// OrderUuid/OrderId, Limit/Rate/PricePerUnit), so every lookup walks the
// known aliases.
func (c *Client) parseOrder(item exchange.Raw) (*models.Order, error) {
	typeToken, ok := item.FirstStr("Type", "OrderType")
	if !ok {
		return nil, &exchange.NormalizationError{
			Exchange: Name,
			Message:  "order has neither Type nor OrderType",
			Payload:  item,
		}
	}

	var buyOrSell string
	var err error
	if side, hasSide := item.Str("BuyOrSell"); hasSide {
		buyOrSell, err = exchange.ParseBuyOrSell(Name, side)
	} else {
		buyOrSell, err = exchange.ParseBuyOrSell(Name, typeToken)
	}
	if err != nil {
		return nil, err
	}

	orderType, err := exchange.ParseOrderType(Name, typeToken)
	if err != nil {
		return nil, err
	}

	orderID, ok := item.FirstStr("OrderUuid", "OrderId", "Uuid")
	if !ok {
		return nil, &exchange.NormalizationError{Exchange: Name, Message: "order has no id", Payload: item}
	}

	quantity, ok := item.Float("Quantity")
	if !ok {
		return nil, &exchange.NormalizationError{Exchange: Name, Message: "order has no quantity", Payload: item}
	}

	market, ok := item.FirstStr("Exchange", "MarketName")
	if !ok {
		return nil, &exchange.NormalizationError{Exchange: Name, Message: "order has no market", Payload: item}
	}
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return nil, &exchange.NormalizationError{
			Exchange: Name,
			Message:  fmt.Sprintf("order market %q is not a BASE-MARKET pair", market),
			Payload:  item,
		}
	}

	rate, ok := item.FirstFloat("PricePerUnit", "Rate", "Limit")
	if !ok {
		// Fall back to the cash amount divided by quantity.
		if price, hasPrice := item.Float("Price"); hasPrice && price > 0 && quantity > 0 {
			rate = price / quantity
		} else {
			return nil, &exchange.NormalizationError{Exchange: Name, Message: "order rate is unknown", Payload: item}
		}
	}

	price, hasPrice := item.Float("Price")
	if !hasPrice || price <= 0 {
		price, err = c.PriceWithFee(buyOrSell, quantity*rate, baseCoin, exchange.DefaultPricePrecision)
		if err != nil {
			return nil, err
		}
	}

	remaining := quantity
	if qr, hasRemaining := item.Float("QuantityRemaining"); hasRemaining {
		remaining = qr
	}

	isOpen, _ := item.Bool("IsOpen")

	order := models.Order{
		OrderID:           orderID,
		BuyOrSell:         buyOrSell,
		OrderType:         orderType,
		Exchange:          Name,
		Market:            market,
		BaseCoin:          baseCoin,
		MarketCoin:        marketCoin,
		Quantity:          quantity,
		QuantityRemaining: remaining,
		Rate:              rate,
		Price:             price,
		IsOpen:            isOpen,
		Meta:              map[string]interface{}{"data": map[string]interface{}(item)},
	}
	if ts, hasTime := item.FirstStr("TimeStamp", "Opened", "Closed"); hasTime {
		order.Time = parseTimestamp(ts)
	}

	finalized, err := exchange.FinalizeOrder(Name, order)
	if err != nil {
		return nil, err
	}
	return &finalized, nil
}

// Ask places a sell limit order.
func (c *Client) Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideSell, market, quantity, rate, conditionNone, 0)
}

// AskWhenLessThan places a sell triggered when the price drops below
// targetRate.
func (c *Client) AskWhenLessThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideSell, market, quantity, rate, conditionLessThan, targetRate)
}

// Bid places a buy limit order.
func (c *Client) Bid(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideBuy, market, quantity, rate, conditionNone, 0)
}

// BidWhenGreaterThan places a buy triggered when the price rises above
// targetRate.
func (c *Client) BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideBuy, market, quantity, rate, conditionGreaterThan, targetRate)
}

func (c *Client) placeOrder(ctx context.Context, buyOrSell, market string, quantity, rate float64, conditionType string, target float64) (*models.Order, error) {
	params, err := c.tradeParams(ctx, market, quantity, rate, conditionType, target)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"side":     buyOrSell,
		"market":   market,
		"quantity": fmt.Sprintf("%.8f", quantity),
		"rate":     fmt.Sprintf("%.8f", rate),
	}).Debug("placing order")

	endpoint := c.baseURL + "/api/v2.0/key/market/tradesell"
	if buyOrSell == models.SideBuy {
		endpoint = c.baseURL + "/api/v2.0/key/market/tradebuy"
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode trade request: %w", err)
	}

	var result exchange.Raw
	if err := c.requestPrivate(ctx, http.MethodPost, endpoint, body, &result); err != nil {
		return nil, err
	}

	order, err := c.parseOrder(result)
	if err != nil {
		return nil, err
	}
	// Freshly placed orders are open by convention; the true state is only
	// known on the next fetch.
	order.IsOpen = true
	return order, nil
}

// tradeParams validates the order against the market minimum before anything
// goes over the wire and assembles the request body.
func (c *Client) tradeParams(ctx context.Context, market string, quantity, rate float64, conditionType string, target float64) (map[string]interface{}, error) {
	if err := c.ValidateMinimumTradeSize(ctx, market, quantity, rate); err != nil {
		return nil, err
	}

	if conditionType != conditionNone {
		if target <= 0 {
			return nil, &exchange.ArgumentError{
				Message: fmt.Sprintf("target rate must be greater than zero for condition %s", conditionType),
			}
		}
	} else {
		target = 0
	}

	return map[string]interface{}{
		"marketname":    market,
		"rate":          rate,
		"quantity":      quantity,
		"ordertype":     "LIMIT",
		"timeInEffect":  timeInEffectGoodTilCancelled,
		"conditiontype": conditionType,
		"target":        target,
	}, nil
}
