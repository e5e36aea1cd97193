package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/google/uuid"

	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// rawOrder is the common shape of the SDK's order and placement responses.
type rawOrder struct {
	OrderID     int64
	Side        string
	Type        string
	Price       string
	OrigQty     string
	ExecutedQty string
	Status      string
	Time        int64
	Payload     interface{}
}

func openStatus(status string) bool {
	return status == string(binancesdk.OrderStatusTypeNew) ||
		status == string(binancesdk.OrderStatusTypePartiallyFilled)
}

// parseOrder normalizes one Binance order into the canonical record. The
// quote is the limit price; the total price is derived fee-inclusive from
// quantity times rate.
func (c *Client) parseOrder(market string, raw rawOrder) (*models.Order, error) {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return nil, err
	}
	side, err := exchange.ParseBuyOrSell(Name, raw.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := exchange.ParseOrderType(Name, raw.Type)
	if err != nil {
		return nil, err
	}
	quantity, err := parseFloat(Name, "origQty", raw.OrigQty)
	if err != nil {
		return nil, err
	}
	executed, err := parseFloat(Name, "executedQty", raw.ExecutedQty)
	if err != nil {
		return nil, err
	}
	rate, err := parseFloat(Name, "price", raw.Price)
	if err != nil {
		return nil, err
	}

	price, err := c.PriceWithFee(side, quantity*rate, baseCoin, exchange.DefaultPricePrecision)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OrderID:           strconv.FormatInt(raw.OrderID, 10),
		BuyOrSell:         side,
		OrderType:         orderType,
		Exchange:          Name,
		Market:            market,
		BaseCoin:          baseCoin,
		MarketCoin:        marketCoin,
		Quantity:          quantity,
		QuantityRemaining: quantity - executed,
		Rate:              rate,
		Price:             price,
		IsOpen:            openStatus(raw.Status),
		Time:              time.UnixMilli(raw.Time).UTC(),
		Meta:              map[string]interface{}{"data": raw.Payload},
	}
	finalized, err := exchange.FinalizeOrder(Name, order)
	if err != nil {
		return nil, err
	}
	return &finalized, nil
}

func fromOrder(o *binancesdk.Order) rawOrder {
	return rawOrder{
		OrderID:     o.OrderID,
		Side:        string(o.Side),
		Type:        string(o.Type),
		Price:       o.Price,
		OrigQty:     o.OrigQuantity,
		ExecutedQty: o.ExecutedQuantity,
		Status:      string(o.Status),
		Time:        o.Time,
		Payload:     o,
	}
}

func fromCreateResponse(r *binancesdk.CreateOrderResponse) rawOrder {
	return rawOrder{
		OrderID:     r.OrderID,
		Side:        string(r.Side),
		Type:        string(r.Type),
		Price:       r.Price,
		OrigQty:     r.OrigQuantity,
		ExecutedQty: r.ExecutedQuantity,
		Status:      string(r.Status),
		Time:        r.TransactTime,
		Payload:     r,
	}
}

// Order fetches one order by id.
func (c *Client) Order(ctx context.Context, market, orderID string) (*models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return nil, &exchange.ArgumentError{Message: fmt.Sprintf("order id must be numeric on %s, got %q", Name, orderID)}
	}

	order, err := c.sdk.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	return c.parseOrder(market, fromOrder(order))
}

// OrderHistory returns closed orders for the market. Orders still in an open
// state are excluded.
func (c *Client) OrderHistory(ctx context.Context, market string) ([]models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	raw, err := c.sdk.NewListOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	orders := make([]models.Order, 0, len(raw))
	for _, o := range raw {
		if openStatus(string(o.Status)) {
			continue
		}
		parsed, err := c.parseOrder(market, fromOrder(o))
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

	raw, err := c.sdk.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	orders := make([]models.Order, 0, len(raw))
	for _, o := range raw {
		parsed, err := c.parseOrder(market, fromOrder(o))
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
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return &exchange.ArgumentError{Message: fmt.Sprintf("order id must be numeric on %s, got %q", Name, orderID)}
	}

	if _, err := c.sdk.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// placeOrder validates the order against the market minimum, submits it and
// normalizes the response. Conditional orders use Binance's stop-limit types
// with the trigger as stop price.
func (c *Client) placeOrder(ctx context.Context, side, market string, quantity, rate, target float64) (*models.Order, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateMinimumTradeSize(ctx, market, quantity, rate); err != nil {
		return nil, err
	}

	sideType := binancesdk.SideTypeBuy
	if side == models.SideSell {
		sideType = binancesdk.SideTypeSell
	}

	service := c.sdk.NewCreateOrderService().
		Symbol(symbol).
		Side(sideType).
		TimeInForce(binancesdk.TimeInForceTypeGTC).
		Quantity(formatAmount(quantity)).
		Price(formatAmount(rate)).
		NewClientOrderID(uuid.NewString())

	if target > 0 {
		orderType := binancesdk.OrderTypeStopLossLimit
		if side == models.SideBuy {
			orderType = binancesdk.OrderTypeTakeProfitLimit
		}
		service = service.Type(orderType).StopPrice(formatAmount(target))
	} else {
		service = service.Type(binancesdk.OrderTypeLimit)
	}

	c.log.WithFields(logger.Fields{
		"side":     side,
		"market":   market,
		"quantity": quantity,
		"rate":     rate,
		"target":   target,
	}).Debug("Placing order")

	response, err := service.Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	order, err := c.parseOrder(market, fromCreateResponse(response))
	if err != nil {
		return nil, err
	}
	// Freshly placed orders are open by convention; the true state is only
	// known on the next fetch.
	order.IsOpen = true
	return order, nil
}

// Ask places a sell limit order.
func (c *Client) Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return c.placeOrder(ctx, models.SideSell, market, quantity, rate, 0)
}

// AskWhenLessThan places a stop-loss sell triggered below targetRate.
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

// BidWhenGreaterThan places a take-profit buy triggered above targetRate.
func (c *Client) BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	if targetRate <= 0 {
		return nil, &exchange.ArgumentError{Message: "target rate must be positive"}
	}
	return c.placeOrder(ctx, models.SideBuy, market, quantity, rate, targetRate)
}
