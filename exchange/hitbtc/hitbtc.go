// Package hitbtc is a read-mostly backend: it serves the market list and fee
// pricing and declines everything that needs an account. Unimplemented
// capabilities return NotSupportedError so callers can tell "not built" from
// "failed".
package hitbtc

import (
	"context"
	"fmt"
	"strconv"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/exchange/transport"
	"tradeflow/models"
)

// Name is the registry name of this backend.
const Name = "hitbtc"

const defaultBaseURL = "https://api.hitbtc.com"

// feeRate is the standard taker tier.
// TODO fetch the account's actual fee tier from /api/2/trading/fee.
const feeRate = 0.0025

// New describes the hitbtc backend for registration.
func New(cfg *config.Config) *exchange.Backend {
	return exchange.NewBackend(Name, "HitBTC", func(creds exchange.Credentials) exchange.API {
		return NewClient(cfg, creds)
	})
}

// Client implements exchange.API against the HitBTC v2 REST API.
type Client struct {
	*exchange.Base

	rest    *transport.Client
	baseURL string
}

// NewClient builds a hitbtc API client.
func NewClient(cfg *config.Config, creds exchange.Credentials) *Client {
	c := &Client{
		rest:    transport.New(cfg.HTTP.Timeout, cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst),
		baseURL: defaultBaseURL,
	}
	c.Base = exchange.NewBase(Name, c.fee, c.Markets)
	return c
}

func (c *Client) fee(quantity float64, baseCoin string) float64 {
	return quantity * feeRate
}

// MarketURL returns the HitBTC trade page for the market.
func (c *Client) MarketURL(market string) string {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("https://hitbtc.com/exchange/%s-to-%s", marketCoin, baseCoin)
}

type symbolItem struct {
	ID                string `json:"id"`
	BaseCurrency      string `json:"baseCurrency"`
	QuoteCurrency     string `json:"quoteCurrency"`
	QuantityIncrement string `json:"quantityIncrement"`
}

// Markets lists all symbols. The quantity increment doubles as the minimum
// trade size.
func (c *Client) Markets(ctx context.Context) ([]models.Market, error) {
	var items []symbolItem
	if err := c.rest.Get(ctx, c.baseURL+"/api/2/public/symbol", &items); err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(items))
	for _, item := range items {
		minSize, err := strconv.ParseFloat(item.QuantityIncrement, 64)
		if err != nil {
			return nil, &exchange.NormalizationError{
				Exchange: Name,
				Message:  fmt.Sprintf("symbol %s has a non-numeric quantityIncrement", item.ID),
				Payload:  item,
			}
		}
		markets = append(markets, models.Market{
			Exchange:         Name,
			BaseCoin:         item.QuoteCurrency,
			MarketCoin:       item.BaseCurrency,
			Market:           item.QuoteCurrency + "-" + item.BaseCurrency,
			MinimumTradeSize: minSize,
		})
	}
	return markets, nil
}

func (c *Client) notSupported(capability string) error {
	return &exchange.NotSupportedError{Exchange: Name, Capability: capability}
}

func (c *Client) Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error) {
	return nil, c.notSupported("candlesticks")
}

func (c *Client) Order(ctx context.Context, market, orderID string) (*models.Order, error) {
	return nil, c.notSupported("order")
}

func (c *Client) OrderHistory(ctx context.Context, market string) ([]models.Order, error) {
	return nil, c.notSupported("order-history")
}

func (c *Client) OpenOrders(ctx context.Context, market string) ([]models.Order, error) {
	return nil, c.notSupported("open-orders")
}

func (c *Client) Orderbook(ctx context.Context, market string) (*models.OrderBook, error) {
	return nil, c.notSupported("orderbook")
}

func (c *Client) Price(ctx context.Context, market string) (*models.Price, error) {
	return nil, c.notSupported("price")
}

func (c *Client) Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error) {
	return nil, c.notSupported("wallet")
}

func (c *Client) Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return nil, c.notSupported("ask")
}

func (c *Client) AskWhenLessThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return nil, c.notSupported("ask-when-less-than")
}

func (c *Client) Bid(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return nil, c.notSupported("bid")
}

func (c *Client) BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return nil, c.notSupported("bid-when-greater-than")
}

func (c *Client) CancelOrder(ctx context.Context, market, orderID string) error {
	return c.notSupported("cancel-order")
}
