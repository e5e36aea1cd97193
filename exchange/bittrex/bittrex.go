// Package bittrex implements the backend contract against the Bittrex REST
// API (v2.0 with the v1.1 public order book endpoint). Responses arrive in a
// success/message/result envelope; private endpoints are signed with
// HMAC-SHA512 over the full request URL.
package bittrex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/exchange/transport"
	"tradeflow/logger"
	"tradeflow/models"
)

// Name is the registry name of this backend.
const Name = "bittrex"

const defaultBaseURL = "https://bittrex.com"

// feeRate is Bittrex's flat commission per trade.
const feeRate = 0.0025

// New describes the bittrex backend for registration.
func New(cfg *config.Config) *exchange.Backend {
	return exchange.NewBackend(Name, "Bittrex", func(creds exchange.Credentials) exchange.API {
		return NewClient(cfg, creds)
	})
}

// Client talks to Bittrex. It satisfies exchange.API.
type Client struct {
	*exchange.Base

	creds        exchange.Credentials
	rest         *transport.Client
	baseURL      string
	minBookDepth int
	log          *logger.Entry
}

// NewClient builds a bittrex API client. Credentials may be empty for public
// endpoints.
func NewClient(cfg *config.Config, creds exchange.Credentials) *Client {
	c := &Client{
		creds:        creds,
		rest:         transport.New(cfg.HTTP.Timeout, cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst),
		baseURL:      defaultBaseURL,
		minBookDepth: cfg.Validation.OrderbookMinLength,
		log:          logger.GetLogger().WithComponent("bittrex"),
	}
	c.Base = exchange.NewBase(Name, c.fee, c.Markets)
	return c
}

func (c *Client) fee(quantity float64, baseCoin string) float64 {
	return quantity * feeRate
}

// MarketURL returns the Bittrex market page.
func (c *Client) MarketURL(market string) string {
	return fmt.Sprintf("%s/Market/Index?MarketName=%s", c.baseURL, market)
}

// envelope is the response wrapper every Bittrex endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) request(ctx context.Context, method, requestURL string, headers map[string]string, body []byte, out interface{}) error {
	var env envelope
	if err := c.rest.Request(ctx, method, requestURL, headers, body, &env); err != nil {
		return err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "unknown bittrex response error"
		}
		c.log.WithFields(logger.Fields{"method": method, "url": requestURL}).Error(msg)
		return &exchange.ExchangeError{Exchange: Name, Message: fmt.Sprintf("%s (%s %s)", msg, method, requestURL)}
	}
	if out != nil && env.Result != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return &exchange.NormalizationError{
				Exchange: Name,
				Message:  fmt.Sprintf("unexpected result shape: %v", err),
				Payload:  string(env.Result),
			}
		}
	}
	return nil
}

// requestPrivate signs the request URL with the account's secret and attaches
// the key and a millisecond nonce as query parameters.
func (c *Client) requestPrivate(ctx context.Context, method, requestURL string, body []byte, out interface{}) error {
	if c.creds.APIKey == "" || c.creds.APISecret == "" {
		return &exchange.ArgumentError{
			Message: fmt.Sprintf("%s: apikey and apisecret are required for this operation", Name),
		}
	}

	parsed, err := url.Parse(requestURL)
	if err != nil {
		return fmt.Errorf("parse request url: %w", err)
	}
	query := parsed.Query()
	query.Set("apikey", c.creds.APIKey)
	query.Set("nonce", strconv.FormatInt(time.Now().UnixMilli(), 10))
	parsed.RawQuery = query.Encode()
	signed := parsed.String()

	mac := hmac.New(sha512.New, []byte(c.creds.APISecret))
	mac.Write([]byte(signed))
	headers := map[string]string{"apisign": hex.EncodeToString(mac.Sum(nil))}

	return c.request(ctx, method, signed, headers, body, out)
}

// Markets lists all Bittrex markets.
func (c *Client) Markets(ctx context.Context) ([]models.Market, error) {
	var result []struct {
		Market exchange.Raw `json:"Market"`
	}
	if err := c.request(ctx, http.MethodGet, c.baseURL+"/api/v2.0/pub/Markets/GetMarketSummaries", nil, nil, &result); err != nil {
		return nil, err
	}

	raws := make([]map[string]interface{}, 0, len(result))
	for _, item := range result {
		raw, err := c.parseMarket(item.Market)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	if err := exchange.ValidateMarkets(raws); err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(raws))
	for _, raw := range raws {
		markets = append(markets, models.Market{
			Exchange:         raw["exchange"].(string),
			BaseCoin:         raw["base_coin"].(string),
			MarketCoin:       raw["market_coin"].(string),
			Market:           raw["market"].(string),
			MinimumTradeSize: raw["minimum_trade_size"].(float64),
		})
	}
	return markets, nil
}

func (c *Client) parseMarket(item exchange.Raw) (map[string]interface{}, error) {
	raw := map[string]interface{}{"exchange": Name}
	if base, ok := item.Str("BaseCurrency"); ok {
		raw["base_coin"] = base
	}
	if market, ok := item.Str("MarketCurrency"); ok {
		raw["market_coin"] = market
	}
	if name, ok := item.Str("MarketName"); ok {
		raw["market"] = name
	}
	if size, ok := item.Float("MinTradeSize"); ok {
		raw["minimum_trade_size"] = size
	}
	return raw, nil
}

// Candlesticks fetches OHLCV bars for the market.
func (c *Client) Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error) {
	tick, err := intervalParam(interval)
	if err != nil {
		return nil, err
	}
	requestURL := c.baseURL + "/api/v2.0/pub/market/GetTicks?" + url.Values{
		"marketName":   {market},
		"tickInterval": {tick},
	}.Encode()

	var result []exchange.Raw
	if err := c.request(ctx, http.MethodGet, requestURL, nil, nil, &result); err != nil {
		return nil, err
	}

	candles := make([]models.Candlestick, 0, len(result))
	for _, item := range result {
		candle, err := c.parseCandlestick(item)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func (c *Client) parseCandlestick(item exchange.Raw) (models.Candlestick, error) {
	open, okO := item.Float("O")
	high, okH := item.Float("H")
	low, okL := item.Float("L")
	closing, okC := item.Float("C")
	volume, okV := item.Float("V")
	if !okO || !okH || !okL || !okC || !okV {
		return models.Candlestick{}, &exchange.NormalizationError{
			Exchange: Name,
			Message:  "candlestick is missing one of O/H/L/C/V",
			Payload:  item,
		}
	}
	candle := models.Candlestick{Open: open, High: high, Low: low, Close: closing, Volume: volume}
	if ts, ok := item.Str("T"); ok {
		candle.Time = parseTimestamp(ts)
	}
	return candle, nil
}

func intervalParam(interval string) (string, error) {
	switch interval {
	case models.IntervalMinute:
		return "oneMin", nil
	case models.IntervalHour:
		return "hour", nil
	case models.IntervalDay:
		return "Day", nil
	}
	return "", &exchange.ArgumentError{
		Message: fmt.Sprintf("interval must be one of minute|hour|day, got %q", interval),
	}
}

// bittrexTimeLayout covers the fractional-second timestamps Bittrex reports.
const bittrexTimeLayout = "2006-01-02T15:04:05"

func parseTimestamp(value string) time.Time {
	for _, layout := range []string{bittrexTimeLayout + ".999", bittrexTimeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Orderbook fetches and validates the current order book.
func (c *Client) Orderbook(ctx context.Context, market string) (*models.OrderBook, error) {
	requestURL := c.baseURL + "/api/v1.1/public/getorderbook?type=both&market=" + url.QueryEscape(market)

	var result struct {
		Buy []struct {
			Quantity float64 `json:"Quantity"`
			Rate     float64 `json:"Rate"`
		} `json:"buy"`
		Sell []struct {
			Quantity float64 `json:"Quantity"`
			Rate     float64 `json:"Rate"`
		} `json:"sell"`
	}
	if err := c.request(ctx, http.MethodGet, requestURL, nil, nil, &result); err != nil {
		return nil, err
	}

	book := &models.OrderBook{
		Buy:  make([]models.OrderBookEntry, 0, len(result.Buy)),
		Sell: make([]models.OrderBookEntry, 0, len(result.Sell)),
	}
	for _, level := range result.Buy {
		book.Buy = append(book.Buy, models.OrderBookEntry{Quantity: level.Quantity, Rate: level.Rate})
	}
	for _, level := range result.Sell {
		book.Sell = append(book.Sell, models.OrderBookEntry{Quantity: level.Quantity, Rate: level.Rate})
	}

	if err := exchange.ValidateOrderbook(book, c.minBookDepth); err != nil {
		return nil, err
	}
	return book, nil
}

// Price derives the current best levels from the order book.
func (c *Client) Price(ctx context.Context, market string) (*models.Price, error) {
	book, err := c.Orderbook(ctx, market)
	if err != nil {
		return nil, err
	}
	return &models.Price{
		Time:       time.Now().UTC(),
		HighestBid: book.HighestBid(),
		LowestAsk:  book.LowestAsk(),
	}, nil
}

// Wallet returns one holding, or all non-zero holdings when currency is
// empty.
func (c *Client) Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error) {
	var raws []map[string]interface{}

	if currency == "" {
		var result []struct {
			Balance exchange.Raw `json:"Balance"`
		}
		if err := c.requestPrivate(ctx, http.MethodGet, c.baseURL+"/api/v2.0/key/balance/getbalances", nil, &result); err != nil {
			return nil, err
		}
		for _, item := range result {
			if balance, ok := item.Balance.Float("Balance"); !ok || balance <= 0 {
				continue
			}
			raws = append(raws, parseWalletItem(item.Balance))
		}
		if raws == nil {
			raws = []map[string]interface{}{}
		}
	} else {
		requestURL := c.baseURL + "/api/v2.0/key/balance/getbalance?currencyname=" + url.QueryEscape(currency)
		var result exchange.Raw
		if err := c.requestPrivate(ctx, http.MethodGet, requestURL, nil, &result); err != nil {
			return nil, err
		}
		raws = []map[string]interface{}{parseWalletItem(result)}
	}

	if err := exchange.ValidateWallet(raws); err != nil {
		return nil, err
	}

	entries := make([]models.WalletEntry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, models.WalletEntry{
			Name:      raw["name"].(string),
			Balance:   raw["balance"].(float64),
			Pending:   raw["pending"].(float64),
			Available: raw["available"].(float64),
		})
	}
	return entries, nil
}

func parseWalletItem(item exchange.Raw) map[string]interface{} {
	raw := map[string]interface{}{}
	if name, ok := item.Str("Currency"); ok {
		raw["name"] = name
	}
	if balance, ok := item.Float("Balance"); ok {
		raw["balance"] = balance
	}
	if pending, ok := item.Float("Pending"); ok {
		raw["pending"] = pending
	}
	if available, ok := item.Float("Available"); ok {
		raw["available"] = available
	}
	return raw
}

// CancelOrder cancels an order. An already closed order only fails when
// Bittrex itself reports an error.
func (c *Client) CancelOrder(ctx context.Context, market, orderID string) error {
	c.log.WithFields(logger.Fields{"order_id": orderID, "market": market}).Debug("cancelling order")
	body, err := json.Marshal(map[string]string{
		"orderId":    orderID,
		"MarketName": market,
	})
	if err != nil {
		return fmt.Errorf("encode cancel request: %w", err)
	}
	return c.requestPrivate(ctx, http.MethodPost, c.baseURL+"/api/v2.0/key/market/tradecancel", body, nil)
}

// Order fetches one order by id.
func (c *Client) Order(ctx context.Context, market, orderID string) (*models.Order, error) {
	requestURL := c.baseURL + "/api/v2.0/key/orders/getorder?orderid=" + url.QueryEscape(orderID)
	var result exchange.Raw
	if err := c.requestPrivate(ctx, http.MethodGet, requestURL, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &exchange.ExchangeError{Exchange: Name, Message: fmt.Sprintf("order %s not found", orderID)}
	}
	return c.parseOrder(result)
}

// OrderHistory returns closed orders for the market.
func (c *Client) OrderHistory(ctx context.Context, market string) ([]models.Order, error) {
	requestURL := c.baseURL + "/api/v2.0/key/orders/getorderhistory?marketname=" + url.QueryEscape(market)
	var result []exchange.Raw
	if err := c.requestPrivate(ctx, http.MethodGet, requestURL, nil, &result); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(result))
	for _, item := range result {
		if name, _ := item.FirstStr("Exchange", "MarketName"); name != market {
			continue
		}
		order, err := c.parseOrder(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// OpenOrders returns the currently open orders for the market.
func (c *Client) OpenOrders(ctx context.Context, market string) ([]models.Order, error) {
	requestURL := c.baseURL + "/api/v2.0/key/market/getopenorders?marketname=" + url.QueryEscape(market)
	var result []exchange.Raw
	if err := c.requestPrivate(ctx, http.MethodGet, requestURL, nil, &result); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(result))
	for _, item := range result {
		order, err := c.parseOrder(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}
