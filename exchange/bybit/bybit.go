// Package bybit implements the backend contract against Bybit's v5 unified
// trading API. The SDK returns loosely typed results; every payload goes
// through the shared normalization helpers before a caller sees it.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bybitsdk "github.com/bybit-exchange/bybit.go.api"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// Name is the registry name of this backend.
const Name = "bybit"

const category = "spot"

// feeRate is the standard spot taker tier.
const feeRate = 0.001

// New describes the bybit backend for registration.
func New(cfg *config.Config) *exchange.Backend {
	return exchange.NewBackend(Name, "Bybit", func(creds exchange.Credentials) exchange.API {
		return NewClient(cfg, creds)
	})
}

// Client implements exchange.API through the bybit.go.api client.
type Client struct {
	*exchange.Base

	sdk          *bybitsdk.Client
	minBookDepth int
	log          *logger.Entry
}

// NewClient builds a bybit API client. Credentials may be empty for public
// endpoints.
func NewClient(cfg *config.Config, creds exchange.Credentials) *Client {
	c := &Client{
		sdk:          bybitsdk.NewBybitHttpClient(creds.APIKey, creds.APISecret),
		minBookDepth: cfg.Validation.OrderbookMinLength,
		log:          logger.GetLogger().WithComponent("bybit"),
	}
	c.Base = exchange.NewBase(Name, c.fee, c.Markets)
	return c
}

func (c *Client) fee(quantity float64, baseCoin string) float64 {
	return quantity * feeRate
}

// MarketURL returns the Bybit spot trade page for the market.
func (c *Client) MarketURL(market string) string {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("https://www.bybit.com/trade/spot/%s/%s", marketCoin, baseCoin)
}

// symbolFor maps a canonical market id to Bybit's concatenated symbol:
// USDT-BTC becomes BTCUSDT.
func symbolFor(market string) (string, error) {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return "", err
	}
	return marketCoin + baseCoin, nil
}

func strField(raw exchange.Raw, key string) (string, error) {
	value, ok := raw.Str(key)
	if !ok {
		return "", &exchange.NormalizationError{
			Exchange: Name,
			Message:  fmt.Sprintf("missing or non-string field %s", key),
			Payload:  map[string]interface{}(raw),
		}
	}
	return value, nil
}

func floatField(raw exchange.Raw, key string) (float64, error) {
	value, ok := raw.Float(key)
	if !ok {
		return 0, &exchange.NormalizationError{
			Exchange: Name,
			Message:  fmt.Sprintf("missing or non-numeric field %s", key),
			Payload:  map[string]interface{}(raw),
		}
	}
	return value, nil
}

// decodeResult re-marshals the SDK's untyped result and turns it into the
// requested shape.
func decodeResult(result interface{}, out interface{}) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return &exchange.NormalizationError{Exchange: Name, Message: "result is not encodable", Payload: result}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &exchange.NormalizationError{Exchange: Name, Message: err.Error(), Payload: string(payload)}
	}
	return nil
}

// checkResponse maps a non-zero retCode onto ExchangeError.
func checkResponse(resp *bybitsdk.ServerResponse, err error) (*bybitsdk.ServerResponse, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	if resp.RetCode != 0 {
		return nil, &exchange.ExchangeError{
			Exchange: Name,
			Message:  fmt.Sprintf("%s (retCode %d)", resp.RetMsg, resp.RetCode),
		}
	}
	return resp, nil
}

// listResult is the {"list": [...]} envelope most v5 endpoints share.
type listResult struct {
	List []map[string]interface{} `json:"list"`
}

func (c *Client) listCall(resp *bybitsdk.ServerResponse, err error) ([]map[string]interface{}, error) {
	resp, err = checkResponse(resp, err)
	if err != nil {
		return nil, err
	}
	var result listResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// Markets lists all spot instruments. The minimum order quantity of the lot
// size filter is the minimum trade size.
func (c *Client) Markets(ctx context.Context) ([]models.Market, error) {
	items, err := c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
	}).GetInstrumentInfo(ctx))
	if err != nil {
		return nil, err
	}

	required := []string{"baseCoin", "quoteCoin", "lotSizeFilter"}
	if err := exchange.ValidateRawRecords(items, required, "markets"); err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(items))
	for _, item := range items {
		raw := exchange.Raw(item)
		quote, _ := raw.Str("quoteCoin")
		base, _ := raw.Str("baseCoin")
		minSize := 0.0
		if filter, ok := item["lotSizeFilter"].(map[string]interface{}); ok {
			if parsed, ok := exchange.Raw(filter).Float("minOrderQty"); ok {
				minSize = parsed
			}
		}
		markets = append(markets, models.Market{
			Exchange:         Name,
			BaseCoin:         quote,
			MarketCoin:       base,
			Market:           quote + "-" + base,
			MinimumTradeSize: minSize,
		})
	}
	return markets, nil
}

func intervalParam(interval string) (string, error) {
	switch interval {
	case models.IntervalMinute:
		return "1", nil
	case models.IntervalHour:
		return "60", nil
	case models.IntervalDay:
		return "D", nil
	}
	return "", &exchange.ArgumentError{
		Message: fmt.Sprintf("interval must be one of minute|hour|day, got %q", interval),
	}
}

// klineResult holds the kline rows: [startTime, open, high, low, close,
// volume, turnover], newest first.
type klineResult struct {
	List [][]string `json:"list"`
}

// Candlesticks fetches klines for the market, reordered oldest first.
func (c *Client) Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}
	native, err := intervalParam(interval)
	if err != nil {
		return nil, err
	}

	resp, err := checkResponse(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"interval": native,
	}).GetMarketKline(ctx))
	if err != nil {
		return nil, err
	}

	var result klineResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return nil, err
	}

	candles := make([]models.Candlestick, 0, len(result.List))
	for _, row := range result.List {
		if len(row) < 6 {
			return nil, &exchange.NormalizationError{Exchange: Name, Message: "short kline row", Payload: row}
		}
		raw := exchange.Raw{
			"start": row[0], "open": row[1], "high": row[2],
			"low": row[3], "close": row[4], "volume": row[5],
		}
		start, err := floatField(raw, "start")
		if err != nil {
			return nil, err
		}
		open, err := floatField(raw, "open")
		if err != nil {
			return nil, err
		}
		high, err := floatField(raw, "high")
		if err != nil {
			return nil, err
		}
		low, err := floatField(raw, "low")
		if err != nil {
			return nil, err
		}
		closing, err := floatField(raw, "close")
		if err != nil {
			return nil, err
		}
		volume, err := floatField(raw, "volume")
		if err != nil {
			return nil, err
		}
		candles = append(candles, models.Candlestick{
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closing,
			Volume: volume,
			Time:   time.UnixMilli(int64(start)).UTC(),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// bookResult holds the depth levels as [price, size] pairs.
type bookResult struct {
	Bids [][]string `json:"b"`
	Asks [][]string `json:"a"`
}

func parseLevels(levels [][]string) ([]models.OrderBookEntry, error) {
	entries := make([]models.OrderBookEntry, 0, len(levels))
	for _, level := range levels {
		if len(level) < 2 {
			return nil, &exchange.NormalizationError{Exchange: Name, Message: "short depth level", Payload: level}
		}
		raw := exchange.Raw{"rate": level[0], "quantity": level[1]}
		rate, err := floatField(raw, "rate")
		if err != nil {
			return nil, err
		}
		quantity, err := floatField(raw, "quantity")
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.OrderBookEntry{Quantity: quantity, Rate: rate})
	}
	return entries, nil
}

// Orderbook fetches and validates the current depth.
func (c *Client) Orderbook(ctx context.Context, market string) (*models.OrderBook, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	resp, err := checkResponse(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"limit":    50,
	}).GetOrderBookInfo(ctx))
	if err != nil {
		return nil, err
	}

	var result bookResult
	if err := decodeResult(resp.Result, &result); err != nil {
		return nil, err
	}

	book := &models.OrderBook{}
	if book.Buy, err = parseLevels(result.Bids); err != nil {
		return nil, err
	}
	if book.Sell, err = parseLevels(result.Asks); err != nil {
		return nil, err
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
// empty. Bybit reports the locked part and the total; the available part is
// the difference.
func (c *Client) Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error) {
	accounts, err := c.listCall(c.sdk.NewUtaBybitServiceWithParams(map[string]interface{}{
		"accountType": "UNIFIED",
	}).GetAccountWallet(ctx))
	if err != nil {
		return nil, err
	}

	var entries []models.WalletEntry
	for _, account := range accounts {
		coins, ok := account["coin"].([]interface{})
		if !ok {
			continue
		}
		for _, coin := range coins {
			item, ok := coin.(map[string]interface{})
			if !ok {
				return nil, &exchange.NormalizationError{Exchange: Name, Message: "bad coin entry", Payload: coin}
			}
			raw := exchange.Raw(item)
			name, err := strField(raw, "coin")
			if err != nil {
				return nil, err
			}
			if currency != "" && name != currency {
				continue
			}
			balance, err := floatField(raw, "walletBalance")
			if err != nil {
				return nil, err
			}
			locked, _ := raw.Float("locked")
			if currency == "" && balance <= 0 {
				continue
			}
			entries = append(entries, models.NewWalletEntry(name, locked, balance-locked))
		}
	}

	if currency != "" && len(entries) == 0 {
		return nil, &exchange.ExchangeError{
			Exchange: Name,
			Message:  fmt.Sprintf("no balance found for currency %s", currency),
		}
	}
	if entries == nil {
		entries = []models.WalletEntry{}
	}
	return entries, nil
}
