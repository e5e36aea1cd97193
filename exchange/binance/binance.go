// Package binance implements the backend contract on top of the go-binance
// spot client. The SDK handles signing and transport; this package maps its
// typed responses into the canonical records.
package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// Name is the registry name of this backend.
const Name = "binance"

// feeRate approximates the standard spot commission tier.
const feeRate = 0.0025

const orderbookDepthLimit = 50

// New describes the binance backend for registration.
func New(cfg *config.Config) *exchange.Backend {
	return exchange.NewBackend(Name, "Binance", func(creds exchange.Credentials) exchange.API {
		return NewClient(cfg, creds)
	})
}

// Client talks to Binance through the go-binance SDK. It satisfies
// exchange.API.
type Client struct {
	*exchange.Base

	sdk          *binancesdk.Client
	minBookDepth int
	log          *logger.Entry
}

// NewClient builds a binance API client. Credentials may be empty for public
// endpoints.
func NewClient(cfg *config.Config, creds exchange.Credentials) *Client {
	sdk := binancesdk.NewClient(creds.APIKey, creds.APISecret)
	sdk.HTTPClient.Timeout = cfg.HTTP.Timeout

	c := &Client{
		sdk:          sdk,
		minBookDepth: cfg.Validation.OrderbookMinLength,
		log:          logger.GetLogger().WithComponent("binance"),
	}
	c.Base = exchange.NewBase(Name, c.fee, c.Markets)
	return c
}

func (c *Client) fee(quantity float64, baseCoin string) float64 {
	return quantity * feeRate
}

// MarketURL returns the Binance trade page for the market.
func (c *Client) MarketURL(market string) string {
	return fmt.Sprintf("https://www.binance.com/tradeDetail.html?symbol=%s", strings.ReplaceAll(market, "-", "_"))
}

// symbolFor maps a canonical market id to Binance's concatenated symbol:
// USDT-BTC becomes BTCUSDT.
func symbolFor(market string) (string, error) {
	baseCoin, marketCoin, err := exchange.SplitMarket(market)
	if err != nil {
		return "", err
	}
	return marketCoin + baseCoin, nil
}

// wrapErr maps SDK failures onto the error taxonomy: a service-level
// rejection becomes an ExchangeError, everything else stays a transport
// error.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.ExchangeError{
			Exchange: Name,
			Message:  fmt.Sprintf("%s (code %d)", apiErr.Message, apiErr.Code),
		}
	}
	return fmt.Errorf("%s: %w", Name, err)
}

func parseFloat(exchangeName, field, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &exchange.NormalizationError{
			Exchange: exchangeName,
			Message:  fmt.Sprintf("field %s is not numeric: %q", field, value),
			Payload:  value,
		}
	}
	return f, nil
}

// Markets lists all spot symbols. The minimum trade size comes from the
// LOT_SIZE filter's minimum quantity.
func (c *Client) Markets(ctx context.Context) ([]models.Market, error) {
	info, err := c.sdk.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	markets := make([]models.Market, 0, len(info.Symbols))
	for i := range info.Symbols {
		symbol := info.Symbols[i]
		minSize := 0.0
		if filter := symbol.LotSizeFilter(); filter != nil {
			if parsed, err := strconv.ParseFloat(filter.MinQuantity, 64); err == nil {
				minSize = parsed
			}
		}
		markets = append(markets, models.Market{
			Exchange:         Name,
			BaseCoin:         symbol.QuoteAsset,
			MarketCoin:       symbol.BaseAsset,
			Market:           symbol.QuoteAsset + "-" + symbol.BaseAsset,
			MinimumTradeSize: minSize,
		})
	}
	return markets, nil
}

func intervalParam(interval string) (string, error) {
	switch interval {
	case models.IntervalMinute:
		return "1m", nil
	case models.IntervalHour:
		return "1h", nil
	case models.IntervalDay:
		return "1d", nil
	}
	return "", &exchange.ArgumentError{
		Message: fmt.Sprintf("interval must be one of minute|hour|day, got %q", interval),
	}
}

// Candlesticks fetches klines for the market, oldest first.
func (c *Client) Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}
	native, err := intervalParam(interval)
	if err != nil {
		return nil, err
	}

	klines, err := c.sdk.NewKlinesService().Symbol(symbol).Interval(native).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	candles := make([]models.Candlestick, 0, len(klines))
	for _, k := range klines {
		open, err := parseFloat(Name, "open", k.Open)
		if err != nil {
			return nil, err
		}
		high, err := parseFloat(Name, "high", k.High)
		if err != nil {
			return nil, err
		}
		low, err := parseFloat(Name, "low", k.Low)
		if err != nil {
			return nil, err
		}
		closing, err := parseFloat(Name, "close", k.Close)
		if err != nil {
			return nil, err
		}
		volume, err := parseFloat(Name, "volume", k.Volume)
		if err != nil {
			return nil, err
		}
		candles = append(candles, models.Candlestick{
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closing,
			Volume: volume,
			Time:   time.UnixMilli(k.OpenTime).UTC(),
		})
	}
	return candles, nil
}

// Orderbook fetches and validates the current depth.
func (c *Client) Orderbook(ctx context.Context, market string) (*models.OrderBook, error) {
	symbol, err := symbolFor(market)
	if err != nil {
		return nil, err
	}

	depth, err := c.sdk.NewDepthService().Symbol(symbol).Limit(orderbookDepthLimit).Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	book := &models.OrderBook{
		Buy:  make([]models.OrderBookEntry, 0, len(depth.Bids)),
		Sell: make([]models.OrderBookEntry, 0, len(depth.Asks)),
	}
	for _, level := range depth.Bids {
		rate, quantity, err := level.Parse()
		if err != nil {
			return nil, &exchange.NormalizationError{Exchange: Name, Message: "bad bid level", Payload: level}
		}
		book.Buy = append(book.Buy, models.OrderBookEntry{Quantity: quantity, Rate: rate})
	}
	for _, level := range depth.Asks {
		rate, quantity, err := level.Parse()
		if err != nil {
			return nil, &exchange.NormalizationError{Exchange: Name, Message: "bad ask level", Payload: level}
		}
		book.Sell = append(book.Sell, models.OrderBookEntry{Quantity: quantity, Rate: rate})
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
// empty. Binance reports locked and free parts; the balance is derived.
func (c *Client) Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error) {
	account, err := c.sdk.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	var entries []models.WalletEntry
	for _, balance := range account.Balances {
		if currency != "" && balance.Asset != currency {
			continue
		}
		locked, err := parseFloat(Name, "locked", balance.Locked)
		if err != nil {
			return nil, err
		}
		free, err := parseFloat(Name, "free", balance.Free)
		if err != nil {
			return nil, err
		}
		if currency == "" && locked+free <= 0 {
			continue
		}
		entries = append(entries, models.NewWalletEntry(balance.Asset, locked, free))
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
