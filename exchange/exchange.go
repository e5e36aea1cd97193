// Package exchange defines the contract every exchange backend implements,
// the normalization and validation rules applied to backend payloads, the
// fee-adjusted pricing algorithm and the backend registry. Backends differ in
// wire format only; everything a caller sees goes through this package's
// canonical shapes and error taxonomy.
package exchange

import (
	"context"

	"tradeflow/models"
)

// Credentials is the API key pair for one exchange. Both fields may be empty;
// public endpoints work without them.
type Credentials struct {
	APIKey    string
	APISecret string
}

// API is the capability contract of one exchange backend. A backend that
// cannot provide a capability yet returns NotSupportedError, never a silent
// failure. Remote rejections surface as ExchangeError; malformed responses as
// NormalizationError or ValidationError.
type API interface {
	// Name returns the registered lowercase exchange name.
	Name() string
	// MarketURL returns a human-facing deep link for the market.
	MarketURL(market string) string
	// Fee returns the fee in base-coin units for a trade of the given
	// notional size.
	Fee(quantity float64, baseCoin string) float64
	// PriceWithFee returns the trade amount including fee, rounded against
	// the trader.
	PriceWithFee(buyOrSell string, price float64, baseCoin string, precision int) (float64, error)
	// MinimumTradeSize returns the memoized minimum trade size of a market.
	MinimumTradeSize(ctx context.Context, market string) (float64, error)
	// ValidateMinimumTradeSize rejects orders below the market minimum
	// before any request is issued.
	ValidateMinimumTradeSize(ctx context.Context, market string, quantity, rate float64) error

	// Markets lists all markets of the exchange.
	Markets(ctx context.Context) ([]models.Market, error)
	// Candlesticks returns OHLCV bars for the market at the given interval,
	// oldest first as delivered by the exchange.
	Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error)
	// Order fetches one order by id.
	Order(ctx context.Context, market, orderID string) (*models.Order, error)
	// OrderHistory returns closed orders for the market; backend-native
	// open states are excluded during normalization.
	OrderHistory(ctx context.Context, market string) ([]models.Order, error)
	// OpenOrders returns the currently open orders for the market.
	OpenOrders(ctx context.Context, market string) ([]models.Order, error)
	// Orderbook returns the validated order book of the market.
	Orderbook(ctx context.Context, market string) (*models.OrderBook, error)
	// Price returns the current best bid and ask of the market.
	Price(ctx context.Context, market string) (*models.Price, error)
	// Wallet returns the holding of one currency, or all non-zero holdings
	// when currency is empty.
	Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error)

	// Ask places a sell limit order. The returned order is open by
	// convention; the true state is only known on the next fetch.
	Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error)
	// AskWhenLessThan places a conditional sell triggered below targetRate.
	// Trigger semantics are the backend's own.
	AskWhenLessThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error)
	// Bid places a buy limit order.
	Bid(ctx context.Context, market string, quantity, rate float64) (*models.Order, error)
	// BidWhenGreaterThan places a conditional buy triggered above targetRate.
	BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error)
	// CancelOrder cancels an order by id. Cancelling an already closed order
	// is not an error unless the exchange reports one.
	CancelOrder(ctx context.Context, market, orderID string) error
}

// Factory builds the API client of one exchange from its credentials.
type Factory func(creds Credentials) API

// Backend ties an exchange name to its API factory and display name. One
// Backend is registered per exchange at startup and lives for the process.
type Backend struct {
	name    string
	display string
	factory Factory
}

// NewBackend describes an exchange implementation for registration.
func NewBackend(name, display string, factory Factory) *Backend {
	return &Backend{name: name, display: display, factory: factory}
}

// Name returns the registry name of the backend.
func (b *Backend) Name() string { return b.name }

// DisplayName returns the human-facing exchange name.
func (b *Backend) DisplayName() string { return b.display }

// API constructs the backend's API client with the given credentials.
func (b *Backend) API(creds Credentials) API { return b.factory(creds) }
