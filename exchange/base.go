package exchange

import (
	"context"
	"fmt"
	"sync"

	"tradeflow/models"
)

// FeeFunc returns the fee in base-coin units for a trade of the given
// notional size.
type FeeFunc func(quantity float64, baseCoin string) float64

// MarketsFunc fetches the full market list of an exchange.
type MarketsFunc func(ctx context.Context) ([]models.Market, error)

// Base carries the behavior every backend shares: fee-adjusted pricing and
// the per-instance minimum-trade-size memo. Backends embed it and pass their
// own fee and markets functions at construction.
type Base struct {
	name    string
	fee     FeeFunc
	markets MarketsFunc

	mu       sync.Mutex
	minSizes map[string]float64
}

// NewBase builds the shared backend core for the named exchange.
func NewBase(name string, fee FeeFunc, markets MarketsFunc) *Base {
	return &Base{name: name, fee: fee, markets: markets}
}

// Name returns the registered exchange name.
func (b *Base) Name() string {
	return b.name
}

// Fee returns the fee for a trade of the given notional size.
func (b *Base) Fee(quantity float64, baseCoin string) float64 {
	return b.fee(quantity, baseCoin)
}

// PriceWithFee returns the trade amount including this exchange's fee,
// rounded against the trader.
func (b *Base) PriceWithFee(buyOrSell string, price float64, baseCoin string, precision int) (float64, error) {
	return PriceWithFee(buyOrSell, price, b.fee(price, baseCoin), precision)
}

// MinimumTradeSize returns the minimum trade size of a market. The underlying
// market -> size table is fetched once per backend instance and memoized; it
// is never invalidated.
func (b *Base) MinimumTradeSize(ctx context.Context, market string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.minSizes == nil {
		markets, err := b.markets(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch markets for minimum trade sizes: %w", err)
		}
		sizes := make(map[string]float64, len(markets))
		for _, m := range markets {
			sizes[m.Market] = m.MinimumTradeSize
		}
		b.minSizes = sizes
	}

	size, ok := b.minSizes[market]
	if !ok {
		return 0, &ArgumentError{Message: fmt.Sprintf("unknown market %q on %s", market, b.name)}
	}
	return size, nil
}

// ValidateMinimumTradeSize checks an order against the market's minimum trade
// size. Every placement path must call this before issuing the network
// request; a violation means nothing is submitted.
func (b *Base) ValidateMinimumTradeSize(ctx context.Context, market string, quantity, rate float64) error {
	minimum, err := b.MinimumTradeSize(ctx, market)
	if err != nil {
		return err
	}
	if quantity < minimum {
		_, marketCoin, splitErr := SplitMarket(market)
		if splitErr != nil {
			marketCoin = market
		}
		return &MinimumTradeSizeError{
			MarketCoin:       marketCoin,
			Quantity:         quantity,
			MinimumTradeSize: minimum,
		}
	}
	return nil
}
