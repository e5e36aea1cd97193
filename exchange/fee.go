package exchange

import (
	"fmt"
	"math"

	"tradeflow/models"
)

// DefaultPricePrecision is the decimal precision of fee-adjusted prices.
const DefaultPricePrecision = 8

// PriceWithFee computes the total cash amount of a trade including its fee,
// rounded against the trader: a sell subtracts the fee and floors the
// proceeds, a buy adds the fee and ceils the cost. The result is exact at
// 10^-precision granularity. This is the one numeric contract every backend
// shares and it must be reproducible bit for bit.
func PriceWithFee(buyOrSell string, price, fee float64, precision int) (float64, error) {
	if buyOrSell != models.SideBuy && buyOrSell != models.SideSell {
		return 0, &ArgumentError{
			Message: fmt.Sprintf("buy_or_sell must be %q or %q, got %q", models.SideBuy, models.SideSell, buyOrSell),
		}
	}
	if precision <= 0 {
		precision = DefaultPricePrecision
	}

	fee = math.Abs(fee)
	price = math.Abs(price)
	scale := math.Pow(10, float64(precision))

	if buyOrSell == models.SideSell {
		return math.Floor((price-fee)*scale) / scale, nil
	}
	return math.Ceil((price+fee)*scale) / scale, nil
}
