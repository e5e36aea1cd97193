package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/models"
)

// fakeAPI is a canned exchange backend for dispatch tests. Only the
// capabilities a test exercises are filled in; the rest report unsupported.
type fakeAPI struct {
	name    string
	markets []models.Market
	orders  []models.Order
	err     error
}

func (f *fakeAPI) Name() string                    { return f.name }
func (f *fakeAPI) MarketURL(market string) string  { return "https://example.com/" + market }
func (f *fakeAPI) Fee(q float64, _ string) float64 { return q * 0.0025 }

func (f *fakeAPI) PriceWithFee(buyOrSell string, price float64, baseCoin string, precision int) (float64, error) {
	return exchange.PriceWithFee(buyOrSell, price, f.Fee(price, baseCoin), precision)
}

func (f *fakeAPI) MinimumTradeSize(ctx context.Context, market string) (float64, error) {
	return 0.001, nil
}

func (f *fakeAPI) ValidateMinimumTradeSize(ctx context.Context, market string, quantity, rate float64) error {
	return nil
}

func (f *fakeAPI) Markets(ctx context.Context) ([]models.Market, error) {
	return f.markets, f.err
}

func (f *fakeAPI) Candlesticks(ctx context.Context, market, interval string) ([]models.Candlestick, error) {
	return []models.Candlestick{{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Time: time.Unix(0, 0)}}, f.err
}

func (f *fakeAPI) Order(ctx context.Context, market, orderID string) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.orders[0], nil
}

func (f *fakeAPI) OrderHistory(ctx context.Context, market string) ([]models.Order, error) {
	return f.orders, f.err
}

func (f *fakeAPI) OpenOrders(ctx context.Context, market string) ([]models.Order, error) {
	return f.orders, f.err
}

func (f *fakeAPI) Orderbook(ctx context.Context, market string) (*models.OrderBook, error) {
	return nil, f.notSupported("orderbook")
}

func (f *fakeAPI) Price(ctx context.Context, market string) (*models.Price, error) {
	return nil, f.notSupported("price")
}

func (f *fakeAPI) Wallet(ctx context.Context, currency string) ([]models.WalletEntry, error) {
	return nil, f.notSupported("wallet")
}

func (f *fakeAPI) Ask(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return nil, f.notSupported("ask")
}

func (f *fakeAPI) AskWhenLessThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return nil, f.notSupported("ask-when-less-than")
}

func (f *fakeAPI) Bid(ctx context.Context, market string, quantity, rate float64) (*models.Order, error) {
	return nil, f.notSupported("bid")
}

func (f *fakeAPI) BidWhenGreaterThan(ctx context.Context, market string, quantity, rate, targetRate float64) (*models.Order, error) {
	return nil, f.notSupported("bid-when-greater-than")
}

func (f *fakeAPI) CancelOrder(ctx context.Context, market, orderID string) error {
	return f.err
}

func (f *fakeAPI) notSupported(capability string) error {
	return &exchange.NotSupportedError{Exchange: f.name, Capability: capability}
}

func testApp(t *testing.T, fake *fakeAPI) (*App, *bytes.Buffer) {
	t.Helper()
	registry := exchange.NewRegistry()
	registry.MustRegister(exchange.NewBackend(fake.name, "Testex", func(exchange.Credentials) exchange.API {
		return fake
	}))
	out := &bytes.Buffer{}
	return New(registry, config.Default(), out, nil), out
}

func fakeMarkets(name string) []models.Market {
	return []models.Market{
		{Exchange: name, BaseCoin: "USDT", MarketCoin: "BTC", Market: "USDT-BTC", MinimumTradeSize: 0.001},
		{Exchange: name, BaseCoin: "USDT", MarketCoin: "ETH", Market: "USDT-ETH", MinimumTradeSize: 0.01},
	}
}

func TestRunExchangeList(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	code := app.Run(context.Background(), []string{"exchange", "list"})
	if code != ExitOK {
		t.Fatalf("exit code = %d, want %d", code, ExitOK)
	}
	if got := out.String(); got != "Exchange names: testex\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRunExchangeMarkets(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex", markets: fakeMarkets("testex")})

	code := app.Run(context.Background(), []string{"exchange", "markets"})
	if code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	for _, want := range []string{"USDT-BTC", "USDT-ETH", "testex"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunExchangeMarketsFilter(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex", markets: fakeMarkets("testex")})

	code := app.Run(context.Background(), []string{"exchange", "markets", "--markets", "eth"})
	if code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if strings.Contains(out.String(), "USDT-BTC") {
		t.Errorf("filter leaked USDT-BTC:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "USDT-ETH") {
		t.Errorf("filter dropped USDT-ETH:\n%s", out.String())
	}
}

func TestRunExchangeMarketsNoMatch(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex", markets: fakeMarkets("testex")})

	code := app.Run(context.Background(), []string{"exchange", "markets", "--markets", "doge"})
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "No markets found.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunBackendCommand(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex", markets: fakeMarkets("testex")})

	code := app.Run(context.Background(), []string{"exchange", "testex", "markets"})
	if code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if !strings.Contains(out.String(), "Min. trade size") {
		t.Errorf("output missing market columns:\n%s", out.String())
	}
}

func TestRunMarketURL(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	code := app.Run(context.Background(), []string{"exchange", "testex", "market-url", "USDT-BTC"})
	if code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if got := out.String(); got != "https://example.com/USDT-BTC\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRunUnknownExchangeExitsUsage(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	code := app.Run(context.Background(), []string{"exchange", "nosuch", "markets"})
	if code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(out.String(), "nosuch") {
		t.Errorf("message should name the unknown command: %q", out.String())
	}
}

func TestRunUnknownRootCommandExitsUsage(t *testing.T) {
	app, _ := testApp(t, &fakeAPI{name: "testex"})

	if code := app.Run(context.Background(), []string{"frobnicate"}); code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
}

func TestRunBackendErrorExitsError(t *testing.T) {
	fake := &fakeAPI{
		name: "testex",
		err:  &exchange.ExchangeError{Exchange: "testex", Message: "INSUFFICIENT_FUNDS"},
	}
	app, out := testApp(t, fake)

	code := app.Run(context.Background(), []string{"exchange", "testex", "markets"})
	if code != ExitError {
		t.Fatalf("exit code = %d, want %d", code, ExitError)
	}
	if !strings.Contains(out.String(), "INSUFFICIENT_FUNDS") {
		t.Errorf("remote message lost: %q", out.String())
	}
}

func TestRunNotSupportedExitsError(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	code := app.Run(context.Background(), []string{"exchange", "testex", "wallet"})
	if code != ExitError {
		t.Fatalf("exit code = %d, want %d", code, ExitError)
	}
	if !strings.Contains(out.String(), "does not support wallet") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunMissingArgumentExitsUsage(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	code := app.Run(context.Background(), []string{"exchange", "testex", "candlesticks", "USDT-BTC"})
	if code != ExitUsage {
		t.Fatalf("exit code = %d, want %d, output %q", code, ExitUsage, out.String())
	}
}

func TestRunNoArgsShowsUsage(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	if code := app.Run(context.Background(), nil); code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "usage: tradeflow") {
		t.Errorf("unexpected usage output: %q", out.String())
	}
}

func TestRunBackendNoCommandShowsCommands(t *testing.T) {
	app, out := testApp(t, &fakeAPI{name: "testex"})

	if code := app.Run(context.Background(), []string{"exchange", "testex"}); code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"markets", "orderbook", "cancel-order MARKET ORDER_ID"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("command listing missing %q:\n%s", want, out.String())
		}
	}
}
