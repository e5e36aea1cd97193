// Package cli is the terminal surface of tradeflow. It owns argument
// dispatch, table rendering and the process exit code policy; all trading
// behavior lives behind the exchange API contract.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"tradeflow/archive"
	"tradeflow/command"
	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// Exit codes. Remote failures and wiring bugs exit 1; bad user input exits 2
// like the common Unix convention for usage errors.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// App wires the backend registry, configuration and output stream into the
// command-line surface. It holds no per-invocation state.
type App struct {
	registry *exchange.Registry
	cfg      *config.Config
	out      io.Writer
	archiver *archive.Writer
	log      *logger.Entry
}

// New builds the CLI application. The archiver may be nil when archiving is
// disabled.
func New(registry *exchange.Registry, cfg *config.Config, out io.Writer, archiver *archive.Writer) *App {
	return &App{
		registry: registry,
		cfg:      cfg,
		out:      out,
		archiver: archiver,
		log:      logger.GetLogger().WithComponent("cli"),
	}
}

// Run dispatches one invocation and returns the process exit code.
func (a *App) Run(ctx context.Context, argv []string) int {
	if len(argv) == 0 || argv[0] == "help" || argv[0] == "-h" || argv[0] == "--help" {
		a.printRootUsage()
		return ExitOK
	}

	switch argv[0] {
	case "exchange":
		return a.exitCode(a.runExchange(ctx, argv[1:]))
	}
	return a.exitCode(&exchange.ArgumentError{
		Message: fmt.Sprintf("unknown command %q", argv[0]),
	})
}

// runExchange handles `exchange list`, `exchange markets` and
// `exchange NAME COMMAND ...`.
func (a *App) runExchange(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		a.printExchangeUsage()
		return nil
	}

	surface := a.exchangeLevelCommands()
	if _, ok := surface.Resolve(argv[0]); ok {
		return surface.Invoke(ctx, argv[0], argv[1:])
	}

	name := strings.ToLower(argv[0])
	if _, ok := a.registry.Get(name); ok {
		return a.runBackend(ctx, name, argv[1:])
	}

	return &exchange.ArgumentError{
		Message: fmt.Sprintf("unknown exchange or command %q", argv[0]),
	}
}

func (a *App) runBackend(ctx context.Context, name string, argv []string) error {
	creds := a.cfg.Credentials(name)
	api, err := a.registry.API(name, exchange.Credentials{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
	})
	if err != nil {
		return err
	}

	commands := a.exchangeCommands(api)
	if len(argv) == 0 {
		a.printBackendUsage(name, commands)
		return nil
	}
	return commands.Invoke(ctx, argv[0], argv[1:])
}

// exchangeLevelCommands is the surface above the per-exchange ones: listing
// exchanges and cross-exchange market search.
func (a *App) exchangeLevelCommands() *command.Set {
	return command.MustNewSet(nil,
		command.Spec{
			Method:      "list",
			Description: "Show the list of exchange names.",
			Handler: func(ctx context.Context, args command.Values) error {
				fmt.Fprintf(a.out, "Exchange names: %s\n", strings.Join(a.registry.Names(), ", "))
				return nil
			},
		},
		command.Spec{
			Method:      "markets",
			Description: "Show the list of markets, filterable by exchange and market name.",
			Raw:         true,
			Handler:     a.crossExchangeMarkets,
		},
	)
}

// listFlag collects repeatable, comma-separable flag values.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*f = append(*f, part)
		}
	}
	return nil
}

// crossExchangeMarkets fetches the markets of the selected exchanges and
// renders the matches in one table.
func (a *App) crossExchangeMarkets(ctx context.Context, args command.Values) error {
	var exchangeNames, marketFilters listFlag
	flags := flag.NewFlagSet("markets", flag.ContinueOnError)
	flags.SetOutput(a.out)
	flags.Var(&exchangeNames, "exchanges", "select exchanges (comma-separated, repeatable)")
	flags.Var(&marketFilters, "markets", "select markets (comma-separated, repeatable)")
	if err := flags.Parse(args.Args()); err != nil {
		return &exchange.ArgumentError{Message: err.Error()}
	}

	names := []string(exchangeNames)
	if len(names) == 0 {
		names = a.registry.Names()
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "No exchanges found.")
		return nil
	}

	var rows []map[string]interface{}
	for _, name := range names {
		creds := a.cfg.Credentials(name)
		api, err := a.registry.API(name, exchange.Credentials{
			APIKey:    creds.APIKey,
			APISecret: creds.APISecret,
		})
		if err != nil {
			return err
		}
		markets, err := api.Markets(ctx)
		if err != nil {
			return err
		}
		a.archiveMarkets(ctx, name, markets)
		for _, m := range markets {
			if len(marketFilters) > 0 && !matchesAny(m.Market, marketFilters) {
				continue
			}
			rows = append(rows, map[string]interface{}{
				"exchange": m.Exchange,
				"market":   m.Market,
			})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No markets found.")
		return nil
	}
	fmt.Fprint(a.out, Table(rows, map[string]Column{
		"exchange": {Title: "Exchange", Order: "1"},
		"market":   {Title: "Market", Order: "2"},
	}))
	return nil
}

func matchesAny(market string, filters []string) bool {
	for _, filter := range filters {
		if strings.Contains(market, strings.ToUpper(filter)) {
			return true
		}
	}
	return false
}

// exitCode maps an invocation error onto the process exit code and prints
// the user-facing message.
func (a *App) exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var argErr *exchange.ArgumentError
	if errors.As(err, &argErr) {
		fmt.Fprintln(a.out, argErr.Error())
		return ExitUsage
	}

	var notSupported *exchange.NotSupportedError
	if errors.As(err, &notSupported) {
		fmt.Fprintf(a.out, "%s does not support %s yet.\n", notSupported.Exchange, notSupported.Capability)
		return ExitError
	}

	fmt.Fprintln(a.out, err.Error())
	a.log.WithError(err).Error("command failed")
	return ExitError
}

// archiveMarkets stores a market snapshot when archiving is enabled. The
// command result never depends on it, so failures only warn.
func (a *App) archiveMarkets(ctx context.Context, exchangeName string, markets []models.Market) {
	if a.archiver == nil {
		return
	}
	if err := a.archiver.StoreMarkets(ctx, exchangeName, markets); err != nil {
		a.log.WithError(err).WithFields(logger.Fields{"exchange": exchangeName}).
			Warn("market snapshot archive failed")
	}
}

// archiveOrderbook stores an order book snapshot when archiving is enabled.
func (a *App) archiveOrderbook(ctx context.Context, exchangeName, market string, book *models.OrderBook) {
	if a.archiver == nil {
		return
	}
	if err := a.archiver.StoreOrderbook(ctx, exchangeName, market, book); err != nil {
		a.log.WithError(err).WithFields(logger.Fields{
			"exchange": exchangeName,
			"market":   market,
		}).Warn("order book archive failed")
	}
}

// archiveCandlesticks stores a candlestick batch when archiving is enabled.
func (a *App) archiveCandlesticks(ctx context.Context, exchangeName, market, interval string, candles []models.Candlestick) {
	if a.archiver == nil {
		return
	}
	if err := a.archiver.StoreCandlesticks(ctx, exchangeName, market, interval, candles); err != nil {
		a.log.WithError(err).WithFields(logger.Fields{
			"exchange": exchangeName,
			"market":   market,
			"interval": interval,
		}).Warn("candlestick archive failed")
	}
}

func (a *App) printRootUsage() {
	fmt.Fprint(a.out, `usage: tradeflow COMMAND [--help]

Commands:
  exchange list                     show the registered exchange names
  exchange markets                  show markets across exchanges
  exchange NAME COMMAND [ARGS...]   run a command against one exchange
`)
}

func (a *App) printExchangeUsage() {
	fmt.Fprintln(a.out, "Exchange commands:")
	for _, spec := range a.exchangeLevelCommands().Specs() {
		fmt.Fprintf(a.out, "  tradeflow exchange %-10s %s\n", spec.Usage(), spec.Description)
	}
	fmt.Fprintf(a.out, "  tradeflow exchange NAME COMMAND [ARGS...]\n\nExchanges: %s\n",
		strings.Join(a.registry.Names(), ", "))
}

func (a *App) printBackendUsage(name string, commands *command.Set) {
	fmt.Fprintf(a.out, "%s commands:\n", name)
	for _, spec := range commands.Specs() {
		fmt.Fprintf(a.out, "  tradeflow exchange %s %s\n      %s\n", name, spec.Usage(), spec.Description)
	}
}
