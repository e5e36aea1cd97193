package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"tradeflow/command"
	"tradeflow/exchange"
	"tradeflow/logger"
	"tradeflow/models"
)

// exchangeSurface is the command table of one exchange: every API capability
// as a subcommand, rendered as plain-text tables.
type exchangeSurface struct {
	api exchange.API
	out io.Writer
	app *App
	log *logger.Entry
}

func (a *App) exchangeCommands(api exchange.API) *command.Set {
	s := &exchangeSurface{
		api: api,
		out: a.out,
		app: a,
		log: a.log.WithFields(logger.Fields{"exchange": api.Name()}),
	}
	return command.MustNewSet(nil,
		command.Spec{
			Method:      "markets",
			Description: "Fetches all markets of this exchange.",
			Handler:     s.markets,
		},
		command.Spec{
			Method:      "market_url",
			Description: "Shows the web address of the given market.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
			},
			Handler: s.marketURL,
		},
		command.Spec{
			Method:      "candlesticks",
			Description: "Fetches the candlesticks for the given market and interval.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "interval", Type: command.TypeInterval, Required: true},
			},
			Handler: s.candlesticks,
		},
		command.Spec{
			Method:      "order",
			Description: "Fetches an order by market and order id.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "order_id", Type: command.TypeString, Required: true},
			},
			Handler: s.order,
		},
		command.Spec{
			Method:      "order_history",
			Description: "Fetches closed orders for the given market.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
			},
			Handler: s.orderHistory,
		},
		command.Spec{
			Method:      "open_orders",
			Description: "Fetches all open orders for the given market.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
			},
			Handler: s.openOrders,
		},
		command.Spec{
			Method:      "orderbook",
			Description: "Fetches the current state of the order book for the given market.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
			},
			Handler: s.orderbook,
		},
		command.Spec{
			Method:      "price",
			Description: "Fetches the current price for the given market.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
			},
			Handler: s.price,
		},
		command.Spec{
			Method:      "wallet",
			Description: "Fetches the wallet; all non-zero balances when no currency is given.",
			Args: []command.Arg{
				{Name: "currency", Type: command.TypeUpper},
			},
			Handler: s.wallet,
		},
		command.Spec{
			Method:      "ask",
			Description: "Place a sell order.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "quantity", Type: command.TypeFloat, Required: true},
				{Name: "rate", Type: command.TypeFloat, Required: true},
			},
			Handler: s.ask,
		},
		command.Spec{
			Method:      "ask_when_less_than",
			Description: "Place a sell order triggered when the price drops below the target rate.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "quantity", Type: command.TypeFloat, Required: true},
				{Name: "rate", Type: command.TypeFloat, Required: true},
				{Name: "target_rate", Type: command.TypeFloat, Required: true},
			},
			Handler: s.askWhenLessThan,
		},
		command.Spec{
			Method:      "bid",
			Description: "Place a buy order.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "quantity", Type: command.TypeFloat, Required: true},
				{Name: "rate", Type: command.TypeFloat, Required: true},
			},
			Handler: s.bid,
		},
		command.Spec{
			Method:      "bid_when_greater_than",
			Description: "Place a buy order triggered when the price rises above the target rate.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "quantity", Type: command.TypeFloat, Required: true},
				{Name: "rate", Type: command.TypeFloat, Required: true},
				{Name: "target_rate", Type: command.TypeFloat, Required: true},
			},
			Handler: s.bidWhenGreaterThan,
		},
		command.Spec{
			Method:      "cancel_order",
			Description: "Cancels an order by market and order id.",
			Args: []command.Arg{
				{Name: "market", Type: command.TypeUpper, Required: true},
				{Name: "order_id", Type: command.TypeString, Required: true},
			},
			Handler: s.cancelOrder,
		},
	)
}

func marketRows(markets []models.Market) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, map[string]interface{}{
			"exchange":           m.Exchange,
			"market":             m.Market,
			"minimum_trade_size": m.MinimumTradeSize,
		})
	}
	return rows
}

var marketColumns = map[string]Column{
	"exchange":           {Title: "Exchange", Order: "1"},
	"market":             {Title: "Market", Order: "2"},
	"minimum_trade_size": {Title: "Min. trade size", Order: "3", AlignRight: true, Format: "%.8f"},
}

func (s *exchangeSurface) markets(ctx context.Context, args command.Values) error {
	markets, err := s.api.Markets(ctx)
	if err != nil {
		return err
	}
	s.app.archiveMarkets(ctx, s.api.Name(), markets)
	fmt.Fprint(s.out, Table(marketRows(markets), marketColumns))
	return nil
}

func (s *exchangeSurface) marketURL(ctx context.Context, args command.Values) error {
	fmt.Fprintln(s.out, s.api.MarketURL(args.String("market")))
	return nil
}

func (s *exchangeSurface) candlesticks(ctx context.Context, args command.Values) error {
	market := args.String("market")
	interval := args.String("interval")
	candles, err := s.api.Candlesticks(ctx, market, interval)
	if err != nil {
		return err
	}
	s.app.archiveCandlesticks(ctx, s.api.Name(), market, interval, candles)

	rows := make([]map[string]interface{}, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, map[string]interface{}{
			"time":   c.Time.Format(time.RFC3339),
			"open":   c.Open,
			"high":   c.High,
			"low":    c.Low,
			"close":  c.Close,
			"volume": c.Volume,
		})
	}
	fmt.Fprint(s.out, Table(rows, map[string]Column{
		"time":   {Title: "Time", Order: "1"},
		"open":   {Title: "Open", Order: "2", AlignRight: true, Format: "%.8f"},
		"high":   {Title: "High", Order: "3", AlignRight: true, Format: "%.8f"},
		"low":    {Title: "Low", Order: "4", AlignRight: true, Format: "%.8f"},
		"close":  {Title: "Close", Order: "5", AlignRight: true, Format: "%.8f"},
		"volume": {Title: "Volume", Order: "6", AlignRight: true, Format: "%.8f"},
	}))
	return nil
}

func orderRows(orders ...models.Order) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, map[string]interface{}{
			"order_id":  o.OrderID,
			"market":    o.Market,
			"side":      o.BuyOrSell,
			"type":      o.OrderType,
			"quantity":  o.Quantity,
			"remaining": o.QuantityRemaining,
			"rate":      o.Rate,
			"price":     o.Price,
			"open":      o.IsOpen,
			"filled":    o.IsFilled,
			"part_fill": o.IsPartiallyFilled,
		})
	}
	return rows
}

var orderColumns = map[string]Column{
	"order_id":  {Title: "Order id", Order: "01"},
	"market":    {Title: "Market", Order: "02"},
	"side":      {Title: "Side", Order: "03"},
	"type":      {Title: "Type", Order: "04"},
	"quantity":  {Title: "Quantity", Order: "05", AlignRight: true, Format: "%.8f"},
	"remaining": {Title: "Remaining", Order: "06", AlignRight: true, Format: "%.8f"},
	"rate":      {Title: "Rate", Order: "07", AlignRight: true, Format: "%.8f"},
	"price":     {Title: "Price", Order: "08", AlignRight: true, Format: "%.8f"},
	"open":      {Title: "Open", Order: "09"},
	"filled":    {Title: "Filled", Order: "10"},
	"part_fill": {Title: "Partial", Order: "11"},
}

func (s *exchangeSurface) order(ctx context.Context, args command.Values) error {
	order, err := s.api.Order(ctx, args.String("market"), args.String("order_id"))
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, Table(orderRows(*order), orderColumns))
	return nil
}

func (s *exchangeSurface) orderHistory(ctx context.Context, args command.Values) error {
	orders, err := s.api.OrderHistory(ctx, args.String("market"))
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, Table(orderRows(orders...), orderColumns))
	return nil
}

func (s *exchangeSurface) openOrders(ctx context.Context, args command.Values) error {
	orders, err := s.api.OpenOrders(ctx, args.String("market"))
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, Table(orderRows(orders...), orderColumns))
	return nil
}

func (s *exchangeSurface) orderbook(ctx context.Context, args command.Values) error {
	market := args.String("market")
	book, err := s.api.Orderbook(ctx, market)
	if err != nil {
		return err
	}
	s.app.archiveOrderbook(ctx, s.api.Name(), market, book)

	// Render side by side: best levels first.
	depth := len(book.Buy)
	if len(book.Sell) > depth {
		depth = len(book.Sell)
	}
	rows := make([]map[string]interface{}, 0, depth)
	for i := 0; i < depth; i++ {
		row := map[string]interface{}{}
		if i < len(book.Buy) {
			row["bid_quantity"] = book.Buy[i].Quantity
			row["bid_rate"] = book.Buy[i].Rate
		}
		if i < len(book.Sell) {
			row["ask_rate"] = book.Sell[i].Rate
			row["ask_quantity"] = book.Sell[i].Quantity
		}
		rows = append(rows, row)
	}
	fmt.Fprint(s.out, Table(rows, map[string]Column{
		"bid_quantity": {Title: "Bid quantity", Order: "1", AlignRight: true, Format: "%.8f"},
		"bid_rate":     {Title: "Bid", Order: "2", AlignRight: true, Format: "%.8f"},
		"ask_rate":     {Title: "Ask", Order: "3", AlignRight: true, Format: "%.8f"},
		"ask_quantity": {Title: "Ask quantity", Order: "4", AlignRight: true, Format: "%.8f"},
	}))
	return nil
}

func (s *exchangeSurface) price(ctx context.Context, args command.Values) error {
	price, err := s.api.Price(ctx, args.String("market"))
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, Table([]map[string]interface{}{{
		"time":        price.Time.Format(time.RFC3339),
		"highest_bid": price.HighestBid,
		"lowest_ask":  price.LowestAsk,
	}}, map[string]Column{
		"time":        {Title: "Time", Order: "1"},
		"highest_bid": {Title: "Highest bid", Order: "2", AlignRight: true, Format: "%.8f"},
		"lowest_ask":  {Title: "Lowest ask", Order: "3", AlignRight: true, Format: "%.8f"},
	}))
	return nil
}

func (s *exchangeSurface) wallet(ctx context.Context, args command.Values) error {
	entries, err := s.api.Wallet(ctx, args.String("currency"))
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]interface{}{
			"name":      e.Name,
			"balance":   e.Balance,
			"pending":   e.Pending,
			"available": e.Available,
		})
	}
	fmt.Fprint(s.out, Table(rows, map[string]Column{
		"name":      {Title: "Currency", Order: "1"},
		"balance":   {Title: "Balance", Order: "2", AlignRight: true, Format: "%.8f"},
		"pending":   {Title: "Pending", Order: "3", AlignRight: true, Format: "%.8f"},
		"available": {Title: "Available", Order: "4", AlignRight: true, Format: "%.8f"},
	}))
	return nil
}

func (s *exchangeSurface) placed(order *models.Order) {
	fmt.Fprint(s.out, Table(orderRows(*order), orderColumns))
}

func (s *exchangeSurface) ask(ctx context.Context, args command.Values) error {
	order, err := s.api.Ask(ctx, args.String("market"), args.Float("quantity"), args.Float("rate"))
	if err != nil {
		return err
	}
	s.placed(order)
	return nil
}

func (s *exchangeSurface) askWhenLessThan(ctx context.Context, args command.Values) error {
	order, err := s.api.AskWhenLessThan(ctx,
		args.String("market"), args.Float("quantity"), args.Float("rate"), args.Float("target_rate"))
	if err != nil {
		return err
	}
	s.placed(order)
	return nil
}

func (s *exchangeSurface) bid(ctx context.Context, args command.Values) error {
	order, err := s.api.Bid(ctx, args.String("market"), args.Float("quantity"), args.Float("rate"))
	if err != nil {
		return err
	}
	s.placed(order)
	return nil
}

func (s *exchangeSurface) bidWhenGreaterThan(ctx context.Context, args command.Values) error {
	order, err := s.api.BidWhenGreaterThan(ctx,
		args.String("market"), args.Float("quantity"), args.Float("rate"), args.Float("target_rate"))
	if err != nil {
		return err
	}
	s.placed(order)
	return nil
}

func (s *exchangeSurface) cancelOrder(ctx context.Context, args command.Values) error {
	orderID := args.String("order_id")
	if err := s.api.CancelOrder(ctx, args.String("market"), orderID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Order %s cancelled.\n", orderID)
	return nil
}
