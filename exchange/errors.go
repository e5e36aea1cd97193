package exchange

import (
	"fmt"
	"strings"
)

// ConfigurationError signals a bad command or exchange registration. It is a
// programming mistake, surfaces at startup and is always fatal.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// BindingError signals that a registered command resolved to a missing or
// non-callable handler. Like ConfigurationError it is a bug, not user error.
type BindingError struct {
	Command string
	Message string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding error for command %q: %s", e.Command, e.Message)
}

// ArgumentError signals bad user input to an operation. It aborts the current
// command but is not fatal to the process.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// NormalizationError signals a backend response that does not match the
// expected shape, usually API drift. The raw payload travels with the error so
// it can be logged for diagnosis.
type NormalizationError struct {
	Exchange string
	Message  string
	Payload  interface{}
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: can't normalize response: %s", e.Exchange, e.Message)
}

// ValidationError signals a structural invariant violation on a market,
// order book or wallet collection. The response is not salvageable.
type ValidationError struct {
	Collection  string
	Message     string
	MissingKeys []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Collection, e.Message)
	if len(e.MissingKeys) > 0 {
		msg += " (missing: " + strings.Join(e.MissingKeys, ", ") + ")"
	}
	return msg
}

// ExchangeError signals that the remote service rejected the request: rate
// limits, rejected orders, auth failures. It is shown to the user and causes a
// non-zero exit.
type ExchangeError struct {
	Exchange string
	Message  string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Exchange, e.Message)
}

// MinimumTradeSizeError signals an order placement below the market's minimum
// trade size. Raised before any network request is issued.
type MinimumTradeSizeError struct {
	MarketCoin       string
	Quantity         float64
	MinimumTradeSize float64
}

func (e *MinimumTradeSizeError) Error() string {
	return fmt.Sprintf("can't trade %.8f %s: minimum trade size is %.8f %s",
		e.Quantity, e.MarketCoin, e.MinimumTradeSize, e.MarketCoin)
}

// NotSupportedError signals that a backend has no implementation for a
// capability yet. Distinct from ExchangeError: nothing went wrong remotely,
// the backend just isn't ready.
type NotSupportedError struct {
	Exchange   string
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Exchange, e.Capability)
}
