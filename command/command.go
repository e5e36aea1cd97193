// Package command implements the declarative command registry. A command
// surface declares its operations as a plain table of Specs; the registry
// derives and validates names at construction time and resolves-and-invokes
// them by name at run time. Lookup walks the surface's parent chain so a
// specialized surface can override a base command by re-declaring its name.
package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tradeflow/exchange"
	"tradeflow/models"
)

// Argument value types understood by the binder.
const (
	TypeString = "string"
	// TypeUpper uppercases the token before binding; used for market
	// identifiers and currency codes.
	TypeUpper = "upper"
	TypeFloat = "float"
	// TypeInterval restricts the token to the candlestick intervals.
	TypeInterval = "interval"
)

// Arg describes one positional argument of a command. Required arguments come
// first; optional ones may be omitted from the tail.
type Arg struct {
	Name     string
	Type     string
	Required bool
	Usage    string
}

// Values holds the bound arguments of one invocation.
type Values map[string]interface{}

// String returns the named string argument, or "" when absent.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Float returns the named float argument, or 0 when absent.
func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

// Has reports whether the named argument was supplied.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Args returns the raw token list of a Raw command invocation.
func (v Values) Args() []string {
	args, _ := v["args"].([]string)
	return args
}

// Handler is the callable behavior of a command.
type Handler func(ctx context.Context, args Values) error

// Spec declares one command: the operation identifier it is derived from, an
// optional explicit name, its argument table and its handler binding.
type Spec struct {
	// Method is the operation identifier, e.g. "order_history". When Name is
	// empty the command name is derived from it.
	Method      string
	Name        string
	Description string
	Args        []Arg
	// Raw skips positional binding and hands the token list to the handler
	// unchanged, for commands that parse their own flags.
	Raw     bool
	Handler Handler
}

var namePattern = regexp.MustCompile(`^[a-z0-9-]{3,}$`)

// DeriveName maps an operation identifier to its command name: lowercased,
// underscores become hyphens. "order_history" registers as "order-history".
func DeriveName(method string) string {
	return strings.ReplaceAll(strings.ToLower(method), "_", "-")
}

// Canonical normalizes a lookup token to the hyphenated lowercase form, so
// "Order-History" and "order_history" resolve to the same command.
func Canonical(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// MethodName maps a command name back to its operation identifier.
func MethodName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

func (s Spec) commandName() string {
	if s.Name != "" {
		return s.Name
	}
	return DeriveName(s.Method)
}

// bind turns raw tokens into typed Values per the Spec's argument table.
// Binding failures are user error, never a registry bug.
func (s Spec) bind(args []string) (Values, error) {
	if s.Raw {
		return Values{"args": args}, nil
	}
	values := make(Values, len(s.Args))
	for i, arg := range s.Args {
		if i >= len(args) {
			if arg.Required {
				return nil, &exchange.ArgumentError{
					Message: fmt.Sprintf("command %q: missing argument %s", s.commandName(), strings.ToUpper(arg.Name)),
				}
			}
			continue
		}
		token := args[i]
		switch arg.Type {
		case TypeFloat:
			f, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, &exchange.ArgumentError{
					Message: fmt.Sprintf("command %q: argument %s must be a number, got %q", s.commandName(), strings.ToUpper(arg.Name), token),
				}
			}
			values[arg.Name] = f
		case TypeUpper:
			values[arg.Name] = strings.ToUpper(token)
		case TypeInterval:
			interval := strings.ToLower(token)
			if !models.ValidInterval(interval) {
				return nil, &exchange.ArgumentError{
					Message: fmt.Sprintf("command %q: interval must be one of %s, got %q", s.commandName(), strings.Join(models.Intervals, "|"), token),
				}
			}
			values[arg.Name] = interval
		default:
			values[arg.Name] = token
		}
	}
	if len(args) > len(s.Args) {
		return nil, &exchange.ArgumentError{
			Message: fmt.Sprintf("command %q: too many arguments", s.commandName()),
		}
	}
	return values, nil
}

// Usage renders a one-line synopsis of the command.
func (s Spec) Usage() string {
	parts := []string{s.commandName()}
	for _, arg := range s.Args {
		token := strings.ToUpper(arg.Name)
		if !arg.Required {
			token = "[" + token + "]"
		}
		parts = append(parts, token)
	}
	return strings.Join(parts, " ")
}
