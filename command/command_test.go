package command

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tradeflow/exchange"
)

func TestDeriveName(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"order_history", "order-history"},
		{"markets", "markets"},
		{"Ask_When_Less_Than", "ask-when-less-than"},
	}
	for _, tt := range tests {
		if got := DeriveName(tt.method); got != tt.want {
			t.Errorf("DeriveName(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestCanonicalAndMethodName(t *testing.T) {
	if Canonical("Order_History") != "order-history" {
		t.Errorf("Canonical = %q", Canonical("Order_History"))
	}
	if MethodName("order-history") != "order_history" {
		t.Errorf("MethodName = %q", MethodName("order-history"))
	}
}

func TestInvokeAcceptsBothNameForms(t *testing.T) {
	var calls int
	set := MustNewSet(nil, Spec{
		Method:  "order_history",
		Handler: func(ctx context.Context, args Values) error { calls++; return nil },
	})

	for _, name := range []string{"order-history", "order_history", "Order-History"} {
		if err := set.Invoke(context.Background(), name, nil); err != nil {
			t.Fatalf("Invoke(%q): %v", name, err)
		}
	}
	if calls != 3 {
		t.Errorf("handler called %d times, want 3", calls)
	}
}

func TestUnknownCommandIsArgumentError(t *testing.T) {
	set := MustNewSet(nil)
	err := set.Invoke(context.Background(), "nope", nil)
	var argErr *exchange.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestMissingHandlerIsBindingError(t *testing.T) {
	set := MustNewSet(nil, Spec{Method: "orphaned"})
	err := set.Invoke(context.Background(), "orphaned", nil)
	var bindErr *exchange.BindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected BindingError, got %v", err)
	}
	if bindErr.Command != "orphaned" {
		t.Errorf("Command = %q", bindErr.Command)
	}
}

func TestDuplicateNamesFailAtConstruction(t *testing.T) {
	_, err := NewSet(nil,
		Spec{Method: "order_history"},
		Spec{Method: "Order_History"},
	)
	var cfgErr *exchange.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestInvalidNamesFailAtConstruction(t *testing.T) {
	for _, method := range []string{"ab", "", "Not Valid!"} {
		if _, err := NewSet(nil, Spec{Method: method}); err == nil {
			t.Errorf("expected an error for method %q", method)
		}
	}
}

func TestParentChainLookupAndOverride(t *testing.T) {
	var base, override int
	parent := MustNewSet(nil,
		Spec{Method: "markets", Handler: func(ctx context.Context, args Values) error { base++; return nil }},
		Spec{Method: "price", Handler: func(ctx context.Context, args Values) error { base++; return nil }},
	)
	child := MustNewSet(parent,
		Spec{Method: "markets", Handler: func(ctx context.Context, args Values) error { override++; return nil }},
	)

	ctx := context.Background()
	if err := child.Invoke(ctx, "markets", nil); err != nil {
		t.Fatal(err)
	}
	if err := child.Invoke(ctx, "price", nil); err != nil {
		t.Fatal(err)
	}
	if override != 1 || base != 1 {
		t.Errorf("override called %d (want 1), base called %d (want 1)", override, base)
	}

	// Names lists own commands first, inherited non-overridden ones after.
	want := []string{"markets", "price"}
	if got := child.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestBind(t *testing.T) {
	spec := Spec{
		Method: "ask",
		Args: []Arg{
			{Name: "market", Type: TypeUpper, Required: true},
			{Name: "quantity", Type: TypeFloat, Required: true},
			{Name: "rate", Type: TypeFloat, Required: true},
			{Name: "note", Type: TypeString},
		},
	}

	values, err := spec.bind([]string{"usdt-btc", "0.5", "50000"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if values.String("market") != "USDT-BTC" {
		t.Errorf("market = %q, want USDT-BTC", values.String("market"))
	}
	if values.Float("quantity") != 0.5 || values.Float("rate") != 50000 {
		t.Errorf("quantity/rate = %v/%v", values.Float("quantity"), values.Float("rate"))
	}
	if values.Has("note") {
		t.Error("optional trailing argument should be absent")
	}
}

func TestBindErrors(t *testing.T) {
	spec := Spec{
		Method: "ask",
		Args: []Arg{
			{Name: "market", Type: TypeUpper, Required: true},
			{Name: "quantity", Type: TypeFloat, Required: true},
		},
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing required", []string{"usdt-btc"}},
		{"bad float", []string{"usdt-btc", "lots"}},
		{"too many", []string{"usdt-btc", "1", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := spec.bind(tt.args)
			var argErr *exchange.ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("expected ArgumentError, got %v", err)
			}
		})
	}
}

func TestBindInterval(t *testing.T) {
	spec := Spec{
		Method: "candlesticks",
		Args: []Arg{
			{Name: "market", Type: TypeUpper, Required: true},
			{Name: "interval", Type: TypeInterval, Required: true},
		},
	}

	values, err := spec.bind([]string{"usdt-btc", "HOUR"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if values.String("interval") != "hour" {
		t.Errorf("interval = %q, want hour", values.String("interval"))
	}

	if _, err := spec.bind([]string{"usdt-btc", "week"}); err == nil {
		t.Error("expected an error for an unknown interval")
	}
}

func TestUsage(t *testing.T) {
	spec := Spec{
		Method: "ask",
		Args: []Arg{
			{Name: "market", Type: TypeUpper, Required: true},
			{Name: "quantity", Type: TypeFloat, Required: true},
			{Name: "note", Type: TypeString},
		},
	}
	want := "ask MARKET QUANTITY [NOTE]"
	if got := spec.Usage(); got != want {
		t.Errorf("Usage() = %q, want %q", got, want)
	}
}

func TestExplicitNameWinsOverDerivation(t *testing.T) {
	set := MustNewSet(nil, Spec{
		Method:  "order_history",
		Name:    "history",
		Handler: func(ctx context.Context, args Values) error { return nil },
	})
	if _, ok := set.Resolve("history"); !ok {
		t.Error("explicit name should resolve")
	}
	if _, ok := set.Resolve("order-history"); ok {
		t.Error("derived name should not resolve when an explicit name is set")
	}
}
