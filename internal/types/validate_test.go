package types

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateOrderParams(t *testing.T) {
	cases := []struct {
		ticker, op string
		wantOp     Operation
		wantTicker string
	}{
		{"AAPL", "buy", Buy, "AAPL"},
		{" ggal ", "Sell", Sell, "GGAL"},
	}
	for _, tc := range cases {
		op, ticker, err := ValidateOrderParams(tc.ticker, tc.op, 1000, nil)
		if err != nil {
			t.Errorf("ValidateOrderParams(%q, %q) error = %v", tc.ticker, tc.op, err)
			continue
		}
		if op != tc.wantOp || ticker != tc.wantTicker {
			t.Errorf("ValidateOrderParams(%q, %q) = %s %s, want %s %s", tc.ticker, tc.op, op, ticker, tc.wantOp, tc.wantTicker)
		}
	}
}

func TestValidateOrderParamsRejects(t *testing.T) {
	zero := 0.0
	neg := -3.5
	cases := []struct {
		name   string
		ticker string
		op     string
		amount float64
		limit  *float64
	}{
		{"negative amount", "AAPL", "BUY", -100, nil},
		{"zero amount", "AAPL", "BUY", 0, nil},
		{"nan amount", "AAPL", "BUY", math.NaN(), nil},
		{"inf amount", "AAPL", "BUY", math.Inf(1), nil},
		{"zero limit", "AAPL", "BUY", 100, &zero},
		{"negative limit", "AAPL", "SELL", 100, &neg},
		{"empty ticker", "  ", "BUY", 100, nil},
		{"unknown operation", "AAPL", "HOLD", 100, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateOrderParams(tc.ticker, tc.op, tc.amount, tc.limit)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestValidateOrderDefaultsSegment(t *testing.T) {
	r, err := ValidateOrder(OrderRequest{Ticker: "ypfd", Operation: "buy", Amount: 5})
	if err != nil {
		t.Fatalf("ValidateOrder() error = %v", err)
	}
	if r.Segment != Stocks || r.Ticker != "YPFD" {
		t.Errorf("ValidateOrder() = %s %s, want STOCKS YPFD", r.Segment, r.Ticker)
	}

	r, err = ValidateOrder(OrderRequest{Ticker: "SPY", Operation: "BUY", Amount: 5, Segment: "cedears"})
	if err != nil {
		t.Fatalf("ValidateOrder(cedears) error = %v", err)
	}
	if r.Segment != Cedears {
		t.Errorf("Segment = %s, want %s", r.Segment, Cedears)
	}

	if _, err := ValidateOrder(OrderRequest{Ticker: "SPY", Operation: "BUY", Amount: 5, Segment: "crypto"}); err == nil {
		t.Error("expected error for unknown segment")
	}
}

func TestIsLimit(t *testing.T) {
	price := 150.0
	if (OrderRequest{}).IsLimit() {
		t.Error("market order reports IsLimit")
	}
	if !(OrderRequest{Limit: &price}).IsLimit() {
		t.Error("limit order does not report IsLimit")
	}
}

func TestValidateCurrency(t *testing.T) {
	for in, want := range map[string]Currency{"ars": ARS, "USD": USD} {
		got, err := ValidateCurrency(in)
		if err != nil || got != want {
			t.Errorf("ValidateCurrency(%q) = %s, %v, want %s", in, got, err, want)
		}
	}
	for _, in := range []string{"eur", ""} {
		if _, err := ValidateCurrency(in); err == nil {
			t.Errorf("ValidateCurrency(%q) accepted", in)
		}
	}
}

func TestValidateMarketType(t *testing.T) {
	for in, want := range map[string]MarketSegment{"cedears": Cedears, "Bonds_Public": BondsPublic} {
		got, err := ValidateMarketType(in)
		if err != nil || got != want {
			t.Errorf("ValidateMarketType(%q) = %s, %v, want %s", in, got, err, want)
		}
	}
	if _, err := ValidateMarketType("futures"); err == nil {
		t.Error("ValidateMarketType(futures) accepted")
	}
}

func TestValidateCredentials(t *testing.T) {
	ok := Credentials{PrincipalID: "u@example.com", Secret: "pw", MailboxAddress: "m@example.com", MailboxSecret: "app"}
	if err := ValidateCredentials(ok); err != nil {
		t.Fatalf("ValidateCredentials() error = %v", err)
	}

	blank := ok
	blank.MailboxSecret = "   "
	err := ValidateCredentials(blank)
	if err == nil || !strings.Contains(err.Error(), "mailbox secret") {
		t.Errorf("error = %v, want it to name the mailbox secret", err)
	}
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]float64{"1000,50": 1000.5, "42": 42} {
		got, err := ParseAmount(in)
		if err != nil || got != want {
			t.Errorf("ParseAmount(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"abc", "-1"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) accepted", in)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if got := Succeeded().String(); got != "ok" {
		t.Errorf("Succeeded() = %q", got)
	}
	if got := Failed("click cancel", errors.New("boom")).String(); got != "failed at click cancel: boom" {
		t.Errorf("Failed() = %q", got)
	}
}
