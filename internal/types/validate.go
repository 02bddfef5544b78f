package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError reports an input that failed a shape check.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// ValidateCredentials checks that every credential field is non-empty
// after trimming.
func ValidateCredentials(c Credentials) error {
	fields := []struct {
		name  string
		value string
	}{
		{"principal id", c.PrincipalID},
		{"secret", c.Secret},
		{"mailbox address", c.MailboxAddress},
		{"mailbox secret", c.MailboxSecret},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Msg: "must not be empty"}
		}
	}
	return nil
}

// ValidateOrderParams normalizes an order's operation and ticker and checks
// the amount and optional limit price.
func ValidateOrderParams(ticker, operation string, amount float64, limit *float64) (Operation, string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", "", &ValidationError{Field: "ticker", Msg: "must not be empty"}
	}

	op := Operation(strings.ToUpper(strings.TrimSpace(operation)))
	if op != Buy && op != Sell {
		return "", "", &ValidationError{Field: "operation", Value: operation, Msg: "must be BUY or SELL"}
	}

	if !positive(amount) {
		return "", "", &ValidationError{Field: "amount", Value: formatFloat(amount), Msg: "must be a positive number"}
	}
	if limit != nil && !positive(*limit) {
		return "", "", &ValidationError{Field: "limit", Value: formatFloat(*limit), Msg: "must be a positive number"}
	}
	return op, t, nil
}

// ValidateOrder checks r and returns a normalized copy with the segment
// defaulted to STOCKS.
func ValidateOrder(r OrderRequest) (OrderRequest, error) {
	op, ticker, err := ValidateOrderParams(r.Ticker, string(r.Operation), r.Amount, r.Limit)
	if err != nil {
		return r, err
	}
	r.Operation = op
	r.Ticker = ticker
	if r.Segment == "" {
		r.Segment = Stocks
	} else {
		seg, err := ValidateMarketType(string(r.Segment))
		if err != nil {
			return r, err
		}
		r.Segment = seg
	}
	return r, nil
}

// ValidateCurrency accepts ARS or USD in any case.
func ValidateCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case ARS, USD:
		return c, nil
	}
	return "", &ValidationError{Field: "currency", Value: s, Msg: "must be ARS or USD"}
}

// ValidateMarketType accepts any known market segment in any case.
func ValidateMarketType(s string) (MarketSegment, error) {
	seg := MarketSegment(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Segments {
		if seg == known {
			return seg, nil
		}
	}
	return "", &ValidationError{Field: "market", Value: s, Msg: "unknown segment"}
}

// ParseAmount parses a decimal amount typed by a user. Both "1000.5" and
// "1000,5" are accepted.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Value: s, Msg: "not a number"}
	}
	if !positive(v) {
		return 0, &ValidationError{Field: "amount", Value: s, Msg: "must be a positive number"}
	}
	return v, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
