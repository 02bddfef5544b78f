package types

import "strings"

// Currency is a settlement currency accepted by the broker.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

// MarketSegment is a market listing the broker groups instruments under.
type MarketSegment string

const (
	Stocks      MarketSegment = "STOCKS"
	Cedears     MarketSegment = "CEDEARS"
	BondsCorp   MarketSegment = "BONDS_CORP"
	BondsPublic MarketSegment = "BONDS_PUBLIC"
	Letters     MarketSegment = "LETTERS"
	Caucion     MarketSegment = "CAUCION"
	FCI         MarketSegment = "FCI"
)

// Segments lists every known market segment.
var Segments = []MarketSegment{Stocks, Cedears, BondsCorp, BondsPublic, Letters, Caucion, FCI}

// Operation is the side of an order.
type Operation string

const (
	Buy  Operation = "BUY"
	Sell Operation = "SELL"
)

// Credentials holds the broker login and the mailbox that receives 2FA codes.
type Credentials struct {
	PrincipalID    string `json:"principalId" yaml:"principalId"`
	Secret         string `json:"-" yaml:"-"`
	MailboxAddress string `json:"mailboxAddress" yaml:"mailboxAddress"`
	MailboxSecret  string `json:"-" yaml:"-"`
}

// OrderRequest describes an order to place through the trade panel.
type OrderRequest struct {
	Ticker    string        `json:"ticker"`
	Operation Operation     `json:"operation"`
	Amount    float64       `json:"amount"`
	Limit     *float64      `json:"limit,omitempty"`
	Segment   MarketSegment `json:"segment,omitempty"`
}

// IsLimit reports whether the order carries a limit price.
func (r OrderRequest) IsLimit() bool {
	return r.Limit != nil
}

// CancelRequest identifies a pending order by its displayed amount and quantity.
type CancelRequest struct {
	Amount   float64 `json:"amount" form:"amount"`
	Quantity float64 `json:"quantity" form:"quantity"`
}

// Outcome is the result of a best-effort operation. Failed outcomes name
// the step that stopped the sequence.
type Outcome struct {
	Success bool   `json:"success"`
	Step    string `json:"step,omitempty"`
	Err     error  `json:"-"`
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome {
	return Outcome{Success: true}
}

// Failed returns an outcome that stopped at step.
func Failed(step string, err error) Outcome {
	return Outcome{Step: step, Err: err}
}

func (o Outcome) String() string {
	if o.Success {
		return "ok"
	}
	var b strings.Builder
	b.WriteString("failed at ")
	b.WriteString(o.Step)
	if o.Err != nil {
		b.WriteString(": ")
		b.WriteString(o.Err.Error())
	}
	return b.String()
}
