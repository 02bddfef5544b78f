package market

import "fmt"

// MEPQuote is the MEP dollar quote for one trading session.
type MEPQuote struct {
	Ticker         string `json:"ticker"`
	Ask            any    `json:"ask"`
	Bid            any    `json:"bid"`
	SettlementBuy  any    `json:"settlement_buy"`
	SettlementSell any    `json:"settlement_sell"`
}

// MEPPrices groups the quotes of the three sessions.
type MEPPrices struct {
	Open      MEPQuote `json:"open"`
	Close     MEPQuote `json:"close"`
	Overnight MEPQuote `json:"overnight"`
}

// ProcessMEPData reshapes the mep-prices payload. Every session and every
// key must be present; values are passed through as sent.
func ProcessMEPData(data any) (*MEPPrices, error) {
	root, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("mep prices: expected object, got %T", data)
	}

	var out MEPPrices
	sessions := []struct {
		key string
		dst *MEPQuote
	}{
		{"open", &out.Open},
		{"close", &out.Close},
		{"overnight", &out.Overnight},
	}
	for _, s := range sessions {
		raw, ok := root[s.key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("mep prices: missing %s session", s.key)
		}
		q, err := quote(raw)
		if err != nil {
			return nil, fmt.Errorf("mep prices: %s: %w", s.key, err)
		}
		*s.dst = q
	}
	return &out, nil
}

func quote(raw map[string]any) (MEPQuote, error) {
	for _, k := range []string{"short_ticker", "ask", "bid", "settlementForBuy", "settlementForSell"} {
		if _, ok := raw[k]; !ok {
			return MEPQuote{}, fmt.Errorf("missing %s", k)
		}
	}
	ticker, _ := raw["short_ticker"].(string)
	return MEPQuote{
		Ticker:         ticker,
		Ask:            raw["ask"],
		Bid:            raw["bid"],
		SettlementBuy:  raw["settlementForBuy"],
		SettlementSell: raw["settlementForSell"],
	}, nil
}
