package market

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/browser/browsertest"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/types"
)

var sel = config.DefaultSelectors()

type settleRecorder struct {
	waits []time.Duration
}

func (s *settleRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newWorkflow(d *browsertest.Driver) (*Workflow, *settleRecorder) {
	rec := &settleRecorder{}
	timeouts := config.DefaultTimeouts()
	timeouts.Fetch = 500 * time.Millisecond
	b := browser.NewBridge(d, browser.WithSleep(rec.sleep))
	return New(b, config.DefaultURLs(), sel, timeouts, nil), rec
}

func clicked(d *browsertest.Driver) []string {
	var out []string
	for _, c := range d.CallsOf("click") {
		out = append(out, c.Selector)
	}
	return out
}

// wantOrderStep fails unless err is an OrderError at step.
func wantOrderStep(t *testing.T, err error, step string) {
	t.Helper()
	if !errors.Is(err, ErrOrder) {
		t.Fatalf("error = %v, want ErrOrder", err)
	}
	var oerr *OrderError
	if !errors.As(err, &oerr) {
		t.Fatalf("error = %v, want *OrderError", err)
	}
	if oerr.Step != step {
		t.Errorf("Step = %q, want %q", oerr.Step, step)
	}
}

func TestCreateOrderMarketBuy(t *testing.T) {
	d := browsertest.New()
	w, rec := newWorkflow(d)

	err := w.CreateOrder(context.Background(), types.OrderRequest{Ticker: "ggal", Operation: "buy", Amount: 1000.5})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := d.CallsOf("navigate")[0].Selector; got != "https://app.cocos.capital/market/acciones" {
		t.Errorf("navigated to %q", got)
	}
	want := []string{
		sel.Render(config.ListItem, "GGAL"),
		sel.Get(config.OpExpandWindows),
		sel.Get(config.OpBuyButton),
		sel.Get(config.OpBuyAmountInput),
		sel.Get(config.OpReviewButton),
		sel.Get(config.OpConfirmButton),
	}
	if got := clicked(d); !reflect.DeepEqual(got, want) {
		t.Errorf("clicks = %v, want %v", got, want)
	}

	fills := d.CallsOf("fill")
	if len(fills) != 2 {
		t.Fatalf("fills = %v, want search and amount", fills)
	}
	if fills[0].Value != "GGAL" {
		t.Errorf("search = %q, want GGAL", fills[0].Value)
	}
	if fills[1].Selector != sel.Get(config.OpBuyAmountInput) || fills[1].Value != "1000,5" {
		t.Errorf("amount fill = %+v", fills[1])
	}

	if !reflect.DeepEqual(rec.waits, []time.Duration{4 * time.Second}) {
		t.Errorf("waits = %v, want only the confirm settle", rec.waits)
	}
	if typed := d.CallsOf("type"); len(typed) != 0 {
		t.Errorf("typed = %v, want none for a market order", typed)
	}
}

func TestCreateOrderLimitSell(t *testing.T) {
	d := browsertest.New()
	w, rec := newWorkflow(d)

	limit := 100.5
	err := w.CreateOrder(context.Background(), types.OrderRequest{
		Ticker: "SPY", Operation: "SELL", Amount: 10, Limit: &limit, Segment: types.Cedears,
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := d.CallsOf("navigate")[0].Selector; got != "https://app.cocos.capital/market/cedears" {
		t.Errorf("navigated to %q", got)
	}
	clicks := clicked(d)
	for _, s := range []config.Selector{config.OpMoreOptions, config.OpLimitButton, config.OpSellButton} {
		if !slices.Contains(clicks, sel.Get(s)) {
			t.Errorf("clicks = %v, missing selector %v", clicks, s)
		}
	}

	var typed string
	for _, c := range d.CallsOf("type") {
		if c.Selector != sel.Get(config.OpLimitInput) {
			t.Errorf("typed into %q, want limit input", c.Selector)
		}
		typed += c.Value
	}
	if typed != "100,5" {
		t.Errorf("typed %q, want 100,5", typed)
	}

	// limit settle, four keystroke pauses, confirm settle
	if len(rec.waits) != 6 {
		t.Fatalf("waits = %v, want 6", rec.waits)
	}
	if rec.waits[0] != 3*time.Second || rec.waits[1] != 100*time.Millisecond || rec.waits[5] != 4*time.Second {
		t.Errorf("waits = %v", rec.waits)
	}

	fills := d.CallsOf("fill")
	if got := fills[len(fills)-1].Value; got != "10" {
		t.Errorf("amount = %q, want 10", got)
	}
}

func TestCreateOrderConfirmsAfterCancellation(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)

	ctx, cancel := context.WithCancel(context.Background())
	d.OnCall(func(c browsertest.Call) {
		if c.Op == "click" && c.Selector == sel.Get(config.OpReviewButton) {
			cancel()
		}
	})

	err := w.CreateOrder(ctx, types.OrderRequest{Ticker: "AAPL", Operation: "BUY", Amount: 100})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("review click did not cancel the caller context")
	}
	clicks := clicked(d)
	if got := clicks[len(clicks)-1]; got != sel.Get(config.OpConfirmButton) {
		t.Errorf("last click = %q, want confirm", got)
	}
}

func TestCreateOrderFailsAtEveryStep(t *testing.T) {
	limit := 5.0
	req := types.OrderRequest{Ticker: "AAPL", Operation: "BUY", Amount: 100, Limit: &limit}
	cases := []struct {
		op, target, step string
	}{
		{"navigate", "https://app.cocos.capital/market/acciones", StepOpenPage},
		{"fill", sel.Get(config.CommonSearchInput), StepSelect},
		{"click", sel.Render(config.ListItem, "AAPL"), StepSelect},
		{"click", sel.Get(config.OpExpandWindows), StepExpand},
		{"click", sel.Get(config.OpBuyButton), StepOperation},
		{"click", sel.Get(config.OpLimitButton), StepLimit},
		{"type", sel.Get(config.OpLimitInput), StepLimit},
		{"fill", sel.Get(config.OpBuyAmountInput), StepAmount},
		{"click", sel.Get(config.OpReviewButton), StepConfirm},
		{"click", sel.Get(config.OpConfirmButton), StepConfirm},
	}
	for _, tc := range cases {
		t.Run(tc.op+" "+tc.target, func(t *testing.T) {
			d := browsertest.New().Fail(tc.op, tc.target, errors.New("boom"))
			w, _ := newWorkflow(d)

			wantOrderStep(t, w.CreateOrder(context.Background(), req), tc.step)
		})
	}
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)

	err := w.CreateOrder(context.Background(), types.OrderRequest{Ticker: "AAPL", Operation: "BUY", Amount: -1})
	wantOrderStep(t, err, StepValidate)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *types.ValidationError", err)
	}
	if calls := d.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestFormatAmount(t *testing.T) {
	for in, want := range map[float64]string{
		1000.5:  "1000,5",
		1000.55: "1000,55",
		10:      "10",
	} {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTickerInfo(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)
	item := sel.Render(config.ListItem, "TSLA")
	d.ReplyOn("click", item, browsertest.JSON(w.TickerEndpoint("TSLA")+"?segment=C", `{"ticker":"TSLA","price":200}`))

	data, err := w.TickerInfo(context.Background(), "TSLA", types.Cedears, "C")
	if err != nil {
		t.Fatalf("TickerInfo() error = %v", err)
	}
	if want := map[string]any{"ticker": "TSLA", "price": 200.0}; !reflect.DeepEqual(data, want) {
		t.Errorf("TickerInfo() = %v, want %v", data, want)
	}
	if n := len(d.CallsOf("navigate")); n != 1 {
		t.Errorf("navigated %d times, want 1", n)
	}
}

func TestTickerInfoIgnoresOtherSettlement(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)
	item := sel.Render(config.ListItem, "TSLA")
	d.ReplyOn("click", item, browsertest.JSON(w.TickerEndpoint("TSLA")+"?segment=24hs", `{"ticker":"TSLA"}`))

	_, err := w.TickerInfo(context.Background(), "TSLA", types.Cedears, "C")
	if r := browser.ReasonOf(err); r != browser.ReasonTimeout {
		t.Errorf("reason = %q, want %q", r, browser.ReasonTimeout)
	}
}

func TestTickerInfoUnknownSegmentDoesNotNavigate(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)

	data, err := w.TickerInfo(context.Background(), "AAPL", "CRYPTO", "")
	if data != nil || !errors.Is(err, browser.ErrNoData) {
		t.Errorf("TickerInfo() = %v, %v, want ErrNoData", data, err)
	}
	if calls := d.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestTickerInfoNavigationFailure(t *testing.T) {
	d := browsertest.New().Fail("navigate", "", errors.New("net::ERR"))
	w, _ := newWorkflow(d)

	data, err := w.TickerInfo(context.Background(), "AAPL", types.Stocks, "")
	if data != nil || !errors.Is(err, browser.ErrNoData) {
		t.Errorf("TickerInfo() = %v, %v, want ErrNoData", data, err)
	}
}

func TestEverySegmentHasPage(t *testing.T) {
	w, _ := newWorkflow(browsertest.New())
	for _, seg := range types.Segments {
		if url, ok := w.SegmentURL(seg); !ok || url == "" {
			t.Errorf("SegmentURL(%s) = %q, %v", seg, url, ok)
		}
	}
}

func TestOrdersScheduleAndMEP(t *testing.T) {
	urls := config.DefaultURLs()
	d := browsertest.New().
		ReplyOn("navigate", urls.Page(config.PageOrders), browsertest.JSON(urls.Endpoint(config.EndpointOrders), `[{"id":1}]`)).
		ReplyOn("navigate", urls.Page(config.PageMarketStocks), browsertest.JSON(urls.Endpoint(config.EndpointMarketsSchedule), `{"open":"11:00"}`)).
		ReplyOn("navigate", urls.Page(config.PageDashboard), browsertest.JSON(urls.Endpoint(config.EndpointMEPPrices), mepBody))
	w, _ := newWorkflow(d)
	ctx := context.Background()

	orders, err := w.Orders(ctx)
	if err != nil {
		t.Fatalf("Orders() error = %v", err)
	}
	if want := []any{map[string]any{"id": 1.0}}; !reflect.DeepEqual(orders, want) {
		t.Errorf("Orders() = %v, want %v", orders, want)
	}

	schedule, err := w.MarketSchedule(ctx)
	if err != nil {
		t.Fatalf("MarketSchedule() error = %v", err)
	}
	if want := map[string]any{"open": "11:00"}; !reflect.DeepEqual(schedule, want) {
		t.Errorf("MarketSchedule() = %v, want %v", schedule, want)
	}

	raw, err := w.MEPRate(ctx)
	if err != nil {
		t.Fatalf("MEPRate() error = %v", err)
	}
	if m, ok := raw.(map[string]any); !ok || m["overnight"] == nil {
		t.Errorf("MEPRate() = %v, want overnight quotes", raw)
	}

	prices, err := w.MEPPrices(ctx)
	if err != nil {
		t.Fatalf("MEPPrices() error = %v", err)
	}
	if prices.Open.Ticker != "AL30D" || prices.Overnight.SettlementSell != "CI" {
		t.Errorf("MEPPrices() = %+v", prices)
	}
}

func TestOrdersNoData(t *testing.T) {
	urls := config.DefaultURLs()
	d := browsertest.New().ReplyOn("navigate", urls.Page(config.PageOrders), browsertest.JSON(urls.Endpoint(config.EndpointOrders), `[]`))
	w, _ := newWorkflow(d)

	orders, err := w.Orders(context.Background())
	if orders != nil || !errors.Is(err, browser.ErrNoData) {
		t.Errorf("Orders() = %v, %v, want ErrNoData", orders, err)
	}
}

func TestOrderRowSelectorIsDeterministic(t *testing.T) {
	w, _ := newWorkflow(browsertest.New())

	a := w.OrderRowSelector(1000.5, 10)
	if b := w.OrderRowSelector(1000.5, 10); a != b {
		t.Errorf("selector changed between calls: %q vs %q", a, b)
	}
	if !strings.Contains(a, ",50") || !strings.Contains(a, `"10"`) {
		t.Errorf("selector %q does not carry amount and quantity", a)
	}
	if a == w.OrderRowSelector(1000.5, 11) || a == w.OrderRowSelector(1000.25, 10) {
		t.Errorf("selector %q does not distinguish orders", a)
	}
}

func TestCancelOrder(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)

	out := w.CancelOrder(context.Background(), 1000.5, 10)
	if !out.Success {
		t.Fatalf("CancelOrder() = %s", out)
	}

	row := w.OrderRowSelector(1000.5, 10)
	if got := d.CallsOf("navigate")[0].Selector; got != "https://app.cocos.capital/orders" {
		t.Errorf("navigated to %q", got)
	}
	if want := []string{row, sel.Get(config.OrderCancelButton)}; !reflect.DeepEqual(clicked(d), want) {
		t.Errorf("clicks = %v, want %v", clicked(d), want)
	}
}

func TestCancelOrderIgnoresCancellation(t *testing.T) {
	d := browsertest.New()
	w, _ := newWorkflow(d)
	row := w.OrderRowSelector(1000, 5)

	ctx, cancel := context.WithCancel(context.Background())
	d.OnCall(func(c browsertest.Call) {
		if c.Op == "click" && c.Selector == row {
			cancel()
		}
	})

	if out := w.CancelOrder(ctx, 1000, 5); !out.Success {
		t.Fatalf("CancelOrder() = %s", out)
	}
	clicks := clicked(d)
	if got := clicks[len(clicks)-1]; got != sel.Get(config.OrderCancelButton) {
		t.Errorf("last click = %q, want cancel button", got)
	}
}

func TestCancelOrderMissingRow(t *testing.T) {
	w, _ := newWorkflow(browsertest.New())
	d := browsertest.New().Fail("wait", w.OrderRowSelector(1000, 5), errors.New("timeout"))
	w, _ = newWorkflow(d)

	out := w.CancelOrder(context.Background(), 1000, 5)
	if out.Success || out.Step != "find order" {
		t.Errorf("CancelOrder() = %+v, want failure at find order", out)
	}
	if clicks := d.CallsOf("click"); len(clicks) != 0 {
		t.Errorf("clicks = %v, want none", clicks)
	}
}
