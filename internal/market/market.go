// Package market runs the trade panel and market data workflows.
package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/types"
)

// ErrOrder is matched by every order creation failure.
var ErrOrder = errors.New("order creation failed")

// Order steps, reported in OrderError.Step.
const (
	StepValidate  = "validate"
	StepOpenPage  = "open market page"
	StepSelect    = "select ticker"
	StepExpand    = "expand trade panel"
	StepOperation = "select operation"
	StepLimit     = "configure limit"
	StepAmount    = "enter amount"
	StepConfirm   = "confirm"
)

// OrderError reports the order step that failed. The form is left as it
// was when the step failed.
type OrderError struct {
	Step string
	Err  error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order creation failed at %s: %v", e.Step, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

func (e *OrderError) Is(target error) bool { return target == ErrOrder }

var segmentPages = map[types.MarketSegment]config.Page{
	types.Stocks:      config.PageMarketStocks,
	types.Cedears:     config.PageMarketCedears,
	types.BondsCorp:   config.PageMarketBondsCorp,
	types.BondsPublic: config.PageMarketBondsPublic,
	types.Letters:     config.PageMarketLetters,
	types.Caucion:     config.PageMarketCaucion,
	types.FCI:         config.PageMarketFCI,
}

// Workflow runs market operations against one bridge.
type Workflow struct {
	bridge   *browser.Bridge
	urls     config.URLTable
	sel      config.SelectorTable
	timeouts config.Timeouts
	metrics  *metrics.Metrics
	log      *logging.Entry

	// display renders amounts the way the orders list shows them.
	display *message.Printer
}

// New returns a market workflow.
func New(b *browser.Bridge, urls config.URLTable, sel config.SelectorTable, timeouts config.Timeouts, m *metrics.Metrics) *Workflow {
	return &Workflow{
		bridge:   b,
		urls:     urls,
		sel:      sel,
		timeouts: timeouts,
		metrics:  m,
		log:      logging.WithComponent("market"),
		display:  message.NewPrinter(language.MustParse("es-AR")),
	}
}

// SegmentURL returns the listing page of seg.
func (w *Workflow) SegmentURL(seg types.MarketSegment) (string, bool) {
	page, ok := segmentPages[seg]
	if !ok {
		return "", false
	}
	return w.urls.Page(page), true
}

func (w *Workflow) orderFailed(step string, err error) error {
	w.metrics.WorkflowFailed("order", step)
	w.log.WithError(err).Warnf("order failed at %s", step)
	return &OrderError{Step: step, Err: err}
}

// CreateOrder fills and submits the trade panel for req. It returns nil
// once the confirmation has been clicked and the settle delay has passed.
// Once validated, the step sequence runs to completion or to its first
// failing step; cancelling ctx does not stop it.
func (w *Workflow) CreateOrder(ctx context.Context, req types.OrderRequest) error {
	req, err := types.ValidateOrder(req)
	if err != nil {
		return w.orderFailed(StepValidate, err)
	}
	ctx = context.WithoutCancel(ctx)

	pageURL, ok := w.SegmentURL(req.Segment)
	if !ok {
		return w.orderFailed(StepOpenPage, fmt.Errorf("no listing page for %s", req.Segment))
	}
	if err := w.bridge.Navigate(ctx, pageURL); err != nil {
		return w.orderFailed(StepOpenPage, err)
	}

	if err := w.selectTicker(ctx, req.Ticker); err != nil {
		return w.orderFailed(StepSelect, err)
	}
	if err := w.bridge.ClickElement(ctx, w.sel.Get(config.OpExpandWindows)); err != nil {
		return w.orderFailed(StepExpand, err)
	}
	if err := w.configureOperation(ctx, req.Operation); err != nil {
		return w.orderFailed(StepOperation, err)
	}
	if req.IsLimit() {
		if err := w.configureLimit(ctx, FormatAmount(*req.Limit)); err != nil {
			return w.orderFailed(StepLimit, err)
		}
	}
	if err := w.enterAmount(ctx, req.Operation, FormatAmount(req.Amount)); err != nil {
		return w.orderFailed(StepAmount, err)
	}
	if err := w.confirm(ctx); err != nil {
		return w.orderFailed(StepConfirm, err)
	}

	w.log.WithField("ticker", req.Ticker).Infof("%s order submitted for %s", w.sel.OperationLabel(string(req.Operation)), FormatAmount(req.Amount))
	return nil
}

func (w *Workflow) selectTicker(ctx context.Context, ticker string) error {
	item := func(term string) string { return w.sel.Render(config.ListItem, term) }
	return w.bridge.SearchAndSelect(ctx, w.sel.Get(config.CommonSearchInput), ticker, item)
}

func (w *Workflow) configureOperation(ctx context.Context, op types.Operation) error {
	button := config.OpBuyButton
	if op == types.Sell {
		button = config.OpSellButton
	}
	return w.bridge.ClickElement(ctx, w.sel.Get(button))
}

// configureLimit switches the panel to a limit order and types the price.
// The price input ignores values set faster than it re-renders.
func (w *Workflow) configureLimit(ctx context.Context, price string) error {
	if err := w.bridge.ClickElement(ctx, w.sel.Get(config.OpMoreOptions)); err != nil {
		return err
	}
	if err := w.bridge.ClickElement(ctx, w.sel.Get(config.OpLimitButton)); err != nil {
		return err
	}
	if err := w.bridge.Settle(ctx, w.timeouts.LimitSettle); err != nil {
		return err
	}
	return w.bridge.FillInputWithDelay(ctx, w.sel.Get(config.OpLimitInput), price, w.timeouts.KeystrokeDelay)
}

func (w *Workflow) enterAmount(ctx context.Context, op types.Operation, amount string) error {
	input := config.OpBuyAmountInput
	if op == types.Sell {
		input = config.OpSellAmountInput
	}
	sel := w.sel.Get(input)
	if err := w.bridge.ClickElement(ctx, sel); err != nil {
		return err
	}
	return w.bridge.FillInput(ctx, sel, amount)
}

func (w *Workflow) confirm(ctx context.Context) error {
	if err := w.bridge.ClickElement(ctx, w.sel.Get(config.OpReviewButton)); err != nil {
		return fmt.Errorf("review: %w", err)
	}
	if err := w.bridge.ClickElement(ctx, w.sel.Get(config.OpConfirmButton)); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	return w.bridge.Settle(ctx, w.timeouts.ConfirmSettle)
}

// FormatAmount renders v the way the trade panel inputs accept it: comma
// decimal separator, no grouping ("1000,5", "10").
func FormatAmount(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// TickerEndpoint returns the URL fragment of a ticker detail response.
func (w *Workflow) TickerEndpoint(ticker string) string {
	return w.urls.Endpoint(config.EndpointMarketsTickers) + "/" + strings.ToUpper(ticker)
}

// TickerInfo opens the segment listing, selects ticker and returns the
// detail payload the page loads for it. subSegment narrows the match to a
// settlement variant ("C", "24hs") when given.
func (w *Workflow) TickerInfo(ctx context.Context, ticker string, segment types.MarketSegment, subSegment string) (any, error) {
	pageURL, ok := w.SegmentURL(segment)
	if !ok {
		return nil, &browser.NoDataError{Reason: browser.ReasonTrigger, Err: fmt.Errorf("unknown segment %q", segment)}
	}
	if err := w.bridge.Navigate(ctx, pageURL); err != nil {
		return nil, &browser.NoDataError{Reason: browser.ReasonTrigger, URL: pageURL, Err: err}
	}

	fragment := w.TickerEndpoint(ticker)
	match := browser.MatchURL(fragment)
	if subSegment != "" {
		segParam := "segment=" + subSegment
		match = func(r browser.Response) bool {
			return browser.MatchURL(fragment)(r) && strings.Contains(r.URL(), segParam)
		}
	}

	resp, err := w.bridge.Correlate(ctx, match, w.timeouts.Fetch, func(ctx context.Context) error {
		return w.selectTicker(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}
	return browser.Decode(resp, nil)
}

// Orders returns the pending and executed orders the orders page loads.
func (w *Workflow) Orders(ctx context.Context) (any, error) {
	return w.bridge.FetchData(ctx, browser.FetchOptions{
		Endpoint: w.urls.Endpoint(config.EndpointOrders),
		Target:   w.urls.Page(config.PageOrders),
		Timeout:  w.timeouts.Fetch,
	})
}

// MarketSchedule returns the trading hours the market pages load.
func (w *Workflow) MarketSchedule(ctx context.Context) (any, error) {
	return w.bridge.FetchData(ctx, browser.FetchOptions{
		Endpoint: w.urls.Endpoint(config.EndpointMarketsSchedule),
		Target:   w.urls.Page(config.PageMarketStocks),
		Timeout:  w.timeouts.Fetch,
	})
}

// MEPRate returns the raw MEP dollar quotes the dashboard loads.
func (w *Workflow) MEPRate(ctx context.Context) (any, error) {
	return w.bridge.FetchData(ctx, browser.FetchOptions{
		Endpoint: w.urls.Endpoint(config.EndpointMEPPrices),
		Target:   w.urls.Page(config.PageDashboard),
		Timeout:  w.timeouts.Fetch,
	})
}

// MEPPrices returns the MEP quotes reshaped by ProcessMEPData.
func (w *Workflow) MEPPrices(ctx context.Context) (*MEPPrices, error) {
	data, err := w.bridge.FetchData(ctx, browser.FetchOptions{
		Endpoint: w.urls.Endpoint(config.EndpointMEPPrices),
		Target:   w.urls.Page(config.PageDashboard),
		Timeout:  w.timeouts.Fetch,
		Transform: func(data any) (any, error) {
			return ProcessMEPData(data)
		},
	})
	if err != nil {
		return nil, err
	}
	return data.(*MEPPrices), nil
}

// OrderRowSelector returns the selector of the pending order row that
// shows amount and quantity. Two rows with the same pair are
// indistinguishable; the first one wins.
func (w *Workflow) OrderRowSelector(amount, quantity float64) string {
	shownAmount := w.display.Sprint(number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	shownQty := w.display.Sprint(number.Decimal(quantity, number.MaxFractionDigits(2)))
	return w.sel.Render(config.OrderRow, shownAmount, shownQty)
}

// CancelOrder cancels the pending order showing amount and quantity.
func (w *Workflow) CancelOrder(ctx context.Context, amount, quantity float64) types.Outcome {
	ctx = context.WithoutCancel(ctx)
	row := w.OrderRowSelector(amount, quantity)
	steps := []struct {
		name string
		run  func() error
	}{
		{"open orders", func() error { return w.bridge.Navigate(ctx, w.urls.Page(config.PageOrders)) }},
		{"find order", func() error { return w.bridge.WaitForElement(ctx, row, w.timeouts.Default, browser.StateVisible) }},
		{"open order", func() error { return w.bridge.ClickElement(ctx, row) }},
		{"click cancel", func() error { return w.bridge.ClickElement(ctx, w.sel.Get(config.OrderCancelButton)) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			w.metrics.WorkflowFailed("cancel", step.name)
			w.log.WithError(err).Warnf("cancel failed at %s", step.name)
			return types.Failed(step.name, err)
		}
	}
	w.log.Infof("cancelled order %s", row)
	return types.Succeeded()
}
