// Package account reads user, portfolio and academy data and drives the
// withdraw form.
package account

import (
	"context"
	"fmt"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/types"
)

// Withdraw form steps, reported in Outcome.Step.
const (
	StepOpenWithdraw   = "open withdraw"
	StepSelectCurrency = "select currency"
	StepEnterAmount    = "enter amount"
	StepFormReady      = "wait continue"
	StepContinue       = "continue"
)

// Workflow runs account operations against one bridge.
type Workflow struct {
	bridge   *browser.Bridge
	urls     config.URLTable
	sel      config.SelectorTable
	timeouts config.Timeouts
	metrics  *metrics.Metrics
	log      *logging.Entry
}

// New returns an account workflow.
func New(b *browser.Bridge, urls config.URLTable, sel config.SelectorTable, timeouts config.Timeouts, m *metrics.Metrics) *Workflow {
	return &Workflow{
		bridge:   b,
		urls:     urls,
		sel:      sel,
		timeouts: timeouts,
		metrics:  m,
		log:      logging.WithComponent("account"),
	}
}

func (w *Workflow) fetch(ctx context.Context, endpoint config.Endpoint, target config.Page, transform browser.Transform) (any, error) {
	return w.bridge.FetchData(ctx, browser.FetchOptions{
		Endpoint:  w.urls.Endpoint(endpoint),
		Target:    w.urls.Page(target),
		Timeout:   w.timeouts.Fetch,
		Transform: transform,
	})
}

// UserData returns the profile the dashboard loads.
func (w *Workflow) UserData(ctx context.Context) (any, error) {
	return w.fetch(ctx, config.EndpointUserData, config.PageDashboard, nil)
}

// AccountTier returns the account tier the dashboard loads.
func (w *Workflow) AccountTier(ctx context.Context) (any, error) {
	return w.fetch(ctx, config.EndpointAccountTier, config.PageDashboard, nil)
}

// AcademyData returns the academy content the dashboard loads.
func (w *Workflow) AcademyData(ctx context.Context) (any, error) {
	return w.fetch(ctx, config.EndpointAcademy, config.PageDashboard, nil)
}

// PortfolioData returns the holdings the portfolio page loads.
func (w *Workflow) PortfolioData(ctx context.Context) (any, error) {
	return w.fetch(ctx, config.EndpointPortfolioData, config.PagePortfolio, nil)
}

// PortfolioBalance returns the total balance the portfolio page loads.
func (w *Workflow) PortfolioBalance(ctx context.Context) (float64, error) {
	data, err := w.fetch(ctx, config.EndpointPortfolioBalance, config.PagePortfolio, TotalBalance)
	if err != nil {
		return 0, err
	}
	return data.(float64), nil
}

// TotalBalance extracts the numeric totalBalance field. Any other shape
// yields nil, which the fetch reports as no data.
func TotalBalance(data any) (any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, nil
	}
	v, ok := m["totalBalance"].(float64)
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (w *Workflow) currencyTab(c types.Currency) (string, error) {
	switch c {
	case types.ARS:
		return w.sel.Get(config.TransferCurrencyARS), nil
	case types.USD:
		return w.sel.Get(config.TransferCurrencyUSD), nil
	}
	return "", &types.ValidationError{Field: "currency", Value: string(c), Msg: "must be ARS or USD"}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// withdrawSteps opens the withdraw form on the currency tab selector and
// fills amount.
func (w *Workflow) withdrawSteps(amount float64, tab string) []step {
	return []step{
		{StepOpenWithdraw, func(ctx context.Context) error {
			return w.bridge.ClickElement(ctx, w.sel.Get(config.TransferWithdrawButton))
		}},
		{StepSelectCurrency, func(ctx context.Context) error {
			return w.bridge.ClickElement(ctx, tab)
		}},
		{StepEnterAmount, func(ctx context.Context) error {
			input := w.sel.Get(config.TransferAmountInput)
			if err := w.bridge.FillInput(ctx, input, fmt.Sprint(amount)); err != nil {
				return err
			}
			// the continue button only enables once the input loses focus
			return w.bridge.Blur(ctx, input)
		}},
		{StepFormReady, func(ctx context.Context) error {
			return w.bridge.WaitForElement(ctx, w.sel.Get(config.TransferContinueButton), w.timeouts.Default, browser.StateVisible)
		}},
	}
}

func (w *Workflow) run(ctx context.Context, op string, steps []step) types.Outcome {
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			w.metrics.WorkflowFailed(op, s.name)
			w.log.WithError(err).Warnf("%s failed at %s", op, s.name)
			return types.Failed(s.name, err)
		}
	}
	return types.Succeeded()
}

// NavigateWithdrawForm opens the withdraw panel for currency and fills
// amount, leaving the form ready to continue. An unsupported currency
// fails before any page interaction; once started, the steps are not
// interrupted by cancelling ctx.
func (w *Workflow) NavigateWithdrawForm(ctx context.Context, amount float64, currency types.Currency) types.Outcome {
	tab, err := w.currencyTab(currency)
	if err != nil {
		return types.Failed(StepSelectCurrency, err)
	}
	return w.run(context.WithoutCancel(ctx), "withdraw", w.withdrawSteps(amount, tab))
}

// LinkedAccountsEndpoint returns the URL fragment of the linked accounts
// response for currency.
func (w *Workflow) LinkedAccountsEndpoint(currency types.Currency) string {
	return w.urls.Endpoint(config.EndpointUserAccounts) + string(currency)
}

// LinkedAccounts returns the bank accounts the withdraw form lists after
// continuing with amount in currency.
func (w *Workflow) LinkedAccounts(ctx context.Context, amount float64, currency types.Currency) (any, error) {
	tab, err := w.currencyTab(currency)
	if err != nil {
		return nil, err
	}
	fragment := w.LinkedAccountsEndpoint(currency)
	trigger := func(ctx context.Context) error {
		steps := append(w.withdrawSteps(amount, tab), step{StepContinue, func(ctx context.Context) error {
			return w.bridge.ClickElement(ctx, w.sel.Get(config.TransferContinueButton))
		}})
		if out := w.run(ctx, "linked accounts", steps); !out.Success {
			return out.Err
		}
		return nil
	}

	resp, err := w.bridge.Correlate(ctx, browser.MatchURL(fragment), w.timeouts.Fetch, trigger)
	if err != nil {
		return nil, err
	}
	return browser.Decode(resp, nil)
}
