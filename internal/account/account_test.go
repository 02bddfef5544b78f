package account

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/browser/browsertest"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/types"
)

var (
	urls = config.DefaultURLs()
	sel  = config.DefaultSelectors()
)

func newWorkflow(d *browsertest.Driver) *Workflow {
	timeouts := config.DefaultTimeouts()
	timeouts.Fetch = 500 * time.Millisecond
	b := browser.NewBridge(d, browser.WithSleep(browsertest.NoSleep))
	return New(b, urls, sel, timeouts, nil)
}

// wantNoData fails unless err is ErrNoData with reason.
func wantNoData(t *testing.T, err error, reason browser.Reason) {
	t.Helper()
	if !errors.Is(err, browser.ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
	if got := browser.ReasonOf(err); got != reason {
		t.Errorf("reason = %q, want %q", got, reason)
	}
}

func TestFetchers(t *testing.T) {
	d := browsertest.New().
		ReplyOn("navigate", urls.Page(config.PageDashboard), browsertest.JSON(urls.Endpoint(config.EndpointUserData), `{"name":"Test User"}`)).
		ReplyOn("navigate", urls.Page(config.PageDashboard), browsertest.JSON(urls.Endpoint(config.EndpointAccountTier), `{"tier":"premium","level":3}`)).
		ReplyOn("navigate", urls.Page(config.PageDashboard), browsertest.JSON(urls.Endpoint(config.EndpointAcademy), `{"courses":[{"name":"Investing 101"}]}`)).
		ReplyOn("navigate", urls.Page(config.PagePortfolio), browsertest.JSON(urls.Endpoint(config.EndpointPortfolioData), `{"total_value":15000}`))
	w := newWorkflow(d)
	ctx := context.Background()

	user, err := w.UserData(ctx)
	if err != nil {
		t.Fatalf("UserData() error = %v", err)
	}
	if want := map[string]any{"name": "Test User"}; !reflect.DeepEqual(user, want) {
		t.Errorf("UserData() = %v, want %v", user, want)
	}

	tier, err := w.AccountTier(ctx)
	if err != nil {
		t.Fatalf("AccountTier() error = %v", err)
	}
	if want := map[string]any{"tier": "premium", "level": 3.0}; !reflect.DeepEqual(tier, want) {
		t.Errorf("AccountTier() = %v, want %v", tier, want)
	}

	academy, err := w.AcademyData(ctx)
	if err != nil {
		t.Fatalf("AcademyData() error = %v", err)
	}
	if m, ok := academy.(map[string]any); !ok || m["courses"] == nil {
		t.Errorf("AcademyData() = %v, want courses", academy)
	}

	portfolio, err := w.PortfolioData(ctx)
	if err != nil {
		t.Fatalf("PortfolioData() error = %v", err)
	}
	if want := map[string]any{"total_value": 15000.0}; !reflect.DeepEqual(portfolio, want) {
		t.Errorf("PortfolioData() = %v, want %v", portfolio, want)
	}
}

func TestFetcherNoResponse(t *testing.T) {
	w := newWorkflow(browsertest.New())

	data, err := w.UserData(context.Background())
	if data != nil {
		t.Errorf("UserData() = %v, want nil", data)
	}
	wantNoData(t, err, browser.ReasonTimeout)
}

func TestPortfolioBalance(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
		ok   bool
	}{
		{"number", `{"totalBalance":42000.0}`, 42000, true},
		{"fraction", `{"totalBalance":25000.5,"currency":"ARS"}`, 25000.5, true},
		{"missing", `{"other":"data"}`, 0, false},
		{"string", `{"totalBalance":"42000"}`, 0, false},
		{"array", `[1,2]`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := browsertest.New().ReplyOn("navigate", urls.Page(config.PagePortfolio),
				browsertest.JSON(urls.Endpoint(config.EndpointPortfolioBalance), tc.body))
			w := newWorkflow(d)

			got, err := w.PortfolioBalance(context.Background())
			if !tc.ok {
				wantNoData(t, err, browser.ReasonExtract)
				return
			}
			if err != nil {
				t.Fatalf("PortfolioBalance() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("PortfolioBalance() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNavigateWithdrawForm(t *testing.T) {
	for _, tc := range []struct {
		currency types.Currency
		tab      config.Selector
	}{
		{types.ARS, config.TransferCurrencyARS},
		{types.USD, config.TransferCurrencyUSD},
	} {
		t.Run(string(tc.currency), func(t *testing.T) {
			d := browsertest.New()
			w := newWorkflow(d)

			out := w.NavigateWithdrawForm(context.Background(), 1000.5, tc.currency)
			if !out.Success {
				t.Fatalf("NavigateWithdrawForm() = %s", out)
			}

			var clicks []string
			for _, c := range d.CallsOf("click") {
				clicks = append(clicks, c.Selector)
			}
			if want := []string{sel.Get(config.TransferWithdrawButton), sel.Get(tc.tab)}; !reflect.DeepEqual(clicks, want) {
				t.Errorf("clicks = %v, want %v", clicks, want)
			}

			fills := d.CallsOf("fill")
			if len(fills) != 1 {
				t.Fatalf("fills = %v, want 1", fills)
			}
			if fills[0].Selector != sel.Get(config.TransferAmountInput) || fills[0].Value != "1000.5" {
				t.Errorf("fill = %+v", fills[0])
			}
			if n := len(d.CallsOf("blur")); n != 1 {
				t.Errorf("%d blurs, want 1", n)
			}

			waits := d.CallsOf("wait")
			if got := waits[len(waits)-1].Selector; got != sel.Get(config.TransferContinueButton) {
				t.Errorf("last wait on %q, want continue button", got)
			}
		})
	}
}

func TestNavigateWithdrawFormRejectsCurrency(t *testing.T) {
	d := browsertest.New()
	w := newWorkflow(d)

	out := w.NavigateWithdrawForm(context.Background(), 1000, "EUR")
	if out.Success || out.Step != StepSelectCurrency {
		t.Errorf("NavigateWithdrawForm() = %+v, want failure at %q", out, StepSelectCurrency)
	}
	var verr *types.ValidationError
	if !errors.As(out.Err, &verr) {
		t.Errorf("error = %v, want *types.ValidationError", out.Err)
	}
	if calls := d.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none before the currency is accepted", calls)
	}
}

func TestNavigateWithdrawFormClickFails(t *testing.T) {
	d := browsertest.New().Fail("click", "", errors.New("click failed"))
	w := newWorkflow(d)

	out := w.NavigateWithdrawForm(context.Background(), 1000, types.ARS)
	if out.Success || out.Step != StepOpenWithdraw {
		t.Errorf("NavigateWithdrawForm() = %+v, want failure at %q", out, StepOpenWithdraw)
	}
}

func TestNavigateWithdrawFormIgnoresCancellation(t *testing.T) {
	d := browsertest.New()
	w := newWorkflow(d)

	ctx, cancel := context.WithCancel(context.Background())
	d.OnCall(func(c browsertest.Call) {
		if c.Op == "click" && c.Selector == sel.Get(config.TransferWithdrawButton) {
			cancel()
		}
	})

	out := w.NavigateWithdrawForm(ctx, 1000, types.ARS)
	if !out.Success {
		t.Fatalf("NavigateWithdrawForm() = %s", out)
	}
	if n := len(d.CallsOf("fill")); n != 1 {
		t.Errorf("%d fills, want the amount entered after cancellation", n)
	}
}

func TestLinkedAccounts(t *testing.T) {
	d := browsertest.New()
	w := newWorkflow(d)
	d.ReplyOn("click", sel.Get(config.TransferContinueButton),
		browsertest.JSON(w.LinkedAccountsEndpoint(types.USD), `[{"bank":"Bank B","number":"5678"}]`))

	accounts, err := w.LinkedAccounts(context.Background(), 1000, types.USD)
	if err != nil {
		t.Fatalf("LinkedAccounts() error = %v", err)
	}
	if want := []any{map[string]any{"bank": "Bank B", "number": "5678"}}; !reflect.DeepEqual(accounts, want) {
		t.Errorf("LinkedAccounts() = %v, want %v", accounts, want)
	}

	clicks := d.CallsOf("click")
	if got := clicks[len(clicks)-1].Selector; got != sel.Get(config.TransferContinueButton) {
		t.Errorf("last click on %q, want continue button", got)
	}
}

func TestLinkedAccountsIgnoresOtherCurrency(t *testing.T) {
	d := browsertest.New()
	w := newWorkflow(d)
	d.ReplyOn("click", sel.Get(config.TransferContinueButton),
		browsertest.JSON(w.LinkedAccountsEndpoint(types.USD), `[{"bank":"Bank B"}]`))

	_, err := w.LinkedAccounts(context.Background(), 5000, types.ARS)
	wantNoData(t, err, browser.ReasonTimeout)
}

func TestLinkedAccountsRejectsCurrency(t *testing.T) {
	d := browsertest.New()
	w := newWorkflow(d)

	_, err := w.LinkedAccounts(context.Background(), 5000, "EUR")
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("LinkedAccounts() error = %v, want *types.ValidationError", err)
	}
	if calls := d.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestLinkedAccountsNavigationFails(t *testing.T) {
	d := browsertest.New().Fail("click", sel.Get(config.TransferWithdrawButton), nil)
	w := newWorkflow(d)

	accounts, err := w.LinkedAccounts(context.Background(), 5000, types.ARS)
	if accounts != nil {
		t.Errorf("LinkedAccounts() = %v, want nil", accounts)
	}
	wantNoData(t, err, browser.ReasonTrigger)
	if n := d.Subscribers(); n != 0 {
		t.Errorf("%d subscribers left, want 0", n)
	}
}
