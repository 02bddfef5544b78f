package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	c, err := LoadFromBytes([]byte("browser:\n  headless: true\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}

	if !c.Browser.Headless {
		t.Error("Headless = false, want true")
	}
	durations := []struct {
		name      string
		got, want time.Duration
	}{
		{"Timeouts.Default", c.Timeouts.Default, 10 * time.Second},
		{"Timeouts.ConfirmSettle", c.Timeouts.ConfirmSettle, 4 * time.Second},
		{"Mailbox.DeliveryDelay", c.Mailbox.DeliveryDelay, 20 * time.Second},
		{"Retry.Delay", c.Retry.Delay, time.Second},
	}
	for _, d := range durations {
		if d.got != d.want {
			t.Errorf("%s = %v, want %v", d.name, d.got, d.want)
		}
	}
	if c.Mailbox.Sender != "no-reply@cocos.capital" {
		t.Errorf("Mailbox.Sender = %q", c.Mailbox.Sender)
	}
	if c.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3", c.Retry.MaxRetries)
	}
	if c.Accounts.DefaultAmount != 5000 {
		t.Errorf("Accounts.DefaultAmount = %v, want 5000", c.Accounts.DefaultAmount)
	}
	if got := c.URLs.Page(PageLogin); got != "https://app.cocos.capital/login" {
		t.Errorf("login page = %q", got)
	}
}

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	t.Setenv("COCOS_TEST_SECRET", "s3cret")
	c, err := LoadFromBytes([]byte("server:\n  jwtSecret: ${COCOS_TEST_SECRET}\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if c.Server.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q, want %q", c.Server.JWTSecret, "s3cret")
	}
}

func TestLoadFromBytesRejectsUnknownNames(t *testing.T) {
	cases := []struct {
		yaml string
		want string
	}{
		{"selectors:\n  login.nope: div\n", "unknown selector"},
		{"urls:\n  endpoints:\n    nope: /x\n", "unknown endpoint"},
	}
	for _, tc := range cases {
		_, err := LoadFromBytes([]byte(tc.yaml))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("LoadFromBytes(%q) error = %v, want %q", tc.yaml, err, tc.want)
		}
	}
}

func TestLoadFromBytesRejectsTooManyLoginAttempts(t *testing.T) {
	if _, err := LoadFromBytes([]byte("retry:\n  maxRetries: 2\n  loginAttempts: 5\n")); err == nil {
		t.Fatal("expected error when loginAttempts exceeds maxRetries")
	}
}

func TestMergeFileOverlays(t *testing.T) {
	c, err := LoadFromBytes(nil)
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("timeouts:\n  fetch: 2s\nselectors:\n  order.cancel_button: button.cancel\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.MergeFile(path); err != nil {
		t.Fatalf("MergeFile() error = %v", err)
	}

	if c.Timeouts.Fetch != 2*time.Second {
		t.Errorf("Timeouts.Fetch = %v, want 2s", c.Timeouts.Fetch)
	}
	if c.Timeouts.Default != 10*time.Second {
		t.Errorf("Timeouts.Default = %v, want 10s", c.Timeouts.Default)
	}
	if got := c.Selectors.Get(OrderCancelButton); got != "button.cancel" {
		t.Errorf("cancel button = %q, want %q", got, "button.cancel")
	}
}

func TestURLTable(t *testing.T) {
	u := DefaultURLs()

	if got := u.Endpoint(EndpointUserData); got != "https://api.cocos.capital/api/v1/users/me" {
		t.Errorf("user data endpoint = %q", got)
	}
	if got := u.Endpoint(EndpointOrders); got != "https://api.cocos.capital/api/v2/orders" {
		t.Errorf("orders endpoint = %q", got)
	}
	if got := u.Page(PageDashboard); got != "https://app.cocos.capital/" {
		t.Errorf("dashboard page = %q", got)
	}
	contains := []struct {
		got, want string
	}{
		{u.Endpoint(EndpointAuthToken), "auth/v1/token"},
		{u.Endpoint(EndpointAuthToken), "grant_type=password"},
		{u.Endpoint(EndpointPortfolioBalance), "period=MAX"},
		{u.Page(PageMarketStocks), "acciones"},
	}
	for _, c := range contains {
		if !strings.Contains(c.got, c.want) {
			t.Errorf("%q does not contain %q", c.got, c.want)
		}
	}

	for e := Endpoint(0); e < numEndpoints; e++ {
		if !strings.HasPrefix(u.Endpoint(e), DefaultAPIRoot) {
			t.Errorf("%s = %q, want prefix %q", e, u.Endpoint(e), DefaultAPIRoot)
		}
	}
}

func TestURLTableWithIsCopy(t *testing.T) {
	base := DefaultURLs()
	over, err := base.With(URLOverrides{APIRoot: "http://localhost:9000/", Pages: map[string]string{"orders": "/mis-ordenes"}})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	if got := over.Endpoint(EndpointUserData); got != "http://localhost:9000/v1/users/me" {
		t.Errorf("overridden endpoint = %q", got)
	}
	if got := over.Page(PageOrders); got != "https://app.cocos.capital/mis-ordenes" {
		t.Errorf("overridden page = %q", got)
	}
	if got := base.Page(PageOrders); got != "https://app.cocos.capital/orders" {
		t.Errorf("base page changed to %q", got)
	}
}

func TestSelectorTable(t *testing.T) {
	s := DefaultSelectors()

	if got := s.Get(LoginEmailInput); !strings.Contains(got, `input[type="email"]`) {
		t.Errorf("email input = %q", got)
	}
	if got := s.Get(NavLogoutIcon); !strings.Contains(got, "svg") {
		t.Errorf("logout icon = %q", got)
	}

	item := s.Render(ListItem, "AAPL")
	if want := `ul.MuiList-root.search-list li:has-text("AAPL")`; item != want {
		t.Errorf("list item = %q, want %q", item, want)
	}
	if got := s.Render(TwoFactorDigit, 3); !strings.HasSuffix(got, "input:nth-of-type(3)") {
		t.Errorf("digit input = %q", got)
	}
	if got := s.OperationLabel("buy"); got != "Compra" {
		t.Errorf("OperationLabel(buy) = %q", got)
	}
	if got := s.OperationLabel("SELL"); got != "Venta" {
		t.Errorf("OperationLabel(SELL) = %q", got)
	}
}

func TestRenderEscapesQuotes(t *testing.T) {
	s := DefaultSelectors()

	cases := []struct {
		arg, want string
	}{
		{`AL"30`, `ul.MuiList-root.search-list li:has-text("AL\"30")`},
		{`A\B`, `ul.MuiList-root.search-list li:has-text("A\\B")`},
	}
	for _, tc := range cases {
		if got := s.Render(ListItem, tc.arg); got != tc.want {
			t.Errorf("Render(ListItem, %q) = %q, want %q", tc.arg, got, tc.want)
		}
	}

	row := s.Render(OrderRow, `1"0`, "5")
	if want := `div.order-row:has-text("1\"0"):has-text("5")`; row != want {
		t.Errorf("order row = %q, want %q", row, want)
	}
}

func TestSelectorTableTemplateOverride(t *testing.T) {
	s := DefaultSelectors()

	_, err := s.With(map[string]string{"order.order_row": "tr.row"})
	if err == nil || !strings.Contains(err.Error(), "placeholders") {
		t.Errorf("With(no placeholders) error = %v", err)
	}

	over, err := s.With(map[string]string{"order.order_row": `tr:has-text("%s") >> text=%s`})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if got := over.Render(OrderRow, "1", "2"); got != `tr:has-text("1") >> text=2` {
		t.Errorf("overridden row = %q", got)
	}
	if over.Render(OrderRow, "1", "2") == s.Render(OrderRow, "1", "2") {
		t.Error("override changed the base table")
	}
}
