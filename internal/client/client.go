// Package client is the single entry point to a brokerage session. It owns
// the browser, composes the auth, market and account workflows and
// serializes every call on one page.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neboloop/cocosbot/internal/account"
	"github.com/neboloop/cocosbot/internal/auth"
	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/market"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/twofactor"
	"github.com/neboloop/cocosbot/internal/types"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("client closed")

// Client drives one logged-in browser session. It is safe for concurrent
// use; calls run one at a time.
type Client struct {
	mu     sync.Mutex
	closed bool

	cfg     config.Config
	creds   types.Credentials
	bridge  *browser.Bridge
	auth    *auth.Workflow
	market  *market.Workflow
	account *account.Workflow
	metrics *metrics.Metrics
	log     *logging.Entry
	sleep   func(ctx context.Context, d time.Duration) error
}

type options struct {
	metrics *metrics.Metrics
	codes   auth.CodeSource
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*options)

// WithMetrics records workflow metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCodeSource replaces the IMAP code retriever.
func WithCodeSource(codes auth.CodeSource) Option {
	return func(o *options) { o.codes = codes }
}

// WithSleep replaces every pause the client and its workflows take.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// New validates creds, launches a browser and returns a client on it. The
// client is not logged in yet.
func New(ctx context.Context, cfg config.Config, creds types.Credentials, opts ...Option) (*Client, error) {
	if err := types.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	sess, err := browser.Launch(ctx, browser.LaunchOptionsFrom(cfg))
	if err != nil {
		return nil, err
	}
	c, err := NewWithDriver(sess.Page(), cfg, creds, opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	return c, nil
}

// NewWithDriver returns a client on an existing driver.
func NewWithDriver(d browser.Driver, cfg config.Config, creds types.Credentials, opts ...Option) (*Client, error) {
	if err := types.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	o := options{sleep: browser.Sleep}
	for _, opt := range opts {
		opt(&o)
	}

	bridgeOpts := []browser.Option{
		browser.WithTimeouts(cfg.Timeouts.Default, cfg.Timeouts.Fetch),
		browser.WithMetrics(o.metrics),
		browser.WithSleep(o.sleep),
	}
	b := browser.NewBridge(d, bridgeOpts...)

	codes := o.codes
	if codes == nil {
		codes = twofactor.NewRetriever(
			twofactor.IMAPDialer(twofactor.IMAPConfig{
				Host:     cfg.Mailbox.Host,
				Port:     cfg.Mailbox.Port,
				Username: creds.MailboxAddress,
				Password: creds.MailboxSecret,
				Timeout:  cfg.Timeouts.Default,
			}),
			twofactor.WithSender(cfg.Mailbox.Sender),
			twofactor.WithDelay(cfg.Mailbox.DeliveryDelay),
			twofactor.WithMinFontPx(cfg.Mailbox.MinFontPx),
			twofactor.WithSleep(o.sleep),
			twofactor.WithMetrics(o.metrics),
		)
	}

	return &Client{
		cfg:     cfg,
		creds:   creds,
		bridge:  b,
		auth:    auth.New(b, cfg.URLs, cfg.Selectors, codes, cfg.Timeouts, o.metrics),
		market:  market.New(b, cfg.URLs, cfg.Selectors, cfg.Timeouts, o.metrics),
		account: account.New(b, cfg.URLs, cfg.Selectors, cfg.Timeouts, o.metrics),
		metrics: o.metrics,
		log:     logging.WithComponent("client"),
		sleep:   o.sleep,
	}, nil
}

// lock takes the client mutex and reports whether the client is usable.
func (c *Client) lock() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// Close closes the browser. Later calls return nil.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.bridge.Close()
}

// Login runs the login flow, retrying from the first step up to
// retry.loginAttempts times with retry.delay between attempts.
func (c *Client) Login(ctx context.Context) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	attempts := c.cfg.Retry.LoginAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = c.auth.Login(ctx, c.creds); err == nil {
			return nil
		}
		var aerr *auth.Error
		if errors.As(err, &aerr) {
			c.screenshot(ctx, "login "+aerr.Phase)
			// bad input and malformed codes fail the same way again
			if aerr.Phase == auth.PhaseValidate || aerr.Phase == auth.PhaseCheckCode {
				return err
			}
		}
		if i == attempts {
			break
		}
		c.log.WithError(err).Warnf("login attempt %d/%d failed", i, attempts)
		if serr := c.sleep(ctx, c.cfg.Retry.Delay); serr != nil {
			return err
		}
	}
	return err
}

// Logout logs out. Failures are reported in the outcome.
func (c *Client) Logout(ctx context.Context) types.Outcome {
	if err := c.lock(); err != nil {
		return types.Failed("logout", err)
	}
	defer c.mu.Unlock()
	return c.auth.Logout(ctx)
}

// State returns the login state.
func (c *Client) State() auth.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.State()
}

func (c *Client) data(fn func() (any, error)) (any, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return fn()
}

func (c *Client) UserData(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.account.UserData(ctx) })
}

func (c *Client) AccountTier(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.account.AccountTier(ctx) })
}

func (c *Client) PortfolioData(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.account.PortfolioData(ctx) })
}

func (c *Client) AcademyData(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.account.AcademyData(ctx) })
}

// PortfolioBalance returns the total portfolio balance.
func (c *Client) PortfolioBalance(ctx context.Context) (float64, error) {
	if err := c.lock(); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()
	return c.account.PortfolioBalance(ctx)
}

// LinkedAccounts returns the bank accounts available to withdraw amount in
// currency. A zero amount or empty currency uses the configured defaults.
func (c *Client) LinkedAccounts(ctx context.Context, amount float64, currency types.Currency) (any, error) {
	if amount == 0 {
		amount = c.cfg.Accounts.DefaultAmount
	}
	if currency == "" {
		currency = types.Currency(c.cfg.Accounts.DefaultCurrency)
	}
	return c.data(func() (any, error) { return c.account.LinkedAccounts(ctx, amount, currency) })
}

// NavigateWithdrawForm leaves the withdraw form filled and ready.
func (c *Client) NavigateWithdrawForm(ctx context.Context, amount float64, currency types.Currency) types.Outcome {
	if err := c.lock(); err != nil {
		return types.Failed("withdraw", err)
	}
	defer c.mu.Unlock()
	return c.account.NavigateWithdrawForm(ctx, amount, currency)
}

// CreateOrder submits req. It returns an error matching market.ErrOrder
// when any step fails.
func (c *Client) CreateOrder(ctx context.Context, req types.OrderRequest) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()

	err := c.market.CreateOrder(ctx, req)
	var oerr *market.OrderError
	if errors.As(err, &oerr) && oerr.Step != market.StepValidate {
		c.screenshot(ctx, "order "+oerr.Step)
	}
	return err
}

// CancelOrder cancels the pending order showing amount and quantity.
func (c *Client) CancelOrder(ctx context.Context, amount, quantity float64) types.Outcome {
	if err := c.lock(); err != nil {
		return types.Failed("cancel", err)
	}
	defer c.mu.Unlock()
	return c.market.CancelOrder(ctx, amount, quantity)
}

func (c *Client) TickerInfo(ctx context.Context, ticker string, segment types.MarketSegment, subSegment string) (any, error) {
	return c.data(func() (any, error) { return c.market.TickerInfo(ctx, ticker, segment, subSegment) })
}

func (c *Client) Orders(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.market.Orders(ctx) })
}

func (c *Client) MarketSchedule(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.market.MarketSchedule(ctx) })
}

// MEPRate returns the raw MEP quotes payload.
func (c *Client) MEPRate(ctx context.Context) (any, error) {
	return c.data(func() (any, error) { return c.market.MEPRate(ctx) })
}

// MEPPrices returns the MEP quotes per session.
func (c *Client) MEPPrices(ctx context.Context) (*market.MEPPrices, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return c.market.MEPPrices(ctx)
}

// screenshot writes <step>-<uuid>.png to the screenshots dir, if set.
// Failures are logged only.
func (c *Client) screenshot(ctx context.Context, step string) {
	dir := c.cfg.Screenshots.Dir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.log.WithError(err).Warn("screenshot dir")
		return
	}
	name := fmt.Sprintf("%s-%s.png", slug(step), uuid.NewString())
	path := filepath.Join(dir, name)
	entry := c.log.WithField("path", path)
	if st, ok := c.bridge.Driver().(browser.StateReporter); ok {
		state := st.State()
		entry = entry.WithField("url", state.URL).WithField("title", state.Title)
		if len(state.Errors) > 0 {
			msgs := make([]string, len(state.Errors))
			for i, e := range state.Errors {
				msgs[i] = e.Message
			}
			entry = entry.WithField("page_errors", msgs)
		}
	}
	if err := c.bridge.Screenshot(ctx, path); err != nil {
		entry.WithError(err).Warn("failure screenshot not saved")
		return
	}
	entry.Info("saved failure screenshot")
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
