package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
)

var (
	_ Driver        = (*Page)(nil)
	_ StateReporter = (*Page)(nil)
)

// Bridge is the synchronous façade the workflows use to drive the page.
// It is not safe for concurrent use; the client serializes callers.
type Bridge struct {
	driver       Driver
	timeout      time.Duration
	fetchTimeout time.Duration
	metrics      *metrics.Metrics
	log          *logging.Entry

	// sleep pauses between keystrokes and for settle delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeouts overrides the element and fetch timeouts.
func WithTimeouts(element, fetch time.Duration) Option {
	return func(b *Bridge) {
		if element > 0 {
			b.timeout = element
		}
		if fetch > 0 {
			b.fetchTimeout = fetch
		}
	}
}

// WithMetrics records fetch results on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithSleep replaces the pause function, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bridge) { b.sleep = fn }
}

// NewBridge wraps d.
func NewBridge(d Driver, opts ...Option) *Bridge {
	b := &Bridge{
		driver:       d,
		timeout:      DefaultTimeout,
		fetchTimeout: DefaultFetchTimeout,
		log:          logging.WithComponent("bridge"),
		sleep:        Sleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Driver returns the wrapped driver.
func (b *Bridge) Driver() Driver {
	return b.driver
}

// Settle pauses for d so the page can finish an animation or request.
func (b *Bridge) Settle(ctx context.Context, d time.Duration) error {
	return b.sleep(ctx, d)
}

// Navigate loads url and waits for the load event.
func (b *Bridge) Navigate(ctx context.Context, url string) error {
	b.log.Debugf("navigate %s", url)
	return b.driver.Navigate(ctx, NavigateOptions{URL: url, Timeout: b.timeout})
}

// WaitForElement blocks until selector reaches state. A zero timeout uses
// the bridge default.
func (b *Bridge) WaitForElement(ctx context.Context, selector string, timeout time.Duration, state WaitState) error {
	if timeout == 0 {
		timeout = b.timeout
	}
	if state == "" {
		state = StateVisible
	}
	return b.driver.Wait(ctx, WaitOptions{Selector: selector, State: state, Timeout: timeout})
}

// ClickElement waits for selector to be visible and clicks it.
func (b *Bridge) ClickElement(ctx context.Context, selector string) error {
	if err := b.WaitForElement(ctx, selector, 0, StateVisible); err != nil {
		return err
	}
	return b.driver.Click(ctx, ClickOptions{Selector: selector, Timeout: b.timeout})
}

// FillInput waits for selector to be visible and sets its value.
func (b *Bridge) FillInput(ctx context.Context, selector, value string) error {
	if err := b.WaitForElement(ctx, selector, 0, StateVisible); err != nil {
		return err
	}
	return b.driver.Fill(ctx, FillOptions{Selector: selector, Value: value, Timeout: b.timeout})
}

// FillInputWithEvents fills selector, presses Enter and blurs it, for
// inputs that only commit their value on those events.
func (b *Bridge) FillInputWithEvents(ctx context.Context, selector, value string) error {
	if err := b.FillInput(ctx, selector, value); err != nil {
		return err
	}
	if err := b.driver.Press(ctx, PressOptions{Selector: selector, Key: "Enter", Timeout: b.timeout}); err != nil {
		return err
	}
	return b.driver.Blur(ctx, selector)
}

// FillInputWithDelay clears selector and types value one character at a
// time, pausing delay between characters.
func (b *Bridge) FillInputWithDelay(ctx context.Context, selector, value string, delay time.Duration) error {
	if delay == 0 {
		delay = DefaultKeystrokeDelay
	}
	if err := b.FillInput(ctx, selector, ""); err != nil {
		return err
	}
	for i, ch := range value {
		if i > 0 {
			if err := b.sleep(ctx, delay); err != nil {
				return err
			}
		}
		if err := b.driver.Type(ctx, TypeOptions{Selector: selector, Text: string(ch), Timeout: b.timeout}); err != nil {
			return err
		}
	}
	return nil
}

// Blur removes focus from selector.
func (b *Bridge) Blur(ctx context.Context, selector string) error {
	return b.driver.Blur(ctx, selector)
}

// GetText returns the text content of selector.
func (b *Bridge) GetText(ctx context.Context, selector string) (string, error) {
	return b.driver.Text(ctx, selector, b.timeout)
}

// Screenshot writes a full-page screenshot to path.
func (b *Bridge) Screenshot(ctx context.Context, path string) error {
	_, err := b.driver.Screenshot(ctx, ScreenshotOptions{Path: path, FullPage: true})
	return err
}

// SearchAndSelect types term into the search box and clicks the result
// whose selector item(term) generates.
func (b *Bridge) SearchAndSelect(ctx context.Context, searchSelector, term string, item func(string) string) error {
	if err := b.FillInput(ctx, searchSelector, term); err != nil {
		return fmt.Errorf("search %q: %w", term, err)
	}
	if err := b.ClickElement(ctx, item(term)); err != nil {
		return fmt.Errorf("select %q: %w", term, err)
	}
	return nil
}

// Close closes the underlying driver.
func (b *Bridge) Close() error {
	return b.driver.Close()
}
