package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

func timeoutMs(d time.Duration) *float64 {
	if d == 0 {
		d = DefaultTimeout
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// locator returns the first match so a broad selector never trips
// Playwright's strict mode.
func (p *Page) locator(selector string) playwright.Locator {
	return p.page.Locator(selector).First()
}

// Navigate navigates to a URL.
func (p *Page) Navigate(ctx context.Context, opts NavigateOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	waitUntil := playwright.WaitUntilStateLoad
	switch opts.WaitUntil {
	case "domcontentloaded":
		waitUntil = playwright.WaitUntilStateDomcontentloaded
	case "networkidle":
		waitUntil = playwright.WaitUntilStateNetworkidle
	}

	_, err := p.page.Goto(opts.URL, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   timeoutMs(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	p.log.Debugf("navigated to %s", opts.URL)
	return nil
}

// Click clicks an element.
func (p *Page) Click(ctx context.Context, opts ClickOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.locator(opts.Selector).Click(playwright.LocatorClickOptions{
		Timeout: timeoutMs(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills an input element (clears first, then sets the value).
func (p *Page) Fill(ctx context.Context, opts FillOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.locator(opts.Selector).Fill(opts.Value, playwright.LocatorFillOptions{
		Timeout: timeoutMs(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Type types text into an element key by key.
func (p *Page) Type(ctx context.Context, opts TypeOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	typeOpts := playwright.LocatorPressSequentiallyOptions{
		Timeout: timeoutMs(opts.Timeout),
	}
	if opts.Delay > 0 {
		typeOpts.Delay = playwright.Float(float64(opts.Delay.Milliseconds()))
	}

	if err := p.locator(opts.Selector).PressSequentially(opts.Text, typeOpts); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

// Press presses a keyboard key, on an element when a selector is given.
func (p *Page) Press(ctx context.Context, opts PressOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	if opts.Selector != "" {
		err = p.locator(opts.Selector).Press(opts.Key, playwright.LocatorPressOptions{
			Timeout: timeoutMs(opts.Timeout),
		})
	} else {
		err = p.page.Keyboard().Press(opts.Key)
	}
	if err != nil {
		return fmt.Errorf("press failed: %w", err)
	}
	return nil
}

// Blur removes focus from an element, firing its change handlers.
func (p *Page) Blur(ctx context.Context, selector string) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.locator(selector).Blur(); err != nil {
		return fmt.Errorf("blur failed: %w", err)
	}
	return nil
}

// Wait blocks until the element reaches the requested state.
func (p *Page) Wait(ctx context.Context, opts WaitOptions) error {
	if p.isClosed() {
		return fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state := playwright.WaitForSelectorStateVisible
	switch opts.State {
	case StateAttached:
		state = playwright.WaitForSelectorStateAttached
	case StateHidden:
		state = playwright.WaitForSelectorStateHidden
	case StateDetached:
		state = playwright.WaitForSelectorStateDetached
	}

	err := p.locator(opts.Selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: timeoutMs(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("wait for %s failed: %w", opts.Selector, err)
	}
	return nil
}

// Text returns the element's text content.
func (p *Page) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if p.isClosed() {
		return "", fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := p.locator(selector).TextContent(playwright.LocatorTextContentOptions{
		Timeout: timeoutMs(timeout),
	})
	if err != nil {
		return "", fmt.Errorf("text failed: %w", err)
	}
	return text, nil
}

// Screenshot captures the page, writing it to opts.Path when set.
func (p *Page) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	if p.isClosed() {
		return nil, fmt.Errorf("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shotOpts := playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(opts.FullPage),
	}
	if opts.Path != "" {
		shotOpts.Path = playwright.String(opts.Path)
	}

	data, err := p.page.Screenshot(shotOpts)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}
