package browser

import (
	"context"
	"time"
)

// Driver is the browser capability surface the bridge consumes. *Page is
// the Playwright implementation; browsertest.Driver is an in-memory one.
type Driver interface {
	Navigate(ctx context.Context, opts NavigateOptions) error
	Click(ctx context.Context, opts ClickOptions) error
	Fill(ctx context.Context, opts FillOptions) error
	Type(ctx context.Context, opts TypeOptions) error
	Press(ctx context.Context, opts PressOptions) error
	Blur(ctx context.Context, selector string) error
	Wait(ctx context.Context, opts WaitOptions) error
	Text(ctx context.Context, selector string, timeout time.Duration) (string, error)
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)

	// OnResponse registers fn for every network response the page
	// receives until the returned func is called. fn runs on the driver's
	// event goroutine and must not block.
	OnResponse(fn func(Response)) (unsubscribe func())

	Close() error
}

// StateReporter is implemented by drivers that can describe the page for
// failure reports. *Page implements it.
type StateReporter interface {
	State() PageState
}

// Response is a network response observed on the page. URL, Method and
// Status are captured when the event fires; Body may fetch lazily.
type Response interface {
	URL() string
	Method() string
	Status() int
	Header(name string) string
	Body() ([]byte, error)
}

// NavigateOptions configures navigation.
type NavigateOptions struct {
	URL       string
	WaitUntil string // "load", "domcontentloaded", "networkidle"
	Timeout   time.Duration
}

// ClickOptions configures click actions.
type ClickOptions struct {
	Selector string
	Timeout  time.Duration
}

// FillOptions configures fill actions.
type FillOptions struct {
	Selector string
	Value    string
	Timeout  time.Duration
}

// TypeOptions configures type actions.
type TypeOptions struct {
	Selector string
	Text     string
	Delay    time.Duration // Delay between keystrokes
	Timeout  time.Duration
}

// PressOptions configures key press actions. An empty Selector presses on
// whatever element has focus.
type PressOptions struct {
	Selector string
	Key      string // Key to press (Enter, Tab, Escape, etc.)
	Timeout  time.Duration
}

// WaitOptions configures element waits.
type WaitOptions struct {
	Selector string
	State    WaitState
	Timeout  time.Duration
}

// ScreenshotOptions configures screenshots.
type ScreenshotOptions struct {
	Path     string
	FullPage bool
}

// CapturedResponse is a Response whose body has already been read. It is
// what tests feed to the bridge and what callers get back from Correlate
// when they need the raw payload.
type CapturedResponse struct {
	URLValue    string
	MethodValue string
	StatusCode  int
	ContentType string
	BodyBytes   []byte
}

func (r *CapturedResponse) URL() string { return r.URLValue }

func (r *CapturedResponse) Method() string {
	if r.MethodValue == "" {
		return "GET"
	}
	return r.MethodValue
}

func (r *CapturedResponse) Status() int { return r.StatusCode }

func (r *CapturedResponse) Header(name string) string {
	if name == "content-type" || name == "Content-Type" {
		return r.ContentType
	}
	return ""
}

func (r *CapturedResponse) Body() ([]byte, error) { return r.BodyBytes, nil }
