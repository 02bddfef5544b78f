// Package browsertest provides an in-memory browser.Driver for workflow
// tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neboloop/cocosbot/internal/browser"
)

// Call records one driver invocation.
type Call struct {
	Op       string // "navigate", "click", "fill", "type", "press", "blur", "wait", "text", "screenshot"
	Selector string // or URL for navigate, path for screenshot
	Value    string
}

// Reply is a response the driver emits when an action runs.
type Reply struct {
	Op       string // action that triggers the reply
	Target   string // selector or URL of that action
	Response *browser.CapturedResponse
}

// Driver is a scripted browser.Driver. Actions succeed unless a failure
// is registered for their op and selector; replies are emitted on a
// separate goroutine, the way a real page delivers network events.
type Driver struct {
	mu      sync.Mutex
	calls   []Call
	fails   map[string]error
	texts   map[string]string
	replies []Reply
	subs    map[int]func(browser.Response)
	nextSub int
	closed  int
	state   browser.PageState
	hook    func(Call)
	wg      sync.WaitGroup
}

// New returns an empty driver.
func New() *Driver {
	return &Driver{
		fails: make(map[string]error),
		texts: make(map[string]string),
		subs:  make(map[int]func(browser.Response)),
	}
}

func key(op, target string) string { return op + " " + target }

// Fail makes op on target return err. An empty target fails every call of op.
func (d *Driver) Fail(op, target string, err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("%s %s failed", op, target)
	}
	d.fails[key(op, target)] = err
	return d
}

// SetText sets the text Text returns for selector.
func (d *Driver) SetText(selector, text string) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts[selector] = text
	return d
}

// SetState sets what State reports.
func (d *Driver) SetState(st browser.PageState) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = st
	return d
}

// State implements browser.StateReporter.
func (d *Driver) State() browser.PageState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// OnCall runs fn after every recorded call, outside the driver lock.
func (d *Driver) OnCall(fn func(Call)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = fn
	return d
}

// ReplyOn emits resp to subscribers when op runs on target.
func (d *Driver) ReplyOn(op, target string, resp *browser.CapturedResponse) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies = append(d.replies, Reply{Op: op, Target: target, Response: resp})
	return d
}

// JSON is a shorthand for a 200 application/json GET response.
func JSON(url, body string) *browser.CapturedResponse {
	return &browser.CapturedResponse{
		URLValue:    url,
		MethodValue: "GET",
		StatusCode:  200,
		ContentType: "application/json",
		BodyBytes:   []byte(body),
	}
}

// Emit delivers resp to current subscribers synchronously.
func (d *Driver) Emit(resp browser.Response) {
	d.mu.Lock()
	subs := make([]func(browser.Response), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()
	for _, fn := range subs {
		fn(resp)
	}
}

// Calls returns a copy of the recorded calls.
func (d *Driver) Calls() []Call {
	d.wg.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsOf returns the recorded calls of one op.
func (d *Driver) CallsOf(op string) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Subscribers returns the number of live response subscribers.
func (d *Driver) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Closed returns how many times Close was called.
func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) record(ctx context.Context, op, target, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := Call{Op: op, Selector: target, Value: value}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	hook := d.hook
	err := d.fails[key(op, target)]
	if err == nil {
		err = d.fails[key(op, "")]
	}
	var emit []*browser.CapturedResponse
	if err == nil {
		for _, r := range d.replies {
			if r.Op == op && r.Target == target {
				emit = append(emit, r.Response)
			}
		}
	}
	d.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	for _, resp := range emit {
		d.wg.Add(1)
		go func(resp *browser.CapturedResponse) {
			defer d.wg.Done()
			d.Emit(resp)
		}(resp)
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, opts browser.NavigateOptions) error {
	return d.record(ctx, "navigate", opts.URL, "")
}

func (d *Driver) Click(ctx context.Context, opts browser.ClickOptions) error {
	return d.record(ctx, "click", opts.Selector, "")
}

func (d *Driver) Fill(ctx context.Context, opts browser.FillOptions) error {
	return d.record(ctx, "fill", opts.Selector, opts.Value)
}

func (d *Driver) Type(ctx context.Context, opts browser.TypeOptions) error {
	return d.record(ctx, "type", opts.Selector, opts.Text)
}

func (d *Driver) Press(ctx context.Context, opts browser.PressOptions) error {
	return d.record(ctx, "press", opts.Selector, opts.Key)
}

func (d *Driver) Blur(ctx context.Context, selector string) error {
	return d.record(ctx, "blur", selector, "")
}

func (d *Driver) Wait(ctx context.Context, opts browser.WaitOptions) error {
	return d.record(ctx, "wait", opts.Selector, string(opts.State))
}

func (d *Driver) Text(ctx context.Context, selector string, _ time.Duration) (string, error) {
	if err := d.record(ctx, "text", selector, ""); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texts[selector], nil
}

func (d *Driver) Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	if err := d.record(ctx, "screenshot", opts.Path, ""); err != nil {
		return nil, err
	}
	return []byte("png"), nil
}

func (d *Driver) OnResponse(fn func(browser.Response)) func() {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// NoSleep is a sleep function that returns immediately, for
// browser.WithSleep.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
