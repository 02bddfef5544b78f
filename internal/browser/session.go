package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/neboloop/cocosbot/internal/logging"
)

// Session owns one Chromium instance with a single context and page.
type Session struct {
	mu sync.RWMutex

	id      string
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *Page

	closed bool
}

// Page wraps a Playwright page with state tracking. It implements Driver.
type Page struct {
	mu sync.RWMutex

	page    playwright.Page
	session *Session
	state   *PageState
	log     *logging.Entry

	subs    map[int]func(Response)
	nextSub int

	closed bool
}

// PageState is what a failure report shows about the page.
type PageState struct {
	URL    string      `json:"url"`
	Title  string      `json:"title"`
	Errors []PageError `json:"errors,omitempty"`
}

// PageError is an uncaught script error raised on the page.
type PageError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	// Playwright instance (singleton)
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

// getPlaywright returns the singleton Playwright instance.
func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		// Install browsers if needed
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			pwErr = fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}

		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})

	return pwInstance, pwErr
}

// Shutdown stops the Playwright driver process. Sessions must be closed first.
func Shutdown() error {
	if pwInstance == nil {
		return nil
	}
	return pwInstance.Stop()
}

// Launch starts Chromium and opens the session's page.
func Launch(ctx context.Context, opts LaunchOptions) (*Session, error) {
	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(opts.SlowMo)
	}
	if opts.NoSandbox {
		launch.ChromiumSandbox = playwright.Bool(false)
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{Locale: playwright.String("es-AR")}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	browserCtx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	pwPage, err := browserCtx.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	session := &Session{
		id:      uuid.New().String(),
		pw:      pw,
		browser: browser,
		context: browserCtx,
	}
	session.page = &Page{
		page:    pwPage,
		session: session,
		state:   &PageState{},
		log:     logging.WithComponent("browser").WithField("session", session.id[:8]),
		subs:    make(map[int]func(Response)),
	}
	setupPageListeners(session.page)

	session.page.log.Infof("launched chromium (headless=%v)", opts.Headless)
	return session, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Page returns the session's page.
func (s *Session) Page() *Page {
	return s.page
}

// Close closes the browser. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.page.mu.Lock()
	s.page.closed = true
	s.page.subs = make(map[int]func(Response))
	s.page.mu.Unlock()

	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	s.page.log.Info("browser closed")
	return nil
}

// Close closes the owning session.
func (p *Page) Close() error {
	return p.session.Close()
}

// State returns the current URL and title with the most recent page
// errors. URL and title are left as last seen once the page is closed.
func (p *Page) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.state.URL = p.page.URL()
		p.state.Title, _ = p.page.Title()
	}
	st := *p.state
	st.Errors = append([]PageError(nil), p.state.Errors...)
	return st
}

// OnResponse adds a response subscriber.
func (p *Page) OnResponse(fn func(Response)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Page) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func setupPageListeners(page *Page) {
	pwPage := page.page

	// One permanent listener fans out to subscribers. Only metadata is read
	// here; the body is fetched later by whoever consumes the response.
	pwPage.OnResponse(func(r playwright.Response) {
		page.mu.RLock()
		if len(page.subs) == 0 {
			page.mu.RUnlock()
			return
		}
		subs := make([]func(Response), 0, len(page.subs))
		for _, fn := range page.subs {
			subs = append(subs, fn)
		}
		page.mu.RUnlock()

		resp := &pwResponse{
			resp:    r,
			url:     r.URL(),
			status:  r.Status(),
			method:  r.Request().Method(),
			headers: r.Headers(),
		}
		for _, fn := range subs {
			fn(resp)
		}
	})

	// Page errors
	pwPage.OnPageError(func(err error) {
		page.mu.Lock()
		defer page.mu.Unlock()

		page.state.Errors = append(page.state.Errors, PageError{
			Message:   err.Error(),
			Timestamp: time.Now(),
		})

		if len(page.state.Errors) > maxPageErrors {
			page.state.Errors = page.state.Errors[len(page.state.Errors)-maxPageErrors:]
		}
	})

	// Page close
	pwPage.OnClose(func(playwright.Page) {
		page.mu.Lock()
		defer page.mu.Unlock()
		page.closed = true
	})
}

// pwResponse adapts a Playwright response to Response.
type pwResponse struct {
	resp    playwright.Response
	url     string
	status  int
	method  string
	headers map[string]string
}

func (r *pwResponse) URL() string    { return r.url }
func (r *pwResponse) Method() string { return r.method }
func (r *pwResponse) Status() int    { return r.status }

// Header returns a response header; Playwright lower-cases header names.
func (r *pwResponse) Header(name string) string {
	if v, ok := r.headers[name]; ok {
		return v
	}
	v, _ := r.resp.HeaderValue(name)
	return v
}

func (r *pwResponse) Body() ([]byte, error) {
	return r.resp.Body()
}
