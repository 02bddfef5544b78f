// Package auth drives the broker's login and logout screens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/twofactor"
	"github.com/neboloop/cocosbot/internal/types"
)

var (
	// ErrAuthentication is matched by every login failure.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTwoFactor means the verification code was missing or malformed.
	ErrTwoFactor = errors.New("two-factor verification failed")
)

// Login phases, reported in Error.Phase.
const (
	PhaseValidate        = "validate credentials"
	PhaseNavigate        = "open login page"
	PhaseCredentials     = "enter credentials"
	PhaseSubmit          = "submit"
	PhaseTwoFactorScreen = "wait two-factor screen"
	PhaseRetrieveCode    = "retrieve code"
	PhaseCheckCode       = "check code"
	PhaseEnterCode       = "enter code"
)

// Error reports the login phase that failed.
type Error struct {
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed at %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrAuthentication }

// State is a position in the login sequence.
type State int

const (
	LoggedOut State = iota
	CredentialsEntered
	TwoFactorPending
	DeviceTrustPrompt
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case CredentialsEntered:
		return "credentials entered"
	case TwoFactorPending:
		return "two-factor pending"
	case DeviceTrustPrompt:
		return "device trust prompt"
	case LoggedIn:
		return "logged in"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// CodeSource supplies the mailed verification code.
type CodeSource interface {
	Code(ctx context.Context) (string, error)
}

// Workflow runs login and logout against one bridge.
type Workflow struct {
	bridge   *browser.Bridge
	urls     config.URLTable
	sel      config.SelectorTable
	codes    CodeSource
	timeouts config.Timeouts
	metrics  *metrics.Metrics
	log      *logging.Entry

	state State
}

// New returns a logged-out workflow.
func New(b *browser.Bridge, urls config.URLTable, sel config.SelectorTable, codes CodeSource, timeouts config.Timeouts, m *metrics.Metrics) *Workflow {
	return &Workflow{
		bridge:   b,
		urls:     urls,
		sel:      sel,
		codes:    codes,
		timeouts: timeouts,
		metrics:  m,
		log:      logging.WithComponent("auth"),
	}
}

// State returns the current position in the login sequence.
func (w *Workflow) State() State {
	return w.state
}

func (w *Workflow) fail(phase string, err error) error {
	w.state = LoggedOut
	w.metrics.WorkflowFailed("auth", phase)
	w.log.WithError(err).Warnf("login failed at %s", phase)
	return &Error{Phase: phase, Err: err}
}

// Login signs in with creds, entering the mailed verification code. Every
// attempt starts from the login page. The device trust prompt is
// dismissed when it shows up; its absence is not an error.
func (w *Workflow) Login(ctx context.Context, creds types.Credentials) error {
	w.state = LoggedOut

	if err := types.ValidateCredentials(creds); err != nil {
		return w.fail(PhaseValidate, err)
	}
	// Page steps run to completion; only the code retrieval honors ctx.
	ui := context.WithoutCancel(ctx)

	if err := w.bridge.Navigate(ui, w.urls.Page(config.PageLogin)); err != nil {
		return w.fail(PhaseNavigate, err)
	}

	if err := w.bridge.FillInput(ui, w.sel.Get(config.LoginEmailInput), creds.PrincipalID); err != nil {
		return w.fail(PhaseCredentials, err)
	}
	if err := w.bridge.FillInput(ui, w.sel.Get(config.LoginPasswordInput), creds.Secret); err != nil {
		return w.fail(PhaseCredentials, err)
	}
	w.state = CredentialsEntered

	if err := w.bridge.ClickElement(ui, w.sel.Get(config.LoginSubmitButton)); err != nil {
		return w.fail(PhaseSubmit, err)
	}

	err := w.bridge.WaitForElement(ui, w.sel.Get(config.LoginTwoFactorContainer), w.timeouts.TwoFactorScreen, browser.StateVisible)
	if err != nil {
		return w.fail(PhaseTwoFactorScreen, err)
	}
	w.state = TwoFactorPending

	code, err := w.codes.Code(ctx)
	if err != nil {
		if errors.Is(err, twofactor.ErrNoCode) {
			err = fmt.Errorf("%w: %w", ErrTwoFactor, err)
		}
		return w.fail(PhaseRetrieveCode, err)
	}
	// Checked before touching any digit input.
	if !twofactor.ValidCode(code) {
		return w.fail(PhaseCheckCode, fmt.Errorf("%w: code %q is not six digits", ErrTwoFactor, code))
	}

	for i, digit := range code {
		input := w.sel.Render(config.TwoFactorDigit, i+1)
		if err := w.bridge.FillInput(ui, input, string(digit)); err != nil {
			return w.fail(PhaseEnterCode, fmt.Errorf("digit %d: %w", i+1, err))
		}
	}
	w.state = DeviceTrustPrompt

	w.dismissTrustPrompt(ui)

	w.state = LoggedIn
	w.log.Info("logged in")
	return nil
}

func (w *Workflow) dismissTrustPrompt(ctx context.Context) {
	button := w.sel.Get(config.LoginSaveDeviceButton)
	if err := w.bridge.WaitForElement(ctx, button, w.timeouts.TrustPrompt, browser.StateVisible); err != nil {
		w.log.Debug("device trust prompt not shown")
		return
	}
	if err := w.bridge.ClickElement(ctx, button); err != nil {
		w.log.WithError(err).Debug("device trust prompt not dismissed")
	}
}

// Logout signs out from the authenticated landing page. The steps are
// not interrupted by cancelling ctx.
func (w *Workflow) Logout(ctx context.Context) types.Outcome {
	ctx = context.WithoutCancel(ctx)
	steps := []struct {
		name string
		run  func() error
	}{
		{"open dashboard", func() error { return w.bridge.Navigate(ctx, w.urls.Page(config.PageDashboard)) }},
		{"click logout", func() error { return w.bridge.ClickElement(ctx, w.sel.Get(config.NavLogoutIcon)) }},
		{"wait login form", func() error {
			return w.bridge.WaitForElement(ctx, w.sel.Get(config.LoginEmailInput), w.timeouts.Default, browser.StateVisible)
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			w.metrics.WorkflowFailed("logout", step.name)
			w.log.WithError(err).Warnf("logout failed at %s", step.name)
			return types.Failed(step.name, err)
		}
	}
	w.state = LoggedOut
	w.log.Info("logged out")
	return types.Succeeded()
}
