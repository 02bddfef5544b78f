// Package browser drives a single Playwright page for the brokerage web
// application and correlates page actions with the backend responses they
// cause.
package browser

import "time"

const (
	// DefaultTimeout bounds element waits and navigations when the caller
	// does not pass one.
	DefaultTimeout = 10 * time.Second

	// DefaultFetchTimeout bounds a correlation window.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultKeystrokeDelay is the pause between characters in delayed typing.
	DefaultKeystrokeDelay = 100 * time.Millisecond

	// maxPageErrors caps the page errors kept for failure reports.
	maxPageErrors = 50
)

// WaitState is the element state a wait blocks for.
type WaitState string

const (
	StateVisible  WaitState = "visible"
	StateAttached WaitState = "attached"
	StateHidden   WaitState = "hidden"
	StateDetached WaitState = "detached"
)
