package browser

import (
	"os"

	"github.com/neboloop/cocosbot/internal/config"
)

// LaunchOptions configures the managed Chromium instance.
type LaunchOptions struct {
	// Headless runs the browser without UI.
	Headless bool

	// ExecutablePath overrides the Playwright-bundled Chromium.
	ExecutablePath string

	// SlowMo delays every Playwright operation by this many milliseconds.
	SlowMo float64

	ViewportWidth  int
	ViewportHeight int

	// NoSandbox disables the Chrome sandbox (needed in some containers).
	NoSandbox bool
}

// LaunchOptionsFrom maps the browser section of c onto LaunchOptions.
func LaunchOptionsFrom(c config.Config) LaunchOptions {
	return LaunchOptions{
		Headless:       c.Browser.Headless,
		ExecutablePath: c.Browser.ExecutablePath,
		SlowMo:         c.Browser.SlowMoMs,
		ViewportWidth:  c.Browser.ViewportWidth,
		ViewportHeight: c.Browser.ViewportHeight,
		NoSandbox:      os.Getenv("COCOS_NO_SANDBOX") == "1",
	}
}
