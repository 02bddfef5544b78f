package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/client"
	"github.com/neboloop/cocosbot/internal/keyring"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withSession launches the browser, logs in and runs fn. The browser is
// closed when fn returns.
func withSession(m *metrics.Metrics, fn func(ctx context.Context, c *client.Client) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	creds, err := keyring.Credentials(keyring.OS)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	c, err := client.New(ctx, *AppConfig, creds, client.WithMetrics(m))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logging.Warnf("close browser: %v", err)
		}
		if err := browser.Shutdown(); err != nil {
			logging.Warnf("stop playwright: %v", err)
		}
	}()

	if err := c.Login(ctx); err != nil {
		return err
	}
	return fn(ctx, c)
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printData prints v, or reports no data without failing the command.
func printData(v any, err error) error {
	if errors.Is(err, browser.ErrNoData) {
		fmt.Fprintf(os.Stderr, "no data: %s\n", browser.ReasonOf(err))
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(v)
}
