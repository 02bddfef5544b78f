package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neboloop/cocosbot/internal/client"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/notify"
	"github.com/neboloop/cocosbot/internal/server"
	"github.com/neboloop/cocosbot/internal/watch"
)

// ServeCmd logs in once and serves the HTTP API on that session.
func ServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				AppConfig.Server.Addr = addr
			}
			if AppConfig.Server.JWTSecret == "" {
				return fmt.Errorf("set server.jwtSecret or COCOS_JWT_SECRET")
			}
			m := metrics.New()
			return withSession(m, func(ctx context.Context, c *client.Client) error {
				return server.Run(ctx, *AppConfig, c, m)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// WatchCmd logs a balance and MEP snapshot on a cron schedule.
func WatchCmd() *cobra.Command {
	var schedule string
	var desktop bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log balance and MEP quotes on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = AppConfig.Watch.Schedule
			}
			return withSession(nil, func(ctx context.Context, c *client.Client) error {
				var onSnap func(watch.Snapshot)
				if desktop {
					onSnap = func(s watch.Snapshot) {
						if err := notify.Send(ctx, "cocosbot", s.Summary()); err != nil {
							logging.Warnf("desktop notification: %v", err)
						}
					}
				}
				w, err := watch.New(c, schedule, 2*AppConfig.Timeouts.Fetch, onSnap)
				if err != nil {
					return err
				}
				return w.Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron spec or descriptor, e.g. "@every 15m" (default from config)`)
	cmd.Flags().BoolVar(&desktop, "notify", false, "show a desktop notification per snapshot")
	return cmd
}
