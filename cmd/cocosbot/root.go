package cli

import (
	"github.com/spf13/cobra"

	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/logging"
)

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	AppConfig = c

	rootCmd := &cobra.Command{
		Use:   "cocosbot",
		Short: "cocosbot - Cocos Capital automation",
		Long: `cocosbot drives the Cocos Capital web application in a headless browser.

Every data command logs in first, answering the emailed verification code
from the configured mailbox. Credentials come from COCOS_USERNAME,
COCOS_PASSWORD, GMAIL_USER and GMAIL_APP_PASS, or from the OS keychain
(see 'cocosbot secrets').`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				if err := AppConfig.MergeFile(cfgFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("headless") {
				AppConfig.Browser.Headless = headless
			}
			opts := logging.Options{
				Level:      AppConfig.Logging.Level,
				Format:     AppConfig.Logging.Format,
				File:       AppConfig.Logging.File,
				MaxSizeMB:  AppConfig.Logging.MaxSizeMB,
				MaxBackups: AppConfig.Logging.MaxBackups,
			}
			if verbose {
				opts.Level = "debug"
			}
			return logging.Configure(opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file merged over the built-in defaults")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser without a window")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Add commands
	rootCmd.AddCommand(dataCmds()...)
	rootCmd.AddCommand(MEPCmd())
	rootCmd.AddCommand(TickerCmd())
	rootCmd.AddCommand(OrderCmd())
	rootCmd.AddCommand(CancelCmd())
	rootCmd.AddCommand(AccountsCmd())
	rootCmd.AddCommand(WithdrawCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(WatchCmd())
	rootCmd.AddCommand(SecretsCmd())
	rootCmd.AddCommand(TokenCmd())

	return rootCmd
}
