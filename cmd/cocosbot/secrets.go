package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/cocosbot/internal/keyring"
	"github.com/neboloop/cocosbot/internal/middleware"
)

// SecretsCmd manages credentials in the OS keychain.
func SecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store or remove credentials in the OS keychain",
		Long:  "Secret names: " + strings.Join(keyring.Names, ", "),
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <name>",
		Short:     "Read a secret from stdin and store it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: keyring.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "%s: ", args[0])
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read secret: %w", err)
			}
			if err := keyring.Set(keyring.OS, args[0], strings.TrimRight(line, "\r\n")); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "stored %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "delete <name>",
		Short:     "Remove a stored secret",
		Args:      cobra.ExactArgs(1),
		ValidArgs: keyring.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return keyring.Delete(keyring.OS, args[0])
		},
	})
	return cmd
}

// TokenCmd mints a bearer token for the HTTP API.
func TokenCmd() *cobra.Command {
	var ttl time.Duration
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl == 0 {
				ttl = AppConfig.Server.TokenExpire
			}
			tok, err := middleware.MintToken(AppConfig.Server.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	return cmd
}
