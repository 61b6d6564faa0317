// Package cmd implements the accessctl commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hospitalhub/accessgate/internal/cliconfig"
	"github.com/hospitalhub/accessgate/internal/client"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
)

var (
	flagJSON      bool
	flagVerbose   bool
	flagServerURL string
	flagAPIURL    string

	cfg       *cliconfig.Config
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "accessctl",
	Short: "Manage access codes and make gated changes to hospital records",
	Long: `accessctl issues and revokes access codes and performs create, update and
delete operations on hospital records. Every record change asks for a valid
access code first.

Get started:
  accessctl login --username admin       Sign in as an administrator
  accessctl codes generate               Issue a code valid for one hour
  accessctl records delete patients 42   Delete a record (asks for a code)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

		var err error
		cfg, err = cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagServerURL != "" {
			cfg.ServerURL = flagServerURL
		}
		if flagAPIURL != "" {
			cfg.APIURL = flagAPIURL
		}
		apiClient = client.New(cfg.ServerURL, cfg.APIURL, cfg.Token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Access code server URL (default: from config or "+cliconfig.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api", "", "Hospital API base URL (default: from config or "+cliconfig.DefaultAPIURL+")")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func requireAuth() error {
	if cfg == nil || !cfg.HasToken() {
		return errors.New(`not authenticated, run "accessctl login" first`)
	}
	return nil
}

// describe turns client errors into something an operator can act on.
func describe(action string, err error) error {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrTransport):
		return fmt.Errorf("%s: %w", action, apperrors.External("accessgate server unreachable", err))
	case errors.As(err, &apiErr) && apiErr.Status == 401:
		return fmt.Errorf(`%s: session expired, run "accessctl login" again`, action)
	case errors.As(err, &apiErr):
		return fmt.Errorf("%s: %s", action, apiErr.Message)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
