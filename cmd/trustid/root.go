package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trustid/internal/platform/config"
	"trustid/internal/platform/logger"
)

var (
	apiURL         string
	sessionBackend string
	verbose        bool
	cfg            config.Config
	log            *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trustid",
	Short: "KYC portal client",
	Long: `trustid signs a customer or bank employee in against the verification
service and walks customers through the KYC verification workflow.

Example usage:
  trustid serve                                # Run the portal HTTP surface
  trustid login --email a@b.com                # Sign in with credentials
  trustid login --provider                     # Print the Google sign-in URL
  trustid login --callback '<callback url>'    # Finish a Google sign-in
  trustid whoami                               # Show the current session
  trustid verify                               # Run a verification case
  trustid logout                               # End the session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "verification service base URL (default TRUSTID_API_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionBackend, "session-backend", "", "session record backend: file, redis or memory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func initConfig(cmd *cobra.Command) error {
	cfg = config.FromEnv()
	if apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(apiURL, "/")
	}
	if sessionBackend != "" {
		cfg.Session.Backend = strings.ToLower(sessionBackend)
	}

	// Interactive commands keep the terminal quiet unless asked otherwise.
	level := "warn"
	if verbose {
		level = "debug"
	} else if cmd.Name() == serveCmd.Name() {
		level = cfg.LogLevel
	}

	var err error
	log, err = logger.New(level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}
