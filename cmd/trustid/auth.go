package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trustid/internal/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with credentials or through Google",
	Long: `Sign in and persist the session record.

Examples:
  trustid login --email a@b.com                  # Customer credential login
  trustid login --email ops@bank.com --role employee
  trustid login --provider                       # Print the Google sign-in URL
  trustid login --callback 'http://localhost:5173/auth-callback?id=...'`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("role", string(domain.RoleCustomer), "customer or employee")
	loginCmd.Flags().Bool("provider", false, "start a Google sign-in and print the URL to open")
	loginCmd.Flags().String("callback", "", "callback URL or query string from a finished Google sign-in")
	loginCmd.MarkFlagsMutuallyExclusive("email", "provider", "callback")
}

// withApp runs fn against a freshly wired app and releases it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()
	return fn(ctx, a)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	roleFlag, _ := cmd.Flags().GetString("role")
	provider, _ := cmd.Flags().GetBool("provider")
	callback, _ := cmd.Flags().GetString("callback")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		switch {
		case provider:
			loginURL, err := a.auth.BeginProviderLogin(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Open this URL to continue with Google:")
			fmt.Fprintln(out, color.CyanString(loginURL))
			return nil

		case callback != "":
			query, err := callbackQuery(callback)
			if err != nil {
				return err
			}
			user, err := a.auth.CompleteProviderLogin(ctx, query)
			if err != nil {
				return err
			}
			printIdentity(cmd, user)
			return nil

		default:
			if email == "" {
				return fmt.Errorf("one of --email, --provider or --callback is required")
			}
			role, ok := domain.ParseRole(roleFlag)
			if !ok {
				return fmt.Errorf("unknown role %q", roleFlag)
			}
			user, err := a.auth.LoginWithCredentials(ctx, email, role)
			if err != nil {
				return err
			}
			printIdentity(cmd, user)
			return nil
		}
	})
}

// callbackQuery accepts a full callback URL or a bare query string.
func callbackQuery(raw string) (url.Values, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	query, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse callback: %w", err)
	}
	return query, nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Signed out"))
		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		s := a.auth.Session()
		if !s.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("Not signed in"))
			return nil
		}
		printIdentity(cmd, *s.Identity)
		return nil
	})
}

func printIdentity(cmd *cobra.Command, user domain.Identity) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s <%s>\n", color.GreenString("Signed in as"), user.DisplayName, user.Email)
	fmt.Fprintf(out, "  id:   %s\n", user.ID)
	fmt.Fprintf(out, "  role: %s\n", user.Role)
	fmt.Fprintf(out, "  home: %s\n", user.Role.Home())
}
