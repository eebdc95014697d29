package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/adapters/driving/oauth"
	"github.com/custodia-labs/rolodex/internal/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Drive credentials",
	Long: `Sign in to Google Drive and inspect the current credentials.

Set auth.client_id and auth.client_secret in config.toml before running
'rolodex auth login'. A short-lived token can instead be supplied through
the ROLODEX_ACCESS_TOKEN environment variable.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	Long: `Sign in through the browser with the OAuth authorisation code flow.

A temporary server on 127.0.0.1 receives the redirect; the resulting token,
including its refresh token, is written to auth.token_file.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoami,
}

// Flags for auth login.
var (
	authLoginPort      int
	authLoginNoBrowser bool
	authLoginTimeout   time.Duration
)

func init() {
	authLoginCmd.Flags().IntVar(&authLoginPort, "port", 0, "Port for the callback server (0 picks a free port)")
	authLoginCmd.Flags().BoolVar(&authLoginNoBrowser, "no-browser", false, "Print the URL instead of opening a browser")
	authLoginCmd.Flags().DurationVar(&authLoginTimeout, "timeout", 5*time.Minute, "How long to wait for the browser")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}

func authSession(cmd *cobra.Command) (*Session, error) {
	s, err := currentSession(cmd)
	if err != nil {
		return nil, err
	}
	if s.Auth == nil {
		return nil, fmt.Errorf("the %s backend needs no credentials", s.Settings.Storage.Backend)
	}
	return s, nil
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	s, err := authSession(cmd)
	if err != nil {
		return err
	}

	state := uuid.NewString()
	server := oauth.NewCallbackServer(authLoginPort, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Debug("stop callback server: %v", err)
		}
	}()

	cfg, err := s.Auth.Config(server.RedirectURI())
	if err != nil {
		return err
	}

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	cmd.Println("Open this URL to sign in:")
	cmd.Println()
	cmd.Println("  " + authURL)
	cmd.Println()
	if !authLoginNoBrowser {
		if err := oauth.OpenBrowser(authURL); err != nil {
			logger.Warn("could not open a browser: %v", err)
		}
	}
	cmd.Println("Waiting for authorisation...")

	ctx, cancel := context.WithTimeout(cmd.Context(), authLoginTimeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s waiting for the browser", authLoginTimeout)
		}
		return fmt.Errorf("authorisation failed: %w", err)
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange authorisation code: %w", err)
	}
	if tok.RefreshToken == "" {
		logger.Warn("no refresh token was issued; you will need to log in again when the token expires")
	}
	if err := s.Auth.SaveToken(tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	cmd.Println("Signed in.")
	return nil
}

// whoamiView is the serialised form of `auth whoami`.
type whoamiView struct {
	Account
	Token   string     `json:"token"`
	Expires *time.Time `json:"expires,omitempty"`
}

func runAuthWhoami(cmd *cobra.Command, _ []string) error {
	s, err := authSession(cmd)
	if err != nil {
		return err
	}
	if s.Auth.TokenSource == nil || s.Auth.WhoAmI == nil {
		return errors.New("auth service not configured")
	}

	tok, err := s.Auth.TokenSource.Token()
	if err != nil {
		return fmt.Errorf("no usable token: %w", err)
	}
	account, err := s.Auth.WhoAmI(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	view := whoamiView{Account: *account, Token: maskSecret(tok.AccessToken)}
	if !tok.Expiry.IsZero() {
		view.Expires = &tok.Expiry
	}

	return render(cmd, view, func(w io.Writer, st *styles) {
		st.field(w, "Account", view.Email)
		st.field(w, "Name", view.Name)
		st.field(w, "Token", view.Token)
		if view.Expires != nil {
			st.field(w, "Expires", view.Expires.Local().Format(time.RFC1123))
		}
	})
}
