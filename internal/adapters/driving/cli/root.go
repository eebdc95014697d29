// Package cli implements the rolodex command line on top of the core services.
//
// Commands never construct adapters themselves. The binary passes a
// Bootstrap to Execute, and the first command that needs the store calls it
// to build a Session.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
	"github.com/custodia-labs/rolodex/internal/core/services"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// Options carries the global flags to the Bootstrap.
type Options struct {
	ConfigDir string
	Offline   bool
}

// FolderWatcher blocks until ctx is done, calling onChange with the IDs of
// files that changed under any of the folders.
type FolderWatcher func(
	ctx context.Context, folderIDs []string, onChange func(ctx context.Context, changed []string) error,
) error

// AuthSession is what `auth` needs from an authenticated backend.
type AuthSession struct {
	// Config builds the OAuth client for a loopback redirect URL.
	Config func(redirectURL string) (*oauth2.Config, error)
	// SaveToken persists the token obtained by `auth login`.
	SaveToken func(tok *oauth2.Token) error
	// TokenSource supplies the current access token.
	TokenSource oauth2.TokenSource
	// WhoAmI looks up the account the token belongs to.
	WhoAmI func(ctx context.Context) (*Account, error)
}

// Account identifies the signed-in user.
type Account struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Verified bool   `json:"verified"`
}

// Session holds the services one invocation works with.
type Session struct {
	Settings  *domain.AppSettings
	Config    driving.SettingsService
	Workspace *services.Workspace
	Transfer  driving.TransferService

	// Watch is nil when the backend cannot report changes.
	Watch FolderWatcher
	// Auth is nil when the backend needs no credentials.
	Auth *AuthSession
	// ResolveURL turns a stored file reference into a browser link. May be nil.
	ResolveURL func(ref domain.FileRef) string
	// Close releases resources held by the session. May be nil.
	Close func() error
}

// Bootstrap builds the session from the global flags.
type Bootstrap func(ctx context.Context, opts Options) (*Session, error)

// Global flags.
var (
	verbose      bool
	configDir    string
	offline      bool
	outputFormat string
)

var (
	bootstrap Bootstrap
	session   *Session
)

var rootCmd = &cobra.Command{
	Use:   "rolodex",
	Short: "Contact and meeting tracker stored in Google Drive",
	Long: `Rolodex keeps contacts, meeting notes and follow-up todos as JSON files
in a Google Drive folder (or a local directory), with index files for fast
loading and CSV import and export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetVerbose(verbose)

		switch outputFormat {
		case outputTable, outputJSON, outputYAML:
			return nil
		default:
			return fmt.Errorf("unknown output format %q (use table, json or yaml)", outputFormat)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.rolodex)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Read from the local cache without contacting the store")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputTable, "Output format: table, json or yaml")
}

// Execute runs the command line. b is called at most once, by the first
// command that needs the store.
func Execute(ctx context.Context, b Bootstrap) error {
	bootstrap = b
	defer closeSession()
	return rootCmd.ExecuteContext(ctx)
}

// currentSession returns the session, building it on first use.
func currentSession(cmd *cobra.Command) (*Session, error) {
	if session != nil {
		return session, nil
	}
	if bootstrap == nil {
		return nil, errors.New("rolodex is not configured")
	}

	s, err := bootstrap(cmd.Context(), Options{ConfigDir: configDir, Offline: offline})
	if err != nil {
		return nil, err
	}
	if s.Workspace == nil {
		return nil, errors.New("workspace not configured")
	}
	if s.Transfer == nil {
		s.Transfer = services.NewTransferService()
	}
	if s.Settings == nil {
		defaults := domain.DefaultAppSettings()
		s.Settings = &defaults
	}
	session = s
	return session, nil
}

// openRepository builds the session and loads the repository.
func openRepository(cmd *cobra.Command) (*Session, *services.Repository, error) {
	s, err := currentSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	repo, err := s.Workspace.Open(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load data: %w", err)
	}
	if res := s.Workspace.LoadResult(); res != nil && res.Skipped > 0 {
		logger.Warn("%d files could not be read and were skipped", res.Skipped)
	}
	return s, repo, nil
}

func closeSession() {
	if session == nil {
		return
	}
	if session.Close != nil {
		if err := session.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	session = nil
}
