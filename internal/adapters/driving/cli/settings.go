package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change settings",
	Long: `View the settings read from config.toml and switch the storage backend.

Other keys are edited directly in the file; see 'rolodex settings show'
for the effective values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsBackendCmd = &cobra.Command{
	Use:   "backend [drive|local]",
	Short: "Select the storage backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsBackend,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingsView is the serialised form of the settings with secrets masked.
type settingsView struct {
	Backend         string `json:"backend"`
	RootFolder      string `json:"rootFolder"`
	LocalDir        string `json:"localDir,omitempty"`
	PageSize        int64  `json:"pageSize"`
	MaxRetries      int    `json:"maxRetries"`
	BaseDelay       string `json:"baseDelay"`
	MaxDelay        string `json:"maxDelay"`
	RetryAll        bool   `json:"retryAll"`
	Breaker         bool   `json:"breaker"`
	LoadConcurrency int    `json:"loadConcurrency"`
	VerifyIndex     bool   `json:"verifyIndex"`
	AccessToken     string `json:"accessToken,omitempty"`
	TokenFile       string `json:"tokenFile,omitempty"`
	ClientID        string `json:"clientId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	CacheEnabled    bool   `json:"cacheEnabled"`
	CacheDir        string `json:"cacheDir,omitempty"`
	Problem         string `json:"problem,omitempty"`
}

func newSettingsView(s *domain.AppSettings) settingsView {
	v := settingsView{
		Backend:         s.Storage.Backend.String(),
		RootFolder:      s.Storage.RootFolder,
		LocalDir:        s.Storage.LocalDir,
		PageSize:        s.Storage.PageSize,
		MaxRetries:      s.Retry.MaxRetries,
		BaseDelay:       s.Retry.BaseDelay.String(),
		MaxDelay:        s.Retry.MaxDelay.String(),
		RetryAll:        s.Retry.RetryAll,
		Breaker:         s.Retry.BreakerEnabled,
		LoadConcurrency: s.Load.Concurrency,
		VerifyIndex:     s.Load.VerifyIndex,
		TokenFile:       s.Auth.TokenFile,
		ClientID:        s.Auth.ClientID,
		CacheEnabled:    s.Cache.Enabled,
		CacheDir:        s.Cache.Dir,
	}
	if s.Auth.AccessToken != "" {
		v.AccessToken = maskSecret(s.Auth.AccessToken)
	}
	if s.Auth.ClientSecret != "" {
		v.ClientSecret = maskSecret(s.Auth.ClientSecret)
	}
	return v
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s, err := currentSession(cmd)
	if err != nil {
		return err
	}
	if s.Config == nil {
		return errors.New("settings service not configured")
	}

	settings, err := s.Config.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	view := newSettingsView(settings)
	if err := s.Config.Validate(); err != nil {
		view.Problem = err.Error()
	}

	return render(cmd, view, func(w io.Writer, st *styles) {
		fmt.Fprintln(w, st.Title.Render("[Storage]"))
		st.field(w, "  Backend", settings.Storage.Backend.Description())
		st.field(w, "  Root folder", view.RootFolder)
		st.field(w, "  Local dir", view.LocalDir)
		st.field(w, "  Page size", strconv.FormatInt(view.PageSize, 10))
		fmt.Fprintln(w)

		fmt.Fprintln(w, st.Title.Render("[Retry]"))
		st.field(w, "  Max retries", strconv.Itoa(view.MaxRetries))
		st.field(w, "  Delay", view.BaseDelay+" doubling to "+view.MaxDelay)
		st.field(w, "  Retry all errors", yesNo(view.RetryAll))
		st.field(w, "  Circuit breaker", yesNo(view.Breaker))
		fmt.Fprintln(w)

		fmt.Fprintln(w, st.Title.Render("[Load]"))
		st.field(w, "  Concurrency", strconv.Itoa(view.LoadConcurrency))
		st.field(w, "  Verify index", yesNo(view.VerifyIndex))
		fmt.Fprintln(w)

		fmt.Fprintln(w, st.Title.Render("[Auth]"))
		st.field(w, "  Access token", view.AccessToken)
		st.field(w, "  Token file", view.TokenFile)
		st.field(w, "  Client ID", view.ClientID)
		st.field(w, "  Client secret", view.ClientSecret)
		fmt.Fprintln(w)

		fmt.Fprintln(w, st.Title.Render("[Cache]"))
		st.field(w, "  Enabled", yesNo(view.CacheEnabled))
		st.field(w, "  Directory", view.CacheDir)
		fmt.Fprintln(w)

		if view.Problem != "" {
			fmt.Fprintln(w, st.Warning.Render("Warning: "+view.Problem))
		} else {
			fmt.Fprintln(w, "Configuration is valid.")
		}
	})
}

func runSettingsBackend(cmd *cobra.Command, args []string) error {
	s, err := currentSession(cmd)
	if err != nil {
		return err
	}
	if s.Config == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.StorageBackend(args[0])
	if err := s.Config.SetBackend(backend); err != nil {
		return fmt.Errorf("failed to set backend: %w", err)
	}
	cmd.Printf("Storage backend set to: %s\n", backend.Description())
	if backend.RequiresAuth() {
		cmd.Println("Run 'rolodex auth login' if you have not signed in yet.")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
