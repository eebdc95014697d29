package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBackend          = "storage.backend"
	keyRootFolder       = "storage.root_folder"
	keyLocalDir         = "storage.local_dir"
	keyPageSize         = "drive.page_size"
	keyMaxRetries       = "retry.max_retries"
	keyBaseDelayMS      = "retry.base_delay_ms"
	keyMaxDelayMS       = "retry.max_delay_ms"
	keyRetryAll         = "retry.retry_all"
	keyBreakerEnabled   = "breaker.enabled"
	keyLoadConcurrency  = "load.concurrency"
	keyLoadVerifyIndex  = "load.verify_index"
	keyAuthAccessToken  = "auth.access_token"
	keyAuthTokenFile    = "auth.token_file"
	keyAuthClientID     = "auth.client_id"
	keyAuthClientSecret = "auth.client_secret"
	keyCacheEnabled     = "cache.enabled"
	keyCacheDir         = "cache.dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	if s.configStore == nil {
		return nil, domain.ErrNotImplemented
	}
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend:    s.getBackend(defaults.Storage.Backend),
			RootFolder: s.getString(keyRootFolder, defaults.Storage.RootFolder),
			LocalDir:   s.configStore.GetString(keyLocalDir), // Resolved against the config dir by the CLI
			PageSize:   int64(s.getInt(keyPageSize, int(defaults.Storage.PageSize))),
		},
		Retry: domain.RetrySettings{
			MaxRetries:     s.getInt(keyMaxRetries, defaults.Retry.MaxRetries),
			BaseDelay:      s.getMillis(keyBaseDelayMS, defaults.Retry.BaseDelay),
			MaxDelay:       s.getMillis(keyMaxDelayMS, defaults.Retry.MaxDelay),
			RetryAll:       s.getBool(keyRetryAll, defaults.Retry.RetryAll),
			BreakerEnabled: s.getBool(keyBreakerEnabled, defaults.Retry.BreakerEnabled),
		},
		Load: domain.LoadSettings{
			Concurrency: s.getInt(keyLoadConcurrency, defaults.Load.Concurrency),
			VerifyIndex: s.getBool(keyLoadVerifyIndex, defaults.Load.VerifyIndex),
		},
		Auth: domain.AuthSettings{
			AccessToken:  s.configStore.GetString(keyAuthAccessToken),
			TokenFile:    s.configStore.GetString(keyAuthTokenFile),
			ClientID:     s.configStore.GetString(keyAuthClientID),
			ClientSecret: s.configStore.GetString(keyAuthClientSecret),
		},
		Cache: domain.CacheSettings{
			Enabled: s.getBool(keyCacheEnabled, defaults.Cache.Enabled),
			Dir:     s.configStore.GetString(keyCacheDir),
		},
	}

	return settings, nil
}

// Save persists application settings.
// Secrets are only written when set, so an empty value never clears a stored one.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	values := []struct {
		key   string
		value any
	}{
		{keyBackend, settings.Storage.Backend.String()},
		{keyRootFolder, settings.Storage.RootFolder},
		{keyLocalDir, settings.Storage.LocalDir},
		{keyPageSize, settings.Storage.PageSize},
		{keyMaxRetries, settings.Retry.MaxRetries},
		{keyBaseDelayMS, settings.Retry.BaseDelay.Milliseconds()},
		{keyMaxDelayMS, settings.Retry.MaxDelay.Milliseconds()},
		{keyRetryAll, settings.Retry.RetryAll},
		{keyBreakerEnabled, settings.Retry.BreakerEnabled},
		{keyLoadConcurrency, settings.Load.Concurrency},
		{keyLoadVerifyIndex, settings.Load.VerifyIndex},
		{keyAuthTokenFile, settings.Auth.TokenFile},
		{keyAuthClientID, settings.Auth.ClientID},
		{keyCacheEnabled, settings.Cache.Enabled},
		{keyCacheDir, settings.Cache.Dir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Auth.AccessToken != "" {
		if err := s.configStore.Set(keyAuthAccessToken, settings.Auth.AccessToken); err != nil {
			return fmt.Errorf("save %s: %w", keyAuthAccessToken, err)
		}
	}
	if settings.Auth.ClientSecret != "" {
		if err := s.configStore.Set(keyAuthClientSecret, settings.Auth.ClientSecret); err != nil {
			return fmt.Errorf("save %s: %w", keyAuthClientSecret, err)
		}
	}

	return nil
}

// SetBackend updates the storage backend.
func (s *SettingsService) SetBackend(backend domain.StorageBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: invalid storage backend %q", domain.ErrInvalidInput, backend)
	}
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	return s.configStore.Set(keyBackend, backend.String())
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: invalid storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	if settings.Storage.RootFolder == "" {
		return fmt.Errorf("%w: storage.root_folder is empty", domain.ErrInvalidInput)
	}
	if settings.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries must not be negative", domain.ErrInvalidInput)
	}
	if settings.Load.Concurrency < 1 {
		return fmt.Errorf("%w: load.concurrency must be at least 1", domain.ErrInvalidInput)
	}
	auth := settings.Auth
	if settings.Storage.Backend.RequiresAuth() && auth.AccessToken == "" && auth.TokenFile == "" && !auth.HasOAuthClient() {
		return fmt.Errorf("backend %q: %w", settings.Storage.Backend.Description(), domain.ErrAuthRequired)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
