package domain

import "time"

const unknownDescription = "Unknown"

// StorageBackend identifies which object store holds the data.
type StorageBackend string

// Available storage backends.
const (
	// BackendDrive stores files in Google Drive.
	BackendDrive StorageBackend = "drive"

	// BackendLocal stores files in a local directory with the same layout.
	BackendLocal StorageBackend = "local"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case BackendDrive, BackendLocal:
		return true
	default:
		return false
	}
}

// RequiresAuth returns true if this backend needs an access token.
func (b StorageBackend) RequiresAuth() bool {
	return b == BackendDrive
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case BackendDrive:
		return "Google Drive"
	case BackendLocal:
		return "Local directory"
	default:
		return unknownDescription
	}
}

// StorageSettings selects and locates the object store.
type StorageSettings struct {
	// Backend is the object store implementation.
	Backend StorageBackend

	// RootFolder is the name of the top-level folder.
	RootFolder string

	// LocalDir is the base directory for the local backend.
	LocalDir string

	// PageSize is the list page size for the Drive backend.
	PageSize int64
}

// RetrySettings configures the remote call wrapper.
type RetrySettings struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay; later delays double.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay.
	MaxDelay time.Duration

	// RetryAll retries every failure, including authorisation and not-found errors.
	RetryAll bool

	// BreakerEnabled wraps store calls in a circuit breaker.
	BreakerEnabled bool
}

// LoadSettings tunes the load path.
type LoadSettings struct {
	// Concurrency bounds parallel file downloads.
	Concurrency int

	// VerifyIndex ignores the index files and always lists folders.
	VerifyIndex bool
}

// AuthSettings locates credentials for the Drive backend.
type AuthSettings struct {
	AccessToken  string
	TokenFile    string
	ClientID     string
	ClientSecret string
}

// HasOAuthClient returns true if a refreshable OAuth client is configured.
func (a AuthSettings) HasOAuthClient() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

// CacheSettings configures the local snapshot cache.
type CacheSettings struct {
	Enabled bool
	Dir     string
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Storage StorageSettings
	Retry   RetrySettings
	Load    LoadSettings
	Auth    AuthSettings
	Cache   CacheSettings
}

// DefaultAppSettings returns the settings used when nothing is configured.
// Paths are left empty and resolved against the config directory by the caller.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend:    BackendDrive,
			RootFolder: "rolodex",
			PageSize:   100,
		},
		Retry: RetrySettings{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   8 * time.Second,
		},
		Load: LoadSettings{
			Concurrency: 4,
		},
		Cache: CacheSettings{
			Enabled: true,
		},
	}
}

// AllStorageBackends returns all available backends.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{BackendDrive, BackendLocal}
}
