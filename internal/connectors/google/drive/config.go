package drive

// Config holds Google Drive store configuration.
type Config struct {
	// PageSize is the page size for files.list requests.
	PageSize int64
}

// MaxPageSize is the largest page Drive accepts for files.list.
const MaxPageSize = 1000

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{PageSize: 100}
}

// NewConfig returns a configuration with pageSize clamped to what Drive
// accepts. Non-positive sizes fall back to the default.
func NewConfig(pageSize int64) *Config {
	cfg := DefaultConfig()
	switch {
	case pageSize > MaxPageSize:
		cfg.PageSize = MaxPageSize
	case pageSize > 0:
		cfg.PageSize = pageSize
	}
	return cfg
}
