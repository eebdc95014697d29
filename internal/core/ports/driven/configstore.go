package driven

// ConfigStore holds flat configuration values under dotted keys such as
// "storage.backend". Typed getters return the zero value for a missing key
// or a value of another type; use Get to tell the two apart.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores a value and writes the configuration through.
	Set(key string, value any) error

	// Path is where the configuration lives.
	Path() string
}
