package config

// Defaults not owned by another package.
const (
	DefaultRepositoryPath = "."
	DefaultLogLevel       = "warn"
)
