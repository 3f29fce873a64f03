// Package config provides configuration management for the leapbind CLI.
//
// Configuration is layered: built-in defaults, then leapbind.yaml, then
// LEAPBIND_* environment variables, then command-line flags. A named
// environment can override the catalog source for a single invocation.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	CatalogFile  string               `koanf:"catalog"`
	Snapshot     string               `koanf:"snapshot"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`
	Bind         BindConfig           `koanf:"bind"`
	Source       *SourceConfig        `koanf:"source"`
	Serve        ServeConfig          `koanf:"serve"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// BindConfig controls how expressions are bound.
type BindConfig struct {
	// Scope lists the relations visible to bare expressions, each written
	// "relation" or "alias=relation".
	Scope          []string `koanf:"scope"`
	Params         []string `koanf:"params"`
	DefaultNumeric string   `koanf:"default_numeric"`
	MaxCastDepth   int      `koanf:"max_cast_depth"`
	CaseSensitive  bool     `koanf:"case_sensitive"`
}

// SourceConfig describes a live database whose information_schema supplies
// relation shapes.
type SourceConfig struct {
	DSN          string        `koanf:"dsn"`
	Schema       string        `koanf:"schema"`
	Composites   bool          `koanf:"composites"`
	Live         bool          `koanf:"live"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// ServeConfig holds configuration for the HTTP endpoint.
type ServeConfig struct {
	Addr string `koanf:"addr"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	CatalogFile string        `koanf:"catalog"`
	Snapshot    string        `koanf:"snapshot"`
	Source      *SourceConfig `koanf:"source"`
}

// Default configuration values.
const (
	DefaultStateFile    = ".leapbind/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel     = "warn"
	DefaultNumeric      = "numeric"
	DefaultMaxCastDepth = 2
	DefaultSchema       = "public"
	DefaultServeAddr    = "127.0.0.1:8787"
	DefaultFetchTimeout = 5 * time.Second
)

// HasSource reports whether a live database is configured.
func (c *Config) HasSource() bool {
	return c.Source != nil && c.Source.DSN != ""
}
