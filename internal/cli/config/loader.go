package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

const envPrefix = "LEAPBIND_"

// configNames are the file names searched for, in order.
var configNames = []string{"leapbind.yaml", "leapbind.yml"}

// envSections are the nested config sections reachable from environment
// variables: LEAPBIND_SOURCE_DSN sets source.dsn.
var envSections = []string{"bind_", "source_", "serve_"}

// flagKeys maps flags whose names differ from their config key.
var flagKeys = map[string]string{
	"state":           "state_path",
	"dsn":             "source.dsn",
	"schema":          "source.schema",
	"live":            "source.live",
	"log-level":       "log_level",
	"default-numeric": "bind.default_numeric",
	"max-cast-depth":  "bind.max_cast_depth",
	"case-sensitive":  "bind.case_sensitive",
}

// skippedFlags select the config itself rather than a value in it.
var skippedFlags = map[string]bool{"config": true, "target": true}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn returns the config file in dir, if there is one.
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a leapbind config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := configExistsIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, absolute or ":memory:".
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey maps LEAPBIND_SOURCE_DSN to source.dsn and LEAPBIND_STATE_PATH to
// state_path.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range envSections {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration and applies the overrides of the
// named environment. An empty targetOverride selects cfg.Environment.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		cwd = "."
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":           DefaultStateFile,
		"verbose":              false,
		"log_level":            DefaultLogLevel,
		"output":               DefaultOutput,
		"bind.default_numeric": DefaultNumeric,
		"bind.max_cast_depth":  DefaultMaxCastDepth,
		"source.schema":        DefaultSchema,
		"source.fetch_timeout": DefaultFetchTimeout.String(),
		"serve.addr":           DefaultServeAddr,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit path, else the nearest leapbind.yaml upward
	// from the working directory.
	projectRoot := cwd
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment variables (LEAPBIND_ prefix)
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority). Paths given as flags are relative to the
	// working directory, not the project root.
	flagPaths := map[string]string{}
	changed := map[string]bool{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || skippedFlags[f.Name] {
				return "", nil
			}
			key := flagKey(f.Name)
			changed[key] = true
			if key == "catalog" || key == "state_path" {
				if abs, err := filepath.Abs(f.Value.String()); err == nil && f.Value.String() != ":memory:" {
					flagPaths[key] = abs
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// A catalog or snapshot chosen on the command line replaces the other
	// one from the file.
	if changed["snapshot"] && !changed["catalog"] {
		cfg.CatalogFile = ""
	}
	if changed["catalog"] && !changed["snapshot"] {
		cfg.Snapshot = ""
	}

	// 6. Environment overrides
	envName := cfg.Environment
	if targetOverride != "" {
		envName = targetOverride
	}
	if envName != "" {
		envCfg, ok := cfg.Environments[envName]
		if !ok && targetOverride != "" {
			return nil, fmt.Errorf("unknown environment %q", envName)
		}
		if ok {
			cfg.Environment = envName
			applyEnvConfig(&cfg, envCfg)
		}
	}

	// 7. Resolve paths and expand ${VAR} references
	cfg.ProjectRoot = projectRoot
	cfg.CatalogFile = pick(flagPaths["catalog"], resolvePathRelativeTo(cfg.CatalogFile, projectRoot))
	cfg.StatePath = pick(flagPaths["state_path"], resolvePathRelativeTo(cfg.StatePath, projectRoot))
	if cfg.Source != nil {
		cfg.Source.DSN = expandEnvVars(cfg.Source.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// applyEnvConfig applies one environment's overrides. Choosing a catalog
// file clears an inherited snapshot and the other way round.
func applyEnvConfig(cfg *Config, envCfg EnvConfig) {
	if envCfg.CatalogFile != "" {
		cfg.CatalogFile = envCfg.CatalogFile
		cfg.Snapshot = ""
	}
	if envCfg.Snapshot != "" {
		cfg.Snapshot = envCfg.Snapshot
		cfg.CatalogFile = ""
	}
	cfg.Source = MergeSourceConfig(cfg.Source, envCfg.Source)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// MergeSourceConfig merges two source configs, with override taking precedence.
func MergeSourceConfig(base, override *SourceConfig) *SourceConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.DSN != "" {
		merged.DSN = override.DSN
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	if override.FetchTimeout != 0 {
		merged.FetchTimeout = override.FetchTimeout
	}
	// Booleans can only be switched on by an environment.
	merged.Live = merged.Live || override.Live
	merged.Composites = merged.Composites || override.Composites
	return &merged
}
