package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bind.MaxCastDepth < 1 {
		return fmt.Errorf("bind.max_cast_depth must be at least 1, got %d", c.Bind.MaxCastDepth)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Source != nil && c.Source.Live && c.Source.DSN == "" {
		return fmt.Errorf("source.live requires source.dsn\nHint: set LEAPBIND_SOURCE_DSN or pass --dsn")
	}
	if c.CatalogFile != "" && c.Snapshot != "" {
		return fmt.Errorf("catalog and snapshot are mutually exclusive")
	}
	for _, item := range c.Bind.Scope {
		if _, _, err := SplitScopeItem(item); err != nil {
			return err
		}
	}
	return nil
}

// ParseLogLevel maps a level name onto a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// SplitScopeItem splits "alias=relation" into its relation and alias. A
// bare "relation" has no alias.
func SplitScopeItem(item string) (relation, alias string, err error) {
	item = strings.TrimSpace(item)
	if alias, relation, ok := strings.Cut(item, "="); ok {
		alias, relation = strings.TrimSpace(alias), strings.TrimSpace(relation)
		if alias == "" || relation == "" {
			return "", "", fmt.Errorf("invalid scope entry %q: want alias=relation", item)
		}
		return relation, alias, nil
	}
	if item == "" || strings.ContainsAny(item, " \t") {
		return "", "", fmt.Errorf("invalid scope entry %q: want relation or alias=relation", item)
	}
	return item, "", nil
}
