package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/cli/config"
	"github.com/leapstack-labs/leapbind/internal/cli/output"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Session  *Session
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a loaded catalog session.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutSession(cmd)

	sess, err := OpenSession(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Session = sess

	cleanup := func() {
		_ = sess.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext without loading
// a catalog. Useful for commands that only touch the snapshot store.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, loading defaults when no
// root command has run.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			StatePath:    config.DefaultStateFile,
			OutputFormat: config.DefaultOutput,
			Bind: config.BindConfig{
				DefaultNumeric: config.DefaultNumeric,
				MaxCastDepth:   config.DefaultMaxCastDepth,
			},
			Source: &config.SourceConfig{Schema: config.DefaultSchema, FetchTimeout: config.DefaultFetchTimeout},
		}
	}
	return cfg
}
