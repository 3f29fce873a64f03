package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/cli/config"
	"github.com/leapstack-labs/leapbind/internal/cli/testutil"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// runRoot executes the root command with args inside a fresh test project.
func runRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Chdir(testutil.SetupTestProject(t))
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "bind", "repl", "catalog", "snapshot", "serve", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	pf := NewRootCmd().PersistentFlags()
	for _, name := range []string{
		"config", "target", "catalog", "snapshot", "state", "dsn", "schema", "live",
		"default-numeric", "max-cast-depth", "case-sensitive", "verbose", "log-level", "output",
	} {
		assert.NotNil(t, pf.Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "t", pf.Lookup("target").Shorthand)
	assert.Equal(t, "o", pf.Lookup("output").Shorthand)
}

func TestExecute_Bind(t *testing.T) {
	stdout, _, err := runRoot(t, "bind", "o.total > c.credit_limit", "--from", "o=orders", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Type  string `json:"type"`
		Bound string `json:"bound"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "bool", got.Type)
	assert.Contains(t, got.Bound, "o.total")
	assert.Contains(t, got.Bound, "c.credit_limit")
}

func TestExecute_BindError(t *testing.T) {
	_, _, err := runRoot(t, "bind", "c.id + no_such_column")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAmbiguousOrUnknownName), "got %v", err)
	assert.Contains(t, err.Error(), "       ^")
}

func TestExecute_FlagsOverrideFile(t *testing.T) {
	_, _, err := runRoot(t, "bind", "1", "--max-cast-depth", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestExecute_Verbose(t *testing.T) {
	_, stderr, err := runRoot(t, "bind", "c.id", "-v", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file:")
	assert.Contains(t, stderr, "leapbind.yaml")
	assert.Contains(t, stderr, "catalog loaded")
}

func TestExecute_CatalogExport(t *testing.T) {
	stdout, _, err := runRoot(t, "catalog", "export")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: orders")
	assert.Contains(t, stdout, "type: numeric(12,2)")
}

func TestExecute_SnapshotListEmpty(t *testing.T) {
	stdout, _, err := runRoot(t, "snapshot", "list", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, stdout)
}

func TestExecute_Completion(t *testing.T) {
	stdout, _, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leapbind")

	_, _, err = runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultStateFile, cfg.StatePath)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)
}
