package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/cli/config"
	"github.com/leapstack-labs/leapbind/internal/cli/testutil"
	"github.com/leapstack-labs/leapbind/internal/state"
	logtest "github.com/leapstack-labs/leapbind/internal/testutil"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testutil.TestCatalog), 0o600))

	return &config.Config{
		CatalogFile:  path,
		StatePath:    filepath.Join(dir, ".leapbind", "state.db"),
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		Bind: config.BindConfig{
			Scope:          []string{"c=customers"},
			DefaultNumeric: config.DefaultNumeric,
			MaxCastDepth:   config.DefaultMaxCastDepth,
		},
		Source: &config.SourceConfig{Schema: config.DefaultSchema, FetchTimeout: config.DefaultFetchTimeout},
		Serve:  config.ServeConfig{Addr: config.DefaultServeAddr},
	}
}

func newTestSession(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	sess, err := OpenSession(context.Background(), cfg, logtest.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestOpenSession_CatalogFile(t *testing.T) {
	cfg := testConfig(t)
	sess := newTestSession(t, cfg)

	assert.Equal(t, cfg.CatalogFile, sess.Origin())
	assert.Len(t, sess.Base().Relations(), 2)

	rel, ok := sess.Catalog().LookupRelation("customers")
	require.True(t, ok)
	assert.Equal(t, "customers", rel.Name)
	assert.Len(t, rel.Columns, 4)
}

func TestOpenSession_Builtin(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogFile = ""
	cfg.Bind.Scope = nil
	sess := newTestSession(t, cfg)

	assert.Equal(t, "builtin", sess.Origin())
	assert.Empty(t, sess.Base().Relations())

	res, err := sess.Bind(BindRequest{Input: "1 + 2.5"})
	require.NoError(t, err)
	assert.Equal(t, "numeric", res.Type())
}

func TestOpenSession_MissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := OpenSession(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestOpenSession_Snapshot(t *testing.T) {
	cfg := testConfig(t)

	store, err := openStore(cfg.StatePath, nil)
	require.NoError(t, err)
	def, err := catalog.Parse([]byte(testutil.TestCatalog))
	require.NoError(t, err)
	_, err = store.SaveSnapshot(context.Background(), def, "nightly", "test")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.CatalogFile = ""
	cfg.Snapshot = "nightly"
	sess := newTestSession(t, cfg)
	assert.Equal(t, "snapshot nightly", sess.Origin())

	res, err := sess.Bind(BindRequest{Input: "c.name"})
	require.NoError(t, err)
	assert.Equal(t, "text", res.Type())

	cfg.Snapshot = "weekly"
	_, err = OpenSession(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, state.ErrSnapshotNotFound), "got %v", err)
}

func TestSession_Bind(t *testing.T) {
	sess := newTestSession(t, testConfig(t))

	tests := []struct {
		name     string
		req      BindRequest
		wantType string
	}{
		{name: "config scope", req: BindRequest{Input: "c.name || '!'"}, wantType: "text"},
		{name: "request scope", req: BindRequest{Input: "o.total > c.credit_limit", From: []string{"o=orders"}}, wantType: "bool"},
		{name: "bare relation in scope", req: BindRequest{Input: "orders.id", From: []string{"orders"}}, wantType: "int4"},
		{name: "composite field", req: BindRequest{Input: "c.address.zip"}, wantType: "varchar(10)"},
		{name: "assignment", req: BindRequest{Input: "c.id", Expect: "int8"}, wantType: "int8"},
		{name: "assignment with modifier", req: BindRequest{Input: "'12.345'", Expect: "numeric(5,2)"}, wantType: "numeric(5,2)"},
		{name: "parameter types", req: BindRequest{Input: "$1 + c.id", Params: []string{"int4"}}, wantType: "int4"},
		{name: "statement", req: BindRequest{Input: "SELECT o.id FROM orders o"}, wantType: "record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := sess.Bind(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, res.Type())
			assert.NotNil(t, res.Scope)
		})
	}
}

func TestSession_BindSelectUsesRequestScope(t *testing.T) {
	sess := newTestSession(t, testConfig(t))

	res, err := sess.Bind(BindRequest{Input: "select o.id from orders o where o.customer_id = c.id"})
	require.NoError(t, err)
	require.NotNil(t, res.Select)
	assert.Nil(t, res.Expr)

	slots := res.Scope.OuterSlots()
	require.Len(t, slots, 1)
	assert.Equal(t, "c", slots[0].Relation)
	assert.Equal(t, "id", slots[0].Name)
}

func TestSession_BindErrors(t *testing.T) {
	sess := newTestSession(t, testConfig(t))

	tests := []struct {
		name    string
		req     BindRequest
		errKind core.ErrorKind
		errMsg  string
	}{
		{name: "unknown column", req: BindRequest{Input: "no_such_column"}, errKind: core.ErrAmbiguousOrUnknownName},
		{name: "unknown relation in scope", req: BindRequest{Input: "1", From: []string{"invoices"}}, errKind: core.ErrAmbiguousOrUnknownName},
		{name: "strict rejects implicit cast", req: BindRequest{Input: "c.id", Expect: "int8", Strict: true}, errKind: core.ErrImplicitCastNotAllowed},
		{name: "unknown expected type", req: BindRequest{Input: "c.id", Expect: "money"}, errKind: core.ErrAmbiguousOrUnknownName},
		{name: "empty input", req: BindRequest{Input: "   "}, errMsg: "nothing to bind"},
		{name: "bad scope item", req: BindRequest{Input: "1", From: []string{"o orders"}}, errMsg: "o orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sess.Bind(tt.req)
			require.Error(t, err)
			if tt.errKind != "" {
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestSession_Reload(t *testing.T) {
	cfg := testConfig(t)
	sess := newTestSession(t, cfg)

	_, ok := sess.Catalog().LookupRelation("invoices")
	require.False(t, ok)

	updated := testutil.TestCatalog + `  - name: invoices
    columns:
      - name: id
        type: int8
`
	require.NoError(t, os.WriteFile(cfg.CatalogFile, []byte(updated), 0o600))
	require.NoError(t, sess.Reload(context.Background()))

	rel, ok := sess.Catalog().LookupRelation("invoices")
	require.True(t, ok)
	assert.Equal(t, core.TypeInt8, rel.Columns[0].Type)

	require.NoError(t, os.WriteFile(cfg.CatalogFile, []byte("relations: [\n"), 0o600))
	require.Error(t, sess.Reload(context.Background()))

	_, ok = sess.Catalog().LookupRelation("invoices")
	assert.True(t, ok, "a failed reload keeps the previous catalog")
}

func TestErrorPosition(t *testing.T) {
	sess := newTestSession(t, testConfig(t))

	_, err := sess.Bind(BindRequest{Input: "c.id + no_such_column"})
	require.Error(t, err)
	line, column, ok := errorPosition(err)
	require.True(t, ok)
	assert.Equal(t, 1, line)
	assert.Equal(t, 8, column)

	_, _, ok = errorPosition(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsSelect(t *testing.T) {
	assert.True(t, isSelect("SELECT 1"))
	assert.True(t, isSelect("  select\n1"))
	assert.False(t, isSelect("selected_at > now()"))
	assert.False(t, isSelect(""))
}
