package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver for catalog introspection

	"github.com/leapstack-labs/leapbind/internal/cli/config"
	"github.com/leapstack-labs/leapbind/internal/state"
	"github.com/leapstack-labs/leapbind/pkg/binder"
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
	"github.com/leapstack-labs/leapbind/pkg/parser"
	"github.com/leapstack-labs/leapbind/pkg/query"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// Session holds a compiled catalog and the builder that binds against it.
// Reload swaps both under a lock, so a Session may be shared by the REPL
// watcher and the HTTP handlers.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger
	norm   ident.Normalizer

	mu      sync.RWMutex
	base    *catalog.Memory
	cat     core.Catalog
	builder *query.Builder
	origin  string

	db *sql.DB // live source, nil unless source.live is set
}

// BindRequest is one expression or SELECT to bind.
type BindRequest struct {
	Input  string   `json:"expr"`
	From   []string `json:"from,omitempty"`
	Expect string   `json:"expect,omitempty"`
	Strict bool     `json:"strict,omitempty"`
	Params []string `json:"params,omitempty"`
}

// BindResult is a bound expression or statement.
type BindResult struct {
	Input  string
	Expr   bound.Expr    // set for expressions
	Select *query.Select // set for SELECT statements
	Scope  *scope.Scope
}

// Type returns the result type, or "record" for statements.
func (r *BindResult) Type() string {
	if r.Select != nil {
		return "record"
	}
	return core.FormatType(bound.DeriveType(r.Expr), bound.DeriveTypeMod(r.Expr))
}

// OpenSession loads the catalog selected by cfg.
func OpenSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		cfg:    cfg,
		logger: logger,
		norm:   ident.Normalizer{CaseSensitive: cfg.Bind.CaseSensitive},
	}

	if cfg.HasSource() && cfg.Source.Live {
		db, err := sql.Open("pgx", cfg.Source.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open source database: %w", err)
		}
		s.db = db
	}

	if err := s.Reload(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Reload recompiles the catalog from its file or snapshot.
func (s *Session) Reload(ctx context.Context) error {
	base, origin, err := loadCatalog(ctx, s.cfg, s.norm, s.logger)
	if err != nil {
		return err
	}

	var cat core.Catalog = base
	if s.db != nil {
		src := &catalog.Introspector{
			DB:         s.db,
			Schema:     s.cfg.Source.Schema,
			Composites: s.cfg.Source.Composites,
			Logger:     s.logger,
		}
		cat = catalog.NewLive(base, src,
			catalog.WithFetchTimeout(s.cfg.Source.FetchTimeout),
			catalog.WithLogger(s.logger))
		origin += " + live " + s.cfg.Source.Schema
	}

	builder, err := s.newBuilder(cat, s.cfg.Bind.Params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.base, s.cat, s.builder, s.origin = base, cat, builder, origin
	s.mu.Unlock()

	s.logger.Debug("catalog loaded", slog.String("origin", origin), slog.Int("relations", len(base.Relations())))
	return nil
}

func (s *Session) newBuilder(cat core.Catalog, params []string) (*query.Builder, error) {
	opts := []binder.Option{
		binder.WithDefaultNumeric(typeTag(s.cfg.Bind.DefaultNumeric)),
		binder.WithMaxCastDepth(s.cfg.Bind.MaxCastDepth),
	}
	if len(params) > 0 {
		tags := make([]core.TypeTag, len(params))
		for i, p := range params {
			tags[i] = typeTag(p)
		}
		opts = append(opts, binder.WithParamTypes(tags...))
	}
	return query.New(cat,
		query.WithNormalizer(s.norm),
		query.WithLogger(s.logger),
		query.WithBinderOptions(opts...))
}

func typeTag(name string) core.TypeTag {
	return core.TypeTag(catalog.CanonicalTypeName(name))
}

// Close releases the live source connection, if any.
func (s *Session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Catalog returns the catalog expressions are bound against.
func (s *Session) Catalog() core.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

// Base returns the compiled file, snapshot or builtin catalog without any
// live relations.
func (s *Session) Base() *catalog.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// Origin describes where the catalog came from.
func (s *Session) Origin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// Bind binds req.Input. Input starting with SELECT is bound as a
// statement, with the request scope as its outer scope.
func (s *Session) Bind(req BindRequest) (*BindResult, error) {
	s.mu.RLock()
	builder, cat := s.builder, s.cat
	s.mu.RUnlock()

	if len(req.Params) > 0 {
		var err error
		if builder, err = s.newBuilder(cat, req.Params); err != nil {
			return nil, err
		}
	}

	items, err := scopeItems(append(append([]string{}, s.cfg.Bind.Scope...), req.From...))
	if err != nil {
		return nil, err
	}
	sc, err := builder.Scope(items...)
	if err != nil {
		return nil, err
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, fmt.Errorf("nothing to bind")
	}
	res := &BindResult{Input: input, Scope: sc}

	if isSelect(input) {
		sel, err := parser.ParseSelect(input)
		if err != nil {
			return nil, err
		}
		var outer *scope.Scope
		if len(items) > 0 {
			outer = sc
		}
		if res.Select, err = builder.BindSelect(sel, outer); err != nil {
			return nil, err
		}
		return res, nil
	}

	ctx := binder.Top()
	if req.Expect != "" {
		if ctx, err = expectContext(builder.Binder(), req.Expect, req.Strict); err != nil {
			return nil, err
		}
	}
	if res.Expr, err = builder.BindExpr(input, sc, ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// expectContext builds an assignment context from a type spelling such as
// "numeric(10,2)".
func expectContext(b *binder.Binder, spec string, strict bool) (binder.Context, error) {
	name, mods, err := catalog.ParseTypeSpec(spec)
	if err != nil {
		return binder.Context{}, err
	}
	info, mod, err := b.ResolveType(&core.TypeName{Name: name, Mods: mods})
	if err != nil {
		return binder.Context{}, err
	}
	if strict {
		return binder.Strict(info.Tag, mod), nil
	}
	return binder.Assignment(info.Tag, mod), nil
}

func isSelect(input string) bool {
	fields := strings.Fields(input)
	return len(fields) > 0 && strings.EqualFold(fields[0], "select")
}

func scopeItems(entries []string) ([]parser.FromItem, error) {
	items := make([]parser.FromItem, 0, len(entries))
	for _, e := range entries {
		relation, alias, err := config.SplitScopeItem(e)
		if err != nil {
			return nil, err
		}
		items = append(items, parser.FromItem{Relation: relation, Alias: alias})
	}
	return items, nil
}

// loadCatalog compiles the catalog named by cfg: a stored snapshot, a YAML
// file, or the builtin definition.
func loadCatalog(ctx context.Context, cfg *config.Config, norm ident.Normalizer, logger *slog.Logger) (*catalog.Memory, string, error) {
	opt := catalog.WithNormalizer(norm)

	switch {
	case cfg.Snapshot != "":
		store, err := openStore(cfg.StatePath, logger)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = store.Close() }()

		def, err := store.LoadDefinition(ctx, cfg.Snapshot)
		if err != nil {
			return nil, "", err
		}
		cat, err := catalog.New(def, opt)
		if err != nil {
			return nil, "", fmt.Errorf("snapshot %s: %w", cfg.Snapshot, err)
		}
		return cat, "snapshot " + cfg.Snapshot, nil

	case cfg.CatalogFile != "":
		cat, err := catalog.LoadFile(cfg.CatalogFile, opt)
		if err != nil {
			return nil, "", err
		}
		return cat, cfg.CatalogFile, nil

	default:
		cat, err := catalog.New(&catalog.Definition{Extends: catalog.ExtendsBuiltin}, opt)
		if err != nil {
			return nil, "", err
		}
		return cat, "builtin", nil
	}
}

// openStore opens and migrates the snapshot database, creating its
// directory if needed.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// errorPosition extracts the source position from parse and bind errors.
func errorPosition(err error) (line, column int, ok bool) {
	var (
		be *core.BindError
		pe *parser.ParseError
		le *parser.LexError
	)
	switch {
	case errors.As(err, &be) && be.Pos.IsValid():
		return be.Pos.Line, be.Pos.Column, true
	case errors.As(err, &pe):
		return pe.Pos.Line, pe.Pos.Column, true
	case errors.As(err, &le):
		return le.Pos.Line, le.Pos.Column, true
	}
	return 0, 0, false
}
