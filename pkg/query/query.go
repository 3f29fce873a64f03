// Package query binds the small SELECT statements the parser understands.
//
// It plays the part of the statement orchestrator for sub-links: it builds
// each sub-select's scope as a child of the enclosing one, binds the WHERE
// clause and target list through package binder, and reports the output
// columns back to the binder.
package query

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/binder"
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/format"
	"github.com/leapstack-labs/leapbind/pkg/ident"
	"github.com/leapstack-labs/leapbind/pkg/parser"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// Builder binds SELECT statements and sub-selects.
type Builder struct {
	cat    core.Catalog
	binder *binder.Binder
	norm   ident.Normalizer
	logger *slog.Logger

	binderOpts []binder.Option
}

// Option configures a Builder.
type Option func(*Builder)

// WithNormalizer sets the identifier normalizer for statements bound
// without an enclosing scope.
func WithNormalizer(n ident.Normalizer) Option {
	return func(b *Builder) { b.norm = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBinderOptions passes options through to the expression binder.
func WithBinderOptions(opts ...binder.Option) Option {
	return func(b *Builder) {
		b.binderOpts = append(b.binderOpts, opts...)
	}
}

// New creates a Builder over cat.
func New(cat core.Catalog, opts ...Option) (*Builder, error) {
	b := &Builder{
		cat:    cat,
		norm:   ident.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}

	binderOpts := append([]binder.Option{binder.WithLogger(b.logger)}, b.binderOpts...)
	binderOpts = append(binderOpts, binder.WithSubqueryBinder(b))
	bd, err := binder.New(cat, binderOpts...)
	if err != nil {
		return nil, err
	}
	b.binder = bd
	return b, nil
}

// Binder returns the expression binder, which resolves sub-links through b.
func (b *Builder) Binder() *binder.Binder {
	return b.binder
}

// Scope builds a root scope holding the given relations.
func (b *Builder) Scope(items ...parser.FromItem) (*scope.Scope, error) {
	sc := scope.New(b.norm)
	for _, item := range items {
		if _, err := sc.AddTable(b.cat, item.Relation, item.Alias); err != nil {
			return nil, at(err, item)
		}
	}
	return sc, nil
}

// BindExpr parses input and binds it in sc.
func (b *Builder) BindExpr(input string, sc *scope.Scope, ctx binder.Context) (bound.Expr, error) {
	raw, err := parser.ParseExpr(input)
	if err != nil {
		return nil, err
	}
	return b.binder.Bind(raw, sc, ctx)
}

// Target is a bound output column.
type Target struct {
	Name string
	Expr bound.Expr
}

// Select is a bound SELECT.
type Select struct {
	Targets []Target
	Where   bound.Expr // nil when absent
	Scope   *scope.Scope
}

// Columns describes the output columns.
func (s *Select) Columns() []core.Field {
	out := make([]core.Field, len(s.Targets))
	for i, t := range s.Targets {
		out[i] = core.Field{Name: t.Name, Type: bound.DeriveType(t.Expr), Mod: bound.DeriveTypeMod(t.Expr)}
	}
	return out
}

// OuterSlots lists the values nested sub-selects read from this statement.
func (s *Select) OuterSlots() []scope.OuterSlot {
	return s.Scope.OuterSlots()
}

// String renders the bound statement on one line.
func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, t := range s.Targets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(format.Expr(t.Expr))
		if t.Name != columnName(t.Expr) {
			sb.WriteString(" AS " + t.Name)
		}
	}
	for i, e := range s.Scope.Entries() {
		if i == 0 {
			sb.WriteString(" FROM ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Name)
		if e.Alias != "" {
			sb.WriteString(" " + e.Alias)
		}
	}
	if s.Where != nil {
		sb.WriteString(" WHERE " + format.Expr(s.Where))
	}
	return sb.String()
}

// BindSelect binds sel. With a non-nil outer scope, sel is bound as a
// sub-select of that scope and may reference its relations.
func (b *Builder) BindSelect(sel *parser.Select, outer *scope.Scope) (*Select, error) {
	if sel == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "missing SELECT")
	}

	var sc *scope.Scope
	if outer == nil {
		sc = scope.New(b.norm)
	} else {
		sc = outer.Child()
	}
	for _, item := range sel.From {
		if _, err := sc.AddTable(b.cat, item.Relation, item.Alias); err != nil {
			return nil, at(err, item)
		}
	}

	// Targets are bound before WHERE so that outer-reference slots are
	// allocated in source order.
	out := &Select{Scope: sc}
	for _, t := range sel.Targets {
		expr, err := b.binder.Bind(t.Expr, sc, binder.Top())
		if err != nil {
			return nil, err
		}
		name := t.Alias
		if name == "" {
			name = columnName(expr)
		}
		out.Targets = append(out.Targets, Target{Name: name, Expr: expr})
	}

	if sel.Where != nil {
		where, err := b.binder.Bind(sel.Where, sc, binder.Top().Condition())
		if err != nil {
			return nil, err
		}
		out.Where = where
	}

	b.logger.Debug("bound select",
		slog.Int("targets", len(out.Targets)),
		slog.Int("relations", len(sel.From)),
		slog.Bool("correlated", outer != nil))
	return out, nil
}

// BindSubquery implements binder.SubqueryBinder.
func (b *Builder) BindSubquery(subselect any, outer *scope.Scope) (*binder.Subquery, error) {
	sel, ok := subselect.(*parser.Select)
	if !ok {
		return nil, core.Errorf(core.ErrMalformedNode, "", "unsupported sub-select %T", subselect)
	}
	bs, err := b.BindSelect(sel, outer)
	if err != nil {
		return nil, err
	}
	return &binder.Subquery{Plan: bs, Columns: bs.Columns()}, nil
}

// columnName picks the output name of an unaliased target.
func columnName(e bound.Expr) string {
	switch n := e.(type) {
	case *bound.Var:
		return n.Name
	case *bound.FieldSelect:
		return n.Field
	case *bound.FuncExpr:
		return n.Name
	case *bound.OuterRef:
		return columnName(n.Ref)
	case *bound.Cast:
		if n.Implicit {
			return columnName(n.Arg)
		}
		return string(n.Target)
	default:
		return "?column?"
	}
}

func at(err error, item parser.FromItem) error {
	var be *core.BindError
	if errors.As(err, &be) {
		be.At(item.Loc)
	}
	return err
}
