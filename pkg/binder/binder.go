// Package binder turns raw expression trees into bound, typed trees.
//
// Binding is strictly bottom-up: every child is bound before its parent's
// type is computed. Names are resolved against a scope.Scope, dotted chains
// and field selections through the catalog's composite types, and operators
// and functions through overload resolution in package coerce.
//
// # Usage
//
//	b, err := binder.New(cat)
//	if err != nil {
//	    // handle error
//	}
//	sc := scope.New(ident.Default)
//	_, _ = sc.AddTable(cat, "orders", "o")
//	expr, err := b.Bind(raw, sc, binder.Top())
//
// A Binder holds no per-statement state and may be shared by goroutines
// binding independent statements, provided each uses its own scope.
package binder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/coerce"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// Binder binds raw expressions against a catalog.
type Binder struct {
	cat        core.Catalog
	engine     *coerce.Engine
	logger     *slog.Logger
	numeric    core.TypeTag
	params     []core.TypeTag
	subqueries SubqueryBinder
}

type options struct {
	logger       *slog.Logger
	numeric      core.TypeTag
	maxCastDepth int
	params       []core.TypeTag
	subqueries   SubqueryBinder
}

// Option configures a Binder.
type Option func(*options)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultNumeric sets the type given to literals with a fractional part
// or exponent, and to integer literals too large for int8. Default numeric.
func WithDefaultNumeric(t core.TypeTag) Option {
	return func(o *options) {
		o.numeric = t
	}
}

// WithMaxCastDepth bounds the number of cast edges a coercion may chain.
func WithMaxCastDepth(n int) Option {
	return func(o *options) {
		o.maxCastDepth = n
	}
}

// WithParamTypes declares the types of positional parameters: types[0] is
// the type of $1. Parameters without a declared type stay untyped until
// their context settles them.
func WithParamTypes(types ...core.TypeTag) Option {
	return func(o *options) {
		o.params = types
	}
}

// WithSubqueryBinder installs the collaborator that binds sub-selects.
// Without one, sub-links fail to bind.
func WithSubqueryBinder(sb SubqueryBinder) Option {
	return func(o *options) {
		o.subqueries = sb
	}
}

// New creates a Binder. Returns an error if cat is nil or an option names a
// type the catalog does not know.
func New(cat core.Catalog, opts ...Option) (*Binder, error) {
	if cat == nil {
		return nil, core.ErrCatalogRequired
	}
	o := options{
		logger:       slog.New(slog.DiscardHandler),
		numeric:      core.TypeNumeric,
		maxCastDepth: coerce.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}

	info, ok := cat.LookupType(o.numeric)
	if !ok {
		return nil, fmt.Errorf("default numeric type %s does not exist", o.numeric)
	}
	if info.Category != core.CategoryNumeric {
		return nil, fmt.Errorf("default numeric type %s is not numeric", o.numeric)
	}
	for i, t := range o.params {
		if t == core.TypeUnknown || t == core.TypeInvalid {
			continue
		}
		if _, ok := cat.LookupType(t); !ok {
			return nil, fmt.Errorf("parameter $%d: type %s does not exist", i+1, t)
		}
	}

	engine, err := coerce.New(cat, coerce.WithMaxDepth(o.maxCastDepth), coerce.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	return &Binder{
		cat:        cat,
		engine:     engine,
		logger:     o.logger,
		numeric:    o.numeric,
		params:     o.params,
		subqueries: o.subqueries,
	}, nil
}

// Bind binds node against cat with default options.
func Bind(cat core.Catalog, node core.Node, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	b, err := New(cat)
	if err != nil {
		return nil, err
	}
	return b.Bind(node, sc, ctx)
}

// Engine returns the coercion engine the binder resolves types with.
func (b *Binder) Engine() *coerce.Engine {
	return b.engine
}

// Bind binds node in scope sc. A node that is already bound is returned
// unchanged. The only state Bind mutates is the output-slot table of the
// scopes outer references reach into.
//
// A top-level expression without an expected type never comes back
// untyped: a bare string literal, NULL or undeclared parameter is settled
// as text.
func (b *Binder) Bind(node core.Node, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if node == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "missing expression")
	}
	if be, ok := node.(bound.Expr); ok {
		return be, nil
	}
	raw, ok := node.(core.RawExpr)
	if !ok {
		return nil, core.Errorf(core.ErrMalformedNode, "", "unsupported node %T", node).At(node.Pos())
	}
	if sc == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "binding requires a scope").At(node.Pos())
	}

	out, err := b.bindExpr(raw, sc, ctx)
	if err != nil {
		b.logger.Debug("bind failed", slog.String("context", ctx.String()), slog.String("error", err.Error()))
		return nil, err
	}
	if ctx.Kind == TopLevel && ctx.Expected == core.TypeInvalid {
		return b.settle(out)
	}
	return out, nil
}

// bindExpr dispatches on the raw variant and applies the context's
// expected type to the result.
func (b *Binder) bindExpr(node core.RawExpr, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if node == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "missing operand")
	}

	var (
		out bound.Expr
		err error
	)
	switch n := node.(type) {
	case *core.Const:
		out, err = b.bindConst(n)
	case *core.ColumnRef:
		out, err = b.bindColumnRef(n, sc)
	case *core.Chain:
		out, err = b.resolveChain(n.Segments, sc, n.Loc)
	case *core.FieldAccess:
		out, err = b.bindFieldAccess(n, sc, ctx)
	case *core.AExpr:
		out, err = b.bindAExpr(n, sc, ctx)
	case *core.FuncCall:
		out, err = b.bindFuncCall(n, sc, ctx)
	case *core.TypeCast:
		out, err = b.bindTypeCast(n, sc, ctx)
	case *core.SubLink:
		out, err = b.bindSubLink(n, sc, ctx)
	case *core.ParamRef:
		out, err = b.bindParam(n)
	default:
		err = core.Errorf(core.ErrMalformedNode, "", "unsupported expression %T", node)
	}
	if err != nil {
		return nil, at(err, node)
	}

	if ctx.Expected != core.TypeInvalid {
		out, err = b.engine.Coerce(out, ctx.Expected, ctx.ExpectedMod, ctx.AllowImplicit)
		if err != nil {
			return nil, at(err, node)
		}
	}
	return out, nil
}

// settle gives an untyped result the type text.
func (b *Binder) settle(e bound.Expr) (bound.Expr, error) {
	if !bound.IsUntyped(e) {
		return e, nil
	}
	return b.engine.Coerce(e, core.TypeText, core.NoTypeMod, true)
}

// at attaches the node's position to a bind error that has none yet.
func at(err error, node core.Node) error {
	var be *core.BindError
	if errors.As(err, &be) {
		be.At(node.Pos())
	}
	return err
}
