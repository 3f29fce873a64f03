// Package coerce converts bound expressions between types and resolves
// operator and function overloads.
//
// Conversions follow the cast edges of a core.Catalog. A path of several
// edges may be chained up to a bounded depth, which also keeps cyclic cast
// graphs from looping. A path may be applied implicitly only if every edge
// on it is implicit.
package coerce

import (
	"log/slog"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// DefaultMaxDepth is the default bound on cast path length.
const DefaultMaxDepth = 2

// Engine performs type coercion against a catalog.
type Engine struct {
	cat      core.Catalog
	maxDepth int
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth bounds the number of cast edges a conversion may chain.
// Values below one are treated as one.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.maxDepth = n
	}
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine. Returns an error if cat is nil.
func New(cat core.Catalog, opts ...Option) (*Engine, error) {
	if cat == nil {
		return nil, core.ErrCatalogRequired
	}
	e := &Engine{
		cat:      cat,
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MaxDepth returns the bound on cast path length.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Catalog returns the catalog the engine resolves against.
func (e *Engine) Catalog() core.Catalog {
	return e.cat
}

// mode says which conversions a coercion may apply.
type mode int

const (
	modeNone     mode = iota // no cast edges
	modeImplicit             // implicit edges only
	modeExplicit             // any edge
)

// Coerce converts node to target with modifier mod. With allowImplicit an
// implicit cast path may be inserted; without it only untyped values and
// modifier changes are accepted. The result always carries mod.
func (e *Engine) Coerce(node bound.Expr, target core.TypeTag, mod core.TypeMod, allowImplicit bool) (bound.Expr, error) {
	m := modeNone
	if allowImplicit {
		m = modeImplicit
	}
	return e.coerce(node, target, mod, m)
}

// Cast converts node to target as an explicitly written cast, which may use
// explicit-only cast paths and truncates over-long string literals.
func (e *Engine) Cast(node bound.Expr, target core.TypeTag, mod core.TypeMod) (bound.Expr, error) {
	return e.coerce(node, target, mod, modeExplicit)
}

func (e *Engine) coerce(node bound.Expr, target core.TypeTag, mod core.TypeMod, m mode) (bound.Expr, error) {
	if node == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "cannot coerce a missing expression")
	}

	info, ok := e.cat.LookupType(target)
	if !ok {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target), "type %s does not exist", target).At(node.Pos())
	}
	if mod != core.NoTypeMod && info.Mod == core.ModNone {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target), "type %s does not accept modifiers", target).At(node.Pos())
	}

	source := bound.DeriveType(node)
	sourceMod := bound.DeriveTypeMod(node)

	switch {
	case source == target && sourceMod == mod:
		return node, nil
	case source == target:
		return e.coerceMod(node, info, mod, m == modeExplicit)
	}

	switch n := node.(type) {
	case *bound.Const:
		if n.IsUntyped() {
			return e.ResolveLiteral(n, target, mod, m == modeExplicit)
		}
	case *bound.Param:
		if n.Type == core.TypeUnknown {
			p := &bound.Param{Number: n.Number, Type: target, Loc: n.Loc}
			if mod == core.NoTypeMod {
				return p, nil
			}
			return &bound.Cast{Arg: p, Target: target, Mod: mod, Method: core.CastMethodFunction, Implicit: true, Loc: n.Loc}, nil
		}
	}
	if source == core.TypeUnknown {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target),
			"cannot resolve an untyped expression to %s", target).At(node.Pos())
	}

	path, ok := e.FindPath(source, target)
	if !ok {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target),
			"cannot cast type %s to %s", source, core.FormatType(target, mod)).At(node.Pos())
	}
	if m == modeNone || (m == modeImplicit && !path.Implicit) {
		return nil, core.Errorf(core.ErrImplicitCastNotAllowed, string(target),
			"%s cannot be converted to %s without an explicit cast", source, core.FormatType(target, mod)).At(node.Pos())
	}

	e.logger.Debug("coercing",
		slog.String("from", string(source)),
		slog.String("to", core.FormatType(target, mod)),
		slog.Int("hops", len(path.Hops)),
		slog.Bool("implicit", m != modeExplicit))

	out := node
	for i, hop := range path.Hops {
		hopMod := core.NoTypeMod
		if i == len(path.Hops)-1 {
			hopMod = mod
		}
		out = &bound.Cast{
			Arg:      out,
			Target:   hop.Target,
			Mod:      hopMod,
			Method:   hop.Method,
			Implicit: m != modeExplicit,
			Loc:      node.Pos(),
		}
	}
	return out, nil
}

// coerceMod changes only the modifier of a value that already has the
// target type.
func (e *Engine) coerceMod(node bound.Expr, info *core.TypeInfo, mod core.TypeMod, explicit bool) (bound.Expr, error) {
	if c, ok := node.(*bound.Const); ok {
		return e.applyConstMod(c, info, mod, explicit)
	}
	method := core.CastMethodFunction
	if mod == core.NoTypeMod {
		method = core.CastMethodRelabel
	}
	return &bound.Cast{
		Arg:      node,
		Target:   info.Tag,
		Mod:      mod,
		Method:   method,
		Implicit: !explicit,
		Loc:      node.Pos(),
	}, nil
}
