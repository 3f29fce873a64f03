package binder

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
	"github.com/leapstack-labs/leapbind/pkg/scope"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Name and chain resolution.
//
// A chain a.b.c is resolved left to right:
//
//  1. a names a visible relation: a whole-row reference. If b follows it must
//     be a column of that relation and the pair becomes a column reference.
//  2. otherwise a must be a column visible without qualification.
//  3. every remaining segment selects a field of the current composite value.
//
// A relation match for the first segment always wins over a column of the
// same name. Bare column references prefer the column instead, and fall
// back to a whole-row reference only when no column matches. An ambiguous
// bare column never falls back.

// ResolveChain resolves a dotted name chain in scope sc. When ctx expects a
// type the resolved value is coerced to it, as Bind does.
func (b *Binder) ResolveChain(segments []string, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if sc == nil {
		return nil, core.Errorf(core.ErrMalformedNode, "", "binding requires a scope")
	}
	out, err := b.resolveChain(segments, sc, token.Position{})
	if err != nil {
		return nil, err
	}
	if ctx.Expected != core.TypeInvalid {
		return b.engine.Coerce(out, ctx.Expected, ctx.ExpectedMod, ctx.AllowImplicit)
	}
	return out, nil
}

func (b *Binder) resolveChain(segments []string, sc *scope.Scope, pos token.Position) (bound.Expr, error) {
	if len(segments) == 0 {
		return nil, core.Errorf(core.ErrMalformedNode, "", "empty name chain")
	}
	for _, s := range segments {
		if s == "" {
			return nil, core.Errorf(core.ErrMalformedNode, strings.Join(segments, "."), "empty segment in name chain")
		}
	}

	var (
		cur  bound.Expr
		rest = segments[1:]
	)
	if e, levels, ok := sc.Lookup(segments[0]); ok {
		if len(rest) == 0 {
			return b.rowRef(sc, e, levels, pos)
		}
		attNo, f, ok := e.Column(sc.Normalizer(), rest[0])
		if !ok {
			return nil, core.Errorf(core.ErrUnknownField, rest[0],
				"column %q not found in relation %q", rest[0], e.EffectiveName())
		}
		cur = b.columnRef(sc, &scope.Binding{Entry: e, AttNo: attNo, Field: f, LevelsUp: levels}, pos)
		rest = rest[1:]
	} else {
		bnd, err := sc.ResolveColumn(segments[0])
		if err != nil {
			return nil, err
		}
		cur = b.columnRef(sc, bnd, pos)
	}

	b.logger.Debug("resolved chain head",
		slog.String("chain", strings.Join(segments, ".")),
		slog.Int("fields", len(rest)))

	return b.selectFields(cur, rest, sc.Normalizer(), pos)
}

// bindColumnRef resolves a bare or relation-qualified column name.
func (b *Binder) bindColumnRef(n *core.ColumnRef, sc *scope.Scope) (bound.Expr, error) {
	if n.Name == "" {
		return nil, core.Errorf(core.ErrMalformedNode, n.Relation, "column reference without a name")
	}
	if n.Relation != "" {
		bnd, err := sc.ResolveQualified(n.Relation, n.Name)
		if err != nil {
			return nil, err
		}
		return b.columnRef(sc, bnd, n.Loc), nil
	}

	bnd, ambiguous := sc.FindColumn(n.Name)
	if bnd != nil {
		return b.columnRef(sc, bnd, n.Loc), nil
	}
	if !ambiguous {
		if e, levels, ok := sc.Lookup(n.Name); ok {
			return b.rowRef(sc, e, levels, n.Loc)
		}
	}
	_, err := sc.ResolveColumn(n.Name)
	return nil, err
}

// bindFieldAccess binds (expr).a.b: the argument first, then each field.
func (b *Binder) bindFieldAccess(n *core.FieldAccess, sc *scope.Scope, ctx Context) (bound.Expr, error) {
	if len(n.Fields) == 0 {
		return nil, core.Errorf(core.ErrMalformedNode, "", "field access without fields")
	}
	head, err := b.bindExpr(n.Arg, sc, ctx.ChainHead())
	if err != nil {
		return nil, err
	}
	return b.selectFields(head, n.Fields, sc.Normalizer(), n.Loc)
}

// selectFields applies a field selection for each name to cur.
func (b *Binder) selectFields(cur bound.Expr, names []string, norm ident.Normalizer, pos token.Position) (bound.Expr, error) {
	for _, name := range names {
		t := bound.DeriveType(cur)
		fields, ok := b.cat.LookupCompositeFields(t)
		if !ok {
			return nil, core.Errorf(core.ErrNotComposite, name,
				"cannot select field %q: type %s is not composite", name, t)
		}
		key := norm.Normalize(name)
		found := -1
		for i, f := range fields {
			if norm.Normalize(f.Name) == key {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, core.Errorf(core.ErrUnknownField, name,
				"field %q not found in composite type %s", name, t)
		}
		f := fields[found]
		cur = &bound.FieldSelect{
			Arg:     cur,
			FieldNo: found + 1,
			Field:   f.Name,
			Type:    f.Type,
			Mod:     f.Mod,
			Loc:     pos,
		}
	}
	return cur, nil
}

// columnRef builds the reference for a resolved column. Columns of an
// enclosing query are read through an output slot of that query's scope.
func (b *Binder) columnRef(sc *scope.Scope, bnd *scope.Binding, pos token.Position) bound.Expr {
	v := &bound.Var{
		RelIndex: bnd.Entry.Index,
		Relation: bnd.Entry.EffectiveName(),
		AttNo:    bnd.AttNo,
		Name:     bnd.Field.Name,
		Type:     bnd.Field.Type,
		Mod:      bnd.Field.Mod,
		LevelsUp: bnd.LevelsUp,
		Loc:      pos,
	}
	if bnd.LevelsUp == 0 {
		return v
	}
	slot := sc.Ancestor(bnd.LevelsUp).AllocateSlot(bnd.Entry, bnd.AttNo)
	b.logger.Debug("outer reference",
		slog.String("relation", v.Relation),
		slog.String("column", v.Name),
		slog.Int("levels_up", v.LevelsUp),
		slog.Int("slot", slot))
	return &bound.OuterRef{Slot: slot, Ref: v, Loc: pos}
}

// rowRef builds a whole-row reference to a visible relation.
func (b *Binder) rowRef(sc *scope.Scope, e *scope.Entry, levels int, pos token.Position) (bound.Expr, error) {
	if e.Shape.RowType == core.TypeInvalid {
		return nil, core.Errorf(core.ErrNotComposite, e.EffectiveName(),
			"relation %q has no row type", e.EffectiveName())
	}
	r := &bound.RowRef{
		RelIndex: e.Index,
		Relation: e.EffectiveName(),
		Type:     e.Shape.RowType,
		LevelsUp: levels,
		Loc:      pos,
	}
	if levels == 0 {
		return r, nil
	}
	slot := sc.Ancestor(levels).AllocateSlot(e, 0)
	return &bound.OuterRef{Slot: slot, Ref: r, Loc: pos}, nil
}
