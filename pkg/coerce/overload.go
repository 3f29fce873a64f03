package coerce

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// Match is the outcome of overload resolution: the chosen signature and the
// arguments coerced to its parameter types.
type Match struct {
	Signature core.Signature
	Args      []bound.Expr
	Cost      int
}

type candidate struct {
	sig       core.Signature
	cost      int
	textHints int // untyped arguments meeting a text parameter
}

// ResolveOverload picks the signature of name that args can be applied to.
//
// A candidate is viable when every typed argument either has the parameter's
// type or an implicit cast path to it. Its cost is the total number of casts
// needed; an untyped argument costs nothing when the parameter has the type
// of one of the typed arguments and one cast otherwise. The cheapest viable
// candidate wins. When several tie and some arguments are untyped, the
// candidate passing the most of them as text wins; any remaining tie is an
// AmbiguousOverload.
func (e *Engine) ResolveOverload(name string, candidates []core.Signature, args []bound.Expr) (*Match, error) {
	argTypes := make([]core.TypeTag, len(args))
	known := make(map[core.TypeTag]bool)
	for i, a := range args {
		argTypes[i] = bound.DeriveType(a)
		if argTypes[i] != core.TypeUnknown {
			known[argTypes[i]] = true
		}
	}

	var viable []candidate
	for _, sig := range candidates {
		if len(sig.Params) != len(args) {
			continue
		}
		if c, ok := e.score(sig, argTypes, known); ok {
			viable = append(viable, c)
		}
	}

	if len(viable) == 0 {
		return nil, core.Errorf(core.ErrNoMatchingOperator, name,
			"no %s(%s) matches the given argument types", name, joinTypes(argTypes))
	}

	best := cheapest(viable)
	if len(best) > 1 && len(known) < len(args) {
		best = mostTextHints(best)
	}
	if len(best) > 1 {
		sigs := make([]string, len(best))
		for i, c := range best {
			sigs[i] = name + "(" + joinTypes(c.sig.Params) + ")"
		}
		return nil, core.Errorf(core.ErrAmbiguousOverload, name,
			"%s(%s) is ambiguous between %s", name, joinTypes(argTypes), strings.Join(sigs, ", "))
	}

	chosen := best[0]
	e.logger.Debug("overload resolved",
		slog.String("name", name),
		slog.String("args", joinTypes(argTypes)),
		slog.String("params", joinTypes(chosen.sig.Params)),
		slog.Int("cost", chosen.cost))

	coerced := make([]bound.Expr, len(args))
	for i, a := range args {
		c, err := e.Coerce(a, chosen.sig.Params[i], core.NoTypeMod, true)
		if err != nil {
			return nil, err
		}
		coerced[i] = c
	}
	return &Match{Signature: chosen.sig, Args: coerced, Cost: chosen.cost}, nil
}

func (e *Engine) score(sig core.Signature, argTypes []core.TypeTag, known map[core.TypeTag]bool) (candidate, bool) {
	c := candidate{sig: sig}
	for i, at := range argTypes {
		param := sig.Params[i]
		switch {
		case at == core.TypeUnknown:
			if param == core.TypeText {
				c.textHints++
			}
			if !known[param] {
				c.cost++
			}
		case at == param:
		default:
			path, ok := e.FindPath(at, param)
			if !ok || !path.Implicit {
				return candidate{}, false
			}
			c.cost += path.Cost()
		}
	}
	return c, true
}

func cheapest(cs []candidate) []candidate {
	lowest := cs[0].cost
	for _, c := range cs[1:] {
		if c.cost < lowest {
			lowest = c.cost
		}
	}
	var out []candidate
	for _, c := range cs {
		if c.cost == lowest {
			out = append(out, c)
		}
	}
	return out
}

func mostTextHints(cs []candidate) []candidate {
	most := 0
	for _, c := range cs {
		if c.textHints > most {
			most = c.textHints
		}
	}
	if most == 0 {
		return cs
	}
	var out []candidate
	for _, c := range cs {
		if c.textHints == most {
			out = append(out, c)
		}
	}
	return out
}

func joinTypes(tags []core.TypeTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
