package coerce

import (
	"log/slog"

	"github.com/leapstack-labs/leapbind/pkg/core"
)

// Path is a chain of cast edges from one type to another.
type Path struct {
	Hops     []core.Cast
	Implicit bool // every hop is implicit
}

// Cost is the number of conversions the path applies.
func (p Path) Cost() int {
	return len(p.Hops)
}

// FindPath finds the conversion from one type to another. The shortest
// all-implicit path is preferred; otherwise the shortest path with exactly
// one explicit edge is returned with Implicit unset. Paths never exceed the
// engine's depth bound.
func (e *Engine) FindPath(from, to core.TypeTag) (Path, bool) {
	if from == to {
		return Path{Implicit: true}, true
	}

	// A direct implicit edge is always the best answer.
	if e.cat.LookupCastPath(from, to) == core.CastImplicit {
		if c, ok := e.directEdge(from, to); ok {
			return Path{Hops: []core.Cast{c}, Implicit: true}, true
		}
	}

	if hops, ok := e.search(from, to, true); ok {
		return Path{Hops: hops, Implicit: true}, true
	}
	if hops, ok := e.search(from, to, false); ok {
		e.logger.Debug("only explicit cast path",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.Int("hops", len(hops)))
		return Path{Hops: hops}, true
	}
	return Path{}, false
}

func (e *Engine) directEdge(from, to core.TypeTag) (core.Cast, bool) {
	for _, c := range e.cat.LookupCastTargets(from) {
		if c.Target == to {
			return c, true
		}
	}
	// The catalog reported an edge it does not enumerate.
	kind := e.cat.LookupCastPath(from, to)
	if kind == core.CastNone {
		return core.Cast{}, false
	}
	return core.Cast{Source: from, Target: to, Kind: kind}, true
}

// search runs a breadth-first search over cast edges bounded by maxDepth.
// Without implicitOnly a path may contain one explicit edge, so explicit
// conversions are never chained through each other. Edges are visited in
// the catalog's order, so the result is deterministic.
func (e *Engine) search(from, to core.TypeTag, implicitOnly bool) ([]core.Cast, bool) {
	type state struct {
		at       core.TypeTag
		explicit bool
	}
	type step struct {
		state
		hops []core.Cast
	}
	visited := map[state]bool{{at: from}: true}
	frontier := []step{{state: state{at: from}}}

	for depth := 0; depth < e.maxDepth && len(frontier) > 0; depth++ {
		var next []step
		for _, s := range frontier {
			for _, c := range e.cat.LookupCastTargets(s.at) {
				st := state{at: c.Target, explicit: s.explicit}
				switch c.Kind {
				case core.CastImplicit:
				case core.CastExplicit:
					if implicitOnly || s.explicit {
						continue
					}
					st.explicit = true
				default:
					continue
				}
				if visited[st] {
					continue
				}
				hops := make([]core.Cast, len(s.hops), len(s.hops)+1)
				copy(hops, s.hops)
				hops = append(hops, c)
				if c.Target == to {
					return hops, true
				}
				visited[st] = true
				next = append(next, step{state: st, hops: hops})
			}
		}
		frontier = next
	}
	return nil, false
}
