package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/leapbind/pkg/core"
)

// RelationSource fetches relation definitions on demand. FetchRelation
// returns nil without error when the relation does not exist.
type RelationSource interface {
	FetchRelation(ctx context.Context, name string) (*RelationDef, error)
}

// DefaultFetchTimeout bounds a single relation fetch.
const DefaultFetchTimeout = 5 * time.Second

// Live is a catalog whose relations are fetched from a RelationSource the
// first time they are looked up and cached afterwards. Types, casts,
// operators and functions come from a base Memory catalog, and relations
// declared in the base take precedence over fetched ones.
//
// Concurrent lookups of the same missing relation share one fetch. Failed
// fetches are logged and reported as not found without being cached.
type Live struct {
	base    *Memory
	src     RelationSource
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.RWMutex
	relations map[string]*core.RelationShape // nil value caches a miss
	rowTypes  map[core.TypeTag]*core.RelationShape
	group     singleflight.Group
}

// Compile-time interface check
var _ core.Catalog = (*Live)(nil)

// LiveOption configures a Live catalog.
type LiveOption func(*Live)

// WithFetchTimeout bounds each relation fetch.
func WithFetchTimeout(d time.Duration) LiveOption {
	return func(l *Live) { l.timeout = d }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) LiveOption {
	return func(l *Live) { l.logger = logger }
}

// NewLive creates a Live catalog over base.
func NewLive(base *Memory, src RelationSource, opts ...LiveOption) *Live {
	l := &Live{
		base:      base,
		src:       src,
		timeout:   DefaultFetchTimeout,
		logger:    slog.New(slog.DiscardHandler),
		relations: make(map[string]*core.RelationShape),
		rowTypes:  make(map[core.TypeTag]*core.RelationShape),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LookupRelation implements core.Catalog.
func (l *Live) LookupRelation(name string) (*core.RelationShape, bool) {
	if r, ok := l.base.LookupRelation(name); ok {
		return r, true
	}
	key := l.base.norm.Normalize(name)

	l.mu.RLock()
	r, cached := l.relations[key]
	l.mu.RUnlock()
	if cached {
		return r, r != nil
	}

	v, _, _ := l.group.Do(key, func() (any, error) {
		l.mu.RLock()
		r, cached := l.relations[key]
		l.mu.RUnlock()
		if cached {
			return r, nil
		}
		return l.fetch(key, name), nil
	})
	shape, _ := v.(*core.RelationShape)
	return shape, shape != nil
}

func (l *Live) fetch(key, name string) *core.RelationShape {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	rd, err := l.src.FetchRelation(ctx, name)
	if err != nil {
		l.logger.Warn("relation fetch failed", slog.String("relation", name), slog.String("error", err.Error()))
		return nil
	}

	var shape *core.RelationShape
	if rd != nil {
		shape = relationShape(l.base, rd)
	}

	l.mu.Lock()
	l.relations[key] = shape
	if shape != nil {
		l.rowTypes[shape.RowType] = shape
	}
	l.mu.Unlock()

	l.logger.Debug("cached relation", slog.String("relation", name), slog.Bool("found", shape != nil))
	return shape
}

// LookupCompositeFields implements core.Catalog.
func (l *Live) LookupCompositeFields(t core.TypeTag) ([]core.Field, bool) {
	if fields, ok := l.base.LookupCompositeFields(t); ok {
		return fields, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.rowTypes[t]; ok {
		return r.Columns, true
	}
	return nil, false
}

// LookupType implements core.Catalog.
func (l *Live) LookupType(t core.TypeTag) (*core.TypeInfo, bool) {
	if info, ok := l.base.LookupType(t); ok {
		return info, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.rowTypes[t]; ok {
		return &core.TypeInfo{Tag: t, Category: core.CategoryComposite}, true
	}
	return nil, false
}

// LookupCastPath implements core.Catalog.
func (l *Live) LookupCastPath(from, to core.TypeTag) core.CastKind {
	return l.base.LookupCastPath(from, to)
}

// LookupCastTargets implements core.Catalog.
func (l *Live) LookupCastTargets(from core.TypeTag) []core.Cast {
	return l.base.LookupCastTargets(from)
}

// LookupOperatorSignatures implements core.Catalog.
func (l *Live) LookupOperatorSignatures(name string, arity int) []core.Signature {
	return l.base.LookupOperatorSignatures(name, arity)
}

// LookupFunctionSignatures implements core.Catalog.
func (l *Live) LookupFunctionSignatures(name string, arity int) []core.Signature {
	return l.base.LookupFunctionSignatures(name, arity)
}

// ResolveTypeName maps a declared type name onto a known tag.
func (l *Live) ResolveTypeName(name string) (*core.TypeInfo, bool) {
	if info, ok := l.base.ResolveTypeName(name); ok {
		return info, true
	}
	return l.LookupType(l.base.tag(name))
}
