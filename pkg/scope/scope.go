// Package scope tracks the relations visible to an expression and resolves
// names against them.
//
// A Scope holds the relations of one query level in the order they were
// added, plus a link to the scope of the enclosing query. Name resolution
// searches the innermost level first and reports how many levels up a match
// was found. References that reach into an enclosing query are given a
// stable output slot in that query's scope.
package scope

import (
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
)

// EntryType indicates where a scope entry comes from.
type EntryType int

const (
	// EntryTable represents a catalog relation.
	EntryTable EntryType = iota
	// EntryDerived represents a derived table (subquery in FROM) whose shape
	// was supplied by the statement orchestrator.
	EntryDerived
)

// Entry is a relation visible under an alias.
type Entry struct {
	Type  EntryType
	Index int    // 1-based position within its scope
	Name  string // relation name
	Alias string // alias (if any)
	Shape *core.RelationShape
}

// EffectiveName returns the name used to reference this entry (alias if present, else name).
func (e *Entry) EffectiveName() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Name
}

// Column finds a column of the entry by name and returns its 1-based
// attribute number.
func (e *Entry) Column(norm ident.Normalizer, name string) (int, core.Field, bool) {
	key := norm.Normalize(name)
	for i, f := range e.Shape.Columns {
		if norm.Normalize(f.Name) == key {
			return i + 1, f, true
		}
	}
	return 0, core.Field{}, false
}

// Binding is a resolved column reference.
type Binding struct {
	Entry    *Entry
	AttNo    int // 1-based
	Field    core.Field
	LevelsUp int // 0 for the current scope
}

// OuterSlot is an output slot of a query level read by a nested query.
type OuterSlot struct {
	Slot     int // 1-based, stable for the lifetime of the scope
	RelIndex int
	Relation string
	AttNo    int // 0 for a whole-row reference
	Name     string
}

type slotKey struct {
	relIndex, attNo int
}

// Scope tracks the relations available within one query level.
type Scope struct {
	parent  *Scope
	entries []*Entry
	byName  map[string]*Entry // effective name -> entry (normalized)
	norm    ident.Normalizer

	slots     []OuterSlot
	slotIndex map[slotKey]int
}

// New creates a new root scope.
func New(norm ident.Normalizer) *Scope {
	return &Scope{
		byName:    make(map[string]*Entry),
		norm:      norm,
		slotIndex: make(map[slotKey]int),
	}
}

// Child creates a child scope for a nested query.
func (s *Scope) Child() *Scope {
	c := New(s.norm)
	c.parent = s
	return c
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Normalizer returns the identifier normalizer of the scope.
func (s *Scope) Normalizer() ident.Normalizer {
	return s.norm
}

// AddTable looks relation up in the catalog and makes it visible under alias
// (or under its own name when alias is empty).
func (s *Scope) AddTable(cat core.Catalog, relation, alias string) (*Entry, error) {
	shape, ok := cat.LookupRelation(relation)
	if !ok {
		return nil, core.Errorf(core.ErrAmbiguousOrUnknownName, relation, "relation %q does not exist", relation)
	}
	return s.add(&Entry{Type: EntryTable, Name: shape.Name, Alias: alias, Shape: shape})
}

// AddDerived makes an orchestrator-supplied relation shape visible under alias.
func (s *Scope) AddDerived(alias string, shape *core.RelationShape) (*Entry, error) {
	return s.add(&Entry{Type: EntryDerived, Name: alias, Alias: alias, Shape: shape})
}

func (s *Scope) add(e *Entry) (*Entry, error) {
	key := s.norm.Normalize(e.EffectiveName())
	if _, exists := s.byName[key]; exists {
		return nil, core.Errorf(core.ErrAmbiguousOrUnknownName, e.EffectiveName(),
			"table name %q specified more than once", e.EffectiveName())
	}
	e.Index = len(s.entries) + 1
	s.entries = append(s.entries, e)
	s.byName[key] = e
	return e, nil
}

// Entries returns the entries of this level in the order they were added.
func (s *Scope) Entries() []*Entry {
	return s.entries
}

// Lookup finds an entry by alias or relation name. Searches the current
// scope first, then parent scopes, and reports how many levels up the entry
// was found.
func (s *Scope) Lookup(name string) (*Entry, int, bool) {
	key := s.norm.Normalize(name)
	levels := 0
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.byName[key]; ok {
			return e, levels, true
		}
		levels++
	}
	return nil, 0, false
}

// FindColumn looks up an unqualified column name. A name matching columns
// of more than one relation at the innermost level that has any match is
// ambiguous; an enclosing level is only consulted when the inner one has no
// match at all. The binding is nil when the name is ambiguous or unknown.
func (s *Scope) FindColumn(name string) (bnd *Binding, ambiguous bool) {
	levels := 0
	for cur := s; cur != nil; cur = cur.parent {
		var found *Binding
		for _, e := range cur.entries {
			attNo, f, ok := e.Column(s.norm, name)
			if !ok {
				continue
			}
			if found != nil {
				return nil, true
			}
			found = &Binding{Entry: e, AttNo: attNo, Field: f, LevelsUp: levels}
		}
		if found != nil {
			return found, false
		}
		levels++
	}
	return nil, false
}

// ResolveColumn resolves an unqualified column name, failing when it is
// ambiguous or unknown.
func (s *Scope) ResolveColumn(name string) (*Binding, error) {
	bnd, ambiguous := s.FindColumn(name)
	switch {
	case bnd != nil:
		return bnd, nil
	case ambiguous:
		return nil, core.Errorf(core.ErrAmbiguousOrUnknownName, name,
			"column reference %q is ambiguous", name)
	default:
		return nil, core.Errorf(core.ErrAmbiguousOrUnknownName, name, "column %q does not exist", name)
	}
}

// ResolveQualified resolves relation.column.
func (s *Scope) ResolveQualified(relation, column string) (*Binding, error) {
	e, levels, ok := s.Lookup(relation)
	if !ok {
		return nil, core.Errorf(core.ErrAmbiguousOrUnknownName, relation,
			"missing FROM-clause entry for table %q", relation)
	}
	attNo, f, ok := e.Column(s.norm, column)
	if !ok {
		return nil, core.Errorf(core.ErrUnknownField, column,
			"column %q not found in relation %q", column, e.EffectiveName())
	}
	return &Binding{Entry: e, AttNo: attNo, Field: f, LevelsUp: levels}, nil
}

// Ancestor returns the scope levels up from s, or nil if there is none.
func (s *Scope) Ancestor(levels int) *Scope {
	cur := s
	for i := 0; i < levels && cur != nil; i++ {
		cur = cur.parent
	}
	return cur
}

// AllocateSlot returns the output slot for a column (attNo > 0) or whole row
// (attNo == 0) of an entry of this scope, allocating one on first use.
func (s *Scope) AllocateSlot(e *Entry, attNo int) int {
	key := slotKey{relIndex: e.Index, attNo: attNo}
	if slot, ok := s.slotIndex[key]; ok {
		return slot
	}
	name := e.EffectiveName()
	if attNo > 0 {
		name = e.Shape.Columns[attNo-1].Name
	}
	slot := len(s.slots) + 1
	s.slots = append(s.slots, OuterSlot{
		Slot:     slot,
		RelIndex: e.Index,
		Relation: e.EffectiveName(),
		AttNo:    attNo,
		Name:     name,
	})
	s.slotIndex[key] = slot
	return slot
}

// OuterSlots returns the slots nested queries have read from this scope, in
// allocation order.
func (s *Scope) OuterSlots() []OuterSlot {
	return s.slots
}
