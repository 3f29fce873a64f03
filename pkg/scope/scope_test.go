package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
)

func testCatalog(t *testing.T) *catalog.Memory {
	t.Helper()
	cat, err := catalog.New(&catalog.Definition{
		Extends: catalog.ExtendsBuiltin,
		Relations: []catalog.RelationDef{
			{Name: "orders", Columns: []catalog.ColumnDef{
				{Name: "id", Type: "int4"},
				{Name: "customer_id", Type: "int4"},
				{Name: "total", Type: "numeric(12,2)"},
			}},
			{Name: "customers", Columns: []catalog.ColumnDef{
				{Name: "id", Type: "int4"},
				{Name: "name", Type: "text"},
			}},
		},
	})
	require.NoError(t, err)
	return cat
}

func TestScope_AddTable(t *testing.T) {
	cat := testCatalog(t)
	s := New(ident.Default)

	o, err := s.AddTable(cat, "orders", "o")
	require.NoError(t, err)
	assert.Equal(t, 1, o.Index)
	assert.Equal(t, "o", o.EffectiveName())

	c, err := s.AddTable(cat, "customers", "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Index)
	assert.Equal(t, "customers", c.EffectiveName())

	_, err = s.AddTable(cat, "customers", "O")
	assert.True(t, errors.Is(err, core.ErrAmbiguousOrUnknownName))

	_, err = s.AddTable(cat, "invoices", "")
	assert.True(t, errors.Is(err, core.ErrAmbiguousOrUnknownName))

	assert.Len(t, s.Entries(), 2)
}

func TestScope_Lookup(t *testing.T) {
	cat := testCatalog(t)
	outer := New(ident.Default)
	_, err := outer.AddTable(cat, "customers", "c")
	require.NoError(t, err)
	inner := outer.Child()
	_, err = inner.AddTable(cat, "orders", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		lookup string
		found  bool
		levels int
	}{
		{name: "current level", lookup: "orders", found: true, levels: 0},
		{name: "folded case", lookup: "ORDERS", found: true, levels: 0},
		{name: "parent level", lookup: "c", found: true, levels: 1},
		{name: "relation hidden by alias", lookup: "customers", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, levels, ok := inner.Lookup(tt.lookup)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.NotNil(t, e)
				assert.Equal(t, tt.levels, levels)
			}
		})
	}
}

func TestScope_ResolveColumn(t *testing.T) {
	cat := testCatalog(t)
	outer := New(ident.Default)
	_, err := outer.AddTable(cat, "customers", "c")
	require.NoError(t, err)

	both := outer.Child()
	_, err = both.AddTable(cat, "orders", "")
	require.NoError(t, err)
	_, err = both.AddTable(cat, "customers", "")
	require.NoError(t, err)

	single := outer.Child()
	_, err = single.AddTable(cat, "orders", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		scope    *Scope
		column   string
		errKind  core.ErrorKind
		relation string
		attNo    int
		levels   int
		typ      core.TypeTag
	}{
		{name: "ambiguous at one level", scope: both, column: "id", errKind: core.ErrAmbiguousOrUnknownName},
		{name: "unique at one level", scope: both, column: "total", relation: "orders", attNo: 3, typ: core.TypeNumeric},
		{name: "inner level shadows outer", scope: single, column: "id", relation: "orders", attNo: 1, typ: core.TypeInt4},
		{name: "found in enclosing scope", scope: single, column: "name", relation: "c", attNo: 2, levels: 1, typ: core.TypeText},
		{name: "unknown", scope: single, column: "missing", errKind: core.ErrAmbiguousOrUnknownName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.scope.ResolveColumn(tt.column)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.relation, b.Entry.EffectiveName())
			assert.Equal(t, tt.attNo, b.AttNo)
			assert.Equal(t, tt.levels, b.LevelsUp)
			assert.Equal(t, tt.typ, b.Field.Type)
		})
	}
}

func TestScope_FindColumn(t *testing.T) {
	cat := testCatalog(t)
	s := New(ident.Default)
	_, err := s.AddTable(cat, "orders", "id")
	require.NoError(t, err)
	_, err = s.AddTable(cat, "customers", "")
	require.NoError(t, err)

	b, ambiguous := s.FindColumn("id")
	assert.Nil(t, b)
	assert.True(t, ambiguous)

	b, ambiguous = s.FindColumn("missing")
	assert.Nil(t, b)
	assert.False(t, ambiguous)

	b, ambiguous = s.FindColumn("total")
	require.NotNil(t, b)
	assert.False(t, ambiguous)
	assert.Equal(t, "id", b.Entry.EffectiveName())
}

func TestScope_ResolveQualified(t *testing.T) {
	cat := testCatalog(t)
	s := New(ident.Default)
	_, err := s.AddTable(cat, "orders", "o")
	require.NoError(t, err)

	b, err := s.ResolveQualified("o", "Total")
	require.NoError(t, err)
	assert.Equal(t, 3, b.AttNo)
	assert.Equal(t, core.NumericMod(12, 2), b.Field.Mod)

	_, err = s.ResolveQualified("o", "missing")
	assert.Equal(t, core.ErrUnknownField, core.KindOf(err))

	_, err = s.ResolveQualified("x", "id")
	assert.Equal(t, core.ErrAmbiguousOrUnknownName, core.KindOf(err))
}

func TestScope_OuterSlots(t *testing.T) {
	cat := testCatalog(t)
	outer := New(ident.Default)
	c, err := outer.AddTable(cat, "customers", "c")
	require.NoError(t, err)
	inner := outer.Child()

	assert.Same(t, outer, inner.Ancestor(1))
	assert.Same(t, inner, inner.Ancestor(0))
	assert.Nil(t, inner.Ancestor(2))

	first := outer.AllocateSlot(c, 2)
	row := outer.AllocateSlot(c, 0)
	again := outer.AllocateSlot(c, 2)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, row)
	assert.Equal(t, first, again)
	assert.Equal(t, []OuterSlot{
		{Slot: 1, RelIndex: 1, Relation: "c", AttNo: 2, Name: "name"},
		{Slot: 2, RelIndex: 1, Relation: "c", AttNo: 0, Name: "c"},
	}, outer.OuterSlots())
	assert.Empty(t, inner.OuterSlots())
}

func TestScope_AddDerived(t *testing.T) {
	s := New(ident.Normalizer{CaseSensitive: true})
	shape := &core.RelationShape{Name: "sub", RowType: "record", Columns: []core.Field{{Name: "n", Type: core.TypeInt8, Mod: core.NoTypeMod}}}

	e, err := s.AddDerived("Sub", shape)
	require.NoError(t, err)
	assert.Equal(t, EntryDerived, e.Type)

	_, _, ok := s.Lookup("sub")
	assert.False(t, ok)
	b, err := s.ResolveColumn("n")
	require.NoError(t, err)
	assert.Equal(t, core.TypeInt8, b.Field.Type)
}
