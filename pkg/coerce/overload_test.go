package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

func TestResolveOverload_IntPlusNumeric(t *testing.T) {
	// Only numeric + numeric exists; int4 widens implicitly.
	e := defEngine(t, &catalog.Definition{
		Types: []catalog.TypeDef{
			{Name: "int4", Category: "numeric", Integral: true},
			{Name: "numeric", Category: "numeric", Modifier: "numeric"},
		},
		Casts:     []catalog.CastDef{{From: "int4", To: "numeric", Kind: "implicit"}},
		Operators: []catalog.SignatureDef{{Name: "+", Args: []string{"numeric", "numeric"}, Returns: "numeric"}},
	})

	left := column("id", core.TypeInt4, core.NoTypeMod)
	right := column("total", core.TypeNumeric, core.NoTypeMod)
	sigs := e.Catalog().LookupOperatorSignatures("+", 2)

	m, err := e.ResolveOverload("+", sigs, []bound.Expr{left, right})
	require.NoError(t, err)
	assert.Equal(t, core.TypeNumeric, m.Signature.Result)
	assert.Equal(t, 1, m.Cost)

	cast, ok := m.Args[0].(*bound.Cast)
	require.True(t, ok, "left operand should be coerced")
	assert.Same(t, left, cast.Arg)
	assert.Equal(t, core.TypeNumeric, cast.Target)
	assert.Same(t, right, m.Args[1])
}

func TestResolveOverload_Builtin(t *testing.T) {
	e := builtinEngine(t)
	cat := e.Catalog()

	tests := []struct {
		name    string
		op      string
		args    []bound.Expr
		params  []core.TypeTag
		errKind core.ErrorKind
	}{
		{
			name:   "exact match",
			op:     "+",
			args:   []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod), column("b", core.TypeInt4, core.NoTypeMod)},
			params: []core.TypeTag{core.TypeInt4, core.TypeInt4},
		},
		{
			name:   "fewest coercions wins",
			op:     "=",
			args:   []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod), column("b", core.TypeInt8, core.NoTypeMod)},
			params: []core.TypeTag{core.TypeInt8, core.TypeInt8},
		},
		{
			name:   "untyped operand follows the typed one",
			op:     "=",
			args:   []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod), untyped("5")},
			params: []core.TypeTag{core.TypeInt4, core.TypeInt4},
		},
		{
			name:   "varchar compares as text",
			op:     "=",
			args:   []bound.Expr{column("a", core.TypeVarchar, core.LengthMod(4)), untyped("x")},
			params: []core.TypeTag{core.TypeText, core.TypeText},
		},
		{
			name:   "all untyped operands prefer text",
			op:     "=",
			args:   []bound.Expr{untyped("a"), untyped("b")},
			params: []core.TypeTag{core.TypeText, core.TypeText},
		},
		{
			name:    "no implicit path",
			op:      "+",
			args:    []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod), column("b", core.TypeText, core.NoTypeMod)},
			errKind: core.ErrNoMatchingOperator,
		},
		{
			name:    "untyped operand without text candidate is ambiguous",
			op:      "-",
			args:    []bound.Expr{untyped("1")},
			errKind: core.ErrAmbiguousOverload,
		},
		{
			name:    "invalid untyped literal",
			op:      "+",
			args:    []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod), untyped("x")},
			errKind: core.ErrIncompatibleTypes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigs := cat.LookupOperatorSignatures(tt.op, len(tt.args))
			m, err := e.ResolveOverload(tt.op, sigs, tt.args)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errKind, core.KindOf(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params, m.Signature.Params)
			for i, a := range m.Args {
				assert.Equal(t, tt.params[i], bound.DeriveType(a))
			}
		})
	}
}

func TestResolveOverload_Ambiguous(t *testing.T) {
	e := defEngine(t, &catalog.Definition{
		Types: []catalog.TypeDef{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Casts: []catalog.CastDef{
			{From: "a", To: "b", Kind: "implicit"},
			{From: "a", To: "c", Kind: "implicit"},
		},
		Functions: []catalog.SignatureDef{
			{Name: "f", Args: []string{"b"}, Returns: "b"},
			{Name: "f", Args: []string{"c"}, Returns: "c"},
		},
	})

	arg := &bound.Var{Name: "x", Type: "a", Mod: core.NoTypeMod}
	_, err := e.ResolveOverload("f", e.Catalog().LookupFunctionSignatures("f", 1), []bound.Expr{arg})
	require.Error(t, err)
	assert.Equal(t, core.ErrAmbiguousOverload, core.KindOf(err))
	assert.Contains(t, err.Error(), "f(b)")
	assert.Contains(t, err.Error(), "f(c)")
}

func TestResolveOverload_NoCandidates(t *testing.T) {
	e := builtinEngine(t)
	_, err := e.ResolveOverload("frobnicate", nil, []bound.Expr{column("a", core.TypeInt4, core.NoTypeMod)})
	require.Error(t, err)
	assert.Equal(t, core.ErrNoMatchingOperator, core.KindOf(err))
	assert.Contains(t, err.Error(), "frobnicate(int4)")
}
