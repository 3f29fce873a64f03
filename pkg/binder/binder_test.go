package binder_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/testutil"
	"github.com/leapstack-labs/leapbind/pkg/binder"
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
	"github.com/leapstack-labs/leapbind/pkg/parser"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

const shopYAML = `
extends: builtin
types:
  - name: address
    fields:
      - name: city
        type: text
      - name: zip
        type: varchar(10)
relations:
  - name: orders
    columns:
      - name: id
        type: int4
      - name: customer_id
        type: int4
      - name: total
        type: numeric
      - name: placed
        type: date
  - name: cust
    columns:
      - name: id
        type: int4
      - name: name
        type: text
      - name: address
        type: address
`

func shopCatalog(t *testing.T) *catalog.Memory {
	t.Helper()
	def, err := catalog.Parse([]byte(shopYAML))
	require.NoError(t, err)
	cat, err := catalog.New(def)
	require.NoError(t, err)
	return cat
}

func newBinder(t *testing.T, cat core.Catalog, opts ...binder.Option) *binder.Binder {
	t.Helper()
	opts = append([]binder.Option{binder.WithLogger(testutil.NewTestLogger(t))}, opts...)
	b, err := binder.New(cat, opts...)
	require.NoError(t, err)
	return b
}

// newScope builds a root scope from entries of the form "relation [alias]".
func newScope(t *testing.T, cat core.Catalog, rels ...string) *scope.Scope {
	t.Helper()
	sc := scope.New(ident.Default)
	for _, r := range rels {
		parts := strings.Fields(r)
		alias := ""
		if len(parts) > 1 {
			alias = parts[1]
		}
		_, err := sc.AddTable(cat, parts[0], alias)
		require.NoError(t, err)
	}
	return sc
}

func bindString(t *testing.T, b *binder.Binder, sc *scope.Scope, input string, ctx binder.Context) (bound.Expr, error) {
	t.Helper()
	raw, err := parser.ParseExpr(input)
	require.NoError(t, err, "parse %q", input)
	return b.Bind(raw, sc, ctx)
}

func TestNew(t *testing.T) {
	cat := shopCatalog(t)

	_, err := binder.New(nil)
	assert.ErrorIs(t, err, core.ErrCatalogRequired)

	_, err = binder.New(cat, binder.WithDefaultNumeric(core.TypeText))
	assert.ErrorContains(t, err, "is not numeric")

	_, err = binder.New(cat, binder.WithDefaultNumeric("money"))
	assert.ErrorContains(t, err, "does not exist")

	_, err = binder.New(cat, binder.WithParamTypes(core.TypeInt4, "money"))
	assert.ErrorContains(t, err, "parameter $2")

	b, err := binder.New(cat, binder.WithDefaultNumeric(core.TypeFloat8), binder.WithMaxCastDepth(3))
	require.NoError(t, err)
	assert.Equal(t, 3, b.Engine().MaxDepth())
}

func TestBind_FieldSelection(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders", "cust")

	out, err := bindString(t, b, sc, "cust.address.city", binder.Top())
	require.NoError(t, err)

	fs, ok := out.(*bound.FieldSelect)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "city", fs.Field)
	assert.Equal(t, 1, fs.FieldNo)
	assert.Equal(t, core.TypeText, bound.DeriveType(out))

	v, ok := fs.Arg.(*bound.Var)
	require.True(t, ok, "got %T", fs.Arg)
	assert.Equal(t, "cust", v.Relation)
	assert.Equal(t, 2, v.RelIndex)
	assert.Equal(t, 3, v.AttNo)
	assert.Equal(t, core.TypeTag("address"), v.Type)
}

func TestBind_Names(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)

	tests := []struct {
		name     string
		scope    []string
		input    string
		wantType core.TypeTag
		errKind  core.ErrorKind
		check    func(t *testing.T, out bound.Expr)
	}{
		{
			name:     "qualified column",
			scope:    []string{"orders", "cust"},
			input:    "orders.total",
			wantType: core.TypeNumeric,
		},
		{
			name:     "alias qualifies",
			scope:    []string{"orders o"},
			input:    "o.placed",
			wantType: core.TypeDate,
			check: func(t *testing.T, out bound.Expr) {
				v := out.(*bound.Var)
				assert.Equal(t, "o", v.Relation)
				assert.Equal(t, 4, v.AttNo)
			},
		},
		{
			name:     "case folded",
			scope:    []string{"orders"},
			input:    "ORDERS.Total",
			wantType: core.TypeNumeric,
		},
		{
			name:     "unique bare column",
			scope:    []string{"orders", "cust"},
			input:    "customer_id",
			wantType: core.TypeInt4,
		},
		{
			name:    "ambiguous bare column",
			scope:   []string{"orders", "cust"},
			input:   "id",
			errKind: core.ErrAmbiguousOrUnknownName,
		},
		{
			name:    "ambiguous bare column named like an alias",
			scope:   []string{"orders id", "cust"},
			input:   "id",
			errKind: core.ErrAmbiguousOrUnknownName,
		},
		{
			name:     "unique bare column named like an alias",
			scope:    []string{"orders id"},
			input:    "id",
			wantType: core.TypeInt4,
			check: func(t *testing.T, out bound.Expr) {
				assert.IsType(t, &bound.Var{}, out)
			},
		},
		{
			name:     "alias without a matching column",
			scope:    []string{"orders o", "cust"},
			input:    "o",
			wantType: core.TypeTag("orders"),
			check: func(t *testing.T, out bound.Expr) {
				assert.IsType(t, &bound.RowRef{}, out)
			},
		},
		{
			name:    "unknown bare column",
			scope:   []string{"orders"},
			input:   "nope",
			errKind: core.ErrAmbiguousOrUnknownName,
		},
		{
			name:    "unknown column of relation",
			scope:   []string{"orders", "cust"},
			input:   "orders.missing",
			errKind: core.ErrUnknownField,
		},
		{
			name:     "whole row",
			scope:    []string{"orders", "cust"},
			input:    "cust",
			wantType: core.TypeTag("cust"),
			check: func(t *testing.T, out bound.Expr) {
				r, ok := out.(*bound.RowRef)
				require.True(t, ok, "got %T", out)
				assert.Equal(t, 2, r.RelIndex)
			},
		},
		{
			name:     "relation wins over column",
			scope:    []string{"orders address", "cust"},
			input:    "address.total",
			wantType: core.TypeNumeric,
		},
		{
			name:    "relation shadows composite column",
			scope:   []string{"orders address", "cust"},
			input:   "address.city",
			errKind: core.ErrUnknownField,
		},
		{
			name:     "field of bare composite column",
			scope:    []string{"orders", "cust"},
			input:    "address.zip",
			wantType: core.TypeVarchar,
			check: func(t *testing.T, out bound.Expr) {
				assert.Equal(t, core.LengthMod(10), bound.DeriveTypeMod(out))
			},
		},
		{
			name:    "field of scalar",
			scope:   []string{"orders"},
			input:   "orders.id.foo",
			errKind: core.ErrNotComposite,
		},
		{
			name:    "unknown field",
			scope:   []string{"cust"},
			input:   "cust.address.street",
			errKind: core.ErrUnknownField,
		},
		{
			name:     "field access on parenthesized value",
			scope:    []string{"cust"},
			input:    "(cust.address).zip",
			wantType: core.TypeVarchar,
			check: func(t *testing.T, out bound.Expr) {
				fs := out.(*bound.FieldSelect)
				assert.Equal(t, 2, fs.FieldNo)
			},
		},
		{
			name:     "field access through whole row",
			scope:    []string{"cust"},
			input:    "(cust).address.city",
			wantType: core.TypeText,
			check: func(t *testing.T, out bound.Expr) {
				outer := out.(*bound.FieldSelect)
				inner, ok := outer.Arg.(*bound.FieldSelect)
				require.True(t, ok, "got %T", outer.Arg)
				assert.IsType(t, &bound.RowRef{}, inner.Arg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newScope(t, cat, tt.scope...)
			out, err := bindString(t, b, sc, tt.input, binder.Top())
			if tt.errKind != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, bound.DeriveType(out))
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestBind_Idempotent(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders", "cust")

	first, err := bindString(t, b, sc, "orders.id + orders.total", binder.Top())
	require.NoError(t, err)

	again, err := b.Bind(first, sc, binder.Top())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, bound.DeriveType(first), bound.DeriveType(again))
}

func TestBind_MixedArithmetic(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders")

	out, err := bindString(t, b, sc, "orders.id + orders.total", binder.Top())
	require.NoError(t, err)

	op, ok := out.(*bound.OpExpr)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "+", op.Op)
	assert.Equal(t, core.TypeNumeric, op.Result)

	cast, ok := op.Args[0].(*bound.Cast)
	require.True(t, ok, "got %T", op.Args[0])
	assert.True(t, cast.Implicit)
	assert.Equal(t, core.TypeNumeric, cast.Target)
	assert.IsType(t, &bound.Var{}, cast.Arg)
	assert.IsType(t, &bound.Var{}, op.Args[1])
}

func TestBind_MinimalCatalog(t *testing.T) {
	cat, err := catalog.New(&catalog.Definition{
		Types: []catalog.TypeDef{
			{Name: "int4", Category: "numeric", Integral: true},
			{Name: "numeric", Category: "numeric", Modifier: "numeric"},
		},
		Relations: []catalog.RelationDef{
			{Name: "t", Columns: []catalog.ColumnDef{
				{Name: "i", Type: "int4"},
				{Name: "n", Type: "numeric"},
			}},
		},
		Casts: []catalog.CastDef{
			{From: "int4", To: "numeric", Kind: "implicit"},
		},
		Operators: []catalog.SignatureDef{
			{Name: "+", Args: []string{"numeric", "numeric"}, Returns: "numeric"},
		},
	})
	require.NoError(t, err)

	b := newBinder(t, cat)
	sc := newScope(t, cat, "t")

	out, err := bindString(t, b, sc, "i + n", binder.Top())
	require.NoError(t, err)
	op := out.(*bound.OpExpr)
	assert.Equal(t, core.TypeNumeric, op.Result)
	cast, ok := op.Args[0].(*bound.Cast)
	require.True(t, ok, "got %T", op.Args[0])
	assert.Equal(t, core.TypeNumeric, cast.Target)

	_, err = bindString(t, b, sc, "i - n", binder.Top())
	assert.True(t, errors.Is(err, core.ErrNoMatchingOperator), "got %v", err)
}

func TestBind_Literals(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat)

	tests := []struct {
		input    string
		wantType core.TypeTag
		want     any
		isNull   bool
	}{
		{input: "42", wantType: core.TypeInt4, want: int64(42)},
		{input: "3000000000", wantType: core.TypeInt8, want: int64(3000000000)},
		{input: "12345678901234567890", wantType: core.TypeNumeric, want: decimal.RequireFromString("12345678901234567890")},
		{input: "1.5", wantType: core.TypeNumeric, want: decimal.RequireFromString("1.5")},
		{input: "2e3", wantType: core.TypeNumeric, want: decimal.RequireFromString("2000")},
		{input: "'abc'", wantType: core.TypeText, want: "abc"},
		{input: "TRUE", wantType: core.TypeBool, want: true},
		{input: "false", wantType: core.TypeBool, want: false},
		{input: "NULL", wantType: core.TypeText, isNull: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := bindString(t, b, sc, tt.input, binder.Top())
			require.NoError(t, err)

			c, ok := out.(*bound.Const)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.isNull, c.IsNull)
			if d, isDec := tt.want.(decimal.Decimal); isDec {
				got, ok := c.Value.(decimal.Decimal)
				require.True(t, ok, "got %T", c.Value)
				assert.True(t, d.Equal(got), "want %s, got %s", d, got)
				return
			}
			assert.Equal(t, tt.want, c.Value)
		})
	}
}

func TestBind_DefaultNumeric(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat, binder.WithDefaultNumeric(core.TypeFloat8))

	out, err := bindString(t, b, newScope(t, cat), "1.5", binder.Top())
	require.NoError(t, err)
	c := out.(*bound.Const)
	assert.Equal(t, core.TypeFloat8, c.Type)
	assert.Equal(t, 1.5, c.Value)
}

func TestBind_Casts(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)

	tests := []struct {
		name     string
		input    string
		wantType core.TypeTag
		errKind  core.ErrorKind
		check    func(t *testing.T, out bound.Expr)
	}{
		{
			name:     "literal resolved with modifier",
			input:    "'12.345'::numeric(5,2)",
			wantType: core.TypeNumeric,
			check: func(t *testing.T, out bound.Expr) {
				c, ok := out.(*bound.Const)
				require.True(t, ok, "got %T", out)
				assert.Equal(t, core.NumericMod(5, 2), c.Mod)
				assert.True(t, decimal.RequireFromString("12.35").Equal(c.Value.(decimal.Decimal)))
			},
		},
		{
			name:     "explicit narrowing",
			input:    "CAST(orders.total AS int4)",
			wantType: core.TypeInt4,
			check: func(t *testing.T, out bound.Expr) {
				c, ok := out.(*bound.Cast)
				require.True(t, ok, "got %T", out)
				assert.False(t, c.Implicit)
				assert.Equal(t, 1, c.Loc.Column)
			},
		},
		{
			name:     "type alias",
			input:    "orders.id::integer",
			wantType: core.TypeInt4,
			check: func(t *testing.T, out bound.Expr) {
				assert.IsType(t, &bound.Var{}, out)
			},
		},
		{
			name:     "multi-word type name",
			input:    "orders.id::double precision",
			wantType: core.TypeFloat8,
		},
		{
			name:     "over-long literal truncated",
			input:    "'abcd'::varchar(3)",
			wantType: core.TypeVarchar,
			check: func(t *testing.T, out bound.Expr) {
				assert.Equal(t, "abc", out.(*bound.Const).Value)
			},
		},
		{
			name:    "unknown type",
			input:   "orders.id::nosuchtype",
			errKind: core.ErrAmbiguousOrUnknownName,
		},
		{
			name:    "bad modifier",
			input:   "orders.id::varchar(1,2)",
			errKind: core.ErrMalformedNode,
		},
		{
			name:    "no cast path",
			input:   "orders.id::date",
			errKind: core.ErrIncompatibleTypes,
		},
		{
			name:    "unparsable literal",
			input:   "'soon'::date",
			errKind: core.ErrIncompatibleTypes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := bindString(t, b, newScope(t, cat, "orders"), tt.input, binder.Top())
			if tt.errKind != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, bound.DeriveType(out))
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestBind_Conditions(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders")

	out, err := bindString(t, b, sc, "orders.id > 1 AND orders.total < 10 OR NOT 't'", binder.Top())
	require.NoError(t, err)
	or, ok := out.(*bound.BoolExpr)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, bound.BoolOr, or.Kind)
	and := or.Args[0].(*bound.BoolExpr)
	assert.Equal(t, bound.BoolAnd, and.Kind)
	not := or.Args[1].(*bound.BoolExpr)
	assert.Equal(t, bound.BoolNot, not.Kind)
	lit := not.Args[0].(*bound.Const)
	assert.Equal(t, core.TypeBool, lit.Type)
	assert.Equal(t, true, lit.Value)

	_, err = bindString(t, b, sc, "orders.id AND true", binder.Top())
	assert.True(t, errors.Is(err, core.ErrImplicitCastNotAllowed), "got %v", err)

	_, err = bindString(t, b, sc, "NOT 'maybe'", binder.Top())
	assert.True(t, errors.Is(err, core.ErrIncompatibleTypes), "got %v", err)

	out, err = bindString(t, b, sc, "orders.placed IS NULL", binder.Top())
	require.NoError(t, err)
	nt := out.(*bound.NullTest)
	assert.False(t, nt.Negated)

	out, err = bindString(t, b, sc, "NULL IS NOT NULL", binder.Top())
	require.NoError(t, err)
	nt = out.(*bound.NullTest)
	assert.True(t, nt.Negated)
	assert.Equal(t, core.TypeText, bound.DeriveType(nt.Arg))
}

func TestBind_ExpectedType(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders")

	tests := []struct {
		name    string
		input   string
		ctx     binder.Context
		errKind core.ErrorKind
		check   func(t *testing.T, out bound.Expr)
	}{
		{
			name:  "assignment widens",
			input: "orders.id",
			ctx:   binder.Assignment(core.TypeNumeric, core.NumericMod(10, 2)),
			check: func(t *testing.T, out bound.Expr) {
				c, ok := out.(*bound.Cast)
				require.True(t, ok, "got %T", out)
				assert.True(t, c.Implicit)
				assert.Equal(t, core.NumericMod(10, 2), c.Mod)
			},
		},
		{
			name:    "strict rejects a cast",
			input:   "orders.id",
			ctx:     binder.Strict(core.TypeNumeric, core.NoTypeMod),
			errKind: core.ErrImplicitCastNotAllowed,
		},
		{
			name:  "strict resolves a literal",
			input: "'7'",
			ctx:   binder.Strict(core.TypeInt8, core.NoTypeMod),
			check: func(t *testing.T, out bound.Expr) {
				assert.Equal(t, int64(7), out.(*bound.Const).Value)
			},
		},
		{
			name:  "assignment fits string",
			input: "'abc'",
			ctx:   binder.Assignment(core.TypeVarchar, core.LengthMod(3)),
			check: func(t *testing.T, out bound.Expr) {
				c := out.(*bound.Const)
				assert.Equal(t, core.TypeVarchar, c.Type)
				assert.Equal(t, "abc", c.Value)
			},
		},
		{
			name:    "assignment rejects long string",
			input:   "'abcd'",
			ctx:     binder.Assignment(core.TypeVarchar, core.LengthMod(3)),
			errKind: core.ErrIncompatibleTypes,
		},
		{
			name:    "assignment with no path",
			input:   "orders.placed",
			ctx:     binder.Assignment(core.TypeInt4, core.NoTypeMod),
			errKind: core.ErrIncompatibleTypes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := bindString(t, b, sc, tt.input, tt.ctx)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ctx.Expected, bound.DeriveType(out))
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestBind_Params(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat, binder.WithParamTypes(core.TypeInt4))
	sc := newScope(t, cat, "orders")

	out, err := bindString(t, b, sc, "$1 + 1", binder.Top())
	require.NoError(t, err)
	assert.Equal(t, core.TypeInt4, bound.DeriveType(out))

	out, err = bindString(t, b, sc, "$2 = orders.total", binder.Top())
	require.NoError(t, err)
	op := out.(*bound.OpExpr)
	p, ok := op.Args[0].(*bound.Param)
	require.True(t, ok, "got %T", op.Args[0])
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, core.TypeNumeric, p.Type)

	out, err = bindString(t, b, sc, "$3", binder.Top())
	require.NoError(t, err)
	assert.Equal(t, core.TypeText, bound.DeriveType(out))
}

func TestBind_Functions(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders", "cust")

	tests := []struct {
		input    string
		wantType core.TypeTag
		errKind  core.ErrorKind
	}{
		{input: "count(*)", wantType: core.TypeInt8},
		{input: "COUNT(orders.placed)", wantType: core.TypeInt8},
		{input: "lower(cust.name)", wantType: core.TypeText},
		{input: "upper(cust.address.zip)", wantType: core.TypeText},
		{input: "round(orders.total, 2)", wantType: core.TypeNumeric},
		{input: "round(orders.id)", wantType: core.TypeNumeric},
		{input: "now()", wantType: core.TypeTimestamp},
		{input: "'a' || 'b'", wantType: core.TypeText},
		{input: "'1' + 1", wantType: core.TypeInt4},
		{input: "-orders.total", wantType: core.TypeNumeric},
		{input: "lower(orders.id)", errKind: core.ErrNoMatchingOperator},
		{input: "nosuch(1)", errKind: core.ErrNoMatchingOperator},
		{input: "abs('1')", errKind: core.ErrAmbiguousOverload},
		{input: "'x' + 1", errKind: core.ErrIncompatibleTypes},
		{input: "orders.placed + 1", errKind: core.ErrNoMatchingOperator},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := bindString(t, b, sc, tt.input, binder.Top())
			if tt.errKind != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, bound.DeriveType(out))
		})
	}
}

func TestBind_FuncExprName(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)

	out, err := bindString(t, b, newScope(t, cat), "COUNT(*)", binder.Top())
	require.NoError(t, err)
	fn := out.(*bound.FuncExpr)
	assert.Equal(t, "count", fn.Name)
	assert.True(t, fn.Star)
	assert.Empty(t, fn.Args)
}

func TestBind_ErrorPosition(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)

	_, err := bindString(t, b, newScope(t, cat, "orders"), "orders.id + orders.missing", binder.Top())
	var be *core.BindError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, core.ErrUnknownField, be.Kind)
	assert.Equal(t, "missing", be.Name)
	assert.Equal(t, 1, be.Pos.Line)
	assert.Equal(t, 13, be.Pos.Column)
}

func TestBind_Malformed(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "orders")
	one := &core.Const{Kind: core.LiteralInteger, Value: "1"}

	tests := []struct {
		name string
		node core.Node
		sc   *scope.Scope
	}{
		{name: "nil node", node: nil, sc: sc},
		{name: "nil scope", node: one, sc: nil},
		{name: "and without right", node: &core.AExpr{Kind: core.ExprAnd, Left: one}, sc: sc},
		{name: "not with left", node: &core.AExpr{Kind: core.ExprNot, Left: one, Right: one}, sc: sc},
		{name: "operator without name", node: &core.AExpr{Kind: core.ExprOp, Left: one, Right: one}, sc: sc},
		{name: "operator without right", node: &core.AExpr{Kind: core.ExprOp, Op: "+", Left: one}, sc: sc},
		{name: "is null with right", node: &core.AExpr{Kind: core.ExprIsNull, Right: one}, sc: sc},
		{name: "empty chain", node: &core.Chain{}, sc: sc},
		{name: "empty chain segment", node: &core.Chain{Segments: []string{"orders", ""}}, sc: sc},
		{name: "column without name", node: &core.ColumnRef{Relation: "orders"}, sc: sc},
		{name: "field access without fields", node: &core.FieldAccess{Arg: one}, sc: sc},
		{name: "star with args", node: &core.FuncCall{Name: "count", Star: true, Args: []core.RawExpr{one}}, sc: sc},
		{name: "function without name", node: &core.FuncCall{}, sc: sc},
		{name: "cast without type", node: &core.TypeCast{Arg: one}, sc: sc},
		{name: "param zero", node: &core.ParamRef{Number: 0}, sc: sc},
		{name: "bad boolean", node: &core.Const{Kind: core.LiteralBool, Value: "yes please"}, sc: sc},
		{name: "sub-link without select", node: &core.SubLink{Kind: core.SubLinkExists}, sc: sc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Bind(tt.node, tt.sc, binder.Top())
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrMalformedNode), "got %v", err)
		})
	}
}

func TestResolveChain(t *testing.T) {
	cat := shopCatalog(t)
	b := newBinder(t, cat)
	sc := newScope(t, cat, "cust c")

	out, err := b.ResolveChain([]string{"c", "address", "city"}, sc, binder.Top())
	require.NoError(t, err)
	assert.Equal(t, core.TypeText, bound.DeriveType(out))

	out, err = b.ResolveChain([]string{"c", "address", "zip"}, sc, binder.Assignment(core.TypeText, core.NoTypeMod))
	require.NoError(t, err)
	cast, ok := out.(*bound.Cast)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, core.TypeText, cast.Target)
	assert.IsType(t, &bound.FieldSelect{}, cast.Arg)

	_, err = b.ResolveChain([]string{"c", "address", "zip"}, sc, binder.Strict(core.TypeText, core.NoTypeMod))
	assert.True(t, errors.Is(err, core.ErrImplicitCastNotAllowed), "got %v", err)

	_, err = b.ResolveChain(nil, sc, binder.Top())
	assert.True(t, errors.Is(err, core.ErrMalformedNode))

	_, err = b.ResolveChain([]string{"c"}, nil, binder.Top())
	assert.True(t, errors.Is(err, core.ErrMalformedNode))
}

func TestResolveType(t *testing.T) {
	b := newBinder(t, shopCatalog(t))

	info, mod, err := b.ResolveType(&core.TypeName{Name: "character varying", Mods: []int{20}})
	require.NoError(t, err)
	assert.Equal(t, core.TypeVarchar, info.Tag)
	assert.Equal(t, core.LengthMod(20), mod)

	_, _, err = b.ResolveType(&core.TypeName{Name: "numeric", Mods: []int{3, 5}})
	assert.True(t, errors.Is(err, core.ErrMalformedNode))

	_, _, err = b.ResolveType(&core.TypeName{Name: "int4", Mods: []int{3}})
	assert.True(t, errors.Is(err, core.ErrMalformedNode))
}
