package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/leapbind/pkg/binder"
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/format"
	"github.com/leapstack-labs/leapbind/pkg/query"
)

// generateBindingDocs generates the binder reference: contexts, result
// coercion modes, literal typing and error kinds.
func generateBindingDocs(outDir string) error {
	log.Printf("Generating binding docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	doc, err := bindingDoc(catalog.MustBuiltin())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "binding.md"), doc, 0600); err != nil {
		return err
	}
	log.Printf("  Generated binding.md")
	return nil
}

var contextDescriptions = map[binder.ContextKind]string{
	binder.TopLevel:         "An expression bound on its own, e.g. a select target or `leapbind bind` input.",
	binder.OperandOf:        "An operand of an operator. Untyped literals wait for overload resolution.",
	binder.FunctionArgument: "An argument of a function call.",
	binder.CastSource:       "The argument of an explicit cast. Untyped literals are parsed as the target type.",
	binder.ChainHead:        "A value whose fields are about to be selected.",
	binder.Condition:        "An operand of AND, OR or NOT. Must be boolean or untyped.",
	binder.SubLinkTest:      "The left-hand side of `op ANY` or `op ALL`.",
}

var errorKinds = []struct {
	kind core.ErrorKind
	desc string
}{
	{core.ErrAmbiguousOrUnknownName, "A name matches no visible column or relation, or more than one column."},
	{core.ErrUnknownField, "A relation has no such column, or a composite type no such field."},
	{core.ErrNotComposite, "A field is selected from a value that is not a composite."},
	{core.ErrNoMatchingOperator, "No operator or function accepts the argument types."},
	{core.ErrAmbiguousOverload, "More than one operator or function fits equally well."},
	{core.ErrIncompatibleTypes, "No cast path exists, or a literal is not valid for its type."},
	{core.ErrImplicitCastNotAllowed, "A cast exists but the context forbids inserting it."},
	{core.ErrMalformedNode, "The input tree is structurally invalid."},
}

// literalSamples are bound against the builtin catalog to show how bare
// literals and mixed arithmetic are typed.
var literalSamples = []string{
	"42",
	"3000000000",
	"1.5",
	"'abc'",
	"NULL",
	"1 + 2.5",
	"'12.345'::numeric(5,2)",
	"length('abc') > 2",
}

func bindingDoc(cat core.Catalog) ([]byte, error) {
	b, err := query.New(cat)
	if err != nil {
		return nil, err
	}
	sc, err := b.Scope()
	if err != nil {
		return nil, err
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Binding", "How leapbind types expressions and reports failures")
	w.GeneratedMarker()

	w.Header(1, "Binding")
	w.Paragraph("Every node of a bound expression carries one type. Names are resolved against the relations in scope, " +
		"operators and functions against the catalog, and each conversion is recorded as a cast node.")

	w.Header(2, "Contexts")
	w.Paragraph("The binder passes a context to every child it binds. The context decides how untyped values and casts are handled:")
	var rows [][]string
	for k := binder.TopLevel; k <= binder.SubLinkTest; k++ {
		rows = append(rows, []string{InlineCode(k.String()), contextDescriptions[k]})
	}
	w.Table([]string{"Context", "Meaning"}, rows)

	w.Header(2, "Result Coercion")
	w.Paragraph("`--expect` and `--strict` choose how the result is converted to a target type:")
	modes := []struct {
		flag string
		ctx  binder.Context
	}{
		{"(none)", binder.Top()},
		{"--expect numeric(10,2)", binder.Assignment(core.TypeNumeric, core.NumericMod(10, 2))},
		{"--expect numeric(10,2) --strict", binder.Strict(core.TypeNumeric, core.NumericMod(10, 2))},
	}
	rows = nil
	for _, m := range modes {
		target := "-"
		if m.ctx.Expected != core.TypeInvalid {
			target = InlineCode(core.FormatType(m.ctx.Expected, m.ctx.ExpectedMod))
		}
		rows = append(rows, []string{InlineCode(m.flag), target, strconv.FormatBool(m.ctx.AllowImplicit)})
	}
	w.Table([]string{"Flags", "Target", "Implicit casts"}, rows)
	w.Paragraph("Without implicit casts only untyped literals and modifier changes are accepted.")

	w.Header(2, "Literal Typing")
	rows = nil
	for _, input := range literalSamples {
		e, err := b.BindExpr(input, sc, binder.Top())
		if err != nil {
			rows = append(rows, []string{InlineCode(input), "-", string(core.KindOf(err))})
			continue
		}
		typ := core.FormatType(bound.DeriveType(e), bound.DeriveTypeMod(e))
		rows = append(rows, []string{InlineCode(input), InlineCode(format.Expr(e)), InlineCode(typ)})
	}
	w.Table([]string{"Input", "Bound", "Type"}, rows)

	w.Header(2, "Errors")
	w.Paragraph("A failed bind reports one of these kinds. `leapbind serve` answers them with status 422.")
	rows = nil
	for _, k := range errorKinds {
		rows = append(rows, []string{InlineCode(string(k.kind)), k.desc})
	}
	w.Table([]string{"Kind", "Meaning"}, rows)

	return w.Bytes(), nil
}
