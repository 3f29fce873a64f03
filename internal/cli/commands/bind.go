package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/cli/output"
	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/format"
	"github.com/leapstack-labs/leapbind/pkg/scope"
)

// BindOptions holds options for the bind command.
type BindOptions struct {
	From   []string
	Expect string
	Strict bool
	Params []string
	Tree   bool
}

// NewBindCommand creates the bind command.
func NewBindCommand() *cobra.Command {
	opts := &BindOptions{}
	cmd := &cobra.Command{
		Use:   "bind <expression>",
		Short: "Bind an expression and show its resolved types",
		Long: `Bind a scalar expression (or a SELECT statement) against the catalog and
print the bound tree: every column reference resolved to a relation, every
operator and function resolved to one signature, every implicit cast made
explicit.

Relations visible to the expression come from bind.scope in leapbind.yaml
plus any --from flags.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Bind against two relations
  leapbind bind "o.total * 1.1 > c.credit_limit" --from o=orders --from c=customers

  # Show the full tree with per-node types
  leapbind bind "lower(c.name) || '!'" --from c=customers --tree

  # Coerce the result to a target column type
  leapbind bind "'12.345'" --expect "numeric(5,2)"

  # Bind a statement with a correlated sub-query
  leapbind bind "SELECT c.id FROM customers c WHERE EXISTS (SELECT 1 FROM orders o WHERE o.customer_id = c.id)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBind(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.From, "from", "f", nil, "Relation in scope, as relation or alias=relation (repeatable)")
	cmd.Flags().StringVarP(&opts.Expect, "expect", "e", "", "Coerce the result to this type, e.g. numeric(10,2)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "With --expect, only accept the exact type")
	cmd.Flags().StringSliceVarP(&opts.Params, "param", "p", nil, "Types of $1, $2, ... (comma separated)")
	cmd.Flags().BoolVarP(&opts.Tree, "tree", "T", false, "Show the bound tree with per-node types")

	return cmd
}

func runBind(cmd *cobra.Command, input string, opts *BindOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cmdCtx.Session.Bind(BindRequest{
		Input:  input,
		From:   opts.From,
		Expect: opts.Expect,
		Strict: opts.Strict,
		Params: opts.Params,
	})
	if err != nil {
		return describeError(input, err)
	}
	return renderBindResult(cmdCtx.Renderer, res, opts.Tree)
}

// describeError points at the failing column of single-line input.
func describeError(input string, err error) error {
	line, column, ok := errorPosition(err)
	if !ok || line != 1 || strings.Contains(input, "\n") || column < 1 || column > len(input)+1 {
		return err
	}
	return fmt.Errorf("%w\n  %s\n  %s^", err, input, strings.Repeat(" ", column-1))
}

// bindJSON is the machine-readable form of a BindResult.
type bindJSON struct {
	Input      string       `json:"input"`
	Type       string       `json:"type"`
	Bound      string       `json:"bound"`
	Tree       []string     `json:"tree,omitempty"`
	References []string     `json:"references,omitempty"`
	Columns    []columnJSON `json:"columns,omitempty"`
	OuterSlots []slotJSON   `json:"outer_slots,omitempty"`
}

type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type slotJSON struct {
	Slot     int    `json:"slot"`
	Relation string `json:"relation"`
	Column   string `json:"column"`
}

func newBindJSON(res *BindResult) *bindJSON {
	out := &bindJSON{Input: res.Input, Type: res.Type()}
	if res.Select != nil {
		out.Bound = res.Select.String()
		for _, c := range res.Select.Columns() {
			out.Columns = append(out.Columns, columnJSON{Name: c.Name, Type: core.FormatType(c.Type, c.Mod)})
		}
		out.OuterSlots = slotsJSON(res.Select.OuterSlots())
	} else {
		out.Bound = format.Expr(res.Expr)
		out.Tree = strings.Split(strings.TrimRight(format.Tree(res.Expr), "\n"), "\n")
		out.References = references(res.Expr)
	}
	out.OuterSlots = append(out.OuterSlots, slotsJSON(res.Scope.OuterSlots())...)
	return out
}

// references lists the distinct columns e reads, outside of sub-queries.
func references(e bound.Expr) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, v := range bound.CollectVars(e) {
		name := v.Relation + "." + v.Name
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

func slotsJSON(slots []scope.OuterSlot) []slotJSON {
	out := make([]slotJSON, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotJSON{Slot: s.Slot, Relation: s.Relation, Column: s.Name})
	}
	return out
}

func renderBindResult(r *output.Renderer, res *BindResult, tree bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newBindJSON(res))
	}

	if res.Select != nil {
		r.Code("sql", res.Select.String())
		rows := make([][]string, 0, len(res.Select.Targets))
		for i, c := range res.Select.Columns() {
			rows = append(rows, []string{strconv.Itoa(i + 1), c.Name, core.FormatType(c.Type, c.Mod)})
		}
		r.Table([]string{"#", "Column", "Type"}, rows)
		renderSlots(r, res.Select.OuterSlots())
		return nil
	}

	if tree {
		r.Code("", format.Tree(res.Expr))
	} else {
		r.Code("sql", format.Expr(res.Expr))
	}
	r.KeyValue("Type", res.Type())
	renderSlots(r, res.Scope.OuterSlots())
	return nil
}

func renderSlots(r *output.Renderer, slots []scope.OuterSlot) {
	if len(slots) == 0 {
		return
	}
	rows := make([][]string, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []string{strconv.Itoa(s.Slot), s.Relation + "." + s.Name})
	}
	r.Table([]string{"Slot", "Outer column"}, rows)
}
