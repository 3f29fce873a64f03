package commands

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapbind/internal/cli/output"
	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect, import and export type catalogs",
		Long: `Inspect the catalog expressions are bound against, import one from a live
PostgreSQL database, or export it as YAML.

The catalog comes from --snapshot, --catalog, or the builtin definition, in
that order of preference.`,
	}

	cmd.AddCommand(newCatalogShowCommand())
	cmd.AddCommand(newCatalogTypesCommand())
	cmd.AddCommand(newCatalogFunctionsCommand())
	cmd.AddCommand(newCatalogImportCommand())
	cmd.AddCommand(newCatalogExportCommand())
	return cmd
}

func newCatalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [relation]",
		Short: "List relations, or the columns of one relation",
		Example: `  leapbind catalog show
  leapbind catalog show orders --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return showRelation(cmdCtx, args[0])
			}
			return listRelations(cmdCtx)
		},
	}
}

type relationJSON struct {
	Name    string       `json:"name"`
	RowType string       `json:"row_type"`
	Columns []columnJSON `json:"columns"`
}

func newRelationJSON(rel *core.RelationShape) relationJSON {
	out := relationJSON{Name: rel.Name, RowType: string(rel.RowType)}
	for _, c := range rel.Columns {
		out.Columns = append(out.Columns, columnJSON{Name: c.Name, Type: core.FormatType(c.Type, c.Mod)})
	}
	return out
}

func listRelations(cmdCtx *CommandContext) error {
	r := cmdCtx.Renderer
	rels := cmdCtx.Session.Base().Relations()

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]relationJSON, 0, len(rels))
		for _, rel := range rels {
			out = append(out, newRelationJSON(rel))
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Relations (%d total)", len(rels)))
	r.KeyValue("Catalog", cmdCtx.Session.Origin())
	if len(rels) == 0 {
		r.Muted("No relations declared.")
		return nil
	}

	rows := make([][]string, 0, len(rels))
	for _, rel := range rels {
		names := make([]string, len(rel.Columns))
		for i, c := range rel.Columns {
			names[i] = c.Name
		}
		rows = append(rows, []string{rel.Name, strconv.Itoa(len(rel.Columns)), strings.Join(names, ", ")})
	}
	r.Table([]string{"Relation", "Columns", "Names"}, rows)
	return nil
}

func showRelation(cmdCtx *CommandContext, name string) error {
	r := cmdCtx.Renderer
	rel, ok := cmdCtx.Session.Catalog().LookupRelation(name)
	if !ok {
		return fmt.Errorf("relation %q not found in %s", name, cmdCtx.Session.Origin())
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newRelationJSON(rel))
	}

	r.Header(1, "Relation: "+rel.Name)
	r.KeyValue("Row type", string(rel.RowType))
	rows := make([][]string, 0, len(rel.Columns))
	for i, c := range rel.Columns {
		rows = append(rows, []string{strconv.Itoa(i + 1), c.Name, core.FormatType(c.Type, c.Mod)})
	}
	r.Table([]string{"#", "Column", "Type"}, rows)
	return nil
}

func newCatalogTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List types and their categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return renderTypes(cmdCtx.Renderer, cmdCtx.Session.Base().Types())
		},
	}
}

type typeJSON struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Modifier string `json:"modifier,omitempty"`
	Integral bool   `json:"integral,omitempty"`
}

var modifierNames = map[core.ModKind]string{
	core.ModLength:    "length",
	core.ModPadLength: "padlength",
	core.ModNumeric:   "numeric",
}

func renderTypes(r *output.Renderer, types []*core.TypeInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]typeJSON, 0, len(types))
		for _, t := range types {
			out = append(out, typeJSON{
				Name:     string(t.Tag),
				Category: t.Category.String(),
				Modifier: modifierNames[t.Mod],
				Integral: t.Integral,
			})
		}
		return r.JSON(out)
	}

	titleCaser := cases.Title(language.English)
	rows := make([][]string, 0, len(types))
	for _, t := range types {
		integral := ""
		if t.Integral {
			integral = "yes"
		}
		rows = append(rows, []string{string(t.Tag), titleCaser.String(t.Category.String()), modifierNames[t.Mod], integral})
	}
	r.Table([]string{"Type", "Category", "Modifier", "Integral"}, rows)
	return nil
}

func newCatalogFunctionsCommand() *cobra.Command {
	var operators bool
	cmd := &cobra.Command{
		Use:   "functions [name]",
		Short: "List function or operator signatures",
		Example: `  leapbind catalog functions round
  leapbind catalog functions --operators`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			base := cmdCtx.Session.Base()
			sigs := base.Functions()
			if operators {
				sigs = base.Operators()
			}
			if len(args) == 1 {
				sigs = filterSignatures(sigs, args[0])
			}
			return renderSignatures(cmdCtx.Renderer, sigs)
		},
	}
	cmd.Flags().BoolVar(&operators, "operators", false, "List operators instead of functions")
	return cmd
}

func filterSignatures(sigs []core.Signature, name string) []core.Signature {
	var out []core.Signature
	for _, s := range sigs {
		if strings.EqualFold(s.Name, name) {
			out = append(out, s)
		}
	}
	return out
}

type signatureJSON struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Result string   `json:"result"`
}

func renderSignatures(r *output.Renderer, sigs []core.Signature) error {
	sort.SliceStable(sigs, func(i, j int) bool { return sigs[i].Name < sigs[j].Name })

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]signatureJSON, 0, len(sigs))
		for _, s := range sigs {
			params := make([]string, len(s.Params))
			for i, p := range s.Params {
				params[i] = string(p)
			}
			out = append(out, signatureJSON{Name: s.Name, Params: params, Result: string(s.Result)})
		}
		return r.JSON(out)
	}

	rows := make([][]string, 0, len(sigs))
	for _, s := range sigs {
		params := make([]string, len(s.Params))
		for i, p := range s.Params {
			params[i] = string(p)
		}
		rows = append(rows, []string{s.Name, "(" + strings.Join(params, ", ") + ")", string(s.Result)})
	}
	r.Table([]string{"Name", "Arguments", "Result"}, rows)
	return nil
}

func newCatalogImportCommand() *cobra.Command {
	var (
		label  string
		out    string
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import relation shapes from a PostgreSQL database",
		Long: `Read every relation of a schema from information_schema and store the
result as a catalog snapshot. Use --out to also write it as YAML.`,
		Example: `  leapbind catalog import --dsn postgres://localhost/shop --label prod
  leapbind catalog import --dsn "$DATABASE_URL" --schema sales --out catalog.yaml --no-save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutSession(cmd)
			cfg := cmdCtx.Cfg
			r := cmdCtx.Renderer
			if !cfg.HasSource() {
				return fmt.Errorf("no source database\nHint: pass --dsn or set source.dsn in leapbind.yaml")
			}

			db, err := sql.Open("pgx", cfg.Source.DSN)
			if err != nil {
				return fmt.Errorf("failed to open source database: %w", err)
			}
			defer func() { _ = db.Close() }()

			in := &catalog.Introspector{
				DB:         db,
				Schema:     cfg.Source.Schema,
				Composites: cfg.Source.Composites,
				Logger:     cmdCtx.Logger,
			}
			def, err := in.Definition(cmd.Context())
			if err != nil {
				return err
			}
			// Compile once so a broken import is never stored.
			if _, err := catalog.New(def); err != nil {
				return fmt.Errorf("imported catalog does not compile: %w", err)
			}

			if out != "" {
				data, err := catalog.Marshal(def)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				r.Success(fmt.Sprintf("Wrote %d relations to %s", len(def.Relations), out))
			}
			if noSave {
				return nil
			}

			store, err := openStore(cfg.StatePath, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if label == "" {
				label = cfg.Source.Schema
			}
			snap, err := store.SaveSnapshot(cmd.Context(), def, label, redactDSN(cfg.Source.DSN))
			if err != nil {
				return err
			}
			r.Success(fmt.Sprintf("Saved snapshot %s (%s): %d relations, %d types", snap.ID, snap.Label, snap.RelationCount, snap.TypeCount))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Snapshot label (default: the schema name)")
	cmd.Flags().StringVar(&out, "out", "", "Also write the catalog as YAML to this file")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store a snapshot")
	return cmd
}

func newCatalogExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current catalog as YAML",
		Example: `  leapbind catalog export --snapshot prod --out prod.yaml
  leapbind catalog export > catalog.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := catalog.Marshal(cmdCtx.Session.Base().Definition())
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			cmdCtx.Renderer.Success("Wrote " + out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	return cmd
}

// redactDSN hides the password of a URL-style DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	if user, _, hasPass := strings.Cut(creds, ":"); hasPass {
		return scheme + "://" + user + ":***@" + host
	}
	return dsn
}
