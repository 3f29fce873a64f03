package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/core"
)

// Placeholder selects the bind parameter syntax of the target database.
type Placeholder int

// Placeholder constants.
const (
	PlaceholderDollar   Placeholder = iota // $1, $2 (postgres)
	PlaceholderQuestion                    // ?, ? (duckdb, sqlite, mysql)
)

func (p Placeholder) format(n int) string {
	if p == PlaceholderQuestion {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Introspector reads relation shapes from a database's information_schema.
type Introspector struct {
	DB          *sql.DB
	Schema      string // defaults to "public"
	Placeholder Placeholder
	// Composites also reads composite type attributes. Only databases that
	// expose information_schema.attributes support it.
	Composites bool
	Logger     *slog.Logger
}

func (in *Introspector) schema() string {
	if in.Schema == "" {
		return "public"
	}
	return in.Schema
}

func (in *Introspector) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return in.Logger
}

// columnInfo is one row of information_schema.columns or .attributes.
type columnInfo struct {
	owner     string
	name      string
	dataType  string
	udtName   string
	length    sql.NullInt64
	precision sql.NullInt64
	scale     sql.NullInt64
}

// typeSpec renders the catalog type spelling for a column, e.g. varchar(40).
func (c columnInfo) typeSpec() string {
	dt := strings.ToLower(strings.TrimSpace(c.dataType))
	switch dt {
	case "user-defined", "array":
		return c.udtName
	case "character varying", "character":
		if c.length.Valid && c.length.Int64 > 0 {
			return fmt.Sprintf("%s(%d)", CanonicalTypeName(dt), c.length.Int64)
		}
	case "numeric", "decimal":
		if c.precision.Valid && c.precision.Int64 > 0 {
			return fmt.Sprintf("numeric(%d,%d)", c.precision.Int64, c.scale.Int64)
		}
	}
	return CanonicalTypeName(dt)
}

// Definition reads every relation (and, with Composites, every composite
// type) of the schema. Types the builtin catalog does not know are declared
// as user types so the result compiles on top of the builtin definition.
func (in *Introspector) Definition(ctx context.Context) (*Definition, error) {
	if in.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	log := in.logger()

	//nolint:gosec // placeholders come from Placeholder.format
	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			udt_name,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = %s
		ORDER BY table_name, ordinal_position
	`, in.Placeholder.format(1))

	cols, err := in.queryColumns(ctx, query, in.schema())
	if err != nil {
		return nil, err
	}

	def := &Definition{Extends: ExtendsBuiltin}
	for _, group := range groupByOwner(cols) {
		rel := RelationDef{Name: group[0].owner}
		for _, c := range group {
			rel.Columns = append(rel.Columns, ColumnDef{Name: c.name, Type: c.typeSpec()})
		}
		def.Relations = append(def.Relations, rel)
	}

	if in.Composites {
		//nolint:gosec // placeholders come from Placeholder.format
		attrQuery := fmt.Sprintf(`
			SELECT
				udt_name,
				attribute_name,
				data_type,
				attribute_udt_name,
				character_maximum_length,
				numeric_precision,
				numeric_scale
			FROM information_schema.attributes
			WHERE udt_schema = %s
			ORDER BY udt_name, ordinal_position
		`, in.Placeholder.format(1))

		attrs, err := in.queryColumns(ctx, attrQuery, in.schema())
		if err != nil {
			return nil, err
		}
		for _, group := range groupByOwner(attrs) {
			td := TypeDef{Name: group[0].owner, Category: "composite"}
			for _, c := range group {
				td.Fields = append(td.Fields, ColumnDef{Name: c.name, Type: c.typeSpec()})
			}
			def.Types = append(def.Types, td)
		}
	}

	declareUserTypes(def)

	log.Debug("introspected schema",
		slog.String("schema", in.schema()),
		slog.Int("relations", len(def.Relations)),
		slog.Int("composites", len(def.Types)))
	return def, nil
}

// FetchRelation reads one relation's columns. It returns nil without error
// when the relation does not exist.
func (in *Introspector) FetchRelation(ctx context.Context, name string) (*RelationDef, error) {
	if in.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, table := in.schema(), name
	if parts := strings.Split(name, "."); len(parts) == 2 {
		schema, table = parts[0], parts[1]
	}

	//nolint:gosec // placeholders come from Placeholder.format
	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			udt_name,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, in.Placeholder.format(1), in.Placeholder.format(2))

	cols, err := in.queryColumns(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}

	rel := &RelationDef{Name: name}
	for _, c := range cols {
		rel.Columns = append(rel.Columns, ColumnDef{Name: c.name, Type: c.typeSpec()})
	}
	in.logger().Debug("fetched relation", slog.String("relation", name), slog.Int("columns", len(rel.Columns)))
	return rel, nil
}

func (in *Introspector) queryColumns(ctx context.Context, query string, args ...any) ([]columnInfo, error) {
	rows, err := in.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.owner, &c.name, &c.dataType, &c.udtName, &c.length, &c.precision, &c.scale); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return cols, nil
}

// groupByOwner splits rows ordered by owner into one slice per owner.
func groupByOwner(cols []columnInfo) [][]columnInfo {
	var groups [][]columnInfo
	for i, c := range cols {
		if i == 0 || c.owner != cols[i-1].owner {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], c)
	}
	return groups
}

// declareUserTypes adds a user type for every referenced type name that is
// neither builtin nor declared in def.
func declareUserTypes(def *Definition) {
	known := make(map[string]bool)
	for _, t := range Builtin().Types {
		known[t.Name] = true
	}
	for _, t := range def.Types {
		known[CanonicalTypeName(t.Name)] = true
	}

	declare := func(spec string) {
		name, _, err := ParseTypeSpec(spec)
		if err != nil || known[name] {
			return
		}
		known[name] = true
		def.Types = append(def.Types, TypeDef{Name: name, Category: "user"})
	}
	for _, r := range def.Relations {
		for _, c := range r.Columns {
			declare(c.Type)
		}
	}
	for _, t := range def.Types {
		for _, f := range t.Fields {
			declare(f.Type)
		}
	}
}

// relationShape converts a fetched relation into its shape, keeping column
// types the base catalog does not know as opaque tags.
func relationShape(base *Memory, rd *RelationDef) *core.RelationShape {
	shape := &core.RelationShape{Name: rd.Name, RowType: base.tag(rd.Name)}
	for _, c := range rd.Columns {
		name, mods, err := ParseTypeSpec(c.Type)
		field := core.Field{Name: c.Name, Type: base.tag(name), Mod: core.NoTypeMod}
		if err == nil {
			if info, ok := base.LookupType(field.Type); ok {
				if mod, err := TypeModFor(info, mods); err == nil {
					field.Mod = mod
				}
			}
		}
		shape.Columns = append(shape.Columns, field)
	}
	return shape
}
