// Package catalog provides implementations of core.Catalog.
//
// A catalog is described by a Definition (types, relations, casts, operator
// and function signatures), usually read from YAML, and compiled into an
// immutable Memory catalog that is safe for concurrent lookups. Live
// catalogs fetch relation shapes from a database on demand and are wrapped
// in Live so each relation is introspected at most once.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExtendsBuiltin makes a definition inherit the builtin scalar types, casts,
// operators and functions.
const ExtendsBuiltin = "builtin"

// Definition is the serializable description of a catalog.
type Definition struct {
	Extends   string         `yaml:"extends,omitempty"`
	Types     []TypeDef      `yaml:"types,omitempty"`
	Relations []RelationDef  `yaml:"relations,omitempty"`
	Casts     []CastDef      `yaml:"casts,omitempty"`
	Operators []SignatureDef `yaml:"operators,omitempty"`
	Functions []SignatureDef `yaml:"functions,omitempty"`
}

// TypeDef declares a scalar or composite type.
type TypeDef struct {
	Name     string      `yaml:"name"`
	Category string      `yaml:"category,omitempty"` // boolean|numeric|string|datetime|composite|user
	Modifier string      `yaml:"modifier,omitempty"` // none|length|padlength|numeric
	Integral bool        `yaml:"integral,omitempty"`
	Fields   []ColumnDef `yaml:"fields,omitempty"` // composite types only
}

// ColumnDef declares a column or composite field. Type may carry modifiers:
// varchar(40), numeric(12,2).
type ColumnDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// RelationDef declares a relation and its columns.
type RelationDef struct {
	Name    string      `yaml:"name"`
	Columns []ColumnDef `yaml:"columns"`
}

// CastDef declares a directional conversion.
type CastDef struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Kind   string `yaml:"kind"`             // implicit|explicit
	Method string `yaml:"method,omitempty"` // function|relabel|io
}

// SignatureDef declares one operator or function candidate.
type SignatureDef struct {
	Name    string   `yaml:"name"`
	Args    []string `yaml:"args"`
	Returns string   `yaml:"returns"`
}

// Parse decodes a YAML catalog definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse catalog definition: %w", err)
	}
	return &def, nil
}

// LoadFile reads and compiles a YAML catalog definition.
func LoadFile(path string, opts ...Option) (*Memory, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(def, opts...)
}

// Marshal encodes a definition as YAML.
func Marshal(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog definition: %w", err)
	}
	return data, nil
}

// Merge returns a definition containing everything in base followed by
// everything in overlay. Duplicates are reported when the result is compiled.
func Merge(base, overlay *Definition) *Definition {
	out := &Definition{}
	for _, d := range []*Definition{base, overlay} {
		if d == nil {
			continue
		}
		out.Types = append(out.Types, d.Types...)
		out.Relations = append(out.Relations, d.Relations...)
		out.Casts = append(out.Casts, d.Casts...)
		out.Operators = append(out.Operators, d.Operators...)
		out.Functions = append(out.Functions, d.Functions...)
	}
	return out
}
