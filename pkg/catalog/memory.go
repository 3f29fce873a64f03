package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/ident"
)

// Option configures catalog construction.
type Option func(*options)

type options struct {
	norm ident.Normalizer
}

// WithNormalizer sets how relation and type names are folded for lookup.
func WithNormalizer(n ident.Normalizer) Option {
	return func(o *options) { o.norm = n }
}

type castKey struct {
	from, to core.TypeTag
}

type sigKey struct {
	name  string
	arity int
}

// Memory is an immutable in-memory catalog compiled from a Definition.
// All lookups are safe for concurrent use.
type Memory struct {
	norm        ident.Normalizer
	types       map[core.TypeTag]*core.TypeInfo
	composites  map[core.TypeTag][]core.Field
	relations   map[string]*core.RelationShape
	casts       map[castKey]core.Cast
	castTargets map[core.TypeTag][]core.Cast
	operators   map[sigKey][]core.Signature
	functions   map[sigKey][]core.Signature

	def *Definition // flattened source, kept for Definition()
}

// Compile-time interface check
var _ core.Catalog = (*Memory)(nil)

// New compiles def into a Memory catalog. Type references are validated;
// a definition with Extends set to "builtin" inherits Builtin().
func New(def *Definition, opts ...Option) (*Memory, error) {
	o := options{norm: ident.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if def == nil {
		def = &Definition{}
	}

	switch strings.ToLower(def.Extends) {
	case "":
	case ExtendsBuiltin:
		def = Merge(Builtin(), def)
	default:
		return nil, fmt.Errorf("unknown catalog base %q", def.Extends)
	}

	m := &Memory{
		norm:        o.norm,
		types:       make(map[core.TypeTag]*core.TypeInfo),
		composites:  make(map[core.TypeTag][]core.Field),
		relations:   make(map[string]*core.RelationShape),
		casts:       make(map[castKey]core.Cast),
		castTargets: make(map[core.TypeTag][]core.Cast),
		operators:   make(map[sigKey][]core.Signature),
		functions:   make(map[sigKey][]core.Signature),
		def:         def,
	}

	// Types first so every later reference can be checked. Composite fields
	// may reference composites declared later, so they are resolved in a
	// second pass.
	for _, td := range def.Types {
		if err := m.addType(td); err != nil {
			return nil, err
		}
	}
	for _, rd := range def.Relations {
		tag := m.tag(rd.Name)
		if _, exists := m.types[tag]; exists {
			return nil, fmt.Errorf("relation %s: a type with the same name already exists", rd.Name)
		}
		m.types[tag] = &core.TypeInfo{Tag: tag, Category: core.CategoryComposite}
	}
	for _, td := range def.Types {
		if len(td.Fields) == 0 {
			continue
		}
		fields, err := m.resolveFields(td.Name, td.Fields)
		if err != nil {
			return nil, err
		}
		m.composites[m.tag(td.Name)] = fields
	}
	for _, rd := range def.Relations {
		if err := m.addRelation(rd); err != nil {
			return nil, err
		}
	}
	for _, cd := range def.Casts {
		if err := m.addCast(cd); err != nil {
			return nil, err
		}
	}
	for from := range m.castTargets {
		targets := m.castTargets[from]
		sort.Slice(targets, func(i, j int) bool { return targets[i].Target < targets[j].Target })
	}
	for _, sd := range def.Operators {
		if err := m.addSignature(m.operators, "operator", sd); err != nil {
			return nil, err
		}
	}
	for _, sd := range def.Functions {
		if err := m.addSignature(m.functions, "function", sd); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustBuiltin returns a catalog holding only the builtin definition.
func MustBuiltin() *Memory {
	m, err := New(Builtin())
	if err != nil {
		panic(fmt.Sprintf("builtin catalog is invalid: %v", err))
	}
	return m
}

func (m *Memory) tag(name string) core.TypeTag {
	return core.TypeTag(m.norm.Normalize(CanonicalTypeName(name)))
}

func (m *Memory) addType(td TypeDef) error {
	if td.Name == "" {
		return fmt.Errorf("type with empty name")
	}
	tag := m.tag(td.Name)
	if tag == core.TypeUnknown {
		return fmt.Errorf("type name %q is reserved", td.Name)
	}
	if _, exists := m.types[tag]; exists {
		return fmt.Errorf("duplicate type %s", td.Name)
	}
	category, err := parseCategory(td.Category)
	if err != nil {
		return fmt.Errorf("type %s: %w", td.Name, err)
	}
	if len(td.Fields) > 0 {
		category = core.CategoryComposite
	}
	modKind, err := parseModKind(td.Modifier)
	if err != nil {
		return fmt.Errorf("type %s: %w", td.Name, err)
	}
	m.types[tag] = &core.TypeInfo{Tag: tag, Category: category, Mod: modKind, Integral: td.Integral}
	return nil
}

func (m *Memory) resolveFields(owner string, cols []ColumnDef) ([]core.Field, error) {
	fields := make([]core.Field, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		key := m.norm.Normalize(c.Name)
		if seen[key] {
			return nil, fmt.Errorf("%s: duplicate column %s", owner, c.Name)
		}
		seen[key] = true

		tag, mod, err := m.resolveTypeSpec(c.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", owner, c.Name, err)
		}
		fields = append(fields, core.Field{Name: c.Name, Type: tag, Mod: mod})
	}
	return fields, nil
}

func (m *Memory) resolveTypeSpec(spec string) (core.TypeTag, core.TypeMod, error) {
	name, mods, err := ParseTypeSpec(spec)
	if err != nil {
		return core.TypeInvalid, core.NoTypeMod, err
	}
	info, ok := m.types[m.tag(name)]
	if !ok {
		return core.TypeInvalid, core.NoTypeMod, fmt.Errorf("unknown type %s", name)
	}
	mod, err := TypeModFor(info, mods)
	if err != nil {
		return core.TypeInvalid, core.NoTypeMod, err
	}
	return info.Tag, mod, nil
}

func (m *Memory) requireType(name string) (core.TypeTag, error) {
	tag := m.tag(name)
	if _, ok := m.types[tag]; !ok {
		return core.TypeInvalid, fmt.Errorf("unknown type %s", name)
	}
	return tag, nil
}

func (m *Memory) addRelation(rd RelationDef) error {
	if rd.Name == "" {
		return fmt.Errorf("relation with empty name")
	}
	key := m.norm.Normalize(rd.Name)
	if _, exists := m.relations[key]; exists {
		return fmt.Errorf("duplicate relation %s", rd.Name)
	}
	cols, err := m.resolveFields(rd.Name, rd.Columns)
	if err != nil {
		return err
	}
	rowType := m.tag(rd.Name)
	m.relations[key] = &core.RelationShape{Name: rd.Name, RowType: rowType, Columns: cols}
	m.composites[rowType] = cols
	return nil
}

func (m *Memory) addCast(cd CastDef) error {
	from, err := m.requireType(cd.From)
	if err != nil {
		return fmt.Errorf("cast %s -> %s: %w", cd.From, cd.To, err)
	}
	to, err := m.requireType(cd.To)
	if err != nil {
		return fmt.Errorf("cast %s -> %s: %w", cd.From, cd.To, err)
	}
	if from == to {
		return fmt.Errorf("cast %s -> %s: source and target are the same type", cd.From, cd.To)
	}
	kind, err := parseCastKind(cd.Kind)
	if err != nil {
		return fmt.Errorf("cast %s -> %s: %w", cd.From, cd.To, err)
	}
	method, err := parseCastMethod(cd.Method)
	if err != nil {
		return fmt.Errorf("cast %s -> %s: %w", cd.From, cd.To, err)
	}
	key := castKey{from, to}
	if _, exists := m.casts[key]; exists {
		return fmt.Errorf("duplicate cast %s -> %s", cd.From, cd.To)
	}
	c := core.Cast{Source: from, Target: to, Kind: kind, Method: method}
	m.casts[key] = c
	m.castTargets[from] = append(m.castTargets[from], c)
	return nil
}

func (m *Memory) addSignature(into map[sigKey][]core.Signature, what string, sd SignatureDef) error {
	if sd.Name == "" {
		return fmt.Errorf("%s with empty name", what)
	}
	sig := core.Signature{Name: sd.Name, Params: make([]core.TypeTag, 0, len(sd.Args))}
	for _, a := range sd.Args {
		tag, err := m.requireType(a)
		if err != nil {
			return fmt.Errorf("%s %s: %w", what, sd.Name, err)
		}
		sig.Params = append(sig.Params, tag)
	}
	result, err := m.requireType(sd.Returns)
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, sd.Name, err)
	}
	sig.Result = result

	key := sigKey{name: m.norm.Normalize(sd.Name), arity: len(sig.Params)}
	for _, existing := range into[key] {
		if sameParams(existing.Params, sig.Params) {
			return fmt.Errorf("duplicate %s %s(%s)", what, sd.Name, joinTags(sig.Params))
		}
	}
	into[key] = append(into[key], sig)
	return nil
}

func sameParams(a, b []core.TypeTag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinTags(tags []core.TypeTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// LookupRelation implements core.Catalog.
func (m *Memory) LookupRelation(name string) (*core.RelationShape, bool) {
	r, ok := m.relations[m.norm.Normalize(name)]
	return r, ok
}

// LookupCompositeFields implements core.Catalog.
func (m *Memory) LookupCompositeFields(t core.TypeTag) ([]core.Field, bool) {
	fields, ok := m.composites[t]
	return fields, ok
}

// LookupCastPath implements core.Catalog.
func (m *Memory) LookupCastPath(from, to core.TypeTag) core.CastKind {
	if c, ok := m.casts[castKey{from, to}]; ok {
		return c.Kind
	}
	return core.CastNone
}

// LookupCast returns the direct cast edge between two types.
func (m *Memory) LookupCast(from, to core.TypeTag) (core.Cast, bool) {
	c, ok := m.casts[castKey{from, to}]
	return c, ok
}

// LookupCastTargets implements core.Catalog.
func (m *Memory) LookupCastTargets(from core.TypeTag) []core.Cast {
	return m.castTargets[from]
}

// LookupOperatorSignatures implements core.Catalog.
func (m *Memory) LookupOperatorSignatures(name string, arity int) []core.Signature {
	return m.operators[sigKey{name: m.norm.Normalize(name), arity: arity}]
}

// LookupFunctionSignatures implements core.Catalog.
func (m *Memory) LookupFunctionSignatures(name string, arity int) []core.Signature {
	return m.functions[sigKey{name: m.norm.Normalize(name), arity: arity}]
}

// LookupType implements core.Catalog.
func (m *Memory) LookupType(t core.TypeTag) (*core.TypeInfo, bool) {
	info, ok := m.types[t]
	return info, ok
}

// ResolveTypeName maps a declared type name, as written in a cast, onto a
// known tag.
func (m *Memory) ResolveTypeName(name string) (*core.TypeInfo, bool) {
	info, ok := m.types[m.tag(name)]
	return info, ok
}

// Relations returns every relation sorted by name.
func (m *Memory) Relations() []*core.RelationShape {
	out := make([]*core.RelationShape, 0, len(m.relations))
	for _, r := range m.relations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Types returns every type sorted by tag.
func (m *Memory) Types() []*core.TypeInfo {
	out := make([]*core.TypeInfo, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Casts returns every cast sorted by source then target.
func (m *Memory) Casts() []core.Cast {
	out := make([]core.Cast, 0, len(m.casts))
	for _, c := range m.casts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Operators returns every operator signature sorted by name and arity.
func (m *Memory) Operators() []core.Signature {
	return flattenSignatures(m.operators)
}

// Functions returns every function signature sorted by name and arity.
func (m *Memory) Functions() []core.Signature {
	return flattenSignatures(m.functions)
}

// Definition returns the flattened definition the catalog was compiled from.
func (m *Memory) Definition() *Definition {
	return m.def
}

func flattenSignatures(in map[sigKey][]core.Signature) []core.Signature {
	keys := make([]sigKey, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].arity < keys[j].arity
	})
	var out []core.Signature
	for _, k := range keys {
		out = append(out, in[k]...)
	}
	return out
}
