package core

// Field is a named, typed member of a relation or composite type.
type Field struct {
	Name string
	Type TypeTag
	Mod  TypeMod
}

// RelationShape describes a relation visible to expressions: its columns in
// declaration order and the composite type naming a whole row of it.
type RelationShape struct {
	Name    string
	RowType TypeTag
	Columns []Field
}

// CastKind says whether and how a conversion between two types may be applied.
type CastKind int

// CastKind constants, ordered from most to least permissive.
const (
	CastNone     CastKind = iota // no conversion exists
	CastImplicit                 // may be inserted automatically
	CastExplicit                 // requires explicit cast syntax
)

// String returns the string representation of CastKind.
func (k CastKind) String() string {
	switch k {
	case CastImplicit:
		return "implicit"
	case CastExplicit:
		return "explicit"
	default:
		return "none"
	}
}

// CastMethod describes how a conversion is performed at run time.
type CastMethod int

// CastMethod constants.
const (
	CastMethodFunction CastMethod = iota // conversion function
	CastMethodRelabel                    // binary compatible, label change only
	CastMethodIO                         // via text output/input
)

// String returns the string representation of CastMethod.
func (m CastMethod) String() string {
	switch m {
	case CastMethodRelabel:
		return "relabel"
	case CastMethodIO:
		return "io"
	default:
		return "function"
	}
}

// Cast is a directional conversion edge between two types.
type Cast struct {
	Source TypeTag
	Target TypeTag
	Kind   CastKind
	Method CastMethod
}

// Signature is one candidate of an operator or function: parameter types and
// the type of the result.
type Signature struct {
	Name   string
	Params []TypeTag
	Result TypeTag
}

// Catalog is the read-only metadata service queried during binding.
// Implementations must be safe for concurrent use by multiple goroutines.
type Catalog interface {
	// LookupRelation finds a relation by name.
	LookupRelation(name string) (*RelationShape, bool)

	// LookupCompositeFields returns the ordered fields of a composite type,
	// or false if the type is not composite.
	LookupCompositeFields(t TypeTag) ([]Field, bool)

	// LookupCastPath reports the direct conversion from one type to another.
	LookupCastPath(from, to TypeTag) CastKind

	// LookupCastTargets lists every direct conversion out of a type,
	// in a deterministic order.
	LookupCastTargets(from TypeTag) []Cast

	// LookupOperatorSignatures returns the candidates for an operator of the
	// given arity (1 for prefix, 2 for binary).
	LookupOperatorSignatures(name string, arity int) []Signature

	// LookupFunctionSignatures returns the candidates for a function.
	LookupFunctionSignatures(name string, arity int) []Signature

	// LookupType describes a type tag.
	LookupType(t TypeTag) (*TypeInfo, bool)
}
