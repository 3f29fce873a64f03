package core

import "fmt"

// TypeTag is an opaque identifier naming a scalar or composite type known to
// the catalog.
type TypeTag string

// Builtin type tags. Catalogs may define any number of additional tags;
// these are the ones the binder itself needs to name.
const (
	TypeInvalid   TypeTag = ""
	TypeUnknown   TypeTag = "unknown" // untyped literal awaiting context
	TypeBool      TypeTag = "bool"
	TypeInt4      TypeTag = "int4"
	TypeInt8      TypeTag = "int8"
	TypeNumeric   TypeTag = "numeric"
	TypeFloat8    TypeTag = "float8"
	TypeText      TypeTag = "text"
	TypeVarchar   TypeTag = "varchar"
	TypeBpchar    TypeTag = "bpchar"
	TypeDate      TypeTag = "date"
	TypeTimestamp TypeTag = "timestamp"
)

// String returns the tag name.
func (t TypeTag) String() string {
	if t == TypeInvalid {
		return "<invalid>"
	}
	return string(t)
}

// TypeMod refines a TypeTag: declared length for bounded strings, packed
// precision and scale for numeric.
type TypeMod int32

// NoTypeMod marks the absence of a modifier.
const NoTypeMod TypeMod = -1

// LengthMod returns the modifier for a bounded string of length n.
func LengthMod(n int) TypeMod {
	return TypeMod(n)
}

// NumericMod packs precision and scale into a modifier.
func NumericMod(precision, scale int) TypeMod {
	return TypeMod(precision<<16 | scale&0xffff)
}

// Length returns the declared length of a length modifier, or 0 when there
// is none.
func (m TypeMod) Length() int {
	if m < 0 {
		return 0
	}
	return int(m)
}

// Precision returns the precision of a numeric modifier.
func (m TypeMod) Precision() int {
	return int(m >> 16)
}

// Scale returns the scale of a numeric modifier.
func (m TypeMod) Scale() int {
	return int(m & 0xffff)
}

// ModKind describes how a type interprets its modifier.
type ModKind int

// ModKind constants.
const (
	ModNone      ModKind = iota // modifiers not accepted
	ModLength                   // varchar(n): values longer than n are rejected or truncated
	ModPadLength                // bpchar(n): like ModLength, shorter values are blank padded
	ModNumeric                  // numeric(p,s)
)

// TypeCategory groups types for display and literal parsing.
type TypeCategory int

// TypeCategory constants.
const (
	CategoryUnknown TypeCategory = iota
	CategoryBoolean
	CategoryNumeric
	CategoryString
	CategoryDateTime
	CategoryComposite
	CategoryUser
)

// String returns the string representation of TypeCategory.
func (c TypeCategory) String() string {
	switch c {
	case CategoryBoolean:
		return "boolean"
	case CategoryNumeric:
		return "numeric"
	case CategoryString:
		return "string"
	case CategoryDateTime:
		return "datetime"
	case CategoryComposite:
		return "composite"
	case CategoryUser:
		return "user"
	default:
		return "unknown"
	}
}

// TypeInfo describes a type known to the catalog.
type TypeInfo struct {
	Tag      TypeTag
	Category TypeCategory
	Mod      ModKind
	// Integral marks numeric types whose literals must be whole numbers.
	Integral bool
}

// IsComposite reports whether values of the type have named fields.
func (t *TypeInfo) IsComposite() bool {
	return t != nil && t.Category == CategoryComposite
}

// FormatType renders a tag with its modifier the way it would be declared.
func FormatType(t TypeTag, mod TypeMod) string {
	if mod == NoTypeMod {
		return t.String()
	}
	if t == TypeNumeric {
		return fmt.Sprintf("%s(%d,%d)", t, mod.Precision(), mod.Scale())
	}
	return fmt.Sprintf("%s(%d)", t, mod.Length())
}
