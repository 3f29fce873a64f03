package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/core"
)

// typeAliases maps SQL spellings onto catalog tags.
var typeAliases = map[string]string{
	"boolean":                     "bool",
	"int":                         "int4",
	"integer":                     "int4",
	"smallint":                    "int4",
	"int2":                        "int4",
	"bigint":                      "int8",
	"decimal":                     "numeric",
	"real":                        "float8",
	"float":                       "float8",
	"float4":                      "float8",
	"double precision":            "float8",
	"character varying":           "varchar",
	"char":                        "bpchar",
	"character":                   "bpchar",
	"timestamp without time zone": "timestamp",
}

// CanonicalTypeName folds a type name and maps SQL aliases such as integer or
// character varying onto the tag the catalog uses.
func CanonicalTypeName(name string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if alias, ok := typeAliases[n]; ok {
		return alias
	}
	return n
}

// ParseTypeSpec splits "numeric(12,2)" into its canonical name and modifiers.
func ParseTypeSpec(spec string) (string, []int, error) {
	spec = strings.TrimSpace(spec)
	open := strings.IndexByte(spec, '(')
	if open < 0 {
		if spec == "" {
			return "", nil, fmt.Errorf("empty type")
		}
		return CanonicalTypeName(spec), nil, nil
	}
	if !strings.HasSuffix(spec, ")") {
		return "", nil, fmt.Errorf("invalid type %q: missing closing parenthesis", spec)
	}
	name := CanonicalTypeName(spec[:open])
	if name == "" {
		return "", nil, fmt.Errorf("invalid type %q: missing name", spec)
	}
	var mods []int
	for _, part := range strings.Split(spec[open+1:len(spec)-1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return "", nil, fmt.Errorf("invalid type %q: modifier %q is not an integer", spec, part)
		}
		mods = append(mods, n)
	}
	return name, mods, nil
}

// TypeModFor validates declared modifiers against the type's modifier kind
// and encodes them.
func TypeModFor(info *core.TypeInfo, mods []int) (core.TypeMod, error) {
	if len(mods) == 0 {
		return core.NoTypeMod, nil
	}
	switch info.Mod {
	case core.ModLength, core.ModPadLength:
		if len(mods) != 1 {
			return core.NoTypeMod, fmt.Errorf("type %s takes one length modifier, got %d", info.Tag, len(mods))
		}
		if mods[0] < 1 {
			return core.NoTypeMod, fmt.Errorf("length for type %s must be at least 1", info.Tag)
		}
		return core.LengthMod(mods[0]), nil
	case core.ModNumeric:
		if len(mods) > 2 {
			return core.NoTypeMod, fmt.Errorf("type %s takes at most two modifiers, got %d", info.Tag, len(mods))
		}
		precision, scale := mods[0], 0
		if len(mods) == 2 {
			scale = mods[1]
		}
		if precision < 1 || precision > 1000 {
			return core.NoTypeMod, fmt.Errorf("precision %d for type %s must be between 1 and 1000", precision, info.Tag)
		}
		if scale < 0 || scale > precision {
			return core.NoTypeMod, fmt.Errorf("scale %d for type %s must be between 0 and precision %d", scale, info.Tag, precision)
		}
		return core.NumericMod(precision, scale), nil
	default:
		return core.NoTypeMod, fmt.Errorf("type %s does not accept modifiers", info.Tag)
	}
}

func parseCategory(s string) (core.TypeCategory, error) {
	switch strings.ToLower(s) {
	case "", "user":
		return core.CategoryUser, nil
	case "boolean":
		return core.CategoryBoolean, nil
	case "numeric":
		return core.CategoryNumeric, nil
	case "string":
		return core.CategoryString, nil
	case "datetime":
		return core.CategoryDateTime, nil
	case "composite":
		return core.CategoryComposite, nil
	default:
		return core.CategoryUnknown, fmt.Errorf("unknown type category %q", s)
	}
}

func parseModKind(s string) (core.ModKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return core.ModNone, nil
	case "length":
		return core.ModLength, nil
	case "padlength":
		return core.ModPadLength, nil
	case "numeric":
		return core.ModNumeric, nil
	default:
		return core.ModNone, fmt.Errorf("unknown modifier kind %q", s)
	}
}

func parseCastKind(s string) (core.CastKind, error) {
	switch strings.ToLower(s) {
	case "implicit":
		return core.CastImplicit, nil
	case "explicit", "":
		return core.CastExplicit, nil
	default:
		return core.CastNone, fmt.Errorf("unknown cast kind %q", s)
	}
}

func parseCastMethod(s string) (core.CastMethod, error) {
	switch strings.ToLower(s) {
	case "", "function":
		return core.CastMethodFunction, nil
	case "relabel":
		return core.CastMethodRelabel, nil
	case "io":
		return core.CastMethodIO, nil
	default:
		return core.CastMethodFunction, fmt.Errorf("unknown cast method %q", s)
	}
}

func modKindName(k core.ModKind) string {
	switch k {
	case core.ModLength:
		return "length"
	case core.ModPadLength:
		return "padlength"
	case core.ModNumeric:
		return "numeric"
	default:
		return ""
	}
}
