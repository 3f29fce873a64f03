package coerce

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/leapbind/pkg/bound"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ResolveLiteral settles the type of an untyped constant. The literal text
// is validated against the target (and its modifier) and converted to the
// target's value representation. Over-long strings are truncated when
// explicit is set and rejected otherwise.
func (e *Engine) ResolveLiteral(c *bound.Const, target core.TypeTag, mod core.TypeMod, explicit bool) (bound.Expr, error) {
	info, ok := e.cat.LookupType(target)
	if !ok {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target), "type %s does not exist", target).At(c.Loc)
	}

	out := &bound.Const{Type: info.Tag, Mod: core.NoTypeMod, IsNull: c.IsNull, Literal: c.Literal, Loc: c.Loc}
	if c.IsNull {
		out.Mod = mod
		return out, nil
	}

	text, ok := c.Value.(string)
	if !ok {
		text = c.Literal
	}

	value, err := parseValue(info, text)
	if err != nil {
		return nil, core.Errorf(core.ErrIncompatibleTypes, string(target), "%s", err.Error()).At(c.Loc)
	}
	out.Value = value

	e.logger.Debug("resolved literal",
		slog.String("literal", c.Literal),
		slog.String("type", core.FormatType(info.Tag, mod)))

	if mod == core.NoTypeMod {
		return out, nil
	}
	return e.applyConstMod(out, info, mod, explicit)
}

func parseValue(info *core.TypeInfo, text string) (any, error) {
	trimmed := strings.TrimSpace(text)

	switch info.Category {
	case core.CategoryBoolean:
		return parseBool(info.Tag, trimmed)

	case core.CategoryNumeric:
		if info.Integral {
			bits := 64
			if info.Tag == core.TypeInt4 {
				bits = 32
			}
			n, err := strconv.ParseInt(trimmed, 10, bits)
			if err != nil {
				if errors.Is(err, strconv.ErrRange) {
					return nil, fmt.Errorf("value %q is out of range for type %s", text, info.Tag)
				}
				return nil, fmt.Errorf("invalid input syntax for type %s: %q", info.Tag, text)
			}
			return n, nil
		}
		if info.Mod == core.ModNumeric {
			d, err := decimal.NewFromString(trimmed)
			if err != nil {
				return nil, fmt.Errorf("invalid input syntax for type %s: %q", info.Tag, text)
			}
			return d, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input syntax for type %s: %q", info.Tag, text)
		}
		return f, nil

	case core.CategoryDateTime:
		layouts := timestampLayouts
		if info.Tag == core.TypeDate {
			layouts = timestampLayouts[len(timestampLayouts)-1:]
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid input syntax for type %s: %q", info.Tag, text)

	case core.CategoryComposite:
		return nil, fmt.Errorf("cannot use a literal as a value of composite type %s", info.Tag)

	default:
		return text, nil
	}
}

func parseBool(tag core.TypeTag, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "t", "true", "y", "yes", "on", "1":
		return true, nil
	case "f", "false", "n", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid input syntax for type %s: %q", tag, s)
	}
}

// applyConstMod applies a modifier to a constant that already has the
// target type.
func (e *Engine) applyConstMod(c *bound.Const, info *core.TypeInfo, mod core.TypeMod, explicit bool) (bound.Expr, error) {
	out := *c
	out.Mod = mod
	if c.IsNull || mod == core.NoTypeMod {
		return &out, nil
	}

	switch info.Mod {
	case core.ModLength, core.ModPadLength:
		s, ok := c.Value.(string)
		if !ok {
			return &out, nil
		}
		n := mod.Length()
		if utf8.RuneCountInString(s) > n {
			if !explicit {
				return nil, core.Errorf(core.ErrIncompatibleTypes, string(info.Tag),
					"value too long for type %s", core.FormatType(info.Tag, mod)).At(c.Loc)
			}
			s = truncateRunes(s, n)
		}
		if info.Mod == core.ModPadLength {
			if pad := n - utf8.RuneCountInString(s); pad > 0 {
				s += strings.Repeat(" ", pad)
			}
		}
		out.Value = s

	case core.ModNumeric:
		var d decimal.Decimal
		switch v := c.Value.(type) {
		case decimal.Decimal:
			d = v
		case int64:
			d = decimal.NewFromInt(v)
		case float64:
			d = decimal.NewFromFloat(v)
		default:
			return &out, nil
		}
		rounded, err := fitNumeric(d, mod)
		if err != nil {
			return nil, core.Errorf(core.ErrIncompatibleTypes, string(info.Tag), "%s", err.Error()).At(c.Loc)
		}
		out.Value = rounded
	}
	return &out, nil
}

// fitNumeric rounds d to the modifier's scale and checks that the integer
// part fits in precision-scale digits.
func fitNumeric(d decimal.Decimal, mod core.TypeMod) (decimal.Decimal, error) {
	precision, scale := mod.Precision(), mod.Scale()
	rounded := d.Round(int32(scale)) //nolint:gosec // scale is at most 1000

	intPart := rounded.Abs().Truncate(0)
	digits := 0
	if !intPart.IsZero() {
		digits = len(intPart.String())
	}
	if digits > precision-scale {
		return decimal.Decimal{}, fmt.Errorf("numeric field overflow: a field with precision %d, scale %d must round to an absolute value less than 10^%d",
			precision, scale, precision-scale)
	}
	return rounded, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
