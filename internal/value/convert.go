// Package value converts param field values between their Go representation
// and the canonical text used in CSV files.
//
// Each schema kind maps to exactly one Go type:
//
//	s8 -> int8      u8 -> uint8      s16 -> int16     u16 -> uint16
//	s32 -> int32    u32 -> uint32    b32 -> bool      f32, angle32 -> float32
//	f64 -> float64  fixstr, fixstrW -> string         dummy8 -> []byte
//
// Conversion is driven by the field's declared kind, never by the type of a
// value already stored in a row.
package value

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/paramcsv/internal/schema"
)

// ErrInvalid is returned when text cannot be converted to a field's kind.
var ErrInvalid = errors.New("invalid value")

// Parse converts text to the Go value of f's kind.
// Numeric and boolean text is trimmed; string kinds keep the text verbatim.
func Parse(f *schema.Field, s string) (any, error) {
	if f.Kind.IsArray() {
		b, err := ParseBytes(s, f.ArrayLength)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	t := strings.TrimSpace(s)
	switch f.Kind {
	case schema.KindS8:
		n, err := strconv.ParseInt(t, 10, 8)
		return int8(n), invalid(err, s, f.Kind)
	case schema.KindU8:
		n, err := strconv.ParseUint(t, 10, 8)
		return uint8(n), invalid(err, s, f.Kind)
	case schema.KindS16:
		n, err := strconv.ParseInt(t, 10, 16)
		return int16(n), invalid(err, s, f.Kind)
	case schema.KindU16:
		n, err := strconv.ParseUint(t, 10, 16)
		return uint16(n), invalid(err, s, f.Kind)
	case schema.KindS32:
		n, err := strconv.ParseInt(t, 10, 32)
		return int32(n), invalid(err, s, f.Kind)
	case schema.KindU32:
		n, err := strconv.ParseUint(t, 10, 32)
		return uint32(n), invalid(err, s, f.Kind)
	case schema.KindB32:
		return parseBool(t, f.Kind)
	case schema.KindF32, schema.KindAngle32:
		n, err := strconv.ParseFloat(t, 32)
		return float32(n), invalid(err, s, f.Kind)
	case schema.KindF64:
		n, err := strconv.ParseFloat(t, 64)
		return n, invalid(err, s, f.Kind)
	case schema.KindFixStr, schema.KindFixStrW:
		return s, nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %v", ErrInvalid, f.Kind)
}

// parseBool accepts the usual spellings: true/false, yes/no, t/f, y/n, 1/0.
func parseBool(s string, k schema.Kind) (any, error) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%w: %q is not a valid %s", ErrInvalid, s, k)
}

func invalid(err error, s string, k schema.Kind) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalid, s, k)
}

// Format renders v in its canonical text form.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return FormatBytes(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	}
	return fmt.Sprint(v)
}

// Zero returns the zero value of f's kind.
func Zero(f *schema.Field) any {
	switch f.Kind {
	case schema.KindS8:
		return int8(0)
	case schema.KindU8:
		return uint8(0)
	case schema.KindS16:
		return int16(0)
	case schema.KindU16:
		return uint16(0)
	case schema.KindS32:
		return int32(0)
	case schema.KindU32:
		return uint32(0)
	case schema.KindB32:
		return false
	case schema.KindF32, schema.KindAngle32:
		return float32(0)
	case schema.KindF64:
		return float64(0)
	case schema.KindFixStr, schema.KindFixStrW:
		return ""
	case schema.KindDummy8:
		return make([]byte, f.ArrayLength)
	}
	return nil
}

// Initial returns the value a new row starts with: the field's default when it
// parses, otherwise the zero value.
func Initial(f *schema.Field) any {
	if f.Default != "" {
		if v, err := Parse(f, f.Default); err == nil {
			return v
		}
	}
	return Zero(f)
}

// Matches reports whether v has the Go type of f's kind (and length, for arrays).
func Matches(f *schema.Field, v any) bool {
	var ok bool
	switch f.Kind {
	case schema.KindS8:
		_, ok = v.(int8)
	case schema.KindU8:
		_, ok = v.(uint8)
	case schema.KindS16:
		_, ok = v.(int16)
	case schema.KindU16:
		_, ok = v.(uint16)
	case schema.KindS32:
		_, ok = v.(int32)
	case schema.KindU32:
		_, ok = v.(uint32)
	case schema.KindB32:
		_, ok = v.(bool)
	case schema.KindF32, schema.KindAngle32:
		_, ok = v.(float32)
	case schema.KindF64:
		_, ok = v.(float64)
	case schema.KindFixStr, schema.KindFixStrW:
		_, ok = v.(string)
	case schema.KindDummy8:
		b, isBytes := v.([]byte)
		ok = isBytes && len(b) == f.ArrayLength
	}
	return ok
}

// Equal compares two field values.
func Equal(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ab, bb)
	}
	return a == b
}

// Clone copies v so later mutation of the original cannot leak into it.
func Clone(v any) any {
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}
