package schema

import (
	"fmt"
	"strings"
)

// Kind is the storage type of a param field.
type Kind int

const (
	KindS8 Kind = iota
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindB32
	KindF32
	KindAngle32
	KindF64
	KindFixStr
	KindFixStrW
	KindDummy8
)

var kindNames = []string{
	KindS8:      "s8",
	KindU8:      "u8",
	KindS16:     "s16",
	KindU16:     "u16",
	KindS32:     "s32",
	KindU32:     "u32",
	KindB32:     "b32",
	KindF32:     "f32",
	KindAngle32: "angle32",
	KindF64:     "f64",
	KindFixStr:  "fixstr",
	KindFixStrW: "fixstrW",
	KindDummy8:  "dummy8",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsArray reports whether values of this kind are fixed-length byte arrays.
func (k Kind) IsArray() bool {
	return k == KindDummy8
}

// ParseKind resolves a kind by its paramdef name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// UnmarshalText lets kinds be written by name in schema files.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText writes the kind's paramdef name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
