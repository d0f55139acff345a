package value

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBytes reads a byte-array literal of the form "[0|12|255]".
// The literal must hold exactly length entries, each a decimal byte.
func ParseBytes(s string, length int) ([]byte, error) {
	t := strings.TrimSpace(s)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return nil, fmt.Errorf("%w: %q is not a byte array literal", ErrInvalid, s)
	}

	body := t[1 : len(t)-1]
	if body == "" {
		if length == 0 {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("%w: %q has 0 bytes, want %d", ErrInvalid, s, length)
	}

	parts := strings.Split(body, "|")
	if len(parts) != length {
		return nil, fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalid, s, len(parts), length)
	}

	out := make([]byte, length)
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q has a bad byte at position %d", ErrInvalid, s, i)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// FormatBytes writes b as a byte-array literal understood by ParseBytes.
func FormatBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range b {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strconv.Itoa(int(x)))
	}
	sb.WriteByte(']')
	return sb.String()
}
