package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxMAC is the largest 48-bit hardware address
const MaxMAC MAC = 1<<48 - 1

// MAC is a 48-bit hardware address held in the low bits of a uint64.
// All comparisons and storage use this integer form; strings are for display.
type MAC uint64

// ParseMAC decodes a hexadecimal MAC string. Separators (':', '-', '.')
// and whitespace are ignored, case does not matter.
func ParseMAC(s string) (MAC, error) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)

	if digits == "" {
		return 0, fmt.Errorf("%w: %q has no hex digits", ErrInvalidFormat, s)
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q is wider than 48 bits", ErrInvalidFormat, s)
		}
		return 0, fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidFormat, s)
	}
	if v > uint64(MaxMAC) {
		return 0, fmt.Errorf("%w: %q is wider than 48 bits", ErrInvalidFormat, s)
	}
	return MAC(v), nil
}

// MustParseMAC is ParseMAC for constants and tests; it panics on error
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MACFromUint64 validates an integer MAC
func MACFromUint64(v uint64) (MAC, error) {
	if v > uint64(MaxMAC) {
		return 0, fmt.Errorf("%w: %#x exceeds 48 bits", ErrInvalidArgument, v)
	}
	return MAC(v), nil
}

// Format renders the address as six zero-padded octets joined by sep
func (m MAC) Format(sep string) string {
	hex := fmt.Sprintf("%012x", uint64(m))
	var b strings.Builder
	b.Grow(12 + 5*len(sep))
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(hex[i : i+2])
	}
	return b.String()
}

// String returns the colon separated form, e.g. 00:50:c2:00:00:00
func (m MAC) String() string {
	return m.Format(":")
}

// Valid reports whether only the low 48 bits are set
func (m MAC) Valid() bool {
	return m <= MaxMAC
}

// MarshalText implements encoding.TextMarshaler
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
