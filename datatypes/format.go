package datatypes

// Display formatters for integer fields. Formatting never affects the wire
// encoding; it only controls how values print in struct String output.

import (
	"fmt"
	"strings"
)

// HexFormat returns a formatter printing values as 0x-prefixed hex padded to
// the full width of t.
func HexFormat(t *IntType) func(any) string {
	digits := t.size * 2
	return func(v any) string {
		return fmt.Sprintf("0x%0*X", digits, toUint64(v))
	}
}

// BinFormat returns a formatter printing values as binary, padded to the bit
// width of t with an underscore every four bits.
func BinFormat(t *IntType) func(any) string {
	bits := t.size * 8
	return func(v any) string {
		raw := fmt.Sprintf("%0*b", bits, toUint64(v))
		var b strings.Builder
		b.WriteString("0b")
		for i, c := range raw {
			if i > 0 && (len(raw)-i)%4 == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		}
		return b.String()
	}
}
