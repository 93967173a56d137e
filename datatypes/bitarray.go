package datatypes

// Bit-array types: unsigned integers whose individual bits carry meaning
// (device status words, connection parameter words). Conversion between the
// integer and its bit tuple is validated against the declared width.

// BitArrayType extends an unsigned IntType with bit-tuple conversion.
type BitArrayType struct {
	*IntType
	bits int
}

var (
	BYTE  = &BitArrayType{IntType: &IntType{name: "BYTE", code: 0xD1, size: 1, order: USINT.order}, bits: 8}
	WORD  = &BitArrayType{IntType: &IntType{name: "WORD", code: 0xD2, size: 2, order: USINT.order}, bits: 16}
	DWORD = &BitArrayType{IntType: &IntType{name: "DWORD", code: 0xD3, size: 4, order: USINT.order}, bits: 32}
	LWORD = &BitArrayType{IntType: &IntType{name: "LWORD", code: 0xD4, size: 8, order: USINT.order}, bits: 64}
)

// Bits returns the declared bit width.
func (t *BitArrayType) Bits() int { return t.bits }

// ToBits expands v into its bit tuple, least significant first.
func (t *BitArrayType) ToBits(v any) ([]bool, error) {
	raw, err := t.ToUint64(v)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, t.bits)
	for i := range bits {
		bits[i] = raw>>uint(i)&1 == 1
	}
	return bits, nil
}

// FromBits packs a bit sequence, least significant first, into the integer
// value. The sequence length must match the declared width exactly.
func (t *BitArrayType) FromBits(bits []bool) (uint64, error) {
	if len(bits) != t.bits {
		return 0, dataErrf("%s requires exactly %d bits, got %d", t.name, t.bits, len(bits))
	}
	var raw uint64
	for i, b := range bits {
		if b {
			raw |= 1 << uint(i)
		}
	}
	return raw, nil
}

// Encode accepts integer values or []bool bit tuples.
func (t *BitArrayType) Encode(v any) ([]byte, error) {
	if bits, ok := v.([]bool); ok {
		raw, err := t.FromBits(bits)
		if err != nil {
			return nil, err
		}
		return t.IntType.Encode(raw)
	}
	return t.IntType.Encode(v)
}
