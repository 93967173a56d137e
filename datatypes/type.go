package datatypes

// Type describes a CIP wire type. A Type both validates and serialises values
// of its kind; decoded values are plain Go values (uint16, string, *Struct,
// *Array, ...) so callers work with ordinary data.
//
// Implementations must wrap any failure as a DataError, except ErrBufferEmpty
// which is passed through unchanged so dynamic-length array decoding can
// terminate cleanly.
type Type interface {
	// TypeName is the display name used in errors and formatting.
	TypeName() string
	// Size is the fixed encoded size in bytes, or -1 when dynamic.
	Size() int
	// Encode serialises v.
	Encode(v any) ([]byte, error)
	// Decode reads one value from r.
	Decode(r *Reader) (any, error)
}

// EncodeValue encodes v with t, accepting nil t for raw []byte values.
func EncodeValue(t Type, v any) ([]byte, error) {
	if t == nil {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return nil, dataErrf("no type to encode %T value", v)
	}
	return t.Encode(v)
}

// DecodeBytes decodes a single value of t from buf and reports leftover bytes
// are permitted (they are ignored, as trailing data is the caller's concern).
func DecodeBytes(t Type, buf []byte) (any, error) {
	return t.Decode(NewReader(buf))
}
