package datatypes

// BYTES: raw byte blobs with unlimited, fixed, or length-prefixed sizing.
// Parameterisations are memoised so each sizing is a single stable Type.

import "sync"

// BytesType is a raw byte blob. size == -1 consumes the rest of the buffer;
// size >= 0 is a fixed byte count; a non-nil lenType reads the count from a
// leading integer.
type BytesType struct {
	size    int
	lenType *IntType
}

var (
	bytesMu    sync.Mutex
	bytesCache = map[bytesKey]*BytesType{}
)

type bytesKey struct {
	size    int
	lenType *IntType
}

func bytesType(size int, lenType *IntType) *BytesType {
	bytesMu.Lock()
	defer bytesMu.Unlock()
	key := bytesKey{size, lenType}
	if t, ok := bytesCache[key]; ok {
		return t
	}
	t := &BytesType{size: size, lenType: lenType}
	bytesCache[key] = t
	return t
}

// Bytes is the unlimited blob: encodes as-is, decodes the remaining buffer.
var Bytes = bytesType(-1, nil)

// BytesFixed returns the fixed-size blob type of n bytes.
func BytesFixed(n int) *BytesType { return bytesType(n, nil) }

// BytesCounted returns the length-prefixed blob type whose count is encoded
// with lenType.
func BytesCounted(lenType *IntType) *BytesType { return bytesType(-1, lenType) }

func (t *BytesType) TypeName() string {
	switch {
	case t.lenType != nil:
		return "BYTES[" + t.lenType.TypeName() + "]"
	case t.size >= 0:
		return "BYTES"
	}
	return "BYTES[...]"
}

func (t *BytesType) Size() int {
	if t.lenType == nil && t.size >= 0 {
		return t.size
	}
	return -1
}

func (t *BytesType) Encode(v any) ([]byte, error) {
	var data []byte
	switch val := v.(type) {
	case []byte:
		data = val
	case string:
		data = []byte(val)
	case byte:
		data = []byte{val}
	default:
		return nil, dataErrf("invalid value for %s: %T", t.TypeName(), v)
	}
	if t.lenType != nil {
		prefix, err := t.lenType.Encode(len(data))
		if err != nil {
			return nil, dataErr(err, "error encoding %s length", t.TypeName())
		}
		out := make([]byte, 0, len(prefix)+len(data))
		return append(append(out, prefix...), data...), nil
	}
	if t.size >= 0 && len(data) != t.size {
		return nil, dataErrf("%s expected %d bytes, got %d", t.TypeName(), t.size, len(data))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (t *BytesType) Decode(r *Reader) (any, error) {
	size := t.size
	if t.lenType != nil {
		n, err := t.lenType.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding %s length", t.TypeName())
		}
		size = int(toUint64(n))
	}
	if size < 0 {
		return r.Rest(), nil
	}
	if size == 0 {
		return []byte{}, nil
	}
	data, err := r.Read(size)
	if err != nil {
		return nil, dataErr(err, "error decoding %s", t.TypeName())
	}
	return append([]byte(nil), data...), nil
}
