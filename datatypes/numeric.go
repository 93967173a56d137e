package datatypes

// CIP elementary numeric types. All little-endian unless the type name
// carries a BE suffix; the big-endian variants exist for the embedded
// sockaddr structures in ENIP identity items.

import (
	"encoding/binary"
	"math"
	"reflect"
)

// IntType is a fixed-width integer type.
type IntType struct {
	name   string
	code   uint8 // CIP type code, 0 if none
	size   int
	signed bool
	order  binary.ByteOrder
}

var (
	SINT  = &IntType{name: "SINT", code: 0xC2, size: 1, signed: true, order: binary.LittleEndian}
	INT   = &IntType{name: "INT", code: 0xC3, size: 2, signed: true, order: binary.LittleEndian}
	DINT  = &IntType{name: "DINT", code: 0xC4, size: 4, signed: true, order: binary.LittleEndian}
	LINT  = &IntType{name: "LINT", code: 0xC5, size: 8, signed: true, order: binary.LittleEndian}
	USINT = &IntType{name: "USINT", code: 0xC6, size: 1, order: binary.LittleEndian}
	UINT  = &IntType{name: "UINT", code: 0xC7, size: 2, order: binary.LittleEndian}
	UDINT = &IntType{name: "UDINT", code: 0xC8, size: 4, order: binary.LittleEndian}
	ULINT = &IntType{name: "ULINT", code: 0xC9, size: 8, order: binary.LittleEndian}

	SINTBE  = &IntType{name: "SINT_BE", size: 1, signed: true, order: binary.BigEndian}
	INTBE   = &IntType{name: "INT_BE", size: 2, signed: true, order: binary.BigEndian}
	DINTBE  = &IntType{name: "DINT_BE", size: 4, signed: true, order: binary.BigEndian}
	LINTBE  = &IntType{name: "LINT_BE", size: 8, signed: true, order: binary.BigEndian}
	USINTBE = &IntType{name: "USINT_BE", size: 1, order: binary.BigEndian}
	UINTBE  = &IntType{name: "UINT_BE", size: 2, order: binary.BigEndian}
	UDINTBE = &IntType{name: "UDINT_BE", size: 4, order: binary.BigEndian}
	ULINTBE = &IntType{name: "ULINT_BE", size: 8, order: binary.BigEndian}
)

func (t *IntType) TypeName() string { return t.name }

// Code returns the CIP elementary type code, 0 if the type has none.
func (t *IntType) Code() uint8 { return t.code }

func (t *IntType) Size() int { return t.size }

// ToUint64 coerces any integer-kind value (including named enum types) into
// the raw bit pattern for this type, range-checked.
func (t *IntType) ToUint64(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	var raw uint64
	switch {
	case rv.CanInt():
		i := rv.Int()
		if t.signed {
			lo, hi := t.signedRange()
			if i < lo || i > hi {
				return 0, dataErrf("value %d out of range for %s", i, t.name)
			}
			return uint64(i) & t.mask(), nil
		}
		if i < 0 {
			return 0, dataErrf("value %d out of range for %s", i, t.name)
		}
		raw = uint64(i)
	case rv.CanUint():
		raw = rv.Uint()
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			raw = 1
		}
	default:
		return 0, dataErrf("invalid value for %s: %T", t.name, v)
	}
	if t.signed {
		if raw > uint64(t.signedMax()) {
			return 0, dataErrf("value %d out of range for %s", raw, t.name)
		}
		return raw, nil
	}
	if t.size < 8 && raw > t.mask() {
		return 0, dataErrf("value %d out of range for %s", raw, t.name)
	}
	return raw, nil
}

func (t *IntType) mask() uint64 {
	if t.size >= 8 {
		return math.MaxUint64
	}
	return 1<<(uint(t.size)*8) - 1
}

func (t *IntType) signedMax() int64 { return int64(1)<<(uint(t.size)*8-1) - 1 }

func (t *IntType) signedRange() (int64, int64) {
	hi := t.signedMax()
	return -hi - 1, hi
}

func (t *IntType) Encode(v any) ([]byte, error) {
	raw, err := t.ToUint64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	t.order.PutUint64(buf, raw)
	if t.order == binary.BigEndian {
		return buf[8-t.size:], nil
	}
	return buf[:t.size], nil
}

func (t *IntType) Decode(r *Reader) (any, error) {
	data, err := r.Read(t.size)
	if err != nil {
		return nil, dataErr(err, "error decoding %s", t.name)
	}
	var raw uint64
	if t.order == binary.BigEndian {
		for _, b := range data {
			raw = raw<<8 | uint64(b)
		}
	} else {
		for i := len(data) - 1; i >= 0; i-- {
			raw = raw<<8 | uint64(data[i])
		}
	}
	return t.fromRaw(raw), nil
}

func (t *IntType) fromRaw(raw uint64) any {
	if t.signed {
		switch t.size {
		case 1:
			return int8(raw)
		case 2:
			return int16(raw)
		case 4:
			return int32(raw)
		default:
			return int64(raw)
		}
	}
	switch t.size {
	case 1:
		return uint8(raw)
	case 2:
		return uint16(raw)
	case 4:
		return uint32(raw)
	default:
		return raw
	}
}

// FloatType is an IEEE-754 floating point type, little-endian.
type FloatType struct {
	name string
	code uint8
	size int
}

var (
	REAL  = &FloatType{name: "REAL", code: 0xCA, size: 4}
	LREAL = &FloatType{name: "LREAL", code: 0xCB, size: 8}
)

func (t *FloatType) TypeName() string { return t.name }
func (t *FloatType) Size() int        { return t.size }

func (t *FloatType) Encode(v any) ([]byte, error) {
	var f float64
	switch val := v.(type) {
	case float32:
		f = float64(val)
	case float64:
		f = val
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanFloat():
			f = rv.Float()
		case rv.CanInt():
			f = float64(rv.Int())
		default:
			return nil, dataErrf("invalid value for %s: %T", t.name, v)
		}
	}
	buf := make([]byte, t.size)
	if t.size == 4 {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
	} else {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	}
	return buf, nil
}

func (t *FloatType) Decode(r *Reader) (any, error) {
	data, err := r.Read(t.size)
	if err != nil {
		return nil, dataErr(err, "error decoding %s", t.name)
	}
	if t.size == 4 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

// BoolType is the single-byte CIP boolean: 0x00 is false, 0xFF is true on the
// wire, and any nonzero byte decodes as true.
type BoolType struct{}

var BOOL = &BoolType{}

func (t *BoolType) TypeName() string { return "BOOL" }
func (t *BoolType) Size() int        { return 1 }

func (t *BoolType) Encode(v any) ([]byte, error) {
	var b bool
	switch val := v.(type) {
	case bool:
		b = val
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			b = rv.Int() != 0
		case rv.CanUint():
			b = rv.Uint() != 0
		default:
			return nil, dataErrf("invalid value for BOOL: %T", v)
		}
	}
	if b {
		return []byte{0xFF}, nil
	}
	return []byte{0x00}, nil
}

func (t *BoolType) Decode(r *Reader) (any, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, dataErr(err, "error decoding BOOL")
	}
	return b != 0, nil
}
