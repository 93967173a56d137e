package epath

// Symbolic and data segments.

import (
	"fmt"

	"github.com/tturner/cipnet/datatypes"
)

const (
	symbolSizeMask uint8 = 0b000_11111

	// extended format discriminators (upper three bits), plus the exact
	// numeric selectors which are matched on the full byte
	SymbolicDoubleByte   uint8 = 0b001_00000
	SymbolicTripleByte   uint8 = 0b010_00000
	SymbolicNumericUSINT uint8 = 0b110_00110
	SymbolicNumericUINT  uint8 = 0b110_00111
	SymbolicNumericUDINT uint8 = 0b110_01000

	symbolicExFormatMask uint8 = 0b111_00000
	symbolicExSizeMask   uint8 = 0b000_11111
)

// SymbolicSegment names a target by symbol: an ASCII string up to 31 chars,
// an extended multi-byte character string, or a numeric symbol.
type SymbolicSegment struct {
	symbol  string // ASCII form, "" when extended
	raw     []byte // extended character data or numeric value bytes
	exType  uint8  // extended format byte, 0 when plain ASCII
	numeric *datatypes.IntType
	value   uint32
}

// NewSymbolicSegment builds an ASCII symbolic segment (1..31 characters).
func NewSymbolicSegment(symbol string) (*SymbolicSegment, error) {
	if len(symbol) == 0 || len(symbol) > 31 {
		return nil, dataErrf("symbol size invalid, must be 1-31 characters: %d", len(symbol))
	}
	for _, c := range symbol {
		if c > 0x7F {
			return nil, dataErrf("symbol %q is not ascii", symbol)
		}
	}
	return &SymbolicSegment{symbol: symbol}, nil
}

// NewSymbolicSegmentBytes builds an extended symbolic segment from raw
// character data; exFormat selects double- or triple-byte characters and the
// character count is derived from the data length.
func NewSymbolicSegmentBytes(data []byte, exFormat uint8) (*SymbolicSegment, error) {
	switch exFormat & symbolicExFormatMask {
	case SymbolicDoubleByte:
		if len(data)%2 != 0 {
			return nil, dataErrf("length of symbol with double-byte characters is not a multiple of 2")
		}
		return &SymbolicSegment{raw: data, exType: SymbolicDoubleByte | uint8(len(data)/2)}, nil
	case SymbolicTripleByte:
		if len(data)%3 != 0 {
			return nil, dataErrf("length of symbol with triple-byte characters is not a multiple of 3")
		}
		return &SymbolicSegment{raw: data, exType: SymbolicTripleByte | uint8(len(data)/3)}, nil
	}
	return nil, dataErrf("unsupported extended symbol format: %#02x", exFormat)
}

// NewNumericSymbolSegment builds a numeric symbol of the width of t (USINT,
// UINT, or UDINT).
func NewNumericSymbolSegment(t *datatypes.IntType, value uint32) (*SymbolicSegment, error) {
	var exType uint8
	switch t {
	case datatypes.USINT:
		exType = SymbolicNumericUSINT
	case datatypes.UINT:
		exType = SymbolicNumericUINT
	case datatypes.UDINT:
		exType = SymbolicNumericUDINT
	default:
		return nil, dataErrf("numeric symbols must be USINT, UINT, or UDINT")
	}
	raw, err := t.Encode(value)
	if err != nil {
		return nil, err
	}
	return &SymbolicSegment{raw: raw, exType: exType, numeric: t, value: value}, nil
}

func (s *SymbolicSegment) SegmentClass() uint8 { return SegmentSymbolic }

// Symbol returns the ASCII symbol, "" for extended forms.
func (s *SymbolicSegment) Symbol() string { return s.symbol }

func (s *SymbolicSegment) Encode(padded bool) ([]byte, error) {
	if s.exType == 0 {
		out := []byte{SegmentSymbolic | uint8(len(s.symbol))}
		return append(out, s.symbol...), nil
	}
	out := []byte{SegmentSymbolic, s.exType}
	return append(out, s.raw...), nil
}

func (s *SymbolicSegment) String() string {
	if s.exType == 0 {
		return fmt.Sprintf("SymbolicSegment(%q)", s.symbol)
	}
	if s.numeric != nil {
		return fmt.Sprintf("SymbolicSegment(%s(%d))", s.numeric.TypeName(), s.value)
	}
	return fmt.Sprintf("SymbolicSegment(ex=%#02x, data=% X)", s.exType, s.raw)
}

func decodeSymbolicSegment(r *datatypes.Reader) (*SymbolicSegment, error) {
	head, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	size := head & symbolSizeMask
	if size != 0 {
		data, err := r.Read(int(size))
		if err != nil {
			return nil, dataErr(err, "error decoding symbol")
		}
		return &SymbolicSegment{symbol: string(data)}, nil
	}
	exType, err := r.ReadByte()
	if err != nil {
		return nil, dataErr(err, "error decoding extended symbol type")
	}
	// numeric selectors are matched on the full byte before the masked
	// double/triple formats
	switch exType {
	case SymbolicNumericUSINT, SymbolicNumericUINT, SymbolicNumericUDINT:
		var t *datatypes.IntType
		switch exType {
		case SymbolicNumericUSINT:
			t = datatypes.USINT
		case SymbolicNumericUINT:
			t = datatypes.UINT
		default:
			t = datatypes.UDINT
		}
		v, err := t.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding numeric symbol")
		}
		return NewNumericSymbolSegment(t, uint32(toUint(v)))
	}
	charCount := int(exType & symbolicExSizeMask)
	switch exType & symbolicExFormatMask {
	case SymbolicDoubleByte:
		data, err := r.Read(charCount * 2)
		if err != nil {
			return nil, dataErr(err, "error decoding double-byte symbol")
		}
		return &SymbolicSegment{raw: append([]byte(nil), data...), exType: exType}, nil
	case SymbolicTripleByte:
		data, err := r.Read(charCount * 3)
		if err != nil {
			return nil, dataErr(err, "error decoding triple-byte symbol")
		}
		return &SymbolicSegment{raw: append([]byte(nil), data...), exType: exType}, nil
	}
	return nil, dataErrf("unsupported extended symbol format: %#02x", exType)
}

func toUint(v any) uint64 {
	switch n := v.(type) {
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	}
	return 0
}

// --- Data segment ---

const (
	DataSimple       uint8 = 0b000_00000
	DataANSIExtended uint8 = 0b000_10001
	dataKindMask     uint8 = 0b000_11111
)

// DataSegment embeds application data in a path: either a simple
// word-counted blob or an ANSI extended symbol string.
type DataSegment struct {
	kind uint8
	data []byte // raw words for simple, symbol chars for ansi
}

// NewDataSegment builds a simple data segment over raw bytes.
func NewDataSegment(data []byte) *DataSegment {
	return &DataSegment{kind: DataSimple, data: data}
}

// NewANSISegment builds an ANSI extended symbol data segment.
func NewANSISegment(symbol string) *DataSegment {
	return &DataSegment{kind: DataANSIExtended, data: []byte(symbol)}
}

func (s *DataSegment) SegmentClass() uint8 { return SegmentData }

// Data returns the payload bytes.
func (s *DataSegment) Data() []byte { return s.data }

func (s *DataSegment) Encode(padded bool) ([]byte, error) {
	var body []byte
	if s.kind == DataSimple {
		body = append([]byte{uint8(len(s.data) / 2)}, s.data...)
	} else {
		enc, err := datatypes.ShortString.Encode(string(s.data))
		if err != nil {
			return nil, err
		}
		body = enc
	}
	if len(body)%2 != 0 {
		body = append(body, 0x00)
	}
	return append([]byte{SegmentData | s.kind}, body...), nil
}

func (s *DataSegment) String() string {
	if s.kind == DataANSIExtended {
		return fmt.Sprintf("DataSegment(ansi %q)", string(s.data))
	}
	return fmt.Sprintf("DataSegment(% X)", s.data)
}

func decodeDataSegment(r *datatypes.Reader) (*DataSegment, error) {
	head, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch head & dataKindMask {
	case DataSimple:
		words, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding data segment length")
		}
		data, err := r.Read(int(words) * 2)
		if err != nil {
			return nil, dataErr(err, "error decoding data segment")
		}
		// the length byte plus an even data count is odd, so the encoder
		// emitted a trailing pad byte
		if (1+len(data))%2 != 0 {
			if _, err := r.ReadByte(); err != nil && err != datatypes.ErrBufferEmpty {
				return nil, dataErr(err, "error decoding data segment pad")
			}
		}
		return &DataSegment{kind: DataSimple, data: append([]byte(nil), data...)}, nil
	case DataANSIExtended:
		v, err := datatypes.ShortString.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding ansi data segment")
		}
		sym := v.(string)
		if len(sym)%2 == 0 {
			// symbol plus its length byte is odd, a pad byte follows
			if _, err := r.ReadByte(); err != nil && err != datatypes.ErrBufferEmpty {
				return nil, dataErr(err, "error decoding ansi data segment pad")
			}
		}
		return &DataSegment{kind: DataANSIExtended, data: []byte(sym)}, nil
	}
	return nil, dataErrf("unsupported data segment subtype: %#02x", head&dataKindMask)
}
