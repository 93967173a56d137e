package epath

import (
	"bytes"
	"testing"

	"github.com/tturner/cipnet/datatypes"
)

func mustPort(t *testing.T, port, link any) *PortSegment {
	t.Helper()
	s, err := NewPortSegment(port, link)
	if err != nil {
		t.Fatalf("NewPortSegment(%v, %v): %v", port, link, err)
	}
	return s
}

func mustLogical(t *testing.T, kind LogicalKind, value any) *LogicalSegment {
	t.Helper()
	s, err := NewLogicalSegment(kind, value)
	if err != nil {
		t.Fatalf("NewLogicalSegment(%#02x, %v): %v", uint8(kind), value, err)
	}
	return s
}

func encodeSeg(t *testing.T, s Segment, padded bool) []byte {
	t.Helper()
	enc, err := s.Encode(padded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return enc
}

func TestPortSegmentFixtures(t *testing.T) {
	tests := []struct {
		name string
		port any
		link any
		want []byte
	}{
		{"slot 1 of backplane", 1, 1, []byte{0x01, 0x01}},
		{"alias backplane", "backplane", 1, []byte{0x01, 0x01}},
		{"ip link", 2, "1.2.3.4", []byte{0x12, 0x07, '1', '.', '2', '.', '3', '.', '4', 0x00}},
		{"extended port", 65535, 1, []byte{0x0F, 0xFF, 0xFF, 0x01}},
		{"numeric string link", 1, "3", []byte{0x01, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeSeg(t, mustPort(t, tt.port, tt.link), false)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("encode = % X, want % X", got, tt.want)
			}
			// round trip
			dec, err := DecodeSegment(datatypes.NewReader(got), false)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !SegmentsEqual(dec, mustPort(t, tt.port, tt.link)) {
				t.Fatalf("round trip mismatch: %v", dec)
			}
		})
	}
}

func TestPortSegmentAliasEquality(t *testing.T) {
	if !SegmentsEqual(mustPort(t, "backplane", 1), mustPort(t, 1, 1)) {
		t.Fatal("alias must compare equal to numeric port")
	}
	if SegmentsEqual(mustPort(t, 1, 1), mustPort(t, 2, 1)) {
		t.Fatal("different ports must not compare equal")
	}
}

func TestLogicalSegmentFixtures(t *testing.T) {
	cls := mustLogical(t, LogicalClassID, 1)
	if got := encodeSeg(t, cls, false); !bytes.Equal(got, []byte{0x20, 0x01}) {
		t.Fatalf("class = % X", got)
	}
	inst := mustLogical(t, LogicalInstanceID, 300)
	if got := encodeSeg(t, inst, false); !bytes.Equal(got, []byte{0x25, 0x2C, 0x01}) {
		t.Fatalf("packed instance = % X", got)
	}
	if got := encodeSeg(t, inst, true); !bytes.Equal(got, []byte{0x25, 0x00, 0x2C, 0x01}) {
		t.Fatalf("padded instance = % X", got)
	}
	// padded round trip consumes the pad byte
	dec, err := DecodeSegment(datatypes.NewReader([]byte{0x25, 0x00, 0x2C, 0x01}), true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, inst) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
}

func TestLogicalSegmentValidation(t *testing.T) {
	// 32-bit only for instance id and connection point
	if _, err := NewLogicalSegment(LogicalClassID, 0x10000); err == nil {
		t.Fatal("32-bit class id must fail")
	}
	if _, err := NewLogicalSegment(LogicalInstanceID, 0x10000); err != nil {
		t.Fatalf("32-bit instance id must be valid: %v", err)
	}
	if _, err := NewLogicalSegment(LogicalConnectionPoint, 0x10000); err != nil {
		t.Fatalf("32-bit connection point must be valid: %v", err)
	}
	// service id is always 8-bit
	if _, err := NewLogicalSegment(LogicalServiceID, 0x100); err == nil {
		t.Fatal("16-bit service id must fail")
	}
	// special type is reserved for electronic keys
	if _, err := NewLogicalSegment(LogicalSpecial, 1); err == nil {
		t.Fatal("special type must be unsupported")
	}
}

func TestNetworkSegmentFixtures(t *testing.T) {
	s, err := NewNetworkSegment(NetworkSafety, []byte{'1', '2'})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := encodeSeg(t, s, false)
	if !bytes.Equal(got, []byte{0x50, 0x02, '1', '2'}) {
		t.Fatalf("safety = % X", got)
	}
	dec, err := DecodeSegment(datatypes.NewReader(got), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, s) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
	// non-array subtypes take exactly one data byte
	if _, err := NewNetworkSegment(NetworkScheduled, []byte{1, 2}); err == nil {
		t.Fatal("scheduled with 2 bytes must fail")
	}
	pit, err := NewNetworkSegment(NetworkProductionInhibitTime, []byte{0x07})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := encodeSeg(t, pit, false); !bytes.Equal(got, []byte{0x43, 0x07}) {
		t.Fatalf("pit = % X", got)
	}
	// extended subtype reserves the first two data bytes for its selector
	ext, err := NewNetworkSegment(NetworkExtended, []byte{0x01, 0x00, 0xAA})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got = encodeSeg(t, ext, false)
	if !bytes.Equal(got, []byte{0x5F, 0x01, 0x01, 0x00, 0xAA}) {
		t.Fatalf("extended = % X", got)
	}
	dec, err = DecodeSegment(datatypes.NewReader(got), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, ext) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
}

func TestSymbolicSegmentFixtures(t *testing.T) {
	s, err := NewSymbolicSegment("her?")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := encodeSeg(t, s, false)
	if !bytes.Equal(got, []byte{0x64, 'h', 'e', 'r', '?'}) {
		t.Fatalf("symbol = % X", got)
	}
	dec, err := DecodeSegment(datatypes.NewReader(got), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, s) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
	if _, err := NewSymbolicSegment(""); err == nil {
		t.Fatal("empty symbol must fail")
	}
	if _, err := NewSymbolicSegment("this-symbol-is-way-too-long-for-a-segment"); err == nil {
		t.Fatal("over-31-char symbol must fail")
	}
}

func TestSymbolicNumericSegments(t *testing.T) {
	tests := []struct {
		typ   *datatypes.IntType
		value uint32
		want  []byte
	}{
		{datatypes.USINT, 7, []byte{0x60, 0xC6, 0x07}},
		{datatypes.UINT, 0x1234, []byte{0x60, 0xC7, 0x34, 0x12}},
		{datatypes.UDINT, 0x01020304, []byte{0x60, 0xC8, 0x04, 0x03, 0x02, 0x01}},
	}
	for _, tt := range tests {
		s, err := NewNumericSymbolSegment(tt.typ, tt.value)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		got := encodeSeg(t, s, false)
		if !bytes.Equal(got, tt.want) {
			t.Fatalf("%s numeric = % X, want % X", tt.typ.TypeName(), got, tt.want)
		}
		dec, err := DecodeSegment(datatypes.NewReader(got), false)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !SegmentsEqual(dec, s) {
			t.Fatalf("round trip mismatch: %v", dec)
		}
	}
}

func TestSymbolicExtendedByteSegments(t *testing.T) {
	if _, err := NewSymbolicSegmentBytes([]byte{1, 2, 3}, SymbolicDoubleByte); err == nil {
		t.Fatal("odd double-byte data must fail")
	}
	if _, err := NewSymbolicSegmentBytes([]byte{1, 2, 3, 4}, SymbolicTripleByte); err == nil {
		t.Fatal("non-multiple-of-3 triple-byte data must fail")
	}
	s, err := NewSymbolicSegmentBytes([]byte{'a', 0x00, 'b', 0x00}, SymbolicDoubleByte)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := encodeSeg(t, s, false)
	// length field counts characters, not bytes
	if !bytes.Equal(got, []byte{0x60, 0x22, 'a', 0x00, 'b', 0x00}) {
		t.Fatalf("double-byte = % X", got)
	}
	dec, err := DecodeSegment(datatypes.NewReader(got), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, s) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
}

func TestDataSegments(t *testing.T) {
	ansi := NewANSISegment("tag")
	got := encodeSeg(t, ansi, false)
	if !bytes.Equal(got, []byte{0x91, 0x03, 't', 'a', 'g'}) {
		t.Fatalf("ansi = % X", got)
	}
	dec, err := DecodeSegment(datatypes.NewReader(got), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !SegmentsEqual(dec, ansi) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
	// odd-length symbols are padded to even
	ansi = NewANSISegment("ab")
	got = encodeSeg(t, ansi, false)
	if !bytes.Equal(got, []byte{0x91, 0x02, 'a', 'b', 0x00}) {
		t.Fatalf("ansi padded = % X", got)
	}
}
