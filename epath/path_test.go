package epath

import (
	"bytes"
	"testing"

	"github.com/tturner/cipnet/datatypes"
)

func TestPathVariants(t *testing.T) {
	p, err := Logical(0x01, 1, 6)
	if err != nil {
		t.Fatalf("logical: %v", err)
	}
	packed, err := Packed.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x20, 0x01, 0x24, 0x01, 0x30, 0x06}
	if !bytes.Equal(packed, want) {
		t.Fatalf("packed = % X, want % X", packed, want)
	}
	padded, _ := Padded.Encode(p)
	if !bytes.Equal(padded, want) {
		t.Fatalf("padded 8-bit values = % X, want % X", padded, want)
	}
	withLen, _ := PaddedLen.Encode(p)
	if !bytes.Equal(withLen, append([]byte{0x03}, want...)) {
		t.Fatalf("padded len = % X", withLen)
	}
	withPadLen, _ := PaddedPadLen.Encode(p)
	if !bytes.Equal(withPadLen, append([]byte{0x03, 0x00}, want...)) {
		t.Fatalf("padded pad len = % X", withPadLen)
	}
}

func TestPathPaddedMultiByte(t *testing.T) {
	inst := mustLogical(t, LogicalInstanceID, 300)
	p := Path{mustLogical(t, LogicalClassID, 1), inst}
	padded, err := Padded.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x20, 0x01, 0x25, 0x00, 0x2C, 0x01}
	if !bytes.Equal(padded, want) {
		t.Fatalf("padded = % X, want % X", padded, want)
	}
	dec, err := datatypes.DecodeBytes(Padded, padded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.(Path).Equal(p) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
}

func TestPathLenPrefixedRoundTrip(t *testing.T) {
	p, _ := Logical(0xF4, 2, 4)
	enc, err := PaddedLen.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := datatypes.DecodeBytes(PaddedLen, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.(Path).Equal(p) {
		t.Fatalf("round trip mismatch: %v", dec)
	}
}

func TestPathFixedLength(t *testing.T) {
	p, _ := Logical(0x01, 1, -1)
	fixed := Padded.Fixed(2)
	if _, err := fixed.Encode(p.Append(mustLogical(t, LogicalAttributeID, 1))); err == nil {
		t.Fatal("segment count mismatch must fail")
	}
	enc, err := fixed.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// fixed decode stops after the declared count even with trailing data
	r := datatypes.NewReader(append(enc, 0x30, 0x06))
	dec, err := fixed.Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dec.(Path)) != 2 || r.Remaining() != 2 {
		t.Fatalf("fixed decode consumed wrong amount: %v remaining %d", dec, r.Remaining())
	}
	if Padded.Fixed(2) != fixed {
		t.Fatal("fixed path types must be memoised")
	}
}

func TestPathDecodeUntilEmpty(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x20, 0x06, 0x24, 0x01}
	dec, err := datatypes.DecodeBytes(Packed, buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := dec.(Path)
	if len(p) != 3 {
		t.Fatalf("segments = %d, want 3", len(p))
	}
	if _, ok := p[0].(*PortSegment); !ok {
		t.Fatalf("segment 0 = %T", p[0])
	}
	if _, ok := p[1].(*LogicalSegment); !ok {
		t.Fatalf("segment 1 = %T", p[1])
	}
}

func TestRouteParsing(t *testing.T) {
	r, err := ParseRoute("backplane/1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(r) != 1 || !SegmentsEqual(r[0], mustPort(t, 1, 1)) {
		t.Fatalf("route = %v", r)
	}
	r, err = ParseRoute("1/0/enet/10.0.0.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(r) != 2 {
		t.Fatalf("route = %v", r)
	}
	if _, err := ParseRoute("1/0/2"); err == nil {
		t.Fatal("odd segment count must fail")
	}
	empty, err := ParseRoute("")
	if err != nil || !empty.Empty() {
		t.Fatalf("empty route: %v %v", empty, err)
	}
	ext, err := r.Extend("bp/3")
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(ext) != 3 || len(r) != 2 {
		t.Fatal("extend must not mutate the receiver")
	}
}
