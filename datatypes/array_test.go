package datatypes

import (
	"bytes"
	"errors"
	"testing"
)

func TestArrayStatic(t *testing.T) {
	typ := ArrayOf(UINT, 3)
	a, err := typ.New([]any{1, 2, 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := a.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode = % X, want % X", enc, want)
	}
	dec, err := DecodeBytes(typ, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.(*Array).Equal(a) {
		t.Fatal("round trip mismatch")
	}
	if _, err := typ.New([]any{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestArrayDecodeUntilEmpty(t *testing.T) {
	typ := DynamicArrayOf(UINT)
	buf := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	r := NewReader(buf)
	dec, err := typ.Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a := dec.(*Array)
	if a.Len() != 3 {
		t.Fatalf("len = %d, want 3", a.Len())
	}
	if !r.Empty() {
		t.Fatal("buffer not fully consumed")
	}
	// a trailing partial element is a data error, not end-of-sequence
	_, err = typ.Decode(NewReader([]byte{0x01, 0x00, 0x02}))
	if err == nil || errors.Is(err, ErrBufferEmpty) {
		t.Fatalf("expected DataError for partial element, got %v", err)
	}
}

func TestArrayCounted(t *testing.T) {
	typ := CountedArrayOf(USINT, UINT)
	a, err := typ.New([]any{9, 8})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := typ.Encode(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x02, 0x00, 0x09, 0x08}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode = % X, want % X", enc, want)
	}
	dec, err := DecodeBytes(typ, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.(*Array).Equal(a) {
		t.Fatal("round trip mismatch")
	}
}

func TestArraySetAndSlice(t *testing.T) {
	typ := ArrayOf(USINT, 4)
	a, err := typ.New([]any{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Set(2, 0xEE); err != nil {
		t.Fatalf("set: %v", err)
	}
	enc, _ := a.Bytes()
	if !bytes.Equal(enc, []byte{1, 2, 0xEE, 4}) {
		t.Fatalf("after set = % X", enc)
	}
	if err := a.Set(9, 1); err == nil {
		t.Fatal("expected out of range error")
	}
	sl, err := a.Slice(1, 3)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if sl.Type().Len() != 2 || sl.At(0) != uint8(2) || sl.At(1) != uint8(0xEE) {
		t.Fatalf("slice = %v", sl)
	}
}

func TestArrayTypeMemoised(t *testing.T) {
	if ArrayOf(UINT, 3) != ArrayOf(UINT, 3) {
		t.Fatal("static array types must be memoised")
	}
	if DynamicArrayOf(UINT) != DynamicArrayOf(UINT) {
		t.Fatal("dynamic array types must be memoised")
	}
	if CountedArrayOf(UINT, USINT) != CountedArrayOf(UINT, USINT) {
		t.Fatal("counted array types must be memoised")
	}
	if ArrayOf(UINT, 3) == ArrayOf(UINT, 4) {
		t.Fatal("different lengths must be distinct types")
	}
}
