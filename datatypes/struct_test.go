package datatypes

import (
	"bytes"
	"errors"
	"testing"
)

func TestStructBasicRoundTrip(t *testing.T) {
	typ := MustStruct("Pair",
		Field{Name: "a", Type: USINT},
		Field{Name: "b", Type: UINT},
	)
	s, err := typ.New(map[string]any{"a": 1, "b": 0x0203})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := s.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, []byte{0x01, 0x03, 0x02}) {
		t.Fatalf("encode = % X", enc)
	}
	dec, err := DecodeBytes(typ, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.(*Struct).Equal(s) {
		t.Fatal("round trip mismatch")
	}
	// multiple constructions of the same value encode identically
	s2, _ := typ.New(map[string]any{"a": uint8(1), "b": uint16(0x0203)})
	if !s.Equal(s2) {
		t.Fatal("equal values must encode identically")
	}
}

func TestStructDefaultsAndReserved(t *testing.T) {
	typ := MustStruct("R",
		Field{Name: "x", Type: USINT},
		Field{Name: "pad", Type: BytesFixed(3), Reserved: true, Default: []byte{0, 0, 0}},
		Field{Name: "y", Type: USINT, Default: 7},
	)
	s, err := typ.New(map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, _ := s.Bytes()
	if !bytes.Equal(enc, []byte{0x01, 0, 0, 0, 0x07}) {
		t.Fatalf("encode = % X", enc)
	}
	if err := s.Set("pad", []byte{1, 2, 3}); err == nil {
		t.Fatal("reserved field must not be settable")
	}
	if _, err := typ.New(map[string]any{"x": 1, "pad": []byte{1, 2, 3}}); err == nil {
		t.Fatal("reserved field must not be constructible")
	}
}

func TestStructDeclarationInvariants(t *testing.T) {
	// reserved requires default
	if _, err := NewStructType("Bad1", Field{Name: "r", Type: USINT, Reserved: true}); err == nil {
		t.Fatal("reserved without default must fail")
	}
	// only one size_ref
	_, err := NewStructType("Bad2",
		Field{Name: "s1", Type: UINT, SizeRef: true},
		Field{Name: "s2", Type: UINT, SizeRef: true},
		Field{Name: "d", Type: Bytes},
	)
	if err == nil {
		t.Fatal("second size_ref must fail")
	}
	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DataError, got %v", err)
	}
	// len_ref target must precede and be an integer
	if _, err := NewStructType("Bad3",
		Field{Name: "data", Type: Bytes, LenRef: "n"},
		Field{Name: "n", Type: USINT},
	); err == nil {
		t.Fatal("len_ref of later field must fail")
	}
	if _, err := NewStructType("Bad4",
		Field{Name: "n", Type: ShortString},
		Field{Name: "data", Type: Bytes, LenRef: "n"},
	); err == nil {
		t.Fatal("non-integer len_ref target must fail")
	}
	// conditional defaults must be absent
	if _, err := NewStructType("Bad5",
		Field{Name: "status", Type: USINT},
		Field{Name: "data", Type: UINT, ConditionalOn: "status", Default: 2},
	); err == nil {
		t.Fatal("conditional field with default must fail")
	}
}

func TestStructLenRefCoherence(t *testing.T) {
	typ := MustStruct("Counted",
		Field{Name: "count", Type: USINT, NoInit: true},
		Field{Name: "items", Type: DynamicArrayOf(UINT), LenRef: "count"},
	)
	s, err := typ.New(map[string]any{"items": []any{1, 2, 3}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Uint("count") != 3 {
		t.Fatalf("count = %d, want 3", s.Uint("count"))
	}
	enc, _ := s.Bytes()
	want := []byte{0x03, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	if !bytes.Equal(enc, want) {
		t.Fatalf("encode = % X, want % X", enc, want)
	}
	// setting the array rewrites the length field
	if err := s.Set("items", []any{9}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.Uint("count") != 1 {
		t.Fatalf("count after set = %d", s.Uint("count"))
	}
	enc, _ = s.Bytes()
	if !bytes.Equal(enc, []byte{0x01, 0x09, 0x00}) {
		t.Fatalf("encode after set = % X", enc)
	}
	// decoding recovers the same array
	dec, err := DecodeBytes(typ, want)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ds := dec.(*Struct)
	if ds.Uint("count") != 3 || ds.ArrayField("items").Len() != 3 {
		t.Fatalf("decoded = %v", ds)
	}
}

func TestStructLenRefTransforms(t *testing.T) {
	// stored length is in words, used length is in bytes
	typ := MustStruct("Worded",
		Field{Name: "words", Type: USINT, NoInit: true},
		Field{Name: "data", Type: Bytes, LenRef: "words",
			LenEncode: func(n int) int { return n / 2 },
			LenDecode: func(n int) int { return n * 2 }},
	)
	s, err := typ.New(map[string]any{"data": []byte{1, 2, 3, 4}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Uint("words") != 2 {
		t.Fatalf("words = %d", s.Uint("words"))
	}
	enc, _ := s.Bytes()
	dec, err := DecodeBytes(typ, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(dec.(*Struct).BytesField("data"), []byte{1, 2, 3, 4}) {
		t.Fatalf("decoded data = % X", dec.(*Struct).BytesField("data"))
	}
}

func TestStructSizeRefCoherence(t *testing.T) {
	typ := MustStruct("Sized",
		Field{Name: "kind", Type: UINT},
		Field{Name: "size", Type: UINT, SizeRef: true},
		Field{Name: "a", Type: UDINT},
		Field{Name: "name", Type: ShortString},
	)
	s, err := typ.New(map[string]any{"kind": 1, "a": 2, "name": "ab"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Uint("size") != 7 {
		t.Fatalf("size = %d, want 7", s.Uint("size"))
	}
	// any mutation after the size field rewrites it
	if err := s.Set("name", "longer"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.Uint("size") != 11 {
		t.Fatalf("size after set = %d, want 11", s.Uint("size"))
	}
	enc, _ := s.Bytes()
	dec, err := DecodeBytes(typ, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.(*Struct).Uint("size") != 11 {
		t.Fatalf("decoded size = %d", dec.(*Struct).Uint("size"))
	}
}

func TestStructConditionalField(t *testing.T) {
	typ := MustStruct("Cond",
		Field{Name: "status", Type: UINT},
		Field{Name: "data", Type: UDINT, ConditionalOn: "status"},
	)
	// present when status == 0
	s, err := typ.New(map[string]any{"status": 0, "data": uint32(0xDEADBEEF)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err := s.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, []byte{0x00, 0x00, 0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Fatalf("encode = % X", enc)
	}
	// absent when status != 0: encodes zero bytes
	s, err = typ.New(map[string]any{"status": 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, err = s.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, []byte{0x05, 0x00}) {
		t.Fatalf("encode = % X", enc)
	}
	// present-but-missing raises at encode time
	s, err = typ.New(map[string]any{"status": 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Bytes(); err == nil {
		t.Fatal("expected encode error for missing conditional value")
	}
	// setting a conditional value the predicate forbids is an error
	s, _ = typ.New(map[string]any{"status": 5})
	if err := s.Set("data", 1); err == nil {
		t.Fatal("expected error setting absent conditional field")
	}
	// decode follows the predicate
	dec, err := DecodeBytes(typ, []byte{0x05, 0x00})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.(*Struct).Has("data") {
		t.Fatal("absent conditional field must decode as nil")
	}
}

func TestStructNestedMutationPropagates(t *testing.T) {
	inner := MustStruct("Inner",
		Field{Name: "v", Type: UINT},
	)
	outer := MustStruct("Outer",
		Field{Name: "size", Type: USINT, SizeRef: true},
		Field{Name: "child", Type: inner},
		Field{Name: "tail", Type: USINT},
	)
	s, err := outer.New(map[string]any{
		"child": map[string]any{"v": 1},
		"tail":  9,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	enc, _ := s.Bytes()
	if !bytes.Equal(enc, []byte{0x03, 0x01, 0x00, 0x09}) {
		t.Fatalf("encode = % X", enc)
	}
	// mutate the nested struct: the parent's cache must follow
	if err := s.StructField("child").Set("v", 0xABCD); err != nil {
		t.Fatalf("set: %v", err)
	}
	enc, _ = s.Bytes()
	if !bytes.Equal(enc, []byte{0x03, 0xCD, 0xAB, 0x09}) {
		t.Fatalf("encode after nested set = % X", enc)
	}
}

func TestArrayElementMutationPropagates(t *testing.T) {
	item := MustStruct("Item",
		Field{Name: "v", Type: USINT},
	)
	typ := MustStruct("Holder",
		Field{Name: "items", Type: ArrayOf(item, 2)},
	)
	s, err := typ.New(map[string]any{
		"items": []any{
			map[string]any{"v": 1},
			map[string]any{"v": 2},
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	items := s.ArrayField("items")
	if err := items.At(1).(*Struct).Set("v", 0x7F); err != nil {
		t.Fatalf("set: %v", err)
	}
	enc, _ := s.Bytes()
	if !bytes.Equal(enc, []byte{0x01, 0x7F}) {
		t.Fatalf("encode = % X", enc)
	}
}

func TestStructMissingFieldError(t *testing.T) {
	typ := MustStruct("Req",
		Field{Name: "a", Type: USINT},
		Field{Name: "b", Type: USINT},
	)
	_, err := typ.New(map[string]any{"a": 1})
	if err == nil {
		t.Fatal("expected missing field error")
	}
	if _, err := typ.New(map[string]any{"a": 1, "b": 2, "zz": 3}); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestStructDecodeErrorNamesField(t *testing.T) {
	typ := MustStruct("Err",
		Field{Name: "head", Type: UINT},
		Field{Name: "tail", Type: UDINT},
	)
	_, err := DecodeBytes(typ, []byte{0x01, 0x00, 0x02})
	if err == nil {
		t.Fatal("expected decode error")
	}
	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if !bytes.Contains([]byte(derr.Error()), []byte("tail")) {
		t.Fatalf("error should name the failed field: %v", derr)
	}
}
