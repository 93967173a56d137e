package datatypes

// Declarative struct engine. A StructType is a compiled field description;
// values are *Struct instances that keep every field's encoded bytes so
// serialisation is a single concatenation and nested mutations propagate to
// the owning value without re-scanning children.

import (
	"fmt"
	"sort"
	"strings"
)

// Field declares one member of a struct type.
type Field struct {
	Name string
	Type Type
	// Default supplies the value when none is given at construction.
	Default any
	// Reserved fields are not user-facing: always serialised from Default
	// (or the decoded value) and never settable. Requires Default.
	Reserved bool
	// NoInit marks a computed field that need not be supplied at
	// construction (length fields, size fields).
	NoInit bool
	// LenRef names a preceding integer field holding this array/bytes
	// field's element count. LenEncode/LenDecode translate between the
	// stored and used lengths (identity when nil).
	LenRef    string
	LenEncode func(n int) int
	LenDecode func(n int) int
	// SizeRef marks this integer field as holding the byte count of all
	// following fields. At most one per struct. SizeEncode transforms the
	// computed count before storing (identity when nil).
	SizeRef    bool
	SizeEncode func(n int) int
	// ConditionalOn names a preceding field whose value decides whether
	// this field is present. Condition defaults to "referenced value is
	// zero". Absent fields serialise to zero bytes.
	ConditionalOn string
	Condition     func(v any) bool
	// Fmt overrides display formatting only.
	Fmt func(v any) string
}

// StructType is a compiled struct description.
type StructType struct {
	name      string
	fields    []Field
	index     map[string]int
	sizeRef   int         // field index, -1 if none
	lenOwners map[int]int // length-field index -> dependent field index
}

// NewStructType compiles a struct declaration, validating the field metadata
// invariants.
func NewStructType(name string, fields ...Field) (*StructType, error) {
	t := &StructType{
		name:      name,
		fields:    fields,
		index:     make(map[string]int, len(fields)),
		sizeRef:   -1,
		lenOwners: map[int]int{},
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, dataErrf("struct %s: field %d has no name", name, i)
		}
		if _, dup := t.index[f.Name]; dup {
			return nil, dataErrf("struct %s: duplicate field %q", name, f.Name)
		}
		if f.Type == nil {
			return nil, dataErrf("struct %s: field %q has no type", name, f.Name)
		}
		t.index[f.Name] = i

		if f.Reserved {
			if f.Default == nil {
				return nil, dataErrf("struct %s: reserved field %q requires a default", name, f.Name)
			}
			if f.SizeRef || f.LenRef != "" {
				return nil, dataErrf("struct %s: field %q cannot be reserved and size_ref/len_ref", name, f.Name)
			}
		}
		if f.SizeRef {
			if f.LenRef != "" {
				return nil, dataErrf("struct %s: field %q cannot be both size_ref and len_ref", name, f.Name)
			}
			if t.sizeRef != -1 {
				return nil, dataErrf("struct %s: size_ref already defined on field %q", name, fields[t.sizeRef].Name)
			}
			if _, ok := f.Type.(*IntType); !ok {
				return nil, dataErrf("struct %s: size_ref field %q must be an integer type", name, f.Name)
			}
			t.sizeRef = i
		}
		if f.LenRef != "" {
			refIdx, ok := t.index[f.LenRef]
			if !ok || refIdx >= i {
				return nil, dataErrf("struct %s: len_ref %q of field %q is not a preceding member", name, f.LenRef, f.Name)
			}
			if !isIntField(fields[refIdx].Type) {
				return nil, dataErrf("struct %s: len_ref target %q must be an integer type", name, f.LenRef)
			}
			switch f.Type.(type) {
			case *ArrayType, *BytesType:
			default:
				return nil, dataErrf("struct %s: field %q with len_ref must be an array or bytes type", name, f.Name)
			}
			t.lenOwners[refIdx] = i
		}
		if f.ConditionalOn != "" {
			refIdx, ok := t.index[f.ConditionalOn]
			if !ok || refIdx >= i {
				return nil, dataErrf("struct %s: conditional_on %q of field %q is not a preceding member", name, f.ConditionalOn, f.Name)
			}
			if f.Default != nil {
				return nil, dataErrf("struct %s: conditional field %q must default to absent", name, f.Name)
			}
		}
	}
	return t, nil
}

func isIntField(t Type) bool {
	switch t.(type) {
	case *IntType, *BitArrayType:
		return true
	}
	return false
}

// MustStruct is NewStructType that panics on a declaration error; for use in
// package-level type declarations.
func MustStruct(name string, fields ...Field) *StructType {
	t, err := NewStructType(name, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *StructType) TypeName() string { return t.name }

// Fields returns the field declarations in order.
func (t *StructType) Fields() []Field { return t.fields }

// FieldNames returns the declared field names in order.
func (t *StructType) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

func (t *StructType) Size() int {
	total := 0
	for _, f := range t.fields {
		sz := f.Type.Size()
		if sz < 0 {
			return -1
		}
		total += sz
	}
	return total
}

func (t *StructType) condition(f Field) func(any) bool {
	if f.Condition != nil {
		return f.Condition
	}
	return isZeroValue
}

// New builds a struct value from named field values. Missing fields must be
// covered by a default, a computed reference (size_ref, len_ref length
// field), or a conditional declaration.
func (t *StructType) New(values map[string]any) (*Struct, error) {
	s := &Struct{typ: t, values: make([]any, len(t.fields)), encoded: make([][]byte, len(t.fields))}
	provided := make([]bool, len(t.fields))
	for name := range values {
		i, ok := t.index[name]
		if !ok {
			return nil, dataErrf("%s has no field %q", t.name, name)
		}
		if t.fields[i].Reserved {
			return nil, dataErrf("%s: reserved field %q is not settable", t.name, name)
		}
		provided[i] = true
	}

	// first pass: coerce the provided values and defaults
	for i, f := range t.fields {
		switch {
		case provided[i]:
			if err := s.store(i, values[f.Name]); err != nil {
				return nil, err
			}
		case f.Default != nil:
			if err := s.store(i, f.Default); err != nil {
				return nil, err
			}
		}
	}
	// second pass: compute length fields from their arrays, then anything
	// still missing is an error unless conditional or the size field
	for i, f := range t.fields {
		if s.encoded[i] != nil {
			continue
		}
		if depIdx, isLen := t.lenOwners[i]; isLen {
			n, err := s.fieldLength(depIdx)
			if err != nil {
				return nil, err
			}
			dep := t.fields[depIdx]
			if dep.LenEncode != nil {
				n = dep.LenEncode(n)
			}
			if err := s.store(i, n); err != nil {
				return nil, err
			}
			continue
		}
		if f.ConditionalOn != "" {
			s.encoded[i] = []byte{}
			continue
		}
		if i == t.sizeRef {
			if err := s.store(i, 0); err != nil {
				return nil, err
			}
			continue
		}
		return nil, dataErrf("%s: missing value for field %q", t.name, f.Name)
	}
	if err := s.updateSizeRef(); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *StructType) Encode(v any) ([]byte, error) {
	var s *Struct
	switch val := v.(type) {
	case *Struct:
		s = val
	case map[string]any:
		var err error
		if s, err = t.New(val); err != nil {
			return nil, err
		}
	default:
		return nil, dataErrf("invalid value for %s: %T", t.name, v)
	}
	if s.typ != t {
		return nil, dataErrf("cannot encode %s value as %s", s.typ.name, t.name)
	}
	var out []byte
	for i, f := range t.fields {
		if f.ConditionalOn != "" {
			ref := s.values[t.index[f.ConditionalOn]]
			if t.condition(f)(ref) && len(s.encoded[i]) == 0 {
				return nil, dataErrf("%s: conditional field %q missing but %q indicates presence", t.name, f.Name, f.ConditionalOn)
			}
		}
		out = append(out, s.encoded[i]...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

func (t *StructType) Decode(r *Reader) (any, error) {
	values := make(map[string]any, len(t.fields))
	s := &Struct{typ: t, values: make([]any, len(t.fields)), encoded: make([][]byte, len(t.fields))}
	for i, f := range t.fields {
		var (
			v   any
			err error
		)
		switch {
		case f.LenRef != "":
			refVal := values[f.LenRef]
			n := int(toUint64(refVal))
			if f.LenDecode != nil {
				n = f.LenDecode(n)
			}
			v, err = decodeWithLength(f.Type, n, r)
		case f.ConditionalOn != "":
			if t.condition(f)(values[f.ConditionalOn]) {
				v, err = f.Type.Decode(r)
			} else {
				v = f.Default
			}
		default:
			v, err = f.Type.Decode(r)
		}
		if err != nil {
			return nil, dataErr(err, "error decoding field %q of %s (decoded so far: %s)", f.Name, t.name, describeValues(values))
		}
		values[f.Name] = v
		if v == nil {
			s.encoded[i] = []byte{}
			continue
		}
		if err := s.store(i, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// decodeWithLength decodes a len_ref field by rebuilding its type with the
// resolved length.
func decodeWithLength(t Type, n int, r *Reader) (any, error) {
	switch typ := t.(type) {
	case *ArrayType:
		return ArrayOf(typ.elem, n).Decode(r)
	case *BytesType:
		return BytesFixed(n).Decode(r)
	}
	return nil, dataErrf("len_ref field has unsupported type %s", t.TypeName())
}

func describeValues(values map[string]any) string {
	if len(values) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%v", k, values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// coerceValue converts v to the canonical decoded form for t and returns it
// with its encoding.
func coerceValue(t Type, v any) (any, []byte, error) {
	switch typ := t.(type) {
	case *StructType:
		var sv *Struct
		switch val := v.(type) {
		case *Struct:
			if val.typ != typ {
				return nil, nil, dataErrf("cannot use %s value for %s field", val.typ.name, typ.name)
			}
			sv = val
		case map[string]any:
			var err error
			if sv, err = typ.New(val); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, dataErrf("invalid value for %s: %T", typ.name, v)
		}
		enc, err := typ.Encode(sv)
		if err != nil {
			return nil, nil, err
		}
		return sv, enc, nil
	case *ArrayType:
		av, err := typ.coerce(v)
		if err != nil {
			return nil, nil, err
		}
		enc, err := typ.Encode(av)
		if err != nil {
			return nil, nil, err
		}
		return av, enc, nil
	default:
		enc, err := t.Encode(v)
		if err != nil {
			return nil, nil, err
		}
		// round through the decoder so stored values are canonical and
		// decode(encode(v)) comparisons hold
		canon, err := t.Decode(NewReader(enc))
		if err != nil {
			return nil, nil, err
		}
		return canon, enc, nil
	}
}

// Struct is a struct value: per-field decoded values plus their encoded
// bytes, concatenated on emit.
type Struct struct {
	typ     *StructType
	values  []any
	encoded [][]byte
	parent  *parentRef
}

// Type returns the struct's type.
func (s *Struct) Type() *StructType { return s.typ }

// store coerces and records field i without reference bookkeeping.
func (s *Struct) store(i int, v any) error {
	f := s.typ.fields[i]
	canon, enc, err := coerceValue(f.Type, v)
	if err != nil {
		return dataErr(err, "error encoding field %q of %s", f.Name, s.typ.name)
	}
	s.values[i] = canon
	s.encoded[i] = enc
	switch child := canon.(type) {
	case *Struct:
		child.parent = &parentRef{structParent: s, fieldIndex: i}
	case *Array:
		child.parent = &parentRef{structParent: s, fieldIndex: i}
	}
	return nil
}

// fieldLength returns the element count of an array/bytes field.
func (s *Struct) fieldLength(i int) (int, error) {
	switch v := s.values[i].(type) {
	case *Array:
		return v.Len(), nil
	case []byte:
		return len(v), nil
	case nil:
		return 0, dataErrf("%s: field %q has no value to take a length from", s.typ.name, s.typ.fields[i].Name)
	}
	return 0, dataErrf("%s: field %q is not an array", s.typ.name, s.typ.fields[i].Name)
}

// Get returns the value of the named field, nil if absent.
func (s *Struct) Get(name string) any {
	i, ok := s.typ.index[name]
	if !ok {
		return nil
	}
	return s.values[i]
}

// Has reports whether the named field currently holds a value.
func (s *Struct) Has(name string) bool {
	i, ok := s.typ.index[name]
	return ok && s.values[i] != nil
}

// Uint returns the named integer field as uint64, 0 if absent.
func (s *Struct) Uint(name string) uint64 {
	v := s.Get(name)
	if v == nil {
		return 0
	}
	return toUint64(v)
}

// Int returns the named integer field as int64, 0 if absent.
func (s *Struct) Int(name string) int64 { return int64(s.Uint(name)) }

// Str returns the named string field, "" if absent.
func (s *Struct) Str(name string) string {
	v, _ := s.Get(name).(string)
	return v
}

// BytesField returns the named bytes field, nil if absent.
func (s *Struct) BytesField(name string) []byte {
	v, _ := s.Get(name).([]byte)
	return v
}

// StructField returns the named nested struct, nil if absent.
func (s *Struct) StructField(name string) *Struct {
	v, _ := s.Get(name).(*Struct)
	return v
}

// ArrayField returns the named array field, nil if absent.
func (s *Struct) ArrayField(name string) *Array {
	v, _ := s.Get(name).(*Array)
	return v
}

// Set assigns the named field, refreshing the encoded cache, any dependent
// length field, the size reference, and the owning value.
func (s *Struct) Set(name string, v any) error {
	i, ok := s.typ.index[name]
	if !ok {
		return dataErrf("%s has no field %q", s.typ.name, name)
	}
	f := s.typ.fields[i]
	if f.Reserved {
		return dataErrf("%s: reserved field %q is not settable", s.typ.name, name)
	}
	if f.ConditionalOn != "" && v != nil {
		ref := s.values[s.typ.index[f.ConditionalOn]]
		if !s.typ.condition(f)(ref) {
			return dataErrf("%s: cannot set conditional field %q, %q indicates it is absent", s.typ.name, name, f.ConditionalOn)
		}
	}
	if v == nil {
		if f.ConditionalOn == "" {
			return dataErrf("%s: field %q cannot be cleared", s.typ.name, name)
		}
		s.values[i] = nil
		s.encoded[i] = []byte{}
	} else if err := s.store(i, v); err != nil {
		return err
	}
	// an array assignment rewrites its length field
	if f.LenRef != "" {
		n, err := s.fieldLength(i)
		if err != nil {
			return err
		}
		if f.LenEncode != nil {
			n = f.LenEncode(n)
		}
		refIdx := s.typ.index[f.LenRef]
		if err := s.store(refIdx, n); err != nil {
			return dataErr(err, "error updating length field %q", f.LenRef)
		}
	}
	if s.typ.sizeRef >= 0 && i != s.typ.sizeRef {
		if err := s.updateSizeRef(); err != nil {
			return err
		}
	}
	s.notifyParent()
	return nil
}

// updateSizeRef rewrites the size field from the encoded lengths of all
// fields following it.
func (s *Struct) updateSizeRef() error {
	if s.typ.sizeRef < 0 {
		return nil
	}
	total := 0
	for i := s.typ.sizeRef + 1; i < len(s.encoded); i++ {
		total += len(s.encoded[i])
	}
	if f := s.typ.fields[s.typ.sizeRef]; f.SizeEncode != nil {
		total = f.SizeEncode(total)
	}
	return s.store(s.typ.sizeRef, total)
}

// refreshField re-encodes field i after a nested mutation and propagates the
// change upward.
func (s *Struct) refreshField(i int) error {
	enc, err := EncodeValue(s.typ.fields[i].Type, s.values[i])
	if err != nil {
		return err
	}
	s.encoded[i] = enc
	if err := s.updateSizeRef(); err != nil {
		return err
	}
	s.notifyParent()
	return nil
}

func (s *Struct) notifyParent() {
	if s.parent == nil {
		return
	}
	if s.parent.structParent != nil {
		_ = s.parent.structParent.refreshField(s.parent.fieldIndex)
	} else if s.parent.arrayParent != nil {
		_ = s.parent.arrayParent.refreshElem(s.parent.elemIndex)
	}
}

// Bytes encodes the struct.
func (s *Struct) Bytes() ([]byte, error) { return s.typ.Encode(s) }

// Equal reports whether two struct values encode identically.
func (s *Struct) Equal(other *Struct) bool {
	if other == nil || s.typ != other.typ {
		return false
	}
	for i := range s.encoded {
		if string(s.encoded[i]) != string(other.encoded[i]) {
			return false
		}
	}
	return true
}

func (s *Struct) String() string {
	parts := make([]string, 0, len(s.typ.fields))
	for i, f := range s.typ.fields {
		v := s.values[i]
		if f.Fmt != nil && v != nil {
			parts = append(parts, fmt.Sprintf("%s=%s", f.Name, f.Fmt(v)))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, v))
		}
	}
	return fmt.Sprintf("%s(%s)", s.typ.name, strings.Join(parts, ", "))
}
