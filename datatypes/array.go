package datatypes

// Typed arrays with static, dynamic (decode-until-empty), or length-prefixed
// sizing. Array values hold both the element list and each element's encoded
// bytes so mutating one element never re-encodes the rest.

import (
	"fmt"
	"sync"
)

// ArrayType is an array of elem values. Exactly one of the sizing modes is
// active: length >= 0 (static), lenType != nil (length-prefixed), or neither
// (dynamic, decode until the buffer is empty).
type ArrayType struct {
	elem    Type
	length  int
	lenType *IntType
}

type arrayKey struct {
	elem    Type
	length  int
	lenType *IntType
}

var (
	arrayMu    sync.Mutex
	arrayCache = map[arrayKey]*ArrayType{}
)

func arrayType(elem Type, length int, lenType *IntType) *ArrayType {
	arrayMu.Lock()
	defer arrayMu.Unlock()
	key := arrayKey{elem, length, lenType}
	if t, ok := arrayCache[key]; ok {
		return t
	}
	t := &ArrayType{elem: elem, length: length, lenType: lenType}
	arrayCache[key] = t
	return t
}

// ArrayOf returns the static array type of n elem values.
func ArrayOf(elem Type, n int) *ArrayType { return arrayType(elem, n, nil) }

// DynamicArrayOf returns the array type that decodes elements until the
// buffer is empty.
func DynamicArrayOf(elem Type) *ArrayType { return arrayType(elem, -1, nil) }

// CountedArrayOf returns the array type whose element count is encoded with
// lenType ahead of the elements.
func CountedArrayOf(elem Type, lenType *IntType) *ArrayType {
	return arrayType(elem, -1, lenType)
}

// Elem returns the element type.
func (t *ArrayType) Elem() Type { return t.elem }

// Len returns the static length, or -1 when dynamic or length-prefixed.
func (t *ArrayType) Len() int { return t.length }

func (t *ArrayType) TypeName() string {
	switch {
	case t.lenType != nil:
		return fmt.Sprintf("%s[%s]", t.elem.TypeName(), t.lenType.TypeName())
	case t.length >= 0:
		return fmt.Sprintf("%s[%d]", t.elem.TypeName(), t.length)
	}
	return t.elem.TypeName() + "[...]"
}

func (t *ArrayType) Size() int {
	if t.length >= 0 && t.elem.Size() >= 0 {
		return t.length * t.elem.Size()
	}
	return -1
}

// New builds an array value from elements, coercing each to the element type.
func (t *ArrayType) New(elements []any) (*Array, error) {
	if t.length >= 0 && len(elements) != t.length {
		return nil, dataErrf("array length error: expected %d items, received %d", t.length, len(elements))
	}
	a := &Array{typ: t, elems: make([]any, len(elements)), encoded: make([][]byte, len(elements))}
	for i, v := range elements {
		if err := a.store(i, v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (t *ArrayType) Encode(v any) ([]byte, error) {
	a, err := t.coerce(v)
	if err != nil {
		return nil, err
	}
	var out []byte
	if t.lenType != nil {
		prefix, err := t.lenType.Encode(len(a.elems))
		if err != nil {
			return nil, dataErr(err, "error encoding %s length", t.TypeName())
		}
		out = prefix
	}
	for _, enc := range a.encoded {
		out = append(out, enc...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

func (t *ArrayType) coerce(v any) (*Array, error) {
	switch val := v.(type) {
	case *Array:
		if val.typ.elem != t.elem {
			return nil, dataErrf("cannot encode %s value as %s", val.typ.TypeName(), t.TypeName())
		}
		if t.length >= 0 && len(val.elems) != t.length {
			return nil, dataErrf("array length error: expected %d items, received %d", t.length, len(val.elems))
		}
		return val, nil
	case []any:
		return t.New(val)
	}
	return nil, dataErrf("invalid value for %s: %T", t.TypeName(), v)
}

func (t *ArrayType) Decode(r *Reader) (any, error) {
	var count int
	switch {
	case t.lenType != nil:
		n, err := t.lenType.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding %s length", t.TypeName())
		}
		count = int(toUint64(n))
	case t.length >= 0:
		count = t.length
	default:
		return t.decodeAll(r)
	}
	elems := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := t.elem.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding %s element %d", t.TypeName(), i)
		}
		elems = append(elems, v)
	}
	a, err := t.buildDecoded(elems)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *ArrayType) decodeAll(r *Reader) (any, error) {
	var elems []any
	for {
		v, err := t.elem.Decode(r)
		if err != nil {
			if err == ErrBufferEmpty {
				break
			}
			return nil, dataErr(err, "error decoding %s", t.TypeName())
		}
		elems = append(elems, v)
	}
	return t.buildDecoded(elems)
}

func (t *ArrayType) buildDecoded(elems []any) (*Array, error) {
	a := &Array{typ: t, elems: make([]any, len(elems)), encoded: make([][]byte, len(elems))}
	for i, v := range elems {
		if err := a.store(i, v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// parentRef names the single owner of a struct or array value so mutations
// can be stamped back into the owner's encoded-field cache.
type parentRef struct {
	structParent *Struct
	fieldIndex   int
	arrayParent  *Array
	elemIndex    int
}

// Array is an array value: decoded elements plus their pre-encoded bytes.
type Array struct {
	typ     *ArrayType
	elems   []any
	encoded [][]byte
	parent  *parentRef
}

// Type returns the array's type.
func (a *Array) Type() *ArrayType { return a.typ }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// At returns element i.
func (a *Array) At(i int) any { return a.elems[i] }

// Values returns the element slice. The slice must not be mutated directly;
// use Set so the encoded cache stays consistent.
func (a *Array) Values() []any { return a.elems }

// store coerces and records element i without parent notification.
func (a *Array) store(i int, v any) error {
	v, enc, err := coerceValue(a.typ.elem, v)
	if err != nil {
		return dataErr(err, "error converting element %d of %s", i, a.typ.TypeName())
	}
	a.elems[i] = v
	a.encoded[i] = enc
	if child, ok := v.(*Struct); ok {
		child.parent = &parentRef{arrayParent: a, elemIndex: i}
	}
	return nil
}

// Set replaces element i, updating its encoded bytes and notifying the
// owning struct so size references stay correct.
func (a *Array) Set(i int, v any) error {
	if i < 0 || i >= len(a.elems) {
		return dataErrf("index %d out of range for %s of length %d", i, a.typ.TypeName(), len(a.elems))
	}
	if err := a.store(i, v); err != nil {
		return err
	}
	a.notifyParent()
	return nil
}

// Slice returns a new static-length array over elements [i, j).
func (a *Array) Slice(i, j int) (*Array, error) {
	if i < 0 || j > len(a.elems) || i > j {
		return nil, dataErrf("invalid slice bounds [%d:%d] for length %d", i, j, len(a.elems))
	}
	return ArrayOf(a.typ.elem, j-i).New(a.elems[i:j])
}

// Bytes encodes the array.
func (a *Array) Bytes() ([]byte, error) { return a.typ.Encode(a) }

// refreshElem re-encodes element i after a nested mutation and propagates
// upward.
func (a *Array) refreshElem(i int) error {
	enc, err := EncodeValue(a.typ.elem, a.elems[i])
	if err != nil {
		return err
	}
	a.encoded[i] = enc
	a.notifyParent()
	return nil
}

func (a *Array) notifyParent() {
	if a.parent != nil && a.parent.structParent != nil {
		// error ignored deliberately: the value was just encoded successfully
		_ = a.parent.structParent.refreshField(a.parent.fieldIndex)
	}
}

// Equal reports whether two arrays encode identically.
func (a *Array) Equal(other *Array) bool {
	if other == nil || len(a.encoded) != len(other.encoded) {
		return false
	}
	for i := range a.encoded {
		if string(a.encoded[i]) != string(other.encoded[i]) {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	return fmt.Sprintf("%s(%v)", a.typ.TypeName(), a.elems)
}
