package datatypes

import "reflect"

// toUint64 converts any integer-kind value to uint64, panicking on other
// kinds; callers only pass values produced by integer type decoders.
func toUint64(v any) uint64 {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanUint():
		return rv.Uint()
	case rv.CanInt():
		return uint64(rv.Int())
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			return 1
		}
		return 0
	}
	panic("datatypes: value is not an integer")
}

// isZeroValue reports whether v is the zero of its kind: numeric zero, false,
// empty string/bytes, or nil. Used as the default conditional predicate.
func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int() == 0
	case rv.CanUint():
		return rv.Uint() == 0
	case rv.CanFloat():
		return rv.Float() == 0
	case rv.Kind() == reflect.Bool:
		return !rv.Bool()
	case rv.Kind() == reflect.String:
		return rv.Len() == 0
	case rv.Kind() == reflect.Slice:
		return rv.Len() == 0
	}
	return false
}
