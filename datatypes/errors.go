package datatypes

// Error kinds shared by every codec in the library.

import (
	"errors"
	"fmt"
)

// ErrBufferEmpty signals a decode was attempted against a fully consumed
// buffer. Array and struct decoders propagate it unchanged so callers can
// distinguish legitimate end-of-sequence from malformed data.
var ErrBufferEmpty = errors.New("buffer empty")

// DataError reports malformed input or an invalid value for a type. It always
// wraps the lower-level cause.
type DataError struct {
	Msg string
	Err error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *DataError) Unwrap() error { return e.Err }

// dataErr wraps err as a DataError with context, passing ErrBufferEmpty
// through untouched.
func dataErr(err error, format string, args ...any) error {
	if err != nil && errors.Is(err, ErrBufferEmpty) {
		return err
	}
	return &DataError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func dataErrf(format string, args ...any) error {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}
