package cip

// Request/response pairing: a request bundles its encoded Message Router
// message with the parser for its reply.

import (
	"fmt"

	"github.com/tturner/cipnet/datatypes"
)

// RequestError reports caller-side misuse of a builder API.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func requestErrf(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// Request is a Message Router request paired with its response parser.
type Request struct {
	Message *datatypes.Struct
	Parser  ResponseParser
}

// Bytes returns the encoded Message Router message.
func (r *Request) Bytes() ([]byte, error) { return r.Message.Bytes() }

// Response is a parsed reply: the decoded reply header, the typed body
// (success or failure type), and the formatted status message.
type Response struct {
	Request         *Request
	Message         *datatypes.Struct
	GeneralStatus   uint8
	ExtendedStatus  []uint16
	Data            any
	StatusMessage   string
	SuccessStatuses []uint8
}

// OK reports whether the general status is in the success set.
func (r *Response) OK() bool {
	for _, s := range r.SuccessStatuses {
		if r.GeneralStatus == s {
			return true
		}
	}
	return false
}

// DataStruct returns the body as a struct value, nil otherwise.
func (r *Response) DataStruct() *datatypes.Struct {
	v, _ := r.Data.(*datatypes.Struct)
	return v
}

// DataBytes returns the body as raw bytes, nil otherwise.
func (r *Response) DataBytes() []byte {
	v, _ := r.Data.([]byte)
	return v
}

func (r *Response) String() string {
	return fmt.Sprintf("Response(status=%#04x, msg=%q, data=%v)", r.GeneralStatus, r.StatusMessage, r.Data)
}
