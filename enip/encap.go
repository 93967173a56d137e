// Package enip implements the EtherNet/IP encapsulation layer: the 24-byte
// header, the common packet format item list, and the TCP session connection
// used to carry CIP explicit messaging.
package enip

import (
	"fmt"

	"github.com/tturner/cipnet/datatypes"
)

// Encapsulation commands.
const (
	CommandNOP               uint16 = 0x0000
	CommandListServices      uint16 = 0x0004
	CommandListIdentity      uint16 = 0x0063
	CommandListInterfaces    uint16 = 0x0064
	CommandRegisterSession   uint16 = 0x0065
	CommandUnregisterSession uint16 = 0x0066
	CommandSendRRData        uint16 = 0x006F
	CommandSendUnitData      uint16 = 0x0070
)

// CommandNames maps encapsulation commands to display names.
var CommandNames = map[uint16]string{
	CommandNOP:               "Nop",
	CommandListServices:      "List Services",
	CommandListIdentity:      "List Identity",
	CommandListInterfaces:    "List Interfaces",
	CommandRegisterSession:   "Register Session",
	CommandUnregisterSession: "Unregister Session",
	CommandSendRRData:        "Send RR Data",
	CommandSendUnitData:      "Send Unit Data",
}

// Encapsulation status codes.
const (
	StatusSuccess             uint32 = 0x0000
	StatusInvalidCommand      uint32 = 0x0001
	StatusInsufficientMemory  uint32 = 0x0002
	StatusBadData             uint32 = 0x0003
	StatusInvalidSession      uint32 = 0x0064
	StatusInvalidLength       uint32 = 0x0065
	StatusUnsupportedRevision uint32 = 0x0069
)

// StatusMessages maps encapsulation status codes to descriptions.
var StatusMessages = map[uint32]string{
	StatusSuccess:             "Success",
	StatusInvalidCommand:      "Invalid or unsupported encapsulation command",
	StatusInsufficientMemory:  "Insufficient memory to handle command",
	StatusBadData:             "Poorly formed or incorrect command data",
	StatusInvalidSession:      "Invalid session handle",
	StatusInvalidLength:       "Invalid message length",
	StatusUnsupportedRevision: "Unsupported encapsulation protocol revision",
}

// DefaultContext is the all-zero sender context.
var DefaultContext = [8]byte{}

// HeaderSize is the fixed encapsulation header size.
const HeaderSize = 24

// Header is the 24-byte encapsulation header, all little-endian.
var Header = datatypes.MustStruct("EtherNetIPHeader",
	datatypes.Field{Name: "command", Type: datatypes.UINT},
	datatypes.Field{Name: "length", Type: datatypes.UINT},
	datatypes.Field{Name: "session", Type: datatypes.UDINT},
	datatypes.Field{Name: "status", Type: datatypes.UDINT, Default: 0},
	datatypes.Field{Name: "context", Type: datatypes.BytesFixed(8), Default: make([]byte, 8)},
	datatypes.Field{Name: "options", Type: datatypes.UDINT, Default: 0},
)

// NewHeader builds an encapsulation header struct.
func NewHeader(command uint16, length int, session uint32, context [8]byte) (*datatypes.Struct, error) {
	return Header.New(map[string]any{
		"command": command,
		"length":  length,
		"session": session,
		"context": context[:],
	})
}

// EncodeFrame prepends a header to payload for a full encapsulation frame.
func EncodeFrame(command uint16, session uint32, context [8]byte, payload []byte) ([]byte, error) {
	hdr, err := NewHeader(command, len(payload), session, context)
	if err != nil {
		return nil, err
	}
	enc, err := hdr.Bytes()
	if err != nil {
		return nil, err
	}
	return append(enc, payload...), nil
}

// RegisterSessionData is the RegisterSession payload: protocol version and
// option flags.
var RegisterSessionData = datatypes.MustStruct("RegisterSessionData",
	datatypes.Field{Name: "protocol_version", Type: datatypes.UINT, Default: 1},
	datatypes.Field{Name: "options_flags", Type: datatypes.UINT, Default: 0},
)

// ResponseError reports an encapsulation-layer response with a nonzero
// header status. It carries the decoded response for inspection.
type ResponseError struct {
	Command uint16
	Status  uint32
	Header  *datatypes.Struct
}

func (e *ResponseError) Error() string {
	msg, ok := StatusMessages[e.Status]
	if !ok {
		msg = "unknown status"
	}
	return fmt.Sprintf("%s failed: %s (0x%04x)", commandName(e.Command), msg, e.Status)
}

func commandName(cmd uint16) string {
	if name, ok := CommandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("command %#04x", cmd)
}

// ConnectionError reports transport failures and session misuse: refused or
// reset sockets, timeouts, register/unregister failures, sends on a closed
// connection.
type ConnectionError struct {
	Msg string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func connErr(err error, format string, args ...any) error {
	return &ConnectionError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func connErrf(format string, args ...any) error {
	return &ConnectionError{Msg: fmt.Sprintf(format, args...)}
}
