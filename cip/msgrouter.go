package cip

// Message Router request/response layer: service code + padded EPATH + data
// on the way out, reply service + status words + data on the way back.

import (
	"fmt"

	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// ReplyServiceMask is set on the service code of every reply.
const ReplyServiceMask uint8 = 0x80

// Common service codes.
const (
	ServiceGetAttributesAll   uint8 = 0x01
	ServiceSetAttributesAll   uint8 = 0x02
	ServiceGetAttributeList   uint8 = 0x03
	ServiceSetAttributeList   uint8 = 0x04
	ServiceReset              uint8 = 0x05
	ServiceGetAttributeSingle uint8 = 0x0E
	ServiceSetAttributeSingle uint8 = 0x10
)

// MessageRouterRequest is the wire layout of an explicit request.
var MessageRouterRequest = datatypes.MustStruct("MessageRouterRequest",
	datatypes.Field{Name: "service", Type: datatypes.USINT},
	datatypes.Field{Name: "path", Type: epath.PaddedLen},
	datatypes.Field{Name: "data", Type: datatypes.Bytes},
)

// MessageRouterResponse is the wire layout of an explicit reply.
var MessageRouterResponse = datatypes.MustStruct("MessageRouterResponse",
	datatypes.Field{Name: "service", Type: datatypes.USINT},
	datatypes.Field{Name: "reserved", Type: datatypes.USINT, Reserved: true, Default: 0},
	datatypes.Field{Name: "general_status", Type: datatypes.USINT},
	datatypes.Field{Name: "addl_status_size", Type: datatypes.USINT, NoInit: true},
	datatypes.Field{Name: "additional_status", Type: datatypes.DynamicArrayOf(datatypes.UINT), LenRef: "addl_status_size"},
	datatypes.Field{Name: "data", Type: datatypes.Bytes},
)

// NewRouterRequest assembles a Message Router request struct from a service
// code, a path, and raw service data.
func NewRouterRequest(service uint8, path epath.Path, data []byte) (*datatypes.Struct, error) {
	if data == nil {
		data = []byte{}
	}
	return MessageRouterRequest.New(map[string]any{
		"service": service,
		"path":    path,
		"data":    data,
	})
}

// NewLogicalRequest assembles a request against the usual class/instance
// (/attribute) logical path; attribute < 0 omits the attribute segment.
func NewLogicalRequest(service uint8, classCode uint16, instance uint32, attribute int, data []byte) (*datatypes.Struct, error) {
	path, err := epath.Logical(classCode, instance, attribute)
	if err != nil {
		return nil, err
	}
	return NewRouterRequest(service, path, data)
}

// ResponseParser turns raw reply bytes into a typed Response.
type ResponseParser interface {
	Parse(data []byte, req *Request) (*Response, error)
}

// RouterResponseParser decodes a Message Router reply, selecting the success
// or failure body type on the general status, and resolves the human
// readable status message against StatusObject's code tables (the generic
// tables when nil).
type RouterResponseParser struct {
	// ResponseType decodes the body of successful replies.
	ResponseType datatypes.Type
	// FailedType decodes the body of failed replies; raw bytes when nil.
	FailedType datatypes.Type
	// SuccessStatuses is the set of general statuses treated as success;
	// {0x00} when empty.
	SuccessStatuses []uint8
	// StatusObject supplies object-specific status code tables.
	StatusObject *Object
}

// SuccessSet returns the effective success status set.
func (p *RouterResponseParser) SuccessSet() []uint8 {
	if len(p.SuccessStatuses) == 0 {
		return []uint8{StatusSuccess}
	}
	return p.SuccessStatuses
}

func (p *RouterResponseParser) failedType() datatypes.Type {
	if p.FailedType == nil {
		return datatypes.Bytes
	}
	return p.FailedType
}

// Parse decodes a reply per the Message Router layout.
func (p *RouterResponseParser) Parse(data []byte, req *Request) (*Response, error) {
	dec, err := datatypes.DecodeBytes(MessageRouterResponse, data)
	if err != nil {
		return nil, fmt.Errorf("decode message router response: %w", err)
	}
	msg := dec.(*datatypes.Struct)
	status := uint8(msg.Uint("general_status"))
	body := msg.BytesField("data")
	resp := &Response{
		Request:         req,
		Message:         msg,
		GeneralStatus:   status,
		ExtendedStatus:  additionalStatus(msg),
		SuccessStatuses: p.SuccessSet(),
	}

	if resp.OK() {
		if p.ResponseType != nil {
			v, err := datatypes.DecodeBytes(p.ResponseType, body)
			if err != nil {
				return nil, fmt.Errorf("decode response data as %s: %w", p.ResponseType.TypeName(), err)
			}
			resp.Data = v
		}
		resp.StatusMessage = "Success"
		return resp, nil
	}

	failed, err := datatypes.DecodeBytes(p.failedType(), body)
	if err != nil {
		return nil, fmt.Errorf("decode failed response data as %s: %w", p.failedType().TypeName(), err)
	}
	resp.Data = failed

	service := uint8(0)
	if req != nil {
		service = uint8(req.Message.Uint("service"))
	}
	general, ext := p.StatusObject.StatusMessages(service, status, resp.ExtendedStatus, failed)
	if ext != "" {
		resp.StatusMessage = fmt.Sprintf("%s(0x%02x): %s", general, status, ext)
	} else {
		resp.StatusMessage = general
	}
	return resp, nil
}

func additionalStatus(msg *datatypes.Struct) []uint16 {
	arr := msg.ArrayField("additional_status")
	if arr == nil {
		return nil
	}
	words := make([]uint16, arr.Len())
	for i := range words {
		words[i] = arr.At(i).(uint16)
	}
	return words
}
