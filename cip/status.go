package cip

// CIP general status codes and the per-object status code tables used to
// format error messages.

import (
	"fmt"
	"strings"
)

// General status codes.
const (
	StatusSuccess                uint8 = 0x00
	StatusConnectionFailure      uint8 = 0x01
	StatusResourceUnavailable    uint8 = 0x02
	StatusInvalidParameterValue  uint8 = 0x03
	StatusPathError              uint8 = 0x04
	StatusDestinationUnknown     uint8 = 0x05
	StatusPartialTransfer        uint8 = 0x06
	StatusConnectionLost         uint8 = 0x07
	StatusServiceNotSupported    uint8 = 0x08
	StatusInvalidAttribute       uint8 = 0x09
	StatusAttributeListError     uint8 = 0x0A
	StatusAlreadyInState         uint8 = 0x0B
	StatusObjectStateConflict    uint8 = 0x0C
	StatusObjectAlreadyExists    uint8 = 0x0D
	StatusAttributeNotSettable   uint8 = 0x0E
	StatusPrivilegeViolation     uint8 = 0x0F
	StatusDeviceStateConflict    uint8 = 0x10
	StatusReplyTooLarge          uint8 = 0x11
	StatusFragmentationPrimitive uint8 = 0x12
	StatusNotEnoughData          uint8 = 0x13
	StatusAttributeNotSupported  uint8 = 0x14
	StatusTooMuchData            uint8 = 0x15
	StatusObjectNotExist         uint8 = 0x16
	StatusFragmentationInactive  uint8 = 0x17
	StatusNoStoredAttributeData  uint8 = 0x18
	StatusAttributeStoreFailed   uint8 = 0x19
	StatusRequestTooLarge        uint8 = 0x1A
	StatusResponseTooLarge       uint8 = 0x1B
	StatusMissingAttributeList   uint8 = 0x1C
	StatusInvalidAttributeList   uint8 = 0x1D
	StatusEmbeddedServiceError   uint8 = 0x1E
	StatusVendorSpecificError    uint8 = 0x1F
	StatusInvalidParameter       uint8 = 0x20
	StatusMediaWriteError        uint8 = 0x21
	StatusInvalidReplyService    uint8 = 0x22
	StatusBufferOverflow         uint8 = 0x23
	StatusFormatError            uint8 = 0x24
	StatusPathKeyFailure         uint8 = 0x25
	StatusPathSizeInvalid        uint8 = 0x26
	StatusUnexpectedAttribute    uint8 = 0x27
	StatusInvalidMemberID        uint8 = 0x28
	StatusMemberNotSettable      uint8 = 0x29
	StatusDNetGrp2ServerFailure  uint8 = 0x2A
	StatusUnknownModbusError     uint8 = 0x2B
)

// GeneralStatusMessages maps general status codes to their descriptions.
var GeneralStatusMessages = map[uint8]string{
	StatusSuccess:                "Success",
	StatusConnectionFailure:      "Connection failure",
	StatusResourceUnavailable:    "Insufficient resources for object to perform request",
	StatusInvalidParameterValue:  "Invalid value for request parameter",
	StatusPathError:              "A syntax error was detected decoding the Request Path",
	StatusDestinationUnknown:     "Destination unknown, class unsupported, instance undefined or structure element undefined",
	StatusPartialTransfer:        "Only a partial amount of the expected data was transferred",
	StatusConnectionLost:         "Connection lost",
	StatusServiceNotSupported:    "Service not supported",
	StatusInvalidAttribute:       "Invalid attribute value",
	StatusAttributeListError:     "An attribute in get/set_attribute_list response has an error status",
	StatusAlreadyInState:         "Object is already in the state/mode being requested",
	StatusObjectStateConflict:    "Object cannot perform request in its current state/mode",
	StatusObjectAlreadyExists:    "Instance requesting to be created already exists",
	StatusAttributeNotSettable:   "Request was to modify an attribute that is not writable",
	StatusPrivilegeViolation:     "Permission/privilege check failed",
	StatusDeviceStateConflict:    "Device prohibited from executing request due to current state/mode",
	StatusReplyTooLarge:          "Reply data too large to send",
	StatusFragmentationPrimitive: "Request would result in fragmentation of a primitive value",
	StatusNotEnoughData:          "Request contained insufficient command data",
	StatusAttributeNotSupported:  "Attribute in request is not supported",
	StatusTooMuchData:            "Request contained more data than expected",
	StatusObjectNotExist:         "Object requested does not exist",
	StatusFragmentationInactive:  "Fragmentation sequence for request is not currently active",
	StatusNoStoredAttributeData:  "Attribute data of the request object was not save prior to this request",
	StatusAttributeStoreFailed:   "Attribute data failed to save due to an error",
	StatusRequestTooLarge:        "Request was too large to send to destination",
	StatusResponseTooLarge:       "Response was too large to send from destination",
	StatusMissingAttributeList:   "Request was missing an attribute required by the service",
	StatusInvalidAttributeList:   "Request contained an invalid attribute in list of attributes",
	StatusEmbeddedServiceError:   "Embedded service errored",
	StatusVendorSpecificError:    "Vendor specific error",
	StatusInvalidParameter:       "A parameter in request was invalid",
	StatusMediaWriteError:        "Attempted to write or modify data already written in a write-once medium",
	StatusInvalidReplyService:    "Invalid reply received, reply service code does not match request",
	StatusBufferOverflow:         "Message received was too large for buffer and was discarded",
	StatusFormatError:            "Format of message is not supported",
	StatusPathKeyFailure:         "Key segment in request path does not match destination",
	StatusPathSizeInvalid:        "Request path size too large or too small",
	StatusUnexpectedAttribute:    "Unexpected attribute in request attribute list",
	StatusInvalidMemberID:        "Member ID in request does not exist for class/instance/attribute",
	StatusMemberNotSettable:      "Request was to modify a non-modifiable member",
	StatusDNetGrp2ServerFailure:  "DeviceNet Group 2 only server general failure",
	StatusUnknownModbusError:     "A Modbus to CIP translator received an unknown Modbus error",
}

// Any is the wildcard key in status code tables, matching any service,
// general status, or extended status.
const Any = -1

// StatusTable maps service -> general status -> extended status -> message,
// with Any usable at each level as a fallback.
type StatusTable map[int]map[int]map[int]string

func (t StatusTable) lookup(service int, status int, ext int) (string, bool) {
	svc, ok := t[service]
	if !ok {
		if svc, ok = t[Any]; !ok {
			return "", false
		}
	}
	gen, ok := svc[status]
	if !ok {
		if gen, ok = svc[Any]; !ok {
			return "", false
		}
	}
	msg, ok := gen[ext]
	if !ok {
		msg, ok = gen[Any]
	}
	return msg, ok
}

// StatusMessages resolves the general and extended status messages for a
// response the way the object library formats errors: the extended message
// combines the table entry, any object customisation, and the leftover
// status words and failure data.
func (o *Object) StatusMessages(service uint8, status uint8, extStatus []uint16, extraData any) (string, string) {
	general := GeneralStatusMessages[status]
	if general == "" {
		general = "UNKNOWN"
	}
	if len(extStatus) == 0 {
		return general, ""
	}
	extCode, extExtra := extStatus[0], extStatus[1:]

	var table StatusTable
	if o != nil {
		table = o.StatusCodes
	}
	extMsg, _ := table.lookup(int(service), int(status), int(extCode))
	base := fmt.Sprintf("(0x%04x)", extCode)
	if extMsg != "" {
		base += " " + extMsg
	}

	var custom string
	if o != nil && o.CustomExtStatus != nil {
		custom = o.CustomExtStatus(status, extCode, extExtra, extraData)
	}
	switch {
	case custom != "":
		return general, base + ": " + custom
	case len(extExtra) > 0 || !absentExtra(extraData):
		return general, fmt.Sprintf("%s: ext_status_words=%s, extra_data=%s", base, formatExtWords(extExtra), formatExtra(extraData))
	}
	return general, base
}

func absentExtra(v any) bool {
	if v == nil {
		return true
	}
	b, ok := v.([]byte)
	return ok && len(b) == 0
}

func formatExtWords(words []uint16) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("UINT(%d)", w)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatExtra(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case []byte:
		return fmt.Sprintf("BYTES(% X)", val)
	}
	return fmt.Sprint(v)
}
