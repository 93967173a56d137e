// Package objects declares the standard CIP object library used by the
// client: Identity, Message Router, Port, and the Connection Manager with
// its explicit connection services.
package objects

import (
	"fmt"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// Connection Manager service codes.
const (
	ServiceForwardClose     uint8 = 0x4E
	ServiceUnconnectedSend  uint8 = 0x52
	ServiceForwardOpen      uint8 = 0x54
	ServiceLargeForwardOpen uint8 = 0x5B
)

// TickTime is the priority/tick low nibble: time per tick in milliseconds as
// a power of two from 1ms to 32768ms.
type TickTime uint8

const (
	Tick1ms     TickTime = 0b0000
	Tick2ms     TickTime = 0b0001
	Tick4ms     TickTime = 0b0010
	Tick8ms     TickTime = 0b0011
	Tick16ms    TickTime = 0b0100
	Tick32ms    TickTime = 0b0101
	Tick64ms    TickTime = 0b0110
	Tick128ms   TickTime = 0b0111
	Tick256ms   TickTime = 0b1000
	Tick512ms   TickTime = 0b1001
	Tick1024ms  TickTime = 0b1010
	Tick2048ms  TickTime = 0b1011
	Tick4096ms  TickTime = 0b1100
	Tick8192ms  TickTime = 0b1101
	Tick16384ms TickTime = 0b1110
	Tick32768ms TickTime = 0b1111
)

// Milliseconds returns the tick time in milliseconds.
func (t TickTime) Milliseconds() int { return 1 << uint(t) }

// priorityFlag is bit 4 of the priority/tick byte.
const priorityFlag uint8 = 0b000_1_0000

// PriorityTickTime packs the priority flag and tick time into the
// priority/tick byte.
func PriorityTickTime(tick TickTime, priority bool) uint8 {
	b := uint8(tick)
	if priority {
		b |= priorityFlag
	}
	return b
}

// ConnectionPriority occupies bits 10-11 of the 16-bit network connection
// parameters.
type ConnectionPriority uint16

const (
	PriorityLow       ConnectionPriority = 0b_0000_0000_0000_0000
	PriorityHigh      ConnectionPriority = 0b_0000_0100_0000_0000
	PriorityScheduled ConnectionPriority = 0b_0000_1000_0000_0000
	PriorityUrgent    ConnectionPriority = 0b_0000_1100_0000_0000
)

// ConnectionType occupies bits 13-14 of the 16-bit network connection
// parameters.
type ConnectionType uint16

const (
	TypeNull         ConnectionType = 0b_0000_0000_0000_0000
	TypeMulticast    ConnectionType = 0b_0010_0000_0000_0000
	TypePointToPoint ConnectionType = 0b_0100_0000_0000_0000
)

// TimeoutMultiplier selects the connection timeout multiplier.
type TimeoutMultiplier uint8

const (
	TimeoutX4   TimeoutMultiplier = 0
	TimeoutX8   TimeoutMultiplier = 1
	TimeoutX16  TimeoutMultiplier = 2
	TimeoutX32  TimeoutMultiplier = 3
	TimeoutX64  TimeoutMultiplier = 4
	TimeoutX128 TimeoutMultiplier = 5
	TimeoutX256 TimeoutMultiplier = 6
	TimeoutX512 TimeoutMultiplier = 7
)

// ProductionTrigger occupies bits 4-6 of the transport class trigger byte.
type ProductionTrigger uint8

const (
	TriggerCyclic            ProductionTrigger = 0b_0000_0000
	TriggerChangeOfState     ProductionTrigger = 0b_0001_0000
	TriggerApplicationObject ProductionTrigger = 0b_0010_0000
)

const (
	paramVariableSizeFlag   uint16 = 1 << 9
	paramRedundantOwnerFlag uint16 = 1 << 15
	paramSizeMask           uint16 = 0x01FF

	transportServerFlag uint8 = 1 << 7
)

// NetworkParams packs the 16-bit network connection parameters word: size in
// bits 0..8, variable sizing bit 9, priority bits 10-11, type bits 13-14,
// redundant owner bit 15.
func NetworkParams(size uint16, variable bool, priority ConnectionPriority, connType ConnectionType, redundantOwner bool) uint16 {
	params := uint16(priority) | uint16(connType)
	if variable {
		params |= paramVariableSizeFlag
	}
	if redundantOwner {
		params |= paramRedundantOwnerFlag
	}
	return params | (size & paramSizeMask)
}

// LargeNetworkParams packs the 32-bit parameters word of the large forward
// open: the size occupies the low 16 bits and the flags shift to the upper
// half.
func LargeNetworkParams(size uint16, variable bool, priority ConnectionPriority, connType ConnectionType, redundantOwner bool) uint32 {
	flags := NetworkParams(0, variable, priority, connType, redundantOwner)
	return uint32(flags)<<16 | uint32(size)
}

// TransportClassTrigger packs the transport class trigger byte: class in
// bits 0..3, production trigger bits 4..6, direction bit 7 (set means the
// target initiates production).
func TransportClassTrigger(class uint8, trigger ProductionTrigger, server bool) uint8 {
	b := class&0x0F | uint8(trigger)
	if server {
		b |= transportServerFlag
	}
	return b
}

// Forward Open / Forward Close request and response layouts.
var (
	ForwardOpenRequest = datatypes.MustStruct("ForwardOpenRequest",
		datatypes.Field{Name: "priority_tick_time", Type: datatypes.USINT},
		datatypes.Field{Name: "timeout_ticks", Type: datatypes.USINT},
		datatypes.Field{Name: "o2t_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "timeout_multiplier", Type: datatypes.USINT},
		datatypes.Field{Name: "reserved", Type: datatypes.BytesFixed(3), Reserved: true, Default: []byte{0, 0, 0}},
		datatypes.Field{Name: "o2t_rpi", Type: datatypes.UDINT},
		datatypes.Field{Name: "o2t_connection_params", Type: datatypes.WORD},
		datatypes.Field{Name: "t2o_rpi", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_connection_params", Type: datatypes.WORD},
		datatypes.Field{Name: "transport_type", Type: datatypes.USINT},
		datatypes.Field{Name: "connection_path", Type: epath.PaddedLen},
	)

	LargeForwardOpenRequest = datatypes.MustStruct("LargeForwardOpenRequest",
		datatypes.Field{Name: "priority_tick_time", Type: datatypes.USINT},
		datatypes.Field{Name: "timeout_ticks", Type: datatypes.USINT},
		datatypes.Field{Name: "o2t_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "timeout_multiplier", Type: datatypes.USINT},
		datatypes.Field{Name: "reserved", Type: datatypes.BytesFixed(3), Reserved: true, Default: []byte{0, 0, 0}},
		datatypes.Field{Name: "o2t_rpi", Type: datatypes.UDINT},
		datatypes.Field{Name: "o2t_connection_params", Type: datatypes.DWORD},
		datatypes.Field{Name: "t2o_rpi", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_connection_params", Type: datatypes.DWORD},
		datatypes.Field{Name: "transport_type", Type: datatypes.USINT},
		datatypes.Field{Name: "connection_path", Type: epath.PaddedLen},
	)

	ForwardOpenResponse = datatypes.MustStruct("ForwardOpenResponse",
		datatypes.Field{Name: "o2t_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "o2t_api", Type: datatypes.UDINT},
		datatypes.Field{Name: "t2o_api", Type: datatypes.UDINT},
		datatypes.Field{Name: "application_reply_size", Type: datatypes.USINT, NoInit: true},
		datatypes.Field{Name: "reserved", Type: datatypes.USINT, Reserved: true, Default: 0},
		datatypes.Field{Name: "application_reply", Type: datatypes.Bytes, LenRef: "application_reply_size"},
	)

	ForwardOpenFailedResponse = datatypes.MustStruct("ForwardOpenFailedResponse",
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "remaining_path_size", Type: datatypes.USINT},
		datatypes.Field{Name: "reserved", Type: datatypes.USINT, Reserved: true, Default: 0},
	)

	ForwardCloseRequest = datatypes.MustStruct("ForwardCloseRequest",
		datatypes.Field{Name: "priority_tick_time", Type: datatypes.USINT},
		datatypes.Field{Name: "timeout_ticks", Type: datatypes.USINT},
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "connection_path", Type: epath.PaddedPadLen},
	)

	ForwardCloseResponse = datatypes.MustStruct("ForwardCloseResponse",
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "application_reply_size", Type: datatypes.USINT, NoInit: true},
		datatypes.Field{Name: "reserved", Type: datatypes.USINT, Reserved: true, Default: 0},
		datatypes.Field{Name: "application_reply", Type: datatypes.Bytes, LenRef: "application_reply_size"},
	)

	ForwardCloseFailedResponse = datatypes.MustStruct("ForwardCloseFailedResponse",
		datatypes.Field{Name: "connection_serial", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "originator_serial", Type: datatypes.UDINT},
		datatypes.Field{Name: "remaining_path_size", Type: datatypes.USINT},
		datatypes.Field{Name: "reserved", Type: datatypes.USINT, Reserved: true, Default: 0},
	)

	// UnconnectedSendFailedResponse is the failure body of an Unconnected
	// Send: the router's additional status words and, when the failure
	// happened mid-route, the remaining path size.
	UnconnectedSendFailedResponse = datatypes.MustStruct("UnconnectedSendFailedResponse",
		datatypes.Field{Name: "additional_status", Type: datatypes.CountedArrayOf(datatypes.UINT, datatypes.USINT)},
		datatypes.Field{Name: "remaining_path_size", Type: datatypes.USINT},
	)
)

// Connection Manager extended status codes for general status 0x01
// (connection failure).
const (
	ExtConnectionInUse       = 0x0100
	ExtConnectionMissing     = 0x0107
	ExtInvalidConnectionSize = 0x0109
	ExtConnectionTimeout     = 0x0203
	ExtUnconnectedTimeout    = 0x0204
	ExtPortUnavailable       = 0x0311
	ExtInvalidLinkAddress    = 0x0312
	ExtInvalidSegment        = 0x0315
)

var connFailureExtStatus = map[int]string{
	0x0100: "Connection in use or duplicate forward_open",
	0x0103: "Transport class and trigger combination not supported",
	0x0106: "Connection cannot be established due to another having exclusive ownership of a required resource",
	0x0107: "Target connection not found",
	0x0108: "A network connection parameter not supported by target/router",
	0x0109: "Requested connection size not supported by target/router",
	0x0110: "Requested connection has not configured",
	0x0111: "Requested rpi or timeout value not supported by device",
	0x0113: "Connection Manager out of connections",
	0x0114: "Electronic key mismatch for vendor ID or product code",
	0x0115: "Electronic key mismatch for product type",
	0x0116: "Electronic key mismatch for revision",
	0x0117: "Invalid produced or consumed application path",
	0x0118: "Invalid or inconsistent configuration application path",
	0x0119: "Non-listen only connection not opened",
	0x011A: "Instance of target object is out of connections",
	0x011B: "Target to originator RPI is smaller than the target to originator production inhibit time",
	0x0203: "Target attempted to send message on a connection that has timed out",
	0x0204: "Unconnected request timed out, UCMM did not receive a reply within timeout",
	0x0205: "Unconnected send request parameter invalid",
	0x0206: "Message too large for unconnected_send service",
	0x0207: "Unconnected message received only acknowledgement, but no data response",
	0x0301: "Target or router connection buffer out of memory",
	0x0302: "Producer node cannot allocate sufficient bandwidth for scheduled connection",
	0x0303: "Link consumer has no connection ID filter available",
	0x0304: "Scheduled priority in connection request cannot be met by network",
	0x0305: "Connection schedule signature from originator inconsistent with target",
	0x0306: "Connection schedule signature from originator cannot be validated by target",
	0x0311: "Port segment contains port that is unavailable or does not exist",
	0x0312: "Port segment contains an invalid link address for target network",
	0x0315: "Connection path contains an invalid segment type or value",
	0x0316: "Forward close request path does not match connection that was closed",
	0x0317: "Schedule network segment missing or value is invalid",
	0x0318: "Port segment contains a loopback link address which is unsupported by device",
	0x0319: "Secondary in redundant chassis system is unable to duplicate connection request in primary",
	0x031A: "Request for rack connection refused, one is already established",
	0x031D: "Redundant connection request parameters mismatch",
	0x031E: "No more user configurable link consumer resources available in the producing module",
	0x031F: "Target has no consumers configured for producing application",
	0x0800: "Network link in path to module is offline",
	0x0810: "Target application has no valid data to produce for requested connection",
	0x0811: "Originator application has no valid data to produce for requested connection",
	0x0812: "Node address has changed since the network was scheduled",
	0x0813: "Producer for connection request is not configured for off-subset multicast",
}

// ConnectionManager manages explicit and I/O messaging connection resources
// on the target.
var ConnectionManager = newConnectionManager()

func newConnectionManager() *cip.Object {
	o := cip.MustObject("ConnectionManager", 0x06,
		&cip.Attribute{Name: "open_requests", ID: 1, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "open_format_rejects", ID: 2, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "open_resource_rejects", ID: 3, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "open_other_rejects", ID: 4, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "close_requests", ID: 5, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "close_format_rejects", ID: 6, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "close_other_rejects", ID: 7, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "connection_timeouts", ID: 8, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "cpu_utilization", ID: 11, Type: datatypes.UINT},
		&cip.Attribute{Name: "max_buffer_size", ID: 12, Type: datatypes.UDINT},
		&cip.Attribute{Name: "buffer_size_remaining", ID: 13, Type: datatypes.UDINT},
	)
	o.AddService(ServiceForwardOpen, "forward_open")
	o.AddService(ServiceLargeForwardOpen, "large_forward_open")
	o.AddService(ServiceForwardClose, "forward_close")
	o.AddService(ServiceUnconnectedSend, "unconnected_send")
	o.StatusCodes = cip.StatusTable{
		cip.Any: {
			int(cip.StatusConnectionFailure): connFailureExtStatus,
			int(cip.StatusInvalidAttribute): {
				// ext. status is the index of the error in the segment
				cip.Any: "Error in data segment for forward open request",
			},
		},
	}
	o.CustomExtStatus = func(general uint8, ext uint16, extExtra []uint16, extra any) string {
		if ext == ExtInvalidConnectionSize && len(extExtra) > 0 {
			return fmt.Sprintf("max_supported_size=%d", extExtra[0])
		}
		if general == cip.StatusInvalidAttribute {
			return fmt.Sprintf("DataSegment error at index %d", ext)
		}
		if general == cip.StatusObjectStateConflict {
			return fmt.Sprintf("state=0x%04x", ext)
		}
		return ""
	}
	return o
}

// NewForwardOpen builds a Forward Open request against the Connection
// Manager; params must be a ForwardOpenRequest or LargeForwardOpenRequest
// value (the service code follows the params type).
func NewForwardOpen(params *datatypes.Struct) (*cip.Request, error) {
	service := ServiceForwardOpen
	if params.Type() == LargeForwardOpenRequest {
		service = ServiceLargeForwardOpen
	} else if params.Type() != ForwardOpenRequest {
		return nil, &datatypes.DataError{Msg: fmt.Sprintf("invalid forward open params type %s", params.Type().TypeName())}
	}
	data, err := params.Bytes()
	if err != nil {
		return nil, err
	}
	msg, err := cip.NewLogicalRequest(service, ConnectionManager.ClassCode, 1, -1, data)
	if err != nil {
		return nil, err
	}
	return &cip.Request{
		Message: msg,
		Parser:  &cip.RouterResponseParser{ResponseType: ForwardOpenResponse, FailedType: ForwardOpenFailedResponse},
	}, nil
}

// NewForwardClose builds a Forward Close request; params must be a
// ForwardCloseRequest value.
func NewForwardClose(params *datatypes.Struct) (*cip.Request, error) {
	data, err := params.Bytes()
	if err != nil {
		return nil, err
	}
	msg, err := cip.NewLogicalRequest(ServiceForwardClose, ConnectionManager.ClassCode, 1, -1, data)
	if err != nil {
		return nil, err
	}
	return &cip.Request{
		Message: msg,
		Parser:  &cip.RouterResponseParser{ResponseType: ForwardCloseResponse, FailedType: ForwardCloseFailedResponse},
	}, nil
}
