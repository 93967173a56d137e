// Package epath implements CIP path (EPATH) segments and the packed/padded
// path encodings used to address objects, route across ports, and name
// symbols.
package epath

import (
	"bytes"
	"fmt"
	"net"
	"strconv"

	"github.com/tturner/cipnet/datatypes"
)

// Segment class bits (top three bits of the leading byte).
const (
	SegmentPort                uint8 = 0b000_00000
	SegmentLogical             uint8 = 0b001_00000
	SegmentNetwork             uint8 = 0b010_00000
	SegmentSymbolic            uint8 = 0b011_00000
	SegmentData                uint8 = 0b100_00000
	SegmentConstructedDataType uint8 = 0b101_00000
	SegmentElementaryDataType  uint8 = 0b110_00000
	SegmentReserved            uint8 = 0b111_00000
	segmentTypeMask            uint8 = 0b111_00000
)

// Segment is one element of an EPATH.
type Segment interface {
	// SegmentClass returns the segment's class bits.
	SegmentClass() uint8
	// Encode serialises the segment; padded selects word-aligned emission
	// for multi-byte logical values.
	Encode(padded bool) ([]byte, error)
}

// SegmentsEqual compares two segments over their canonical packed encoding,
// so aliases of the same address compare equal.
func SegmentsEqual(a, b Segment) bool {
	ab, aerr := a.Encode(false)
	bb, berr := b.Encode(false)
	return aerr == nil && berr == nil && bytes.Equal(ab, bb)
}

func dataErrf(format string, args ...any) error {
	return &datatypes.DataError{Msg: fmt.Sprintf(format, args...)}
}

func dataErr(err error, format string, args ...any) error {
	if err == datatypes.ErrBufferEmpty {
		return err
	}
	return &datatypes.DataError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// minimalUint encodes v as the smallest of USINT, UINT, UDINT that fits.
func minimalUint(v uint64) ([]byte, error) {
	switch {
	case v <= 0xFF:
		return datatypes.USINT.Encode(v)
	case v <= 0xFFFF:
		return datatypes.UINT.Encode(v)
	case v <= 0xFFFFFFFF:
		return datatypes.UDINT.Encode(v)
	}
	return nil, dataErrf("value %d requires too many bytes for a path segment", v)
}

// --- Port segment ---

// Port aliases accepted wherever a port id is expected.
var portAliases = map[string]uint16{
	"backplane": 1,
	"bp":        1,
	"enet":      2,
	"a":         2,
	"b":         3,
	"a1":        3,
	"a2":        4,
}

const (
	portExLinkFlag uint8 = 0b000_1_0000
	portIDMask     uint8 = 0b000_0_1111
)

// PortSegment routes across one CIP port to a link address. Construction
// canonicalises the port (alias or number, extended when > 14) and the link
// (numeric, dotted IP text, or raw bytes), so equality over encoded form
// holds across aliases.
type PortSegment struct {
	port   uint8  // low nibble value, 15 means extended
	exPort uint16 // extended port number, when port == 15
	exLink bool
	link   []byte
}

// NewPortSegment builds a port segment. port may be an integer, a numeric
// string, or an alias ("backplane", "enet", ...). link may be an integer, a
// numeric string, an IPv4/IPv6 address string, or raw bytes.
func NewPortSegment(port any, link any) (*PortSegment, error) {
	s := &PortSegment{}
	portNum, err := resolvePort(port)
	if err != nil {
		return nil, err
	}
	// port 15 is the extended-port marker, so it always takes the extended
	// encoding even though the value fits in the nibble
	if portNum >= uint16(portIDMask) {
		s.port = portIDMask
		s.exPort = portNum
	} else {
		s.port = uint8(portNum)
	}
	if s.link, err = resolveLink(link); err != nil {
		return nil, err
	}
	if len(s.link) == 0 {
		return nil, dataErrf("invalid link: empty")
	}
	if len(s.link) > 1 {
		s.exLink = true
	}
	return s, nil
}

func resolvePort(port any) (uint16, error) {
	switch p := port.(type) {
	case string:
		if n, err := strconv.ParseUint(p, 10, 16); err == nil {
			return uint16(n), nil
		}
		if n, ok := portAliases[p]; ok {
			return n, nil
		}
		return 0, dataErrf("invalid port: %q", p)
	default:
		n, err := datatypes.UINT.ToUint64(port)
		if err != nil {
			return 0, dataErr(err, "invalid port: %v", port)
		}
		return uint16(n), nil
	}
}

func resolveLink(link any) ([]byte, error) {
	switch l := link.(type) {
	case []byte:
		return l, nil
	case string:
		if n, err := strconv.ParseUint(l, 10, 32); err == nil {
			return minimalUint(n)
		}
		if ip := net.ParseIP(l); ip != nil {
			return []byte(l), nil
		}
		return nil, dataErrf("cannot convert link address %q to ip address", l)
	default:
		n, err := datatypes.UDINT.ToUint64(link)
		if err != nil {
			return nil, dataErr(err, "invalid link: %v", link)
		}
		return minimalUint(n)
	}
}

func (s *PortSegment) SegmentClass() uint8 { return SegmentPort }

// Port returns the canonical port number.
func (s *PortSegment) Port() uint16 {
	if s.port == portIDMask && s.exPort != 0 {
		return s.exPort
	}
	return uint16(s.port)
}

// Link returns the canonical link address bytes.
func (s *PortSegment) Link() []byte { return s.link }

func (s *PortSegment) Encode(padded bool) ([]byte, error) {
	head := SegmentPort | s.port
	if s.exLink {
		head |= portExLinkFlag
	}
	out := []byte{head}
	if s.port == portIDMask {
		ex, err := datatypes.UINT.Encode(s.exPort)
		if err != nil {
			return nil, err
		}
		out = append(out, ex...)
	}
	if s.exLink {
		out = append(out, uint8(len(s.link)))
	}
	out = append(out, s.link...)
	if len(out)%2 != 0 {
		out = append(out, 0x00)
	}
	return out, nil
}

func (s *PortSegment) String() string {
	return fmt.Sprintf("PortSegment(port=%d, link=%v)", s.Port(), s.link)
}

func decodePortSegment(r *datatypes.Reader) (*PortSegment, error) {
	head, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	s := &PortSegment{
		port:   head & portIDMask,
		exLink: head&portExLinkFlag != 0,
	}
	if s.port == portIDMask {
		v, err := datatypes.UINT.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding extended port id")
		}
		s.exPort = v.(uint16)
	}
	if s.exLink {
		size, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding link address size")
		}
		if size == 0 {
			return nil, dataErrf("extended link address size is 0")
		}
		link, err := r.Read(int(size))
		if err != nil {
			return nil, dataErr(err, "error decoding extended link address")
		}
		s.link = append([]byte(nil), link...)
		if size%2 != 0 {
			if _, err := r.ReadByte(); err != nil {
				return nil, dataErrf("expected a pad byte following link address")
			}
		}
	} else {
		b, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding link address")
		}
		s.link = []byte{b}
	}
	return s, nil
}

// --- Logical segment ---

// LogicalKind is the logical segment type subfield.
type LogicalKind uint8

const (
	LogicalClassID         LogicalKind = 0b000_000_00
	LogicalInstanceID      LogicalKind = 0b000_001_00
	LogicalMemberID        LogicalKind = 0b000_010_00
	LogicalConnectionPoint LogicalKind = 0b000_011_00
	LogicalAttributeID     LogicalKind = 0b000_100_00
	LogicalSpecial         LogicalKind = 0b000_101_00
	LogicalServiceID       LogicalKind = 0b000_110_00
	logicalKindReserved    LogicalKind = 0b000_111_00
	logicalKindMask        uint8       = 0b000_111_00
)

const (
	logicalFormat8Bit     uint8 = 0b00
	logicalFormat16Bit    uint8 = 0b01
	logicalFormat32Bit    uint8 = 0b10
	logicalFormatReserved uint8 = 0b11
	logicalFormatMask     uint8 = 0b11
)

// LogicalSegment addresses a class, instance, member, connection point,
// attribute, or service by id.
type LogicalSegment struct {
	kind   LogicalKind
	value  []byte
	format uint8
}

// NewLogicalSegment builds a logical segment from an integer id or raw value
// bytes. 32-bit values are only valid for instance ids and connection
// points; service ids are always 8-bit.
func NewLogicalSegment(kind LogicalKind, value any) (*LogicalSegment, error) {
	s := &LogicalSegment{kind: kind}
	switch v := value.(type) {
	case []byte:
		s.value = v
	default:
		n, err := datatypes.UDINT.ToUint64(value)
		if err != nil {
			return nil, dataErr(err, "invalid logical value: %v", value)
		}
		if s.value, err = minimalUint(n); err != nil {
			return nil, err
		}
	}
	switch kind {
	case LogicalServiceID:
		if len(s.value) != 1 {
			return nil, dataErrf("invalid logical value for service id, expected 1 byte, got %d", len(s.value))
		}
		s.format = logicalFormat8Bit
	case LogicalSpecial:
		return nil, dataErrf("logical segments with special type are not supported")
	default:
		switch len(s.value) {
		case 1:
			s.format = logicalFormat8Bit
		case 2:
			s.format = logicalFormat16Bit
		case 4:
			if kind != LogicalInstanceID && kind != LogicalConnectionPoint {
				return nil, dataErrf("32-bit logical value only valid for instance id and connection point")
			}
			s.format = logicalFormat32Bit
		default:
			return nil, dataErrf("logical value too large")
		}
	}
	return s, nil
}

func (s *LogicalSegment) SegmentClass() uint8 { return SegmentLogical }

// Kind returns the logical type subfield.
func (s *LogicalSegment) Kind() LogicalKind { return s.kind }

// Value returns the id as an integer.
func (s *LogicalSegment) Value() uint32 {
	var v uint32
	for i := len(s.value) - 1; i >= 0; i-- {
		v = v<<8 | uint32(s.value[i])
	}
	return v
}

func (s *LogicalSegment) Encode(padded bool) ([]byte, error) {
	out := []byte{SegmentLogical | uint8(s.kind) | s.format}
	if padded && (s.format == logicalFormat16Bit || s.format == logicalFormat32Bit) {
		out = append(out, 0x00)
	}
	return append(out, s.value...), nil
}

func (s *LogicalSegment) String() string {
	return fmt.Sprintf("LogicalSegment(kind=%#02x, value=%d)", uint8(s.kind), s.Value())
}

func decodeLogicalSegment(r *datatypes.Reader, padded bool) (*LogicalSegment, error) {
	head, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	kind := LogicalKind(head & logicalKindMask)
	format := head & logicalFormatMask
	if kind == logicalKindReserved {
		return nil, dataErrf("unsupported logical type: reserved")
	}
	if format == logicalFormatReserved {
		return nil, dataErrf("unsupported logical format: reserved")
	}
	if format == logicalFormat32Bit && kind != LogicalInstanceID && kind != LogicalConnectionPoint {
		return nil, dataErrf("32-bit logical format on unsupported logical type")
	}
	if kind == LogicalSpecial {
		// electronic keys are not supported; consume the 6 key bytes
		if _, err := r.Read(6); err != nil {
			return nil, dataErr(err, "error decoding electronic key")
		}
		return nil, dataErrf("logical segments with special type are not supported")
	}
	s := &LogicalSegment{kind: kind, format: format}
	size := 1
	if kind != LogicalServiceID {
		switch format {
		case logicalFormat16Bit:
			size = 2
		case logicalFormat32Bit:
			size = 4
		}
		if padded && size > 1 {
			if _, err := r.ReadByte(); err != nil {
				return nil, dataErr(err, "error decoding logical pad byte")
			}
		}
	}
	value, err := r.Read(size)
	if err != nil {
		return nil, dataErr(err, "error decoding logical value")
	}
	s.value = append([]byte(nil), value...)
	return s, nil
}

// --- Network segment ---

// NetworkKind is the network segment subtype.
type NetworkKind uint8

const (
	NetworkScheduled             NetworkKind = 0b000_00001
	NetworkFixedTag              NetworkKind = 0b000_00010
	NetworkProductionInhibitTime NetworkKind = 0b000_00011
	NetworkSafety                NetworkKind = 0b000_10000
	NetworkExtended              NetworkKind = 0b000_11111
	networkKindMask              uint8       = 0b000_11111
	networkDataArrayMask         uint8       = 0b000_10000
)

// NetworkSegment carries link-layer parameters. Data-array subtypes (safety,
// extended) hold a counted byte payload; the extended subtype reserves the
// first two data bytes as its extended-type selector.
type NetworkSegment struct {
	kind NetworkKind
	data []byte
}

// NewNetworkSegment builds a network segment; non-array subtypes require
// exactly one data byte.
func NewNetworkSegment(kind NetworkKind, data []byte) (*NetworkSegment, error) {
	switch kind {
	case NetworkScheduled, NetworkFixedTag, NetworkProductionInhibitTime, NetworkSafety, NetworkExtended:
	default:
		return nil, dataErrf("network segment subtype unsupported: %#02x", uint8(kind))
	}
	if uint8(kind)&networkDataArrayMask == 0 && len(data) != 1 {
		return nil, dataErrf("network segment subtype %#02x requires exactly one byte of data", uint8(kind))
	}
	return &NetworkSegment{kind: kind, data: data}, nil
}

func (s *NetworkSegment) SegmentClass() uint8 { return SegmentNetwork }

// Kind returns the network subtype.
func (s *NetworkSegment) Kind() NetworkKind { return s.kind }

// Data returns the segment payload.
func (s *NetworkSegment) Data() []byte { return s.data }

func (s *NetworkSegment) Encode(padded bool) ([]byte, error) {
	out := []byte{SegmentNetwork | uint8(s.kind)}
	if uint8(s.kind)&networkDataArrayMask != 0 {
		n := len(s.data)
		if s.kind == NetworkExtended {
			n -= 2
		}
		if n < 0 || n > 0xFF {
			return nil, dataErrf("invalid network segment data length %d", len(s.data))
		}
		out = append(out, uint8(n))
	}
	return append(out, s.data...), nil
}

func (s *NetworkSegment) String() string {
	return fmt.Sprintf("NetworkSegment(kind=%#02x, data=% X)", uint8(s.kind), s.data)
}

func decodeNetworkSegment(r *datatypes.Reader) (*NetworkSegment, error) {
	head, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	kind := NetworkKind(head & networkKindMask)
	switch kind {
	case NetworkScheduled, NetworkFixedTag, NetworkProductionInhibitTime, NetworkSafety, NetworkExtended:
	default:
		return nil, dataErrf("network segment subtype unsupported: %#02x", uint8(kind))
	}
	var data []byte
	if uint8(kind)&networkDataArrayMask != 0 {
		n, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding network segment length")
		}
		size := int(n)
		if kind == NetworkExtended {
			size += 2
		}
		raw, err := r.Read(size)
		if err != nil {
			return nil, dataErr(err, "error decoding network segment data")
		}
		data = append([]byte(nil), raw...)
	} else {
		b, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding network segment data")
		}
		data = []byte{b}
	}
	return &NetworkSegment{kind: kind, data: data}, nil
}
