package enip

// Common Packet Format: the item list carried inside SendRRData and
// SendUnitData payloads, plus the identity and service info items returned
// by the list commands.

import (
	"fmt"

	"github.com/tturner/cipnet/datatypes"
)

// CPF item type ids.
const (
	ItemNullAddress      uint16 = 0x0000
	ItemCIPIdentity      uint16 = 0x000C
	ItemConnectedAddress uint16 = 0x00A1
	ItemConnectedData    uint16 = 0x00B1
	ItemUnconnectedData  uint16 = 0x00B2
	ItemServiceInfo      uint16 = 0x0100
	ItemSockaddrO2T      uint16 = 0x8000
	ItemSockaddrT2O      uint16 = 0x8001
	ItemSequencedAddress uint16 = 0x8002
)

// ItemTypeNames maps CPF item type ids to display names.
var ItemTypeNames = map[uint16]string{
	ItemNullAddress:      "Null Address",
	ItemCIPIdentity:      "CIP Identity",
	ItemConnectedAddress: "Connected Address",
	ItemConnectedData:    "Connected Data",
	ItemUnconnectedData:  "Unconnected Data",
	ItemServiceInfo:      "CIP Communications",
	ItemSockaddrO2T:      "Socket Address Info O->T",
	ItemSockaddrT2O:      "Socket Address Info T->O",
	ItemSequencedAddress: "Sequenced Address",
}

// CPF item layouts.
var (
	NullAddressItem = datatypes.MustStruct("NullAddress",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemNullAddress},
		datatypes.Field{Name: "length", Type: datatypes.UINT, Default: 0},
	)

	ConnectedAddressItem = datatypes.MustStruct("ConnectedAddress",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemConnectedAddress},
		datatypes.Field{Name: "length", Type: datatypes.UINT, Default: 4},
		datatypes.Field{Name: "connection_id", Type: datatypes.UDINT},
	)

	SequencedAddressItem = datatypes.MustStruct("SequencedAddress",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemSequencedAddress},
		datatypes.Field{Name: "length", Type: datatypes.UINT, Default: 8},
		datatypes.Field{Name: "connection_id", Type: datatypes.UDINT},
		datatypes.Field{Name: "sequence_num", Type: datatypes.UDINT},
	)

	UnconnectedDataItem = datatypes.MustStruct("UnconnectedData",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemUnconnectedData},
		datatypes.Field{Name: "length", Type: datatypes.UINT, NoInit: true},
		datatypes.Field{Name: "data", Type: datatypes.Bytes, LenRef: "length"},
	)

	ConnectedDataItem = datatypes.MustStruct("ConnectedData",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemConnectedData},
		datatypes.Field{Name: "length", Type: datatypes.UINT, NoInit: true},
		datatypes.Field{Name: "data", Type: datatypes.Bytes, LenRef: "length"},
	)

	// Sockaddr is the embedded socket address: big-endian family, port, and
	// IPv4 address with eight zero bytes of padding.
	Sockaddr = datatypes.MustStruct("Sockaddr",
		datatypes.Field{Name: "sin_family", Type: datatypes.INTBE},
		datatypes.Field{Name: "sin_port", Type: datatypes.UINTBE},
		datatypes.Field{Name: "sin_addr", Type: datatypes.UDINTBE},
		datatypes.Field{Name: "sin_zero", Type: datatypes.BytesFixed(8), Default: make([]byte, 8)},
	)

	// CIPIdentityItem is the identity item returned by ListIdentity; its
	// length field sizes everything following it.
	CIPIdentityItem = datatypes.MustStruct("CIPIdentity",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemCIPIdentity},
		datatypes.Field{Name: "length", Type: datatypes.UINT, SizeRef: true},
		datatypes.Field{Name: "encap_protocol_version", Type: datatypes.UINT},
		datatypes.Field{Name: "socket_address", Type: Sockaddr},
		datatypes.Field{Name: "vendor_id", Type: datatypes.UINT},
		datatypes.Field{Name: "device_type", Type: datatypes.UINT},
		datatypes.Field{Name: "product_code", Type: datatypes.UINT},
		datatypes.Field{Name: "revision", Type: datatypes.ArrayOf(datatypes.USINT, 2)},
		datatypes.Field{Name: "status", Type: datatypes.WORD},
		datatypes.Field{Name: "serial_number", Type: datatypes.UDINT},
		datatypes.Field{Name: "product_name", Type: datatypes.ShortString},
		datatypes.Field{Name: "state", Type: datatypes.USINT},
	)

	// ServiceInfoItem is the communications service item returned by
	// ListServices.
	ServiceInfoItem = datatypes.MustStruct("ServiceInfo",
		datatypes.Field{Name: "type_id", Type: datatypes.UINT, Default: ItemServiceInfo},
		datatypes.Field{Name: "length", Type: datatypes.UINT, SizeRef: true},
		datatypes.Field{Name: "protocol_version", Type: datatypes.UINT, Default: 1},
		datatypes.Field{Name: "capability_flags", Type: datatypes.UINT, Default: 0x0020},
		datatypes.Field{Name: "service_name", Type: datatypes.BytesFixed(16), Default: []byte("Communications\x00\x00")},
	)
)

var cpfItemTypes = map[uint16]*datatypes.StructType{
	ItemNullAddress:      NullAddressItem,
	ItemCIPIdentity:      CIPIdentityItem,
	ItemConnectedAddress: ConnectedAddressItem,
	ItemConnectedData:    ConnectedDataItem,
	ItemUnconnectedData:  UnconnectedDataItem,
	ItemServiceInfo:      ServiceInfoItem,
	ItemSequencedAddress: SequencedAddressItem,
}

// DecodeCPFItem decodes one item, dispatching on the peeked type id.
func DecodeCPFItem(r *datatypes.Reader) (*datatypes.Struct, error) {
	peek := r.Peek(2)
	if len(peek) == 0 {
		return nil, datatypes.ErrBufferEmpty
	}
	if len(peek) < 2 {
		return nil, &datatypes.DataError{Msg: "truncated CPF item type id"}
	}
	typeID := uint16(peek[0]) | uint16(peek[1])<<8
	typ, ok := cpfItemTypes[typeID]
	if !ok {
		return nil, &datatypes.DataError{Msg: fmt.Sprintf("unsupported CPF item type id: %#04x", typeID)}
	}
	v, err := typ.Decode(r)
	if err != nil {
		return nil, err
	}
	return v.(*datatypes.Struct), nil
}

// EncodeCPF serialises a common packet format: UINT item count then each
// item.
func EncodeCPF(items ...*datatypes.Struct) ([]byte, error) {
	out, err := datatypes.UINT.Encode(len(items))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		enc, err := item.Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// DecodeCPF reads a common packet format item list.
func DecodeCPF(r *datatypes.Reader) ([]*datatypes.Struct, error) {
	n, err := datatypes.UINT.Decode(r)
	if err != nil {
		return nil, err
	}
	count := int(n.(uint16))
	items := make([]*datatypes.Struct, 0, count)
	for i := 0; i < count; i++ {
		item, err := DecodeCPFItem(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
