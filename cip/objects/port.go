package objects

// Port object (class 0xF4): one instance per CIP port on the device.

import (
	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// PortInstanceInfo pairs a port's type and number, used by the class-level
// port_instance_info array.
var PortInstanceInfo = datatypes.MustStruct("PortInstanceInfo",
	datatypes.Field{Name: "port_type", Type: datatypes.UINT},
	datatypes.Field{Name: "port_number", Type: datatypes.UINT},
)

// Port types reported by the port_type attribute.
const (
	PortTypeEndpoint         uint16 = 0
	PortTypeBackplane        uint16 = 1
	PortTypeControlNet       uint16 = 2
	PortTypeControlNetRed    uint16 = 3
	PortTypeEtherNetIP       uint16 = 4
	PortTypeDeviceNet        uint16 = 5
	PortTypeRIOScanner       uint16 = 6
	PortTypeRIOAdapter       uint16 = 7
	PortTypeVirtualBackplane uint16 = 100
	PortTypeDataHighway      uint16 = 101
	PortTypeDHRS485          uint16 = 102
	PortTypeUSB              uint16 = 107
	PortTypeCompoNet         uint16 = 200
	PortTypeModbusTCP        uint16 = 201
	PortTypeModbusSL         uint16 = 202
	PortTypeUnconfigured     uint16 = 65535
)

// Port represents the CIP ports on the device.
var Port = newPort()

func newPort() *cip.Object {
	return cip.MustObject("Port", 0xF4,
		// class attributes
		&cip.Attribute{Name: "entry_port", ID: 8, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
		&cip.Attribute{Name: "port_instance_info", ID: 9, Type: datatypes.DynamicArrayOf(PortInstanceInfo), ClassAttr: true, GetAllClass: true},
		// instance attributes
		&cip.Attribute{Name: "port_type", ID: 1, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "port_number", ID: 2, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "link_object", ID: 3, Type: epath.PaddedPadLen, GetAllInstance: true},
		&cip.Attribute{Name: "port_name", ID: 4, Type: datatypes.ShortString, GetAllInstance: true},
		&cip.Attribute{Name: "port_type_name", ID: 5, Type: datatypes.ShortString},
		&cip.Attribute{Name: "port_description", ID: 6, Type: datatypes.ShortString},
		&cip.Attribute{Name: "node_address", ID: 7, Type: epath.Padded, GetAllInstance: true},
		&cip.Attribute{Name: "port_node_range", ID: 8, Type: datatypes.ArrayOf(datatypes.UINT, 2)},
		&cip.Attribute{Name: "port_key", ID: 9, Type: epath.Packed},
	)
}
