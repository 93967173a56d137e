package objects

// Message Router object (class 0x02): routes service calls to objects within
// the device.

import (
	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// ServiceSymbolicTranslation translates a symbolic segment path to its
// logical equivalent.
const ServiceSymbolicTranslation uint8 = 0x4B

// MessageRouterInstanceAttrs is the Get_Attributes_All layout of a message
// router instance.
var MessageRouterInstanceAttrs = datatypes.MustStruct("MessageRouterInstanceAttrs",
	datatypes.Field{Name: "object_list", Type: datatypes.CountedArrayOf(datatypes.UINT, datatypes.UINT)},
	datatypes.Field{Name: "num_available", Type: datatypes.UINT},
	datatypes.Field{Name: "num_active", Type: datatypes.UINT, NoInit: true},
	datatypes.Field{Name: "active_connections", Type: datatypes.DynamicArrayOf(datatypes.UINT), LenRef: "num_active"},
)

// MessageRouter handles routing of service calls within the device.
var MessageRouter = newMessageRouter()

func newMessageRouter() *cip.Object {
	o := cip.MustObject("MessageRouter", 0x02,
		&cip.Attribute{Name: "object_list", ID: 1, Type: datatypes.CountedArrayOf(datatypes.UINT, datatypes.UINT), GetAllInstance: true},
		&cip.Attribute{Name: "num_available", ID: 2, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "num_active", ID: 3, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "active_connections", ID: 4, Type: datatypes.DynamicArrayOf(datatypes.UINT)},
	)
	o.InstanceAll = MessageRouterInstanceAttrs
	o.AddService(ServiceSymbolicTranslation, "symbolic_translation")
	o.StatusCodes = cip.StatusTable{
		int(ServiceSymbolicTranslation): {
			int(cip.StatusInvalidParameter): {
				0x00: "Symbolic Path unknown",
				0x01: "Symbolic Path destination not assigned",
				0x02: "Symbolic Path segment error",
			},
		},
	}
	return o
}

// NewSymbolicTranslation builds a Symbolic_Translation request resolving a
// symbolic segment path to its logical equivalent.
func NewSymbolicTranslation(symbol epath.Path) (*cip.Request, error) {
	data, err := epath.Packed.Encode(symbol)
	if err != nil {
		return nil, err
	}
	msg, err := cip.NewLogicalRequest(ServiceSymbolicTranslation, MessageRouter.ClassCode, 0, -1, data)
	if err != nil {
		return nil, err
	}
	return &cip.Request{
		Message: msg,
		Parser:  &cip.RouterResponseParser{ResponseType: epath.Packed, StatusObject: MessageRouter},
	}, nil
}
