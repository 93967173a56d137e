package objects

// Identity object (class 0x01): general identity and status information
// about a device.

import (
	"fmt"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
)

// Revision is the major/minor revision pair carried by identity data.
var Revision = datatypes.MustStruct("Revision",
	datatypes.Field{Name: "major", Type: datatypes.USINT},
	datatypes.Field{Name: "minor", Type: datatypes.USINT},
)

// FormatRevision renders a Revision value as "major.minor".
func FormatRevision(rev *datatypes.Struct) string {
	return fmt.Sprintf("%d.%03d", rev.Uint("major"), rev.Uint("minor"))
}

// IdentityStatus decomposes the identity status WORD.
type IdentityStatus struct {
	Owned                   bool
	Configured              bool
	ExtendedStatus          [4]bool
	MinorRecoverableFault   bool
	MinorUnrecoverableFault bool
	MajorRecoverableFault   bool
	MajorUnrecoverableFault bool
}

// ParseIdentityStatus expands a status word into its flag bits.
func ParseIdentityStatus(status uint16) IdentityStatus {
	bits, _ := datatypes.WORD.ToBits(status)
	return IdentityStatus{
		Owned:                   bits[0],
		Configured:              bits[2],
		ExtendedStatus:          [4]bool{bits[4], bits[5], bits[6], bits[7]},
		MinorRecoverableFault:   bits[8],
		MinorUnrecoverableFault: bits[9],
		MajorRecoverableFault:   bits[10],
		MajorUnrecoverableFault: bits[11],
	}
}

// Device states reported by the state attribute.
const (
	StateNonexistent             uint8 = 0
	StateDeviceSelfTesting       uint8 = 1
	StateStandby                 uint8 = 2
	StateOperational             uint8 = 3
	StateMajorRecoverableFault   uint8 = 4
	StateMajorUnrecoverableFault uint8 = 5
	StateDefaultGetAttributesAll uint8 = 255
)

// IdentityInstanceAttrs is the Get_Attributes_All layout of an identity
// instance.
var IdentityInstanceAttrs = datatypes.MustStruct("IdentityInstanceAttrs",
	datatypes.Field{Name: "vendor_id", Type: datatypes.UINT},
	datatypes.Field{Name: "device_type", Type: datatypes.UINT},
	datatypes.Field{Name: "product_code", Type: datatypes.UINT},
	datatypes.Field{Name: "revision", Type: Revision},
	datatypes.Field{Name: "status", Type: datatypes.WORD},
	datatypes.Field{Name: "serial_number", Type: datatypes.UDINT, Fmt: datatypes.HexFormat(datatypes.UDINT)},
	datatypes.Field{Name: "product_name", Type: datatypes.ShortString},
)

// Identity provides general identity and status information about a device.
var Identity = newIdentity()

func newIdentity() *cip.Object {
	o := cip.MustObject("Identity", 0x01,
		&cip.Attribute{Name: "vendor_id", ID: 1, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "device_type", ID: 2, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "product_code", ID: 3, Type: datatypes.UINT, GetAllInstance: true},
		&cip.Attribute{Name: "revision", ID: 4, Type: Revision, GetAllInstance: true},
		&cip.Attribute{Name: "status", ID: 5, Type: datatypes.WORD, GetAllInstance: true},
		&cip.Attribute{Name: "serial_number", ID: 6, Type: datatypes.UDINT, GetAllInstance: true},
		&cip.Attribute{Name: "product_name", ID: 7, Type: datatypes.ShortString, GetAllInstance: true},
		&cip.Attribute{Name: "state", ID: 8, Type: datatypes.USINT},
	)
	o.InstanceAll = IdentityInstanceAttrs
	return o
}
