package cip

// CIP object declaration framework: attribute and service descriptors, the
// auto-generated get-all structs, and the standard services every object
// supports.

import (
	"fmt"
	"sync"

	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// Attribute describes one attribute of a CIP object.
type Attribute struct {
	// ID is the attribute id.
	ID int
	// Type is the attribute's wire type.
	Type datatypes.Type
	// ClassAttr marks a class-level attribute.
	ClassAttr bool
	// GetAllClass / GetAllInstance include the attribute in the generated
	// class / instance get-all structs.
	GetAllClass    bool
	GetAllInstance bool

	// set by NewObject
	Name   string
	Object *Object
}

func (a *Attribute) String() string {
	if a.Object != nil {
		return a.Object.Name + "." + a.Name
	}
	return a.Name
}

// ServiceDesc describes one service of a CIP object.
type ServiceDesc struct {
	ID   uint8
	Name string
}

// Object is a CIP object class declaration.
type Object struct {
	Name      string
	ClassCode uint16

	// StatusCodes holds per-service/status/extended-status messages.
	StatusCodes StatusTable
	// CustomExtStatus further customises the extended status message;
	// return "" to keep the default formatting.
	CustomExtStatus func(generalStatus uint8, extStatus uint16, extExtra []uint16, extraData any) string

	attrs      []*Attribute
	attrByName map[string]*Attribute
	services   map[uint8]*ServiceDesc

	instanceStruct *datatypes.StructType
	classStruct    *datatypes.StructType
	// InstanceAll overrides the generated instance get-all struct.
	InstanceAll *datatypes.StructType
	// ClassAll overrides the generated class get-all struct.
	ClassAll *datatypes.StructType
}

// Standard class attribute declarations shared by every object (ids 1..7).
func standardClassAttrs() []*Attribute {
	return []*Attribute{
		{Name: "object_revision", ID: 1, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
		{Name: "max_instance", ID: 2, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
		{Name: "num_instances", ID: 3, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
		{Name: "optional_attrs_list", ID: 4, Type: datatypes.CountedArrayOf(datatypes.UINT, datatypes.UINT), ClassAttr: true, GetAllClass: true},
		{Name: "optional_service_list", ID: 5, Type: datatypes.CountedArrayOf(datatypes.UINT, datatypes.UINT), ClassAttr: true, GetAllClass: true},
		{Name: "max_class_attr", ID: 6, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
		{Name: "max_instance_attr", ID: 7, Type: datatypes.UINT, ClassAttr: true, GetAllClass: true},
	}
}

// NewObject declares a CIP object. The standard class attributes are
// inherited; attrs listed with a standard name override the inherited
// declaration while keeping its position. The object is registered by class
// code so responses can resolve status tables.
func NewObject(name string, classCode uint16, attrs ...*Attribute) (*Object, error) {
	o := &Object{
		Name:       name,
		ClassCode:  classCode,
		attrByName: map[string]*Attribute{},
		services:   map[uint8]*ServiceDesc{},
	}
	inherited := standardClassAttrs()
	overrides := map[string]*Attribute{}
	for _, a := range attrs {
		if a.Name == "" {
			return nil, requestErrf("object %s: attribute %d has no name", name, a.ID)
		}
		overrides[a.Name] = a
	}
	for _, a := range inherited {
		if ov, ok := overrides[a.Name]; ok {
			a = ov
			delete(overrides, a.Name)
		}
		o.addAttr(a)
	}
	for _, a := range attrs {
		if _, stillPending := overrides[a.Name]; stillPending {
			o.addAttr(a)
		}
	}
	if err := o.buildGetAllStructs(); err != nil {
		return nil, err
	}
	o.AddService(ServiceGetAttributesAll, "get_attributes_all")
	o.AddService(ServiceGetAttributeSingle, "get_attribute_single")
	o.AddService(ServiceGetAttributeList, "get_attribute_list")
	registerObject(o)
	return o, nil
}

// MustObject is NewObject that panics on a declaration error.
func MustObject(name string, classCode uint16, attrs ...*Attribute) *Object {
	o, err := NewObject(name, classCode, attrs...)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Object) addAttr(a *Attribute) {
	a.Object = o
	o.attrs = append(o.attrs, a)
	o.attrByName[a.Name] = a
}

func (o *Object) buildGetAllStructs() error {
	var clsFields, insFields []datatypes.Field
	for _, a := range o.attrs {
		f := datatypes.Field{Name: a.Name, Type: a.Type}
		if a.ClassAttr && a.GetAllClass {
			clsFields = append(clsFields, f)
		}
		if !a.ClassAttr && a.GetAllInstance {
			insFields = append(insFields, f)
		}
	}
	var err error
	if o.classStruct, err = datatypes.NewStructType(o.Name+"ClassAttrs", clsFields...); err != nil {
		return err
	}
	if o.instanceStruct, err = datatypes.NewStructType(o.Name+"InstanceAttrs", insFields...); err != nil {
		return err
	}
	return nil
}

// Attr returns the named attribute descriptor.
func (o *Object) Attr(name string) *Attribute { return o.attrByName[name] }

// Attrs returns the attribute descriptors in declaration order.
func (o *Object) Attrs() []*Attribute { return o.attrs }

// AddService registers a service descriptor by code.
func (o *Object) AddService(id uint8, name string) {
	o.services[id] = &ServiceDesc{ID: id, Name: name}
}

// Service returns the descriptor for a service code, nil if undeclared.
func (o *Object) Service(id uint8) *ServiceDesc { return o.services[id] }

// InstanceStruct returns the instance get-all struct.
func (o *Object) InstanceStruct() *datatypes.StructType {
	if o.InstanceAll != nil {
		return o.InstanceAll
	}
	return o.instanceStruct
}

// ClassStruct returns the class get-all struct.
func (o *Object) ClassStruct() *datatypes.StructType {
	if o.ClassAll != nil {
		return o.ClassAll
	}
	return o.classStruct
}

func (o *Object) String() string { return o.Name }

// --- object registry ---

var (
	registryMu sync.RWMutex
	registry   = map[uint16]*Object{}
)

func registerObject(o *Object) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[o.ClassCode] = o
}

// ObjectByClassCode returns the registered object for a class code, nil if
// unknown.
func ObjectByClassCode(code uint16) *Object {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[code]
}

// ObjectFromPath returns the registered object for the first class-id
// logical segment in path, nil if none matches.
func ObjectFromPath(path epath.Path) *Object {
	for _, seg := range path {
		if ls, ok := seg.(*epath.LogicalSegment); ok && ls.Kind() == epath.LogicalClassID {
			return ObjectByClassCode(uint16(ls.Value()))
		}
	}
	return nil
}

// --- standard services ---

// GetAttributesAll builds a Get_Attributes_All request; instance 0 targets
// the class and decodes the class get-all struct.
func (o *Object) GetAttributesAll(instance uint32) (*Request, error) {
	respType := datatypes.Type(o.InstanceStruct())
	if instance == 0 {
		respType = o.ClassStruct()
	}
	msg, err := NewLogicalRequest(ServiceGetAttributesAll, o.ClassCode, instance, -1, nil)
	if err != nil {
		return nil, err
	}
	return &Request{
		Message: msg,
		Parser:  &RouterResponseParser{ResponseType: respType},
	}, nil
}

// GetAttributeSingle builds a Get_Attribute_Single request for one
// attribute.
func (o *Object) GetAttributeSingle(attr *Attribute, instance uint32) (*Request, error) {
	if attr.Object != o {
		return nil, requestErrf("attribute %s does not belong to object %s", attr, o.Name)
	}
	msg, err := NewLogicalRequest(ServiceGetAttributeSingle, o.ClassCode, instance, attr.ID, nil)
	if err != nil {
		return nil, err
	}
	return &Request{
		Message: msg,
		Parser:  &RouterResponseParser{ResponseType: attr.Type},
	}, nil
}

// GetAttributeList builds a Get_Attribute_List request. The response decodes
// into an ad-hoc struct: a UINT count, then one record per attribute in
// request order of {id UINT, status UINT, data <attr type> present when the
// status is success}.
func (o *Object) GetAttributeList(attrs []*Attribute, instance uint32) (*Request, error) {
	if len(attrs) == 0 {
		return nil, requestErrf("get_attribute_list requires at least one attribute")
	}
	ids := make([]any, len(attrs))
	respFields := []datatypes.Field{{Name: "attribute_count", Type: datatypes.UINT}}
	for i, a := range attrs {
		if a.Object != o {
			return nil, requestErrf("attributes must all be from the same object: %s is not from %s", a, o.Name)
		}
		ids[i] = a.ID
		item, err := datatypes.NewStructType(
			fmt.Sprintf("%s_GetAttrListItem", a.Name),
			datatypes.Field{Name: "id", Type: datatypes.UINT},
			datatypes.Field{Name: "status", Type: datatypes.UINT},
			datatypes.Field{Name: "data", Type: a.Type, ConditionalOn: "status"},
		)
		if err != nil {
			return nil, err
		}
		respFields = append(respFields, datatypes.Field{Name: a.Name, Type: item})
	}
	respType, err := datatypes.NewStructType(o.Name+"GetAttrListResp", respFields...)
	if err != nil {
		return nil, err
	}
	idArray := datatypes.CountedArrayOf(datatypes.UINT, datatypes.UINT)
	data, err := idArray.Encode(ids)
	if err != nil {
		return nil, err
	}
	msg, err := NewLogicalRequest(ServiceGetAttributeList, o.ClassCode, instance, -1, data)
	if err != nil {
		return nil, err
	}
	return &Request{
		Message: msg,
		Parser:  &RouterResponseParser{ResponseType: respType},
	}, nil
}
