package cip

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

func testObject(t *testing.T, name string, code uint16) *Object {
	t.Helper()
	o, err := NewObject(name, code,
		&Attribute{Name: "flags", ID: 1, Type: datatypes.WORD, GetAllInstance: true},
		&Attribute{Name: "label", ID: 2, Type: datatypes.ShortString, GetAllInstance: true},
		&Attribute{Name: "count", ID: 3, Type: datatypes.UINT},
	)
	if err != nil {
		t.Fatalf("new object: %v", err)
	}
	return o
}

func TestObjectStandardClassAttrs(t *testing.T) {
	o := testObject(t, "Widget", 0x7001)
	for i, name := range []string{"object_revision", "max_instance", "num_instances",
		"optional_attrs_list", "optional_service_list", "max_class_attr", "max_instance_attr"} {
		a := o.Attr(name)
		if a == nil {
			t.Fatalf("missing standard class attribute %q", name)
		}
		if a.ID != i+1 || !a.ClassAttr {
			t.Fatalf("attr %q = id %d classAttr %t", name, a.ID, a.ClassAttr)
		}
	}
	// the class get-all struct covers the standard attributes
	names := o.ClassStruct().FieldNames()
	if len(names) != 7 || names[0] != "object_revision" {
		t.Fatalf("class struct fields = %v", names)
	}
	// instance struct only holds flagged instance attributes
	names = o.InstanceStruct().FieldNames()
	if len(names) != 2 || names[0] != "flags" || names[1] != "label" {
		t.Fatalf("instance struct fields = %v", names)
	}
}

func TestObjectRegistry(t *testing.T) {
	o := testObject(t, "Gadget", 0x7002)
	if ObjectByClassCode(0x7002) != o {
		t.Fatal("object not registered by class code")
	}
	path, _ := epath.Logical(0x7002, 1, -1)
	if ObjectFromPath(path) != o {
		t.Fatal("object not resolved from path")
	}
	if ObjectFromPath(nil) != nil {
		t.Fatal("empty path must resolve to nil")
	}
}

func TestGetAttributesAllRequest(t *testing.T) {
	o := testObject(t, "Sprocket", 0x7003)
	req, err := o.GetAttributesAll(1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	enc, _ := req.Bytes()
	want := []byte{0x01, 0x02, 0x21, 0x00, 0x03, 0x70, 0x24, 0x01}
	if !bytes.Equal(enc, want) {
		t.Fatalf("request = % X, want % X", enc, want)
	}
	// instance 0 targets the class and decodes the class struct
	req, err = o.GetAttributesAll(0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parser := req.Parser.(*RouterResponseParser)
	if parser.ResponseType != o.ClassStruct() {
		t.Fatal("class get-all must decode the class struct")
	}
}

func TestGetAttributeSingleWrongObject(t *testing.T) {
	o1 := testObject(t, "Thing1", 0x7004)
	o2 := testObject(t, "Thing2", 0x7005)
	_, err := o1.GetAttributeSingle(o2.Attr("flags"), 1)
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
}

func TestGetAttributeListRoundTrip(t *testing.T) {
	o := testObject(t, "Gizmo", 0x7006)
	attrs := []*Attribute{o.Attr("flags"), o.Attr("count")}
	req, err := o.GetAttributeList(attrs, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	enc, _ := req.Bytes()
	// service 0x03, path, then UINT count + attribute ids
	want := []byte{0x03, 0x02, 0x21, 0x00, 0x06, 0x70, 0x24, 0x01, 0x02, 0x00, 0x01, 0x00, 0x03, 0x00}
	if !bytes.Equal(enc, want) {
		t.Fatalf("request = % X, want % X", enc, want)
	}
	// reply: count 2; flags(id 1) ok value 0x0005; count(id 3) failed with
	// status 0x14 and no data
	reply := []byte{
		0x83, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x05, 0x00,
		0x03, 0x00, 0x14, 0x00,
	}
	resp, err := req.Parser.Parse(reply, req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("response not ok: %s", resp.StatusMessage)
	}
	data := resp.DataStruct()
	flags := data.StructField("flags")
	if flags.Uint("status") != 0 || flags.Get("data") != uint16(5) {
		t.Fatalf("flags item = %v", flags)
	}
	count := data.StructField("count")
	if count.Uint("status") != 0x14 {
		t.Fatalf("count status = %#x", count.Uint("status"))
	}
	if count.Has("data") {
		t.Fatal("failed attribute must have no data")
	}
}

func TestGetAttributeListMixedObjects(t *testing.T) {
	o1 := testObject(t, "Mix1", 0x7007)
	o2 := testObject(t, "Mix2", 0x7008)
	_, err := o1.GetAttributeList([]*Attribute{o1.Attr("flags"), o2.Attr("flags")}, 1)
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
}
