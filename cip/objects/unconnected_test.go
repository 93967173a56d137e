package objects

import (
	"bytes"
	"testing"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

func innerRequest(t *testing.T) *cip.Request {
	t.Helper()
	msg, err := cip.NewLogicalRequest(cip.ServiceGetAttributeSingle, 0x01, 1, 6, nil)
	if err != nil {
		t.Fatal(err)
	}
	return &cip.Request{Message: msg, Parser: &cip.RouterResponseParser{ResponseType: datatypes.UDINT}}
}

func TestUnconnectedSendPayload(t *testing.T) {
	route, err := epath.ParseRoute("1/0")
	if err != nil {
		t.Fatal(err)
	}
	inner, err := innerRequest(t).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	payload, err := BuildUnconnectedSendPayload(inner, route, Tick1024ms, 1, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{
		0x0A, 0x01, // priority/tick, ticks
		0x08, 0x00, // message size (8, even, no pad)
		0x0E, 0x03, 0x20, 0x01, 0x24, 0x01, 0x30, 0x06,
		0x01, 0x00, // route: 1 segment + pad byte
		0x01, 0x00, // port 1 link 0
	}
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = % X, want % X", payload, want)
	}
}

func TestUnconnectedSendPadsOddMessages(t *testing.T) {
	route, _ := epath.ParseRoute("1/0")
	msg := []byte{0x0E, 0x02, 0x20, 0x01, 0x24, 0x01, 0xFF}
	payload, err := BuildUnconnectedSendPayload(msg, route, Tick1024ms, 1, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// size field counts the unpadded message; a pad byte follows it
	if payload[2] != 0x07 || payload[3] != 0x00 {
		t.Fatalf("size = % X", payload[2:4])
	}
	if payload[4+7] != 0x00 {
		t.Fatal("expected pad byte after odd-length message")
	}
	// route path starts right after the pad
	if !bytes.Equal(payload[4+8:], []byte{0x01, 0x00, 0x01, 0x00}) {
		t.Fatalf("route = % X", payload[4+8:])
	}
}

func TestUnconnectedSendRequestWrapping(t *testing.T) {
	route, _ := epath.ParseRoute("1/0")
	req, err := NewUnconnectedSend(innerRequest(t), route, Tick1024ms, 1)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	enc, _ := req.Bytes()
	// outer request targets the Connection Manager with service 0x52
	if !bytes.Equal(enc[:6], []byte{0x52, 0x02, 0x20, 0x06, 0x24, 0x01}) {
		t.Fatalf("outer header = % X", enc[:6])
	}
}

func TestUnconnectedSendSuccessUnwrap(t *testing.T) {
	route, _ := epath.ParseRoute("1/0")
	req, err := NewUnconnectedSend(innerRequest(t), route, Tick1024ms, 1)
	if err != nil {
		t.Fatal(err)
	}
	reply := []byte{0x8E, 0x00, 0x00, 0x00, 0xEF, 0xBE, 0xAD, 0xDE}
	resp, err := req.Parser.Parse(reply, req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("not ok: %s", resp.StatusMessage)
	}
	if resp.Data != uint32(0xDEADBEEF) {
		t.Fatalf("data = %#v", resp.Data)
	}
}

func TestUnconnectedSendFailure(t *testing.T) {
	route, _ := epath.ParseRoute("1/0")
	req, err := NewUnconnectedSend(innerRequest(t), route, Tick1024ms, 1)
	if err != nil {
		t.Fatal(err)
	}
	// unconnected send timeout: one status word 0x0204 plus remaining path
	reply := []byte{0xD2, 0x00, 0x01, 0x01, 0x04, 0x02, 0x01}
	resp, err := req.Parser.Parse(reply, req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.OK() {
		t.Fatal("must be a failure")
	}
	failed := resp.DataStruct()
	if failed.Uint("remaining_path_size") != 1 {
		t.Fatalf("remaining path = %d", failed.Uint("remaining_path_size"))
	}
	wantMsg := "(0x01) Connection failure: (0x0204) Unconnected request timed out, UCMM did not receive a reply within timeout: " +
		"ext_status_words=[], extra_data=1"
	if resp.StatusMessage != wantMsg {
		t.Fatalf("status message:\n got %q\nwant %q", resp.StatusMessage, wantMsg)
	}
}
