package cipclient

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/enip"
	"github.com/tturner/cipnet/epath"
)

// fakeTransport scripts the frames a device would return.
type fakeTransport struct {
	connected bool
	sent      [][]byte
	replies   [][]byte
}

func (f *fakeTransport) Connect(addr string, timeout time.Duration) error {
	f.connected = true
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool { return f.connected }

func (f *fakeTransport) Send(frame []byte) error {
	if !f.connected {
		return &enip.ConnectionError{Msg: "not connected"}
	}
	f.sent = append(f.sent, append([]byte(nil), frame...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, []byte, error) {
	if len(f.replies) == 0 {
		return nil, nil, &enip.ConnectionError{Msg: "no scripted reply"}
	}
	frame := f.replies[0]
	f.replies = f.replies[1:]
	return frame[:enip.HeaderSize], frame[enip.HeaderSize:], nil
}

func (f *fakeTransport) queue(t *testing.T, command uint16, session uint32, payload []byte) {
	t.Helper()
	frame, err := enip.EncodeFrame(command, session, enip.DefaultContext, payload)
	if err != nil {
		t.Fatalf("encode reply frame: %v", err)
	}
	f.replies = append(f.replies, frame)
}

// queueRRData scripts a SendRRData reply wrapping a router reply.
func (f *fakeTransport) queueRRData(t *testing.T, session uint32, routerReply []byte) {
	t.Helper()
	addr, err := enip.NullAddressItem.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := enip.UnconnectedDataItem.New(map[string]any{"data": routerReply})
	if err != nil {
		t.Fatal(err)
	}
	cpf, err := enip.EncodeCPF(addr, data)
	if err != nil {
		t.Fatal(err)
	}
	f.queue(t, enip.CommandSendRRData, session, append(make([]byte, 6), cpf...))
}

// queueUnitData scripts a SendUnitData reply wrapping a connected payload.
func (f *fakeTransport) queueUnitData(t *testing.T, session uint32, connectionID uint32, payload []byte) {
	t.Helper()
	addr, err := enip.ConnectedAddressItem.New(map[string]any{"connection_id": connectionID})
	if err != nil {
		t.Fatal(err)
	}
	data, err := enip.ConnectedDataItem.New(map[string]any{"data": payload})
	if err != nil {
		t.Fatal(err)
	}
	cpf, err := enip.EncodeCPF(addr, data)
	if err != nil {
		t.Fatal(err)
	}
	f.queue(t, enip.CommandSendUnitData, session, append(make([]byte, 6), cpf...))
}

const testSession uint32 = 0x00C0FFEE

func newTestConnection(t *testing.T, cfg Config) (*Connection, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	transport := enip.NewConnectionWithTransport(enip.Config{Host: "10.0.0.5"}, ft)
	conn := NewConnection(cfg, transport, nil)
	ft.queue(t, enip.CommandRegisterSession, testSession, []byte{0x01, 0x00, 0x00, 0x00})
	if err := conn.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return conn, ft
}

func identityRequest(t *testing.T) *cip.Request {
	t.Helper()
	msg, err := cip.NewLogicalRequest(cip.ServiceGetAttributeSingle, 0x01, 1, 6, nil)
	if err != nil {
		t.Fatal(err)
	}
	return &cip.Request{Message: msg, Parser: &cip.RouterResponseParser{ResponseType: datatypes.UDINT}}
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	if !conn.Connected() {
		t.Fatal("must be connected after register")
	}
	if conn.Transport().SessionID() != testSession {
		t.Fatalf("session = %#x", conn.Transport().SessionID())
	}
	if err := conn.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if conn.Connected() || conn.Transport().SessionID() != 0 {
		t.Fatal("session must clear on disconnect")
	}
	// the unregister frame went out before the socket closed
	last := ft.sent[len(ft.sent)-1]
	if last[0] != 0x66 {
		t.Fatalf("last frame command = %#02x, want unregister", last[0])
	}
	// sends in the closed state fail with a connection error
	_, err := conn.UnconnectedSend(identityRequest(t))
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestUnconnectedSendNoRoute(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	ft.queueRRData(t, testSession, []byte{0x8E, 0x00, 0x00, 0x00, 0xEF, 0xBE, 0xAD, 0xDE})
	resp, err := conn.Send(identityRequest(t))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK() || resp.Data != uint32(0xDEADBEEF) {
		t.Fatalf("data = %#v (%s)", resp.Data, resp.StatusMessage)
	}
	// with an empty route, the router request goes out unwrapped
	frame := ft.sent[len(ft.sent)-1]
	payload := frame[enip.HeaderSize+6:]
	wantTail := []byte{0x0E, 0x03, 0x20, 0x01, 0x24, 0x01, 0x30, 0x06}
	if !bytes.HasSuffix(payload, wantTail) {
		t.Fatalf("payload = % X", payload)
	}
}

func TestUnconnectedSendWithRouteWraps(t *testing.T) {
	cfg := DefaultConfig()
	var err error
	if cfg.Route, err = epath.ParseRoute("1/0"); err != nil {
		t.Fatal(err)
	}
	conn, ft := newTestConnection(t, cfg)
	ft.queueRRData(t, testSession, []byte{0x8E, 0x00, 0x00, 0x00, 0xEF, 0xBE, 0xAD, 0xDE})
	resp, err := conn.Send(identityRequest(t))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK() || resp.Data != uint32(0xDEADBEEF) {
		t.Fatalf("data = %#v (%s)", resp.Data, resp.StatusMessage)
	}
	frame := ft.sent[len(ft.sent)-1]
	payload := frame[enip.HeaderSize+6:]
	// the CPF data item carries an Unconnected Send to the Connection
	// Manager
	idx := bytes.Index(payload, []byte{0x52, 0x02, 0x20, 0x06, 0x24, 0x01})
	if idx < 0 {
		t.Fatalf("unconnected send wrapper missing: % X", payload)
	}
}

func queueForwardOpenSuccess(t *testing.T, ft *fakeTransport, o2tID uint32) {
	t.Helper()
	reply := []byte{
		0xD4, 0x00, 0x00, 0x00,
	}
	id := make([]byte, 4)
	id[0] = byte(o2tID)
	id[1] = byte(o2tID >> 8)
	id[2] = byte(o2tID >> 16)
	id[3] = byte(o2tID >> 24)
	reply = append(reply, id...)                                  // o2t id
	reply = append(reply, 0x01, 0x00, 0x00, 0x20)                 // t2o id
	reply = append(reply, 0x22, 0x11, 0x55, 0xA4)                 // serial, vendor
	reply = append(reply, 0x44, 0x33, 0x22, 0x11)                 // originator serial
	reply = append(reply, 0x10, 0x27, 0x00, 0x00, 0x10, 0x27, 0x00, 0x00) // APIs
	reply = append(reply, 0x00, 0x00)                             // app reply size, reserved
	ft.queueRRData(t, testSession, reply)
}

func TestForwardOpenAndSequencedConnectedSend(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	queueForwardOpenSuccess(t, ft, 0x10000001)
	if err := conn.ForwardOpen(); err != nil {
		t.Fatalf("forward open: %v", err)
	}
	if !conn.CipConnected() {
		t.Fatal("must be cip connected")
	}
	if conn.Config().Connected.O2TConnectionID != 0x10000001 {
		t.Fatalf("o2t id = %#x", conn.Config().Connected.O2TConnectionID)
	}

	// sequenced connected echo: request carries sequence 1, reply echoes it
	routerReply := []byte{0x8E, 0x00, 0x00, 0x00, 0xEF, 0xBE, 0xAD, 0xDE}
	ft.queueUnitData(t, testSession, 0x10000001, append([]byte{0x01, 0x00}, routerReply...))
	resp, err := conn.Send(identityRequest(t))
	if err != nil {
		t.Fatalf("connected send: %v", err)
	}
	if !resp.OK() || resp.Data != uint32(0xDEADBEEF) {
		t.Fatalf("data = %#v (%s)", resp.Data, resp.StatusMessage)
	}
	// the sent connected data payload starts with the sequence number
	frame := ft.sent[len(ft.sent)-1]
	payload := frame[enip.HeaderSize+6:]
	// CPF: count(2) + connected address(8) + data item header(4), then the
	// sequence number ahead of the message
	seqOffset := 2 + 8 + 4
	if !bytes.Equal(payload[seqOffset:seqOffset+2], []byte{0x01, 0x00}) {
		t.Fatalf("sequence prefix = % X", payload[seqOffset:seqOffset+2])
	}
	if !bytes.Equal(payload[seqOffset+2:seqOffset+10], []byte{0x0E, 0x03, 0x20, 0x01, 0x24, 0x01, 0x30, 0x06}) {
		t.Fatalf("connected message = % X", payload[seqOffset+2:])
	}

	// second send increments the sequence
	ft.queueUnitData(t, testSession, 0x10000001, append([]byte{0x02, 0x00}, routerReply...))
	if _, err := conn.Send(identityRequest(t)); err != nil {
		t.Fatalf("second connected send: %v", err)
	}
	frame = ft.sent[len(ft.sent)-1]
	payload = frame[enip.HeaderSize+6:]
	if !bytes.Equal(payload[seqOffset:seqOffset+2], []byte{0x02, 0x00}) {
		t.Fatalf("second sequence = % X", payload[seqOffset:seqOffset+2])
	}
}

func TestForwardCloseClearsConnection(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	queueForwardOpenSuccess(t, ft, 0x10000001)
	if err := conn.ForwardOpen(); err != nil {
		t.Fatalf("forward open: %v", err)
	}
	closeReply := []byte{
		0xCE, 0x00, 0x00, 0x00,
		0x22, 0x11, 0x55, 0xA4,
		0x44, 0x33, 0x22, 0x11,
		0x00, 0x00,
	}
	ft.queueRRData(t, testSession, closeReply)
	if err := conn.ForwardClose(); err != nil {
		t.Fatalf("forward close: %v", err)
	}
	if conn.CipConnected() {
		t.Fatal("connection ids must clear after forward close")
	}
	cc := conn.Config().Connected
	if cc.O2TConnectionID != 0 || cc.T2OConnectionID != 0 || cc.ConnectionSerial != 0 || cc.OriginatorSerial != 0 {
		t.Fatalf("stale connection identity: %+v", cc)
	}
}

func TestForwardOpenFailureKeepsSession(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	// failure with extended status 0x0109 and failure body
	ft.queueRRData(t, testSession, []byte{
		0xD4, 0x00, 0x01, 0x02, 0x09, 0x01, 0x4F, 0x01,
		0x00, 0x00, 0x09, 0x00, 0x04, 0x20, 0x00, 0x69, 0xFF, 0x00,
	})
	err := conn.ForwardOpen()
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if conn.CipConnected() {
		t.Fatal("must not be cip connected after failure")
	}
	if !conn.Connected() {
		t.Fatal("session must stay registered after forward open failure")
	}
}

func TestLargeForwardOpenSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connected.Size = 4000
	conn, ft := newTestConnection(t, cfg)
	queueForwardOpenSuccess(t, ft, 0x20000002)
	if err := conn.ForwardOpen(); err != nil {
		t.Fatalf("forward open: %v", err)
	}
	frame := ft.sent[len(ft.sent)-1]
	payload := frame[enip.HeaderSize+6:]
	if !bytes.Contains(payload, []byte{0x5B, 0x02, 0x20, 0x06, 0x24, 0x01}) {
		t.Fatalf("large forward open service missing: % X", payload)
	}
}

func TestWithRouteChildConnection(t *testing.T) {
	conn, _ := newTestConnection(t, DefaultConfig())
	child, err := conn.WithRoute("1/0")
	if err != nil {
		t.Fatalf("with route: %v", err)
	}
	if child.Transport() != conn.Transport() {
		t.Fatal("child must share the parent transport")
	}
	if child.Route().Empty() || !conn.Route().Empty() {
		t.Fatal("route extension must not mutate the parent")
	}
	if child.ConnectionPath() != "10.0.0.5/1/0" {
		t.Fatalf("connection path = %q", child.ConnectionPath())
	}
	if conn.ConnectionPath() != "10.0.0.5" {
		t.Fatalf("parent path = %q", conn.ConnectionPath())
	}
}

func TestForwardOpenPopulatesRandomIdentity(t *testing.T) {
	conn, ft := newTestConnection(t, DefaultConfig())
	queueForwardOpenSuccess(t, ft, 0x30000003)
	if err := conn.ForwardOpen(); err != nil {
		t.Fatalf("forward open: %v", err)
	}
	cc := conn.Config().Connected
	if cc.T2OConnectionID == 0 || cc.ConnectionSerial == 0 || cc.OriginatorSerial == 0 {
		t.Fatalf("zero connection identity not replaced: %+v", cc)
	}
}
