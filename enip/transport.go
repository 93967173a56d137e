package enip

// TCP transport: length-prefixed stream framing over a single socket. Send
// loops until the whole message is written; receive reads the fixed header
// then exactly the body length it announces.

import (
	"net"
	"time"

	"github.com/tturner/cipnet/datatypes"
)

// FrameRecorder observes every encapsulation frame exchanged on a
// connection, for wire capture.
type FrameRecorder interface {
	RecordSend(frame []byte)
	RecordRecv(frame []byte)
}

// Transport moves encapsulation frames to and from a device.
type Transport interface {
	Connect(addr string, timeout time.Duration) error
	Disconnect() error
	// Send writes one full frame.
	Send(frame []byte) error
	// Receive reads one full frame: the 24-byte header plus its body.
	Receive() (header []byte, body []byte, err error)
	Connected() bool
}

// TCPTransport is the standard Transport over a TCP socket.
type TCPTransport struct {
	conn    net.Conn
	timeout time.Duration
}

// NewTCPTransport returns an unconnected TCP transport.
func NewTCPTransport() *TCPTransport {
	return &TCPTransport{}
}

// Connect dials addr within timeout; the same timeout becomes the per-call
// read/write deadline.
func (t *TCPTransport) Connect(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return connErr(err, "failed to connect to %s", addr)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}
	t.conn = conn
	t.timeout = timeout
	return nil
}

// Disconnect closes the socket.
func (t *TCPTransport) Disconnect() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Connected reports whether the socket is open.
func (t *TCPTransport) Connected() bool { return t.conn != nil }

// Send writes frame fully, looping on partial writes.
func (t *TCPTransport) Send(frame []byte) error {
	if t.conn == nil {
		return connErrf("not connected")
	}
	if err := t.conn.SetWriteDeadline(deadline(t.timeout)); err != nil {
		return connErr(err, "failed to set write deadline")
	}
	sent := 0
	for sent < len(frame) {
		n, err := t.conn.Write(frame[sent:])
		if err != nil {
			return connErr(err, "failed to send %d bytes, sent %d", len(frame), sent)
		}
		if n == 0 {
			return connErrf("failed to send any data")
		}
		sent += n
	}
	return nil
}

// Receive reads the 24-byte header, then the body length it announces.
func (t *TCPTransport) Receive() ([]byte, []byte, error) {
	if t.conn == nil {
		return nil, nil, connErrf("not connected")
	}
	if err := t.conn.SetReadDeadline(deadline(t.timeout)); err != nil {
		return nil, nil, connErr(err, "failed to set read deadline")
	}
	header, err := t.readFull(HeaderSize)
	if err != nil {
		return nil, nil, err
	}
	// the body length lives at offset 2, little-endian
	length := int(header[2]) | int(header[3])<<8
	var body []byte
	if length > 0 {
		if body, err = t.readFull(length); err != nil {
			return nil, nil, err
		}
	}
	return header, body, nil
}

func (t *TCPTransport) readFull(size int) ([]byte, error) {
	buf := make([]byte, size)
	got := 0
	for got < size {
		n, err := t.conn.Read(buf[got:])
		if err != nil {
			return nil, connErr(err, "failed to read %d bytes from connection, got %d", size, got)
		}
		if n == 0 {
			return nil, connErrf("connection closed by peer after %d of %d bytes", got, size)
		}
		got += n
	}
	return buf, nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// decodeHeader decodes a received header buffer.
func decodeHeader(raw []byte) (*datatypes.Struct, error) {
	v, err := datatypes.DecodeBytes(Header, raw)
	if err != nil {
		return nil, err
	}
	return v.(*datatypes.Struct), nil
}
