package enip

// EtherNet/IP session connection: registers a session over a Transport and
// exchanges SendRRData / SendUnitData and the list commands.

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tturner/cipnet/datatypes"
)

// DefaultPort is the TCP port for EtherNet/IP explicit messaging.
const DefaultPort = 44818

// DefaultTimeout bounds every socket operation.
const DefaultTimeout = 5 * time.Second

// Config holds the transport parameters of a session connection.
type Config struct {
	Host          string
	Port          int
	Timeout       time.Duration
	SenderContext [8]byte
	// Logger receives connection lifecycle and frame logs; a nop logger
	// when nil.
	Logger *zap.Logger
	// Recorder observes every frame for wire capture, optional.
	Recorder FrameRecorder
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Response is a received encapsulation reply.
type Response struct {
	Header *datatypes.Struct
	Data   []byte
}

// Status returns the header status.
func (r *Response) Status() uint32 { return uint32(r.Header.Uint("status")) }

// OK reports whether the header status is success.
func (r *Response) OK() bool { return r.Status() == StatusSuccess }

// Connection is an EtherNet/IP session over one TCP socket.
type Connection struct {
	cfg       Config
	transport Transport
	log       *zap.Logger
	sessionID uint32
}

// NewConnection builds a connection over the standard TCP transport.
func NewConnection(cfg Config) *Connection {
	return NewConnectionWithTransport(cfg, NewTCPTransport())
}

// NewConnectionWithTransport builds a connection over a caller-supplied
// transport. Child connections for temporary routes share the parent's
// transport this way.
func NewConnectionWithTransport(cfg Config, transport Transport) *Connection {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{cfg: cfg, transport: transport, log: log}
}

// Config returns the connection's configuration.
func (c *Connection) Config() Config { return c.cfg }

// Transport returns the underlying transport.
func (c *Connection) Transport() Transport { return c.transport }

// SessionID returns the registered session handle, zero when unregistered.
func (c *Connection) SessionID() uint32 { return c.sessionID }

// Connected reports whether the session is registered on an open socket.
func (c *Connection) Connected() bool {
	return c.transport.Connected() && c.sessionID != 0
}

// Connect opens the socket and registers the session. Any failure reverts
// to the closed state with the session cleared.
func (c *Connection) Connect() error {
	c.log.Debug("connecting", zap.String("addr", c.cfg.addr()))
	if err := c.transport.Connect(c.cfg.addr(), c.cfg.timeout()); err != nil {
		return err
	}
	if err := c.RegisterSession(); err != nil {
		_ = c.transport.Disconnect()
		c.sessionID = 0
		return connErr(err, "failed to register session with %s", c.cfg.addr())
	}
	c.log.Info("session registered", zap.String("addr", c.cfg.addr()), zap.Uint32("session", c.sessionID))
	return nil
}

// Disconnect unregisters the session (best effort) and closes the socket.
func (c *Connection) Disconnect() error {
	if !c.transport.Connected() {
		c.sessionID = 0
		return nil
	}
	if c.sessionID != 0 {
		if err := c.UnregisterSession(); err != nil {
			c.log.Debug("failed to unregister session", zap.Error(err))
		}
	}
	if err := c.transport.Disconnect(); err != nil {
		return connErr(err, "failed to disconnect from %s", c.cfg.addr())
	}
	c.log.Debug("disconnected", zap.String("addr", c.cfg.addr()))
	return nil
}

// RegisterSession performs the session registration exchange; the granted
// handle comes back in the reply header.
func (c *Connection) RegisterSession() error {
	if c.sessionID != 0 {
		return connErrf("session already registered")
	}
	payload, err := RegisterSessionData.New(nil)
	if err != nil {
		return err
	}
	data, err := payload.Bytes()
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(CommandRegisterSession, data)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ResponseError{Command: CommandRegisterSession, Status: resp.Status(), Header: resp.Header}
	}
	c.sessionID = uint32(resp.Header.Uint("session"))
	if c.sessionID == 0 {
		return connErrf("device granted a zero session handle")
	}
	return nil
}

// UnregisterSession tears down the session; the device sends no reply.
func (c *Connection) UnregisterSession() error {
	if c.sessionID == 0 {
		return connErrf("session not registered")
	}
	err := c.send(CommandUnregisterSession, nil)
	c.sessionID = 0
	return err
}

// NOP sends a no-op frame; the device sends no reply.
func (c *Connection) NOP() error {
	if !c.transport.Connected() {
		return connErrf("not connected")
	}
	return c.send(CommandNOP, nil)
}

// SendRRData submits an unconnected CIP message and returns the reply's CIP
// payload from its unconnected data item.
func (c *Connection) SendRRData(msg []byte) ([]byte, *Response, error) {
	if !c.Connected() {
		return nil, nil, connErrf("not connected")
	}
	data, err := UnconnectedDataItem.New(map[string]any{"data": msg})
	if err != nil {
		return nil, nil, err
	}
	addr, err := NullAddressItem.New(nil)
	if err != nil {
		return nil, nil, err
	}
	return c.exchangeCPF(CommandSendRRData, addr, data)
}

// SendUnitData submits a connected CIP message on connectionID and returns
// the reply's CIP payload from its connected data item.
func (c *Connection) SendUnitData(connectionID uint32, msg []byte) ([]byte, *Response, error) {
	if !c.Connected() {
		return nil, nil, connErrf("not connected")
	}
	data, err := ConnectedDataItem.New(map[string]any{"data": msg})
	if err != nil {
		return nil, nil, err
	}
	addr, err := ConnectedAddressItem.New(map[string]any{"connection_id": connectionID})
	if err != nil {
		return nil, nil, err
	}
	return c.exchangeCPF(CommandSendUnitData, addr, data)
}

func (c *Connection) exchangeCPF(command uint16, addr, data *datatypes.Struct) ([]byte, *Response, error) {
	cpf, err := EncodeCPF(addr, data)
	if err != nil {
		return nil, nil, err
	}
	// interface handle (always 0 for CIP) and timeout (0, CIP manages its
	// own timeouts)
	payload := make([]byte, 6, 6+len(cpf))
	payload = append(payload, cpf...)

	resp, err := c.roundTrip(command, payload)
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, resp, &ResponseError{Command: command, Status: resp.Status(), Header: resp.Header}
	}
	if len(resp.Data) < 6 {
		return nil, resp, &datatypes.DataError{Msg: fmt.Sprintf("%s reply too short: %d bytes", commandName(command), len(resp.Data))}
	}
	items, err := DecodeCPF(datatypes.NewReader(resp.Data[6:]))
	if err != nil {
		return nil, resp, err
	}
	if len(items) < 2 {
		return nil, resp, &datatypes.DataError{Msg: fmt.Sprintf("%s reply missing data item", commandName(command))}
	}
	return items[1].BytesField("data"), resp, nil
}

// ListIdentity queries the device identity; the reply carries CIP identity
// items.
func (c *Connection) ListIdentity() ([]*datatypes.Struct, error) {
	return c.listCommand(CommandListIdentity)
}

// ListServices queries the communication services the device supports.
func (c *Connection) ListServices() ([]*datatypes.Struct, error) {
	return c.listCommand(CommandListServices)
}

// ListInterfaces queries the device's configuration interfaces.
func (c *Connection) ListInterfaces() ([]*datatypes.Struct, error) {
	return c.listCommand(CommandListInterfaces)
}

func (c *Connection) listCommand(command uint16) ([]*datatypes.Struct, error) {
	if !c.transport.Connected() {
		return nil, connErrf("not connected")
	}
	resp, err := c.roundTrip(command, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ResponseError{Command: command, Status: resp.Status(), Header: resp.Header}
	}
	items, err := DecodeCPF(datatypes.NewReader(resp.Data))
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Connection) send(command uint16, payload []byte) error {
	frame, err := EncodeFrame(command, c.sessionID, c.cfg.SenderContext, payload)
	if err != nil {
		return err
	}
	c.log.Debug("sending frame",
		zap.String("command", commandName(command)),
		zap.Int("len", len(frame)))
	if err := c.transport.Send(frame); err != nil {
		c.sessionID = 0
		return err
	}
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.RecordSend(frame)
	}
	return nil
}

// roundTrip sends one frame and reads one reply. Transport errors clear the
// session state.
func (c *Connection) roundTrip(command uint16, payload []byte) (*Response, error) {
	if err := c.send(command, payload); err != nil {
		return nil, err
	}
	rawHeader, body, err := c.transport.Receive()
	if err != nil {
		c.sessionID = 0
		_ = c.transport.Disconnect()
		return nil, err
	}
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.RecordRecv(append(append([]byte(nil), rawHeader...), body...))
	}
	header, err := decodeHeader(rawHeader)
	if err != nil {
		return nil, err
	}
	c.log.Debug("received frame",
		zap.String("command", commandName(uint16(header.Uint("command")))),
		zap.Uint64("status", header.Uint("status")),
		zap.Int("len", len(body)))
	return &Response{Header: header, Data: body}, nil
}
