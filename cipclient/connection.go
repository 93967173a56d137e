package cipclient

// CIP connection lifecycle and dispatch.
//
//	Closed --Connect--> Registered --ForwardOpen--> CipConnected
//	CipConnected --ForwardClose--> Registered --Disconnect--> Closed
//
// Transport errors drop the connection back to Closed with all session and
// connection state cleared.

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/cip/objects"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/enip"
	"github.com/tturner/cipnet/epath"
)

// ConnectionError is the CIP-layer connection failure kind, shared with the
// transport layer.
type ConnectionError = enip.ConnectionError

func connErrf(format string, args ...any) error {
	return &ConnectionError{Msg: fmt.Sprintf(format, args...)}
}

// Connection drives CIP messaging over one EtherNet/IP session. It is not
// safe for concurrent use; callers needing parallelism open separate
// connections.
type Connection struct {
	cfg       Config
	transport *enip.Connection
	log       *zap.Logger

	sequence uint16 // cyclic 1..65535, reset by every Forward Open
}

// NewConnection wraps an EtherNet/IP session connection with CIP dispatch.
func NewConnection(cfg Config, transport *enip.Connection, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{cfg: cfg, transport: transport, log: logger}
}

// Dial builds the transport and CIP connection in one step.
func Dial(host string, cfg Config, enipCfg enip.Config, logger *zap.Logger) (*Connection, error) {
	enipCfg.Host = host
	conn := NewConnection(cfg, enip.NewConnection(enipCfg), logger)
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Config returns the CIP configuration.
func (c *Connection) Config() *Config { return &c.cfg }

// Transport returns the underlying session connection.
func (c *Connection) Transport() *enip.Connection { return c.transport }

// Route returns the configured route.
func (c *Connection) Route() epath.Route { return c.cfg.Route }

// ConnectionPath renders the target as host or host/route.
func (c *Connection) ConnectionPath() string {
	host := c.transport.Config().Host
	if c.cfg.Route.Empty() {
		return host
	}
	return host + "/" + c.cfg.Route.String()
}

// Connected reports whether the EtherNet/IP session is registered.
func (c *Connection) Connected() bool { return c.transport.Connected() }

// CipConnected reports whether an explicit messaging connection is
// established on top of the session.
func (c *Connection) CipConnected() bool {
	return c.Connected() && c.cfg.Connected.O2TConnectionID != 0
}

// Connect opens the session.
func (c *Connection) Connect() error {
	if c.Connected() {
		return connErrf("already connected")
	}
	return c.transport.Connect()
}

// Disconnect closes the session and socket. Forward Close and session
// unregistration are attempted best effort first.
func (c *Connection) Disconnect() error {
	if c.CipConnected() {
		if err := c.ForwardClose(); err != nil {
			c.log.Debug("forward close during disconnect failed", zap.Error(err))
		}
	}
	return c.transport.Disconnect()
}

// randomIDs fills zero-valued connection identity fields with random ones.
func (c *Connection) randomIDs() (t2oID uint32, serial uint16, origSerial uint32, err error) {
	cfg := c.cfg.Connected
	t2oID, serial, origSerial = cfg.T2OConnectionID, cfg.ConnectionSerial, cfg.OriginatorSerial
	// a zero identity means "not connected", so rolled zeros are re-rolled
	for t2oID == 0 || serial == 0 || origSerial == 0 {
		var buf [10]byte
		if _, err = rand.Read(buf[:]); err != nil {
			return 0, 0, 0, fmt.Errorf("generate connection ids: %w", err)
		}
		if t2oID == 0 {
			t2oID = binary.LittleEndian.Uint32(buf[0:4])
		}
		if serial == 0 {
			serial = binary.LittleEndian.Uint16(buf[4:6])
		}
		if origSerial == 0 {
			origSerial = binary.LittleEndian.Uint32(buf[6:10])
		}
	}
	return t2oID, serial, origSerial, nil
}

// connectionPath is the route extended with the target Message Router.
func (c *Connection) connectionPath() (epath.Path, error) {
	mr, err := epath.Logical(objects.MessageRouter.ClassCode, 1, -1)
	if err != nil {
		return nil, err
	}
	return c.cfg.Route.Path().Append(mr...), nil
}

// buildForwardOpen assembles the Forward Open request, selecting the large
// variant when the requested size exceeds 511 bytes.
func (c *Connection) buildForwardOpen() (*cip.Request, uint32, uint16, uint32, error) {
	cfg := c.cfg.Connected
	t2oID, serial, origSerial, err := c.randomIDs()
	if err != nil {
		return nil, 0, 0, 0, err
	}
	path, err := c.connectionPath()
	if err != nil {
		return nil, 0, 0, 0, err
	}
	transportType := objects.TransportClassTrigger(cfg.TransportClass, cfg.ProductionTrigger, cfg.Direction == DirectionServer)

	values := map[string]any{
		"priority_tick_time":   objects.PriorityTickTime(c.cfg.Unconnected.TickTime, false),
		"timeout_ticks":        c.cfg.Unconnected.NumTicks,
		"o2t_connection_id":    uint32(0),
		"t2o_connection_id":    t2oID,
		"connection_serial":    serial,
		"originator_vendor_id": cfg.VendorID,
		"originator_serial":    origSerial,
		"timeout_multiplier":   uint8(cfg.TimeoutMultiplier),
		"o2t_rpi":              cfg.O2TRPI,
		"t2o_rpi":              cfg.T2ORPI,
		"transport_type":       transportType,
		"connection_path":      path,
	}

	variable := cfg.Sizing == SizingVariable
	var reqType *datatypes.StructType
	if cfg.Size > StandardConnectionSize {
		params := objects.LargeNetworkParams(cfg.Size, variable, cfg.Priority, cfg.Type, cfg.RedundantOwner)
		values["o2t_connection_params"] = params
		values["t2o_connection_params"] = params
		reqType = objects.LargeForwardOpenRequest
	} else {
		params := objects.NetworkParams(cfg.Size, variable, cfg.Priority, cfg.Type, cfg.RedundantOwner)
		values["o2t_connection_params"] = params
		values["t2o_connection_params"] = params
		reqType = objects.ForwardOpenRequest
	}
	reqData, err := reqType.New(values)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	req, err := objects.NewForwardOpen(reqData)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return req, t2oID, serial, origSerial, nil
}

// ForwardOpen establishes the explicit messaging connection. On success the
// target's O->T connection id is recorded and the sequence counter resets.
// On failure the session stays registered.
func (c *Connection) ForwardOpen() error {
	if !c.Connected() {
		return connErrf("not connected")
	}
	if c.CipConnected() {
		return connErrf("already cip connected")
	}
	c.log.Info("beginning forward open", zap.String("path", c.ConnectionPath()))
	req, t2oID, serial, origSerial, err := c.buildForwardOpen()
	if err != nil {
		return err
	}
	resp, err := c.sendUnconnectedRaw(req)
	if err != nil {
		return &ConnectionError{Msg: "forward open failed", Err: err}
	}
	if !resp.OK() {
		return &ConnectionError{Msg: "forward open failed: " + resp.StatusMessage}
	}
	data := resp.DataStruct()
	c.cfg.Connected.O2TConnectionID = uint32(data.Uint("o2t_connection_id"))
	c.cfg.Connected.T2OConnectionID = t2oID
	c.cfg.Connected.ConnectionSerial = serial
	c.cfg.Connected.OriginatorSerial = origSerial
	c.sequence = 0
	c.log.Info("forward open succeeded",
		zap.Uint32("o2t_connection_id", c.cfg.Connected.O2TConnectionID))
	return nil
}

// ForwardClose tears down the explicit messaging connection; on success all
// connection ids and serials clear.
func (c *Connection) ForwardClose() error {
	if !c.CipConnected() {
		return connErrf("not cip connected")
	}
	path, err := c.connectionPath()
	if err != nil {
		return err
	}
	params, err := objects.ForwardCloseRequest.New(map[string]any{
		"priority_tick_time":   objects.PriorityTickTime(c.cfg.Unconnected.TickTime, false),
		"timeout_ticks":        c.cfg.Unconnected.NumTicks,
		"connection_serial":    c.cfg.Connected.ConnectionSerial,
		"originator_vendor_id": c.cfg.Connected.VendorID,
		"originator_serial":    c.cfg.Connected.OriginatorSerial,
		"connection_path":      path,
	})
	if err != nil {
		return err
	}
	req, err := objects.NewForwardClose(params)
	if err != nil {
		return err
	}
	resp, err := c.sendUnconnectedRaw(req)
	if err != nil {
		return &ConnectionError{Msg: "forward close failed", Err: err}
	}
	if !resp.OK() {
		return &ConnectionError{Msg: "forward close failed: " + resp.StatusMessage}
	}
	c.cfg.Connected.O2TConnectionID = 0
	c.cfg.Connected.T2OConnectionID = 0
	c.cfg.Connected.ConnectionSerial = 0
	c.cfg.Connected.OriginatorSerial = 0
	c.log.Info("forward close succeeded")
	return nil
}

// Send dispatches a request: connected when the connection is CIP-connected,
// unconnected otherwise. Call UnconnectedSend or ConnectedSend directly to
// force a path.
func (c *Connection) Send(req *cip.Request) (*cip.Response, error) {
	if c.CipConnected() {
		return c.ConnectedSend(req)
	}
	return c.UnconnectedSend(req)
}

// UnconnectedSend submits a request without a CIP connection. A non-empty
// route wraps the request in an Unconnected Send against the Connection
// Manager.
func (c *Connection) UnconnectedSend(req *cip.Request) (*cip.Response, error) {
	if !c.Connected() {
		return nil, connErrf("not connected")
	}
	if !c.cfg.Route.Empty() {
		wrapped, err := objects.NewUnconnectedSend(req, c.cfg.Route, c.cfg.Unconnected.TickTime, c.cfg.Unconnected.NumTicks)
		if err != nil {
			return nil, err
		}
		req = wrapped
	}
	return c.sendUnconnectedRaw(req)
}

// sendUnconnectedRaw submits req as-is over SendRRData.
func (c *Connection) sendUnconnectedRaw(req *cip.Request) (*cip.Response, error) {
	msg, err := req.Bytes()
	if err != nil {
		return nil, err
	}
	payload, _, err := c.transport.SendRRData(msg)
	if err != nil {
		return nil, err
	}
	return req.Parser.Parse(payload, req)
}

// nextSequence advances the cyclic 1..65535 counter.
func (c *Connection) nextSequence() uint16 {
	c.sequence++
	if c.sequence == 0 {
		c.sequence = 1
	}
	return c.sequence
}

// ConnectedSend submits a request on the established connection. Transport
// classes 1..3 carry a 16-bit sequence number ahead of the message, echoed
// by the reply.
func (c *Connection) ConnectedSend(req *cip.Request) (*cip.Response, error) {
	if !c.CipConnected() {
		return nil, connErrf("not cip connected")
	}
	msg, err := req.Bytes()
	if err != nil {
		return nil, err
	}
	sequenced := c.cfg.Connected.TransportClass >= 1 && c.cfg.Connected.TransportClass <= 3
	if sequenced {
		seq := make([]byte, 2)
		binary.LittleEndian.PutUint16(seq, c.nextSequence())
		msg = append(seq, msg...)
	}
	payload, _, err := c.transport.SendUnitData(c.cfg.Connected.O2TConnectionID, msg)
	if err != nil {
		return nil, err
	}
	if sequenced {
		if len(payload) < 2 {
			return nil, &datatypes.DataError{Msg: "connected reply missing sequence number"}
		}
		payload = payload[2:]
	}
	return req.Parser.Parse(payload, req)
}

// GetAttributesAll reads an object's get-all attributes.
func (c *Connection) GetAttributesAll(obj *cip.Object, instance uint32) (*cip.Response, error) {
	req, err := obj.GetAttributesAll(instance)
	if err != nil {
		return nil, err
	}
	return c.Send(req)
}

// GetAttributeSingle reads one attribute.
func (c *Connection) GetAttributeSingle(attr *cip.Attribute, instance uint32) (*cip.Response, error) {
	req, err := attr.Object.GetAttributeSingle(attr, instance)
	if err != nil {
		return nil, err
	}
	return c.Send(req)
}

// GetAttributeList reads several attributes of one object.
func (c *Connection) GetAttributeList(attrs []*cip.Attribute, instance uint32) (*cip.Response, error) {
	if len(attrs) == 0 {
		return nil, &cip.RequestError{Msg: "get_attribute_list requires at least one attribute"}
	}
	req, err := attrs[0].Object.GetAttributeList(attrs, instance)
	if err != nil {
		return nil, err
	}
	return c.Send(req)
}

// WithRoute returns a child connection sharing this connection's transport
// with the route extended; closing the child leaves the parent session
// untouched.
func (c *Connection) WithRoute(route string) (*Connection, error) {
	extended, err := c.cfg.Route.Extend(route)
	if err != nil {
		return nil, err
	}
	cfg := c.cfg
	cfg.Route = extended
	cfg.Connected.O2TConnectionID = 0
	cfg.Connected.T2OConnectionID = 0
	cfg.Connected.ConnectionSerial = 0
	cfg.Connected.OriginatorSerial = 0
	return NewConnection(cfg, c.transport, c.log), nil
}
