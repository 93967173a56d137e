// Package cipclient implements the CIP connection state machine over an
// EtherNet/IP session: unconnected and connected explicit messaging, Forward
// Open / Forward Close, and routed sends through intermediate devices.
package cipclient

import (
	"github.com/tturner/cipnet/cip/objects"
	"github.com/tturner/cipnet/epath"
)

// StandardConnectionSize is the largest data size a standard Forward Open
// can carry; larger sizes auto-select the Large Forward Open.
const StandardConnectionSize = 511

// DefaultVendorID identifies this client in Forward Open requests.
const DefaultVendorID uint16 = 0xA455

// Sizing selects fixed or variable connection sizing.
type Sizing string

const (
	SizingFixed    Sizing = "fixed"
	SizingVariable Sizing = "variable"
)

// Direction selects which side initiates production on the connection.
type Direction string

const (
	DirectionClient Direction = "client"
	DirectionServer Direction = "server"
)

// UnconnectedConfig parameterises Unconnected Send wrapping.
type UnconnectedConfig struct {
	TickTime objects.TickTime
	NumTicks uint8
}

// DefaultUnconnectedConfig matches the common 1024ms x 1 timeout.
func DefaultUnconnectedConfig() UnconnectedConfig {
	return UnconnectedConfig{TickTime: objects.Tick1024ms, NumTicks: 1}
}

// ConnectedConfig parameterises Forward Open and connected messaging.
type ConnectedConfig struct {
	Type           objects.ConnectionType
	Priority       objects.ConnectionPriority
	Sizing         Sizing
	Size           uint16
	RedundantOwner bool

	// Connection identity; zero values are replaced with random ones at
	// Forward Open time.
	O2TConnectionID  uint32
	T2OConnectionID  uint32
	ConnectionSerial uint16
	VendorID         uint16
	OriginatorSerial uint32

	TimeoutMultiplier objects.TimeoutMultiplier
	// RPIs in microseconds.
	O2TRPI uint32
	T2ORPI uint32

	Direction         Direction
	ProductionTrigger objects.ProductionTrigger
	TransportClass    uint8
}

// DefaultConnectedConfig mirrors the defaults used against Logix-class
// targets.
func DefaultConnectedConfig() ConnectedConfig {
	return ConnectedConfig{
		Type:              objects.TypePointToPoint,
		Priority:          objects.PriorityHigh,
		Sizing:            SizingVariable,
		Size:              StandardConnectionSize,
		VendorID:          DefaultVendorID,
		TimeoutMultiplier: objects.TimeoutX512,
		O2TRPI:            2113537,
		T2ORPI:            2113537,
		Direction:         DirectionServer,
		ProductionTrigger: objects.TriggerApplicationObject,
		TransportClass:    3,
	}
}

// Config is the CIP-layer configuration of a connection.
type Config struct {
	Route       epath.Route
	Unconnected UnconnectedConfig
	Connected   ConnectedConfig
}

// DefaultConfig returns a Config with an empty route and default messaging
// parameters.
func DefaultConfig() Config {
	return Config{
		Unconnected: DefaultUnconnectedConfig(),
		Connected:   DefaultConnectedConfig(),
	}
}
