// Package config loads YAML target configuration for the CLI and embedders.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/cipnet/cip/objects"
	"github.com/tturner/cipnet/cipclient"
	"github.com/tturner/cipnet/enip"
	"github.com/tturner/cipnet/epath"
)

// TargetConfig describes the device to talk to.
type TargetConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Route          string `yaml:"route,omitempty"`
}

// UnconnectedConfig tunes Unconnected Send wrapping.
type UnconnectedConfig struct {
	TickTimeMs int `yaml:"tick_time_ms,omitempty"`
	NumTicks   int `yaml:"num_ticks,omitempty"`
}

// ConnectedConfig tunes Forward Open parameters.
type ConnectedConfig struct {
	Type              string `yaml:"type,omitempty"`     // "null", "multicast", "point_to_point"
	Priority          string `yaml:"priority,omitempty"` // "low", "high", "scheduled", "urgent"
	Sizing            string `yaml:"sizing,omitempty"`   // "fixed", "variable"
	Size              int    `yaml:"size,omitempty"`
	RedundantOwner    bool   `yaml:"redundant_owner,omitempty"`
	TimeoutMultiplier int    `yaml:"timeout_multiplier,omitempty"` // 4..512
	O2TRPIUs          int    `yaml:"o_to_t_rpi_us,omitempty"`
	T2ORPIUs          int    `yaml:"t_to_o_rpi_us,omitempty"`
	Direction         string `yaml:"direction,omitempty"`          // "client", "server"
	ProductionTrigger string `yaml:"production_trigger,omitempty"` // "cyclic", "change_of_state", "application_object"
	TransportClass    *int   `yaml:"transport_class,omitempty"`    // 0..3
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Config is the full file layout.
type Config struct {
	Target      TargetConfig      `yaml:"target"`
	Unconnected UnconnectedConfig `yaml:"unconnected,omitempty"`
	Connected   ConnectedConfig   `yaml:"connected,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
	CaptureFile string            `yaml:"capture_file,omitempty"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.Target.Host == "" {
		return fmt.Errorf("target.host is required")
	}
	if c.Target.Port < 0 || c.Target.Port > 65535 {
		return fmt.Errorf("target.port out of range: %d", c.Target.Port)
	}
	if c.Unconnected.TickTimeMs != 0 {
		if _, err := tickTimeFromMs(c.Unconnected.TickTimeMs); err != nil {
			return err
		}
	}
	if c.Unconnected.NumTicks < 0 || c.Unconnected.NumTicks > 255 {
		return fmt.Errorf("unconnected.num_ticks out of range: %d", c.Unconnected.NumTicks)
	}
	if c.Connected.Size < 0 || c.Connected.Size > 65535 {
		return fmt.Errorf("connected.size out of range: %d", c.Connected.Size)
	}
	if c.Connected.TransportClass != nil {
		if tc := *c.Connected.TransportClass; tc < 0 || tc > 3 {
			return fmt.Errorf("connected.transport_class out of range: %d", tc)
		}
	}
	if _, err := epath.ParseRoute(c.Target.Route); err != nil {
		return fmt.Errorf("target.route: %w", err)
	}
	if c.Connected.TimeoutMultiplier != 0 {
		if _, err := timeoutMultiplier(c.Connected.TimeoutMultiplier); err != nil {
			return err
		}
	}
	for name, val := range map[string]string{
		"connected.type":               c.Connected.Type,
		"connected.priority":           c.Connected.Priority,
		"connected.sizing":             c.Connected.Sizing,
		"connected.direction":          c.Connected.Direction,
		"connected.production_trigger": c.Connected.ProductionTrigger,
	} {
		if err := validateEnum(name, val); err != nil {
			return err
		}
	}
	return nil
}

var enumValues = map[string][]string{
	"connected.type":               {"null", "multicast", "point_to_point"},
	"connected.priority":           {"low", "high", "scheduled", "urgent"},
	"connected.sizing":             {"fixed", "variable"},
	"connected.direction":          {"client", "server"},
	"connected.production_trigger": {"cyclic", "change_of_state", "application_object"},
}

func validateEnum(name, val string) error {
	if val == "" {
		return nil
	}
	for _, allowed := range enumValues[name] {
		if val == allowed {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q (allowed: %v)", name, val, enumValues[name])
}

func tickTimeFromMs(ms int) (objects.TickTime, error) {
	for t := objects.Tick1ms; t <= objects.Tick32768ms; t++ {
		if t.Milliseconds() == ms {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unconnected.tick_time_ms must be a power of two from 1 to 32768: %d", ms)
}

func timeoutMultiplier(n int) (objects.TimeoutMultiplier, error) {
	for m := objects.TimeoutX4; m <= objects.TimeoutX512; m++ {
		if 4<<uint(m) == n {
			return m, nil
		}
	}
	return 0, fmt.Errorf("connected.timeout_multiplier must be a power of two from 4 to 512: %d", n)
}

// ENIPConfig converts the target section into a transport config.
func (c *Config) ENIPConfig() enip.Config {
	timeout := time.Duration(c.Target.TimeoutSeconds) * time.Second
	return enip.Config{
		Host:    c.Target.Host,
		Port:    c.Target.Port,
		Timeout: timeout,
	}
}

// ClientConfig converts the CIP sections into a cipclient config.
func (c *Config) ClientConfig() (cipclient.Config, error) {
	cfg := cipclient.DefaultConfig()
	route, err := epath.ParseRoute(c.Target.Route)
	if err != nil {
		return cfg, err
	}
	cfg.Route = route
	if c.Unconnected.TickTimeMs != 0 {
		if cfg.Unconnected.TickTime, err = tickTimeFromMs(c.Unconnected.TickTimeMs); err != nil {
			return cfg, err
		}
	}
	if c.Unconnected.NumTicks != 0 {
		cfg.Unconnected.NumTicks = uint8(c.Unconnected.NumTicks)
	}
	cc := &cfg.Connected
	switch c.Connected.Type {
	case "null":
		cc.Type = objects.TypeNull
	case "multicast":
		cc.Type = objects.TypeMulticast
	case "point_to_point":
		cc.Type = objects.TypePointToPoint
	}
	switch c.Connected.Priority {
	case "low":
		cc.Priority = objects.PriorityLow
	case "high":
		cc.Priority = objects.PriorityHigh
	case "scheduled":
		cc.Priority = objects.PriorityScheduled
	case "urgent":
		cc.Priority = objects.PriorityUrgent
	}
	switch c.Connected.Sizing {
	case "fixed":
		cc.Sizing = cipclient.SizingFixed
	case "variable":
		cc.Sizing = cipclient.SizingVariable
	}
	if c.Connected.Size != 0 {
		cc.Size = uint16(c.Connected.Size)
	}
	cc.RedundantOwner = c.Connected.RedundantOwner
	if c.Connected.TimeoutMultiplier != 0 {
		if cc.TimeoutMultiplier, err = timeoutMultiplier(c.Connected.TimeoutMultiplier); err != nil {
			return cfg, err
		}
	}
	if c.Connected.O2TRPIUs != 0 {
		cc.O2TRPI = uint32(c.Connected.O2TRPIUs)
	}
	if c.Connected.T2ORPIUs != 0 {
		cc.T2ORPI = uint32(c.Connected.T2ORPIUs)
	}
	switch c.Connected.Direction {
	case "client":
		cc.Direction = cipclient.DirectionClient
	case "server":
		cc.Direction = cipclient.DirectionServer
	}
	switch c.Connected.ProductionTrigger {
	case "cyclic":
		cc.ProductionTrigger = objects.TriggerCyclic
	case "change_of_state":
		cc.ProductionTrigger = objects.TriggerChangeOfState
	case "application_object":
		cc.ProductionTrigger = objects.TriggerApplicationObject
	}
	if c.Connected.TransportClass != nil {
		cc.TransportClass = uint8(*c.Connected.TransportClass)
	}
	return cfg, nil
}
