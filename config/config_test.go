package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tturner/cipnet/cip/objects"
	"github.com/tturner/cipnet/cipclient"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cipnet.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
target:
  host: 10.0.0.5
  port: 44818
  timeout_seconds: 10
  route: "1/0"
unconnected:
  tick_time_ms: 2048
  num_ticks: 3
connected:
  type: point_to_point
  priority: high
  sizing: variable
  size: 4000
  timeout_multiplier: 32
  o_to_t_rpi_us: 1000000
  t_to_o_rpi_us: 1000000
  direction: server
  production_trigger: application_object
  transport_class: 3
log:
  level: debug
capture_file: out.pcap
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.Host != "10.0.0.5" || cfg.CaptureFile != "out.pcap" {
		t.Fatalf("cfg = %+v", cfg)
	}
	client, err := cfg.ClientConfig()
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if client.Route.Empty() {
		t.Fatal("route not parsed")
	}
	if client.Unconnected.TickTime != objects.Tick2048ms || client.Unconnected.NumTicks != 3 {
		t.Fatalf("unconnected = %+v", client.Unconnected)
	}
	if client.Connected.Size != 4000 || client.Connected.TimeoutMultiplier != objects.TimeoutX32 {
		t.Fatalf("connected = %+v", client.Connected)
	}
	if client.Connected.Type != objects.TypePointToPoint || client.Connected.Direction != cipclient.DirectionServer {
		t.Fatalf("connected = %+v", client.Connected)
	}
	enipCfg := cfg.ENIPConfig()
	if enipCfg.Host != "10.0.0.5" || enipCfg.Timeout.Seconds() != 10 {
		t.Fatalf("enip = %+v", enipCfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"missing host", "target:\n  port: 44818\n"},
		{"bad tick time", "target:\n  host: h\nunconnected:\n  tick_time_ms: 3\n"},
		{"bad multiplier", "target:\n  host: h\nconnected:\n  timeout_multiplier: 5\n"},
		{"bad transport class", "target:\n  host: h\nconnected:\n  transport_class: 9\n"},
		{"bad route", "target:\n  host: h\n  route: \"1/0/2\"\n"},
		{"bad enum", "target:\n  host: h\nconnected:\n  priority: extreme\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultsWhenOmitted(t *testing.T) {
	cfg, err := Load(writeConfig(t, "target:\n  host: plc.local\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	client, err := cfg.ClientConfig()
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	def := cipclient.DefaultConfig()
	if client.Connected.Size != def.Connected.Size || client.Unconnected.TickTime != def.Unconnected.TickTime {
		t.Fatalf("defaults not preserved: %+v", client)
	}
}
