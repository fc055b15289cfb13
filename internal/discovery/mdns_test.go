package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name:     "IPv4 hub",
			entry:    entry("sensordash-kitchen", "kitchen.local.", 5000, []net.IP{net.ParseIP("192.168.1.20")}, nil),
			wantIP:   "192.168.1.20",
			wantPort: 5000,
		},
		{
			name:     "custom port",
			entry:    entry("sensordash-lab", "lab.local.", 8080, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name:     "no port defaults",
			entry:    entry("sensordash-lab", "lab.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name:     "IPv6 only",
			entry:    entry("sensordash-v6", "v6.local.", 5000, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantIP:   "fe80::1",
			wantPort: 5000,
		},
		{
			name:     "prefers IPv4",
			entry:    entry("sensordash-both", "both.local.", 5000, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantIP:   "192.168.1.50",
			wantPort: 5000,
		},
		{
			name:    "no address",
			entry:   entry("sensordash-ghost", "ghost.local.", 5000, nil, nil),
			wantNil: true,
		},
		{
			name:    "no instance",
			entry:   entry("", "anon.local.", 5000, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if hub != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", hub)
				}
				return
			}
			if hub == nil {
				t.Fatal("parseServiceEntry() = nil, want hub")
			}
			if hub.IP != tt.wantIP {
				t.Errorf("hub.IP = %v, want %v", hub.IP, tt.wantIP)
			}
			if hub.Port != tt.wantPort {
				t.Errorf("hub.Port = %v, want %v", hub.Port, tt.wantPort)
			}
			if hub.Instance != tt.entry.Instance {
				t.Errorf("hub.Instance = %v, want %v", hub.Instance, tt.entry.Instance)
			}
			if time.Since(hub.DiscoveredAt) > time.Second {
				t.Errorf("hub.DiscoveredAt is not recent: %v", hub.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	e := entry("sensordash-kitchen", "kitchen.local.", 5443, []net.IP{net.ParseIP("192.168.1.20")}, nil,
		"path=/sensor", "dialect=dual", "version=v0.3.0", "tls=1", "flag")

	hub := parseServiceEntry(e)
	if hub == nil {
		t.Fatal("parseServiceEntry() = nil, want hub")
	}
	if hub.Dialect != "dual" || hub.Version != "v0.3.0" || !hub.TLS {
		t.Errorf("hub = %+v", hub)
	}
	if v, ok := hub.Metadata["flag"]; !ok || v != "" {
		t.Errorf("Metadata[flag] = %q, %v, want empty, true", v, ok)
	}
	if hub.GetMetadata("path") != "/sensor" {
		t.Errorf("GetMetadata(path) = %q", hub.GetMetadata("path"))
	}
	if hub.SensorURL() != "https://192.168.1.20:5443/sensor" {
		t.Errorf("SensorURL() = %q", hub.SensorURL())
	}
}

func TestAdvertisementTXTRoundTrip(t *testing.T) {
	a := Advertisement{Instance: "sensordash-test", Port: 5000, Dialect: "mood", Version: "dev"}
	e := entry(a.InstanceName(), "test.local.", a.Port, []net.IP{net.ParseIP("127.0.0.1")}, nil, a.TXT()...)

	hub := parseServiceEntry(e)
	if hub == nil {
		t.Fatal("parseServiceEntry() = nil")
	}
	if hub.Dialect != "mood" || hub.Version != "dev" || hub.TLS {
		t.Errorf("hub = %+v", hub)
	}
	if hub.Instance != "sensordash-test" {
		t.Errorf("Instance = %q", hub.Instance)
	}
}

func TestAdvertisementDefaultInstance(t *testing.T) {
	name := Advertisement{}.InstanceName()
	if len(name) <= len("sensordash-") || name[:len("sensordash-")] != "sensordash-" {
		t.Errorf("InstanceName() = %q, want sensordash-<host>", name)
	}
}
