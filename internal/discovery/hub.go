package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Hub is a sensordash hub found on the network
type Hub struct {
	// Instance is the advertised instance name (e.g. "sensordash-kitchen")
	Instance string

	// Hostname is the mDNS hostname (e.g. "kitchen-pc.local.")
	Hostname string

	// IP is the hub address, IPv4 when one was advertised
	IP string

	// Port is the HTTP port
	Port int

	// Dialect is the display dialect the hub drives (TXT "dialect")
	Dialect string

	// Version is the hub's build version (TXT "version")
	Version string

	// TLS is set when the hub serves HTTPS (TXT "tls=1")
	TLS bool

	// Metadata holds every TXT record
	Metadata map[string]string

	// DiscoveredAt is when the hub was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the hub
func (h *Hub) String() string {
	return fmt.Sprintf("sensordash hub %s (%s) at %s", h.Instance, h.Hostname, net.JoinHostPort(h.IP, strconv.Itoa(h.Port)))
}

// BaseURL returns the HTTP base URL for the hub
func (h *Hub) BaseURL() string {
	scheme := "http"
	if h.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(h.IP, strconv.Itoa(h.Port)))
}

// SensorURL is where the node posts readings
func (h *Hub) SensorURL() string {
	return h.BaseURL() + "/sensor"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (h *Hub) GetMetadata(key string) string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}
