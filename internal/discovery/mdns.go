package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type hubs advertise
	ServiceType = "_sensordash._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for hub discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the hub's HTTP port when the record has none
	DefaultPort = 5000
)

// Scanner handles mDNS hub discovery
type Scanner struct {
	// Timeout is the maximum time to wait for hub discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForHubs collects every hub that answers within the timeout
func (s *Scanner) ScanForHubs(ctx context.Context) ([]*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu   sync.Mutex
		hubs []*Hub
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// the resolver closes entries once ctx is done
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if hub := parseServiceEntry(entry); hub != nil {
				logging.Debug("Hub discovered", zap.String("hub", hub.String()))
				mu.Lock()
				hubs = append(hubs, hub)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return hubs, nil
}

// WaitForHub returns the first hub with the given instance name, or the
// first hub at all when instance is empty
func (s *Scanner) WaitForHub(ctx context.Context, instance string) (*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Hub, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			hub := parseServiceEntry(entry)
			if hub == nil || (instance != "" && hub.Instance != instance) {
				continue
			}
			select {
			case found <- hub:
				cancel()
			default:
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case hub := <-found:
		return hub, nil
	case <-ctx.Done():
		// a hub may have arrived together with the cancel
		select {
		case hub := <-found:
			return hub, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no sensordash hub found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("hub %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Hub.
// Returns nil when the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Hub {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := parseTXT(entry.Text)
	return &Hub{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Dialect:      metadata["dialect"],
		Version:      metadata["version"],
		TLS:          metadata["tls"] == "1",
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" records; a bare key maps to ""
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// FindHub looks for any hub with the default timeout
func FindHub(ctx context.Context) (*Hub, error) {
	return NewScanner().WaitForHub(ctx, "")
}
