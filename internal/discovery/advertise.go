package discovery

import (
	"context"
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// Advertisement describes the hub being announced
type Advertisement struct {
	Instance string // defaults to "sensordash-<hostname>"
	Port     int
	Dialect  string
	Version  string
	TLS      bool
}

// TXT returns the TXT records for the advertisement
func (a Advertisement) TXT() []string {
	records := []string{"path=/sensor"}
	if a.Dialect != "" {
		records = append(records, "dialect="+a.Dialect)
	}
	if a.Version != "" {
		records = append(records, "version="+a.Version)
	}
	if a.TLS {
		records = append(records, "tls=1")
	}
	return records
}

// InstanceName returns the instance name that will be announced
func (a Advertisement) InstanceName() string {
	if a.Instance != "" {
		return a.Instance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "hub"
	}
	return "sensordash-" + host
}

// Advertise announces the hub on every interface until ctx is cancelled
func Advertise(ctx context.Context, a Advertisement) error {
	if a.Port == 0 {
		a.Port = DefaultPort
	}
	instance := a.InstanceName()

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, a.Port, a.TXT(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logging.Info("Advertising hub",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
		zap.Strings("txt", a.TXT()),
	)

	<-ctx.Done()
	logging.Debug("Stopped advertising hub", zap.String("instance", instance))
	return nil
}
