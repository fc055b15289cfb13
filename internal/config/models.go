package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/sanity-io/litter"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Registry represents the entire configuration file.
// Each tool reads its own section; flags override file values.
type Registry struct {
	Version int                `yaml:"version"`
	Display *DisplayConfig     `yaml:"display,omitempty"`
	Hub     *HubConfig         `yaml:"hub,omitempty"`
	Node    *NodeConfig        `yaml:"node,omitempty"`
	Devices map[string]*Device `yaml:"devices,omitempty"` // keyed by device letter, A or B
}

// DisplayConfig configures the display unit emulator (sensordash-lcd)
type DisplayConfig struct {
	Dialect  string `yaml:"dialect"`            // single, dual or mood
	Renderer string `yaml:"renderer,omitempty"` // log, png or tui
	Port     string `yaml:"port,omitempty"`     // serial device to answer on
	Listen   string `yaml:"listen,omitempty"`   // TCP address to answer on instead
	Baud     int    `yaml:"baud,omitempty"`
	Width    int    `yaml:"width"`              // panel pixels
	Height   int    `yaml:"height"`             // panel pixels
	Scale    int    `yaml:"scale,omitempty"`    // png pixel scale
	Snapshot string `yaml:"snapshot,omitempty"` // png output file
}

// HubConfig configures the hub (sensordash-hub)
type HubConfig struct {
	Listen        string        `yaml:"listen"`
	SerialPort    string        `yaml:"serial_port"`
	Baud          int           `yaml:"baud,omitempty"`
	Dialect       string        `yaml:"dialect"`
	DefaultDevice string        `yaml:"default_device,omitempty"`
	AnalysisDir   string        `yaml:"analysis_dir,omitempty"` // JSONL capture of every exchange
	Advertise     bool          `yaml:"advertise"`              // announce over mDNS
	ResetDelay    time.Duration `yaml:"reset_delay,omitempty"`
	CertFile      string        `yaml:"cert_file,omitempty"`
	KeyFile       string        `yaml:"key_file,omitempty"`
	ShrinkCache   int           `yaml:"shrink_cache,omitempty"`
	VoiceCap      int           `yaml:"voice_cap,omitempty"` // the display's --voice-cap, if it has one
}

// NodeConfig configures the sensor node (sensordash-node)
type NodeConfig struct {
	HubURL          string        `yaml:"hub_url,omitempty"` // empty means discover over mDNS
	Interval        time.Duration `yaml:"interval"`
	Device          string        `yaml:"device,omitempty"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay"`
	Source          string        `yaml:"source"` // simulated or serial
	SourcePort      string        `yaml:"source_port,omitempty"`
	Seed            uint64        `yaml:"seed,omitempty"`
	MQTTBroker      string        `yaml:"mqtt_broker,omitempty"`
	MQTTTopic       string        `yaml:"mqtt_topic,omitempty"`
}

// Device holds user metadata for one sensor unit
type Device struct {
	Nickname string `yaml:"nickname,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// Source kinds for NodeConfig.Source
const (
	SourceSimulated = "simulated"
	SourceSerial    = "serial"
)

// NewRegistry creates a Registry with default values
func NewRegistry() *Registry {
	r := &Registry{Version: CurrentVersion}
	r.applyDefaults()
	return r
}

func (r *Registry) applyDefaults() {
	if r.Display == nil {
		r.Display = &DisplayConfig{}
	}
	if r.Display.Dialect == "" {
		r.Display.Dialect = string(protocol.DialectSingle)
	}
	if r.Display.Renderer == "" {
		r.Display.Renderer = "log"
	}
	if r.Display.Width == 0 {
		r.Display.Width = display.DefaultWidth
	}
	if r.Display.Height == 0 {
		r.Display.Height = display.DefaultHeight
	}

	if r.Hub == nil {
		r.Hub = &HubConfig{Advertise: true}
	}
	if r.Hub.Listen == "" {
		r.Hub.Listen = "0.0.0.0:5000"
	}
	if r.Hub.Dialect == "" {
		r.Hub.Dialect = string(protocol.DialectSingle)
	}

	if r.Node == nil {
		r.Node = &NodeConfig{}
	}
	if r.Node.Interval == 0 {
		r.Node.Interval = 2 * time.Second
	}
	if r.Node.ConnectAttempts == 0 {
		r.Node.ConnectAttempts = 20
	}
	if r.Node.ConnectDelay == 0 {
		r.Node.ConnectDelay = 500 * time.Millisecond
	}
	if r.Node.Source == "" {
		r.Node.Source = SourceSimulated
	}

	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
}

// Validate checks values that the tools would otherwise reject later
func (r *Registry) Validate() error {
	if _, err := protocol.ParseDialect(r.Display.Dialect); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if r.Display.Width < 0 || r.Display.Height < 0 {
		return fmt.Errorf("display: invalid panel size %dx%d", r.Display.Width, r.Display.Height)
	}
	if _, err := protocol.ParseDialect(r.Hub.Dialect); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if _, err := protocol.ParseDevice(r.Hub.DefaultDevice); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if _, err := protocol.ParseDevice(r.Node.Device); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	switch r.Node.Source {
	case SourceSimulated, SourceSerial:
	default:
		return fmt.Errorf("node: unknown source %q (expected simulated or serial)", r.Node.Source)
	}
	if r.Node.Source == SourceSerial && r.Node.SourcePort == "" {
		return fmt.Errorf("node: source_port is required for the serial source")
	}
	for id := range r.Devices {
		d, err := protocol.ParseDevice(id)
		if err != nil || d == protocol.DeviceNone {
			return fmt.Errorf("devices: %q is not a device letter (expected A or B)", id)
		}
	}
	return nil
}

// GetDevice retrieves device metadata by letter.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(id string) *Device {
	return r.Devices[id]
}

// EnsureDevice returns the entry for id, creating it when missing
func (r *Registry) EnsureDevice(id string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if device, exists := r.Devices[id]; exists {
		return device
	}
	device := &Device{}
	r.Devices[id] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device
func (r *Registry) SetDeviceNickname(id, nickname string) {
	r.EnsureDevice(id).Nickname = nickname
}

// DeviceLabel returns the nickname for id, or id itself
func (r *Registry) DeviceLabel(id string) string {
	if d := r.Devices[id]; d != nil && d.Nickname != "" {
		return d.Nickname
	}
	return id
}

// DeviceIDs returns the configured device letters in order
func (r *Registry) DeviceIDs() []string {
	ids := make([]string, 0, len(r.Devices))
	for id := range r.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dump returns a Go-syntax dump of the registry for debugging
func (r *Registry) Dump() string {
	return litter.Sdump(r)
}
