// Package serialport opens the serial link between the hub and the display
// unit. Both ends use 8N1 framing at 115200 baud by default; the read
// timeout turns blocking reads into the polling reads the control loops
// expect.
package serialport

import (
	"fmt"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaud is the link speed used by every sensordash device
const DefaultBaud = 115200

// Config describes a port to open
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration // 0 blocks until data arrives
}

// Port is the subset of serial.Port the sensordash tools use
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

var _ Port = (serial.Port)(nil)

// Open opens and configures a serial port
func Open(cfg Config) (serial.Port, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.Open(cfg.Name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = serial.NoTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Name, err)
	}

	logging.Info("Serial port opened",
		zap.String("port", cfg.Name),
		zap.Int("baud", baud),
		zap.Duration("read_timeout", cfg.ReadTimeout),
	)
	return port, nil
}

// List returns the names of the serial ports present on the system
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
