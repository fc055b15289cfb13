package serialport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// TCPPrefix marks a port name as a TCP address. The display emulator can
// listen on TCP so the hub can be run against it without hardware.
const TCPPrefix = "tcp://"

// netPort adapts a net.Conn to Port. The read timeout is applied as a
// deadline before every Read.
type netPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

func (p *netPort) Read(b []byte) (int, error) {
	var deadline time.Time
	if p.readTimeout > 0 {
		deadline = time.Now().Add(p.readTimeout)
	}
	// net.Pipe refuses a deadline once either end is closed
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, closedAsEOF(err)
	}
	n, err := p.conn.Read(b)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		// match serial ports: a timeout is an empty read
		return n, nil
	}
	return n, closedAsEOF(err)
}

// closedAsEOF reports a closed connection as the end of input, the way
// a serial port whose device went away ends the read loop
func closedAsEOF(err error) error {
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return io.EOF
	}
	return err
}

func (p *netPort) Write(b []byte) (int, error) { return p.conn.Write(b) }
func (p *netPort) Drain() error { return nil }
func (p *netPort) Close() error { return p.conn.Close() }
func (p *netPort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

// ResetInputBuffer discards whatever is already waiting on the connection
func (p *netPort) ResetInputBuffer() error {
	buf := make([]byte, 256)
	for {
		if err := p.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return err
		}
		n, err := p.conn.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
	return p.conn.SetReadDeadline(time.Time{})
}

// NewNetPort wraps an established connection
func NewNetPort(conn net.Conn, readTimeout time.Duration) Port {
	return &netPort{conn: conn, readTimeout: readTimeout}
}

// OpenAny opens cfg.Name as a serial device, or dials it when it carries
// the tcp:// prefix.
func OpenAny(cfg Config) (Port, error) {
	if addr, ok := strings.CutPrefix(cfg.Name, TCPPrefix); ok {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		logging.LogConnection(addr, "tcp_port_connected")
		logging.Debug("Using TCP port", zap.String("addr", addr))
		return NewNetPort(conn, cfg.ReadTimeout), nil
	}
	return Open(cfg)
}
