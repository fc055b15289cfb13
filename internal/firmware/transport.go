package firmware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// Port is what RunPort drives: a serial port or anything shaped like one
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// RunPort starts the display on an open port and runs until ctx is
// cancelled or the port closes.
func RunPort(ctx context.Context, c *Controller, port Port) error {
	c.SetOutput(port)
	if err := c.Start(); err != nil {
		return err
	}

	// unblock a pending Read when the context ends
	stop := context.AfterFunc(ctx, func() {
		_ = port.Close()
	})
	defer stop()

	return c.Run(ctx, port)
}

// ServeTCP listens on addr and plays the display for one client at a
// time, standing in for the serial cable. Each new client sees the ready
// banner; the display state carries over between clients.
func ServeTCP(ctx context.Context, c *Controller, addr string) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, c, listener)
}

// Serve is ServeTCP on an existing listener
func Serve(ctx context.Context, c *Controller, listener net.Listener) error {
	logging.Info("Display listening", zap.String("addr", listener.Addr().String()))

	var (
		mu   sync.Mutex
		conn net.Conn
	)
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
		mu.Lock()
		if conn != nil {
			_ = conn.Close()
		}
		mu.Unlock()
	})
	defer stop()

	for {
		next, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		remoteAddr := next.RemoteAddr().String()
		logging.LogConnection(remoteAddr, "connection_accepted")

		mu.Lock()
		conn = next
		mu.Unlock()

		c.SetOutput(next)
		if err := c.Start(); err != nil {
			logging.Warn("Failed to greet client", zap.String("remote_addr", remoteAddr), zap.Error(err))
		} else if err := c.Run(ctx, next); err != nil {
			logging.Warn("Client loop ended", zap.String("remote_addr", remoteAddr), zap.Error(err))
		}

		mu.Lock()
		_ = next.Close()
		conn = nil
		mu.Unlock()
		c.SetOutput(nil)
		logging.LogConnection(remoteAddr, "connection_closed")

		if ctx.Err() != nil {
			return nil
		}
	}
}
