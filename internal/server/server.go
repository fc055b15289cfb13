package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/sensordash/internal/bridge"
	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/shrink"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPort is the hub's HTTP port
const DefaultPort = 5000

// Config holds the server configuration
type Config struct {
	Host    string
	Port    int
	Dialect protocol.Dialect

	// DefaultDevice is used for readings without a "device" field when
	// the display runs the dual dialect
	DefaultDevice protocol.Device

	// VoiceCap is the display's voice text limit when it was started with
	// one other than its dialect's (0 = dialect default)
	VoiceCap int

	CertPath string // serve HTTPS when both paths are set
	KeyPath  string
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Display is the serial side of the hub
type Display interface {
	Send(ctx context.Context, line string) (protocol.Ack, error)
	Connect(ctx context.Context) error
	Connected() bool
	Stats() bridge.Stats
}

// Server is the hub: an HTTP API in front of the serial link to the
// display unit
type Server struct {
	config    *Config
	display   Display
	shrinker  *shrink.Shrinker
	events    *Hub
	tlsConfig *tls.Config

	// mirror holds what the display shows, built from acknowledged commands
	mu     sync.Mutex
	mirror *display.State
	parser protocol.Parser

	reconnect  singleflight.Group
	httpServer *http.Server
	listener   net.Listener
}

// New creates a new Server instance
func New(config *Config, d Display, shrinker *shrink.Shrinker) (*Server, error) {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Dialect == "" {
		config.Dialect = protocol.DialectSingle
	}
	if config.DefaultDevice == protocol.DeviceNone {
		config.DefaultDevice = protocol.DeviceA
	}
	if shrinker == nil {
		shrinker = shrink.NewShrinker(0)
	}

	layout, err := display.NewLayout(config.Dialect, display.DefaultWidth, display.DefaultHeight)
	if err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" && config.KeyPath != "" {
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    config,
		display:   d,
		shrinker:  shrinker,
		events:    NewHub(),
		tlsConfig: tlsConfig,
		mirror:    display.NewState(layout),
		parser:    protocol.Parser{Dialect: config.Dialect, VoiceCap: config.VoiceCap},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return s, nil
}

// Handler returns the hub's routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sensor", s.handleSensor)
	mux.HandleFunc("POST /voice", s.handleVoice)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return logRequests(mux)
}

// Start listens and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.listener = listener
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	logging.Info("Starting sensordash hub",
		zap.String("addr", listener.Addr().String()),
		zap.String("dialect", string(s.config.Dialect)),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Bool("serial_connected", s.display.Connected()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.events.Run(gctx)
	})
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops accepting requests and closes websocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down hub...")
	s.events.CloseAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	}
	logging.Sync()
	return nil
}

// Snapshot returns the hub's copy of the display state
func (s *Server) Snapshot() display.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.Snapshot()
}

// GetActiveConnections returns the number of websocket clients
func (s *Server) GetActiveConnections() int {
	return s.events.Clients()
}

// send forwards one line, reconnecting first if the port was lost. An
// acknowledged command is applied to the mirror and every exchange is
// broadcast to websocket clients.
func (s *Server) send(ctx context.Context, line string) (protocol.Ack, error) {
	if !s.display.Connected() {
		_, err, _ := s.reconnect.Do("connect", func() (interface{}, error) {
			return nil, s.display.Connect(ctx)
		})
		if err != nil {
			logging.Debug("Display still unreachable", zap.Error(err))
		}
	}

	ack, err := s.display.Send(ctx, line)

	ev := Event{Type: EventExchange, Time: time.Now(), Line: line, Reply: ack.Raw, OK: err == nil}
	if err != nil {
		ev.Error = err.Error()
	} else {
		cmd := s.parser.Parse(line)
		s.mu.Lock()
		_, _ = s.mirror.Apply(cmd)
		s.mu.Unlock()
	}
	s.events.Broadcast(ev)
	return ack, err
}
