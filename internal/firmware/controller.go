package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"go.uber.org/zap"
)

// readChunk is how many bytes one poll reads at most
const readChunk = 64

// Config holds the display unit configuration
type Config struct {
	Dialect  protocol.Dialect
	Width    int
	Height   int
	VoiceCap int // 0 = dialect default

	// IdleDelay is the pause after an empty poll. Serial ports opened with
	// a read timeout already wait inside Read and can set this to 0.
	IdleDelay time.Duration

	// Name identifies the transport in log lines
	Name string
}

// Event describes one handled command line
type Event struct {
	Time    time.Time
	Line    string
	Command protocol.Command
	Reply   string
	Request display.RenderRequest
}

// Controller is the display unit's control loop: bytes in, commands
// applied to the display state, changed regions repainted, replies out.
//
// A Controller is driven from a single goroutine. Nothing in it is locked.
type Controller struct {
	config  Config
	asm     *protocol.LineAssembler
	parser  protocol.Parser
	state   *display.State
	painter *display.Painter
	out     io.Writer

	observers []func(Event)
	stats     Stats
}

// Stats counts what the controller has handled
type Stats struct {
	Lines     int
	Accepted  int
	Rejected  int
	Overflows int
}

// Option configures a Controller
type Option func(*Controller)

// WithObserver registers a callback run after every handled line
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// WithStateOptions passes options through to display.NewState
func WithStateOptions(opts ...display.StateOption) Option {
	return func(c *Controller) {
		layout := c.state.Layout()
		c.state = display.NewState(layout, opts...)
	}
}

// New creates a controller that paints with r and writes replies to out
func New(cfg Config, r display.Renderer, out io.Writer, opts ...Option) (*Controller, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = protocol.DialectSingle
	}
	if cfg.Width == 0 {
		cfg.Width = display.DefaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = display.DefaultHeight
	}
	if cfg.Name == "" {
		cfg.Name = "lcd"
	}

	layout, err := display.NewLayout(cfg.Dialect, cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to build layout: %w", err)
	}

	parser := protocol.NewParser(cfg.Dialect)
	if cfg.VoiceCap > 0 {
		parser.VoiceCap = cfg.VoiceCap
	}

	c := &Controller{
		config:  cfg,
		asm:     protocol.NewLineAssembler(),
		parser:  parser,
		state:   display.NewState(layout),
		painter: display.NewPainter(r),
		out:     out,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the display state. Only read it from the goroutine that
// drives the controller.
func (c *Controller) State() *display.State {
	return c.state
}

// Stats returns the handled-line counters
func (c *Controller) Stats() Stats {
	s := c.stats
	s.Overflows = c.asm.Overflows()
	return s
}

// Start paints every region with its placeholder and announces readiness
func (c *Controller) Start() error {
	if err := c.painter.Render(c.state, c.state.Full()); err != nil {
		return fmt.Errorf("failed to paint initial screen: %w", err)
	}
	if err := c.writeLine(protocol.ReadyBanner); err != nil {
		return fmt.Errorf("failed to write ready banner: %w", err)
	}
	logging.Info("Display ready",
		zap.String("transport", c.config.Name),
		zap.String("dialect", string(c.config.Dialect)),
		zap.Int("width", c.config.Width),
		zap.Int("height", c.config.Height),
	)
	return nil
}

// Feed processes a chunk of received bytes, handling each completed line
// before looking at the next byte.
func (c *Controller) Feed(p []byte) {
	for _, b := range p {
		line, ok := c.asm.Feed(b)
		if !ok {
			continue
		}
		c.Handle(line)
	}
}

// Handle parses one line, updates and repaints the display, and writes the
// reply. Render and write failures are logged; the loop carries on.
func (c *Controller) Handle(line string) protocol.Command {
	c.stats.Lines++
	logging.LogSerialLine(c.config.Name, "rx", line)

	cmd := c.parser.Parse(line)
	reply := protocol.Reply(cmd)

	var req display.RenderRequest
	if cmd.Kind() == protocol.KindUnknown {
		c.stats.Rejected++
		logging.Warn("Unknown command", zap.String("line", line))
	} else {
		c.stats.Accepted++
		var changed bool
		req, changed = c.state.Apply(cmd)
		if changed {
			if err := c.painter.Render(c.state, req); err != nil {
				logging.Error("Render failed",
					zap.String("command", cmd.String()),
					zap.Error(err),
				)
			}
		}
	}

	if err := c.writeLine(reply); err != nil {
		logging.Error("Failed to write reply",
			zap.String("reply", reply),
			zap.Error(err),
		)
	}

	ev := Event{Time: time.Now(), Line: line, Command: cmd, Reply: reply, Request: req}
	for _, fn := range c.observers {
		fn(ev)
	}
	return cmd
}

// SetOutput switches where replies are written, for transports that
// reconnect.
func (c *Controller) SetOutput(w io.Writer) {
	c.out = w
}

func (c *Controller) writeLine(s string) error {
	if c.out == nil {
		return nil
	}
	logging.LogSerialLine(c.config.Name, "tx", s)
	_, err := io.WriteString(c.out, s+"\n")
	return err
}

// timeout is implemented by net errors for expired deadlines
type timeout interface {
	Timeout() bool
}

// Run polls r until ctx is cancelled or r reaches EOF. An empty read counts
// as "nothing available". Read errors other than EOF and timeouts are
// logged and polling continues.
func (c *Controller) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := r.Read(buf)
		if n > 0 {
			c.Feed(buf[:n])
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			logging.Info("Transport closed", zap.String("transport", c.config.Name))
			return nil
		case isTimeout(err):
		case ctx.Err() != nil:
			return nil
		default:
			logging.Warn("Transport read failed",
				zap.String("transport", c.config.Name),
				zap.Error(err),
			)
			if !c.idle(ctx, time.Second) {
				return nil
			}
			continue
		}

		if n == 0 && !c.idle(ctx, c.config.IdleDelay) {
			return nil
		}
	}
}

// idle waits d and reports whether the loop should keep going
func (c *Controller) idle(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func isTimeout(err error) bool {
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}
