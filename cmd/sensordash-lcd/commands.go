package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/sensordash/internal/config"
	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/firmware"
	"github.com/muurk/sensordash/internal/framebuffer"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/serialport"
	"github.com/muurk/sensordash/internal/tui"
	"github.com/muurk/sensordash/internal/ui"
)

// Renderer names for --renderer
const (
	rendererLog = "log"
	rendererPNG = "png"
	rendererTUI = "tui"
)

// Run command flags
var (
	dialectName  string
	portName     string
	listenAddr   string
	baudRate     int
	rendererName string
	snapshotPath string
	pngScale     int
	panelWidth   int
	panelHeight  int
	voiceCap     int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "", "Display dialect (single, dual, mood)")
	rootCmd.PersistentFlags().IntVar(&panelWidth, "width", display.DefaultWidth, "Panel width in pixels")
	rootCmd.PersistentFlags().IntVar(&panelHeight, "height", display.DefaultHeight, "Panel height in pixels")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(layoutCmd)
}

// runCmd runs the display loop
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the display unit",
	Long: `Run the display control loop until interrupted.

Commands are read from a serial port (--port), from one TCP client at a
time (--listen), or from stdin when neither is given. Replies go back the
same way.`,
	Example: `  # Answer on a USB serial adapter, drawing to the log
  sensordash-lcd run --port /dev/ttyUSB0

  # Stand in for the cable: the hub can use --serial tcp://localhost:7000
  sensordash-lcd run --listen :7000 --renderer tui

  # Type commands by hand and keep a PNG of the screen
  sensordash-lcd run --renderer png --snapshot screen.png --scale 2`,
	RunE: runDisplay,
}

func init() {
	runCmd.Flags().StringVar(&portName, "port", "", "Serial port to answer on")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "TCP address to answer on instead of a serial port")
	runCmd.Flags().IntVar(&baudRate, "baud", serialport.DefaultBaud, "Serial baud rate")
	runCmd.Flags().StringVar(&rendererName, "renderer", "", "Screen output (log, png, tui)")
	runCmd.Flags().StringVar(&snapshotPath, "snapshot", "sensordash-screen.png", "PNG file written by the png renderer")
	runCmd.Flags().IntVar(&pngScale, "scale", 1, "PNG pixel scale")
	runCmd.Flags().IntVar(&voiceCap, "voice-cap", 0, "Voice text limit (0 = dialect default)")
}

// displaySettings is the config file section with flags applied
func displaySettings(cmd *cobra.Command) (*config.DisplayConfig, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}
	s := *reg.Display

	flags := cmd.Flags()
	if flags.Changed("dialect") {
		s.Dialect = dialectName
	}
	if flags.Changed("port") {
		s.Port = portName
	}
	if flags.Changed("listen") {
		s.Listen = listenAddr
	}
	if flags.Changed("width") {
		s.Width = panelWidth
	}
	if flags.Changed("height") {
		s.Height = panelHeight
	}
	if flags.Changed("baud") || s.Baud == 0 {
		s.Baud = baudRate
	}
	if flags.Changed("renderer") {
		s.Renderer = rendererName
	}
	if flags.Changed("snapshot") || s.Snapshot == "" {
		s.Snapshot = snapshotPath
	}
	if flags.Changed("scale") || s.Scale == 0 {
		s.Scale = pngScale
	}
	return &s, nil
}

func runDisplay(cmd *cobra.Command, args []string) error {
	settings, err := displaySettings(cmd)
	if err != nil {
		return err
	}
	if settings.Port != "" && settings.Listen != "" {
		return errors.New("--port and --listen are mutually exclusive")
	}

	dialect, err := protocol.ParseDialect(settings.Dialect)
	if err != nil {
		return err
	}

	source := "stdin"
	switch {
	case settings.Port != "":
		source = settings.Port
	case settings.Listen != "":
		source = "tcp " + settings.Listen
	}

	// the terminal belongs to the emulator, so zap stays quiet unless asked
	fallback := "info"
	if settings.Renderer == rendererTUI {
		fallback = ""
	}
	if err := initLogging(fallback); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fwConfig := firmware.Config{
		Dialect:  dialect,
		Width:    settings.Width,
		Height:   settings.Height,
		VoiceCap: voiceCap,
		Name:     source,
	}

	switch settings.Renderer {
	case rendererLog, "":
		return runLoop(ctx, settings, fwConfig, display.LogRenderer{})

	case rendererPNG:
		snap := &framebuffer.SnapshotRenderer{
			FB:    framebuffer.New(settings.Width, settings.Height),
			Path:  settings.Snapshot,
			Scale: settings.Scale,
		}
		logging.Info("Writing screen snapshots", zap.String("path", snap.Path), zap.Int("scale", snap.Scale))
		return runLoop(ctx, settings, fwConfig, display.MultiRenderer{display.LogRenderer{}, snap})

	case rendererTUI:
		if settings.Port == "" && settings.Listen == "" {
			return errors.New("the tui renderer needs --port or --listen; stdin and stdout belong to the terminal")
		}
		return runEmulator(ctx, settings, fwConfig)

	default:
		return fmt.Errorf("unknown renderer %q (want log, png or tui)", settings.Renderer)
	}
}

// runLoop drives the controller on the configured transport
func runLoop(ctx context.Context, settings *config.DisplayConfig, cfg firmware.Config, r display.Renderer, opts ...firmware.Option) error {
	if settings.Port == "" && settings.Listen == "" {
		cfg.IdleDelay = 10 * time.Millisecond
	}

	c, err := firmware.New(cfg, r, os.Stdout, opts...)
	if err != nil {
		return err
	}

	switch {
	case settings.Listen != "":
		return firmware.ServeTCP(ctx, c, settings.Listen)

	case settings.Port != "":
		port, err := serialport.Open(serialport.Config{
			Name:        settings.Port,
			Baud:        settings.Baud,
			ReadTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			return err
		}
		return firmware.RunPort(ctx, c, port)

	default:
		if err := c.Start(); err != nil {
			return err
		}
		err := c.Run(ctx, os.Stdin)
		stats := c.Stats()
		logging.Info("Input closed",
			zap.Int("lines", stats.Lines),
			zap.Int("accepted", stats.Accepted),
			zap.Int("rejected", stats.Rejected),
			zap.Int("overflows", stats.Overflows),
		)
		return err
	}
}

// runEmulator runs the terminal emulator in front of the loop. Quitting
// the emulator stops the loop and the other way round.
func runEmulator(ctx context.Context, settings *config.DisplayConfig, cfg firmware.Config) error {
	layout, err := display.NewLayout(cfg.Dialect, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}

	program := tui.NewProgram(layout, cfg.Name, tea.WithAltScreen(), tea.WithContext(ctx))
	renderer := tui.NewRenderer(program)

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoop := context.WithCancel(gctx)
	defer cancelLoop()

	g.Go(func() error {
		defer program.Quit()
		return runLoop(loopCtx, settings, cfg, renderer, firmware.WithObserver(renderer.Observe))
	})
	g.Go(func() error {
		defer cancelLoop()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("emulator: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// layoutCmd prints the box geometry of a dialect
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the screen layout of a dialect",
	Example: `  sensordash-lcd layout --dialect dual
  sensordash-lcd layout --dialect mood --width 320 --height 240`,
	RunE: runLayout,
}

func runLayout(cmd *cobra.Command, args []string) error {
	if err := initLogging(""); err != nil {
		return err
	}

	settings, err := displaySettings(cmd)
	if err != nil {
		return err
	}
	dialect, err := protocol.ParseDialect(settings.Dialect)
	if err != nil {
		return err
	}

	layout, err := display.NewLayout(dialect, settings.Width, settings.Height)
	if err != nil {
		return err
	}

	details := make(map[string]string)
	for _, b := range layout.Boxes() {
		details[b.ID.String()] = fmt.Sprintf("%dx%d at (%d,%d) %s %q",
			b.Rect.W, b.Rect.H, b.Rect.X, b.Rect.Y, b.Background.Hex(), b.Placeholder)
	}
	if r, ok := layout.MoodRect(); ok {
		details["MOOD"] = fmt.Sprintf("%dx%d at (%d,%d)", r.W, r.H, r.X, r.Y)
	}
	details["Voice limit"] = strconv.Itoa(dialect.VoiceCap())

	ui.PrintSuccess(fmt.Sprintf("%s layout, %dx%d", dialect, layout.Width, layout.Height), details)
	return nil
}
