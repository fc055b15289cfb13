package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/sensordash/internal/bridge"
	"github.com/muurk/sensordash/internal/config"
	"github.com/muurk/sensordash/internal/discovery"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/retry"
	"github.com/muurk/sensordash/internal/serialport"
	"github.com/muurk/sensordash/internal/server"
	"github.com/muurk/sensordash/internal/shrink"
	"github.com/muurk/sensordash/internal/ui"
	"github.com/muurk/sensordash/internal/version"
)

// Serial link flags, shared by serve and send
var (
	serialPort  string
	baudRate    int
	dialectName string
	resetDelay  time.Duration
)

// Serve flags
var (
	listenAddr    string
	defaultDevice string
	analysisDir   string
	noAdvertise   bool
	certPath      string
	keyPath       string
	voiceCap      int
)

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, sendCmd} {
		cmd.Flags().StringVar(&serialPort, "serial", "", "Serial port of the display (or tcp://host:port)")
		cmd.Flags().IntVar(&baudRate, "baud", serialport.DefaultBaud, "Serial baud rate")
		cmd.Flags().StringVar(&dialectName, "dialect", "", "Display dialect (single, dual, mood)")
		cmd.Flags().DurationVar(&resetDelay, "reset-delay", bridge.DefaultResetDelay, "Wait after opening the port while the display reboots (negative = none)")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(shrinkCmd)
	rootCmd.AddCommand(portsCmd)
}

// hubSettings is the config file section with flags applied
func hubSettings(cmd *cobra.Command) (*config.HubConfig, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}
	s := *reg.Hub

	flags := cmd.Flags()
	if flags.Changed("serial") {
		s.SerialPort = serialPort
	}
	if flags.Changed("baud") || s.Baud == 0 {
		s.Baud = baudRate
	}
	if flags.Changed("dialect") {
		s.Dialect = dialectName
	}
	if flags.Changed("reset-delay") || s.ResetDelay == 0 {
		s.ResetDelay = resetDelay
	}
	if flags.Changed("listen") {
		s.Listen = listenAddr
	}
	if flags.Changed("device") {
		s.DefaultDevice = defaultDevice
	}
	if flags.Changed("analysis-dir") {
		s.AnalysisDir = analysisDir
	}
	if flags.Changed("no-advertise") {
		s.Advertise = !noAdvertise
	}
	if flags.Changed("cert") {
		s.CertFile = certPath
	}
	if flags.Changed("key") {
		s.KeyFile = keyPath
	}
	if flags.Changed("voice-cap") {
		s.VoiceCap = voiceCap
	}
	return &s, nil
}

// newBridge builds the serial link described by the settings
func newBridge(s *config.HubConfig) (*bridge.Bridge, error) {
	dialect, err := protocol.ParseDialect(s.Dialect)
	if err != nil {
		return nil, err
	}
	return bridge.New(bridge.Config{
		Port:        s.SerialPort,
		Baud:        s.Baud,
		Dialect:     dialect,
		ResetDelay:  s.ResetDelay,
		AnalysisDir: s.AnalysisDir,
	})
}

// connectBridge opens the link, retrying a few times. Failure is not
// fatal for serve: the server reconnects on the next request.
func connectBridge(ctx context.Context, b *bridge.Bridge) retry.Result {
	policy := retry.Policy{MaxAttempts: 3, Delay: time.Second}
	return policy.Do(ctx, "connect display", func(attempt int) error {
		return b.Connect(ctx)
	})
}

// serveCmd runs the hub
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hub",
	Long: `Run the hub HTTP API and forward readings to the display.

Endpoints:
  POST /sensor   {"temp": 23.5, "humidity": 41, "moisture": 1800, "device": "A"}
  POST /voice    {"text": "please water the plants", "shrink": true}
  GET  /health   {"status": "ok", "serial_connected": true}
  GET  /state    the hub's copy of what the display shows
  GET  /ws       websocket stream of every exchange

If the serial port cannot be opened the hub starts anyway and retries on
the next request.`,
	Example: `  # Display on a USB adapter
  sensordash-hub serve --serial /dev/ttyUSB0

  # Two sensor units on the dual layout, capturing every exchange
  sensordash-hub serve --serial /dev/ttyACM0 --dialect dual --analysis-dir ./captures

  # Against the emulator: sensordash-lcd run --listen :7000
  sensordash-hub serve --serial tcp://localhost:7000 --reset-delay -1s`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (default 0.0.0.0:5000)")
	serveCmd.Flags().StringVar(&defaultDevice, "device", "", "Device for readings without one, dual dialect only (A or B)")
	serveCmd.Flags().StringVar(&analysisDir, "analysis-dir", "", "Directory for JSONL captures of every exchange")
	serveCmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "Do not announce the hub over mDNS")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "TLS certificate file (serve HTTPS)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "TLS private key file")
	serveCmd.Flags().IntVar(&voiceCap, "voice-cap", 0, "Voice text limit the display was started with (0 = dialect default)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := initLogging("info"); err != nil {
		return err
	}
	defer logging.Sync()

	s, err := hubSettings(cmd)
	if err != nil {
		return err
	}
	if (s.CertFile == "") != (s.KeyFile == "") {
		return errors.New("both --cert and --key must be provided together, or neither")
	}
	if s.AnalysisDir != "" {
		info, err := os.Stat(s.AnalysisDir)
		if err != nil {
			return fmt.Errorf("cannot access analysis directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("analysis path is not a directory: %s", s.AnalysisDir)
		}
	}

	host, portStr, err := net.SplitHostPort(s.Listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.Listen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}
	device, err := protocol.ParseDevice(s.DefaultDevice)
	if err != nil {
		return err
	}

	link, err := newBridge(s)
	if err != nil {
		return err
	}
	defer link.Close()

	cfg := &server.Config{
		Host:          host,
		Port:          port,
		Dialect:       link.Config().Dialect,
		DefaultDevice: device,
		VoiceCap:      s.VoiceCap,
		CertPath:      s.CertFile,
		KeyPath:       s.KeyFile,
	}
	srv, err := server.New(cfg, link, shrink.NewShrinker(s.ShrinkCache))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	params := map[string]string{
		"Listen":    cfg.Addr(),
		"Serial":    s.SerialPort,
		"Dialect":   string(cfg.Dialect),
		"Advertise": strconv.FormatBool(s.Advertise),
	}
	if s.AnalysisDir != "" {
		params["Captures"] = s.AnalysisDir
	}
	if s.CertFile != "" {
		params["TLS"] = s.CertFile
	}
	ui.PrintCommandHeader("Sensordash Hub", "sensordash-hub serve", params)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.SerialPort == "" {
		logging.Warn("No serial port configured; readings will fail until one is set")
	} else if res := connectBridge(ctx, link); !res.Success {
		logging.Warn("Display not connected, continuing without it",
			zap.String("port", s.SerialPort),
			zap.Int("attempts", res.Attempts),
			zap.Error(res.Err),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if s.Advertise {
		g.Go(func() error {
			err := discovery.Advertise(gctx, discovery.Advertisement{
				Port:    port,
				Dialect: string(cfg.Dialect),
				Version: version.Version,
				TLS:     s.CertFile != "",
			})
			if err != nil {
				// nodes can still be pointed at the hub by URL
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// sendCmd sends command lines straight to the display
var sendCmd = &cobra.Command{
	Use:   "send LINE...",
	Short: "Send command lines to the display",
	Long: `Open the serial link, send each line and print the display's replies.

Lines are checked against the dialect first and are not sent if the
display would reject them.`,
	Example: `  sensordash-hub send --serial /dev/ttyUSB0 "S T 23.5" "S H 41"
  sensordash-hub send --serial /dev/ttyUSB0 --dialect dual "S A T 23.5" "V B hello"
  sensordash-hub send --serial tcp://localhost:7000 --reset-delay -1s "V WATER ME" U`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := initLogging(""); err != nil {
		return err
	}
	defer logging.Sync()

	s, err := hubSettings(cmd)
	if err != nil {
		return err
	}
	link, err := newBridge(s)
	if err != nil {
		return err
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := link.Connect(ctx); err != nil {
		ui.PrintFailure("Could not open the display link", err, linkTroubleshooting(s.SerialPort, err))
		return err
	}

	details := make(map[string]string, len(args))
	var failed []error
lines:
	for _, line := range args {
		ack, err := link.Send(ctx, line)
		switch {
		case err == nil:
			details[line] = ack.Raw
		case bridge.IsRejectedError(err):
			details[line] = ack.Raw
			failed = append(failed, err)
		default:
			details[line] = err.Error()
			failed = append(failed, err)
			// the port was dropped, nothing after this can go out
			if bridge.IsPortError(err) || bridge.IsNotConnectedError(err) {
				break lines
			}
		}
	}

	stats := link.Stats()
	details["Sent"] = strconv.FormatInt(stats.Sent, 10)
	details["Failed"] = strconv.FormatInt(stats.Failed, 10)

	if len(failed) > 0 {
		ui.PrintWarning(fmt.Sprintf("%d of %d lines failed", len(failed), len(args)), details)
		return errors.Join(failed...)
	}
	ui.PrintSuccess("Display acknowledged every line", details)
	return nil
}

func linkTroubleshooting(port string, err error) []string {
	switch {
	case port == "":
		return []string{"Pass --serial or set hub.serial_port in the config file"}
	case strings.HasPrefix(port, serialport.TCPPrefix):
		return []string{
			"Check that 'sensordash-lcd run --listen' is running at " + strings.TrimPrefix(port, serialport.TCPPrefix),
			"Only one client can talk to the emulator at a time",
		}
	case bridge.IsPortError(err):
		return []string{
			"Run 'sensordash-hub ports' to list serial ports",
			"Check that your user may open " + port + " (dialout group)",
			"Close other programs holding the port, such as a serial monitor",
		}
	}
	return nil
}

// shrinkCmd previews how voice text is shortened for the panel
var shrinkCmd = &cobra.Command{
	Use:   "shrink TEXT...",
	Short: "Show how voice text is shortened for the display",
	Example: `  sensordash-hub shrink "could you please turn on the lights"
  sensordash-hub shrink "what is the temperature in the greenhouse"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(""); err != nil {
			return err
		}
		text := strings.Join(args, " ")
		details := map[string]string{
			"Input":    text,
			"Result":   shrink.Shrink(text),
			"Keywords": shrink.Keywords(text, shrink.MaxKeywords),
		}
		if intent, ok := shrink.Intent(text); ok {
			details["Intent"] = intent
		}
		ui.PrintSuccess("Voice text", details)
		return nil
	},
}

// portsCmd lists serial ports
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(""); err != nil {
			return err
		}
		ports, err := serialport.List()
		if err != nil {
			ui.PrintFailure("Could not list serial ports", err, nil)
			return err
		}
		if len(ports) == 0 {
			ui.PrintWarning("No serial ports found", map[string]string{
				"Hint": "plug in the display's USB cable",
			})
			return nil
		}
		details := make(map[string]string, len(ports))
		for i, p := range ports {
			details[strconv.Itoa(i+1)] = p
		}
		ui.PrintSuccess(fmt.Sprintf("%d serial port(s)", len(ports)), details)
		return nil
	},
}
