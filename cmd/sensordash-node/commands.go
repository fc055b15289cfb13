package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/sensordash/internal/config"
	"github.com/muurk/sensordash/internal/discovery"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/retry"
	"github.com/muurk/sensordash/internal/sensor"
	"github.com/muurk/sensordash/internal/serialport"
	"github.com/muurk/sensordash/internal/ui"
)

// Source flags, shared by run and read
var (
	sourceKind string
	sourcePort string
	sourceBaud int
	seed       uint64
)

// Run flags
var (
	hubURL       string
	interval     time.Duration
	deviceName   string
	attempts     int
	connectDelay time.Duration
	mqttBroker   string
	mqttTopic    string
	scanTimeout  time.Duration
)

func init() {
	for _, cmd := range []*cobra.Command{runCmd, readCmd} {
		cmd.Flags().StringVar(&sourceKind, "source", "", "Sensor source (simulated, serial)")
		cmd.Flags().StringVar(&sourcePort, "source-port", "", "Serial port of the sensor board (serial source)")
		cmd.Flags().IntVar(&sourceBaud, "source-baud", serialport.DefaultBaud, "Baud rate of the sensor board")
		cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the simulated sensor (0 = time based)")
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(scanCmd)
}

// nodeSettings is the config file section with flags applied
func nodeSettings(cmd *cobra.Command) (*config.NodeConfig, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}
	s := *reg.Node

	flags := cmd.Flags()
	if flags.Changed("source") {
		s.Source = sourceKind
	}
	if flags.Changed("source-port") {
		s.SourcePort = sourcePort
	}
	if flags.Changed("seed") {
		s.Seed = seed
	}
	if flags.Changed("hub") {
		s.HubURL = hubURL
	}
	if flags.Changed("interval") {
		s.Interval = interval
	}
	if flags.Changed("device") {
		s.Device = deviceName
	}
	if flags.Changed("attempts") {
		s.ConnectAttempts = attempts
	}
	if flags.Changed("connect-delay") {
		s.ConnectDelay = connectDelay
	}
	if flags.Changed("mqtt") {
		s.MQTTBroker = mqttBroker
	}
	if flags.Changed("mqtt-topic") {
		s.MQTTTopic = mqttTopic
	}
	return &s, nil
}

// openSource builds the throttled sensor source. The returned func
// releases it.
func openSource(s *config.NodeConfig) (sensor.Source, func(), error) {
	switch s.Source {
	case config.SourceSimulated, "":
		seed := s.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return sensor.NewThrottled(sensor.NewSimulated(seed)), func() {}, nil

	case config.SourceSerial:
		if s.SourcePort == "" {
			return nil, nil, fmt.Errorf("the serial source needs --source-port")
		}
		src, err := sensor.OpenSerialSource(serialport.Config{Name: s.SourcePort, Baud: sourceBaud})
		if err != nil {
			return nil, nil, err
		}
		return sensor.NewThrottled(src), func() { _ = src.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown sensor source %q (want %s or %s)", s.Source, config.SourceSimulated, config.SourceSerial)
	}
}

// runCmd posts readings until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read sensors and post to the hub",
	Long: `Read the sensors every interval and post each reading to the hub.

Without --hub the node looks for a hub advertising _sensordash._tcp on
the local network. Before the first reading it checks the hub's /health
endpoint a number of times; if the hub never answers the node starts
posting anyway.`,
	Example: `  # Simulated sensor, hub found over mDNS
  sensordash-node run

  # ESP32 sketch on a serial port, posting to a fixed hub as device B
  sensordash-node run --source serial --source-port /dev/ttyUSB1 --hub http://hub.local:5000 --device B

  # Also publish every reading to an MQTT broker
  sensordash-node run --mqtt localhost:1883 --mqtt-topic greenhouse/1`,
	RunE: runNode,
}

func init() {
	runCmd.Flags().StringVar(&hubURL, "hub", "", "Hub base URL (default: discover over mDNS)")
	runCmd.Flags().DurationVar(&interval, "interval", sensor.DefaultInterval, "Time between readings")
	runCmd.Flags().StringVar(&deviceName, "device", "", "Device letter sent with each reading (A or B)")
	runCmd.Flags().IntVar(&attempts, "attempts", retry.DefaultPolicy().MaxAttempts, "Hub health checks before posting anyway")
	runCmd.Flags().DurationVar(&connectDelay, "connect-delay", retry.DefaultPolicy().Delay, "Delay between hub health checks")
	runCmd.Flags().StringVar(&mqttBroker, "mqtt", "", "MQTT broker host:port to publish readings to")
	runCmd.Flags().StringVar(&mqttTopic, "mqtt-topic", sensor.DefaultMQTTTopic, "MQTT topic for readings")
	runCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to look for a hub over mDNS")
}

func runNode(cmd *cobra.Command, args []string) error {
	if err := initLogging("info"); err != nil {
		return err
	}
	defer logging.Sync()

	s, err := nodeSettings(cmd)
	if err != nil {
		return err
	}
	if _, err := protocol.ParseDevice(s.Device); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := s.HubURL
	if base == "" {
		hub, err := findHub(ctx)
		if err != nil {
			ui.PrintFailure("No hub found", err, []string{
				"Check that 'sensordash-hub serve' is running without --no-advertise",
				"mDNS does not cross routers; pass --hub http://<host>:5000 instead",
				"Try a longer --scan-timeout",
			})
			return err
		}
		base = hub.BaseURL()
		logging.Info("Using discovered hub", zap.String("hub", hub.String()))
	}

	src, release, err := openSource(s)
	if err != nil {
		return err
	}
	defer release()

	poster := sensor.NewPoster(base, src)
	poster.Interval = s.Interval
	poster.Device = s.Device

	params := map[string]string{
		"Hub":      poster.SensorURL(),
		"Interval": s.Interval.String(),
		"Source":   s.Source,
	}
	if s.Device != "" {
		params["Device"] = s.Device
	}

	if s.MQTTBroker != "" {
		pub := sensor.NewMQTTPublisher(s.MQTTBroker)
		if s.MQTTTopic != "" {
			pub.Topic = s.MQTTTopic
		}
		defer pub.Close()
		poster.Publisher = pub
		params["MQTT"] = s.MQTTBroker + " " + pub.Topic
	}

	ui.PrintCommandHeader("Sensordash Node", "sensordash-node run", params)

	poster.WaitForHub(ctx, retry.Policy{MaxAttempts: s.ConnectAttempts, Delay: s.ConnectDelay})

	err = poster.Run(ctx)
	stats := poster.Stats()
	logging.Info("Node stopped",
		zap.Int64("posted", stats.Posted),
		zap.Int64("failed", stats.Failed),
		zap.Int64("sensor_errors", stats.SensorErrors),
		zap.Int64("published", stats.Published),
	)
	return err
}

func findHub(ctx context.Context) (*discovery.Hub, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	logging.Info("Looking for a hub", zap.Duration("timeout", scanner.Timeout))
	return scanner.WaitForHub(ctx, "")
}

// readCmd takes one reading and prints it
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Take one reading and print it",
	Example: `  sensordash-node read
  sensordash-node read --source serial --source-port /dev/ttyUSB1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(""); err != nil {
			return err
		}
		s, err := nodeSettings(cmd)
		if err != nil {
			return err
		}
		src, release, err := openSource(s)
		if err != nil {
			return err
		}
		defer release()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		r, err := src.Read(ctx)
		if err != nil {
			ui.PrintFailure("Sensor read failed", err, []string{
				"Check the sensor wiring and the board's serial output",
				"A DHT11 needs about two seconds between reads",
			})
			return err
		}
		ui.PrintSuccess("Sensor reading", map[string]string{
			"Temperature": strconv.FormatFloat(r.Temperature, 'f', 1, 64) + " C",
			"Humidity":    strconv.FormatFloat(r.Humidity, 'f', 0, 64) + " %",
			"Moisture":    strconv.Itoa(r.Moisture),
			"Source":      s.Source,
		})
		return nil
	},
}

// scanCmd lists hubs on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Look for hubs on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(""); err != nil {
			return err
		}
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout

		fmt.Printf("Scanning for hubs (timeout: %s)...\n\n", scanner.Timeout)
		hubs, err := scanner.ScanForHubs(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(hubs) == 0 {
			ui.PrintWarning("No hubs found", map[string]string{
				"Hint": "start one with 'sensordash-hub serve'",
			})
			return nil
		}
		for _, hub := range hubs {
			details := map[string]string{
				"Address": hub.BaseURL(),
				"Host":    hub.Hostname,
			}
			if hub.Dialect != "" {
				details["Dialect"] = hub.Dialect
			}
			if hub.Version != "" {
				details["Version"] = hub.Version
			}
			ui.PrintSuccess(hub.Instance, details)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to listen for hubs")
}
