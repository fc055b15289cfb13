// Sensordash-lcd plays the display unit: the microcontroller that owns the
// TFT panel and answers the hub's command lines over serial.
//
// It runs the same control loop as the firmware, on a serial port, a TCP
// socket standing in for the cable, or stdin, and draws the screen as log
// lines, a PNG snapshot, or a live terminal emulation.
//
// Usage:
//
//	sensordash-lcd [command] [flags]
//
// See 'sensordash-lcd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/sensordash/internal/config"
	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/version"
)

// Global flags
var (
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sensordash-lcd",
	Short: "Sensordash display unit emulator",
	Long: `Emulates the sensordash display unit.

The display unit reads newline-terminated commands such as "S T 23.5" or
"S A T 23.5", updates the matching box on its 480x320 panel and answers
each line with OK or ERR. This tool runs the same loop without the hardware.`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/sensordash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

// initLogging sets up zap from --log-level, then SENSORDASH_LOG_LEVEL,
// then fallback. An empty fallback keeps the command silent.
func initLogging(fallback string) error {
	level := logLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" {
		level = fallback
	}
	return logging.Initialize(level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Line("sensordash-lcd"))
	},
}
