// Sensordash-hub sits between the sensor nodes and the display unit.
//
// It accepts readings and voice text over HTTP, forwards them as command
// lines over the serial link to the display, and announces itself over
// mDNS so nodes can find it without configuration.
//
// Usage:
//
//	sensordash-hub serve [flags]
//
// See 'sensordash-hub --help' for available commands.
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
	Use:   "sensordash-hub",
	Short: "Sensordash hub",
	Long: `The sensordash hub: an HTTP API in front of the serial link to the
display unit.

Sensor nodes POST readings to /sensor; the hub turns them into command
lines such as "S T 23.5" and waits for the display to acknowledge each one.`,
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
		fmt.Println(version.Line("sensordash-hub"))
	},
}
