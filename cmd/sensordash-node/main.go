// Sensordash-node is the sensor node: it reads temperature, humidity and
// soil moisture and posts them to the hub every couple of seconds.
//
// Readings come from a simulated sensor or from a microcontroller printing
// DHT11 and moisture values over serial. The hub is found over mDNS unless
// its URL is given.
//
// Usage:
//
//	sensordash-node run [flags]
//
// See 'sensordash-node --help' for available commands.
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
	Use:   "sensordash-node",
	Short: "Sensordash sensor node",
	Long: `Reads temperature, humidity and soil moisture and posts them to the
sensordash hub as JSON:

  {"temp": 23.5, "humidity": 41, "moisture": 1800}

A failed read or post is logged and skipped; the next interval tries
again.`,
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
		fmt.Println(version.Line("sensordash-node"))
	},
}
