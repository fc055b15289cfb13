// Package config provides the sensordash configuration file.
//
// One YAML file holds a section per tool: display for the emulated display
// unit, hub for the hub, node for the sensor node, plus nicknames for the
// A and B sensor units of the dual dialect. Each tool reads its section and
// lets command line flags override it.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/sensordash/config.yaml or $HOME/.config/sensordash/config.yaml
//   - macOS: $HOME/.config/sensordash/config.yaml
//   - Windows: %LOCALAPPDATA%\sensordash\config.yaml
//
// Every tool takes --config to point somewhere else.
//
// # Example
//
//	version: 1
//	hub:
//	  listen: 0.0.0.0:5000
//	  serial_port: /dev/ttyUSB0
//	  dialect: dual
//	  advertise: true
//	  reset_delay: 2s
//	node:
//	  interval: 2s
//	  device: B
//	  source: serial
//	  source_port: /dev/ttyUSB1
//	devices:
//	  A: {nickname: Greenhouse}
//	  B: {nickname: Kitchen}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are serialized and go through a temporary file and a rename.
package config
