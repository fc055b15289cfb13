package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/sensordash/internal/config"
	"github.com/muurk/sensordash/internal/ui"
)

// Config command flags
var (
	forceInit  bool
	dumpConfig bool
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file without asking")
	configShowCmd.Flags().BoolVar(&dumpConfig, "dump", false, "Print the parsed Go structure instead of YAML")

	rootCmd.AddCommand(configCmd)
}

// configCmd groups the config file commands shared by every sensordash tool
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the sensordash config file",
	Long: `Manage the config file read by sensordash-hub, sensordash-node and
sensordash-lcd. Each tool reads its own section; command line flags
override the file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		force := forceInit
		if _, err := os.Stat(path); err == nil && !force {
			force = ui.Confirm(os.Stdin, os.Stdout, "Config file exists",
				[]string{path, "Existing settings and device nicknames will be replaced"},
				"Overwrite it?")
			if !force {
				return nil
			}
		}

		path, err = config.CreateDefaultConfig(force)
		if err != nil {
			ui.PrintFailure("Could not write config file", err, nil)
			return err
		}
		ui.PrintSuccess("Config file written", map[string]string{
			"Path": path,
			"Next": "edit hub.serial_port, then run 'sensordash-hub serve'",
		})
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if dumpConfig {
			fmt.Println(reg.Dump())
			return nil
		}
		data, err := reg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}
