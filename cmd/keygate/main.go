// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/keygate/internal/config"
)

var Version = "dev"

func main() {
	var rootCmd = &cobra.Command{
		Use:   "keygate",
		Short: "A self-hosted license key server",
		Long: `keygate - A self-hosted server for issuing and validating software
license keys with per-customer device activation limits.`,
	}

	// Initialize logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.Version = Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunSetAdminSecretCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/keygate/). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for database and data files (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stderr)")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(Version, configDir, dataDir, logPath)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of keygate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/keygate/config.toml
- Windows: %APPDATA%\keygate\config.toml`,
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory or direct path to a .toml file")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath(configDir)
		if err != nil {
			return err
		}

		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Generated config file: %s\n", path)
		return nil
	}

	return command
}

// resolveConfigPath turns a --config-dir value (directory, direct .toml
// path, or empty for the OS default) into the config file path.
func resolveConfigPath(configDir string) (string, error) {
	if configDir == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine config directory: %w", err)
		}
		return filepath.Join(userConfigDir, "keygate", "config.toml"), nil
	}

	if strings.HasSuffix(configDir, ".toml") {
		return configDir, nil
	}

	return filepath.Join(configDir, "config.toml"), nil
}
