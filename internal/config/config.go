// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the TOML configuration with viper, applies
// KEYGATE__ environment overrides, and owns the zerolog setup.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "KEYGATE__"

// Storage backend selectors.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

type Config struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	LogLevel        string `mapstructure:"logLevel"`
	LogPath         string `mapstructure:"logPath"`
	AdminSecretHash string `mapstructure:"adminSecretHash"`
	StorageType     string `mapstructure:"storageType"`
	DataDir         string `mapstructure:"dataDir"`
}

type AppConfig struct {
	Config *Config
	viper  *viper.Viper

	configPath string
}

// New loads configuration from the given directory (or direct path to a
// .toml file). An empty configPath falls back to the OS-specific default
// location, and a missing config file is generated with defaults.
func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{
		viper:  viper.New(),
		Config: &Config{},
	}

	c.defaults()

	if err := c.load(configPath); err != nil {
		return nil, err
	}

	c.bindEnvs()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) defaults() {
	c.viper.SetDefault("host", "localhost")
	c.viper.SetDefault("port", 7227)
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("adminSecretHash", "")
	c.viper.SetDefault("storageType", StorageSQLite)
	c.viper.SetDefault("dataDir", "")
}

func (c *AppConfig) load(configPath string) error {
	if configPath == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to determine config directory: %w", err)
		}
		configPath = filepath.Join(userConfigDir, "keygate")
	}

	// Accept either a directory or a direct path to a .toml file.
	if strings.HasSuffix(configPath, ".toml") {
		c.configPath = configPath
	} else {
		c.configPath = filepath.Join(configPath, "config.toml")
	}

	if _, err := os.Stat(c.configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(c.configPath); err != nil {
			return err
		}
		log.Info().Msgf("Generated default config file: %s", c.configPath)
	}

	c.viper.SetConfigFile(c.configPath)

	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func (c *AppConfig) bindEnvs() {
	envs := map[string]string{
		"host":            envPrefix + "HOST",
		"port":            envPrefix + "PORT",
		"logLevel":        envPrefix + "LOG_LEVEL",
		"logPath":         envPrefix + "LOG_PATH",
		"adminSecretHash": envPrefix + "ADMIN_SECRET_HASH",
		"storageType":     envPrefix + "STORAGE_TYPE",
		"dataDir":         envPrefix + "DATA_DIR",
	}

	for key, env := range envs {
		_ = c.viper.BindEnv(key, env)
	}
}

func (c *AppConfig) validate() error {
	switch c.Config.StorageType {
	case StorageSQLite, StorageFile:
		return nil
	default:
		return fmt.Errorf("invalid storageType %q (must be %q or %q)", c.Config.StorageType, StorageSQLite, StorageFile)
	}
}

// ConfigPath returns the path of the loaded config file.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// dataDir defaults to the directory the config file lives in.
func (c *AppConfig) dataDir() string {
	if c.Config.DataDir != "" {
		return c.Config.DataDir
	}
	return filepath.Dir(c.configPath)
}

// GetDatabasePath returns the SQLite database location for the
// structured-document backend.
func (c *AppConfig) GetDatabasePath() string {
	return filepath.Join(c.dataDir(), "keygate.db")
}

// GetDataFilePath returns the JSON snapshot location for the flat-file
// backend.
func (c *AppConfig) GetDataFilePath() string {
	return filepath.Join(c.dataDir(), "customers.json")
}

// UpdateAdminSecretHash persists a new admin secret hash to the config
// file.
func (c *AppConfig) UpdateAdminSecretHash(hash string) error {
	c.viper.Set("adminSecretHash", hash)
	c.Config.AdminSecretHash = hash

	if err := c.viper.WriteConfigAs(c.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyLogConfig configures the global zerolog logger from the loaded
// config and starts watching the config file so logLevel changes apply
// without a restart.
func (c *AppConfig) ApplyLogConfig() {
	c.applyLogLevel()

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr},
	}

	if c.Config.LogPath != "" {
		logFile, err := os.OpenFile(c.Config.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Error().Err(err).Str("logPath", c.Config.LogPath).Msg("Failed to open log file, logging to stderr only")
		} else {
			writers = append(writers, logFile)
		}
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := c.viper.Unmarshal(c.Config); err != nil {
			log.Error().Err(err).Msg("Failed to reload config")
			return
		}
		c.applyLogLevel()
		log.Debug().Str("file", e.Name).Msg("Config reloaded")
	})
	c.viper.WatchConfig()
}

func (c *AppConfig) applyLogLevel() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Config.LogLevel))
	if err != nil {
		log.Warn().Str("logLevel", c.Config.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
