// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := New(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.Equal(t, "localhost", cfg.Config.Host)
	assert.Equal(t, 7227, cfg.Config.Port)
	assert.Equal(t, "INFO", cfg.Config.LogLevel)
	assert.Equal(t, StorageSQLite, cfg.Config.StorageType)
	assert.Empty(t, cfg.Config.AdminSecretHash)
}

func TestNewLoadsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.toml")

	content := `host = "0.0.0.0"
port = 9090
logLevel = "DEBUG"
storageType = "file"
dataDir = "/var/lib/keygate"
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Config.Host)
	assert.Equal(t, 9090, cfg.Config.Port)
	assert.Equal(t, "DEBUG", cfg.Config.LogLevel)
	assert.Equal(t, StorageFile, cfg.Config.StorageType)
	assert.Equal(t, "/var/lib/keygate", cfg.Config.DataDir)
}

func TestNewAcceptsDirectFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")

	cfg, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigPath())
	assert.FileExists(t, path)
}

func TestNewRejectsUnknownStorageType(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(`storageType = "postgres"`), 0644))

	_, err := New(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storageType")
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("KEYGATE__PORT", "8181")
	t.Setenv("KEYGATE__STORAGE_TYPE", "file")
	t.Setenv("KEYGATE__DATA_DIR", "/tmp/keygate-data")

	cfg, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Config.Port)
	assert.Equal(t, StorageFile, cfg.Config.StorageType)
	assert.Equal(t, "/tmp/keygate-data", cfg.Config.DataDir)
}

func TestDataPaths(t *testing.T) {
	t.Run("default_to_config_dir", func(t *testing.T) {
		dir := t.TempDir()

		cfg, err := New(dir)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "keygate.db"), cfg.GetDatabasePath())
		assert.Equal(t, filepath.Join(dir, "customers.json"), cfg.GetDataFilePath())
	})

	t.Run("explicit_data_dir", func(t *testing.T) {
		dir := t.TempDir()
		dataDir := t.TempDir()

		cfg, err := New(dir)
		require.NoError(t, err)
		cfg.Config.DataDir = dataDir

		assert.Equal(t, filepath.Join(dataDir, "keygate.db"), cfg.GetDatabasePath())
		assert.Equal(t, filepath.Join(dataDir, "customers.json"), cfg.GetDataFilePath())
	})
}

func TestUpdateAdminSecretHash(t *testing.T) {
	dir := t.TempDir()

	cfg, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.UpdateAdminSecretHash("$argon2id$test-hash"))
	assert.Equal(t, "$argon2id$test-hash", cfg.Config.AdminSecretHash)

	// The hash survives a reload from disk.
	reloaded, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$test-hash", reloaded.Config.AdminSecretHash)
}
