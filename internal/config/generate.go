// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigTemplate = `# config.toml

# Hostname / IP
#
host = "localhost"

# HTTP server port
#
port = 7227

# Log level
#
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
#
logLevel = "INFO"

# Log path
#
# Optional. Logs to stderr when empty.
#
#logPath = ""

# Admin secret hash
#
# Argon2id hash of the admin API secret. Set it with:
#   keygate set-admin-secret
# Admin endpoints reject every request until this is configured.
#
adminSecretHash = ""

# Storage backend
#
# Options: "sqlite" (default), "file" (flat JSON snapshot)
#
storageType = "sqlite"

# Data directory
#
# Optional. Database / data file location, defaults to the config directory.
#
#dataDir = ""
`

// WriteDefaultConfig writes the commented default config file, creating
// parent directories as needed. Existing files are left untouched.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
