// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/autobrr/keygate/internal/auth"
	"github.com/autobrr/keygate/internal/config"
)

// RunSetAdminSecretCommand sets the admin API secret. Only the Argon2id
// hash is written to the config file; the plaintext is shown once (when
// generated) or never stored (when supplied).
func RunSetAdminSecretCommand() *cobra.Command {
	var (
		configDir string
		secret    string
		generate  bool
	)

	command := &cobra.Command{
		Use:   "set-admin-secret",
		Short: "Set the admin API secret",
		Long: `Set the secret that admin requests must present in the X-API-Key header.

The secret is stored in the config file as an Argon2id hash. Use --generate
to create a random secret, or --secret / an interactive prompt to supply
your own.`,
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory or direct path to a .toml file")
	command.Flags().StringVar(&secret, "secret", "", "admin secret (prompted interactively when omitted)")
	command.Flags().BoolVar(&generate, "generate", false, "generate a random secret and print it once")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		if generate && secret != "" {
			return fmt.Errorf("--generate and --secret are mutually exclusive")
		}

		if generate {
			token := make([]byte, 24)
			if _, err := rand.Read(token); err != nil {
				return fmt.Errorf("failed to generate secret: %w", err)
			}
			secret = hex.EncodeToString(token)
		}

		if secret == "" {
			prompted, err := promptSecret(cmd)
			if err != nil {
				return err
			}
			secret = prompted
		}

		if len(secret) < 12 {
			return fmt.Errorf("secret must be at least 12 characters")
		}

		cfg, err := config.New(configDir)
		if err != nil {
			return err
		}

		hash, err := auth.HashSecret(secret)
		if err != nil {
			return fmt.Errorf("failed to hash secret: %w", err)
		}

		if err := cfg.UpdateAdminSecretHash(hash); err != nil {
			return err
		}

		if generate {
			fmt.Fprintf(cmd.OutOrStdout(), "Generated admin secret (store it now, it is not saved anywhere):\n%s\n", secret)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin secret updated in %s\n", cfg.ConfigPath())

		return nil
	}

	return command
}

func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no secret provided and stdin is not a terminal, use --secret or --generate")
	}

	fmt.Fprint(cmd.OutOrStdout(), "Admin secret: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), "Confirm secret: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("secrets do not match")
	}

	return string(first), nil
}
