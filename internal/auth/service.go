// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package auth guards the admin surface. The admin secret lives in the
// config file as an Argon2id hash; requests present the plaintext secret in
// the X-API-Key header and are verified against the hash.
package auth

import (
	"errors"

	"github.com/rs/zerolog/log"
)

var ErrNoSecretConfigured = errors.New("no admin secret configured")

type Service struct {
	secretHash string
}

func NewService(secretHash string) *Service {
	return &Service{secretHash: secretHash}
}

// Configured reports whether an admin secret has been set. With no secret
// the admin surface rejects everything rather than silently allowing it.
func (s *Service) Configured() bool {
	return s.secretHash != ""
}

// Verify checks a presented admin secret against the configured hash.
func (s *Service) Verify(secret string) bool {
	if !s.Configured() {
		return false
	}

	ok, err := VerifySecret(secret, s.secretHash)
	if err != nil {
		log.Error().Err(err).Msg("Failed to verify admin secret hash")
		return false
	}

	return ok
}
