// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/auth"
)

// RequireAdminSecret rejects requests whose X-API-Key header does not match
// the configured admin secret. Rejection happens before any business logic
// runs. With no secret configured the whole admin surface is closed.
func RequireAdminSecret(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authService.Configured() {
				log.Warn().Msg("Admin request rejected: no admin secret configured")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			secret := r.Header.Get("X-API-Key")
			if secret == "" || !authService.Verify(secret) {
				log.Warn().Str("path", r.URL.Path).Msg("Admin request rejected: invalid secret")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
