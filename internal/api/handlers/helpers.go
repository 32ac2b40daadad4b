// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: MIT

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/models"
	"github.com/autobrr/keygate/internal/services"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode JSON response")
		}
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{
		"error": message,
	})
}

// RespondServiceError maps service-layer errors onto HTTP status codes.
// Storage failures are logged and surfaced as a generic 500 so internals
// never leak to callers.
func RespondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrCustomerNotFound):
		RespondError(w, http.StatusNotFound, "customer not found")
	default:
		log.Error().Err(err).Msg("Request failed")
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
