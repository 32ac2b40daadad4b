// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/license"
	"github.com/autobrr/keygate/internal/services"
)

// LicensesHandler handles the client-facing activation and verification
// endpoints. No auth middleware: the license key is the credential.
type LicensesHandler struct {
	licenseService *services.LicenseService
}

func NewLicensesHandler(licenseService *services.LicenseService) *LicensesHandler {
	return &LicensesHandler{
		licenseService: licenseService,
	}
}

// LicenseRequest is the request body for both activate and verify
type LicenseRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
}

// ActivateResponse carries the activation outcome. Domain outcomes
// (banned, expired, limit_exceeded) are reported in status, not as errors.
type ActivateResponse struct {
	Status       license.Result `json:"status"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
	MaxDevices   int            `json:"maxDevices,omitempty"`
	DeviceID     string         `json:"deviceId,omitempty"`
	CustomerName string         `json:"customerName,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// VerifyResponse carries the verification outcome.
type VerifyResponse struct {
	Status    license.Result `json:"status"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// RegisterRoutes registers the client license routes
func (h *LicensesHandler) RegisterRoutes(r chi.Router) {
	r.Post("/activate", h.Activate)
	r.Post("/verify", h.Verify)
}

// Activate binds a device to a license
func (h *LicensesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req LicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to decode activate request")
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.licenseService.Activate(r.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		h.respondLicenseError(w, err)
		return
	}

	resp := ActivateResponse{Status: result.Status}
	switch result.Status {
	case license.ResultActive:
		resp.ExpiresAt = &result.ExpiresAt
		resp.DeviceID = result.DeviceID
		resp.CustomerName = result.CustomerName
	case license.ResultExpired:
		resp.ExpiresAt = &result.ExpiresAt
	case license.ResultLimitExceeded:
		resp.MaxDevices = result.MaxDevices
	}

	RespondJSON(w, http.StatusOK, resp)
}

// Verify records a heartbeat for an activated device
func (h *LicensesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req LicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to decode verify request")
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.licenseService.Verify(r.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		h.respondLicenseError(w, err)
		return
	}

	resp := VerifyResponse{Status: result.Status}
	if result.Status != license.ResultNotActivated {
		resp.ExpiresAt = &result.ExpiresAt
	}

	RespondJSON(w, http.StatusOK, resp)
}

func (h *LicensesHandler) respondLicenseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidLicense):
		RespondJSON(w, http.StatusNotFound, ActivateResponse{
			Status: license.ResultInvalid,
			Error:  "unknown license key",
		})
	default:
		log.Error().Err(err).Msg("License request failed")
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
