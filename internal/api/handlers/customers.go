// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/services"
)

// CustomersHandler handles the admin customer endpoints. Authorization is
// enforced by the RequireAdminSecret middleware before these run.
type CustomersHandler struct {
	customerService *services.CustomerService
}

func NewCustomersHandler(customerService *services.CustomerService) *CustomersHandler {
	return &CustomersHandler{
		customerService: customerService,
	}
}

// CreateCustomerRequest is the request body for license issuance
type CreateCustomerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Months     int    `json:"months,omitempty"`
	MaxDevices int    `json:"maxDevices,omitempty"`
}

// RenewCustomerRequest is the request body for license renewal
type RenewCustomerRequest struct {
	Months int `json:"months,omitempty"`
}

// BanCustomerRequest is the request body for banning/unbanning. Banned
// defaults to true when omitted.
type BanCustomerRequest struct {
	Banned *bool `json:"banned,omitempty"`
}

// RegisterRoutes registers the admin customer routes
func (h *CustomersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListCustomers)
	r.Post("/", h.CreateCustomer)

	r.Route("/{customerID}", func(r chi.Router) {
		r.Get("/", h.GetCustomer)
		r.Post("/renew", h.RenewCustomer)
		r.Post("/ban", h.BanCustomer)
	})
}

// CreateCustomer issues a new license
func (h *CustomersHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to decode create customer request")
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customer, err := h.customerService.Issue(r.Context(), services.IssueRequest{
		Name:       req.Name,
		Email:      req.Email,
		Months:     req.Months,
		MaxDevices: req.MaxDevices,
	})
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, customer)
}

// ListCustomers returns all customers, newest first. An optional ?search=
// query fuzzy-matches name, email and license key.
func (h *CustomersHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	customers, err := h.customerService.List(r.Context(), search)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, customers)
}

// GetCustomer returns a single customer record
func (h *CustomersHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	customer, err := h.customerService.Get(r.Context(), customerID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, customer)
}

// RenewCustomer extends a customer's license
func (h *CustomersHandler) RenewCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req RenewCustomerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("Failed to decode renew request")
			RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	customer, err := h.customerService.Renew(r.Context(), customerID, req.Months)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, customer)
}

// BanCustomer bans or unbans a customer
func (h *CustomersHandler) BanCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req BanCustomerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("Failed to decode ban request")
			RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	banned := true
	if req.Banned != nil {
		banned = *req.Banned
	}

	customer, err := h.customerService.SetBanned(r.Context(), customerID, banned)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, customer)
}
