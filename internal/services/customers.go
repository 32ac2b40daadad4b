// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package services orchestrates the license lifecycle engine against the
// persistence provider. CustomerService is the admin façade (issuance,
// listing, renewal, ban), LicenseService the client façade (activation,
// verification).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/license"
	"github.com/autobrr/keygate/internal/models"
	"github.com/autobrr/keygate/internal/store"
)

// ErrValidation marks missing or malformed caller input. Wrapped with field
// context, checked with errors.Is.
var ErrValidation = errors.New("validation error")

const (
	defaultMonths     = 6
	defaultMaxDevices = 2
)

// IssueRequest carries the admin-supplied fields for a new license. Months
// and MaxDevices are optional and defaulted.
type IssueRequest struct {
	Name       string
	Email      string
	Months     int
	MaxDevices int
}

// CustomerService is the admin operations façade. The authorization gate
// lives in the HTTP middleware; everything here assumes an authorized
// caller.
type CustomerService struct {
	store store.Store
	now   func() time.Time
}

func NewCustomerService(store store.Store) *CustomerService {
	return &CustomerService{
		store: store,
		now:   time.Now,
	}
}

// Issue creates a customer with a fresh license key.
func (s *CustomerService) Issue(ctx context.Context, req IssueRequest) (*models.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if req.Months < 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrValidation)
	}
	if req.MaxDevices < 0 {
		return nil, fmt.Errorf("%w: maxDevices must be positive", ErrValidation)
	}

	if req.Months == 0 {
		req.Months = defaultMonths
	}
	if req.MaxDevices == 0 {
		req.MaxDevices = defaultMaxDevices
	}

	customer, err := s.store.CreateCustomer(ctx, store.CreateParams{
		Name:       req.Name,
		Email:      req.Email,
		Months:     req.Months,
		MaxDevices: req.MaxDevices,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	log.Info().
		Str("customerID", customer.ID).
		Str("licenseKey", maskLicenseKey(customer.LicenseKey)).
		Int("months", req.Months).
		Int("maxDevices", req.MaxDevices).
		Msg("License issued")

	return customer, nil
}

// List returns all customers, newest first, with the displayed status
// re-derived from expiry. The derived status is not written back here;
// persistence of lazy expiry happens on activate/verify.
func (s *CustomerService) List(ctx context.Context, search string) ([]*models.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filtered := customers[:0]
	for _, c := range customers {
		c.Status = license.DeriveStatus(c, now)
		if search != "" && !matchesCustomer(c, search) {
			continue
		}
		filtered = append(filtered, c)
	}

	return filtered, nil
}

// Get returns a single customer with its status re-derived for display.
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Status = license.DeriveStatus(customer, s.now())
	return customer, nil
}

// Renew extends a customer's expiry by months (default 6).
func (s *CustomerService) Renew(ctx context.Context, id string, months int) (*models.Customer, error) {
	if months < 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrValidation)
	}
	if months == 0 {
		months = defaultMonths
	}

	customer, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newExpiry := license.Renew(customer, months, s.now())

	if err := s.store.Save(ctx, customer); err != nil {
		return nil, err
	}

	log.Info().
		Str("customerID", customer.ID).
		Int("months", months).
		Time("expiresAt", newExpiry).
		Msg("License renewed")

	return customer, nil
}

// SetBanned bans or unbans a customer. Unbanning re-derives the status
// from expiry.
func (s *CustomerService) SetBanned(ctx context.Context, id string, banned bool) (*models.Customer, error) {
	customer, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	license.SetBanned(customer, banned, s.now())

	if err := s.store.Save(ctx, customer); err != nil {
		return nil, err
	}

	log.Info().
		Str("customerID", customer.ID).
		Bool("banned", banned).
		Str("status", string(customer.Status)).
		Msg("Customer ban state changed")

	return customer, nil
}

func matchesCustomer(c *models.Customer, search string) bool {
	return fuzzy.MatchFold(search, c.Name) ||
		fuzzy.MatchFold(search, c.Email) ||
		fuzzy.MatchFold(search, c.LicenseKey)
}

// maskLicenseKey keeps full license keys out of the logs.
func maskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "***"
}
