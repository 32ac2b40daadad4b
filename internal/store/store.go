// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store provides durable customer-record storage behind a single
// interface with interchangeable backends: a SQLite document store, a
// flat-file JSON snapshot, and an in-memory map for tests. All backends
// satisfy identical black-box behavior; the shared contract test suite in
// store_test.go holds them to it.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/autobrr/keygate/internal/license"
	"github.com/autobrr/keygate/internal/models"
)

// keyRetries bounds regeneration attempts when a freshly generated license
// key collides with an existing one. Collisions are astronomically unlikely
// with 16 random characters, so hitting the bound means something is wrong
// with the random source.
const keyRetries = 3

// CreateParams are the caller-supplied fields for a new customer. Months
// and MaxDevices must already be defaulted and validated by the caller.
type CreateParams struct {
	Name       string
	Email      string
	Months     int
	MaxDevices int
}

// Store is the persistence provider contract. Save persists a full
// overwrite of the mutated record and must be atomic with respect to that
// single record.
type Store interface {
	CreateCustomer(ctx context.Context, params CreateParams) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	FindByID(ctx context.Context, id string) (*models.Customer, error)
	FindByLicenseKey(ctx context.Context, key string) (*models.Customer, error)
	Save(ctx context.Context, customer *models.Customer) error
}

// Options injects the clock and generators so tests can supply
// deterministic values. Nil fields fall back to wall clock, random UUIDs
// and a time-seeded key generator.
type Options struct {
	Now          func() time.Time
	NewID        func() string
	KeyGenerator *license.KeyGenerator
}

type identity struct {
	now    func() time.Time
	newID  func() string
	keygen *license.KeyGenerator
}

func newIdentity(opts *Options) identity {
	id := identity{
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		keygen: license.NewKeyGenerator(),
	}
	if opts == nil {
		return id
	}
	if opts.Now != nil {
		id.now = opts.Now
	}
	if opts.NewID != nil {
		id.newID = opts.NewID
	}
	if opts.KeyGenerator != nil {
		id.keygen = opts.KeyGenerator
	}
	return id
}

// newCustomer assembles a fresh record: provider-assigned id, generated
// license key, createdAt=now, expiresAt=now+months, no activations.
func (g identity) newCustomer(params CreateParams) *models.Customer {
	now := g.now().UTC()
	return &models.Customer{
		ID:          g.newID(),
		Name:        params.Name,
		Email:       params.Email,
		LicenseKey:  g.keygen.Generate(),
		Status:      models.StatusActive,
		MaxDevices:  params.MaxDevices,
		CreatedAt:   now,
		ExpiresAt:   license.ComputeExpiry(now, params.Months),
		Activations: []models.Activation{},
	}
}
