// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"sync"

	"github.com/autobrr/keygate/internal/models"
)

// MemoryStore is a map-backed provider used in tests where a deterministic,
// dependency-free backend is wanted. It satisfies the same contract as the
// durable backends.
type MemoryStore struct {
	mu        sync.Mutex
	customers []*models.Customer
	identity
}

func NewMemoryStore(opts *Options) *MemoryStore {
	return &MemoryStore{identity: newIdentity(opts)}
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, params CreateParams) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]struct{}, len(s.customers))
	for _, c := range s.customers {
		taken[c.LicenseKey] = struct{}{}
	}

	for attempt := 0; attempt < keyRetries; attempt++ {
		customer := s.newCustomer(params)
		if _, exists := taken[customer.LicenseKey]; exists {
			continue
		}
		s.customers = append(s.customers, customer)
		return customer.Clone(), nil
	}

	return nil, models.ErrDuplicateLicenseKey
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := make([]*models.Customer, 0, len(s.customers))
	for i := len(s.customers) - 1; i >= 0; i-- {
		customers = append(customers, s.customers[i].Clone())
	}

	return customers, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.ID == id {
			return c.Clone(), nil
		}
	}

	return nil, models.ErrCustomerNotFound
}

func (s *MemoryStore) FindByLicenseKey(ctx context.Context, key string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.LicenseKey == key {
			return c.Clone(), nil
		}
	}

	return nil, models.ErrCustomerNotFound
}

func (s *MemoryStore) Save(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.customers {
		if c.ID == customer.ID {
			s.customers[i] = customer.Clone()
			return nil
		}
	}

	return models.ErrCustomerNotFound
}
