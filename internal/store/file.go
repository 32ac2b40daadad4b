// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/autobrr/keygate/internal/models"
)

// fileDocument is the persisted layout of the flat-file backend: a single
// JSON document holding every customer record, rewritten wholesale on each
// mutation.
type fileDocument struct {
	Customers []*models.Customer `json:"customers"`
}

// FileStore is the flat-file fallback backend. Every mutation is a
// whole-file read-modify-write guarded by an in-process mutex, which makes
// each single-record save atomic for this process. Concurrent writers in
// other processes race on the whole file and can lose updates
// (last-write-wins); that window is a known limitation of this backend.
type FileStore struct {
	path string
	mu   sync.Mutex
	identity
}

func NewFileStore(path string, opts *Options) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	s := &FileStore{path: path, identity: newIdentity(opts)}

	// Fail fast if the existing file is unreadable or corrupt.
	if _, err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) CreateCustomer(ctx context.Context, params CreateParams) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(doc.Customers))
	for _, c := range doc.Customers {
		existing[c.LicenseKey] = struct{}{}
	}

	var customer *models.Customer
	for attempt := 0; attempt < keyRetries; attempt++ {
		candidate := s.newCustomer(params)
		if _, taken := existing[candidate.LicenseKey]; !taken {
			customer = candidate
			break
		}
	}
	if customer == nil {
		return nil, models.ErrDuplicateLicenseKey
	}

	doc.Customers = append(doc.Customers, customer)

	if err := s.write(doc); err != nil {
		return nil, err
	}

	return customer.Clone(), nil
}

func (s *FileStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	// Records are appended in creation order, listing is newest first.
	customers := make([]*models.Customer, 0, len(doc.Customers))
	for i := len(doc.Customers) - 1; i >= 0; i-- {
		customers = append(customers, doc.Customers[i].Clone())
	}

	return customers, nil
}

func (s *FileStore) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	return s.find(func(c *models.Customer) bool { return c.ID == id })
}

func (s *FileStore) FindByLicenseKey(ctx context.Context, key string) (*models.Customer, error) {
	return s.find(func(c *models.Customer) bool { return c.LicenseKey == key })
}

func (s *FileStore) find(match func(*models.Customer) bool) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, c := range doc.Customers {
		if match(c) {
			return c.Clone(), nil
		}
	}

	return nil, models.ErrCustomerNotFound
}

func (s *FileStore) Save(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i, c := range doc.Customers {
		if c.ID == customer.ID {
			doc.Customers[i] = customer.Clone()
			return s.write(doc)
		}
	}

	return models.ErrCustomerNotFound
}

func (s *FileStore) load() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDocument{}, nil
		}
		return nil, errors.Wrap(err, "failed to read data file")
	}

	doc := &fileDocument{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse data file")
		}
	}

	return doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode data file")
	}

	// Write-then-rename so a crash mid-write never leaves a truncated
	// data file behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write data file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace data file")
	}

	return nil
}
