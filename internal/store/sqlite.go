// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/keygate/internal/models"
)

// CustomerStore is the structured-document backend: one row per customer
// with the activation list stored as a JSON document in the activations
// column. Save rewrites the whole row, so per-record atomicity comes from
// SQLite's single-statement guarantees.
type CustomerStore struct {
	db *sql.DB
	identity
}

func NewCustomerStore(db *sql.DB, opts *Options) *CustomerStore {
	return &CustomerStore{db: db, identity: newIdentity(opts)}
}

func (s *CustomerStore) CreateCustomer(ctx context.Context, params CreateParams) (*models.Customer, error) {
	query := `
		INSERT INTO customers (id, name, email, license_key, status, max_devices, activations, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var lastErr error
	for attempt := 0; attempt < keyRetries; attempt++ {
		customer := s.newCustomer(params)

		activations, err := json.Marshal(customer.Activations)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal activations: %w", err)
		}

		_, err = s.db.ExecContext(ctx, query,
			customer.ID,
			customer.Name,
			customer.Email,
			customer.LicenseKey,
			string(customer.Status),
			customer.MaxDevices,
			string(activations),
			customer.CreatedAt,
			customer.ExpiresAt,
		)
		if err != nil {
			if isUniqueKeyViolation(err) {
				// Generated key collided with an existing one, try a
				// fresh key.
				lastErr = models.ErrDuplicateLicenseKey
				continue
			}
			return nil, fmt.Errorf("failed to insert customer: %w", err)
		}

		return customer, nil
	}

	return nil, lastErr
}

func (s *CustomerStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	query := `
		SELECT id, name, email, license_key, status, max_devices, activations, created_at, expires_at
		FROM customers
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}

	return customers, rows.Err()
}

func (s *CustomerStore) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `
		SELECT id, name, email, license_key, status, max_devices, activations, created_at, expires_at
		FROM customers
		WHERE id = ?
	`

	return s.findOne(ctx, query, id)
}

func (s *CustomerStore) FindByLicenseKey(ctx context.Context, key string) (*models.Customer, error) {
	query := `
		SELECT id, name, email, license_key, status, max_devices, activations, created_at, expires_at
		FROM customers
		WHERE license_key = ?
	`

	return s.findOne(ctx, query, key)
}

func (s *CustomerStore) findOne(ctx context.Context, query string, arg any) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	customer, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *CustomerStore) Save(ctx context.Context, customer *models.Customer) error {
	activations, err := json.Marshal(customer.Activations)
	if err != nil {
		return fmt.Errorf("failed to marshal activations: %w", err)
	}

	query := `
		UPDATE customers
		SET name = ?, email = ?, status = ?, max_devices = ?, activations = ?, expires_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		customer.Name,
		customer.Email,
		string(customer.Status),
		customer.MaxDevices,
		string(activations),
		customer.ExpiresAt,
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return models.ErrCustomerNotFound
	}

	return nil
}

// scanCustomer reads one row through the given scan func so it works for
// both sql.Row and sql.Rows.
func scanCustomer(scan func(dest ...any) error) (*models.Customer, error) {
	var (
		customer    models.Customer
		status      string
		activations string
		createdAt   time.Time
		expiresAt   time.Time
	)

	err := scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.LicenseKey,
		&status,
		&customer.MaxDevices,
		&activations,
		&createdAt,
		&expiresAt,
	)
	if err != nil {
		return nil, err
	}

	customer.Status = models.CustomerStatus(status)
	customer.CreatedAt = createdAt.UTC()
	customer.ExpiresAt = expiresAt.UTC()

	if err := json.Unmarshal([]byte(activations), &customer.Activations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activations: %w", err)
	}
	if customer.Activations == nil {
		customer.Activations = []models.Activation{}
	}

	return &customer, nil
}

func isUniqueKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: customers.license_key")
}
