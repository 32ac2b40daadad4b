// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/license"
	"github.com/autobrr/keygate/internal/models"
	"github.com/autobrr/keygate/internal/store"
)

// ErrInvalidLicense marks a license key that does not correspond to any
// customer.
var ErrInvalidLicense = errors.New("invalid license key")

// Unknown keys are cached briefly so repeated probes with garbage keys
// don't hit the store every time. Keys are immutable once issued and a
// fresh key can't be in the cache before it exists, so the TTL only bounds
// memory, not correctness.
const invalidKeyTTL = 5 * time.Minute

// LicenseService is the client operations façade. No authorization gate:
// the license key itself is the credential.
type LicenseService struct {
	store       store.Store
	now         func() time.Time
	invalidKeys *ristretto.Cache
}

func NewLicenseService(store store.Store) (*LicenseService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20, // 1MB of rejected keys is plenty
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invalid-key cache: %w", err)
	}

	return &LicenseService{
		store:       store,
		now:         time.Now,
		invalidKeys: cache,
	}, nil
}

// Activate binds a device to a license, or refreshes an existing binding.
func (s *LicenseService) Activate(ctx context.Context, licenseKey, deviceID string) (license.ActivationResult, error) {
	if licenseKey == "" {
		return license.ActivationResult{}, fmt.Errorf("%w: licenseKey is required", ErrValidation)
	}
	if deviceID == "" {
		return license.ActivationResult{}, fmt.Errorf("%w: deviceId is required", ErrValidation)
	}

	customer, err := s.lookup(ctx, licenseKey)
	if err != nil {
		return license.ActivationResult{}, err
	}

	result := license.Activate(customer, deviceID, s.now())

	if result.Changed {
		if err := s.store.Save(ctx, customer); err != nil {
			return license.ActivationResult{}, err
		}
	}

	log.Debug().
		Str("licenseKey", maskLicenseKey(licenseKey)).
		Str("deviceID", deviceID).
		Str("result", string(result.Status)).
		Msg("Activation attempt")

	return result, nil
}

// Verify records a heartbeat from an already-activated device and reports
// the current license status.
func (s *LicenseService) Verify(ctx context.Context, licenseKey, deviceID string) (license.VerifyResult, error) {
	if licenseKey == "" {
		return license.VerifyResult{}, fmt.Errorf("%w: licenseKey is required", ErrValidation)
	}
	if deviceID == "" {
		return license.VerifyResult{}, fmt.Errorf("%w: deviceId is required", ErrValidation)
	}

	customer, err := s.lookup(ctx, licenseKey)
	if err != nil {
		return license.VerifyResult{}, err
	}

	result := license.Verify(customer, deviceID, s.now())

	if result.Changed {
		if err := s.store.Save(ctx, customer); err != nil {
			return license.VerifyResult{}, err
		}
	}

	log.Debug().
		Str("licenseKey", maskLicenseKey(licenseKey)).
		Str("deviceID", deviceID).
		Str("result", string(result.Status)).
		Msg("Verification")

	return result, nil
}

func (s *LicenseService) lookup(ctx context.Context, licenseKey string) (*models.Customer, error) {
	if _, found := s.invalidKeys.Get(licenseKey); found {
		return nil, ErrInvalidLicense
	}

	customer, err := s.store.FindByLicenseKey(ctx, licenseKey)
	if err != nil {
		if errors.Is(err, models.ErrCustomerNotFound) {
			s.invalidKeys.SetWithTTL(licenseKey, struct{}{}, 1, invalidKeyTTL)
			return nil, ErrInvalidLicense
		}
		return nil, err
	}

	return customer, nil
}
