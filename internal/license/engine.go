// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package license implements the lifecycle rules for license keys: status
// derivation, renewal arithmetic, and device activation accounting. All
// functions are pure over a models.Customer value; callers load the record,
// apply a transition, and persist it if the result says it changed.
package license

import (
	"time"

	"github.com/autobrr/keygate/internal/models"
)

// Result is the outcome of an activate or verify call. Domain outcomes are
// normal results, not errors.
type Result string

const (
	ResultActive        Result = "active"
	ResultExpired       Result = "expired"
	ResultBanned        Result = "banned"
	ResultLimitExceeded Result = "limit_exceeded"
	ResultNotActivated  Result = "not_activated"
	ResultInvalid       Result = "invalid"
)

// ActivationResult carries the outcome of an activation attempt plus the
// fields each outcome exposes to the client.
type ActivationResult struct {
	Status       Result
	ExpiresAt    time.Time
	MaxDevices   int
	DeviceID     string
	CustomerName string

	// Changed reports whether the customer record was mutated and must be
	// persisted.
	Changed bool
}

// VerifyResult carries the outcome of a verification heartbeat.
type VerifyResult struct {
	Status    Result
	ExpiresAt time.Time
	Changed   bool
}

// IsExpired reports whether a license with the given expiry is expired at
// now. Expiry is inclusive: a license expires the instant now reaches
// expiresAt.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// ComputeExpiry adds calendar months to a timestamp. Month arithmetic
// follows time.AddDate, so a day-of-month past the end of the target month
// rolls over (Jan 31 + 1 month = Mar 2/3). Not normalized on purpose.
func ComputeExpiry(from time.Time, months int) time.Time {
	return from.AddDate(0, months, 0)
}

// DeriveStatus recomputes the cached status from expiry. Banned is sticky
// and is never overridden here; it only clears via an explicit unban.
func DeriveStatus(c *models.Customer, now time.Time) models.CustomerStatus {
	if c.Status == models.StatusBanned {
		return models.StatusBanned
	}
	if IsExpired(c.ExpiresAt, now) {
		return models.StatusExpired
	}
	return models.StatusActive
}

// Renew extends the expiry by months and returns the new expiry. An
// unexpired license extends from its current expiry so remaining time is
// preserved; an already-expired license renews from now so stale expiry
// points never accumulate backdated time. The cached status is re-derived
// from the new expiry.
func Renew(c *models.Customer, months int, now time.Time) time.Time {
	base := c.ExpiresAt
	if IsExpired(c.ExpiresAt, now) {
		base = now
	}
	c.ExpiresAt = ComputeExpiry(base, months)
	c.Status = DeriveStatus(c, now)
	return c.ExpiresAt
}

// Activate binds a device to the license, or refreshes an existing binding.
// Re-activating a known device never counts against the device limit.
func Activate(c *models.Customer, deviceID string, now time.Time) ActivationResult {
	if c.Status == models.StatusBanned {
		return ActivationResult{Status: ResultBanned}
	}

	if IsExpired(c.ExpiresAt, now) {
		changed := c.Status != models.StatusExpired
		c.Status = models.StatusExpired
		return ActivationResult{
			Status:    ResultExpired,
			ExpiresAt: c.ExpiresAt,
			Changed:   changed,
		}
	}

	if existing := c.Activation(deviceID); existing != nil {
		existing.LastSeen = now
	} else {
		if len(c.Activations) >= c.MaxDevices {
			return ActivationResult{
				Status:     ResultLimitExceeded,
				MaxDevices: c.MaxDevices,
			}
		}
		c.Activations = append(c.Activations, models.Activation{
			DeviceID:    deviceID,
			ActivatedAt: now,
			LastSeen:    now,
		})
	}

	c.Status = models.StatusActive

	return ActivationResult{
		Status:       ResultActive,
		ExpiresAt:    c.ExpiresAt,
		DeviceID:     deviceID,
		CustomerName: c.Name,
		Changed:      true,
	}
}

// Verify records a heartbeat from an already-activated device and reports
// the current license status. A device that never activated gets
// not_activated with no mutation.
func Verify(c *models.Customer, deviceID string, now time.Time) VerifyResult {
	existing := c.Activation(deviceID)
	if existing == nil {
		return VerifyResult{Status: ResultNotActivated}
	}

	existing.LastSeen = now
	c.Status = DeriveStatus(c, now)

	return VerifyResult{
		Status:    Result(c.Status),
		ExpiresAt: c.ExpiresAt,
		Changed:   true,
	}
}

// SetBanned bans or unbans the customer. Unbanning re-derives the status
// from expiry rather than forcing active, so an expired license stays
// expired after an unban.
func SetBanned(c *models.Customer, banned bool, now time.Time) {
	if banned {
		c.Status = models.StatusBanned
		return
	}
	if IsExpired(c.ExpiresAt, now) {
		c.Status = models.StatusExpired
	} else {
		c.Status = models.StatusActive
	}
}
