// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package license

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/keygate/internal/models"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func testCustomer(maxDevices int, expiresAt time.Time) *models.Customer {
	return &models.Customer{
		ID:          "cust-1",
		Name:        "Test Customer",
		Email:       "test@example.com",
		LicenseKey:  "LIC-AAAA-BBBB-CCCC-DDDD",
		Status:      models.StatusActive,
		MaxDevices:  maxDevices,
		CreatedAt:   testNow.AddDate(0, -1, 0),
		ExpiresAt:   expiresAt,
		Activations: []models.Activation{},
	}
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		now       time.Time
		expected  bool
	}{
		{
			name:      "before_expiry",
			expiresAt: testNow.Add(time.Hour),
			now:       testNow,
			expected:  false,
		},
		{
			name:      "exactly_at_expiry",
			expiresAt: testNow,
			now:       testNow,
			expected:  true,
		},
		{
			name:      "after_expiry",
			expiresAt: testNow.Add(-time.Second),
			now:       testNow,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsExpired(tt.expiresAt, tt.now))
		})
	}
}

func TestComputeExpiry(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "six_months",
			from:     time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
			months:   6,
			expected: time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "year_boundary",
			from:     time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// Calendar month arithmetic rolls over at month end, it is
			// not clamped.
			name:     "end_of_month_rollover",
			from:     time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeExpiry(tt.from, tt.months))
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	t.Run("active_when_unexpired", func(t *testing.T) {
		c := testCustomer(2, testNow.Add(time.Hour))
		assert.Equal(t, models.StatusActive, DeriveStatus(c, testNow))
	})

	t.Run("expired_when_elapsed", func(t *testing.T) {
		c := testCustomer(2, testNow.Add(-time.Hour))
		assert.Equal(t, models.StatusExpired, DeriveStatus(c, testNow))
	})

	t.Run("banned_is_sticky", func(t *testing.T) {
		c := testCustomer(2, testNow.Add(-time.Hour))
		c.Status = models.StatusBanned
		assert.Equal(t, models.StatusBanned, DeriveStatus(c, testNow))
	})
}

func TestRenew(t *testing.T) {
	t.Run("unexpired_extends_from_expiry", func(t *testing.T) {
		expiry := testNow.AddDate(0, 2, 0)
		c := testCustomer(2, expiry)

		newExpiry := Renew(c, 3, testNow)

		assert.Equal(t, expiry.AddDate(0, 3, 0), newExpiry)
		assert.Equal(t, newExpiry, c.ExpiresAt)
		assert.Equal(t, models.StatusActive, c.Status)
	})

	t.Run("expired_renews_from_now", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, -4, 0))
		c.Status = models.StatusExpired

		newExpiry := Renew(c, 3, testNow)

		assert.Equal(t, testNow.AddDate(0, 3, 0), newExpiry)
		assert.Equal(t, models.StatusActive, c.Status)
	})

	t.Run("monotonic", func(t *testing.T) {
		// Renewal never decreases expiry, whatever the starting point.
		starts := []time.Time{
			testNow.AddDate(-1, 0, 0),
			testNow.Add(-time.Second),
			testNow,
			testNow.Add(time.Second),
			testNow.AddDate(2, 0, 0),
		}
		for _, start := range starts {
			for months := 1; months <= 24; months++ {
				c := testCustomer(2, start)
				newExpiry := Renew(c, months, testNow)
				assert.False(t, newExpiry.Before(start),
					"renew(%v, %d months) went backwards to %v", start, months, newExpiry)
			}
		}
	})
}

func TestActivate(t *testing.T) {
	t.Run("first_device", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))

		result := Activate(c, "dev1", testNow)

		assert.Equal(t, ResultActive, result.Status)
		assert.True(t, result.Changed)
		assert.Equal(t, "dev1", result.DeviceID)
		assert.Equal(t, "Test Customer", result.CustomerName)
		assert.Equal(t, c.ExpiresAt, result.ExpiresAt)

		require.Len(t, c.Activations, 1)
		assert.Equal(t, testNow, c.Activations[0].ActivatedAt)
		assert.Equal(t, testNow, c.Activations[0].LastSeen)
	})

	t.Run("device_limit", func(t *testing.T) {
		c := testCustomer(3, testNow.AddDate(0, 6, 0))

		for i := 0; i < 3; i++ {
			result := Activate(c, fmt.Sprintf("dev%d", i), testNow)
			require.Equal(t, ResultActive, result.Status)
		}

		result := Activate(c, "dev-extra", testNow)

		assert.Equal(t, ResultLimitExceeded, result.Status)
		assert.Equal(t, 3, result.MaxDevices)
		assert.False(t, result.Changed)
		assert.Len(t, c.Activations, 3, "activation set must be unchanged")
	})

	t.Run("reactivation_is_idempotent", func(t *testing.T) {
		c := testCustomer(1, testNow.AddDate(0, 6, 0))

		result := Activate(c, "dev1", testNow)
		require.Equal(t, ResultActive, result.Status)

		// Same device again, at the limit. Must not count against it.
		later := testNow.Add(time.Hour)
		result = Activate(c, "dev1", later)

		assert.Equal(t, ResultActive, result.Status)
		require.Len(t, c.Activations, 1)
		assert.Equal(t, testNow, c.Activations[0].ActivatedAt, "activatedAt is immutable")
		assert.Equal(t, later, c.Activations[0].LastSeen)
	})

	t.Run("banned_overrides_everything", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))
		c.Status = models.StatusBanned

		result := Activate(c, "dev1", testNow)

		assert.Equal(t, ResultBanned, result.Status)
		assert.False(t, result.Changed)
		assert.Empty(t, c.Activations)
	})

	t.Run("expired_license", func(t *testing.T) {
		c := testCustomer(2, testNow.Add(-time.Hour))

		result := Activate(c, "dev1", testNow)

		assert.Equal(t, ResultExpired, result.Status)
		assert.Equal(t, c.ExpiresAt, result.ExpiresAt)
		assert.True(t, result.Changed, "status transition to expired must be persisted")
		assert.Equal(t, models.StatusExpired, c.Status)
		assert.Empty(t, c.Activations)

		// A second attempt finds the cached status already expired.
		result = Activate(c, "dev1", testNow)
		assert.Equal(t, ResultExpired, result.Status)
		assert.False(t, result.Changed)
	})
}

func TestVerify(t *testing.T) {
	t.Run("unknown_device", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))

		result := Verify(c, "ghost", testNow)

		assert.Equal(t, ResultNotActivated, result.Status)
		assert.False(t, result.Changed)
	})

	t.Run("active_device_heartbeat", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))
		Activate(c, "dev1", testNow)

		later := testNow.Add(time.Hour)
		result := Verify(c, "dev1", later)

		assert.Equal(t, ResultActive, result.Status)
		assert.Equal(t, c.ExpiresAt, result.ExpiresAt)
		assert.True(t, result.Changed)
		assert.Equal(t, later, c.Activations[0].LastSeen)
	})

	t.Run("lazy_expiry", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))
		Activate(c, "dev1", testNow)

		// Verification after expiry flips the cached status without any
		// background process.
		afterExpiry := c.ExpiresAt.Add(time.Minute)
		result := Verify(c, "dev1", afterExpiry)

		assert.Equal(t, ResultExpired, result.Status)
		assert.True(t, result.Changed)
		assert.Equal(t, models.StatusExpired, c.Status)
	})

	t.Run("banned_device", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))
		Activate(c, "dev1", testNow)
		c.Status = models.StatusBanned

		result := Verify(c, "dev1", testNow)

		assert.Equal(t, ResultBanned, result.Status)
	})
}

func TestSetBanned(t *testing.T) {
	t.Run("ban", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))

		SetBanned(c, true, testNow)

		assert.Equal(t, models.StatusBanned, c.Status)
	})

	t.Run("unban_rederives_active", func(t *testing.T) {
		c := testCustomer(2, testNow.AddDate(0, 6, 0))
		c.Status = models.StatusBanned

		SetBanned(c, false, testNow)

		assert.Equal(t, models.StatusActive, c.Status)
	})

	t.Run("unban_rederives_expired", func(t *testing.T) {
		// Unbanning an expired license yields expired, never active.
		c := testCustomer(2, testNow.Add(-time.Hour))
		c.Status = models.StatusBanned

		SetBanned(c, false, testNow)

		assert.Equal(t, models.StatusExpired, c.Status)
	})
}

// TestLifecycleScenario walks the full issuance-to-unban flow on a single
// customer with one device slot.
func TestLifecycleScenario(t *testing.T) {
	c := testCustomer(1, ComputeExpiry(testNow, 1))
	require.Equal(t, models.StatusActive, c.Status)

	result := Activate(c, "dev1", testNow)
	require.Equal(t, ResultActive, result.Status)

	result = Activate(c, "dev2", testNow)
	require.Equal(t, ResultLimitExceeded, result.Status)
	require.Equal(t, 1, result.MaxDevices)

	result = Activate(c, "dev1", testNow)
	require.Equal(t, ResultActive, result.Status)
	require.Len(t, c.Activations, 1)

	SetBanned(c, true, testNow)
	verify := Verify(c, "dev1", testNow)
	require.Equal(t, ResultBanned, verify.Status)

	SetBanned(c, false, testNow)
	verify = Verify(c, "dev1", testNow)
	require.Equal(t, ResultActive, verify.Status)
}
