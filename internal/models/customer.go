// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"errors"
	"time"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrDuplicateLicenseKey = errors.New("license key already exists")
)

// CustomerStatus is the lifecycle state of a license.
// Banned is sticky: it overrides expiry until explicitly cleared.
type CustomerStatus string

const (
	StatusActive  CustomerStatus = "active"
	StatusExpired CustomerStatus = "expired"
	StatusBanned  CustomerStatus = "banned"
)

// Customer is one licensee. The status field is a cached value recomputed
// lazily whenever the record is accessed through the lifecycle engine.
type Customer struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	LicenseKey  string         `json:"license_key"`
	Status      CustomerStatus `json:"status"`
	MaxDevices  int            `json:"max_devices"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Activations []Activation   `json:"activations"`
}

// Activation binds one device to a customer's license. Unique by DeviceID
// within a customer.
type Activation struct {
	DeviceID    string    `json:"device_id"`
	ActivatedAt time.Time `json:"activated_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Activation returns the activation for the given device, or nil if the
// device was never activated.
func (c *Customer) Activation(deviceID string) *Activation {
	for i := range c.Activations {
		if c.Activations[i].DeviceID == deviceID {
			return &c.Activations[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out copies so callers can mutate
// freely before saving.
func (c *Customer) Clone() *Customer {
	clone := *c
	if c.Activations != nil {
		clone.Activations = make([]Activation, len(c.Activations))
		copy(clone.Activations, c.Activations)
	}
	return &clone
}
