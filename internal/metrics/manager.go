// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/store"
)

type Manager struct {
	registry         *prometheus.Registry
	licenseCollector *LicenseCollector
}

func NewManager(store store.Store) *Manager {
	registry := prometheus.NewRegistry()

	licenseCollector := NewLicenseCollector(store)
	registry.MustRegister(licenseCollector)

	log.Debug().Msg("Metrics manager initialized with license collector")

	return &Manager{
		registry:         registry,
		licenseCollector: licenseCollector,
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}
