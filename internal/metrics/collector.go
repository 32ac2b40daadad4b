// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/keygate/internal/license"
	"github.com/autobrr/keygate/internal/models"
	"github.com/autobrr/keygate/internal/store"
)

// LicenseCollector reads the customer set on every scrape and reports
// counts by derived status. Status is recomputed at scrape time with the
// same lazy-expiry rule the engine uses, so metrics never depend on a
// background sweep.
type LicenseCollector struct {
	store store.Store

	customersDesc   *prometheus.Desc
	activationsDesc *prometheus.Desc

	scrapeErrors prometheus.Counter
}

func NewLicenseCollector(store store.Store) *LicenseCollector {
	return &LicenseCollector{
		store: store,

		customersDesc: prometheus.NewDesc(
			"keygate_customers",
			"Number of customers by license status",
			[]string{"status"},
			nil,
		),
		activationsDesc: prometheus.NewDesc(
			"keygate_device_activations",
			"Total number of device activations across all customers",
			nil,
			nil,
		),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keygate_scrape_errors_total",
			Help: "Total number of errors encountered while collecting license metrics",
		}),
	}
}

func (c *LicenseCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.customersDesc
	ch <- c.activationsDesc
	c.scrapeErrors.Describe(ch)
}

func (c *LicenseCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customers, err := c.store.ListCustomers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list customers for metrics scrape")
		c.scrapeErrors.Inc()
		ch <- c.scrapeErrors
		return
	}

	now := time.Now()
	byStatus := map[models.CustomerStatus]int{
		models.StatusActive:  0,
		models.StatusExpired: 0,
		models.StatusBanned:  0,
	}
	activations := 0

	for _, customer := range customers {
		byStatus[license.DeriveStatus(customer, now)]++
		activations += len(customer.Activations)
	}

	for status, count := range byStatus {
		ch <- prometheus.MustNewConstMetric(
			c.customersDesc,
			prometheus.GaugeValue,
			float64(count),
			string(status),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.activationsDesc,
		prometheus.GaugeValue,
		float64(activations),
	)

	ch <- c.scrapeErrors
}
