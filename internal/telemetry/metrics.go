/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes process metrics for scrape-based monitoring.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the display engine reports.
type Metrics struct {
	registry *prometheus.Registry

	Generations        *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	CaptureFailures    prometheus.Counter
	DevicePolls        prometheus.Counter
	BatteryLevel       prometheus.Gauge
	RotationAdvances   prometheus.Counter
}

// NewMetrics registers the display engine collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carbon_generations_total",
			Help: "Frame generations by outcome.",
		}, []string{"outcome"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbon_generation_duration_seconds",
			Help:    "End to end capture, quantize and encode time.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		CaptureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carbon_capture_failures_total",
			Help: "Frame producer failures including timeouts.",
		}),
		DevicePolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carbon_device_polls_total",
			Help: "Device status polls.",
		}),
		BatteryLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carbon_battery_level",
			Help: "Last reported device battery percentage.",
		}),
		RotationAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carbon_rotation_advances_total",
			Help: "Director cycle advances, scheduled and forced.",
		}),
	}
	registry.MustRegister(
		m.Generations,
		m.GenerationDuration,
		m.CaptureFailures,
		m.DevicePolls,
		m.BatteryLevel,
		m.RotationAdvances,
	)
	return m
}

// Handler exposes the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
